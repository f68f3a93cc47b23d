package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/service/subscription"
)

// SubscriptionRepo implements subscription.Repository against PostgreSQL.
type SubscriptionRepo struct{ db *sql.DB }

// NewSubscriptionRepo creates a Postgres-backed subscription repository.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

// InsertPending writes the subscription row and its confirmation token in a
// single transaction. Either both rows commit or neither does, so a pending
// subscriber is never left without a way to confirm.
func (r *SubscriptionRepo) InsertPending(ctx context.Context, sub domain.NewSubscriber, token string) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin subscribe tx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		VALUES ($1, $2, $3, NOW(), $4)
	`, id, sub.Email.String(), sub.Name.String(), domain.StatusPendingConfirmation)
	if err != nil {
		return "", fmt.Errorf("insert subscription: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscription_tokens (subscription_token, subscriber_id)
		VALUES ($1, $2)
	`, token, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return "", subscription.ErrDuplicateToken
		}
		return "", fmt.Errorf("insert confirmation token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit subscribe tx: %w", err)
	}
	return id, nil
}

func (r *SubscriptionRepo) SubscriberIDByToken(ctx context.Context, token string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT subscriber_id FROM subscription_tokens WHERE subscription_token = $1
	`, token).Scan(&id)
	if err == sql.ErrNoRows {
		return "", subscription.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("look up token: %w", err)
	}
	return id, nil
}

// MarkConfirmed is an idempotent status flip: re-confirming an already
// confirmed subscriber matches the same row and changes nothing.
func (r *SubscriptionRepo) MarkConfirmed(ctx context.Context, subscriberID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = $1 WHERE id = $2
	`, domain.StatusConfirmed, subscriberID)
	if err != nil {
		return fmt.Errorf("mark confirmed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("mark confirmed: no subscription with id %s", subscriberID)
	}
	return nil
}

func (r *SubscriptionRepo) ConfirmedEmails(ctx context.Context) ([]domain.SubscriberEmail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT email FROM subscriptions WHERE status = $1
	`, domain.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("list confirmed emails: %w", err)
	}
	defer rows.Close()

	var out []domain.SubscriberEmail
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan confirmed email: %w", err)
		}
		email, err := domain.ParseSubscriberEmail(raw)
		if err != nil {
			// A stored address that no longer validates is skipped, not
			// fatal: one bad row must not block a whole broadcast.
			logger.Warn("skipping stored subscriber email that fails validation", "email", raw)
			continue
		}
		out = append(out, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmed emails: %w", err)
	}
	return out, nil
}
