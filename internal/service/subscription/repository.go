package subscription

import (
	"context"

	"github.com/ignite/newsletter/internal/domain"
)

// Repository defines the data access contract for subscriptions.
// Implementations must be safe for concurrent use.
type Repository interface {
	// InsertPending creates a subscription row in pending_confirmation state
	// together with its confirmation token binding, inside one transaction:
	// a subscriber must never be committed without a token, and vice versa.
	// Returns the generated subscriber id.
	InsertPending(ctx context.Context, sub domain.NewSubscriber, token string) (string, error)

	// SubscriberIDByToken resolves a confirmation token to the subscriber id
	// it was issued for. Returns ErrTokenNotFound for unknown tokens.
	SubscriberIDByToken(ctx context.Context, token string) (string, error)

	// MarkConfirmed flips the subscription status to confirmed. The update
	// is idempotent: confirming an already-confirmed subscriber succeeds
	// with no further effect.
	MarkConfirmed(ctx context.Context, subscriberID string) error

	// ConfirmedEmails returns the addresses of all confirmed subscribers.
	// Order is unspecified. Used only by newsletter dispatch.
	ConfirmedEmails(ctx context.Context) ([]domain.SubscriberEmail, error)
}
