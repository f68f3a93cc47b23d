package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/service/sending"
)

// Service implements subscriber registration and confirmation. All public
// methods are safe for concurrent use if the underlying repository is
// concurrency-safe.
type Service struct {
	repo      Repository
	sender    sending.Sender
	fromName  string
	fromEmail string
	baseURL   string
}

// NewService creates a subscription service. sender may be nil, in which
// case no confirmation email is attempted (useful in tests and tooling).
func NewService(repo Repository, sender sending.Sender, fromName, fromEmail, baseURL string) *Service {
	return &Service{
		repo:      repo,
		sender:    sender,
		fromName:  fromName,
		fromEmail: fromEmail,
		baseURL:   baseURL,
	}
}

// Subscribe validates the raw form input, persists the subscriber as
// pending together with a fresh confirmation token, and sends the
// confirmation email.
//
// The email send is best-effort: a failure is logged but never surfaced,
// so the registrant cannot probe delivery internals through this endpoint.
// A *domain.ValidationError return means the input was rejected; any other
// error is an infrastructure fault.
func (s *Service) Subscribe(ctx context.Context, name, email string) error {
	sub, err := domain.NewSubscriberFromForm(name, email)
	if err != nil {
		return err
	}

	token, err := GenerateToken()
	if err != nil {
		return err
	}

	id, err := s.repo.InsertPending(ctx, sub, token)
	if err != nil {
		return fmt.Errorf("insert pending subscriber: %w", err)
	}

	logger.Info("subscriber registered pending confirmation",
		"subscriber_id", id, "email", sub.Email.String())

	if s.sender == nil {
		return nil
	}
	if err := s.sendConfirmationEmail(ctx, sub, token); err != nil {
		logger.Error("confirmation email send failed",
			"subscriber_id", id, "email", sub.Email.String(), "error", err.Error())
	}
	return nil
}

func (s *Service) sendConfirmationEmail(ctx context.Context, sub domain.NewSubscriber, token string) error {
	link := fmt.Sprintf("%s/subscriptions/confirm?token=%s", s.baseURL, token)

	msg := &domain.EmailMessage{
		To:        sub.Email.String(),
		FromName:  s.fromName,
		FromEmail: s.fromEmail,
		Subject:   "Welcome!",
		HTMLContent: fmt.Sprintf(
			"Welcome to our newsletter!<br/>Click <a href=%q>here</a> to confirm your subscription.", link),
		TextContent: fmt.Sprintf(
			"Welcome to our newsletter!\nVisit %s to confirm your subscription.", link),
	}

	res, err := s.sender.Send(ctx, msg)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("provider rejected confirmation email: %s", res.Error)
	}
	return nil
}

// Confirm redeems a confirmation token and transitions the bound subscriber
// to confirmed.
//
// Unknown tokens return ErrInvalidToken: a client error, not a system
// fault. Redeeming a valid token more than once succeeds every time with
// no duplicate effect, so retried requests and double-clicked links are
// safe. Any repository fault is wrapped and propagated as an unexpected
// error, distinct from ErrInvalidToken.
func (s *Service) Confirm(ctx context.Context, token string) error {
	id, err := s.repo.SubscriberIDByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("look up confirmation token: %w", err)
	}

	if err := s.repo.MarkConfirmed(ctx, id); err != nil {
		return fmt.Errorf("confirm subscriber %s: %w", id, err)
	}

	logger.Info("subscriber confirmed", "subscriber_id", id)
	return nil
}
