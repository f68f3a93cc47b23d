package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/distlock"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/service/sending"
)

// ErrDispatchInProgress is returned when another broadcast already holds
// the dispatch lock. Maps to a conflict response at the boundary.
var ErrDispatchInProgress = errors.New("a newsletter dispatch is already running")

// defaultConcurrency bounds the outbound fan-out so a large subscriber list
// does not overwhelm the ESP.
const defaultConcurrency = 8

// RecipientSource lists the confirmed subscriber addresses for a broadcast.
// Satisfied by the subscription repository.
type RecipientSource interface {
	ConfirmedEmails(ctx context.Context) ([]domain.SubscriberEmail, error)
}

// LockFactory creates the dispatch lock. Optional; when nil, dispatches are
// not serialized across processes.
type LockFactory func() distlock.DistLock

// Service fans a newsletter issue out to all confirmed subscribers.
type Service struct {
	recipients  RecipientSource
	sender      sending.Sender
	fromName    string
	fromEmail   string
	concurrency int
	newLock     LockFactory
}

// NewService creates a dispatcher. concurrency <= 0 selects the default.
func NewService(recipients RecipientSource, sender sending.Sender, fromName, fromEmail string, concurrency int, newLock LockFactory) *Service {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{
		recipients:  recipients,
		sender:      sender,
		fromName:    fromName,
		fromEmail:   fromEmail,
		concurrency: concurrency,
		newLock:     newLock,
	}
}

// Dispatch delivers the issue to every confirmed subscriber.
//
// Per-recipient failures (transport error, provider rejection) are recorded
// in the report and delivery continues; only failures to even start the
// broadcast (invalid issue, recipient listing, lock contention) return an
// error. Re-running a partially failed dispatch re-sends to recipients that
// already succeeded; no per-send retry happens at this layer.
//
// Cancelling ctx stops issuing new sends; in-flight sends run to completion
// and already-delivered mail is not retracted.
func (s *Service) Dispatch(ctx context.Context, issue domain.Issue) (*domain.DispatchReport, error) {
	if err := issue.Validate(); err != nil {
		return nil, err
	}

	if s.newLock != nil {
		lock := s.newLock()
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire dispatch lock: %w", err)
		}
		if !ok {
			return nil, ErrDispatchInProgress
		}
		defer lock.Release(context.WithoutCancel(ctx))
	}

	emails, err := s.recipients.ConfirmedEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("list confirmed subscribers: %w", err)
	}

	report := &domain.DispatchReport{Attempted: len(emails)}
	if len(emails) == 0 {
		logger.Warn("dispatch requested with no confirmed subscribers", "subject", issue.Subject)
		return report, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrency)
	)

	for _, email := range emails {
		select {
		case <-ctx.Done():
			mu.Lock()
			report.Failures = append(report.Failures, domain.DispatchFailure{
				Email:  email.String(),
				Reason: "dispatch cancelled before send",
			})
			mu.Unlock()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(to domain.SubscriberEmail) {
			defer wg.Done()
			defer func() { <-sem }()

			if reason := s.sendOne(ctx, to, issue); reason != "" {
				mu.Lock()
				report.Failures = append(report.Failures, domain.DispatchFailure{
					Email:  to.String(),
					Reason: reason,
				})
				mu.Unlock()
			}
		}(email)
	}
	wg.Wait()

	report.Succeeded = report.Attempted - len(report.Failures)
	logger.Info("newsletter dispatch finished",
		"subject", issue.Subject,
		"attempted", fmt.Sprint(report.Attempted),
		"succeeded", fmt.Sprint(report.Succeeded),
		"failed", fmt.Sprint(report.Failed()))
	return report, nil
}

// sendOne attempts one delivery and returns a failure reason, or "" on
// success.
func (s *Service) sendOne(ctx context.Context, to domain.SubscriberEmail, issue domain.Issue) string {
	msg := &domain.EmailMessage{
		To:          to.String(),
		FromName:    s.fromName,
		FromEmail:   s.fromEmail,
		Subject:     issue.Subject,
		HTMLContent: issue.HTMLContent,
		TextContent: issue.TextContent,
	}

	res, err := s.sender.Send(ctx, msg)
	if err != nil {
		logger.Warn("newsletter send failed", "email", to.String(), "error", err.Error())
		return err.Error()
	}
	if !res.Success {
		logger.Warn("newsletter send rejected", "email", to.String(), "reason", res.Error)
		return res.Error
	}
	return ""
}
