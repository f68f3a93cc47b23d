// Package sending defines the interface for email delivery through an ESP.
//
// Each provider (Postmark-style HTTP API, AWS SES) implements the Sender
// interface in internal/mailing. The subscription service and the newsletter
// dispatcher stay provider-agnostic by depending only on this package.
package sending

import (
	"context"

	"github.com/ignite/newsletter/internal/domain"
)

// Sender delivers a single email through an ESP. Implementations must be
// safe for concurrent use and must enforce a finite per-call timeout so one
// stuck recipient cannot stall a whole dispatch.
//
// A non-nil error means the attempt itself could not be carried out
// (transport failure). A provider-level rejection comes back as a
// SendResult with Success=false and the provider's reason.
type Sender interface {
	Send(ctx context.Context, msg *domain.EmailMessage) (*domain.SendResult, error)
}
