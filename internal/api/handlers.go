package api

import (
	"errors"
	"net/http"

	"github.com/ignite/newsletter/internal/auth"
	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/httputil"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/service/dispatch"
	"github.com/ignite/newsletter/internal/service/subscription"
)

// Handlers holds the service dependencies for all HTTP handlers.
type Handlers struct {
	subscriptions *subscription.Service
	dispatcher    *dispatch.Service
	operator      *auth.Operator
}

// NewHandlers creates the handler set.
func NewHandlers(subs *subscription.Service, disp *dispatch.Service, operator *auth.Operator) *Handlers {
	return &Handlers{
		subscriptions: subs,
		dispatcher:    disp,
		operator:      operator,
	}
}

// HandleSubscribe registers a new pending subscription from a form post.
// The confirmation email is best-effort: a send failure still returns 200
// because the pending row is already committed.
//
//	POST /subscriptions  (application/x-www-form-urlencoded: name, email)
func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "malformed form body")
		return
	}
	name := r.PostFormValue("name")
	email := r.PostFormValue("email")

	err := h.subscriptions.Subscribe(r.Context(), name, email)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			httputil.BadRequest(w, ve.Reason)
			return
		}
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]string{"status": "pending_confirmation"})
}

// HandleConfirm redeems a confirmation token and marks the subscription
// confirmed. Redeeming an already-confirmed subscription is a no-op success.
//
//	GET /subscriptions/confirm?token=...
func (h *Handlers) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.BadRequest(w, "missing token parameter")
		return
	}

	if err := h.subscriptions.Confirm(r.Context(), token); err != nil {
		if errors.Is(err, subscription.ErrInvalidToken) {
			httputil.Unauthorized(w, "invalid confirmation token")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]string{"status": "confirmed"})
}

// publishRequest is the newsletter publishing payload.
type publishRequest struct {
	Subject     string `json:"subject"`
	HTMLContent string `json:"html_content"`
	TextContent string `json:"text_content"`
}

// publishResponse reports the outcome of a dispatch.
type publishResponse struct {
	Attempted int                      `json:"attempted"`
	Succeeded int                      `json:"succeeded"`
	Failed    int                      `json:"failed"`
	Failures  []domain.DispatchFailure `json:"failures,omitempty"`
}

// HandlePublishNewsletter dispatches an issue to all confirmed subscribers.
// Requires operator auth (enforced by middleware on the route group).
//
//	POST /newsletters
func (h *Handlers) HandlePublishNewsletter(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	issue := domain.Issue{
		Subject:     req.Subject,
		HTMLContent: req.HTMLContent,
		TextContent: req.TextContent,
	}

	report, err := h.dispatcher.Dispatch(r.Context(), issue)
	if err != nil {
		var ve *domain.ValidationError
		switch {
		case errors.As(err, &ve):
			httputil.BadRequest(w, ve.Reason)
		case errors.Is(err, dispatch.ErrDispatchInProgress):
			httputil.Conflict(w, err.Error())
		default:
			httputil.InternalError(w, err)
		}
		return
	}

	logger.Info("newsletter published", "subject", issue.Subject, "summary", report.Summary())
	httputil.OK(w, publishResponse{
		Attempted: report.Attempted,
		Succeeded: report.Succeeded,
		Failed:    report.Failed(),
		Failures:  report.Failures,
	})
}
