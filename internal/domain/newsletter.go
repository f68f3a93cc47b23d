package domain

import (
	"fmt"
	"time"
)

// Issue is one newsletter edition as submitted by the operator.
type Issue struct {
	Subject     string `json:"subject"`
	HTMLContent string `json:"html_content"`
	TextContent string `json:"text_content"`
}

// Validate checks that an issue is sendable: a subject plus at least one
// body part (HTML or text).
func (i Issue) Validate() error {
	if i.Subject == "" {
		return &ValidationError{Field: "subject", Reason: "subject must not be empty"}
	}
	if i.HTMLContent == "" && i.TextContent == "" {
		return &ValidationError{Field: "content", Reason: "issue needs html_content or text_content"}
	}
	return nil
}

// EmailMessage is a fully-resolved single-recipient message ready for an
// ESP sender. Both body parts are carried; providers that only accept one
// pick whichever is set.
type EmailMessage struct {
	To          string `json:"to"`
	FromName    string `json:"from_name"`
	FromEmail   string `json:"from_email"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"html_content"`
	TextContent string `json:"text_content"`
}

// SendResult is returned by an ESP sender after attempting delivery of one
// message.
type SendResult struct {
	Success   bool      `json:"success"`
	MessageID string    `json:"message_id,omitempty"`
	SentAt    time.Time `json:"sent_at"`
	Error     string    `json:"error,omitempty"`
}

// DispatchFailure names one recipient that did not receive the issue and why.
type DispatchFailure struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// DispatchReport summarizes one newsletter broadcast. Partial failure is
// data, not an error: the batch as a whole is considered to have partially
// succeeded and the caller decides what to do with the named failures.
type DispatchReport struct {
	Attempted int               `json:"attempted"`
	Succeeded int               `json:"succeeded"`
	Failures  []DispatchFailure `json:"failures,omitempty"`
}

// Failed returns the number of recipients that did not get the issue.
func (r DispatchReport) Failed() int { return r.Attempted - r.Succeeded }

// Summary renders a one-line human-readable account of the broadcast.
func (r DispatchReport) Summary() string {
	return fmt.Sprintf("attempted=%d succeeded=%d failed=%d", r.Attempted, r.Succeeded, r.Failed())
}
