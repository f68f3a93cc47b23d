package domain

import (
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/rivo/uniseg"
)

// maxNameGraphemes is the longest subscriber name we accept, measured in
// grapheme clusters rather than bytes so multi-rune characters count as one.
const maxNameGraphemes = 256

// forbiddenNameRunes are rejected anywhere in a subscriber name. They have no
// place in a human name and defuse injection into email headers and markup.
const forbiddenNameRunes = `/()"<>\{}`

// SubscriberName is a display name validated at construction time.
// The zero value is invalid; obtain one through ParseSubscriberName.
type SubscriberName struct {
	value string
}

// ParseSubscriberName validates raw input into a SubscriberName.
// The input is trimmed first; the trimmed value must be non-empty, at most
// 256 graphemes, and free of control characters and forbiddenNameRunes.
func ParseSubscriberName(raw string) (SubscriberName, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "name must not be empty"}
	}
	if uniseg.GraphemeClusterCount(trimmed) > maxNameGraphemes {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "name must be at most 256 characters"}
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) || strings.ContainsRune(forbiddenNameRunes, r) {
			return SubscriberName{}, &ValidationError{Field: "name", Reason: "name contains a forbidden character"}
		}
	}
	return SubscriberName{value: trimmed}, nil
}

// String returns the validated, trimmed name.
func (n SubscriberName) String() string { return n.value }

// SubscriberEmail is an email address validated at construction time.
// Validation is purely syntactic; no DNS or mailbox verification is done.
// The zero value is invalid; obtain one through ParseSubscriberEmail.
type SubscriberEmail struct {
	value string
}

// ParseSubscriberEmail validates raw input into a SubscriberEmail.
func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "email must not be empty"}
	}
	if !strings.Contains(trimmed, "@") {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "email is missing an @ symbol"}
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "email is not a valid address"}
	}
	// mail.ParseAddress accepts display-name forms like `Guin <x@y.com>`;
	// a bare address must round-trip unchanged.
	if addr.Address != trimmed {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "email is not a valid address"}
	}
	return SubscriberEmail{value: trimmed}, nil
}

// String returns the validated address.
func (e SubscriberEmail) String() string { return e.value }

// NewSubscriber is a fully validated registration request: it never exists
// half-valid. Build one with NewSubscriberFromForm.
type NewSubscriber struct {
	Name  SubscriberName
	Email SubscriberEmail
}

// NewSubscriberFromForm validates raw form input into a NewSubscriber.
// The name is validated first; a name failure is returned before the email
// is even looked at.
func NewSubscriberFromForm(name, email string) (NewSubscriber, error) {
	n, err := ParseSubscriberName(name)
	if err != nil {
		return NewSubscriber{}, err
	}
	e, err := ParseSubscriberEmail(email)
	if err != nil {
		return NewSubscriber{}, err
	}
	return NewSubscriber{Name: n, Email: e}, nil
}

// SubscriptionStatus enumerates the states a subscription can be in.
type SubscriptionStatus string

const (
	StatusPendingConfirmation SubscriptionStatus = "pending_confirmation"
	StatusConfirmed           SubscriptionStatus = "confirmed"
)

// Subscription is the persisted subscriber record. It is created in
// pending_confirmation by a subscribe request and flipped to confirmed
// exactly once by token redemption. Rows are never deleted by the service.
type Subscription struct {
	ID           string             `json:"id" db:"id"`
	Name         string             `json:"name" db:"name"`
	Email        string             `json:"email" db:"email"`
	Status       SubscriptionStatus `json:"status" db:"status"`
	SubscribedAt time.Time          `json:"subscribed_at" db:"subscribed_at"`
}
