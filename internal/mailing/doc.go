// Package mailing contains the ESP clients that implement sending.Sender.
//
// Two providers are supported: a Postmark-style HTTP API (the default) and
// AWS SESv2. Both enforce a finite per-call timeout and are safe for
// concurrent use. Retry of transient transport failures is handled here,
// inside the collaborator, never by the dispatcher.
package mailing
