// Package dispatch implements newsletter broadcast to confirmed subscribers.
//
// A dispatch is a best-effort fan-out, not a transaction: per-recipient
// failures are recorded and reported, never thrown, and delivery order is
// unspecified. The one cross-cutting control is an optional distributed
// lock so two operator triggers cannot run the same broadcast concurrently.
package dispatch
