// Package subscription implements subscriber registration and confirmation.
//
// The service layer owns the two protocol-critical pieces: the atomic
// pending-subscriber + confirmation-token write, and the exactly-once token
// redemption state machine. It depends on the Repository interface defined
// in this package and should never import from api/.
//
// Repository implementations live in repository/postgres/.
package subscription
