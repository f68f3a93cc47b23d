package subscription

import "errors"

// Sentinel errors for the subscription service layer.
//
// ErrInvalidToken is a client error: the presented token was never issued.
// Handlers map it to an unauthorized response and must not log it as
// unexpected. Anything else coming out of Confirm is an infrastructure
// fault and maps to a server error.
var (
	ErrInvalidToken   = errors.New("confirmation token is not valid")
	ErrTokenNotFound  = errors.New("confirmation token not found")
	ErrDuplicateToken = errors.New("confirmation token already exists")
)
