package domain

// ValidationError reports malformed client input. It is always a
// client-caused, locally recoverable condition: handlers surface the reason
// as a rejection of the request and never escalate it to a server fault.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
