package schema

import (
	"fmt"
	"time"
)

// FailureReason is the persisted explanation of a failed file.
type FailureReason struct {
	Kind     FailureKind `json:"kind"`
	Message  string      `json:"message"`
	Attempts int         `json:"attempts,omitempty"`
}

func (r FailureReason) String() string {
	return fmt.Sprintf("%s: %s", r.Kind, r.Message)
}

// CallError is returned by annotators to describe a failed call.
type CallError struct {
	Kind       FailureKind
	StatusCode int           // HTTP status, when one was received
	RetryAfter time.Duration // Server hint for rate limiting
	Err        error
}

func (e *CallError) Error() string {
	switch {
	case e.Kind == FailureParse:
		return fmt.Sprintf("parse error: %v", e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *CallError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient.
func (e *CallError) Retryable() bool {
	switch e.Kind {
	case FailureTimeout, FailureNetwork, FailureServer, FailureRateLimit:
		return true
	default:
		return false
	}
}

// Reason converts the error into a persisted failure reason.
func (e *CallError) Reason(attempts int) *FailureReason {
	return &FailureReason{Kind: e.Kind, Message: e.Error(), Attempts: attempts}
}
