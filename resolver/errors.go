package resolver

import (
	"errors"
	"fmt"
)

// Reason classifies a terminal resolution failure.
type Reason string

const (
	// ReasonTriggerFailed indicates the initiating call to the third party
	// failed; the trigger is never retried.
	ReasonTriggerFailed Reason = "trigger_failed"
	// ReasonTimeout indicates no callback arrived within the push budget.
	ReasonTimeout Reason = "timeout"
	// ReasonDuplicateKey indicates a resolution was already in flight for
	// the same correlation key.
	ReasonDuplicateKey Reason = "duplicate_key"
	// ReasonExhausted indicates the poll strategy found no match after all
	// attempts.
	ReasonExhausted Reason = "exhausted"
	// ReasonTransportError indicates an underlying network or API failure.
	ReasonTransportError Reason = "transport_error"
	// ReasonCanceled indicates the caller's context ended or the host shut
	// down before a terminal state was reached.
	ReasonCanceled Reason = "canceled"
)

// Failure is the single error type surfaced by the façade. Every internal
// outcome is translated into one Failure with a reason code; the host
// decides whether to surface it or degrade.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("resolution failed: %v", f.Reason)
	}
	return fmt.Sprintf("resolution failed: %v: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// FailureReason extracts the reason code from err, when err carries one.
func FailureReason(err error) (Reason, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Reason, true
	}
	return "", false
}
