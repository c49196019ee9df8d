package teamgen

import (
	"errors"
	"fmt"
)

// InvalidRosterError reports a roster that cannot be balanced: too few players or malformed
// signup entries. Not retryable.
type InvalidRosterError struct {
	Reason string
}

func (e *InvalidRosterError) Error() string {
	return fmt.Sprintf("invalid roster: %s", e.Reason)
}

// EngineUnavailableError wraps a transport, timeout or auth failure reaching the reasoning
// service. Retryable by the caller.
type EngineUnavailableError struct {
	Cause error
}

func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("balancing engine unavailable: %v", e.Cause)
}

func (e *EngineUnavailableError) Unwrap() error { return e.Cause }

// MalformedResponseError reports a reply that could not be parsed into the expected shape.
type MalformedResponseError struct {
	Reason string
	Cause  error
	// Raw is the unparsed reply, kept for logging.
	Raw string
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed balancing response: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("malformed balancing response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

// InconsistentAssignmentError reports a parsed reply that breaks the partition invariant.
type InconsistentAssignmentError struct {
	Reason   string
	PlayerID string
}

func (e *InconsistentAssignmentError) Error() string {
	if e.PlayerID != "" {
		return fmt.Sprintf("inconsistent team assignment: %s (player %s)", e.Reason, e.PlayerID)
	}
	return fmt.Sprintf("inconsistent team assignment: %s", e.Reason)
}

// AsInvalidRosterError attempts to unwrap err into an InvalidRosterError.
func AsInvalidRosterError(err error) (*InvalidRosterError, bool) {
	var target *InvalidRosterError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AsEngineUnavailableError attempts to unwrap err into an EngineUnavailableError.
func AsEngineUnavailableError(err error) (*EngineUnavailableError, bool) {
	var target *EngineUnavailableError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AsMalformedResponseError attempts to unwrap err into a MalformedResponseError.
func AsMalformedResponseError(err error) (*MalformedResponseError, bool) {
	var target *MalformedResponseError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AsInconsistentAssignmentError attempts to unwrap err into an InconsistentAssignmentError.
func AsInconsistentAssignmentError(err error) (*InconsistentAssignmentError, bool) {
	var target *InconsistentAssignmentError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsRetryable reports whether re-triggering generation may succeed.
func IsRetryable(err error) bool {
	if _, ok := AsEngineUnavailableError(err); ok {
		return true
	}
	_, ok := AsMalformedResponseError(err)
	return ok
}
