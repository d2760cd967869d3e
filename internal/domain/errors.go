package domain

import "errors"

var (
	// ErrIllegalTransition is returned when a trigger is not defined from the current status.
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrGuardViolation is returned when a transition is defined but its guard does not hold.
	ErrGuardViolation = errors.New("guard violation")
	// ErrInvalidStepState is returned when a step operation does not apply to the step's status.
	ErrInvalidStepState = errors.New("invalid step state")
	// ErrNotFound is returned for unknown items, steps, checklist items or schedules.
	ErrNotFound = errors.New("not found")
	// ErrDispatchFailure marks an outbound channel attempt that failed.
	ErrDispatchFailure = errors.New("dispatch failure")
	// ErrInvalidInput is returned for malformed intents.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorKind is the stable classification used in results, envelopes and logs.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindIllegalTransition ErrorKind = "illegal_transition"
	KindGuardViolation    ErrorKind = "guard_violation"
	KindInvalidStepState  ErrorKind = "invalid_step_state"
	KindNotFound          ErrorKind = "not_found"
	KindDispatchFailure   ErrorKind = "dispatch_failure"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindInternal          ErrorKind = "internal"
)

// KindOf classifies err against the workflow sentinels.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrIllegalTransition):
		return KindIllegalTransition
	case errors.Is(err, ErrGuardViolation):
		return KindGuardViolation
	case errors.Is(err, ErrInvalidStepState):
		return KindInvalidStepState
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDispatchFailure):
		return KindDispatchFailure
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
