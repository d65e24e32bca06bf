package schemas

import (
	"errors"
	"fmt"
)

// Error codes attached to failure observations. The planner sees these codes
// in the transcript and is expected to adapt its next action accordingly.
const (
	ErrCodeElementNotFound = "ELEMENT_NOT_FOUND"
	ErrCodeTimeout         = "TIMEOUT_ERROR"
	ErrCodeNavigation      = "NAVIGATION_ERROR"
	ErrCodeUnknownVariable = "UNKNOWN_VARIABLE"
	ErrCodeExecution       = "EXECUTION_ERROR"
)

// ErrSessionNotFound is returned when a session id does not resolve to a
// live or finished session.
var ErrSessionNotFound = errors.New("session not found")

// ProvisioningError is a fatal, pre-loop failure: browser or provider
// resources could not be acquired, so no session exists and no transcript was
// produced.
type ProvisioningError struct {
	Cause error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("session provisioning failed: %v", e.Cause)
}

func (e *ProvisioningError) Unwrap() error { return e.Cause }

// NewProvisioningError wraps a cause into a ProvisioningError.
func NewProvisioningError(cause error) *ProvisioningError {
	return &ProvisioningError{Cause: cause}
}

// UnknownVariableError marks an action referencing a variable name the
// session's vault does not hold. It is a step-level failure: the executor
// reports it as an observation so the planner can self-correct, it never
// aborts the loop on its own.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %q referenced by action", e.Name)
}

// PlanningFailureError marks a planning step whose responses stayed
// unparseable or schema-invalid through the whole retry bound.
type PlanningFailureError struct {
	Attempts int
	LastErr  error
}

func (e *PlanningFailureError) Error() string {
	return fmt.Sprintf("planner produced no valid action after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *PlanningFailureError) Unwrap() error { return e.LastErr }

// ElementNotFoundError marks a selector that stayed absent through every
// bounded locate attempt. Exhausted attempts escalate to loop termination.
type ElementNotFoundError struct {
	Selector string
	Attempts int
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element %q not found after %d attempts", e.Selector, e.Attempts)
}
