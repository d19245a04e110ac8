package workflow

import "errors"

var (
	// ErrNotFound is returned when a workflow id is unknown
	ErrNotFound = errors.New("workflow not found")

	// ErrInvalidState is returned when an operation is attempted on a
	// workflow that is not in the required state
	ErrInvalidState = errors.New("workflow not in required state")

	// ErrForbidden is returned when the actor's role or department does
	// not match the current step template
	ErrForbidden = errors.New("actor not permitted for this step")

	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")
)
