package workflow

// State represents the overall status of a workflow instance
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in-progress"
	StateApproved   State = "approved"
	StateRejected   State = "rejected"
)

var validStates = map[State]bool{
	StatePending:    true,
	StateInProgress: true,
	StateApproved:   true,
	StateRejected:   true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// IsTerminal returns true if the state allows no further step transitions.
// Rejected is only backward-reachable through the resubmit trigger.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
