package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// TriggerAdvance approves the current step with further steps remaining
	TriggerAdvance Trigger = "ADVANCE"
	// TriggerComplete approves the final step
	TriggerComplete Trigger = "COMPLETE"
	// TriggerReject rejects the current step
	TriggerReject Trigger = "REJECT"
	// TriggerResubmit restarts a rejected workflow from step zero
	TriggerResubmit Trigger = "RESUBMIT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
