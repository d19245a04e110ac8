package workflow

// BuildApprovalStateMachine creates a state machine configured for the
// sequential approval lifecycle. Step-level ordering and access control
// live in the engine; this machine guards the overall status transitions.
func BuildApprovalStateMachine(initialState State) StateMachine {
	builder := NewBuilder()

	// PENDING: only step 0 has been activated, nothing approved yet
	builder.Configure(StatePending).
		Permit(TriggerAdvance, StateInProgress).
		Permit(TriggerComplete, StateApproved). // single-step definitions
		Permit(TriggerReject, StateRejected)

	// IN-PROGRESS: at least one step approved, more remain
	builder.Configure(StateInProgress).
		Permit(TriggerAdvance, StateInProgress).
		Permit(TriggerComplete, StateApproved).
		Permit(TriggerReject, StateRejected)

	// REJECTED: terminal except for resubmission, which re-enters at step 0
	builder.Configure(StateRejected).
		Permit(TriggerResubmit, StateInProgress)

	// APPROVED is terminal - no outgoing transitions

	return builder.Build(initialState)
}
