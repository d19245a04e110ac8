package event

// Type identifies the type of domain event
type Type string

const (
	TypeWorkflowCreated     Type = "workflow.created"
	TypeStepApproved        Type = "workflow.step_approved"
	TypeWorkflowApproved    Type = "workflow.approved"
	TypeWorkflowRejected    Type = "workflow.rejected"
	TypeWorkflowResubmitted Type = "workflow.resubmitted"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeWorkflowCreated,
		TypeStepApproved,
		TypeWorkflowApproved,
		TypeWorkflowRejected,
		TypeWorkflowResubmitted:
		return true
	default:
		return false
	}
}
