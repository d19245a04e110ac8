package entity

// WorkflowStatus is the overall status of a workflow instance
type WorkflowStatus string

const (
	WorkflowPending    WorkflowStatus = "pending"
	WorkflowInProgress WorkflowStatus = "in-progress"
	WorkflowApproved   WorkflowStatus = "approved"
	WorkflowRejected   WorkflowStatus = "rejected"
)

var validWorkflowStatuses = map[WorkflowStatus]bool{
	WorkflowPending:    true,
	WorkflowInProgress: true,
	WorkflowApproved:   true,
	WorkflowRejected:   true,
}

// IsTerminal returns true if no further step transitions are possible.
// Rejected instances can still re-enter the flow through resubmission.
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowApproved || s == WorkflowRejected
}

// IsValid returns true if the status is a known workflow status
func (s WorkflowStatus) IsValid() bool {
	return validWorkflowStatuses[s]
}

// String returns the string representation of the status
func (s WorkflowStatus) String() string {
	return string(s)
}

// StepStatus is the status of a single approval step
type StepStatus string

const (
	StepAwaiting StepStatus = "awaiting"
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepRejected StepStatus = "rejected"
)

var validStepStatuses = map[StepStatus]bool{
	StepAwaiting: true,
	StepPending:  true,
	StepApproved: true,
	StepRejected: true,
}

// IsValid returns true if the status is a known step status
func (s StepStatus) IsValid() bool {
	return validStepStatuses[s]
}

// String returns the string representation of the status
func (s StepStatus) String() string {
	return string(s)
}
