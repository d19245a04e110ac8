package entity

import "time"

// AuditAction identifies the kind of state-changing action recorded
type AuditAction string

const (
	AuditWorkflowCreated     AuditAction = "WORKFLOW_CREATED"
	AuditStepApproved        AuditAction = "STEP_APPROVED"
	AuditWorkflowApproved    AuditAction = "WORKFLOW_APPROVED"
	AuditWorkflowRejected    AuditAction = "WORKFLOW_REJECTED"
	AuditWorkflowResubmitted AuditAction = "WORKFLOW_RESUBMITTED"
)

// IsValid returns true if the action is one of the workflow audit kinds
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditWorkflowCreated,
		AuditStepApproved,
		AuditWorkflowApproved,
		AuditWorkflowRejected,
		AuditWorkflowResubmitted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the action
func (a AuditAction) String() string {
	return string(a)
}

// AuditEntry is one append-only record of a state-changing action.
// Entries are never mutated or deleted.
type AuditEntry struct {
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	Action     AuditAction `json:"action"`
	RequestID  string      `json:"request_id"`
	ModuleName string      `json:"module_name"`
	Actor      string      `json:"actor"`
	Details    string      `json:"details"`
}
