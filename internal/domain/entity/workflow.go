package entity

import (
	"fmt"
	"time"
)

// StepTemplate is one ordered gate in a workflow definition. Role is
// mandatory; Department narrows the gate to a single department and
// ApproverHint names the person expected to act (routing only, never
// enforced).
type StepTemplate struct {
	StepID       string `json:"step_id"`
	Role         string `json:"role"`
	Department   string `json:"department,omitempty"`
	ApproverHint string `json:"approver,omitempty"`
}

// WorkflowDefinition is the immutable approval sequence for a module.
// Step order is the approval order.
type WorkflowDefinition struct {
	ModuleName string         `json:"module_name"`
	Steps      []StepTemplate `json:"steps"`
}

// Validate checks the definition is usable for instance creation
func (d WorkflowDefinition) Validate() error {
	if d.ModuleName == "" {
		return fmt.Errorf("workflow definition has no module name")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("workflow definition %q has no steps", d.ModuleName)
	}
	for i, s := range d.Steps {
		if s.StepID == "" {
			return fmt.Errorf("workflow definition %q: step %d has no step id", d.ModuleName, i)
		}
		if s.Role == "" {
			return fmt.Errorf("workflow definition %q: step %d has no role", d.ModuleName, i)
		}
	}
	return nil
}

// Step is a StepTemplate augmented with runtime approval state
type Step struct {
	StepTemplate
	StepIndex       int        `json:"step_index"`
	Status          StepStatus `json:"status"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	ApproverDept    string     `json:"approver_dept,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectedBy      string     `json:"rejected_by,omitempty"`
}

// WorkflowInstance is one in-flight or completed approval workflow tied to
// a single business request. Only the workflow engine mutates it.
type WorkflowInstance struct {
	ID             string         `json:"id"`
	RequestID      string         `json:"request_id"`
	ModuleName     string         `json:"module_name"`
	Data           string         `json:"data"` // opaque JSON payload owned by the caller
	RequestorEmail string         `json:"requestor_email"`
	Status         WorkflowStatus `json:"status"`
	CurrentStep    int            `json:"current_step"`
	Steps          []Step         `json:"steps"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CurrentStepRef returns the step the instance is waiting on, or nil when
// CurrentStep is past the end (fully approved) or the instance has no steps.
func (w *WorkflowInstance) CurrentStepRef() *Step {
	if w.CurrentStep < 0 || w.CurrentStep >= len(w.Steps) {
		return nil
	}
	return &w.Steps[w.CurrentStep]
}

// CompletedSteps returns the number of approved steps
func (w *WorkflowInstance) CompletedSteps() int {
	n := 0
	for _, s := range w.Steps {
		if s.Status == StepApproved {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to hand to callers
func (w *WorkflowInstance) Clone() *WorkflowInstance {
	cp := *w
	cp.Steps = make([]Step, len(w.Steps))
	copy(cp.Steps, w.Steps)
	for i := range cp.Steps {
		if t := cp.Steps[i].ApprovedAt; t != nil {
			tc := *t
			cp.Steps[i].ApprovedAt = &tc
		}
		if t := cp.Steps[i].RejectedAt; t != nil {
			tc := *t
			cp.Steps[i].RejectedAt = &tc
		}
	}
	return &cp
}

// NextApprover is the routing hint for the step a workflow is waiting on
type NextApprover struct {
	StepID   string `json:"step_id"`
	Role     string `json:"role"`
	Approver string `json:"approver,omitempty"`
}

// StepSummary is the redacted per-step view exposed through progress
// queries. Approver-selection metadata stays internal.
type StepSummary struct {
	StepID          string     `json:"step_id"`
	Role            string     `json:"role"`
	Status          StepStatus `json:"status"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// ApprovalProgress is a read-only projection of workflow state
type ApprovalProgress struct {
	WorkflowID      string         `json:"workflow_id"`
	RequestID       string         `json:"request_id"`
	Status          WorkflowStatus `json:"status"`
	TotalSteps      int            `json:"total_steps"`
	CompletedSteps  int            `json:"completed_steps"`
	CurrentStep     int            `json:"current_step"`
	CurrentStepInfo *StepSummary   `json:"current_step_info,omitempty"`
	Steps           []StepSummary  `json:"steps"`
}
