package workflow

import (
	"context"

	"github.com/Kavesh2000/Onitticketingsystem/internal/domain/entity"
)

// Engine drives sequential role-and-department-gated approval workflows.
// Every state-changing operation appends to the audit log inside the same
// transaction that persists the instance, so a transition is never
// observable without its audit entry.
type Engine interface {
	// RegisterDefinition installs the approval sequence for a module.
	// Definitions are immutable once registered.
	RegisterDefinition(def entity.WorkflowDefinition) error

	// CreateWorkflow builds a new instance for the module's definition:
	// step 0 pending, all others awaiting, overall status pending.
	CreateWorkflow(ctx context.Context, requestID, moduleName, data, requestorEmail string) (*entity.WorkflowInstance, error)

	// ApproveStep approves the current step on behalf of the actor. The
	// actor's role must match the step's role and, when the step declares
	// a department, the actor's department must match too.
	ApproveStep(ctx context.Context, workflowID, approverEmail, approverRole, approverDept, comments string) (*entity.WorkflowInstance, error)

	// RejectStep rejects the workflow at the current step, which is
	// terminal until resubmission. The current step pointer is left where
	// the rejection happened.
	RejectStep(ctx context.Context, workflowID, rejectorEmail, rejectorRole, rejectorDept, rejectionReason string) (*entity.WorkflowInstance, error)

	// CanResubmit reports whether the workflow exists and is rejected
	CanResubmit(ctx context.Context, workflowID string) bool

	// ResubmitWorkflow resets a rejected workflow to step 0. Prior
	// approval state is cleared from the instance; the audit log keeps
	// the only durable record of the rejected attempt.
	ResubmitWorkflow(ctx context.Context, workflowID, submitterEmail string) (*entity.WorkflowInstance, error)

	// GetNextApprover returns the current step's routing hint, or nil if
	// the workflow is unknown or terminal
	GetNextApprover(ctx context.Context, workflowID string) (*entity.NextApprover, error)

	// GetApprovalProgress returns a redacted progress snapshot, or nil if
	// the workflow is unknown
	GetApprovalProgress(ctx context.Context, workflowID string) (*entity.ApprovalProgress, error)

	// GetPendingApprovalsForRole returns all non-terminal instances whose
	// current step requires the given role and is pending. Full scan of
	// the active set.
	GetPendingApprovalsForRole(ctx context.Context, role string) ([]*entity.WorkflowInstance, error)

	// GetAuditTrail returns the audit entries for a request, timestamp
	// ascending with insertion order breaking ties
	GetAuditTrail(ctx context.Context, requestID string) ([]*entity.AuditEntry, error)
}
