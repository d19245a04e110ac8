package port

import (
	"context"

	"github.com/Kavesh2000/Onitticketingsystem/internal/domain/entity"
)

// WorkflowRepository defines persistence operations for WorkflowInstance.
// Get methods return (nil, nil) when the row does not exist.
type WorkflowRepository interface {
	Create(ctx context.Context, instance *entity.WorkflowInstance) error
	GetByID(ctx context.Context, id string) (*entity.WorkflowInstance, error)
	GetByRequestID(ctx context.Context, requestID string) ([]*entity.WorkflowInstance, error)
	// ListActive returns instances that are neither approved nor rejected
	ListActive(ctx context.Context) ([]*entity.WorkflowInstance, error)
	Update(ctx context.Context, instance *entity.WorkflowInstance) error
}

// AuditRepository defines persistence for the append-only audit log.
// There is deliberately no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditEntry) error
	// ListByRequestID returns entries ordered by timestamp ascending,
	// insertion order breaking ties
	ListByRequestID(ctx context.Context, requestID string) ([]*entity.AuditEntry, error)
}

// LeaveRequestRepository defines persistence operations for LeaveRequest
type LeaveRequestRepository interface {
	Create(ctx context.Context, req *entity.LeaveRequest) error
	GetByID(ctx context.Context, id string) (*entity.LeaveRequest, error)
	Update(ctx context.Context, req *entity.LeaveRequest) error
	// ListApprovedBySubject returns approved requests for the subject's
	// email, matched case-insensitively
	ListApprovedBySubject(ctx context.Context, email string) ([]*entity.LeaveRequest, error)
	// ListSubjects returns the distinct lowercased emails present in the
	// request set
	ListSubjects(ctx context.Context) ([]string, error)
}

// LeaveBalanceRepository defines persistence operations for LeaveBalance
type LeaveBalanceRepository interface {
	Get(ctx context.Context, subjectID string) (*entity.LeaveBalance, error)
	Upsert(ctx context.Context, balance *entity.LeaveBalance) error
	List(ctx context.Context) ([]*entity.LeaveBalance, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
