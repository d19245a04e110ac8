package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Kavesh2000/Onitticketingsystem/internal/application/port"
	"github.com/Kavesh2000/Onitticketingsystem/internal/domain/entity"
	"github.com/Kavesh2000/Onitticketingsystem/internal/infrastructure/persistence/sqlite"
)

// WorkflowRepository implements port.WorkflowRepository over SQLite.
// Per-step runtime state is stored as a JSON column; the engine always
// reads and writes whole instances.
type WorkflowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sql.DB, logger *zap.Logger) port.WorkflowRepository {
	return &WorkflowRepository{
		db:     db,
		logger: logger,
	}
}

const workflowColumns = `id, request_id, module_name, data, requestor_email, status, current_step, steps, created_at, updated_at`

// Create inserts a new workflow instance
func (r *WorkflowRepository) Create(ctx context.Context, wf *entity.WorkflowInstance) error {
	steps, err := json.Marshal(wf.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	query := `
		INSERT INTO workflow_instances (` + workflowColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		wf.ID,
		wf.RequestID,
		wf.ModuleName,
		wf.Data,
		wf.RequestorEmail,
		wf.Status.String(),
		wf.CurrentStep,
		string(steps),
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow instance", zap.String("id", wf.ID), zap.Error(err))
		return fmt.Errorf("failed to create workflow instance: %w", err)
	}
	return nil
}

// GetByID retrieves a workflow instance by ID
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*entity.WorkflowInstance, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_instances WHERE id = ?`

	wf, err := scanWorkflow(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow instance", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow instance: %w", err)
	}
	return wf, nil
}

// GetByRequestID retrieves the workflow instances gating a request
func (r *WorkflowRepository) GetByRequestID(ctx context.Context, requestID string) ([]*entity.WorkflowInstance, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_instances WHERE request_id = ? ORDER BY created_at`
	return r.queryMany(ctx, query, requestID)
}

// ListActive retrieves instances that are neither approved nor rejected
func (r *WorkflowRepository) ListActive(ctx context.Context) ([]*entity.WorkflowInstance, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_instances WHERE status NOT IN (?, ?) ORDER BY created_at`
	return r.queryMany(ctx, query, entity.WorkflowApproved.String(), entity.WorkflowRejected.String())
}

// Update replaces the stored instance state
func (r *WorkflowRepository) Update(ctx context.Context, wf *entity.WorkflowInstance) error {
	steps, err := json.Marshal(wf.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	query := `
		UPDATE workflow_instances
		SET status = ?, current_step = ?, steps = ?, data = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		wf.Status.String(),
		wf.CurrentStep,
		string(steps),
		wf.Data,
		wf.UpdatedAt,
		wf.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update workflow instance", zap.String("id", wf.ID), zap.Error(err))
		return fmt.Errorf("failed to update workflow instance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("workflow instance %s does not exist", wf.ID)
	}
	return nil
}

func (r *WorkflowRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*entity.WorkflowInstance, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query workflow instances", zap.Error(err))
		return nil, fmt.Errorf("failed to query workflow instances: %w", err)
	}
	defer rows.Close()

	var instances []*entity.WorkflowInstance
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow instance: %w", err)
		}
		instances = append(instances, wf)
	}
	return instances, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkflow(row rowScanner) (*entity.WorkflowInstance, error) {
	var wf entity.WorkflowInstance
	var status, steps string

	err := row.Scan(
		&wf.ID,
		&wf.RequestID,
		&wf.ModuleName,
		&wf.Data,
		&wf.RequestorEmail,
		&status,
		&wf.CurrentStep,
		&steps,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	wf.Status = entity.WorkflowStatus(status)
	if err := json.Unmarshal([]byte(steps), &wf.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	return &wf, nil
}
