package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Kavesh2000/Onitticketingsystem/internal/application/port"
	"github.com/Kavesh2000/Onitticketingsystem/internal/domain/entity"
	"github.com/Kavesh2000/Onitticketingsystem/internal/infrastructure/persistence/sqlite"
)

// LeaveRequestRepository implements port.LeaveRequestRepository over SQLite.
type LeaveRequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLeaveRequestRepository creates a new leave request repository
func NewLeaveRequestRepository(db *sql.DB, logger *zap.Logger) port.LeaveRequestRepository {
	return &LeaveRequestRepository{
		db:     db,
		logger: logger,
	}
}

const leaveRequestColumns = `id, type, days, email, applicant_name, department, status, workflow_id, returned_to_applicant, created_at, updated_at`

// Create inserts a new leave request
func (r *LeaveRequestRepository) Create(ctx context.Context, req *entity.LeaveRequest) error {
	query := `
		INSERT INTO leave_requests (` + leaveRequestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		req.ID,
		req.Type,
		req.Days,
		strings.ToLower(req.Email),
		req.ApplicantName,
		req.Department,
		req.Status.String(),
		req.WorkflowID,
		req.ReturnedToApplicant,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create leave request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to create leave request: %w", err)
	}
	return nil
}

// GetByID retrieves a leave request by ID
func (r *LeaveRequestRepository) GetByID(ctx context.Context, id string) (*entity.LeaveRequest, error) {
	query := `SELECT ` + leaveRequestColumns + ` FROM leave_requests WHERE id = ?`

	req, err := scanLeaveRequest(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get leave request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get leave request: %w", err)
	}
	return req, nil
}

// Update replaces the mutable fields of a leave request
func (r *LeaveRequestRepository) Update(ctx context.Context, req *entity.LeaveRequest) error {
	query := `
		UPDATE leave_requests
		SET status = ?, workflow_id = ?, returned_to_applicant = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		req.Status.String(),
		req.WorkflowID,
		req.ReturnedToApplicant,
		req.UpdatedAt,
		req.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update leave request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update leave request: %w", err)
	}
	return nil
}

// ListApprovedBySubject retrieves all approved leave requests for a subject.
// Emails are compared case-insensitively.
func (r *LeaveRequestRepository) ListApprovedBySubject(ctx context.Context, subjectID string) ([]*entity.LeaveRequest, error) {
	query := `
		SELECT ` + leaveRequestColumns + `
		FROM leave_requests
		WHERE LOWER(email) = LOWER(?) AND status = ?
		ORDER BY created_at
	`
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, subjectID, entity.LeaveApproved.String())
	if err != nil {
		r.logger.Error("Failed to query leave requests", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.LeaveRequest
	for rows.Next() {
		req, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// ListSubjects retrieves the distinct subjects that have submitted leave requests
func (r *LeaveRequestRepository) ListSubjects(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT LOWER(email) FROM leave_requests ORDER BY LOWER(email)`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query leave subjects", zap.Error(err))
		return nil, fmt.Errorf("failed to query leave subjects: %w", err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, fmt.Errorf("failed to scan leave subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

func scanLeaveRequest(row rowScanner) (*entity.LeaveRequest, error) {
	var req entity.LeaveRequest
	var status string

	err := row.Scan(
		&req.ID,
		&req.Type,
		&req.Days,
		&req.Email,
		&req.ApplicantName,
		&req.Department,
		&status,
		&req.WorkflowID,
		&req.ReturnedToApplicant,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Status = entity.LeaveStatus(status)
	return &req, nil
}

// LeaveBalanceRepository implements port.LeaveBalanceRepository. Allotment
// and balance buckets are stored as JSON maps keyed by bucket name.
type LeaveBalanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLeaveBalanceRepository creates a new leave balance repository
func NewLeaveBalanceRepository(db *sql.DB, logger *zap.Logger) port.LeaveBalanceRepository {
	return &LeaveBalanceRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the balance record for a subject
func (r *LeaveBalanceRepository) Get(ctx context.Context, subjectID string) (*entity.LeaveBalance, error) {
	query := `SELECT subject_id, allotments, balances, last_updated FROM leave_balances WHERE subject_id = LOWER(?)`

	bal, err := scanLeaveBalance(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, subjectID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get leave balance", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, fmt.Errorf("failed to get leave balance: %w", err)
	}
	return bal, nil
}

// Upsert inserts or replaces the balance record for a subject
func (r *LeaveBalanceRepository) Upsert(ctx context.Context, bal *entity.LeaveBalance) error {
	allotments, err := json.Marshal(bal.Allotments)
	if err != nil {
		return fmt.Errorf("marshal allotments: %w", err)
	}
	balances, err := json.Marshal(bal.Balances)
	if err != nil {
		return fmt.Errorf("marshal balances: %w", err)
	}

	query := `
		INSERT INTO leave_balances (subject_id, allotments, balances, last_updated)
		VALUES (LOWER(?), ?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			allotments = excluded.allotments,
			balances = excluded.balances,
			last_updated = excluded.last_updated
	`
	_, err = sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		bal.SubjectID,
		string(allotments),
		string(balances),
		bal.LastUpdated,
	)
	if err != nil {
		r.logger.Error("Failed to upsert leave balance", zap.String("subject_id", bal.SubjectID), zap.Error(err))
		return fmt.Errorf("failed to upsert leave balance: %w", err)
	}
	return nil
}

// List retrieves every stored balance record
func (r *LeaveBalanceRepository) List(ctx context.Context) ([]*entity.LeaveBalance, error) {
	query := `SELECT subject_id, allotments, balances, last_updated FROM leave_balances ORDER BY subject_id`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query leave balances", zap.Error(err))
		return nil, fmt.Errorf("failed to query leave balances: %w", err)
	}
	defer rows.Close()

	var balances []*entity.LeaveBalance
	for rows.Next() {
		bal, err := scanLeaveBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave balance: %w", err)
		}
		balances = append(balances, bal)
	}
	return balances, rows.Err()
}

func scanLeaveBalance(row rowScanner) (*entity.LeaveBalance, error) {
	var bal entity.LeaveBalance
	var allotments, balances string

	if err := row.Scan(&bal.SubjectID, &allotments, &balances, &bal.LastUpdated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(allotments), &bal.Allotments); err != nil {
		return nil, fmt.Errorf("unmarshal allotments: %w", err)
	}
	if err := json.Unmarshal([]byte(balances), &bal.Balances); err != nil {
		return nil, fmt.Errorf("unmarshal balances: %w", err)
	}
	return &bal, nil
}
