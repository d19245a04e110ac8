package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/Kavesh2000/Onitticketingsystem/internal/application/port"
	"github.com/Kavesh2000/Onitticketingsystem/internal/domain/entity"
	"github.com/Kavesh2000/Onitticketingsystem/internal/infrastructure/persistence/sqlite"
)

// AuditRepository implements port.AuditRepository. The audit_entries table
// is insert-only: no UPDATE or DELETE statement exists in this package, and
// the seq column preserves insertion order for entries sharing a timestamp.
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append records a new audit entry
func (r *AuditRepository) Append(ctx context.Context, entry *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (id, timestamp, action, request_id, module_name, actor, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.Action.String(),
		entry.RequestID,
		entry.ModuleName,
		entry.Actor,
		entry.Details,
	)
	if err != nil {
		r.logger.Error("Failed to append audit entry",
			zap.String("request_id", entry.RequestID),
			zap.String("action", entry.Action.String()),
			zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListByRequestID retrieves the audit trail for a request in chronological order
func (r *AuditRepository) ListByRequestID(ctx context.Context, requestID string) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, timestamp, action, request_id, module_name, actor, details
		FROM audit_entries
		WHERE request_id = ?
		ORDER BY timestamp ASC, seq ASC
	`
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to query audit entries", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		var entry entity.AuditEntry
		var action string
		if err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&action,
			&entry.RequestID,
			&entry.ModuleName,
			&entry.Actor,
			&entry.Details,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Action = entity.AuditAction(action)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
