// Package repository persists audit logs in PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
	"github.com/allisson/esign/internal/database"
	apperrors "github.com/allisson/esign/internal/errors"
)

const auditLogColumns = `id, envelope_id, event, actor, ip_address, user_agent, request_id, details,
			  signature, is_signed, created_at`

// PostgreSQLAuditLogRepository implements AuditLog persistence for PostgreSQL.
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQL AuditLog repository.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}

// Create inserts a new AuditLog. Nil details are stored as NULL.
func (p *PostgreSQLAuditLogRepository) Create(ctx context.Context, auditLog *auditDomain.AuditLog) error {
	querier := database.GetTx(ctx, p.db)

	details, err := marshalDetails(auditLog.Details)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_logs (` + auditLogColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = querier.ExecContext(
		ctx,
		query,
		auditLog.ID,
		auditLog.EnvelopeID,
		string(auditLog.Event),
		auditLog.Actor,
		auditLog.IPAddress,
		auditLog.UserAgent,
		auditLog.RequestID,
		details,
		auditLog.Signature,
		auditLog.IsSigned,
		auditLog.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

// ListByEnvelope returns the envelope's entries ordered by created_at ascending.
func (p *PostgreSQLAuditLogRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
	offset, limit int,
) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + auditLogColumns + `
			  FROM audit_logs
			  WHERE envelope_id = $1
			  ORDER BY created_at ASC, id ASC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, envelopeID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return scanAuditLogs(rows)
}

// ListByTimeRange returns entries with start <= created_at <= end.
func (p *PostgreSQLAuditLogRepository) ListByTimeRange(
	ctx context.Context,
	start, end time.Time,
	offset, limit int,
) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + auditLogColumns + `
			  FROM audit_logs
			  WHERE created_at >= $1 AND created_at <= $2
			  ORDER BY created_at ASC, id ASC
			  LIMIT $3 OFFSET $4`

	rows, err := querier.QueryContext(ctx, query, start, end, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return scanAuditLogs(rows)
}

func marshalDetails(details map[string]any) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit log details")
	}
	return data, nil
}

func scanAuditLogs(rows *sql.Rows) ([]*auditDomain.AuditLog, error) {
	defer func() {
		_ = rows.Close()
	}()

	auditLogs := make([]*auditDomain.AuditLog, 0)
	for rows.Next() {
		var auditLog auditDomain.AuditLog
		var event string
		var details []byte

		if err := rows.Scan(
			&auditLog.ID,
			&auditLog.EnvelopeID,
			&event,
			&auditLog.Actor,
			&auditLog.IPAddress,
			&auditLog.UserAgent,
			&auditLog.RequestID,
			&details,
			&auditLog.Signature,
			&auditLog.IsSigned,
			&auditLog.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}

		auditLog.Event = auditDomain.Event(event)
		if details != nil {
			if err := json.Unmarshal(details, &auditLog.Details); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal audit log details")
			}
		}

		auditLogs = append(auditLogs, &auditLog)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}
	return auditLogs, nil
}
