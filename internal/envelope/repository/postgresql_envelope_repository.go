// Package repository persists envelopes, signers, fields and signatures in
// PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

const envelopeColumns = `id, owner_id, document_id, status, subject, message, sequential,
			  sent_at, completed_at, voided_at, void_reason, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQLEnvelopeRepository implements Envelope persistence for PostgreSQL.
type PostgreSQLEnvelopeRepository struct {
	db *sql.DB
}

// NewPostgreSQLEnvelopeRepository creates a new PostgreSQL Envelope repository.
func NewPostgreSQLEnvelopeRepository(db *sql.DB) *PostgreSQLEnvelopeRepository {
	return &PostgreSQLEnvelopeRepository{db: db}
}

// Create inserts a new Envelope row. Signers and fields are stored separately.
func (p *PostgreSQLEnvelopeRepository) Create(ctx context.Context, env *envelopeDomain.Envelope) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO envelopes (` + envelopeColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := querier.ExecContext(
		ctx,
		query,
		env.ID,
		env.OwnerID,
		env.DocumentID,
		env.Status,
		env.Subject,
		env.Message,
		env.Sequential,
		env.SentAt,
		env.CompletedAt,
		env.VoidedAt,
		env.VoidReason,
		env.CreatedAt,
		env.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create envelope")
	}
	return nil
}

// Get retrieves an Envelope by ID. Returns ErrEnvelopeNotFound if it doesn't exist.
func (p *PostgreSQLEnvelopeRepository) Get(ctx context.Context, envelopeID uuid.UUID) (*envelopeDomain.Envelope, error) {
	querier := database.GetTx(ctx, p.db)
	row := querier.QueryRowContext(ctx, `SELECT `+envelopeColumns+` FROM envelopes WHERE id = $1`, envelopeID)
	return scanEnvelope(row)
}

// GetForUpdate retrieves an Envelope and locks its row until the transaction ends.
func (p *PostgreSQLEnvelopeRepository) GetForUpdate(
	ctx context.Context,
	envelopeID uuid.UUID,
) (*envelopeDomain.Envelope, error) {
	querier := database.GetTx(ctx, p.db)
	row := querier.QueryRowContext(
		ctx,
		`SELECT `+envelopeColumns+` FROM envelopes WHERE id = $1 FOR UPDATE`,
		envelopeID,
	)
	return scanEnvelope(row)
}

// Update persists the lifecycle columns of an Envelope.
func (p *PostgreSQLEnvelopeRepository) Update(ctx context.Context, env *envelopeDomain.Envelope) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE envelopes
			  SET status = $1,
				  sent_at = $2,
				  completed_at = $3,
				  voided_at = $4,
				  void_reason = $5,
				  updated_at = $6
			  WHERE id = $7`

	result, err := querier.ExecContext(
		ctx,
		query,
		env.Status,
		env.SentAt,
		env.CompletedAt,
		env.VoidedAt,
		env.VoidReason,
		env.UpdatedAt,
		env.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update envelope")
	}
	return checkAffected(result, envelopeDomain.ErrEnvelopeNotFound)
}

func checkAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

func scanEnvelope(row rowScanner) (*envelopeDomain.Envelope, error) {
	var env envelopeDomain.Envelope
	var sentAt, completedAt, voidedAt sql.NullTime
	var voidReason sql.NullString

	err := row.Scan(
		&env.ID,
		&env.OwnerID,
		&env.DocumentID,
		&env.Status,
		&env.Subject,
		&env.Message,
		&env.Sequential,
		&sentAt,
		&completedAt,
		&voidedAt,
		&voidReason,
		&env.CreatedAt,
		&env.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, envelopeDomain.ErrEnvelopeNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get envelope")
	}

	env.SentAt = nullTime(sentAt)
	env.CompletedAt = nullTime(completedAt)
	env.VoidedAt = nullTime(voidedAt)
	env.VoidReason = nullString(voidReason)
	return &env, nil
}
