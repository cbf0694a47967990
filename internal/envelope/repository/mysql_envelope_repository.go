package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

// MySQLEnvelopeRepository implements Envelope persistence for MySQL. UUIDs are BINARY(16).
type MySQLEnvelopeRepository struct {
	db *sql.DB
}

// NewMySQLEnvelopeRepository creates a new MySQL Envelope repository.
func NewMySQLEnvelopeRepository(db *sql.DB) *MySQLEnvelopeRepository {
	return &MySQLEnvelopeRepository{db: db}
}

// Create inserts a new Envelope row.
func (m *MySQLEnvelopeRepository) Create(ctx context.Context, env *envelopeDomain.Envelope) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO envelopes (` + envelopeColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		database.BinaryUUID(env.ID),
		database.BinaryUUID(env.OwnerID),
		database.BinaryUUID(env.DocumentID),
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
func (m *MySQLEnvelopeRepository) Get(ctx context.Context, envelopeID uuid.UUID) (*envelopeDomain.Envelope, error) {
	querier := database.GetTx(ctx, m.db)
	row := querier.QueryRowContext(
		ctx,
		`SELECT `+envelopeColumns+` FROM envelopes WHERE id = ?`,
		database.BinaryUUID(envelopeID),
	)
	return scanEnvelope(row)
}

// GetForUpdate retrieves an Envelope and locks its row until the transaction ends.
func (m *MySQLEnvelopeRepository) GetForUpdate(
	ctx context.Context,
	envelopeID uuid.UUID,
) (*envelopeDomain.Envelope, error) {
	querier := database.GetTx(ctx, m.db)
	row := querier.QueryRowContext(
		ctx,
		`SELECT `+envelopeColumns+` FROM envelopes WHERE id = ? FOR UPDATE`,
		database.BinaryUUID(envelopeID),
	)
	return scanEnvelope(row)
}

// Update persists the lifecycle columns of an Envelope.
func (m *MySQLEnvelopeRepository) Update(ctx context.Context, env *envelopeDomain.Envelope) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE envelopes
			  SET status = ?,
				  sent_at = ?,
				  completed_at = ?,
				  voided_at = ?,
				  void_reason = ?,
				  updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		env.Status,
		env.SentAt,
		env.CompletedAt,
		env.VoidedAt,
		env.VoidReason,
		env.UpdatedAt,
		database.BinaryUUID(env.ID),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update envelope")
	}
	return checkAffected(result, envelopeDomain.ErrEnvelopeNotFound)
}
