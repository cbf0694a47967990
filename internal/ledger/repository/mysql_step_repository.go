package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	apperrors "github.com/allisson/esign/internal/errors"
	ledgerDomain "github.com/allisson/esign/internal/ledger/domain"
)

// MySQLStepRepository implements step persistence for MySQL. UUIDs are stored as BINARY(16).
type MySQLStepRepository struct {
	db *sql.DB
}

// NewMySQLStepRepository creates a new MySQL step repository.
func NewMySQLStepRepository(db *sql.DB) *MySQLStepRepository {
	return &MySQLStepRepository{db: db}
}

// CountByDocument returns the number of recorded steps for a document.
func (m *MySQLStepRepository) CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	querier := database.GetTx(ctx, m.db)

	var count int
	err := querier.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM signature_history WHERE document_id = ?`,
		database.BinaryUUID(documentID),
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count signature history")
	}
	return count, nil
}

// Create inserts a step. A duplicate (document_id, step) pair returns ErrStepConflict.
func (m *MySQLStepRepository) Create(ctx context.Context, step *ledgerDomain.Step) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO signature_history (id, document_id, envelope_id, signer_id, signer_email,
			  signer_name, step, artifact_path, artifact_hash, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		database.BinaryUUID(step.ID),
		database.BinaryUUID(step.DocumentID),
		database.BinaryUUID(step.EnvelopeID),
		database.BinaryUUID(step.SignerID),
		step.SignerEmail,
		step.SignerName,
		step.Step,
		step.ArtifactPath,
		step.ArtifactHash,
		step.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ledgerDomain.ErrStepConflict
		}
		return apperrors.Wrap(err, "failed to create signature history step")
	}
	return nil
}

// ListByDocument returns all steps of a document ordered by step number.
func (m *MySQLStepRepository) ListByDocument(
	ctx context.Context,
	documentID uuid.UUID,
) ([]*ledgerDomain.Step, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, document_id, envelope_id, signer_id, signer_email, signer_name, step,
			  artifact_path, artifact_hash, created_at
			  FROM signature_history WHERE document_id = ? ORDER BY step ASC`

	rows, err := querier.QueryContext(ctx, query, database.BinaryUUID(documentID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list signature history")
	}
	defer func() {
		_ = rows.Close()
	}()

	steps := make([]*ledgerDomain.Step, 0)
	for rows.Next() {
		var step ledgerDomain.Step
		if err := rows.Scan(
			&step.ID,
			&step.DocumentID,
			&step.EnvelopeID,
			&step.SignerID,
			&step.SignerEmail,
			&step.SignerName,
			&step.Step,
			&step.ArtifactPath,
			&step.ArtifactHash,
			&step.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan signature history step")
		}
		steps = append(steps, &step)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate signature history")
	}
	return steps, nil
}
