package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

// MySQLFieldRepository implements Field persistence for MySQL.
type MySQLFieldRepository struct {
	db *sql.DB
}

// NewMySQLFieldRepository creates a new MySQL Field repository.
func NewMySQLFieldRepository(db *sql.DB) *MySQLFieldRepository {
	return &MySQLFieldRepository{db: db}
}

// Create inserts a new Field.
func (m *MySQLFieldRepository) Create(ctx context.Context, field *envelopeDomain.Field) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO document_fields (` + fieldColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		database.BinaryUUID(field.ID),
		database.BinaryUUID(field.EnvelopeID),
		database.BinaryUUID(field.DocumentID),
		database.BinaryUUID(field.SignerID),
		field.Type,
		field.Page,
		field.X,
		field.Y,
		field.Width,
		field.Height,
		field.Required,
		field.CreatedAt,
		field.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create field")
	}
	return nil
}

// Update replaces the placement, type and assignment of a Field.
func (m *MySQLFieldRepository) Update(ctx context.Context, field *envelopeDomain.Field) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE document_fields
			  SET signer_id = ?,
				  field_type = ?,
				  page = ?,
				  x = ?,
				  y = ?,
				  width = ?,
				  height = ?,
				  required = ?,
				  updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		database.BinaryUUID(field.SignerID),
		field.Type,
		field.Page,
		field.X,
		field.Y,
		field.Width,
		field.Height,
		field.Required,
		field.UpdatedAt,
		database.BinaryUUID(field.ID),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update field")
	}
	return checkAffected(result, envelopeDomain.ErrFieldNotFound)
}

// Delete removes a Field.
func (m *MySQLFieldRepository) Delete(ctx context.Context, fieldID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM document_fields WHERE id = ?`, database.BinaryUUID(fieldID))
	if err != nil {
		return apperrors.Wrap(err, "failed to delete field")
	}
	return checkAffected(result, envelopeDomain.ErrFieldNotFound)
}

// ListByEnvelope returns the fields of an envelope in creation order.
func (m *MySQLFieldRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]*envelopeDomain.Field, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + fieldColumns + ` FROM document_fields
			  WHERE envelope_id = ?
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, database.BinaryUUID(envelopeID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list fields")
	}
	defer func() { _ = rows.Close() }()

	return collectFields(rows)
}
