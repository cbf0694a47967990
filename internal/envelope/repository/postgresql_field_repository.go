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

const fieldColumns = `id, envelope_id, document_id, signer_id, field_type, page, x, y, width,
			  height, required, created_at, updated_at`

// PostgreSQLFieldRepository implements Field persistence for PostgreSQL.
type PostgreSQLFieldRepository struct {
	db *sql.DB
}

// NewPostgreSQLFieldRepository creates a new PostgreSQL Field repository.
func NewPostgreSQLFieldRepository(db *sql.DB) *PostgreSQLFieldRepository {
	return &PostgreSQLFieldRepository{db: db}
}

// Create inserts a new Field.
func (p *PostgreSQLFieldRepository) Create(ctx context.Context, field *envelopeDomain.Field) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO document_fields (` + fieldColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := querier.ExecContext(
		ctx,
		query,
		field.ID,
		field.EnvelopeID,
		field.DocumentID,
		field.SignerID,
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
func (p *PostgreSQLFieldRepository) Update(ctx context.Context, field *envelopeDomain.Field) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE document_fields
			  SET signer_id = $1,
				  field_type = $2,
				  page = $3,
				  x = $4,
				  y = $5,
				  width = $6,
				  height = $7,
				  required = $8,
				  updated_at = $9
			  WHERE id = $10`

	result, err := querier.ExecContext(
		ctx,
		query,
		field.SignerID,
		field.Type,
		field.Page,
		field.X,
		field.Y,
		field.Width,
		field.Height,
		field.Required,
		field.UpdatedAt,
		field.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update field")
	}
	return checkAffected(result, envelopeDomain.ErrFieldNotFound)
}

// Delete removes a Field.
func (p *PostgreSQLFieldRepository) Delete(ctx context.Context, fieldID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM document_fields WHERE id = $1`, fieldID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete field")
	}
	return checkAffected(result, envelopeDomain.ErrFieldNotFound)
}

// ListByEnvelope returns the fields of an envelope in creation order.
func (p *PostgreSQLFieldRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]*envelopeDomain.Field, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + fieldColumns + ` FROM document_fields
			  WHERE envelope_id = $1
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list fields")
	}
	defer func() { _ = rows.Close() }()

	return collectFields(rows)
}

func collectFields(rows *sql.Rows) ([]*envelopeDomain.Field, error) {
	var fields []*envelopeDomain.Field
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate fields")
	}
	return fields, nil
}

func scanField(row rowScanner) (*envelopeDomain.Field, error) {
	var f envelopeDomain.Field
	err := row.Scan(
		&f.ID,
		&f.EnvelopeID,
		&f.DocumentID,
		&f.SignerID,
		&f.Type,
		&f.Page,
		&f.X,
		&f.Y,
		&f.Width,
		&f.Height,
		&f.Required,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, envelopeDomain.ErrFieldNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get field")
	}
	return &f, nil
}
