package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

const signatureColumns = `id, signer_id, envelope_id, consent, consent_text, mark_type, image_path,
			  text_content, placements, created_at, updated_at`

// PostgreSQLSignatureRepository implements Signature persistence for PostgreSQL.
type PostgreSQLSignatureRepository struct {
	db *sql.DB
}

// NewPostgreSQLSignatureRepository creates a new PostgreSQL Signature repository.
func NewPostgreSQLSignatureRepository(db *sql.DB) *PostgreSQLSignatureRepository {
	return &PostgreSQLSignatureRepository{db: db}
}

// Upsert stores the signature of a signer, replacing any earlier one. The row id and
// created_at of an existing signature are kept.
func (p *PostgreSQLSignatureRepository) Upsert(ctx context.Context, sig *envelopeDomain.Signature) error {
	querier := database.GetTx(ctx, p.db)

	placements, err := json.Marshal(sig.Placements)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal placements")
	}

	query := `INSERT INTO signatures (` + signatureColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  ON CONFLICT (signer_id) DO UPDATE
			  SET consent = EXCLUDED.consent,
				  consent_text = EXCLUDED.consent_text,
				  mark_type = EXCLUDED.mark_type,
				  image_path = EXCLUDED.image_path,
				  text_content = EXCLUDED.text_content,
				  placements = EXCLUDED.placements,
				  updated_at = EXCLUDED.updated_at`

	_, err = querier.ExecContext(
		ctx,
		query,
		sig.ID,
		sig.SignerID,
		sig.EnvelopeID,
		sig.Consent,
		sig.ConsentText,
		sig.MarkType,
		sig.ImagePath,
		sig.TextContent,
		placements,
		sig.CreatedAt,
		sig.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert signature")
	}
	return nil
}

// ListByEnvelope returns the signatures captured for an envelope.
func (p *PostgreSQLSignatureRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]*envelopeDomain.Signature, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + signatureColumns + ` FROM signatures
			  WHERE envelope_id = $1
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list signatures")
	}
	defer func() { _ = rows.Close() }()

	return collectSignatures(rows)
}

func collectSignatures(rows *sql.Rows) ([]*envelopeDomain.Signature, error) {
	var signatures []*envelopeDomain.Signature
	for rows.Next() {
		var sig envelopeDomain.Signature
		var imagePath, textContent sql.NullString
		var placements []byte

		err := rows.Scan(
			&sig.ID,
			&sig.SignerID,
			&sig.EnvelopeID,
			&sig.Consent,
			&sig.ConsentText,
			&sig.MarkType,
			&imagePath,
			&textContent,
			&placements,
			&sig.CreatedAt,
			&sig.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan signature")
		}
		if len(placements) > 0 {
			if err := json.Unmarshal(placements, &sig.Placements); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal placements")
			}
		}
		sig.ImagePath = nullString(imagePath)
		sig.TextContent = nullString(textContent)
		signatures = append(signatures, &sig)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate signatures")
	}
	return signatures, nil
}
