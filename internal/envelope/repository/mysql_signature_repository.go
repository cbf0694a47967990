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

// MySQLSignatureRepository implements Signature persistence for MySQL.
type MySQLSignatureRepository struct {
	db *sql.DB
}

// NewMySQLSignatureRepository creates a new MySQL Signature repository.
func NewMySQLSignatureRepository(db *sql.DB) *MySQLSignatureRepository {
	return &MySQLSignatureRepository{db: db}
}

// Upsert stores the signature of a signer, replacing any earlier one.
func (m *MySQLSignatureRepository) Upsert(ctx context.Context, sig *envelopeDomain.Signature) error {
	querier := database.GetTx(ctx, m.db)

	placements, err := json.Marshal(sig.Placements)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal placements")
	}

	query := `INSERT INTO signatures (` + signatureColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				  consent = VALUES(consent),
				  consent_text = VALUES(consent_text),
				  mark_type = VALUES(mark_type),
				  image_path = VALUES(image_path),
				  text_content = VALUES(text_content),
				  placements = VALUES(placements),
				  updated_at = VALUES(updated_at)`

	_, err = querier.ExecContext(
		ctx,
		query,
		database.BinaryUUID(sig.ID),
		database.BinaryUUID(sig.SignerID),
		database.BinaryUUID(sig.EnvelopeID),
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
func (m *MySQLSignatureRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]*envelopeDomain.Signature, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + signatureColumns + ` FROM signatures
			  WHERE envelope_id = ?
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, database.BinaryUUID(envelopeID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list signatures")
	}
	defer func() { _ = rows.Close() }()

	return collectSignatures(rows)
}
