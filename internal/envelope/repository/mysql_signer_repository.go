package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

// MySQLSignerRepository implements Signer persistence for MySQL.
type MySQLSignerRepository struct {
	db *sql.DB
}

// NewMySQLSignerRepository creates a new MySQL Signer repository.
func NewMySQLSignerRepository(db *sql.DB) *MySQLSignerRepository {
	return &MySQLSignerRepository{db: db}
}

// Create inserts a new Signer.
func (m *MySQLSignerRepository) Create(ctx context.Context, signer *envelopeDomain.Signer) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO envelope_signers (` + signerColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		database.BinaryUUID(signer.ID),
		database.BinaryUUID(signer.EnvelopeID),
		signer.Email,
		signer.Name,
		signer.Role,
		signer.RoutingOrder,
		signer.SigningToken,
		signer.OTPHash,
		signer.OTPExpiresAt,
		signer.OTPVerifiedAt,
		signer.SignedAt,
		signer.DeclinedAt,
		signer.DeclineReason,
		signer.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "signer email already used in envelope")
		}
		return apperrors.Wrap(err, "failed to create signer")
	}
	return nil
}

// ListByEnvelope returns the signers of an envelope ordered by routing order.
func (m *MySQLSignerRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]*envelopeDomain.Signer, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + signerColumns + ` FROM envelope_signers
			  WHERE envelope_id = ?
			  ORDER BY routing_order ASC, created_at ASC`

	rows, err := querier.QueryContext(ctx, query, database.BinaryUUID(envelopeID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list signers")
	}
	defer func() { _ = rows.Close() }()

	return collectSigners(rows)
}

// GetBySigningToken resolves a signing link. Returns ErrSignerNotFound for unknown tokens.
func (m *MySQLSignerRepository) GetBySigningToken(
	ctx context.Context,
	token string,
) (*envelopeDomain.Signer, error) {
	querier := database.GetTx(ctx, m.db)
	row := querier.QueryRowContext(
		ctx,
		`SELECT `+signerColumns+` FROM envelope_signers WHERE signing_token = ?`,
		token,
	)
	return scanSigner(row)
}

// Update persists the mutable columns of a Signer.
func (m *MySQLSignerRepository) Update(ctx context.Context, signer *envelopeDomain.Signer) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE envelope_signers
			  SET signing_token = ?,
				  otp_hash = ?,
				  otp_expires_at = ?,
				  otp_verified_at = ?,
				  signed_at = ?,
				  declined_at = ?,
				  decline_reason = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		signer.SigningToken,
		signer.OTPHash,
		signer.OTPExpiresAt,
		signer.OTPVerifiedAt,
		signer.SignedAt,
		signer.DeclinedAt,
		signer.DeclineReason,
		database.BinaryUUID(signer.ID),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update signer")
	}
	return checkAffected(result, envelopeDomain.ErrSignerNotFound)
}
