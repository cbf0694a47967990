package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

const signerColumns = `id, envelope_id, email, name, role, routing_order, signing_token,
			  otp_hash, otp_expires_at, otp_verified_at, signed_at, declined_at,
			  decline_reason, created_at`

// PostgreSQLSignerRepository implements Signer persistence for PostgreSQL.
type PostgreSQLSignerRepository struct {
	db *sql.DB
}

// NewPostgreSQLSignerRepository creates a new PostgreSQL Signer repository.
func NewPostgreSQLSignerRepository(db *sql.DB) *PostgreSQLSignerRepository {
	return &PostgreSQLSignerRepository{db: db}
}

// Create inserts a new Signer.
func (p *PostgreSQLSignerRepository) Create(ctx context.Context, signer *envelopeDomain.Signer) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO envelope_signers (` + signerColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := querier.ExecContext(
		ctx,
		query,
		signer.ID,
		signer.EnvelopeID,
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
func (p *PostgreSQLSignerRepository) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
) ([]*envelopeDomain.Signer, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + signerColumns + ` FROM envelope_signers
			  WHERE envelope_id = $1
			  ORDER BY routing_order ASC, created_at ASC`

	rows, err := querier.QueryContext(ctx, query, envelopeID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list signers")
	}
	defer func() { _ = rows.Close() }()

	return collectSigners(rows)
}

// GetBySigningToken resolves a signing link. Returns ErrSignerNotFound for unknown tokens.
func (p *PostgreSQLSignerRepository) GetBySigningToken(
	ctx context.Context,
	token string,
) (*envelopeDomain.Signer, error) {
	querier := database.GetTx(ctx, p.db)
	row := querier.QueryRowContext(
		ctx,
		`SELECT `+signerColumns+` FROM envelope_signers WHERE signing_token = $1`,
		token,
	)
	return scanSigner(row)
}

// Update persists the mutable columns of a Signer.
func (p *PostgreSQLSignerRepository) Update(ctx context.Context, signer *envelopeDomain.Signer) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE envelope_signers
			  SET signing_token = $1,
				  otp_hash = $2,
				  otp_expires_at = $3,
				  otp_verified_at = $4,
				  signed_at = $5,
				  declined_at = $6,
				  decline_reason = $7
			  WHERE id = $8`

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
		signer.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update signer")
	}
	return checkAffected(result, envelopeDomain.ErrSignerNotFound)
}

func collectSigners(rows *sql.Rows) ([]*envelopeDomain.Signer, error) {
	var signers []*envelopeDomain.Signer
	for rows.Next() {
		s, err := scanSigner(rows)
		if err != nil {
			return nil, err
		}
		signers = append(signers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate signers")
	}
	return signers, nil
}

func scanSigner(row rowScanner) (*envelopeDomain.Signer, error) {
	var s envelopeDomain.Signer
	var token, otpHash, declineReason sql.NullString
	var otpExpiresAt, otpVerifiedAt, signedAt, declinedAt sql.NullTime

	err := row.Scan(
		&s.ID,
		&s.EnvelopeID,
		&s.Email,
		&s.Name,
		&s.Role,
		&s.RoutingOrder,
		&token,
		&otpHash,
		&otpExpiresAt,
		&otpVerifiedAt,
		&signedAt,
		&declinedAt,
		&declineReason,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, envelopeDomain.ErrSignerNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get signer")
	}

	s.SigningToken = nullString(token)
	s.OTPHash = nullString(otpHash)
	s.OTPExpiresAt = nullTime(otpExpiresAt)
	s.OTPVerifiedAt = nullTime(otpVerifiedAt)
	s.SignedAt = nullTime(signedAt)
	s.DeclinedAt = nullTime(declinedAt)
	s.DeclineReason = nullString(declineReason)
	return &s, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
