// Package repository implements owner and token persistence.
//
// PostgreSQL uses native UUID columns, MySQL uses BINARY(16). Both honour the
// transaction carried in the context via database.GetTx().
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/esign/internal/auth/domain"
	"github.com/allisson/esign/internal/database"
	apperrors "github.com/allisson/esign/internal/errors"
)

const ownerColumns = `id, secret, name, is_active, failed_attempts, locked_until, created_at`

// PostgreSQLOwnerRepository implements Owner persistence for PostgreSQL.
type PostgreSQLOwnerRepository struct {
	db *sql.DB
}

// NewPostgreSQLOwnerRepository creates a new PostgreSQL Owner repository.
func NewPostgreSQLOwnerRepository(db *sql.DB) *PostgreSQLOwnerRepository {
	return &PostgreSQLOwnerRepository{db: db}
}

// Create inserts a new Owner.
func (p *PostgreSQLOwnerRepository) Create(ctx context.Context, owner *authDomain.Owner) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO owners (` + ownerColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		owner.ID,
		owner.Secret,
		owner.Name,
		owner.IsActive,
		owner.FailedAttempts,
		owner.LockedUntil,
		owner.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create owner")
	}
	return nil
}

// Get retrieves an Owner by ID. Returns ErrOwnerNotFound if it doesn't exist.
func (p *PostgreSQLOwnerRepository) Get(ctx context.Context, ownerID uuid.UUID) (*authDomain.Owner, error) {
	querier := database.GetTx(ctx, p.db)
	row := querier.QueryRowContext(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id = $1`, ownerID)
	return scanOwner(row)
}

// UpdateLockState sets the failed attempt counter and lock expiry of an owner.
func (p *PostgreSQLOwnerRepository) UpdateLockState(
	ctx context.Context,
	ownerID uuid.UUID,
	failedAttempts int,
	lockedUntil *time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE owners SET failed_attempts = $1, locked_until = $2 WHERE id = $3`
	if _, err := querier.ExecContext(ctx, query, failedAttempts, lockedUntil, ownerID); err != nil {
		return apperrors.Wrap(err, "failed to update owner lock state")
	}
	return nil
}

func scanOwner(row *sql.Row) (*authDomain.Owner, error) {
	var owner authDomain.Owner
	var lockedUntil sql.NullTime

	err := row.Scan(
		&owner.ID,
		&owner.Secret,
		&owner.Name,
		&owner.IsActive,
		&owner.FailedAttempts,
		&lockedUntil,
		&owner.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrOwnerNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get owner")
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		owner.LockedUntil = &t
	}
	return &owner, nil
}
