package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/esign/internal/auth/domain"
	"github.com/allisson/esign/internal/database"
	apperrors "github.com/allisson/esign/internal/errors"
)

// MySQLOwnerRepository implements Owner persistence for MySQL.
type MySQLOwnerRepository struct {
	db *sql.DB
}

// NewMySQLOwnerRepository creates a new MySQL Owner repository.
func NewMySQLOwnerRepository(db *sql.DB) *MySQLOwnerRepository {
	return &MySQLOwnerRepository{db: db}
}

// Create inserts a new Owner.
func (m *MySQLOwnerRepository) Create(ctx context.Context, owner *authDomain.Owner) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO owners (` + ownerColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		database.BinaryUUID(owner.ID),
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
func (m *MySQLOwnerRepository) Get(ctx context.Context, ownerID uuid.UUID) (*authDomain.Owner, error) {
	querier := database.GetTx(ctx, m.db)
	row := querier.QueryRowContext(
		ctx,
		`SELECT `+ownerColumns+` FROM owners WHERE id = ?`,
		database.BinaryUUID(ownerID),
	)
	return scanOwner(row)
}

// UpdateLockState sets the failed attempt counter and lock expiry of an owner.
func (m *MySQLOwnerRepository) UpdateLockState(
	ctx context.Context,
	ownerID uuid.UUID,
	failedAttempts int,
	lockedUntil *time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE owners SET failed_attempts = ?, locked_until = ? WHERE id = ?`
	_, err := querier.ExecContext(ctx, query, failedAttempts, lockedUntil, database.BinaryUUID(ownerID))
	if err != nil {
		return apperrors.Wrap(err, "failed to update owner lock state")
	}
	return nil
}
