// Package usecase implements owner creation, token issuance and bearer authentication.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/esign/internal/auth/domain"
)

// OwnerRepository defines owner persistence. Implementations honour the transaction in ctx.
type OwnerRepository interface {
	Create(ctx context.Context, owner *authDomain.Owner) error

	// Get returns ErrOwnerNotFound when the owner doesn't exist.
	Get(ctx context.Context, ownerID uuid.UUID) (*authDomain.Owner, error)

	UpdateLockState(ctx context.Context, ownerID uuid.UUID, failedAttempts int, lockedUntil *time.Time) error
}

// TokenRepository defines bearer token persistence.
type TokenRepository interface {
	Create(ctx context.Context, token *authDomain.Token) error

	// GetByTokenHash returns ErrTokenNotFound when no token matches.
	GetByTokenHash(ctx context.Context, tokenHash string) (*authDomain.Token, error)

	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// OwnerUseCase manages owners.
type OwnerUseCase interface {
	// Create generates a secret for a new owner. The plain secret is returned only here.
	Create(ctx context.Context, input *authDomain.CreateOwnerInput) (*authDomain.CreateOwnerOutput, error)
}

// TokenUseCase issues and validates bearer tokens.
type TokenUseCase interface {
	// Issue exchanges owner credentials for a bearer token. Unknown owners and wrong
	// secrets are indistinguishable (ErrInvalidCredentials). Consecutive failures lock the
	// owner for the configured duration.
	Issue(ctx context.Context, input *authDomain.IssueTokenInput) (*authDomain.IssueTokenOutput, error)

	// Authenticate resolves the owner behind a token hash.
	Authenticate(ctx context.Context, tokenHash string) (*authDomain.Owner, error)

	// PurgeExpired deletes tokens that expired before now minus olderThan.
	PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}
