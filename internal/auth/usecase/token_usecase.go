package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/esign/internal/auth/domain"
	authService "github.com/allisson/esign/internal/auth/service"
	"github.com/allisson/esign/internal/config"
)

type tokenUseCase struct {
	config        *config.Config
	ownerRepo     OwnerRepository
	tokenRepo     TokenRepository
	secretService authService.SecretService
	tokenService  authService.TokenService
	now           func() time.Time
}

// NewTokenUseCase creates a TokenUseCase. Token lifetime and lockout policy come from cfg.
func NewTokenUseCase(
	cfg *config.Config,
	ownerRepo OwnerRepository,
	tokenRepo TokenRepository,
	secretService authService.SecretService,
	tokenService authService.TokenService,
) TokenUseCase {
	return &tokenUseCase{
		config:        cfg,
		ownerRepo:     ownerRepo,
		tokenRepo:     tokenRepo,
		secretService: secretService,
		tokenService:  tokenService,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (t *tokenUseCase) Issue(
	ctx context.Context,
	input *authDomain.IssueTokenInput,
) (*authDomain.IssueTokenOutput, error) {
	owner, err := t.ownerRepo.Get(ctx, input.OwnerID)
	if err != nil {
		if errors.Is(err, authDomain.ErrOwnerNotFound) {
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	now := t.now()
	if owner.IsLocked(now) {
		return nil, authDomain.ErrOwnerLocked
	}
	if !owner.IsActive {
		return nil, authDomain.ErrOwnerInactive
	}

	if !t.secretService.CompareSecret(input.OwnerSecret, owner.Secret) {
		if err := t.recordFailure(ctx, owner, now); err != nil {
			return nil, err
		}
		return nil, authDomain.ErrInvalidCredentials
	}

	if owner.FailedAttempts > 0 || owner.LockedUntil != nil {
		if err := t.ownerRepo.UpdateLockState(ctx, owner.ID, 0, nil); err != nil {
			return nil, err
		}
	}

	plainToken, tokenHash, err := t.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	token := &authDomain.Token{
		ID:        uuid.Must(uuid.NewV7()),
		TokenHash: tokenHash,
		OwnerID:   owner.ID,
		ExpiresAt: now.Add(t.config.AuthTokenExpiration),
		CreatedAt: now,
	}
	if err := t.tokenRepo.Create(ctx, token); err != nil {
		return nil, err
	}

	return &authDomain.IssueTokenOutput{PlainToken: plainToken, ExpiresAt: token.ExpiresAt}, nil
}

// recordFailure bumps the failure counter and locks the owner once the limit is reached.
func (t *tokenUseCase) recordFailure(ctx context.Context, owner *authDomain.Owner, now time.Time) error {
	attempts := owner.FailedAttempts + 1
	var lockedUntil *time.Time
	if t.config.LockoutMaxAttempts > 0 && attempts >= t.config.LockoutMaxAttempts {
		until := now.Add(t.config.LockoutDuration)
		lockedUntil = &until
		attempts = 0
	}
	return t.ownerRepo.UpdateLockState(ctx, owner.ID, attempts, lockedUntil)
}

func (t *tokenUseCase) Authenticate(ctx context.Context, tokenHash string) (*authDomain.Owner, error) {
	token, err := t.tokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, authDomain.ErrTokenNotFound) {
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !token.IsUsable(t.now()) {
		return nil, authDomain.ErrInvalidCredentials
	}

	owner, err := t.ownerRepo.Get(ctx, token.OwnerID)
	if err != nil {
		if errors.Is(err, authDomain.ErrOwnerNotFound) {
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !owner.IsActive {
		return nil, authDomain.ErrOwnerInactive
	}
	return owner, nil
}

func (t *tokenUseCase) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	return t.tokenRepo.DeleteExpired(ctx, t.now().Add(-olderThan))
}
