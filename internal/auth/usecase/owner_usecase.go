package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/esign/internal/auth/domain"
	authService "github.com/allisson/esign/internal/auth/service"
	apperrors "github.com/allisson/esign/internal/errors"
)

type ownerUseCase struct {
	ownerRepo     OwnerRepository
	secretService authService.SecretService
}

// NewOwnerUseCase creates an OwnerUseCase.
func NewOwnerUseCase(ownerRepo OwnerRepository, secretService authService.SecretService) OwnerUseCase {
	return &ownerUseCase{ownerRepo: ownerRepo, secretService: secretService}
}

func (o *ownerUseCase) Create(
	ctx context.Context,
	input *authDomain.CreateOwnerInput,
) (*authDomain.CreateOwnerOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "owner name is required")
	}

	plainSecret, hashedSecret, err := o.secretService.GenerateSecret()
	if err != nil {
		return nil, err
	}

	owner := &authDomain.Owner{
		ID:        uuid.Must(uuid.NewV7()),
		Secret:    hashedSecret,
		Name:      name,
		IsActive:  input.IsActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.ownerRepo.Create(ctx, owner); err != nil {
		return nil, err
	}

	return &authDomain.CreateOwnerOutput{ID: owner.ID, PlainSecret: plainSecret}, nil
}
