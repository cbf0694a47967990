package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
	auditUseCase "github.com/allisson/esign/internal/audit/usecase"
	authDomain "github.com/allisson/esign/internal/auth/domain"
	ledgerDomain "github.com/allisson/esign/internal/ledger/domain"
)

type MockOwnerUseCase struct {
	mock.Mock
}

func (m *MockOwnerUseCase) Create(
	ctx context.Context,
	input *authDomain.CreateOwnerInput,
) (*authDomain.CreateOwnerOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.CreateOwnerOutput), args.Error(1)
}

type MockTokenUseCase struct {
	mock.Mock
}

func (m *MockTokenUseCase) Issue(
	ctx context.Context,
	input *authDomain.IssueTokenInput,
) (*authDomain.IssueTokenOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.IssueTokenOutput), args.Error(1)
}

func (m *MockTokenUseCase) Authenticate(ctx context.Context, tokenHash string) (*authDomain.Owner, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Owner), args.Error(1)
}

func (m *MockTokenUseCase) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type MockAuditLogUseCase struct {
	mock.Mock
}

func (m *MockAuditLogUseCase) Record(
	ctx context.Context,
	envelopeID uuid.UUID,
	event auditDomain.Event,
	actor string,
	details map[string]any,
) error {
	args := m.Called(ctx, envelopeID, event, actor, details)
	return args.Error(0)
}

func (m *MockAuditLogUseCase) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
	offset, limit int,
) ([]*auditDomain.AuditLog, error) {
	args := m.Called(ctx, envelopeID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.AuditLog), args.Error(1)
}

func (m *MockAuditLogUseCase) VerifyBatch(
	ctx context.Context,
	start, end time.Time,
) (*auditUseCase.VerificationReport, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditUseCase.VerificationReport), args.Error(1)
}

type MockDocumentVerifier struct {
	mock.Mock
}

func (m *MockDocumentVerifier) VerifyCurrent(
	ctx context.Context,
	documentID uuid.UUID,
) (*ledgerDomain.Verification, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerDomain.Verification), args.Error(1)
}

func (m *MockDocumentVerifier) VerifyHistory(
	ctx context.Context,
	documentID uuid.UUID,
) ([]ledgerDomain.StepVerification, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerDomain.StepVerification), args.Error(1)
}
