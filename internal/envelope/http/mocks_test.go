package http

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	envelopeUseCase "github.com/allisson/esign/internal/envelope/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type MockEnvelopeUseCase struct {
	mock.Mock
}

func (m *MockEnvelopeUseCase) envelope(args mock.Arguments) (*envelopeDomain.Envelope, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envelopeDomain.Envelope), args.Error(1)
}

func (m *MockEnvelopeUseCase) field(args mock.Arguments) (*envelopeDomain.Field, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envelopeDomain.Field), args.Error(1)
}

func (m *MockEnvelopeUseCase) download(args mock.Arguments) (*envelopeUseCase.Download, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envelopeUseCase.Download), args.Error(1)
}

func (m *MockEnvelopeUseCase) Create(
	ctx context.Context,
	ownerID uuid.UUID,
	in envelopeUseCase.CreateEnvelopeInput,
) (*envelopeDomain.Envelope, error) {
	return m.envelope(m.Called(ctx, ownerID, in))
}

func (m *MockEnvelopeUseCase) Get(ctx context.Context, ownerID, envelopeID uuid.UUID) (*envelopeDomain.Envelope, error) {
	return m.envelope(m.Called(ctx, ownerID, envelopeID))
}

func (m *MockEnvelopeUseCase) AddField(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	in envelopeUseCase.FieldInput,
) (*envelopeDomain.Field, error) {
	return m.field(m.Called(ctx, ownerID, envelopeID, in))
}

func (m *MockEnvelopeUseCase) UpdateField(
	ctx context.Context,
	ownerID, envelopeID, fieldID uuid.UUID,
	in envelopeUseCase.FieldInput,
) (*envelopeDomain.Field, error) {
	return m.field(m.Called(ctx, ownerID, envelopeID, fieldID, in))
}

func (m *MockEnvelopeUseCase) DeleteField(ctx context.Context, ownerID, envelopeID, fieldID uuid.UUID) error {
	return m.Called(ctx, ownerID, envelopeID, fieldID).Error(0)
}

func (m *MockEnvelopeUseCase) Send(ctx context.Context, ownerID, envelopeID uuid.UUID) (*envelopeDomain.Envelope, error) {
	return m.envelope(m.Called(ctx, ownerID, envelopeID))
}

func (m *MockEnvelopeUseCase) Void(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	reason string,
) (*envelopeDomain.Envelope, error) {
	return m.envelope(m.Called(ctx, ownerID, envelopeID, reason))
}

func (m *MockEnvelopeUseCase) Artifact(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
) (*envelopeUseCase.Download, error) {
	return m.download(m.Called(ctx, ownerID, envelopeID))
}

func (m *MockEnvelopeUseCase) Certificate(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
) (*envelopeUseCase.Download, error) {
	return m.download(m.Called(ctx, ownerID, envelopeID))
}

func (m *MockEnvelopeUseCase) AuditLogs(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	offset, limit int,
) ([]*auditDomain.AuditLog, error) {
	args := m.Called(ctx, ownerID, envelopeID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.AuditLog), args.Error(1)
}

type MockSigningUseCase struct {
	mock.Mock
}

func (m *MockSigningUseCase) View(ctx context.Context, signingToken string) (*envelopeUseCase.SigningView, error) {
	args := m.Called(ctx, signingToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envelopeUseCase.SigningView), args.Error(1)
}

func (m *MockSigningUseCase) RequestOTP(ctx context.Context, signingToken string) error {
	return m.Called(ctx, signingToken).Error(0)
}

func (m *MockSigningUseCase) VerifyOTP(
	ctx context.Context,
	signingToken, code string,
) (*envelopeUseCase.Session, error) {
	args := m.Called(ctx, signingToken, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envelopeUseCase.Session), args.Error(1)
}

func (m *MockSigningUseCase) Sign(
	ctx context.Context,
	signingToken string,
	in envelopeUseCase.SignInput,
) (*envelopeUseCase.SignResult, error) {
	args := m.Called(ctx, signingToken, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envelopeUseCase.SignResult), args.Error(1)
}

func (m *MockSigningUseCase) Decline(ctx context.Context, signingToken, sessionToken, reason string) error {
	return m.Called(ctx, signingToken, sessionToken, reason).Error(0)
}

func (m *MockSigningUseCase) Artifact(ctx context.Context, signingToken string) (*envelopeUseCase.Download, error) {
	args := m.Called(ctx, signingToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*envelopeUseCase.Download), args.Error(1)
}

func (m *MockSigningUseCase) CaptureFingerprint(ctx context.Context, signingToken, fingerprint string) error {
	return m.Called(ctx, signingToken, fingerprint).Error(0)
}
