// Package usecase records and verifies envelope audit logs.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
	auditService "github.com/allisson/esign/internal/audit/service"
	apperrors "github.com/allisson/esign/internal/errors"
)

// verifyBatchSize bounds how many entries are loaded per page during verification.
const verifyBatchSize = 500

// AuditLogRepository persists audit logs. Implementations honor the transaction in ctx.
type AuditLogRepository interface {
	Create(ctx context.Context, auditLog *auditDomain.AuditLog) error

	// ListByEnvelope returns entries ordered by created_at ascending.
	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID, offset, limit int) ([]*auditDomain.AuditLog, error)

	// ListByTimeRange returns entries with start <= created_at <= end ordered by created_at ascending.
	ListByTimeRange(ctx context.Context, start, end time.Time, offset, limit int) ([]*auditDomain.AuditLog, error)
}

// VerificationReport summarizes a batch signature check.
type VerificationReport struct {
	TotalChecked  int64
	SignedCount   int64
	UnsignedCount int64
	ValidCount    int64
	InvalidCount  int64
	InvalidLogs   []uuid.UUID
}

// AuditLogUseCase records the audit trail of envelopes.
type AuditLogUseCase interface {
	// Record appends an entry. Caller metadata comes from the request info stored in ctx.
	Record(
		ctx context.Context,
		envelopeID uuid.UUID,
		event auditDomain.Event,
		actor string,
		details map[string]any,
	) error

	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID, offset, limit int) ([]*auditDomain.AuditLog, error)

	// VerifyBatch re-checks the signature of every entry created in [start, end].
	VerifyBatch(ctx context.Context, start, end time.Time) (*VerificationReport, error)
}

type auditLogUseCase struct {
	auditLogRepo AuditLogRepository
	signer       auditService.AuditSigner
	logger       *slog.Logger
}

// NewAuditLogUseCase creates the audit log use case. A nil signer stores unsigned entries.
func NewAuditLogUseCase(
	auditLogRepo AuditLogRepository,
	signer auditService.AuditSigner,
	logger *slog.Logger,
) AuditLogUseCase {
	return &auditLogUseCase{
		auditLogRepo: auditLogRepo,
		signer:       signer,
		logger:       logger,
	}
}

func (a *auditLogUseCase) Record(
	ctx context.Context,
	envelopeID uuid.UUID,
	event auditDomain.Event,
	actor string,
	details map[string]any,
) error {
	info := auditDomain.RequestInfoFrom(ctx)

	auditLog := &auditDomain.AuditLog{
		ID:         uuid.Must(uuid.NewV7()),
		EnvelopeID: envelopeID,
		Event:      event,
		Actor:      actor,
		IPAddress:  info.IPAddress,
		UserAgent:  info.UserAgent,
		RequestID:  info.RequestID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}

	if a.signer != nil {
		signature, err := a.signer.Sign(auditLog)
		if err != nil {
			return apperrors.Wrap(err, "failed to sign audit log")
		}
		auditLog.Signature = signature
		auditLog.IsSigned = true
	}

	if err := a.auditLogRepo.Create(ctx, auditLog); err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

func (a *auditLogUseCase) ListByEnvelope(
	ctx context.Context,
	envelopeID uuid.UUID,
	offset, limit int,
) ([]*auditDomain.AuditLog, error) {
	auditLogs, err := a.auditLogRepo.ListByEnvelope(ctx, envelopeID, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return auditLogs, nil
}

func (a *auditLogUseCase) VerifyBatch(ctx context.Context, start, end time.Time) (*VerificationReport, error) {
	if a.signer == nil {
		return nil, apperrors.New("audit signing key is not configured")
	}

	report := &VerificationReport{InvalidLogs: make([]uuid.UUID, 0)}

	for offset := 0; ; offset += verifyBatchSize {
		batch, err := a.auditLogRepo.ListByTimeRange(ctx, start, end, offset, verifyBatchSize)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to list audit logs")
		}

		for _, auditLog := range batch {
			report.TotalChecked++
			if !auditLog.IsSigned {
				report.UnsignedCount++
				continue
			}

			report.SignedCount++
			if err := a.signer.Verify(auditLog); err != nil {
				report.InvalidCount++
				report.InvalidLogs = append(report.InvalidLogs, auditLog.ID)
				if a.logger != nil {
					a.logger.Warn("audit log signature mismatch",
						slog.String("audit_log_id", auditLog.ID.String()),
						slog.String("envelope_id", auditLog.EnvelopeID.String()),
					)
				}
				continue
			}
			report.ValidCount++
		}

		if len(batch) < verifyBatchSize {
			break
		}
	}

	return report, nil
}
