package usecase

import (
	"context"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	"github.com/allisson/esign/internal/metrics"
)

// envelopeUseCaseWithMetrics decorates EnvelopeUseCase with metrics instrumentation.
type envelopeUseCaseWithMetrics struct {
	next    EnvelopeUseCase
	metrics metrics.BusinessMetrics
}

// NewEnvelopeUseCaseWithMetrics wraps an EnvelopeUseCase with metrics recording.
func NewEnvelopeUseCaseWithMetrics(useCase EnvelopeUseCase, m metrics.BusinessMetrics) EnvelopeUseCase {
	return &envelopeUseCaseWithMetrics{next: useCase, metrics: m}
}

func (e *envelopeUseCaseWithMetrics) Create(
	ctx context.Context,
	ownerID uuid.UUID,
	in CreateEnvelopeInput,
) (env *envelopeDomain.Envelope, err error) {
	err = metrics.Track(ctx, e.metrics, "envelope", "create", func() error {
		env, err = e.next.Create(ctx, ownerID, in)
		return err
	})
	return env, err
}

func (e *envelopeUseCaseWithMetrics) Get(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
) (env *envelopeDomain.Envelope, err error) {
	err = metrics.Track(ctx, e.metrics, "envelope", "get", func() error {
		env, err = e.next.Get(ctx, ownerID, envelopeID)
		return err
	})
	return env, err
}

func (e *envelopeUseCaseWithMetrics) AddField(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	in FieldInput,
) (field *envelopeDomain.Field, err error) {
	err = metrics.Track(ctx, e.metrics, "envelope", "field_add", func() error {
		field, err = e.next.AddField(ctx, ownerID, envelopeID, in)
		return err
	})
	return field, err
}

func (e *envelopeUseCaseWithMetrics) UpdateField(
	ctx context.Context,
	ownerID, envelopeID, fieldID uuid.UUID,
	in FieldInput,
) (field *envelopeDomain.Field, err error) {
	err = metrics.Track(ctx, e.metrics, "envelope", "field_update", func() error {
		field, err = e.next.UpdateField(ctx, ownerID, envelopeID, fieldID, in)
		return err
	})
	return field, err
}

func (e *envelopeUseCaseWithMetrics) DeleteField(ctx context.Context, ownerID, envelopeID, fieldID uuid.UUID) error {
	return metrics.Track(ctx, e.metrics, "envelope", "field_delete", func() error {
		return e.next.DeleteField(ctx, ownerID, envelopeID, fieldID)
	})
}

func (e *envelopeUseCaseWithMetrics) Send(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
) (env *envelopeDomain.Envelope, err error) {
	err = metrics.Track(ctx, e.metrics, "envelope", "send", func() error {
		env, err = e.next.Send(ctx, ownerID, envelopeID)
		return err
	})
	return env, err
}

func (e *envelopeUseCaseWithMetrics) Void(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	reason string,
) (env *envelopeDomain.Envelope, err error) {
	err = metrics.Track(ctx, e.metrics, "envelope", "void", func() error {
		env, err = e.next.Void(ctx, ownerID, envelopeID, reason)
		return err
	})
	return env, err
}

func (e *envelopeUseCaseWithMetrics) Artifact(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
) (d *Download, err error) {
	err = metrics.Track(ctx, e.metrics, "envelope", "artifact_download", func() error {
		d, err = e.next.Artifact(ctx, ownerID, envelopeID)
		return err
	})
	return d, err
}

func (e *envelopeUseCaseWithMetrics) Certificate(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
) (d *Download, err error) {
	err = metrics.Track(ctx, e.metrics, "envelope", "certificate", func() error {
		d, err = e.next.Certificate(ctx, ownerID, envelopeID)
		return err
	})
	return d, err
}

func (e *envelopeUseCaseWithMetrics) AuditLogs(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	offset, limit int,
) (logs []*auditDomain.AuditLog, err error) {
	err = metrics.Track(ctx, e.metrics, "envelope", "audit_logs", func() error {
		logs, err = e.next.AuditLogs(ctx, ownerID, envelopeID, offset, limit)
		return err
	})
	return logs, err
}

// signingUseCaseWithMetrics decorates SigningUseCase with metrics instrumentation.
type signingUseCaseWithMetrics struct {
	next    SigningUseCase
	metrics metrics.BusinessMetrics
}

// NewSigningUseCaseWithMetrics wraps a SigningUseCase with metrics recording.
func NewSigningUseCaseWithMetrics(useCase SigningUseCase, m metrics.BusinessMetrics) SigningUseCase {
	return &signingUseCaseWithMetrics{next: useCase, metrics: m}
}

func (s *signingUseCaseWithMetrics) View(ctx context.Context, signingToken string) (view *SigningView, err error) {
	err = metrics.Track(ctx, s.metrics, "signing", "view", func() error {
		view, err = s.next.View(ctx, signingToken)
		return err
	})
	return view, err
}

func (s *signingUseCaseWithMetrics) RequestOTP(ctx context.Context, signingToken string) error {
	return metrics.Track(ctx, s.metrics, "signing", "otp_request", func() error {
		return s.next.RequestOTP(ctx, signingToken)
	})
}

func (s *signingUseCaseWithMetrics) VerifyOTP(
	ctx context.Context,
	signingToken, code string,
) (session *Session, err error) {
	err = metrics.Track(ctx, s.metrics, "signing", "otp_verify", func() error {
		session, err = s.next.VerifyOTP(ctx, signingToken, code)
		return err
	})
	return session, err
}

func (s *signingUseCaseWithMetrics) Sign(
	ctx context.Context,
	signingToken string,
	in SignInput,
) (result *SignResult, err error) {
	err = metrics.Track(ctx, s.metrics, "signing", "sign", func() error {
		result, err = s.next.Sign(ctx, signingToken, in)
		return err
	})
	return result, err
}

func (s *signingUseCaseWithMetrics) Decline(ctx context.Context, signingToken, sessionToken, reason string) error {
	return metrics.Track(ctx, s.metrics, "signing", "decline", func() error {
		return s.next.Decline(ctx, signingToken, sessionToken, reason)
	})
}

func (s *signingUseCaseWithMetrics) Artifact(ctx context.Context, signingToken string) (d *Download, err error) {
	err = metrics.Track(ctx, s.metrics, "signing", "artifact_download", func() error {
		d, err = s.next.Artifact(ctx, signingToken)
		return err
	})
	return d, err
}

func (s *signingUseCaseWithMetrics) CaptureFingerprint(ctx context.Context, signingToken, fingerprint string) error {
	return metrics.Track(ctx, s.metrics, "signing", "fingerprint", func() error {
		return s.next.CaptureFingerprint(ctx, signingToken, fingerprint)
	})
}
