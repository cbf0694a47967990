package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
	"github.com/allisson/esign/internal/certificate"
	docDomain "github.com/allisson/esign/internal/document/domain"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	"github.com/allisson/esign/internal/envelope/service"
	apperrors "github.com/allisson/esign/internal/errors"
	notificationDomain "github.com/allisson/esign/internal/notification/domain"
)

type envelopeUseCase struct {
	*core
}

// NewEnvelopeUseCase creates the owner-facing envelope use case.
func NewEnvelopeUseCase(deps Dependencies, opts Options) EnvelopeUseCase {
	return &envelopeUseCase{core: newCore(deps, opts)}
}

func (u *envelopeUseCase) Create(
	ctx context.Context,
	ownerID uuid.UUID,
	in CreateEnvelopeInput,
) (*envelopeDomain.Envelope, error) {
	doc, err := u.Documents.Get(ctx, in.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, docDomain.ErrDocumentNotFound
	}

	now := u.now()
	env := &envelopeDomain.Envelope{
		ID:         uuid.Must(uuid.NewV7()),
		OwnerID:    ownerID,
		DocumentID: doc.ID,
		Status:     envelopeDomain.StatusDraft,
		Subject:    strings.TrimSpace(in.Subject),
		Message:    in.Message,
		Sequential: in.Sequential,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	seen := make(map[string]struct{}, len(in.Signers))
	for i, si := range in.Signers {
		if !si.Role.Valid() {
			return nil, apperrors.Wrap(envelopeDomain.ErrInvalidRole, fmt.Sprintf("signers[%d]", i))
		}
		email := strings.ToLower(strings.TrimSpace(si.Email))
		if _, dup := seen[email]; dup {
			return nil, apperrors.Wrap(envelopeDomain.ErrDuplicateSignerEmail, email)
		}
		seen[email] = struct{}{}

		order := si.RoutingOrder
		if order <= 0 {
			order = i + 1
		}
		env.Signers = append(env.Signers, &envelopeDomain.Signer{
			ID:           uuid.Must(uuid.NewV7()),
			EnvelopeID:   env.ID,
			Email:        email,
			Name:         strings.TrimSpace(si.Name),
			Role:         si.Role,
			RoutingOrder: order,
			CreatedAt:    now,
		})
	}

	boxes := make([]service.Box, 0, len(in.Fields))
	for i, fi := range in.Fields {
		if fi.SignerIndex < 0 || fi.SignerIndex >= len(env.Signers) {
			return nil, apperrors.Wrap(envelopeDomain.ErrUnknownSigner, fmt.Sprintf("fields[%d]", i))
		}
		if !fi.Type.Valid() {
			return nil, apperrors.Wrap(envelopeDomain.ErrInvalidFieldType, fmt.Sprintf("fields[%d]", i))
		}
		field := newField(env, env.Signers[fi.SignerIndex].ID, fi, now)
		env.Fields = append(env.Fields, field)
		boxes = append(boxes, fieldBox(fmt.Sprintf("fields[%d]", i), field))
	}
	if err := u.validateBoxes(doc, boxes); err != nil {
		return nil, err
	}

	err = u.TxManager.WithTx(ctx, func(ctx context.Context) error {
		if err := u.Envelopes.Create(ctx, env); err != nil {
			return err
		}
		for _, s := range env.Signers {
			if err := u.Signers.Create(ctx, s); err != nil {
				return err
			}
		}
		for _, f := range env.Fields {
			if err := u.Fields.Create(ctx, f); err != nil {
				return err
			}
		}
		return u.Audit.Record(ctx, env.ID, auditDomain.EventCreated, ownerActor(ownerID), map[string]any{
			"document_id": doc.ID.String(),
			"signers":     len(env.Signers),
			"fields":      len(env.Fields),
		})
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (u *envelopeUseCase) Get(ctx context.Context, ownerID, envelopeID uuid.UUID) (*envelopeDomain.Envelope, error) {
	env, err := u.loadEnvelope(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	if env.OwnerID != ownerID {
		return nil, envelopeDomain.ErrEnvelopeNotFound
	}
	return env, nil
}

func (u *envelopeUseCase) AddField(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	in FieldInput,
) (*envelopeDomain.Field, error) {
	var field *envelopeDomain.Field

	err := u.mutateDraft(ctx, ownerID, envelopeID, func(ctx context.Context, env *envelopeDomain.Envelope) error {
		if err := checkFieldInput(env, in); err != nil {
			return err
		}

		field = newField(env, in.SignerID, in, u.now())
		if err := u.validateFieldSet(ctx, env, append(env.Fields, field)); err != nil {
			return err
		}

		if err := u.Fields.Create(ctx, field); err != nil {
			return err
		}
		return u.Audit.Record(ctx, env.ID, auditDomain.EventFieldAdded, ownerActor(ownerID), fieldDetails(field))
	})
	if err != nil {
		return nil, err
	}
	return field, nil
}

func (u *envelopeUseCase) UpdateField(
	ctx context.Context,
	ownerID, envelopeID, fieldID uuid.UUID,
	in FieldInput,
) (*envelopeDomain.Field, error) {
	var field *envelopeDomain.Field

	err := u.mutateDraft(ctx, ownerID, envelopeID, func(ctx context.Context, env *envelopeDomain.Envelope) error {
		current, ok := env.Field(fieldID)
		if !ok {
			return envelopeDomain.ErrFieldNotFound
		}
		if err := checkFieldInput(env, in); err != nil {
			return err
		}

		updated := *current
		updated.SignerID = in.SignerID
		updated.Type = in.Type
		updated.Page = in.Page
		updated.X, updated.Y, updated.Width, updated.Height = in.X, in.Y, in.Width, in.Height
		updated.Required = in.Required
		updated.UpdatedAt = u.now()

		proposed := make([]*envelopeDomain.Field, 0, len(env.Fields))
		for _, f := range env.Fields {
			if f.ID == fieldID {
				proposed = append(proposed, &updated)
				continue
			}
			proposed = append(proposed, f)
		}
		if err := u.validateFieldSet(ctx, env, proposed); err != nil {
			return err
		}

		if err := u.Fields.Update(ctx, &updated); err != nil {
			return err
		}
		field = &updated
		return u.Audit.Record(ctx, env.ID, auditDomain.EventFieldUpdated, ownerActor(ownerID), fieldDetails(field))
	})
	if err != nil {
		return nil, err
	}
	return field, nil
}

func (u *envelopeUseCase) DeleteField(ctx context.Context, ownerID, envelopeID, fieldID uuid.UUID) error {
	return u.mutateDraft(ctx, ownerID, envelopeID, func(ctx context.Context, env *envelopeDomain.Envelope) error {
		field, ok := env.Field(fieldID)
		if !ok {
			return envelopeDomain.ErrFieldNotFound
		}
		if err := u.Fields.Delete(ctx, fieldID); err != nil {
			return err
		}
		return u.Audit.Record(ctx, env.ID, auditDomain.EventFieldDeleted, ownerActor(ownerID), fieldDetails(field))
	})
}

func (u *envelopeUseCase) Send(ctx context.Context, ownerID, envelopeID uuid.UUID) (*envelopeDomain.Envelope, error) {
	var sent *envelopeDomain.Envelope

	err := u.mutateOwned(ctx, ownerID, envelopeID, func(ctx context.Context, env *envelopeDomain.Envelope) error {
		if !envelopeDomain.CanTransition(env.Status, envelopeDomain.StatusSent) {
			return envelopeDomain.ErrEnvelopeNotDraft
		}
		if len(env.SigningParties()) == 0 {
			return envelopeDomain.ErrNoSigners
		}

		doc, err := u.Documents.Get(ctx, env.DocumentID)
		if err != nil {
			return err
		}
		exists, err := u.Store.Exists(ctx, doc.StoragePath)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.Wrap(docDomain.ErrDocumentNotFound, "stored document content is missing")
		}

		for _, s := range env.Signers {
			token, err := service.NewSigningToken()
			if err != nil {
				return err
			}
			s.SigningToken = &token

			if s.Role == envelopeDomain.RoleSigner {
				code, err := u.OTP.Generate(s)
				if err != nil {
					return err
				}
				if err := u.enqueue(ctx, notificationDomain.EventSigningInvitation, notificationDomain.Invitation{
					EnvelopeID:   env.ID,
					SignerID:     s.ID,
					Email:        s.Email,
					Name:         s.Name,
					Subject:      env.Subject,
					Message:      env.Message,
					DocumentName: doc.Filename,
					SigningLink:  u.signingLink(s),
					OTP:          code,
					OTPExpiresAt: *s.OTPExpiresAt,
				}); err != nil {
					return err
				}
			}

			if err := u.Signers.Update(ctx, s); err != nil {
				return err
			}
		}

		now := u.now()
		env.Status = envelopeDomain.StatusSent
		env.SentAt = &now
		env.UpdatedAt = now
		if err := u.Envelopes.Update(ctx, env); err != nil {
			return err
		}

		sent = env
		return u.Audit.Record(ctx, env.ID, auditDomain.EventSent, ownerActor(ownerID), map[string]any{
			"signers": len(env.Signers),
		})
	})
	if err != nil {
		return nil, err
	}

	u.Logger.Info("envelope sent",
		slog.String("envelope_id", sent.ID.String()),
		slog.Int("signers", len(sent.Signers)),
	)
	return sent, nil
}

func (u *envelopeUseCase) Void(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	reason string,
) (*envelopeDomain.Envelope, error) {
	var voided *envelopeDomain.Envelope

	err := u.mutateOwned(ctx, ownerID, envelopeID, func(ctx context.Context, env *envelopeDomain.Envelope) error {
		if !envelopeDomain.CanTransition(env.Status, envelopeDomain.StatusVoided) {
			return envelopeDomain.ErrEnvelopeTerminal
		}

		now := u.now()
		env.Status = envelopeDomain.StatusVoided
		env.VoidedAt = &now
		env.VoidReason = optionalString(reason)
		env.UpdatedAt = now
		if err := u.Envelopes.Update(ctx, env); err != nil {
			return err
		}

		voided = env
		return u.Audit.Record(ctx, env.ID, auditDomain.EventVoided, ownerActor(ownerID), map[string]any{
			"reason": strings.TrimSpace(reason),
		})
	})
	if err != nil {
		return nil, err
	}
	return voided, nil
}

func (u *envelopeUseCase) Artifact(ctx context.Context, ownerID, envelopeID uuid.UUID) (*Download, error) {
	env, err := u.Get(ctx, ownerID, envelopeID)
	if err != nil {
		return nil, err
	}
	return u.signedArtifact(ctx, env)
}

func (u *envelopeUseCase) Certificate(ctx context.Context, ownerID, envelopeID uuid.UUID) (*Download, error) {
	env, err := u.Get(ctx, ownerID, envelopeID)
	if err != nil {
		return nil, err
	}
	if env.Status != envelopeDomain.StatusCompleted {
		return nil, envelopeDomain.ErrEnvelopeNotComplete
	}

	doc, err := u.Documents.Get(ctx, env.DocumentID)
	if err != nil {
		return nil, err
	}
	steps, err := u.Ledger.History(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	var logs []*auditDomain.AuditLog
	for offset := 0; ; offset += auditPageSize {
		page, err := u.Audit.ListByEnvelope(ctx, env.ID, offset, auditPageSize)
		if err != nil {
			return nil, err
		}
		logs = append(logs, page...)
		if len(page) < auditPageSize {
			break
		}
	}

	content, err := u.Certificates.Generate(certificate.Input{
		Envelope:    env,
		Document:    doc,
		Steps:       steps,
		AuditLogs:   logs,
		GeneratedAt: u.now(),
	})
	if err != nil {
		return nil, err
	}

	return &Download{
		Filename:    certificateFilename(doc.Filename),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}

func (u *envelopeUseCase) AuditLogs(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	offset, limit int,
) ([]*auditDomain.AuditLog, error) {
	if _, err := u.Get(ctx, ownerID, envelopeID); err != nil {
		return nil, err
	}
	return u.Audit.ListByEnvelope(ctx, envelopeID, offset, limit)
}

func (u *envelopeUseCase) mutateOwned(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	fn func(ctx context.Context, env *envelopeDomain.Envelope) error,
) error {
	return u.mutate(ctx, envelopeID, func(ctx context.Context, env *envelopeDomain.Envelope) error {
		if env.OwnerID != ownerID {
			return envelopeDomain.ErrEnvelopeNotFound
		}
		return fn(ctx, env)
	})
}

// mutateDraft is mutateOwned restricted to envelopes whose fields are still editable.
func (u *envelopeUseCase) mutateDraft(
	ctx context.Context,
	ownerID, envelopeID uuid.UUID,
	fn func(ctx context.Context, env *envelopeDomain.Envelope) error,
) error {
	return u.mutateOwned(ctx, ownerID, envelopeID, func(ctx context.Context, env *envelopeDomain.Envelope) error {
		if env.Status != envelopeDomain.StatusDraft {
			return envelopeDomain.ErrEnvelopeNotDraft
		}
		return fn(ctx, env)
	})
}

func (u *envelopeUseCase) validateFieldSet(
	ctx context.Context,
	env *envelopeDomain.Envelope,
	fields []*envelopeDomain.Field,
) error {
	doc, err := u.Documents.Get(ctx, env.DocumentID)
	if err != nil {
		return err
	}
	return u.validateBoxes(doc, fieldBoxes(fields))
}

func checkFieldInput(env *envelopeDomain.Envelope, in FieldInput) error {
	if _, ok := env.Signer(in.SignerID); !ok {
		return envelopeDomain.ErrUnknownSigner
	}
	if !in.Type.Valid() {
		return envelopeDomain.ErrInvalidFieldType
	}
	return nil
}

func newField(
	env *envelopeDomain.Envelope,
	signerID uuid.UUID,
	in FieldInput,
	now time.Time,
) *envelopeDomain.Field {
	return &envelopeDomain.Field{
		ID:         uuid.Must(uuid.NewV7()),
		EnvelopeID: env.ID,
		DocumentID: env.DocumentID,
		SignerID:   signerID,
		Type:       in.Type,
		Page:       in.Page,
		X:          in.X,
		Y:          in.Y,
		Width:      in.Width,
		Height:     in.Height,
		Required:   in.Required,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func fieldDetails(f *envelopeDomain.Field) map[string]any {
	return map[string]any{
		"field_id":  f.ID.String(),
		"signer_id": f.SignerID.String(),
		"type":      string(f.Type),
		"page":      f.Page,
		"x":         f.X,
		"y":         f.Y,
		"width":     f.Width,
		"height":    f.Height,
	}
}

func certificateFilename(filename string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + "-certificate.pdf"
}
