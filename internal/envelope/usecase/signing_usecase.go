package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
	docDomain "github.com/allisson/esign/internal/document/domain"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	"github.com/allisson/esign/internal/envelope/service"
	apperrors "github.com/allisson/esign/internal/errors"
	ledgerDomain "github.com/allisson/esign/internal/ledger/domain"
	notificationDomain "github.com/allisson/esign/internal/notification/domain"
	signingService "github.com/allisson/esign/internal/signing/service"
)

const (
	dateFieldLayout = "2006-01-02"
	checkboxMark    = "X"
	placementRef    = "placement"
)

type signingUseCase struct {
	*core
}

// NewSigningUseCase creates the signer-facing use case.
func NewSigningUseCase(deps Dependencies, opts Options) SigningUseCase {
	return &signingUseCase{core: newCore(deps, opts)}
}

func (u *signingUseCase) View(ctx context.Context, signingToken string) (*SigningView, error) {
	signer, err := u.signerByToken(ctx, signingToken)
	if err != nil {
		return nil, err
	}

	env, err := u.loadEnvelope(ctx, signer.EnvelopeID)
	if err != nil {
		return nil, err
	}
	if env.Status == envelopeDomain.StatusDraft {
		return nil, envelopeDomain.ErrEnvelopeNotOpen
	}
	s, ok := env.Signer(signer.ID)
	if !ok {
		return nil, envelopeDomain.ErrSignerNotFound
	}

	doc, err := u.Documents.Get(ctx, env.DocumentID)
	if err != nil {
		return nil, err
	}

	if err := u.Audit.Record(ctx, env.ID, auditDomain.EventViewed, s.Email, map[string]any{
		"signer_id": s.ID.String(),
	}); err != nil {
		return nil, err
	}

	return &SigningView{
		Envelope: env,
		Signer:   s,
		Document: doc,
		Fields:   env.FieldsFor(s.ID),
	}, nil
}

func (u *signingUseCase) RequestOTP(ctx context.Context, signingToken string) error {
	signer, err := u.signerByToken(ctx, signingToken)
	if err != nil {
		return err
	}

	return u.mutate(ctx, signer.EnvelopeID, func(ctx context.Context, env *envelopeDomain.Envelope) error {
		s, err := actingSigner(env, signer.ID)
		if err != nil {
			return err
		}

		code, err := u.OTP.Generate(s)
		if err != nil {
			return err
		}
		if err := u.Signers.Update(ctx, s); err != nil {
			return err
		}

		if err := u.enqueue(ctx, notificationDomain.EventSigningOTP, notificationDomain.OTPDelivery{
			EnvelopeID:  env.ID,
			SignerID:    s.ID,
			Email:       s.Email,
			Name:        s.Name,
			SigningLink: u.signingLink(s),
			OTP:         code,
			ExpiresAt:   *s.OTPExpiresAt,
		}); err != nil {
			return err
		}

		return u.Audit.Record(ctx, env.ID, auditDomain.EventOTPRequested, s.Email, map[string]any{
			"signer_id":  s.ID.String(),
			"expires_at": s.OTPExpiresAt.Format(time.RFC3339),
		})
	})
}

func (u *signingUseCase) VerifyOTP(ctx context.Context, signingToken, code string) (*Session, error) {
	signer, err := u.signerByToken(ctx, signingToken)
	if err != nil {
		return nil, err
	}

	var (
		session *Session
		expired bool
	)
	err = u.mutate(ctx, signer.EnvelopeID, func(ctx context.Context, env *envelopeDomain.Envelope) error {
		s, err := actingSigner(env, signer.ID)
		if err != nil {
			return err
		}

		// An expired code is cleared and the clearing is committed.
		if u.OTP.Expired(s) {
			s.ClearOTP()
			expired = true
			return u.Signers.Update(ctx, s)
		}
		if !u.OTP.Verify(s, strings.TrimSpace(code)) {
			return envelopeDomain.ErrInvalidOTP
		}

		now := u.now()
		s.OTPVerifiedAt = &now
		if err := u.Signers.Update(ctx, s); err != nil {
			return err
		}

		token, expiresAt, err := u.Sessions.Issue(s.ID, env.ID)
		if err != nil {
			return err
		}
		session = &Session{Token: token, ExpiresAt: expiresAt}

		return u.Audit.Record(ctx, env.ID, auditDomain.EventOTPVerified, s.Email, map[string]any{
			"signer_id": s.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, envelopeDomain.ErrInvalidOTP
	}
	return session, nil
}

func (u *signingUseCase) Sign(ctx context.Context, signingToken string, in SignInput) (*SignResult, error) {
	signer, err := u.signerByToken(ctx, signingToken)
	if err != nil {
		return nil, err
	}
	if err := u.Sessions.Authorize(in.SessionToken, signer.ID, signer.EnvelopeID); err != nil {
		return nil, err
	}
	if !in.Consent {
		return nil, envelopeDomain.ErrConsentRequired
	}
	mark, imageExt, err := buildMark(in)
	if err != nil {
		return nil, err
	}

	var (
		result    *SignResult
		completed *envelopeDomain.Envelope
	)
	err = u.mutate(ctx, signer.EnvelopeID, func(ctx context.Context, env *envelopeDomain.Envelope) error {
		s, err := actingSigner(env, signer.ID)
		if err != nil {
			return err
		}
		if !u.OTP.IsVerified(s) {
			return envelopeDomain.ErrOTPNotVerified
		}
		if env.Sequential && len(env.PendingBefore(s)) > 0 {
			return envelopeDomain.ErrOutOfOrder
		}

		unlockDoc, err := u.lockDocument(ctx, env.DocumentID)
		if err != nil {
			return err
		}
		defer unlockDoc()

		doc, err := u.Documents.GetForUpdate(ctx, env.DocumentID)
		if err != nil {
			return err
		}

		signedAt := u.now().Truncate(time.Second)
		targets, err := u.signTargets(ctx, env, s, doc, in, signedAt)
		if err != nil {
			return err
		}

		basePath, baseHash := doc.CurrentArtifact()
		base, err := u.readVerified(ctx, "sign", basePath, baseHash)
		if err != nil {
			return err
		}

		next, err := u.Ledger.NextStep(ctx, doc.ID)
		if err != nil {
			return err
		}

		artifact, err := u.Renderer.Sign(ctx, base, signingService.RenderRequest{
			ContentPages:         len(doc.PageSizes),
			Mark:                 mark,
			Placements:           targets.rects,
			FieldValues:          targets.values,
			SuppressMarkMetadata: in.SuppressMarkMetadata,
			Footer: signingService.FooterInputs{
				Step:         next,
				DocumentID:   doc.ID.String(),
				SignerEmail:  s.Email,
				SignerName:   s.Name,
				SignedAt:     signedAt,
				Jurisdiction: u.opts.Jurisdiction,
			},
		})
		if err != nil {
			return err
		}

		artifactPath := docDomain.SignedArtifactPath(doc.ID, next, uuid.Must(uuid.NewV7()))
		storedHash, _, err := u.Store.Put(ctx, artifactPath, bytes.NewReader(artifact.Bytes))
		if err != nil {
			return err
		}
		if storedHash != artifact.Hash {
			u.integrityFailure(ctx, "sign", artifactPath, artifact.Hash, storedHash)
			return envelopeDomain.ErrArtifactIntegrity
		}

		var imagePath *string
		if len(mark.Image) > 0 {
			p := docDomain.MarkImagePath(doc.ID, s.ID, imageExt)
			if _, _, err := u.Store.Put(ctx, p, bytes.NewReader(mark.Image)); err != nil {
				return err
			}
			imagePath = &p
		}

		doc.SetSignedArtifact(artifactPath, storedHash, signedAt)
		if err := u.Documents.UpdateSignedArtifact(ctx, doc); err != nil {
			return err
		}

		step, err := u.Ledger.AppendStep(ctx, doc.ID, env.ID, ledgerDomain.SignerSnapshot{
			SignerID: s.ID,
			Email:    s.Email,
			Name:     s.Name,
		}, artifactPath, storedHash)
		if err != nil {
			return err
		}

		s.SignedAt = &signedAt
		s.ClearOTP()
		if err := u.Signers.Update(ctx, s); err != nil {
			return err
		}

		signature := &envelopeDomain.Signature{
			ID:          uuid.Must(uuid.NewV7()),
			SignerID:    s.ID,
			EnvelopeID:  env.ID,
			Consent:     true,
			ConsentText: in.ConsentText,
			MarkType:    in.MarkType,
			ImagePath:   imagePath,
			Placements:  targets.placements,
			CreatedAt:   signedAt,
			UpdatedAt:   signedAt,
		}
		if mark.Text != "" {
			text := mark.Text
			signature.TextContent = &text
		}
		if err := u.Signatures.Upsert(ctx, signature); err != nil {
			return err
		}

		if err := u.Audit.Record(ctx, env.ID, auditDomain.EventSigned, s.Email, map[string]any{
			"signer_id":     s.ID.String(),
			"step":          step.Step,
			"artifact_hash": storedHash,
			"fingerprint":   signingService.Fingerprint(doc.ID.String(), s.Email, signedAt),
			"mark_type":     string(in.MarkType),
			"consent_text":  in.ConsentText,
		}); err != nil {
			return err
		}
		if fp := strings.TrimSpace(in.DeviceFingerprint); fp != "" {
			if err := u.Audit.Record(ctx, env.ID, auditDomain.EventDeviceFingerprintCaptured, s.Email, map[string]any{
				"signer_id":   s.ID.String(),
				"fingerprint": fp,
			}); err != nil {
				return err
			}
		}

		env.Status = envelopeDomain.NextStatus(env.Status, env.Signers)
		env.UpdatedAt = signedAt
		if env.Status == envelopeDomain.StatusCompleted {
			env.CompletedAt = &signedAt
		}
		if err := u.Envelopes.Update(ctx, env); err != nil {
			return err
		}

		if env.Status == envelopeDomain.StatusCompleted {
			if err := u.complete(ctx, env, doc); err != nil {
				return err
			}
			completed = env
		}

		result = &SignResult{
			SignedAt:     signedAt,
			ArtifactHash: storedHash,
			Step:         step.Step,
			Status:       env.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed != nil {
		u.Logger.Info("envelope completed",
			slog.String("envelope_id", completed.ID.String()),
			slog.String("artifact_hash", result.ArtifactHash),
		)
	}
	return result, nil
}

func (u *signingUseCase) Decline(ctx context.Context, signingToken, sessionToken, reason string) error {
	signer, err := u.signerByToken(ctx, signingToken)
	if err != nil {
		return err
	}
	if err := u.Sessions.Authorize(sessionToken, signer.ID, signer.EnvelopeID); err != nil {
		return err
	}

	return u.mutate(ctx, signer.EnvelopeID, func(ctx context.Context, env *envelopeDomain.Envelope) error {
		s, err := actingSigner(env, signer.ID)
		if err != nil {
			return err
		}

		now := u.now()
		s.DeclinedAt = &now
		s.DeclineReason = optionalString(reason)
		s.ClearOTP()
		if err := u.Signers.Update(ctx, s); err != nil {
			return err
		}

		env.Status = envelopeDomain.NextStatus(env.Status, env.Signers)
		env.UpdatedAt = now
		if err := u.Envelopes.Update(ctx, env); err != nil {
			return err
		}

		return u.Audit.Record(ctx, env.ID, auditDomain.EventDeclined, s.Email, map[string]any{
			"signer_id": s.ID.String(),
			"reason":    strings.TrimSpace(reason),
		})
	})
}

func (u *signingUseCase) Artifact(ctx context.Context, signingToken string) (*Download, error) {
	signer, err := u.signerByToken(ctx, signingToken)
	if err != nil {
		return nil, err
	}
	env, err := u.Envelopes.Get(ctx, signer.EnvelopeID)
	if err != nil {
		return nil, err
	}
	return u.signedArtifact(ctx, env)
}

func (u *signingUseCase) CaptureFingerprint(ctx context.Context, signingToken, fingerprint string) error {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "fingerprint is required")
	}

	signer, err := u.signerByToken(ctx, signingToken)
	if err != nil {
		return err
	}
	return u.Audit.Record(ctx, signer.EnvelopeID, auditDomain.EventDeviceFingerprintCaptured, signer.Email, map[string]any{
		"signer_id":   signer.ID.String(),
		"fingerprint": fingerprint,
	})
}

// complete records the completion and notifies every party of the envelope.
func (u *signingUseCase) complete(ctx context.Context, env *envelopeDomain.Envelope, doc *docDomain.Document) error {
	if err := u.Audit.Record(ctx, env.ID, auditDomain.EventCompleted, auditDomain.ActorSystem, map[string]any{
		"artifact_hash": *doc.SignedHash,
	}); err != nil {
		return err
	}

	recipients := make([]notificationDomain.Recipient, 0, len(env.Signers))
	for _, s := range env.Signers {
		recipients = append(recipients, notificationDomain.Recipient{
			SignerID:    s.ID,
			Email:       s.Email,
			Name:        s.Name,
			Role:        string(s.Role),
			SigningLink: u.signingLink(s),
		})
	}

	return u.enqueue(ctx, notificationDomain.EventEnvelopeCompleted, notificationDomain.Completion{
		EnvelopeID:   env.ID,
		Subject:      env.Subject,
		DocumentName: doc.Filename,
		ArtifactHash: *doc.SignedHash,
		CompletedAt:  *env.CompletedAt,
		Recipients:   recipients,
	})
}

type markTargets struct {
	rects      []signingService.Rect
	values     []signingService.FieldValue
	placements []envelopeDomain.Placement
}

// signTargets collects where the mark goes and which field values are drawn. The
// optional free placement is validated against every field of the envelope and the
// free placements of the other signers.
func (u *signingUseCase) signTargets(
	ctx context.Context,
	env *envelopeDomain.Envelope,
	s *envelopeDomain.Signer,
	doc *docDomain.Document,
	in SignInput,
	signedAt time.Time,
) (*markTargets, error) {
	t := &markTargets{}

	for _, f := range env.FieldsFor(s.ID) {
		fieldID := f.ID
		rect := signingService.Rect{Page: f.Page, X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}
		placement := envelopeDomain.Placement{
			FieldID: &fieldID,
			Page:    f.Page,
			X:       f.X,
			Y:       f.Y,
			Width:   f.Width,
			Height:  f.Height,
		}

		if f.Type.TakesMark() {
			t.rects = append(t.rects, rect)
			t.placements = append(t.placements, placement)
			continue
		}

		value, err := fieldValue(f, in.FieldValues[f.ID], signedAt)
		if err != nil {
			return nil, err
		}
		if value == "" {
			continue
		}
		placement.Value = value
		t.values = append(t.values, signingService.FieldValue{Rect: rect, Value: value})
		t.placements = append(t.placements, placement)
	}

	if in.Placement != nil {
		p := *in.Placement
		p.FieldID = nil
		p.Value = ""

		signatures, err := u.Signatures.ListByEnvelope(ctx, env.ID)
		if err != nil {
			return nil, err
		}

		boxes := fieldBoxes(env.Fields)
		for _, other := range signatures {
			if other.SignerID == s.ID {
				continue
			}
			for i, fp := range other.FreePlacements() {
				boxes = append(boxes, placementBox(fmt.Sprintf("%s/%d", other.SignerID, i), fp))
			}
		}
		boxes = append(boxes, placementBox(placementRef, p))
		if err := u.validateBoxes(doc, boxes); err != nil {
			return nil, err
		}

		t.rects = append(t.rects, signingService.Rect{Page: p.Page, X: p.X, Y: p.Y, Width: p.Width, Height: p.Height})
		t.placements = append(t.placements, p)
	}

	if len(t.rects) == 0 {
		return nil, signingService.ErrNoFieldAssigned
	}
	return t, nil
}

// actingSigner returns the signer of env allowed to act now: the envelope must be
// open, the signer must hold the SIGNER role and must not have signed or declined.
func actingSigner(env *envelopeDomain.Envelope, signerID uuid.UUID) (*envelopeDomain.Signer, error) {
	s, ok := env.Signer(signerID)
	if !ok {
		return nil, envelopeDomain.ErrSignerNotFound
	}
	if !env.Status.IsOpenForSigning() {
		return nil, envelopeDomain.ErrEnvelopeNotOpen
	}
	if s.Role != envelopeDomain.RoleSigner {
		return nil, envelopeDomain.ErrRoleCannotSign
	}
	if err := s.CheckCanAct(); err != nil {
		return nil, err
	}
	return s, nil
}

// buildMark returns the mark and, for images, the stored file extension.
func buildMark(in SignInput) (signingService.Mark, string, error) {
	switch in.MarkType {
	case envelopeDomain.MarkText:
		text := strings.TrimSpace(in.MarkText)
		if text == "" {
			return signingService.Mark{}, "", envelopeDomain.ErrInvalidMark
		}
		return signingService.Mark{Text: text}, "", nil
	case envelopeDomain.MarkImage:
		if len(in.MarkImage) == 0 {
			return signingService.Mark{}, "", envelopeDomain.ErrInvalidMark
		}
		detected := mimetype.Detect(in.MarkImage)
		switch {
		case detected.Is("image/png"):
			return signingService.Mark{Image: in.MarkImage}, ".png", nil
		case detected.Is("image/jpeg"):
			return signingService.Mark{Image: in.MarkImage}, ".jpg", nil
		}
		return signingService.Mark{}, "", signingService.ErrInvalidSignatureImage
	}
	return signingService.Mark{}, "", envelopeDomain.ErrInvalidMark
}

// fieldValue renders the value drawn into a DATE, TEXT or CHECKBOX field. An empty
// result draws nothing.
func fieldValue(f *envelopeDomain.Field, raw string, signedAt time.Time) (string, error) {
	raw = strings.TrimSpace(raw)

	switch f.Type {
	case envelopeDomain.FieldDate:
		if raw == "" {
			return signedAt.UTC().Format(dateFieldLayout), nil
		}
		if _, err := time.Parse(dateFieldLayout, raw); err != nil {
			return "", apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("field %s must be a YYYY-MM-DD date", f.ID))
		}
		return raw, nil
	case envelopeDomain.FieldText:
		if raw == "" && f.Required {
			return "", apperrors.Wrap(envelopeDomain.ErrMissingFieldValue, f.ID.String())
		}
		return raw, nil
	case envelopeDomain.FieldCheckbox:
		checked := false
		if raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				return "", apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("field %s must be true or false", f.ID))
			}
			checked = parsed
		}
		if !checked {
			if f.Required {
				return "", apperrors.Wrap(envelopeDomain.ErrMissingFieldValue, f.ID.String())
			}
			return "", nil
		}
		return checkboxMark, nil
	}
	return "", nil
}

func placementBox(ref string, p envelopeDomain.Placement) service.Box {
	return service.Box{Ref: ref, Page: p.Page, X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}
