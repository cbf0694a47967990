package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	apperrors "github.com/allisson/esign/internal/errors"
	notificationDomain "github.com/allisson/esign/internal/notification/domain"
	signingService "github.com/allisson/esign/internal/signing/service"
	"github.com/allisson/esign/internal/testutil"
)

func TestSigning_TwoSignersComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	env := f.sentEnvelope(t, false, signer("a@example.com"), signer("b@example.com"))

	tokenA, sessionA := f.session(t, "a@example.com")
	resultA, err := f.signing.Sign(ctx, tokenA, textMark(sessionA, placementAt(0.1, 0.1)))
	require.NoError(t, err)
	assert.Equal(t, envelopeDomain.StatusPartiallySigned, resultA.Status)
	assert.Equal(t, 1, resultA.Step)

	history, err := f.ledger.History(ctx, env.DocumentID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	tokenB, sessionB := f.session(t, "b@example.com")
	resultB, err := f.signing.Sign(ctx, tokenB, textMark(sessionB, placementAt(0.5, 0.1)))
	require.NoError(t, err)
	assert.Equal(t, envelopeDomain.StatusCompleted, resultB.Status)
	assert.Equal(t, 2, resultB.Step)

	history, err = f.ledger.History(ctx, env.DocumentID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.NotEqual(t, history[0].ArtifactHash, history[1].ArtifactHash)
	assert.Equal(t, resultB.ArtifactHash, history[1].ArtifactHash)

	download, err := f.envelopes.Artifact(ctx, f.ownerID, env.ID)
	require.NoError(t, err)
	sum := sha256.Sum256(download.Content)
	assert.Equal(t, history[1].ArtifactHash, hex.EncodeToString(sum[:]))
	assert.Equal(t, "contract-signed.pdf", download.Filename)

	// One footer fits the band of the single content page; the second gets a footer page.
	sizes, err := signingService.NewEngine().PageSizes(download.Content)
	require.NoError(t, err)
	assert.Len(t, sizes, 2)

	report, err := f.ledger.Report(ctx, env.DocumentID)
	require.NoError(t, err)
	assert.True(t, report.IntegrityValid)

	got, err := f.envelopes.Get(ctx, f.ownerID, env.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.CompletedAt)

	completions := f.outbox.ofType(notificationDomain.EventEnvelopeCompleted)
	require.Len(t, completions, 1)
	var completion notificationDomain.Completion
	require.NoError(t, completions[0].Decode(&completion))
	assert.Len(t, completion.Recipients, 2)
	assert.Equal(t, resultB.ArtifactHash, completion.ArtifactHash)

	events := f.auditRepo.events(env.ID)
	assert.Contains(t, events, auditDomain.EventSigned)
	assert.Contains(t, events, auditDomain.EventCompleted)

	cert, err := f.envelopes.Certificate(ctx, f.ownerID, env.ID)
	require.NoError(t, err)
	assert.Equal(t, "contract-certificate.pdf", cert.Filename)
	assert.NotEmpty(t, cert.Content)
}

func TestSigning_DeclineBeforeSign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	env := f.sentEnvelope(t, false, signer("a@example.com"), signer("b@example.com"))

	tokenA, sessionA := f.session(t, "a@example.com")
	tokenB, sessionB := f.session(t, "b@example.com")

	require.NoError(t, f.signing.Decline(ctx, tokenB, sessionB, "terms changed"))

	got, err := f.envelopes.Get(ctx, f.ownerID, env.ID)
	require.NoError(t, err)
	assert.Equal(t, envelopeDomain.StatusDeclined, got.Status)

	_, err = f.signing.Sign(ctx, tokenA, textMark(sessionA, placementAt(0.1, 0.1)))
	assert.True(t, apperrors.Is(err, apperrors.ErrStateConflict))

	steps, err := f.ledger.History(ctx, env.DocumentID)
	require.NoError(t, err)
	assert.Empty(t, steps)
	assert.Contains(t, f.auditRepo.events(env.ID), auditDomain.EventDeclined)
}

func TestSigning_OTPExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.sentEnvelope(t, false, signer("a@example.com"))

	inv := f.invitation(t, "a@example.com")
	token := tokenFromLink(inv.SigningLink)

	f.clock.Advance(11 * time.Minute)
	_, err := f.signing.VerifyOTP(ctx, token, inv.OTP)
	assert.True(t, apperrors.Is(err, apperrors.ErrAuthChallenge))

	cleared := f.signerRepo.byEmail("a@example.com")
	assert.Nil(t, cleared.OTPHash)

	require.NoError(t, f.signing.RequestOTP(ctx, token))
	fresh := f.latestOTP(t, "a@example.com")
	assert.NotEmpty(t, fresh.OTP)

	session, err := f.signing.VerifyOTP(ctx, token, fresh.OTP)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Contains(t, f.auditRepo.events(f.signerRepo.byEmail("a@example.com").EnvelopeID), auditDomain.EventOTPRequested)
}

func TestSigning_VerifyOTPIsRepeatable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.sentEnvelope(t, false, signer("a@example.com"))

	inv := f.invitation(t, "a@example.com")
	token := tokenFromLink(inv.SigningLink)

	first, err := f.signing.VerifyOTP(ctx, token, inv.OTP)
	require.NoError(t, err)
	second, err := f.signing.VerifyOTP(ctx, token, inv.OTP)
	require.NoError(t, err)
	assert.NotEmpty(t, first.Token)
	assert.NotEmpty(t, second.Token)

	_, err = f.signing.VerifyOTP(ctx, token, "000000x")
	assert.True(t, apperrors.Is(err, apperrors.ErrAuthChallenge))
}

func TestSigning_SignTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	env := f.sentEnvelope(t, false, signer("a@example.com"), signer("b@example.com"))

	token, session := f.session(t, "a@example.com")
	_, err := f.signing.Sign(ctx, token, textMark(session, placementAt(0.1, 0.1)))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = f.signing.Sign(ctx, token, textMark(session, placementAt(0.1, 0.3)))
		assert.ErrorIs(t, err, envelopeDomain.ErrAlreadySigned)
	}

	steps, err := f.ledger.History(ctx, env.DocumentID)
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestSigning_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("Error_MissingSession", func(t *testing.T) {
		f := newFixture(t)
		f.sentEnvelope(t, false, signer("a@example.com"))
		token := f.signingToken(t, "a@example.com")

		_, err := f.signing.Sign(ctx, token, textMark("", placementAt(0.1, 0.1)))
		assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
	})

	t.Run("Error_SessionOfAnotherSigner", func(t *testing.T) {
		f := newFixture(t)
		f.sentEnvelope(t, false, signer("a@example.com"), signer("b@example.com"))
		_, sessionA := f.session(t, "a@example.com")
		tokenB := f.signingToken(t, "b@example.com")

		_, err := f.signing.Sign(ctx, tokenB, textMark(sessionA, placementAt(0.1, 0.1)))
		assert.ErrorIs(t, err, envelopeDomain.ErrInvalidSession)
	})

	t.Run("Error_ConsentRequired", func(t *testing.T) {
		f := newFixture(t)
		f.sentEnvelope(t, false, signer("a@example.com"))
		token, session := f.session(t, "a@example.com")

		in := textMark(session, placementAt(0.1, 0.1))
		in.Consent = false
		_, err := f.signing.Sign(ctx, token, in)
		assert.ErrorIs(t, err, envelopeDomain.ErrConsentRequired)
	})

	t.Run("Error_EmptyMark", func(t *testing.T) {
		f := newFixture(t)
		f.sentEnvelope(t, false, signer("a@example.com"))
		token, session := f.session(t, "a@example.com")

		in := textMark(session, placementAt(0.1, 0.1))
		in.MarkText = "  "
		_, err := f.signing.Sign(ctx, token, in)
		assert.ErrorIs(t, err, envelopeDomain.ErrInvalidMark)
	})

	t.Run("Error_InvalidImage", func(t *testing.T) {
		f := newFixture(t)
		f.sentEnvelope(t, false, signer("a@example.com"))
		token, session := f.session(t, "a@example.com")

		in := textMark(session, placementAt(0.1, 0.1))
		in.MarkType = envelopeDomain.MarkImage
		in.MarkImage = []byte("definitely not an image")
		_, err := f.signing.Sign(ctx, token, in)
		assert.ErrorIs(t, err, signingService.ErrInvalidSignatureImage)
	})

	t.Run("Error_NoTarget", func(t *testing.T) {
		f := newFixture(t)
		f.sentEnvelope(t, false, signer("a@example.com"))
		token, session := f.session(t, "a@example.com")

		_, err := f.signing.Sign(ctx, token, textMark(session, nil))
		assert.ErrorIs(t, err, signingService.ErrNoFieldAssigned)
	})

	t.Run("Error_OTPNotVerifiedAfterExpiry", func(t *testing.T) {
		f := newFixture(t)
		f.sentEnvelope(t, false, signer("a@example.com"))
		token, session := f.session(t, "a@example.com")

		f.clock.Advance(11 * time.Minute)
		_, err := f.signing.Sign(ctx, token, textMark(session, placementAt(0.1, 0.1)))
		assert.ErrorIs(t, err, envelopeDomain.ErrOTPNotVerified)
	})

	t.Run("Error_CCCannotSign", func(t *testing.T) {
		f := newFixture(t)
		f.sentEnvelope(t, false, signer("a@example.com"), SignerInput{
			Email: "cc@example.com",
			Name:  "Carbon",
			Role:  envelopeDomain.RoleCC,
		})
		token := f.signingToken(t, "cc@example.com")

		err := f.signing.RequestOTP(ctx, token)
		assert.ErrorIs(t, err, envelopeDomain.ErrRoleCannotSign)
		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	})

	t.Run("Error_UnknownLink", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.signing.View(ctx, "missing-token")
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("Error_PlacementOverlapsOtherSigner", func(t *testing.T) {
		f := newFixture(t)
		f.sentEnvelope(t, false, signer("a@example.com"), signer("b@example.com"))
		tokenA, sessionA := f.session(t, "a@example.com")
		_, err := f.signing.Sign(ctx, tokenA, textMark(sessionA, placementAt(0.1, 0.1)))
		require.NoError(t, err)

		tokenB, sessionB := f.session(t, "b@example.com")
		_, err = f.signing.Sign(ctx, tokenB, textMark(sessionB, placementAt(0.2, 0.12)))
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("Error_PlacementInFooterBand", func(t *testing.T) {
		f := newFixture(t)
		f.sentEnvelope(t, false, signer("a@example.com"))
		token, session := f.session(t, "a@example.com")

		_, err := f.signing.Sign(ctx, token, textMark(session, placementAt(0.1, 0.0)))
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})
}

func TestSigning_SequentialRouting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := signer("a@example.com")
	first.RoutingOrder = 1
	second := signer("b@example.com")
	second.RoutingOrder = 2
	f.sentEnvelope(t, true, first, second)

	tokenB, sessionB := f.session(t, "b@example.com")
	_, err := f.signing.Sign(ctx, tokenB, textMark(sessionB, placementAt(0.5, 0.1)))
	assert.ErrorIs(t, err, envelopeDomain.ErrOutOfOrder)

	tokenA, sessionA := f.session(t, "a@example.com")
	_, err = f.signing.Sign(ctx, tokenA, textMark(sessionA, placementAt(0.1, 0.1)))
	require.NoError(t, err)

	result, err := f.signing.Sign(ctx, tokenB, textMark(sessionB, placementAt(0.5, 0.1)))
	require.NoError(t, err)
	assert.Equal(t, envelopeDomain.StatusCompleted, result.Status)
}

func TestSigning_Fields(t *testing.T) {
	ctx := context.Background()

	newEnvelope := func(t *testing.T, f *fixture, textRequired bool) *envelopeDomain.Envelope {
		t.Helper()
		doc := f.upload(t, 2)
		env := f.create(t, CreateEnvelopeInput{
			DocumentID: doc.ID,
			Subject:    "Fields",
			Signers:    []SignerInput{signer("a@example.com")},
			Fields: []FieldInput{
				{SignerIndex: 0, Type: envelopeDomain.FieldSignature, Page: 1, X: 0.1, Y: 0.2, Width: 0.3, Height: 0.08},
				{SignerIndex: 0, Type: envelopeDomain.FieldInitial, Page: 2, X: 0.6, Y: 0.5, Width: 0.1, Height: 0.05},
				{SignerIndex: 0, Type: envelopeDomain.FieldDate, Page: 1, X: 0.5, Y: 0.2, Width: 0.2, Height: 0.04},
				{SignerIndex: 0, Type: envelopeDomain.FieldText, Page: 1, X: 0.1, Y: 0.5, Width: 0.4, Height: 0.04, Required: textRequired},
				{SignerIndex: 0, Type: envelopeDomain.FieldCheckbox, Page: 1, X: 0.1, Y: 0.6, Width: 0.03, Height: 0.03},
			},
		})
		_, err := f.envelopes.Send(ctx, f.ownerID, env.ID)
		require.NoError(t, err)
		return env
	}

	t.Run("Success_MarksEveryMarkFieldAndRecordsValues", func(t *testing.T) {
		f := newFixture(t)
		env := newEnvelope(t, f, true)
		token, session := f.session(t, "a@example.com")

		var textField, checkbox uuid.UUID
		for _, field := range env.Fields {
			switch field.Type {
			case envelopeDomain.FieldText:
				textField = field.ID
			case envelopeDomain.FieldCheckbox:
				checkbox = field.ID
			}
		}

		in := textMark(session, nil)
		in.FieldValues = map[uuid.UUID]string{textField: "ACME Corp", checkbox: "true"}
		in.DeviceFingerprint = "fp-123"
		result, err := f.signing.Sign(ctx, token, in)
		require.NoError(t, err)
		assert.Equal(t, envelopeDomain.StatusCompleted, result.Status)

		signatures, err := f.signatures.ListByEnvelope(ctx, env.ID)
		require.NoError(t, err)
		require.Len(t, signatures, 1)
		assert.Len(t, signatures[0].Placements, 5)
		assert.Empty(t, signatures[0].FreePlacements())

		values := map[string]bool{}
		for _, p := range signatures[0].Placements {
			if p.Value != "" {
				values[p.Value] = true
			}
		}
		assert.True(t, values["ACME Corp"])
		assert.True(t, values[checkboxMark])
		assert.True(t, values[result.SignedAt.Format(dateFieldLayout)])
		assert.Contains(t, f.auditRepo.events(env.ID), auditDomain.EventDeviceFingerprintCaptured)
	})

	t.Run("Error_RequiredTextMissing", func(t *testing.T) {
		f := newFixture(t)
		newEnvelope(t, f, true)
		token, session := f.session(t, "a@example.com")

		_, err := f.signing.Sign(ctx, token, textMark(session, nil))
		assert.ErrorIs(t, err, envelopeDomain.ErrMissingFieldValue)
	})

	t.Run("Success_ImageMarkStored", func(t *testing.T) {
		f := newFixture(t)
		env := newEnvelope(t, f, false)
		token, session := f.session(t, "a@example.com")

		in := textMark(session, nil)
		in.MarkType = envelopeDomain.MarkImage
		in.MarkImage = testutil.NewPNG(t)
		_, err := f.signing.Sign(ctx, token, in)
		require.NoError(t, err)

		signatures, err := f.signatures.ListByEnvelope(ctx, env.ID)
		require.NoError(t, err)
		require.Len(t, signatures, 1)
		require.NotNil(t, signatures[0].ImagePath)
		exists, err := f.bucket.Exists(ctx, *signatures[0].ImagePath)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestSigning_ConcurrentSignersAreSerialized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	env := f.sentEnvelope(t, false, signer("a@example.com"), signer("b@example.com"), signer("c@example.com"))

	type party struct {
		token, session string
		placement      *envelopeDomain.Placement
	}
	var parties []party
	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		token, session := f.session(t, email)
		parties = append(parties, party{token, session, placementAt(0.05+float64(i)*0.3, 0.2)})
	}

	var wg sync.WaitGroup
	errs := make([]error, len(parties))
	for i, p := range parties {
		wg.Add(1)
		go func(i int, p party) {
			defer wg.Done()
			_, errs[i] = f.signing.Sign(ctx, p.token, textMark(p.session, p.placement))
		}(i, p)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	verifications, err := f.ledger.VerifyHistory(ctx, env.DocumentID)
	require.NoError(t, err)
	require.Len(t, verifications, 3)
	for i, v := range verifications {
		assert.Equal(t, i+1, v.Step.Step)
		assert.True(t, v.Verification.Valid)
	}

	got, err := f.envelopes.Get(ctx, f.ownerID, env.ID)
	require.NoError(t, err)
	assert.Equal(t, envelopeDomain.StatusCompleted, got.Status)
}

func TestSigning_ViewAndFingerprint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	env := f.sentEnvelope(t, false, signer("a@example.com"))
	token := f.signingToken(t, "a@example.com")

	view, err := f.signing.View(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Please sign", view.Envelope.Subject)
	assert.Equal(t, "a@example.com", view.Signer.Email)
	assert.Equal(t, "contract.pdf", view.Document.Filename)

	require.NoError(t, f.signing.CaptureFingerprint(ctx, token, "device-abc"))
	err = f.signing.CaptureFingerprint(ctx, token, " ")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	events := f.auditRepo.events(env.ID)
	assert.Contains(t, events, auditDomain.EventViewed)
	assert.Contains(t, events, auditDomain.EventDeviceFingerprintCaptured)
}

func TestSigning_Artifact(t *testing.T) {
	ctx := context.Background()

	t.Run("Error_NotReadyBeforeFirstSignature", func(t *testing.T) {
		f := newFixture(t)
		f.sentEnvelope(t, false, signer("a@example.com"))

		_, err := f.signing.Artifact(ctx, f.signingToken(t, "a@example.com"))
		assert.ErrorIs(t, err, envelopeDomain.ErrNotReady)
		assert.True(t, apperrors.Is(err, apperrors.ErrStateConflict))
	})

	t.Run("Error_TamperedArtifact", func(t *testing.T) {
		f := newFixture(t)
		env := f.sentEnvelope(t, false, signer("a@example.com"), signer("b@example.com"))
		token, session := f.session(t, "a@example.com")
		_, err := f.signing.Sign(ctx, token, textMark(session, placementAt(0.1, 0.1)))
		require.NoError(t, err)

		doc, err := f.docRepo.Get(ctx, env.DocumentID)
		require.NoError(t, err)
		require.NoError(t, f.bucket.WriteAll(ctx, *doc.SignedPath, []byte("%PDF-tampered"), nil))

		_, err = f.signing.Artifact(ctx, token)
		assert.True(t, apperrors.Is(err, apperrors.ErrIntegrityViolation))

		// The chain is broken, so the next signer cannot build on it either.
		tokenB, sessionB := f.session(t, "b@example.com")
		_, err = f.signing.Sign(ctx, tokenB, textMark(sessionB, placementAt(0.5, 0.1)))
		assert.True(t, apperrors.Is(err, apperrors.ErrIntegrityViolation))
	})

	t.Run("Success_SignerDownloadsPartialArtifact", func(t *testing.T) {
		f := newFixture(t)
		f.sentEnvelope(t, false, signer("a@example.com"), signer("b@example.com"))
		token, session := f.session(t, "a@example.com")
		result, err := f.signing.Sign(ctx, token, textMark(session, placementAt(0.1, 0.1)))
		require.NoError(t, err)

		download, err := f.signing.Artifact(ctx, f.signingToken(t, "b@example.com"))
		require.NoError(t, err)
		assert.Equal(t, result.ArtifactHash, download.Hash)
	})
}
