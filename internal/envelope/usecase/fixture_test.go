package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	auditService "github.com/allisson/esign/internal/audit/service"
	auditUsecase "github.com/allisson/esign/internal/audit/usecase"
	"github.com/allisson/esign/internal/certificate"
	"github.com/allisson/esign/internal/database"
	docDomain "github.com/allisson/esign/internal/document/domain"
	docUsecase "github.com/allisson/esign/internal/document/usecase"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	"github.com/allisson/esign/internal/envelope/service"
	ledgerUsecase "github.com/allisson/esign/internal/ledger/usecase"
	notificationDomain "github.com/allisson/esign/internal/notification/domain"
	signingService "github.com/allisson/esign/internal/signing/service"
	"github.com/allisson/esign/internal/storage"
	"github.com/allisson/esign/internal/testutil"
)

type fixture struct {
	envelopes EnvelopeUseCase
	signing   SigningUseCase
	documents docUsecase.DocumentUseCase
	ledger    ledgerUsecase.LedgerUseCase

	clock      *fakeClock
	docRepo    *fakeDocumentRepository
	signerRepo *fakeSignerRepository
	signatures *fakeSignatureRepository
	outbox     *fakeOutboxRepository
	steps      *fakeStepRepository
	auditRepo  *fakeAuditLogRepository
	bucket     *blob.Bucket
	ownerID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	bucket := memblob.OpenBucket(nil)
	store := storage.NewBlobStore(bucket)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &fakeClock{now: time.Now().UTC()}

	hasher, err := service.NewArgon2Hasher()
	require.NoError(t, err)
	auditSigner, err := auditService.NewAuditSigner([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	engine := signingService.NewEngine(signingService.WithFooterBand(24))
	docRepo := newFakeDocumentRepository()
	signerRepo := newFakeSignerRepository()
	signatures := newFakeSignatureRepository()
	outbox := &fakeOutboxRepository{}
	steps := &fakeStepRepository{}
	auditRepo := &fakeAuditLogRepository{}

	ledger := ledgerUsecase.NewLedgerUseCase(steps, docRepo, store, nil, logger)

	deps := Dependencies{
		TxManager:    fakeTxManager{},
		Locker:       database.NewKeyedLocker(),
		Envelopes:    newFakeEnvelopeRepository(),
		Signers:      signerRepo,
		Fields:       newFakeFieldRepository(),
		Signatures:   signatures,
		Documents:    docRepo,
		Outbox:       outbox,
		Ledger:       ledger,
		Audit:        auditUsecase.NewAuditLogUseCase(auditRepo, auditSigner, logger),
		Store:        store,
		Renderer:     engine,
		Certificates: certificate.NewGenerator("esign-test"),
		OTP:          service.NewOTPChallenge(hasher, 6, 10*time.Minute, service.WithClock(clock.Now)),
		Sessions:     service.NewSessionTokenService([]byte("session-secret"), 30*time.Minute),
		Logger:       logger,
	}
	opts := Options{PublicBaseURL: "https://sign.example.com", Jurisdiction: "us"}

	return &fixture{
		envelopes:  NewEnvelopeUseCase(deps, opts),
		signing:    NewSigningUseCase(deps, opts),
		documents:  docUsecase.NewDocumentUseCase(docRepo, store, engine, ledger, 25<<20, logger),
		ledger:     ledger,
		clock:      clock,
		docRepo:    docRepo,
		signerRepo: signerRepo,
		signatures: signatures,
		outbox:     outbox,
		steps:      steps,
		auditRepo:  auditRepo,
		bucket:     bucket,
		ownerID:    uuid.Must(uuid.NewV7()),
	}
}

func (f *fixture) upload(t *testing.T, pages int) *docDomain.Document {
	t.Helper()
	doc, err := f.documents.Upload(context.Background(), f.ownerID, "contract.pdf", bytes.NewReader(testutil.NewPDF(t, pages)))
	require.NoError(t, err)
	return doc
}

func (f *fixture) create(t *testing.T, in CreateEnvelopeInput) *envelopeDomain.Envelope {
	t.Helper()
	env, err := f.envelopes.Create(context.Background(), f.ownerID, in)
	require.NoError(t, err)
	return env
}

// sentEnvelope uploads a one-page document and sends an envelope to the given signers.
func (f *fixture) sentEnvelope(t *testing.T, sequential bool, signers ...SignerInput) *envelopeDomain.Envelope {
	t.Helper()
	doc := f.upload(t, 1)
	env := f.create(t, CreateEnvelopeInput{
		DocumentID: doc.ID,
		Subject:    "Please sign",
		Sequential: sequential,
		Signers:    signers,
	})
	sent, err := f.envelopes.Send(context.Background(), f.ownerID, env.ID)
	require.NoError(t, err)
	return sent
}

// invitation returns the newest invitation queued for email.
func (f *fixture) invitation(t *testing.T, email string) notificationDomain.Invitation {
	t.Helper()
	var found *notificationDomain.Invitation
	for _, e := range f.outbox.ofType(notificationDomain.EventSigningInvitation) {
		var inv notificationDomain.Invitation
		require.NoError(t, e.Decode(&inv))
		if inv.Email == email {
			found = &inv
		}
	}
	require.NotNil(t, found, "no invitation for %s", email)
	return *found
}

func (f *fixture) latestOTP(t *testing.T, email string) notificationDomain.OTPDelivery {
	t.Helper()
	var found *notificationDomain.OTPDelivery
	for _, e := range f.outbox.ofType(notificationDomain.EventSigningOTP) {
		var d notificationDomain.OTPDelivery
		require.NoError(t, e.Decode(&d))
		if d.Email == email {
			found = &d
		}
	}
	require.NotNil(t, found, "no otp delivery for %s", email)
	return *found
}

// session verifies the invitation code of email and returns the signing token and
// the session token.
func (f *fixture) session(t *testing.T, email string) (string, string) {
	t.Helper()
	inv := f.invitation(t, email)
	token := tokenFromLink(inv.SigningLink)
	s, err := f.signing.VerifyOTP(context.Background(), token, inv.OTP)
	require.NoError(t, err)
	return token, s.Token
}

func (f *fixture) signingToken(t *testing.T, email string) string {
	t.Helper()
	s := f.signerRepo.byEmail(email)
	require.NotNil(t, s.SigningToken)
	return *s.SigningToken
}

func tokenFromLink(link string) string {
	return link[strings.LastIndex(link, "/")+1:]
}

func signer(email string) SignerInput {
	return SignerInput{Email: email, Name: strings.Split(email, "@")[0], Role: envelopeDomain.RoleSigner}
}

func textMark(session string, placement *envelopeDomain.Placement) SignInput {
	return SignInput{
		SessionToken: session,
		MarkType:     envelopeDomain.MarkText,
		MarkText:     "Signed",
		Consent:      true,
		ConsentText:  "I agree to sign electronically",
		Placement:    placement,
	}
}

func placementAt(x, y float64) *envelopeDomain.Placement {
	return &envelopeDomain.Placement{Page: 1, X: x, Y: y, Width: 0.25, Height: 0.08}
}
