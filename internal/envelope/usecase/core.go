package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	docDomain "github.com/allisson/esign/internal/document/domain"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	"github.com/allisson/esign/internal/envelope/service"
	apperrors "github.com/allisson/esign/internal/errors"
	"github.com/allisson/esign/internal/metrics"
	notificationDomain "github.com/allisson/esign/internal/notification/domain"
	"github.com/allisson/esign/internal/storage"
)

// auditPageSize bounds the audit entries loaded per query when rendering certificates.
const auditPageSize = 500

// Dependencies are the collaborators shared by the owner and signer use cases.
type Dependencies struct {
	TxManager    database.TxManager
	Locker       *database.KeyedLocker
	Envelopes    EnvelopeRepository
	Signers      SignerRepository
	Fields       FieldRepository
	Signatures   SignatureRepository
	Documents    DocumentRepository
	Outbox       OutboxEventRepository
	Ledger       Ledger
	Audit        AuditRecorder
	Store        storage.ContentStore
	Renderer     Renderer
	Certificates CertificateGenerator
	OTP          *service.OTPChallenge
	Sessions     *service.SessionTokenService
	Metrics      metrics.BusinessMetrics
	Logger       *slog.Logger
}

// Options tune links and the signing footer.
type Options struct {
	PublicBaseURL string
	Jurisdiction  string
}

type core struct {
	Dependencies
	opts Options
}

func newCore(deps Dependencies, opts Options) *core {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoOpBusinessMetrics()
	}
	if deps.Locker == nil {
		deps.Locker = database.NewKeyedLocker()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &core{Dependencies: deps, opts: opts}
}

// now is the single clock of the state machine; it follows the one-time code clock
// so expiry checks and recorded timestamps agree.
func (c *core) now() time.Time {
	return c.OTP.Now().UTC()
}

func envelopeLockKey(id uuid.UUID) string { return "envelope:" + id.String() }
func documentLockKey(id uuid.UUID) string { return "document:" + id.String() }

// mutate runs fn on the locked envelope inside one transaction. The in-process lock
// serializes callers of this process and the row lock serializes other processes.
func (c *core) mutate(
	ctx context.Context,
	envelopeID uuid.UUID,
	fn func(ctx context.Context, env *envelopeDomain.Envelope) error,
) error {
	unlock, err := c.Locker.Lock(ctx, envelopeLockKey(envelopeID))
	if err != nil {
		return err
	}
	defer unlock()

	return c.TxManager.WithTx(ctx, func(ctx context.Context) error {
		env, err := c.Envelopes.GetForUpdate(ctx, envelopeID)
		if err != nil {
			return err
		}
		if err := c.loadParties(ctx, env); err != nil {
			return err
		}
		return fn(ctx, env)
	})
}

// lockDocument must only be taken while the envelope lock is held, which keeps the
// acquisition order envelope then document for every caller.
func (c *core) lockDocument(ctx context.Context, documentID uuid.UUID) (func(), error) {
	return c.Locker.Lock(ctx, documentLockKey(documentID))
}

func (c *core) loadEnvelope(ctx context.Context, envelopeID uuid.UUID) (*envelopeDomain.Envelope, error) {
	env, err := c.Envelopes.Get(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	if err := c.loadParties(ctx, env); err != nil {
		return nil, err
	}
	return env, nil
}

func (c *core) loadParties(ctx context.Context, env *envelopeDomain.Envelope) error {
	signers, err := c.Signers.ListByEnvelope(ctx, env.ID)
	if err != nil {
		return err
	}
	fields, err := c.Fields.ListByEnvelope(ctx, env.ID)
	if err != nil {
		return err
	}
	env.Signers = signers
	env.Fields = fields
	return nil
}

func (c *core) signerByToken(ctx context.Context, token string) (*envelopeDomain.Signer, error) {
	if strings.TrimSpace(token) == "" {
		return nil, envelopeDomain.ErrSignerNotFound
	}
	return c.Signers.GetBySigningToken(ctx, token)
}

func (c *core) enqueue(ctx context.Context, eventType string, payload any) error {
	event, err := notificationDomain.NewOutboxEvent(eventType, payload)
	if err != nil {
		return err
	}
	return apperrors.Wrap(c.Outbox.Create(ctx, event), "failed to create outbox event")
}

func (c *core) signingLink(s *envelopeDomain.Signer) string {
	if s.SigningToken == nil {
		return ""
	}
	return service.SigningLink(c.opts.PublicBaseURL, *s.SigningToken)
}

// readVerified loads path and fails with ErrArtifactIntegrity unless its SHA-256
// equals hash. A referenced object that is gone is also an integrity failure.
func (c *core) readVerified(ctx context.Context, source, path, hash string) ([]byte, error) {
	data, err := c.Store.Get(ctx, path)
	if err != nil {
		if apperrors.Is(err, storage.ErrObjectNotFound) {
			c.integrityFailure(ctx, source, path, hash, "")
			return nil, apperrors.Wrap(envelopeDomain.ErrArtifactIntegrity, "referenced artifact is missing")
		}
		return nil, err
	}

	sum := sha256.Sum256(data)
	current := hex.EncodeToString(sum[:])
	if current != hash {
		c.integrityFailure(ctx, source, path, hash, current)
		return nil, envelopeDomain.ErrArtifactIntegrity
	}

	c.Metrics.RecordIntegrityCheck(ctx, source, true)
	return data, nil
}

func (c *core) integrityFailure(ctx context.Context, source, path, recorded, current string) {
	c.Metrics.RecordIntegrityCheck(ctx, source, false)
	c.Logger.Error("artifact integrity violation",
		slog.String("source", source),
		slog.String("path", path),
		slog.String("recorded_hash", recorded),
		slog.String("current_hash", current),
	)
}

// signedArtifact returns the latest signed version of the envelope's document.
func (c *core) signedArtifact(ctx context.Context, env *envelopeDomain.Envelope) (*Download, error) {
	if !env.Status.HasSignedArtifact() {
		return nil, envelopeDomain.ErrNotReady
	}

	doc, err := c.Documents.Get(ctx, env.DocumentID)
	if err != nil {
		return nil, err
	}
	if !doc.HasSignedArtifact() {
		return nil, envelopeDomain.ErrNotReady
	}

	data, err := c.readVerified(ctx, "download", *doc.SignedPath, *doc.SignedHash)
	if err != nil {
		return nil, err
	}

	return &Download{
		Filename:    doc.SignedFilename(),
		ContentType: "application/pdf",
		Hash:        *doc.SignedHash,
		Content:     data,
	}, nil
}

// validateBoxes checks a complete proposed set of boxes against the document geometry
// and the footer band reserved on its last page.
func (c *core) validateBoxes(doc *docDomain.Document, boxes []service.Box) error {
	return service.ValidateDocument(boxes, doc.Pages(), service.DocumentOptions{
		FooterBand: c.Renderer.FooterBand(),
	}).Err()
}

func fieldBox(ref string, f *envelopeDomain.Field) service.Box {
	return service.Box{Ref: ref, Page: f.Page, X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}
}

func fieldBoxes(fields []*envelopeDomain.Field) []service.Box {
	boxes := make([]service.Box, 0, len(fields))
	for _, f := range fields {
		boxes = append(boxes, fieldBox(f.ID.String(), f))
	}
	return boxes
}

func ownerActor(ownerID uuid.UUID) string {
	return "owner:" + ownerID.String()
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
