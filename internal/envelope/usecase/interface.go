// Package usecase implements the envelope state machine: the owner workflow (create,
// fields, send, void, downloads) and the signer workflow (view, one-time codes, sign,
// decline).
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/esign/internal/audit/domain"
	"github.com/allisson/esign/internal/certificate"
	docDomain "github.com/allisson/esign/internal/document/domain"
	envelopeDomain "github.com/allisson/esign/internal/envelope/domain"
	ledgerDomain "github.com/allisson/esign/internal/ledger/domain"
	notificationDomain "github.com/allisson/esign/internal/notification/domain"
	signingService "github.com/allisson/esign/internal/signing/service"
)

// EnvelopeRepository persists envelope rows without their signers and fields.
// Implementations honor the transaction in ctx.
type EnvelopeRepository interface {
	Create(ctx context.Context, envelope *envelopeDomain.Envelope) error
	Get(ctx context.Context, envelopeID uuid.UUID) (*envelopeDomain.Envelope, error)

	// GetForUpdate is Get with a row lock held until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, envelopeID uuid.UUID) (*envelopeDomain.Envelope, error)

	// Update persists the lifecycle columns.
	Update(ctx context.Context, envelope *envelopeDomain.Envelope) error
}

// SignerRepository persists envelope signers.
type SignerRepository interface {
	Create(ctx context.Context, signer *envelopeDomain.Signer) error

	// ListByEnvelope returns signers ordered by routing order.
	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*envelopeDomain.Signer, error)

	GetBySigningToken(ctx context.Context, token string) (*envelopeDomain.Signer, error)
	Update(ctx context.Context, signer *envelopeDomain.Signer) error
}

// FieldRepository persists document fields.
type FieldRepository interface {
	Create(ctx context.Context, field *envelopeDomain.Field) error
	Update(ctx context.Context, field *envelopeDomain.Field) error
	Delete(ctx context.Context, fieldID uuid.UUID) error
	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*envelopeDomain.Field, error)
}

// SignatureRepository persists captured marks, one per signer.
type SignatureRepository interface {
	// Upsert inserts the signature or replaces the one stored for the same signer.
	Upsert(ctx context.Context, signature *envelopeDomain.Signature) error
	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*envelopeDomain.Signature, error)
}

// DocumentRepository is the document access the state machine needs.
type DocumentRepository interface {
	Get(ctx context.Context, documentID uuid.UUID) (*docDomain.Document, error)
	GetForUpdate(ctx context.Context, documentID uuid.UUID) (*docDomain.Document, error)
	UpdateSignedArtifact(ctx context.Context, doc *docDomain.Document) error
}

// OutboxEventRepository stores notifications in the caller's transaction.
type OutboxEventRepository interface {
	Create(ctx context.Context, event *notificationDomain.OutboxEvent) error
}

// Ledger records signing steps.
type Ledger interface {
	NextStep(ctx context.Context, documentID uuid.UUID) (int, error)
	AppendStep(
		ctx context.Context,
		documentID, envelopeID uuid.UUID,
		signer ledgerDomain.SignerSnapshot,
		artifactPath, artifactHash string,
	) (*ledgerDomain.Step, error)
	History(ctx context.Context, documentID uuid.UUID) ([]*ledgerDomain.Step, error)
}

// AuditRecorder appends to and reads the envelope audit trail.
type AuditRecorder interface {
	Record(
		ctx context.Context,
		envelopeID uuid.UUID,
		event auditDomain.Event,
		actor string,
		details map[string]any,
	) error
	ListByEnvelope(ctx context.Context, envelopeID uuid.UUID, offset, limit int) ([]*auditDomain.AuditLog, error)
}

// Renderer produces signed artifacts.
type Renderer interface {
	Sign(ctx context.Context, base []byte, req signingService.RenderRequest) (*signingService.Artifact, error)
	FooterBand() float64
}

// CertificateGenerator renders completion certificates.
type CertificateGenerator interface {
	Generate(in certificate.Input) ([]byte, error)
}

// SignerInput describes one party of a new envelope.
type SignerInput struct {
	Email        string
	Name         string
	Role         envelopeDomain.Role
	RoutingOrder int
}

// FieldInput describes a field. SignerIndex addresses CreateEnvelopeInput.Signers and
// is only used on creation; later mutations use SignerID.
type FieldInput struct {
	SignerIndex int
	SignerID    uuid.UUID
	Type        envelopeDomain.FieldType
	Page        int
	X           float64
	Y           float64
	Width       float64
	Height      float64
	Required    bool
}

// CreateEnvelopeInput is a new draft envelope.
type CreateEnvelopeInput struct {
	DocumentID uuid.UUID
	Subject    string
	Message    string
	Sequential bool
	Signers    []SignerInput
	Fields     []FieldInput
}

// Download is a file handed to the caller.
type Download struct {
	Filename    string
	ContentType string
	Hash        string
	Content     []byte
}

// SigningView is what a signer sees when opening a signing link.
type SigningView struct {
	Envelope *envelopeDomain.Envelope
	Signer   *envelopeDomain.Signer
	Document *docDomain.Document
	Fields   []*envelopeDomain.Field
}

// SignInput is one signature submission.
type SignInput struct {
	SessionToken         string
	MarkType             envelopeDomain.MarkType
	MarkText             string
	MarkImage            []byte
	Consent              bool
	ConsentText          string
	Placement            *envelopeDomain.Placement
	SuppressMarkMetadata bool
	FieldValues          map[uuid.UUID]string
	DeviceFingerprint    string
}

// SignResult describes the recorded signing step.
type SignResult struct {
	SignedAt     time.Time
	ArtifactHash string
	Step         int
	Status       envelopeDomain.Status
}

// Session is a signer session granted after one-time code verification.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// EnvelopeUseCase is the owner-facing envelope API. Every method scopes the
// envelope to ownerID and reports foreign envelopes as not found.
type EnvelopeUseCase interface {
	Create(ctx context.Context, ownerID uuid.UUID, in CreateEnvelopeInput) (*envelopeDomain.Envelope, error)
	Get(ctx context.Context, ownerID, envelopeID uuid.UUID) (*envelopeDomain.Envelope, error)

	AddField(ctx context.Context, ownerID, envelopeID uuid.UUID, in FieldInput) (*envelopeDomain.Field, error)
	UpdateField(
		ctx context.Context,
		ownerID, envelopeID, fieldID uuid.UUID,
		in FieldInput,
	) (*envelopeDomain.Field, error)
	DeleteField(ctx context.Context, ownerID, envelopeID, fieldID uuid.UUID) error

	// Send issues signing links and one-time codes and queues the invitations.
	Send(ctx context.Context, ownerID, envelopeID uuid.UUID) (*envelopeDomain.Envelope, error)
	Void(ctx context.Context, ownerID, envelopeID uuid.UUID, reason string) (*envelopeDomain.Envelope, error)

	// Artifact returns the latest signed PDF after checking it against its recorded hash.
	Artifact(ctx context.Context, ownerID, envelopeID uuid.UUID) (*Download, error)
	Certificate(ctx context.Context, ownerID, envelopeID uuid.UUID) (*Download, error)
	AuditLogs(ctx context.Context, ownerID, envelopeID uuid.UUID, offset, limit int) ([]*auditDomain.AuditLog, error)
}

// SigningUseCase is the signer-facing API addressed by signing link tokens.
type SigningUseCase interface {
	View(ctx context.Context, signingToken string) (*SigningView, error)
	RequestOTP(ctx context.Context, signingToken string) error
	VerifyOTP(ctx context.Context, signingToken, code string) (*Session, error)
	Sign(ctx context.Context, signingToken string, in SignInput) (*SignResult, error)
	Decline(ctx context.Context, signingToken, sessionToken, reason string) error
	Artifact(ctx context.Context, signingToken string) (*Download, error)
	CaptureFingerprint(ctx context.Context, signingToken, fingerprint string) error
}
