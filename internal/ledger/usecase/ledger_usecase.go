// Package usecase maintains and verifies the signing history of documents.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	docDomain "github.com/allisson/esign/internal/document/domain"
	apperrors "github.com/allisson/esign/internal/errors"
	ledgerDomain "github.com/allisson/esign/internal/ledger/domain"
	"github.com/allisson/esign/internal/metrics"
	"github.com/allisson/esign/internal/storage"
)

// StepRepository persists ledger steps. Implementations honor the transaction in ctx.
type StepRepository interface {
	CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error)
	Create(ctx context.Context, step *ledgerDomain.Step) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*ledgerDomain.Step, error)
}

// DocumentReader loads documents regardless of owner.
type DocumentReader interface {
	Get(ctx context.Context, documentID uuid.UUID) (*docDomain.Document, error)
}

// LedgerUseCase is the integrity ledger.
type LedgerUseCase interface {
	// AppendStep records the next step for a document. It must run inside the
	// transaction that also updates the document's signed artifact, so the count and
	// the insert see the same state.
	AppendStep(
		ctx context.Context,
		documentID, envelopeID uuid.UUID,
		signer ledgerDomain.SignerSnapshot,
		artifactPath, artifactHash string,
	) (*ledgerDomain.Step, error)

	// NextStep returns the step number AppendStep would assign now.
	NextStep(ctx context.Context, documentID uuid.UUID) (int, error)

	// VerifyCurrent re-hashes the document's current artifact and compares it with the
	// recorded hash and with the newest ledger step.
	VerifyCurrent(ctx context.Context, documentID uuid.UUID) (*ledgerDomain.Verification, error)

	// History lists the steps of a document ordered by step number.
	History(ctx context.Context, documentID uuid.UUID) ([]*ledgerDomain.Step, error)

	// VerifyHistory re-hashes every recorded artifact.
	VerifyHistory(ctx context.Context, documentID uuid.UUID) ([]ledgerDomain.StepVerification, error)

	// Report returns the original hash, the steps and the current integrity verdict.
	Report(ctx context.Context, documentID uuid.UUID) (*ledgerDomain.Report, error)
}

type ledgerUseCase struct {
	stepRepo StepRepository
	docRepo  DocumentReader
	store    storage.ContentStore
	metrics  metrics.BusinessMetrics
	logger   *slog.Logger
}

// NewLedgerUseCase creates the integrity ledger.
func NewLedgerUseCase(
	stepRepo StepRepository,
	docRepo DocumentReader,
	store storage.ContentStore,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) LedgerUseCase {
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &ledgerUseCase{
		stepRepo: stepRepo,
		docRepo:  docRepo,
		store:    store,
		metrics:  businessMetrics,
		logger:   logger,
	}
}

func (l *ledgerUseCase) AppendStep(
	ctx context.Context,
	documentID, envelopeID uuid.UUID,
	signer ledgerDomain.SignerSnapshot,
	artifactPath, artifactHash string,
) (*ledgerDomain.Step, error) {
	count, err := l.stepRepo.CountByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	step := &ledgerDomain.Step{
		ID:           uuid.Must(uuid.NewV7()),
		DocumentID:   documentID,
		EnvelopeID:   envelopeID,
		SignerID:     signer.SignerID,
		SignerEmail:  signer.Email,
		SignerName:   signer.Name,
		Step:         count + 1,
		ArtifactPath: artifactPath,
		ArtifactHash: artifactHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.stepRepo.Create(ctx, step); err != nil {
		return nil, err
	}
	return step, nil
}

func (l *ledgerUseCase) NextStep(ctx context.Context, documentID uuid.UUID) (int, error) {
	count, err := l.stepRepo.CountByDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

func (l *ledgerUseCase) VerifyCurrent(ctx context.Context, documentID uuid.UUID) (*ledgerDomain.Verification, error) {
	doc, err := l.docRepo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	steps, err := l.stepRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	path, recorded := doc.CurrentArtifact()
	verification, err := l.verify(ctx, path, recorded)
	if err != nil {
		return nil, err
	}

	if len(steps) > 0 {
		last := steps[len(steps)-1]
		if !doc.HasSignedArtifact() || last.ArtifactHash != recorded || last.ArtifactPath != path {
			verification.Valid = false
		}
	} else if doc.HasSignedArtifact() {
		verification.Valid = false
	}

	l.record(ctx, "current", documentID, verification)
	if !verification.Valid {
		return verification, ledgerDomain.ErrIntegrityMismatch
	}
	return verification, nil
}

func (l *ledgerUseCase) History(ctx context.Context, documentID uuid.UUID) ([]*ledgerDomain.Step, error) {
	return l.stepRepo.ListByDocument(ctx, documentID)
}

func (l *ledgerUseCase) VerifyHistory(
	ctx context.Context,
	documentID uuid.UUID,
) ([]ledgerDomain.StepVerification, error) {
	steps, err := l.stepRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	results := make([]ledgerDomain.StepVerification, 0, len(steps))
	for i, step := range steps {
		verification, err := l.verify(ctx, step.ArtifactPath, step.ArtifactHash)
		if err != nil {
			return nil, err
		}
		if step.Step != i+1 {
			verification.Valid = false
		}
		l.record(ctx, "history", documentID, verification)
		results = append(results, ledgerDomain.StepVerification{Step: step, Verification: *verification})
	}
	return results, nil
}

func (l *ledgerUseCase) Report(ctx context.Context, documentID uuid.UUID) (*ledgerDomain.Report, error) {
	doc, err := l.docRepo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	verification, err := l.VerifyCurrent(ctx, documentID)
	if err != nil && !apperrors.Is(err, ledgerDomain.ErrIntegrityMismatch) {
		return nil, err
	}

	steps, err := l.stepRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return &ledgerDomain.Report{
		DocumentID:     doc.ID,
		OriginalHash:   doc.OriginalHash,
		Steps:          steps,
		IntegrityValid: verification.Valid,
	}, nil
}

// verify re-hashes path. A missing object is reported as an invalid verification
// rather than an error.
func (l *ledgerUseCase) verify(ctx context.Context, path, recorded string) (*ledgerDomain.Verification, error) {
	v := &ledgerDomain.Verification{Path: path, RecordedHash: recorded}

	current, err := l.store.StreamHash(ctx, path)
	if err != nil {
		if apperrors.Is(err, storage.ErrObjectNotFound) {
			return v, nil
		}
		return nil, err
	}

	v.CurrentHash = current
	v.Valid = current == recorded
	return v, nil
}

func (l *ledgerUseCase) record(ctx context.Context, source string, documentID uuid.UUID, v *ledgerDomain.Verification) {
	l.metrics.RecordIntegrityCheck(ctx, source, v.Valid)
	if !v.Valid && l.logger != nil {
		l.logger.Error("document integrity check failed",
			slog.String("document_id", documentID.String()),
			slog.String("path", v.Path),
			slog.String("recorded_hash", v.RecordedHash),
			slog.String("current_hash", v.CurrentHash),
		)
	}
}
