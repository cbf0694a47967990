// Package usecase implements document upload and the owner-facing read model.
package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	docDomain "github.com/allisson/esign/internal/document/domain"
	apperrors "github.com/allisson/esign/internal/errors"
	ledgerDomain "github.com/allisson/esign/internal/ledger/domain"
	"github.com/allisson/esign/internal/storage"
)

const pdfMimeType = "application/pdf"

// DocumentRepository persists documents. Implementations honor the transaction in ctx.
type DocumentRepository interface {
	Create(ctx context.Context, doc *docDomain.Document) error

	// Get returns ErrDocumentNotFound when the document does not exist.
	Get(ctx context.Context, documentID uuid.UUID) (*docDomain.Document, error)

	// GetForUpdate is Get with a row lock held until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, documentID uuid.UUID) (*docDomain.Document, error)

	// UpdateSignedArtifact persists SignedPath, SignedHash and UpdatedAt.
	UpdateSignedArtifact(ctx context.Context, doc *docDomain.Document) error
}

// PageSizer detects the media box size of every page of a PDF.
type PageSizer interface {
	PageSizes(pdf []byte) ([]docDomain.PageSize, error)
}

// HistoryReporter produces the signature history of a document.
type HistoryReporter interface {
	Report(ctx context.Context, documentID uuid.UUID) (*ledgerDomain.Report, error)
}

// DocumentUseCase is the owner-facing document API.
type DocumentUseCase interface {
	// Upload sniffs, measures and stores a PDF and records it for ownerID.
	Upload(ctx context.Context, ownerID uuid.UUID, filename string, content io.Reader) (*docDomain.Document, error)

	// Get returns the document when it belongs to ownerID.
	Get(ctx context.Context, ownerID, documentID uuid.UUID) (*docDomain.Document, error)

	// History returns the original hash, the signing steps and the current integrity verdict.
	History(ctx context.Context, ownerID, documentID uuid.UUID) (*ledgerDomain.Report, error)
}

type documentUseCase struct {
	docRepo        DocumentRepository
	store          storage.ContentStore
	pageSizer      PageSizer
	history        HistoryReporter
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewDocumentUseCase creates the document use case.
func NewDocumentUseCase(
	docRepo DocumentRepository,
	store storage.ContentStore,
	pageSizer PageSizer,
	history HistoryReporter,
	maxUploadBytes int64,
	logger *slog.Logger,
) DocumentUseCase {
	return &documentUseCase{
		docRepo:        docRepo,
		store:          store,
		pageSizer:      pageSizer,
		history:        history,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (d *documentUseCase) Upload(
	ctx context.Context,
	ownerID uuid.UUID,
	filename string,
	content io.Reader,
) (*docDomain.Document, error) {
	filename = strings.TrimSpace(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	if filename == "" || filename == "." || filename == "/" {
		return nil, docDomain.ErrEmptyFilename
	}

	data, err := io.ReadAll(io.LimitReader(content, d.maxUploadBytes+1))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read upload")
	}
	if int64(len(data)) > d.maxUploadBytes {
		return nil, docDomain.ErrDocumentTooLarge
	}

	mime := mimetype.Detect(data)
	if !mime.Is(pdfMimeType) {
		return nil, docDomain.ErrUnsupportedMediaType
	}

	pageSizes, err := d.pageSizer.PageSizes(data)
	if err != nil {
		if d.logger != nil {
			d.logger.Debug("rejected unreadable pdf", slog.String("filename", filename), slog.Any("error", err))
		}
		return nil, docDomain.ErrMalformedDocument
	}

	now := time.Now().UTC()
	doc := &docDomain.Document{
		ID:        uuid.Must(uuid.NewV7()),
		OwnerID:   ownerID,
		Filename:  filename,
		MimeType:  pdfMimeType,
		PageSizes: pageSizes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	doc.StoragePath = docDomain.OriginalPath(doc.ID)

	hash, size, err := d.store.Put(ctx, doc.StoragePath, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	doc.OriginalHash = hash
	doc.Size = size

	if err := d.docRepo.Create(ctx, doc); err != nil {
		return nil, apperrors.Wrap(err, "failed to create document")
	}

	if d.logger != nil {
		d.logger.Info("document uploaded",
			slog.String("document_id", doc.ID.String()),
			slog.String("owner_id", ownerID.String()),
			slog.Int64("size", size),
			slog.Int("pages", len(pageSizes)),
		)
	}
	return doc, nil
}

func (d *documentUseCase) Get(ctx context.Context, ownerID, documentID uuid.UUID) (*docDomain.Document, error) {
	doc, err := d.docRepo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, docDomain.ErrDocumentNotFound
	}
	return doc, nil
}

func (d *documentUseCase) History(
	ctx context.Context,
	ownerID, documentID uuid.UUID,
) (*ledgerDomain.Report, error) {
	if _, err := d.Get(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	return d.history.Report(ctx, documentID)
}
