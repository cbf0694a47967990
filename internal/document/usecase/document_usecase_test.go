package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	docDomain "github.com/allisson/esign/internal/document/domain"
	apperrors "github.com/allisson/esign/internal/errors"
	ledgerDomain "github.com/allisson/esign/internal/ledger/domain"
	signingService "github.com/allisson/esign/internal/signing/service"
	"github.com/allisson/esign/internal/storage"
	"github.com/allisson/esign/internal/testutil"
)

type fakeDocumentRepository struct {
	mu        sync.Mutex
	docs      map[uuid.UUID]*docDomain.Document
	createErr error
}

func newFakeDocumentRepository() *fakeDocumentRepository {
	return &fakeDocumentRepository{docs: make(map[uuid.UUID]*docDomain.Document)}
}

func (f *fakeDocumentRepository) Create(ctx context.Context, doc *docDomain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocumentRepository) Get(ctx context.Context, documentID uuid.UUID) (*docDomain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return nil, docDomain.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeDocumentRepository) GetForUpdate(ctx context.Context, documentID uuid.UUID) (*docDomain.Document, error) {
	return f.Get(ctx, documentID)
}

func (f *fakeDocumentRepository) UpdateSignedArtifact(ctx context.Context, doc *docDomain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
	return nil
}

type fakeHistoryReporter struct {
	calledWith uuid.UUID
}

func (f *fakeHistoryReporter) Report(ctx context.Context, documentID uuid.UUID) (*ledgerDomain.Report, error) {
	f.calledWith = documentID
	return &ledgerDomain.Report{DocumentID: documentID, IntegrityValid: true}, nil
}

type documentFixture struct {
	uc      DocumentUseCase
	repo    *fakeDocumentRepository
	store   *storage.BlobStore
	history *fakeHistoryReporter
}

func newDocumentFixture(t *testing.T, maxBytes int64) *documentFixture {
	t.Helper()
	store := storage.NewBlobStore(memblob.OpenBucket(nil))
	t.Cleanup(func() { _ = store.Close() })

	repo := newFakeDocumentRepository()
	history := &fakeHistoryReporter{}
	uc := NewDocumentUseCase(repo, store, signingService.NewEngine(), history, maxBytes, nil)
	return &documentFixture{uc: uc, repo: repo, store: store, history: history}
}

func TestDocumentUseCase_Upload(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.Must(uuid.NewV7())

	t.Run("Success_StoresAndHashes", func(t *testing.T) {
		f := newDocumentFixture(t, 10<<20)
		pdf := testutil.NewPDF(t, 3)

		doc, err := f.uc.Upload(ctx, ownerID, "contract.pdf", bytes.NewReader(pdf))
		require.NoError(t, err)

		assert.Equal(t, ownerID, doc.OwnerID)
		assert.Equal(t, "contract.pdf", doc.Filename)
		assert.Equal(t, "application/pdf", doc.MimeType)
		assert.Equal(t, int64(len(pdf)), doc.Size)
		assert.Equal(t, docDomain.OriginalPath(doc.ID), doc.StoragePath)
		require.Len(t, doc.PageSizes, 3)
		assert.InDelta(t, 612, doc.PageSizes[0].Width, 0.5)
		assert.InDelta(t, 792, doc.PageSizes[0].Height, 0.5)
		assert.False(t, doc.HasSignedArtifact())

		stored, err := f.store.Get(ctx, doc.StoragePath)
		require.NoError(t, err)
		assert.Equal(t, pdf, stored)

		hash, err := f.store.StreamHash(ctx, doc.StoragePath)
		require.NoError(t, err)
		assert.Equal(t, hash, doc.OriginalHash)

		_, err = f.repo.Get(ctx, doc.ID)
		assert.NoError(t, err)
	})

	t.Run("Success_FilenameIsReducedToBase", func(t *testing.T) {
		f := newDocumentFixture(t, 10<<20)

		doc, err := f.uc.Upload(ctx, ownerID, `C:\Users\ana\nda.pdf`, bytes.NewReader(testutil.NewPDF(t, 1)))
		require.NoError(t, err)
		assert.Equal(t, "nda.pdf", doc.Filename)
	})

	t.Run("Error_EmptyFilename", func(t *testing.T) {
		f := newDocumentFixture(t, 10<<20)

		_, err := f.uc.Upload(ctx, ownerID, "  ", bytes.NewReader(testutil.NewPDF(t, 1)))
		assert.ErrorIs(t, err, docDomain.ErrEmptyFilename)
	})

	t.Run("Error_TooLarge", func(t *testing.T) {
		f := newDocumentFixture(t, 64)

		_, err := f.uc.Upload(ctx, ownerID, "big.pdf", bytes.NewReader(testutil.NewPDF(t, 1)))
		assert.ErrorIs(t, err, docDomain.ErrDocumentTooLarge)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_NotAPDF", func(t *testing.T) {
		f := newDocumentFixture(t, 10<<20)

		_, err := f.uc.Upload(ctx, ownerID, "notes.pdf", strings.NewReader("just some text"))
		assert.ErrorIs(t, err, docDomain.ErrUnsupportedMediaType)
	})

	t.Run("Error_MalformedPDF", func(t *testing.T) {
		f := newDocumentFixture(t, 10<<20)

		_, err := f.uc.Upload(ctx, ownerID, "broken.pdf", strings.NewReader("%PDF-1.7\nthis is not a pdf body"))
		assert.ErrorIs(t, err, docDomain.ErrMalformedDocument)
		assert.Equal(t, docDomain.ErrMalformedDocument.Error(), err.Error())
		assert.Empty(t, f.repo.docs)
	})

	t.Run("Error_RepositoryFails", func(t *testing.T) {
		f := newDocumentFixture(t, 10<<20)
		f.repo.createErr = errors.New("database down")

		_, err := f.uc.Upload(ctx, ownerID, "contract.pdf", bytes.NewReader(testutil.NewPDF(t, 1)))
		assert.Error(t, err)
	})
}

func TestDocumentUseCase_Get(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t, 10<<20)
	ownerID := uuid.Must(uuid.NewV7())

	doc, err := f.uc.Upload(ctx, ownerID, "contract.pdf", bytes.NewReader(testutil.NewPDF(t, 1)))
	require.NoError(t, err)

	t.Run("Success_Owner", func(t *testing.T) {
		got, err := f.uc.Get(ctx, ownerID, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, got.ID)
	})

	t.Run("Error_OtherOwnerSeesNotFound", func(t *testing.T) {
		_, err := f.uc.Get(ctx, uuid.Must(uuid.NewV7()), doc.ID)
		assert.ErrorIs(t, err, docDomain.ErrDocumentNotFound)
	})

	t.Run("Success_History", func(t *testing.T) {
		report, err := f.uc.History(ctx, ownerID, doc.ID)
		require.NoError(t, err)
		assert.True(t, report.IntegrityValid)
		assert.Equal(t, doc.ID, f.history.calledWith)
	})

	t.Run("Error_HistoryOtherOwner", func(t *testing.T) {
		_, err := f.uc.History(ctx, uuid.Must(uuid.NewV7()), doc.ID)
		assert.ErrorIs(t, err, docDomain.ErrDocumentNotFound)
	})
}
