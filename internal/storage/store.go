// Package storage provides an append-only, path-addressed content store over gocloud.dev/blob.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	apperrors "github.com/allisson/esign/internal/errors"
)

// Errors returned by the content store.
var (
	// ErrObjectNotFound indicates no object is stored at the requested path.
	ErrObjectNotFound = apperrors.Wrap(apperrors.ErrNotFound, "stored object not found")

	// ErrObjectExists indicates a write targeted a path that already holds an object.
	ErrObjectExists = apperrors.Wrap(apperrors.ErrConflict, "stored object already exists")

	// ErrInvalidPath indicates an empty or non-relative object path.
	ErrInvalidPath = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid object path")
)

// ContentStore is the storage port consumed by the signing core.
type ContentStore interface {
	// Put writes r to path and returns the SHA-256 (hex) and size of the bytes written.
	Put(ctx context.Context, path string, r io.Reader) (hash string, size int64, err error)
	Get(ctx context.Context, path string) ([]byte, error)
	StreamHash(ctx context.Context, path string) (string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// BlobStore implements ContentStore on a gocloud.dev blob bucket. Objects are never
// overwritten; the blob writer only publishes an object when it is closed successfully.
type BlobStore struct {
	bucket *blob.Bucket
}

// Open opens the bucket addressed by url (file://, mem://, s3://).
func Open(ctx context.Context, url string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open storage bucket")
	}
	return &BlobStore{bucket: bucket}, nil
}

// NewBlobStore wraps an already opened bucket.
func NewBlobStore(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket}
}

// Put streams r into path while hashing it. It fails with ErrObjectExists when the
// path is taken; the conditional write keeps concurrent writers of one path from
// replacing each other. On any error the write is aborted and nothing becomes visible.
func (s *BlobStore) Put(ctx context.Context, path string, r io.Reader) (string, int64, error) {
	if err := validatePath(path); err != nil {
		return "", 0, err
	}

	exists, err := s.Exists(ctx, path)
	if err != nil {
		return "", 0, err
	}
	if exists {
		return "", 0, ErrObjectExists
	}

	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := s.bucket.NewWriter(writeCtx, path, &blob.WriterOptions{
		ContentType: contentTypeFor(path),
		IfNotExist:  true,
	})
	if err != nil {
		return "", 0, writeError(err, "failed to open object writer")
	}

	hasher := sha256.New()
	size, err := io.Copy(w, io.TeeReader(r, hasher))
	if err != nil {
		// Cancelling before Close discards the partial object.
		cancel()
		_ = w.Close()
		return "", 0, writeError(err, "failed to write object")
	}

	if err := w.Close(); err != nil {
		return "", 0, writeError(err, "failed to commit object")
	}

	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}

// Get reads the full object at path.
func (s *BlobStore) Get(ctx context.Context, path string) ([]byte, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	data, err := s.bucket.ReadAll(ctx, path)
	if err != nil {
		return nil, storageError(err, "failed to read object")
	}
	return data, nil
}

// StreamHash computes the SHA-256 (hex) of the object at path without buffering it.
func (s *BlobStore) StreamHash(ctx context.Context, path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}

	rd, err := s.bucket.NewReader(ctx, path, nil)
	if err != nil {
		return "", storageError(err, "failed to open object")
	}
	defer rd.Close() //nolint:errcheck

	hasher := sha256.New()
	if _, err := io.Copy(hasher, rd); err != nil {
		return "", storageError(err, "failed to hash object")
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Exists reports whether an object is stored at path.
func (s *BlobStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := validatePath(path); err != nil {
		return false, err
	}

	ok, err := s.bucket.Exists(ctx, path)
	if err != nil {
		return false, storageError(err, "failed to stat object")
	}
	return ok, nil
}

// Ping checks that the bucket is reachable.
func (s *BlobStore) Ping(ctx context.Context) error {
	ok, err := s.bucket.IsAccessible(ctx)
	if err != nil {
		return storageError(err, "storage bucket unreachable")
	}
	if !ok {
		return apperrors.Wrap(apperrors.ErrStorage, "storage bucket is not accessible")
	}
	return nil
}

// Close releases the bucket.
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

func validatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return apperrors.Wrap(ErrInvalidPath, fmt.Sprintf("%q", path))
	}
	return nil
}

func storageError(err error, message string) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return ErrObjectNotFound
	}
	return apperrors.Wrap(apperrors.Join(apperrors.ErrStorage, err), message)
}

// writeError maps a rejected conditional write to ErrObjectExists.
func writeError(err error, message string) error {
	switch gcerrors.Code(err) {
	case gcerrors.FailedPrecondition, gcerrors.AlreadyExists:
		return ErrObjectExists
	}
	return storageError(err, message)
}

func contentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"):
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
