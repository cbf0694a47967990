package domain

import (
	"github.com/allisson/esign/internal/errors"
)

// Document errors.
var (
	// ErrDocumentNotFound indicates the document does not exist or belongs to another owner.
	ErrDocumentNotFound = errors.Wrap(errors.ErrNotFound, "document not found")

	// ErrUnsupportedMediaType indicates the upload is not a PDF.
	ErrUnsupportedMediaType = errors.Wrap(errors.ErrInvalidInput, "only PDF documents are accepted")

	// ErrDocumentTooLarge indicates the upload exceeds the configured size limit.
	ErrDocumentTooLarge = errors.Wrap(errors.ErrInvalidInput, "document exceeds the maximum upload size")

	// ErrMalformedDocument indicates the PDF could not be parsed.
	ErrMalformedDocument = errors.Wrap(errors.ErrInvalidInput, "document is not a readable PDF")

	// ErrEmptyFilename indicates the upload carried no filename.
	ErrEmptyFilename = errors.Wrap(errors.ErrInvalidInput, "filename is required")
)
