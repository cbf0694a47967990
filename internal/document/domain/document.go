// Package domain defines the uploaded document and its signed-artifact pointer.
package domain

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Letter is the page size assumed when a document carries no detected page sizes.
var Letter = PageSize{Width: 612, Height: 792}

// PageSize is a page's media box size in points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Document is an uploaded PDF. OriginalHash is fixed at upload; SignedPath and
// SignedHash always describe the latest complete signed artifact.
type Document struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Filename     string
	MimeType     string
	Size         int64
	StoragePath  string
	OriginalHash string
	PageSizes    []PageSize
	SignedPath   *string
	SignedHash   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasSignedArtifact reports whether at least one signing step has been recorded.
func (d *Document) HasSignedArtifact() bool {
	return d.SignedPath != nil && d.SignedHash != nil
}

// CurrentArtifact returns the path and hash of the newest complete version, which is
// the original upload until the first signing step.
func (d *Document) CurrentArtifact() (string, string) {
	if d.HasSignedArtifact() {
		return *d.SignedPath, *d.SignedHash
	}
	return d.StoragePath, d.OriginalHash
}

// SetSignedArtifact points the document at a new complete signed version.
func (d *Document) SetSignedArtifact(artifactPath, hash string, at time.Time) {
	d.SignedPath = &artifactPath
	d.SignedHash = &hash
	d.UpdatedAt = at
}

// Page returns the size of the 1-based page, or false when out of range.
func (d *Document) Page(page int) (PageSize, bool) {
	pages := d.Pages()
	if page < 1 || page > len(pages) {
		return PageSize{}, false
	}
	return pages[page-1], true
}

// Pages returns the detected page sizes or a single Letter page.
func (d *Document) Pages() []PageSize {
	if len(d.PageSizes) == 0 {
		return []PageSize{Letter}
	}
	return d.PageSizes
}

// SignedFilename is the download name of the signed artifact.
func (d *Document) SignedFilename() string {
	base := strings.TrimSuffix(path.Base(d.Filename), path.Ext(d.Filename))
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + "-signed.pdf"
}

// OriginalPath is the content-store path of an uploaded document.
func OriginalPath(documentID uuid.UUID) string {
	return fmt.Sprintf("documents/%s/original.pdf", documentID)
}

// SignedArtifactPath is a unique content-store path for one signing step.
func SignedArtifactPath(documentID uuid.UUID, step int, nonce uuid.UUID) string {
	return fmt.Sprintf("documents/%s/signed/%04d-%s.pdf", documentID, step, nonce)
}

// MarkImagePath is the content-store path of a signer's raw mark image.
func MarkImagePath(documentID, signerID uuid.UUID, ext string) string {
	return fmt.Sprintf("documents/%s/marks/%s-%s%s", documentID, signerID, uuid.Must(uuid.NewV7()), ext)
}
