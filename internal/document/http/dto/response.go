// Package dto provides response bodies of the document endpoints.
package dto

import (
	"time"

	docDomain "github.com/allisson/esign/internal/document/domain"
	ledgerDomain "github.com/allisson/esign/internal/ledger/domain"
)

// DocumentResponse represents a stored document. Storage paths are never exposed.
type DocumentResponse struct {
	ID           string               `json:"id"`
	Filename     string               `json:"filename"`
	MimeType     string               `json:"mime_type"`
	Size         int64                `json:"size"`
	OriginalHash string               `json:"original_hash"`
	PageCount    int                  `json:"page_count"`
	PageSizes    []docDomain.PageSize `json:"page_sizes"`
	SignedHash   *string              `json:"signed_hash,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// MapDocumentToResponse converts a domain document to an API response.
func MapDocumentToResponse(doc *docDomain.Document) DocumentResponse {
	pages := doc.Pages()
	return DocumentResponse{
		ID:           doc.ID.String(),
		Filename:     doc.Filename,
		MimeType:     doc.MimeType,
		Size:         doc.Size,
		OriginalHash: doc.OriginalHash,
		PageCount:    len(pages),
		PageSizes:    pages,
		SignedHash:   doc.SignedHash,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

// StepResponse is one entry of the signature history.
type StepResponse struct {
	Step         int       `json:"step"`
	EnvelopeID   string    `json:"envelope_id"`
	SignerID     string    `json:"signer_id"`
	SignerEmail  string    `json:"signer_email"`
	SignerName   string    `json:"signer_name"`
	ArtifactHash string    `json:"artifact_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryResponse is the signature history of a document.
type HistoryResponse struct {
	DocumentID     string         `json:"document_id"`
	OriginalHash   string         `json:"original_hash"`
	Steps          []StepResponse `json:"steps"`
	IntegrityValid bool           `json:"integrity_valid"`
}

// MapReportToResponse converts a ledger report to an API response.
func MapReportToResponse(report *ledgerDomain.Report) HistoryResponse {
	steps := make([]StepResponse, 0, len(report.Steps))
	for _, s := range report.Steps {
		steps = append(steps, StepResponse{
			Step:         s.Step,
			EnvelopeID:   s.EnvelopeID.String(),
			SignerID:     s.SignerID.String(),
			SignerEmail:  s.SignerEmail,
			SignerName:   s.SignerName,
			ArtifactHash: s.ArtifactHash,
			CreatedAt:    s.CreatedAt,
		})
	}
	return HistoryResponse{
		DocumentID:     report.DocumentID.String(),
		OriginalHash:   report.OriginalHash,
		Steps:          steps,
		IntegrityValid: report.IntegrityValid,
	}
}
