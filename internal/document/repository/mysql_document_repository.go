package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	docDomain "github.com/allisson/esign/internal/document/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

// MySQLDocumentRepository implements Document persistence for MySQL. UUIDs are BINARY(16).
type MySQLDocumentRepository struct {
	db *sql.DB
}

// NewMySQLDocumentRepository creates a new MySQL Document repository.
func NewMySQLDocumentRepository(db *sql.DB) *MySQLDocumentRepository {
	return &MySQLDocumentRepository{db: db}
}

// Create inserts a new Document.
func (m *MySQLDocumentRepository) Create(ctx context.Context, doc *docDomain.Document) error {
	querier := database.GetTx(ctx, m.db)

	pageSizes, err := json.Marshal(doc.PageSizes)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal page sizes")
	}

	query := `INSERT INTO documents (` + documentColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		database.BinaryUUID(doc.ID),
		database.BinaryUUID(doc.OwnerID),
		doc.Filename,
		doc.MimeType,
		doc.Size,
		doc.StoragePath,
		doc.OriginalHash,
		pageSizes,
		doc.SignedPath,
		doc.SignedHash,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create document")
	}
	return nil
}

// Get retrieves a Document by ID. Returns ErrDocumentNotFound if it doesn't exist.
func (m *MySQLDocumentRepository) Get(ctx context.Context, documentID uuid.UUID) (*docDomain.Document, error) {
	querier := database.GetTx(ctx, m.db)
	row := querier.QueryRowContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`,
		database.BinaryUUID(documentID),
	)
	return scanDocument(row)
}

// GetForUpdate retrieves a Document and locks its row until the transaction ends.
func (m *MySQLDocumentRepository) GetForUpdate(
	ctx context.Context,
	documentID uuid.UUID,
) (*docDomain.Document, error) {
	querier := database.GetTx(ctx, m.db)
	row := querier.QueryRowContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ? FOR UPDATE`,
		database.BinaryUUID(documentID),
	)
	return scanDocument(row)
}

// UpdateSignedArtifact moves the document's signed artifact pointer.
func (m *MySQLDocumentRepository) UpdateSignedArtifact(ctx context.Context, doc *docDomain.Document) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE documents
			  SET signed_pdf_path = ?,
				  signed_pdf_hash = ?,
				  updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		doc.SignedPath,
		doc.SignedHash,
		doc.UpdatedAt,
		database.BinaryUUID(doc.ID),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update document")
	}
	return checkAffected(result)
}
