// Package repository persists documents in PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	docDomain "github.com/allisson/esign/internal/document/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

const documentColumns = `id, owner_id, filename, mime_type, size, storage_path, original_hash,
			  page_sizes, signed_pdf_path, signed_pdf_hash, created_at, updated_at`

// PostgreSQLDocumentRepository implements Document persistence for PostgreSQL.
type PostgreSQLDocumentRepository struct {
	db *sql.DB
}

// NewPostgreSQLDocumentRepository creates a new PostgreSQL Document repository.
func NewPostgreSQLDocumentRepository(db *sql.DB) *PostgreSQLDocumentRepository {
	return &PostgreSQLDocumentRepository{db: db}
}

// Create inserts a new Document.
func (p *PostgreSQLDocumentRepository) Create(ctx context.Context, doc *docDomain.Document) error {
	querier := database.GetTx(ctx, p.db)

	pageSizes, err := json.Marshal(doc.PageSizes)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal page sizes")
	}

	query := `INSERT INTO documents (` + documentColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = querier.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OwnerID,
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
func (p *PostgreSQLDocumentRepository) Get(ctx context.Context, documentID uuid.UUID) (*docDomain.Document, error) {
	return p.get(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, documentID)
}

// GetForUpdate retrieves a Document and locks its row until the transaction ends.
func (p *PostgreSQLDocumentRepository) GetForUpdate(
	ctx context.Context,
	documentID uuid.UUID,
) (*docDomain.Document, error) {
	return p.get(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, documentID)
}

func (p *PostgreSQLDocumentRepository) get(
	ctx context.Context,
	query string,
	documentID uuid.UUID,
) (*docDomain.Document, error) {
	querier := database.GetTx(ctx, p.db)
	return scanDocument(querier.QueryRowContext(ctx, query, documentID))
}

// UpdateSignedArtifact moves the document's signed artifact pointer.
func (p *PostgreSQLDocumentRepository) UpdateSignedArtifact(ctx context.Context, doc *docDomain.Document) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE documents
			  SET signed_pdf_path = $1,
				  signed_pdf_hash = $2,
				  updated_at = $3
			  WHERE id = $4`

	result, err := querier.ExecContext(ctx, query, doc.SignedPath, doc.SignedHash, doc.UpdatedAt, doc.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update document")
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return docDomain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row *sql.Row) (*docDomain.Document, error) {
	var doc docDomain.Document
	var pageSizes []byte
	var signedPath, signedHash sql.NullString

	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Filename,
		&doc.MimeType,
		&doc.Size,
		&doc.StoragePath,
		&doc.OriginalHash,
		&pageSizes,
		&signedPath,
		&signedHash,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docDomain.ErrDocumentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get document")
	}

	if len(pageSizes) > 0 {
		if err := json.Unmarshal(pageSizes, &doc.PageSizes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal page sizes")
		}
	}
	if signedPath.Valid {
		doc.SignedPath = &signedPath.String
	}
	if signedHash.Valid {
		doc.SignedHash = &signedHash.String
	}
	return &doc, nil
}
