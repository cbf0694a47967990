// Package http provides the owner-facing document endpoints.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/esign/internal/auth/http"
	"github.com/allisson/esign/internal/document/http/dto"
	docUseCase "github.com/allisson/esign/internal/document/usecase"
	apperrors "github.com/allisson/esign/internal/errors"
	"github.com/allisson/esign/internal/httputil"
)

const uploadFormField = "file"

// DocumentHandler serves document upload and reads.
type DocumentHandler struct {
	documentUseCase docUseCase.DocumentUseCase
	maxUploadBytes  int64
	logger          *slog.Logger
}

// NewDocumentHandler creates a DocumentHandler. maxUploadBytes caps the multipart body.
func NewDocumentHandler(
	documentUseCase docUseCase.DocumentUseCase,
	maxUploadBytes int64,
	logger *slog.Logger,
) *DocumentHandler {
	return &DocumentHandler{documentUseCase: documentUseCase, maxUploadBytes: maxUploadBytes, logger: logger}
}

// UploadHandler stores a PDF sent as the multipart field "file".
// POST /v1/documents
func (h *DocumentHandler) UploadHandler(c *gin.Context) {
	owner, ok := authHTTP.GetOwner(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	if h.maxUploadBytes > 0 {
		// Multipart framing adds a little on top of the file itself.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	}

	fileHeader, err := c.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidInput, "document exceeds the upload limit"), h.logger)
			return
		}
		httputil.HandleBadRequestGin(c, errors.New("multipart field \"file\" is required"), h.logger)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	defer func() { _ = file.Close() }()

	doc, err := h.documentUseCase.Upload(c.Request.Context(), owner.ID, fileHeader.Filename, file)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapDocumentToResponse(doc))
}

// GetHandler returns document metadata.
// GET /v1/documents/:id
func (h *DocumentHandler) GetHandler(c *gin.Context) {
	owner, ok := authHTTP.GetOwner(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}
	documentID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	doc, err := h.documentUseCase.Get(c.Request.Context(), owner.ID, documentID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDocumentToResponse(doc))
}

// HistoryHandler returns the signature history and the integrity verdict.
// GET /v1/documents/:id/history
func (h *DocumentHandler) HistoryHandler(c *gin.Context) {
	owner, ok := authHTTP.GetOwner(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}
	documentID, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	report, err := h.documentUseCase.History(c.Request.Context(), owner.ID, documentID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapReportToResponse(report))
}
