// Package http provides the owner envelope endpoints and the public signing endpoints.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/allisson/esign/internal/auth/http"
	"github.com/allisson/esign/internal/envelope/http/dto"
	envelopeUseCase "github.com/allisson/esign/internal/envelope/usecase"
	apperrors "github.com/allisson/esign/internal/errors"
	"github.com/allisson/esign/internal/httputil"
	customValidation "github.com/allisson/esign/internal/validation"
)

// HashHeader carries the SHA-256 of a downloaded file.
const HashHeader = "X-Content-SHA256"

// EnvelopeHandler serves the owner envelope workflow.
type EnvelopeHandler struct {
	envelopeUseCase envelopeUseCase.EnvelopeUseCase
	publicBaseURL   string
	logger          *slog.Logger
}

// NewEnvelopeHandler creates an EnvelopeHandler. publicBaseURL is used to render signing links.
func NewEnvelopeHandler(
	envelopeUseCase envelopeUseCase.EnvelopeUseCase,
	publicBaseURL string,
	logger *slog.Logger,
) *EnvelopeHandler {
	return &EnvelopeHandler{envelopeUseCase: envelopeUseCase, publicBaseURL: publicBaseURL, logger: logger}
}

// CreateHandler opens a draft envelope.
// POST /v1/envelopes
func (h *EnvelopeHandler) CreateHandler(c *gin.Context) {
	owner, ok := authHTTP.GetOwner(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	var req dto.CreateEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	env, err := h.envelopeUseCase.Create(c.Request.Context(), owner.ID, req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapEnvelopeToResponse(env, h.publicBaseURL))
}

// GetHandler returns an envelope with its signers and fields.
// GET /v1/envelopes/:id
func (h *EnvelopeHandler) GetHandler(c *gin.Context) {
	owner, envelopeID, ok := h.ownedEnvelope(c)
	if !ok {
		return
	}

	env, err := h.envelopeUseCase.Get(c.Request.Context(), owner, envelopeID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEnvelopeToResponse(env, h.publicBaseURL))
}

// SendHandler issues signing links and moves the envelope to SENT.
// POST /v1/envelopes/:id/send
func (h *EnvelopeHandler) SendHandler(c *gin.Context) {
	owner, envelopeID, ok := h.ownedEnvelope(c)
	if !ok {
		return
	}

	env, err := h.envelopeUseCase.Send(c.Request.Context(), owner, envelopeID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEnvelopeToResponse(env, h.publicBaseURL))
}

// VoidHandler cancels a non-terminal envelope.
// POST /v1/envelopes/:id/void
func (h *EnvelopeHandler) VoidHandler(c *gin.Context) {
	owner, envelopeID, ok := h.ownedEnvelope(c)
	if !ok {
		return
	}

	var req dto.VoidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	env, err := h.envelopeUseCase.Void(c.Request.Context(), owner, envelopeID, req.Reason)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEnvelopeToResponse(env, h.publicBaseURL))
}

// AddFieldHandler adds a field to a draft envelope.
// POST /v1/envelopes/:id/fields
func (h *EnvelopeHandler) AddFieldHandler(c *gin.Context) {
	owner, envelopeID, ok := h.ownedEnvelope(c)
	if !ok {
		return
	}
	req, ok := h.bindField(c)
	if !ok {
		return
	}

	field, err := h.envelopeUseCase.AddField(c.Request.Context(), owner, envelopeID, req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapFieldToResponse(field))
}

// UpdateFieldHandler replaces a field of a draft envelope.
// PUT /v1/envelopes/:id/fields/:fieldId
func (h *EnvelopeHandler) UpdateFieldHandler(c *gin.Context) {
	owner, envelopeID, ok := h.ownedEnvelope(c)
	if !ok {
		return
	}
	fieldID, err := httputil.ParseUUIDParam(c, "fieldId")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	req, ok := h.bindField(c)
	if !ok {
		return
	}

	field, err := h.envelopeUseCase.UpdateField(c.Request.Context(), owner, envelopeID, fieldID, req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapFieldToResponse(field))
}

// DeleteFieldHandler removes a field from a draft envelope.
// DELETE /v1/envelopes/:id/fields/:fieldId
func (h *EnvelopeHandler) DeleteFieldHandler(c *gin.Context) {
	owner, envelopeID, ok := h.ownedEnvelope(c)
	if !ok {
		return
	}
	fieldID, err := httputil.ParseUUIDParam(c, "fieldId")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.envelopeUseCase.DeleteField(c.Request.Context(), owner, envelopeID, fieldID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// ArtifactHandler downloads the latest signed PDF.
// GET /v1/envelopes/:id/artifact
func (h *EnvelopeHandler) ArtifactHandler(c *gin.Context) {
	owner, envelopeID, ok := h.ownedEnvelope(c)
	if !ok {
		return
	}

	download, err := h.envelopeUseCase.Artifact(c.Request.Context(), owner, envelopeID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	WriteDownload(c, download)
}

// CertificateHandler downloads the completion certificate.
// GET /v1/envelopes/:id/certificate
func (h *EnvelopeHandler) CertificateHandler(c *gin.Context) {
	owner, envelopeID, ok := h.ownedEnvelope(c)
	if !ok {
		return
	}

	download, err := h.envelopeUseCase.Certificate(c.Request.Context(), owner, envelopeID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	WriteDownload(c, download)
}

// AuditLogsHandler lists the envelope audit trail, oldest first.
// GET /v1/envelopes/:id/audit-logs?offset=0&limit=100
func (h *EnvelopeHandler) AuditLogsHandler(c *gin.Context) {
	owner, envelopeID, ok := h.ownedEnvelope(c)
	if !ok {
		return
	}
	page, err := httputil.ParsePage(c, httputil.AuditTrailLimits)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	logs, err := h.envelopeUseCase.AuditLogs(c.Request.Context(), owner, envelopeID, page.Offset, page.Limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditLogsToResponse(logs))
}

func (h *EnvelopeHandler) ownedEnvelope(c *gin.Context) (owner, envelopeID uuid.UUID, ok bool) {
	o, found := authHTTP.GetOwner(c.Request.Context())
	if !found {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return owner, envelopeID, false
	}
	id, err := httputil.ParseUUIDParam(c, "id")
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return owner, envelopeID, false
	}
	return o.ID, id, true
}

func (h *EnvelopeHandler) bindField(c *gin.Context) (*dto.FieldRequest, bool) {
	var req dto.FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return nil, false
	}
	return &req, true
}

// WriteDownload sends a file as an attachment along with its hash.
func WriteDownload(c *gin.Context, d *envelopeUseCase.Download) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Filename))
	if d.Hash != "" {
		c.Header(HashHeader, d.Hash)
	}
	c.Data(http.StatusOK, d.ContentType, d.Content)
}
