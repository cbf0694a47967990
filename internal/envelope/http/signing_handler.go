package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/esign/internal/envelope/domain"
	"github.com/allisson/esign/internal/envelope/http/dto"
	envelopeUseCase "github.com/allisson/esign/internal/envelope/usecase"
	"github.com/allisson/esign/internal/httputil"
	customValidation "github.com/allisson/esign/internal/validation"
)

// SigningHandler serves the signer workflow addressed by signing link tokens.
type SigningHandler struct {
	signingUseCase envelopeUseCase.SigningUseCase
	logger         *slog.Logger
}

// NewSigningHandler creates a SigningHandler.
func NewSigningHandler(signingUseCase envelopeUseCase.SigningUseCase, logger *slog.Logger) *SigningHandler {
	return &SigningHandler{signingUseCase: signingUseCase, logger: logger}
}

// ViewHandler returns the envelope as the signer sees it.
// GET /v1/signing/:token
func (h *SigningHandler) ViewHandler(c *gin.Context) {
	view, err := h.signingUseCase.View(c.Request.Context(), c.Param("token"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSigningViewToResponse(view))
}

// RequestOTPHandler sends a fresh one-time code to the signer.
// POST /v1/signing/:token/otp
func (h *SigningHandler) RequestOTPHandler(c *gin.Context) {
	if err := h.signingUseCase.RequestOTP(c.Request.Context(), c.Param("token")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusAccepted)
}

// VerifyOTPHandler exchanges a one-time code for a signing session.
// POST /v1/signing/:token/otp/verify
func (h *SigningHandler) VerifyOTPHandler(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	session, err := h.signingUseCase.VerifyOTP(c.Request.Context(), c.Param("token"), req.Code)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponse{SessionToken: session.Token, ExpiresAt: session.ExpiresAt})
}

// SignHandler records the signer's mark. Requires "Authorization: Bearer <session token>".
// POST /v1/signing/:token/sign
func (h *SigningHandler) SignHandler(c *gin.Context) {
	sessionToken, ok := httputil.BearerToken(c)
	if !ok {
		httputil.HandleErrorGin(c, domain.ErrInvalidSession, h.logger)
		return
	}

	var req dto.SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.signingUseCase.Sign(c.Request.Context(), c.Param("token"), req.ToInput(sessionToken))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSignResultToResponse(result))
}

// DeclineHandler refuses to sign, ending the envelope as DECLINED.
// POST /v1/signing/:token/decline
func (h *SigningHandler) DeclineHandler(c *gin.Context) {
	sessionToken, ok := httputil.BearerToken(c)
	if !ok {
		httputil.HandleErrorGin(c, domain.ErrInvalidSession, h.logger)
		return
	}

	var req dto.DeclineRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.signingUseCase.Decline(c.Request.Context(), c.Param("token"), sessionToken, req.Reason); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// FingerprintHandler records an opaque device fingerprint in the audit trail.
// POST /v1/signing/:token/fingerprint
func (h *SigningHandler) FingerprintHandler(c *gin.Context) {
	var req dto.FingerprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.signingUseCase.CaptureFingerprint(c.Request.Context(), c.Param("token"), req.Fingerprint); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// ArtifactHandler downloads the latest signed PDF.
// GET /v1/signing/:token/artifact
func (h *SigningHandler) ArtifactHandler(c *gin.Context) {
	download, err := h.signingUseCase.Artifact(c.Request.Context(), c.Param("token"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	WriteDownload(c, download)
}
