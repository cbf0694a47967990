package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	authService "github.com/allisson/esign/internal/auth/service"
	authUseCase "github.com/allisson/esign/internal/auth/usecase"
	apperrors "github.com/allisson/esign/internal/errors"
	"github.com/allisson/esign/internal/httputil"
)

// AuthenticationMiddleware resolves the owner behind an "Authorization: Bearer <token>"
// header and stores it in the request context (see GetOwner).
//
// Missing or malformed headers and unusable tokens answer 401. Inactive owners answer 403.
func AuthenticationMiddleware(
	tokenUseCase authUseCase.TokenUseCase,
	tokenService authService.TokenService,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		plainToken, ok := httputil.BearerToken(c)
		if !ok || plainToken == "" {
			logger.Debug("authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		owner, err := tokenUseCase.Authenticate(c.Request.Context(), tokenService.HashToken(plainToken))
		if err != nil {
			logger.Debug("authentication failed", slog.Any("error", err))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithOwner(c.Request.Context(), owner))
		logger.Debug("authentication successful", slog.String("owner_id", owner.ID.String()))

		c.Next()
	}
}
