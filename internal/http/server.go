// Package http provides the API and metrics HTTP servers and their shared middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditHTTP "github.com/allisson/esign/internal/audit/http"
	authHTTP "github.com/allisson/esign/internal/auth/http"
	authService "github.com/allisson/esign/internal/auth/service"
	authUseCase "github.com/allisson/esign/internal/auth/usecase"
	"github.com/allisson/esign/internal/config"
	documentHTTP "github.com/allisson/esign/internal/document/http"
	envelopeHTTP "github.com/allisson/esign/internal/envelope/http"
	"github.com/allisson/esign/internal/metrics"
)

// Server represents the API HTTP server.
type Server struct {
	db     *sql.DB
	server *http.Server
	logger *slog.Logger
	router *gin.Engine
}

// NewServer creates a new API server. The router is installed by SetupRouter.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// RouterDeps groups everything the API routes need.
type RouterDeps struct {
	Config          *config.Config
	TokenUseCase    authUseCase.TokenUseCase
	TokenService    authService.TokenService
	TokenHandler    *authHTTP.TokenHandler
	DocumentHandler *documentHTTP.DocumentHandler
	EnvelopeHandler *envelopeHTTP.EnvelopeHandler
	SigningHandler  *envelopeHTTP.SigningHandler
	MetricsProvider *metrics.Provider
}

// SetupRouter builds the gin engine with every API route.
func (s *Server) SetupRouter(deps RouterDeps) {
	cfg := deps.Config

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))
	router.Use(auditHTTP.RequestInfoMiddleware())

	if cors := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); cors != nil {
		router.Use(cors)
	}
	if deps.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(deps.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	publicLimit := func() []gin.HandlerFunc {
		if !cfg.RateLimitPublicEnabled {
			return nil
		}
		return []gin.HandlerFunc{
			authHTTP.IPRateLimitMiddleware(cfg.RateLimitPublicRequestsPerSec, cfg.RateLimitPublicBurst, s.logger),
		}
	}

	v1 := router.Group("/v1")

	token := v1.Group("/token", publicLimit()...)
	token.POST("", deps.TokenHandler.IssueTokenHandler)

	owner := v1.Group("", authHTTP.AuthenticationMiddleware(deps.TokenUseCase, deps.TokenService, s.logger))
	if cfg.RateLimitEnabled {
		owner.Use(authHTTP.RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	documents := owner.Group("/documents")
	documents.POST("", deps.DocumentHandler.UploadHandler)
	documents.GET("/:id", deps.DocumentHandler.GetHandler)
	documents.GET("/:id/history", deps.DocumentHandler.HistoryHandler)

	envelopes := owner.Group("/envelopes")
	envelopes.POST("", deps.EnvelopeHandler.CreateHandler)
	envelopes.GET("/:id", deps.EnvelopeHandler.GetHandler)
	envelopes.POST("/:id/send", deps.EnvelopeHandler.SendHandler)
	envelopes.POST("/:id/void", deps.EnvelopeHandler.VoidHandler)
	envelopes.POST("/:id/fields", deps.EnvelopeHandler.AddFieldHandler)
	envelopes.PUT("/:id/fields/:fieldId", deps.EnvelopeHandler.UpdateFieldHandler)
	envelopes.DELETE("/:id/fields/:fieldId", deps.EnvelopeHandler.DeleteFieldHandler)
	envelopes.GET("/:id/artifact", deps.EnvelopeHandler.ArtifactHandler)
	envelopes.GET("/:id/certificate", deps.EnvelopeHandler.CertificateHandler)
	envelopes.GET("/:id/audit-logs", deps.EnvelopeHandler.AuditLogsHandler)

	signing := v1.Group("/signing/:token", publicLimit()...)
	signing.GET("", deps.SigningHandler.ViewHandler)
	signing.POST("/otp", deps.SigningHandler.RequestOTPHandler)
	signing.POST("/otp/verify", deps.SigningHandler.VerifyOTPHandler)
	signing.POST("/sign", deps.SigningHandler.SignHandler)
	signing.POST("/decline", deps.SigningHandler.DeclineHandler)
	signing.POST("/fingerprint", deps.SigningHandler.FingerprintHandler)
	signing.GET("/artifact", deps.SigningHandler.ArtifactHandler)

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the API server. It returns nil after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router is not configured")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready only when the database answers a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	if s.db == nil || s.db.PingContext(ctx) != nil {
		dbStatus = "error"
	}

	if dbStatus != "ok" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": dbStatus},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": dbStatus},
	})
}
