// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	auditService "github.com/allisson/esign/internal/audit/service"
	auditUseCase "github.com/allisson/esign/internal/audit/usecase"
	authHTTP "github.com/allisson/esign/internal/auth/http"
	authService "github.com/allisson/esign/internal/auth/service"
	authUseCase "github.com/allisson/esign/internal/auth/usecase"
	"github.com/allisson/esign/internal/certificate"
	"github.com/allisson/esign/internal/config"
	"github.com/allisson/esign/internal/database"
	documentHTTP "github.com/allisson/esign/internal/document/http"
	documentUseCase "github.com/allisson/esign/internal/document/usecase"
	envelopeHTTP "github.com/allisson/esign/internal/envelope/http"
	envelopeService "github.com/allisson/esign/internal/envelope/service"
	envelopeUseCase "github.com/allisson/esign/internal/envelope/usecase"
	"github.com/allisson/esign/internal/http"
	ledgerUseCase "github.com/allisson/esign/internal/ledger/usecase"
	"github.com/allisson/esign/internal/metrics"
	notificationUseCase "github.com/allisson/esign/internal/notification/usecase"
	signingService "github.com/allisson/esign/internal/signing/service"
	"github.com/allisson/esign/internal/storage"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	locker          *database.KeyedLocker
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	contentStore    *storage.BlobStore
	engine          *signingService.Engine
	certificates    *certificate.Generator

	// Auth
	secretService   authService.SecretService
	tokenService    authService.TokenService
	ownerRepository authUseCase.OwnerRepository
	tokenRepository authUseCase.TokenRepository
	ownerUseCase    authUseCase.OwnerUseCase
	tokenUseCase    authUseCase.TokenUseCase
	tokenHandler    *authHTTP.TokenHandler

	// Audit
	auditSigner        auditService.AuditSigner
	auditLogRepository auditUseCase.AuditLogRepository
	auditLogUseCase    auditUseCase.AuditLogUseCase

	// Documents and ledger
	documentRepository documentUseCase.DocumentRepository
	stepRepository     ledgerUseCase.StepRepository
	ledgerUseCase      ledgerUseCase.LedgerUseCase
	documentUseCase    documentUseCase.DocumentUseCase
	documentHandler    *documentHTTP.DocumentHandler

	// Envelopes
	envelopeRepository  envelopeUseCase.EnvelopeRepository
	signerRepository    envelopeUseCase.SignerRepository
	fieldRepository     envelopeUseCase.FieldRepository
	signatureRepository envelopeUseCase.SignatureRepository
	otpChallenge        *envelopeService.OTPChallenge
	sessionTokens       *envelopeService.SessionTokenService
	envelopeUseCase     envelopeUseCase.EnvelopeUseCase
	signingUseCase      envelopeUseCase.SigningUseCase
	envelopeHandler     *envelopeHTTP.EnvelopeHandler
	signingHandler      *envelopeHTTP.SigningHandler

	// Notifications
	outboxRepository notificationUseCase.OutboxEventRepository
	notifier         notificationUseCase.Notifier
	outboxUseCase    notificationUseCase.UseCase

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                     sync.Mutex
	loggerInit             sync.Once
	dbInit                 sync.Once
	txManagerInit          sync.Once
	lockerInit             sync.Once
	metricsProviderInit    sync.Once
	businessMetricsInit    sync.Once
	contentStoreInit       sync.Once
	engineInit             sync.Once
	certificatesInit       sync.Once
	secretServiceInit      sync.Once
	tokenServiceInit       sync.Once
	ownerRepositoryInit    sync.Once
	tokenRepositoryInit    sync.Once
	ownerUseCaseInit       sync.Once
	tokenUseCaseInit       sync.Once
	tokenHandlerInit       sync.Once
	auditSignerInit        sync.Once
	auditLogRepositoryInit sync.Once
	auditLogUseCaseInit    sync.Once
	documentRepositoryInit sync.Once
	stepRepositoryInit     sync.Once
	ledgerUseCaseInit      sync.Once
	documentUseCaseInit    sync.Once
	documentHandlerInit    sync.Once
	envelopeReposInit      sync.Once
	otpChallengeInit       sync.Once
	sessionTokensInit      sync.Once
	envelopeUseCaseInit    sync.Once
	signingUseCaseInit     sync.Once
	envelopeHandlerInit    sync.Once
	signingHandlerInit     sync.Once
	outboxRepositoryInit   sync.Once
	notifierInit           sync.Once
	outboxUseCaseInit      sync.Once
	httpServerInit         sync.Once
	metricsServerInit      sync.Once
	initErrors             map[string]error
	initErrorsMu           sync.Mutex
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		var err error
		c.db, err = c.initDB()
		c.setInitError("db", err)
	})
	return c.db, c.getInitError("db")
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("txManager", fmt.Errorf("failed to get database for tx manager: %w", err))
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	return c.txManager, c.getInitError("txManager")
}

// KeyedLocker returns the in-process per-key lock shared by the envelope use cases.
func (c *Container) KeyedLocker() *database.KeyedLocker {
	c.lockerInit.Do(func() {
		c.locker = database.NewKeyedLocker()
	})
	return c.locker
}

// MetricsProvider returns the Prometheus-backed meter provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.setInitError("metricsProvider", fmt.Errorf("failed to create metrics provider: %w", err))
			return
		}
		c.metricsProvider = provider
	})
	return c.metricsProvider, c.getInitError("metricsProvider")
}

// BusinessMetrics returns the business metrics recorder; a no-op one when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.setInitError("businessMetrics", err)
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.setInitError("businessMetrics", fmt.Errorf("failed to create business metrics: %w", err))
			return
		}
		c.businessMetrics = bm
	})
	return c.businessMetrics, c.getInitError("businessMetrics")
}

// ContentStore returns the blob store holding originals, marks and signed artifacts.
func (c *Container) ContentStore() (*storage.BlobStore, error) {
	c.contentStoreInit.Do(func() {
		store, err := storage.Open(context.Background(), c.config.StorageURL)
		if err != nil {
			c.setInitError("contentStore", fmt.Errorf("failed to open content store: %w", err))
			return
		}
		c.contentStore = store
	})
	return c.contentStore, c.getInitError("contentStore")
}

// SigningEngine returns the PDF rendering engine.
func (c *Container) SigningEngine() *signingService.Engine {
	c.engineInit.Do(func() {
		c.engine = signingService.NewEngine(
			signingService.WithFooterBand(c.config.FooterBandHeight),
			signingService.WithApplicationName(c.config.ApplicationName),
		)
	})
	return c.engine
}

// CertificateGenerator returns the completion certificate renderer.
func (c *Container) CertificateGenerator() *certificate.Generator {
	c.certificatesInit.Do(func() {
		c.certificates = certificate.NewGenerator(c.config.ApplicationName)
	})
	return c.certificates
}

// HTTPServer returns the API server with every route installed.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.setInitError("httpServer", err)
			return
		}
		c.httpServer = server
	})
	return c.httpServer, c.getInitError("httpServer")
}

// MetricsServer returns the Prometheus metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.setInitError("metricsServer", err)
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider)
	})
	return c.metricsServer, c.getInitError("metricsServer")
}

// Shutdown performs cleanup of all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.contentStore != nil {
		if err := c.contentStore.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("content store close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

func (c *Container) setInitError(name string, err error) {
	if err == nil {
		return
	}
	c.initErrorsMu.Lock()
	defer c.initErrorsMu.Unlock()
	c.initErrors[name] = err
}

func (c *Container) getInitError(name string) error {
	c.initErrorsMu.Lock()
	defer c.initErrorsMu.Unlock()
	return c.initErrors[name]
}

// initLogger creates a JSON logger at the configured level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initHTTPServer assembles the handlers and installs the routes.
func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}
	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for http server: %w", err)
	}
	tokenHandler, err := c.TokenHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get token handler for http server: %w", err)
	}
	documentHandler, err := c.DocumentHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get document handler for http server: %w", err)
	}
	envelopeHandler, err := c.EnvelopeHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope handler for http server: %w", err)
	}
	signingHandler, err := c.SigningHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get signing handler for http server: %w", err)
	}
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(http.RouterDeps{
		Config:          c.config,
		TokenUseCase:    tokenUseCase,
		TokenService:    c.TokenService(),
		TokenHandler:    tokenHandler,
		DocumentHandler: documentHandler,
		EnvelopeHandler: envelopeHandler,
		SigningHandler:  signingHandler,
		MetricsProvider: provider,
	})
	return server, nil
}
