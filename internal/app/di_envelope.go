package app

import (
	"fmt"

	envelopeHTTP "github.com/allisson/esign/internal/envelope/http"
	envelopeRepository "github.com/allisson/esign/internal/envelope/repository"
	envelopeService "github.com/allisson/esign/internal/envelope/service"
	envelopeUseCase "github.com/allisson/esign/internal/envelope/usecase"
)

// minSessionSecretLength is the shortest accepted HMAC secret for signer sessions.
const minSessionSecretLength = 32

// EnvelopeRepositories initializes the envelope, signer, field and signature
// repositories based on database driver.
func (c *Container) EnvelopeRepositories() error {
	c.envelopeReposInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("envelopeRepositories", fmt.Errorf("failed to get database for envelope repositories: %w", err))
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.envelopeRepository = envelopeRepository.NewMySQLEnvelopeRepository(db)
			c.signerRepository = envelopeRepository.NewMySQLSignerRepository(db)
			c.fieldRepository = envelopeRepository.NewMySQLFieldRepository(db)
			c.signatureRepository = envelopeRepository.NewMySQLSignatureRepository(db)
		case "postgres":
			c.envelopeRepository = envelopeRepository.NewPostgreSQLEnvelopeRepository(db)
			c.signerRepository = envelopeRepository.NewPostgreSQLSignerRepository(db)
			c.fieldRepository = envelopeRepository.NewPostgreSQLFieldRepository(db)
			c.signatureRepository = envelopeRepository.NewPostgreSQLSignatureRepository(db)
		default:
			c.setInitError("envelopeRepositories", fmt.Errorf("unsupported database driver: %s", c.config.DBDriver))
		}
	})
	return c.getInitError("envelopeRepositories")
}

// OTPChallenge returns the one-time code issuer.
func (c *Container) OTPChallenge() (*envelopeService.OTPChallenge, error) {
	c.otpChallengeInit.Do(func() {
		hasher, err := envelopeService.NewArgon2Hasher()
		if err != nil {
			c.setInitError("otpChallenge", fmt.Errorf("failed to create otp hasher: %w", err))
			return
		}
		c.otpChallenge = envelopeService.NewOTPChallenge(hasher, c.config.OTPLength, c.config.OTPExpiration)
	})
	return c.otpChallenge, c.getInitError("otpChallenge")
}

// SessionTokenService returns the signer session token service. It refuses to start
// without a sufficiently long secret.
func (c *Container) SessionTokenService() (*envelopeService.SessionTokenService, error) {
	c.sessionTokensInit.Do(func() {
		if len(c.config.SessionTokenSecret) < minSessionSecretLength {
			c.setInitError("sessionTokens", fmt.Errorf(
				"SESSION_TOKEN_SECRET must be at least %d characters", minSessionSecretLength,
			))
			return
		}
		c.sessionTokens = envelopeService.NewSessionTokenService(
			[]byte(c.config.SessionTokenSecret),
			c.config.SessionTokenExpiration,
		)
	})
	return c.sessionTokens, c.getInitError("sessionTokens")
}

// EnvelopeUseCase returns the owner-facing envelope use case.
func (c *Container) EnvelopeUseCase() (envelopeUseCase.EnvelopeUseCase, error) {
	c.envelopeUseCaseInit.Do(func() {
		deps, err := c.envelopeDependencies()
		if err != nil {
			c.setInitError("envelopeUseCase", err)
			return
		}
		useCase := envelopeUseCase.NewEnvelopeUseCase(deps, c.envelopeOptions())
		if c.config.MetricsEnabled {
			useCase = envelopeUseCase.NewEnvelopeUseCaseWithMetrics(useCase, deps.Metrics)
		}
		c.envelopeUseCase = useCase
	})
	return c.envelopeUseCase, c.getInitError("envelopeUseCase")
}

// SigningUseCase returns the signer-facing use case.
func (c *Container) SigningUseCase() (envelopeUseCase.SigningUseCase, error) {
	c.signingUseCaseInit.Do(func() {
		deps, err := c.envelopeDependencies()
		if err != nil {
			c.setInitError("signingUseCase", err)
			return
		}
		useCase := envelopeUseCase.NewSigningUseCase(deps, c.envelopeOptions())
		if c.config.MetricsEnabled {
			useCase = envelopeUseCase.NewSigningUseCaseWithMetrics(useCase, deps.Metrics)
		}
		c.signingUseCase = useCase
	})
	return c.signingUseCase, c.getInitError("signingUseCase")
}

// EnvelopeHandler returns the HTTP handler for owner envelope routes.
func (c *Container) EnvelopeHandler() (*envelopeHTTP.EnvelopeHandler, error) {
	c.envelopeHandlerInit.Do(func() {
		useCase, err := c.EnvelopeUseCase()
		if err != nil {
			c.setInitError("envelopeHandler", fmt.Errorf("failed to get envelope use case for envelope handler: %w", err))
			return
		}
		c.envelopeHandler = envelopeHTTP.NewEnvelopeHandler(useCase, c.config.PublicBaseURL, c.Logger())
	})
	return c.envelopeHandler, c.getInitError("envelopeHandler")
}

// SigningHandler returns the HTTP handler for signing link routes.
func (c *Container) SigningHandler() (*envelopeHTTP.SigningHandler, error) {
	c.signingHandlerInit.Do(func() {
		useCase, err := c.SigningUseCase()
		if err != nil {
			c.setInitError("signingHandler", fmt.Errorf("failed to get signing use case for signing handler: %w", err))
			return
		}
		c.signingHandler = envelopeHTTP.NewSigningHandler(useCase, c.Logger())
	})
	return c.signingHandler, c.getInitError("signingHandler")
}

func (c *Container) envelopeOptions() envelopeUseCase.Options {
	return envelopeUseCase.Options{
		PublicBaseURL: c.config.PublicBaseURL,
		Jurisdiction:  c.config.ComplianceJurisdiction,
	}
}

// envelopeDependencies gathers the collaborators shared by both envelope use cases.
func (c *Container) envelopeDependencies() (envelopeUseCase.Dependencies, error) {
	var deps envelopeUseCase.Dependencies

	txManager, err := c.TxManager()
	if err != nil {
		return deps, fmt.Errorf("failed to get tx manager for envelope use cases: %w", err)
	}
	if err := c.EnvelopeRepositories(); err != nil {
		return deps, fmt.Errorf("failed to get envelope repositories: %w", err)
	}
	documents, err := c.DocumentRepository()
	if err != nil {
		return deps, fmt.Errorf("failed to get document repository for envelope use cases: %w", err)
	}
	outbox, err := c.OutboxEventRepository()
	if err != nil {
		return deps, fmt.Errorf("failed to get outbox repository for envelope use cases: %w", err)
	}
	ledger, err := c.LedgerUseCase()
	if err != nil {
		return deps, fmt.Errorf("failed to get ledger for envelope use cases: %w", err)
	}
	audit, err := c.AuditLogUseCase()
	if err != nil {
		return deps, fmt.Errorf("failed to get audit log use case for envelope use cases: %w", err)
	}
	store, err := c.ContentStore()
	if err != nil {
		return deps, fmt.Errorf("failed to get content store for envelope use cases: %w", err)
	}
	otp, err := c.OTPChallenge()
	if err != nil {
		return deps, fmt.Errorf("failed to get otp challenge for envelope use cases: %w", err)
	}
	sessions, err := c.SessionTokenService()
	if err != nil {
		return deps, fmt.Errorf("failed to get session token service for envelope use cases: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return deps, fmt.Errorf("failed to get business metrics for envelope use cases: %w", err)
	}

	return envelopeUseCase.Dependencies{
		TxManager:    txManager,
		Locker:       c.KeyedLocker(),
		Envelopes:    c.envelopeRepository,
		Signers:      c.signerRepository,
		Fields:       c.fieldRepository,
		Signatures:   c.signatureRepository,
		Documents:    documents,
		Outbox:       outbox,
		Ledger:       ledger,
		Audit:        audit,
		Store:        store,
		Renderer:     c.SigningEngine(),
		Certificates: c.CertificateGenerator(),
		OTP:          otp,
		Sessions:     sessions,
		Metrics:      businessMetrics,
		Logger:       c.Logger(),
	}, nil
}
