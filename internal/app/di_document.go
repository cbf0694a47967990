package app

import (
	"fmt"

	documentHTTP "github.com/allisson/esign/internal/document/http"
	documentRepository "github.com/allisson/esign/internal/document/repository"
	documentUseCase "github.com/allisson/esign/internal/document/usecase"
	ledgerRepository "github.com/allisson/esign/internal/ledger/repository"
	ledgerUseCase "github.com/allisson/esign/internal/ledger/usecase"
)

// DocumentRepository returns the document repository based on database driver.
func (c *Container) DocumentRepository() (documentUseCase.DocumentRepository, error) {
	c.documentRepositoryInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("documentRepository", fmt.Errorf("failed to get database for document repository: %w", err))
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.documentRepository = documentRepository.NewMySQLDocumentRepository(db)
		case "postgres":
			c.documentRepository = documentRepository.NewPostgreSQLDocumentRepository(db)
		default:
			c.setInitError("documentRepository", fmt.Errorf("unsupported database driver: %s", c.config.DBDriver))
		}
	})
	return c.documentRepository, c.getInitError("documentRepository")
}

// StepRepository returns the signing step repository based on database driver.
func (c *Container) StepRepository() (ledgerUseCase.StepRepository, error) {
	c.stepRepositoryInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("stepRepository", fmt.Errorf("failed to get database for step repository: %w", err))
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.stepRepository = ledgerRepository.NewMySQLStepRepository(db)
		case "postgres":
			c.stepRepository = ledgerRepository.NewPostgreSQLStepRepository(db)
		default:
			c.setInitError("stepRepository", fmt.Errorf("unsupported database driver: %s", c.config.DBDriver))
		}
	})
	return c.stepRepository, c.getInitError("stepRepository")
}

// LedgerUseCase returns the integrity ledger.
func (c *Container) LedgerUseCase() (ledgerUseCase.LedgerUseCase, error) {
	c.ledgerUseCaseInit.Do(func() {
		useCase, err := c.initLedgerUseCase()
		if err != nil {
			c.setInitError("ledgerUseCase", err)
			return
		}
		c.ledgerUseCase = useCase
	})
	return c.ledgerUseCase, c.getInitError("ledgerUseCase")
}

// DocumentUseCase returns the document use case.
func (c *Container) DocumentUseCase() (documentUseCase.DocumentUseCase, error) {
	c.documentUseCaseInit.Do(func() {
		useCase, err := c.initDocumentUseCase()
		if err != nil {
			c.setInitError("documentUseCase", err)
			return
		}
		c.documentUseCase = useCase
	})
	return c.documentUseCase, c.getInitError("documentUseCase")
}

// DocumentHandler returns the HTTP handler for document uploads.
func (c *Container) DocumentHandler() (*documentHTTP.DocumentHandler, error) {
	c.documentHandlerInit.Do(func() {
		useCase, err := c.DocumentUseCase()
		if err != nil {
			c.setInitError("documentHandler", fmt.Errorf("failed to get document use case for document handler: %w", err))
			return
		}
		c.documentHandler = documentHTTP.NewDocumentHandler(useCase, c.config.MaxUploadBytes, c.Logger())
	})
	return c.documentHandler, c.getInitError("documentHandler")
}

func (c *Container) initLedgerUseCase() (ledgerUseCase.LedgerUseCase, error) {
	stepRepository, err := c.StepRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get step repository for ledger: %w", err)
	}
	docRepository, err := c.DocumentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get document repository for ledger: %w", err)
	}
	store, err := c.ContentStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get content store for ledger: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for ledger: %w", err)
	}

	return ledgerUseCase.NewLedgerUseCase(stepRepository, docRepository, store, businessMetrics, c.Logger()), nil
}

func (c *Container) initDocumentUseCase() (documentUseCase.DocumentUseCase, error) {
	docRepository, err := c.DocumentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get document repository for document use case: %w", err)
	}
	store, err := c.ContentStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get content store for document use case: %w", err)
	}
	ledger, err := c.LedgerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger for document use case: %w", err)
	}

	return documentUseCase.NewDocumentUseCase(
		docRepository,
		store,
		c.SigningEngine(),
		ledger,
		c.config.MaxUploadBytes,
		c.Logger(),
	), nil
}
