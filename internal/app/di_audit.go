package app

import (
	"context"
	"fmt"

	auditRepository "github.com/allisson/esign/internal/audit/repository"
	auditService "github.com/allisson/esign/internal/audit/service"
	auditUseCase "github.com/allisson/esign/internal/audit/usecase"
)

// AuditSigner returns the HMAC signer for audit entries. It is nil when no signing key is
// configured, in which case entries are stored unsigned.
func (c *Container) AuditSigner() (auditService.AuditSigner, error) {
	c.auditSignerInit.Do(func() {
		signer, err := c.initAuditSigner()
		if err != nil {
			c.setInitError("auditSigner", err)
			return
		}
		c.auditSigner = signer
	})
	return c.auditSigner, c.getInitError("auditSigner")
}

// AuditLogRepository returns the audit log repository based on database driver.
func (c *Container) AuditLogRepository() (auditUseCase.AuditLogRepository, error) {
	c.auditLogRepositoryInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("auditLogRepository", fmt.Errorf("failed to get database for audit log repository: %w", err))
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.auditLogRepository = auditRepository.NewMySQLAuditLogRepository(db)
		case "postgres":
			c.auditLogRepository = auditRepository.NewPostgreSQLAuditLogRepository(db)
		default:
			c.setInitError("auditLogRepository", fmt.Errorf("unsupported database driver: %s", c.config.DBDriver))
		}
	})
	return c.auditLogRepository, c.getInitError("auditLogRepository")
}

// AuditLogUseCase returns the audit log use case.
func (c *Container) AuditLogUseCase() (auditUseCase.AuditLogUseCase, error) {
	c.auditLogUseCaseInit.Do(func() {
		repo, err := c.AuditLogRepository()
		if err != nil {
			c.setInitError("auditLogUseCase", fmt.Errorf("failed to get audit log repository for audit log use case: %w", err))
			return
		}
		signer, err := c.AuditSigner()
		if err != nil {
			c.setInitError("auditLogUseCase", fmt.Errorf("failed to get audit signer for audit log use case: %w", err))
			return
		}
		c.auditLogUseCase = auditUseCase.NewAuditLogUseCase(repo, signer, c.Logger())
	})
	return c.auditLogUseCase, c.getInitError("auditLogUseCase")
}

func (c *Container) initAuditSigner() (auditService.AuditSigner, error) {
	keyMaterial, err := auditService.LoadSigningKey(
		context.Background(),
		c.config.AuditSigningKey,
		c.config.KMSKeyURI,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit signing key: %w", err)
	}
	if keyMaterial == nil {
		c.Logger().Warn("audit signing key not configured, audit logs will be stored unsigned")
		return nil, nil
	}

	signer, err := auditService.NewAuditSigner(keyMaterial)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit signer: %w", err)
	}
	return signer, nil
}
