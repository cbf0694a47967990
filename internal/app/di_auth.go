package app

import (
	"fmt"

	authHTTP "github.com/allisson/esign/internal/auth/http"
	authRepository "github.com/allisson/esign/internal/auth/repository"
	authService "github.com/allisson/esign/internal/auth/service"
	authUseCase "github.com/allisson/esign/internal/auth/usecase"
)

// SecretService returns the secret service for owner credentials.
func (c *Container) SecretService() authService.SecretService {
	c.secretServiceInit.Do(func() {
		c.secretService = authService.NewSecretService()
	})
	return c.secretService
}

// TokenService returns the token service for owner bearer tokens.
func (c *Container) TokenService() authService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = authService.NewTokenService()
	})
	return c.tokenService
}

// OwnerRepository returns the owner repository based on database driver.
func (c *Container) OwnerRepository() (authUseCase.OwnerRepository, error) {
	c.ownerRepositoryInit.Do(func() {
		repo, err := c.initOwnerRepository()
		if err != nil {
			c.setInitError("ownerRepository", err)
			return
		}
		c.ownerRepository = repo
	})
	return c.ownerRepository, c.getInitError("ownerRepository")
}

// TokenRepository returns the token repository based on database driver.
func (c *Container) TokenRepository() (authUseCase.TokenRepository, error) {
	c.tokenRepositoryInit.Do(func() {
		repo, err := c.initTokenRepository()
		if err != nil {
			c.setInitError("tokenRepository", err)
			return
		}
		c.tokenRepository = repo
	})
	return c.tokenRepository, c.getInitError("tokenRepository")
}

// OwnerUseCase returns the owner use case.
func (c *Container) OwnerUseCase() (authUseCase.OwnerUseCase, error) {
	c.ownerUseCaseInit.Do(func() {
		useCase, err := c.initOwnerUseCase()
		if err != nil {
			c.setInitError("ownerUseCase", err)
			return
		}
		c.ownerUseCase = useCase
	})
	return c.ownerUseCase, c.getInitError("ownerUseCase")
}

// TokenUseCase returns the token use case.
func (c *Container) TokenUseCase() (authUseCase.TokenUseCase, error) {
	c.tokenUseCaseInit.Do(func() {
		useCase, err := c.initTokenUseCase()
		if err != nil {
			c.setInitError("tokenUseCase", err)
			return
		}
		c.tokenUseCase = useCase
	})
	return c.tokenUseCase, c.getInitError("tokenUseCase")
}

// TokenHandler returns the HTTP handler issuing owner tokens.
func (c *Container) TokenHandler() (*authHTTP.TokenHandler, error) {
	c.tokenHandlerInit.Do(func() {
		useCase, err := c.TokenUseCase()
		if err != nil {
			c.setInitError("tokenHandler", fmt.Errorf("failed to get token use case for token handler: %w", err))
			return
		}
		c.tokenHandler = authHTTP.NewTokenHandler(useCase, c.Logger())
	})
	return c.tokenHandler, c.getInitError("tokenHandler")
}

func (c *Container) initOwnerRepository() (authUseCase.OwnerRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for owner repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return authRepository.NewMySQLOwnerRepository(db), nil
	case "postgres":
		return authRepository.NewPostgreSQLOwnerRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initTokenRepository() (authUseCase.TokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for token repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return authRepository.NewMySQLTokenRepository(db), nil
	case "postgres":
		return authRepository.NewPostgreSQLTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initOwnerUseCase() (authUseCase.OwnerUseCase, error) {
	ownerRepository, err := c.OwnerRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get owner repository for owner use case: %w", err)
	}

	useCase := authUseCase.NewOwnerUseCase(ownerRepository, c.SecretService())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for owner use case: %w", err)
		}
		return authUseCase.NewOwnerUseCaseWithMetrics(useCase, businessMetrics), nil
	}

	return useCase, nil
}

func (c *Container) initTokenUseCase() (authUseCase.TokenUseCase, error) {
	ownerRepository, err := c.OwnerRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get owner repository for token use case: %w", err)
	}
	tokenRepository, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for token use case: %w", err)
	}

	useCase := authUseCase.NewTokenUseCase(
		c.config,
		ownerRepository,
		tokenRepository,
		c.SecretService(),
		c.TokenService(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for token use case: %w", err)
		}
		return authUseCase.NewTokenUseCaseWithMetrics(useCase, businessMetrics), nil
	}

	return useCase, nil
}
