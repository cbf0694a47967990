package app

import (
	"fmt"

	notificationRepository "github.com/allisson/esign/internal/notification/repository"
	notificationService "github.com/allisson/esign/internal/notification/service"
	notificationUseCase "github.com/allisson/esign/internal/notification/usecase"
)

// OutboxEventRepository returns the outbox repository based on database driver.
func (c *Container) OutboxEventRepository() (notificationUseCase.OutboxEventRepository, error) {
	c.outboxRepositoryInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("outboxRepository", fmt.Errorf("failed to get database for outbox repository: %w", err))
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.outboxRepository = notificationRepository.NewMySQLOutboxEventRepository(db)
		case "postgres":
			c.outboxRepository = notificationRepository.NewPostgreSQLOutboxEventRepository(db)
		default:
			c.setInitError("outboxRepository", fmt.Errorf("unsupported database driver: %s", c.config.DBDriver))
		}
	})
	return c.outboxRepository, c.getInitError("outboxRepository")
}

// Notifier returns the configured notification transport.
func (c *Container) Notifier() (notificationUseCase.Notifier, error) {
	c.notifierInit.Do(func() {
		switch c.config.Notifier {
		case "", "log":
			c.notifier = notificationService.NewLogNotifier(c.Logger())
		case "webhook":
			notifier, err := notificationService.NewWebhookNotifier(notificationService.WebhookConfig{
				URL:        c.config.NotifierWebhookURL,
				Timeout:    c.config.NotifierWebhookTimeout,
				MaxRetries: c.config.NotifierWebhookMaxRetries,
			}, c.Logger())
			if err != nil {
				c.setInitError("notifier", fmt.Errorf("failed to create webhook notifier: %w", err))
				return
			}
			c.notifier = notifier
		default:
			c.setInitError("notifier", fmt.Errorf("unsupported notifier: %s", c.config.Notifier))
		}
	})
	return c.notifier, c.getInitError("notifier")
}

// OutboxUseCase returns the outbox worker delivering notifications.
func (c *Container) OutboxUseCase() (notificationUseCase.UseCase, error) {
	c.outboxUseCaseInit.Do(func() {
		useCase, err := c.initOutboxUseCase()
		if err != nil {
			c.setInitError("outboxUseCase", err)
			return
		}
		c.outboxUseCase = useCase
	})
	return c.outboxUseCase, c.getInitError("outboxUseCase")
}

func (c *Container) initOutboxUseCase() (notificationUseCase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox use case: %w", err)
	}
	outboxRepository, err := c.OutboxEventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox use case: %w", err)
	}
	notifier, err := c.Notifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get notifier for outbox use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for outbox use case: %w", err)
	}

	processor := notificationUseCase.NewNotificationProcessor(notifier, c.config.ApplicationName, c.Logger())

	return notificationUseCase.NewOutboxUseCase(
		notificationUseCase.Config{
			Interval:   c.config.WorkerInterval,
			BatchSize:  c.config.WorkerBatchSize,
			MaxRetries: c.config.WorkerMaxRetries,
		},
		txManager,
		outboxRepository,
		processor,
		businessMetrics,
		c.Logger(),
	), nil
}
