package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"

	"github.com/allisson/esign/internal/notification/domain"
)

// MockTxManager is a mock implementation of database.TxManager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

// MockOutboxEventRepository is a mock implementation of OutboxEventRepository
type MockOutboxEventRepository struct {
	mock.Mock
}

func (m *MockOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOutboxEventRepository) GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxEvent), args.Error(1)
}

func (m *MockOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockEventProcessor is a mock implementation of EventProcessor
type MockEventProcessor struct {
	mock.Mock
}

func (m *MockEventProcessor) Process(ctx context.Context, event *domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func pendingEvent(retries int) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: domain.EventSigningInvitation,
		Payload:   `{"email":"a@example.com"}`,
		Status:    domain.OutboxEventStatusPending,
		Retries:   retries,
	}
}

var testConfig = Config{Interval: 5 * time.Second, BatchSize: 10, MaxRetries: 3}

func TestNewOutboxUseCase_Defaults(t *testing.T) {
	uc := NewOutboxUseCase(Config{}, &MockTxManager{}, &MockOutboxEventRepository{}, &MockEventProcessor{}, nil, nil)

	assert.Equal(t, 5*time.Second, uc.config.Interval)
	assert.Equal(t, 20, uc.config.BatchSize)
	assert.Equal(t, 5, uc.config.MaxRetries)
	assert.NotNil(t, uc.metrics)
	assert.NotNil(t, uc.logger)
}

func TestOutboxUseCase_Start(t *testing.T) {
	t.Run("Success_ContextCancellation", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		uc := NewOutboxUseCase(testConfig, &MockTxManager{}, &MockOutboxEventRepository{}, &MockEventProcessor{}, nil, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := uc.Start(ctx)
		assert.Equal(t, context.Canceled, err)
	})

	t.Run("Success_PollsUntilStopped", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		txManager := &MockTxManager{}
		outboxRepo := &MockOutboxEventRepository{}
		var polls atomic.Int32

		txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
		outboxRepo.On("GetPendingEvents", mock.Anything, 10).
			Run(func(mock.Arguments) { polls.Add(1) }).
			Return([]*domain.OutboxEvent{}, nil)

		cfg := testConfig
		cfg.Interval = 10 * time.Millisecond
		uc := NewOutboxUseCase(cfg, txManager, outboxRepo, &MockEventProcessor{}, nil, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- uc.Start(ctx) }()

		assert.Eventually(t, func() bool { return polls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})
}

func TestOutboxUseCase_ProcessEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_MarksProcessed", func(t *testing.T) {
		txManager := &MockTxManager{}
		outboxRepo := &MockOutboxEventRepository{}
		processor := &MockEventProcessor{}
		events := []*domain.OutboxEvent{pendingEvent(0), pendingEvent(1)}

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		outboxRepo.On("GetPendingEvents", ctx, 10).Return(events, nil)
		processor.On("Process", ctx, events[0]).Return(nil)
		processor.On("Process", ctx, events[1]).Return(nil)
		outboxRepo.On("Update", ctx, mock.MatchedBy(func(e *domain.OutboxEvent) bool {
			return e.Status == domain.OutboxEventStatusProcessed && e.ProcessedAt != nil && e.LastError == nil
		})).Return(nil).Times(2)

		uc := NewOutboxUseCase(testConfig, txManager, outboxRepo, processor, nil, nil)
		assert.NoError(t, uc.ProcessEvents(ctx))

		txManager.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
		processor.AssertExpectations(t)
	})

	t.Run("Success_RedactsOneTimeCodes", func(t *testing.T) {
		txManager := &MockTxManager{}
		outboxRepo := &MockOutboxEventRepository{}
		processor := &MockEventProcessor{}

		delivered := pendingEvent(0)
		delivered.EventType = domain.EventSigningOTP
		delivered.Payload = `{"email":"a@example.com","otp":"123456"}`
		exhausted := pendingEvent(2)
		exhausted.Payload = `{"email":"b@example.com","otp":"654321"}`
		retrying := pendingEvent(0)
		retrying.Payload = `{"email":"c@example.com","otp":"111111"}`
		events := []*domain.OutboxEvent{delivered, exhausted, retrying}

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		outboxRepo.On("GetPendingEvents", ctx, 10).Return(events, nil)
		processor.On("Process", ctx, delivered).Return(nil)
		processor.On("Process", ctx, exhausted).Return(errors.New("smtp down"))
		processor.On("Process", ctx, retrying).Return(errors.New("smtp down"))
		outboxRepo.On("Update", ctx, mock.Anything).Return(nil).Times(3)

		uc := NewOutboxUseCase(testConfig, txManager, outboxRepo, processor, nil, nil)
		assert.NoError(t, uc.ProcessEvents(ctx))

		assert.JSONEq(t, `{"email":"a@example.com","otp":""}`, delivered.Payload)
		assert.Equal(t, domain.OutboxEventStatusFailed, exhausted.Status)
		assert.JSONEq(t, `{"email":"b@example.com","otp":""}`, exhausted.Payload)
		assert.JSONEq(t, `{"email":"c@example.com","otp":"111111"}`, retrying.Payload)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("Success_NoEvents", func(t *testing.T) {
		txManager := &MockTxManager{}
		outboxRepo := &MockOutboxEventRepository{}

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		outboxRepo.On("GetPendingEvents", ctx, 10).Return([]*domain.OutboxEvent{}, nil)

		uc := NewOutboxUseCase(testConfig, txManager, outboxRepo, &MockEventProcessor{}, nil, nil)
		assert.NoError(t, uc.ProcessEvents(ctx))
		outboxRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Error_GetPending", func(t *testing.T) {
		txManager := &MockTxManager{}
		outboxRepo := &MockOutboxEventRepository{}

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		outboxRepo.On("GetPendingEvents", ctx, 10).Return(nil, errors.New("database error"))

		uc := NewOutboxUseCase(testConfig, txManager, outboxRepo, &MockEventProcessor{}, nil, nil)
		assert.ErrorContains(t, uc.ProcessEvents(ctx), "database error")
	})

	t.Run("Success_DispatchFailureCountsRetry", func(t *testing.T) {
		txManager := &MockTxManager{}
		outboxRepo := &MockOutboxEventRepository{}
		processor := &MockEventProcessor{}
		event := pendingEvent(0)

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		outboxRepo.On("GetPendingEvents", ctx, 10).Return([]*domain.OutboxEvent{event}, nil)
		processor.On("Process", ctx, event).Return(errors.New("smtp down"))
		outboxRepo.On("Update", ctx, mock.MatchedBy(func(e *domain.OutboxEvent) bool {
			return e.Retries == 1 && e.Status == domain.OutboxEventStatusPending &&
				e.LastError != nil && *e.LastError == "smtp down"
		})).Return(nil)

		uc := NewOutboxUseCase(testConfig, txManager, outboxRepo, processor, nil, nil)
		assert.NoError(t, uc.ProcessEvents(ctx))
		outboxRepo.AssertExpectations(t)
	})

	t.Run("Success_MaxRetriesMarksFailed", func(t *testing.T) {
		txManager := &MockTxManager{}
		outboxRepo := &MockOutboxEventRepository{}
		processor := &MockEventProcessor{}
		event := pendingEvent(2)

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		outboxRepo.On("GetPendingEvents", ctx, 10).Return([]*domain.OutboxEvent{event}, nil)
		processor.On("Process", ctx, event).Return(errors.New("smtp down"))
		outboxRepo.On("Update", ctx, mock.MatchedBy(func(e *domain.OutboxEvent) bool {
			return e.Retries == 3 && e.Status == domain.OutboxEventStatusFailed
		})).Return(nil)

		uc := NewOutboxUseCase(testConfig, txManager, outboxRepo, processor, nil, nil)
		assert.NoError(t, uc.ProcessEvents(ctx))
		outboxRepo.AssertExpectations(t)
	})

	t.Run("Error_UpdateFails", func(t *testing.T) {
		txManager := &MockTxManager{}
		outboxRepo := &MockOutboxEventRepository{}
		processor := &MockEventProcessor{}
		event := pendingEvent(0)

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		outboxRepo.On("GetPendingEvents", ctx, 10).Return([]*domain.OutboxEvent{event}, nil)
		processor.On("Process", ctx, event).Return(nil)
		outboxRepo.On("Update", ctx, mock.AnythingOfType("*domain.OutboxEvent")).Return(errors.New("update failed"))

		uc := NewOutboxUseCase(testConfig, txManager, outboxRepo, processor, nil, nil)
		assert.ErrorContains(t, uc.ProcessEvents(ctx), "update failed")
	})
}
