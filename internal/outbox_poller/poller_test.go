package outbox_poller

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mybankaccount-ledger/internal/config"
	"github.com/mybankaccount-ledger/internal/domain/movement"
	"github.com/mybankaccount-ledger/internal/domain/outbox"
)

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestPoller(repo *MockOutboxRepository, pub *MockPublisher) *Poller {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := &config.OutboxConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}
	return NewPoller(cfg, repo, pub, logger)
}

func pendingMessage(t *testing.T, attempts int) *outbox.Message {
	t.Helper()
	event := &movement.Event{
		Reference: "TXNABCDEFGHJKLM",
		Kind:      movement.KindDeposit,
		Status:    movement.StatusCompleted,
		Amount:    decimal.NewFromInt(10),
		Currency:  "USD",
		CreatedAt: time.Now(),
	}
	msg, err := outbox.NewMessage(uuid.New(), event)
	require.NoError(t, err)
	msg.ID = 7
	msg.Attempts = attempts
	return msg
}

func TestPoller_PublishPendingMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes and marks processed", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		pub := new(MockPublisher)
		poller := newTestPoller(repo, pub)
		msg := pendingMessage(t, 0)

		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil).Once()
		pub.On("Publish", ctx, msg.Reference, mock.AnythingOfType("*movement.Event")).Return(nil).Once()
		repo.On("UpdateStatus", ctx, msg.ID, outbox.StatusProcessed).Return(nil).Once()

		err := poller.publishPendingMessages(ctx)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		pub := new(MockPublisher)
		poller := newTestPoller(repo, pub)

		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{}, nil).Once()

		err := poller.publishPendingMessages(ctx)
		assert.NoError(t, err)
		pub.AssertNotCalled(t, "Publish")
	})

	t.Run("publish failure increments attempts", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		pub := new(MockPublisher)
		poller := newTestPoller(repo, pub)
		msg := pendingMessage(t, 0)

		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil).Once()
		pub.On("Publish", ctx, msg.Reference, mock.Anything).Return(errors.New("broker down")).Once()
		repo.On("IncrementAttempts", ctx, msg.ID).Return(nil).Once()

		err := poller.publishPendingMessages(ctx)
		assert.NoError(t, err)
		repo.AssertNotCalled(t, "UpdateStatus", ctx, msg.ID, outbox.StatusProcessed)
		repo.AssertExpectations(t)
	})

	t.Run("max retries marks failed to publish", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		pub := new(MockPublisher)
		poller := newTestPoller(repo, pub)
		msg := pendingMessage(t, 2) // next failure is the third attempt

		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil).Once()
		pub.On("Publish", ctx, msg.Reference, mock.Anything).Return(errors.New("broker down")).Once()
		repo.On("IncrementAttempts", ctx, msg.ID).Return(nil).Once()
		repo.On("UpdateStatus", ctx, msg.ID, outbox.StatusFailedToPublish).Return(nil).Once()

		err := poller.publishPendingMessages(ctx)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("poison payload marked failed without publishing", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		pub := new(MockPublisher)
		poller := newTestPoller(repo, pub)
		msg := pendingMessage(t, 0)
		msg.Payload = []byte("{not json")

		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil).Once()
		repo.On("UpdateStatus", ctx, msg.ID, outbox.StatusFailedToPublish).Return(nil).Once()

		err := poller.publishPendingMessages(ctx)
		assert.NoError(t, err)
		pub.AssertNotCalled(t, "Publish")
		repo.AssertExpectations(t)
	})

	t.Run("repository error propagates", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		pub := new(MockPublisher)
		poller := newTestPoller(repo, pub)

		repo.On("GetPending", ctx, 10).Return(nil, errors.New("db down")).Once()

		err := poller.publishPendingMessages(ctx)
		assert.Error(t, err)
	})
}

func TestPoller_StartStopsOnContextCancel(t *testing.T) {
	repo := new(MockOutboxRepository)
	pub := new(MockPublisher)
	poller := newTestPoller(repo, pub)

	repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
