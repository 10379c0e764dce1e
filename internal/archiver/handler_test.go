package archiver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mybankaccount-ledger/internal/domain/movement"
)

// MockArchiveRepository for testing
type MockArchiveRepository struct {
	mock.Mock
}

func (m *MockArchiveRepository) Upsert(ctx context.Context, event *movement.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockArchiveRepository) GetByReference(ctx context.Context, reference string) (*movement.Event, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.Event), args.Error(1)
}

func (m *MockArchiveRepository) ListForAccount(ctx context.Context, accountNumber string, filter movement.Filter, limit, offset int) ([]*movement.Event, error) {
	args := m.Called(ctx, accountNumber, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*movement.Event), args.Error(1)
}

func (m *MockArchiveRepository) CountForAccount(ctx context.Context, accountNumber string, filter movement.Filter) (int64, error) {
	args := m.Called(ctx, accountNumber, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestHandleMessage(t *testing.T) {
	logger := slog.Default()

	processedAt := time.Now().UTC()
	validEvent := &movement.Event{
		Reference:         "TXNABCDEFGHJKLM",
		Kind:              movement.KindTransfer,
		Status:            movement.StatusCompleted,
		FromAccountNumber: "100200300400",
		ToAccountNumber:   "100200300401",
		Amount:            decimal.NewFromFloat(42.50),
		Fee:               decimal.Zero,
		Currency:          "USD",
		CorrelationID:     "PAY-ABCDEFGH",
		CreatedAt:         time.Now().UTC(),
		ProcessedAt:       &processedAt,
	}

	validJSON, err := json.Marshal(validEvent)
	assert.NoError(t, err)

	tests := []struct {
		name          string
		key           []byte
		value         []byte
		setupMocks    func(archive *MockArchiveRepository, dlq *MockDeadLetterPublisher)
		expectedError error
	}{
		{
			name:  "successful archiving",
			key:   []byte(validEvent.Reference),
			value: validJSON,
			setupMocks: func(archive *MockArchiveRepository, dlq *MockDeadLetterPublisher) {
				archive.On("Upsert", mock.Anything, mock.MatchedBy(func(e *movement.Event) bool {
					return e.Reference == validEvent.Reference && e.Status == movement.StatusCompleted
				})).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:  "archive error",
			key:   []byte(validEvent.Reference),
			value: validJSON,
			setupMocks: func(archive *MockArchiveRepository, dlq *MockDeadLetterPublisher) {
				archive.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("mongo down"))
			},
			expectedError: errors.New("archiving movement event"),
		},
		{
			name:  "unmarshal error with successful DLQ publish",
			key:   []byte("test-key"),
			value: []byte("invalid json"),
			setupMocks: func(archive *MockArchiveRepository, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "test-key", []byte("invalid json"), mock.Anything).Return(nil)
			},
			expectedError: nil, // No error because message was successfully sent to DLQ
		},
		{
			name:  "unmarshal error with DLQ publish failure",
			key:   []byte("test-key"),
			value: []byte("invalid json"),
			setupMocks: func(archive *MockArchiveRepository, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "test-key", []byte("invalid json"), mock.Anything).Return(errors.New("dlq error"))
			},
			expectedError: errors.New("failed to unmarshal"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockArchive := &MockArchiveRepository{}
			mockDLQPublisher := &MockDeadLetterPublisher{}
			mockDLQPublisher.On("Close").Return(nil).Maybe()

			handler := NewMovementEventHandler(logger, mockArchive, mockDLQPublisher)

			tt.setupMocks(mockArchive, mockDLQPublisher)
			ctx := context.Background()

			err := handler.HandleMessage(ctx, tt.key, tt.value)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockArchive.AssertExpectations(t)
			mockDLQPublisher.AssertExpectations(t)
		})
	}
}

func TestHandleMessage_NoDLQConfigured(t *testing.T) {
	handler := NewMovementEventHandler(slog.Default(), &MockArchiveRepository{}, nil)

	err := handler.HandleMessage(context.Background(), []byte("test-key"), []byte("not json"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}
