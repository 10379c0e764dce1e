package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mybankaccount-ledger/internal/domain/movement"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message stores a terminal movement event for reliable publishing. It is
// written in the same transaction as the movement's status change.
type Message struct {
	ID            int64           `json:"id"`
	MovementID    uuid.UUID       `json:"movement_id"`
	Reference     string          `json:"reference"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage stages an outbox message carrying the movement event
func NewMessage(movementID uuid.UUID, event *movement.Event) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		MovementID: movementID,
		Reference:  event.Reference,
		Payload:    payload,
		Status:     StatusPending,
		Attempts:   0,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = StatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = StatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetEvent extracts the movement event from the payload
func (m *Message) GetEvent() (*movement.Event, error) {
	var event movement.Event
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
