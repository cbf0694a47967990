// Package domain defines outbox events and the notifications they carry.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/esign/internal/errors"
)

// OutboxEventStatus represents the delivery status of an outbox event.
type OutboxEventStatus string

const (
	OutboxEventStatusPending   OutboxEventStatus = "pending"
	OutboxEventStatusProcessed OutboxEventStatus = "processed"
	OutboxEventStatusFailed    OutboxEventStatus = "failed"
)

// OutboxEvent is a notification written in the same transaction as the state change
// that caused it and delivered later by the worker.
type OutboxEvent struct {
	ID          uuid.UUID
	EventType   string
	Payload     string
	Status      OutboxEventStatus
	Retries     int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOutboxEvent creates a pending event with payload encoded as JSON.
func NewOutboxEvent(eventType string, payload any) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal outbox payload")
	}
	return &OutboxEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: eventType,
		Payload:   string(data),
		Status:    OutboxEventStatusPending,
	}, nil
}

// secretPayloadKeys are blanked once an event is no longer pending.
var secretPayloadKeys = []string{"otp"}

// Redact blanks one-time codes carried in the payload. Payloads that are not JSON
// objects are left as they are.
func (e *OutboxEvent) Redact() {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(e.Payload), &fields); err != nil {
		return
	}

	changed := false
	for _, key := range secretPayloadKeys {
		if v, ok := fields[key]; ok && string(v) != `""` {
			fields[key] = json.RawMessage(`""`)
			changed = true
		}
	}
	if !changed {
		return
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return
	}
	e.Payload = string(data)
}

// Decode unmarshals the payload into v.
func (e *OutboxEvent) Decode(v any) error {
	if err := json.Unmarshal([]byte(e.Payload), v); err != nil {
		return apperrors.Wrap(apperrors.Join(apperrors.ErrInvalidInput, err), "malformed outbox payload")
	}
	return nil
}
