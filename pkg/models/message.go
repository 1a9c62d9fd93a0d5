package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types carried in MessageEnvelope.Type.
const (
	TypeEventPersisted = "event.persisted"
	TypeNotification   = "automation.notification"
	TypeCustomAction   = "automation.custom_action"
)

type MessageEnvelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Key       string          `json:"key,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  Metadata        `json:"metadata"`
}

type Metadata struct {
	TraceID        string   `json:"trace_id,omitempty"`
	OrganizationID string   `json:"organization_id,omitempty"`
	DLQ            *DLQInfo `json:"dlq,omitempty"`
}

type DLQInfo struct {
	Reason      string    `json:"reason"`
	SourceTopic string    `json:"source_topic"`
	FailedAt    time.Time `json:"failed_at"`
}

// NewEnvelope wraps payload for publication. key selects the Kafka partition.
func NewEnvelope(id, msgType, source, key string, payload interface{}) (MessageEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return MessageEnvelope{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}

	return MessageEnvelope{
		ID:        id,
		Type:      msgType,
		Source:    source,
		Key:       key,
		Timestamp: time.Now().UTC(),
		Payload:   body,
	}, nil
}

func (m MessageEnvelope) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return &ValidationError{Field: "payload", Message: "payload is empty"}
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return &ValidationError{Field: "payload", Message: err.Error()}
	}
	return nil
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// IsFatal marks envelope problems as non-retryable for the consumer.
func (e *ValidationError) IsFatal() bool { return true }

func ValidateMessageEnvelope(msg *MessageEnvelope) error {
	if msg == nil {
		return &ValidationError{Field: "envelope", Message: "message envelope cannot be nil"}
	}
	if msg.ID == "" {
		return &ValidationError{Field: "id", Message: "message ID is required"}
	}
	if msg.Type == "" {
		return &ValidationError{Field: "type", Message: "message type is required"}
	}
	if msg.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "message timestamp is required"}
	}
	return nil
}
