package action

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"lookout/internal/automation"
	"lookout/pkg/models"
)

type publishedMQTT struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMQTT
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, publishedMQTT{topic: topic, qos: qos, retained: retained, payload: payload})
	return nil
}

type publishedEnvelope struct {
	topic    string
	envelope models.MessageEnvelope
}

type fakeProducer struct {
	mu        sync.Mutex
	published []publishedEnvelope
	err       error
}

func (p *fakeProducer) Publish(_ context.Context, topic string, msg models.MessageEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedEnvelope{topic: topic, envelope: msg})
	return nil
}

func (p *fakeProducer) Close() error { return nil }

type sentEmail struct {
	to      []string
	subject string
	html    string
	text    string
}

type fakeEmailSender struct {
	sent []sentEmail
	err  error
}

func (s *fakeEmailSender) Send(_ context.Context, to []string, subject, htmlBody, textBody string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEmail{to: to, subject: subject, html: htmlBody, text: textBody})
	return nil
}

type funcExecutor func(ctx context.Context) (json.RawMessage, error)

func (f funcExecutor) Execute(ctx context.Context, _ automation.Rule, _ models.EventMessage, _ interface{}) (json.RawMessage, error) {
	return f(ctx)
}

func rule(actionType automation.ActionType, command string) automation.Rule {
	return automation.Rule{
		ID:             11,
		OrganizationID: 42,
		Name:           "test rule",
		TriggerModule:  "fire",
		TriggerEvent:   "fire_detected",
		ActionType:     actionType,
		ActionCommand:  json.RawMessage(command),
		IsActive:       true,
	}
}

func event() models.EventMessage {
	return models.EventMessage{
		ID:             "5d1c3a0e-7d7b-4c55-9a0e-3f6f1c2b9e10",
		OrganizationID: 42,
		EdgeServerID:   7,
		Module:         "fire",
		EventType:      "fire_detected",
		Severity:       "critical",
		OccurredAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Meta:           map[string]interface{}{"camera_id": "cam-3"},
	}
}
