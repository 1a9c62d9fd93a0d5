package ingestion

import (
	"context"
	"fmt"

	"lookout/internal/broker"
	"lookout/pkg/models"
)

// Handoff passes a persisted event on to automation. The ingest response waits on
// the call for at most the service's hand-off timeout; implementations should
// return once ctx is done.
type Handoff interface {
	Handoff(ctx context.Context, event models.EventMessage) error
}

// BrokerHandoff publishes persisted events for the automation service.
type BrokerHandoff struct {
	producer broker.Producer
	topic    string
	source   string
}

func NewBrokerHandoff(producer broker.Producer, topic, source string) *BrokerHandoff {
	return &BrokerHandoff{producer: producer, topic: topic, source: source}
}

func (h *BrokerHandoff) Handoff(ctx context.Context, event models.EventMessage) error {
	envelope, err := models.NewEnvelope(event.ID, models.TypeEventPersisted, h.source, event.PartitionKey(), event)
	if err != nil {
		return err
	}
	envelope.Metadata.OrganizationID = event.PartitionKey()
	if err := h.producer.Publish(ctx, h.topic, envelope); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}
	return nil
}
