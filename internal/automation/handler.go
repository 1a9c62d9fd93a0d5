package automation

import (
	"context"
	"fmt"

	"lookout/internal/logger"
	"lookout/pkg/models"
)

// EventHandler consumes persisted-event envelopes from the broker.
type EventHandler struct {
	processor EventProcessor
	logger    logger.Logger
}

func NewEventHandler(processor EventProcessor, log logger.Logger) *EventHandler {
	return &EventHandler{processor: processor, logger: log}
}

// Handle decodes the envelope and runs the pipeline. Decode failures are fatal
// so the consumer routes them to the DLQ without retrying.
func (h *EventHandler) Handle(ctx context.Context, envelope models.MessageEnvelope) error {
	if envelope.Type != models.TypeEventPersisted {
		h.logger.DebugwCtx(ctx, "Ignoring message of unexpected type",
			"id", envelope.ID,
			"type", envelope.Type,
		)
		return nil
	}

	var event models.EventMessage
	if err := envelope.Decode(&event); err != nil {
		return err
	}
	if event.ID == "" {
		return &models.ValidationError{Field: "payload.id", Message: "event id is required"}
	}

	summary, err := h.processor.Process(ctx, event)
	if err != nil {
		return fmt.Errorf("automation pipeline: %w", err)
	}

	h.logger.DebugwCtx(ctx, "Event processed by automation",
		"event_id", event.ID,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return nil
}
