package action

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"lookout/internal/automation"
	"lookout/internal/broker"
	"lookout/pkg/models"
)

// CustomExecutor publishes custom actions for external consumers.
type CustomExecutor struct {
	producer broker.Producer
	topic    string
	source   string
}

func NewCustomExecutor(producer broker.Producer, topic, source string) *CustomExecutor {
	return &CustomExecutor{producer: producer, topic: topic, source: source}
}

func (e *CustomExecutor) Execute(ctx context.Context, rule automation.Rule, event models.EventMessage, command interface{}) (json.RawMessage, error) {
	cmd, ok := command.(CustomCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", command)
	}
	if e.producer == nil {
		return nil, fmt.Errorf("custom actions require a broker")
	}

	msg := models.CustomActionMessage{
		RuleID:         rule.ID,
		EventID:        event.ID,
		OrganizationID: event.OrganizationID,
		Name:           cmd.Name,
		Params:         cmd.Params,
		Event:          event,
	}
	envelope, err := models.NewEnvelope(uuid.New().String(), models.TypeCustomAction, e.source, event.PartitionKey(), msg)
	if err != nil {
		return nil, err
	}
	if err := e.producer.Publish(ctx, e.topic, envelope); err != nil {
		return nil, fmt.Errorf("failed to publish custom action: %w", err)
	}

	out, _ := json.Marshal(cmd)
	return out, nil
}
