package broker

import (
	"context"

	"lookout/pkg/models"
)

// Producer publishes enveloped messages, such as persisted events and edge commands.
type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	Close() error
}

// Consumer delivers each message on topic to handler until ctx is done.
// Messages whose handler returns a FatalError are not retried and go to the
// dead-letter topic when one is configured.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, msg models.MessageEnvelope) error
