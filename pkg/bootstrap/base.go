// Package bootstrap holds the wiring shared by the lookout services: broker
// clients, database connections and the automation pipeline.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"lookout/internal/broker"
	"lookout/internal/config"
	"lookout/internal/logger"
)

// Base is embedded by each service App. Producer and Consumer stay nil unless
// the service needs the events topic.
type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer broker.Producer
	Consumer broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{Config: cfg, Logger: log}
}

// InitProducer is idempotent so both handoff and edge-command paths can ask for it.
func (b *Base) InitProducer(serviceName string) error {
	if b.Producer != nil {
		return nil
	}

	producer, err := broker.NewProducer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	if named, ok := producer.(interface{ SetServiceName(string) }); ok && serviceName != "" {
		named.SetServiceName(serviceName)
	}
	b.Producer = producer
	return nil
}

// InitBroker creates the producer used for dead-lettering and the events consumer.
func (b *Base) InitBroker(serviceName string) error {
	if err := b.InitProducer(serviceName); err != nil {
		return err
	}

	consumer, err := broker.NewConsumer(b.Config.Broker, b.Logger)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to create consumer: %w", err), b.closeProducer())
	}
	if serviceName != "" {
		consumer.SetServiceName(serviceName)
	}
	b.Consumer = consumer
	return nil
}

func (b *Base) closeProducer() error {
	if b.Producer == nil {
		return nil
	}
	err := b.Producer.Close()
	b.Producer = nil
	if err != nil {
		return fmt.Errorf("producer close: %w", err)
	}
	return nil
}

// ShutdownBroker closes the consumer first so no handler is mid-flight when the
// producer it may publish through goes away.
func (b *Base) ShutdownBroker() error {
	var errs []error
	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close: %w", err))
		}
		b.Consumer = nil
	}
	errs = append(errs, b.closeProducer())
	return errors.Join(errs...)
}

// Shutdown runs serviceShutdown before closing the broker so components can
// still flush through the producer.
func (b *Base) Shutdown(ctx context.Context, serviceShutdown func(ctx context.Context) []error) error {
	b.Logger.InfowCtx(ctx, "Shutting down application")

	var errs []error
	if serviceShutdown != nil {
		errs = append(errs, serviceShutdown(ctx)...)
	}
	errs = append(errs, b.ShutdownBroker())

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	b.Logger.InfowCtx(ctx, "Application exited successfully")
	return nil
}
