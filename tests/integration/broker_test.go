package integration

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/automation"
	"lookout/internal/broker"
	"lookout/internal/config"
	"lookout/internal/entitlement"
	"lookout/internal/ingestion"
)

const eventsTopic = "lookout.events.persisted"

func createTopic(t *testing.T, brokers []string, topic string) {
	t.Helper()

	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func TestBrokerHandoff_EventReachesAutomation(t *testing.T) {
	infra := SetupTestInfra(t, WithKafka())
	s := newScenario(t, infra.PostgresDB, nil)
	edge := seedFireOrganization(t, s, true)
	rule := createRule(t, infra.PostgresDB, sirenRule(42, 60))

	createTopic(t, infra.KafkaBrokers, eventsTopic)

	kafkaCfg := config.KafkaConfig{
		Brokers: infra.KafkaBrokers,
		GroupID: "automation-test",
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      2,
		},
	}
	log := createTestLogger()

	producer := broker.NewKafkaProducer(kafkaCfg, log)
	t.Cleanup(func() { producer.Close() })

	checker := entitlement.NewService(entitlement.NewRepository(infra.PostgresDB), 2*time.Second, log)
	ingestor := ingestion.NewService(checker, ingestion.NewEventRepository(infra.PostgresDB),
		ingestion.NewBrokerHandoff(producer, eventsTopic, "ingest-service"), "broker", log)

	result, err := ingestor.Ingest(context.Background(), edge, fireEnvelope(time.Now()))
	require.NoError(t, err)
	require.True(t, result.Accepted)

	consumer := broker.NewKafkaConsumer(kafkaCfg, log)
	consumer.SetServiceName("automation-service")
	t.Cleanup(func() { consumer.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handler := automation.NewEventHandler(s.pipeline, log)
	go consumer.Consume(ctx, eventsTopic, handler.Handle)

	require.Eventually(t, func() bool {
		logs, _, err := s.logs.List(context.Background(), automation.LogFilter{RuleID: rule.ID, Limit: 10})
		return err == nil && len(logs) == 1
	}, 60*time.Second, 250*time.Millisecond)

	logs := s.ruleLogs(t, rule.ID)
	assert.Equal(t, automation.StatusSucceeded, logs[0].Status)
	assert.Equal(t, result.EventID, logs[0].TriggeringEventID)
	assert.Len(t, s.publisher.published(), 1)
}
