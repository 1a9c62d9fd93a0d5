package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IngestedEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_total",
			Help: "Total number of edge events handled by the ingestor (count)",
		},
		[]string{"status"},
	)

	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_ms",
			Help:    "Edge event ingestion duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"status"},
	)

	EdgeAuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_auth_failures_total",
			Help: "Total number of rejected edge authentication attempts (count)",
		},
		[]string{"reason"},
	)

	EntitlementChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_checks_total",
			Help: "Total number of module entitlement lookups (count)",
		},
		[]string{"module", "result"},
	)

	AutomationHandoffTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_handoff_total",
			Help: "Total number of persisted events handed to automation (count)",
		},
		[]string{"mode", "status"},
	)

	RuleMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_rule_matches_total",
			Help: "Total number of rule evaluation results (count)",
		},
		[]string{"result"},
	)

	AutomationOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_outcomes_total",
			Help: "Total number of automation log outcomes by action type (count)",
		},
		[]string{"action_type", "status"},
	)

	ActionDispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automation_action_duration_ms",
			Help:    "Action dispatch duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"action_type", "status"},
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automation_pipeline_duration_ms",
			Help:    "Per-event automation pipeline duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"status"},
	)

	CooldownErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_cooldown_errors_total",
			Help: "Total number of cooldown store failures (count)",
		},
		[]string{"store"},
	)

	AuditWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_audit_write_failures_total",
			Help: "Total number of automation log rows that could not be written (count)",
		},
		[]string{"store"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag (difference between latest offset and committed offset) (count)",
		},
		[]string{"service", "topic", "partition"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)

	AutomationQueueSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "automation_queue_size",
			Help: "Current number of events waiting for the inline automation workers (count)",
		},
	)

	AutomationQueueWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "automation_queue_wait_duration_ms",
			Help:    "Duration events wait in the inline automation queue in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
)

// register tolerates collectors that are already registered so services that
// embed several components can call more than one Register* function.
func register(collectors ...prometheus.Collector) {
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

func RegisterIngestionMetrics() {
	register(
		IngestedEventsTotal,
		IngestDuration,
		EdgeAuthFailuresTotal,
		EntitlementChecksTotal,
		AutomationHandoffTotal,
		RateLimitRequestsTotal,
		FallbackUsageTotal,
		DatabaseQueriesTotal,
		DatabaseQueryDuration,
	)
}

func RegisterAutomationMetrics() {
	register(
		RuleMatchesTotal,
		AutomationOutcomesTotal,
		ActionDispatchDuration,
		PipelineDuration,
		CooldownErrorsTotal,
		AuditWriteFailuresTotal,
		AutomationQueueSize,
		AutomationQueueWaitDuration,
	)
}

func RegisterBrokerMetrics() {
	register(
		RetryAttemptsTotal,
		DLQMessagesTotal,
		KafkaMessagesReadTotal,
		KafkaMessagesWrittenTotal,
		KafkaMessageSizeBytes,
		KafkaConsumerLag,
		KafkaWriteDuration,
	)
}

func RegisterCircuitBreakerMetrics() {
	register(CircuitBreakerState, CircuitBreakerRequests, CircuitBreakerFailures)
}

func RegisterManagementMetrics() {
	register(RateLimitRequestsTotal, DatabaseQueriesTotal, DatabaseQueryDuration)
}

func ObserveIngest(duration time.Duration, status string) {
	IngestedEventsTotal.WithLabelValues(status).Inc()
	IngestDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncEdgeAuthFailure(reason string) {
	EdgeAuthFailuresTotal.WithLabelValues(reason).Inc()
}

func IncEntitlementCheck(module, result string) {
	EntitlementChecksTotal.WithLabelValues(module, result).Inc()
}

func IncAutomationHandoff(mode, status string) {
	AutomationHandoffTotal.WithLabelValues(mode, status).Inc()
}

func IncRuleMatch(result string) {
	RuleMatchesTotal.WithLabelValues(result).Inc()
}

func IncAutomationOutcome(actionType, status string) {
	AutomationOutcomesTotal.WithLabelValues(actionType, status).Inc()
}

func ObserveActionDispatch(actionType, status string, duration time.Duration) {
	ActionDispatchDuration.WithLabelValues(actionType, status).Observe(float64(duration.Milliseconds()))
}

func ObservePipelineDuration(duration time.Duration, status string) {
	PipelineDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncCooldownError(store string) {
	CooldownErrorsTotal.WithLabelValues(store).Inc()
}

func IncAuditWriteFailure(store string) {
	AuditWriteFailuresTotal.WithLabelValues(store).Inc()
}

func IncFallbackUsage(service, strategy, reason string) {
	FallbackUsageTotal.WithLabelValues(service, strategy, reason).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	KafkaConsumerLag.WithLabelValues(service, topic, fmt.Sprintf("%d", partition)).Set(float64(lag))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}

func SetAutomationQueueSize(size int) {
	AutomationQueueSize.Set(float64(size))
}

func ObserveAutomationQueueWait(duration time.Duration) {
	AutomationQueueWaitDuration.Observe(float64(duration.Milliseconds()))
}
