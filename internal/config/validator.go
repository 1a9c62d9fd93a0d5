package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateIngestion(cfg.Ingestion); err != nil {
		errors = append(errors, err)
	}

	if err := validateAutomation(cfg.Automation, cfg.Broker, cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateActions(cfg.Actions); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "", "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			return nil
		}
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.InitialInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if cfg.URI == "" {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI is required",
		}
	}

	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "MongoDB database name is required",
		}
	}

	return nil
}

func validateIngestion(cfg IngestionConfig) error {
	if cfg.EdgeAuth.MaxClockSkew <= 0 {
		return &ValidationError{
			Field:   "ingestion.edge_auth.max_clock_skew",
			Message: "max clock skew must be positive",
		}
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst <= 0) {
		return &ValidationError{
			Field:   "ingestion.rate_limit",
			Message: "rps and burst must be positive when rate limiting is enabled",
		}
	}

	return nil
}

func validateAutomation(cfg AutomationConfig, broker BrokerConfig, db DatabaseConfig) error {
	switch cfg.Mode {
	case AutomationModeInline:
		if cfg.Workers < 1 {
			return &ValidationError{
				Field:   "automation.workers",
				Message: fmt.Sprintf("at least one worker is required in inline mode, got %d", cfg.Workers),
			}
		}
		if cfg.QueueSize < 1 {
			return &ValidationError{
				Field:   "automation.queue_size",
				Message: "queue size must be positive",
			}
		}
	case AutomationModeBroker:
		if len(broker.Kafka.Brokers) == 0 || broker.Kafka.EventsTopic == "" {
			return &ValidationError{
				Field:   "broker.kafka",
				Message: "kafka brokers and events_topic are required in broker mode",
			}
		}
		if cfg.HandoffTimeout <= 0 {
			return &ValidationError{
				Field:   "automation.handoff_timeout",
				Message: "handoff timeout must be positive in broker mode",
			}
		}
	case AutomationModeDisabled:
	default:
		return &ValidationError{
			Field:   "automation.mode",
			Message: fmt.Sprintf("invalid automation mode: %s (valid: inline, broker, disabled)", cfg.Mode),
		}
	}

	if cfg.ActionTimeout <= 0 {
		return &ValidationError{
			Field:   "automation.action_timeout",
			Message: "action timeout must be positive",
		}
	}

	switch strings.ToLower(cfg.CooldownStore) {
	case StoreRedis:
		if db.Redis.Host == "" {
			return &ValidationError{
				Field:   "automation.cooldown_store",
				Message: "redis cooldown store requires database.redis",
			}
		}
	case StorePostgres:
	default:
		return &ValidationError{
			Field:   "automation.cooldown_store",
			Message: fmt.Sprintf("invalid cooldown store: %s (valid: redis, postgres)", cfg.CooldownStore),
		}
	}

	switch strings.ToLower(cfg.AuditStore) {
	case StorePostgres:
	case StoreMongoDB:
		if db.MongoDB.URI == "" {
			return &ValidationError{
				Field:   "automation.audit_store",
				Message: "mongodb audit store requires database.mongodb",
			}
		}
	default:
		return &ValidationError{
			Field:   "automation.audit_store",
			Message: fmt.Sprintf("invalid audit store: %s (valid: postgres, mongodb)", cfg.AuditStore),
		}
	}

	return nil
}

func validateActions(cfg ActionsConfig) error {
	if cfg.MQTT.Enabled && cfg.MQTT.BrokerURL == "" {
		return &ValidationError{
			Field:   "actions.mqtt.broker_url",
			Message: "MQTT broker URL is required when MQTT is enabled",
		}
	}

	if cfg.MQTT.QoS > 2 {
		return &ValidationError{
			Field:   "actions.mqtt.qos",
			Message: fmt.Sprintf("qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS),
		}
	}

	if cfg.Notification.ResendAPIKey != "" && cfg.Notification.FromAddress == "" {
		return &ValidationError{
			Field:   "actions.notification.from_address",
			Message: "from address is required when email delivery is configured",
		}
	}

	return nil
}
