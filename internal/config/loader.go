package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"lookout/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.read_timeout_seconds", 10*time.Second)
	viper.SetDefault("server.write_timeout_seconds", 10*time.Second)

	viper.SetDefault("database.migrations_dir", "migrations/postgres")

	viper.SetDefault("broker.type", "kafka")
	viper.SetDefault("broker.kafka.events_topic", constants.DefaultEventsTopic)
	viper.SetDefault("broker.kafka.notifications_topic", constants.DefaultNotificationsTopic)
	viper.SetDefault("broker.kafka.custom_actions_topic", constants.DefaultCustomActionsTopic)
	viper.SetDefault("broker.kafka.dlq_topic", constants.DefaultDLQTopic)
	viper.SetDefault("broker.kafka.retry.max_attempts", 3)
	viper.SetDefault("broker.kafka.retry.initial_interval", 100*time.Millisecond)
	viper.SetDefault("broker.kafka.retry.max_interval", 5*time.Second)
	viper.SetDefault("broker.kafka.retry.multiplier", 2.0)

	viper.SetDefault("logging.level", "info")

	viper.SetDefault("ingestion.edge_auth.max_clock_skew", constants.DefaultEdgeClockSkew)
	viper.SetDefault("ingestion.max_body_bytes", constants.DefaultMaxEventBodyBytes)
	viper.SetDefault("entitlement.timeout", constants.DefaultEntitlementTimeout)

	viper.SetDefault("automation.mode", AutomationModeInline)
	viper.SetDefault("automation.workers", 4)
	viper.SetDefault("automation.queue_size", 1024)
	viper.SetDefault("automation.action_timeout", constants.DefaultActionTimeout)
	viper.SetDefault("automation.handoff_timeout", constants.DefaultHandoffTimeout)
	viper.SetDefault("automation.cooldown_store", StoreRedis)
	viper.SetDefault("automation.audit_store", StorePostgres)

	viper.SetDefault("actions.http.timeout", constants.DefaultActionTimeout)
	viper.SetDefault("actions.http.user_agent", "lookout-automation/1.0")
	viper.SetDefault("actions.mqtt.command_topic_prefix", constants.DefaultEdgeCommandTopicPrefix)
	viper.SetDefault("actions.mqtt.qos", 1)
	viper.SetDefault("actions.mqtt.connect_timeout", 10*time.Second)
}

func bindEnvVariables() {
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.events_topic", "BROKER_KAFKA_EVENTS_TOPIC")
	viper.BindEnv("broker.kafka.notifications_topic", "BROKER_KAFKA_NOTIFICATIONS_TOPIC")
	viper.BindEnv("broker.kafka.custom_actions_topic", "BROKER_KAFKA_CUSTOM_ACTIONS_TOPIC")
	viper.BindEnv("broker.kafka.dlq_topic", "BROKER_KAFKA_DLQ_TOPIC")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	viper.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")

	viper.BindEnv("automation.mode", "AUTOMATION_MODE")
	viper.BindEnv("automation.workers", "AUTOMATION_WORKERS")
	viper.BindEnv("automation.cooldown_store", "AUTOMATION_COOLDOWN_STORE")
	viper.BindEnv("automation.audit_store", "AUTOMATION_AUDIT_STORE")

	viper.BindEnv("actions.mqtt.broker_url", "ACTIONS_MQTT_BROKER_URL")
	viper.BindEnv("actions.mqtt.username", "ACTIONS_MQTT_USERNAME")
	viper.BindEnv("actions.mqtt.password", "ACTIONS_MQTT_PASSWORD")
	viper.BindEnv("actions.notification.resend_api_key", "RESEND_API_KEY")
	viper.BindEnv("actions.notification.from_address", "ACTIONS_NOTIFICATION_FROM_ADDRESS")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}
