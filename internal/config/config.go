package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Ingestion      IngestionConfig
	Entitlement    EntitlementConfig
	Automation     AutomationConfig
	Actions        ActionsConfig
	Management     ManagementConfig
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool   `mapstructure:"run_migrations"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers            []string    `mapstructure:"brokers"`
	GroupID            string      `mapstructure:"group_id"`
	EventsTopic        string      `mapstructure:"events_topic"`
	NotificationsTopic string      `mapstructure:"notifications_topic"`
	CustomActionsTopic string      `mapstructure:"custom_actions_topic"`
	DLQTopic           string      `mapstructure:"dlq_topic"`
	Retry              RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type IngestionConfig struct {
	EdgeAuth  EdgeAuthConfig  `mapstructure:"edge_auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	// MaxBodyBytes caps the size of a single event envelope.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

type EdgeAuthConfig struct {
	MaxClockSkew time.Duration `mapstructure:"max_clock_skew"`
}

type EntitlementConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Automation modes.
const (
	AutomationModeInline   = "inline"
	AutomationModeBroker   = "broker"
	AutomationModeDisabled = "disabled"
)

// Cooldown and audit backends.
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMongoDB  = "mongodb"
)

type AutomationConfig struct {
	Mode          string        `mapstructure:"mode"`
	Workers       int           `mapstructure:"workers"`
	QueueSize     int           `mapstructure:"queue_size"`
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
	CooldownStore string        `mapstructure:"cooldown_store"`
	AuditStore    string        `mapstructure:"audit_store"`

	// HandoffTimeout bounds how long an ingest response waits on the hand-off.
	HandoffTimeout time.Duration `mapstructure:"handoff_timeout"`
}

type ActionsConfig struct {
	HTTP         HTTPActionConfig         `mapstructure:"http"`
	MQTT         MQTTConfig               `mapstructure:"mqtt"`
	Notification NotificationActionConfig `mapstructure:"notification"`
}

type HTTPActionConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type MQTTConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	BrokerURL          string        `mapstructure:"broker_url"`
	ClientID           string        `mapstructure:"client_id"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	CommandTopicPrefix string        `mapstructure:"command_topic_prefix"`
	QoS                byte          `mapstructure:"qos"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
}

type NotificationActionConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	FromAddress  string `mapstructure:"from_address"`
}

type ManagementConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
