package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
server:
  port: 8080
database:
  postgres:
    host: localhost
    port: 5432
    user: lookout
    password: secret
    dbname: lookout
    sslmode: disable
  redis:
    host: localhost
    port: 6379
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, AutomationModeInline, cfg.Automation.Mode)
	assert.Equal(t, StoreRedis, cfg.Automation.CooldownStore)
	assert.Equal(t, StorePostgres, cfg.Automation.AuditStore)
	assert.Equal(t, 5*time.Second, cfg.Automation.ActionTimeout)
	assert.Equal(t, 2*time.Second, cfg.Automation.HandoffTimeout)
	assert.Equal(t, 300*time.Second, cfg.Ingestion.EdgeAuth.MaxClockSkew)
	assert.Equal(t, 2*time.Second, cfg.Entitlement.Timeout)
	assert.Equal(t, "lookout_events", cfg.Broker.Kafka.EventsTopic)
	assert.Equal(t, "edge", cfg.Actions.MQTT.CommandTopicPrefix)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("BROKER_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("AUTOMATION_MODE", "broker")

	cfg, err := LoadConfig(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, AutomationModeBroker, cfg.Automation.Mode)
}

func TestValidateStatic(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080, ReadTimeoutSeconds: time.Second, WriteTimeoutSeconds: time.Second},
			Database: DatabaseConfig{
				Redis: RedisConfig{Host: "localhost", Port: 6379},
			},
			Ingestion: IngestionConfig{EdgeAuth: EdgeAuthConfig{MaxClockSkew: time.Minute}},
			Automation: AutomationConfig{
				Mode:          AutomationModeInline,
				Workers:       2,
				QueueSize:     10,
				ActionTimeout: time.Second,
				CooldownStore: StoreRedis,
				AuditStore:    StorePostgres,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown mode", func(c *Config) { c.Automation.Mode = "sync" }, "automation.mode"},
		{"broker mode without kafka", func(c *Config) { c.Automation.Mode = AutomationModeBroker }, "broker.kafka"},
		{"redis cooldown without redis", func(c *Config) { c.Database.Redis = RedisConfig{} }, "automation.cooldown_store"},
		{"mongo audit without mongo", func(c *Config) { c.Automation.AuditStore = StoreMongoDB }, "automation.audit_store"},
		{"mqtt without url", func(c *Config) { c.Actions.MQTT.Enabled = true }, "actions.mqtt.broker_url"},
		{"resend without sender", func(c *Config) { c.Actions.Notification.ResendAPIKey = "re_123" }, "from_address"},
		{"zero workers inline", func(c *Config) { c.Automation.Workers = 0 }, "automation.workers"},
		{"broker mode without handoff timeout", func(c *Config) {
			c.Automation.Mode = AutomationModeBroker
			c.Broker.Kafka.Brokers = []string{"localhost:9092"}
			c.Broker.Kafka.EventsTopic = "lookout.events.persisted"
		}, "automation.handoff_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateStatic(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
