package bootstrap

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"lookout/internal/automation"
	"lookout/internal/automation/action"
	"lookout/internal/broker"
	"lookout/internal/config"
	"lookout/internal/logger"
	"lookout/pkg/cel"
)

// AutomationDeps are the connections the automation pipeline draws on. Any of
// them may be nil when the configured stores do not need it.
type AutomationDeps struct {
	DB       *sql.DB
	Redis    *redis.Client
	Mongo    *mongo.Database
	Producer broker.Producer
	MQTT     *action.MQTTClient
}

// NewAutomationPipeline wires matcher, cooldown guard, dispatcher and log store
// from cfg.
func NewAutomationPipeline(cfg *config.Config, deps AutomationDeps, serviceName string, log logger.Logger) (*automation.Pipeline, automation.LogStore, error) {
	if deps.DB == nil {
		return nil, nil, fmt.Errorf("automation requires a postgres connection for rules")
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, nil, err
	}

	guard, err := automation.NewCooldownGuard(cfg.Automation.CooldownStore, deps.Redis, deps.DB, cfg.CircuitBreaker)
	if err != nil {
		return nil, nil, err
	}

	logs, err := automation.NewLogStore(cfg.Automation.AuditStore, deps.DB, deps.Mongo)
	if err != nil {
		return nil, nil, err
	}

	var publisher action.Publisher
	if deps.MQTT != nil {
		publisher = deps.MQTT
	}

	matcher := automation.NewMatcher(automation.NewRuleRepository(deps.DB), evaluator, log.Component("matcher"))
	dispatcher := action.NewDispatcherFromConfig(cfg, deps.Producer, publisher, serviceName, log.Component("dispatcher"))

	return automation.NewPipeline(matcher, guard, dispatcher, logs, log.Component("pipeline")), logs, nil
}

// InitMQTT connects the edge command channel. It returns nil when MQTT is disabled.
func InitMQTT(cfg *config.Config, log logger.Logger) (*action.MQTTClient, error) {
	if !cfg.Actions.MQTT.Enabled {
		log.Warnw("MQTT disabled, edge commands and mqtt_publish actions will fail")
		return nil, nil
	}
	client, err := action.NewMQTTClient(cfg.Actions.MQTT, log)
	if err != nil {
		return nil, err
	}
	return client, nil
}
