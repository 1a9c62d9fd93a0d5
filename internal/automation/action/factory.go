package action

import (
	"lookout/internal/automation"
	"lookout/internal/broker"
	"lookout/internal/config"
	"lookout/internal/constants"
	"lookout/internal/logger"
)

// NewDispatcherFromConfig registers an executor for every action type. producer and
// publisher may be nil; actions that need them then fail with a descriptive error.
func NewDispatcherFromConfig(cfg *config.Config, producer broker.Producer, publisher Publisher, serviceName string, log logger.Logger) *Dispatcher {
	dispatcher := NewDispatcher(cfg.Automation.ActionTimeout, log)

	var email EmailSender
	if cfg.Actions.Notification.ResendAPIKey != "" {
		email = NewResendSender(cfg.Actions.Notification.ResendAPIKey, cfg.Actions.Notification.FromAddress)
	} else {
		log.Warnw("RESEND_API_KEY not set, email notifications will fail")
	}

	if publisher == nil {
		publisher = unavailablePublisher{}
	}

	prefix := cfg.Actions.MQTT.CommandTopicPrefix
	if prefix == "" {
		prefix = constants.DefaultEdgeCommandTopicPrefix
	}

	edge := NewEdgeCommandExecutor(publisher, prefix)

	return dispatcher.
		Register(automation.ActionNotification, NewNotificationExecutor(email, producer, cfg.Broker.Kafka.NotificationsTopic, serviceName)).
		Register(automation.ActionSiren, edge).
		Register(automation.ActionGateOpen, edge).
		Register(automation.ActionGateClose, edge).
		Register(automation.ActionHTTPRequest, NewHTTPExecutor(cfg.Actions.HTTP, cfg.CircuitBreaker)).
		Register(automation.ActionMQTTPublish, NewMQTTPublishExecutor(publisher, cfg.Actions.MQTT.QoS)).
		Register(automation.ActionCustom, NewCustomExecutor(producer, cfg.Broker.Kafka.CustomActionsTopic, serviceName))
}
