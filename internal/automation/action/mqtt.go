package action

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"lookout/internal/automation"
	"lookout/internal/config"
	"lookout/internal/logger"
	"lookout/pkg/models"
)

// Publisher is the MQTT side of the edge command channel.
type Publisher interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
}

type MQTTClient struct {
	client mqtt.Client
}

func NewMQTTClient(cfg config.MQTTConfig, log logger.Logger) (*MQTTClient, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnw("MQTT connection lost", "broker", cfg.BrokerURL, "error", err)
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Infow("Connected to MQTT broker", "broker", cfg.BrokerURL)
	})

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts.SetConnectTimeout(timeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return &MQTTClient{client: client}, nil
}

func (c *MQTTClient) Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt client is not connected")
	}

	token := c.client.Publish(topic, qos, retained, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish to topic %s: %w", topic, ctx.Err())
	}
}

func (c *MQTTClient) IsConnected() bool {
	return c.client.IsConnected()
}

func (c *MQTTClient) Disconnect() {
	c.client.Disconnect(250)
}

// EdgeCommandExecutor sends siren and gate commands to the edge server that produced the event.
type EdgeCommandExecutor struct {
	publisher   Publisher
	topicPrefix string
	qos         byte
	now         func() time.Time
}

func NewEdgeCommandExecutor(publisher Publisher, topicPrefix string) *EdgeCommandExecutor {
	return &EdgeCommandExecutor{publisher: publisher, topicPrefix: topicPrefix, qos: 1, now: time.Now}
}

func EdgeCommandTopic(prefix string, edgeServerID int64) string {
	return prefix + "/" + strconv.FormatInt(edgeServerID, 10) + "/commands"
}

func (e *EdgeCommandExecutor) Execute(ctx context.Context, rule automation.Rule, event models.EventMessage, command interface{}) (json.RawMessage, error) {
	cmd, ok := command.(DeviceCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", command)
	}

	params := make(map[string]interface{}, len(cmd.Extra)+1)
	for k, v := range cmd.Extra {
		params[k] = v
	}
	if cmd.DurationSeconds > 0 {
		params["duration_seconds"] = cmd.DurationSeconds
	}

	payload, err := json.Marshal(models.EdgeCommand{
		Command:  string(rule.ActionType),
		DeviceID: cmd.DeviceID,
		RuleID:   rule.ID,
		EventID:  event.ID,
		IssuedAt: e.now().UTC(),
		Params:   params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode edge command: %w", err)
	}

	if err := e.publisher.Publish(ctx, EdgeCommandTopic(e.topicPrefix, event.EdgeServerID), e.qos, false, payload); err != nil {
		return payload, err
	}
	return payload, nil
}

type MQTTPublishExecutor struct {
	publisher  Publisher
	defaultQoS byte
}

func NewMQTTPublishExecutor(publisher Publisher, defaultQoS byte) *MQTTPublishExecutor {
	return &MQTTPublishExecutor{publisher: publisher, defaultQoS: defaultQoS}
}

type mqttExecuted struct {
	Topic    string          `json:"topic"`
	QoS      byte            `json:"qos"`
	Retained bool            `json:"retained"`
	Payload  json.RawMessage `json:"payload"`
}

func (e *MQTTPublishExecutor) Execute(ctx context.Context, _ automation.Rule, event models.EventMessage, command interface{}) (json.RawMessage, error) {
	cmd, ok := command.(MQTTCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", command)
	}

	payload := []byte(cmd.Payload)
	if len(payload) == 0 {
		var err error
		if payload, err = json.Marshal(event); err != nil {
			return nil, fmt.Errorf("failed to encode event payload: %w", err)
		}
	}

	wire := payload
	var text string
	if payload[0] == '"' && json.Unmarshal(payload, &text) == nil {
		wire = []byte(text)
	}

	qos := e.defaultQoS
	if cmd.QoS != nil {
		qos = *cmd.QoS
	}

	executed, _ := json.Marshal(mqttExecuted{Topic: cmd.Topic, QoS: qos, Retained: cmd.Retained, Payload: payload})
	return executed, e.publisher.Publish(ctx, cmd.Topic, qos, cmd.Retained, wire)
}

type unavailablePublisher struct{}

func (unavailablePublisher) Publish(context.Context, string, byte, bool, []byte) error {
	return fmt.Errorf("mqtt is not configured")
}
