package action

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"lookout/internal/automation"
)

// Notification channels.
const (
	ChannelEmail = "email"
	ChannelPush  = "push"
	ChannelSMS   = "sms"
)

type NotificationCommand struct {
	Channels   []string `json:"channels"`
	Recipients []string `json:"recipients,omitempty"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
}

// DeviceCommand drives siren and gate actions on the edge.
type DeviceCommand struct {
	DeviceID        string                 `json:"device_id"`
	DurationSeconds int                    `json:"duration_seconds,omitempty"`
	Extra           map[string]interface{} `json:"extra,omitempty"`
}

type HTTPCommand struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

type MQTTCommand struct {
	Topic    string          `json:"topic"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	QoS      *byte           `json:"qos,omitempty"`
	Retained bool            `json:"retained,omitempty"`
}

type CustomCommand struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// DecodeCommand parses raw into the command type for actionType and validates it.
func DecodeCommand(actionType automation.ActionType, raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch actionType {
	case automation.ActionNotification:
		var cmd NotificationCommand
		if err := decode(raw, &cmd); err != nil {
			return nil, err
		}
		return cmd, cmd.validate()
	case automation.ActionSiren, automation.ActionGateOpen, automation.ActionGateClose:
		var cmd DeviceCommand
		if err := decode(raw, &cmd); err != nil {
			return nil, err
		}
		return cmd, cmd.validate()
	case automation.ActionHTTPRequest:
		var cmd HTTPCommand
		if err := decode(raw, &cmd); err != nil {
			return nil, err
		}
		return cmd, cmd.validate()
	case automation.ActionMQTTPublish:
		var cmd MQTTCommand
		if err := decode(raw, &cmd); err != nil {
			return nil, err
		}
		return cmd, cmd.validate()
	case automation.ActionCustom:
		var cmd CustomCommand
		if err := decode(raw, &cmd); err != nil {
			return nil, err
		}
		return cmd, cmd.validate()
	}
	return nil, fmt.Errorf("unsupported action type %q", actionType)
}

func decode(raw json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid action_command: %w", err)
	}
	return nil
}

func (c NotificationCommand) validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("notification requires at least one channel")
	}
	for _, ch := range c.Channels {
		switch ch {
		case ChannelEmail:
			if len(c.Recipients) == 0 {
				return fmt.Errorf("email notifications require recipients")
			}
		case ChannelPush, ChannelSMS:
		default:
			return fmt.Errorf("unknown notification channel %q", ch)
		}
	}
	if c.Title == "" && c.Message == "" {
		return fmt.Errorf("notification requires a title or message")
	}
	return nil
}

func (c DeviceCommand) validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	if c.DurationSeconds < 0 {
		return fmt.Errorf("duration_seconds must be >= 0")
	}
	return nil
}

func (c HTTPCommand) validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || c.URL == "" {
		return fmt.Errorf("url is required and must be valid")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	switch c.method() {
	case "GET", "POST", "PUT", "PATCH", "DELETE":
	default:
		return fmt.Errorf("unsupported method %q", c.Method)
	}
	return nil
}

func (c HTTPCommand) method() string {
	if c.Method == "" {
		return "POST"
	}
	return strings.ToUpper(c.Method)
}

func (c MQTTCommand) validate() error {
	if c.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if strings.ContainsAny(c.Topic, "+#") {
		return fmt.Errorf("topic must not contain wildcards")
	}
	if c.QoS != nil && *c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2")
	}
	return nil
}

func (c CustomCommand) validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
