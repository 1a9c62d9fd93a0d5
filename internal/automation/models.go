package automation

import (
	"encoding/json"
	"time"
)

type ActionType string

const (
	ActionNotification ActionType = "notification"
	ActionSiren        ActionType = "siren"
	ActionGateOpen     ActionType = "gate_open"
	ActionGateClose    ActionType = "gate_close"
	ActionHTTPRequest  ActionType = "http_request"
	ActionMQTTPublish  ActionType = "mqtt_publish"
	ActionCustom       ActionType = "custom"
)

func (a ActionType) Valid() bool {
	for _, def := range ActionCatalog {
		if def.Type == a {
			return true
		}
	}
	return false
}

// IsEdgeCommand reports whether the action actuates a device through the edge command channel.
func (a ActionType) IsEdgeCommand() bool {
	return a == ActionSiren || a == ActionGateOpen || a == ActionGateClose
}

type Status string

const (
	StatusSucceeded       Status = "succeeded"
	StatusFailed          Status = "failed"
	StatusSkippedCooldown Status = "skipped_cooldown"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkippedCooldown:
		return true
	}
	return false
}

type Rule struct {
	ID                int64           `json:"id"`
	OrganizationID    int64           `json:"organization_id"`
	IntegrationID     *int64          `json:"integration_id,omitempty"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	TriggerModule     string          `json:"trigger_module"`
	TriggerEvent      string          `json:"trigger_event"`
	TriggerConditions json.RawMessage `json:"trigger_conditions,omitempty" swaggertype:"object"`
	ActionType        ActionType      `json:"action_type"`
	ActionCommand     json.RawMessage `json:"action_command" swaggertype:"object"`
	CooldownSeconds   int             `json:"cooldown_seconds"`
	Priority          int             `json:"priority"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (r Rule) Cooldown() time.Duration {
	return time.Duration(r.CooldownSeconds) * time.Second
}

// Log is one audit row per rule evaluation outcome.
type Log struct {
	ID                string          `json:"id"`
	RuleID            int64           `json:"automation_rule_id"`
	OrganizationID    int64           `json:"organization_id"`
	TriggeringEventID string          `json:"triggering_event_id,omitempty"`
	ActionType        ActionType      `json:"action_type"`
	ActionExecuted    json.RawMessage `json:"action_executed,omitempty" swaggertype:"object"`
	Status            Status          `json:"status"`
	ErrorDetail       string          `json:"error_detail,omitempty"`
	ExecutionTimeMs   int64           `json:"execution_time_ms"`
	CreatedAt         time.Time       `json:"created_at"`
}

type LogFilter struct {
	RuleID int64
	Status Status
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Outcome is what the dispatcher reports for one action attempt.
type Outcome struct {
	Status      Status
	ErrorDetail string
	Duration    time.Duration
	Executed    json.RawMessage
}

type TriggerDefinition struct {
	Module string   `json:"module"`
	Events []string `json:"events"`
}

type ActionDefinition struct {
	Type        ActionType `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

var TriggerCatalog = []TriggerDefinition{
	{Module: "fire", Events: []string{"fire_detected", "smoke_detected", "fire_cleared"}},
	{Module: "face", Events: []string{"known_face", "unknown_face", "blacklist_face", "vip_detected"}},
	{Module: "counter", Events: []string{"count_threshold", "entry", "exit", "overcrowding"}},
	{Module: "vehicle", Events: []string{"known_vehicle", "unknown_vehicle", "blacklist_vehicle", "vip_vehicle"}},
	{Module: "attendance", Events: []string{"check_in", "check_out", "late_arrival", "early_departure"}},
	{Module: "warehouse", Events: []string{"motion_detected", "restricted_area", "safety_violation"}},
	{Module: "productivity", Events: []string{"idle_detected", "activity_change", "break_exceeded"}},
	{Module: "audience", Events: []string{"demographic_update", "crowd_analysis"}},
	{Module: "intrusion", Events: []string{"intrusion_detected", "perimeter_breach", "loitering"}},
}

var ActionCatalog = []ActionDefinition{
	{Type: ActionNotification, Name: "Send notification", Description: "Email via Resend, push and sms via the notification service"},
	{Type: ActionSiren, Name: "Sound siren", Description: "Edge command to a siren device"},
	{Type: ActionGateOpen, Name: "Open gate", Description: "Edge command to a gate controller"},
	{Type: ActionGateClose, Name: "Close gate", Description: "Edge command to a gate controller"},
	{Type: ActionHTTPRequest, Name: "HTTP request", Description: "Call an external webhook"},
	{Type: ActionMQTTPublish, Name: "Publish MQTT", Description: "Publish a message to an MQTT topic"},
	{Type: ActionCustom, Name: "Custom", Description: "Hand the event to an external consumer"},
}
