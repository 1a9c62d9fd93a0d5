package models

import (
	"strconv"
	"time"
)

// EventMessage is a persisted edge event as handed from ingestion to automation.
type EventMessage struct {
	ID             string                 `json:"id"`
	OrganizationID int64                  `json:"organization_id"`
	EdgeServerID   int64                  `json:"edge_server_id"`
	Module         string                 `json:"module,omitempty"`
	EventType      string                 `json:"event_type"`
	Severity       string                 `json:"severity"`
	OccurredAt     time.Time              `json:"occurred_at"`
	Meta           map[string]interface{} `json:"meta,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// PartitionKey keeps one organization's events ordered on a single partition.
func (e EventMessage) PartitionKey() string {
	return strconv.FormatInt(e.OrganizationID, 10)
}

// NotificationMessage asks the notification service to deliver on non-email channels.
type NotificationMessage struct {
	RuleID         int64    `json:"rule_id"`
	EventID        string   `json:"event_id"`
	OrganizationID int64    `json:"organization_id"`
	Channels       []string `json:"channels"`
	Recipients     []string `json:"recipients,omitempty"`
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	Severity       string   `json:"severity"`
}

// CustomActionMessage is published for actions executed outside this system.
type CustomActionMessage struct {
	RuleID         int64                  `json:"rule_id"`
	EventID        string                 `json:"event_id"`
	OrganizationID int64                  `json:"organization_id"`
	Name           string                 `json:"name"`
	Params         map[string]interface{} `json:"params,omitempty"`
	Event          EventMessage           `json:"event"`
}

// EdgeCommand is sent to an edge server over MQTT to actuate a device.
type EdgeCommand struct {
	Command  string                 `json:"command"`
	DeviceID string                 `json:"device_id,omitempty"`
	RuleID   int64                  `json:"rule_id"`
	EventID  string                 `json:"event_id"`
	IssuedAt time.Time              `json:"issued_at"`
	Params   map[string]interface{} `json:"params,omitempty"`
}
