package management

import (
	"encoding/json"
	"time"

	"lookout/internal/automation"
)

type CreateRuleRequest struct {
	OrganizationID    int64                 `json:"organization_id" binding:"required,gt=0"`
	IntegrationID     *int64                `json:"integration_id"`
	Name              string                `json:"name" binding:"required,max=255"`
	Description       string                `json:"description"`
	TriggerModule     string                `json:"trigger_module" binding:"required,max=100"`
	TriggerEvent      string                `json:"trigger_event" binding:"required,max=100"`
	TriggerConditions json.RawMessage       `json:"trigger_conditions" swaggertype:"object"`
	ActionType        automation.ActionType `json:"action_type" binding:"required"`
	ActionCommand     json.RawMessage       `json:"action_command" swaggertype:"object"`
	CooldownSeconds   *int                  `json:"cooldown_seconds"`
	Priority          *int                  `json:"priority"`
	IsActive          *bool                 `json:"is_active"`
}

type UpdateRuleRequest struct {
	IntegrationID     *int64                 `json:"integration_id"`
	Name              *string                `json:"name" binding:"omitempty,max=255"`
	Description       *string                `json:"description"`
	TriggerModule     *string                `json:"trigger_module" binding:"omitempty,max=100"`
	TriggerEvent      *string                `json:"trigger_event" binding:"omitempty,max=100"`
	TriggerConditions json.RawMessage        `json:"trigger_conditions" swaggertype:"object"`
	ActionType        *automation.ActionType `json:"action_type"`
	ActionCommand     json.RawMessage        `json:"action_command" swaggertype:"object"`
	CooldownSeconds   *int                   `json:"cooldown_seconds"`
	Priority          *int                   `json:"priority"`
	IsActive          *bool                  `json:"is_active"`
}

type RuleFilter struct {
	OrganizationID int64
	TriggerModule  string
	IsActive       *bool
	Limit          int
	Offset         int
}

type RuleList struct {
	Items  []automation.Rule `json:"items"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type LogList struct {
	Items  []automation.Log `json:"items"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// TestRuleRequest overrides parts of the synthetic event a rule test dispatches with.
type TestRuleRequest struct {
	EdgeServerID int64                  `json:"edge_server_id"`
	Severity     string                 `json:"severity"`
	Meta         map[string]interface{} `json:"meta" swaggertype:"object"`
}

type TestRuleResponse struct {
	Rule automation.Rule `json:"rule"`
	Log  automation.Log  `json:"log"`
}

type OverrideRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type Catalog struct {
	Triggers          []automation.TriggerDefinition `json:"triggers,omitempty"`
	Actions           []automation.ActionDefinition  `json:"actions,omitempty"`
	Operators         []automation.Operator          `json:"operators,omitempty"`
	ConditionExamples map[string]string              `json:"condition_examples,omitempty"`
}

// RuleAudit is one administrative change to a rule or entitlement override.
type RuleAudit struct {
	ID             string          `json:"id"`
	RuleID         *int64          `json:"rule_id,omitempty"`
	OrganizationID int64           `json:"organization_id"`
	Action         string          `json:"action"`
	OldValue       json.RawMessage `json:"old_value,omitempty" swaggertype:"object"`
	NewValue       json.RawMessage `json:"new_value,omitempty" swaggertype:"object"`
	ChangedBy      string          `json:"changed_by"`
	IPAddress      string          `json:"ip_address,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Audit actions.
const (
	AuditCreate        = "create"
	AuditUpdate        = "update"
	AuditDelete        = "delete"
	AuditToggle        = "toggle"
	AuditSetOverride   = "set_override"
	AuditClearOverride = "clear_override"
)
