package management

import (
	"encoding/json"
	"fmt"
	"strings"

	"lookout/internal/automation"
	"lookout/internal/automation/action"
	"lookout/internal/constants"
)

type fieldErrors map[string][]string

func (f fieldErrors) add(field, format string, args ...interface{}) {
	f[field] = append(f[field], fmt.Sprintf(format, args...))
}

// ValidateRule checks a complete rule before it is written: the action command must
// decode for its action type and the conditions must parse and compile.
func ValidateRule(rule *automation.Rule, evaluator automation.ExpressionEvaluator) fieldErrors {
	errs := fieldErrors{}

	if strings.TrimSpace(rule.Name) == "" {
		errs.add("name", "name is required")
	}
	if strings.TrimSpace(rule.TriggerModule) == "" {
		errs.add("trigger_module", "trigger_module is required")
	}
	if strings.TrimSpace(rule.TriggerEvent) == "" {
		errs.add("trigger_event", "trigger_event is required")
	}
	if rule.CooldownSeconds < 0 {
		errs.add("cooldown_seconds", "cooldown_seconds must be >= 0")
	}
	if rule.Priority < 0 {
		errs.add("priority", "priority must be >= 0")
	}

	if !rule.ActionType.Valid() {
		errs.add("action_type", "unsupported action type %q", rule.ActionType)
	} else if _, err := action.DecodeCommand(rule.ActionType, rule.ActionCommand); err != nil {
		errs.add("action_command", "%s", err.Error())
	}

	conds, err := automation.ParseConditions(rule.TriggerConditions)
	if err != nil {
		errs.add("trigger_conditions", "%s", err.Error())
	} else if err := automation.ValidateConditions(conds, evaluator); err != nil {
		errs.add("trigger_conditions", "%s", err.Error())
	}

	return errs
}

func ruleFromCreate(req CreateRuleRequest) *automation.Rule {
	rule := &automation.Rule{
		OrganizationID:    req.OrganizationID,
		IntegrationID:     req.IntegrationID,
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		TriggerModule:     normalizeKey(req.TriggerModule),
		TriggerEvent:      strings.TrimSpace(req.TriggerEvent),
		TriggerConditions: compactJSON(req.TriggerConditions),
		ActionType:        req.ActionType,
		ActionCommand:     compactJSON(req.ActionCommand),
		CooldownSeconds:   constants.DefaultCooldownSeconds,
		IsActive:          true,
	}
	if req.CooldownSeconds != nil {
		rule.CooldownSeconds = *req.CooldownSeconds
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	return rule
}

func applyUpdate(rule *automation.Rule, req UpdateRuleRequest) {
	if req.IntegrationID != nil {
		rule.IntegrationID = req.IntegrationID
	}
	if req.Name != nil {
		rule.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.TriggerModule != nil {
		rule.TriggerModule = normalizeKey(*req.TriggerModule)
	}
	if req.TriggerEvent != nil {
		rule.TriggerEvent = strings.TrimSpace(*req.TriggerEvent)
	}
	if len(req.TriggerConditions) > 0 {
		rule.TriggerConditions = compactJSON(req.TriggerConditions)
	}
	if req.ActionType != nil {
		rule.ActionType = *req.ActionType
	}
	if len(req.ActionCommand) > 0 {
		rule.ActionCommand = compactJSON(req.ActionCommand)
	}
	if req.CooldownSeconds != nil {
		rule.CooldownSeconds = *req.CooldownSeconds
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func compactJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
