package management

import (
	"context"

	"lookout/internal/automation"
	"lookout/internal/entitlement"
	"lookout/pkg/models"
)

type Service interface {
	CreateRule(ctx context.Context, req CreateRuleRequest) (*automation.Rule, error)
	ListRules(ctx context.Context, filter RuleFilter) (*RuleList, error)
	GetRule(ctx context.Context, id int64) (*automation.Rule, error)
	UpdateRule(ctx context.Context, id int64, req UpdateRuleRequest) (*automation.Rule, error)
	DeleteRule(ctx context.Context, id int64) error
	ToggleRule(ctx context.Context, id int64) (*automation.Rule, error)
	TestRule(ctx context.Context, id int64, req TestRuleRequest) (*TestRuleResponse, error)
	ListRuleLogs(ctx context.Context, id int64, filter automation.LogFilter) (*LogList, error)
	GetRuleHistory(ctx context.Context, id int64, limit int) ([]RuleAudit, error)
	Catalog() Catalog

	GetModuleEntitlement(ctx context.Context, organizationID int64, module string) (entitlement.Resolution, error)
	SetModuleOverride(ctx context.Context, organizationID int64, module string, enabled bool) (entitlement.Resolution, error)
	ClearModuleOverride(ctx context.Context, organizationID int64, module string) (entitlement.Resolution, error)
}

// RuleTester dispatches a rule once, bypassing cooldown, and records the outcome.
type RuleTester interface {
	Execute(ctx context.Context, rule automation.Rule, event models.EventMessage) *automation.Log
}

type Entitlements interface {
	Resolve(ctx context.Context, organizationID int64, module string) (entitlement.Resolution, error)
	SetOverride(ctx context.Context, organizationID int64, module string, enabled bool) error
	ClearOverride(ctx context.Context, organizationID int64, module string) (bool, error)
}
