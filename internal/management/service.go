package management

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"lookout/internal/automation"
	"lookout/internal/constants"
	"lookout/internal/entitlement"
	"lookout/internal/logger"
	"lookout/pkg/cel"
	pkgerrors "lookout/pkg/errors"
	"lookout/pkg/models"
)

type service struct {
	repo         Repository
	logs         automation.LogStore
	evaluator    automation.ExpressionEvaluator
	tester       RuleTester
	entitlements Entitlements
	audit        AuditStore
	logger       logger.Logger
	now          func() time.Time
}

type ServiceOption func(*service)

func WithRuleTester(tester RuleTester) ServiceOption {
	return func(s *service) {
		s.tester = tester
	}
}

func WithEntitlements(entitlements Entitlements) ServiceOption {
	return func(s *service) {
		s.entitlements = entitlements
	}
}

func WithAudit(audit AuditStore) ServiceOption {
	return func(s *service) {
		s.audit = audit
	}
}

func NewService(repo Repository, logs automation.LogStore, evaluator automation.ExpressionEvaluator, log logger.Logger, opts ...ServiceOption) Service {
	s := &service{
		repo:      repo,
		logs:      logs,
		evaluator: evaluator,
		logger:    log,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) CreateRule(ctx context.Context, req CreateRuleRequest) (*automation.Rule, error) {
	rule := ruleFromCreate(req)
	if errs := ValidateRule(rule, s.evaluator); len(errs) > 0 {
		return nil, pkgerrors.FieldErrors(errs)
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, wrapRepoError(err, rule.ID)
	}

	s.recordChange(ctx, &rule.ID, rule.OrganizationID, AuditCreate, nil, rule)
	return rule, nil
}

func (s *service) ListRules(ctx context.Context, filter RuleFilter) (*RuleList, error) {
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	filter.TriggerModule = normalizeKey(filter.TriggerModule)

	rules, total, err := s.repo.ListRules(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return &RuleList{Items: rules, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *service) GetRule(ctx context.Context, id int64) (*automation.Rule, error) {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err, id)
	}
	return rule, nil
}

func (s *service) UpdateRule(ctx context.Context, id int64, req UpdateRuleRequest) (*automation.Rule, error) {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err, id)
	}
	old := *rule

	applyUpdate(rule, req)
	if errs := ValidateRule(rule, s.evaluator); len(errs) > 0 {
		return nil, pkgerrors.FieldErrors(errs)
	}

	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, wrapRepoError(err, id)
	}

	s.recordChange(ctx, &rule.ID, rule.OrganizationID, AuditUpdate, old, rule)
	return rule, nil
}

func (s *service) DeleteRule(ctx context.Context, id int64) error {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return wrapRepoError(err, id)
	}
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return wrapRepoError(err, id)
	}

	s.recordChange(ctx, &id, rule.OrganizationID, AuditDelete, rule, nil)
	return nil
}

func (s *service) ToggleRule(ctx context.Context, id int64) (*automation.Rule, error) {
	current, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err, id)
	}

	rule, err := s.repo.SetActive(ctx, id, !current.IsActive)
	if err != nil {
		return nil, wrapRepoError(err, id)
	}

	s.recordChange(ctx, &id, rule.OrganizationID, AuditToggle,
		map[string]bool{"is_active": current.IsActive}, map[string]bool{"is_active": rule.IsActive})
	return rule, nil
}

// TestRule dispatches the rule's action against a synthetic event built from the
// rule's own trigger. The result is written to the automation log like any other run.
func (s *service) TestRule(ctx context.Context, id int64, req TestRuleRequest) (*TestRuleResponse, error) {
	if s.tester == nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithDetail("message", "rule testing is not configured")
	}

	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return nil, wrapRepoError(err, id)
	}

	severity := req.Severity
	if severity == "" {
		severity = "info"
	}
	meta := make(map[string]interface{}, len(req.Meta)+1)
	for k, v := range req.Meta {
		meta[k] = v
	}
	meta["test"] = true

	now := s.now().UTC()
	event := models.EventMessage{
		ID:             uuid.New().String(),
		OrganizationID: rule.OrganizationID,
		EdgeServerID:   req.EdgeServerID,
		Module:         rule.TriggerModule,
		EventType:      rule.TriggerEvent,
		Severity:       severity,
		OccurredAt:     now,
		Meta:           meta,
		CreatedAt:      now,
	}

	entry := s.tester.Execute(ctx, *rule, event)
	return &TestRuleResponse{Rule: *rule, Log: *entry}, nil
}

func (s *service) ListRuleLogs(ctx context.Context, id int64, filter automation.LogFilter) (*LogList, error) {
	if _, err := s.repo.GetRule(ctx, id); err != nil {
		return nil, wrapRepoError(err, id)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, pkgerrors.FieldErrors(map[string][]string{"status": {"status must be succeeded, failed or skipped_cooldown"}})
	}

	filter.RuleID = id
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)

	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return &LogList{Items: logs, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *service) GetRuleHistory(ctx context.Context, id int64, limit int) ([]RuleAudit, error) {
	if s.audit == nil {
		return []RuleAudit{}, nil
	}
	limit, _ = normalizePage(limit, 0)

	history, err := s.audit.ListChanges(ctx, id, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return history, nil
}

func (s *service) Catalog() Catalog {
	return Catalog{
		Triggers:  automation.TriggerCatalog,
		Actions:   automation.ActionCatalog,
		Operators: automation.Operators,

		ConditionExamples: cel.ConditionExamples,
	}
}

func (s *service) GetModuleEntitlement(ctx context.Context, organizationID int64, module string) (entitlement.Resolution, error) {
	if err := s.checkEntitlementArgs(organizationID, module); err != nil {
		return entitlement.Resolution{}, err
	}

	res, err := s.entitlements.Resolve(ctx, organizationID, module)
	if err != nil {
		return entitlement.Resolution{}, pkgerrors.Wrap(err, pkgerrors.ErrServiceUnavailable)
	}
	return res, nil
}

func (s *service) SetModuleOverride(ctx context.Context, organizationID int64, module string, enabled bool) (entitlement.Resolution, error) {
	before, err := s.GetModuleEntitlement(ctx, organizationID, module)
	if err != nil {
		return entitlement.Resolution{}, err
	}

	if err := s.entitlements.SetOverride(ctx, organizationID, module, enabled); err != nil {
		return entitlement.Resolution{}, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	after, err := s.GetModuleEntitlement(ctx, organizationID, module)
	if err != nil {
		return entitlement.Resolution{}, err
	}

	s.recordChange(ctx, nil, organizationID, AuditSetOverride, before, after)
	return after, nil
}

func (s *service) ClearModuleOverride(ctx context.Context, organizationID int64, module string) (entitlement.Resolution, error) {
	before, err := s.GetModuleEntitlement(ctx, organizationID, module)
	if err != nil {
		return entitlement.Resolution{}, err
	}

	removed, err := s.entitlements.ClearOverride(ctx, organizationID, module)
	if err != nil {
		return entitlement.Resolution{}, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if !removed {
		return entitlement.Resolution{}, pkgerrors.ErrNotFound.WithDetail("message", "no override exists for this module")
	}

	after, err := s.GetModuleEntitlement(ctx, organizationID, module)
	if err != nil {
		return entitlement.Resolution{}, err
	}

	s.recordChange(ctx, nil, organizationID, AuditClearOverride, before, after)
	return after, nil
}

func (s *service) checkEntitlementArgs(organizationID int64, module string) error {
	if s.entitlements == nil {
		return pkgerrors.ErrServiceUnavailable.WithDetail("message", "entitlements are not configured")
	}
	errs := fieldErrors{}
	if organizationID <= 0 {
		errs.add("organization_id", "organization_id must be positive")
	}
	if strings.TrimSpace(module) == "" {
		errs.add("module", "module is required")
	}
	if len(errs) > 0 {
		return pkgerrors.FieldErrors(errs)
	}
	return nil
}

// recordChange writes an administrative audit entry. Failures are logged and never
// fail the change itself.
func (s *service) recordChange(ctx context.Context, ruleID *int64, organizationID int64, action string, oldValue, newValue interface{}) {
	if s.audit == nil {
		return
	}

	entry := AuditLogEntry{
		RuleID:         ruleID,
		OrganizationID: organizationID,
		Action:         action,
		OldValue:       oldValue,
		NewValue:       newValue,
		ChangedBy:      getChangedBy(ctx),
		IPAddress:      getClientIP(ctx),
	}
	if err := s.audit.LogChange(ctx, entry); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to record audit entry", "action", action, "organization_id", organizationID, "error", err)
	}
}

func wrapRepoError(err error, id int64) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRuleNotFound) {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
