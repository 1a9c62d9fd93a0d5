package management

import (
	"context"
	"errors"
	"sort"
	"sync"

	"lookout/internal/automation"
	"lookout/internal/entitlement"
	"lookout/pkg/models"
)

var errDBDown = errors.New("connection refused")

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	rules  map[int64]automation.Rule
	err    error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, rules: map[int64]automation.Rule{}}
}

func (r *memoryRepo) CreateRule(_ context.Context, rule *automation.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	rule.ID = r.nextID
	r.nextID++
	r.rules[rule.ID] = *rule
	return nil
}

func (r *memoryRepo) GetRule(_ context.Context, id int64) (*automation.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	rule, ok := r.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return &rule, nil
}

func (r *memoryRepo) ListRules(_ context.Context, filter RuleFilter) ([]automation.Rule, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, 0, r.err
	}
	var out []automation.Rule
	for _, rule := range r.rules {
		if filter.OrganizationID > 0 && rule.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.TriggerModule != "" && rule.TriggerModule != filter.TriggerModule {
			continue
		}
		out = append(out, rule)
	}
	automation.SortRules(out)
	total := int64(len(out))
	if filter.Offset >= len(out) {
		return []automation.Rule{}, total, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (r *memoryRepo) UpdateRule(_ context.Context, rule *automation.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return ErrRuleNotFound
	}
	r.rules[rule.ID] = *rule
	return nil
}

func (r *memoryRepo) SetActive(_ context.Context, id int64, active bool) (*automation.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	rule.IsActive = active
	r.rules[id] = rule
	return &rule, nil
}

func (r *memoryRepo) DeleteRule(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return ErrRuleNotFound
	}
	delete(r.rules, id)
	return nil
}

type memoryLogs struct {
	mu      sync.Mutex
	entries []automation.Log
	filters []automation.LogFilter
}

func (s *memoryLogs) Write(_ context.Context, entry *automation.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *memoryLogs) List(_ context.Context, filter automation.LogFilter) ([]automation.Log, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, filter)
	var out []automation.Log
	for _, e := range s.entries {
		if e.RuleID == filter.RuleID && (filter.Status == "" || e.Status == filter.Status) {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

type fakeTester struct {
	rules  []automation.Rule
	events []models.EventMessage
}

func (f *fakeTester) Execute(_ context.Context, rule automation.Rule, event models.EventMessage) *automation.Log {
	f.rules = append(f.rules, rule)
	f.events = append(f.events, event)
	return &automation.Log{
		ID:                "7a0d8a55-3c1e-4c55-9b43-0c6c1f2a9e11",
		RuleID:            rule.ID,
		OrganizationID:    rule.OrganizationID,
		TriggeringEventID: event.ID,
		ActionType:        rule.ActionType,
		Status:            automation.StatusSucceeded,
	}
}

type overrideKey struct {
	org    int64
	module string
}

type fakeEntitlements struct {
	plan      map[overrideKey]bool
	overrides map[overrideKey]bool
	err       error
}

func newFakeEntitlements() *fakeEntitlements {
	return &fakeEntitlements{plan: map[overrideKey]bool{}, overrides: map[overrideKey]bool{}}
}

func (f *fakeEntitlements) Resolve(_ context.Context, org int64, module string) (entitlement.Resolution, error) {
	if f.err != nil {
		return entitlement.Resolution{}, f.err
	}
	key := overrideKey{org, module}
	if enabled, ok := f.overrides[key]; ok {
		return entitlement.Resolution{OrganizationID: org, Module: module, Enabled: enabled, Source: entitlement.SourceOverride}, nil
	}
	if enabled, ok := f.plan[key]; ok {
		return entitlement.Resolution{OrganizationID: org, Module: module, Enabled: enabled, Source: entitlement.SourcePlan, Plan: "pro"}, nil
	}
	return entitlement.Resolution{OrganizationID: org, Module: module, Source: entitlement.SourceNone}, nil
}

func (f *fakeEntitlements) SetOverride(_ context.Context, org int64, module string, enabled bool) error {
	f.overrides[overrideKey{org, module}] = enabled
	return nil
}

func (f *fakeEntitlements) ClearOverride(_ context.Context, org int64, module string) (bool, error) {
	key := overrideKey{org, module}
	if _, ok := f.overrides[key]; !ok {
		return false, nil
	}
	delete(f.overrides, key)
	return true, nil
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []AuditLogEntry
	err     error
}

func (a *memoryAudit) LogChange(_ context.Context, entry AuditLogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memoryAudit) ListChanges(_ context.Context, ruleID int64, limit int) ([]RuleAudit, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]RuleAudit, 0)
	for i := len(a.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := a.entries[i]
		if e.RuleID != nil && *e.RuleID == ruleID {
			out = append(out, RuleAudit{RuleID: e.RuleID, OrganizationID: e.OrganizationID, Action: e.Action, ChangedBy: e.ChangedBy})
		}
	}
	return out, nil
}

func (a *memoryAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	sort.Strings(out)
	return out
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func sirenRequest() CreateRuleRequest {
	return CreateRuleRequest{
		OrganizationID: 42,
		Name:           "Fire siren",
		TriggerModule:  " Fire ",
		TriggerEvent:   "fire_detected",
		ActionType:     automation.ActionSiren,
		ActionCommand:  []byte(`{"device_id":"siren-1","duration_seconds":30}`),
	}
}
