package automation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"lookout/pkg/models"
)

type memoryRuleRepository struct {
	mu    sync.Mutex
	rules []Rule
	err   error
}

func (r *memoryRuleRepository) GetActiveRules(_ context.Context, organizationID int64, module, eventType string) ([]Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	var out []Rule
	for _, rule := range r.rules {
		if rule.IsActive && rule.OrganizationID == organizationID && rule.TriggerModule == module && rule.TriggerEvent == eventType {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memoryRuleRepository) setActive(id int64, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rules {
		if r.rules[i].ID == id {
			r.rules[i].IsActive = active
		}
	}
}

type memoryGuard struct {
	mu    sync.Mutex
	last  map[string]time.Time
	err   error
	calls int
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{last: make(map[string]time.Time)}
}

func (g *memoryGuard) TryAcquire(_ context.Context, ruleID int64, entityKey string, cooldown time.Duration, now time.Time) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return false, g.err
	}
	if cooldown <= 0 {
		return true, nil
	}

	key := CooldownKey(ruleID, entityKey)
	if last, ok := g.last[key]; ok && now.Sub(last) < cooldown {
		return false, nil
	}
	g.last[key] = now
	return true, nil
}

type recordingDispatcher struct {
	mu       sync.Mutex
	order    []int64
	outcomes map[int64]Outcome
}

func (d *recordingDispatcher) Dispatch(_ context.Context, rule Rule, _ models.EventMessage) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.order = append(d.order, rule.ID)
	if outcome, ok := d.outcomes[rule.ID]; ok {
		return outcome
	}
	return Outcome{Status: StatusSucceeded, Duration: 3 * time.Millisecond, Executed: rule.ActionCommand}
}

func (d *recordingDispatcher) dispatched() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int64(nil), d.order...)
}

type memoryLogStore struct {
	mu      sync.Mutex
	entries []Log
	err     error
}

func (s *memoryLogStore) Write(_ context.Context, entry *Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	prepareLog(entry)
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *memoryLogStore) List(_ context.Context, filter LogFilter) ([]Log, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Log
	for _, entry := range s.entries {
		if entry.RuleID == filter.RuleID {
			out = append(out, entry)
		}
	}
	return out, int64(len(out)), nil
}

func (s *memoryLogStore) statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Status)
	}
	return out
}

var errStoreDown = errors.New("store down")

func testRule(id int64, priority int, conditions string) Rule {
	rule := Rule{
		ID:              id,
		OrganizationID:  42,
		Name:            "rule",
		TriggerModule:   "fire",
		TriggerEvent:    "fire_detected",
		ActionType:      ActionSiren,
		ActionCommand:   json.RawMessage(`{"device_id":"siren-1","duration_seconds":30}`),
		CooldownSeconds: 60,
		Priority:        priority,
		IsActive:        true,
	}
	if conditions != "" {
		rule.TriggerConditions = json.RawMessage(conditions)
	}
	return rule
}

func testEvent(id string, meta map[string]interface{}) models.EventMessage {
	return models.EventMessage{
		ID:             id,
		OrganizationID: 42,
		EdgeServerID:   7,
		Module:         "fire",
		EventType:      "fire_detected",
		Severity:       "critical",
		OccurredAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Meta:           meta,
	}
}
