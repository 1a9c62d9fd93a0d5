package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"

	"lookout/internal/automation"
	"lookout/internal/automation/action"
	"lookout/internal/entitlement"
	"lookout/internal/ingestion"
	"lookout/internal/logger"
	"lookout/internal/management"
	"lookout/pkg/cel"
	"lookout/pkg/models"
)

const (
	containerStartupTimeout = 60
	edgeCommandPrefix       = "lookout/edge"
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func seedPlan(t *testing.T, db *sql.DB, name string, modules ...string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(
		`INSERT INTO subscription_plans (name, available_modules) VALUES ($1, $2) RETURNING id`,
		name, pq.Array(modules),
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to seed plan %s: %v", name, err)
	}
	return id
}

// seedOrganization inserts an organization with a fixed id. plan may be empty.
func seedOrganization(t *testing.T, db *sql.DB, id int64, plan string) {
	t.Helper()

	var planName sql.NullString
	if plan != "" {
		planName = sql.NullString{String: plan, Valid: true}
	}
	_, err := db.Exec(
		`INSERT INTO organizations (id, name, subscription_plan) VALUES ($1, $2, $3)`,
		id, "org", planName,
	)
	if err != nil {
		t.Fatalf("failed to seed organization %d: %v", id, err)
	}
}

func seedSubscription(t *testing.T, db *sql.DB, orgID, planID int64, status string, startsAt time.Time, endsAt *time.Time) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO organization_subscriptions (organization_id, subscription_plan_id, status, starts_at, ends_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		orgID, planID, status, startsAt, endsAt,
	)
	if err != nil {
		t.Fatalf("failed to seed subscription: %v", err)
	}
}

func seedEdge(t *testing.T, db *sql.DB, orgID int64, key, secret string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(
		`INSERT INTO edge_servers (organization_id, name, edge_key, edge_secret) VALUES ($1, $2, $3, $4) RETURNING id`,
		orgID, key, key, secret,
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to seed edge server %s: %v", key, err)
	}
	return id
}

func countRows(t *testing.T, db *sql.DB, query string, args ...interface{}) int {
	t.Helper()

	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

func sirenRule(orgID int64, cooldown int) *automation.Rule {
	return &automation.Rule{
		OrganizationID:  orgID,
		Name:            "Fire siren",
		TriggerModule:   "fire",
		TriggerEvent:    "fire_detected",
		ActionType:      automation.ActionSiren,
		ActionCommand:   json.RawMessage(`{"device_id":"siren-1","duration_seconds":30}`),
		CooldownSeconds: cooldown,
		Priority:        10,
		IsActive:        true,
	}
}

func createRule(t *testing.T, db *sql.DB, rule *automation.Rule) *automation.Rule {
	t.Helper()

	if err := management.NewRepository(db).CreateRule(context.Background(), rule); err != nil {
		t.Fatalf("failed to create rule %s: %v", rule.Name, err)
	}
	return rule
}

func fireEnvelope(occurredAt time.Time) ingestion.Envelope {
	camera := "cam-1"
	return ingestion.Envelope{
		EventType:  "fire_detected",
		Severity:   ingestion.SeverityCritical,
		OccurredAt: occurredAt.UTC().Format(time.RFC3339),
		CameraID:   &camera,
		Meta:       map[string]interface{}{"module": "fire", "confidence": 0.93},
	}
}

type publishedCommand struct {
	Topic   string
	Payload []byte
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []publishedCommand
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ byte, _ bool, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedCommand{Topic: topic, Payload: payload})
	return nil
}

func (p *recordingPublisher) published() []publishedCommand {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedCommand, len(p.messages))
	copy(out, p.messages)
	return out
}

// syncHandoff runs the pipeline inside the ingest call so assertions can follow
// Ingest directly.
type syncHandoff struct {
	pipeline *automation.Pipeline
}

func (h syncHandoff) Handoff(ctx context.Context, event models.EventMessage) error {
	_, err := h.pipeline.Process(ctx, event)
	return err
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scenario wires ingestion and inline automation over a real database.
type scenario struct {
	db        *sql.DB
	ingestor  *ingestion.Service
	pipeline  *automation.Pipeline
	publisher *recordingPublisher
	clock     *manualClock
	logs      automation.LogStore
}

func newScenario(t *testing.T, db *sql.DB, guard automation.CooldownGuard) *scenario {
	t.Helper()

	log := createTestLogger()

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		t.Fatalf("failed to create evaluator: %v", err)
	}

	if guard == nil {
		guard = automation.NewPostgresCooldownGuard(db)
	}

	publisher := &recordingPublisher{}
	dispatcher := action.NewDispatcher(5*time.Second, log).
		Register(automation.ActionSiren, action.NewEdgeCommandExecutor(publisher, edgeCommandPrefix))

	logs := automation.NewPostgresLogStore(db)
	clock := &manualClock{now: time.Now().UTC()}

	pipeline := automation.NewPipeline(
		automation.NewMatcher(automation.NewRuleRepository(db), evaluator, log),
		guard,
		dispatcher,
		logs,
		log,
	).WithClock(clock.Now)

	checker := entitlement.NewService(entitlement.NewRepository(db), 2*time.Second, log)
	ingestor := ingestion.NewService(checker, ingestion.NewEventRepository(db), syncHandoff{pipeline: pipeline}, "inline", log)

	return &scenario{
		db:        db,
		ingestor:  ingestor,
		pipeline:  pipeline,
		publisher: publisher,
		clock:     clock,
		logs:      logs,
	}
}

func (s *scenario) ruleLogs(t *testing.T, ruleID int64) []automation.Log {
	t.Helper()

	logs, _, err := s.logs.List(context.Background(), automation.LogFilter{RuleID: ruleID, Limit: 50})
	if err != nil {
		t.Fatalf("failed to list logs for rule %d: %v", ruleID, err)
	}
	return logs
}
