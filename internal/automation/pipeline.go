package automation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"lookout/internal/logger"
	"lookout/pkg/logging"
	"lookout/pkg/metrics"
	"lookout/pkg/models"
	"lookout/pkg/tracing"
)

type RuleMatcher interface {
	Match(ctx context.Context, event models.EventMessage) (MatchResult, error)
}

// Dispatcher executes a rule's action once. It never panics and never returns an error;
// failures are reported in the Outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, rule Rule, event models.EventMessage) Outcome
}

type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
}

type Pipeline struct {
	matcher    RuleMatcher
	guard      CooldownGuard
	dispatcher Dispatcher
	logs       LogStore
	logger     logger.Logger
	now        func() time.Time
}

func NewPipeline(matcher RuleMatcher, guard CooldownGuard, dispatcher Dispatcher, logs LogStore, log logger.Logger) *Pipeline {
	return &Pipeline{
		matcher:    matcher,
		guard:      guard,
		dispatcher: dispatcher,
		logs:       logs,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for cooldown decisions.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Process runs every matching rule for event in priority order and writes one
// audit row per outcome. Only a failure to load rules is returned.
func (p *Pipeline) Process(ctx context.Context, event models.EventMessage) (Summary, error) {
	ctx = logging.WithEventID(ctx, event.ID)
	ctx = logging.WithOrganizationID(ctx, strconv.FormatInt(event.OrganizationID, 10))

	ctx, span := tracing.GetTracer("automation").Start(ctx, "automation.process")
	defer span.End()

	start := time.Now()
	var summary Summary

	result, err := p.matcher.Match(ctx, event)
	if err != nil {
		span.RecordError(err)
		metrics.ObservePipelineDuration(time.Since(start), "error")
		return summary, fmt.Errorf("failed to match rules for event %s: %w", event.ID, err)
	}

	for _, failure := range result.Failed {
		p.record(ctx, &Log{
			RuleID:            failure.Rule.ID,
			OrganizationID:    event.OrganizationID,
			TriggeringEventID: event.ID,
			ActionType:        failure.Rule.ActionType,
			Status:            StatusFailed,
			ErrorDetail:       "rule evaluation failed: " + failure.Err.Error(),
		})
		summary.Failed++
	}

	for _, rule := range result.Matched {
		if ctx.Err() != nil {
			break
		}

		switch p.processRule(ctx, rule, event).Status {
		case StatusSucceeded:
			summary.Succeeded++
		case StatusSkippedCooldown:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	span.SetAttributes(
		attribute.Int("automation.succeeded", summary.Succeeded),
		attribute.Int("automation.failed", summary.Failed),
		attribute.Int("automation.skipped", summary.Skipped),
	)
	metrics.ObservePipelineDuration(time.Since(start), "ok")
	return summary, nil
}

func (p *Pipeline) processRule(ctx context.Context, rule Rule, event models.EventMessage) *Log {
	ctx = logging.WithRuleID(ctx, strconv.FormatInt(rule.ID, 10))
	entityKey := EntityKey(event)

	acquired, err := p.guard.TryAcquire(ctx, rule.ID, entityKey, rule.Cooldown(), p.now())
	if err != nil {
		metrics.IncCooldownError(storeLabel(p.guard))
		p.logger.WarnwCtx(ctx, "Cooldown store unavailable, skipping dispatch",
			"rule_id", rule.ID,
			"entity_key", entityKey,
			"error", err,
		)
		entry := &Log{
			RuleID:            rule.ID,
			OrganizationID:    event.OrganizationID,
			TriggeringEventID: event.ID,
			ActionType:        rule.ActionType,
			Status:            StatusFailed,
			ErrorDetail:       "cooldown store unavailable: " + err.Error(),
		}
		p.record(ctx, entry)
		return entry
	}

	if !acquired {
		p.logger.DebugwCtx(ctx, "Rule suppressed by cooldown",
			"rule_id", rule.ID,
			"entity_key", entityKey,
			"cooldown_seconds", rule.CooldownSeconds,
		)
		entry := &Log{
			RuleID:            rule.ID,
			OrganizationID:    event.OrganizationID,
			TriggeringEventID: event.ID,
			ActionType:        rule.ActionType,
			Status:            StatusSkippedCooldown,
		}
		p.record(ctx, entry)
		return entry
	}

	return p.Execute(ctx, rule, event)
}

// Execute dispatches rule's action for event without consulting the cooldown
// guard and records the outcome.
func (p *Pipeline) Execute(ctx context.Context, rule Rule, event models.EventMessage) *Log {
	outcome := p.dispatcher.Dispatch(ctx, rule, event)

	entry := &Log{
		RuleID:            rule.ID,
		OrganizationID:    event.OrganizationID,
		TriggeringEventID: event.ID,
		ActionType:        rule.ActionType,
		ActionExecuted:    outcome.Executed,
		Status:            outcome.Status,
		ErrorDetail:       outcome.ErrorDetail,
		ExecutionTimeMs:   outcome.Duration.Milliseconds(),
	}

	if outcome.Status == StatusSucceeded {
		p.logger.InfowCtx(ctx, "Automation action dispatched",
			"rule_id", rule.ID,
			"action_type", rule.ActionType,
			"duration_ms", entry.ExecutionTimeMs,
		)
	} else {
		p.logger.WarnwCtx(ctx, "Automation action failed",
			"rule_id", rule.ID,
			"action_type", rule.ActionType,
			"error", outcome.ErrorDetail,
		)
	}

	p.record(ctx, entry)
	return entry
}

func (p *Pipeline) record(ctx context.Context, entry *Log) {
	metrics.IncAutomationOutcome(string(entry.ActionType), string(entry.Status))

	if err := p.logs.Write(ctx, entry); err != nil {
		metrics.IncAuditWriteFailure(storeLabel(p.logs))
		p.logger.ErrorwCtx(ctx, "Failed to write automation log",
			"rule_id", entry.RuleID,
			"status", entry.Status,
			"error", err,
		)
	}
}

func storeLabel(store interface{}) string {
	switch store.(type) {
	case *RedisCooldownGuard, *CircuitBreakerCooldownGuard:
		return "redis"
	case *PostgresCooldownGuard, *PostgresLogStore:
		return "postgres"
	case *MongoLogStore:
		return "mongodb"
	}
	return "other"
}
