package automation

import (
	"context"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"lookout/internal/logger"
	"lookout/pkg/metrics"
	"lookout/pkg/models"
	"lookout/pkg/tracing"
)

// RuleFailure is a rule that could not be evaluated, e.g. malformed conditions.
type RuleFailure struct {
	Rule Rule
	Err  error
}

type MatchResult struct {
	Matched []Rule
	Failed  []RuleFailure
}

type Matcher struct {
	repo      RuleRepository
	evaluator ExpressionEvaluator
	logger    logger.Logger
}

func NewMatcher(repo RuleRepository, evaluator ExpressionEvaluator, log logger.Logger) *Matcher {
	return &Matcher{repo: repo, evaluator: evaluator, logger: log}
}

// Match returns the active rules whose trigger and conditions hold for event,
// in dispatch order. Rules are read fresh on every call.
func (m *Matcher) Match(ctx context.Context, event models.EventMessage) (MatchResult, error) {
	ctx, span := tracing.GetTracer("automation").Start(ctx, "automation.match")
	defer span.End()
	span.SetAttributes(
		attribute.String("event_id", event.ID),
		attribute.String("module", event.Module),
		attribute.String("event_type", event.EventType),
	)

	var result MatchResult
	if event.Module == "" {
		return result, nil
	}

	rules, err := m.repo.GetActiveRules(ctx, event.OrganizationID, event.Module, event.EventType)
	if err != nil {
		span.RecordError(err)
		return result, err
	}
	SortRules(rules)

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		conds, err := ParseConditions(rule.TriggerConditions)
		if err == nil {
			var ok bool
			ok, err = EvaluateConditions(ctx, conds, event, m.evaluator)
			if err == nil && !ok {
				metrics.IncRuleMatch("not_matched")
				m.logger.DebugwCtx(ctx, "Rule conditions not met",
					"rule_id", rule.ID,
					"rule_name", rule.Name,
				)
				continue
			}
		}

		if err != nil {
			metrics.IncRuleMatch("error")
			m.logger.WarnwCtx(ctx, "Rule evaluation error",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"error", err,
			)
			result.Failed = append(result.Failed, RuleFailure{Rule: rule, Err: err})
			continue
		}

		metrics.IncRuleMatch("matched")
		result.Matched = append(result.Matched, rule)
	}

	span.SetAttributes(
		attribute.Int("rules.matched", len(result.Matched)),
		attribute.Int("rules.failed", len(result.Failed)),
	)
	return result, nil
}

// SortRules orders rules by priority descending, then id ascending.
func SortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}

// EntityKey scopes cooldowns to the camera that produced the event, or to the
// whole organization when the event carries no camera.
func EntityKey(event models.EventMessage) string {
	if camera, ok := event.Meta["camera_id"]; ok && camera != nil {
		switch v := camera.(type) {
		case string:
			if v != "" {
				return "camera:" + v
			}
		case float64:
			return "camera:" + strconv.FormatFloat(v, 'f', -1, 64)
		case int64:
			return "camera:" + strconv.FormatInt(v, 10)
		case int:
			return "camera:" + strconv.Itoa(v)
		}
	}
	return "org:" + strconv.FormatInt(event.OrganizationID, 10)
}
