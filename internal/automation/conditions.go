package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"lookout/pkg/models"
)

type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpContains           Operator = "contains"
	OpIn                 Operator = "in"
	OpExists             Operator = "exists"
	OpExpression         Operator = "expression"
)

var Operators = []Operator{
	OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterThanOrEqual,
	OpLessThanOrEqual, OpContains, OpIn, OpExists, OpExpression,
}

// Condition is one conjunct of a rule's trigger conditions.
type Condition struct {
	Field      string      `json:"field,omitempty"`
	Operator   Operator    `json:"operator"`
	Value      interface{} `json:"value,omitempty"`
	Expression string      `json:"expression,omitempty"`
}

// ExpressionEvaluator runs `expression` conditions. *cel.Evaluator satisfies it.
type ExpressionEvaluator interface {
	EvaluateCondition(ctx context.Context, expression string, event, meta map[string]interface{}) (bool, error)
	ValidateConditionExpression(expression string) error
}

// Core event fields addressable without a meta prefix.
const (
	FieldEventType      = "event_type"
	FieldSeverity       = "severity"
	FieldModule         = "module"
	FieldOrganizationID = "organization_id"
	FieldEdgeServerID   = "edge_server_id"
)

// ParseConditions accepts either a list of {field, operator, value} objects or
// the shorthand object form {"field": value}, which means equals.
func ParseConditions(raw json.RawMessage) ([]Condition, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var conds []Condition
		if err := json.Unmarshal(trimmed, &conds); err != nil {
			return nil, fmt.Errorf("invalid trigger_conditions: %w", err)
		}
		return conds, nil
	case '{':
		var shorthand map[string]interface{}
		if err := json.Unmarshal(trimmed, &shorthand); err != nil {
			return nil, fmt.Errorf("invalid trigger_conditions: %w", err)
		}
		fields := make([]string, 0, len(shorthand))
		for field := range shorthand {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		conds := make([]Condition, 0, len(fields))
		for _, field := range fields {
			conds = append(conds, Condition{Field: field, Operator: OpEquals, Value: shorthand[field]})
		}
		return conds, nil
	default:
		return nil, fmt.Errorf("invalid trigger_conditions: expected array or object")
	}
}

// ValidateConditions reports the first structural problem in conds.
func ValidateConditions(conds []Condition, evaluator ExpressionEvaluator) error {
	for i, cond := range conds {
		if err := validateCondition(cond, evaluator); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return nil
}

func validateCondition(cond Condition, evaluator ExpressionEvaluator) error {
	switch cond.Operator {
	case OpExpression:
		expr := cond.expression()
		if expr == "" {
			return fmt.Errorf("expression is required")
		}
		if evaluator == nil {
			return fmt.Errorf("expression conditions are not supported")
		}
		return evaluator.ValidateConditionExpression(expr)
	case OpIn:
		if cond.Field == "" {
			return fmt.Errorf("field is required")
		}
		if _, ok := cond.Value.([]interface{}); !ok {
			return fmt.Errorf("operator in requires an array value")
		}
	case OpExists:
		if cond.Field == "" {
			return fmt.Errorf("field is required")
		}
		if cond.Value != nil {
			if _, ok := cond.Value.(bool); !ok {
				return fmt.Errorf("operator exists requires a boolean value")
			}
		}
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual, OpContains:
		if cond.Field == "" {
			return fmt.Errorf("field is required")
		}
	default:
		return fmt.Errorf("unknown operator %q", cond.Operator)
	}
	return nil
}

func (c Condition) expression() string {
	if c.Expression != "" {
		return c.Expression
	}
	if s, ok := c.Value.(string); ok {
		return s
	}
	return ""
}

// EvaluateConditions returns true when every condition holds. An absent field makes
// its condition false. Malformed conditions return an error.
func EvaluateConditions(ctx context.Context, conds []Condition, event models.EventMessage, evaluator ExpressionEvaluator) (bool, error) {
	for i, cond := range conds {
		if err := validateCondition(cond, evaluator); err != nil {
			return false, fmt.Errorf("condition %d: %w", i, err)
		}

		ok, err := evaluateCondition(ctx, cond, event, evaluator)
		if err != nil {
			return false, fmt.Errorf("condition %d: %w", i, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evaluateCondition(ctx context.Context, cond Condition, event models.EventMessage, evaluator ExpressionEvaluator) (bool, error) {
	if cond.Operator == OpExpression {
		return evaluator.EvaluateCondition(ctx, cond.expression(), coreFields(event), event.Meta)
	}

	actual, found := lookupField(event, cond.Field)

	if cond.Operator == OpExists {
		want := true
		if b, ok := cond.Value.(bool); ok {
			want = b
		}
		return found == want, nil
	}

	if !found {
		return false, nil
	}

	switch cond.Operator {
	case OpEquals:
		return valuesEqual(actual, cond.Value), nil
	case OpNotEquals:
		return !valuesEqual(actual, cond.Value), nil
	case OpGreaterThan:
		return compareNumeric(actual, cond.Value, func(a, b float64) bool { return a > b }), nil
	case OpLessThan:
		return compareNumeric(actual, cond.Value, func(a, b float64) bool { return a < b }), nil
	case OpGreaterThanOrEqual:
		return compareNumeric(actual, cond.Value, func(a, b float64) bool { return a >= b }), nil
	case OpLessThanOrEqual:
		return compareNumeric(actual, cond.Value, func(a, b float64) bool { return a <= b }), nil
	case OpContains:
		return contains(actual, cond.Value), nil
	case OpIn:
		for _, candidate := range cond.Value.([]interface{}) {
			if valuesEqual(actual, candidate) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown operator %q", cond.Operator)
}

func coreFields(event models.EventMessage) map[string]interface{} {
	return map[string]interface{}{
		"id":                event.ID,
		FieldEventType:      event.EventType,
		FieldSeverity:       event.Severity,
		FieldModule:         event.Module,
		FieldOrganizationID: event.OrganizationID,
		FieldEdgeServerID:   event.EdgeServerID,
		"occurred_at":       event.OccurredAt,
	}
}

// lookupField resolves a dot-separated path. Reserved roots address core event
// fields; anything else, with or without a "meta." prefix, walks into meta.
func lookupField(event models.EventMessage, path string) (interface{}, bool) {
	switch path {
	case FieldEventType:
		return event.EventType, true
	case FieldSeverity:
		return event.Severity, true
	case FieldModule:
		return event.Module, true
	case FieldOrganizationID:
		return event.OrganizationID, true
	case FieldEdgeServerID:
		return event.EdgeServerID, true
	}

	path = strings.TrimPrefix(path, "meta.")
	var current interface{} = event.Meta
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

// isNumber reports whether v is a JSON or Go numeric value, not a numeric string.
func isNumber(v interface{}) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return true
	}
	return false
}

// toNumber rejects NaN and infinities so they never compare equal or ordered.
func toNumber(v interface{}) (float64, bool) {
	f, ok := rawNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func rawNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func compareNumeric(actual, expected interface{}, cmp func(a, b float64) bool) bool {
	a, ok := toNumber(actual)
	if !ok {
		return false
	}
	b, ok := toNumber(expected)
	if !ok {
		return false
	}
	return cmp(a, b)
}

// valuesEqual coerces numeric strings only when the other side is a number, so
// identifiers such as "0123" and "123" stay distinct.
func valuesEqual(actual, expected interface{}) bool {
	if isNumber(actual) || isNumber(expected) {
		if a, ok := toNumber(actual); ok {
			if b, ok := toNumber(expected); ok {
				return a == b
			}
		}
	}

	switch a := actual.(type) {
	case string:
		switch b := expected.(type) {
		case string:
			return a == b
		case bool:
			return strings.EqualFold(a, strconv.FormatBool(b))
		}
		return false
	case bool:
		switch b := expected.(type) {
		case bool:
			return a == b
		case string:
			return strings.EqualFold(b, strconv.FormatBool(a))
		}
		return false
	}
	return reflect.DeepEqual(actual, expected)
}

func contains(actual, needle interface{}) bool {
	switch haystack := actual.(type) {
	case string:
		s, ok := needle.(string)
		if !ok {
			if _, numeric := toNumber(needle); !numeric {
				return false
			}
			s = fmt.Sprint(needle)
		}
		return strings.Contains(haystack, s)
	case []interface{}:
		for _, item := range haystack {
			if valuesEqual(item, needle) {
				return true
			}
		}
	}
	return false
}
