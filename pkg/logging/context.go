package logging

import (
	"context"
)

type contextKey string

const (
	TraceIDKey        contextKey = "trace_id"
	EventIDKey        contextKey = "event_id"
	OrganizationIDKey contextKey = "organization_id"
	EdgeServerIDKey   contextKey = "edge_server_id"
	RuleIDKey         contextKey = "rule_id"
	ServiceNameKey    contextKey = "service_name"
)

// fieldOrder fixes the order context fields are emitted in log lines.
var fieldOrder = []contextKey{
	TraceIDKey,
	EventIDKey,
	OrganizationIDKey,
	EdgeServerIDKey,
	RuleIDKey,
	ServiceNameKey,
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func WithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, EventIDKey, eventID)
}

func WithOrganizationID(ctx context.Context, organizationID string) context.Context {
	return context.WithValue(ctx, OrganizationIDKey, organizationID)
}

func WithEdgeServerID(ctx context.Context, edgeServerID string) context.Context {
	return context.WithValue(ctx, EdgeServerIDKey, edgeServerID)
}

func WithRuleID(ctx context.Context, ruleID string) context.Context {
	return context.WithValue(ctx, RuleIDKey, ruleID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetTraceID(ctx context.Context) string {
	return getString(ctx, TraceIDKey)
}

func GetEventID(ctx context.Context) string {
	return getString(ctx, EventIDKey)
}

func GetOrganizationID(ctx context.Context) string {
	return getString(ctx, OrganizationIDKey)
}

func GetServiceName(ctx context.Context) string {
	return getString(ctx, ServiceNameKey)
}

func getString(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetLogFields returns the key/value pairs stored in ctx, ready for zap's *w methods.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, len(fieldOrder)*2)

	for _, key := range fieldOrder {
		if v := getString(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}

	return fields
}
