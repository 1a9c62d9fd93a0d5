package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout        = 10 * time.Second
	DefaultActionTimeout      = 5 * time.Second
	DefaultEntitlementTimeout = 2 * time.Second
	DefaultHandoffTimeout     = 2 * time.Second
	DefaultEdgeClockSkew      = 300 * time.Second
)

const (
	DefaultMaxEventBodyBytes = 1 << 20
)

const (
	CacheKeyPrefixCooldown = "cooldown:"
)

const (
	DefaultEventsTopic        = "lookout_events"
	DefaultNotificationsTopic = "lookout_notifications"
	DefaultCustomActionsTopic = "lookout_custom_actions"
	DefaultDLQTopic           = "lookout_events_dlq"
)

const (
	DefaultEdgeCommandTopicPrefix = "edge"
)

const (
	DefaultMongoDBName       = "lookout"
	AutomationLogsCollection = "automation_logs"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit       = 50
	MaxLimit           = 500
	DefaultTruncateLen = 500
)

const (
	DefaultCooldownSeconds = 60
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

// Edge authentication headers.
const (
	HeaderEdgeKey       = "X-EDGE-KEY"
	HeaderEdgeTimestamp = "X-EDGE-TIMESTAMP"
	HeaderEdgeSignature = "X-EDGE-SIGNATURE"
)
