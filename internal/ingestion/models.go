package ingestion

import (
	"time"

	"lookout/pkg/models"
)

// Severity levels accepted from the edge.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Meta keys with meaning to the ingestor.
const (
	MetaModule   = "module"
	MetaCameraID = "camera_id"
)

// Envelope is the body an edge server posts for one detection.
type Envelope struct {
	EventType  string                 `json:"event_type" binding:"required"`
	Severity   string                 `json:"severity" binding:"required,oneof=info warning critical"`
	OccurredAt string                 `json:"occurred_at" binding:"required"`
	CameraID   *string                `json:"camera_id,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty" swaggertype:"object"`
}

// EdgeIdentity is the authenticated caller, resolved by the edge auth middleware.
type EdgeIdentity struct {
	OrganizationID int64
	EdgeServerID   int64
	EdgeKey        string
}

type EdgeServer struct {
	ID             int64
	OrganizationID int64
	Name           string
	EdgeKey        string
	EdgeSecret     string
	IsActive       bool
}

func (e *EdgeServer) Identity() EdgeIdentity {
	return EdgeIdentity{OrganizationID: e.OrganizationID, EdgeServerID: e.ID, EdgeKey: e.EdgeKey}
}

type Event struct {
	ID             string
	OrganizationID int64
	EdgeServerID   int64
	Module         string
	EventType      string
	Severity       string
	OccurredAt     time.Time
	Meta           map[string]interface{}
	CreatedAt      time.Time
}

func (e *Event) Message() models.EventMessage {
	return models.EventMessage{
		ID:             e.ID,
		OrganizationID: e.OrganizationID,
		EdgeServerID:   e.EdgeServerID,
		Module:         e.Module,
		EventType:      e.EventType,
		Severity:       e.Severity,
		OccurredAt:     e.OccurredAt,
		Meta:           e.Meta,
		CreatedAt:      e.CreatedAt,
	}
}

// Reason values reported on rejected events.
const (
	ReasonModuleDisabled = "module_disabled"
)

type Result struct {
	Accepted bool
	EventID  string
	Reason   string
}

type IngestResponse struct {
	OK      bool   `json:"ok"`
	EventID string `json:"event_id"`
}
