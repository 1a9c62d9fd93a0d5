package entitlement

// Source records which layer decided an entitlement.
type Source string

const (
	SourceOverride Source = "override"
	SourcePlan     Source = "plan"
	SourceNone     Source = "none"
)

type Resolution struct {
	OrganizationID int64  `json:"organization_id"`
	Module         string `json:"module"`
	Enabled        bool   `json:"enabled"`
	Source         Source `json:"source"`
	Plan           string `json:"plan,omitempty"`
}

// Reason explains a Decision.
type Reason string

const (
	ReasonEnabled          Reason = "enabled"
	ReasonDisabled         Reason = "module_disabled"
	ReasonStoreUnavailable Reason = "store_unavailable"
)

// Decision is the fail-closed answer the ingestor acts on.
type Decision struct {
	Enabled bool
	Reason  Reason
}
