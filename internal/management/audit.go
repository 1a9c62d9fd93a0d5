package management

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type (
	actorKey    struct{}
	clientIPKey struct{}
)

// WithActor records who is making administrative changes on ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// WithClientIP records the address administrative changes originate from.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func getClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

func getChangedBy(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "system"
}

type AuditStore interface {
	LogChange(ctx context.Context, entry AuditLogEntry) error
	ListChanges(ctx context.Context, ruleID int64, limit int) ([]RuleAudit, error)
}

type AuditLogger struct {
	db *sql.DB
}

func NewAuditLogger(db *sql.DB) *AuditLogger {
	return &AuditLogger{db: db}
}

type AuditLogEntry struct {
	ID             string
	RuleID         *int64
	OrganizationID int64
	Action         string
	OldValue       interface{}
	NewValue       interface{}
	ChangedBy      string
	IPAddress      string
	Timestamp      time.Time
}

func (a *AuditLogger) LogChange(ctx context.Context, entry AuditLogEntry) error {
	query := `
		INSERT INTO automation_rule_audits (id, rule_id, organization_id, action, old_value, new_value, changed_by, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	id := uuid.New().String()
	if entry.ID != "" {
		id = entry.ID
	}

	oldValueJSON, err := marshalNullable(entry.OldValue)
	if err != nil {
		return err
	}
	newValueJSON, err := marshalNullable(entry.NewValue)
	if err != nil {
		return err
	}

	var ipAddress *string
	if entry.IPAddress != "" {
		ipAddress = &entry.IPAddress
	}

	timestamp := time.Now().UTC()
	if !entry.Timestamp.IsZero() {
		timestamp = entry.Timestamp
	}

	_, err = a.db.ExecContext(ctx, query,
		id, nullableInt64(entry.RuleID), entry.OrganizationID, entry.Action,
		oldValueJSON, newValueJSON, entry.ChangedBy, ipAddress, timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to log audit entry: %w", err)
	}
	return nil
}

func (a *AuditLogger) ListChanges(ctx context.Context, ruleID int64, limit int) ([]RuleAudit, error) {
	query := `
		SELECT id, rule_id, organization_id, action, old_value, new_value, changed_by, COALESCE(ip_address, ''), created_at
		FROM automation_rule_audits
		WHERE rule_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := a.db.QueryContext(ctx, query, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	audits := make([]RuleAudit, 0)
	for rows.Next() {
		var (
			audit    RuleAudit
			rule     sql.NullInt64
			oldValue []byte
			newValue []byte
		)
		if err := rows.Scan(&audit.ID, &rule, &audit.OrganizationID, &audit.Action,
			&oldValue, &newValue, &audit.ChangedBy, &audit.IPAddress, &audit.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if rule.Valid {
			id := rule.Int64
			audit.RuleID = &id
		}
		audit.OldValue = oldValue
		audit.NewValue = newValue
		audits = append(audits, audit)
	}
	return audits, rows.Err()
}

func marshalNullable(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit value: %w", err)
	}
	return data, nil
}
