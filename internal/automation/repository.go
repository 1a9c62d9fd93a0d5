package automation

import (
	"context"
	"database/sql"
	"fmt"
)

type RuleRepository interface {
	GetActiveRules(ctx context.Context, organizationID int64, module, eventType string) ([]Rule, error)
}

type PostgresRuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) RuleRepository {
	return &PostgresRuleRepository{db: db}
}

// RuleColumns is the select list ScanRule expects.
const RuleColumns = `id, organization_id, integration_id, name, COALESCE(description, ''), trigger_module, trigger_event,
	trigger_conditions, action_type, action_command, cooldown_seconds, priority, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func ScanRule(row rowScanner) (Rule, error) {
	var (
		rule          Rule
		integrationID sql.NullInt64
		conditions    []byte
		command       []byte
		actionType    string
	)

	if err := row.Scan(
		&rule.ID,
		&rule.OrganizationID,
		&integrationID,
		&rule.Name,
		&rule.Description,
		&rule.TriggerModule,
		&rule.TriggerEvent,
		&conditions,
		&actionType,
		&command,
		&rule.CooldownSeconds,
		&rule.Priority,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return Rule{}, err
	}

	if integrationID.Valid {
		id := integrationID.Int64
		rule.IntegrationID = &id
	}
	rule.ActionType = ActionType(actionType)
	rule.TriggerConditions = conditions
	rule.ActionCommand = command
	return rule, nil
}

func (r *PostgresRuleRepository) GetActiveRules(ctx context.Context, organizationID int64, module, eventType string) ([]Rule, error) {
	query := `
		SELECT ` + RuleColumns + `
		FROM automation_rules
		WHERE is_active = true
		  AND deleted_at IS NULL
		  AND organization_id = $1
		  AND trigger_module = $2
		  AND trigger_event = $3
		ORDER BY priority DESC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID, module, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to query automation rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := ScanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return rules, nil
}
