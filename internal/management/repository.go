package management

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"lookout/internal/automation"
	pkgerrors "lookout/pkg/errors"
)

var ErrRuleNotFound = errors.New("rule not found")

type Repository interface {
	CreateRule(ctx context.Context, rule *automation.Rule) error
	GetRule(ctx context.Context, id int64) (*automation.Rule, error)
	ListRules(ctx context.Context, filter RuleFilter) ([]automation.Rule, int64, error)
	UpdateRule(ctx context.Context, rule *automation.Rule) error
	SetActive(ctx context.Context, id int64, active bool) (*automation.Rule, error)
	DeleteRule(ctx context.Context, id int64) error
}

type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db, now: time.Now}
}

func (r *PostgresRepository) CreateRule(ctx context.Context, rule *automation.Rule) error {
	now := r.now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	query := `
		INSERT INTO automation_rules (organization_id, integration_id, name, description, trigger_module, trigger_event,
			trigger_conditions, action_type, action_command, cooldown_seconds, priority, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		rule.OrganizationID, nullableInt64(rule.IntegrationID), rule.Name, rule.Description,
		rule.TriggerModule, rule.TriggerEvent, jsonOrDefault(rule.TriggerConditions, "[]"),
		string(rule.ActionType), jsonOrDefault(rule.ActionCommand, "{}"),
		rule.CooldownSeconds, rule.Priority, rule.IsActive, rule.CreatedAt, rule.UpdatedAt,
	).Scan(&rule.ID)
	if err != nil {
		return mapWriteError(err, rule)
	}
	return nil
}

func (r *PostgresRepository) GetRule(ctx context.Context, id int64) (*automation.Rule, error) {
	query := `
		SELECT ` + automation.RuleColumns + `
		FROM automation_rules
		WHERE id = $1 AND deleted_at IS NULL
	`

	rule, err := automation.ScanRule(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return &rule, nil
}

func (r *PostgresRepository) ListRules(ctx context.Context, filter RuleFilter) ([]automation.Rule, int64, error) {
	where := []string{"deleted_at IS NULL"}
	var args []interface{}

	if filter.OrganizationID > 0 {
		args = append(args, filter.OrganizationID)
		where = append(where, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if filter.TriggerModule != "" {
		args = append(args, filter.TriggerModule)
		where = append(where, fmt.Sprintf("trigger_module = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM automation_rules WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count rules: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM automation_rules
		WHERE %s
		ORDER BY priority DESC, id ASC
		LIMIT $%d OFFSET $%d
	`, automation.RuleColumns, clause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	rules := make([]automation.Rule, 0)
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, 0, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		rule, err := automation.ScanRule(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate rules: %w", err)
	}

	return rules, total, nil
}

func (r *PostgresRepository) UpdateRule(ctx context.Context, rule *automation.Rule) error {
	rule.UpdatedAt = r.now().UTC()

	query := `
		UPDATE automation_rules
		SET integration_id = $1, name = $2, description = $3, trigger_module = $4, trigger_event = $5,
			trigger_conditions = $6, action_type = $7, action_command = $8, cooldown_seconds = $9,
			priority = $10, is_active = $11, updated_at = $12
		WHERE id = $13 AND deleted_at IS NULL
	`

	res, err := r.db.ExecContext(ctx, query,
		nullableInt64(rule.IntegrationID), rule.Name, rule.Description, rule.TriggerModule, rule.TriggerEvent,
		jsonOrDefault(rule.TriggerConditions, "[]"), string(rule.ActionType), jsonOrDefault(rule.ActionCommand, "{}"),
		rule.CooldownSeconds, rule.Priority, rule.IsActive, rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return mapWriteError(err, rule)
	}
	return requireAffected(res)
}

func (r *PostgresRepository) SetActive(ctx context.Context, id int64, active bool) (*automation.Rule, error) {
	query := `
		UPDATE automation_rules
		SET is_active = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
		RETURNING ` + automation.RuleColumns

	rule, err := automation.ScanRule(r.db.QueryRowContext(ctx, query, active, r.now().UTC(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle rule: %w", err)
	}
	return &rule, nil
}

// DeleteRule soft-deletes: audit log rows keep referencing the rule.
func (r *PostgresRepository) DeleteRule(ctx context.Context, id int64) error {
	query := `UPDATE automation_rules SET deleted_at = $1, is_active = false WHERE id = $2 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func mapWriteError(err error, rule *automation.Rule) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23503":
			return pkgerrors.FieldErrors(map[string][]string{
				"organization_id": {fmt.Sprintf("organization %d does not exist", rule.OrganizationID)},
			}).WithCause(err)
		case "23505":
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("rule '%s' already exists", rule.Name))
		}
	}
	return fmt.Errorf("failed to write rule: %w", err)
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func jsonOrDefault(raw []byte, def string) []byte {
	if len(raw) == 0 {
		return []byte(def)
	}
	return raw
}
