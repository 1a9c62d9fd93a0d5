package entitlement

import (
	"context"
	"database/sql"
	"fmt"
)

type Repository interface {
	Resolve(ctx context.Context, organizationID int64, module string) (Resolution, error)
	SetOverride(ctx context.Context, organizationID int64, module string, enabled bool) error
	DeleteOverride(ctx context.Context, organizationID int64, module string) (bool, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

// resolveQuery reads the override and the effective plan in one round trip. The
// effective plan is the newest active subscription whose window contains now,
// otherwise the plan named on the organization row.
const resolveQuery = `
	WITH active_plan AS (
		SELECT p.name, p.available_modules
		FROM organization_subscriptions s
		JOIN subscription_plans p ON p.id = s.subscription_plan_id
		WHERE s.organization_id = $1
		  AND s.status = 'active'
		  AND s.starts_at <= NOW()
		  AND (s.ends_at IS NULL OR s.ends_at > NOW())
		ORDER BY s.starts_at DESC, s.id DESC
		LIMIT 1
	), named_plan AS (
		SELECT p.name, p.available_modules
		FROM organizations o
		JOIN subscription_plans p ON p.name = o.subscription_plan
		WHERE o.id = $1 AND o.deleted_at IS NULL
	), effective_plan AS (
		SELECT name, available_modules FROM active_plan
		UNION ALL
		SELECT name, available_modules FROM named_plan WHERE NOT EXISTS (SELECT 1 FROM active_plan)
		LIMIT 1
	)
	SELECT
		(SELECT is_enabled FROM organization_module_overrides
		  WHERE organization_id = $1 AND module_key = $2),
		(SELECT name FROM effective_plan),
		(SELECT $2 = ANY(available_modules) FROM effective_plan)
`

func (r *PostgresRepository) Resolve(ctx context.Context, organizationID int64, module string) (Resolution, error) {
	var (
		override    sql.NullBool
		planName    sql.NullString
		planEnabled sql.NullBool
	)

	err := r.db.QueryRowContext(ctx, resolveQuery, organizationID, module).Scan(&override, &planName, &planEnabled)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to resolve entitlement: %w", err)
	}

	res := Resolution{
		OrganizationID: organizationID,
		Module:         module,
		Plan:           planName.String,
		Source:         SourceNone,
	}

	switch {
	case override.Valid:
		res.Enabled = override.Bool
		res.Source = SourceOverride
	case planEnabled.Valid:
		res.Enabled = planEnabled.Bool
		res.Source = SourcePlan
	}

	return res, nil
}

func (r *PostgresRepository) SetOverride(ctx context.Context, organizationID int64, module string, enabled bool) error {
	query := `
		INSERT INTO organization_module_overrides (organization_id, module_key, is_enabled, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (organization_id, module_key)
		DO UPDATE SET is_enabled = EXCLUDED.is_enabled, updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, organizationID, module, enabled); err != nil {
		return fmt.Errorf("failed to set module override: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteOverride(ctx context.Context, organizationID int64, module string) (bool, error) {
	query := `DELETE FROM organization_module_overrides WHERE organization_id = $1 AND module_key = $2`

	result, err := r.db.ExecContext(ctx, query, organizationID, module)
	if err != nil {
		return false, fmt.Errorf("failed to delete module override: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}
