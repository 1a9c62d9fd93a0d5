package ingestion

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lookout/pkg/metrics"
)

var ErrEdgeNotFound = errors.New("edge server not found")

type EdgeRepository interface {
	FindByKey(ctx context.Context, edgeKey string) (*EdgeServer, error)
}

type EventRepository interface {
	Insert(ctx context.Context, event *Event) error
}

type PostgresEdgeRepository struct {
	db *sql.DB
}

func NewEdgeRepository(db *sql.DB) *PostgresEdgeRepository {
	return &PostgresEdgeRepository{db: db}
}

func (r *PostgresEdgeRepository) FindByKey(ctx context.Context, edgeKey string) (*EdgeServer, error) {
	query := `
		SELECT id, organization_id, name, edge_key, edge_secret, is_active
		FROM edge_servers
		WHERE edge_key = $1
	`

	var edge EdgeServer
	err := r.db.QueryRowContext(ctx, query, edgeKey).Scan(
		&edge.ID,
		&edge.OrganizationID,
		&edge.Name,
		&edge.EdgeKey,
		&edge.EdgeSecret,
		&edge.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEdgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load edge server: %w", err)
	}
	return &edge, nil
}

type PostgresEventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

func (r *PostgresEventRepository) Insert(ctx context.Context, event *Event) error {
	meta := event.Meta
	if meta == nil {
		meta = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode event meta: %w", err)
	}

	query := `
		INSERT INTO events (id, organization_id, edge_server_id, module, event_type, severity, occurred_at, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	start := time.Now()
	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.OrganizationID,
		event.EdgeServerID,
		event.Module,
		event.EventType,
		event.Severity,
		event.OccurredAt,
		metaJSON,
		event.CreatedAt,
	)
	metrics.ObserveDatabaseQueryDuration("ingestion", "postgres", "insert_event", time.Since(start))
	if err != nil {
		metrics.IncDatabaseQuery("ingestion", "postgres", "insert_event", "error")
		return fmt.Errorf("failed to insert event: %w", err)
	}
	metrics.IncDatabaseQuery("ingestion", "postgres", "insert_event", "ok")
	return nil
}
