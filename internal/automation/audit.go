package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lookout/internal/config"
	"lookout/internal/constants"
)

// LogStore is the append-only automation audit sink.
type LogStore interface {
	Write(ctx context.Context, entry *Log) error
	List(ctx context.Context, filter LogFilter) ([]Log, int64, error)
}

func prepareLog(entry *Log) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
}

type PostgresLogStore struct {
	db *sql.DB
}

func NewPostgresLogStore(db *sql.DB) *PostgresLogStore {
	return &PostgresLogStore{db: db}
}

func (s *PostgresLogStore) Write(ctx context.Context, entry *Log) error {
	prepareLog(entry)

	query := `
		INSERT INTO automation_logs (id, organization_id, automation_rule_id, triggering_event_id, action_type,
			action_executed, status, error_detail, execution_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var eventID, errorDetail *string
	if entry.TriggeringEventID != "" {
		eventID = &entry.TriggeringEventID
	}
	if entry.ErrorDetail != "" {
		errorDetail = &entry.ErrorDetail
	}

	var executed []byte
	if len(entry.ActionExecuted) > 0 {
		executed = entry.ActionExecuted
	}

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.OrganizationID, entry.RuleID, eventID, string(entry.ActionType),
		executed, string(entry.Status), errorDetail, entry.ExecutionTimeMs, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write automation log: %w", err)
	}
	return nil
}

func (s *PostgresLogStore) List(ctx context.Context, filter LogFilter) ([]Log, int64, error) {
	where := []string{"automation_rule_id = $1"}
	args := []interface{}{filter.RuleID}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM automation_logs WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count automation logs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT id, organization_id, automation_rule_id, triggering_event_id, action_type, action_executed,
			status, error_detail, execution_time_ms, created_at
		FROM automation_logs
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, clause, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query automation logs: %w", err)
	}
	defer rows.Close()

	logs := make([]Log, 0)
	for rows.Next() {
		var (
			entry       Log
			eventID     sql.NullString
			executed    []byte
			errorDetail sql.NullString
			actionType  string
			status      string
		)
		if err := rows.Scan(
			&entry.ID, &entry.OrganizationID, &entry.RuleID, &eventID, &actionType, &executed,
			&status, &errorDetail, &entry.ExecutionTimeMs, &entry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan automation log: %w", err)
		}
		entry.TriggeringEventID = eventID.String
		entry.ErrorDetail = errorDetail.String
		entry.ActionType = ActionType(actionType)
		entry.Status = Status(status)
		entry.ActionExecuted = executed
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}
	return logs, total, nil
}

type mongoLog struct {
	ID                string      `bson:"_id"`
	RuleID            int64       `bson:"automation_rule_id"`
	OrganizationID    int64       `bson:"organization_id"`
	TriggeringEventID string      `bson:"triggering_event_id,omitempty"`
	ActionType        string      `bson:"action_type"`
	ActionExecuted    interface{} `bson:"action_executed,omitempty"`
	Status            string      `bson:"status"`
	ErrorDetail       string      `bson:"error_detail,omitempty"`
	ExecutionTimeMs   int64       `bson:"execution_time_ms"`
	CreatedAt         time.Time   `bson:"created_at"`
}

type MongoLogStore struct {
	collection *mongo.Collection
}

func NewMongoLogStore(db *mongo.Database) *MongoLogStore {
	return &MongoLogStore{collection: db.Collection(constants.AutomationLogsCollection)}
}

func (s *MongoLogStore) Write(ctx context.Context, entry *Log) error {
	prepareLog(entry)

	doc := mongoLog{
		ID:                entry.ID,
		RuleID:            entry.RuleID,
		OrganizationID:    entry.OrganizationID,
		TriggeringEventID: entry.TriggeringEventID,
		ActionType:        string(entry.ActionType),
		Status:            string(entry.Status),
		ErrorDetail:       entry.ErrorDetail,
		ExecutionTimeMs:   entry.ExecutionTimeMs,
		CreatedAt:         entry.CreatedAt,
	}
	if len(entry.ActionExecuted) > 0 {
		var executed interface{}
		if err := json.Unmarshal(entry.ActionExecuted, &executed); err == nil {
			doc.ActionExecuted = executed
		}
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to write automation log: %w", err)
	}
	return nil
}

func (s *MongoLogStore) List(ctx context.Context, filter LogFilter) ([]Log, int64, error) {
	query := bson.M{"automation_rule_id": filter.RuleID}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.From != nil || filter.To != nil {
		created := bson.M{}
		if filter.From != nil {
			created["$gte"] = *filter.From
		}
		if filter.To != nil {
			created["$lte"] = *filter.To
		}
		query["created_at"] = created
	}

	total, err := s.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count automation logs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query automation logs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoLog
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode automation logs: %w", err)
	}

	logs := make([]Log, 0, len(docs))
	for _, doc := range docs {
		entry := Log{
			ID:                doc.ID,
			RuleID:            doc.RuleID,
			OrganizationID:    doc.OrganizationID,
			TriggeringEventID: doc.TriggeringEventID,
			ActionType:        ActionType(doc.ActionType),
			Status:            Status(doc.Status),
			ErrorDetail:       doc.ErrorDetail,
			ExecutionTimeMs:   doc.ExecutionTimeMs,
			CreatedAt:         doc.CreatedAt,
		}
		if doc.ActionExecuted != nil {
			if executed, err := bson.MarshalExtJSON(bson.M{"v": doc.ActionExecuted}, false, false); err == nil {
				var wrapper struct {
					V json.RawMessage `json:"v"`
				}
				if json.Unmarshal(executed, &wrapper) == nil {
					entry.ActionExecuted = wrapper.V
				}
			}
		}
		logs = append(logs, entry)
	}
	return logs, total, nil
}

// NewLogStore builds the audit sink selected by store.
func NewLogStore(store string, db *sql.DB, mongoDB *mongo.Database) (LogStore, error) {
	switch store {
	case config.StorePostgres, "":
		if db == nil {
			return nil, fmt.Errorf("audit store %q requires a postgres connection", config.StorePostgres)
		}
		return NewPostgresLogStore(db), nil
	case config.StoreMongoDB:
		if mongoDB == nil {
			return nil, fmt.Errorf("audit store %q requires a mongodb connection", config.StoreMongoDB)
		}
		return NewMongoLogStore(mongoDB), nil
	default:
		return nil, fmt.Errorf("unsupported audit store: %s", store)
	}
}
