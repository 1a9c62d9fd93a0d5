package automation

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresLogStore_Write(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresLogStore(db)
	entry := &Log{
		RuleID:            3,
		OrganizationID:    42,
		TriggeringEventID: "0b7c5a4e-9a38-4bd4-a1c8-7c1f0f7b4d11",
		ActionType:        ActionSiren,
		ActionExecuted:    json.RawMessage(`{"device_id":"siren-1"}`),
		Status:            StatusSucceeded,
		ExecutionTimeMs:   12,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO automation_logs")).
		WithArgs(sqlmock.AnyArg(), int64(42), int64(3), &entry.TriggeringEventID, "siren",
			[]byte(`{"device_id":"siren-1"}`), "succeeded", nil, int64(12), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Write(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLogStore_ListWithFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresLogStore(db)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	created := from.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM automation_logs WHERE automation_rule_id = $1 AND status = $2 AND created_at >= $3")).
		WithArgs(int64(3), "failed", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $4 OFFSET $5")).
		WithArgs(int64(3), "failed", from, 20, 40).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "organization_id", "automation_rule_id", "triggering_event_id", "action_type", "action_executed",
			"status", "error_detail", "execution_time_ms", "created_at",
		}).AddRow("log-1", int64(42), int64(3), nil, "http_request", nil, "failed", "status 500", int64(40), created))

	logs, total, err := store.List(context.Background(), LogFilter{
		RuleID: 3, Status: StatusFailed, From: &from, Limit: 20, Offset: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, "status 500", logs[0].ErrorDetail)
	assert.Equal(t, ActionHTTPRequest, logs[0].ActionType)
	assert.Empty(t, logs[0].TriggeringEventID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewLogStore(t *testing.T) {
	_, err := NewLogStore("postgres", nil, nil)
	assert.Error(t, err)

	_, err = NewLogStore("mongodb", nil, nil)
	assert.Error(t, err)

	_, err = NewLogStore("s3", nil, nil)
	assert.Error(t, err)
}
