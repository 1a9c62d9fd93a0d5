package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/automation"
	"lookout/internal/constants"
	"lookout/pkg/migrations"
)

func writeLogs(t *testing.T, store automation.LogStore, ruleID int64, base time.Time) {
	t.Helper()

	statuses := []automation.Status{
		automation.StatusSucceeded,
		automation.StatusSkippedCooldown,
		automation.StatusFailed,
		automation.StatusSucceeded,
	}
	for i, status := range statuses {
		entry := &automation.Log{
			RuleID:            ruleID,
			OrganizationID:    7,
			TriggeringEventID: "7d1f3c1e-3f0a-4e2b-9a57-0c3e8d1b2a4" + string(rune('0'+i)),
			ActionType:        automation.ActionSiren,
			ActionExecuted:    json.RawMessage(`{"device_id":"siren-1"}`),
			Status:            status,
			ExecutionTimeMs:   int64(i),
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		}
		if status == automation.StatusFailed {
			entry.ErrorDetail = "edge offline"
		}
		require.NoError(t, store.Write(context.Background(), entry))
		assert.NotEmpty(t, entry.ID)
	}
}

func assertLogQueries(t *testing.T, store automation.LogStore, ruleID int64, base time.Time) {
	ctx := context.Background()

	all, total, err := store.List(ctx, automation.LogFilter{RuleID: ruleID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, all, 4)
	assert.True(t, all[0].CreatedAt.After(all[3].CreatedAt), "newest first")
	assert.JSONEq(t, `{"device_id":"siren-1"}`, string(all[0].ActionExecuted))

	succeeded, total, err := store.List(ctx, automation.LogFilter{RuleID: ruleID, Status: automation.StatusSucceeded, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, l := range succeeded {
		assert.Equal(t, automation.StatusSucceeded, l.Status)
	}

	failed, _, err := store.List(ctx, automation.LogFilter{RuleID: ruleID, Status: automation.StatusFailed, Limit: 10})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "edge offline", failed[0].ErrorDetail)

	from := base.Add(90 * time.Second)
	to := base.Add(150 * time.Second)
	window, total, err := store.List(ctx, automation.LogFilter{RuleID: ruleID, From: &from, To: &to, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, window, 1)
	assert.Equal(t, automation.StatusFailed, window[0].Status)

	page, total, err := store.List(ctx, automation.LogFilter{RuleID: ruleID, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, page, 2)

	none, total, err := store.List(ctx, automation.LogFilter{RuleID: ruleID + 1000, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}

func TestPostgresLogStore(t *testing.T) {
	infra := SetupTestInfra(t)
	seedOrganization(t, infra.PostgresDB, 7, "")
	rule := createRule(t, infra.PostgresDB, sirenRule(7, 60))

	store := automation.NewPostgresLogStore(infra.PostgresDB)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	writeLogs(t, store, rule.ID, base)
	assertLogQueries(t, store, rule.ID, base)
}

func TestMongoLogStore(t *testing.T) {
	infra := SetupTestInfra(t, WithMongo())
	require.NoError(t, migrations.EnsureAutomationLogIndexes(context.Background(), infra.MongoDB, constants.AutomationLogsCollection))

	store := automation.NewMongoLogStore(infra.MongoDB)
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	writeLogs(t, store, 11, base)
	assertLogQueries(t, store, 11, base)
}
