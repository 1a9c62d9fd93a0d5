package entitlement

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func resolveRows(override, plan, planEnabled interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"override", "plan", "plan_enabled"}).AddRow(override, plan, planEnabled)
}

func TestPostgresRepository_Resolve(t *testing.T) {
	tests := []struct {
		name        string
		override    interface{}
		plan        interface{}
		planEnabled interface{}
		want        Resolution
	}{
		{
			name:     "override disables module the plan includes",
			override: false, plan: "pro", planEnabled: true,
			want: Resolution{OrganizationID: 7, Module: "fire", Enabled: false, Source: SourceOverride, Plan: "pro"},
		},
		{
			name:     "override enables module outside the plan",
			override: true, plan: "basic", planEnabled: false,
			want: Resolution{OrganizationID: 7, Module: "fire", Enabled: true, Source: SourceOverride, Plan: "basic"},
		},
		{
			name:     "plan includes module",
			override: nil, plan: "pro", planEnabled: true,
			want: Resolution{OrganizationID: 7, Module: "fire", Enabled: true, Source: SourcePlan, Plan: "pro"},
		},
		{
			name:     "plan excludes module",
			override: nil, plan: "basic", planEnabled: false,
			want: Resolution{OrganizationID: 7, Module: "fire", Enabled: false, Source: SourcePlan, Plan: "basic"},
		},
		{
			name:     "no override and no plan",
			override: nil, plan: nil, planEnabled: nil,
			want: Resolution{OrganizationID: 7, Module: "fire", Enabled: false, Source: SourceNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			mock.ExpectQuery("WITH active_plan AS").
				WithArgs(int64(7), "fire").
				WillReturnRows(resolveRows(tt.override, tt.plan, tt.planEnabled))

			got, err := repo.Resolve(context.Background(), 7, "fire")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_ResolveError(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery("WITH active_plan AS").WillReturnError(errors.New("connection refused"))

	_, err := repo.Resolve(context.Background(), 1, "fire")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPostgresRepository_SetOverride(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO organization_module_overrides")).
		WithArgs(int64(3), "face", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetOverride(context.Background(), 3, "face", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteOverride(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM organization_module_overrides")).
		WithArgs(int64(3), "face").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteOverride(context.Background(), 3, "face")
	require.NoError(t, err)
	assert.False(t, deleted)
}
