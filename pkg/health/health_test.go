package health

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerRegistry(t *testing.T) {
	ok := NewCheckerFunc("postgresql", func(context.Context) error { return nil })
	down := NewCheckerFunc("redis", func(context.Context) error { return errors.New("connection refused") })
	mqtt := NewCheckerFunc("mqtt", func(context.Context) error { return errors.New("not connected") })

	tests := []struct {
		name     string
		checkers []Checker
		want     Status
		code     int
	}{
		{"all healthy", []Checker{ok}, StatusHealthy, http.StatusOK},
		{"optional failure degrades", []Checker{ok, Optional(mqtt)}, StatusDegraded, http.StatusOK},
		{"required failure", []Checker{ok, down, Optional(mqtt)}, StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			for _, c := range tt.checkers {
				r.Register(c)
			}
			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Equal(t, tt.code, h.HTTPStatus())
			assert.Len(t, h.Checks, len(tt.checkers))
		})
	}
}

func TestPostgreSQLChecker(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("dial tcp: refused"))

	err = NewPostgreSQLChecker(db).Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgresql ping failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
