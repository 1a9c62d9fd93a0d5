package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"module disabled", ErrModuleDisabled, http.StatusForbidden, "module_disabled"},
		{"validation", FieldErrors(map[string][]string{"severity": {"invalid"}}), http.StatusUnprocessableEntity, "validation_error"},
		{"plain error becomes internal", fmt.Errorf("db down"), http.StatusInternalServerError, "internal_error"},
		{"wrapped app error", fmt.Errorf("ingest: %w", ErrUnauthorized), http.StatusUnauthorized, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, ToHTTPStatus(tt.err))

			resp := ToErrorResponse(tt.err)
			assert.Equal(t, false, resp["ok"])
			assert.Equal(t, tt.wantCode, resp["error"])
			assert.NotEmpty(t, resp["message"])
		})
	}
}

func TestToErrorResponse_DoesNotLeakCause(t *testing.T) {
	resp := ToErrorResponse(ErrInternal.WithCause(fmt.Errorf("pq: password authentication failed")))
	assert.Equal(t, "internal server error", resp["message"])
	for _, v := range resp {
		assert.NotContains(t, fmt.Sprint(v), "password")
	}
}

func TestWithDetail_DoesNotMutateSentinel(t *testing.T) {
	_ = ErrValidation.WithDetail("errors", map[string][]string{"x": {"y"}})
	assert.Empty(t, ErrValidation.Details)
}

func TestRetryability(t *testing.T) {
	assert.True(t, ErrModuleDisabled.IsFatal())
	assert.False(t, ErrModuleDisabled.IsRetryable())
	assert.True(t, ErrServiceUnavailable.IsRetryable())
	assert.True(t, ErrInternal.AsFatal().IsFatal())
	assert.False(t, ErrValidation.IsRetryable())
	assert.True(t, ErrValidation.AsRetryable().IsRetryable())
}

func TestCodePredicates(t *testing.T) {
	wrapped := fmt.Errorf("create rule: %w", ErrConflict.WithDetails(map[string]interface{}{"name": "Fire siren"}))
	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsModuleDisabled(wrapped))
	assert.True(t, IsModuleDisabled(ErrModuleDisabled))
	assert.False(t, IsConflict(fmt.Errorf("plain")))
	assert.Equal(t, ErrConflict.Code, Code(wrapped))
	assert.Empty(t, Code(fmt.Errorf("plain")))

	resp := ToErrorResponse(wrapped)
	assert.Equal(t, "Fire siren", resp["name"])
	assert.Equal(t, "conflict", resp["error"])
}

func TestRecoverPanic(t *testing.T) {
	require.NoError(t, RecoverPanic(nil))

	err := RecoverPanic("boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(err))

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.IsFatal())
	assert.Equal(t, true, appErr.Details["panic"])
	assert.NotEmpty(t, appErr.Details["stack_trace"])
}

func TestWithDetails_MergesWithoutMutatingSentinel(t *testing.T) {
	first := ErrValidation.WithDetail("field", "name")
	second := first.WithDetails(map[string]interface{}{"rule_id": 12})

	assert.Equal(t, "name", second.Details["field"])
	assert.Equal(t, 12, second.Details["rule_id"])
	assert.NotContains(t, first.Details, "rule_id")
	assert.Empty(t, ErrValidation.Details)
}
