package ingestion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/config"
	"lookout/internal/constants"
	"lookout/internal/entitlement"
	"lookout/internal/logger"
	"lookout/pkg/ratelimit"
)

type ingestFixture struct {
	router  *gin.Engine
	events  *memoryEvents
	handoff *recordingHandoff
	checker *fakeChecker
}

func newIngestFixture(t *testing.T, checker *fakeChecker, limit *ratelimit.RateLimitConfig) *ingestFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &ingestFixture{events: &memoryEvents{}, handoff: &recordingHandoff{}, checker: checker}
	svc := NewService(checker, f.events, f.handoff, config.AutomationModeBroker, logger.NopLogger())

	auth := NewEdgeAuthenticator(fakeEdges{testEdgeKey: testEdge()}, 0, 0, logger.NopLogger())
	middlewares := []gin.HandlerFunc{auth.Middleware()}
	if limit != nil {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		middlewares = append(middlewares, ratelimit.KeyedRateLimitMiddleware(ctx, *limit, ratelimit.HeaderKey(constants.HeaderEdgeKey)))
	}

	f.router = gin.New()
	NewHandler(svc, logger.NopLogger()).RegisterRoutes(f.router, middlewares...)
	return f
}

func (f *ingestFixture) post(body string) *httptest.ResponseRecorder {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/edges/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constants.HeaderEdgeKey, testEdgeKey)
	req.Header.Set(constants.HeaderEdgeTimestamp, ts)
	req.Header.Set(constants.HeaderEdgeSignature, Sign(testEdgeSecret, http.MethodPost, "/api/v1/edges/events", ts, []byte(body)))

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

const fireBody = `{"event_type":"fire_detected","severity":"critical","occurred_at":"2026-03-01T12:00:00Z","camera_id":"cam-3","meta":{"module":"fire"}}`

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestIngestEvent_Created(t *testing.T) {
	f := newIngestFixture(t, allow(), nil)

	w := f.post(fireBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	require.Len(t, f.events.events, 1)
	assert.Equal(t, f.events.events[0].ID, body["event_id"])
	assert.Equal(t, int64(42), f.events.events[0].OrganizationID)
	assert.Equal(t, int64(7), f.events.events[0].EdgeServerID)
	assert.Len(t, f.handoff.events, 1)
}

func TestIngestEvent_ModuleDisabled(t *testing.T) {
	f := newIngestFixture(t, deny(entitlement.ReasonDisabled), nil)

	w := f.post(fireBody)
	require.Equal(t, http.StatusForbidden, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "module_disabled", body["error"])
	assert.NotContains(t, body["message"], "42")
	assert.Empty(t, f.events.events)
	assert.Empty(t, f.handoff.events)
}

func TestIngestEvent_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing event_type", `{"severity":"info","occurred_at":"2026-03-01T12:00:00Z"}`, "event_type"},
		{"bad severity", `{"event_type":"x","severity":"loud","occurred_at":"2026-03-01T12:00:00Z"}`, "severity"},
		{"bad occurred_at", `{"event_type":"x","severity":"info","occurred_at":"03/01/2026"}`, "occurred_at"},
		{"numeric camera_id", `{"event_type":"x","severity":"info","occurred_at":"2026-03-01T12:00:00Z","camera_id":3}`, "camera_id"},
		{"meta not an object", `{"event_type":"x","severity":"info","occurred_at":"2026-03-01T12:00:00Z","meta":[1]}`, "meta"},
		{"module not a string", `{"event_type":"x","severity":"info","occurred_at":"2026-03-01T12:00:00Z","meta":{"module":1}}`, "meta.module"},
		{"not json", `event`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := allow()
			f := newIngestFixture(t, checker, nil)

			w := f.post(tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

			body := decode(t, w)
			assert.Equal(t, "validation_error", body["error"])
			fields, ok := body["errors"].(map[string]interface{})
			require.True(t, ok)
			assert.Contains(t, fields, tt.wantField)
			assert.Empty(t, checker.calls)
			assert.Empty(t, f.events.events)
		})
	}
}

func TestIngestEvent_RateLimitedPerEdge(t *testing.T) {
	limit := ratelimit.RateLimitConfig{RPS: 0.001, Burst: 1, CleanupInterval: time.Minute, MaxAge: time.Minute}
	f := newIngestFixture(t, allow(), &limit)

	assert.Equal(t, http.StatusCreated, f.post(fireBody).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.post(fireBody).Code)
	assert.Len(t, f.events.events, 1)
}

func TestIngestEvent_Unauthenticated(t *testing.T) {
	f := newIngestFixture(t, allow(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/edges/events", strings.NewReader(fireBody))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, f.events.events)
}
