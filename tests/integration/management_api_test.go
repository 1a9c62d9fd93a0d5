package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/entitlement"
	"lookout/internal/management"
	"lookout/pkg/cel"
)

type managementAPI struct {
	router *gin.Engine
	s      *scenario
}

func newManagementAPI(t *testing.T) *managementAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	infra := SetupTestInfra(t)
	s := newScenario(t, infra.PostgresDB, nil)
	seedPlan(t, infra.PostgresDB, "basic", "intrusion")
	seedOrganization(t, infra.PostgresDB, 42, "basic")

	evaluator, err := cel.NewEvaluator()
	require.NoError(t, err)

	log := createTestLogger()
	svc := management.NewService(management.NewRepository(infra.PostgresDB), s.logs, evaluator, log,
		management.WithRuleTester(s.pipeline),
		management.WithAudit(management.NewAuditLogger(infra.PostgresDB)),
		management.WithEntitlements(entitlement.NewService(entitlement.NewRepository(infra.PostgresDB), 2*time.Second, log)),
	)

	router := gin.New()
	management.NewHandler(svc, log).RegisterRoutes(router)
	return &managementAPI{router: router, s: s}
}

func (a *managementAPI) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(management.HeaderActor, "ops@example.com")

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w.Code, decoded
}

const fireSirenRule = `{
	"organization_id": 42,
	"name": "Fire siren",
	"trigger_module": "Fire",
	"trigger_event": "fire_detected",
	"trigger_conditions": [{"field": "meta.confidence", "operator": "greater_than", "value": 0.8}],
	"action_type": "siren",
	"action_command": {"device_id": "siren-1", "duration_seconds": 30}
}`

func TestManagementAPI_RuleLifecycle(t *testing.T) {
	api := newManagementAPI(t)

	code, created := api.do(t, http.MethodPost, "/api/v1/automation-rules", fireSirenRule)
	require.Equal(t, http.StatusCreated, code, created)
	id := int64(created["id"].(float64))
	assert.Equal(t, "fire", created["trigger_module"])
	assert.Equal(t, float64(60), created["cooldown_seconds"])
	assert.Equal(t, true, created["is_active"])

	code, list := api.do(t, http.MethodGet, "/api/v1/automation-rules?organization_id=42", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), list["total"])

	code, updated := api.do(t, http.MethodPut, fmt.Sprintf("/api/v1/automation-rules/%d", id), `{"cooldown_seconds": 0, "priority": 3}`)
	require.Equal(t, http.StatusOK, code, updated)
	assert.Equal(t, float64(0), updated["cooldown_seconds"])
	assert.Equal(t, float64(3), updated["priority"])
	assert.Equal(t, "Fire siren", updated["name"])

	code, tested := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/automation-rules/%d/test", id), "")
	require.Equal(t, http.StatusOK, code, tested)
	testLog := tested["log"].(map[string]interface{})
	assert.Equal(t, "succeeded", testLog["status"])
	require.Len(t, api.s.publisher.published(), 1)

	code, logs := api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/automation-rules/%d/logs?status=succeeded", id), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), logs["total"])

	code, toggled := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/automation-rules/%d/toggle", id), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, toggled["is_active"])

	code, _ = api.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/automation-rules/%d", id), "")
	require.Equal(t, http.StatusNoContent, code)

	code, _ = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/automation-rules/%d", id), "")
	assert.Equal(t, http.StatusNotFound, code)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/automation-rules/%d/history", id), nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var history []management.RuleAudit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 4)

	actions := make([]string, 0, len(history))
	for _, h := range history {
		actions = append(actions, h.Action)
		assert.Equal(t, "ops@example.com", h.ChangedBy)
	}
	assert.ElementsMatch(t, []string{
		management.AuditCreate, management.AuditUpdate, management.AuditToggle, management.AuditDelete,
	}, actions)
}

func TestManagementAPI_UnknownOrganization(t *testing.T) {
	api := newManagementAPI(t)

	body := strings.Replace(fireSirenRule, `"organization_id": 42`, `"organization_id": 9000`, 1)
	code, resp := api.do(t, http.MethodPost, "/api/v1/automation-rules", body)
	require.Equal(t, http.StatusUnprocessableEntity, code, resp)

	errs := resp["errors"].(map[string]interface{})
	assert.Contains(t, errs, "organization_id")
}

func TestManagementAPI_ModuleOverride(t *testing.T) {
	api := newManagementAPI(t)

	code, res := api.do(t, http.MethodGet, "/api/v1/organizations/42/modules/fire", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, res["enabled"])
	assert.Equal(t, "plan", res["source"])

	code, res = api.do(t, http.MethodPut, "/api/v1/organizations/42/modules/FIRE", `{"enabled": true}`)
	require.Equal(t, http.StatusOK, code, res)
	assert.Equal(t, true, res["enabled"])
	assert.Equal(t, "override", res["source"])

	code, res = api.do(t, http.MethodDelete, "/api/v1/organizations/42/modules/fire", "")
	require.Equal(t, http.StatusOK, code, res)
	assert.Equal(t, false, res["enabled"])

	code, _ = api.do(t, http.MethodDelete, "/api/v1/organizations/42/modules/fire", "")
	assert.Equal(t, http.StatusNotFound, code)
}
