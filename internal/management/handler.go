package management

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"lookout/internal/automation"
	"lookout/internal/logger"
	"lookout/pkg/errors"
)

// HeaderActor names the operator behind an administrative request.
const HeaderActor = "X-Actor"

type Handler struct {
	service Service
	logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine, middlewares ...gin.HandlerFunc) {
	v1 := router.Group("/api/v1", middlewares...)
	v1.Use(actorMiddleware())
	{
		rules := v1.Group("/automation-rules")
		{
			rules.GET("", h.ListRules)
			rules.POST("", h.CreateRule)
			rules.GET("/:id", h.GetRule)
			rules.PUT("/:id", h.UpdateRule)
			rules.DELETE("/:id", h.DeleteRule)
			rules.POST("/:id/toggle", h.ToggleRule)
			rules.POST("/:id/test", h.TestRule)
			rules.GET("/:id/logs", h.ListRuleLogs)
			rules.GET("/:id/history", h.GetRuleHistory)
		}

		catalog := v1.Group("/automation")
		{
			catalog.GET("/triggers", h.ListTriggers)
			catalog.GET("/actions", h.ListActions)
		}

		modules := v1.Group("/organizations/:id/modules")
		{
			modules.GET("/:module", h.GetModule)
			modules.PUT("/:module", h.SetModuleOverride)
			modules.DELETE("/:module", h.ClearModuleOverride)
		}
	}
}

func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithClientIP(c.Request.Context(), c.ClientIP())
		if actor := c.GetHeader(HeaderActor); actor != "" {
			ctx = WithActor(ctx, actor)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

// ListRules godoc
// @Summary      List automation rules
// @Description  Rules ordered by priority, highest first. Deleted rules are never listed.
// @Tags         automation-rules
// @Produce      json
// @Param        organization_id  query  int     false  "Organization"
// @Param        trigger_module   query  string  false  "Trigger module"
// @Param        is_active        query  bool    false  "Active flag"
// @Param        limit            query  int     false  "Page size"
// @Param        offset           query  int     false  "Page offset"
// @Success      200  {object}  RuleList
// @Failure      422  {object}  map[string]interface{}
// @Router       /automation-rules [get]
func (h *Handler) ListRules(c *gin.Context) {
	errs := fieldErrors{}
	filter := RuleFilter{
		OrganizationID: queryInt64(c, "organization_id", errs),
		TriggerModule:  c.Query("trigger_module"),
		Limit:          int(queryInt64(c, "limit", errs)),
		Offset:         int(queryInt64(c, "offset", errs)),
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			errs.add("is_active", "is_active must be a boolean")
		}
		filter.IsActive = &active
	}
	if len(errs) > 0 {
		h.handleError(c, errors.FieldErrors(errs))
		return
	}

	list, err := h.service.ListRules(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateRule godoc
// @Summary      Create an automation rule
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        X-Actor  header  string             false  "Operator making the change"
// @Param        rule     body    CreateRuleRequest  true   "Rule"
// @Success      201  {object}  automation.Rule
// @Failure      422  {object}  map[string]interface{}
// @Router       /automation-rules [post]
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, bindError(err))
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// GetRule godoc
// @Summary      Get an automation rule
// @Tags         automation-rules
// @Produce      json
// @Param        id   path      int  true  "Rule ID"
// @Success      200  {object}  automation.Rule
// @Failure      404  {object}  map[string]interface{}
// @Router       /automation-rules/{id} [get]
func (h *Handler) GetRule(c *gin.Context) {
	id, ok := h.ruleID(c)
	if !ok {
		return
	}

	rule, err := h.service.GetRule(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRule godoc
// @Summary      Update an automation rule
// @Description  Only the fields present in the body change.
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        id    path  int                true  "Rule ID"
// @Param        rule  body  UpdateRuleRequest  true  "Changed fields"
// @Success      200  {object}  automation.Rule
// @Failure      404  {object}  map[string]interface{}
// @Failure      422  {object}  map[string]interface{}
// @Router       /automation-rules/{id} [put]
func (h *Handler) UpdateRule(c *gin.Context) {
	id, ok := h.ruleID(c)
	if !ok {
		return
	}

	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, bindError(err))
		return
	}

	rule, err := h.service.UpdateRule(c.Request.Context(), id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary      Delete an automation rule
// @Description  Soft delete. The rule stops matching and its logs are kept.
// @Tags         automation-rules
// @Param        id   path  int  true  "Rule ID"
// @Success      204
// @Failure      404  {object}  map[string]interface{}
// @Router       /automation-rules/{id} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	id, ok := h.ruleID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteRule(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleRule godoc
// @Summary      Flip a rule's active flag
// @Tags         automation-rules
// @Produce      json
// @Param        id   path      int  true  "Rule ID"
// @Success      200  {object}  automation.Rule
// @Failure      404  {object}  map[string]interface{}
// @Router       /automation-rules/{id}/toggle [post]
func (h *Handler) ToggleRule(c *gin.Context) {
	id, ok := h.ruleID(c)
	if !ok {
		return
	}

	rule, err := h.service.ToggleRule(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// TestRule godoc
// @Summary      Dispatch a rule once against a synthetic event
// @Description  Conditions and cooldown are not consulted. The outcome is logged.
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        id       path  int              true   "Rule ID"
// @Param        request  body  TestRuleRequest  false  "Synthetic event overrides"
// @Success      200  {object}  TestRuleResponse
// @Failure      404  {object}  map[string]interface{}
// @Router       /automation-rules/{id}/test [post]
func (h *Handler) TestRule(c *gin.Context) {
	id, ok := h.ruleID(c)
	if !ok {
		return
	}

	var req TestRuleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.handleError(c, bindError(err))
			return
		}
	}

	resp, err := h.service.TestRule(c.Request.Context(), id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListRuleLogs godoc
// @Summary      List a rule's execution logs
// @Tags         automation-rules
// @Produce      json
// @Param        id      path   int     true   "Rule ID"
// @Param        status  query  string  false  "succeeded, failed or skipped_cooldown"
// @Param        from    query  string  false  "RFC3339 lower bound"
// @Param        to      query  string  false  "RFC3339 upper bound"
// @Param        limit   query  int     false  "Page size"
// @Param        offset  query  int     false  "Page offset"
// @Success      200  {object}  LogList
// @Failure      404  {object}  map[string]interface{}
// @Failure      422  {object}  map[string]interface{}
// @Router       /automation-rules/{id}/logs [get]
func (h *Handler) ListRuleLogs(c *gin.Context) {
	id, ok := h.ruleID(c)
	if !ok {
		return
	}

	errs := fieldErrors{}
	filter := automation.LogFilter{
		Status: automation.Status(c.Query("status")),
		From:   queryTime(c, "from", errs),
		To:     queryTime(c, "to", errs),
		Limit:  int(queryInt64(c, "limit", errs)),
		Offset: int(queryInt64(c, "offset", errs)),
	}
	if len(errs) > 0 {
		h.handleError(c, errors.FieldErrors(errs))
		return
	}

	logs, err := h.service.ListRuleLogs(c.Request.Context(), id, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetRuleHistory godoc
// @Summary      List administrative changes to a rule
// @Tags         automation-rules
// @Produce      json
// @Param        id     path   int  true   "Rule ID"
// @Param        limit  query  int  false  "Maximum entries"
// @Success      200  {array}  RuleAudit
// @Router       /automation-rules/{id}/history [get]
func (h *Handler) GetRuleHistory(c *gin.Context) {
	id, ok := h.ruleID(c)
	if !ok {
		return
	}

	errs := fieldErrors{}
	limit := int(queryInt64(c, "limit", errs))
	if len(errs) > 0 {
		h.handleError(c, errors.FieldErrors(errs))
		return
	}

	history, err := h.service.GetRuleHistory(c.Request.Context(), id, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// ListTriggers godoc
// @Summary      Trigger catalog
// @Tags         automation
// @Produce      json
// @Success      200  {object}  Catalog
// @Router       /automation/triggers [get]
func (h *Handler) ListTriggers(c *gin.Context) {
	catalog := h.service.Catalog()
	c.JSON(http.StatusOK, Catalog{
		Triggers:          catalog.Triggers,
		Operators:         catalog.Operators,
		ConditionExamples: catalog.ConditionExamples,
	})
}

// ListActions godoc
// @Summary      Action catalog
// @Tags         automation
// @Produce      json
// @Success      200  {object}  Catalog
// @Router       /automation/actions [get]
func (h *Handler) ListActions(c *gin.Context) {
	c.JSON(http.StatusOK, Catalog{Actions: h.service.Catalog().Actions})
}

// GetModule godoc
// @Summary      Resolve a module entitlement
// @Tags         entitlements
// @Produce      json
// @Param        id      path  int     true  "Organization ID"
// @Param        module  path  string  true  "Module key"
// @Success      200  {object}  entitlement.Resolution
// @Failure      503  {object}  map[string]interface{}
// @Router       /organizations/{id}/modules/{module} [get]
func (h *Handler) GetModule(c *gin.Context) {
	orgID, ok := h.organizationID(c)
	if !ok {
		return
	}

	res, err := h.service.GetModuleEntitlement(c.Request.Context(), orgID, c.Param("module"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SetModuleOverride godoc
// @Summary      Force a module on or off for an organization
// @Tags         entitlements
// @Accept       json
// @Produce      json
// @Param        id        path  int              true  "Organization ID"
// @Param        module    path  string           true  "Module key"
// @Param        override  body  OverrideRequest  true  "Override"
// @Success      200  {object}  entitlement.Resolution
// @Failure      422  {object}  map[string]interface{}
// @Router       /organizations/{id}/modules/{module} [put]
func (h *Handler) SetModuleOverride(c *gin.Context) {
	orgID, ok := h.organizationID(c)
	if !ok {
		return
	}

	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, bindError(err))
		return
	}

	res, err := h.service.SetModuleOverride(c.Request.Context(), orgID, c.Param("module"), *req.Enabled)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ClearModuleOverride godoc
// @Summary      Remove a module override
// @Description  The entitlement falls back to the organization's plan.
// @Tags         entitlements
// @Produce      json
// @Param        id      path  int     true  "Organization ID"
// @Param        module  path  string  true  "Module key"
// @Success      200  {object}  entitlement.Resolution
// @Failure      404  {object}  map[string]interface{}
// @Router       /organizations/{id}/modules/{module} [delete]
func (h *Handler) ClearModuleOverride(c *gin.Context) {
	orgID, ok := h.organizationID(c)
	if !ok {
		return
	}

	res, err := h.service.ClearModuleOverride(c.Request.Context(), orgID, c.Param("module"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ruleID(c *gin.Context) (int64, bool) {
	return h.pathID(c, "id", "rule id must be a positive integer")
}

func (h *Handler) organizationID(c *gin.Context) (int64, bool) {
	return h.pathID(c, "organization_id", "organization id must be a positive integer")
}

func (h *Handler) pathID(c *gin.Context, field, msg string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.handleError(c, errors.FieldErrors(map[string][]string{field: {msg}}))
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, name string, errs fieldErrors) int64 {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		errs.add(name, "%s must be an integer", name)
		return 0
	}
	return v
}

func queryTime(c *gin.Context, name string, errs fieldErrors) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		errs.add(name, "%s must be an RFC3339 timestamp", name)
		return nil
	}
	return &t
}

var requestFields = map[string]string{
	"OrganizationID":  "organization_id",
	"IntegrationID":   "integration_id",
	"Name":            "name",
	"TriggerModule":   "trigger_module",
	"TriggerEvent":    "trigger_event",
	"ActionType":      "action_type",
	"CooldownSeconds": "cooldown_seconds",
	"Priority":        "priority",
	"Enabled":         "enabled",
	"EdgeServerID":    "edge_server_id",
}

func bindError(err error) error {
	errs := fieldErrors{}

	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &verrs):
		for _, fe := range verrs {
			field := requestFields[fe.Field()]
			if field == "" {
				field = fe.Field()
			}
			switch fe.Tag() {
			case "required":
				errs.add(field, "%s is required", field)
			case "gt":
				errs.add(field, "%s must be greater than %s", field, fe.Param())
			case "max":
				errs.add(field, "%s may not be greater than %s characters", field, fe.Param())
			default:
				errs.add(field, "%s is invalid", field)
			}
		}
	case stderrors.As(err, &typeErr) && typeErr.Field != "":
		errs.add(typeErr.Field, "%s must be of type %s", typeErr.Field, typeErr.Type.String())
	default:
		errs.add("body", "the request body must be a JSON object")
	}

	return errors.FieldErrors(errs)
}
