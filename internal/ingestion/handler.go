package ingestion

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lookout/internal/logger"
	"lookout/pkg/errors"
)

type Ingestor interface {
	Ingest(ctx context.Context, edge EdgeIdentity, env Envelope) (Result, error)
}

type Handler struct {
	ingestor Ingestor
	logger   logger.Logger
}

func NewHandler(ingestor Ingestor, log logger.Logger) *Handler {
	return &Handler{ingestor: ingestor, logger: log}
}

// RegisterRoutes mounts the edge API. Middlewares run in order before the handler,
// typically edge auth followed by the per-edge rate limiter.
func (h *Handler) RegisterRoutes(router *gin.Engine, middlewares ...gin.HandlerFunc) {
	edges := router.Group("/api/v1/edges", middlewares...)
	{
		edges.POST("/events", h.IngestEvent)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

// IngestEvent godoc
// @Summary      Ingest an edge event
// @Description  Accepts one detection event from an authenticated edge server
// @Tags         edges
// @Accept       json
// @Produce      json
// @Param        X-EDGE-KEY        header  string    true  "Edge key"
// @Param        X-EDGE-TIMESTAMP  header  string    true  "Unix timestamp"
// @Param        X-EDGE-SIGNATURE  header  string    true  "HMAC-SHA256 signature"
// @Param        event             body    Envelope  true  "Event envelope"
// @Success      201  {object}  IngestResponse
// @Failure      401  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}
// @Failure      422  {object}  map[string]interface{}
// @Failure      429  {object}  map[string]interface{}
// @Router       /edges/events [post]
func (h *Handler) IngestEvent(c *gin.Context) {
	edge, ok := EdgeIdentityFrom(c)
	if !ok {
		h.handleError(c, ErrAuthenticationRequired)
		return
	}

	var env Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		h.handleError(c, BindError(err))
		return
	}

	result, err := h.ingestor.Ingest(c.Request.Context(), edge, env)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if !result.Accepted {
		c.JSON(http.StatusForbidden, errors.ToErrorResponse(errors.ErrModuleDisabled))
		return
	}

	c.JSON(http.StatusCreated, IngestResponse{OK: true, EventID: result.EventID})
}
