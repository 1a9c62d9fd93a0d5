package ingestion

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lookout/internal/constants"
	"lookout/internal/logger"
	apperrors "lookout/pkg/errors"
	"lookout/pkg/metrics"
)

const edgeIdentityKey = "edge_identity"

var (
	ErrAuthenticationRequired = apperrors.NewError("AUTHENTICATION_REQUIRED",
		"Missing required authentication headers (X-EDGE-KEY, X-EDGE-TIMESTAMP, X-EDGE-SIGNATURE)", http.StatusUnauthorized)
	ErrInvalidCredentials = apperrors.NewError("INVALID_CREDENTIALS", "Invalid edge server key", http.StatusUnauthorized)
	ErrTimestampInvalid   = apperrors.NewError("TIMESTAMP_INVALID", "Request timestamp is too old or too far in the future", http.StatusUnauthorized)
	ErrInvalidSignature   = apperrors.NewError("INVALID_SIGNATURE", "Invalid signature", http.StatusUnauthorized)
	ErrEdgeMisconfigured  = apperrors.NewError("CONFIGURATION_ERROR", "Edge server not properly configured", http.StatusInternalServerError)
)

// Sign computes the hex HMAC-SHA256 an edge sends in X-EDGE-SIGNATURE:
// HMAC(secret, METHOD|path|timestamp|hex(sha256(body))).
func Sign(secret, method, path, timestamp string, body []byte) string {
	sum := sha256.Sum256(body)
	message := strings.ToUpper(method) + "|" + path + "|" + timestamp + "|" + hex.EncodeToString(sum[:])

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

type EdgeAuthenticator struct {
	edges   EdgeRepository
	maxSkew time.Duration
	maxBody int64
	logger  logger.Logger
	now     func() time.Time
}

func NewEdgeAuthenticator(edges EdgeRepository, maxSkew time.Duration, maxBody int64, log logger.Logger) *EdgeAuthenticator {
	if maxSkew <= 0 {
		maxSkew = constants.DefaultEdgeClockSkew
	}
	if maxBody <= 0 {
		maxBody = constants.DefaultMaxEventBodyBytes
	}
	return &EdgeAuthenticator{edges: edges, maxSkew: maxSkew, maxBody: maxBody, logger: log, now: time.Now}
}

// Middleware verifies the edge signature and attaches the EdgeIdentity to the context.
// The body is buffered and restored for downstream binding.
func (a *EdgeAuthenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		edgeKey := c.GetHeader(constants.HeaderEdgeKey)
		timestamp := c.GetHeader(constants.HeaderEdgeTimestamp)
		signature := c.GetHeader(constants.HeaderEdgeSignature)

		if edgeKey == "" || timestamp == "" || signature == "" {
			a.reject(c, ErrAuthenticationRequired, "missing_headers")
			return
		}

		edge, err := a.edges.FindByKey(ctx, edgeKey)
		if err != nil {
			if errors.Is(err, ErrEdgeNotFound) {
				a.logger.WarnwCtx(ctx, "Edge signature verification failed: edge server not found",
					"edge_key", edgeKey, "ip", c.ClientIP())
				a.reject(c, ErrInvalidCredentials, "unknown_edge")
				return
			}
			a.logger.ErrorwCtx(ctx, "Failed to load edge server", "edge_key", edgeKey, "error", err)
			a.reject(c, apperrors.ErrInternal.WithCause(err), "store_error")
			return
		}
		if !edge.IsActive {
			a.logger.WarnwCtx(ctx, "Edge signature verification failed: edge server inactive",
				"edge_key", edgeKey, "edge_server_id", edge.ID)
			a.reject(c, ErrInvalidCredentials, "inactive_edge")
			return
		}
		if edge.EdgeSecret == "" {
			a.logger.WarnwCtx(ctx, "Edge signature verification failed: edge server has no secret",
				"edge_key", edgeKey, "edge_server_id", edge.ID)
			a.reject(c, ErrEdgeMisconfigured, "missing_secret")
			return
		}

		requestTime, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil || a.skew(requestTime) > a.maxSkew {
			a.logger.WarnwCtx(ctx, "Edge signature verification failed: timestamp out of range",
				"edge_key", edgeKey, "timestamp", timestamp, "ip", c.ClientIP())
			a.reject(c, ErrTimestampInvalid, "timestamp")
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, a.maxBody+1))
		if err != nil {
			a.reject(c, apperrors.ErrBadRequest.WithCause(err), "body_read")
			return
		}
		if int64(len(body)) > a.maxBody {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, apperrors.ToErrorResponse(
				apperrors.NewError("PAYLOAD_TOO_LARGE", "request body too large", http.StatusRequestEntityTooLarge)))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !a.verify(edge.EdgeSecret, c.Request.Method, c.Request.URL.Path, timestamp, body, signature) {
			a.logger.WarnwCtx(ctx, "Edge signature verification failed: signature mismatch",
				"edge_key", edgeKey, "edge_server_id", edge.ID, "ip", c.ClientIP())
			a.reject(c, ErrInvalidSignature, "signature")
			return
		}

		c.Set(edgeIdentityKey, edge.Identity())
		c.Next()
	}
}

// verify accepts the path with or without its leading slash; edge firmware has shipped both.
func (a *EdgeAuthenticator) verify(secret, method, path, timestamp string, body []byte, signature string) bool {
	got := []byte(strings.ToLower(signature))
	for _, p := range []string{path, strings.TrimPrefix(path, "/")} {
		if hmac.Equal([]byte(Sign(secret, method, p, timestamp, body)), got) {
			return true
		}
	}
	return false
}

func (a *EdgeAuthenticator) skew(unixSeconds int64) time.Duration {
	d := a.now().Sub(time.Unix(unixSeconds, 0))
	if d < 0 {
		d = -d
	}
	return d
}

func (a *EdgeAuthenticator) reject(c *gin.Context, err *apperrors.Error, reason string) {
	metrics.IncEdgeAuthFailure(reason)
	c.AbortWithStatusJSON(err.Status, apperrors.ToErrorResponse(err))
}

// EdgeIdentityFrom returns the identity the edge auth middleware attached.
func EdgeIdentityFrom(c *gin.Context) (EdgeIdentity, bool) {
	v, ok := c.Get(edgeIdentityKey)
	if !ok {
		return EdgeIdentity{}, false
	}
	identity, ok := v.(EdgeIdentity)
	return identity, ok
}
