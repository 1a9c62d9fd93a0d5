package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"lookout/internal/config"
)

func newRouter(ctx context.Context, keyFn KeyFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(KeyedRateLimitMiddleware(ctx, RateLimitConfig{
		RPS:             0.001,
		Burst:           2,
		CleanupInterval: time.Minute,
		MaxAge:          time.Minute,
	}, keyFn))
	r.POST("/events", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func send(r *gin.Engine, edgeKey string) int {
	req := httptest.NewRequest(http.MethodPost, "/events", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if edgeKey != "" {
		req.Header.Set("X-EDGE-KEY", edgeKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestKeyedRateLimit_PerEdgeBuckets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newRouter(ctx, HeaderKey("X-EDGE-KEY"))

	assert.Equal(t, http.StatusCreated, send(r, "edge-a"))
	assert.Equal(t, http.StatusCreated, send(r, "edge-a"))
	assert.Equal(t, http.StatusTooManyRequests, send(r, "edge-a"))

	// a different edge behind the same IP has its own bucket
	assert.Equal(t, http.StatusCreated, send(r, "edge-b"))
}

func TestStoreSweep(t *testing.T) {
	s := &store{limiters: map[string]*Limiter{}, config: RateLimitConfig{RPS: 1, Burst: 1, MaxAge: time.Minute}}
	l := s.get("edge-a")
	l.lastSeen = time.Now().Add(-2 * time.Minute)

	s.sweep(time.Now())
	assert.Empty(t, s.limiters)
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.RateLimitConfig{Enabled: true, RPS: 5, CleanupInterval: 30})
	assert.Equal(t, 5.0, cfg.RPS)
	assert.Equal(t, DefaultConfig().Burst, cfg.Burst)
	assert.Equal(t, 30*time.Second, cfg.CleanupInterval)
	assert.Equal(t, DefaultConfig().MaxAge, cfg.MaxAge)
}
