package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"lookout/internal/config"
	apperrors "lookout/pkg/errors"
	"lookout/pkg/metrics"
)

type Limiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

type RateLimitConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:             10.0,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// FromConfig converts the YAML section, falling back to defaults for unset values.
func FromConfig(cfg config.RateLimitConfig) RateLimitConfig {
	out := DefaultConfig()
	if cfg.RPS > 0 {
		out.RPS = cfg.RPS
	}
	if cfg.Burst > 0 {
		out.Burst = cfg.Burst
	}
	if cfg.CleanupInterval > 0 {
		out.CleanupInterval = time.Duration(cfg.CleanupInterval) * time.Second
	}
	if cfg.MaxAge > 0 {
		out.MaxAge = time.Duration(cfg.MaxAge) * time.Second
	}
	return out
}

// KeyFunc selects the bucket a request is charged against.
type KeyFunc func(c *gin.Context) string

func ClientIPKey(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return c.RemoteIP()
}

// HeaderKey buckets by a request header, falling back to the client IP when it is absent.
func HeaderKey(header string) KeyFunc {
	return func(c *gin.Context) string {
		if v := c.GetHeader(header); v != "" {
			return header + ":" + v
		}
		return ClientIPKey(c)
	}
}

type store struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	config   RateLimitConfig
}

func (s *store) get(key string) *Limiter {
	s.mu.RLock()
	l, ok := s.limiters[key]
	s.mu.RUnlock()
	if ok {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok = s.limiters[key]; !ok {
		l = &Limiter{limiter: rate.NewLimiter(rate.Limit(s.config.RPS), s.config.Burst)}
		s.limiters[key] = l
	}
	return l
}

func (s *store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, l := range s.limiters {
		l.mu.Lock()
		stale := now.Sub(l.lastSeen) > s.config.MaxAge
		l.mu.Unlock()
		if stale {
			delete(s.limiters, key)
		}
	}
}

// KeyedRateLimitMiddleware limits requests per key. The idle-bucket sweeper stops when ctx is done.
func KeyedRateLimitMiddleware(ctx context.Context, config RateLimitConfig, keyFn KeyFunc) gin.HandlerFunc {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}
	if config.MaxAge <= 0 {
		config.MaxAge = DefaultConfig().MaxAge
	}

	s := &store{limiters: make(map[string]*Limiter), config: config}

	go func() {
		ticker := time.NewTicker(config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.sweep(now)
			}
		}
	}()

	return func(c *gin.Context) {
		limiter := s.get(keyFn(c))

		limiter.mu.Lock()
		limiter.lastSeen = time.Now()
		limiter.mu.Unlock()

		c.Header("X-RateLimit-Limit", formatRate(config.RPS))

		if !limiter.limiter.Allow() {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperrors.ToErrorResponse(apperrors.ErrRateLimited))
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()

		remaining := int(limiter.limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}

func formatRate(rps float64) string {
	return strconv.FormatFloat(rps, 'f', -1, 64)
}
