package health

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CheckerRegistry struct {
	checkers []Checker
}

func NewCheckerRegistry() *CheckerRegistry {
	return &CheckerRegistry{
		checkers: make([]Checker, 0),
	}
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.checkers = append(r.checkers, checker)
}

// Check runs every registered checker concurrently. Checkers marked optional
// degrade the overall status instead of failing it.
func (r *CheckerRegistry) Check(ctx context.Context) Health {
	results := make(map[string]CheckResult, len(r.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	overall := StatusHealthy
	for _, checker := range r.checkers {
		wg.Add(1)
		go func(checker Checker) {
			defer wg.Done()

			result := CheckResult{Status: StatusHealthy, Timestamp: time.Now()}
			if err := checker.Check(ctx); err != nil {
				result.Status = StatusUnhealthy
				if _, ok := checker.(optional); ok {
					result.Status = StatusDegraded
				}
				result.Message = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			results[checker.Name()] = result
			switch {
			case result.Status == StatusUnhealthy:
				overall = StatusUnhealthy
			case result.Status == StatusDegraded && overall == StatusHealthy:
				overall = StatusDegraded
			}
		}(checker)
	}
	wg.Wait()

	return Health{
		Status:    overall,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// HTTPStatus maps the aggregated status to the code served on /health.
func (h Health) HTTPStatus() int {
	if h.Status == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

type optional interface {
	optional()
}

// CheckerFunc adapts a probe function into a Checker.
type CheckerFunc struct {
	name  string
	check func(ctx context.Context) error
}

func NewCheckerFunc(name string, check func(ctx context.Context) error) *CheckerFunc {
	return &CheckerFunc{name: name, check: check}
}

func (c *CheckerFunc) Name() string { return c.name }

func (c *CheckerFunc) Check(ctx context.Context) error { return c.check(ctx) }

// Optional wraps a checker whose failure only degrades the service.
func Optional(c Checker) Checker {
	return optionalChecker{c}
}

type optionalChecker struct {
	Checker
}

func (optionalChecker) optional() {}

type PostgreSQLChecker struct {
	db *sql.DB
}

func NewPostgreSQLChecker(db *sql.DB) *PostgreSQLChecker {
	return &PostgreSQLChecker{db: db}
}

func (c *PostgreSQLChecker) Name() string {
	return "postgresql"
}

func (c *PostgreSQLChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgresql ping failed: %w", err)
	}
	return nil
}

type RedisChecker struct {
	client *redis.Client
}

func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string {
	return "redis"
}

func (c *RedisChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

type MongoDBChecker struct {
	client *mongo.Client
}

func NewMongoDBChecker(client *mongo.Client) *MongoDBChecker {
	return &MongoDBChecker{client: client}
}

func (c *MongoDBChecker) Name() string {
	return "mongodb"
}

func (c *MongoDBChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}
