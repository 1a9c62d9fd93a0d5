package automation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"lookout/internal/config"
	"lookout/internal/constants"
	"lookout/pkg/circuitbreaker"
)

// CooldownGuard decides, atomically per (rule, entity), whether a rule may fire now.
// A successful acquire records now as the last-fired time.
type CooldownGuard interface {
	TryAcquire(ctx context.Context, ruleID int64, entityKey string, cooldown time.Duration, now time.Time) (bool, error)
}

// acquireScript stores last-fired unix millis. ARGV[1] now, ARGV[2] cooldown millis.
var acquireScript = redis.NewScript(`
local last = redis.call('GET', KEYS[1])
local now = tonumber(ARGV[1])
local cooldown = tonumber(ARGV[2])
if last and (now - tonumber(last)) < cooldown then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

type RedisCooldownGuard struct {
	client redis.Scripter
}

func NewRedisCooldownGuard(client redis.Scripter) *RedisCooldownGuard {
	return &RedisCooldownGuard{client: client}
}

func CooldownKey(ruleID int64, entityKey string) string {
	return constants.CacheKeyPrefixCooldown + strconv.FormatInt(ruleID, 10) + ":" + entityKey
}

func (g *RedisCooldownGuard) TryAcquire(ctx context.Context, ruleID int64, entityKey string, cooldown time.Duration, now time.Time) (bool, error) {
	if cooldown <= 0 {
		return true, nil
	}

	acquired, err := acquireScript.Run(ctx, g.client, []string{CooldownKey(ruleID, entityKey)},
		now.UnixMilli(), cooldown.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis cooldown acquire failed: %w", err)
	}
	return acquired == 1, nil
}

type PostgresCooldownGuard struct {
	db *sql.DB
}

func NewPostgresCooldownGuard(db *sql.DB) *PostgresCooldownGuard {
	return &PostgresCooldownGuard{db: db}
}

func (g *PostgresCooldownGuard) TryAcquire(ctx context.Context, ruleID int64, entityKey string, cooldown time.Duration, now time.Time) (bool, error) {
	if cooldown <= 0 {
		return true, nil
	}

	query := `
		INSERT INTO cooldown_states (rule_id, entity_key, last_fired_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (rule_id, entity_key)
		DO UPDATE SET last_fired_at = EXCLUDED.last_fired_at
		WHERE cooldown_states.last_fired_at <= $4
		RETURNING rule_id
	`

	var id int64
	err := g.db.QueryRowContext(ctx, query, ruleID, entityKey, now.UTC(), now.Add(-cooldown).UTC()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("postgres cooldown acquire failed: %w", err)
	}
	return true, nil
}

// CircuitBreakerCooldownGuard fails fast while the underlying store is unhealthy.
type CircuitBreakerCooldownGuard struct {
	guard CooldownGuard
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerCooldownGuard(guard CooldownGuard, cfg config.CircuitBreakerConfig) CooldownGuard {
	cb := circuitbreaker.FromConfig("redis-cooldown", cfg)
	if cb == nil {
		return guard
	}
	return &CircuitBreakerCooldownGuard{guard: guard, cb: cb}
}

func (g *CircuitBreakerCooldownGuard) TryAcquire(ctx context.Context, ruleID int64, entityKey string, cooldown time.Duration, now time.Time) (bool, error) {
	if cooldown <= 0 {
		return true, nil
	}

	result, err := g.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return g.guard.TryAcquire(ctx, ruleID, entityKey, cooldown, now)
	})
	if err != nil {
		if circuitbreaker.IsRejected(err) {
			return false, fmt.Errorf("circuit breaker is open for redis-cooldown: %w", err)
		}
		return false, err
	}

	acquired, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("cooldown guard returned invalid result type")
	}
	return acquired, nil
}

// NewCooldownGuard builds the guard selected by store.
func NewCooldownGuard(store string, redisClient *redis.Client, db *sql.DB, cbCfg config.CircuitBreakerConfig) (CooldownGuard, error) {
	switch store {
	case config.StoreRedis, "":
		if redisClient == nil {
			return nil, fmt.Errorf("cooldown store %q requires a redis connection", config.StoreRedis)
		}
		return NewCircuitBreakerCooldownGuard(NewRedisCooldownGuard(redisClient), cbCfg), nil
	case config.StorePostgres:
		if db == nil {
			return nil, fmt.Errorf("cooldown store %q requires a postgres connection", config.StorePostgres)
		}
		return NewPostgresCooldownGuard(db), nil
	default:
		return nil, fmt.Errorf("unsupported cooldown store: %s", store)
	}
}
