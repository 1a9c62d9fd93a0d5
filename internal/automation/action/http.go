package action

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/go-resty/resty/v2"

	"lookout/internal/automation"
	"lookout/internal/config"
	"lookout/internal/constants"
	"lookout/pkg/circuitbreaker"
	"lookout/pkg/models"
)

// HTTPExecutor calls webhooks. Each target host gets its own circuit breaker so one
// failing endpoint does not block the others.
type HTTPExecutor struct {
	client   *resty.Client
	cbConfig config.CircuitBreakerConfig

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.Wrapper
}

func NewHTTPExecutor(cfg config.HTTPActionConfig, cbConfig config.CircuitBreakerConfig) *HTTPExecutor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "lookout-automation"
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &HTTPExecutor{
		client:   client,
		cbConfig: cbConfig,
		breakers: make(map[string]*circuitbreaker.Wrapper),
	}
}

type httpExecuted struct {
	Method     string `json:"method"`
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Response   string `json:"response,omitempty"`
}

func (e *HTTPExecutor) Execute(ctx context.Context, rule automation.Rule, event models.EventMessage, command interface{}) (json.RawMessage, error) {
	cmd, ok := command.(HTTPCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command type %T", command)
	}

	body := []byte(cmd.Body)
	if len(body) == 0 {
		var err error
		if body, err = json.Marshal(event); err != nil {
			return nil, fmt.Errorf("failed to encode event body: %w", err)
		}
	}

	method := cmd.method()
	executed := httpExecuted{Method: method, URL: cmd.URL}

	err := e.breaker(cmd.URL).Execute(ctx, func() error {
		req := e.client.R().
			SetContext(ctx).
			SetHeaders(cmd.Headers).
			SetHeader("X-Automation-Rule-ID", fmt.Sprint(rule.ID)).
			SetHeader("X-Event-ID", event.ID)
		if method != "GET" {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}

		resp, err := req.Execute(method, cmd.URL)
		if err != nil {
			return fmt.Errorf("http request failed: %w", err)
		}
		executed.StatusCode = resp.StatusCode()
		if executed.StatusCode < constants.HTTPStatusOKMin || executed.StatusCode >= constants.HTTPStatusOKMax {
			executed.Response = truncate(resp.String(), constants.DefaultTruncateLen)
			return fmt.Errorf("http request returned status %d", executed.StatusCode)
		}
		return nil
	})

	out, _ := json.Marshal(executed)
	return out, err
}

func (e *HTTPExecutor) breaker(rawURL string) *circuitbreaker.Wrapper {
	if !e.cbConfig.Enabled {
		return nil
	}

	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	cb, ok := e.breakers[host]
	if !ok {
		cb = circuitbreaker.FromConfig("http-action:"+host, e.cbConfig)
		e.breakers[host] = cb
	}
	return cb
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
