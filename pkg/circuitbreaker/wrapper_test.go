package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/config"
)

func TestWrapper_OpensAfterFailures(t *testing.T) {
	w := NewWrapper(Config{
		Name:        "test-cooldown-store",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: RatioTrip(0.5, 2),
	})

	boom := errors.New("connection refused")
	for i := 0; i < 2; i++ {
		err := w.Execute(context.Background(), func() error { return boom })
		require.ErrorIs(t, err, boom)
	}

	assert.True(t, w.IsOpen())

	called := false
	err := w.Execute(context.Background(), func() error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.True(t, IsRejected(err))
}

func TestWrapper_CancelledContext(t *testing.T) {
	w := NewWrapper(DefaultConfig("test-cancelled"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, w.State())
}

func TestRatioTrip(t *testing.T) {
	trip := RatioTrip(0.5, 3)
	assert.False(t, trip(gobreaker.Counts{Requests: 2, TotalFailures: 2}))
	assert.True(t, trip(gobreaker.Counts{Requests: 4, TotalFailures: 2}))
	assert.False(t, trip(gobreaker.Counts{Requests: 4, TotalFailures: 1}))
}

func TestFromConfig(t *testing.T) {
	assert.Nil(t, FromConfig("disabled", config.CircuitBreakerConfig{}))

	var w *Wrapper
	called := false
	require.NoError(t, w.Execute(context.Background(), func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
	assert.False(t, w.IsOpen())

	w = FromConfig("enabled", config.CircuitBreakerConfig{Enabled: true, MaxRequests: 2, FailureRatio: 0.6, MinRequests: 5})
	require.NotNil(t, w)
	assert.Equal(t, "enabled", w.Name())
}
