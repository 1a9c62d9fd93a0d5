package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/config"
)

func TestInit_DisabledStillProducesTraceIDs(t *testing.T) {
	tp, err := Init(config.TracingConfig{}, "management-service")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := GetTracer("test").Start(context.Background(), "rule.create")
	defer span.End()

	assert.Len(t, TraceID(ctx), 32)
	assert.Empty(t, TraceID(context.Background()))
}

func TestResolveServiceName(t *testing.T) {
	cfg := config.TracingConfig{ServiceName: "from-config"}

	assert.Equal(t, "ingest-service", resolveServiceName(cfg, "ingest-service"))
	assert.Equal(t, "from-config", resolveServiceName(cfg, ""))
	assert.Equal(t, "lookout", resolveServiceName(config.TracingConfig{}, ""))
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(config.SamplerConfig{Type: "always_off"}).Description(), "AlwaysOff")
	assert.Contains(t, samplerFor(config.SamplerConfig{}).Description(), "AlwaysOn")
	assert.Equal(t, "TraceIDRatioBased{0.5}", samplerFor(config.SamplerConfig{Type: "traceidratio", Param: 0.5}).Description())
	assert.Contains(t, samplerFor(config.SamplerConfig{Type: "traceidratio", Param: 4}).Description(), "AlwaysOn")
}
