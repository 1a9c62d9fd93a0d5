package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"lookout/pkg/logging"
)

func TestSugaredLogger_ContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &SugaredLogger{SugaredLogger: zap.New(core).Sugar(), serviceName: "ingest-service"}

	ctx := logging.WithEventID(context.Background(), "evt-9")
	log.Component("pipeline").WarnwCtx(ctx, "Cooldown store unavailable", "rule_id", "r-1")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "pipeline", fields["component"])
	assert.Equal(t, "evt-9", fields["event_id"])
	assert.Equal(t, "ingest-service", fields["service_name"])
	assert.Equal(t, "r-1", fields["rule_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
