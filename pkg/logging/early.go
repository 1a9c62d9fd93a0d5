package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EarlyLog reports failures that happen before the configured logger exists,
// such as a missing or unreadable config file. Lines use the same JSON keys
// as internal/logger so log shippers parse them identically.
type EarlyLog struct {
	log *zap.SugaredLogger
}

func NewEarlyLog(serviceName string) *EarlyLog {
	return newEarlyLog(serviceName, os.Stderr)
}

func newEarlyLog(serviceName string, w io.Writer) *EarlyLog {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder
	enc.MessageKey = "message"
	enc.LevelKey = "level"
	enc.TimeKey = "timestamp"
	enc.CallerKey = ""

	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), zapcore.InfoLevel)
	return &EarlyLog{log: zap.New(core).Sugar().With("service_name", serviceName, "phase", "startup")}
}

func (l *EarlyLog) Error(msg string, args ...interface{}) {
	l.log.Errorf(msg, args...)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	l.log.Warnf(msg, args...)
}

func (l *EarlyLog) Info(msg string, args ...interface{}) {
	l.log.Infof(msg, args...)
}
