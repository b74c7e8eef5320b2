package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Entries carry a "service" field so the
// three roles can share one log stream; the message is the action name.
func New(service string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncoderConfig.MessageKey = "action"
	lg, err := cfg.Build()
	if err != nil {
		lg = zap.NewNop()
	}
	return lg.With(zap.String("service", service))
}
