package core

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger builds a Logger backed by zap. format is "json" or "console";
// level is any zap level name ("debug", "info", ...), defaulting to info.
func NewZapLogger(level, format string, outputPaths ...string) (*Logger, error) {
	atomicLevel := zap.NewAtomicLevel()
	if err := atomicLevel.UnmarshalText([]byte(level)); err != nil {
		atomicLevel.SetLevel(zap.InfoLevel)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		format = "json"
	}
	cfg.Level = atomicLevel
	cfg.Encoding = format
	cfg.OutputPaths = []string{"stderr"}
	cfg.OutputPaths = append(cfg.OutputPaths, outputPaths...)

	base, err := cfg.Build(zap.AddCallerSkip(3))
	if err != nil {
		return nil, fmt.Errorf("zap logger: %w", err)
	}
	return newZapBackedLogger(base.Sugar()), nil
}

func newZapBackedLogger(sugar *zap.SugaredLogger) *Logger {
	handler := func(level string, msg string, attrs map[string]interface{}) {
		kv := make([]interface{}, 0, len(attrs)*2)
		for k, v := range attrs {
			kv = append(kv, k, v)
		}
		switch level {
		case "DEBUG":
			sugar.Debugw(msg, kv...)
		case "WARN":
			sugar.Warnw(msg, kv...)
		case "ERROR":
			sugar.Errorw(msg, kv...)
		case "FATAL":
			sugar.Fatalw(msg, kv...)
		default:
			sugar.Infow(msg, kv...)
		}
	}
	l := NewLogger(handler)
	l.sync = sugar.Sync
	return l
}
