package factories

import (
	"os"

	"voicechat/core"
)

// LogConfig selects the process log sink and the per-session JSONL directory.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn or error
	Format string `json:"format" yaml:"format"` // "dev", "console" or "json"
	Dir    string `json:"dir" yaml:"dir"`       // per-session JSONL logs, empty disables them
}

// DefaultLogConfig keeps the terminal quiet: only warnings and errors, in
// the development format.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "warn",
		Format: "dev",
	}
}

// BuildLogger returns the process logger for config. "dev" uses the
// built-in line handler; "console" and "json" go through zap. Everything
// goes to stderr so it stays out of the conversation on stdout.
func BuildLogger(config LogConfig) (*core.Logger, error) {
	switch config.Format {
	case "json", "console":
		return core.NewZapLogger(config.Level, config.Format)
	default:
		return core.NewLeveledLogger(core.NewWriterLogger(os.Stderr), config.Level), nil
	}
}
