package core

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

var loggerInstance = NewDevelopmentLogger() // console output until main swaps it

// SetLogger replaces the process-wide logger.
func SetLogger(logger *Logger) {
	if logger != nil {
		loggerInstance = logger
	}
}

// GetLogger returns the process-wide logger.
func GetLogger() *Logger {
	return loggerInstance
}

// LogHandlerFunc receives every log line after attributes have been merged.
type LogHandlerFunc func(level string, msg string, attrs map[string]interface{})

// Logger is a small structured logger. Attributes attached with With are
// carried by every line written through the derived logger.
type Logger struct {
	handlerFunc LogHandlerFunc
	attrs       map[string]interface{}
	sync        func() error
}

func NewLogger(handler LogHandlerFunc) *Logger {
	return &Logger{
		handlerFunc: handler,
		attrs:       make(map[string]interface{}),
	}
}

// NewDevelopmentLogger writes human readable lines to stdout.
func NewDevelopmentLogger() *Logger {
	return NewWriterLogger(os.Stdout)
}

// NewWriterLogger writes human readable lines to w. Attributes are printed
// in key order so output is stable.
func NewWriterLogger(w io.Writer) *Logger {
	handler := func(level string, msg string, attrs map[string]interface{}) {
		var b strings.Builder
		b.WriteString(time.Now().Format(time.RFC3339))
		b.WriteString(" [")
		b.WriteString(level)
		b.WriteString("] ")
		b.WriteString(msg)
		if len(attrs) > 0 {
			keys := make([]string, 0, len(attrs))
			for k := range attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteString(" |")
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%v", k, attrs[k])
			}
		}
		b.WriteByte('\n')
		fmt.Fprint(w, b.String())
		if level == "FATAL" {
			os.Exit(1)
		}
	}
	return NewLogger(handler)
}

// NewNopLogger discards everything. Handy in tests.
func NewNopLogger() *Logger {
	return NewLogger(func(string, string, map[string]interface{}) {})
}

var levelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3, "FATAL": 4}

// NewLeveledLogger drops lines of base below minLevel ("debug", "info",
// "warn" or "error"). Unknown levels mean info.
func NewLeveledLogger(base *Logger, minLevel string) *Logger {
	floor, ok := levelRank[strings.ToUpper(minLevel)]
	if !ok {
		floor = levelRank["INFO"]
	}
	l := NewLogger(func(level string, msg string, attrs map[string]interface{}) {
		if levelRank[level] >= floor {
			base.handlerFunc(level, msg, attrs)
		}
	})
	l.attrs = base.attrs
	l.sync = base.sync
	return l
}

func (l *Logger) log(level string, msg string, args ...interface{}) {
	if l == nil || l.handlerFunc == nil {
		return
	}
	if len(args) > 0 {
		// slog-style key/value pairs are merged into the attributes,
		// anything else is treated as printf arguments.
		if isKeyValuePairs(args) {
			attrs := make(map[string]interface{}, len(l.attrs)+len(args)/2)
			for k, v := range l.attrs {
				attrs[k] = v
			}
			for i := 0; i < len(args)-1; i += 2 {
				key, _ := args[i].(string)
				attrs[key] = args[i+1]
			}
			l.handlerFunc(level, msg, attrs)
			return
		}
		msg = fmt.Sprintf(msg, args...)
	}
	l.handlerFunc(level, msg, l.attrs)
}

// logf always formats, even when args happen to look like key/value pairs.
func (l *Logger) logf(level string, format string, args ...interface{}) {
	if l == nil || l.handlerFunc == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.handlerFunc(level, msg, l.attrs)
}

func isKeyValuePairs(args []interface{}) bool {
	if len(args)%2 != 0 {
		return false
	}
	for i := 0; i < len(args); i += 2 {
		if _, ok := args[i].(string); !ok {
			return false
		}
	}
	return true
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args...) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf("DEBUG", format, args...) }

func (l *Logger) Info(msg string, args ...interface{}) { l.log("INFO", msg, args...) }

func (l *Logger) Infof(format string, args ...interface{}) { l.logf("INFO", format, args...) }

func (l *Logger) Warn(msg string, args ...interface{}) { l.log("WARN", msg, args...) }

func (l *Logger) Warnf(format string, args ...interface{}) { l.logf("WARN", format, args...) }

func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args...) }

func (l *Logger) Errorf(format string, args ...interface{}) { l.logf("ERROR", format, args...) }

func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args...) }

// With returns a child logger carrying attrs in addition to the parent's.
func (l *Logger) With(attrs map[string]interface{}) *Logger {
	combined := make(map[string]interface{}, len(l.attrs)+len(attrs))
	for k, v := range l.attrs {
		combined[k] = v
	}
	for k, v := range attrs {
		combined[k] = v
	}
	return &Logger{
		handlerFunc: l.handlerFunc,
		attrs:       combined,
		sync:        l.sync,
	}
}

// Sync flushes buffered output, if the handler buffers at all.
func (l *Logger) Sync() error {
	if l.sync == nil {
		return nil
	}
	return l.sync()
}
