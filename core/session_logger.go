package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// SessionMetadata is the first line of every session log file.
type SessionMetadata struct {
	SessionID string `json:"session_id"`
	Model     string `json:"model,omitempty"`
	StartedAt string `json:"started_at"`
}

// LogEntry is one JSON line written after the metadata line.
type LogEntry struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Message   string                 `json:"msg"`
	Attrs     map[string]interface{} `json:"attrs,omitempty"`
}

// LogWriter is a secondary destination for log lines.
type LogWriter interface {
	Write(level, msg string, attrs map[string]interface{})
	Close()
}

// SessionLogWriter appends structured lines to <dir>/<session>.jsonl. The
// file lives only as long as the operator keeps it; nothing reads it back.
type SessionLogWriter struct {
	mu        sync.Mutex
	file      *os.File
	logDir    string
	sessionID string
}

func NewSessionLogWriter(logDir, sessionID, model string) (*SessionLogWriter, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("session log: mkdir %q: %w", logDir, err)
	}

	path := filepath.Join(logDir, sessionID+".jsonl")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("session log: create %q: %w", path, err)
	}

	meta, err := sonic.Marshal(SessionMetadata{
		SessionID: sessionID,
		Model:     model,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("session log: metadata: %w", err)
	}
	if _, err := f.Write(append(meta, '\n')); err != nil {
		f.Close()
		return nil, fmt.Errorf("session log: write metadata: %w", err)
	}

	return &SessionLogWriter{file: f, logDir: logDir, sessionID: sessionID}, nil
}

// Path is the file the writer appends to.
func (w *SessionLogWriter) Path() string {
	return filepath.Join(w.logDir, w.sessionID+".jsonl")
}

func (w *SessionLogWriter) Write(level, msg string, attrs map[string]interface{}) {
	data, err := sonic.Marshal(LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   msg,
		Attrs:     attrs,
	})
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		w.file.Write(append(data, '\n'))
	}
}

func (w *SessionLogWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
}

// NewSessionLogger tees every line to base and to writer. Children created
// with With inherit the tee.
func NewSessionLogger(base *Logger, writer LogWriter) *Logger {
	handler := func(level string, msg string, attrs map[string]interface{}) {
		if base.handlerFunc != nil {
			base.handlerFunc(level, msg, attrs)
		}
		writer.Write(level, msg, attrs)
	}
	l := NewLogger(handler)
	l.sync = base.sync
	return l
}
