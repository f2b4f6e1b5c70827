package util

import (
	"fmt"
	"log/slog"
	"sync"
)

// OnceLogger logs each distinct warning a single time.
type OnceLogger struct {
	logger *slog.Logger
	seen   sync.Map
}

// NewOnceLogger creates a new OnceLogger writing to logger, or slog.Default() when nil.
func NewOnceLogger(logger *slog.Logger) *OnceLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnceLogger{logger: logger}
}

// Logger returns the underlying logger
func (o *OnceLogger) Logger() *slog.Logger {
	return o.logger
}

// Warn logs msg with args unless the same message and key were already logged.
// It reports whether the warning was written.
func (o *OnceLogger) Warn(key string, msg string, args ...any) bool {
	id := fmt.Sprintf("%s\x00%s", msg, key)
	if _, loaded := o.seen.LoadOrStore(id, struct{}{}); loaded {
		return false
	}
	o.logger.Warn(msg, args...)
	return true
}

// Reset forgets all previously logged warnings.
func (o *OnceLogger) Reset() {
	o.seen.Range(func(key, _ any) bool {
		o.seen.Delete(key)
		return true
	})
}
