package observe

import (
	"context"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// LogLevel is the severity threshold of a Logger.
type LogLevel = charmlog.Level

// Log levels accepted by NewLogger.
const (
	LevelDebug = charmlog.DebugLevel
	LevelInfo  = charmlog.InfoLevel
	LevelWarn  = charmlog.WarnLevel
	LevelError = charmlog.ErrorLevel
)

// ParseLogLevel parses a level name. Unknown names mean LevelInfo.
func ParseLogLevel(s string) LogLevel {
	level, err := charmlog.ParseLevel(s)
	if err != nil || level > LevelError {
		return LevelInfo
	}
	return level
}

// lockedWriter serializes writes from loggers derived with WithFunction,
// which each hold their own charm logger.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// charmLogger emits one JSON object per line through charmbracelet/log.
type charmLogger struct {
	l *charmlog.Logger
}

// NewLogger creates a JSON logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	l := charmlog.NewWithOptions(&lockedWriter{w: w}, charmlog.Options{
		Level:           ParseLogLevel(level),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339Nano,
		Formatter:       charmlog.JSONFormatter,
	})
	return &charmLogger{l: l}
}

// WithFunction returns a logger that tags every entry with the wrapper's
// tag and kind, and memo.async for suspend-capable wrappers.
func (c *charmLogger) WithFunction(meta FuncMeta) Logger {
	kv := []any{"memo.tag", meta.Tag, "memo.kind", meta.kind()}
	if meta.Async {
		kv = append(kv, "memo.async", true)
	}
	return &charmLogger{l: c.l.With(kv...)}
}

func (c *charmLogger) Debug(_ context.Context, msg string, fields ...Field) {
	c.l.Debug(msg, keyvals(fields)...)
}

func (c *charmLogger) Info(_ context.Context, msg string, fields ...Field) {
	c.l.Info(msg, keyvals(fields)...)
}

func (c *charmLogger) Warn(_ context.Context, msg string, fields ...Field) {
	c.l.Warn(msg, keyvals(fields)...)
}

func (c *charmLogger) Error(_ context.Context, msg string, fields ...Field) {
	c.l.Error(msg, keyvals(fields)...)
}

// keyvals flattens fields, replacing redacted values.
func keyvals(fields []Field) []any {
	kv := make([]any, 0, 2*len(fields))
	for _, f := range fields {
		if isRedactedField(f.Key) {
			kv = append(kv, f.Key, "[REDACTED]")
			continue
		}
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}

func isRedactedField(key string) bool {
	return slices.Contains(RedactedFields, key)
}

var _ Logger = (*charmLogger)(nil)
