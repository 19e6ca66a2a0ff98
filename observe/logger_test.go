package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}
	return entry
}

// TestLogger_IncludesFunctionFields verifies memo fields are present in log output.
func TestLogger_IncludesFunctionFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.WithFunction(FuncMeta{Tag: "squares", Kind: KindBatch, Async: true}).
		Info(context.Background(), "test message")

	entry := decodeEntry(t, &buf)
	if v, ok := entry["memo.tag"].(string); !ok || v != "squares" {
		t.Errorf("expected memo.tag='squares', got %v", entry["memo.tag"])
	}
	if v, ok := entry["memo.kind"].(string); !ok || v != KindBatch {
		t.Errorf("expected memo.kind='batch', got %v", entry["memo.kind"])
	}
	if v, ok := entry["memo.async"].(bool); !ok || !v {
		t.Errorf("expected memo.async=true, got %v", entry["memo.async"])
	}
}

// TestLogger_KindDefaultsToSingle verifies an empty Kind is reported as single.
func TestLogger_KindDefaultsToSingle(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.WithFunction(FuncMeta{Tag: "double"}).Info(context.Background(), "test")

	entry := decodeEntry(t, &buf)
	if entry["memo.kind"] != KindSingle {
		t.Errorf("expected memo.kind='single', got %v", entry["memo.kind"])
	}
	if _, ok := entry["memo.async"]; ok {
		t.Errorf("memo.async should be omitted for synchronous wrappers")
	}
}

// TestLogger_WithFunctionDoesNotMutateParent verifies derived loggers are independent.
func TestLogger_WithFunctionDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	_ = logger.WithFunction(FuncMeta{Tag: "child"})
	logger.Info(context.Background(), "parent")

	entry := decodeEntry(t, &buf)
	if _, ok := entry["memo.tag"]; ok {
		t.Errorf("parent logger should not carry memo.tag, got %v", entry["memo.tag"])
	}
}

func TestLogger_IncludesDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.WithFunction(FuncMeta{Tag: "timed"}).Info(context.Background(), "test message",
		Field{Key: "duration_ms", Value: 50.5},
	)

	entry := decodeEntry(t, &buf)
	if v, ok := entry["duration_ms"].(float64); !ok || v != 50.5 {
		t.Errorf("expected duration_ms=50.5, got %v", entry["duration_ms"])
	}
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name string
		log  func(Logger)
		want string
	}{
		{"debug", func(l Logger) { l.Debug(context.Background(), "m") }, "debug"},
		{"info", func(l Logger) { l.Info(context.Background(), "m") }, "info"},
		{"warn", func(l Logger) { l.Warn(context.Background(), "m") }, "warn"},
		{"error", func(l Logger) { l.Error(context.Background(), "m", Field{Key: "error", Value: "disk full"}) }, "error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			tc.log(NewLoggerWithWriter("debug", &buf))

			entry := decodeEntry(t, &buf)
			if entry["level"] != tc.want {
				t.Errorf("expected level=%q, got %v", tc.want, entry["level"])
			}
		})
	}
}

// TestLogger_SensitiveFieldsRedacted verifies argument values are not logged.
func TestLogger_SensitiveFieldsRedacted(t *testing.T) {
	for _, key := range RedactedFields {
		t.Run(key, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter("info", &buf)

			logger.Info(context.Background(), "call", Field{Key: key, Value: "secret_password_123"})

			if strings.Contains(buf.String(), "secret_password_123") {
				t.Errorf("field %q should be redacted: %s", key, buf.String())
			}
			if !strings.Contains(buf.String(), "[REDACTED]") {
				t.Errorf("expected redaction marker for %q", key)
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf).WithFunction(FuncMeta{Tag: "filtered"})

	logger.Info(context.Background(), "info message")
	if strings.Contains(buf.String(), "info message") {
		t.Error("info message should be filtered when level is warn")
	}

	logger.Warn(context.Background(), "warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Error("warn message should pass through when level is warn")
	}
}

func TestParseLogLevel_UnknownIsInfo(t *testing.T) {
	if got := ParseLogLevel("verbose"); got != LevelInfo {
		t.Errorf("expected LevelInfo, got %v", got)
	}
}
