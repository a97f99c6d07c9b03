package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestLogger_Make_DefaultConfiguration(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf)

	if logger.config.level != LevelWarn {
		t.Errorf("expected default level warn, got %v", logger.config.level)
	}
	if logger.config.format != FormatText {
		t.Errorf("expected default format text, got %v", logger.config.format)
	}
	if logger.config.caller {
		t.Error("expected caller info disabled by default")
	}
}

func TestLogger_Make_DefaultLevel_SuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf)

	logger.Info("progress message")
	if buf.Len() > 0 {
		t.Errorf("info message logged at default level: %s", buf.String())
	}

	logger.Warn("warning message")
	if !strings.Contains(buf.String(), "warning message") {
		t.Error("warning not logged at default level")
	}
}

func TestLogger_Make_WithLevel_FiltersMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf, WithLevel(LevelDebug))

	logger.Debug("debug message")
	if !strings.Contains(buf.String(), "debug message") {
		t.Error("debug message not logged after setting level to Debug")
	}

	buf.Reset()
	logger2 := Make(&buf, WithLevel(LevelError))
	logger2.Warn("warn message")
	if buf.Len() > 0 {
		t.Error("warn message logged when level is Error")
	}

	logger2.Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Error("error message not logged at Error level")
	}
}

func TestLogger_LogMethods_RespectLevelFiltering(t *testing.T) {
	tests := []struct {
		name     string
		logFunc  func(Logger, string, ...slog.Attr)
		minLevel Level
		logged   bool
	}{
		{"trace at trace", (Logger).Trace, LevelTrace, true},
		{"trace at debug", (Logger).Trace, LevelDebug, false},
		{"debug at debug", (Logger).Debug, LevelDebug, true},
		{"debug at info", (Logger).Debug, LevelInfo, false},
		{"info at info", (Logger).Info, LevelInfo, true},
		{"info at warn", (Logger).Info, LevelWarn, false},
		{"warn at warn", (Logger).Warn, LevelWarn, true},
		{"warn at error", (Logger).Warn, LevelError, false},
		{"error at error", (Logger).Error, LevelError, true},
		{"error at trace", (Logger).Error, LevelTrace, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := Make(&buf, WithLevel(tt.minLevel))
			tt.logFunc(logger, "test message")

			hasOutput := buf.Len() > 0
			if hasOutput != tt.logged {
				t.Errorf(
					"expected logged=%v, got output length=%d",
					tt.logged,
					buf.Len(),
				)
			}
		})
	}
}

func TestLogger_AllLevels_RenderLowercaseNames(t *testing.T) {
	tests := []struct {
		name    string
		logFunc func(Logger, string, ...slog.Attr)
		level   string
	}{
		{"trace", Logger.Trace, "trace"},
		{"debug", Logger.Debug, "debug"},
		{"info", Logger.Info, "info"},
		{"warn", Logger.Warn, "warn"},
		{"error", Logger.Error, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := Make(&buf,
				WithLevel(LevelTrace),
				WithFormat(FormatText),
				WithPretty(true))

			tt.logFunc(logger, "test message")

			output := buf.String()
			if !strings.Contains(output, "test message") {
				t.Errorf("expected %s message to be logged", tt.level)
			}
			// The level name must render through Level.String, not as
			// slog's "DEBUG-4" for trace.
			if !strings.Contains(output, tt.level) {
				t.Errorf(
					"expected output to contain level %q, got: %s",
					tt.level,
					output,
				)
			}
		})
	}
}

func TestLogger_Make_WithFormat_SetsOutputFormat(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Make(&buf,
			WithLevel(LevelInfo),
			WithFormat(FormatJSON),
			WithPretty(false))
		logger.Info("test message", slog.String("key", "value"))

		var result map[string]any
		if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
			t.Fatalf("failed to parse JSON output: %v", err)
		}
		if result["msg"] != "test message" {
			t.Errorf("expected msg=test message, got %v", result["msg"])
		}
		if result["key"] != "value" {
			t.Errorf("expected key=value, got %v", result["key"])
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Make(&buf,
			WithLevel(LevelInfo),
			WithFormat(FormatText),
			WithPretty(false))
		logger.Info("test message", slog.String("key", "value"))

		output := buf.String()
		if !strings.Contains(output, "test message") {
			t.Error("message not found in text output")
		}
		if !strings.Contains(output, "key=value") {
			t.Error("key=value not found in text output")
		}
	})
}

func TestLogger_Make_WithTimeLayout_SetsLayout(t *testing.T) {
	tests := []struct {
		name     string
		layout   string
		contains string
	}{
		{"rfc3339 named", "RFC3339", "T"},
		{"rfc3339 nano named", "RFC3339Nano", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := Make(&buf,
				WithLevel(LevelInfo),
				WithTimeLayout(tt.layout),
				WithPretty(false))
			logger.Info("test")

			output := buf.String()
			if !strings.Contains(output, tt.contains) {
				t.Errorf(
					"expected time format to contain %q, got: %s",
					tt.contains,
					output,
				)
			}
		})
	}
}

func TestLogger_Make_TimeLayoutNone_OmitsTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf,
		WithLevel(LevelInfo),
		WithFormat(FormatJSON),
		WithTimeLayout("none"),
		WithPretty(false))
	logger.Info("test")

	if strings.Contains(buf.String(), `"time"`) {
		t.Errorf("expected no time field, got: %s", buf.String())
	}
}

func TestLogger_Make_WithCaller_IncludesSourceInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf,
		WithLevel(LevelInfo),
		WithCaller(true),
		WithPretty(false))
	logger.Info("test message")

	if !strings.Contains(buf.String(), "source") {
		t.Error("source info not included when caller enabled")
	}

	buf.Reset()
	logger2 := Make(&buf,
		WithLevel(LevelInfo),
		WithCaller(false),
		WithPretty(false))
	logger2.Info("test message")

	if strings.Contains(buf.String(), "source") {
		t.Error("source info included when caller disabled")
	}
}

func TestLogger_Wrap_OverridesConfiguration(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf, WithLevel(LevelError))

	wrapped := logger.Wrap(WithLevel(LevelDebug))
	wrapped.Debug("debug after wrap")

	if !strings.Contains(buf.String(), "debug after wrap") {
		t.Error("wrapped logger did not apply overridden level")
	}

	// The original logger keeps its configuration.
	buf.Reset()
	logger.Debug("debug on original")
	if buf.Len() > 0 {
		t.Error("original logger was mutated by Wrap")
	}
}

func TestLogger_With_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf,
		WithLevel(LevelInfo),
		WithFormat(FormatJSON),
		WithPretty(false))

	loggerWith := logger.With(slog.String("toolset", "gnu"))
	loggerWith.Info("test message")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to unmarshal log entry: %v", err)
	}

	if val, ok := entry["toolset"]; !ok || val != "gnu" {
		t.Errorf("expected toolset=gnu in log entry, got %v", val)
	}
}

func TestLogger_LevelAndFormat_Accessors(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf, WithLevel(LevelDebug), WithFormat(FormatJSON))

	if logger.Level() != LevelDebug {
		t.Errorf("expected level debug, got %v", logger.Level())
	}
	if logger.Format() != FormatJSON {
		t.Errorf("expected format json, got %v", logger.Format())
	}

	var zero Logger
	if zero.Level() != DefaultLevel {
		t.Errorf("expected default level from zero value, got %v", zero.Level())
	}
	if zero.Format() != DefaultFormat {
		t.Errorf("expected default format from zero value, got %v", zero.Format())
	}
}

func TestLogger_ZeroValue_Safety(t *testing.T) {
	var l Logger
	// Should not panic
	l.Trace("test")
	l.Debug("test")
	l.Info("test")
	l.Warn("test")
	l.Error("test")

	l2 := l.With(slog.String("key", "value"))
	if l2.Logger != nil {
		t.Error("expected nil logger from zero value With")
	}
}

func TestLogger_ContextMethods_LogSuccessfully(t *testing.T) {
	tests := []struct {
		name    string
		logFunc func(Logger, context.Context, string, ...slog.Attr)
	}{
		{"trace", Logger.TraceContext},
		{"debug", Logger.DebugContext},
		{"info", Logger.InfoContext},
		{"warn", Logger.WarnContext},
		{"error", Logger.ErrorContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := Make(&buf, WithLevel(LevelTrace))

			tt.logFunc(logger, context.Background(), "test message")

			if !strings.Contains(buf.String(), "test message") {
				t.Errorf("expected %s message to be logged", tt.name)
			}
		})
	}
}

func TestLogger_ConcurrentCalls_ThreadSafe(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf, WithLevel(LevelInfo), WithPretty(false))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("concurrent message", slog.Int("id", id))
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 100 {
		t.Errorf("expected 100 log lines, got %d", len(lines))
	}
}

func BenchmarkLogger_Info(b *testing.B) {
	var buf bytes.Buffer
	logger := Make(&buf, WithLevel(LevelInfo))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", slog.Int("iteration", i))
	}
}

func BenchmarkLogger_Info_Suppressed(b *testing.B) {
	var buf bytes.Buffer
	logger := Make(&buf, WithLevel(LevelError))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", slog.Int("iteration", i))
	}
}
