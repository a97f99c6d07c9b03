package log

import (
	"slices"
	"testing"
	"time"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelTrace, "trace"},
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LevelError + 4, "error+4"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"WARN+2", LevelWarn + 2},
		{"error", LevelError},
		{"bogus", DefaultLevel},
		{"", DefaultLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestLevels_EnumeratesAll(t *testing.T) {
	var got []string
	for name := range Levels() {
		got = append(got, name)
	}

	expected := []string{"trace", "debug", "info", "warn", "error"}
	if !slices.Equal(got, expected) {
		t.Errorf("expected levels %v, got %v", expected, got)
	}
}

func TestFormat_String(t *testing.T) {
	if got := FormatText.String(); got != "text" {
		t.Errorf("expected %q, got %q", "text", got)
	}
	if got := FormatJSON.String(); got != "json" {
		t.Errorf("expected %q, got %q", "json", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{" text ", FormatText},
		{"bogus", DefaultFormat},
		{"", DefaultFormat},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestFormats_EnumeratesAll(t *testing.T) {
	var got []string
	for name := range Formats() {
		got = append(got, name)
	}

	expected := []string{"text", "json"}
	if !slices.Equal(got, expected) {
		t.Errorf("expected formats %v, got %v", expected, got)
	}
}

func TestConfig_Options_SetFields(t *testing.T) {
	c := apply(config{},
		WithLevel(LevelDebug),
		WithFormat(FormatJSON),
		WithCaller(true),
		WithPretty(false))

	if c.level != LevelDebug {
		t.Errorf("expected level debug, got %v", c.level)
	}
	if c.format != FormatJSON {
		t.Errorf("expected format json, got %v", c.format)
	}
	if !c.caller {
		t.Error("expected caller enabled")
	}
	if c.pretty {
		t.Error("expected pretty disabled")
	}
}

func TestConfig_Apply_IgnoresNilOptions(t *testing.T) {
	c := apply(config{}, nil, WithLevel(LevelError), nil)

	if c.level != LevelError {
		t.Errorf("expected level error, got %v", c.level)
	}
}

func TestConfig_formatTime_FormatsTimestamp(t *testing.T) {
	now := time.Date(2023, 10, 15, 14, 30, 45, 123456789, time.UTC)

	tests := []struct {
		name     string
		layout   string
		expected string
	}{
		{
			name:     "rfc3339 named layout",
			layout:   "RFC3339",
			expected: "2023-10-15T14:30:45Z",
		},
		{
			name:     "rfc3339 nano named layout",
			layout:   "RFC3339Nano",
			expected: "2023-10-15T14:30:45.123456789Z",
		},
		{
			name:     "named layout is case-insensitive",
			layout:   "rfc3339",
			expected: "2023-10-15T14:30:45Z",
		},
		{
			name:     "millisecond alias",
			layout:   "ms",
			expected: now.Format(time.StampMilli),
		},
		{
			name:     "kitchen",
			layout:   "Kitchen",
			expected: "2:30PM",
		},
		{
			name:     "custom layout used verbatim",
			layout:   "2006-01-02 15:04:05.000Z07:00",
			expected: "2023-10-15 14:30:45.123Z",
		},
		{
			name:     "none disables timestamps",
			layout:   "none",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := WithTimeLayout(tt.layout)(config{})
			if got := c.formatTime(now); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestConfig_formatTime_EmptyLayout_DisablesTimestamp(t *testing.T) {
	now := time.Date(2023, 10, 15, 14, 30, 45, 123456789, time.UTC)

	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"whitespace only", "   \t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := WithTimeLayout(tt.value)(config{})
			if got := c.formatTime(now); got != "" {
				t.Errorf(
					"expected empty timestamp when layout is %q, got %q",
					tt.value,
					got,
				)
			}
		})
	}
}

func BenchmarkConfig_formatTime(b *testing.B) {
	c := WithTimeLayout("RFC3339")(config{})
	testTime := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.formatTime(testTime)
	}
}
