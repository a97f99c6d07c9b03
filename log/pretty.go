package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Styles for pretty printing. Keys are dimmed so the values stand out;
// level colors follow the usual severity conventions.
//
//nolint:gochecknoglobals
var (
	styleKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleString = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleNumber = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleTrue   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleFalse  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleTime   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleDur    = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	styleNull   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	styleLevel = map[Level]lipgloss.Style{
		LevelTrace: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

func levelStyle(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return styleLevel[LevelError]
	case level >= slog.LevelWarn:
		return styleLevel[LevelWarn]
	case level >= slog.LevelInfo:
		return styleLevel[LevelInfo]
	case level >= slog.LevelDebug:
		return styleLevel[LevelDebug]
	default:
		return styleLevel[LevelTrace]
	}
}

// prettyTextHandler implements a colorized text handler for log messages.
type prettyTextHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	groups []string
}

func newPrettyTextHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
) *prettyTextHandler {
	return &prettyTextHandler{
		opts:   *opts,
		mu:     &sync.Mutex{},
		w:      w,
		groups: []string{},
	}
}

func (h *prettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	// Write time if configured
	if !r.Time.IsZero() {
		timeAttr := slog.Time(slog.TimeKey, r.Time)
		h.writeAttr(buf, timeAttr)
	}

	// Write level
	levelAttr := slog.Any(slog.LevelKey, r.Level)
	h.writeAttr(buf, levelAttr)

	// Write source if configured
	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			sourceStr := fmt.Sprintf("%s:%d", src.File, src.Line)
			sourceAttr := slog.String(slog.SourceKey, sourceStr)
			h.writeAttr(buf, sourceAttr)
		}
	}

	// Write message
	msgAttr := slog.String(slog.MessageKey, r.Message)
	h.writeAttr(buf, msgAttr)

	// Write each attribute
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(buf, a)

		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())
	if err != nil {
		return err
	}

	_, err = h.w.Write([]byte("\n"))

	return err
}

func (h *prettyTextHandler) WithAttrs([]slog.Attr) slog.Handler {
	// Create a new handler with the same configuration
	return &prettyTextHandler{
		opts:   h.opts,
		mu:     h.mu,
		w:      h.w,
		groups: h.groups,
	}
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	return &prettyTextHandler{
		opts:   h.opts,
		mu:     h.mu,
		w:      h.w,
		groups: append(h.groups[:len(h.groups):len(h.groups)], name),
	}
}

func (h *prettyTextHandler) writeAttr(buf *bytes.Buffer, a slog.Attr) {
	if buf.Len() > 0 {
		buf.WriteByte(' ')
	}

	buf.WriteString(styleKey.Render(a.Key))
	buf.WriteByte('=')

	h.writeValue(buf, a.Value)
}

func (h *prettyTextHandler) writeValue(buf *bytes.Buffer, v slog.Value) {
	switch v.Kind() {
	case slog.KindString:
		// String values unquoted
		buf.WriteString(styleString.Render(v.String()))

	case slog.KindInt64:
		buf.WriteString(styleNumber.Render(strconv.FormatInt(v.Int64(), 10)))

	case slog.KindUint64:
		buf.WriteString(styleNumber.Render(strconv.FormatUint(v.Uint64(), 10)))

	case slog.KindFloat64:
		buf.WriteString(
			styleNumber.Render(strconv.FormatFloat(v.Float64(), 'g', -1, 64)),
		)

	case slog.KindBool:
		if v.Bool() {
			buf.WriteString(styleTrue.Render("true"))
		} else {
			buf.WriteString(styleFalse.Render("false"))
		}

	case slog.KindDuration:
		buf.WriteString(styleDur.Render(v.Duration().String()))

	case slog.KindTime:
		buf.WriteString(styleTime.Render(v.Time().String()))

	case slog.KindAny:
		// Render slog.Level through the package Level type so trace shows
		// as "trace" rather than "DEBUG-4".
		if level, ok := v.Any().(slog.Level); ok {
			buf.WriteString(levelStyle(level).Render(Level(level).String()))
		} else {
			buf.WriteString(styleString.Render(v.String()))
		}

	default:
		// Fallback for other kinds, including groups
		buf.WriteString(styleString.Render(v.String()))
	}
}

// prettyJSONHandler implements a pretty-printed JSON handler for log messages.
type prettyJSONHandler struct {
	opts slog.HandlerOptions
	mu   *sync.Mutex
	w    io.Writer
}

func newPrettyJSONHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
) *prettyJSONHandler {
	return &prettyJSONHandler{
		opts: *opts,
		mu:   &sync.Mutex{},
		w:    w,
	}
}

func (h *prettyJSONHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	buf.WriteString("{\n")

	// Add standard fields
	first := true
	if !r.Time.IsZero() {
		h.writeJSONField(
			buf,
			slog.TimeKey,
			r.Time.Format("2006-01-02T15:04:05Z07:00"),
			&first,
		)
	}

	h.writeJSONField(buf, slog.LevelKey, Level(r.Level).String(), &first)

	// Write source if configured
	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			sourceStr := fmt.Sprintf("%s:%d", src.File, src.Line)
			h.writeJSONField(buf, slog.SourceKey, sourceStr, &first)
		}
	}

	h.writeJSONField(buf, slog.MessageKey, r.Message, &first)

	// Add custom attributes
	r.Attrs(func(a slog.Attr) bool {
		h.writeJSONAttr(buf, a, &first)

		return true
	})

	buf.WriteString("\n}")

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())
	if err != nil {
		return err
	}

	_, err = h.w.Write([]byte("\n"))

	return err
}

func (h *prettyJSONHandler) WithAttrs([]slog.Attr) slog.Handler {
	return &prettyJSONHandler{
		opts: h.opts,
		mu:   h.mu,
		w:    h.w,
	}
}

func (h *prettyJSONHandler) WithGroup(string) slog.Handler {
	return &prettyJSONHandler{
		opts: h.opts,
		mu:   h.mu,
		w:    h.w,
	}
}

func (h *prettyJSONHandler) writeJSONField(
	buf *bytes.Buffer,
	key string,
	value any,
	first *bool,
) {
	if !*first {
		buf.WriteString(",\n")
	}

	*first = false

	buf.WriteString("  ")
	buf.WriteString(styleKey.Render(key))
	buf.WriteString(": ")

	h.writeJSONValue(buf, value)
}

func (h *prettyJSONHandler) writeJSONAttr(
	buf *bytes.Buffer,
	a slog.Attr,
	first *bool,
) {
	if !*first {
		buf.WriteString(",\n")
	}

	*first = false

	buf.WriteString("  ")
	buf.WriteString(styleKey.Render(a.Key))
	buf.WriteString(": ")

	h.writeJSONValue(buf, a.Value.Any())
}

func (h *prettyJSONHandler) writeJSONValue(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case string:
		// String without quotes
		buf.WriteString(styleString.Render(val))

	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		buf.WriteString(styleNumber.Render(fmt.Sprint(val)))

	case bool:
		if val {
			buf.WriteString(styleTrue.Render("true"))
		} else {
			buf.WriteString(styleFalse.Render("false"))
		}

	case nil:
		buf.WriteString(styleNull.Render("null"))

	default:
		// For complex types, convert to string without quotes
		buf.WriteString(styleString.Render(fmt.Sprint(val)))
	}
}
