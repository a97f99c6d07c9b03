package cli

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/vslavik/bakefile/log"
)

// logFormat is a custom type that configures the logger format as a side
// effect of parsing via encoding.TextUnmarshaler.
type logFormat string

// UnmarshalText implements encoding.TextUnmarshaler.
// As Kong parses the --log-format flag, this method is called, allowing us
// to configure the logger early enough to affect error messages during parsing.
func (f *logFormat) UnmarshalText(text []byte) error {
	*f = logFormat(text)
	log.Config(f.options()...)

	return nil
}

// options maps the flag value onto the logger's format and pretty
// switches: "pretty" is the styled text handler, "text" and "json" are
// the plain machine-readable ones.
func (f *logFormat) options() []log.Option {
	switch string(*f) {
	case "json":
		return []log.Option{log.WithFormat(log.FormatJSON), log.WithPretty(false)}
	case "text":
		return []log.Option{log.WithFormat(log.FormatText), log.WithPretty(false)}
	}

	return []log.Option{log.WithFormat(log.FormatText), log.WithPretty(true)}
}

type logConfig struct {
	Format     logFormat `default:"pretty" enum:"pretty,text,json" help:"Set log format."`
	TimeLayout string    `default:"none"                           help:"Set timestamp format."`
	Caller     bool      `default:"false"                          help:"Include caller information." negatable:""`
}

func (*logConfig) vars() kong.Vars {
	return kong.Vars{}
}

func (*logConfig) group() kong.Group {
	var group kong.Group

	group.Key = "log"
	group.Title = "Logging options"

	return group
}

// start applies the final logger configuration. The verbosity flags
// map onto levels: -q errors only, the default also warns, -v reports
// pipeline steps and written files, -vv adds pass-by-pass detail.
func (f *logConfig) start(ctx context.Context, verbose int, quiet bool) {
	level := log.DefaultLevel
	switch {
	case quiet:
		level = log.LevelError
	case verbose == 1:
		level = log.LevelInfo
	case verbose >= 2:
		level = log.LevelDebug
	}

	opts := append(f.Format.options(),
		log.WithLevel(level),
		log.WithTimeLayout(f.TimeLayout),
		log.WithCaller(f.Caller),
	)
	log.Config(opts...)

	log.DebugContext(ctx, "logger initialized",
		slog.String("level", level.String()),
		slog.String("format", string(f.Format)),
		slog.String("time", f.TimeLayout),
		slog.Bool("caller", f.Caller),
	)
}

// scan performs an early pass over command-line arguments to extract and
// apply the log format before Kong begins parsing. This ensures the
// logger is configured properly regardless of flag position on the
// command line.
func (f *logConfig) scan(args []string) {
	const flag = "--log-format"
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == flag && i+1 < len(args):
			_ = f.Format.UnmarshalText([]byte(args[i+1]))
			i++

		case strings.HasPrefix(arg, flag+"="):
			_ = f.Format.UnmarshalText([]byte(arg[len(flag)+1:]))
		}
	}
}
