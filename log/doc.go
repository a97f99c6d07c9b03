// Package log provides a concurrency-safe simplified logging interface
// based on [log/slog].
//
// The package offers configurable time formatting, caller information,
// and output formats that are applied at logger creation time using
// functional options.
//
// # Basic Usage
//
//	logger := log.Make(os.Stderr)
//	logger.Info("writing output", "file", "GNUmakefile")
//	logger.Error("failed to parse", "error", err)
//
// A package-level default logger writing to [os.Stderr] is also
// available; it is reconfigured at startup from command-line flags:
//
//	log.Config(log.WithLevel(log.LevelDebug))
//	log.Debug("loaded module", "file", path)
//
// # Configuration
//
// Configure the logger using functional options:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithTimeLayout("RFC3339Nano"),
//		log.WithCaller(true))
//
// # Adding Attributes
//
// Attributes can be added to the logger to be included in all subsequent
// log messages using the [Logger.With] method:
//
//	logger = logger.With("toolset", "gnu", "module", "hello.bkl")
//	logger.Info("generating") // includes toolset=gnu module=hello.bkl
//
// # Context-Aware Logging
//
// The package provides context-aware logging functions and methods.
// Each logging level has both a context-aware and context-unaware variant:
//
//	logger.InfoContext(ctx, "processing module")
//	logger.Info("message without context") // uses DefaultContextProvider
//
// Context-unaware functions internally call their context-aware counterparts
// using [DefaultContextProvider], which returns [context.TODO] by default.
//
// # Supported Levels
//
// The package supports five log levels: [LevelTrace], [LevelDebug],
// [LevelInfo], [LevelWarn], and [LevelError]. Messages below the
// configured level are discarded. The default level is [LevelWarn] so
// that normal operation prints nothing beyond generated-file statuses.
//
// # Time Formatting
//
// Time formatting is configurable using [WithTimeLayout]. You can
// specify any named layout supported by the [time] package (such as
// "RFC3339" or "RFC3339Nano") or provide a custom layout string.
//
// # Output Formats
//
// Two output formats are supported: [FormatText] (default) and
// [FormatJSON]. Format is set at logger creation time using functional
// options. Both have colorized variants enabled with [WithPretty].
package log
