// Package cli contains the command line interface for bakefile.
//
// # Usage
//
// The CLI takes one input file and generates native build files for
// every toolset the project enables:
//
//	bakefile project.bkl
//
// Generation can be narrowed and redirected:
//
//	bakefile -t gnu -o build/ project.bkl
//
// # Flags
//
//   - -t, --toolset: generate only for the named toolset(s)
//   - -o, --output: output root (default: the input file's directory)
//   - -v, --verbose: report pipeline steps and written files,
//     twice for pass-by-pass detail
//   - -q, --quiet: only print errors
//   - -n, --dry-run: resolve and render everything, write nothing
//   - --force: rewrite outputs even when their content is unchanged
//   - --dump-model: print the resolved model instead of generating
//
// # Configuration
//
// Flag defaults may come from a bakefile.yaml file in the current
// directory or in the user's configuration directory; see [resolve]
// for the format. Command-line flags override config file values.
//
// # Logging Options
//
//   - --log-format: set log output format (pretty, text, json)
//   - --log-time-layout: set timestamp format (RFC3339, none, ...)
//   - --log-caller: include caller information in log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof .
//
//   - --profile: enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --profile-dir: set profile output directory (default:
//     ~/.cache/bakefile/pprof)
package cli
