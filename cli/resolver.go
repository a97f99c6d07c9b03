package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

// resolve is a [kong.ConfigurationLoader] that reads flag defaults from
// a YAML config file.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve, "/path/to/bakefile.yaml")
//
// The file is a flat mapping of flag names to values; hyphenated flag
// names may be written with underscores instead. Example:
//
//	toolset: [gnu, vs2017]
//	log_format: json
//	force: true
//
// Command-line flags override config file values.
func resolve(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		// Malformed config - behave as if it weren't there.
		return config{}, nil
	}

	return config(raw), nil
}

// config implements [kong.Resolver] for YAML configs.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error {
	// No validation needed - the config was already parsed successfully
	return nil
}

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	// Kong flags use hyphens (e.g., "log-format") but YAML keys may use
	// underscores. Try both forms.
	if value, ok := r[flag.Name]; ok {
		return native(value), nil
	}

	underscoreName := strings.ReplaceAll(flag.Name, "-", "_")
	if value, ok := r[underscoreName]; ok {
		return native(value), nil
	}

	// Not found - return nil to let Kong use defaults.
	return nil, nil
}

// native converts decoded YAML values into the representation Kong's
// flag parsing expects: numbers as strings, everything else as-is.
func native(v any) any {
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = native(item)
		}

		return out
	}

	return v
}
