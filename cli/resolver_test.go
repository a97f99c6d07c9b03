package cli

import (
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

func flagNamed(name string) *kong.Flag {
	return &kong.Flag{Value: &kong.Value{Name: name}}
}

func TestResolve(t *testing.T) {
	const yaml = `
toolset: [gnu, vs2017]
log_format: json
force: true
verbose: 2
`

	r, err := resolve(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	tests := []struct {
		name string
		flag string
		want any
	}{
		{
			name: "exact key",
			flag: "force",
			want: true,
		},
		{
			name: "underscore fallback for hyphenated flag",
			flag: "log-format",
			want: "json",
		},
		{
			name: "number converted to string",
			flag: "verbose",
			want: "2",
		},
		{
			name: "unknown key resolves to nil",
			flag: "output",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(nil, nil, flagNamed(tt.flag))
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.flag, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.flag, got, tt.want)
			}
		})
	}
}

func TestResolveList(t *testing.T) {
	r, err := resolve(strings.NewReader(`toolset: [gnu, vs2017]`))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	got, err := r.Resolve(nil, nil, flagNamed("toolset"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	list, ok := got.([]any)
	if !ok {
		t.Fatalf("Resolve returned %T, want []any", got)
	}
	if len(list) != 2 || list[0] != "gnu" || list[1] != "vs2017" {
		t.Errorf("Resolve returned %v, want [gnu vs2017]", list)
	}
}

func TestResolveMalformedConfig(t *testing.T) {
	// A broken config file must not prevent the CLI from running.
	r, err := resolve(strings.NewReader(`{unterminated`))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	got, err := r.Resolve(nil, nil, flagNamed("force"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != nil {
		t.Errorf("Resolve = %v, want nil for malformed config", got)
	}
}
