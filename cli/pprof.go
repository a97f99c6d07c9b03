//go:build pprof

package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/vslavik/bakefile/log"
	"github.com/vslavik/bakefile/pkg"
	"github.com/vslavik/bakefile/profile"
)

type pprofConfig struct {
	Profile    string `default:""              enum:",${profileModeEnum}" help:"Enable profiling"         name:"profile" placeholder:"${enum}"`
	ProfileDir string `default:"${profileDir}"                            help:"Profile output directory"                type:"path"`
}

func (pprofConfig) vars() kong.Vars {
	return kong.Vars{
		"profileModeEnum": strings.Join(profile.Modes(), ","),
		"profileDir":      filepath.Join(pkg.CacheDir(), profile.Tag),
	}
}

func (pprofConfig) group() kong.Group {
	var group kong.Group

	group.Key = "pprof"
	group.Title = "Profiling (pprof)"

	return group
}

// start starts profiling if configured.
func (f pprofConfig) start(ctx context.Context) (stop func()) {
	if f.Profile == "" {
		return func() {}
	}

	log.DebugContext(ctx, "pprof start",
		slog.String("mode", f.Profile),
		slog.String("dir", f.ProfileDir),
	)

	profiler := profile.Config{
		Mode:  f.Profile,
		Path:  f.ProfileDir,
		Quiet: true,
	}.Start()

	return func() {
		log.DebugContext(ctx, "pprof stop",
			slog.String("mode", f.Profile),
			slog.String("dir", f.ProfileDir),
		)
		profiler.Stop()
	}
}
