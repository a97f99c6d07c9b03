package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/vslavik/bakefile/gen"
	"github.com/vslavik/bakefile/interp"
	"github.com/vslavik/bakefile/lang"
	"github.com/vslavik/bakefile/log"
	"github.com/vslavik/bakefile/model"
	"github.com/vslavik/bakefile/pkg"

	// The toolset backends register themselves with the model registry.
	_ "github.com/vslavik/bakefile/gen/gnu"
	_ "github.com/vslavik/bakefile/gen/vs"
)

// CLI is the top-level command-line interface for bakefile.
type CLI struct {
	Log   logConfig   `embed:"" group:"log" prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof"`

	Toolset   []string         `help:"Generate only for the named toolset(s)."                                      name:"toolset" placeholder:"NAME" short:"t"`
	Output    string           `help:"Write generated files under this directory instead of next to the inputs."   placeholder:"DIR"                  short:"o"`
	Verbose   int              `help:"Report pipeline steps and written files, repeat for pass-by-pass detail."    short:"v"      type:"counter"`
	Quiet     bool             `help:"Only print errors."                                                          short:"q"`
	DryRun    bool             `help:"Resolve and render everything, but write nothing."                           short:"n"`
	Force     bool             `help:"Rewrite output files even when their content is unchanged."`
	DumpModel bool             `help:"Print the resolved model instead of generating."`
	Version   kong.VersionFlag `help:"Print version information and quit."`

	File string `arg:"" help:"Input .bkl file." type:"existingfile"`
}

// Run executes the bakefile CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	vars := kong.Vars{
		"version": pkg.Name + " " + strings.TrimSpace(pkg.Version),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for the log format flag so that errors issued during
	// parsing itself are already reported the requested way.
	cli.Log.scan(args)

	groups := []kong.Group{cli.Log.group()}
	if g := cli.Pprof.group(); g.Key != "" {
		groups = append(groups, g)
	}

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(groups),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact: true,
				Summary: true,
			}),
		kong.Configuration(resolve, configFile, configPath(configFile)),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Finalize logger configuration with all parsed values including the
	// verbosity flags, which don't go through TextUnmarshaler.
	cli.Log.start(ctx, cli.Verbose, cli.Quiet)

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	// Execute the selected command
	return ktx.Run(ctx, &cli)
}

// Run performs the generation for the parsed command line.
func (c *CLI) Run(ctx context.Context) error {
	out := gen.NewOutput(c.outputRoot())
	out.DryRun = c.DryRun
	out.Force = c.Force
	gen.SetCurrent(out)

	i := interp.New()
	if len(c.Toolset) > 0 {
		i.LimitToolsets(c.Toolset...)
	}

	if c.DumpModel {
		return c.dumpModel(i)
	}

	if err := i.ProcessFile(c.File); err != nil {
		return err
	}

	log.InfoContext(ctx, "generation finished",
		slog.Int("created", out.Created),
		slog.Int("updated", out.Updated),
		slog.Bool("dry-run", c.DryRun),
	)

	return nil
}

// dumpModel resolves the input without generating and prints the model
// in a stable human-readable form.
func (c *CLI) dumpModel(i *interp.Interpreter) error {
	file, err := lang.ParseFile(c.File)
	if err != nil {
		return err
	}
	if err := i.AddModule(file, i.Project); err != nil {
		return err
	}
	if err := i.Finalize(); err != nil {
		return err
	}
	fmt.Println(model.DumpProject(i.Project))

	return nil
}

// outputRoot is the directory generated files resolve against: the
// --output flag when given, the input file's directory otherwise.
func (c *CLI) outputRoot() string {
	if c.Output != "" {
		return c.Output
	}

	return filepath.Dir(c.File)
}
