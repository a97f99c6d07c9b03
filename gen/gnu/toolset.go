// Package gnu generates GNU makefiles: GNU Make syntax driving gcc
// compatible compilers and linkers on Unix-like systems. File
// extensions and linker behavior (sonames, -z,defs) are assumed to be
// Linux ones.
package gnu

import (
	"fmt"
	"strings"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/gen"
	"github.com/vslavik/bakefile/model"
)

// Unique strings written into the output first and patched by the
// footer, once it is known whether the support code is needed at all.
const (
	ifexprMacrosPlaceholder = "{{{BKL_GMAKE_IFEXPR_MACROS}}}"
	builddirDefPlaceholder  = "{{{BKL_GMAKE_BUILDDIR_DEF}}}"
)

// GNU Make has some boolean functions, but not all that are needed for
// rendering residual conditions, so define the missing ones.
const ifexprMacros = `
_true  := true
_false :=
_not    = $(if $(1),$(_false),$(_true))
_equal  = $(and $(findstring $(1),$(2)),$(findstring $(2),$(1)))

`

// Toolset generates GNUmakefiles for the GNU toolchain: GNU Make, GCC
// or compatible compilers, GNU LD.
type Toolset struct {
	gen.MakeToolset
}

func newToolset() *Toolset {
	t := &Toolset{}
	t.MakeToolset = gen.MakeToolset{
		ToolsetName:         "gnu",
		DefaultMakefile:     "GNUmakefile",
		ObjectExtension:     ".o",
		AutocleanExtensions: []string{"o", "d"},
		DelCommand:          "rm -f",
		Syntax:              syntax{},
	}
	t.Dialect = t

	return t
}

func init() {
	model.RegisterToolset(newToolset())
}

// FilePrefix implements Unix binary naming, e.g. libfoo.a.
func (t *Toolset) FilePrefix(fileclass string) string {
	switch fileclass {
	case "library", "shared-library":
		return "lib"
	}

	return ""
}

func (t *Toolset) FileExtension(fileclass string) string {
	switch fileclass {
	case "library":
		return "a"
	case "shared-library", "loadable-module":
		return "so"
	}

	return ""
}

// syntax is the GNU Make dialect of the makefile constructs.
type syntax struct {
	gen.BasicMakeSyntax
}

// VarDefinition uses ?= so the defaults can be overridden from the
// environment or the make command line.
func (syntax) VarDefinition(name, value string) string {
	return fmt.Sprintf("%s ?= %s\n", name,
		strings.Join(strings.Split(value, "\n"), " \\\n\t"))
}

func (syntax) SubmakeCommand(dir, file, target string) string {
	return fmt.Sprintf("$(MAKE) -C %s -f %s %s", dir, file, target)
}

// MultiOutputRule handles rules with several outputs through a helper
// intermediate target, because pattern rule matching can't easily be
// used here. The absence of the intermediate file does not cause
// spurious rebuilds, see the chained-rules chapter of the make manual.
func (s syntax) MultiOutputRule(outputs []expr.Expr, outfiles, deps, commands []string) (string, error) {
	for _, c := range commands {
		if strings.Contains(c, "$@") {
			return "", expr.Errorf(outputs[0].Position(),
				"the use of $@ or %%(out) not supported with multiple outputs (in %q)", c)
		}
	}
	inter := ".dummy_" + strings.ReplaceAll(strings.Join(outfiles, "_"), "/", "_")

	return strings.Join(outfiles, " ") + ": " + inter + "\n" +
		".INTERMEDIATE: " + inter + "\n" +
		s.BasicMakeSyntax.Rule(inter, deps, commands), nil
}

// Formatter renders expressions into GNU Make syntax. All build paths
// go through the _builddir variable so the build directory can be
// picked at make time, and residual boolean logic maps onto make's
// functions, with helper macros patched in by the footer when used.
func (t *Toolset) Formatter(paths *expr.PathAnchors, state *gen.MakeState) *expr.Formatter {
	f := &expr.Formatter{Paths: paths}
	f.Literal = gen.MakeLiteral
	f.Placeholder = gen.MakePlaceholder
	f.Path = func(e *expr.Path) (string, error) {
		switch e.Anchor {
		case expr.AnchorBuilddir:
			// _builddir is either empty or ends with a slash, don't add
			// another one.
			state.UsesBuilddir = true
			comps := make([]string, len(e.Components))
			for i, c := range e.Components {
				s, err := f.Format(c)
				if err != nil {
					return "", err
				}
				comps[i] = s
			}

			return "$(_builddir)" + strings.Join(comps, "/"), nil

		case expr.AnchorTopBuilddir:
			// Interpret the path relative to the top source directory,
			// then root it at the build directory.
			state.UsesBuilddir = true
			rel, err := f.DefaultPath(expr.NewPath(e.Components,
				expr.AnchorTopSrcdir, "", e.Position()))
			if err != nil {
				return "", err
			}

			return "$(_builddir)" + rel, nil
		}

		return f.DefaultPath(e)
	}
	f.BoolValue = func(e *expr.BoolValue) (string, error) {
		state.UsesBoolMacros = true
		if e.Value {
			return "$(_true)", nil
		}

		return "$(_false)", nil
	}
	f.Bool = func(e *expr.Bool) (string, error) {
		left, err := f.Format(e.Left)
		if err != nil {
			return "", err
		}
		var right string
		if e.Right != nil {
			right, err = f.Format(e.Right)
			if err != nil {
				return "", err
			}
		}
		switch e.Op {
		case expr.OpAnd:
			return fmt.Sprintf("$(and %s,%s)", left, right), nil
		case expr.OpOr:
			return fmt.Sprintf("$(or %s,%s)", left, right), nil
		case expr.OpEqual:
			state.UsesBoolMacros = true

			return fmt.Sprintf("$(call _equal,%s,%s)", left, right), nil
		case expr.OpNotEqual:
			state.UsesBoolMacros = true

			return fmt.Sprintf("$(call _not,$(call _equal,%s,%s))", left, right), nil
		case expr.OpNot:
			state.UsesBoolMacros = true

			return fmt.Sprintf("$(call _not,%s)", left), nil
		}

		return "", expr.Errorf(e.Position(), "cannot render boolean expression %q", e)
	}
	f.If = func(e *expr.If) (string, error) {
		value, err := e.Value()
		if err == nil {
			return f.Format(value)
		}
		if !expr.IsNonConst(err) {
			return "", err
		}
		cond, err := f.Format(e.Cond)
		if err != nil {
			return "", err
		}
		yes, err := f.Format(e.Then)
		if err != nil {
			return "", err
		}
		no := ""
		if e.Else != nil {
			no, err = f.Format(e.Else)
			if err != nil {
				return "", err
			}
		}

		return fmt.Sprintf("$(if %s,%s,%s)", cond, yes, no), nil
	}

	return f
}

func (t *Toolset) Header(f *gen.File, module *model.Module) error {
	f.WriteString(`# This file was automatically generated by bakefile.
#
# Any manual changes will be lost if it is regenerated,
# modify the source .bkl file instead if possible.
`)
	f.WriteString(`
# You may define standard make variables such as CFLAGS or
# CXXFLAGS to affect the build. For example, you could use:
#
#      make CXXFLAGS=-g
#
# to build with debug information. The full list of variables
# that can be used by this makefile is:
# AR, CC, CFLAGS, CPPFLAGS, CXX, CXXFLAGS, LD, LDFLAGS, MAKE, RANLIB.
`)

	prj := module.Project()
	t.writeDefaultFlags(f, prj)

	if settings := prj.Settings(); len(settings) > 0 {
		f.WriteString(`#
# Additionally, this makefile is customizable with the following
# settings:
#
`)
		width := 0
		helps := make([]string, len(settings))
		for i, s := range settings {
			if len(s.Name()) > width {
				width = len(s.Name())
			}
			help, err := s.VariableValue("help")
			if err != nil {
				return err
			}
			if isNull, err := expr.IsNull(help); err == nil && !isNull {
				v, err := expr.AsConst(help)
				if err != nil {
					return err
				}
				helps[i] = v.AsString()
			}
		}
		for i, s := range settings {
			f.WriteString(fmt.Sprintf("#      %-*s  %s\n", width, s.Name(), helps[i]))
		}
	}

	f.WriteString(`
# Use "make RANLIB=''" for platforms without ranlib.
RANLIB ?= ranlib

CC ?= cc
CXX ?= c++
`)
	// These are replaced by the footer with the actual support code, or
	// nothing when it turns out not to be needed: toplevel makefiles
	// that only dispatch to others stay uncluttered.
	f.WriteString(ifexprMacrosPlaceholder)
	f.WriteString(builddirDefPlaceholder)

	return nil
}

// writeDefaultFlags outputs the config-dependent default values for the
// usual compilation flags.
func (t *Toolset) writeDefaultFlags(f *gen.File, prj *model.Project) {
	configs := prj.Configurations()

	var debugTest, releaseTest string
	if len(configs) > 2 {
		// Custom configurations exist; partition them by whether they
		// derive from Debug or Release to pick their default flags.
		debug := prj.Configuration("Debug")
		release := prj.Configuration("Release")
		debugNames := []string{"Debug"}
		releaseNames := []string{"Release"}
		for _, c := range configs {
			if c == debug || c == release {
				continue
			}
			if c.DerivedFrom(debug) > 0 {
				debugNames = append(debugNames, c.Name())
			} else if c.DerivedFrom(release) > 0 {
				releaseNames = append(releaseNames, c.Name())
			}
		}

		// Tilde characters are assumed to never appear in configuration
		// names.
		const sep = "~~"
		test := func(names []string) string {
			return fmt.Sprintf("ifneq (,$(findstring %s$(config)%s,%s%s%s))",
				sep, sep, sep, strings.Join(names, sep), sep)
		}
		debugTest = test(debugNames)
		releaseTest = test(releaseNames)
	} else {
		debugTest = "ifeq ($(config),Debug)"
		releaseTest = "ifeq ($(config),Release)"
	}

	names := make([]string, len(configs))
	for i, c := range configs {
		names[i] = c.Name()
	}
	f.WriteString(fmt.Sprintf(`
# You may also specify config=%s
# or their corresponding lower case variants on make command line to select
# the corresponding default flags values.
`, strings.Join(names, "|")))

	// Accept configs in lower case too to be more Unix-ish.
	for _, name := range names {
		f.WriteString(fmt.Sprintf(`ifeq ($(config),%s)
override config := %s
endif
`, strings.ToLower(name), name))
	}

	f.WriteString(debugTest)
	f.WriteString(`
CPPFLAGS ?= -DDEBUG
CFLAGS ?= -g -O0
CXXFLAGS ?= -g -O0
LDFLAGS ?= -g
else `)
	f.WriteString(releaseTest)
	f.WriteString(`
CPPFLAGS ?= -DNDEBUG
CFLAGS ?= -O2
CXXFLAGS ?= -O2
else ifneq (,$(config))
$(warning Unknown configuration "$(config)")
endif
`)
}

func (t *Toolset) PhonyTargets(f *gen.File, names []string) {
	f.WriteString(".PHONY: " + strings.Join(names, " ") + "\n")
}

func (t *Toolset) Footer(f *gen.File, module *model.Module, state *gen.MakeState) error {
	macros := ""
	if state.UsesBoolMacros {
		macros = ifexprMacros
	}
	f.Replace(ifexprMacrosPlaceholder, macros)

	fragment := ""
	if state.UsesBuilddir {
		var err error
		fragment, err = t.builddirFragment(module)
		if err != nil {
			return err
		}
	}
	f.Replace(builddirDefPlaceholder, fragment)

	f.WriteString("\n# Dependencies tracking:\n-include *.d\n")

	return nil
}

// builddirFragment defines the internal _builddir variable from the
// user-overridable builddir one. Sub-makefiles have to adjust a
// relative builddir for their own location; the abspath test leaves an
// absolute one alone.
func (t *Toolset) builddirFragment(module *model.Module) (string, error) {
	value, err := module.VariableValue(t.MakefileProperty())
	if err != nil {
		return "", err
	}
	makefile, ok := value.(*expr.Path)
	if !ok {
		return "", expr.Errorf(value.Position(),
			"%s must be a constant path (%s)", t.MakefileProperty(), value)
	}

	var builddirPath string
	dirComps := makefile.Components[:max(len(makefile.Components)-1, 0)]
	if len(dirComps) == 0 {
		// The toplevel makefile needs none of the complications,
		// _builddir equals $(builddir) there.
		builddirPath = "$(builddir)"
	} else {
		toTopSrcdir := strings.Repeat("../", len(dirComps))
		comps := make([]string, len(dirComps))
		for i, c := range dirComps {
			v, err := expr.AsConst(c)
			if err != nil {
				return "", err
			}
			comps[i] = v.AsString()
		}
		builddirPath = fmt.Sprintf(
			"$(if $(findstring $(abspath $(builddir)),$(builddir)),,%s)$(builddir)/%s",
			toTopSrcdir, strings.Join(comps, "/"))
	}

	return fmt.Sprintf(`
# The directory for the build files, may be overridden on make command line.
builddir = .

ifneq ($(builddir),.)
_builddir := $(shell mkdir -p %s && echo $$_/)
endif

`, builddirPath), nil
}
