package gen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/model"
)

// MakeSyntax renders the basic constructs of one make dialect.
type MakeSyntax interface {
	// Comment formats possibly multi-line text as a comment.
	Comment(text string) string

	// VarDefinition formats the definition of a make variable. The value
	// is already in make syntax and may be multi-line.
	VarDefinition(name, value string) string

	// Rule formats one rule: a target name, its dependencies and the
	// commands building it. Both may be empty.
	Rule(name string, deps, commands []string) string

	// MultiOutputRule formats a rule whose commands create several files
	// at once, e.g. a parser generator emitting both .c and .h files.
	// outputs are the raw output expressions, outfiles their rendered
	// forms.
	MultiOutputRule(outputs []expr.Expr, outfiles, deps, commands []string) (string, error)

	// SubmakeCommand returns the command running make on another
	// makefile: target in dir/file.
	SubmakeCommand(dir, file, target string) string
}

// BasicMakeSyntax implements the constructs shared by most make
// dialects. Concrete syntaxes embed it and override what differs.
type BasicMakeSyntax struct{}

func (BasicMakeSyntax) Comment(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "# " + line
	}

	return strings.Join(lines, "\n") + "\n"
}

func (BasicMakeSyntax) VarDefinition(name, value string) string {
	// Multi-line values continue on indented lines.
	return fmt.Sprintf("%s = %s\n", name,
		strings.Join(strings.Split(value, "\n"), " \\\n\t"))
}

func (BasicMakeSyntax) Rule(name string, deps, commands []string) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString(":")
	if len(deps) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(deps, " "))
	}
	for _, c := range commands {
		b.WriteString("\n\t")
		b.WriteString(c)
	}
	b.WriteString("\n\n")

	return b.String()
}

func (BasicMakeSyntax) MultiOutputRule(outputs []expr.Expr, outfiles, deps, commands []string) (string, error) {
	return "", expr.Errorf(outputs[0].Position(),
		"rules with multiple output files not implemented yet (%s from %s)",
		strings.Join(outfiles, ", "), strings.Join(deps, ", "))
}

// MakeState carries the flags one generated makefile accumulates while
// its expressions are rendered. The footer hook reads them to decide
// what support code the file needs patched in.
type MakeState struct {
	// UsesBuilddir is set when a rendered path referred to the build
	// directory, i.e. the makefile actually compiles something.
	UsesBuilddir bool

	// UsesBoolMacros is set when a rendered condition needed the boolean
	// helper macros.
	UsesBoolMacros bool
}

// MakeDialect fills in the parts of a makefile toolset that differ
// between make flavors.
type MakeDialect interface {
	// Formatter returns the expression formatter rendering into this
	// dialect's makefiles, accumulating flags into state.
	Formatter(paths *expr.PathAnchors, state *MakeState) *expr.Formatter

	// Header writes the leading portion of the makefile: the generated
	// file warning, toolchain variable defaults, configuration support.
	Header(f *File, module *model.Module) error

	// PhonyTargets declares the names that aren't real files.
	PhonyTargets(f *File, names []string)

	// Footer finishes the file, e.g. patching in the support macros the
	// rendered expressions turned out to need.
	Footer(f *File, module *model.Module, state *MakeState) error
}

// MakeToolset is the foundation of makefile-based toolsets. It walks
// the build graphs of all targets and writes one makefile per module,
// with recursive invocations for submodules, delegating the dialect
// specifics to Syntax and Dialect.
type MakeToolset struct {
	// ToolsetName is the name the toolset registers under, e.g. "gnu".
	ToolsetName string

	// DefaultMakefile is the output file name used when the module
	// doesn't set the makefile property, e.g. "GNUmakefile".
	DefaultMakefile string

	// ObjectExtension is the extension of object files, with the dot.
	ObjectExtension string

	// AutocleanExtensions lists extensions (without the dot) that "make
	// clean" removes with a single wildcard per extension.
	AutocleanExtensions []string

	// DelCommand is the command deleting files in clean rules.
	DelCommand string

	Syntax  MakeSyntax
	Dialect MakeDialect
}

func (t *MakeToolset) Name() string      { return t.ToolsetName }
func (t *MakeToolset) ObjectExt() string { return t.ObjectExtension }

// MakefileProperty is the name of the per-module property holding the
// output makefile path.
func (t *MakeToolset) MakefileProperty() string { return t.ToolsetName + ".makefile" }

// Properties contributes the makefile-name property to modules.
func (t *MakeToolset) Properties() *model.ToolsetProperties {
	return &model.ToolsetProperties{
		Module: []*model.Property{{
			Name:    t.MakefileProperty(),
			Type:    model.TypePath,
			Default: t.DefaultMakefile,
		}},
	}
}

// BuilddirFor places a target's intermediate files next to the makefile
// that builds it.
func (t *MakeToolset) BuilddirFor(target *model.Target) *expr.Path {
	value, err := target.VariableValue(t.MakefileProperty())
	if err == nil {
		if makefile, ok := value.(*expr.Path); ok {
			dir := makefile.Directory()

			return expr.NewPath(dir.Components, expr.AnchorTopBuilddir, "", expr.Pos{})
		}
	}

	return expr.NewPath(nil, expr.AnchorTopBuilddir, "", expr.Pos{})
}

// Generate writes the makefiles for all of the project's modules.
func (t *MakeToolset) Generate(prj *model.Project) error {
	// The build graphs of all targets are needed up front: dependencies
	// may cross module boundaries and the rules for one makefile then
	// reference files another one produces.
	norm := model.NewPathNormalizer(prj, nil)
	graphs := make(map[*model.Target]*model.BuildSubgraph)
	for _, target := range prj.AllTargets() {
		build, err := target.ShouldBuild()
		if err != nil {
			return err
		}
		if !build {
			continue
		}
		norm.SetContext(target)
		graph, err := target.Type().BuildSubgraph(t, target)
		if err != nil {
			return err
		}
		for _, node := range graph.AllNodes() {
			if err := normalizeNode(node, norm); err != nil {
				return err
			}
		}
		graphs[target] = graph
	}

	for _, module := range prj.Modules() {
		if err := t.genMakefile(prj, graphs, module); err != nil {
			return err
		}
	}

	return nil
}

func normalizeNode(node *model.BuildNode, norm *model.PathNormalizer) error {
	for _, items := range [][]expr.Expr{node.Inputs, node.Outputs, node.Commands} {
		for i, e := range items {
			out, err := norm.Rewrite(e)
			if err != nil {
				return err
			}
			items[i] = out
		}
	}

	return nil
}

// submakefile describes one recursive make invocation, with the
// already-rendered directory and file name.
type submakefile struct {
	name string
	dir  string
	file string
	deps []string
}

func (t *MakeToolset) genMakefile(prj *model.Project, graphs map[*model.Target]*model.BuildSubgraph, module *model.Module) error {
	state := &MakeState{}

	value, err := module.VariableValue(t.MakefileProperty())
	if err != nil {
		return err
	}
	outPath, ok := value.(*expr.Path)
	if !ok {
		return expr.Errorf(value.Position(),
			"%s must be a constant path (%s)", t.MakefileProperty(), value)
	}
	rel, err := outPath.NativePathForOutput("")
	if err != nil {
		return err
	}
	out := Current()
	output := out.Path(rel)

	paths, err := expr.NewPathAnchors("/", output, "", prj.TopModule().Srcdir())
	if err != nil {
		return expr.WithPos(err, module.Position())
	}
	fmtr := t.Dialect.Formatter(paths, state)

	f, err := out.NewFile(output, EOLUnix, fmt.Sprintf("%s (%s)", t.ToolsetName, module))
	if err != nil {
		return err
	}
	if err := t.Dialect.Header(f, module); err != nil {
		return err
	}
	if err := t.genSettings(prj, fmtr, f); err != nil {
		return err
	}

	// Renders a dependency on another target: the file its main node
	// produces, or the phony name for targets that build no files.
	formatDep := func(dep *model.Target) (string, error) {
		graph, ok := graphs[dep]
		if !ok {
			return "", expr.Errorf(dep.Position(),
				"target %q is not built by this toolset", dep.Name())
		}
		main := graph.Main
		if main.IsPhony() {
			if dep.Module() != module {
				return "", expr.Errorf(dep.Position(),
					"cross-module dependencies on phony targets (%q) not supported yet",
					dep.Name())
			}

			return main.Name, nil
		}

		return fmtr.Format(main.Outputs[0])
	}

	// The "all" target builds every target of the module and recurses
	// into the submodules.
	var allDeps []string
	for _, target := range module.Targets() {
		if _, ok := graphs[target]; !ok {
			continue
		}
		s, err := formatDep(target)
		if err != nil {
			return err
		}
		allDeps = append(allDeps, s)
	}
	for _, sub := range module.Submodules() {
		allDeps = append(allDeps, sub.Name())
	}
	f.WriteString(t.Syntax.Rule("all", allDeps, nil))

	phonyTargets := []string{"all", "clean"}

	var submakes []submakefile
	for _, sub := range module.Submodules() {
		subValue, err := sub.VariableValue(t.MakefileProperty())
		if err != nil {
			return err
		}
		subPath, ok := subValue.(*expr.Path)
		if !ok || len(subPath.Components) == 0 {
			return expr.Errorf(subValue.Position(),
				"%s must be a constant path (%s)", t.MakefileProperty(), subValue)
		}
		dir, err := fmtr.Format(subPath.Directory())
		if err != nil {
			return err
		}
		file, err := fmtr.Format(subPath.Components[len(subPath.Components)-1])
		if err != nil {
			return err
		}
		deps, err := t.submoduleDeps(prj, module, sub, formatDep)
		if err != nil {
			return err
		}
		submakes = append(submakes, submakefile{sub.Name(), dir, file, deps})
	}
	for _, sm := range submakes {
		cmd := t.Syntax.SubmakeCommand(sm.dir, sm.file, "all")
		f.WriteString(t.Syntax.Rule(sm.name, sm.deps, []string{cmd}))
		phonyTargets = append(phonyTargets, sm.name)
	}

	// Files produced in other modules that this makefile depends on.
	// Building them means invoking the submodule's makefile.
	var subTargetOrder []string
	subTargets := make(map[string]*model.Module)

	for _, target := range module.Targets() {
		graph, ok := graphs[target]
		if !ok {
			continue
		}

		ids, err := depIDs(target)
		if err != nil {
			return err
		}
		var targetDeps []string
		for _, id := range ids {
			tdep, err := prj.Target(id)
			if err != nil {
				return expr.WithPos(err, target.Position())
			}
			depstr, err := formatDep(tdep)
			if err != nil {
				return err
			}
			targetDeps = append(targetDeps, depstr)
			if tdep.Module() != module {
				// Tie the external dependency to the submodule that
				// builds it, so a plain "make" gets the order right.
				tmod := tdep.Module()
				for {
					parent, ok := tmod.Parent().(*model.Module)
					if !ok || parent == module {
						break
					}
					tmod = parent
				}
				if p, ok := tmod.Parent().(*model.Module); ok && p == module {
					if _, dup := subTargets[depstr]; !dup {
						subTargetOrder = append(subTargetOrder, depstr)
						subTargets[depstr] = tmod
					}
				}
			}
		}

		for _, node := range graph.AllNodes() {
			deps := make([]string, 0, len(node.Inputs)+len(targetDeps))
			for _, in := range node.Inputs {
				s, err := fmtr.Format(in)
				if err != nil {
					return err
				}
				deps = append(deps, s)
			}
			if node == graph.Main {
				deps = append(deps, targetDeps...)
			}
			commands := make([]string, 0, len(node.Commands))
			for _, c := range node.Commands {
				s, err := fmtr.Format(c)
				if err != nil {
					return err
				}
				commands = append(commands, s)
			}

			if node.IsPhony() {
				phonyTargets = append(phonyTargets, node.Name)
				f.WriteString(t.Syntax.Rule(node.Name, deps, commands))

				continue
			}
			outs := make([]string, len(node.Outputs))
			for i, o := range node.Outputs {
				s, err := fmtr.Format(o)
				if err != nil {
					return err
				}
				outs[i] = s
			}
			if len(outs) == 1 {
				f.WriteString(t.Syntax.Rule(outs[0], deps, commands))
			} else {
				text, err := t.Syntax.MultiOutputRule(node.Outputs, outs, deps, commands)
				if err != nil {
					return err
				}
				f.WriteString(text)
			}
		}
	}

	if len(subTargetOrder) > 0 {
		f.WriteString("# Targets from sub-makefiles:\n")
		for _, depstr := range subTargetOrder {
			f.WriteString(t.Syntax.Rule(depstr, []string{subTargets[depstr].Name()}, nil))
		}
	}

	clean, err := t.cleanCommands(fmtr, state, graphs, module, submakes)
	if err != nil {
		return err
	}
	f.WriteString(t.Syntax.Rule("clean", nil, clean))

	t.Dialect.PhonyTargets(f, phonyTargets)
	if err := t.Dialect.Footer(f, module, state); err != nil {
		return err
	}

	return f.Commit()
}

func (t *MakeToolset) genSettings(prj *model.Project, fmtr *expr.Formatter, f *File) error {
	settings := prj.Settings()
	if len(settings) == 0 {
		return nil
	}
	f.WriteString("\n" + t.Syntax.Comment("------------\nConfigurable settings:\n") + "\n")
	for _, setting := range settings {
		help, err := setting.VariableValue("help")
		if err != nil {
			return err
		}
		if isNull, err := expr.IsNull(help); err == nil && !isNull {
			s, err := fmtr.Format(help)
			if err != nil {
				return err
			}
			f.WriteString(t.Syntax.Comment(s))
		}
		def, err := setting.VariableValue("default")
		if err != nil {
			return err
		}
		s, err := fmtr.Format(def)
		if err != nil {
			return err
		}
		f.WriteString(t.Syntax.VarDefinition(setting.Name(), s))
	}
	f.WriteString("\n" + t.Syntax.Comment("------------") + "\n")

	return nil
}

// submoduleDeps finds the other parts of the project the submodule's
// targets depend on: files built directly by module, or sibling
// submodules, returned as makefile-level dependencies of the rule that
// recurses into sub.
func (t *MakeToolset) submoduleDeps(prj *model.Project, module, sub *model.Module, formatDep func(*model.Target) (string, error)) ([]string, error) {
	deps := make(map[string]bool)
	inspect := []*model.Module{sub}
	for _, m := range prj.Modules() {
		if m.IsSubmoduleOf(sub) {
			inspect = append(inspect, m)
		}
	}
	for _, m := range inspect {
		for _, target := range m.Targets() {
			ids, err := depIDs(target)
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				tdep, err := prj.Target(id)
				if err != nil {
					return nil, expr.WithPos(err, target.Position())
				}
				tmod := tdep.Module()
				switch {
				case tmod == module:
					s, err := formatDep(tdep)
					if err != nil {
						return nil, err
					}
					deps[s] = true

				case tmod.IsSubmoduleOf(module):
					for {
						parent, ok := tmod.Parent().(*model.Module)
						if !ok || parent == module {
							break
						}
						tmod = parent
					}
					if tmod != sub {
						deps[tmod.Name()] = true
					}
				}
			}
		}
	}

	out := make([]string, 0, len(deps))
	for dep := range deps {
		out = append(out, dep)
	}
	sort.Strings(out)

	return out, nil
}

func (t *MakeToolset) cleanCommands(fmtr *expr.Formatter, state *MakeState, graphs map[*model.Target]*model.BuildSubgraph, module *model.Module, submakes []submakefile) ([]string, error) {
	var clean []string
	if state.UsesBuilddir {
		for _, ext := range t.AutocleanExtensions {
			p := expr.NewPath([]expr.Expr{expr.NewLiteral("*."+ext, expr.Pos{})},
				expr.AnchorBuilddir, "", expr.Pos{})
			s, err := fmtr.Format(p)
			if err != nil {
				return nil, err
			}
			clean = append(clean, t.DelCommand+" "+s)
		}
	}
	for _, target := range module.Targets() {
		graph, ok := graphs[target]
		if !ok {
			continue
		}
		for _, node := range graph.AllNodes() {
			for _, output := range node.Outputs {
				// Outputs already covered by an extension wildcard are
				// skipped; undeterminable extensions delete explicitly.
				if p, ok := output.(*expr.Path); ok {
					if ext, err := p.Extension(); err == nil && containsString(t.AutocleanExtensions, ext) {
						continue
					}
				}
				s, err := fmtr.Format(output)
				if err != nil {
					return nil, err
				}
				clean = append(clean, t.DelCommand+" "+s)
			}
		}
	}
	for _, sm := range submakes {
		clean = append(clean, t.Syntax.SubmakeCommand(sm.dir, sm.file, "clean"))
	}

	return clean, nil
}

func depIDs(target *model.Target) ([]string, error) {
	value, err := target.VariableValue("deps")
	if err != nil {
		return nil, err
	}

	return stringListValue(value)
}

// stringListValue evaluates an expression to its list-of-strings form.
func stringListValue(e expr.Expr) ([]string, error) {
	v, err := expr.AsConst(e)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	if v.Type() == cty.String {
		return []string{v.AsString()}, nil
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, item := it.Element()
		if item.IsNull() {
			continue
		}
		out = append(out, item.AsString())
	}

	return out, nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}

	return false
}

// MakeLiteral renders a literal for a makefile, escaping double quotes.
func MakeLiteral(e *expr.Literal) (string, error) {
	return strings.ReplaceAll(e.Value, `"`, `\"`), nil
}

// MakePlaceholder renders a user setting as a make variable reference,
// resolved when make runs.
func MakePlaceholder(e *expr.Placeholder) (string, error) {
	if e.Name == "arch" {
		return "", expr.Errorf(e.Position(),
			"multi-arch builds are not supported by makefiles ($(arch) referenced)")
	}

	return "$(" + e.Name + ")", nil
}
