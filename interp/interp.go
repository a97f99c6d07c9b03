package interp

import (
	"log/slog"

	"github.com/zclconf/go-cty/cty"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/gen"
	"github.com/vslavik/bakefile/lang"
	"github.com/vslavik/bakefile/log"
	"github.com/vslavik/bakefile/model"
)

// Interpreter does everything necessary to translate input files into
// generated native build files: it builds a project model from them,
// checks it for correctness, optimizes it and creates outputs for all
// enabled toolsets.
//
// Process covers the whole pipeline in one call; the finer-grained
// methods expose the individual steps, which the tests use to inspect
// intermediate models.
type Interpreter struct {
	// Project is the model being worked on. It always reflects the
	// current state of processing.
	Project *model.Project

	// toolsetsToUse restricts generation to the named toolsets. It may
	// name only a subset of the toolsets the input files are written
	// for, or even toolsets the files don't mention. Empty means the
	// files decide.
	toolsetsToUse []string

	usage *usageTracker
}

// New creates an interpreter with an empty project.
func New() *Interpreter {
	return &Interpreter{
		Project: model.NewProject(),
		usage:   newUsageTracker(),
	}
}

// LimitToolsets restricts generation to the given toolsets.
func (i *Interpreter) LimitToolsets(names ...string) {
	i.toolsetsToUse = names
}

// Process interprets a parsed input file and generates the outputs.
func (i *Interpreter) Process(file *lang.File) error {
	if err := i.AddModule(file, i.Project); err != nil {
		return err
	}
	if err := i.Finalize(); err != nil {
		return err
	}

	return i.Generate()
}

// ProcessFile is Process on a file name.
func (i *Interpreter) ProcessFile(path string) error {
	file, err := lang.ParseFile(path)
	if err != nil {
		return err
	}

	return i.Process(file)
}

type pendingSubmodule struct {
	path string
	pos  expr.Pos
}

// AddModule adds a parsed file to the model, without doing any
// optimizations. It may be called more than once, with different files.
// Submodules are loaded recursively.
func (i *Interpreter) AddModule(file *lang.File, parent model.Part) error {
	log.Info("processing", slog.String("file", file.Name))

	var submodules []pendingSubmodule
	b := &builder{
		usage: i.usage,
		onSubmodule: func(path string, pos expr.Pos) error {
			submodules = append(submodules, pendingSubmodule{path, pos})

			return nil
		},
	}
	module, err := b.createModel(file, parent)
	if err != nil {
		return err
	}

	for len(submodules) > 0 {
		sub := submodules[0]
		submodules = submodules[1:]
		subFile, err := lang.ParseFile(sub.path)
		if err != nil {
			return expr.WithPos(err, sub.pos)
		}
		if err := i.AddModule(subFile, module); err != nil {
			return err
		}
	}

	return nil
}

// Finalize checks the model for validity and optimizes it. It runs the
// passes that are common to all toolsets; per-toolset processing
// happens in FinalizeForToolset.
func (i *Interpreter) Finalize() error {
	log.Debug("finalizing the model")

	if err := detectPotentialProblems(i.Project, i.usage); err != nil {
		return err
	}
	if err := normalizeBoolSubexpressions(i.Project); err != nil {
		return err
	}
	if err := normalizeVars(i.Project); err != nil {
		return err
	}
	if err := validateVars(i.Project); err != nil {
		return err
	}
	if err := normalizePaths(i.Project, nil); err != nil {
		return err
	}

	return simplifyExprs(i.Project)
}

// MakeToolsetSpecificModel returns a model that works only with the
// given toolset and has the toolset property set to it. The caller
// still needs to run FinalizeForToolset on it. skipCopy reuses the
// current model instead of cloning, which is safe for the last toolset
// generated.
func (i *Interpreter) MakeToolsetSpecificModel(toolset string, skipCopy bool) *model.Project {
	prj := i.Project
	if !skipCopy {
		prj = prj.Clone()
	}
	prop := prj.PropertyOf("toolset")
	prj.AddVariable(model.NewVariableFromProperty(prop,
		expr.NewLiteral(toolset, expr.Pos{})))

	return prj
}

// FinalizeForToolset runs the passes that need the toolset variable
// set: dropping parts disabled for the toolset, materializing property
// defaults and folding the conditionals the concrete toolset decides.
func (i *Interpreter) FinalizeForToolset(prj *model.Project, toolset string) error {
	if err := removeDisabledParts(prj, toolset); err != nil {
		return err
	}
	if err := makeVariablesForMissingProps(prj, toolset); err != nil {
		return err
	}
	if err := eliminateSuperfluousConditionals(prj); err != nil {
		return err
	}

	// Paths are normalized a second time to deal with those added by
	// the property defaults and with @builddir, which is toolset
	// specific and couldn't be resolved earlier. Already-normalized
	// paths pass through unchanged.
	return normalizePaths(prj, model.LookupToolset(toolset))
}

// Generate produces the output files for every enabled toolset.
func (i *Interpreter) Generate() error {
	// Collect the toolsets requested across all modules.
	var toolsets []string
	for _, module := range i.Project.Modules() {
		v := module.Variable("toolsets")
		if v == nil {
			continue
		}
		names, err := stringList(v.Value())
		if err != nil {
			return err
		}
		for _, name := range names {
			if !contains(toolsets, name) {
				toolsets = append(toolsets, name)
			}
		}
	}

	if len(i.toolsetsToUse) > 0 {
		for _, name := range i.toolsetsToUse {
			if contains(toolsets, name) {
				continue
			}
			if model.LookupToolset(name) == nil {
				return expr.Errorf(expr.Pos{},
					"unknown toolset %q given on command line%s",
					name, suggestion(name, model.ToolsetNames()))
			}
			expr.Warn(expr.WarnUnsupportedToolset, expr.Pos{},
				"toolset %q is not supported by the project, there may be issues", name)
			// Force the toolset into every module so the pruning passes
			// keep their content.
			for _, module := range i.Project.Modules() {
				appendToolset(module, name)
			}
		}
		toolsets = i.toolsetsToUse
	}

	log.Debug("toolsets to generate for", slog.Any("toolsets", toolsets))
	if len(toolsets) == 0 {
		return expr.Errorf(expr.Pos{},
			`nothing to generate, "toolsets" property is empty`)
	}

	// The last toolset can reuse the current model instead of an
	// expensive deep copy.
	for _, toolset := range toolsets[:len(toolsets)-1] {
		if err := i.GenerateForToolset(toolset, false); err != nil {
			return err
		}
	}

	return i.GenerateForToolset(toolsets[len(toolsets)-1], true)
}

// GenerateForToolset generates output for a single toolset.
func (i *Interpreter) GenerateForToolset(toolset string, skipCopy bool) error {
	ts := model.LookupToolset(toolset)
	if ts == nil {
		return expr.Errorf(expr.Pos{}, "unknown toolset %q%s",
			toolset, suggestion(toolset, model.ToolsetNames()))
	}

	log.Debug("preparing model for toolset", slog.String("toolset", toolset))
	prj := i.MakeToolsetSpecificModel(toolset, skipCopy)
	if err := i.FinalizeForToolset(prj, toolset); err != nil {
		return err
	}

	log.Debug("generating for toolset", slog.String("toolset", toolset))
	if err := ts.Generate(prj); err != nil {
		return err
	}

	// Files are staged in memory during generation and only hit the
	// disk once the whole toolset succeeded, so an error above leaves
	// no partial output behind.
	return gen.Current().Commit()
}

func appendToolset(module *model.Module, name string) {
	v := module.Variable("toolsets")
	if v == nil {
		return
	}
	item := expr.NewLiteral(name, expr.Pos{})
	if list, ok := v.Value().(*expr.List); ok {
		items := append(append([]expr.Expr{}, list.Items...), item)
		v.SetValue(expr.NewList(items, list.Position()))
	} else {
		v.SetValue(expr.NewList([]expr.Expr{v.Value(), item}, v.Value().Position()))
	}
}

// stringList evaluates an expression to a list of strings.
func stringList(e expr.Expr) ([]string, error) {
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
