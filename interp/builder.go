package interp

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/lang"
	"github.com/vslavik/bakefile/log"
	"github.com/vslavik/bakefile/model"
)

// builder processes a parse tree and constructs model parts from it.
//
// It doesn't do anything smart such as optimizing: only the minimal
// processing needed to produce a valid, albeit suboptimal, model. That
// includes checking variable scopes, but not type correctness; the
// Interpreter's passes handle that later.
type builder struct {
	// context is the inner-most model part at the current point of the
	// walk: the module initially, a target while inside its body and so
	// on.
	context model.Part

	// cond tracks the conditions of enclosing if statements.
	cond expr.CondStack

	// onSubmodule is called for every submodule statement; loading the
	// referenced file is the caller's business.
	onSubmodule func(path string, pos expr.Pos) error

	usage *usageTracker
}

// createModel builds a module from one file's parse tree.
func (b *builder) createModel(file *lang.File, parent model.Part) (*model.Module, error) {
	mod := model.NewModule(parent, expr.Pos{File: file.Name})
	if err := b.handleChildren(file.Stmts, mod); err != nil {
		return nil, err
	}

	return mod, nil
}

// handleChildren runs model creation of all child statements with the
// given part as the local scope.
func (b *builder) handleChildren(stmts []lang.Node, context model.Part) error {
	saved := b.context
	b.context = context
	defer func() { b.context = saved }()

	for _, n := range stmts {
		if err := b.handleNode(n); err != nil {
			return expr.WithPos(err, n.Position())
		}
	}

	return nil
}

func (b *builder) handleNode(n lang.Node) error {
	switch t := n.(type) {
	case *lang.AssignNode:
		return b.onAssignment(t)
	case *lang.FilesListNode:
		return b.onSourcesOrHeaders(t)
	case *lang.IfNode:
		return b.onIf(t)
	case *lang.TargetNode:
		return b.onTarget(t)
	case *lang.TemplateNode:
		return b.onTemplate(t)
	case *lang.ConfigurationNode:
		return b.onConfiguration(t)
	case *lang.SettingNode:
		return b.onSetting(t)
	case *lang.SubmoduleNode:
		return b.onSubmoduleStmt(t)
	case *lang.ImportNode:
		return b.onImport(t)
	case *lang.SrcdirNode:
		return b.onSrcdir(t)
	}

	panic(fmt.Sprintf("unrecognized statement node %T", n))
}

func (b *builder) onAssignment(n *lang.AssignNode) error {
	value, err := b.buildExpression(n.Value)
	if err != nil {
		return err
	}
	cond := b.cond.Active()
	varname := n.Var
	context := b.context

	if strings.HasPrefix(varname, "_") {
		expr.Warn(expr.WarnUnderscoreVariable, n.VarPos,
			"variable names beginning with underscore are reserved for internal use (%q)",
			varname)
	}

	variable := context.Variable(varname)
	previous := variable
	if previous == nil {
		// The variable may still exist in a higher scope, in which case
		// the value is inherited from there, not from a property.
		if resolved, _ := context.ResolveVariable(varname); resolved != nil {
			previous = resolved.(*model.Variable)
		}
	}

	if variable == nil {
		// An assignment matching a known property's name assigns to that
		// property, so the new variable takes the property's type.
		if prop := context.MatchingProperty(varname); prop != nil {
			propval := expr.Expr(expr.NewNull(n.Position()))
			if n.Append || cond != nil {
				propval, err = prop.DefaultExpr(context, false)
				if err != nil {
					return err
				}
			}
			variable = model.NewVariableFromProperty(prop, propval)
			context.AddVariable(variable)
			// The property serves as the previous value, but only when it
			// exists at this very scope; a lower-scope inheritable
			// property set here has nothing to inherit from.
			if previous == nil && context.PropertyOf(varname) != nil {
				previous = variable
			}
		}
	}

	// A conditional assignment folds the condition into the value.
	if cond != nil {
		if n.Append {
			// When conditionally appending to a list it's better to
			// associate the condition with the individual items.
			if list, ok := value.(*expr.List); ok {
				items := make([]expr.Expr, len(list.Items))
				for i, item := range list.Items {
					items[i] = expr.NewIf(cond, item,
						expr.NewNull(item.Position()), item.Position())
				}
				value = expr.NewList(items, list.Position())
			} else {
				value = expr.NewIf(cond, value,
					expr.NewNull(n.Position()), n.Position())
			}
		} else {
			older := expr.Expr(expr.NewNull(n.Position()))
			if previous != nil {
				older = previous.Value()
			}
			value = expr.NewIf(cond, value, older, n.Position())
		}
	}

	if variable == nil {
		if n.Append && previous == nil {
			return expr.Errorf(n.VarPos, "unknown variable %q", varname)
		}
		if previous != nil {
			if previous.IsReadOnly() {
				return expr.Errorf(n.VarPos, "variable %q is read-only", varname)
			}
			variable = model.NewVariable(varname, previous.Value(),
				previous.Type(), previous.Position())
		} else {
			variable = model.NewVariable(varname, value, nil, n.Position())
		}
		context.AddVariable(variable)
	}

	if n.Append {
		if _, isList := variable.Type().(*model.ListType); !isList {
			if variable.Type() != model.TypeAny {
				return expr.Errorf(n.Position(),
					"cannot append to non-list variable %q (type: %s)",
					varname, variable.Type())
			}
			// An undetermined type may as well be a list.
			variable.SetType(model.NewListType(model.TypeAny))
		}
		var added []expr.Expr
		if list, ok := value.(*expr.List); ok {
			added = list.Items
		} else {
			added = []expr.Expr{value}
		}
		switch {
		case previous == nil:
			// Appending to an inheritable list property with an empty
			// default.
			value = expr.NewList(added, n.Position())
		default:
			var items []expr.Expr
			if list, ok := previous.Value().(*expr.List); ok {
				items = append(items, list.Items...)
			} else {
				items = append(items, previous.Value())
			}
			value = expr.NewList(append(items, added...), n.Position())
		}
	}

	if err := variable.Assign(value, n.Position()); err != nil {
		return err
	}

	// A variable modified in another scope and never read elsewhere is
	// not worth an unused-variable warning.
	b.usage.markUsed(previous)

	return nil
}

func (b *builder) onSourcesOrHeaders(n *lang.FilesListNode) error {
	target, ok := b.context.(*model.Target)
	if !ok {
		return expr.Errorf(n.Position(),
			"%s may only be listed inside a target", n.Kind)
	}
	add := target.AddSource
	if n.Kind == "headers" {
		add = target.AddHeader
	}

	items := make([]expr.Expr, 0, len(n.Files))
	for _, f := range n.Files {
		e, err := b.buildExpression(f)
		if err != nil {
			return err
		}
		items = append(items, e)
	}
	files := expr.Expr(expr.NewList(items, n.Position()))
	if len(items) == 1 {
		files = items[0]
	}
	b.usage.markExprUsed(files)

	values, err := expr.PossibleValues(files, b.cond.Active())
	if err != nil {
		return err
	}
	for _, cv := range values {
		f := model.NewSourceFile(target, cv.Value, cv.Value.Position())
		if cv.Cond != nil {
			f.SetPropertyValue("_condition", cv.Cond)
		}
		add(f)
	}

	return nil
}

func (b *builder) onIf(n *lang.IfNode) error {
	cond, err := b.buildExpression(n.Cond)
	if err != nil {
		return err
	}
	b.cond.Push(cond)
	defer b.cond.Pop()

	return b.handleChildren(n.Body, b.context)
}

func (b *builder) onTarget(n *lang.TargetNode) error {
	module, ok := b.context.(*model.Module)
	if !ok {
		return expr.Errorf(n.Position(),
			"targets can only be defined in module scope")
	}
	prj := module.Project()
	if prj.HasTarget(n.Name) {
		existing, _ := prj.Target(n.Name)

		return expr.Errorf(n.Position(),
			"target with ID %q already exists (see %s)",
			n.Name, existing.Position())
	}

	targetType := model.LookupTargetType(n.Type)
	if targetType == nil {
		return expr.Errorf(n.Position(), "unknown target type %q%s",
			n.Type, suggestion(n.Type, model.TargetTypeNames()))
	}
	target := model.NewTarget(module, n.Name, targetType, n.Position())
	if cond := b.cond.Active(); cond != nil {
		target.SetPropertyValue("_condition", cond)
	}

	// Conditions of the enclosing statements apply to the target's
	// existence, not to the assignments of its body.
	saved := b.cond.Reset()
	defer b.cond.Restore(saved)

	if err := b.applyTemplates(target, n.Bases, n.Position(), map[string]bool{}); err != nil {
		return err
	}

	return b.handleChildren(n.Body, target)
}

// applyTemplates replays templates into a target, depth-first so that
// bases apply before the templates derived from them. Diamond
// inheritance applies every template at most once.
func (b *builder) applyTemplates(target *model.Target, names []string, pos expr.Pos, applied map[string]bool) error {
	prj := target.Project()
	for _, name := range names {
		t := prj.Template(name)
		if t == nil {
			return expr.Errorf(pos, "unknown base template %q%s",
				name, suggestion(name, templateNames(prj)))
		}
		if err := b.applyTemplate(target, t, applied); err != nil {
			return err
		}
	}

	return nil
}

func (b *builder) applyTemplate(target *model.Target, t *model.Template, applied map[string]bool) error {
	if applied[t.Name] {
		log.Debug("skipping already-applied template",
			slog.String("template", t.Name),
			slog.String("target", target.Name()))

		return nil
	}
	for _, base := range t.Bases {
		if err := b.applyTemplate(target, base, applied); err != nil {
			return err
		}
	}
	applied[t.Name] = true
	log.Debug("applying template",
		slog.String("template", t.Name),
		slog.String("target", target.Name()))

	return b.handleChildren(t.Definition(), target)
}

func templateNames(prj *model.Project) []string {
	names := make([]string, 0, len(prj.Templates()))
	for name := range prj.Templates() {
		names = append(names, name)
	}

	return names
}

func (b *builder) onTemplate(n *lang.TemplateNode) error {
	if cond := b.cond.Active(); cond != nil {
		return expr.Errorf(n.Position(),
			"templates can't be defined conditionally (condition %q set at %s)",
			cond, cond.Position())
	}

	prj := b.context.Project()
	if previous := prj.Template(n.Name); previous != nil {
		if previous.Position() == n.Position() {
			// The template comes from a file imported twice; ignore it.
			return nil
		}

		return expr.Errorf(n.Position(), "template %q already defined (at %s)",
			n.Name, previous.Position())
	}

	bases := make([]*model.Template, 0, len(n.Bases))
	for _, name := range n.Bases {
		base := prj.Template(name)
		if base == nil {
			return expr.Errorf(n.Position(), "unknown base template %q%s",
				name, suggestion(name, templateNames(prj)))
		}
		bases = append(bases, base)
	}

	t := model.NewTemplate(n.Name, bases, n.Position())
	t.SetDefinition(n.Body)
	prj.AddTemplate(t)

	return nil
}

func (b *builder) onConfiguration(n *lang.ConfigurationNode) error {
	if cond := b.cond.Active(); cond != nil {
		return expr.Errorf(n.Position(),
			"configurations can't be defined conditionally (condition %q set at %s)",
			cond, cond.Position())
	}

	prj := b.context.Project()
	var cfg *model.Configuration
	if n.Name == "Debug" || n.Name == "Release" {
		if n.Base != "" {
			return expr.Errorf(n.Position(),
				"Debug and Release configurations can't be derived from another")
		}
		cfg = prj.Configuration(n.Name)
	} else {
		if n.Base == "" {
			return expr.Errorf(n.Position(),
				"configurations other than Debug and Release must derive from another")
		}
		if previous := prj.Configuration(n.Name); previous != nil {
			if previous.Position() == n.Position() {
				// Defined in a file imported twice; ignore it.
				return nil
			}

			return expr.Errorf(n.Position(),
				"configuration %q already defined (at %s)",
				n.Name, previous.Position())
		}
		base := prj.Configuration(n.Base)
		if base == nil {
			return expr.Errorf(n.Position(), "unknown base configuration %q%s",
				n.Base, suggestion(n.Base, configurationNames(prj)))
		}
		cfg = base.DeriveNew(n.Name, n.Position())
		prj.AddConfiguration(cfg)
	}

	if n.Base != "" {
		// The full definition replays the whole chain, so assignments of
		// the derived configuration override the base's.
		base := prj.Configuration(n.Base).Definition()
		def := make([]lang.Node, 0, len(base)+len(n.Body))
		def = append(def, base...)
		def = append(def, n.Body...)
		cfg.SetDefinition(def)
	} else {
		cfg.SetDefinition(n.Body)
	}

	configCond := expr.NewBool(expr.OpEqual,
		expr.NewReference("config", b.context, n.Position()),
		expr.NewLiteral(n.Name, n.Position()),
		n.Position())
	b.cond.Push(configCond)
	defer b.cond.Pop()

	return b.handleChildren(cfg.Definition(), b.context)
}

func configurationNames(prj *model.Project) []string {
	configs := prj.Configurations()
	names := make([]string, len(configs))
	for i, c := range configs {
		names[i] = c.Name()
	}

	return names
}

func (b *builder) onSetting(n *lang.SettingNode) error {
	prj := b.context.Project()
	if previous := prj.Setting(n.Name); previous != nil {
		if previous.Position() == n.Position() {
			// Defined in a file imported twice; ignore it.
			return nil
		}

		return expr.Errorf(n.Position(), "setting %q already exists (see %s)",
			n.Name, previous.Position())
	}

	setting := model.NewSetting(b.context, n.Name, n.Position())

	// A dummy variable at project scope referencing the setting, so that
	// settings can be read like ordinary variables.
	value := expr.Expr(expr.NewPlaceholder(n.Name, n.Position()))
	if cond := b.cond.Active(); cond != nil {
		setting.SetPropertyValue("_condition", cond)
		value = expr.NewIf(cond, value, expr.NewNull(n.Position()), n.Position())
	}
	prj.AddVariable(model.NewVariable(n.Name, value, nil, n.Position()))

	return b.handleChildren(n.Body, setting)
}

func (b *builder) onSubmoduleStmt(n *lang.SubmoduleNode) error {
	if cond := b.cond.Active(); cond != nil {
		return expr.Errorf(n.Position(),
			"conditionally included submodules not supported yet (condition %q set at %s)",
			cond, cond.Position())
	}
	path := relativeTo(n.Position().File, n.Path)

	return b.onSubmodule(path, n.Position())
}

func (b *builder) onImport(n *lang.ImportNode) error {
	if cond := b.cond.Active(); cond != nil {
		return expr.Errorf(n.Position(),
			"imports cannot be done conditionally (condition %q set at %s)",
			cond, cond.Position())
	}
	path := relativeTo(n.Position().File, n.Path)

	// Skip the file when it was already imported here or in any parent
	// module: its definitions are in scope in either case.
	for part := model.Part(b.context.Module()); part != nil; part = part.Parent() {
		mod, ok := part.(*model.Module)
		if !ok {
			break
		}
		if mod.Imports()[path] {
			log.Debug("skipping already-imported file",
				slog.String("file", path),
				slog.String("module", mod.SourceFilePath()))

			return nil
		}
	}

	module := b.context.Module()
	log.Debug("importing file",
		slog.String("file", path),
		slog.String("module", module.SourceFilePath()))
	imported, err := lang.ParseFile(path)
	if err != nil {
		return err
	}
	module.AddImport(path)

	return b.handleChildren(imported.Stmts, b.context)
}

func (b *builder) onSrcdir(n *lang.SrcdirNode) error {
	module, ok := b.context.(*model.Module)
	if !ok || b.cond.Active() != nil {
		return expr.Errorf(n.Position(),
			"srcdir must precede all other statements of the file")
	}

	// srcdir may be used inside an imported file, so it applies to the
	// file the statement is written in, not to the module's own file.
	current := n.Position().File
	dir := relativeTo(current, n.Path)
	log.Debug("overriding srcdir",
		slog.String("file", current),
		slog.String("srcdir", dir))
	module.Project().SetSrcdir(current, dir)

	return nil
}

// relativeTo resolves a path written in the given file against the
// file's directory.
func relativeTo(file, path string) string {
	return filepath.Clean(filepath.Join(filepath.Dir(file), path))
}

// buildExpression turns a value's parse tree into an expression bound to
// the current scope.
func (b *builder) buildExpression(n lang.Node) (expr.Expr, error) {
	switch t := n.(type) {
	case *lang.LiteralNode:
		return literalExpr(t), nil

	case *lang.ReferenceNode:
		return expr.NewReference(t.Var, b.context, t.Position()), nil

	case *lang.NullNode:
		return expr.NewNull(t.Position()), nil

	case *lang.ListNode:
		items, err := b.buildExpressions(t.Items)
		if err != nil {
			return nil, err
		}

		return expr.NewList(items, t.Position()), nil

	case *lang.ConcatNode:
		items, err := b.buildExpressions(t.Items)
		if err != nil {
			return nil, err
		}

		return expr.NewConcat(items, t.Position()), nil

	case *lang.NotNode:
		operand, err := b.buildExpression(t.Operand)
		if err != nil {
			return nil, err
		}

		return expr.NewNot(operand, t.Position()), nil

	case *lang.BoolOpNode:
		left, err := b.buildExpression(t.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.buildExpression(t.Right)
		if err != nil {
			return nil, err
		}

		return expr.NewBool(t.Op, left, right, t.Position()), nil
	}

	panic(fmt.Sprintf("unrecognized value node %T", n))
}

func (b *builder) buildExpressions(nodes []lang.Node) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(nodes))
	for i, n := range nodes {
		e, err := b.buildExpression(n)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}

	return out, nil
}

// literalExpr interprets a bare word: the boolean keywords become typed
// values and words starting with a path anchor become (fragments of)
// anchored paths. Everything else stays a literal; the type system
// decides its meaning later.
func literalExpr(t *lang.LiteralNode) expr.Expr {
	switch t.Text {
	case "true":
		return expr.NewBoolValue(true, t.Position())
	case "false":
		return expr.NewBoolValue(false, t.Position())
	}
	if strings.HasPrefix(t.Text, "@") {
		for _, anchor := range expr.Anchors() {
			name := string(anchor)
			if t.Text == name {
				return expr.NewPath(nil, anchor, t.Position().File, t.Position())
			}
			if rest, ok := strings.CutPrefix(t.Text, name+"/"); ok {
				return expr.NewConcat([]expr.Expr{
					expr.NewPath(nil, anchor, t.Position().File, t.Position()),
					expr.NewLiteral(rest, t.Position()),
				}, t.Position())
			}
		}
	}

	return expr.NewLiteral(t.Text, t.Position())
}
