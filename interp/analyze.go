package interp

import (
	"regexp"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/model"
)

// usageTracker records which variables are read anywhere in the model,
// so that unused ones can be warned about. The builder contributes
// expressions that don't end up in the model, e.g. file lists, which
// would otherwise cause spurious warnings.
type usageTracker struct {
	used map[*model.Variable]bool
}

func newUsageTracker() *usageTracker {
	return &usageTracker{used: make(map[*model.Variable]bool)}
}

func (u *usageTracker) markUsed(v *model.Variable) {
	if u == nil || v == nil {
		return
	}
	u.used[v] = true
}

func (u *usageTracker) isUsed(v *model.Variable) bool {
	return u != nil && u.used[v]
}

// markExprUsed marks every variable the expression references.
func (u *usageTracker) markExprUsed(e expr.Expr) {
	if u == nil {
		return
	}
	expr.Walk(e, func(x expr.Expr) bool {
		if ref, ok := x.(*expr.Reference); ok {
			if v, err := ref.Variable(); err == nil && v != nil {
				if mv, ok := v.(*model.Variable); ok && !mv.IsProperty() {
					u.used[mv] = true
				}
			}
		}

		return true
	})
}

// markPlaceholderUsed marks the project-scope variable a setting
// placeholder reads through.
func (u *usageTracker) markPlaceholderUsed(prj *model.Project, e *expr.Placeholder) {
	if u == nil {
		return
	}
	if v := prj.Variable(e.Name); v != nil && !v.IsProperty() {
		u.used[v] = true
	}
}

// detectSelfReferences verifies that recursive self-referencing loops,
// e.g. foo = $(foo), don't exist.
func detectSelfReferences(prj *model.Project) error {
	c := &selfRefChecker{
		stack:   make(map[*model.Variable]bool),
		checked: make(map[*model.Variable]bool),
	}

	return eachVariable(prj, func(_ model.Part, v *model.Variable) error {
		return c.check(v)
	})
}

type selfRefChecker struct {
	stack   map[*model.Variable]bool
	checked map[*model.Variable]bool
}

func (c *selfRefChecker) check(v *model.Variable) error {
	if c.checked[v] {
		return nil
	}
	c.stack[v] = true
	err := c.checkExpr(v.Value())
	delete(c.stack, v)
	if err != nil {
		return err
	}
	c.checked[v] = true

	return nil
}

func (c *selfRefChecker) checkExpr(e expr.Expr) error {
	var failed error
	expr.Walk(e, func(x expr.Expr) bool {
		if failed != nil {
			return false
		}
		ref, ok := x.(*expr.Reference)
		if !ok {
			return true
		}
		v, err := ref.Variable()
		if err != nil || v == nil {
			// A reference to the default value of a property cannot form
			// a cycle.
			return true
		}
		mv, ok := v.(*model.Variable)
		if !ok {
			return true
		}
		if c.stack[mv] {
			failed = expr.Errorf(ref.Position(),
				"variable %q is defined recursively, references itself", ref.Name)

			return false
		}
		failed = c.check(mv)

		return failed == nil
	})

	return failed
}

// vsOptionName matches per-project Visual Studio option passthroughs,
// which are consumed by name pattern rather than by variable lookup.
var vsOptionName = regexp.MustCompile(`^vs[0-9]+\.option\.`)

// detectUnusedVars warns about variables never read anywhere; they often
// indicate typos.
func detectUnusedVars(prj *model.Project, usage *usageTracker) {
	model.EachVariable(prj, func(v *model.Variable) {
		usage.markExprUsed(v.Value())
		expr.Walk(v.Value(), func(x expr.Expr) bool {
			if ph, ok := x.(*expr.Placeholder); ok {
				usage.markPlaceholderUsed(prj, ph)
			}

			return true
		})
	})

	model.EachVariable(prj, func(v *model.Variable) {
		if v.IsProperty() || usage.isUsed(v) {
			return
		}
		if vsOptionName.MatchString(v.Name()) || v.Name() == "configurations" {
			return
		}
		expr.Warn(expr.WarnUnusedVariable, v.Value().Position(),
			"variable %q is never used", v.Name())
	})
}

// detectMissingGeneratedOutputs warns about generated source files whose
// outputs are not included in sources or headers, and so would be built
// but never compiled.
func detectMissingGeneratedOutputs(prj *model.Project) {
	for _, target := range prj.AllTargets() {
		names := make(map[string]bool)
		for _, f := range target.AllSourceFiles() {
			names[f.Name()] = true
		}
		for _, f := range target.AllSourceFiles() {
			commands, err := f.VariableValue("compile-commands")
			if err != nil {
				continue
			}
			if used, err := expr.Truthy(commands); err != nil || !used {
				continue
			}
			outputs, err := f.VariableValue("outputs")
			if err != nil {
				continue
			}
			values, err := expr.PossibleValues(outputs, nil)
			if err != nil {
				continue
			}
			for _, cv := range values {
				name, err := expr.NameFromPath(cv.Value)
				if err != nil || names[name] {
					continue
				}
				expr.Warn(expr.WarnUnusedGeneratedOutput, cv.Value.Position(),
					"file %s generated from %s is not among sources or headers of target %q",
					cv.Value, f.Filename(), target.Name())
			}
		}
	}
}

// eachVariable walks all variables of the model, stopping on the first
// error.
func eachVariable(p model.Part, fn func(model.Part, *model.Variable) error) error {
	for _, v := range p.Variables() {
		if err := fn(p, v); err != nil {
			return err
		}
	}
	for _, ch := range p.ChildParts() {
		if err := eachVariable(ch, fn); err != nil {
			return err
		}
	}

	return nil
}
