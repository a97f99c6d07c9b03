package interp

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/log"
	"github.com/vslavik/bakefile/model"
)

// detectPotentialProblems runs the warning-generating steps that catch
// common mistakes in the input.
func detectPotentialProblems(prj *model.Project, usage *usageTracker) error {
	if err := detectSelfReferences(prj); err != nil {
		return err
	}
	detectUnusedVars(prj, usage)
	detectMissingGeneratedOutputs(prj)

	return nil
}

// normalizeBoolSubexpressions ensures conditions inside values are valid
// boolean expressions.
func normalizeBoolSubexpressions(prj *model.Project) error {
	log.Debug("checking boolean expressions")

	return eachVariable(prj, func(_ model.Part, v *model.Variable) error {
		value, err := model.NormalizeBoolSubexpressions(v.Value())
		if err != nil {
			return err
		}
		v.SetValue(value)

		return nil
	})
}

// normalizeVars normalizes variable values with respect to their types,
// e.g. turns a plain value assigned to a list variable into a
// single-item list. Untyped variables get their type guessed first.
func normalizeVars(prj *model.Project) error {
	log.Debug("normalizing variables")

	return eachVariable(prj, func(_ model.Part, v *model.Variable) error {
		if v.Type() == model.TypeAny {
			v.SetType(model.GuessType(v.Value()))
		}
		value, err := v.Type().Normalize(v.Value())
		if err != nil {
			return err
		}
		v.SetValue(value)

		return nil
	})
}

// validateVars checks the values against their types. normalizeVars must
// have run before.
func validateVars(prj *model.Project) error {
	log.Debug("checking types of variables")

	return eachVariable(prj, func(_ model.Part, v *model.Variable) error {
		if err := v.Type().Validate(v.Value()); err != nil {
			var typeErr *model.TypeError
			if errors.As(err, &typeErr) {
				msg := typeErr.Error()
				if pos := typeErr.Position(); pos.IsValid() {
					msg = strings.TrimPrefix(msg, pos.String()+": ")
				}

				return expr.Errorf(typeErr.Position(), "variable %q (%s): %s",
					v.Name(), v.Type(), msg)
			}

			return err
		}

		return nil
	})
}

// removeDisabledParts removes targets, source files, settings and
// modules whose condition evaluates statically to false. Conditions
// that cannot be determined yet keep the part where the output format
// can decide at build time, and are an error otherwise.
func removeDisabledParts(prj *model.Project, toolset string) error {
	shouldRemove := func(p model.Part, allowDynamic bool) (bool, error) {
		build, err := p.ShouldBuild()
		if err != nil {
			var cannot *expr.CannotDetermineError
			if errors.As(err, &cannot) && allowDynamic {
				return false, nil
			}

			return false, err
		}

		return !build, nil
	}

	for _, module := range prj.Modules() {
		var targetsToDel []*model.Target
		for _, target := range module.Targets() {
			remove, err := shouldRemove(target, true)
			if err != nil {
				return err
			}
			if remove {
				targetsToDel = append(targetsToDel, target)

				continue
			}
			var failed error
			keep := func(f *model.SourceFile) bool {
				if failed != nil {
					return true
				}
				remove, err := shouldRemove(f, true)
				if err != nil {
					failed = err

					return true
				}
				if remove {
					log.Debug("removing disabled file",
						slog.String("file", f.String()),
						slog.String("target", target.Name()))
				}

				return !remove
			}
			target.FilterSources(keep)
			target.FilterHeaders(keep)
			if failed != nil {
				return failed
			}
		}
		for _, target := range targetsToDel {
			log.Debug("removing disabled target", slog.String("target", target.Name()))
			module.RemoveTarget(target)
		}
	}

	// Drop submodules that ended up empty and those not participating in
	// the toolset being generated.
	var modulesToDel []*model.Module
	for _, module := range prj.Modules() {
		if module == prj.TopModule() {
			continue
		}
		if len(module.Submodules()) == 0 && len(module.Targets()) == 0 {
			log.Debug("removing empty module",
				slog.String("module", module.SourceFilePath()))
			modulesToDel = append(modulesToDel, module)

			continue
		}
		toolsets, err := moduleToolsets(module)
		if err != nil {
			return err
		}
		if !contains(toolsets, toolset) {
			log.Debug("removing module not for toolset",
				slog.String("module", module.SourceFilePath()),
				slog.String("toolset", toolset))
			modulesToDel = append(modulesToDel, module)
		}
	}
	for _, module := range modulesToDel {
		prj.RemoveModule(module)
	}

	var settingsToDel []*model.Setting
	for _, setting := range prj.Settings() {
		remove, err := shouldRemove(setting, false)
		if err != nil {
			return err
		}
		if remove {
			settingsToDel = append(settingsToDel, setting)
		}
	}
	for _, setting := range settingsToDel {
		log.Debug("removing disabled setting", slog.String("setting", setting.Name()))
		prj.RemoveSetting(setting)
	}

	return nil
}

// normalizePaths runs [model.PathNormalizer] over the whole model. A
// nil toolset leaves @builddir paths alone; the pass runs again with
// the concrete toolset during finalization.
func normalizePaths(prj *model.Project, toolset model.Toolset) error {
	log.Debug("translating relative paths into absolute")
	norm := model.NewPathNormalizer(prj, toolset)

	for _, module := range prj.Modules() {
		norm.SetContext(module)
		for _, v := range module.Variables() {
			if err := rewriteVariable(v, norm.Rewrite); err != nil {
				return err
			}
		}
		for _, target := range module.Targets() {
			norm.SetContext(target)
			var failed error
			model.EachVariable(target, func(v *model.Variable) {
				if failed == nil {
					failed = rewriteVariable(v, norm.Rewrite)
				}
			})
			if failed != nil {
				return failed
			}
		}
	}

	return nil
}

func rewriteVariable(v *model.Variable, rewrite func(expr.Expr) (expr.Expr, error)) error {
	value, err := rewrite(v.Value())
	if err != nil {
		return err
	}
	v.SetValue(value)

	return nil
}

// makeVariablesForMissingProps materializes default values for
// properties without a variable, recursively over the whole model.
func makeVariablesForMissingProps(p model.Part, toolset string) error {
	if err := p.MakeVariablesForMissingProps(toolset); err != nil {
		return err
	}
	for _, ch := range p.ChildParts() {
		if err := makeVariablesForMissingProps(ch, toolset); err != nil {
			return err
		}
	}

	return nil
}

// simplifyExprs does the cheap simplifications: merging concatenated
// literals, eliminating unnecessary variable references and the like.
func simplifyExprs(prj *model.Project) error {
	log.Debug("simplifying expressions")

	return eachVariable(prj, func(_ model.Part, v *model.Variable) error {
		return rewriteVariable(v, expr.SimplifyBasic)
	})
}

// eliminateSuperfluousConditionals folds away as much conditional
// content as possible, repeating until nothing changes: deciding one
// conditional can make others decidable.
func eliminateSuperfluousConditionals(prj *model.Project) error {
	for iteration := 1; ; iteration++ {
		log.Debug("removing superfluous conditional expressions",
			slog.Int("pass", iteration))
		modified := false
		err := eachVariable(prj, func(_ model.Part, v *model.Variable) error {
			old := v.Value()
			value, err := expr.Simplify(old)
			if err != nil {
				return err
			}
			if value != old {
				modified = true
				v.SetValue(value)
			}

			return nil
		})
		if err != nil {
			return err
		}
		if !modified {
			return nil
		}
	}
}

func moduleToolsets(module *model.Module) ([]string, error) {
	value, err := module.VariableValue("toolsets")
	if err != nil {
		return nil, err
	}

	return stringList(value)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}

	return false
}
