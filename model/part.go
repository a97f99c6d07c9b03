package model

import (
	"fmt"
	"log/slog"

	"github.com/zclconf/go-cty/cty"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/log"
)

// Part is one piece of the project model: the project itself, a module, a
// target, a source file or a setting. Anything that can carry variables.
//
// Parts form a tree; variable references resolve lexically through it, so
// every part is an [expr.Scope].
type Part interface {
	expr.Scope
	fmt.Stringer

	// Name returns the part's name, e.g. a target id or a file name.
	Name() string

	// Parent returns the enclosing part, nil for the project.
	Parent() Part

	// Position returns where the part was defined in the input.
	Position() expr.Pos

	// Project returns the project the part belongs to.
	Project() *Project

	// Module returns the module the part belongs to, nil for the project.
	Module() *Module

	// Variable returns the variable defined at this scope, without any
	// recursive resolution, or nil.
	Variable(name string) *Variable

	// Variables returns the part's own variables in definition order.
	Variables() []*Variable

	// AddVariable defines or replaces a variable at this scope.
	AddVariable(v *Variable)

	// ChildParts returns the parts directly beneath this one.
	ChildParts() []Part

	// PropertyOf returns the property named name if it is defined
	// directly for this scope, nil otherwise.
	PropertyOf(name string) *Property

	// MatchingProperty is like PropertyOf but also finds inheritable
	// properties of inner scopes, e.g. a per-target property looked up on
	// a module. Used when assigning and validating variables.
	MatchingProperty(name string) *Property

	// Properties returns all properties applicable at this scope,
	// including inheritable ones defined for inner scopes.
	Properties() []*Property

	// ShouldBuild evaluates the part's condition. It fails when the
	// condition cannot be determined at generation time.
	ShouldBuild() (bool, error)

	// MakeVariablesForMissingProps materializes default values for
	// properties that have no variable at this scope yet.
	MakeVariablesForMissingProps(toolset string) error

	resolve(name string) *Variable
}

// part is the shared implementation embedded by every model part. The self
// pointer lets the shared logic dispatch to the outer type's scope-specific
// hooks.
type part struct {
	self   Part
	parent Part
	pos    expr.Pos
	vars   map[string]*Variable
	order  []string
}

func (p *part) init(self, parent Part, pos expr.Pos) {
	p.self = self
	p.parent = parent
	p.pos = pos
	p.vars = make(map[string]*Variable)
}

func (p *part) Parent() Part       { return p.parent }
func (p *part) Position() expr.Pos { return p.pos }

// Project walks up to the root of the part tree.
func (p *part) Project() *Project {
	cur := p.self
	for cur.Parent() != nil {
		cur = cur.Parent()
	}

	return cur.(*Project)
}

// Module walks up to the nearest enclosing module, nil for the project.
func (p *part) Module() *Module {
	for cur := p.self; cur != nil; cur = cur.Parent() {
		if m, ok := cur.(*Module); ok {
			return m
		}
	}

	return nil
}

func (p *part) Variable(name string) *Variable { return p.vars[name] }

func (p *part) Variables() []*Variable {
	out := make([]*Variable, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.vars[name])
	}

	return out
}

func (p *part) AddVariable(v *Variable) {
	if _, ok := p.vars[v.name]; !ok {
		p.order = append(p.order, v.name)
	}
	p.vars[v.name] = v
}

// SetPropertyValue sets a value for a property defined at this scope,
// creating its variable on first use. The property must exist; a missing
// one is a programming error.
func (p *part) SetPropertyValue(name string, value expr.Expr) {
	if v, ok := p.vars[name]; ok {
		v.SetValue(value)

		return
	}
	prop := p.self.PropertyOf(name)
	if prop == nil {
		panic(fmt.Sprintf("no property %q on %s", name, p.self))
	}
	p.AddVariable(NewVariableFromProperty(prop, value))
}

// resolve finds the variable the name refers to, looking through parent
// scopes. A name shadowed by a non-inheritable property of this scope does
// not resolve upward: such a property is only meaningful here and an outer
// variable of the same name is unrelated.
func (p *part) resolve(name string) *Variable {
	if v, ok := p.vars[name]; ok {
		return v
	}
	if p.parent != nil {
		prop := p.self.PropertyOf(name)
		if prop == nil || prop.Inheritable {
			return p.parent.resolve(name)
		}
	}

	return nil
}

// ResolveVariable implements [expr.Scope]. The result is nil without an
// error when the name only matches an unset property.
func (p *part) ResolveVariable(name string) (expr.Variable, error) {
	if v := p.resolve(name); v != nil {
		return v, nil
	}

	return nil, nil
}

// VariableValue implements [expr.Scope]. Unset properties yield their
// default value.
func (p *part) VariableValue(name string) (expr.Expr, error) {
	if v := p.resolve(name); v != nil {
		return v.Value(), nil
	}
	for scope := p.self; scope != nil; scope = scope.Parent() {
		if prop := scope.PropertyOf(name); prop != nil {
			return prop.DefaultExpr(scope, false)
		}
	}

	return nil, &UnknownVariableError{Name: name, Part: p.self}
}

// IsVariableNull reports whether the variable is unset or holds a null
// value, which amounts to not being set for the current toolset or under
// the current condition.
func (p *part) IsVariableNull(name string) bool {
	v := p.resolve(name)
	if v == nil {
		return true
	}
	isNull, err := expr.IsNull(v.Value())

	return err == nil && isNull
}

// IsVariableExplicitlySet reports whether the variable was set in the
// input files.
func (p *part) IsVariableExplicitlySet(name string) bool {
	v := p.resolve(name)

	return v != nil && v.IsExplicitlySet()
}

// Condition returns the expression controlling whether this part is built,
// or nil when it is unconditional.
func (p *part) Condition() expr.Expr {
	if v, ok := p.vars["_condition"]; ok {
		return v.Value()
	}

	return nil
}

// ShouldBuild evaluates the part's condition. It fails when the condition
// cannot be determined at generation time.
func (p *part) ShouldBuild() (bool, error) {
	return shouldBuild(p.self, p.Condition())
}

func shouldBuild(owner Part, cond expr.Expr) (bool, error) {
	if cond == nil {
		return true, nil
	}
	v, err := expr.AsConst(cond)
	if err != nil {
		if !expr.IsNonConst(err) {
			return false, err
		}
		display, serr := expr.Simplify(cond)
		if serr != nil {
			display = cond
		}

		return false, expr.NewCannotDetermineError(owner.Position(),
			"condition for building %s couldn't be resolved\n(condition %q set at %s)",
			owner, display, display.Position())
	}

	return constValueTruthy(v), nil
}

func constValueTruthy(v cty.Value) bool {
	if v == cty.NilVal || v.IsNull() {
		return false
	}
	switch {
	case v.Type() == cty.Bool:
		return v.True()
	case v.Type() == cty.String:
		return v.AsString() != ""
	case v.Type().IsTupleType():
		return v.LengthInt() > 0
	}

	return true
}

// MakeVariablesForMissingProps materializes default values for properties
// that have no variable yet. Properties specific to other toolsets are
// skipped, as are inheritable properties at scopes above their own: their
// default belongs at the defining scope only.
func (p *part) MakeVariablesForMissingProps(toolset string) error {
	for _, prop := range p.self.Properties() {
		if !prop.appliesToToolset(toolset) {
			continue
		}
		if !p.IsVariableNull(prop.Name) {
			continue
		}
		if prop.Inheritable && !prop.scopeMatches(p.self) {
			continue
		}
		value, err := prop.DefaultExpr(p.self, true)
		if err != nil {
			return err
		}
		v := NewVariableFromProperty(prop, value)
		v.markDefault()
		log.Debug("setting property default",
			slog.String("part", p.self.String()),
			slog.String("name", v.name),
			slog.String("value", value.String()))
		p.AddVariable(v)
	}

	return nil
}

// UnknownVariableError reports a reference to a name that resolves to
// neither a variable nor a property anywhere in scope.
type UnknownVariableError struct {
	Name string
	Part Part
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %q", e.Name)
}

// ChildPartByName returns the direct child with the given name.
func ChildPartByName(p Part, name string) (Part, error) {
	for _, ch := range p.ChildParts() {
		if ch.Name() == name {
			return ch, nil
		}
	}

	return nil, expr.Errorf(p.Position(), "%q not found in %s", name, p)
}

// EachVariable calls fn for every variable on the part and, recursively,
// on all parts beneath it.
func EachVariable(p Part, fn func(*Variable)) {
	for _, v := range p.Variables() {
		fn(v)
	}
	for _, ch := range p.ChildParts() {
		EachVariable(ch, fn)
	}
}
