package model

import (
	"github.com/vslavik/bakefile/expr"
)

// Variable is a named, typed value attached to a model part. Property-backed
// variables remember the property they materialize so read-only and
// inheritance rules can be enforced.
type Variable struct {
	name     string
	typ      Type
	value    expr.Expr
	pos      expr.Pos
	readonly bool
	property bool

	// explicit records whether the variable was set in the input files,
	// as opposed to being materialized from a property default.
	explicit bool
}

// NewVariable creates a plain variable with the given type. An untyped
// variable uses TypeAny.
func NewVariable(name string, value expr.Expr, typ Type, pos expr.Pos) *Variable {
	if typ == nil {
		typ = TypeAny
	}

	return &Variable{name: name, typ: typ, value: value, pos: pos, explicit: true}
}

// NewVariableFromProperty creates a variable holding a value for the given
// property, inheriting the property's type and read-only flag.
func NewVariableFromProperty(prop *Property, value expr.Expr) *Variable {
	return &Variable{
		name:     prop.Name,
		typ:      prop.Type,
		value:    value,
		readonly: prop.ReadOnly,
		property: true,
		explicit: true,
	}
}

// Name returns the variable's name.
func (v *Variable) Name() string { return v.name }

// Type returns the variable's declared type.
func (v *Variable) Type() Type { return v.typ }

// Value returns the variable's current value.
func (v *Variable) Value() expr.Expr { return v.value }

// Position returns the location of the variable's definition.
func (v *Variable) Position() expr.Pos { return v.pos }

// IsProperty reports whether the variable is backed by a property
// definition rather than a plain user assignment.
func (v *Variable) IsProperty() bool { return v.property }

// IsReadOnly reports whether user assignments to the variable are
// rejected.
func (v *Variable) IsReadOnly() bool { return v.readonly }

// IsExplicitlySet reports whether the variable was set in the input files
// rather than materialized from a property default.
func (v *Variable) IsExplicitlySet() bool { return v.explicit }

// Assign sets a new value on behalf of a user assignment. Read-only
// variables reject it.
func (v *Variable) Assign(value expr.Expr, pos expr.Pos) error {
	if v.readonly {
		return expr.Errorf(pos, "variable %q is read-only", v.name)
	}
	v.value = value

	return nil
}

// SetValue replaces the variable's value unconditionally. Resolution
// passes use it to substitute simplified expressions; user assignments go
// through Assign.
func (v *Variable) SetValue(value expr.Expr) { v.value = value }

// SetType replaces the variable's type. Used when normalization infers a
// concrete type for an untyped variable.
func (v *Variable) SetType(typ Type) { v.typ = typ }

// markDefault flags the variable as a materialized property default.
func (v *Variable) markDefault() { v.explicit = false }

// shallowClone copies the variable for a cloned model. Values are
// immutable expressions, so sharing them is safe.
func (v *Variable) shallowClone() *Variable {
	c := *v

	return &c
}
