package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vslavik/bakefile/expr"
)

// Type checks and normalizes the values assigned to typed variables.
//
// Both operations handle conditional expressions and variable references
// transparently: a type only ever sees the plain values its kind is about,
// conditionals are recursed into and references followed. Validation lets
// null and setting placeholders pass; a value that is not known yet cannot
// be proven wrong and is revisited after substitution.
type Type interface {
	fmt.Stringer

	// Normalize coerces e into this type's canonical form where possible.
	// It returns e unchanged when no normalization applies.
	Normalize(e expr.Expr) (expr.Expr, error)

	// Validate checks that e is a valid value of this type.
	Validate(e expr.Expr) error

	normalizeItem(e expr.Expr) (expr.Expr, error)
	validateItem(e expr.Expr) error
}

// TypeError reports a value that does not conform to its variable's type.
type TypeError struct {
	Type   Type
	Expr   expr.Expr
	Detail string
	pos    expr.Pos
}

// NewTypeError creates a TypeError for the given type and offending
// expression. A non-empty detail is appended to the message.
func NewTypeError(t Type, e expr.Expr, detail string) *TypeError {
	return &TypeError{Type: t, Expr: e, Detail: detail, pos: e.Position()}
}

func (e *TypeError) Error() string {
	text := fmt.Sprintf("expression %q is not a valid %s value", e.Expr, e.Type)
	if e.Detail != "" {
		text += ": " + e.Detail
	}
	if e.pos.IsValid() {
		return e.pos.String() + ": " + text
	}

	return text
}

// Position returns the source position the error relates to.
func (e *TypeError) Position() expr.Pos { return e.pos }

// typeBase carries the shared transparent handling of conditionals and
// references; concrete types embed it and the exported methods dispatch to
// their item hooks through the self pointer.
type typeBase struct {
	self Type
}

func (t *typeBase) Normalize(e expr.Expr) (expr.Expr, error) {
	switch v := e.(type) {
	case *expr.If:
		yes, err := t.self.Normalize(v.Then)
		if err != nil {
			return nil, err
		}
		no, err := t.self.Normalize(v.Else)
		if err != nil {
			return nil, err
		}
		if yes == v.Then && no == v.Else {
			return e, nil
		}

		return expr.NewIf(v.Cond, yes, no, v.Position()), nil

	case *expr.Reference:
		value, err := v.Value()
		if err != nil {
			return nil, err
		}
		norm, err := t.self.Normalize(value)
		if err != nil {
			return nil, err
		}
		// Keep the reference when its value is already in canonical
		// form; inlining would lose the variable structure.
		if norm == value {
			return e, nil
		}

		return norm, nil
	}

	return t.self.normalizeItem(e)
}

func (t *typeBase) Validate(e expr.Expr) error {
	switch v := e.(type) {
	case *expr.Null, *expr.Placeholder:
		// Unset and not-yet-known values cannot be proven wrong here;
		// they are checked again after substitution.
		return nil

	case *expr.Reference:
		value, err := v.Value()
		if err != nil {
			return err
		}
		if err := t.self.Validate(value); err != nil {
			// The position inside the referenced variable is not
			// interesting; report the error where validation was
			// requested.
			var typeErr *TypeError
			if errors.As(err, &typeErr) {
				return NewTypeError(typeErr.Type, typeErr.Expr, typeErr.Detail).at(e.Position())
			}

			return err
		}

		return nil

	case *expr.If:
		if err := t.self.Validate(v.Then); err != nil {
			return err
		}

		return t.self.Validate(v.Else)
	}

	return t.self.validateItem(e)
}

func (e *TypeError) at(pos expr.Pos) *TypeError {
	e.pos = pos

	return e
}

// anyType accepts any value at all; it is the fallback for variables
// without a declared type.
type anyType struct{ typeBase }

func (t *anyType) String() string                                { return "any" }
func (t *anyType) normalizeItem(e expr.Expr) (expr.Expr, error)  { return e, nil }
func (t *anyType) validateItem(expr.Expr) error                  { return nil }
func (t *anyType) Validate(expr.Expr) error                      { return nil }
func (t *anyType) Normalize(e expr.Expr) (expr.Expr, error)      { return e, nil }

// boolType accepts boolean literals and boolean expressions.
type boolType struct{ typeBase }

func (t *boolType) String() string { return "bool" }

func (t *boolType) normalizeItem(e expr.Expr) (expr.Expr, error) {
	if lit, ok := e.(*expr.Literal); ok {
		switch lit.Value {
		case "true":
			return expr.NewBoolValue(true, lit.Position()), nil
		case "false":
			return expr.NewBoolValue(false, lit.Position()), nil
		}
	}

	return e, nil
}

func (t *boolType) validateItem(e expr.Expr) error {
	switch v := e.(type) {
	case *expr.BoolValue:
		return nil

	case *expr.Bool:
		switch v.Op {
		case expr.OpAnd, expr.OpOr:
			if err := t.Validate(v.Left); err != nil {
				return err
			}

			return t.Validate(v.Right)

		case expr.OpNot:
			return t.Validate(v.Left)
		}

		return nil
	}

	return NewTypeError(t, e, "")
}

// stringType accepts any textual value; paths and boolean expressions can
// be used as strings too.
type stringType struct{ typeBase }

func (t *stringType) String() string                               { return "string" }
func (t *stringType) normalizeItem(e expr.Expr) (expr.Expr, error) { return e, nil }

func (t *stringType) validateItem(e expr.Expr) error {
	switch e.(type) {
	case *expr.Concat, *expr.Literal, *expr.Bool, *expr.Path:
		return nil
	}

	return NewTypeError(t, e, "")
}

// idType accepts target identifiers, which must be plain words.
type idType struct{ typeBase }

func (t *idType) String() string                               { return "id" }
func (t *idType) normalizeItem(e expr.Expr) (expr.Expr, error) { return e, nil }

func (t *idType) validateItem(e expr.Expr) error {
	if _, ok := e.(*expr.Literal); !ok {
		return NewTypeError(t, e, "")
	}

	return nil
}

// pathType accepts anchored path expressions; plain values are split on
// "/" during normalization.
type pathType struct{ typeBase }

func (t *pathType) String() string { return "path" }

func (t *pathType) normalizeItem(e expr.Expr) (expr.Expr, error) {
	if _, ok := e.(*expr.Path); ok {
		return e, nil
	}
	p, err := expr.SplitIntoPath(e)
	if err != nil {
		return nil, NewTypeError(t, e, errDetail(err))
	}

	return p, nil
}

func (t *pathType) validateItem(e expr.Expr) error {
	p, ok := e.(*expr.Path)
	if !ok {
		return NewTypeError(t, e, "")
	}
	if !knownAnchor(p.Anchor) {
		return NewTypeError(t, e, fmt.Sprintf("invalid anchor %q", p.Anchor))
	}
	for _, c := range p.Components {
		if err := TypeString.Validate(c); err != nil {
			return err
		}
	}

	return nil
}

func knownAnchor(a expr.Anchor) bool {
	for _, known := range expr.Anchors() {
		if a == known {
			return true
		}
	}

	return false
}

// errDetail strips the position prefix an expr error renders with, so it
// can be nested into another positioned message.
func errDetail(err error) string {
	msg := err.Error()
	if pos := expr.PosOf(err); pos.IsValid() {
		msg = strings.TrimPrefix(msg, pos.String()+": ")
	}

	return msg
}

// EnumType accepts one of a fixed set of literal values.
type EnumType struct {
	typeBase
	values []string
}

// NewEnumType creates an enum type allowing the given values.
func NewEnumType(values ...string) *EnumType {
	if len(values) == 0 {
		panic("enum type needs at least one allowed value")
	}
	t := &EnumType{values: values}
	t.self = t

	return t
}

func (t *EnumType) String() string { return "enum" }

// Values returns the allowed values in declaration order.
func (t *EnumType) Values() []string { return t.values }

func (t *EnumType) normalizeItem(e expr.Expr) (expr.Expr, error) { return e, nil }

func (t *EnumType) validateItem(e expr.Expr) error {
	lit, ok := e.(*expr.Literal)
	if !ok {
		return NewTypeError(t, e, "")
	}
	for _, allowed := range t.values {
		if lit.Value == allowed {
			return nil
		}
	}

	return NewTypeError(t, e, "must be one of "+t.formatValues())
}

func (t *EnumType) formatValues() string {
	quoted := make([]string, len(t.values))
	for i, v := range t.values {
		quoted[i] = `"` + v + `"`
	}

	return strings.Join(quoted, ", ")
}

// ListType accepts a list of items of a homogeneous type.
type ListType struct {
	typeBase
	item Type
}

// NewListType creates a list type with the given item type.
func NewListType(item Type) *ListType {
	t := &ListType{item: item}
	t.self = t

	return t
}

func (t *ListType) String() string { return "list of " + t.item.String() + "s" }

// Item returns the type of the list's items.
func (t *ListType) Item() Type { return t.item }

// normalizeItem expands conditionals and references so that the value
// becomes a flat list with one item per individual value, making
// validation straightforward.
func (t *ListType) normalizeItem(e expr.Expr) (expr.Expr, error) {
	values, err := expr.PossibleValues(e, nil)
	if err != nil {
		return nil, err
	}
	items := make([]expr.Expr, 0, len(values))
	for _, cv := range values {
		norm, err := t.item.Normalize(cv.Value)
		if err != nil {
			return nil, err
		}
		if cv.Cond != nil {
			norm = expr.NewIf(cv.Cond, norm, expr.NewNull(norm.Position()), norm.Position())
		}
		items = append(items, norm)
	}

	return expr.NewList(items, e.Position()), nil
}

func (t *ListType) validateItem(e expr.Expr) error {
	list, ok := e.(*expr.List)
	if !ok {
		return NewTypeError(t, e, "")
	}
	for _, item := range list.Items {
		if err := t.item.Validate(item); err != nil {
			return err
		}
	}

	return nil
}

// Singleton instances of the simple types.
var (
	TypeAny    Type = mkType(&anyType{})
	TypeBool   Type = mkType(&boolType{})
	TypeString Type = mkType(&stringType{})
	TypeId     Type = mkType(&idType{})
	TypePath   Type = mkType(&pathType{})
)

func mkType(t Type) Type {
	t.(interface{ setSelf(Type) }).setSelf(t)

	return t
}

func (t *typeBase) setSelf(self Type) { t.self = self }

// GuessType attempts to infer the type of an expression, falling back to
// any when unsure. Used to give plain variables a type from their first
// assigned value.
func GuessType(e expr.Expr) Type {
	switch v := e.(type) {
	case *expr.Path:
		return TypePath

	case *expr.List:
		return NewListType(TypeAny)

	case *expr.Bool, *expr.BoolValue:
		return TypeBool

	case *expr.Reference:
		return guessReferenceType(v)

	case *expr.Concat:
		first := v.Items[0]
		if _, ok := first.(*expr.Path); ok {
			return TypePath
		}
		if ref, ok := first.(*expr.Reference); ok {
			if t := guessReferenceType(ref); t == TypeString || t == TypePath {
				return t
			}
		}
	}

	return TypeAny
}

func guessReferenceType(e *expr.Reference) Type {
	v, err := e.Variable()
	if err != nil {
		return TypeAny
	}
	if mv, ok := v.(*Variable); ok && mv != nil {
		if mv.Type() != TypeAny {
			return mv.Type()
		}

		return GuessType(mv.Value())
	}
	value, err := e.Value()
	if err != nil {
		return TypeAny
	}

	return GuessType(value)
}

// NormalizeBoolSubexpressions normalizes and validates the operands of
// boolean operators and the conditions of conditional expressions inside
// e. Such subexpressions never pass through a typed variable's own
// normalization, so "true"/"false" words in them would otherwise stay
// plain literals.
func NormalizeBoolSubexpressions(e expr.Expr) (expr.Expr, error) {
	r := &expr.Rewriter{}
	r.Bool = func(b *expr.Bool) (expr.Expr, error) {
		rewritten, err := r.Descend(b)
		if err != nil {
			return nil, err
		}
		b, ok := rewritten.(*expr.Bool)
		if !ok || !b.HasBoolOperands() {
			return rewritten, nil
		}

		left, err := normalizeBoolOperand(b.Left)
		if err != nil {
			return nil, err
		}
		right := b.Right
		if right != nil {
			right, err = normalizeBoolOperand(right)
			if err != nil {
				return nil, err
			}
		}
		if left == b.Left && right == b.Right {
			return b, nil
		}

		return expr.NewBool(b.Op, left, right, b.Position()), nil
	}
	r.If = func(cond *expr.If) (expr.Expr, error) {
		rewritten, err := r.Descend(cond)
		if err != nil {
			return nil, err
		}
		cond, ok := rewritten.(*expr.If)
		if !ok {
			return rewritten, nil
		}
		c, err := normalizeBoolOperand(cond.Cond)
		if err != nil {
			return nil, err
		}
		if c == cond.Cond {
			return cond, nil
		}

		return expr.NewIf(c, cond.Then, cond.Else, cond.Position()), nil
	}

	return r.Rewrite(e)
}

func normalizeBoolOperand(e expr.Expr) (expr.Expr, error) {
	norm, err := TypeBool.Normalize(e)
	if err != nil {
		return nil, err
	}
	if err := TypeBool.Validate(norm); err != nil {
		return nil, err
	}

	return norm, nil
}
