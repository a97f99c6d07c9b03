package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// AsConst evaluates e to a constant value, if it has one at generation
// time. Strings evaluate to cty string values, booleans to cty bools,
// lists to cty tuples and null to the cty null value. Paths are
// rendered with an explicit anchor, e.g. "@srcdir/foo/bar.c".
//
// Expressions that depend on a user setting have no constant value and
// fail with [NonConstError]; such values can only be emitted
// symbolically. Use a [Formatter] to render expressions into output
// text.
func AsConst(e Expr) (cty.Value, error) {
	switch t := e.(type) {
	case *Null:
		return cty.NullVal(cty.DynamicPseudoType), nil

	case *Literal:
		return cty.StringVal(t.Value), nil

	case *BoolValue:
		return cty.BoolVal(t.Value), nil

	case *List:
		if len(t.Items) == 0 {
			return cty.EmptyTupleVal, nil
		}
		vals := make([]cty.Value, len(t.Items))
		for i, item := range t.Items {
			v, err := AsConst(item)
			if err != nil {
				return cty.NilVal, err
			}
			vals[i] = v
		}

		return cty.TupleVal(vals), nil

	case *Concat:
		var b strings.Builder
		for _, item := range t.Items {
			v, err := AsConst(item)
			if err != nil {
				return cty.NilVal, err
			}
			if v.IsNull() {
				continue
			}
			s, err := constText(v, item)
			if err != nil {
				return cty.NilVal, err
			}
			b.WriteString(s)
		}

		return cty.StringVal(b.String()), nil

	case *Reference:
		value, err := t.Value()
		if err != nil {
			return cty.NilVal, err
		}

		return AsConst(value)

	case *Placeholder:
		return cty.NilVal, NewNonConstError(t)

	case *Path:
		comps := make([]string, len(t.Components))
		for i, c := range t.Components {
			v, err := AsConst(c)
			if err != nil {
				return cty.NilVal, err
			}
			s, err := constText(v, c)
			if err != nil {
				return cty.NilVal, err
			}
			comps[i] = s
		}

		return cty.StringVal(string(t.Anchor) + "/" + strings.Join(comps, "/")), nil

	case *Bool:
		return boolAsConst(t)

	case *If:
		value, err := t.Value()
		if err != nil {
			return cty.NilVal, err
		}

		return AsConst(value)
	}

	panic(fmt.Sprintf("unhandled expression type %T", e))
}

// boolAsConst evaluates a boolean expression. The and/or operators
// follow value semantics: they yield the deciding operand's value.
func boolAsConst(e *Bool) (cty.Value, error) {
	switch e.Op {
	case OpAnd:
		left, err := AsConst(e.Left)
		if err != nil {
			return cty.NilVal, err
		}
		if !constTruthy(left) {
			return left, nil
		}

		return AsConst(e.Right)

	case OpOr:
		left, err := AsConst(e.Left)
		if err != nil {
			return cty.NilVal, err
		}
		if constTruthy(left) {
			return left, nil
		}

		return AsConst(e.Right)

	case OpNot:
		left, err := AsConst(e.Left)
		if err != nil {
			return cty.NilVal, err
		}

		return cty.BoolVal(!constTruthy(left)), nil

	case OpEqual, OpNotEqual:
		eq, err := equalExprs(e.Left, e.Right, true)
		if err != nil {
			var cannot *CannotDetermineError
			if errors.As(err, &cannot) {
				return cty.NilVal, NewCannotDetermineError(
					e.Position(), "cannot evaluate bool expression %q", e)
			}

			return cty.NilVal, err
		}
		if e.Op == OpNotEqual {
			eq = !eq
		}

		return cty.BoolVal(eq), nil
	}

	panic("invalid boolean operator " + string(e.Op))
}

// constText returns the string form of a constant value appearing in a
// textual context (concatenation or path component).
func constText(v cty.Value, origin Expr) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	if v.Type() == cty.String {
		return v.AsString(), nil
	}
	if v.Type() == cty.Bool {
		if v.True() {
			return "true", nil
		}

		return "false", nil
	}

	return "", Errorf(origin.Position(), "cannot use %q as text", origin)
}

// constTruthy reports whether a constant value counts as true: null and
// empty strings or lists do not, everything else does.
func constTruthy(v cty.Value) bool {
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

// IsConst reports whether e can be evaluated at generation time, as
// opposed to expressions that depend on a setting only known when the
// generated files are used. Errors other than non-constness, such as a
// reference to an unknown variable, are returned as-is.
func IsConst(e Expr) (bool, error) {
	_, err := AsConst(e)
	if err == nil {
		return true, nil
	}
	if IsNonConst(err) {
		return false, nil
	}

	return false, err
}

// IsNull reports whether e evaluates to an empty value. An empty list
// counts as null. Non-constant expressions are not null.
func IsNull(e Expr) (bool, error) {
	v, err := AsConst(e)
	if err != nil {
		if IsNonConst(err) {
			return false, nil
		}

		return false, err
	}
	if v.IsNull() {
		return true, nil
	}

	return v.Type().IsTupleType() && v.LengthInt() == 0, nil
}

// Truthy reports whether e holds a non-empty value. Unlike AsConst it
// works on conditional expressions with undeterminable conditions: a
// conditional is truthy if either branch is.
func Truthy(e Expr) (bool, error) {
	switch t := e.(type) {
	case *Null:
		return false, nil

	case *Literal:
		return t.Value != "", nil

	case *BoolValue:
		return t.Value, nil

	case *List:
		return len(t.Items) > 0, nil

	case *Path:
		return len(t.Components) > 0, nil

	case *Concat:
		for _, item := range t.Items {
			ok, err := Truthy(item)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}

		return false, nil

	case *Reference:
		value, err := t.Value()
		if err != nil {
			return false, err
		}

		return Truthy(value)

	case *Placeholder:
		return false, NewNonConstError(t)

	case *Bool:
		switch t.Op {
		case OpAnd:
			left, err := Truthy(t.Left)
			if err != nil || !left {
				return false, err
			}

			return Truthy(t.Right)

		case OpOr:
			left, err := Truthy(t.Left)
			if err != nil || left {
				return left, err
			}

			return Truthy(t.Right)

		case OpNot:
			left, err := Truthy(t.Left)

			return !left, err

		default:
			v, err := AsConst(t)
			if err != nil {
				return false, err
			}

			return constTruthy(v), nil
		}

	case *If:
		value, err := t.Value()
		if err == nil {
			return Truthy(value)
		}
		if !IsNonConst(err) {
			return false, err
		}
		yes, err := Truthy(t.Then)
		if err != nil || yes {
			return yes, err
		}

		return Truthy(t.Else)
	}

	panic(fmt.Sprintf("unhandled expression type %T", e))
}

// Equal compares two expressions for equality. It fails with
// [CannotDetermineError] when equality cannot be reliably determined.
func Equal(a, b Expr) (bool, error) {
	return equalExprs(a, b, false)
}

func equalExprs(a, b Expr, insideCond bool) (bool, error) {
	av, errA := constForComparison(a, insideCond)
	if errA != nil && !IsNonConst(errA) {
		return false, errA
	}

	if errA == nil {
		bv, errB := constForComparison(b, insideCond)
		if errB != nil && !IsNonConst(errB) {
			return false, errB
		}
		if errB == nil {
			return av.RawEquals(bv), nil
		}
	}

	// Constant evaluation was inconclusive; fall back to a symbolic
	// comparison, which can still prove equality of identical residual
	// expressions such as two references to the same setting.
	if Symbolic(a) == Symbolic(b) {
		return true, nil
	}

	return false, NewCannotDetermineError(Pos{},
		"cannot determine whether expressions %q and %q are equal", a, b)
}

// constForComparison evaluates e for an equality comparison. Setting
// placeholders outside of conditions are replaced by unique marker
// strings first, so that two references to the same setting compare
// equal without knowing the setting's value.
func constForComparison(e Expr, insideCond bool) (cty.Value, error) {
	marker := &comparisonMarker{}
	if insideCond {
		marker.insideCond = 1
	}

	prepared, err := marker.rewriter().Rewrite(e)
	if err != nil {
		return cty.NilVal, err
	}

	return AsConst(prepared)
}

type comparisonMarker struct {
	insideCond int
}

func (c *comparisonMarker) rewriter() *Rewriter {
	r := &Rewriter{}

	r.Placeholder = func(e *Placeholder) (Expr, error) {
		if c.insideCond > 0 {
			return e, nil
		}

		// Lenticular brackets make the marker impossible to collide
		// with real values.
		return NewLiteral("〖"+e.Name+"〗", e.Position()), nil
	}

	r.Reference = func(e *Reference) (Expr, error) {
		value, err := e.Value()
		if err != nil {
			return nil, err
		}

		return r.Rewrite(value)
	}

	r.If = func(e *If) (Expr, error) {
		c.insideCond++
		cond, err := r.Rewrite(e.Cond)
		c.insideCond--
		if err != nil {
			return nil, err
		}

		yes, err := r.Rewrite(e.Then)
		if err != nil {
			return nil, err
		}
		no, err := r.Rewrite(e.Else)
		if err != nil {
			return nil, err
		}

		if cond == e.Cond && yes == e.Then && no == e.Else {
			return e, nil
		}

		return NewIf(cond, yes, no, e.Position()), nil
	}

	return r
}

// Symbolic renders e in an unambiguous symbolic form, with variable
// references expanded. Two expressions with the same symbolic form are
// equal.
func Symbolic(e Expr) string {
	switch t := e.(type) {
	case *Null:
		return "Null()"

	case *Literal:
		return fmt.Sprintf("Literal(%q)", t.Value)

	case *BoolValue:
		if t.Value {
			return "True()"
		}

		return "False()"

	case *List:
		return "List(" + symbolicItems(t.Items) + ")"

	case *Concat:
		return "Concat(" + symbolicItems(t.Items) + ")"

	case *Path:
		return "Path(" + string(t.Anchor) + "," + symbolicItems(t.Components) + ")"

	case *Bool:
		if t.Right == nil {
			return fmt.Sprintf("Bool(%s%s)", t.Op, Symbolic(t.Left))
		}

		return fmt.Sprintf("Bool(%s %s %s)", Symbolic(t.Left), t.Op, Symbolic(t.Right))

	case *If:
		return fmt.Sprintf("If(%s,%s,%s)",
			Symbolic(t.Cond), Symbolic(t.Then), Symbolic(t.Else))

	case *Placeholder:
		return "Placeholder(" + t.Name + ")"

	case *Reference:
		value, err := t.Value()
		if err != nil {
			return t.String()
		}

		return Symbolic(value)
	}

	panic(fmt.Sprintf("unhandled expression type %T", e))
}

func symbolicItems(items []Expr) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Symbolic(item)
	}

	return strings.Join(parts, ",")
}
