package expr

import (
	"errors"
	"testing"

	"github.com/zclconf/go-cty/cty"
)

func TestAsConst_ScalarValues(t *testing.T) {
	tests := []struct {
		expr Expr
		want cty.Value
	}{
		{NewNull(Pos{}), cty.NullVal(cty.DynamicPseudoType)},
		{lit("hello"), cty.StringVal("hello")},
		{lit(""), cty.StringVal("")},
		{NewBoolValue(true, Pos{}), cty.True},
		{NewBoolValue(false, Pos{}), cty.False},
	}

	for _, tt := range tests {
		got, err := AsConst(tt.expr)
		if err != nil {
			t.Fatalf("AsConst(%s) error: %v", tt.expr, err)
		}
		if !got.RawEquals(tt.want) {
			t.Errorf("AsConst(%s) = %#v, want %#v", tt.expr, got, tt.want)
		}
	}
}

func TestAsConst_List(t *testing.T) {
	e := NewList([]Expr{lit("a"), lit("b")}, Pos{})

	got, err := AsConst(e)
	if err != nil {
		t.Fatalf("AsConst error: %v", err)
	}
	want := cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")})
	if !got.RawEquals(want) {
		t.Errorf("AsConst = %#v, want %#v", got, want)
	}
}

func TestAsConst_EmptyList(t *testing.T) {
	got, err := AsConst(NewList(nil, Pos{}))
	if err != nil {
		t.Fatalf("AsConst error: %v", err)
	}
	if !got.RawEquals(cty.EmptyTupleVal) {
		t.Errorf("AsConst = %#v, want empty tuple", got)
	}
}

func TestAsConst_Concat(t *testing.T) {
	e := NewConcat([]Expr{lit("lib"), ref("name", lit("foo")), lit(".a")}, Pos{})

	got, err := AsConst(e)
	if err != nil {
		t.Fatalf("AsConst error: %v", err)
	}
	if got.AsString() != "libfoo.a" {
		t.Errorf("AsConst = %q, want %q", got.AsString(), "libfoo.a")
	}
}

func TestAsConst_Concat_SkipsNullItems(t *testing.T) {
	e := NewConcat([]Expr{lit("a"), NewNull(Pos{}), lit("b")}, Pos{})

	got, err := AsConst(e)
	if err != nil {
		t.Fatalf("AsConst error: %v", err)
	}
	if got.AsString() != "ab" {
		t.Errorf("AsConst = %q, want %q", got.AsString(), "ab")
	}
}

func TestAsConst_Path(t *testing.T) {
	e := NewPath([]Expr{lit("src"), lit("main.c")}, AnchorTopSrcdir, "", Pos{})

	got, err := AsConst(e)
	if err != nil {
		t.Fatalf("AsConst error: %v", err)
	}
	if got.AsString() != "@top_srcdir/src/main.c" {
		t.Errorf("AsConst = %q, want %q", got.AsString(), "@top_srcdir/src/main.c")
	}
}

func TestAsConst_Placeholder_IsNotConst(t *testing.T) {
	_, err := AsConst(NewPlaceholder("config", Pos{}))
	if err == nil {
		t.Fatal("expected error for a placeholder")
	}
	if !IsNonConst(err) {
		t.Errorf("expected non-const error, got %v", err)
	}

	var nonConst *NonConstError
	if !errors.As(err, &nonConst) {
		t.Fatalf("expected *NonConstError, got %T", err)
	}
}

func TestAsConst_Reference_FollowsValue(t *testing.T) {
	got, err := AsConst(ref("x", lit("42")))
	if err != nil {
		t.Fatalf("AsConst error: %v", err)
	}
	if got.AsString() != "42" {
		t.Errorf("AsConst = %q, want %q", got.AsString(), "42")
	}
}

func TestAsConst_If_SelectsBranch(t *testing.T) {
	e := NewIf(NewBoolValue(true, Pos{}), lit("y"), lit("n"), Pos{})

	got, err := AsConst(e)
	if err != nil {
		t.Fatalf("AsConst error: %v", err)
	}
	if got.AsString() != "y" {
		t.Errorf("AsConst = %q, want %q", got.AsString(), "y")
	}
}

func TestAsConst_BoolOperators(t *testing.T) {
	tr := NewBoolValue(true, Pos{})
	fa := NewBoolValue(false, Pos{})

	tests := []struct {
		name string
		expr Expr
		want bool
	}{
		{"and", NewBool(OpAnd, tr, fa, Pos{}), false},
		{"and both", NewBool(OpAnd, tr, tr, Pos{}), true},
		{"or", NewBool(OpOr, fa, tr, Pos{}), true},
		{"or neither", NewBool(OpOr, fa, fa, Pos{}), false},
		{"not", NewNot(fa, Pos{}), true},
		{"equal", NewBool(OpEqual, lit("a"), lit("a"), Pos{}), true},
		{"not equal", NewBool(OpNotEqual, lit("a"), lit("b"), Pos{}), true},
		{"equal differs", NewBool(OpEqual, lit("a"), lit("b"), Pos{}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AsConst(tt.expr)
			if err != nil {
				t.Fatalf("AsConst error: %v", err)
			}
			if got.True() != tt.want {
				t.Errorf("AsConst = %v, want %v", got.True(), tt.want)
			}
		})
	}
}

func TestAsConst_EqualityOfSamePlaceholder(t *testing.T) {
	// $(config) == $(config) holds whatever the value; comparing the
	// placeholder against a constant is undeterminable.
	p := NewPlaceholder("config", Pos{})
	same := NewBool(OpEqual, p, NewPlaceholder("config", Pos{}), Pos{})

	got, err := AsConst(same)
	if err != nil {
		t.Fatalf("AsConst error: %v", err)
	}
	if !got.True() {
		t.Error("comparison of a placeholder with itself should hold")
	}

	undeterminable := NewBool(OpEqual, p, lit("Debug"), Pos{})
	_, err = AsConst(undeterminable)
	if err == nil {
		t.Fatal("expected error for placeholder vs constant comparison")
	}

	var cannot *CannotDetermineError
	if !errors.As(err, &cannot) {
		t.Fatalf("expected *CannotDetermineError, got %T: %v", err, err)
	}
}

func TestIsConst(t *testing.T) {
	ok, err := IsConst(lit("x"))
	if err != nil || !ok {
		t.Errorf("IsConst(literal) = %v, %v; want true", ok, err)
	}

	ok, err = IsConst(NewPlaceholder("p", Pos{}))
	if err != nil || ok {
		t.Errorf("IsConst(placeholder) = %v, %v; want false", ok, err)
	}

	_, err = IsConst(NewReference("gone", &testScope{}, Pos{}))
	if err == nil {
		t.Error("IsConst should propagate lookup errors")
	}
}

func TestIsNull(t *testing.T) {
	tests := []struct {
		expr Expr
		want bool
	}{
		{NewNull(Pos{}), true},
		{NewList(nil, Pos{}), true},
		{lit(""), false},
		{lit("x"), false},
		{NewList([]Expr{lit("a")}, Pos{}), false},
		{NewPlaceholder("p", Pos{}), false},
	}

	for _, tt := range tests {
		got, err := IsNull(tt.expr)
		if err != nil {
			t.Fatalf("IsNull(%s) error: %v", tt.expr, err)
		}
		if got != tt.want {
			t.Errorf("IsNull(%s) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want bool
	}{
		{"null", NewNull(Pos{}), false},
		{"empty literal", lit(""), false},
		{"literal", lit("x"), true},
		{"true", NewBoolValue(true, Pos{}), true},
		{"false", NewBoolValue(false, Pos{}), false},
		{"empty list", NewList(nil, Pos{}), false},
		{"list", NewList([]Expr{lit("")}, Pos{}), true},
		{"path", NewPath([]Expr{lit("a")}, AnchorSrcdir, "", Pos{}), true},
		{"concat with empty items", NewConcat([]Expr{lit(""), lit("")}, Pos{}), false},
		{"concat", NewConcat([]Expr{lit(""), lit("x")}, Pos{}), true},
		{"reference", ref("v", lit("x")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Truthy(tt.expr)
			if err != nil {
				t.Fatalf("Truthy error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Truthy = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruthy_IfWithUndeterminableCondition(t *testing.T) {
	cond := NewPlaceholder("config", Pos{})

	// Truthy when either branch is.
	e := NewIf(cond, lit("y"), NewNull(Pos{}), Pos{})
	got, err := Truthy(e)
	if err != nil {
		t.Fatalf("Truthy error: %v", err)
	}
	if !got {
		t.Error("conditional with a truthy branch should be truthy")
	}

	e = NewIf(cond, NewNull(Pos{}), NewNull(Pos{}), Pos{})
	got, err = Truthy(e)
	if err != nil {
		t.Fatalf("Truthy error: %v", err)
	}
	if got {
		t.Error("conditional with empty branches should not be truthy")
	}
}

func TestTruthy_Placeholder_IsNotConst(t *testing.T) {
	_, err := Truthy(NewPlaceholder("p", Pos{}))
	if !IsNonConst(err) {
		t.Errorf("expected non-const error, got %v", err)
	}
}

func TestEqual_Constants(t *testing.T) {
	eq, err := Equal(lit("a"), lit("a"))
	if err != nil {
		t.Fatalf("Equal error: %v", err)
	}
	if !eq {
		t.Error("identical literals should be equal")
	}

	eq, err = Equal(lit("a"), lit("b"))
	if err != nil {
		t.Fatalf("Equal error: %v", err)
	}
	if eq {
		t.Error("different literals should not be equal")
	}
}

func TestEqual_ListAndScalar(t *testing.T) {
	eq, err := Equal(NewList([]Expr{lit("a")}, Pos{}), lit("a"))
	if err != nil {
		t.Fatalf("Equal error: %v", err)
	}
	if eq {
		t.Error("a list is never equal to a scalar")
	}
}

func TestEqual_SameSettingOnBothSides(t *testing.T) {
	// References to the same setting compare equal without knowing the
	// setting's value.
	a := NewConcat([]Expr{lit("lib"), NewPlaceholder("arch", Pos{})}, Pos{})
	b := NewConcat([]Expr{lit("lib"), NewPlaceholder("arch", Pos{})}, Pos{})

	eq, err := Equal(a, b)
	if err != nil {
		t.Fatalf("Equal error: %v", err)
	}
	if !eq {
		t.Error("identical setting-dependent expressions should be equal")
	}
}

func TestEqual_DifferentSettings(t *testing.T) {
	eq, err := Equal(NewPlaceholder("arch", Pos{}), NewPlaceholder("config", Pos{}))
	if err != nil {
		t.Fatalf("Equal error: %v", err)
	}
	if eq {
		t.Error("different settings should not compare equal")
	}
}

func TestEqual_Undeterminable(t *testing.T) {
	// A conditional with an unresolved condition cannot be compared to a
	// constant.
	a := NewIf(NewPlaceholder("config", Pos{}), lit("x"), lit("y"), Pos{})

	_, err := Equal(a, lit("x"))
	if err == nil {
		t.Fatal("expected error")
	}

	var cannot *CannotDetermineError
	if !errors.As(err, &cannot) {
		t.Fatalf("expected *CannotDetermineError, got %T: %v", err, err)
	}
	if !IsNonConst(err) {
		t.Error("undeterminable comparisons should count as non-const")
	}
}

func TestEqual_ExpandsReferences(t *testing.T) {
	eq, err := Equal(ref("a", lit("same")), ref("b", lit("same")))
	if err != nil {
		t.Fatalf("Equal error: %v", err)
	}
	if !eq {
		t.Error("references to equal values should be equal")
	}
}

func TestSymbolic(t *testing.T) {
	tests := []struct {
		expr Expr
		want string
	}{
		{NewNull(Pos{}), "Null()"},
		{lit("x"), `Literal("x")`},
		{NewBoolValue(true, Pos{}), "True()"},
		{NewBoolValue(false, Pos{}), "False()"},
		{NewList([]Expr{lit("a"), lit("b")}, Pos{}), `List(Literal("a"),Literal("b"))`},
		{NewConcat([]Expr{lit("a"), NewPlaceholder("p", Pos{})}, Pos{}), `Concat(Literal("a"),Placeholder(p))`},
		{NewPath([]Expr{lit("f")}, AnchorSrcdir, "", Pos{}), `Path(@srcdir,Literal("f"))`},
		{NewNot(NewBoolValue(true, Pos{}), Pos{}), "Bool(!True())"},
		{NewBool(OpEqual, lit("a"), lit("b"), Pos{}), `Bool(Literal("a") == Literal("b"))`},
		{NewIf(NewBoolValue(true, Pos{}), lit("y"), lit("n"), Pos{}), `If(True(),Literal("y"),Literal("n"))`},
		{ref("v", lit("inner")), `Literal("inner")`},
	}

	for _, tt := range tests {
		if got := Symbolic(tt.expr); got != tt.want {
			t.Errorf("Symbolic(%s) = %q, want %q", tt.expr, got, tt.want)
		}
	}
}
