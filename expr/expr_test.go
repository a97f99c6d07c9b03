package expr

import (
	"fmt"
	"testing"
)

// testScope is a minimal variable scope for tests.
type testScope struct {
	vars map[string]Expr
}

func (s *testScope) VariableValue(name string) (Expr, error) {
	if v, ok := s.vars[name]; ok {
		return v, nil
	}

	return nil, fmt.Errorf("unknown variable %q", name)
}

func (s *testScope) ResolveVariable(name string) (Variable, error) {
	if v, ok := s.vars[name]; ok {
		return testVariable{v}, nil
	}

	return nil, fmt.Errorf("unknown variable %q", name)
}

type testVariable struct {
	value Expr
}

func (v testVariable) Value() Expr      { return v.value }
func (v testVariable) IsProperty() bool { return false }

// ref creates a reference resolving to the given value.
func ref(name string, value Expr) *Reference {
	return NewReference(name, &testScope{vars: map[string]Expr{name: value}}, Pos{})
}

func lit(s string) *Literal { return NewLiteral(s, Pos{}) }

func TestExpr_String(t *testing.T) {
	scope := &testScope{vars: map[string]Expr{"name": lit("hello")}}

	tests := []struct {
		expr Expr
		want string
	}{
		{NewNull(Pos{}), "null"},
		{lit("value"), "value"},
		{NewBoolValue(true, Pos{}), "true"},
		{NewBoolValue(false, Pos{}), "false"},
		{NewList([]Expr{lit("a"), lit("b")}, Pos{}), "[a, b]"},
		{NewConcat([]Expr{lit("lib"), lit(".a")}, Pos{}), "lib.a"},
		{NewReference("name", scope, Pos{}), "$(name)"},
		{NewPlaceholder("config", Pos{}), "${config}"},
		{NewPath([]Expr{lit("src"), lit("main.c")}, AnchorSrcdir, "", Pos{}), "@srcdir/src/main.c"},
		{NewBool(OpEqual, lit("a"), lit("b"), Pos{}), "(a == b)"},
		{NewNot(NewBoolValue(true, Pos{}), Pos{}), "!true"},
		{NewIf(NewBoolValue(true, Pos{}), lit("y"), lit("n"), Pos{}), "(true ? y : n)"},
	}

	for _, tt := range tests {
		if got := tt.expr.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestPos_String(t *testing.T) {
	tests := []struct {
		pos  Pos
		want string
	}{
		{Pos{}, ""},
		{Pos{File: "foo.bkl"}, "foo.bkl"},
		{Pos{File: "foo.bkl", Line: 3}, "foo.bkl:3"},
		{Pos{File: "foo.bkl", Line: 3, Col: 7}, "foo.bkl:3:7"},
		{Pos{Line: 12}, "12"},
	}

	for _, tt := range tests {
		if got := tt.pos.String(); got != tt.want {
			t.Errorf("Pos%+v.String() = %q, want %q", tt.pos, got, tt.want)
		}
	}
}

func TestNewConcat_PanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for empty concatenation")
		}
	}()
	NewConcat(nil, Pos{})
}

func TestNewPath_DefaultsAnchorFileFromPos(t *testing.T) {
	p := NewPath([]Expr{lit("x")}, AnchorSrcdir, "", Pos{File: "sub/main.bkl", Line: 1})
	if p.AnchorFile != "sub/main.bkl" {
		t.Errorf("AnchorFile = %q, want %q", p.AnchorFile, "sub/main.bkl")
	}

	p = NewPath([]Expr{lit("x")}, AnchorSrcdir, "other.bkl", Pos{File: "main.bkl"})
	if p.AnchorFile != "other.bkl" {
		t.Errorf("AnchorFile = %q, want %q", p.AnchorFile, "other.bkl")
	}
}

func TestPath_Directory(t *testing.T) {
	p := NewPath([]Expr{lit("src"), lit("main.c")}, AnchorTopSrcdir, "", Pos{})
	dir := p.Directory()

	if got := dir.String(); got != "@top_srcdir/src" {
		t.Errorf("Directory() = %q, want %q", got, "@top_srcdir/src")
	}
	if dir.Anchor != AnchorTopSrcdir {
		t.Errorf("Directory() anchor = %q, want %q", dir.Anchor, AnchorTopSrcdir)
	}
}

func TestPath_IsExternalAbsolute(t *testing.T) {
	external := NewPath([]Expr{NewPlaceholder("wxdir", Pos{}), lit("include")}, AnchorSrcdir, "", Pos{})
	if !external.IsExternalAbsolute() {
		t.Error("path starting with a placeholder should be external absolute")
	}

	local := NewPath([]Expr{lit("src")}, AnchorSrcdir, "", Pos{})
	if local.IsExternalAbsolute() {
		t.Error("plain srcdir path should not be external absolute")
	}

	build := NewPath([]Expr{NewPlaceholder("x", Pos{})}, AnchorBuilddir, "", Pos{})
	if build.IsExternalAbsolute() {
		t.Error("builddir paths are never external absolute")
	}
}

func TestBool_HasBoolOperands(t *testing.T) {
	and := NewBool(OpAnd, NewBoolValue(true, Pos{}), NewBoolValue(false, Pos{}), Pos{})
	if !and.HasBoolOperands() {
		t.Error("and should require boolean operands")
	}

	eq := NewBool(OpEqual, lit("a"), lit("b"), Pos{})
	if eq.HasBoolOperands() {
		t.Error("equality should not require boolean operands")
	}
}

func TestReference_Value(t *testing.T) {
	r := ref("out", lit("hello"))

	v, err := r.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}
	if v.String() != "hello" {
		t.Errorf("Value() = %q, want %q", v, "hello")
	}
}

func TestReference_Value_UnknownVariable(t *testing.T) {
	r := NewReference("nope", &testScope{}, Pos{File: "x.bkl", Line: 4})

	_, err := r.Value()
	if err == nil {
		t.Fatal("expected error for unknown variable")
	}
	if got := PosOf(err); got.File != "x.bkl" || got.Line != 4 {
		t.Errorf("error position = %v, want x.bkl:4", got)
	}
}

func TestIf_Value_SelectsBranch(t *testing.T) {
	yes := lit("y")
	no := lit("n")

	cond := NewIf(NewBoolValue(true, Pos{}), yes, no, Pos{})
	v, err := cond.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}
	if v != Expr(yes) {
		t.Errorf("Value() = %v, want the true branch", v)
	}

	cond = NewIf(NewBoolValue(false, Pos{}), yes, no, Pos{})
	v, err = cond.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}
	if v != Expr(no) {
		t.Errorf("Value() = %v, want the false branch", v)
	}
}

func TestIf_Value_NonConstCondition(t *testing.T) {
	cond := NewIf(NewPlaceholder("config", Pos{}), lit("y"), lit("n"), Pos{})

	_, err := cond.Value()
	if err == nil {
		t.Fatal("expected error for undeterminable condition")
	}
	if !IsNonConst(err) {
		t.Errorf("expected a non-const error, got %v", err)
	}
}

func TestWalk_VisitsAllNodes(t *testing.T) {
	e := NewList([]Expr{
		NewConcat([]Expr{lit("a"), NewPlaceholder("p", Pos{})}, Pos{}),
		NewIf(NewBool(OpNot, NewBoolValue(false, Pos{}), nil, Pos{}), lit("y"), lit("n"), Pos{}),
	}, Pos{})

	var count int
	Walk(e, func(Expr) bool {
		count++
		return true
	})

	// list, concat, "a", placeholder, if, not, false, "y", "n"
	if count != 9 {
		t.Errorf("visited %d nodes, want 9", count)
	}
}

func TestWalk_SkipsChildrenOnFalse(t *testing.T) {
	e := NewList([]Expr{
		NewConcat([]Expr{lit("a"), lit("b")}, Pos{}),
		lit("c"),
	}, Pos{})

	var visited []string
	Walk(e, func(e Expr) bool {
		if _, ok := e.(*Concat); ok {
			visited = append(visited, "concat")
			return false
		}
		visited = append(visited, e.String())
		return true
	})

	want := []string{"[ab, c]", "concat", "c"}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}
