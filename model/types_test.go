package model

import (
	"strings"
	"testing"

	"github.com/vslavik/bakefile/expr"
)

func TestTypeBool_NormalizeKeywords(t *testing.T) {
	for word, want := range map[string]bool{"true": true, "false": false} {
		got, err := TypeBool.Normalize(lit(word))
		if err != nil {
			t.Fatalf("Normalize(%s) error: %v", word, err)
		}
		bv, ok := got.(*expr.BoolValue)
		if !ok || bv.Value != want {
			t.Errorf("Normalize(%s) = %v, want BoolValue(%v)", word, got, want)
		}
	}
}

func TestTypeBool_RejectsPlainLiteral(t *testing.T) {
	err := TypeBool.Validate(lit("maybe"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := err.Error(); got != `expression "maybe" is not a valid bool value` {
		t.Errorf("error = %q", got)
	}
}

func TestTypeString_RejectsBoolValue(t *testing.T) {
	if err := TypeString.Validate(lit("abc")); err != nil {
		t.Errorf("literal rejected: %v", err)
	}
	if err := TypeString.Validate(expr.NewBoolValue(true, expr.Pos{})); err == nil {
		t.Error("bool value accepted as string")
	}
}

func TestTypePath_NormalizeSplitsLiteral(t *testing.T) {
	got, err := TypePath.Normalize(lit("sub/dir/file.c"))
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	path, ok := got.(*expr.Path)
	if !ok {
		t.Fatalf("Normalize = %T, want *expr.Path", got)
	}
	if len(path.Components) != 3 || path.Anchor != expr.AnchorSrcdir {
		t.Errorf("Normalize = %v", path)
	}
}

func TestTypeEnum_Detail(t *testing.T) {
	enum := NewEnumType("static", "dll")
	if err := enum.Validate(lit("static")); err != nil {
		t.Errorf("valid value rejected: %v", err)
	}
	err := enum.Validate(lit("shared"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), `must be one of "static", "dll"`) {
		t.Errorf("error = %q", err)
	}
}

func TestTypeList_NormalizeWrapsConditionalItems(t *testing.T) {
	cond := expr.NewBool(expr.OpEqual,
		expr.NewPlaceholder("config", expr.Pos{}), lit("Debug"), expr.Pos{})
	e := expr.NewList([]expr.Expr{
		lit("always"),
		expr.NewIf(cond, lit("dbg"), expr.NewNull(expr.Pos{}), expr.Pos{}),
	}, expr.Pos{})

	got, err := NewListType(TypeString).Normalize(e)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	list, ok := got.(*expr.List)
	if !ok {
		t.Fatalf("Normalize = %T, want *expr.List", got)
	}
	if len(list.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(list.Items))
	}
	if _, ok := list.Items[1].(*expr.If); !ok {
		t.Errorf("conditional item flattened away: %v", list.Items[1])
	}
}

func TestTypeValidate_TransparentNodes(t *testing.T) {
	// Null and placeholders pass any type, conditionals validate both
	// branches.
	if err := TypeBool.Validate(expr.NewNull(expr.Pos{})); err != nil {
		t.Errorf("null rejected: %v", err)
	}
	if err := TypeBool.Validate(expr.NewPlaceholder("toolset", expr.Pos{})); err != nil {
		t.Errorf("placeholder rejected: %v", err)
	}
	cond := expr.NewBool(expr.OpEqual,
		expr.NewPlaceholder("config", expr.Pos{}), lit("Debug"), expr.Pos{})
	bad := expr.NewIf(cond, expr.NewBoolValue(true, expr.Pos{}), lit("nope"), expr.Pos{})
	if err := TypeBool.Validate(bad); err == nil {
		t.Error("invalid else branch accepted")
	}
}

func TestGuessType(t *testing.T) {
	tests := []struct {
		e    expr.Expr
		want Type
	}{
		{srcPath("x.c"), TypePath},
		{expr.NewBoolValue(true, expr.Pos{}), TypeBool},
		{lit("word"), TypeAny},
	}
	for _, tt := range tests {
		if got := GuessType(tt.e); got != tt.want {
			t.Errorf("GuessType(%s) = %s, want %s", tt.e, got, tt.want)
		}
	}
}
