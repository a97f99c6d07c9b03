package gen

import (
	"strings"
	"testing"

	"github.com/vslavik/bakefile/expr"
)

func TestBasicMakeSyntax_Comment(t *testing.T) {
	s := BasicMakeSyntax{}
	if got := s.Comment("one\ntwo"); got != "# one\n# two\n" {
		t.Errorf("Comment = %q", got)
	}
}

func TestBasicMakeSyntax_VarDefinition(t *testing.T) {
	s := BasicMakeSyntax{}
	if got := s.VarDefinition("CFLAGS", "-g -O0"); got != "CFLAGS = -g -O0\n" {
		t.Errorf("VarDefinition = %q", got)
	}
	// Multi-line values get continuation lines.
	if got := s.VarDefinition("SRC", "a.c\nb.c"); got != "SRC = a.c \\\n\tb.c\n" {
		t.Errorf("VarDefinition = %q", got)
	}
}

func TestBasicMakeSyntax_Rule(t *testing.T) {
	s := BasicMakeSyntax{}
	got := s.Rule("hello.o", []string{"hello.c"}, []string{"cc -c hello.c"})
	if got != "hello.o: hello.c\n\tcc -c hello.c\n\n" {
		t.Errorf("Rule = %q", got)
	}
	if got := s.Rule("all", nil, nil); got != "all:\n\n" {
		t.Errorf("empty Rule = %q", got)
	}
}

func TestBasicMakeSyntax_MultiOutputRule(t *testing.T) {
	s := BasicMakeSyntax{}
	outputs := []expr.Expr{expr.NewLiteral("x.c", expr.Pos{})}
	_, err := s.MultiOutputRule(outputs, []string{"x.c", "x.h"}, []string{"x.y"}, []string{"yacc x.y"})
	if err == nil || !strings.Contains(err.Error(), "multiple output files not implemented") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMakeLiteral(t *testing.T) {
	got, err := MakeLiteral(expr.NewLiteral(`-DMSG="hi"`, expr.Pos{}))
	if err != nil {
		t.Fatalf("MakeLiteral error: %v", err)
	}
	if got != `-DMSG=\"hi\"` {
		t.Errorf("MakeLiteral = %q", got)
	}
}

func TestMakePlaceholder(t *testing.T) {
	got, err := MakePlaceholder(expr.NewPlaceholder("JDK_HOME", expr.Pos{}))
	if err != nil {
		t.Fatalf("MakePlaceholder error: %v", err)
	}
	if got != "$(JDK_HOME)" {
		t.Errorf("MakePlaceholder = %q", got)
	}

	// There is no make-time equivalent of per-arch values.
	_, err = MakePlaceholder(expr.NewPlaceholder("arch", expr.Pos{}))
	if err == nil || !strings.Contains(err.Error(), "multi-arch builds are not supported") {
		t.Errorf("unexpected error: %v", err)
	}
}
