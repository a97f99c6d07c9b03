package model

import (
	"testing"

	"github.com/vslavik/bakefile/expr"
)

func srcdirPath(file string, comps ...string) *expr.Path {
	exprs := make([]expr.Expr, len(comps))
	for i, c := range comps {
		exprs[i] = expr.NewLiteral(c, expr.Pos{})
	}

	return expr.NewPath(exprs, expr.AnchorSrcdir, file,
		expr.Pos{File: file, Line: 1, Col: 1})
}

func TestPathNormalizer_SubmodulePrefix(t *testing.T) {
	p := NewProject()
	top := NewModule(p, expr.Pos{File: "test.bkl", Line: 1, Col: 1})
	sub := NewModule(top, expr.Pos{File: "sub/mod.bkl", Line: 1, Col: 1})

	norm := NewPathNormalizer(p, nil)
	norm.SetContext(sub)

	out, err := norm.Rewrite(srcdirPath("sub/mod.bkl", "foo.cpp"))
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	path, ok := out.(*expr.Path)
	if !ok {
		t.Fatalf("Rewrite returned %T, want *expr.Path", out)
	}
	if path.Anchor != expr.AnchorTopSrcdir {
		t.Errorf("anchor = %v, want @top_srcdir", path.Anchor)
	}
	if got := path.String(); got != "@top_srcdir/sub/foo.cpp" {
		t.Errorf("path = %q, want @top_srcdir/sub/foo.cpp", got)
	}
}

func TestPathNormalizer_SrcdirOverride(t *testing.T) {
	p := NewProject()
	top := NewModule(p, expr.Pos{File: "test.bkl", Line: 1, Col: 1})
	sub := NewModule(top, expr.Pos{File: "sub/mod.bkl", Line: 1, Col: 1})

	// A srcdir statement re-anchors the file's relative paths.
	p.SetSrcdir("sub/mod.bkl", ".")

	norm := NewPathNormalizer(p, nil)
	norm.SetContext(sub)

	out, err := norm.Rewrite(srcdirPath("sub/mod.bkl", "foo.cpp"))
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got := out.String(); got != "@top_srcdir/foo.cpp" {
		t.Errorf("path = %q, want @top_srcdir/foo.cpp", got)
	}
}

func TestPathNormalizer_BuilddirOutsideTarget(t *testing.T) {
	p := NewProject()
	m := NewModule(p, expr.Pos{File: "test.bkl", Line: 1, Col: 1})

	norm := NewPathNormalizer(p, &testToolset{})
	norm.SetContext(m)

	in := expr.NewPath([]expr.Expr{expr.NewLiteral("x.o", expr.Pos{})},
		expr.AnchorBuilddir, "", expr.Pos{File: "test.bkl", Line: 2, Col: 1})
	_, err := norm.Rewrite(in)
	if err == nil {
		t.Fatal("expected an error for @builddir outside a target")
	}
}
