package expr

import (
	"strings"
	"testing"
)

func testAnchors(t *testing.T) *PathAnchors {
	t.Helper()

	anchors, err := NewPathAnchors("/", "/work/proj/out/GNUmakefile", "/work/proj/out", "/work/proj")
	if err != nil {
		t.Fatalf("NewPathAnchors error: %v", err)
	}

	return anchors
}

func TestFormatter_ScalarValues(t *testing.T) {
	f := &Formatter{Paths: testAnchors(t)}

	tests := []struct {
		expr Expr
		want string
	}{
		{NewNull(Pos{}), ""},
		{lit("value"), "value"},
		{NewConcat([]Expr{lit("a"), lit("b")}, Pos{}), "ab"},
		{NewList([]Expr{lit("a"), lit("b"), lit("c")}, Pos{}), "a b c"},
		{ref("x", lit("resolved")), "resolved"},
		{NewIf(NewBoolValue(true, Pos{}), lit("y"), lit("n"), Pos{}), "y"},
	}

	for _, tt := range tests {
		got, err := f.Format(tt.expr)
		if err != nil {
			t.Fatalf("Format(%s) error: %v", tt.expr, err)
		}
		if got != tt.want {
			t.Errorf("Format(%s) = %q, want %q", tt.expr, got, tt.want)
		}
	}
}

func TestFormatter_CustomListSeparator(t *testing.T) {
	f := &Formatter{Paths: testAnchors(t), ListSep: ";"}

	got, err := f.Format(NewList([]Expr{lit("a"), lit("b")}, Pos{}))
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	if got != "a;b" {
		t.Errorf("Format = %q, want %q", got, "a;b")
	}
}

func TestFormatter_SrcdirPathRelativeToOutput(t *testing.T) {
	f := &Formatter{Paths: testAnchors(t)}
	p := NewPath([]Expr{lit("src"), lit("main.c")}, AnchorTopSrcdir, "", Pos{})

	got, err := f.Format(p)
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	if got != "../src/main.c" {
		t.Errorf("Format = %q, want %q", got, "../src/main.c")
	}
}

func TestFormatter_BuilddirPath(t *testing.T) {
	f := &Formatter{Paths: testAnchors(t)}
	p := NewPath([]Expr{lit("main.o")}, AnchorBuilddir, "", Pos{})

	got, err := f.Format(p)
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	if got != "main.o" {
		t.Errorf("Format = %q, want %q", got, "main.o")
	}
}

func TestFormatter_WindowsSeparators(t *testing.T) {
	anchors, err := NewPathAnchors("\\", "/work/proj/out/project.vcxproj", "/work/proj/out", "/work/proj")
	if err != nil {
		t.Fatalf("NewPathAnchors error: %v", err)
	}
	f := &Formatter{Paths: anchors}
	p := NewPath([]Expr{lit("src"), lit("main.cpp")}, AnchorTopSrcdir, "", Pos{})

	got, err := f.Format(p)
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	if got != `..\src\main.cpp` {
		t.Errorf("Format = %q, want %q", got, `..\src\main.cpp`)
	}
}

func TestFormatter_BuilddirUnknown(t *testing.T) {
	anchors, err := NewPathAnchors("/", "/work/proj/out/mk", "", "/work/proj")
	if err != nil {
		t.Fatalf("NewPathAnchors error: %v", err)
	}
	f := &Formatter{Paths: anchors}
	p := NewPath([]Expr{lit("main.o")}, AnchorBuilddir, "", Pos{})

	_, err = f.Format(p)
	if err == nil || !strings.Contains(err.Error(), "@builddir") {
		t.Errorf("expected builddir error, got %v", err)
	}
}

func TestFormatter_SettingDependentPath(t *testing.T) {
	f := &Formatter{
		Paths: testAnchors(t),
		Placeholder: func(e *Placeholder) (string, error) {
			return "$(" + e.Name + ")", nil
		},
	}
	p := NewPath([]Expr{NewPlaceholder("arch", Pos{}), lit("obj")}, AnchorBuilddir, "", Pos{})

	got, err := f.Format(p)
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	if got != "$(arch)/obj" {
		t.Errorf("Format = %q, want %q", got, "$(arch)/obj")
	}
}

func TestFormatter_ExternalAbsolutePath(t *testing.T) {
	f := &Formatter{
		Paths: testAnchors(t),
		Placeholder: func(e *Placeholder) (string, error) {
			return "$(" + e.Name + ")", nil
		},
	}
	p := NewPath([]Expr{NewPlaceholder("WXDIR", Pos{}), lit("include")}, AnchorSrcdir, "", Pos{})

	got, err := f.Format(p)
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	if got != "$(WXDIR)/include" {
		t.Errorf("Format = %q, want %q", got, "$(WXDIR)/include")
	}
}

func TestFormatter_PlaceholderWithoutHook(t *testing.T) {
	f := &Formatter{Paths: testAnchors(t)}

	_, err := f.Format(NewPlaceholder("config", Pos{}))
	if err == nil {
		t.Error("expected error when no placeholder hook is set")
	}
}

func TestFormatter_BoolHook(t *testing.T) {
	f := &Formatter{Paths: testAnchors(t)}
	f.Placeholder = func(e *Placeholder) (string, error) {
		return "$(" + e.Name + ")", nil
	}
	f.Bool = func(e *Bool) (string, error) {
		left, err := f.Format(e.Left)
		if err != nil {
			return "", err
		}
		right, err := f.Format(e.Right)
		if err != nil {
			return "", err
		}

		return left + string(e.Op) + right, nil
	}
	e := NewBool(OpEqual, NewPlaceholder("config", Pos{}), lit("Debug"), Pos{})

	got, err := f.Format(e)
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	if got != "$(config)==Debug" {
		t.Errorf("Format = %q, want %q", got, "$(config)==Debug")
	}
}

func TestNewPathAnchors_SameDirectory(t *testing.T) {
	anchors, err := NewPathAnchors("/", "/work/proj/GNUmakefile", "/work/proj", "/work/proj")
	if err != nil {
		t.Fatalf("NewPathAnchors error: %v", err)
	}

	if len(anchors.TopSrcdir) != 0 {
		t.Errorf("TopSrcdir = %v, want empty for same directory", anchors.TopSrcdir)
	}
	if len(anchors.Builddir) != 0 {
		t.Errorf("Builddir = %v, want empty for same directory", anchors.Builddir)
	}
	if !anchors.HasBuilddir {
		t.Error("HasBuilddir should be true when builddir is given")
	}
	if anchors.OutdirAbs != "/work/proj" {
		t.Errorf("OutdirAbs = %q, want /work/proj", anchors.OutdirAbs)
	}
}

func TestNewPathAnchors_RelativeComponents(t *testing.T) {
	anchors, err := NewPathAnchors("/", "/work/proj/out/sub/Makefile", "/work/proj/build", "/work/proj")
	if err != nil {
		t.Fatalf("NewPathAnchors error: %v", err)
	}

	if len(anchors.TopSrcdir) != 2 || anchors.TopSrcdir[0] != ".." || anchors.TopSrcdir[1] != ".." {
		t.Errorf("TopSrcdir = %v, want [.. ..]", anchors.TopSrcdir)
	}
	if len(anchors.Builddir) != 3 {
		t.Errorf("Builddir = %v, want [.. .. build]", anchors.Builddir)
	}
}
