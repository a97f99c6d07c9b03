package expr

import (
	"testing"
)

func srcPath(components ...string) *Path {
	items := make([]Expr, len(components))
	for i, c := range components {
		items[i] = lit(c)
	}

	return NewPath(items, AnchorTopSrcdir, "", Pos{})
}

func TestPath_Basename(t *testing.T) {
	tests := []struct {
		path *Path
		want string
	}{
		{srcPath("src", "main.c"), "main"},
		{srcPath("README"), "README"},
		{srcPath("archive.tar.gz"), "archive.tar"},
	}

	for _, tt := range tests {
		got, err := tt.path.Basename()
		if err != nil {
			t.Fatalf("Basename(%s) error: %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("Basename(%s) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestPath_Basename_NonConst(t *testing.T) {
	p := NewPath([]Expr{NewPlaceholder("name", Pos{})}, AnchorTopSrcdir, "", Pos{})

	_, err := p.Basename()
	if err == nil {
		t.Error("expected error for setting-dependent file name")
	}
}

func TestPath_Extension(t *testing.T) {
	tests := []struct {
		path *Path
		want string
	}{
		{srcPath("main.c"), "c"},
		{srcPath("main.cpp"), "cpp"},
		{srcPath("README"), ""},
		{srcPath("archive.tar.gz"), "gz"},
	}

	for _, tt := range tests {
		got, err := tt.path.Extension()
		if err != nil {
			t.Fatalf("Extension(%s) error: %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("Extension(%s) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestPath_Extension_OfConcatLastItem(t *testing.T) {
	p := NewPath([]Expr{
		NewConcat([]Expr{ref("base", lit("main")), lit(".cpp")}, Pos{}),
	}, AnchorTopSrcdir, "", Pos{})

	got, err := p.Extension()
	if err != nil {
		t.Fatalf("Extension error: %v", err)
	}
	if got != "cpp" {
		t.Errorf("Extension = %q, want cpp", got)
	}
}

func TestPath_Extension_Undeterminable(t *testing.T) {
	p := NewPath([]Expr{NewPlaceholder("name", Pos{})}, AnchorTopSrcdir, "", Pos{})

	_, err := p.Extension()
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNonConst(err) {
		t.Errorf("expected non-const error, got %v", err)
	}
}

func TestPath_WithExtension(t *testing.T) {
	p := srcPath("src", "main.c")

	got, err := p.WithExtension("o")
	if err != nil {
		t.Fatalf("WithExtension error: %v", err)
	}
	if got.String() != "@top_srcdir/src/main.o" {
		t.Errorf("WithExtension = %q, want @top_srcdir/src/main.o", got)
	}

	// The receiver stays untouched.
	if p.String() != "@top_srcdir/src/main.c" {
		t.Errorf("receiver changed to %q", p)
	}
}

func TestPath_WithExtension_AppendsWhenMissing(t *testing.T) {
	p := srcPath("outfile")

	got, err := p.WithExtension("txt")
	if err != nil {
		t.Fatalf("WithExtension error: %v", err)
	}
	if got.String() != "@top_srcdir/outfile.txt" {
		t.Errorf("WithExtension = %q, want @top_srcdir/outfile.txt", got)
	}
}

func TestPath_WithExtension_KeepsConcatPrefix(t *testing.T) {
	p := NewPath([]Expr{
		NewConcat([]Expr{ref("base", lit("main")), lit(".cpp")}, Pos{}),
	}, AnchorTopSrcdir, "", Pos{})

	got, err := p.WithExtension("obj")
	if err != nil {
		t.Fatalf("WithExtension error: %v", err)
	}
	if got.String() != "@top_srcdir/$(base).obj" {
		t.Errorf("WithExtension = %q, want @top_srcdir/$(base).obj", got)
	}
}

func TestPath_WithSuffix(t *testing.T) {
	p := srcPath("libfoo.a")

	got, err := p.WithSuffix(lit("31"))
	if err != nil {
		t.Fatalf("WithSuffix error: %v", err)
	}

	v, err := AsConst(got)
	if err != nil {
		t.Fatalf("AsConst error: %v", err)
	}
	if v.AsString() != "@top_srcdir/libfoo31.a" {
		t.Errorf("WithSuffix = %q, want @top_srcdir/libfoo31.a", v.AsString())
	}
}

func TestPath_WithSuffix_NullSuffixIsNoop(t *testing.T) {
	p := srcPath("libfoo.a")

	got, err := p.WithSuffix(NewNull(Pos{}))
	if err != nil {
		t.Fatalf("WithSuffix error: %v", err)
	}
	if got != p {
		t.Errorf("WithSuffix(null) = %v, want the path unchanged", got)
	}
}

func TestPath_NativePath(t *testing.T) {
	anchors, err := NewPathAnchors("/", "/work/proj/out/GNUmakefile", "/work/proj/out", "/work/proj")
	if err != nil {
		t.Fatalf("NewPathAnchors error: %v", err)
	}

	p := srcPath("src", "main.c")
	got, err := p.NativePath(anchors)
	if err != nil {
		t.Fatalf("NativePath error: %v", err)
	}
	if got != "/work/proj/src/main.c" {
		t.Errorf("NativePath = %q, want /work/proj/src/main.c", got)
	}

	obj := NewPath([]Expr{lit("main.o")}, AnchorBuilddir, "", Pos{})
	got, err = obj.NativePath(anchors)
	if err != nil {
		t.Fatalf("NativePath error: %v", err)
	}
	if got != "/work/proj/out/main.o" {
		t.Errorf("NativePath = %q, want /work/proj/out/main.o", got)
	}
}

func TestPath_NativePath_RejectsSrcdirAnchor(t *testing.T) {
	anchors, err := NewPathAnchors("/", "/work/proj/out/GNUmakefile", "", "/work/proj")
	if err != nil {
		t.Fatalf("NewPathAnchors error: %v", err)
	}

	p := NewPath([]Expr{lit("x")}, AnchorSrcdir, "sub/file.bkl", Pos{})
	if _, err := p.NativePath(anchors); err == nil {
		t.Error("expected error for srcdir-anchored path")
	}
}

func TestPath_NativePathForOutput(t *testing.T) {
	p := srcPath("gen", "Makefile")

	got, err := p.NativePathForOutput("/work/proj")
	if err != nil {
		t.Fatalf("NativePathForOutput error: %v", err)
	}
	if got != "/work/proj/gen/Makefile" {
		t.Errorf("NativePathForOutput = %q, want /work/proj/gen/Makefile", got)
	}

	obj := NewPath([]Expr{lit("x.o")}, AnchorBuilddir, "", Pos{})
	if _, err := obj.NativePathForOutput("/work/proj"); err == nil {
		t.Error("expected error for builddir-anchored output path")
	}
}
