package interp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/lang"
	"github.com/vslavik/bakefile/model"
)

// recordingToolset is a minimal toolset that remembers the projects it
// was asked to generate for.
type recordingToolset struct {
	name     string
	projects []*model.Project
}

func (t *recordingToolset) Name() string      { return t.name }
func (t *recordingToolset) ObjectExt() string { return ".o" }

func (t *recordingToolset) BuilddirFor(*model.Target) *expr.Path {
	return expr.NewPath(nil, expr.AnchorBuilddir, "", expr.Pos{})
}

func (t *recordingToolset) Generate(prj *model.Project) error {
	t.projects = append(t.projects, prj)

	return nil
}

func (t *recordingToolset) reset() { t.projects = nil }

var (
	tsFake = &recordingToolset{name: "fake"}
	tsAlt  = &recordingToolset{name: "alt"}
)

func init() {
	model.RegisterToolset(tsFake)
	model.RegisterToolset(tsAlt)
}

func TestDetectSelfReferences(t *testing.T) {
	prj := build(t, "X = $(Y);\nY = $(X);")
	err := detectSelfReferences(prj)
	if err == nil || !strings.Contains(err.Error(), "defined recursively, references itself") {
		t.Errorf("unexpected error: %v", err)
	}

	prj = build(t, "X = $(Y);\nY = plain;\nZ = $(Y) $(Y);")
	if err := detectSelfReferences(prj); err != nil {
		t.Errorf("no cycle here, got: %v", err)
	}
}

func TestValidateVars_BadPropertyValue(t *testing.T) {
	i, err := tryBuild("toolsets = fake;\nprogram p {\n  win32-unicode = maybe;\n}")
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	err = i.Finalize()
	if err == nil || !strings.Contains(err.Error(), `variable "win32-unicode" (bool)`) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFinalize_AnchorsSourcePaths(t *testing.T) {
	i, err := tryBuild("toolsets = fake;\nprogram hello {\n  sources { hello.c sub/dir.c }\n}")
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	if err := i.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	for _, f := range i.Project.AllTargets()[0].Sources() {
		path, ok := f.Filename().(*expr.Path)
		if !ok {
			t.Fatalf("filename %s is not a path", f.Filename())
		}
		if path.Anchor != expr.AnchorTopSrcdir {
			t.Errorf("filename %s should be anchored at @top_srcdir", f.Filename())
		}
	}
}

func TestRemoveDisabledParts(t *testing.T) {
	i, err := tryBuild(`
toolsets = fake;
flag = false;
program yes {}
if ( $(flag) ) program no {}
if ( $(flag) ) setting S {}
`)
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	if err := i.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if err := removeDisabledParts(i.Project, "fake"); err != nil {
		t.Fatalf("removeDisabledParts error: %v", err)
	}

	targets := i.Project.AllTargets()
	if len(targets) != 1 || targets[0].Name() != "yes" {
		t.Errorf("expected only target yes to survive, got %v", targets)
	}
	if len(i.Project.Settings()) != 0 {
		t.Errorf("disabled setting should have been removed, got %v", i.Project.Settings())
	}
}

func TestRemoveDisabledParts_KeepsDynamicConditions(t *testing.T) {
	// A condition depending on $(config) can't be evaluated at generation
	// time; the file stays in and the output format decides.
	i, err := tryBuild(`
toolsets = fake;
program p {
  sources { common.c }
  if ( $(config) == Debug ) sources { trace.c }
}
`)
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	if err := i.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if err := removeDisabledParts(i.Project, "fake"); err != nil {
		t.Fatalf("removeDisabledParts error: %v", err)
	}
	if got := len(i.Project.AllTargets()[0].Sources()); got != 2 {
		t.Errorf("expected both sources kept, got %d", got)
	}
}

func TestMakeToolsetSpecificModel(t *testing.T) {
	i, err := tryBuild("toolsets = fake;\nprogram p {}")
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	if err := i.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	prj := i.MakeToolsetSpecificModel("fake", false)
	if prj == i.Project {
		t.Fatal("expected a copy of the model")
	}
	v := prj.Variable("toolset")
	if v == nil || v.Value().String() != "fake" {
		t.Fatalf("toolset variable not set, got %v", v)
	}
	if !v.IsReadOnly() {
		t.Error("toolset variable should be read-only")
	}
	if i.Project.Variable("toolset") != nil {
		t.Error("original model must stay untouched")
	}
}

func TestGenerate_AllToolsets(t *testing.T) {
	tsFake.reset()
	tsAlt.reset()
	i, err := tryBuild(`
toolsets = fake alt;
if ( $(toolset) == fake ) X = onlyfake;
program hello {
  sources { hello.c }
}
`)
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	if err := i.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if err := i.Generate(); err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if len(tsFake.projects) != 1 || len(tsAlt.projects) != 1 {
		t.Fatalf("expected one generation per toolset, got %d and %d",
			len(tsFake.projects), len(tsAlt.projects))
	}
	// The last toolset reuses the interpreter's own model, earlier ones
	// get private copies.
	if tsFake.projects[0] == i.Project {
		t.Error("non-final toolset should work on a copy")
	}
	if tsAlt.projects[0] != i.Project {
		t.Error("final toolset should reuse the model")
	}

	// Toolset conditionals are resolved in each private model.
	v := tsFake.projects[0].TopModule().Variable("X")
	if v == nil || v.Value().String() != "onlyfake" {
		t.Errorf("X for fake = %v, want onlyfake", v)
	}
	v = tsAlt.projects[0].TopModule().Variable("X")
	if v == nil {
		t.Fatal("X missing in the alt model")
	}
	if isNull, err := expr.IsNull(v.Value()); err != nil || !isNull {
		t.Errorf("X for alt = %s, want null", v.Value())
	}
}

func TestGenerate_ForcedToolset(t *testing.T) {
	tsFake.reset()
	tsAlt.reset()
	i, err := tryBuild("toolsets = fake;\nprogram p {}")
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	if err := i.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	i.LimitToolsets("alt")
	if err := i.Generate(); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(tsFake.projects) != 0 {
		t.Error("fake should not have been generated")
	}
	if len(tsAlt.projects) != 1 {
		t.Fatal("alt should have been generated despite the project not listing it")
	}
	if len(tsAlt.projects[0].AllTargets()) != 1 {
		t.Error("forcing the toolset should keep the module's content")
	}
}

func TestGenerate_UnknownForcedToolset(t *testing.T) {
	i, err := tryBuild("toolsets = fake;")
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	i.LimitToolsets("nosuch")
	err = i.Generate()
	if err == nil || !strings.Contains(err.Error(), `unknown toolset "nosuch" given on command line`) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGenerate_NothingToGenerate(t *testing.T) {
	i, err := tryBuild("X = 1;")
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	err = i.Generate()
	if err == nil || !strings.Contains(err.Error(), `nothing to generate, "toolsets" property is empty`) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStringList(t *testing.T) {
	tests := []struct {
		value expr.Expr
		want  []string
	}{
		{expr.NewNull(expr.Pos{}), nil},
		{expr.NewLiteral("one", expr.Pos{}), []string{"one"}},
		{expr.NewList([]expr.Expr{
			expr.NewLiteral("a", expr.Pos{}),
			expr.NewLiteral("b", expr.Pos{}),
		}, expr.Pos{}), []string{"a", "b"}},
	}
	for _, tt := range tests {
		got, err := stringList(tt.value)
		if err != nil {
			t.Errorf("stringList(%s) error: %v", tt.value, err)

			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("stringList(%s) = %v, want %v", tt.value, got, tt.want)

			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("stringList(%s)[%d] = %q, want %q", tt.value, i, got[i], tt.want[i])
			}
		}
	}
}

func TestFinalize_SrcdirOverridesAnchors(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"test.bkl": "toolsets = fake;\n" +
			"submodule proj/sub/over.bkl;\n" +
			"submodule proj/sub/plain.bkl;\n",
		"proj/sub/over.bkl":  "srcdir ../..;\nprogram hello {\n  sources { foo.cpp }\n}\n",
		"proj/sub/plain.bkl": "program world {\n  sources { bar.cpp }\n}\n",
	}
	for name, src := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	file, err := lang.ParseFile(filepath.Join(dir, "test.bkl"))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	i := New()
	if err := i.AddModule(file, i.Project); err != nil {
		t.Fatalf("AddModule error: %v", err)
	}
	if err := i.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	got := make(map[string]string)
	for _, tgt := range i.Project.AllTargets() {
		got[tgt.Name()] = tgt.Sources()[0].Filename().String()
	}

	// Without an override, the submodule's sources keep its directory
	// as the prefix; srcdir ../.. re-anchors them at the project root.
	if got["world"] != "@top_srcdir/proj/sub/bar.cpp" {
		t.Errorf(`world source = %q, want "@top_srcdir/proj/sub/bar.cpp"`, got["world"])
	}
	if got["hello"] != "@top_srcdir/foo.cpp" {
		t.Errorf(`hello source = %q, want "@top_srcdir/foo.cpp"`, got["hello"])
	}
}
