package vs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vslavik/bakefile/gen"
	"github.com/vslavik/bakefile/interp"
)

// generate runs the whole pipeline on the given input files, starting
// from test.bkl, and returns the generated files keyed by their path
// relative to the output directory.
func generate(t *testing.T, files map[string]string) map[string]string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	gen.SetCurrent(gen.NewOutput(dir))
	defer gen.SetCurrent(gen.NewOutput("."))

	i := interp.New()
	if err := i.ProcessFile(filepath.Join(dir, "test.bkl")); err != nil {
		t.Fatalf("processing error: %v", err)
	}

	out := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasSuffix(path, ".bkl") {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)

		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	return out
}

func file(t *testing.T, files map[string]string, name string) string {
	t.Helper()
	content, ok := files[name]
	if !ok {
		var got []string
		for k := range files {
			got = append(got, k)
		}
		t.Fatalf("no %s was generated, have %v", name, got)
	}

	return content
}

func wantText(t *testing.T, content, fragment string) {
	t.Helper()
	if !strings.Contains(content, fragment) {
		t.Errorf("generated file lacks %q:\n%s", fragment, content)
	}
}

func wantNoText(t *testing.T, content, fragment string) {
	t.Helper()
	if strings.Contains(content, fragment) {
		t.Errorf("generated file must not contain %q:\n%s", fragment, content)
	}
}

func TestGenerate_Program(t *testing.T) {
	files := generate(t, map[string]string{"test.bkl": `
toolsets = vs2012;
program hello {
  sources { hello.c }
}
`})

	sln := file(t, files, "test.sln")
	wantText(t, sln, "Microsoft Visual Studio Solution File, Format Version 12.00")
	wantText(t, sln, "# Visual Studio 2012")
	wantText(t, sln, `Project("{8BC9CEB8-8B4A-11D0-8D11-00A0C91BC942}") = "hello", "hello.vcxproj", "{`)
	wantText(t, sln, "GlobalSection(SolutionConfigurationPlatforms) = preSolution")
	wantText(t, sln, "Debug|Win32 = Debug|Win32")
	wantText(t, sln, "Release|Win32 = Release|Win32")
	wantText(t, sln, ".Debug|Win32.ActiveCfg = Debug|Win32")
	wantText(t, sln, ".Debug|Win32.Build.0 = Debug|Win32")
	wantText(t, sln, "HideSolutionNode = FALSE")
	if !strings.HasPrefix(sln, "\ufeff") {
		t.Error("solution file must start with a BOM")
	}

	prj := file(t, files, "hello.vcxproj")
	wantText(t, prj, `<?xml version="1.0" encoding="utf-8"?>`)
	wantText(t, prj, `<Project DefaultTargets="Build" ToolsVersion="4.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">`)
	wantText(t, prj, `<ProjectConfiguration Include="Debug|Win32">`)
	wantText(t, prj, "<Configuration>Debug</Configuration>")
	wantText(t, prj, "<Platform>Win32</Platform>")
	wantText(t, prj, "<ProjectGuid>{")
	wantText(t, prj, "<Keyword>Win32Proj</Keyword>")
	wantText(t, prj, "<RootNamespace>hello</RootNamespace>")
	wantText(t, prj, `<Import Project="$(VCTargetsPath)\Microsoft.Cpp.Default.props" />`)
	wantText(t, prj, `Condition="'$(Configuration)|$(Platform)'=='Debug|Win32'"`)
	wantText(t, prj, "<ConfigurationType>Application</ConfigurationType>")
	wantText(t, prj, "<UseDebugLibraries>true</UseDebugLibraries>")
	wantText(t, prj, "<UseDebugLibraries>false</UseDebugLibraries>")
	wantText(t, prj, "<PlatformToolset>v110</PlatformToolset>")
	wantText(t, prj, "<CharacterSet>Unicode</CharacterSet>")
	wantText(t, prj, "<LinkIncremental>true</LinkIncremental>")
	wantText(t, prj, "<WarningLevel>Level3</WarningLevel>")
	wantText(t, prj, "<Optimization>Disabled</Optimization>")
	wantText(t, prj, "<Optimization>MaxSpeed</Optimization>")
	wantText(t, prj, "<PreprocessorDefinitions>WIN32;_DEBUG;_CONSOLE;%(PreprocessorDefinitions)</PreprocessorDefinitions>")
	wantText(t, prj, "<PreprocessorDefinitions>WIN32;NDEBUG;_CONSOLE;%(PreprocessorDefinitions)</PreprocessorDefinitions>")
	wantText(t, prj, "<RuntimeLibrary>MultiThreadedDebugDLL</RuntimeLibrary>")
	wantText(t, prj, "<RuntimeLibrary>MultiThreadedDLL</RuntimeLibrary>")
	wantText(t, prj, "<SubSystem>Console</SubSystem>")
	wantText(t, prj, "<GenerateDebugInformation>true</GenerateDebugInformation>")
	wantText(t, prj, "<EnableCOMDATFolding>true</EnableCOMDATFolding>")
	wantText(t, prj, `<ClCompile Include="hello.c" />`)
	wantText(t, prj, `<Import Project="$(VCTargetsPath)\Microsoft.Cpp.targets" />`)
	if !strings.HasPrefix(prj, "\ufeff") {
		t.Error("project file must start with a BOM")
	}

	filters := file(t, files, "hello.vcxproj.filters")
	wantText(t, filters, "{4FC737F1-C7A5-4376-A066-2A32D752A2FF}")
	wantText(t, filters, "{93995380-89BD-4b04-88EB-625FBE52EBFB}")
	wantText(t, filters, "{67DA6AB6-F800-4c08-8B7A-83BB121AAD01}")
	wantText(t, filters, `<ClCompile Include="hello.c">`)
	wantText(t, filters, "<Filter>Source Files</Filter>")
}

func TestGenerate_VS2010(t *testing.T) {
	files := generate(t, map[string]string{"test.bkl": `
toolsets = vs2010;
program hello {
  sources { hello.c }
}
`})

	sln := file(t, files, "test.sln")
	wantText(t, sln, "Microsoft Visual Studio Solution File, Format Version 11.00")
	wantText(t, sln, "# Visual Studio 2010")
	wantNoText(t, sln, "VisualStudioVersion")

	prj := file(t, files, "hello.vcxproj")
	wantText(t, prj, `ToolsVersion="4.0"`)
	wantNoText(t, prj, "PlatformToolset")
}

func TestGenerate_VS2017(t *testing.T) {
	files := generate(t, map[string]string{"test.bkl": `
toolsets = vs2017;
program hello {
  sources { hello.c }
}
`})

	sln := file(t, files, "test.sln")
	wantText(t, sln, "Microsoft Visual Studio Solution File, Format Version 12.00")
	wantText(t, sln, "# Visual Studio 15")
	wantText(t, sln, "VisualStudioVersion = 15.0.27130.2003")
	wantText(t, sln, "MinimumVisualStudioVersion = 10.0.40219.1")

	prj := file(t, files, "hello.vcxproj")
	wantText(t, prj, `ToolsVersion="15.0"`)
	wantText(t, prj, "<PlatformToolset>v141</PlatformToolset>")
}

func TestGenerate_StaticLibrary(t *testing.T) {
	files := generate(t, map[string]string{"test.bkl": `
toolsets = vs2012;
library mylib {
  sources { a.c }
}
`})

	prj := file(t, files, "mylib.vcxproj")
	wantText(t, prj, "<ConfigurationType>StaticLibrary</ConfigurationType>")
	wantText(t, prj, "<PreprocessorDefinitions>WIN32;_DEBUG;_LIB;%(PreprocessorDefinitions)</PreprocessorDefinitions>")
	wantNoText(t, prj, "<SubSystem>")
	wantNoText(t, prj, "LinkIncremental")
}

func TestGenerate_SharedLibrary(t *testing.T) {
	files := generate(t, map[string]string{"test.bkl": `
toolsets = vs2012;
shared-library myshared {
  sources { a.cpp }
}
`})

	prj := file(t, files, "myshared.vcxproj")
	wantText(t, prj, "<ConfigurationType>DynamicLibrary</ConfigurationType>")
	wantText(t, prj, "MYSHARED_EXPORTS")
	wantText(t, prj, "<SubSystem>Windows</SubSystem>")
}

func TestGenerate_WindowsSettings(t *testing.T) {
	files := generate(t, map[string]string{"test.bkl": `
toolsets = vs2012;
program gui {
  sources { main.cpp }
  win32-subsystem = windows;
  win32-unicode = false;
  win32-crt-linkage = static;
}
`})

	prj := file(t, files, "gui.vcxproj")
	wantText(t, prj, "<SubSystem>Windows</SubSystem>")
	wantText(t, prj, "<PreprocessorDefinitions>WIN32;_DEBUG;_WINDOWS;%(PreprocessorDefinitions)</PreprocessorDefinitions>")
	wantText(t, prj, "<CharacterSet>MultiByte</CharacterSet>")
	wantText(t, prj, "<RuntimeLibrary>MultiThreadedDebug</RuntimeLibrary>")
	wantText(t, prj, "<RuntimeLibrary>MultiThreaded</RuntimeLibrary>")
}

func TestGenerate_CompilerFlags(t *testing.T) {
	files := generate(t, map[string]string{"test.bkl": `
toolsets = vs2012;
program p {
  sources { a.c }
  defines += FOO BAR=1;
  includedirs += include;
  warnings = all;
  compiler-options = "/EHsc";
}
`})

	prj := file(t, files, "p.vcxproj")
	wantText(t, prj, "<WarningLevel>Level4</WarningLevel>")
	wantText(t, prj, "<PreprocessorDefinitions>WIN32;_DEBUG;_CONSOLE;FOO;BAR=1;%(PreprocessorDefinitions)</PreprocessorDefinitions>")
	wantText(t, prj, "<AdditionalIncludeDirectories>include</AdditionalIncludeDirectories>")
	wantText(t, prj, "<AdditionalOptions>/EHsc %(AdditionalOptions)</AdditionalOptions>")
}

func TestGenerate_Archs(t *testing.T) {
	files := generate(t, map[string]string{"test.bkl": `
toolsets = vs2012;
program hello {
  archs = x86 x86_64;
  sources { hello.c }
}
`})

	sln := file(t, files, "test.sln")
	wantText(t, sln, "Debug|Win32 = Debug|Win32")
	wantText(t, sln, "Debug|x64 = Debug|x64")
	wantText(t, sln, ".Release|x64.Build.0 = Release|x64")

	prj := file(t, files, "hello.vcxproj")
	wantText(t, prj, `<ProjectConfiguration Include="Debug|x64">`)
	wantText(t, prj, "<Platform>x64</Platform>")
	wantText(t, prj, `Condition="'$(Configuration)|$(Platform)'=='Release|x64'"`)
	wantText(t, prj, `<IntDir>$(Platform)\$(Configuration)\$(ProjectName)\</IntDir>`)
}

func TestGenerate_Deps(t *testing.T) {
	files := generate(t, map[string]string{"test.bkl": `
toolsets = vs2012;
library core {
  sources { core.c }
}
program app {
  deps = core;
  sources { main.c }
}
`})

	sln := file(t, files, "test.sln")
	wantText(t, sln, "ProjectSection(ProjectDependencies) = postProject")

	prj := file(t, files, "app.vcxproj")
	wantText(t, prj, `<ProjectReference Include="core.vcxproj">`)
	wantText(t, prj, "<Project>{")
	// Both projects write intermediate files into the same directory, so
	// they need distinct ones.
	wantText(t, prj, `<IntDir>$(Configuration)\$(ProjectName)\</IntDir>`)
	wantText(t, file(t, files, "core.vcxproj"), `<IntDir>$(Configuration)\$(ProjectName)\</IntDir>`)
}

func TestGenerate_ConfigCondition(t *testing.T) {
	files := generate(t, map[string]string{"test.bkl": `
toolsets = vs2012;
program p {
  sources { a.c }
  if ( $(config) == Debug ) defines += TRACE;
}
`})

	prj := file(t, files, "p.vcxproj")
	wantText(t, prj, "<PreprocessorDefinitions>WIN32;_DEBUG;_CONSOLE;TRACE;%(PreprocessorDefinitions)</PreprocessorDefinitions>")
	wantText(t, prj, "<PreprocessorDefinitions>WIN32;NDEBUG;_CONSOLE;%(PreprocessorDefinitions)</PreprocessorDefinitions>")
}

func TestGenerate_Submodules(t *testing.T) {
	files := generate(t, map[string]string{
		"test.bkl":    "toolsets = vs2012;\nsubmodule lib/lib.bkl;\n",
		"lib/lib.bkl": "library core {\n  sources { core.c }\n}\n",
	})

	sub := file(t, files, "lib/lib.sln")
	wantText(t, sub, `Project("{8BC9CEB8-8B4A-11D0-8D11-00A0C91BC942}") = "core", "core.vcxproj", "{`)

	// The toplevel solution pulls in the submodule's project, with the
	// path relative to its own location.
	top := file(t, files, "test.sln")
	wantText(t, top, `"core", "lib\core.vcxproj"`)

	prj := file(t, files, "lib/core.vcxproj")
	wantText(t, prj, "<ConfigurationType>StaticLibrary</ConfigurationType>")
}

func TestGenerate_SettingRejected(t *testing.T) {
	dir := t.TempDir()
	src := `
toolsets = vs2012;
setting JDK_HOME {
  default = /opt/jdk;
}
program p {
  sources { a.c }
  includedirs += $(JDK_HOME)/include;
}
`
	path := filepath.Join(dir, "test.bkl")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	gen.SetCurrent(gen.NewOutput(dir))
	defer gen.SetCurrent(gen.NewOutput("."))

	err := interp.New().ProcessFile(path)
	if err == nil || !strings.Contains(err.Error(), `cannot use setting "JDK_HOME"`) {
		t.Errorf("error = %v, want a setting rejection", err)
	}
}

func TestGenerate_NameMismatch(t *testing.T) {
	dir := t.TempDir()
	src := `
toolsets = vs2012;
program hello {
  vs2012.projectfile = greeting.vcxproj;
  sources { hello.c }
}
`
	path := filepath.Join(dir, "test.bkl")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	gen.SetCurrent(gen.NewOutput(dir))
	defer gen.SetCurrent(gen.NewOutput("."))

	err := interp.New().ProcessFile(path)
	if err == nil || !strings.Contains(err.Error(), "differs from target name") {
		t.Errorf("error = %v, want a name mismatch rejection", err)
	}
}

func TestGUIDStability(t *testing.T) {
	a := newGUID(namespaceProject, "test", "hello")
	b := newGUID(namespaceProject, "test", "hello")
	if a != b {
		t.Fatalf("same input gives different GUIDs: %s vs %s", a, b)
	}
	if a != strings.ToUpper(a) {
		t.Errorf("GUID %s is not uppercase", a)
	}
	if len(a) != 36 || strings.Count(a, "-") != 4 {
		t.Errorf("GUID %s is not in 8-4-4-4-12 form", a)
	}
	if c := newGUID(namespaceProject, "test", "world"); c == a {
		t.Error("different input gives the same GUID")
	}
	if c := newGUID(namespaceSlnGroup, "test", "hello"); c == a {
		t.Error("different namespace gives the same GUID")
	}
}
