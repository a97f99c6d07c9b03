package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vslavik/bakefile/expr"
)

// FileType describes one kind of file entering or leaving a compilation
// step, e.g. C++ sources or object files. File types register themselves
// with [RegisterFileType]; lookup by extension is how source files are
// matched to compilers.
type FileType struct {
	// Name of the file type, used in error messages.
	Name string

	// Extensions the file type uses, without the leading dot. Pseudo
	// types such as linker outputs have none.
	Extensions []string
}

var fileTypes = struct {
	byExt map[string]*FileType
}{byExt: make(map[string]*FileType)}

// RegisterFileType adds a file type to the registry. Claiming an
// extension twice is a programming error.
func RegisterFileType(ft *FileType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, ext := range ft.Extensions {
		if _, dup := fileTypes.byExt[ext]; dup {
			panic(fmt.Sprintf("file extension %q registered twice", ext))
		}
		fileTypes.byExt[ext] = ft
	}
}

// FileTypeForExtension returns the file type claiming the given extension
// (without the leading dot).
func FileTypeForExtension(ext string) (*FileType, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if ft, ok := fileTypes.byExt[ext]; ok {
		return ft, nil
	}

	return nil, expr.Errorf(expr.Pos{}, "unknown file extension \".%s\"", ext)
}

// Compiler turns files of one type into another for a particular toolset:
// a real compiler producing object files, or a linker producing the
// final binary. Compilers register with [RegisterCompiler] under the
// toolsets supporting them.
type Compiler interface {
	// In is the file type consumed.
	In() *FileType

	// Out is the file type produced.
	Out() *FileType

	// Commands returns the commands compiling input into output. The
	// input is a single path for compilers and a list of paths for
	// linkers.
	Commands(toolset Toolset, target *Target, input, output expr.Expr) ([]expr.Expr, error)
}

type compilerKey struct {
	toolset string
	in, out *FileType
}

var compilers = struct {
	byKey map[compilerKey]Compiler
}{byKey: make(map[compilerKey]Compiler)}

// RegisterCompiler adds a compiler to the registry of the named toolset.
func RegisterCompiler(toolset string, c Compiler) {
	registryMu.Lock()
	defer registryMu.Unlock()
	key := compilerKey{toolset, c.In(), c.Out()}
	if _, dup := compilers.byKey[key]; dup {
		panic(fmt.Sprintf("compiler %q -> %q registered twice for toolset %q",
			c.In().Name, c.Out().Name, toolset))
	}
	compilers.byKey[key] = c
}

// compilerFor returns the compiler turning from into to under the given
// toolset, or nil when there is none.
func compilerFor(toolset Toolset, from, to *FileType) Compiler {
	registryMu.Lock()
	defer registryMu.Unlock()

	return compilers.byKey[compilerKey{toolset.Name(), from, to}]
}

// compilableInto returns the file types some compiler of the toolset can
// turn into ft, in stable order.
func compilableInto(toolset Toolset, ft *FileType) []*FileType {
	registryMu.Lock()
	defer registryMu.Unlock()
	var out []*FileType
	for key := range compilers.byKey {
		if key.toolset == toolset.Name() && key.out == ft {
			out = append(out, key.in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// objectTypeOf returns the file type of the toolset's object files.
func objectTypeOf(toolset Toolset) (*FileType, error) {
	return FileTypeForExtension(strings.TrimPrefix(toolset.ObjectExt(), "."))
}

// CompilationSubgraph produces the build nodes compiling a target's
// source files and linking them into outfile, a file of type ftTo.
func CompilationSubgraph(toolset Toolset, target *Target, ftTo *FileType, outfile expr.Expr) (*BuildSubgraph, error) {
	objType, err := objectTypeOf(toolset)
	if err != nil {
		return nil, err
	}

	var objects, allnodes []*BuildNode
	filesMap := DisambiguateIntermediateFileNames(target.Sources())

	for _, srcfile := range target.Sources() {
		build, err := srcfile.ShouldBuild()
		if err != nil {
			return nil, err
		}
		if !build {
			continue
		}
		custom, err := hasCustomCommands(srcfile)
		if err != nil {
			return nil, err
		}
		if custom {
			nodes, err := buildNodesForGeneratedFile(srcfile)
			if err != nil {
				return nil, err
			}
			allnodes = append(allnodes, nodes...)
		} else {
			obj, all, err := buildNodesForFile(toolset, target, srcfile, objType, filesMap)
			if err != nil {
				return nil, err
			}
			objects = append(objects, obj...)
			allnodes = append(allnodes, all...)
		}
	}
	// Headers are only interesting when generated, i.e. when they carry
	// custom compilation commands.
	for _, srcfile := range target.Headers() {
		build, err := srcfile.ShouldBuild()
		if err != nil {
			return nil, err
		}
		if !build {
			continue
		}
		custom, err := hasCustomCommands(srcfile)
		if err != nil {
			return nil, err
		}
		if custom {
			nodes, err := buildNodesForGeneratedFile(srcfile)
			if err != nil {
				return nil, err
			}
			allnodes = append(allnodes, nodes...)
		}
	}

	linker := compilerFor(toolset, objType, ftTo)
	if linker == nil {
		return nil, expr.Errorf(target.Position(),
			"don't know how to link %q files with toolset %q", ftTo.Name, toolset.Name())
	}

	objectFiles := make([]expr.Expr, len(objects))
	for i, o := range objects {
		objectFiles[i] = o.Outputs[0]
	}
	linkCommands, err := linker.Commands(toolset, target,
		expr.NewList(objectFiles, target.Position()), outfile)
	if err != nil {
		return nil, err
	}
	linkNode := NewBuildNode("", linkCommands, objectFiles, []expr.Expr{outfile}, target.Position())

	return &BuildSubgraph{Main: linkNode, Secondary: allnodes}, nil
}

func hasCustomCommands(f *SourceFile) (bool, error) {
	value, err := f.VariableValue("compile-commands")
	if err != nil {
		return false, err
	}

	return expr.Truthy(value)
}

// buildNodesForFile makes the nodes compiling one source file into ftTo.
// When no compiler does it directly, compilation is chained through an
// intermediate file type; the typical case is a parser generator whose
// output is compiled as an ordinary source.
func buildNodesForFile(toolset Toolset, target *Target, srcfile *SourceFile, ftTo *FileType, filesMap map[*SourceFile]string) (objects, allnodes []*BuildNode, err error) {
	src, ok := srcfile.Filename().(*expr.Path)
	if !ok {
		return nil, nil, expr.Errorf(srcfile.Position(),
			"source file name %q is not a path", srcfile.Filename())
	}

	ext, err := src.Extension()
	if err != nil {
		return nil, nil, err
	}
	objbase, ok := filesMap[srcfile]
	if !ok {
		objbase, err = src.Basename()
		if err != nil {
			return nil, nil, err
		}
	}
	objname := expr.NewPath(
		[]expr.Expr{expr.NewLiteral(
			fmt.Sprintf("%s_%s.%s", target.Name(), objbase, ftTo.Extensions[0]),
			src.Position())},
		expr.AnchorBuilddir, "", src.Position())

	ftFrom, err := FileTypeForExtension(ext)
	if err != nil {
		return nil, nil, expr.WithPos(err, src.Position())
	}
	compiler := compilerFor(toolset, ftFrom, ftTo)
	if compiler == nil {
		for _, ftSource := range compilableInto(toolset, ftTo) {
			if compilerFor(toolset, ftFrom, ftSource) == nil {
				continue
			}
			compilables, all, err := buildNodesForFile(toolset, target, srcfile, ftSource, filesMap)
			if err != nil {
				return nil, nil, err
			}
			allnodes = all
			for _, o := range compilables {
				for _, outf := range o.Outputs {
					intermediate := NewSourceFile(target, outf, expr.Pos{})
					objn, alln, err := buildNodesForFile(toolset, target, intermediate, ftTo, filesMap)
					if err != nil {
						return nil, nil, err
					}
					objects = append(objects, objn...)
					allnodes = append(allnodes, alln...)
				}
			}

			return objects, allnodes, nil
		}

		return nil, nil, expr.Errorf(srcfile.Position(),
			"don't know how to compile \"%s\" files into \"%s\"", ftFrom.Name, ftTo.Name)
	}

	commands, err := compiler.Commands(toolset, target, src, objname)
	if err != nil {
		return nil, nil, err
	}
	deps, err := fileDependencies(srcfile)
	if err != nil {
		return nil, nil, err
	}
	inputs := append([]expr.Expr{src}, deps...)
	node := NewBuildNode("", commands, inputs, []expr.Expr{objname}, srcfile.Position())

	return []*BuildNode{node}, []*BuildNode{node}, nil
}

// buildNodesForGeneratedFile makes the node running a file's custom
// compilation commands. The commands may refer to %(in) and %(out), or
// %(outN) when there are several outputs.
func buildNodesForGeneratedFile(srcfile *SourceFile) ([]*BuildNode, error) {
	commandsVar, err := srcfile.VariableValue("compile-commands")
	if err != nil {
		return nil, err
	}
	deps, err := fileDependencies(srcfile)
	if err != nil {
		return nil, err
	}
	inputs := append([]expr.Expr{srcfile.Filename()}, deps...)
	outputsVar, err := srcfile.VariableValue("outputs")
	if err != nil {
		return nil, err
	}
	outputs := flattenList(outputsVar)

	pos := commandsVar.Position()
	values := map[string]expr.Expr{
		"in": expr.NewLiteral("$<", pos),
	}
	if len(outputs) == 1 {
		values["out"] = expr.NewLiteral("$@", pos)
		values["out0"] = values["out"]
	} else {
		values["out"] = outputsVar
		for i, out := range outputs {
			values[fmt.Sprintf("out%d", i)] = out
		}
	}

	commands, err := expr.FormatString(commandsVar, values)
	if err != nil {
		return nil, err
	}
	node := NewBuildNode("", flattenList(commands), inputs, outputs, pos)

	return []*BuildNode{node}, nil
}

func fileDependencies(f *SourceFile) ([]expr.Expr, error) {
	value, err := f.VariableValue("dependencies")
	if err != nil {
		return nil, err
	}

	return flattenList(value), nil
}

// flattenList returns the items of a list expression, nothing for null
// and the expression itself otherwise.
func flattenList(e expr.Expr) []expr.Expr {
	switch t := e.(type) {
	case nil, *expr.Null:
		return nil
	case *expr.List:
		return t.Items
	}

	return []expr.Expr{e}
}

// DisambiguateIntermediateFileNames finds source files whose object file
// names would collide, e.g. foo/x.cpp and bar/x.cpp both yielding x.o,
// and assigns them unambiguous basenames built from the differing
// directory components, x_foo and x_bar here. Only conflicting files
// appear in the result, so it is empty most of the time.
func DisambiguateIntermediateFileNames(files []*SourceFile) map[*SourceFile]string {
	type entry struct {
		file *SourceFile
		dirs []string
	}
	groups := make(map[string][]entry)
	var order []string
	for _, f := range files {
		p, ok := f.Filename().(*expr.Path)
		if !ok {
			continue
		}
		base, err := p.Basename()
		if err != nil {
			continue
		}
		comps := p.Components
		dirs := make([]string, len(comps)-1)
		for i, c := range comps[:len(comps)-1] {
			dirs[i] = c.String()
		}
		if _, seen := groups[base]; !seen {
			order = append(order, base)
		}
		groups[base] = append(groups[base], entry{f, dirs})
	}

	mapping := make(map[*SourceFile]string)
	for _, base := range order {
		group := groups[base]
		if len(group) < 2 {
			continue
		}
		maxLen := 0
		for _, e := range group {
			if len(e.dirs) > maxLen {
				maxLen = len(e.dirs)
			}
		}
		// Keep only the directory components that differ between the
		// conflicting files, dropping the common prefix and any other
		// position where all files agree.
		var differing []int
		for pos := 0; pos < maxLen; pos++ {
			allSame := true
			for _, e := range group[1:] {
				if cellAt(e.dirs, pos) != cellAt(group[0].dirs, pos) {
					allSame = false

					break
				}
			}
			if !allSame {
				differing = append(differing, pos)
			}
		}
		for _, e := range group {
			var sb strings.Builder
			sb.WriteString(base)
			sb.WriteString("_")
			for _, pos := range differing {
				if pos < len(e.dirs) {
					sb.WriteString(e.dirs[pos])
				}
			}
			mapping[e.file] = sb.String()
		}
	}

	return mapping
}

func cellAt(dirs []string, pos int) string {
	if pos < len(dirs) {
		return dirs[pos]
	}

	return "\x00missing"
}
