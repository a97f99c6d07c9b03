package model

import (
	"github.com/vslavik/bakefile/expr"
)

// File types of natively compiled sources and binaries. The output types
// carry no extensions; the platform-specific name of e.g. an executable
// is decided by the toolset, not by the model.
var (
	FileTypeC   = &FileType{Name: "C", Extensions: []string{"c"}}
	FileTypeCxx = &FileType{Name: "C++", Extensions: []string{"cpp", "cxx", "cc"}}

	FileTypeProgram        = &FileType{Name: "program"}
	FileTypeLibrary        = &FileType{Name: "library"}
	FileTypeSharedLibrary  = &FileType{Name: "shared-library"}
	FileTypeLoadableModule = &FileType{Name: "loadable-module"}
)

// The native target types.
var (
	TypeProgram = &NativeType{
		name:   "program",
		output: FileTypeProgram,
		linked: true,
		extra: []*Property{
			basenameProp(),
			{
				Name:        "win32-subsystem",
				Type:        NewEnumType("console", "windows"),
				Default:     "console",
				Inheritable: true,
			},
		},
	}

	TypeLibrary = &NativeType{
		name:   "library",
		output: FileTypeLibrary,
		usePIC: true,
		extra: []*Property{
			basenameProp(),
		},
	}

	TypeSharedLibrary = &NativeType{
		name:   "shared-library",
		output: FileTypeSharedLibrary,
		usePIC: true,
		linked: true,
		extra: []*Property{
			basenameProp(),
		},
	}

	TypeLoadableModule = &NativeType{
		name:   "loadable-module",
		output: FileTypeLoadableModule,
		usePIC: true,
		linked: true,
		extra: []*Property{
			basenameProp(),
			{
				Name:    "extension",
				Type:    TypeString,
				Default: expr.NewNull(expr.Pos{}),
			},
		},
	}
)

func init() {
	RegisterFileType(FileTypeC)
	RegisterFileType(FileTypeCxx)
	RegisterTargetType(TypeProgram)
	RegisterTargetType(TypeLibrary)
	RegisterTargetType(TypeSharedLibrary)
	RegisterTargetType(TypeLoadableModule)
}

// BinaryNaming is implemented by toolsets that decorate output file
// names with platform conventions, e.g. lib<basename>.a for static
// libraries on Unix. The file class is the native target type name.
type BinaryNaming interface {
	// FilePrefix returns the prefix prepended to files of the given
	// class, usually empty.
	FilePrefix(fileclass string) string

	// FileExtension returns the extension, without the leading dot, used
	// for files of the given class; empty when the class has none.
	FileExtension(fileclass string) string
}

// NativeType is the behavior shared by natively compiled targets:
// programs, static and shared libraries and loadable modules. Sources
// are compiled into object files and linked into a single binary whose
// name follows the toolset's platform conventions.
type NativeType struct {
	name   string
	output *FileType
	extra  []*Property
	usePIC bool
	linked bool
}

func (t *NativeType) Name() string { return t.name }

// OutputType is the pseudo file type the target's sources link into.
func (t *NativeType) OutputType() *FileType { return t.output }

// IsLinked reports whether targets of this type link against their
// library dependencies. Static libraries don't; they only archive their
// own objects.
func (t *NativeType) IsLinked() bool { return t.linked }

func (t *NativeType) Properties() []*Property {
	return append(append([]*Property{}, sharedNativeProps...), t.extra...)
}

func (t *NativeType) BuildSubgraph(toolset Toolset, target *Target) (*BuildSubgraph, error) {
	outfile, err := t.TargetFile(toolset, target)
	if err != nil {
		return nil, err
	}

	return CompilationSubgraph(toolset, target, t.output, outfile)
}

// TargetFile returns the path of the target's main output file: the
// outputdir joined with the decorated basename.
func (t *NativeType) TargetFile(toolset Toolset, target *Target) (*expr.Path, error) {
	return t.fileWithBasename(toolset, target, "basename")
}

func (t *NativeType) fileWithBasename(toolset Toolset, target *Target, propname string) (*expr.Path, error) {
	var parts []expr.Expr
	naming, _ := toolset.(BinaryNaming)
	if naming != nil {
		if prefix := naming.FilePrefix(t.name); prefix != "" {
			parts = append(parts, expr.NewLiteral(prefix, target.Position()))
		}
	}
	base, err := target.VariableValue(propname)
	if err != nil {
		return nil, err
	}
	parts = append(parts, base)
	if !target.IsVariableNull("extension") {
		ext, err := target.VariableValue("extension")
		if err != nil {
			return nil, err
		}
		parts = append(parts, ext)
	} else if naming != nil {
		if ext := naming.FileExtension(t.name); ext != "" {
			parts = append(parts, expr.NewLiteral("."+ext, target.Position()))
		}
	}

	outdirValue, err := target.VariableValue("outputdir")
	if err != nil {
		return nil, err
	}
	outdir, ok := outdirValue.(*expr.Path)
	if !ok {
		return nil, expr.Errorf(outdirValue.Position(),
			"outputdir of %s is not a path", target)
	}
	comps := append(append([]expr.Expr{}, outdir.Components...),
		expr.NewConcat(parts, target.Position()))

	return expr.NewPath(comps, outdir.Anchor, outdir.AnchorFile, target.Position()), nil
}

// TargetFileExtension returns the extension of the target's output file,
// with the leading dot, or null when the toolset has no convention for
// the file class and no explicit extension was set.
func (t *NativeType) TargetFileExtension(toolset Toolset, target *Target) (expr.Expr, error) {
	if !target.IsVariableNull("extension") {
		return target.VariableValue("extension")
	}
	if naming, ok := toolset.(BinaryNaming); ok {
		if ext := naming.FileExtension(t.name); ext != "" {
			return expr.NewLiteral("."+ext, target.Position()), nil
		}
	}

	return expr.NewNull(target.Position()), nil
}

// LibFiles returns the filenames of the internal library dependencies to
// link with, in Unix linker order.
func (t *NativeType) LibFiles(toolset Toolset, target *Target) ([]expr.Expr, error) {
	deps, err := LinkableDeps(target)
	if err != nil {
		return nil, err
	}
	out := make([]expr.Expr, len(deps))
	for i, dep := range deps {
		file, err := dep.Type().(*NativeType).TargetFile(toolset, dep)
		if err != nil {
			return nil, err
		}
		out[i] = file
	}

	return out, nil
}

// LDLibs returns the external libraries to link with, the target's own
// plus the ones its static library dependencies ask for.
func (t *NativeType) LDLibs(target *Target, proxy *ConfigProxy) ([]expr.Expr, error) {
	return t.linkProperty(target, proxy, "libs")
}

// LibDirs returns the library search paths to use when linking.
func (t *NativeType) LibDirs(target *Target, proxy *ConfigProxy) ([]expr.Expr, error) {
	return t.linkProperty(target, proxy, "libdirs")
}

// LinkOptions returns the linker options to use when linking.
func (t *NativeType) LinkOptions(target *Target, proxy *ConfigProxy) ([]expr.Expr, error) {
	return t.linkProperty(target, proxy, "link-options")
}

// linkProperty collects a list property from the target and its static
// library dependencies, deduplicated. Flags of shared library deps are
// not propagated; the dynamic linker resolves those. When a config proxy
// is given, config-dependent conditionals are resolved through it.
func (t *NativeType) linkProperty(target *Target, proxy *ConfigProxy, propname string) ([]expr.Expr, error) {
	deps, err := LinkableDeps(target)
	if err != nil {
		return nil, err
	}
	parts := []*Target{target}
	for _, dep := range deps {
		if nt, ok := dep.Type().(*NativeType); ok && nt.output == FileTypeLibrary {
			parts = append(parts, dep)
		}
	}

	var out []expr.Expr
	seen := make(map[string]bool)
	for _, part := range parts {
		value, err := part.VariableValue(propname)
		if err != nil {
			return nil, err
		}
		if proxy != nil {
			value, err = proxy.Apply(value)
			if err != nil {
				return nil, err
			}
		}
		for _, item := range flattenList(value) {
			sym := expr.Symbolic(item)
			if seen[sym] {
				continue
			}
			seen[sym] = true
			out = append(out, item)
		}
	}

	return out, nil
}

// LinkableDeps returns the target's transitive library dependencies in
// the order Unix linkers need: every library before the libraries it
// depends on. Dependencies of shared libraries are not transitive.
func LinkableDeps(target *Target) ([]*Target, error) {
	var found []*Target
	recursed := make(map[*Target]bool)
	if err := findLinkableDeps(target, &found, recursed); err != nil {
		return nil, err
	}
	// found is built in reverse, dependencies in front of dependents.
	for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
		found[i], found[j] = found[j], found[i]
	}

	return found, nil
}

func findLinkableDeps(target *Target, found *[]*Target, recursed map[*Target]bool) error {
	if recursed[target] {
		return expr.Errorf(target.Position(), "circular dependency between targets")
	}
	recursed[target] = true

	deps, err := dependencyTargets(target)
	if err != nil {
		return err
	}
	// Scan backwards and prepend recursive results so that the reversed
	// result keeps every dependency to the right of its dependents, the
	// order Unix linkers require of the deps list itself.
	for i := len(deps) - 1; i >= 0; i-- {
		dep := deps[i]
		nt, ok := dep.Type().(*NativeType)
		if !ok || (nt.output != FileTypeLibrary && nt.output != FileTypeSharedLibrary) {
			continue
		}
		if containsTarget(*found, dep) {
			continue
		}
		if nt.output == FileTypeLibrary {
			if err := findLinkableDeps(dep, found, recursed); err != nil {
				return err
			}
		}
		*found = append(*found, dep)
	}

	return nil
}

// dependencyTargets resolves the target's deps property into targets.
func dependencyTargets(target *Target) ([]*Target, error) {
	value, err := target.VariableValue("deps")
	if err != nil {
		return nil, err
	}
	project := target.Project()
	items := flattenList(value)
	out := make([]*Target, 0, len(items))
	for _, item := range items {
		v, err := expr.AsConst(item)
		if err != nil {
			return nil, err
		}
		dep, err := project.Target(v.AsString())
		if err != nil {
			return nil, expr.WithPos(err, item.Position())
		}
		out = append(out, dep)
	}

	return out, nil
}

func containsTarget(list []*Target, t *Target) bool {
	for _, item := range list {
		if item == t {
			return true
		}
	}

	return false
}

func basenameProp() *Property {
	return &Property{
		Name:    "basename",
		Type:    TypeString,
		Default: "$(id)",
	}
}

// sharedNativeProps holds the properties every natively compiled target
// type has. The instances are shared between the types; the registry
// attaches each to all its scopes, and the inheritable ones propagate
// into the module table exactly once.
var sharedNativeProps = makeNativeCompiledProps()

func makeNativeCompiledProps() []*Property {
	return []*Property{
		{
			Name:    "sources",
			Type:    NewListType(TypePath),
			Default: []string{},
		},
		{
			Name:    "headers",
			Type:    NewListType(TypePath),
			Default: []string{},
		},
		{
			Name:        "defines",
			Type:        NewListType(TypeString),
			Default:     []string{},
			Inheritable: true,
		},
		{
			Name:        "includedirs",
			Type:        NewListType(TypePath),
			Default:     []string{},
			Inheritable: true,
		},
		{
			Name:        "warnings",
			Type:        NewEnumType("no", "minimal", "default", "all", "max"),
			Default:     "default",
			Inheritable: true,
		},
		{
			Name:        "compiler-options",
			Type:        NewListType(TypeString),
			Default:     []string{},
			Inheritable: true,
		},
		{
			Name:        "c-compiler-options",
			Type:        NewListType(TypeString),
			Default:     []string{},
			Inheritable: true,
		},
		{
			Name:        "cxx-compiler-options",
			Type:        NewListType(TypeString),
			Default:     []string{},
			Inheritable: true,
		},
		{
			Name:        "libs",
			Type:        NewListType(TypeString),
			Default:     []string{},
			Inheritable: true,
		},
		{
			Name:        "libdirs",
			Type:        NewListType(TypePath),
			Default:     []string{},
			Inheritable: true,
		},
		{
			Name:        "link-options",
			Type:        NewListType(TypeString),
			Default:     []string{},
			Inheritable: true,
		},
		{
			Name:        "archs",
			Type:        NewListType(NewEnumType("x86", "x86_64")),
			Default:     expr.NewNull(expr.Pos{}),
			Inheritable: true,
		},
		{
			Name:        "win32-crt-linkage",
			Type:        NewEnumType("static", "dll"),
			Default:     "dll",
			Inheritable: true,
		},
		{
			Name:        "win32-unicode",
			Type:        TypeBool,
			Default:     true,
			Inheritable: true,
		},
		{
			Name:        "outputdir",
			Type:        TypePath,
			Default:     expr.NewPath(nil, expr.AnchorBuilddir, "", expr.Pos{}),
			Inheritable: true,
		},
		{
			Name: "pic",
			Type: TypeBool,
			// Libraries default to position-independent code because
			// a static library may end up linked into a shared one;
			// executables don't need it.
			Default: DefaultFunc(func(p Part) (expr.Expr, error) {
				pic := true
				if t, ok := p.(*Target); ok {
					if nt, ok := t.Type().(*NativeType); ok {
						pic = nt.usePIC
					}
				}

				return expr.NewBoolValue(pic, expr.Pos{}), nil
			}),
			Inheritable: true,
		},
		{
			Name:        "allow-undefined",
			Type:        TypeBool,
			Default:     false,
			Inheritable: true,
		},
		{
			Name:        "multithreading",
			Type:        TypeBool,
			Default:     true,
			Inheritable: true,
		},
	}
}
