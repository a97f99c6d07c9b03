package gnu

import (
	"fmt"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/model"
)

var fileTypeObject = &model.FileType{Name: "gnu-object", Extensions: []string{"o"}}

func init() {
	model.RegisterFileType(fileTypeObject)
	model.RegisterCompiler("gnu", &cCompiler{
		in:          model.FileTypeC,
		compiler:    "CC",
		flagsVar:    "CFLAGS",
		optionsProp: "c-compiler-options",
	})
	model.RegisterCompiler("gnu", &cCompiler{
		in:          model.FileTypeCxx,
		compiler:    "CXX",
		flagsVar:    "CXXFLAGS",
		optionsProp: "cxx-compiler-options",
	})
	model.RegisterCompiler("gnu", &binaryLinker{out: model.FileTypeProgram})
	model.RegisterCompiler("gnu", &binaryLinker{
		out:       model.FileTypeSharedLibrary,
		linkFlags: "-shared -Wl,-z,defs",
		soname:    true,
	})
	model.RegisterCompiler("gnu", &binaryLinker{
		out:       model.FileTypeLoadableModule,
		linkFlags: "-shared -Wl,-z,defs",
	})
	model.RegisterCompiler("gnu", &libLinker{})
}

// cCompiler invokes gcc-compatible compilers. The C and C++ variants
// differ only in the make variables and the options property consulted.
type cCompiler struct {
	in          *model.FileType
	compiler    string
	flagsVar    string
	optionsProp string
}

func (c *cCompiler) In() *model.FileType  { return c.in }
func (c *cCompiler) Out() *model.FileType { return fileTypeObject }

func (c *cCompiler) Commands(toolset model.Toolset, target *model.Target, input, output expr.Expr) ([]expr.Expr, error) {
	pos := target.Position()
	// -MD -MP makes the compiler write the .d dependency file next to
	// the object, picked up by the -include footer.
	cmd := []expr.Expr{expr.NewLiteral(
		fmt.Sprintf("$(%s) -c -o $@ $(CPPFLAGS) $(%s) -MD -MP", c.compiler, c.flagsVar), pos)}

	pic, err := boolProp(target, "pic")
	if err != nil {
		return nil, err
	}
	if pic {
		cmd = append(cmd, expr.NewLiteral("-fPIC -DPIC", pos))
	}
	mt, err := boolProp(target, "multithreading")
	if err != nil {
		return nil, err
	}
	if mt {
		cmd = append(cmd, expr.NewLiteral("-pthread", pos))
	}

	defines, err := prefixedProp(target, "defines", "-D")
	if err != nil {
		return nil, err
	}
	cmd = append(cmd, defines...)
	includes, err := prefixedProp(target, "includedirs", "-I")
	if err != nil {
		return nil, err
	}
	cmd = append(cmd, includes...)

	warnings, err := stringProp(target, "warnings")
	if err != nil {
		return nil, err
	}
	switch warnings {
	case "no":
		cmd = append(cmd, expr.NewLiteral("-w", pos))
	case "all":
		cmd = append(cmd, expr.NewLiteral("-Wall", pos))
	}

	for _, prop := range []string{"compiler-options", c.optionsProp} {
		value, err := target.VariableValue(prop)
		if err != nil {
			return nil, err
		}
		cmd = append(cmd, listItems(value)...)
	}
	cmd = append(cmd, input)

	return []expr.Expr{expr.NewList(cmd, pos)}, nil
}

// binaryLinker links objects into an executable, shared library or
// loadable module. The zero linkFlags value is the plain executable
// link.
type binaryLinker struct {
	out       *model.FileType
	linkFlags string
	soname    bool
}

func (l *binaryLinker) In() *model.FileType  { return fileTypeObject }
func (l *binaryLinker) Out() *model.FileType { return l.out }

func (l *binaryLinker) Commands(toolset model.Toolset, target *model.Target, input, output expr.Expr) ([]expr.Expr, error) {
	pos := target.Position()
	var cmd []expr.Expr
	if l.linkFlags == "" {
		cmd = append(cmd, expr.NewLiteral("$(CXX) -o $@ $(LDFLAGS)", pos), input)
	} else {
		cmd = append(cmd, expr.NewLiteral("$(CXX) "+l.linkFlags+" -o $@", pos))
		if l.soname {
			cmd = append(cmd, expr.NewLiteral("-Wl,-soname,$(notdir $@)", pos))
		}
		cmd = append(cmd, expr.NewLiteral("$(LDFLAGS)", pos), input)
	}
	flags, err := linkerFlags(toolset, target)
	if err != nil {
		return nil, err
	}
	cmd = append(cmd, flags...)

	return []expr.Expr{expr.NewList(cmd, pos)}, nil
}

func linkerFlags(toolset model.Toolset, target *model.Target) ([]expr.Expr, error) {
	nt, ok := target.Type().(*model.NativeType)
	if !ok {
		return nil, nil
	}
	pos := target.Position()
	var cmd []expr.Expr

	libdirs, err := nt.LibDirs(target, nil)
	if err != nil {
		return nil, err
	}
	if len(libdirs) > 0 {
		prefixed, err := expr.AddPrefix(expr.NewLiteral("-L", pos), expr.NewList(libdirs, pos))
		if err != nil {
			return nil, err
		}
		cmd = append(cmd, listItems(prefixed)...)
	}

	libs, err := nt.LibFiles(toolset, target)
	if err != nil {
		return nil, err
	}
	cmd = append(cmd, libs...)

	ldlibs, err := nt.LDLibs(target, nil)
	if err != nil {
		return nil, err
	}
	if len(ldlibs) > 0 {
		prefixed, err := expr.AddPrefix(expr.NewLiteral("-l", pos), expr.NewList(ldlibs, pos))
		if err != nil {
			return nil, err
		}
		cmd = append(cmd, listItems(prefixed)...)
	}

	opts, err := nt.LinkOptions(target, nil)
	if err != nil {
		return nil, err
	}
	cmd = append(cmd, opts...)

	mt, err := boolProp(target, "multithreading")
	if err != nil {
		return nil, err
	}
	if mt {
		cmd = append(cmd, expr.NewLiteral("-pthread", pos))
	}

	return cmd, nil
}

// libLinker archives objects into a static library.
type libLinker struct{}

func (l *libLinker) In() *model.FileType  { return fileTypeObject }
func (l *libLinker) Out() *model.FileType { return model.FileTypeLibrary }

func (l *libLinker) Commands(toolset model.Toolset, target *model.Target, input, output expr.Expr) ([]expr.Expr, error) {
	pos := target.Position()

	return []expr.Expr{
		expr.NewList([]expr.Expr{expr.NewLiteral("$(AR) rcu $@", pos), input}, pos),
		expr.NewList([]expr.Expr{expr.NewLiteral("$(RANLIB) $@", pos)}, pos),
	}, nil
}

func prefixedProp(target *model.Target, name, prefix string) ([]expr.Expr, error) {
	value, err := target.VariableValue(name)
	if err != nil {
		return nil, err
	}
	prefixed, err := expr.AddPrefix(expr.NewLiteral(prefix, value.Position()), value)
	if err != nil {
		return nil, err
	}

	return listItems(prefixed), nil
}

func boolProp(target *model.Target, name string) (bool, error) {
	value, err := target.VariableValue(name)
	if err != nil {
		return false, err
	}

	return expr.Truthy(value)
}

func stringProp(target *model.Target, name string) (string, error) {
	value, err := target.VariableValue(name)
	if err != nil {
		return "", err
	}
	v, err := expr.AsConst(value)
	if err != nil {
		return "", err
	}
	if v.IsNull() {
		return "", nil
	}

	return v.AsString(), nil
}

func listItems(e expr.Expr) []expr.Expr {
	switch t := e.(type) {
	case nil, *expr.Null:
		return nil
	case *expr.List:
		return t.Items
	}

	return []expr.Expr{e}
}
