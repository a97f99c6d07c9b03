package model

import (
	"strings"

	"github.com/vslavik/bakefile/expr"
)

// TypeExternal is the target type wrapping makefiles or project files
// not described in the input, typically third-party libraries shipped
// with their own Visual Studio projects.
var TypeExternal = &ExternalType{}

func init() {
	RegisterTargetType(TypeExternal)
}

// ExternalHandler knows how to use one kind of external build system
// file. Handlers register with [RegisterExternalHandler]; dispatch is by
// the file's extension. Toolset-specific abilities, such as including an
// external project in a solution, are discovered by type-asserting the
// handler in the respective generator.
type ExternalHandler interface {
	// Extensions returns the file extensions the handler claims, without
	// the leading dot.
	Extensions() []string

	// BuildSubgraph returns the nodes invoking the external build.
	BuildSubgraph(toolset Toolset, target *Target, file *expr.Path) (*BuildSubgraph, error)
}

var externalHandlers = struct {
	byExt map[string]ExternalHandler
}{byExt: make(map[string]ExternalHandler)}

// RegisterExternalHandler adds a handler for an external build system.
func RegisterExternalHandler(h ExternalHandler) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, ext := range h.Extensions() {
		if _, dup := externalHandlers.byExt[ext]; dup {
			panic("external build handler for ." + ext + " registered twice")
		}
		externalHandlers.byExt[ext] = h
	}
}

// ExternalType implements the external target type.
type ExternalType struct{}

func (t *ExternalType) Name() string { return "external" }

func (t *ExternalType) Properties() []*Property {
	return []*Property{
		{
			// File name of the external makefile or project. Required.
			Name: "file",
			Type: TypePath,
		},
	}
}

// File returns the external project file the target wraps.
func (t *ExternalType) File(target *Target) (*expr.Path, error) {
	value, err := target.VariableValue("file")
	if err != nil {
		return nil, err
	}
	path, ok := value.(*expr.Path)
	if !ok {
		return nil, expr.Errorf(value.Position(),
			"file of %s is not a path", target)
	}

	return path, nil
}

// Handler returns the handler for the target's external project file.
func (t *ExternalType) Handler(target *Target) (ExternalHandler, *expr.Path, error) {
	file, err := t.File(target)
	if err != nil {
		return nil, nil, err
	}
	ext, err := file.Extension()
	if err != nil {
		return nil, nil, err
	}
	registryMu.Lock()
	h := externalHandlers.byExt[strings.ToLower(ext)]
	registryMu.Unlock()
	if h == nil {
		return nil, nil, expr.Errorf(file.Position(),
			"don't know how to build with %q", file)
	}

	return h, file, nil
}

func (t *ExternalType) BuildSubgraph(toolset Toolset, target *Target) (*BuildSubgraph, error) {
	h, file, err := t.Handler(target)
	if err != nil {
		return nil, err
	}

	return h.BuildSubgraph(toolset, target, file)
}
