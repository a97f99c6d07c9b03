package model

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vslavik/bakefile/expr"
)

// Toolset generates native build files for one build system, e.g. GNU
// make or a Visual Studio version. Toolsets register themselves with
// [RegisterToolset] from their package's init function.
type Toolset interface {
	// Name is the identifier used in the "toolsets" property, e.g. "gnu"
	// or "vs2017".
	Name() string

	// ObjectExt returns the extension of compiled object files, with the
	// leading dot, e.g. ".o".
	ObjectExt() string

	// BuilddirFor returns the directory where the target's intermediate
	// files go, as a path expression.
	BuilddirFor(t *Target) *expr.Path

	// Generate writes the toolset's output files for the project. The
	// project passed in is this toolset's private, finalized copy.
	Generate(project *Project) error
}

// PropertyProvider is implemented by toolsets that contribute properties
// to the model, e.g. per-toolset output file names.
type PropertyProvider interface {
	Properties() *ToolsetProperties
}

// ToolsetProperties groups the properties a toolset contributes, per the
// scope they attach to.
type ToolsetProperties struct {
	Project []*Property
	Module  []*Property
	Target  []*Property
	File    []*Property
}

// TargetType defines the behavior of one kind of target, e.g. "program"
// or "action". Target types register themselves with [RegisterTargetType].
type TargetType interface {
	// Name is the keyword introducing targets of this type.
	Name() string

	// Properties returns the properties targets of this type have on top
	// of the standard target properties.
	Properties() []*Property

	// BuildSubgraph returns the build nodes realizing the target for the
	// given toolset.
	BuildSubgraph(toolset Toolset, t *Target) (*BuildSubgraph, error)
}

var registryMu sync.Mutex

var toolsets = struct {
	byName map[string]Toolset
}{byName: make(map[string]Toolset)}

// RegisterToolset adds a toolset to the registry. Registering two toolsets
// with the same name is a programming error.
func RegisterToolset(ts Toolset) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := toolsets.byName[ts.Name()]; dup {
		panic(fmt.Sprintf("toolset %q registered twice", ts.Name()))
	}
	toolsets.byName[ts.Name()] = ts
}

// LookupToolset returns the registered toolset with the given name, or nil
// when no such toolset exists.
func LookupToolset(name string) Toolset {
	registryMu.Lock()
	defer registryMu.Unlock()

	return toolsets.byName[name]
}

// ToolsetNames returns the names of all registered toolsets, sorted.
func ToolsetNames() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(toolsets.byName))
	for name := range toolsets.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func allToolsets() []Toolset {
	out := make([]Toolset, 0, len(toolsets.byName))
	for _, name := range ToolsetNames() {
		out = append(out, LookupToolset(name))
	}

	return out
}

var targetTypes = struct {
	byName map[string]TargetType
}{byName: make(map[string]TargetType)}

// RegisterTargetType adds a target type to the registry. Registering two
// types with the same name is a programming error.
func RegisterTargetType(tt TargetType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := targetTypes.byName[tt.Name()]; dup {
		panic(fmt.Sprintf("target type %q registered twice", tt.Name()))
	}
	targetTypes.byName[tt.Name()] = tt
}

// LookupTargetType returns the registered target type with the given name,
// or nil when no such type exists.
func LookupTargetType(name string) TargetType {
	registryMu.Lock()
	defer registryMu.Unlock()

	return targetTypes.byName[name]
}

// TargetTypeNames returns the names of all registered target types,
// sorted.
func TargetTypeNames() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(targetTypes.byName))
	for name := range targetTypes.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
