package model

import (
	"github.com/vslavik/bakefile/expr"
)

// Target is one buildable unit: a program, a library, a custom action and
// so on, as described by its type.
type Target struct {
	part

	name    string
	typ     TargetType
	sources []*SourceFile
	headers []*SourceFile
}

// NewTarget creates a target in the given module. The id must be unique
// in the whole project; callers validate that before construction.
func NewTarget(parent *Module, name string, typ TargetType, pos expr.Pos) *Target {
	t := &Target{name: name, typ: typ}
	t.part.init(t, parent, pos)
	parent.targets = append(parent.targets, t)

	return t
}

func (t *Target) Name() string     { return t.name }
func (t *Target) String() string   { return `target "` + t.name + `"` }
func (t *Target) Type() TargetType { return t.typ }

func (t *Target) ChildParts() []Part {
	out := make([]Part, 0, len(t.sources)+len(t.headers))
	for _, f := range t.sources {
		out = append(out, f)
	}
	for _, f := range t.headers {
		out = append(out, f)
	}

	return out
}

func (t *Target) PropertyOf(name string) *Property {
	return propertyForPart(targetProp(t.typ.Name(), name), t)
}

func (t *Target) MatchingProperty(name string) *Property {
	return targetProp(t.typ.Name(), name)
}

func (t *Target) Properties() []*Property { return targetProps(t.typ.Name()) }

// Sources returns the target's source files in declaration order.
func (t *Target) Sources() []*SourceFile { return t.sources }

// Headers returns the target's header files. Unlike sources, headers are
// usable for compilation of other targets.
func (t *Target) Headers() []*SourceFile { return t.headers }

// AllSourceFiles returns sources followed by headers.
func (t *Target) AllSourceFiles() []*SourceFile {
	out := make([]*SourceFile, 0, len(t.sources)+len(t.headers))
	out = append(out, t.sources...)
	out = append(out, t.headers...)

	return out
}

// AddSource appends a file to the target's source list.
func (t *Target) AddSource(f *SourceFile) { t.sources = append(t.sources, f) }

// AddHeader appends a file to the target's header list.
func (t *Target) AddHeader(f *SourceFile) { t.headers = append(t.headers, f) }

// FilterSources keeps only the source files the predicate accepts.
func (t *Target) FilterSources(keep func(*SourceFile) bool) {
	t.sources = filterFiles(t.sources, keep)
}

// FilterHeaders keeps only the header files the predicate accepts.
func (t *Target) FilterHeaders(keep func(*SourceFile) bool) {
	t.headers = filterFiles(t.headers, keep)
}

func filterFiles(files []*SourceFile, keep func(*SourceFile) bool) []*SourceFile {
	out := files[:0]
	for _, f := range files {
		if keep(f) {
			out = append(out, f)
		}
	}

	return out
}

// SourceFile is one file in a target's sources or headers list. It can
// carry its own variables, e.g. a condition or custom compilation
// commands.
type SourceFile struct {
	part

	name string
}

// NewSourceFile creates a source file node under the given target. The
// filename is a path expression; it may reference variables.
func NewSourceFile(parent *Target, filename expr.Expr, pos expr.Pos) *SourceFile {
	f := &SourceFile{}
	f.part.init(f, parent, pos)
	f.SetPropertyValue("_filename", filename)

	return f
}

// Filename returns the file's name as a path expression, with references
// resolved.
func (f *SourceFile) Filename() expr.Expr {
	value, err := f.VariableValue("_filename")
	if err != nil {
		return expr.NewNull(f.pos)
	}
	if ref, ok := value.(*expr.Reference); ok {
		if deref, err := ref.Value(); err == nil {
			return deref
		}
	}

	return value
}

// Name derives the part name from the file name.
func (f *SourceFile) Name() string {
	if f.name == "" {
		name, err := expr.NameFromPath(f.Filename())
		if err != nil {
			name = f.Filename().String()
		}
		f.name = name
	}

	return f.name
}

func (f *SourceFile) String() string { return "file " + f.Filename().String() }

func (f *SourceFile) ChildParts() []Part { return nil }

func (f *SourceFile) PropertyOf(name string) *Property {
	return propertyForPart(fileProp(name), f)
}

func (f *SourceFile) MatchingProperty(name string) *Property { return fileProp(name) }
func (f *SourceFile) Properties() []*Property                { return fileProps() }

// Target returns the target the file belongs to.
func (f *SourceFile) Target() *Target { return f.parent.(*Target) }

// Setting is a user-settable make-time configuration value, surviving
// into the generated output as an overridable assignment.
type Setting struct {
	part

	name string
}

// NewSetting creates a setting and registers it with the project.
func NewSetting(parent Part, name string, pos expr.Pos) *Setting {
	s := &Setting{name: name}
	s.part.init(s, parent, pos)
	prj := s.Project()
	prj.settings = append(prj.settings, s)
	prj.bySetting[name] = s

	return s
}

func (s *Setting) Name() string   { return s.name }
func (s *Setting) String() string { return "setting " + s.name }

func (s *Setting) ChildParts() []Part { return nil }

func (s *Setting) PropertyOf(name string) *Property {
	return propertyForPart(settingProp(name), s)
}

func (s *Setting) MatchingProperty(name string) *Property { return settingProp(name) }
func (s *Setting) Properties() []*Property                { return settingProps() }
