package model

import (
	"path/filepath"
	"strings"

	"github.com/vslavik/bakefile/expr"
)

// Project is the root of the model: the fully described state of all
// loaded input files.
type Project struct {
	part

	modules   []*Module
	settings  []*Setting
	configs   []*Configuration
	byConfig  map[string]*Configuration
	bySetting map[string]*Setting
	templates map[string]*Template

	// srcdirs overrides the effective source directory per input file,
	// set by srcdir statements.
	srcdirs map[string]string
}

// NewProject creates an empty project with the built-in Debug and Release
// configurations.
func NewProject() *Project {
	p := &Project{
		byConfig:  make(map[string]*Configuration),
		bySetting: make(map[string]*Setting),
		templates: make(map[string]*Template),
		srcdirs:   make(map[string]string),
	}
	p.part.init(p, nil, expr.Pos{})
	p.AddConfiguration(NewConfiguration("Debug", nil, true, expr.Pos{}))
	p.AddConfiguration(NewConfiguration("Release", nil, false, expr.Pos{}))

	return p
}

func (p *Project) Name() string   { return "project" }
func (p *Project) String() string { return "the project" }

func (p *Project) ChildParts() []Part {
	out := make([]Part, 0, len(p.modules)+len(p.settings))
	for _, m := range p.modules {
		out = append(out, m)
	}
	for _, s := range p.settings {
		out = append(out, s)
	}

	return out
}

func (p *Project) PropertyOf(name string) *Property {
	return propertyForPart(projectProp(name), p)
}

func (p *Project) MatchingProperty(name string) *Property { return projectProp(name) }
func (p *Project) Properties() []*Property                { return projectProps() }

// Modules returns all modules in parse order, parents before children.
func (p *Project) Modules() []*Module { return p.modules }

// TopModule returns the toplevel module, i.e. the file named on the
// command line.
func (p *Project) TopModule() *Module { return p.modules[0] }

// AllTargets returns every target in the project, in module and then
// declaration order.
func (p *Project) AllTargets() []*Target {
	var out []*Target
	for _, m := range p.modules {
		out = append(out, m.targets...)
	}

	return out
}

// Target returns the target with the given id.
func (p *Project) Target(id string) (*Target, error) {
	for _, t := range p.AllTargets() {
		if t.name == id {
			return t, nil
		}
	}

	return nil, expr.Errorf(expr.Pos{}, "target %q doesn't exist", id)
}

// HasTarget reports whether a target with the given id exists.
func (p *Project) HasTarget(id string) bool {
	for _, t := range p.AllTargets() {
		if t.name == id {
			return true
		}
	}

	return false
}

// Configurations returns the project's configurations in definition
// order, starting with the built-in Debug and Release.
func (p *Project) Configurations() []*Configuration { return p.configs }

// Configuration returns the named configuration, or nil.
func (p *Project) Configuration(name string) *Configuration { return p.byConfig[name] }

// AddConfiguration registers a configuration. A duplicate name is a
// programming error; callers validate user input first.
func (p *Project) AddConfiguration(c *Configuration) {
	if _, dup := p.byConfig[c.name]; dup {
		panic("configuration " + c.name + " added twice")
	}
	p.configs = append(p.configs, c)
	p.byConfig[c.name] = c
}

// removeConfiguration drops a configuration from a cloned project; used
// when toolset-specific processing discards configurations.
func (p *Project) removeConfiguration(name string) {
	delete(p.byConfig, name)
	for i, c := range p.configs {
		if c.name == name {
			p.configs = append(p.configs[:i], p.configs[i+1:]...)

			break
		}
	}
}

// RemoveModule drops a module from the project. Resolution passes use it
// to discard modules not participating in the active toolset.
func (p *Project) RemoveModule(m *Module) {
	for i, other := range p.modules {
		if other == m {
			p.modules = append(p.modules[:i], p.modules[i+1:]...)

			break
		}
	}
}

// Settings returns the project's settings in definition order.
func (p *Project) Settings() []*Setting { return p.settings }

// RemoveSetting drops a setting from the project.
func (p *Project) RemoveSetting(s *Setting) {
	delete(p.bySetting, s.name)
	for i, other := range p.settings {
		if other == s {
			p.settings = append(p.settings[:i], p.settings[i+1:]...)

			break
		}
	}
}

// Setting returns the named setting, or nil.
func (p *Project) Setting(name string) *Setting { return p.bySetting[name] }

// Template returns the named template, or nil.
func (p *Project) Template(name string) *Template { return p.templates[name] }

// Templates returns the template table keyed by name.
func (p *Project) Templates() map[string]*Template { return p.templates }

// AddTemplate registers a template. A duplicate name is a programming
// error; callers validate user input first.
func (p *Project) AddTemplate(t *Template) {
	if _, dup := p.templates[t.Name]; dup {
		panic("template " + t.Name + " added twice")
	}
	p.templates[t.Name] = t
}

// Srcdir returns the effective source directory for the given input file:
// the directory set by its srcdir statement, or the file's own directory.
func (p *Project) Srcdir(filename string) string {
	if dir, ok := p.srcdirs[filename]; ok {
		return dir
	}
	if dir := filepath.Dir(filename); dir != "" {
		return dir
	}

	return "."
}

// SetSrcdir overrides the effective source directory for an input file.
func (p *Project) SetSrcdir(filename, dir string) {
	p.srcdirs[filename] = dir
}

func propertyForPart(prop *Property, part Part) *Property {
	if prop == nil || !prop.scopeMatches(part) {
		return nil
	}

	return prop
}

// Module is one input file's worth of the model: the targets defined in a
// single .bkl file, whether toplevel, a submodule or an import.
type Module struct {
	part

	targets []*Target
	imports map[string]bool
}

// NewModule creates a module under the given parent (the project for the
// toplevel module, another module for submodules) and registers it with
// the project.
func NewModule(parent Part, pos expr.Pos) *Module {
	m := &Module{imports: make(map[string]bool)}
	m.part.init(m, parent, pos)
	prj := m.Project()
	prj.modules = append(prj.modules, m)

	return m
}

// SourceFilePath returns the path of the .bkl file the module was created
// from.
func (m *Module) SourceFilePath() string { return m.pos.File }

// Name returns the module's name, the source file name without directory
// and extension. It is not globally unique.
func (m *Module) Name() string {
	base := filepath.Base(m.SourceFilePath())

	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (m *Module) String() string { return "module " + m.SourceFilePath() }

func (m *Module) ChildParts() []Part {
	out := make([]Part, len(m.targets))
	for i, t := range m.targets {
		out[i] = t
	}

	return out
}

func (m *Module) PropertyOf(name string) *Property {
	return propertyForPart(moduleProp(name), m)
}

func (m *Module) MatchingProperty(name string) *Property { return moduleProp(name) }
func (m *Module) Properties() []*Property                { return moduleProps() }

// Targets returns the module's targets in declaration order.
func (m *Module) Targets() []*Target { return m.targets }

// RemoveTarget drops a target from the module. Resolution passes use it
// to discard targets whose condition is statically false.
func (m *Module) RemoveTarget(t *Target) {
	for i, other := range m.targets {
		if other == t {
			m.targets = append(m.targets[:i], m.targets[i+1:]...)

			break
		}
	}
}

// Srcdir returns the module's effective source directory.
func (m *Module) Srcdir() string {
	return m.Project().Srcdir(m.SourceFilePath())
}

// SrcdirAsPath returns the module's source directory as a path expression
// relative to the top module's source directory.
func (m *Module) SrcdirAsPath() *expr.Path {
	rel, err := filepath.Rel(m.Project().TopModule().Srcdir(), m.Srcdir())
	if err != nil {
		rel = m.Srcdir()
	}
	parts := strings.Split(rel, string(filepath.Separator))
	comps := make([]expr.Expr, len(parts))
	for i, p := range parts {
		comps[i] = expr.NewLiteral(p, expr.Pos{})
	}

	return expr.NewPath(comps, expr.AnchorTopSrcdir, m.SourceFilePath(), expr.Pos{})
}

// Submodules returns the modules whose parent is this module.
func (m *Module) Submodules() []*Module {
	var out []*Module
	for _, other := range m.Project().modules {
		if other.parent == Part(m) {
			out = append(out, other)
		}
	}

	return out
}

// IsSubmoduleOf reports whether the module is a (grand-)child of another.
func (m *Module) IsSubmoduleOf(other *Module) bool {
	for cur := m.Parent(); cur != nil; cur = cur.Parent() {
		if cur == Part(other) {
			return true
		}
	}

	return false
}

// AddImport records an imported file. It reports whether the file was new
// at this level.
func (m *Module) AddImport(path string) bool {
	if m.imports[path] {
		return false
	}
	m.imports[path] = true

	return true
}

// Imports returns the set of files imported by the module.
func (m *Module) Imports() map[string]bool { return m.imports }
