package model

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/lang"
)

// Configuration is a named build variant, e.g. Debug. User-defined
// configurations derive from exactly one base, forming a chain rooted at
// one of the built-in Debug and Release configurations.
type Configuration struct {
	name    string
	base    *Configuration
	isDebug bool
	pos     expr.Pos

	// definition holds the statements defining the configuration, kept
	// unevaluated so they can be replayed into each target using the
	// configuration.
	definition []lang.Node
}

// NewConfiguration creates a configuration. base is nil only for the
// built-in Debug and Release.
func NewConfiguration(name string, base *Configuration, isDebug bool, pos expr.Pos) *Configuration {
	return &Configuration{name: name, base: base, isDebug: isDebug, pos: pos}
}

func (c *Configuration) Name() string         { return c.name }
func (c *Configuration) Base() *Configuration { return c.base }
func (c *Configuration) IsDebug() bool        { return c.isDebug }
func (c *Configuration) Position() expr.Pos   { return c.pos }

// Definition returns the statements defining the configuration.
func (c *Configuration) Definition() []lang.Node { return c.definition }

// SetDefinition stores the statements defining the configuration.
func (c *Configuration) SetDefinition(stmts []lang.Node) { c.definition = stmts }

// DeriveNew returns a new configuration derived from this one.
func (c *Configuration) DeriveNew(name string, pos expr.Pos) *Configuration {
	return NewConfiguration(name, c, c.isDebug, pos)
}

// DerivedFrom returns the degree of derivation from another
// configuration: 1 when other is the direct base, 2 when it is the base's
// base and so on, 0 when not derived from it at all.
func (c *Configuration) DerivedFrom(other *Configuration) int {
	if c.base == other {
		return 1
	}
	if c.base != nil {
		if deg := c.base.DerivedFrom(other); deg > 0 {
			return deg + 1
		}
	}

	return 0
}

// Chain returns the inheritance chain from the root configuration down to
// this one.
func (c *Configuration) Chain() []*Configuration {
	var chain []*Configuration
	for cur := c; cur != nil; cur = cur.base {
		chain = append([]*Configuration{cur}, chain...)
	}

	return chain
}

// Template is a named, reusable block of statements targets can inherit
// from.
type Template struct {
	Name  string
	Bases []*Template
	pos   expr.Pos

	definition []lang.Node
}

// NewTemplate creates a template with the given bases.
func NewTemplate(name string, bases []*Template, pos expr.Pos) *Template {
	return &Template{Name: name, Bases: bases, pos: pos}
}

// Position returns where the template was defined.
func (t *Template) Position() expr.Pos { return t.pos }

// Definition returns the statements defining the template.
func (t *Template) Definition() []lang.Node { return t.definition }

// SetDefinition stores the statements defining the template.
func (t *Template) SetDefinition(stmts []lang.Node) { t.definition = stmts }

// Configurations returns the configurations the part builds in, as
// proxies that resolve per-configuration conditionals when reading the
// part's variables.
func Configurations(p Part) ([]*ConfigProxy, error) {
	prj := p.Project()
	cfglist, err := p.VariableValue("configurations")
	if err != nil {
		return nil, err
	}
	names, err := stringListValue(cfglist)
	if err != nil {
		return nil, err
	}
	out := make([]*ConfigProxy, 0, len(names))
	for _, name := range names {
		cfg := prj.Configuration(name)
		if cfg == nil {
			return nil, expr.Errorf(cfglist.Position(),
				"configuration %q not defined", name)
		}
		out = append(out, NewConfigProxy(p, cfg))
	}

	return out, nil
}

func stringListValue(e expr.Expr) ([]string, error) {
	v, err := expr.AsConst(e)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	if v.Type() == cty.String {
		return []string{v.AsString()}, nil
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, item := it.Element()
		if item.IsNull() {
			continue
		}
		out = append(out, item.AsString())
	}

	return out, nil
}

// ConfigProxy reads a part's variables as configuration-specific values:
// conditionals depending on $(config) are resolved against one concrete
// configuration name, and optionally $(arch) against one architecture.
type ConfigProxy struct {
	owner  Part
	config *Configuration
	arch   string
}

// NewConfigProxy creates a proxy resolving the part's values for the
// given configuration.
func NewConfigProxy(owner Part, config *Configuration) *ConfigProxy {
	return &ConfigProxy{owner: owner, config: config}
}

// WithArch returns a proxy that additionally resolves $(arch) inside
// conditions to the given architecture name. Used by multi-platform
// output formats which iterate configurations per architecture.
func (p *ConfigProxy) WithArch(arch string) *ConfigProxy {
	return &ConfigProxy{owner: p.owner, config: p.config, arch: arch}
}

// Arch returns the architecture the proxy resolves $(arch) to, empty
// when per-arch resolution is off.
func (p *ConfigProxy) Arch() string { return p.arch }

func (p *ConfigProxy) Name() string           { return p.config.name }
func (p *ConfigProxy) IsDebug() bool          { return p.config.isDebug }
func (p *ConfigProxy) Config() *Configuration { return p.config }
func (p *ConfigProxy) Owner() Part            { return p.owner }
func (p *ConfigProxy) Project() *Project      { return p.owner.Project() }

// Value returns the owner's variable value with config-dependent
// conditionals resolved.
func (p *ConfigProxy) Value(name string) (expr.Expr, error) {
	value, err := p.owner.VariableValue(name)
	if err != nil {
		return nil, err
	}

	return p.Apply(value)
}

// Apply resolves config-dependent conditionals in an arbitrary
// expression. Useful when inspecting values of related parts through the
// same configuration.
func (p *ConfigProxy) Apply(e expr.Expr) (expr.Expr, error) {
	return p.resolver().Rewrite(e)
}

// ApplyAll is Apply over a slice.
func (p *ConfigProxy) ApplyAll(exprs []expr.Expr) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(exprs))
	for i, e := range exprs {
		applied, err := p.Apply(e)
		if err != nil {
			return nil, err
		}
		out[i] = applied
	}

	return out, nil
}

// ShouldBuild evaluates the owner's condition for this configuration.
func (p *ConfigProxy) ShouldBuild() (bool, error) {
	cond := conditionOf(p.owner)
	if cond == nil {
		return true, nil
	}
	resolved, err := p.resolver().rewriteCond(cond)
	if err != nil {
		return false, err
	}

	return shouldBuild(p.owner, resolved)
}

func conditionOf(p Part) expr.Expr {
	if v := p.Variable("_condition"); v != nil {
		return v.Value()
	}

	return nil
}

// proxyResolver substitutes the config placeholder inside conditions with
// the concrete configuration name, which lets the conditionals around it
// evaluate. References are expanded along the way.
type proxyResolver struct {
	config     string
	arch       string
	insideCond int
	rw         expr.Rewriter
}

func (p *ConfigProxy) resolver() *proxyResolver {
	r := &proxyResolver{config: p.config.name, arch: p.arch}
	r.rw.Reference = func(e *expr.Reference) (expr.Expr, error) {
		value, err := e.Value()
		if err != nil {
			return nil, err
		}

		return r.rw.Rewrite(value)
	}
	r.rw.Placeholder = func(e *expr.Placeholder) (expr.Expr, error) {
		if r.insideCond > 0 {
			switch {
			case e.Name == "config":
				return expr.NewLiteral(r.config, e.Position()), nil
			case e.Name == "arch" && r.arch != "":
				return expr.NewLiteral(r.arch, e.Position()), nil
			}
		}

		return e, nil
	}
	r.rw.If = func(e *expr.If) (expr.Expr, error) {
		cond, err := r.rewriteCond(e.Cond)
		if err != nil {
			return nil, err
		}
		// Dropping the conditional here is safe: either it depended on
		// the config value and is decided now, or it depends on a
		// setting, which the caller treats as an error for
		// configuration-based output formats.
		value, err := expr.NewIf(cond, e.Then, e.Else, e.Position()).Value()
		if err != nil {
			return nil, err
		}

		return r.rw.Rewrite(value)
	}

	return r
}

func (r *proxyResolver) Rewrite(e expr.Expr) (expr.Expr, error) {
	return r.rw.Rewrite(e)
}

func (r *proxyResolver) rewriteCond(e expr.Expr) (expr.Expr, error) {
	r.insideCond++
	defer func() { r.insideCond-- }()

	return r.rw.Rewrite(e)
}
