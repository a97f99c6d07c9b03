package model

import (
	"fmt"
	"strings"
	"sync"

	"github.com/vslavik/bakefile/expr"
)

// Property scope identifiers. A scope names the kind of model part the
// property attaches to; target-type properties use the type's name
// instead.
const (
	ScopeProject = "project"
	ScopeModule  = "module"
	ScopeTarget  = "target"
	ScopeFile    = "file"
	ScopeSetting = "setting"
)

// DefaultFunc computes a property's default value for a concrete part.
// Returning nil without an error means the property has no default and is
// required.
type DefaultFunc func(p Part) (expr.Expr, error)

// Property describes one known, typed variable slot on a model part.
//
// Default may hold an [expr.Expr] used as-is, a string parsed as an input
// language value (so "Debug Release" is a list and "$(id)" a reference), a
// bool, a []string, a [DefaultFunc], or nil for a required property with
// no default.
type Property struct {
	Name        string
	Type        Type
	Default     any
	ReadOnly    bool
	Inheritable bool

	// toolsets restricts the property to the named toolsets; empty means
	// it always applies. Filled in when a toolset contributes the
	// property.
	toolsets []string

	// scopes lists the scopes the property is natively defined for. A
	// shared property may attach to several target types.
	scopes []string
}

// IsInternal reports whether the property is for internal use and not
// meant to be set by users.
func (p *Property) IsInternal() bool {
	return strings.HasPrefix(p.Name, "_")
}

// Toolsets returns the toolsets the property is restricted to, empty when
// it applies everywhere.
func (p *Property) Toolsets() []string { return p.toolsets }

func (p *Property) appliesToToolset(name string) bool {
	if len(p.toolsets) == 0 {
		return true
	}
	for _, ts := range p.toolsets {
		if ts == name {
			return true
		}
	}

	return false
}

func (p *Property) addScope(scope string) {
	p.scopes = append(p.scopes, scope)
}

func (p *Property) addToolset(name string) {
	p.toolsets = append(p.toolsets, name)
}

// scopeMatches reports whether the part's kind is one the property is
// natively defined for.
func (p *Property) scopeMatches(part Part) bool {
	for _, scope := range p.scopes {
		switch scope {
		case ScopeProject:
			if _, ok := part.(*Project); ok {
				return true
			}
		case ScopeModule:
			if _, ok := part.(*Module); ok {
				return true
			}
		case ScopeTarget:
			if _, ok := part.(*Target); ok {
				return true
			}
		case ScopeFile:
			if _, ok := part.(*SourceFile); ok {
				return true
			}
		case ScopeSetting:
			if _, ok := part.(*Setting); ok {
				return true
			}
		default:
			if t, ok := part.(*Target); ok && t.typ.Name() == scope {
				return true
			}
		}
	}

	return false
}

// DefaultExpr returns the property's default value evaluated for the
// given part. For a required property without a default it fails when
// required is true and yields null otherwise.
func (p *Property) DefaultExpr(owner Part, required bool) (expr.Expr, error) {
	value, err := p.makeDefault(p.Default, owner)
	if err != nil {
		return nil, err
	}
	if value == nil {
		if required {
			return nil, expr.Errorf(owner.Position(),
				"required property %q on %s not set", p.Name, owner)
		}

		return expr.NewNull(expr.Pos{}), nil
	}

	return value, nil
}

func (p *Property) makeDefault(def any, owner Part) (expr.Expr, error) {
	switch v := def.(type) {
	case nil:
		return nil, nil

	case DefaultFunc:
		return v(owner)

	case expr.Expr:
		return v, nil

	case bool:
		return expr.NewBoolValue(v, expr.Pos{}), nil

	case string:
		return p.parseDefault(v, owner)

	case []string:
		items := make([]expr.Expr, 0, len(v))
		for _, s := range v {
			item, err := p.parseDefault(s, owner)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}

		return expr.NewList(items, expr.Pos{}), nil
	}

	panic(fmt.Sprintf("unexpected default value type %T for property %q", def, p.Name))
}

// parseDefault interprets a string default as an input language value:
// whitespace separates list items and $(name) is a variable reference
// resolved in the part's scope. The result is normalized and validated
// against the property's type.
func (p *Property) parseDefault(s string, owner Part) (expr.Expr, error) {
	fields := strings.Fields(s)
	items := make([]expr.Expr, 0, len(fields))
	for _, f := range fields {
		items = append(items, defaultAtom(f, owner))
	}

	var e expr.Expr
	switch len(items) {
	case 0:
		e = expr.NewNull(expr.Pos{})
	case 1:
		e = items[0]
	default:
		e = expr.NewList(items, expr.Pos{})
	}

	norm, err := p.Type.Normalize(e)
	if err != nil {
		return nil, err
	}
	if err := p.Type.Validate(norm); err != nil {
		return nil, err
	}

	return norm, nil
}

func defaultAtom(s string, owner Part) expr.Expr {
	if strings.HasPrefix(s, "$(") && strings.HasSuffix(s, ")") {
		return expr.NewReference(s[2:len(s)-1], owner, expr.Pos{})
	}

	return expr.NewLiteral(s, expr.Pos{})
}

// propTable is an ordered property dictionary for one scope.
type propTable struct {
	scope  string
	order  []*Property
	byName map[string]*Property
}

func newPropTable(scope string, props []*Property) *propTable {
	t := &propTable{scope: scope, byName: make(map[string]*Property)}
	for _, p := range props {
		t.add(p, false)
	}

	return t
}

// add registers a property with the table. The same property instance may
// be shared between target types; two distinct properties with one name at
// the same scope are a programming error.
func (t *propTable) add(p *Property, asInherited bool) {
	if existing, ok := t.byName[p.Name]; ok {
		if existing != p {
			panic(fmt.Sprintf("property %q defined more than once at the same scope (%s)",
				p.Name, t.scope))
		}

		return
	}
	if !asInherited {
		p.addScope(t.scope)
	}
	t.order = append(t.order, p)
	t.byName[p.Name] = p
}

func (t *propTable) get(name string) *Property { return t.byName[name] }

// propagateInheritables adds the inheritable properties of an inner scope
// into an enclosing scope's table, so assignments there validate against
// them.
func propagateInheritables(from, into *propTable) {
	for _, p := range from.order {
		if p.Inheritable {
			into.add(p, true)
		}
	}
}

// propRegistry holds all known properties per scope. It is built lazily on
// first use, once all toolsets and target types have registered.
type propRegistry struct {
	project *propTable
	module  *propTable
	target  *propTable
	file    *propTable
	setting *propTable
	perType map[string]*propTable
}

var propsOnce = struct {
	sync.Once
	r *propRegistry
}{}

func properties() *propRegistry {
	propsOnce.Do(func() { propsOnce.r = buildPropRegistry() })

	return propsOnce.r
}

func buildPropRegistry() *propRegistry {
	r := &propRegistry{perType: make(map[string]*propTable)}

	addToolsetProps := func(t *propTable, pick func(*ToolsetProperties) []*Property) {
		for _, ts := range allToolsets() {
			provider, ok := ts.(PropertyProvider)
			if !ok {
				continue
			}
			for _, p := range pick(provider.Properties()) {
				p.addToolset(ts.Name())
				t.add(p, false)
			}
		}
	}

	r.project = newPropTable(ScopeProject, stdProjectProps())
	addToolsetProps(r.project, func(tp *ToolsetProperties) []*Property { return tp.Project })

	r.module = newPropTable(ScopeModule, stdModuleProps())
	addToolsetProps(r.module, func(tp *ToolsetProperties) []*Property { return tp.Module })

	r.target = newPropTable(ScopeTarget, stdTargetProps())
	addToolsetProps(r.target, func(tp *ToolsetProperties) []*Property { return tp.Target })
	propagateInheritables(r.target, r.module)

	for _, name := range TargetTypeNames() {
		tt := LookupTargetType(name)
		table := newPropTable(name, tt.Properties())
		propagateInheritables(table, r.module)
		r.perType[name] = table
	}

	r.file = newPropTable(ScopeFile, stdFileProps())
	addToolsetProps(r.file, func(tp *ToolsetProperties) []*Property { return tp.File })
	propagateInheritables(r.file, r.target)
	propagateInheritables(r.file, r.module)

	r.setting = newPropTable(ScopeSetting, stdSettingProps())

	return r
}

func projectProp(name string) *Property { return properties().project.get(name) }
func moduleProp(name string) *Property  { return properties().module.get(name) }
func fileProp(name string) *Property    { return properties().file.get(name) }
func settingProp(name string) *Property { return properties().setting.get(name) }

func targetProp(typeName, name string) *Property {
	r := properties()
	if p := r.target.get(name); p != nil {
		return p
	}
	if table, ok := r.perType[typeName]; ok {
		return table.get(name)
	}

	return nil
}

func projectProps() []*Property { return properties().project.order }
func moduleProps() []*Property  { return properties().module.order }
func fileProps() []*Property    { return properties().file.order }
func settingProps() []*Property { return properties().setting.order }

func targetProps(typeName string) []*Property {
	r := properties()
	var out []*Property
	if table, ok := r.perType[typeName]; ok {
		out = append(out, table.order...)
	}
	out = append(out, r.target.order...)

	return out
}

// conditionProp builds the hidden _condition property shared by all
// conditional parts.
func conditionProp() *Property {
	return &Property{
		Name:     "_condition",
		Type:     TypeBool,
		Default:  true,
		ReadOnly: true,
	}
}

func stdFileProps() []*Property {
	return []*Property{
		conditionProp(),
		{
			Name:     "_filename",
			Type:     TypePath,
			Default:  []string{},
			ReadOnly: true,
		},
		{
			Name:    "compile-commands",
			Type:    NewListType(TypeString),
			Default: []string{},
		},
		{
			Name:    "compile-message",
			Type:    TypeString,
			Default: expr.NewNull(expr.Pos{}),
		},
		{
			Name: "outputs",
			Type: NewListType(TypePath),
			// Required when compile-commands is set, meaningless
			// otherwise.
			Default: DefaultFunc(func(p Part) (expr.Expr, error) {
				commands, err := p.VariableValue("compile-commands")
				if err != nil {
					return nil, err
				}
				used, err := expr.Truthy(commands)
				if err != nil {
					return nil, err
				}
				if used {
					return nil, nil
				}

				return expr.NewNull(expr.Pos{}), nil
			}),
		},
		{
			Name:    "dependencies",
			Type:    NewListType(TypePath),
			Default: []string{},
		},
	}
}

func stdTargetProps() []*Property {
	return []*Property{
		conditionProp(),
		{
			Name: "id",
			Type: TypeId,
			Default: DefaultFunc(func(p Part) (expr.Expr, error) {
				return expr.NewLiteral(p.Name(), expr.Pos{}), nil
			}),
			ReadOnly: true,
		},
		{
			Name:    "deps",
			Type:    NewListType(TypeId),
			Default: []string{},
		},
		{
			Name:    "pre-build-commands",
			Type:    NewListType(TypeString),
			Default: []string{},
		},
		{
			Name:    "post-build-commands",
			Type:    NewListType(TypeString),
			Default: []string{},
		},
		{
			Name:        "configurations",
			Type:        NewListType(TypeString),
			Default:     "Debug Release",
			Inheritable: true,
		},
	}
}

func stdModuleProps() []*Property {
	return []*Property{
		{
			Name:        "toolsets",
			Type:        NewListType(NewEnumType(toolsetEnumValues()...)),
			Default:     []string{},
			Inheritable: true,
		},
		{
			Name: "_srcdir",
			Type: TypePath,
			Default: DefaultFunc(func(p Part) (expr.Expr, error) {
				return p.(*Module).SrcdirAsPath(), nil
			}),
			ReadOnly: true,
		},
	}
}

func stdProjectProps() []*Property {
	return []*Property{
		{
			Name:     "toolset",
			Type:     NewEnumType(toolsetEnumValues()...),
			Default:  expr.NewPlaceholder("toolset", expr.Pos{}),
			ReadOnly: true,
		},
		{
			Name:     "config",
			Type:     TypeString,
			Default:  expr.NewPlaceholder("config", expr.Pos{}),
			ReadOnly: true,
		},
		{
			Name:     "arch",
			Type:     TypeString,
			Default:  expr.NewPlaceholder("arch", expr.Pos{}),
			ReadOnly: true,
		},
	}
}

func stdSettingProps() []*Property {
	return []*Property{
		conditionProp(),
		{
			Name:    "help",
			Type:    TypeString,
			Default: expr.NewNull(expr.Pos{}),
		},
		{
			Name:    "default",
			Type:    TypeAny,
			Default: expr.NewNull(expr.Pos{}),
		},
	}
}

// toolsetEnumValues guards against building the enum before any toolset
// registered, which would panic in NewEnumType.
func toolsetEnumValues() []string {
	names := ToolsetNames()
	if len(names) == 0 {
		return []string{"none"}
	}

	return names
}
