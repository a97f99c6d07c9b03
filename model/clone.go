package model

import (
	"github.com/vslavik/bakefile/expr"
)

// Clone makes a deep copy of the project, used for per-toolset
// processing: every toolset gets its own copy to specialize without
// affecting the others. Parts and variables are copied; configurations,
// templates and the srcdir table are shared, they are immutable by this
// point. References inside variable values are remapped so they point
// into the copy, not back into the original.
func (p *Project) Clone() *Project {
	clone := &Project{
		byConfig:  make(map[string]*Configuration, len(p.byConfig)),
		bySetting: make(map[string]*Setting, len(p.bySetting)),
		templates: p.templates,
		srcdirs:   p.srcdirs,
	}
	clone.part.init(clone, nil, p.pos)
	clone.configs = append([]*Configuration(nil), p.configs...)
	for name, c := range p.byConfig {
		clone.byConfig[name] = c
	}

	objmap := make(map[Part]Part)
	objmap[p] = clone
	copyVariables(p, clone)

	for _, s := range p.settings {
		var parent Part = clone
		if mapped, ok := objmap[s.parent]; ok {
			parent = mapped
		}
		ns := &Setting{name: s.name}
		ns.part.init(ns, parent, s.pos)
		clone.settings = append(clone.settings, ns)
		clone.bySetting[ns.name] = ns
		objmap[s] = ns
		copyVariables(s, ns)
	}

	cloneModule(p.TopModule(), clone, clone, objmap)
	remapReferences(clone, objmap)

	return clone
}

func cloneModule(m *Module, parent Part, clone *Project, objmap map[Part]Part) {
	nm := &Module{imports: make(map[string]bool, len(m.imports))}
	nm.part.init(nm, parent, m.pos)
	clone.modules = append(clone.modules, nm)
	objmap[m] = nm
	for path := range m.imports {
		nm.imports[path] = true
	}
	copyVariables(m, nm)

	for _, t := range m.targets {
		nt := &Target{name: t.name, typ: t.typ}
		nt.part.init(nt, nm, t.pos)
		nm.targets = append(nm.targets, nt)
		objmap[t] = nt
		copyVariables(t, nt)
		for _, f := range t.sources {
			nt.sources = append(nt.sources, cloneSourceFile(f, nt, objmap))
		}
		for _, f := range t.headers {
			nt.headers = append(nt.headers, cloneSourceFile(f, nt, objmap))
		}
	}

	for _, sub := range m.Submodules() {
		cloneModule(sub, nm, clone, objmap)
	}
}

func cloneSourceFile(f *SourceFile, parent *Target, objmap map[Part]Part) *SourceFile {
	nf := &SourceFile{}
	nf.part.init(nf, parent, f.pos)
	objmap[f] = nf
	copyVariables(f, nf)

	return nf
}

func copyVariables(from, to Part) {
	for _, v := range from.Variables() {
		to.AddVariable(v.shallowClone())
	}
}

// remapReferences rewrites every variable in the cloned tree so that
// references resolve against the cloned parts.
func remapReferences(clone *Project, objmap map[Part]Part) {
	var rw expr.Rewriter
	rw.Reference = func(e *expr.Reference) (expr.Expr, error) {
		part, ok := e.Context.(Part)
		if !ok {
			return e, nil
		}
		mapped, ok := objmap[part]
		if !ok {
			return e, nil
		}

		return expr.NewReference(e.Name, mapped, e.Position()), nil
	}
	EachVariable(clone, func(v *Variable) {
		value, err := rw.Rewrite(v.Value())
		if err == nil {
			v.SetValue(value)
		}
	})
}
