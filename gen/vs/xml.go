package vs

import (
	"fmt"
	"strings"

	"github.com/ardnew/mung"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/gen"
)

// xmlHeader opens every generated MSBuild file. The encoding named in
// the declaration matches the BOM the output layer prepends.
const xmlHeader = `<?xml version="1.0" encoding="utf-8"?>
<!-- This file was automatically generated by bakefile.

     Any manual changes will be lost if it is regenerated,
     modify the source .bkl file instead if possible.
-->
`

// node is one element of the generated XML. Attribute and child order is
// preserved; MSBuild evaluates property groups in file order, so order
// matters for correctness, not just for readability.
type node struct {
	name     string
	value    any // optional text content: string, bool, expr.Expr or *joined
	attrs    []xmlAttr
	children []*node
}

type xmlAttr struct {
	name, value string
}

func newNode(name string) *node { return &node{name: name} }

// setAttr appends an attribute. It returns the node for chaining.
func (n *node) setAttr(name, value string) *node {
	n.attrs = append(n.attrs, xmlAttr{name, value})

	return n
}

// add appends a child element and returns it.
func (n *node) add(child *node) *node {
	n.children = append(n.children, child)

	return child
}

// addText appends a child element holding a text value and returns the
// parent for chaining. Values that render to an empty string are dropped
// from the output altogether.
func (n *node) addText(name string, value any) *node {
	n.add(&node{name: name, value: value})

	return n
}

func (n *node) hasChildren() bool { return len(n.children) > 0 }

// joined renders several values as one delimiter-separated string, the
// shape MSBuild uses for option lists. Items rendering empty are
// dropped.
type joined struct {
	sep   string
	items []any
}

func join(sep string, items ...any) *joined {
	return &joined{sep: sep, items: items}
}

func (j *joined) append(items ...any) *joined {
	j.items = append(j.items, items...)

	return j
}

// vsExprFormatter renders expressions the way MSBuild files expect:
// lists join with semicolons, residual configuration and architecture
// placeholders become the $(Configuration) and $(Platform) build
// variables. Any other residual setting cannot appear in project files,
// which have nowhere to define it, and is an error.
func vsExprFormatter(paths *expr.PathAnchors) *expr.Formatter {
	f := &expr.Formatter{Paths: paths, ListSep: ";"}
	f.Placeholder = func(e *expr.Placeholder) (string, error) {
		switch e.Name {
		case "config":
			return "$(Configuration)", nil
		case "arch":
			return "$(Platform)", nil
		}

		return "", expr.Errorf(e.Position(),
			"cannot use setting %q in Visual Studio projects", e.Name)
	}
	f.BoolValue = func(e *expr.BoolValue) (string, error) {
		if e.Value {
			return "true", nil
		}

		return "false", nil
	}

	return f
}

// xmlRenderer writes a node tree into an output file, formatting the
// embedded expressions along the way.
type xmlRenderer struct {
	fmtr *expr.Formatter
	f    *gen.File
}

func renderXML(f *gen.File, fmtr *expr.Formatter, root *node) error {
	f.WriteString(xmlHeader)
	r := &xmlRenderer{fmtr: fmtr, f: f}

	return r.node(root, 0)
}

func (r *xmlRenderer) node(n *node, depth int) error {
	indent := strings.Repeat("  ", depth)

	var attrs strings.Builder
	for _, a := range n.attrs {
		attrs.WriteString(fmt.Sprintf(" %s=\"%s\"", a.name, escapeAttr(a.value)))
	}

	if n.value != nil {
		text, err := r.formatValue(n.name, n.value)
		if err != nil {
			return err
		}
		if text == "" {
			// An empty property assignment is meaningless, leave the
			// MSBuild default alone.
			return nil
		}
		r.f.WriteString(fmt.Sprintf("%s<%s%s>%s</%s>\n",
			indent, n.name, attrs.String(), escapeText(text), n.name))

		return nil
	}

	if !n.hasChildren() {
		// ImportGroup elements stay expanded; Visual Studio rewrites
		// them that way when it touches the file.
		if n.name == "ImportGroup" {
			r.f.WriteString(fmt.Sprintf("%s<%s%s>\n%s</%s>\n",
				indent, n.name, attrs.String(), indent, n.name))
		} else {
			r.f.WriteString(fmt.Sprintf("%s<%s%s />\n", indent, n.name, attrs.String()))
		}

		return nil
	}

	r.f.WriteString(fmt.Sprintf("%s<%s%s>\n", indent, n.name, attrs.String()))
	for _, child := range n.children {
		if err := r.node(child, depth+1); err != nil {
			return err
		}
	}
	r.f.WriteString(fmt.Sprintf("%s</%s>\n", indent, n.name))

	return nil
}

func (r *xmlRenderer) formatValue(name string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil

	case bool:
		if t {
			return "true", nil
		}

		return "false", nil

	case expr.Expr:
		s, err := r.fmtr.Format(t)
		if err != nil {
			if expr.IsNonConst(err) {
				return "", expr.Errorf(t.Position(),
					"cannot set property %q to non-constant expression %q", name, t)
			}

			return "", err
		}

		return s, nil

	case *joined:
		parts := make([]string, 0, len(t.items))
		for _, item := range t.items {
			s, err := r.formatValue(name, item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}

		return mung.Make(
			mung.WithDelim(t.sep),
			mung.WithSubjectItems(parts...),
			mung.WithFilter(func(s string) bool { return s != "" }),
		).String(), nil
	}

	panic(fmt.Sprintf("unexpected XML value type %T in element %q", v, name))
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")

	return s
}

func escapeAttr(s string) string {
	return strings.ReplaceAll(escapeText(s), `"`, "&quot;")
}
