package expr

import (
	"path/filepath"
	"strings"
)

// A Formatter renders expressions into output text. The zero value
// formats lists with space-separated items and resolves paths through
// Paths; the hook fields let a generator override the rendering of
// individual node types, and must be set for the node types that have
// no generic text form (settings, boolean expressions).
type Formatter struct {
	// Paths resolves path anchors. Formatting a path with a nil Paths
	// fails.
	Paths *PathAnchors

	// ListSep separates list items. Empty means a single space.
	ListSep string

	Literal     func(e *Literal) (string, error)
	Path        func(e *Path) (string, error)
	Reference   func(e *Reference) (string, error)
	Placeholder func(e *Placeholder) (string, error)
	BoolValue   func(e *BoolValue) (string, error)
	Bool        func(e *Bool) (string, error)
	If          func(e *If) (string, error)
}

// Format renders e into its output text form.
func (f *Formatter) Format(e Expr) (string, error) {
	switch t := e.(type) {
	case *Null:
		return "", nil

	case *Literal:
		if f.Literal != nil {
			return f.Literal(t)
		}

		return t.Value, nil

	case *Concat:
		var b strings.Builder
		for _, item := range t.Items {
			s, err := f.Format(item)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}

		return b.String(), nil

	case *List:
		sep := f.ListSep
		if sep == "" {
			sep = " "
		}
		items := make([]string, len(t.Items))
		for i, item := range t.Items {
			s, err := f.Format(item)
			if err != nil {
				return "", err
			}
			items[i] = s
		}

		return strings.Join(items, sep), nil

	case *Path:
		if f.Path != nil {
			return f.Path(t)
		}

		return f.path(t)

	case *Reference:
		if f.Reference != nil {
			return f.Reference(t)
		}
		value, err := t.Value()
		if err != nil {
			return "", err
		}

		return f.Format(value)

	case *Placeholder:
		if f.Placeholder != nil {
			return f.Placeholder(t)
		}

		return "", Errorf(t.Position(), "cannot render value of setting %q here", t.Name)

	case *BoolValue:
		if f.BoolValue != nil {
			return f.BoolValue(t)
		}

		return "", Errorf(t.Position(), "cannot render boolean value %q here", t)

	case *Bool:
		if f.Bool != nil {
			return f.Bool(t)
		}

		return "", Errorf(t.Position(), "cannot render boolean expression %q here", t)

	case *If:
		if f.If != nil {
			return f.If(t)
		}
		value, err := t.Value()
		if err != nil {
			return "", err
		}

		return f.Format(value)
	}

	return "", Errorf(e.Position(), "cannot render %q", e)
}

// DefaultPath renders a path the generic way, for Path hooks that only
// treat some anchors specially and delegate the rest.
func (f *Formatter) DefaultPath(e *Path) (string, error) {
	return f.path(e)
}

func (f *Formatter) path(e *Path) (string, error) {
	if f.Paths == nil {
		return "", Errorf(e.Position(), "cannot render path %q in this context", e)
	}

	if e.IsExternalAbsolute() {
		// Starts with an absolute externally provided directory, no
		// need to find a nice relative form.
		comps, err := f.formatAll(e.Components)
		if err != nil {
			return "", err
		}

		return strings.Join(comps, f.Paths.DirSep), nil
	}

	var base []string
	switch e.Anchor {
	case AnchorTopSrcdir:
		base = f.Paths.TopSrcdir
	case AnchorBuilddir:
		if !f.Paths.HasBuilddir {
			return "", Errorf(e.Position(),
				"@builddir anchor is unknown in this context (%q)", e)
		}
		base = f.Paths.Builddir
	default:
		return "", Errorf(e.Position(), "unknown path anchor %s in %q", e.Anchor, e)
	}

	// Prefer a relative form without superfluous "..".
	abs, err := e.NativePath(f.Paths)
	if err == nil {
		rel, err := filepath.Rel(f.Paths.OutdirAbs, abs)
		if err != nil {
			return "", WithPos(err, e.Position())
		}

		return strings.Join(strings.Split(rel, string(filepath.Separator)), f.Paths.DirSep), nil
	}
	if !IsNonConst(err) {
		return "", err
	}

	// The path has conditional or setting-dependent components; render
	// them symbolically instead.
	comps, err := f.formatAll(e.Components)
	if err != nil {
		return "", err
	}

	return strings.Join(append(append([]string{}, base...), comps...), f.Paths.DirSep), nil
}

func (f *Formatter) formatAll(items []Expr) ([]string, error) {
	out := make([]string, len(items))
	for i, item := range items {
		s, err := f.Format(item)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}

	return out, nil
}
