package expr

import (
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Basename returns the name of the file the path points to, without
// the directory part.
func (e *Path) Basename() (string, error) {
	if len(e.Components) == 0 {
		return "", Errorf(e.pos, "cannot determine basename of empty path %q", e)
	}
	last, err := AsConst(e.Components[len(e.Components)-1])
	if err != nil {
		if IsNonConst(err) {
			return "", Errorf(e.pos, "cannot determine basename of %q", e)
		}

		return "", err
	}
	if last.IsNull() || last.Type() != cty.String {
		return "", Errorf(e.pos, "cannot determine basename of %q", e)
	}
	name := last.AsString()
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		return name[:dot], nil
	}

	return name, nil
}

// Directory returns the path without its last component, keeping the
// anchor. The directory of an empty path is the path itself.
func (e *Path) Directory() *Path {
	if len(e.Components) == 0 {
		return e
	}

	return NewPath(e.Components[:len(e.Components)-1], e.Anchor, e.AnchorFile, e.pos)
}

// Extension returns the extension of the file the path points to, or
// "" when it has none. It fails with [CannotDetermineError] when the
// file name is not constant.
func (e *Path) Extension() (string, error) {
	if len(e.Components) == 0 {
		return "", nil
	}
	last := e.Components[len(e.Components)-1]
	if concat, ok := last.(*Concat); ok {
		last = concat.Items[len(concat.Items)-1]
	}
	lit, ok := last.(*Literal)
	if !ok {
		return "", NewCannotDetermineError(e.pos, "cannot determine extension of %q", e)
	}
	if dot := strings.LastIndexByte(lit.Value, '.'); dot >= 0 {
		return lit.Value[dot+1:], nil
	}

	return "", nil
}

// WithExtension returns a copy of the path with the file extension
// replaced by ext. A file name without an extension gets ext appended.
func (e *Path) WithExtension(ext string) (*Path, error) {
	last, prefix, err := e.lastLiteral()
	if err != nil {
		return nil, err
	}

	name := last.Value
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		name = name[:dot]
	}

	return e.withLastComponent(NewLiteral(name+"."+ext, last.Position()), prefix), nil
}

// WithSuffix returns a copy of the path with suffix inserted into the
// file name just before its extension, e.g. "lib" with suffix "25"
// becomes "lib25".
func (e *Path) WithSuffix(suffix Expr) (*Path, error) {
	ok, err := IsNull(suffix)
	if err != nil {
		return nil, err
	}
	if ok {
		return e, nil
	}

	last, prefix, err := e.lastLiteral()
	if err != nil {
		return nil, err
	}

	name := last.Value
	ext := ""
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		name, ext = name[:dot], name[dot:]
	}
	combined := NewConcat([]Expr{
		NewLiteral(name, last.Position()),
		suffix,
		NewLiteral(ext, last.Position()),
	}, last.Position())

	return e.withLastComponent(combined, prefix), nil
}

// lastLiteral locates the literal holding the file name: the last
// component, or the final item of the last component when that is a
// concatenation. prefix holds the preceding concatenation items.
func (e *Path) lastLiteral() (*Literal, []Expr, error) {
	if len(e.Components) == 0 {
		return nil, nil, Errorf(e.pos, "cannot modify file name of empty path %q", e)
	}
	last := e.Components[len(e.Components)-1]
	var prefix []Expr
	if concat, ok := last.(*Concat); ok {
		prefix = concat.Items[:len(concat.Items)-1]
		last = concat.Items[len(concat.Items)-1]
	}
	lit, ok := last.(*Literal)
	if !ok {
		return nil, nil, Errorf(e.pos, "cannot modify file name of %q", e)
	}

	return lit, prefix, nil
}

func (e *Path) withLastComponent(c Expr, prefix []Expr) *Path {
	if len(prefix) > 0 {
		c = NewConcat(append(append([]Expr{}, prefix...), c), c.Position())
	}
	comps := make([]Expr, len(e.Components))
	copy(comps, e.Components)
	comps[len(comps)-1] = c

	return NewPath(comps, e.Anchor, e.AnchorFile, e.pos)
}

// PathAnchors carries the directories behind the symbolic path anchors,
// as needed to render path expressions into a particular output file.
type PathAnchors struct {
	// DirSep separates path components in the rendered output, "/" for
	// makefiles and "\" for Visual Studio files.
	DirSep string

	// TopSrcdir leads from the output file's directory to the top
	// source directory, as components. Empty when they coincide.
	TopSrcdir []string

	// Builddir leads from the output file's directory to the build
	// directory, as components. Only valid when HasBuilddir is true;
	// some outputs, e.g. solution files, have no meaningful builddir.
	Builddir    []string
	HasBuilddir bool

	TopSrcdirAbs string
	OutdirAbs    string
	BuilddirAbs  string
}

// NewPathAnchors resolves anchor directories for one output file.
// outfile is the native path of the file being generated, builddir may
// be empty when builddir-relative paths are meaningless for it, and
// topSrcdir is the directory of the toplevel input file.
func NewPathAnchors(dirsep, outfile, builddir, topSrcdir string) (*PathAnchors, error) {
	outfileAbs, err := filepath.Abs(outfile)
	if err != nil {
		return nil, err
	}
	outdir := filepath.Dir(outfileAbs)

	topAbs, err := filepath.Abs(topSrcdir)
	if err != nil {
		return nil, err
	}
	top, err := relComponents(outdir, topAbs)
	if err != nil {
		return nil, err
	}

	anchors := &PathAnchors{
		DirSep:       dirsep,
		TopSrcdir:    top,
		TopSrcdirAbs: topAbs,
		OutdirAbs:    outdir,
	}
	if builddir != "" {
		buildAbs, err := filepath.Abs(builddir)
		if err != nil {
			return nil, err
		}
		build, err := relComponents(outdir, buildAbs)
		if err != nil {
			return nil, err
		}
		anchors.Builddir = build
		anchors.BuilddirAbs = buildAbs
		anchors.HasBuilddir = true
	}

	return anchors, nil
}

func relComponents(base, target string) ([]string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return nil, err
	}
	if rel == "." {
		return nil, nil
	}

	return strings.Split(rel, string(filepath.Separator)), nil
}

// NativePath resolves the path to an absolute native path using the
// given anchors. Only toplevel srcdir and builddir anchored paths can
// be resolved this way.
func (e *Path) NativePath(anchors *PathAnchors) (string, error) {
	var base string
	switch e.Anchor {
	case AnchorTopSrcdir:
		base = anchors.TopSrcdirAbs
	case AnchorBuilddir:
		if !anchors.HasBuilddir {
			return "", Errorf(e.pos, "@builddir anchor is unknown in this context (%q)", e)
		}
		base = anchors.BuilddirAbs
	default:
		return "", Errorf(e.pos, "path %q cannot be resolved to a native path", e)
	}

	parts := make([]string, 0, len(e.Components)+1)
	parts = append(parts, base)
	for _, c := range e.Components {
		v, err := AsConst(c)
		if err != nil {
			return "", err
		}
		s, err := constText(v, c)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}

	return filepath.Join(parts...), nil
}

// NativePathForOutput resolves a srcdir-anchored path relative to the
// top source directory. Output file names must resolve this way before
// full anchor information exists.
func (e *Path) NativePathForOutput(topSrcdir string) (string, error) {
	if e.Anchor != AnchorTopSrcdir {
		return "", Errorf(e.pos, "path %q is not relative to the source tree root", e)
	}

	parts := make([]string, 0, len(e.Components)+1)
	parts = append(parts, topSrcdir)
	for _, c := range e.Components {
		v, err := AsConst(c)
		if err != nil {
			return "", err
		}
		s, err := constText(v, c)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}

	return filepath.Join(parts...), nil
}
