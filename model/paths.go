package model

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/log"
)

// PathNormalizer rewrites relative paths onto absolute anchors. Paths
// relative to @srcdir are rewritten in terms of @top_srcdir; paths
// relative to @builddir are translated the active toolset's way. This
// makes cross-module uses of variables and paths come out right.
//
// The finalization passes run it over the whole model; the generators
// run it again over expressions they compute afterwards, e.g. build
// graph nodes.
type PathNormalizer struct {
	prj     *Project
	toolset Toolset

	module *Module
	target *Target

	topSrcdir   string
	srcPrefixes map[string][]expr.Expr
	builddirs   map[*Target]*expr.Path
}

// NewPathNormalizer creates a normalizer for the project. A nil toolset
// leaves @builddir paths alone, which is what makefile outputs want:
// they render the build directory symbolically.
func NewPathNormalizer(prj *Project, toolset Toolset) *PathNormalizer {
	top, err := filepath.Abs(prj.TopModule().Srcdir())
	if err != nil {
		top = prj.TopModule().Srcdir()
	}

	return &PathNormalizer{
		prj:         prj,
		toolset:     toolset,
		topSrcdir:   top,
		srcPrefixes: make(map[string][]expr.Expr),
		builddirs:   make(map[*Target]*expr.Path),
	}
}

// SetContext associates the module or target whose expressions are being
// rewritten. @builddir can only be translated with a target context.
func (p *PathNormalizer) SetContext(context Part) {
	if target, ok := context.(*Target); ok {
		p.module = target.Module()
		p.target = target
	} else {
		p.module = context.(*Module)
		p.target = nil
	}
}

// Rewrite normalizes all paths within the expression.
func (p *PathNormalizer) Rewrite(e expr.Expr) (expr.Expr, error) {
	rw := expr.Rewriter{Path: p.path}

	return rw.Rewrite(e)
}

func (p *PathNormalizer) srcPrefix(sourceFile string) ([]expr.Expr, error) {
	if prefix, ok := p.srcPrefixes[sourceFile]; ok {
		return prefix, nil
	}
	srcdir, err := filepath.Abs(p.prj.Srcdir(sourceFile))
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(p.topSrcdir, srcdir)
	if err != nil {
		return nil, err
	}
	var prefix []expr.Expr
	if rel != "." {
		log.Debug("translating paths",
			slog.String("file", sourceFile),
			slog.String("prefix", rel))
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			prefix = append(prefix, expr.NewLiteral(part, expr.Pos{}))
		}
	}
	p.srcPrefixes[sourceFile] = prefix

	return prefix, nil
}

func (p *PathNormalizer) builddir(target *Target) *expr.Path {
	if dir, ok := p.builddirs[target]; ok {
		return dir
	}
	dir := p.toolset.BuilddirFor(target)
	p.builddirs[target] = dir

	return dir
}

func (p *PathNormalizer) path(e *expr.Path) (expr.Expr, error) {
	if e.Anchor == expr.AnchorBuilddir && p.toolset != nil {
		if p.target == nil {
			return nil, expr.Errorf(e.Position(),
				"@builddir references are not allowed outside of targets")
		}
		bdir := p.builddir(p.target)
		comps := make([]expr.Expr, 0, len(bdir.Components)+len(e.Components))
		comps = append(comps, bdir.Components...)
		comps = append(comps, e.Components...)
		e = expr.NewPath(comps, bdir.Anchor, bdir.AnchorFile, e.Position())
	}
	if e.Anchor == expr.AnchorSrcdir {
		sourceFile := e.AnchorFile
		if sourceFile == "" {
			sourceFile = e.Position().File
		}
		if sourceFile == "" {
			sourceFile = p.module.SourceFilePath()
		}
		prefix, err := p.srcPrefix(sourceFile)
		if err != nil {
			return nil, expr.WithPos(err, e.Position())
		}
		comps := e.Components
		// A path starting with a user setting is effectively absolute
		// and must not be prefixed.
		if len(prefix) > 0 && !e.IsExternalAbsolute() {
			comps = append(append([]expr.Expr{}, prefix...), comps...)
		}
		// The anchor file loses its meaning once the path is expressed
		// relative to the top source directory.
		e = expr.NewPath(comps, expr.AnchorTopSrcdir, "", e.Position())
	}

	return e, nil
}
