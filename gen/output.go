// Package gen holds the machinery shared by the output generators: the
// output-file layer with change detection and the scaffolding common to
// makefile-based toolsets.
package gen

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/log"
)

// EOL selects the line endings of a generated file.
type EOL int

const (
	EOLUnix EOL = iota
	EOLWindows
)

// Status describes what committing a file did.
type Status string

const (
	StatusAdded     Status = "added"
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Output collects the files one bakefile invocation writes. It resolves
// relative output paths against the output root, detects two generators
// claiming the same file and keeps the written-file statistics.
type Output struct {
	// Root is the directory relative output paths resolve against.
	Root string

	// DryRun renders and reports without touching the filesystem.
	DryRun bool

	// Force rewrites files even when their content is unchanged, which
	// refreshes timestamps for make's regeneration rules.
	Force bool

	// Created and Updated count the committed files per status.
	Created, Updated int

	written map[string]string
	staged  []*File
}

// NewOutput creates an output sink rooted at the given directory.
func NewOutput(root string) *Output {
	return &Output{Root: root, written: make(map[string]string)}
}

var current = NewOutput(".")

// SetCurrent installs the output sink the generators write to. The
// command line driver calls it once per invocation; toolsets can't be
// handed the sink directly as they are registered process-wide.
func SetCurrent(o *Output) { current = o }

// Current returns the active output sink.
func Current() *Output { return current }

// Path resolves an output-relative native path against the output root.
func (o *Output) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}

	return filepath.Join(o.Root, rel)
}

// NewFile starts a new output file. by names the generator and the part
// the file is written for; it appears in the conflict error when two
// generators claim the same path.
func (o *Output) NewFile(path string, eol EOL, by string) (*File, error) {
	if prev, dup := o.written[path]; dup {
		return nil, expr.Errorf(expr.Pos{},
			"conflict in file %s, generated both by %s and by %s", path, prev, by)
	}
	o.written[path] = by

	return &File{out: o, path: path, eol: eol}, nil
}

// Commit writes out every file staged since the last commit. The
// generators stage their files with [File.Commit] and the driver calls
// this once a toolset's generation has succeeded as a whole, so a
// failure halfway through leaves no partial output on disk.
func (o *Output) Commit() error {
	staged := o.staged
	o.staged = nil
	for _, f := range staged {
		if err := f.write(); err != nil {
			return err
		}
	}

	return nil
}

// File accumulates the content of one output file in memory. Nothing
// touches the disk until the owning [Output] is committed.
type File struct {
	out  *Output
	path string
	eol  EOL

	// AddBOM prepends a UTF-8 byte order mark on commit. Visual Studio
	// files carry one.
	AddBOM bool

	text []byte
}

// WriteString appends text to the file. Use "\n" line endings; the
// configured EOL conversion happens on commit.
func (f *File) WriteString(s string) {
	f.text = append(f.text, s...)
}

// Replace substitutes the first occurrence of a placeholder written
// earlier with its actual value. Parts of the output that depend on
// content coming after them are written as placeholders first.
func (f *File) Replace(placeholder, value string) {
	f.text = bytes.Replace(f.text, []byte(placeholder), []byte(value), 1)
}

// Commit marks the file as complete and stages it for writing. The
// disk is only touched once the whole generation succeeds and the
// owning [Output] is committed.
func (f *File) Commit() error {
	f.out.staged = append(f.out.staged, f)

	return nil
}

// write converts line endings, compares the result against the file on
// disk and writes it out when it differs (or unconditionally when
// forced). Parent directories are created as needed.
func (f *File) write() error {
	text := f.text
	if f.eol == EOLWindows {
		text = bytes.ReplaceAll(text, []byte("\n"), []byte("\r\n"))
	}
	if f.AddBOM {
		text = append(append([]byte{}, utf8BOM...), text...)
	}

	status := StatusAdded
	old, err := os.ReadFile(f.path)
	if err == nil {
		if bytes.Equal(old, text) && !f.out.Force {
			f.log(StatusUnchanged)

			return nil
		}
		status = StatusUpdated
	}

	switch status {
	case StatusAdded:
		f.out.Created++
	case StatusUpdated:
		f.out.Updated++
	}
	f.log(status)

	if f.out.DryRun {
		return nil
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(f.path, text, 0o644)
}

func (f *File) log(status Status) {
	path := f.path
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, path); err == nil {
			path = rel
		}
	}
	log.Info("output file",
		slog.String("file", path),
		slog.String("status", string(status)))
}
