package gen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFile_CommitStatuses(t *testing.T) {
	dir := t.TempDir()
	write := func(out *Output, content string) {
		t.Helper()
		f, err := out.NewFile(filepath.Join(dir, "Makefile"), EOLUnix, "test")
		if err != nil {
			t.Fatalf("NewFile error: %v", err)
		}
		f.WriteString(content)
		if err := f.Commit(); err != nil {
			t.Fatalf("Commit error: %v", err)
		}
		if err := out.Commit(); err != nil {
			t.Fatalf("Output.Commit error: %v", err)
		}
	}

	out := NewOutput(dir)
	write(out, "all:\n")
	if out.Created != 1 || out.Updated != 0 {
		t.Errorf("first commit: created=%d updated=%d", out.Created, out.Updated)
	}

	// Identical content leaves the file alone.
	out = NewOutput(dir)
	write(out, "all:\n")
	if out.Created != 0 || out.Updated != 0 {
		t.Errorf("unchanged commit: created=%d updated=%d", out.Created, out.Updated)
	}

	out = NewOutput(dir)
	write(out, "all: hello\n")
	if out.Created != 0 || out.Updated != 1 {
		t.Errorf("changed commit: created=%d updated=%d", out.Created, out.Updated)
	}
}

func TestFile_DryRun(t *testing.T) {
	dir := t.TempDir()
	out := NewOutput(dir)
	out.DryRun = true

	f, err := out.NewFile(filepath.Join(dir, "Makefile"), EOLUnix, "test")
	if err != nil {
		t.Fatalf("NewFile error: %v", err)
	}
	f.WriteString("all:\n")
	if err := f.Commit(); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if err := out.Commit(); err != nil {
		t.Fatalf("Output.Commit error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "Makefile")); !os.IsNotExist(err) {
		t.Error("dry run should not write any files")
	}
	if out.Created != 1 {
		t.Errorf("dry run should still count the file, created=%d", out.Created)
	}
}

func TestFile_WindowsEOLAndBOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.vcxproj")

	out := NewOutput(dir)
	f, err := out.NewFile(path, EOLWindows, "test")
	if err != nil {
		t.Fatalf("NewFile error: %v", err)
	}
	f.AddBOM = true
	f.WriteString("<a>\n</a>\n")
	if err := f.Commit(); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if err := out.Commit(); err != nil {
		t.Fatalf("Output.Commit error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	want := "\xEF\xBB\xBF<a>\r\n</a>\r\n"
	if string(data) != want {
		t.Errorf("written %q, want %q", data, want)
	}
}

func TestFile_Replace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Makefile")

	out := NewOutput(dir)
	f, err := out.NewFile(path, EOLUnix, "test")
	if err != nil {
		t.Fatalf("NewFile error: %v", err)
	}
	f.WriteString("head\n{{{PLACEHOLDER}}}tail\n")
	f.Replace("{{{PLACEHOLDER}}}", "middle\n")
	if err := f.Commit(); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if err := out.Commit(); err != nil {
		t.Fatalf("Output.Commit error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(data) != "head\nmiddle\ntail\n" {
		t.Errorf("written %q", data)
	}
}

func TestOutput_ConflictingFiles(t *testing.T) {
	out := NewOutput(t.TempDir())
	if _, err := out.NewFile("Makefile", EOLUnix, "gnu (module test)"); err != nil {
		t.Fatalf("NewFile error: %v", err)
	}
	_, err := out.NewFile("Makefile", EOLUnix, "gnu (module other)")
	if err == nil || !strings.Contains(err.Error(), "generated both by") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOutput_MakesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "dir", "Makefile")

	out := NewOutput(dir)
	f, err := out.NewFile(path, EOLUnix, "test")
	if err != nil {
		t.Fatalf("NewFile error: %v", err)
	}
	f.WriteString("all:\n")
	if err := f.Commit(); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if err := out.Commit(); err != nil {
		t.Fatalf("Output.Commit error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestOutput_CommitIsDeferred(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Makefile")

	out := NewOutput(dir)
	f, err := out.NewFile(path, EOLUnix, "test")
	if err != nil {
		t.Fatalf("NewFile error: %v", err)
	}
	f.WriteString("all:\n")
	if err := f.Commit(); err != nil {
		t.Fatalf("Commit error: %v", err)
	}

	// Nothing is on disk yet: a generation error after this point must
	// not leave partial output behind.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file written before the output sink was committed")
	}

	if err := out.Commit(); err != nil {
		t.Fatalf("Output.Commit error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("output file missing after commit: %v", err)
	}

	// A second commit must not rewrite the staged files again.
	out.Created = 0
	if err := out.Commit(); err != nil {
		t.Fatalf("second Output.Commit error: %v", err)
	}
	if out.Created != 0 {
		t.Errorf("second commit recounted files, created=%d", out.Created)
	}
}
