package lang

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func benchInput() string {
	var b strings.Builder
	b.WriteString("toolsets = gnu vs2017;\n")
	b.WriteString("template common { DEFINES += COMMON; includedirs += include; }\n")
	for i := 0; i < 20; i++ {
		b.WriteString("program prog")
		b.WriteByte(byte('a' + i%26))
		b.WriteString(" : common {\n  sources { main.c util.c extra.cpp }\n")
		b.WriteString("  if ( $(toolset) == gnu ) DEFINES += POSIX;\n}\n")
	}

	return b.String()
}

func BenchmarkParse(b *testing.B) {
	src := benchInput()
	b.ReportAllocs()
	for b.Loop() {
		if _, err := Parse("bench.bkl", src); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParseFile_Cached(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench.bkl")
	if err := os.WriteFile(path, []byte(benchInput()), 0o644); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(ClearCache)

	b.ReportAllocs()
	for b.Loop() {
		if _, err := ParseFile(path); err != nil {
			b.Fatal(err)
		}
	}
}
