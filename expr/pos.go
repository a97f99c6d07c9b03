package expr

import (
	"strconv"
	"strings"
)

// Pos identifies a location in an input file. The zero value means the
// location is unknown.
type Pos struct {
	File string
	Line int // 1-based, 0 if unknown
	Col  int // 1-based, 0 if unknown
}

// IsValid reports whether p carries any location information.
func (p Pos) IsValid() bool {
	return p.File != "" || p.Line > 0
}

// String formats the position the way compilers do, e.g. "foo.bkl:12" or
// "foo.bkl:12:3". Unknown parts are omitted.
func (p Pos) String() string {
	parts := make([]string, 0, 3)
	if p.File != "" {
		parts = append(parts, p.File)
	}
	if p.Line > 0 {
		parts = append(parts, strconv.Itoa(p.Line))
		if p.Col > 0 {
			parts = append(parts, strconv.Itoa(p.Col))
		}
	}

	return strings.Join(parts, ":")
}
