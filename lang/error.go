package lang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/pkg"
)

// Predefined errors (sentinel values).
var (
	ErrReadInput = pkg.NewError("failed to read input")
	ErrSyntax    = pkg.NewError("syntax error")
)

// ParseError is a syntax error in an input file. It renders with the
// offending source line and a caret under the column the parser
// stopped at.
type ParseError struct {
	Msg string
	Pos expr.Pos

	// Source is the full text of the file, used for context rendering.
	Source string
}

func newParseError(pos expr.Pos, source, format string, args ...any) *ParseError {
	return &ParseError{
		Msg:    fmt.Sprintf(format, args...),
		Pos:    pos,
		Source: source,
	}
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var buf strings.Builder

	if e.Pos.IsValid() {
		buf.WriteString(e.Pos.String())
		buf.WriteString(": ")
	}
	buf.WriteString(e.Msg)

	if snippet := e.snippet(); snippet != "" {
		buf.WriteRune('\n')
		buf.WriteString(snippet)
	}

	return buf.String()
}

// Position returns the source position of the error.
func (e *ParseError) Position() expr.Pos { return e.Pos }

// Unwrap lets errors.Is(err, ErrSyntax) classify any parse error.
func (e *ParseError) Unwrap() error { return ErrSyntax }

// snippet renders the offending line with a caret marker, or "" when
// the source or position is unavailable.
func (e *ParseError) snippet() string {
	if e.Source == "" || e.Pos.Line <= 0 {
		return ""
	}
	lines := strings.Split(e.Source, "\n")
	if e.Pos.Line > len(lines) {
		return ""
	}
	line := strings.TrimRight(lines[e.Pos.Line-1], "\r")

	var src strings.Builder
	num := strconv.Itoa(e.Pos.Line)
	src.WriteString("  ")
	src.WriteString(num)
	src.WriteString(" | ")
	src.WriteString(line)
	src.WriteRune('\n')

	// 2 leading spaces, the line number, " | ".
	padding := strings.Repeat(" ", len(num)+5)
	if e.Pos.Col > 1 {
		padding += strings.Repeat(" ", e.Pos.Col-1)
	}
	src.WriteString(padding + "^")

	return src.String()
}
