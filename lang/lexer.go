package lang

import (
	"strings"

	"github.com/vslavik/bakefile/expr"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokRef
	tokAssign
	tokAppend
	tokSemi
	tokColon
	tokComma
	tokLBrace
	tokRBrace
	tokLParen
	tokRParen
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokNot
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokWord:
		return "word"
	case tokRef:
		return "variable reference"
	case tokAssign:
		return `"="`
	case tokAppend:
		return `"+="`
	case tokSemi:
		return `";"`
	case tokColon:
		return `":"`
	case tokComma:
		return `","`
	case tokLBrace:
		return `"{"`
	case tokRBrace:
		return `"}"`
	case tokLParen:
		return `"("`
	case tokRParen:
		return `")"`
	case tokEq:
		return `"=="`
	case tokNeq:
		return `"!="`
	case tokAnd:
		return `"&&"`
	case tokOr:
		return `"||"`
	case tokNot:
		return `"!"`
	}

	return "token"
}

// token is one lexical element. Text holds the word content for tokWord
// and the variable name for tokRef.
//
// Glued marks tokens written directly after the previous one, with no
// whitespace in between; the parser uses it to tell concatenation
// ("lib$(name).a") apart from list items ("a.c b.c"). Fragments of an
// interpolated string are always glued to each other, and quote
// characters themselves do not break adjacency, so a"b" concatenates.
type token struct {
	kind  tokenKind
	text  string
	pos   expr.Pos
	glued bool
}

func (t token) describe() string {
	if t.kind == tokWord {
		return `"` + t.text + `"`
	}

	return t.kind.String()
}

// lexer splits input text into tokens. The whole file is tokenized up
// front; the parser then works on the token slice with arbitrary
// lookahead.
type lexer struct {
	file string
	src  string
	off  int
	line int
	col  int
}

func newLexer(file, src string) *lexer {
	return &lexer{file: file, src: src, line: 1, col: 1}
}

func (l *lexer) pos() expr.Pos {
	return expr.Pos{File: l.file, Line: l.line, Col: l.col}
}

func (l *lexer) errorf(pos expr.Pos, format string, args ...any) error {
	return newParseError(pos, l.src, format, args...)
}

func (l *lexer) advance(n int) {
	for range n {
		if l.off < len(l.src) && l.src[l.off] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.off++
	}
}

func (l *lexer) peek() byte {
	if l.off >= len(l.src) {
		return 0
	}

	return l.src[l.off]
}

func (l *lexer) peekAt(n int) byte {
	if l.off+n >= len(l.src) {
		return 0
	}

	return l.src[l.off+n]
}

// skipSpace consumes whitespace and comments. It reports whether
// anything was skipped, which breaks token adjacency.
func (l *lexer) skipSpace() (bool, error) {
	skipped := false
	for l.off < len(l.src) {
		c := l.src[l.off]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance(1)
			skipped = true

		case c == '/' && l.peekAt(1) == '/':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance(1)
			}
			skipped = true

		case c == '/' && l.peekAt(1) == '*':
			start := l.pos()
			l.advance(2)
			for {
				if l.off >= len(l.src) {
					return skipped, l.errorf(start, "unterminated comment")
				}
				if l.src[l.off] == '*' && l.peekAt(1) == '/' {
					l.advance(2)

					break
				}
				l.advance(1)
			}
			skipped = true

		default:
			return skipped, nil
		}
	}

	return skipped, nil
}

// isWordByte reports whether c may appear in a bare word. Paths are
// written as bare words, so the set includes path characters; "/" is
// only a comment starter when doubled.
func isWordByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-' || c == '.' || c == '@' || c == '~' || c == '*' || c == '\\':
		return true
	case c == '/':
		return true
	}

	return false
}

func (l *lexer) tokens() ([]token, error) {
	var out []token

	push := func(t token, glued bool) {
		t.glued = glued && len(out) > 0
		out = append(out, t)
	}

	for {
		skipped, err := l.skipSpace()
		if err != nil {
			return nil, err
		}
		glued := !skipped

		if l.off >= len(l.src) {
			push(token{kind: tokEOF, pos: l.pos()}, false)

			return out, nil
		}

		pos := l.pos()
		c := l.peek()
		switch {
		case c == ';':
			l.advance(1)
			push(token{kind: tokSemi, pos: pos}, glued)

		case c == ':':
			l.advance(1)
			push(token{kind: tokColon, pos: pos}, glued)

		case c == ',':
			l.advance(1)
			push(token{kind: tokComma, pos: pos}, glued)

		case c == '{':
			l.advance(1)
			push(token{kind: tokLBrace, pos: pos}, glued)

		case c == '}':
			l.advance(1)
			push(token{kind: tokRBrace, pos: pos}, glued)

		case c == '(':
			l.advance(1)
			push(token{kind: tokLParen, pos: pos}, glued)

		case c == ')':
			l.advance(1)
			push(token{kind: tokRParen, pos: pos}, glued)

		case c == '=':
			if l.peekAt(1) == '=' {
				l.advance(2)
				push(token{kind: tokEq, pos: pos}, glued)
			} else {
				l.advance(1)
				push(token{kind: tokAssign, pos: pos}, glued)
			}

		case c == '+' && l.peekAt(1) == '=':
			l.advance(2)
			push(token{kind: tokAppend, pos: pos}, glued)

		case c == '!':
			if l.peekAt(1) == '=' {
				l.advance(2)
				push(token{kind: tokNeq, pos: pos}, glued)
			} else {
				l.advance(1)
				push(token{kind: tokNot, pos: pos}, glued)
			}

		case c == '&' && l.peekAt(1) == '&':
			l.advance(2)
			push(token{kind: tokAnd, pos: pos}, glued)

		case c == '|' && l.peekAt(1) == '|':
			l.advance(2)
			push(token{kind: tokOr, pos: pos}, glued)

		case c == '$':
			ref, err := l.lexReference()
			if err != nil {
				return nil, err
			}
			push(ref, glued)

		case c == '"':
			frags, err := l.lexInterpolated()
			if err != nil {
				return nil, err
			}
			for i, f := range frags {
				push(f, glued || i > 0)
			}
			if len(frags) == 0 {
				// An empty string still contributes an empty literal so
				// that VAR = ""; assigns an empty value, not null.
				push(token{kind: tokWord, text: "", pos: pos}, glued)
			}

		case c == '\'':
			text, err := l.lexSingleQuoted()
			if err != nil {
				return nil, err
			}
			push(token{kind: tokWord, text: text, pos: pos}, glued)

		case isWordByte(c):
			start := l.off
			for l.off < len(l.src) && isWordByte(l.peek()) {
				// "//" inside a word would start a comment; stop before it.
				if l.peek() == '/' && l.peekAt(1) == '/' {
					break
				}
				l.advance(1)
			}
			push(token{kind: tokWord, text: l.src[start:l.off], pos: pos}, glued)

		default:
			return nil, l.errorf(pos, "unexpected character %q", string(rune(c)))
		}
	}
}

// lexReference reads a $(name) variable reference.
func (l *lexer) lexReference() (token, error) {
	pos := l.pos()
	l.advance(1)
	if l.peek() != '(' {
		return token{}, l.errorf(pos, `"$" must be followed by "(name)"`)
	}
	l.advance(1)

	start := l.off
	for l.off < len(l.src) && isWordByte(l.peek()) {
		l.advance(1)
	}
	name := l.src[start:l.off]
	if name == "" {
		return token{}, l.errorf(pos, "empty variable reference")
	}
	if l.peek() != ')' {
		return token{}, l.errorf(pos, `unterminated variable reference "$(%s"`, name)
	}
	l.advance(1)

	return token{kind: tokRef, text: name, pos: pos}, nil
}

// lexInterpolated reads a double-quoted string, splitting it into
// literal fragments and $(name) references. Whitespace inside the
// quotes is literal text.
func (l *lexer) lexInterpolated() ([]token, error) {
	open := l.pos()
	l.advance(1)

	var out []token
	var b strings.Builder
	litPos := l.pos()

	flush := func() {
		if b.Len() > 0 {
			out = append(out, token{kind: tokWord, text: b.String(), pos: litPos})
			b.Reset()
		}
	}

	for {
		if l.off >= len(l.src) {
			return nil, l.errorf(open, "unterminated string")
		}
		c := l.peek()
		switch {
		case c == '"':
			l.advance(1)
			flush()

			return out, nil

		case c == '\n':
			return nil, l.errorf(open, "unterminated string")

		case c == '\\':
			esc := l.pos()
			next := l.peekAt(1)
			switch next {
			case '"', '\'', '\\', '$':
				b.WriteByte(next)
				l.advance(2)
			default:
				expr.Warn(expr.WarnBadEscapeSequence, esc,
					"unknown escape sequence \"\\%s\"", string(rune(next)))
				b.WriteByte('\\')
				l.advance(1)
			}

		case c == '$' && l.peekAt(1) == '(':
			flush()
			ref, err := l.lexReference()
			if err != nil {
				return nil, err
			}
			out = append(out, ref)
			litPos = l.pos()

		default:
			if b.Len() == 0 {
				litPos = l.pos()
			}
			b.WriteByte(c)
			l.advance(1)
		}
	}
}

// lexSingleQuoted reads a single-quoted string; no interpolation, only
// \' and \\ escapes.
func (l *lexer) lexSingleQuoted() (string, error) {
	open := l.pos()
	l.advance(1)

	var b strings.Builder
	for {
		if l.off >= len(l.src) {
			return "", l.errorf(open, "unterminated string")
		}
		c := l.peek()
		switch {
		case c == '\'':
			l.advance(1)

			return b.String(), nil

		case c == '\n':
			return "", l.errorf(open, "unterminated string")

		case c == '\\' && (l.peekAt(1) == '\'' || l.peekAt(1) == '\\'):
			b.WriteByte(l.peekAt(1))
			l.advance(2)

		default:
			b.WriteByte(c)
			l.advance(1)
		}
	}
}
