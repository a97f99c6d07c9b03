package lang

import (
	"strings"
	"testing"
)

// tok is a compact expectation for one token.
type tok struct {
	kind  tokenKind
	text  string
	glued bool
}

func lex(t *testing.T, src string) []token {
	t.Helper()
	toks, err := newLexer("test.bkl", src).tokens()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	if len(toks) == 0 || toks[len(toks)-1].kind != tokEOF {
		t.Fatalf("token stream not terminated with EOF: %v", toks)
	}

	return toks[:len(toks)-1]
}

func checkTokens(t *testing.T, got []token, want []tok) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i, w := range want {
		g := got[i]
		if g.kind != w.kind || g.text != w.text || g.glued != w.glued {
			t.Errorf("token %d: expected {%v %q glued=%v}, got {%v %q glued=%v}",
				i, w.kind, w.text, w.glued, g.kind, g.text, g.glued)
		}
	}
}

func TestLexer_Assignment(t *testing.T) {
	got := lex(t, "SOURCES = a.c b.c;")
	checkTokens(t, got, []tok{
		{tokWord, "SOURCES", false},
		{tokAssign, "", false},
		{tokWord, "a.c", false},
		{tokWord, "b.c", false},
		{tokSemi, "", true},
	})
}

func TestLexer_Adjacency(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []tok
	}{
		{
			name:  "reference glues to neighbors",
			input: "lib$(name).a",
			want: []tok{
				{tokWord, "lib", false},
				{tokRef, "name", true},
				{tokWord, ".a", true},
			},
		},
		{
			name:  "quotes do not break adjacency",
			input: `a"b c"d`,
			want: []tok{
				{tokWord, "a", false},
				{tokWord, "b c", true},
				{tokWord, "d", true},
			},
		},
		{
			name:  "interpolated string fragments",
			input: `"x$(v)y"`,
			want: []tok{
				{tokWord, "x", false},
				{tokRef, "v", true},
				{tokWord, "y", true},
			},
		},
		{
			name:  "whitespace separates",
			input: "a $(v)",
			want: []tok{
				{tokWord, "a", false},
				{tokRef, "v", false},
			},
		},
		{
			name:  "empty string is an empty word",
			input: `X = "";`,
			want: []tok{
				{tokWord, "X", false},
				{tokAssign, "", false},
				{tokWord, "", false},
				{tokSemi, "", true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkTokens(t, lex(t, tt.input), tt.want)
		})
	}
}

func TestLexer_Operators(t *testing.T) {
	got := lex(t, "if ( !($(a) == x && $(b) != y) || $(c) ) {}")
	want := []tok{
		{tokWord, "if", false},
		{tokLParen, "", false},
		{tokNot, "", false},
		{tokLParen, "", true},
		{tokRef, "a", true},
		{tokEq, "", false},
		{tokWord, "x", false},
		{tokAnd, "", false},
		{tokRef, "b", false},
		{tokNeq, "", false},
		{tokWord, "y", false},
		{tokRParen, "", true},
		{tokOr, "", false},
		{tokRef, "c", false},
		{tokRParen, "", false},
		{tokLBrace, "", false},
		{tokRBrace, "", true},
	}
	checkTokens(t, got, want)
}

func TestLexer_Comments(t *testing.T) {
	got := lex(t, "a // trailing comment\nb /* inline */ c")
	checkTokens(t, got, []tok{
		{tokWord, "a", false},
		{tokWord, "b", false},
		{tokWord, "c", false},
	})
}

func TestLexer_CommentStopsWord(t *testing.T) {
	// "//" would be swallowed into a path word without the special case.
	got := lex(t, "src/main.c// comment")
	checkTokens(t, got, []tok{
		{tokWord, "src/main.c", false},
	})
}

func TestLexer_SingleQuoted(t *testing.T) {
	got := lex(t, `'$(not) a ref' 'it\'s'`)
	checkTokens(t, got, []tok{
		{tokWord, "$(not) a ref", false},
		{tokWord, "it's", false},
	})
}

func TestLexer_StringEscapes(t *testing.T) {
	got := lex(t, `"a\"b" "c\\d" "e\$(f)"`)
	checkTokens(t, got, []tok{
		{tokWord, `a"b`, false},
		{tokWord, `c\d`, false},
		{tokWord, "e$(f)", false},
	})
}

func TestLexer_Positions(t *testing.T) {
	toks := lex(t, "a = x;\nbb = y;")
	if toks[0].pos.Line != 1 || toks[0].pos.Col != 1 {
		t.Errorf("expected 1:1 for first token, got %v", toks[0].pos)
	}
	// "bb" starts the second line.
	if toks[4].pos.Line != 2 || toks[4].pos.Col != 1 {
		t.Errorf("expected 2:1 for token %q, got %v", toks[4].text, toks[4].pos)
	}
	// "y" sits at column 6 of line 2.
	if toks[6].pos.Line != 2 || toks[6].pos.Col != 6 {
		t.Errorf("expected 2:6 for token %q, got %v", toks[6].text, toks[6].pos)
	}
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare dollar", "X = $name;", `"$" must be followed by "(name)"`},
		{"empty reference", "X = $();", "empty variable reference"},
		{"unterminated reference", "X = $(name;", "unterminated variable reference"},
		{"unterminated string", `X = "abc;`, "unterminated string"},
		{"newline in string", "X = \"abc\ndef\";", "unterminated string"},
		{"unterminated comment", "X = a; /* forever", "unterminated comment"},
		{"stray character", "X = a%b;", "unexpected character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLexer("test.bkl", tt.input).tokens()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %q", tt.want, err)
			}
		})
	}
}
