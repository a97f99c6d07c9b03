package lang

import (
	"github.com/vslavik/bakefile/expr"
)

// targetKeywords are the statement keywords that declare a target of
// the given type.
var targetKeywords = map[string]bool{
	"program":         true,
	"library":         true,
	"shared-library":  true,
	"loadable-module": true,
	"external":        true,
	"action":          true,
}

// Parse parses source text into a parse tree. The file name is used in
// positions and error messages only; use [ParseFile] to read and parse
// with caching.
func Parse(file, src string) (*File, error) {
	lx := newLexer(file, src)
	toks, err := lx.tokens()
	if err != nil {
		return nil, err
	}

	p := &parser{file: file, src: src, toks: toks}
	stmts, err := p.statements(true)
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, p.errorf(p.cur().pos, "unexpected %s", p.cur().describe())
	}

	return &File{Name: file, Stmts: stmts}, nil
}

type parser struct {
	file string
	src  string
	toks []token
	i    int
}

func (p *parser) cur() token  { return p.toks[p.i] }
func (p *parser) peek() token { return p.toks[min(p.i+1, len(p.toks)-1)] }

func (p *parser) advance() token {
	t := p.toks[p.i]
	if p.i < len(p.toks)-1 {
		p.i++
	}

	return t
}

func (p *parser) errorf(pos expr.Pos, format string, args ...any) error {
	return newParseError(pos, p.src, format, args...)
}

func (p *parser) expect(kind tokenKind) (token, error) {
	if p.cur().kind != kind {
		return token{}, p.errorf(p.cur().pos, "expected %s, found %s",
			kind, p.cur().describe())
	}

	return p.advance(), nil
}

// statements parses a statement sequence: the whole file when top, a
// braced block's content otherwise.
func (p *parser) statements(top bool) ([]Node, error) {
	var out []Node
	for {
		switch p.cur().kind {
		case tokEOF:
			if !top {
				return nil, p.errorf(p.cur().pos, `expected "}"`)
			}

			return out, nil

		case tokRBrace:
			if top {
				return nil, p.errorf(p.cur().pos, `unexpected "}"`)
			}

			return out, nil
		}

		stmt, err := p.statement(top && len(out) == 0)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
}

func (p *parser) statement(first bool) (Node, error) {
	t := p.cur()
	if t.kind != tokWord {
		return nil, p.errorf(t.pos, "expected a statement, found %s", t.describe())
	}

	switch {
	case t.text == "srcdir":
		if !first {
			return nil, p.errorf(t.pos, "srcdir must be the first statement in the file")
		}

		return p.pathStatement(func(path string) Node {
			return &SrcdirNode{node{t.pos}, path}
		})

	case t.text == "import":
		return p.pathStatement(func(path string) Node {
			return &ImportNode{node{t.pos}, path}
		})

	case t.text == "submodule":
		return p.pathStatement(func(path string) Node {
			return &SubmoduleNode{node{t.pos}, path}
		})

	case t.text == "if":
		return p.ifStatement()

	case t.text == "template":
		return p.templateStatement()

	case t.text == "configuration":
		return p.configurationStatement()

	case t.text == "setting":
		return p.settingStatement()

	case t.text == "sources" || t.text == "headers":
		return p.filesStatement()

	case t.text == "plugin":
		return nil, p.errorf(t.pos, "plugin statements are not supported")

	case targetKeywords[t.text]:
		return p.targetStatement()
	}

	return p.assignStatement()
}

// pathStatement parses the "keyword path;" form shared by srcdir,
// import and submodule.
func (p *parser) pathStatement(build func(path string) Node) (Node, error) {
	p.advance()
	path, err := p.expect(tokWord)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemi); err != nil {
		return nil, err
	}

	return build(path.text), nil
}

func (p *parser) ifStatement() (Node, error) {
	kw := p.advance()
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	cond, err := p.condition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}

	var body []Node
	if p.cur().kind == tokLBrace {
		body, err = p.block()
		if err != nil {
			return nil, err
		}
	} else {
		stmt, err := p.statement(false)
		if err != nil {
			return nil, err
		}
		body = []Node{stmt}
	}

	return &IfNode{node{kw.pos}, cond, body}, nil
}

func (p *parser) targetStatement() (Node, error) {
	kw := p.advance()
	name, err := p.expect(tokWord)
	if err != nil {
		return nil, err
	}
	bases, err := p.baseList()
	if err != nil {
		return nil, err
	}
	body, err := p.blockOrSemi()
	if err != nil {
		return nil, err
	}

	return &TargetNode{node{kw.pos}, kw.text, name.text, bases, body}, nil
}

func (p *parser) templateStatement() (Node, error) {
	kw := p.advance()
	name, err := p.expect(tokWord)
	if err != nil {
		return nil, err
	}
	bases, err := p.baseList()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &TemplateNode{node{kw.pos}, name.text, bases, body}, nil
}

func (p *parser) configurationStatement() (Node, error) {
	kw := p.advance()
	name, err := p.expect(tokWord)
	if err != nil {
		return nil, err
	}

	base := ""
	if p.cur().kind == tokColon {
		p.advance()
		baseTok, err := p.expect(tokWord)
		if err != nil {
			return nil, err
		}
		base = baseTok.text
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ConfigurationNode{node{kw.pos}, name.text, base, body}, nil
}

func (p *parser) settingStatement() (Node, error) {
	kw := p.advance()
	name, err := p.expect(tokWord)
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &SettingNode{node{kw.pos}, name.text, body}, nil
}

// filesStatement parses "sources { file file ... }". Files are
// whitespace-separated values; the block may span any number of lines.
func (p *parser) filesStatement() (Node, error) {
	kw := p.advance()
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}

	var files []Node
	for p.cur().kind != tokRBrace {
		if p.cur().kind == tokEOF {
			return nil, p.errorf(p.cur().pos, `expected "}"`)
		}
		if p.cur().kind == tokSemi {
			p.advance()

			continue
		}
		file, err := p.valueItem()
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	p.advance()

	return &FilesListNode{node{kw.pos}, kw.text, files}, nil
}

func (p *parser) assignStatement() (Node, error) {
	name := p.advance()

	var appendOp bool
	switch p.cur().kind {
	case tokAssign:
		appendOp = false
	case tokAppend:
		appendOp = true
	default:
		return nil, p.errorf(p.cur().pos, `expected "=" or "+=" after %q, found %s`,
			name.text, p.cur().describe())
	}
	p.advance()

	value, err := p.value()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemi); err != nil {
		return nil, err
	}

	return &AssignNode{node{name.pos}, name.text, name.pos, value, appendOp}, nil
}

func (p *parser) baseList() ([]string, error) {
	if p.cur().kind != tokColon {
		return nil, nil
	}
	p.advance()

	var bases []string
	for {
		base, err := p.expect(tokWord)
		if err != nil {
			return nil, err
		}
		bases = append(bases, base.text)
		if p.cur().kind != tokComma {
			return bases, nil
		}
		p.advance()
	}
}

func (p *parser) block() ([]Node, error) {
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	stmts, err := p.statements(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return nil, err
	}

	return stmts, nil
}

func (p *parser) blockOrSemi() ([]Node, error) {
	if p.cur().kind == tokSemi {
		p.advance()

		return nil, nil
	}

	return p.block()
}

// atom is a value fragment together with its adjacency to the previous
// fragment.
type atom struct {
	n     Node
	glued bool
}

// value parses the right-hand side of an assignment, up to (not
// including) the terminating ";". A value may only span multiple lines
// inside parentheses.
func (p *parser) value() (Node, error) {
	start := p.cur().pos
	atoms, err := p.valueAtoms(start.Line)
	if err != nil {
		return nil, err
	}

	return groupAtoms(atoms, start), nil
}

func (p *parser) valueAtoms(line int) ([]atom, error) {
	var atoms []atom
	for {
		t := p.cur()
		switch t.kind {
		case tokWord:
			p.advance()
			if t.pos.Line != line {
				return nil, p.errorf(t.pos,
					`unterminated statement (missing ";"?)`)
			}
			atoms = append(atoms, atom{&LiteralNode{node{t.pos}, t.text}, t.glued})

		case tokRef:
			p.advance()
			if t.pos.Line != line {
				return nil, p.errorf(t.pos,
					`unterminated statement (missing ";"?)`)
			}
			atoms = append(atoms, atom{&ReferenceNode{node{t.pos}, t.text}, t.glued})

		case tokLParen:
			p.advance()
			group, err := p.parenGroup(t.pos)
			if err != nil {
				return nil, err
			}
			atoms = append(atoms, atom{group, t.glued})
			// A closing parenthesis resumes single-line mode on its own
			// line.
			line = p.cur().pos.Line

		default:
			return atoms, nil
		}
	}
}

// parenGroup parses a parenthesized value, which may span lines.
func (p *parser) parenGroup(pos expr.Pos) (Node, error) {
	var atoms []atom
	for {
		t := p.cur()
		switch t.kind {
		case tokRParen:
			p.advance()

			return groupAtoms(atoms, pos), nil

		case tokWord:
			p.advance()
			atoms = append(atoms, atom{&LiteralNode{node{t.pos}, t.text}, t.glued})

		case tokRef:
			p.advance()
			atoms = append(atoms, atom{&ReferenceNode{node{t.pos}, t.text}, t.glued})

		case tokLParen:
			p.advance()
			group, err := p.parenGroup(t.pos)
			if err != nil {
				return nil, err
			}
			atoms = append(atoms, atom{group, t.glued})

		default:
			return nil, p.errorf(t.pos, `expected ")", found %s`, t.describe())
		}
	}
}

// valueItem parses one whitespace-delimited value, as used in a files
// block: a run of glued fragments.
func (p *parser) valueItem() (Node, error) {
	var atoms []atom
	for {
		t := p.cur()
		var n Node
		switch t.kind {
		case tokWord:
			n = &LiteralNode{node{t.pos}, t.text}
		case tokRef:
			n = &ReferenceNode{node{t.pos}, t.text}
		default:
			if len(atoms) == 0 {
				return nil, p.errorf(t.pos, "expected a file name, found %s", t.describe())
			}

			return groupAtoms(atoms, atoms[0].n.Position()), nil
		}

		if len(atoms) > 0 && !t.glued {
			return groupAtoms(atoms, atoms[0].n.Position()), nil
		}
		p.advance()
		atoms = append(atoms, atom{n, t.glued})
	}
}

// groupAtoms combines value fragments: glued runs concatenate and
// whitespace-separated runs form a list. Zero atoms yield a null.
func groupAtoms(atoms []atom, pos expr.Pos) Node {
	if len(atoms) == 0 {
		return &NullNode{node{pos}}
	}

	var groups []Node
	var run []Node
	flush := func() {
		if len(run) == 0 {
			return
		}
		if len(run) == 1 {
			groups = append(groups, run[0])
		} else {
			groups = append(groups, &ConcatNode{node{run[0].Position()}, run})
		}
		run = nil
	}

	for _, a := range atoms {
		if !a.glued {
			flush()
		}
		run = append(run, a.n)
	}
	flush()

	if len(groups) == 1 {
		return groups[0]
	}

	return &ListNode{node{pos}, groups}
}

// condition parses a boolean expression, as found inside "if ( ... )".
// Precedence, loosest first: ||, &&, == and !=, unary !.
func (p *parser) condition() (Node, error) {
	return p.condOr()
}

func (p *parser) condOr() (Node, error) {
	left, err := p.condAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOr {
		op := p.advance()
		right, err := p.condAnd()
		if err != nil {
			return nil, err
		}
		left = &BoolOpNode{node{op.pos}, expr.OpOr, left, right}
	}

	return left, nil
}

func (p *parser) condAnd() (Node, error) {
	left, err := p.condCmp()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokAnd {
		op := p.advance()
		right, err := p.condCmp()
		if err != nil {
			return nil, err
		}
		left = &BoolOpNode{node{op.pos}, expr.OpAnd, left, right}
	}

	return left, nil
}

func (p *parser) condCmp() (Node, error) {
	left, err := p.condUnary()
	if err != nil {
		return nil, err
	}

	var op expr.BoolOp
	switch p.cur().kind {
	case tokEq:
		op = expr.OpEqual
	case tokNeq:
		op = expr.OpNotEqual
	default:
		return left, nil
	}
	opTok := p.advance()

	right, err := p.condUnary()
	if err != nil {
		return nil, err
	}

	return &BoolOpNode{node{opTok.pos}, op, left, right}, nil
}

func (p *parser) condUnary() (Node, error) {
	t := p.cur()
	switch t.kind {
	case tokNot:
		p.advance()
		operand, err := p.condUnary()
		if err != nil {
			return nil, err
		}

		return &NotNode{node{t.pos}, operand}, nil

	case tokLParen:
		p.advance()
		inner, err := p.condOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}

		return inner, nil
	}

	return p.condAtom()
}

// condAtom parses an operand of a comparison: a run of glued word and
// reference fragments.
func (p *parser) condAtom() (Node, error) {
	var atoms []atom
	for {
		t := p.cur()
		var n Node
		switch t.kind {
		case tokWord:
			n = &LiteralNode{node{t.pos}, t.text}
		case tokRef:
			n = &ReferenceNode{node{t.pos}, t.text}
		default:
			if len(atoms) == 0 {
				return nil, p.errorf(t.pos, "expected a value, found %s", t.describe())
			}

			return groupAtoms(atoms, atoms[0].n.Position()), nil
		}

		if len(atoms) > 0 && !t.glued {
			return groupAtoms(atoms, atoms[0].n.Position()), nil
		}
		p.advance()
		atoms = append(atoms, atom{n, t.glued})
	}
}
