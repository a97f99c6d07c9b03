package lang

import "github.com/vslavik/bakefile/expr"

// Node is an element of the parse tree. Nodes are a thin syntactic
// layer: they carry no semantics beyond structure and position, and the
// interpreter turns them into model objects and expressions.
type Node interface {
	// Position returns the location of the node in the input file.
	Position() expr.Pos
}

type node struct {
	pos expr.Pos
}

func (n *node) Position() expr.Pos { return n.pos }

// File is the parse tree of one input file.
type File struct {
	// Name is the path of the file as given to the parser.
	Name string

	Stmts []Node
}

// LiteralNode is a bare word or quoted string fragment.
type LiteralNode struct {
	node
	Text string
}

// ReferenceNode is a $(name) variable reference.
type ReferenceNode struct {
	node
	Var string
}

// NullNode is an explicitly empty value, i.e. "VAR = ;".
type NullNode struct {
	node
}

// ConcatNode is a run of value fragments written without whitespace
// between them, e.g. lib$(name).a.
type ConcatNode struct {
	node
	Items []Node
}

// ListNode is a whitespace-separated sequence of values.
type ListNode struct {
	node
	Items []Node
}

// NotNode negates a condition.
type NotNode struct {
	node
	Operand Node
}

// BoolOpNode is a binary boolean operation in a condition.
type BoolOpNode struct {
	node
	Op    expr.BoolOp
	Left  Node
	Right Node
}

// AssignNode sets or appends to a variable: "VAR = value;" or
// "VAR += value;".
type AssignNode struct {
	node
	Var    string
	VarPos expr.Pos
	Value  Node
	Append bool
}

// FilesListNode declares source or header files of a target:
// "sources { foo.c bar.cpp }".
type FilesListNode struct {
	node
	Kind  string // "sources" or "headers"
	Files []Node
}

// IfNode guards statements with a condition: "if ( cond ) { ... }".
type IfNode struct {
	node
	Cond Node
	Body []Node
}

// TargetNode declares a target: "program hello : tmpl { ... }".
type TargetNode struct {
	node
	Type  string
	Name  string
	Bases []string
	Body  []Node
}

// TemplateNode declares a reusable statement block targets can derive
// from.
type TemplateNode struct {
	node
	Name  string
	Bases []string
	Body  []Node
}

// ConfigurationNode declares a build configuration deriving from a base
// configuration.
type ConfigurationNode struct {
	node
	Name string
	Base string
	Body []Node
}

// SettingNode declares a user-overridable setting:
// "setting NAME { help ...; default ...; }".
type SettingNode struct {
	node
	Name string
	Body []Node
}

// SubmoduleNode includes another file as a child module.
type SubmoduleNode struct {
	node
	Path string
}

// ImportNode splices another file into the current module.
type ImportNode struct {
	node
	Path string
}

// SrcdirNode overrides the directory @srcdir paths in the file are
// relative to. It must precede all other statements.
type SrcdirNode struct {
	node
	Path string
}
