// Package expr defines the expression tree that holds variable values and
// conditions, together with functions for evaluating, simplifying and
// formatting expressions.
//
// Values are kept in tree form until the last possible moment: an
// expression may reference user settings that only get their value when
// the generated makefile runs, so evaluation distinguishes between
// constant expressions (resolvable now) and residual ones (emitted
// symbolically by the output backends). Expression nodes are immutable;
// rewrites replace nodes instead of modifying them.
package expr

import (
	"fmt"
	"strings"
)

// Expr is a value expression, such as a variable's value or a condition.
//
// All implementations are pointer types defined in this package.
type Expr interface {
	fmt.Stringer

	// Position returns the location of the expression in the source tree.
	Position() Pos

	aExpr()
}

// Scope resolves variable references. It is implemented by model parts
// (project, module, target) which look up variables in themselves and
// their parents.
type Scope interface {
	// VariableValue returns the value of the named variable, consulting
	// parent scopes and property defaults as needed.
	VariableValue(name string) (Expr, error)

	// ResolveVariable returns the variable the name refers to. It returns
	// nil with no error when the name refers to a property that was not
	// explicitly set and takes its default value.
	ResolveVariable(name string) (Variable, error)
}

// Variable is the definition a Reference resolves to.
type Variable interface {
	// Value returns the variable's current value.
	Value() Expr

	// IsProperty reports whether the variable is backed by a property
	// definition rather than a plain user assignment.
	IsProperty() bool
}

// node is the base struct embedded in all expression nodes.
type node struct {
	pos Pos
}

func (n *node) Position() Pos { return n.pos }
func (n *node) aExpr()        {}

// Null is the empty, unset value.
type Null struct {
	node
}

// NewNull creates an empty value expression.
func NewNull(pos Pos) *Null {
	return &Null{node{pos}}
}

func (e *Null) String() string { return "null" }

// Literal is a constant string value.
type Literal struct {
	node
	Value string
}

// NewLiteral creates a literal expression holding the given value.
func NewLiteral(value string, pos Pos) *Literal {
	return &Literal{node{pos}, value}
}

func (e *Literal) String() string { return e.Value }

// BoolValue is a constant boolean value, i.e. true or false.
type BoolValue struct {
	node
	Value bool
}

// NewBoolValue creates a boolean literal expression.
func NewBoolValue(value bool, pos Pos) *BoolValue {
	return &BoolValue{node{pos}, value}
}

func (e *BoolValue) String() string {
	if e.Value {
		return "true"
	}

	return "false"
}

// List is a list of several values of the same type.
type List struct {
	node
	Items []Expr
}

// NewList creates a list expression with the given items.
func NewList(items []Expr, pos Pos) *List {
	return &List{node{pos}, items}
}

func (e *List) String() string {
	items := make([]string, len(e.Items))
	for i, item := range e.Items {
		items[i] = item.String()
	}

	return "[" + strings.Join(items, ", ") + "]"
}

// Concat is the concatenation of several expressions. It typically
// combines literals and references to express values such as
// "lib$(name).a".
type Concat struct {
	node
	Items []Expr
}

// NewConcat creates a concatenation of the given items.
// It panics when items is empty; an empty value is a Null.
func NewConcat(items []Expr, pos Pos) *Concat {
	if len(items) == 0 {
		panic("empty concatenation")
	}

	return &Concat{node{pos}, items}
}

func (e *Concat) String() string {
	var b strings.Builder
	for _, item := range e.Items {
		b.WriteString(item.String())
	}

	return b.String()
}

// Reference is a reference to a variable, looked up in the scope where
// the reference was written.
type Reference struct {
	node
	Name    string
	Context Scope
}

// NewReference creates a reference to the named variable in the given
// scope.
func NewReference(name string, context Scope, pos Pos) *Reference {
	return &Reference{node{pos}, name, context}
}

// Value returns the value of the referenced variable.
func (e *Reference) Value() (Expr, error) {
	value, err := e.Context.VariableValue(e.Name)
	if err != nil {
		return nil, WithPos(err, e.pos)
	}

	return value, nil
}

// Variable returns the variable this reference points to. The result may
// be nil when the reference is to a property that was not explicitly set
// and uses its default value. Prefer [Reference.Value] whenever possible.
func (e *Reference) Variable() (Variable, error) {
	v, err := e.Context.ResolveVariable(e.Name)
	if err != nil {
		return nil, WithPos(err, e.pos)
	}

	return v, nil
}

func (e *Reference) String() string { return "$(" + e.Name + ")" }

// Placeholder stands in for a value that is not known until the model is
// split into per-toolset copies, or not until the generated makefile
// runs. It is used for settings such as "toolset" and "config" to allow
// partial evaluation common to all of their values.
type Placeholder struct {
	node
	Name string
}

// NewPlaceholder creates a placeholder for the named setting.
func NewPlaceholder(name string, pos Pos) *Placeholder {
	return &Placeholder{node{pos}, name}
}

func (e *Placeholder) String() string { return "${" + e.Name + "}" }

// Anchor is the point a Path is relative to.
type Anchor string

const (
	// AnchorSrcdir anchors a path to the directory of the input file it
	// was written in (unless overridden by a srcdir statement).
	AnchorSrcdir Anchor = "@srcdir"

	// AnchorTopSrcdir anchors a path to the top source directory, i.e.
	// where the toplevel input file is.
	AnchorTopSrcdir Anchor = "@top_srcdir"

	// AnchorBuilddir anchors a path to the build directory. Transient
	// files such as objects must use this anchor or AnchorTopBuilddir.
	AnchorBuilddir Anchor = "@builddir"

	// AnchorTopBuilddir anchors a path to the top build directory. Only
	// used by makefile backends where a sub-makefile's build directory
	// differs from the top one.
	AnchorTopBuilddir Anchor = "@top_builddir"
)

// Anchors lists all recognized path anchors.
func Anchors() []Anchor {
	return []Anchor{AnchorSrcdir, AnchorTopSrcdir, AnchorBuilddir, AnchorTopBuilddir}
}

// Path holds a file or directory name. Its components are expressions,
// so parts of a path may be conditional or reference variables.
type Path struct {
	node
	Components []Expr
	Anchor     Anchor

	// AnchorFile is the input file the path was written in. It gives
	// AnchorSrcdir its meaning.
	AnchorFile string
}

// NewPath creates a path from components relative to the given anchor.
// When anchorFile is empty, the file from pos is used.
func NewPath(components []Expr, anchor Anchor, anchorFile string, pos Pos) *Path {
	if anchorFile == "" {
		anchorFile = pos.File
	}

	return &Path{node{pos}, components, anchor, anchorFile}
}

func (e *Path) String() string {
	comps := make([]string, len(e.Components))
	for i, c := range e.Components {
		comps[i] = c.String()
	}

	return string(e.Anchor) + "/" + strings.Join(comps, "/")
}

// IsExternalAbsolute reports whether the path is an absolute path
// supplied externally when the generated makefile is invoked, i.e. its
// first component is a setting placeholder.
func (e *Path) IsExternalAbsolute() bool {
	if e.Anchor == AnchorBuilddir || e.Anchor == AnchorTopBuilddir || len(e.Components) == 0 {
		return false
	}

	_, ok := e.Components[0].(*Placeholder)

	return ok
}

// BoolOp is a boolean operator.
type BoolOp string

const (
	OpAnd      BoolOp = "&&"
	OpOr       BoolOp = "||"
	OpEqual    BoolOp = "=="
	OpNotEqual BoolOp = "!="

	// OpNot is unary and has no right operand.
	OpNot BoolOp = "!"
)

// Bool is a boolean expression combining one or two operands.
type Bool struct {
	node
	Op    BoolOp
	Left  Expr
	Right Expr // nil for OpNot
}

// NewBool creates a binary boolean expression.
func NewBool(op BoolOp, left, right Expr, pos Pos) *Bool {
	return &Bool{node{pos}, op, left, right}
}

// NewNot creates a negation of the given operand.
func NewNot(operand Expr, pos Pos) *Bool {
	return &Bool{node{pos}, OpNot, operand, nil}
}

// HasBoolOperands reports whether the operator requires boolean operands
// (i.e. not, and, or, as opposed to the comparison operators).
func (e *Bool) HasBoolOperands() bool {
	return e.Op == OpAnd || e.Op == OpOr || e.Op == OpNot
}

func (e *Bool) String() string {
	if e.Op == OpNot {
		return "!" + e.Left.String()
	}

	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// If is a conditional expression: its value is Then when Cond holds and
// Else otherwise.
type If struct {
	node
	Cond Expr
	Then Expr
	Else Expr
}

// NewIf creates a conditional expression.
func NewIf(cond, then, els Expr, pos Pos) *If {
	return &If{node{pos}, cond, then, els}
}

// Value returns the branch the condition selects. It fails with a
// non-const error when the condition cannot be evaluated now.
func (e *If) Value() (Expr, error) {
	v, err := AsConst(e.Cond)
	if err != nil {
		return nil, WithPos(err, e.pos)
	}

	if constTruthy(v) {
		return e.Then, nil
	}

	return e.Else, nil
}

func (e *If) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", e.Cond, e.Then, e.Else)
}
