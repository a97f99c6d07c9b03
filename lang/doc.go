// Package lang parses bakefile input into a parse tree.
//
// The parse tree is a thin syntactic layer: nodes carry structure and
// source positions and nothing else. The interp package walks it to
// build the project model and the expressions attached to it.
//
// # Grammar
//
// Informal EBNF:
//
//	File        → ['srcdir' Word ';'] Stmt* EOF
//	Stmt        → Assign | FilesList | If | Target | Template
//	            | Configuration | Setting | 'submodule' Word ';'
//	            | 'import' Word ';'
//	Assign      → Word ('=' | '+=') Value ';'
//	FilesList   → ('sources' | 'headers') '{' Value* '}'
//	If          → 'if' '(' Cond ')' (Stmt | '{' Stmt* '}')
//	Target      → TargetType Word [':' Word (',' Word)*] ('{' Stmt* '}' | ';')
//	TargetType  → 'program' | 'library' | 'shared-library'
//	            | 'loadable-module' | 'external' | 'action'
//	Template    → 'template' Word [':' Word (',' Word)*] '{' Stmt* '}'
//	Configuration → 'configuration' Word [':' Word] '{' Stmt* '}'
//	Setting     → 'setting' Word '{' Stmt* '}'
//	Cond        → Or; Or → And ('||' And)*; And → Cmp ('&&' Cmp)*
//	Cmp         → Unary [('==' | '!=') Unary]; Unary → '!' Unary | Atom
//	Value       → <fragments up to ';'>
//
// Value fragments are bare words, quoted strings and $(var) references.
// Adjacency is significant: fragments written with no whitespace in
// between concatenate into a single value, whitespace-separated
// fragments form a list, and quoting does not break adjacency, so
// lib$(name).a is one value and "a b" c is a two-element list. A value
// may only span multiple lines inside parentheses.
//
// Comments use // and /* */. Double-quoted strings interpolate $(var)
// references; single-quoted strings are literal.
package lang
