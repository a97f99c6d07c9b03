// Package model holds the typed project model: the project with its
// modules, targets, source files and settings, the property registry
// describing which variables each of them may carry, and the build-graph
// types the generators consume.
//
// The model sits between the parser and the generators. The interpreter
// populates it from parsed input, the resolver rewrites its variables
// until only make-time conditionals remain, and each toolset receives
// its own finalized clone to turn into native build files.
package model
