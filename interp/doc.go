// Package interp turns parse trees into a finished project model.
//
// The work happens in two stages. A builder walks the statements of
// every input file and constructs model parts from them, doing only the
// minimal processing needed for a valid, if unoptimized, model. The
// [Interpreter] then runs a series of resolution passes over the model:
// type normalization and validation, path anchor rewriting,
// simplification, and finally splitting into per-toolset copies handed
// to the generators.
package interp
