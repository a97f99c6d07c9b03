package model

import (
	"github.com/vslavik/bakefile/expr"
)

// BuildNode is a single node of a make-style build graph: commands to run,
// the inputs that trigger them and the outputs they create. Targets are
// higher-level than that and usually map to several nodes.
//
// The node's commands run when some output doesn't exist or any input is
// newer than the outputs.
type BuildNode struct {
	// Name is used in generated makefiles for phony nodes, i.e. nodes
	// without outputs. It is ignored otherwise.
	Name string

	// Inputs are filenames (as path expressions) or phony node names.
	Inputs []expr.Expr

	// Outputs are filenames the commands create. A node with no outputs
	// is phony.
	Outputs []expr.Expr

	// Commands to run when the node is out of date.
	Commands []expr.Expr

	pos expr.Pos
}

// NewBuildNode creates a build node. A phony node must have a name,
// a non-phony one must have outputs.
func NewBuildNode(name string, commands, inputs, outputs []expr.Expr, pos expr.Pos) *BuildNode {
	if name == "" && len(outputs) == 0 {
		panic("phony build node must have a name, non-phony must have outputs")
	}

	return &BuildNode{
		Name:     name,
		Inputs:   inputs,
		Outputs:  outputs,
		Commands: commands,
		pos:      pos,
	}
}

// IsPhony reports whether the node produces no files.
func (n *BuildNode) IsPhony() bool { return len(n.Outputs) == 0 }

// Position is where the code responsible for the node's creation lives,
// e.g. the associated source file entry.
func (n *BuildNode) Position() expr.Pos { return n.pos }

// BuildSubgraph is the collection of build nodes realizing one target.
type BuildSubgraph struct {
	// Main is the target's primary node, e.g. the link step producing its
	// executable.
	Main *BuildNode

	// Secondary holds the nodes the main one needs, e.g. object file
	// compilations. May be empty.
	Secondary []*BuildNode
}

// AllNodes returns the main node followed by the secondary ones.
func (g *BuildSubgraph) AllNodes() []*BuildNode {
	return append([]*BuildNode{g.Main}, g.Secondary...)
}
