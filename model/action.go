package model

import (
	"github.com/vslavik/bakefile/expr"
)

// TypeAction is the target type running arbitrary commands: packaging,
// installing, running tests and other tasks that don't fit the model of
// compiling files. Only makefile-based toolsets support it; Visual
// Studio projects can use pre-build-commands and post-build-commands
// instead.
var TypeAction = &ActionType{}

func init() {
	RegisterTargetType(TypeAction)
}

// ActionType implements the action target type. Without outputs the
// action becomes a phony make target named after the target's id; with
// outputs, other targets depend on those files instead and the clean
// target removes them.
type ActionType struct{}

func (t *ActionType) Name() string { return "action" }

func (t *ActionType) Properties() []*Property {
	return []*Property{
		{
			Name:    "commands",
			Type:    NewListType(TypeString),
			Default: []string{},
		},
		{
			Name:    "inputs",
			Type:    NewListType(TypePath),
			Default: expr.NewNull(expr.Pos{}),
		},
		{
			Name:    "outputs",
			Type:    NewListType(TypePath),
			Default: expr.NewNull(expr.Pos{}),
		},
	}
}

func (t *ActionType) BuildSubgraph(toolset Toolset, target *Target) (*BuildSubgraph, error) {
	commandsVar, err := target.VariableValue("commands")
	if err != nil {
		return nil, err
	}
	// Prefix every line with @ so that make doesn't echo the commands.
	pos := commandsVar.Position()
	commands, err := expr.AddPrefix(expr.NewLiteral("@", pos), commandsVar)
	if err != nil {
		return nil, err
	}
	inputsVar, err := target.VariableValue("inputs")
	if err != nil {
		return nil, err
	}
	outputsVar, err := target.VariableValue("outputs")
	if err != nil {
		return nil, err
	}

	node := NewBuildNode(target.Name(), flattenList(commands),
		flattenList(inputsVar), flattenList(outputsVar), pos)

	return &BuildSubgraph{Main: node}, nil
}
