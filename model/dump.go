package model

import (
	"fmt"
	"strings"
)

// DumpProject renders the project in a stable human-readable form:
// settings, variables and modules with their targets and file lists. The
// test suite asserts resolution semantics against this format, so keep
// it append-only.
func DumpProject(project *Project) string {
	var sb strings.Builder
	for _, s := range project.Settings() {
		dumpSetting(&sb, s)
	}
	if len(project.Variables()) > 0 {
		sb.WriteString("variables {\n")
		sb.WriteString(indent(dumpVars(project)))
		sb.WriteString("}\n")
	}
	for _, mod := range project.Modules() {
		dumpModule(&sb, mod)
	}

	return strings.TrimSpace(sb.String())
}

// FullyQualifiedName names a part by its path in the model, e.g.
// "main::submodule::mylibrary". The project itself has no name.
func FullyQualifiedName(p Part) string {
	if _, ok := p.(*Project); ok {
		return ""
	}
	parent := ""
	if p.Parent() != nil {
		parent = FullyQualifiedName(p.Parent())
	}
	if parent == "" {
		return p.Name()
	}

	return parent + "::" + p.Name()
}

func dumpModule(sb *strings.Builder, module *Module) {
	if len(module.Project().Modules()) > 1 {
		fmt.Fprintf(sb, "module %s {\n", FullyQualifiedName(module))
	} else {
		sb.WriteString("module {\n")
	}

	if submodules := module.Submodules(); len(submodules) > 0 {
		sb.WriteString("  submodules {\n")
		for _, s := range submodules {
			// Unix filename syntax even on Windows, the dumps are
			// compared against golden files.
			fmt.Fprintf(sb, "    %s\n", strings.ReplaceAll(s.SourceFilePath(), "\\", "/"))
		}
		sb.WriteString("  }\n")
	}

	sb.WriteString("  variables {\n")
	sb.WriteString(indent(dumpVars(module)))
	sb.WriteString("  }\n")

	sb.WriteString("  targets {\n")
	for _, t := range module.Targets() {
		sb.WriteString(indent(indent(dumpTarget(t))))
	}
	sb.WriteString("  }\n}\n\n")
}

func dumpTarget(target *Target) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s {\n", target.Type().Name(), target.Name())
	sb.WriteString(dumpVars(target))

	var files strings.Builder
	if len(target.Sources()) > 0 {
		files.WriteString("sources {\n")
		files.WriteString(indent(dumpSources(target.Sources())))
		files.WriteString("\n}\n")
	}
	if len(target.Headers()) > 0 {
		files.WriteString("headers {\n")
		files.WriteString(indent(dumpSources(target.Headers())))
		files.WriteString("\n}\n")
	}
	if files.Len() > 0 {
		sb.WriteString(indent(files.String()))
	}
	sb.WriteString("}")

	return sb.String()
}

func dumpSources(files []*SourceFile) string {
	lines := make([]string, len(files))
	for i, f := range files {
		lines[i] = dumpSource(f)
	}

	return strings.Join(lines, "\n")
}

func dumpSource(source *SourceFile) string {
	out := source.String()
	var vars []string
	for _, v := range source.Variables() {
		if v.Name() != "_filename" {
			vars = append(vars, dumpVariable(v))
		}
	}
	if len(vars) > 0 {
		out += "\t{ " + strings.Join(vars, "; ") + " }"
	}

	return out
}

func dumpSetting(sb *strings.Builder, setting *Setting) {
	fmt.Fprintf(sb, "setting %s {\n", setting.Name())
	sb.WriteString(dumpVars(setting))
	sb.WriteString("}\n")
}

func dumpVars(p Part) string {
	var sb strings.Builder
	for _, v := range p.Variables() {
		fmt.Fprintf(&sb, "  %s\n", dumpVariable(v))
	}

	return sb.String()
}

func dumpVariable(v *Variable) string {
	return fmt.Sprintf("%s = %s", v.Name(), v.Value())
}

// indent shifts every line right by two spaces, dropping empty lines.
func indent(text string) string {
	var sb strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			sb.WriteString("  ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
