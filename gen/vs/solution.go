package vs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/gen"
	"github.com/vslavik/bakefile/model"
)

// SolutionProject describes one project included in a solution: either a
// generated .vcxproj or an external project pulled in as-is.
type SolutionProject struct {
	// Version is the Visual Studio version the project file is written
	// for, 0 when it is version-agnostic.
	Version int

	// Name is the project name shown in the IDE. For generated projects
	// it equals the target id.
	Name string

	// GUID identifies the project, uppercase and without braces.
	GUID string

	// Kind is the project kind GUID used in the solution's Project block.
	Kind string

	// File is the project file's path, anchored at the source tree root.
	File *expr.Path

	// Deps lists the ids of the targets the project depends on.
	Deps []string

	// Configurations the project file defines. An empty list means the
	// project builds in any configuration.
	Configurations []*model.Configuration

	// DisabledConfigs holds the project's "Config|Platform" pairs that
	// must not build from the solution, e.g. because the target's
	// condition excludes them.
	DisabledConfigs map[string]bool

	// Platforms the project file defines, e.g. Win32 or x64.
	Platforms []string

	Pos expr.Pos
}

// Solution aggregates the projects of one module. Solutions mirror the
// module hierarchy: a parent solution lists the projects of all its
// descendants too, grouped into solution folders, so building the
// toplevel solution builds everything.
type Solution struct {
	toolset  *Toolset
	module   *model.Module
	name     string
	guid     string
	file     *expr.Path
	generate bool

	parent   *Solution
	children []*Solution
	projects []*SolutionProject
}

func newSolution(t *Toolset, module *model.Module) (*Solution, error) {
	fileValue, err := module.VariableValue(t.solutionFileProperty())
	if err != nil {
		return nil, err
	}
	file, ok := fileValue.(*expr.Path)
	if !ok {
		return nil, expr.Errorf(fileValue.Position(),
			"%s must be a constant path (%s)", t.solutionFileProperty(), fileValue)
	}
	genValue, err := module.VariableValue(t.generateSolutionProperty())
	if err != nil {
		return nil, err
	}
	generate, err := expr.Truthy(genValue)
	if err != nil {
		return nil, err
	}

	top := module.Project().TopModule()

	return &Solution{
		toolset:  t,
		module:   module,
		name:     module.Name(),
		guid:     newGUID(namespaceSlnGroup, top.Name(), module.SourceFilePath()),
		file:     file,
		generate: generate,
	}, nil
}

// AddProject adds a project of the solution's own module.
func (s *Solution) AddProject(p *SolutionProject) {
	s.projects = append(s.projects, p)
}

func (s *Solution) addChild(child *Solution) {
	child.parent = s
	s.children = append(s.children, child)
}

// slnFolder is one solution folder in the IDE's solution tree.
type slnFolder struct {
	name     string
	guid     string
	projects []*SolutionProject
	folders  []*slnFolder
}

// tree returns the solution's own projects and the folders holding the
// descendants' projects. A folder that would hold a single item isn't
// worth the nesting; its content hoists into the parent level.
func (s *Solution) tree() (projects []*SolutionProject, folders []*slnFolder) {
	projects = append(projects, s.projects...)
	for _, child := range s.children {
		cp, cf := child.tree()
		if len(cp)+len(cf) <= 1 {
			projects = append(projects, cp...)
			folders = append(folders, cf...)

			continue
		}
		folders = append(folders, &slnFolder{
			name:     child.name,
			guid:     child.guid,
			projects: cp,
			folders:  cf,
		})
	}

	return projects, folders
}

// allProjects returns the solution's projects and those of all its
// descendants.
func (s *Solution) allProjects() []*SolutionProject {
	out := append([]*SolutionProject{}, s.projects...)
	for _, child := range s.children {
		out = append(out, child.allProjects()...)
	}

	return out
}

// additionalDeps finds projects from elsewhere in the module tree that
// projects in this solution depend on. Visual Studio can only express a
// dependency on a project that is part of the solution, so the closure
// of such projects has to be pulled in.
func (s *Solution) additionalDeps() []*SolutionProject {
	top := s
	for top.parent != nil {
		top = top.parent
	}
	pool := make(map[string]*SolutionProject)
	for _, p := range top.allProjects() {
		pool[p.Name] = p
	}

	included := make(map[string]bool)
	var queue []string
	for _, p := range s.allProjects() {
		included[p.Name] = true
		queue = append(queue, p.Deps...)
	}

	var out []*SolutionProject
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if included[id] {
			continue
		}
		included[id] = true
		p, ok := pool[id]
		if !ok {
			continue
		}
		out = append(out, p)
		queue = append(queue, p.Deps...)
	}

	return out
}

// Write renders the solution file, unless solution generation is turned
// off for the module or there is nothing to put into it.
func (s *Solution) Write() error {
	projects, folders := s.tree()
	if !s.generate || (len(projects) == 0 && len(folders) == 0) {
		return nil
	}

	extra := s.additionalDeps()
	if len(extra) > 0 {
		folders = append(folders, &slnFolder{
			name:     "Additional Dependencies",
			guid:     newGUID(namespaceInternal, s.name, "Additional Dependencies"),
			projects: extra,
		})
	}

	all := append(append([]*SolutionProject{}, projects...), extra...)
	for _, f := range folders {
		all = append(all, collectFolderProjects(f)...)
	}
	all = dedupeProjects(all)

	byName := make(map[string]*SolutionProject)
	for _, p := range all {
		byName[p.Name] = p
	}

	rel, err := s.file.NativePathForOutput("")
	if err != nil {
		return err
	}
	out := gen.Current()
	output := out.Path(rel)
	paths, err := expr.NewPathAnchors("\\", output, "", s.module.Project().TopModule().Srcdir())
	if err != nil {
		return expr.WithPos(err, s.module.Position())
	}
	fmtr := vsExprFormatter(paths)

	f, err := out.NewFile(output, gen.EOLWindows,
		fmt.Sprintf("%s (%s)", s.toolset.name, s.module))
	if err != nil {
		return err
	}
	f.AddBOM = true

	t := s.toolset
	f.WriteString("\n")
	f.WriteString(fmt.Sprintf("Microsoft Visual Studio Solution File, Format Version %s\n",
		t.slnFormatVersion))
	f.WriteString(fmt.Sprintf("# Visual Studio %s\n", t.slnHumanVersion))
	if t.visualStudioVersion != "" {
		f.WriteString(fmt.Sprintf("VisualStudioVersion = %s\n", t.visualStudioVersion))
		f.WriteString(fmt.Sprintf("MinimumVisualStudioVersion = %s\n",
			t.minimumVisualStudioVersion))
	}

	for _, p := range all {
		path, err := fmtr.Format(p.File)
		if err != nil {
			return err
		}
		f.WriteString(fmt.Sprintf("Project(\"%s\") = \"%s\", \"%s\", \"%s\"\n",
			braced(p.Kind), p.Name, path, braced(p.GUID)))
		var deps []*SolutionProject
		for _, id := range p.Deps {
			if dep, ok := byName[id]; ok {
				deps = append(deps, dep)
			}
		}
		if len(deps) > 0 {
			f.WriteString("\tProjectSection(ProjectDependencies) = postProject\n")
			for _, dep := range deps {
				f.WriteString(fmt.Sprintf("\t\t%s = %s\n", braced(dep.GUID), braced(dep.GUID)))
			}
			f.WriteString("\tEndProjectSection\n")
		}
		f.WriteString("EndProject\n")
	}

	writeFolderBlocks(f, folders)

	configs := solutionConfigs(all)
	platforms := solutionPlatforms(all)

	f.WriteString("Global\n")

	f.WriteString("\tGlobalSection(SolutionConfigurationPlatforms) = preSolution\n")
	for _, cfg := range configs {
		for _, plat := range platforms {
			f.WriteString(fmt.Sprintf("\t\t%s|%s = %s|%s\n",
				cfg.Name(), plat, cfg.Name(), plat))
		}
	}
	f.WriteString("\tEndGlobalSection\n")

	f.WriteString("\tGlobalSection(ProjectConfigurationPlatforms) = postSolution\n")
	for _, p := range all {
		for _, cfg := range configs {
			prjCfg := s.matchingProjectConfig(p, cfg)
			for _, plat := range platforms {
				prjPlat, buildable := matchingProjectPlatform(p, plat)
				slnName := fmt.Sprintf("%s|%s", cfg.Name(), plat)
				prjName := fmt.Sprintf("%s|%s", prjCfg.Name(), prjPlat)
				f.WriteString(fmt.Sprintf("\t\t%s.%s.ActiveCfg = %s\n",
					braced(p.GUID), slnName, prjName))
				if buildable && !p.DisabledConfigs[prjName] {
					f.WriteString(fmt.Sprintf("\t\t%s.%s.Build.0 = %s\n",
						braced(p.GUID), slnName, prjName))
				}
			}
		}
	}
	f.WriteString("\tEndGlobalSection\n")

	f.WriteString("\tGlobalSection(SolutionProperties) = preSolution\n")
	f.WriteString("\t\tHideSolutionNode = FALSE\n")
	f.WriteString("\tEndGlobalSection\n")

	if len(folders) > 0 {
		f.WriteString("\tGlobalSection(NestedProjects) = preSolution\n")
		writeNesting(f, folders)
		f.WriteString("\tEndGlobalSection\n")
	}

	f.WriteString("EndGlobal\n")

	return f.Commit()
}

func collectFolderProjects(folder *slnFolder) []*SolutionProject {
	out := append([]*SolutionProject{}, folder.projects...)
	for _, sub := range folder.folders {
		out = append(out, collectFolderProjects(sub)...)
	}

	return out
}

func dedupeProjects(projects []*SolutionProject) []*SolutionProject {
	seen := make(map[*SolutionProject]bool)
	out := projects[:0]
	for _, p := range projects {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}

	return out
}

func writeFolderBlocks(f *gen.File, folders []*slnFolder) {
	for _, folder := range folders {
		f.WriteString(fmt.Sprintf("Project(\"%s\") = \"%s\", \"%s\", \"%s\"\n",
			braced(kindSolutionFolder), folder.name, folder.name, braced(folder.guid)))
		f.WriteString("EndProject\n")
		writeFolderBlocks(f, folder.folders)
	}
}

func writeNesting(f *gen.File, folders []*slnFolder) {
	for _, folder := range folders {
		for _, p := range folder.projects {
			f.WriteString(fmt.Sprintf("\t\t%s = %s\n", braced(p.GUID), braced(folder.guid)))
		}
		for _, sub := range folder.folders {
			f.WriteString(fmt.Sprintf("\t\t%s = %s\n", braced(sub.guid), braced(folder.guid)))
		}
		writeNesting(f, folder.folders)
	}
}

// solutionConfigs is the union of the projects' configurations, sorted
// the way Visual Studio sorts them, i.e. case-insensitively.
func solutionConfigs(projects []*SolutionProject) []*model.Configuration {
	var out []*model.Configuration
	seen := make(map[string]bool)
	for _, p := range projects {
		for _, cfg := range p.Configurations {
			if seen[cfg.Name()] {
				continue
			}
			seen[cfg.Name()] = true
			out = append(out, cfg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name()) < strings.ToLower(out[j].Name())
	})

	return out
}

// solutionPlatforms is the union of the projects' platforms. "Any CPU"
// only survives when no native project is present; native projects can't
// build for it and the pseudo-platform would just duplicate entries.
func solutionPlatforms(projects []*SolutionProject) []string {
	var out []string
	seen := make(map[string]bool)
	hasNative := false
	for _, p := range projects {
		if p.Kind == kindProjectC {
			hasNative = true
		}
		for _, plat := range p.Platforms {
			if seen[plat] {
				continue
			}
			seen[plat] = true
			out = append(out, plat)
		}
	}
	if hasNative && len(out) > 1 {
		filtered := out[:0]
		for _, plat := range out {
			if plat != "Any CPU" {
				filtered = append(filtered, plat)
			}
		}
		out = filtered
	}
	if len(out) == 0 {
		out = []string{"Win32"}
	}

	return out
}

// matchingProjectConfig picks the project configuration to activate for
// a solution configuration the project doesn't necessarily have,
// preferring the closest relative in the derivation chain.
func (s *Solution) matchingProjectConfig(p *SolutionProject, slnCfg *model.Configuration) *model.Configuration {
	if len(p.Configurations) == 0 {
		return slnCfg
	}
	for _, cfg := range p.Configurations {
		if cfg.Name() == slnCfg.Name() {
			return cfg
		}
	}

	// The nearest configuration derived from the solution one.
	var best *model.Configuration
	bestDegree := 0
	ambiguous := false
	for _, cfg := range p.Configurations {
		deg := cfg.DerivedFrom(slnCfg)
		if deg == 0 {
			continue
		}
		switch {
		case best == nil || deg < bestDegree:
			best, bestDegree, ambiguous = cfg, deg, false
		case deg == bestDegree:
			ambiguous = true
		}
	}
	if best != nil {
		if ambiguous {
			expr.Warn(expr.WarnVSAmbiguousSolutionConfig, p.Pos,
				"solution configuration %q is ambiguous for project %q, using %q",
				slnCfg.Name(), p.Name, best.Name())
		}

		return best
	}

	// The other way around: the solution configuration derives from one
	// the project has.
	for _, cfg := range p.Configurations {
		deg := slnCfg.DerivedFrom(cfg)
		if deg == 0 {
			continue
		}
		if best == nil || deg < bestDegree {
			best, bestDegree = cfg, deg
		}
	}
	if best != nil {
		return best
	}

	for _, cfg := range p.Configurations {
		if cfg.IsDebug() == slnCfg.IsDebug() {
			expr.Warn(expr.WarnVSUnrelatedConfig, p.Pos,
				"project %q doesn't have configuration %q, using unrelated %q",
				p.Name, slnCfg.Name(), cfg.Name())

			return cfg
		}
	}

	cfg := p.Configurations[0]
	expr.Warn(expr.WarnVSIncompatibleConfig, p.Pos,
		"project %q doesn't have any configuration compatible with %q, using incompatible %q",
		p.Name, slnCfg.Name(), cfg.Name())

	return cfg
}

// matchingProjectPlatform picks the project platform for a solution
// platform. A project lacking the platform stays in the solution with
// ActiveCfg only, so it simply doesn't build in that combination.
func matchingProjectPlatform(p *SolutionProject, platform string) (string, bool) {
	if len(p.Platforms) == 0 {
		return platform, true
	}
	for _, plat := range p.Platforms {
		if plat == platform {
			return plat, true
		}
	}
	for _, plat := range p.Platforms {
		if plat == "Any CPU" {
			return plat, true
		}
	}

	return p.Platforms[0], false
}
