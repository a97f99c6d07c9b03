// Package vs generates Visual Studio solutions and MSBuild projects.
// One engine covers the 2010 through 2017 releases; the individual
// toolsets only differ in version constants such as the platform
// toolset and the solution format version.
package vs

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/model"
)

// Toolset generates .sln and .vcxproj files for one Visual Studio
// release.
type Toolset struct {
	name    string
	version int

	// projVersions lists the project-file versions the release opens
	// without an upgrade prompt.
	projVersions []int

	platformToolset            string
	toolsVersion               string
	slnFormatVersion           string
	slnHumanVersion            string
	visualStudioVersion        string
	minimumVisualStudioVersion string
}

func init() {
	model.RegisterToolset(&Toolset{
		name:             "vs2010",
		version:          10,
		projVersions:     []int{10},
		toolsVersion:     "4.0",
		slnFormatVersion: "11.00",
		slnHumanVersion:  "2010",
	})
	model.RegisterToolset(&Toolset{
		name:             "vs2012",
		version:          11,
		projVersions:     []int{10, 11},
		platformToolset:  "v110",
		toolsVersion:     "4.0",
		slnFormatVersion: "12.00",
		slnHumanVersion:  "2012",
	})
	model.RegisterToolset(&Toolset{
		name:                       "vs2013",
		version:                    12,
		projVersions:               []int{10, 11, 12},
		platformToolset:            "v120",
		toolsVersion:               "12.0",
		slnFormatVersion:           "12.00",
		slnHumanVersion:            "2013",
		visualStudioVersion:        "12.0.21005.1",
		minimumVisualStudioVersion: "10.0.40219.1",
	})
	model.RegisterToolset(&Toolset{
		name:                       "vs2015",
		version:                    14,
		projVersions:               []int{10, 11, 12, 14},
		platformToolset:            "v140",
		toolsVersion:               "14.0",
		slnFormatVersion:           "12.00",
		slnHumanVersion:            "14",
		visualStudioVersion:        "14.0.23107.0",
		minimumVisualStudioVersion: "10.0.40219.1",
	})
	model.RegisterToolset(&Toolset{
		name:                       "vs2017",
		version:                    15,
		projVersions:               []int{10, 11, 12, 14, 15},
		platformToolset:            "v141",
		toolsVersion:               "15.0",
		slnFormatVersion:           "12.00",
		slnHumanVersion:            "15",
		visualStudioVersion:        "15.0.27130.2003",
		minimumVisualStudioVersion: "10.0.40219.1",
	})
}

func (t *Toolset) Name() string      { return t.name }
func (t *Toolset) ObjectExt() string { return ".obj" }

func (t *Toolset) solutionFileProperty() string     { return t.name + ".solutionfile" }
func (t *Toolset) generateSolutionProperty() string { return t.name + ".generate-solution" }
func (t *Toolset) projectFileProperty() string      { return t.name + ".projectfile" }
func (t *Toolset) guidProperty() string             { return t.name + ".guid" }

// Properties contributes the solution and project file locations, the
// solution on/off switch and the overridable project GUID.
func (t *Toolset) Properties() *model.ToolsetProperties {
	return &model.ToolsetProperties{
		Module: []*model.Property{
			{
				Name: t.solutionFileProperty(),
				Type: model.TypePath,
				Default: model.DefaultFunc(func(p model.Part) (expr.Expr, error) {
					m := p.(*model.Module)

					return expr.NewPath(
						[]expr.Expr{expr.NewLiteral(m.Name()+".sln", expr.Pos{})},
						expr.AnchorSrcdir, m.SourceFilePath(), expr.Pos{}), nil
				}),
			},
			{
				Name:    t.generateSolutionProperty(),
				Type:    model.TypeBool,
				Default: true,
			},
		},
		Target: []*model.Property{
			{
				Name: t.projectFileProperty(),
				Type: model.TypePath,
				// The project file goes next to the module's solution by
				// default.
				Default: model.DefaultFunc(func(p model.Part) (expr.Expr, error) {
					target := p.(*model.Target)
					value, err := target.Module().VariableValue(t.solutionFileProperty())
					if err != nil {
						return nil, err
					}
					sln, ok := value.(*expr.Path)
					if !ok {
						return nil, expr.Errorf(value.Position(),
							"%s must be a constant path (%s)", t.solutionFileProperty(), value)
					}
					comps := append(append([]expr.Expr{}, sln.Directory().Components...),
						expr.NewLiteral(target.Name()+".vcxproj", target.Position()))

					return expr.NewPath(comps, sln.Anchor, sln.AnchorFile, target.Position()), nil
				}),
			},
			{
				Name: t.guidProperty(),
				Type: model.TypeString,
				Default: model.DefaultFunc(func(p model.Part) (expr.Expr, error) {
					target := p.(*model.Target)

					return expr.NewLiteral(
						newGUID(namespaceProject, target.Module().Name(), target.Name()),
						expr.Pos{}), nil
				}),
			},
		},
	}
}

// FilePrefix implements Windows binary naming, which uses none.
func (t *Toolset) FilePrefix(fileclass string) string { return "" }

func (t *Toolset) FileExtension(fileclass string) string {
	switch fileclass {
	case "program":
		return "exe"
	case "library":
		return "lib"
	case "shared-library", "loadable-module":
		return "dll"
	}

	return ""
}

// BuilddirFor puts a target's intermediate files into the $(IntDir)
// directory MSBuild manages, next to the project file.
func (t *Toolset) BuilddirFor(target *model.Target) *expr.Path {
	value, err := target.VariableValue(t.projectFileProperty())
	if err == nil {
		if prjfile, ok := value.(*expr.Path); ok {
			comps := append(append([]expr.Expr{}, prjfile.Directory().Components...),
				expr.NewLiteral("$(IntDir)", expr.Pos{}))

			return expr.NewPath(comps, prjfile.Anchor, prjfile.AnchorFile, expr.Pos{})
		}
	}

	return expr.NewPath([]expr.Expr{expr.NewLiteral("$(IntDir)", expr.Pos{})},
		expr.AnchorTopSrcdir, "", expr.Pos{})
}

// SolutionProjectSource is implemented by external build handlers that
// can describe their project file well enough to put it into a
// solution.
type SolutionProjectSource interface {
	SolutionProject(toolset model.Toolset, target *model.Target) (*SolutionProject, error)
}

// Generate writes one solution per module and one project per target.
func (t *Toolset) Generate(prj *model.Project) error {
	solutions := make(map[*model.Module]*Solution)
	for _, module := range prj.Modules() {
		sln, err := newSolution(t, module)
		if err != nil {
			return err
		}
		solutions[module] = sln
		if parent, ok := module.Parent().(*model.Module); ok {
			solutions[parent].addChild(sln)
		}
	}

	for _, module := range prj.Modules() {
		for _, target := range module.Targets() {
			build, err := target.ShouldBuild()
			if err != nil {
				if !expr.IsNonConst(err) {
					return err
				}
				// The condition depends on the configuration; the
				// project is generated and the disabled configurations
				// are excluded from building individually.
				build = true
			}
			if !build {
				continue
			}

			p, err := t.projectFor(prj, target)
			if err != nil {
				return err
			}
			if p == nil {
				continue
			}
			if err := t.checkProjectVersion(p); err != nil {
				return err
			}
			solutions[module].AddProject(p)
		}
	}

	for _, module := range prj.Modules() {
		if err := solutions[module].Write(); err != nil {
			return err
		}
	}

	return nil
}

func (t *Toolset) projectFor(prj *model.Project, target *model.Target) (*SolutionProject, error) {
	switch tt := target.Type().(type) {
	case *model.NativeType:
		return t.genNativeProject(prj, target, tt)

	case *model.ExternalType:
		handler, _, err := tt.Handler(target)
		if err != nil {
			return nil, err
		}
		if source, ok := handler.(SolutionProjectSource); ok {
			return source.SolutionProject(t, target)
		}
	}

	expr.Warn(expr.WarnVSUnsupportedTarget, target.Position(),
		"toolset %s does not support %s targets, ignoring %s",
		t.name, target.Type().Name(), target)

	return nil, nil
}

// checkProjectVersion rejects project files a given Visual Studio
// release cannot open and points out older ones it would want to
// upgrade.
func (t *Toolset) checkProjectVersion(p *SolutionProject) error {
	if p.Version == 0 || p.Version == t.version {
		return nil
	}
	if p.Version > t.version {
		return expr.Errorf(p.Pos,
			"project %q is for Visual Studio version %d and will not work with %d",
			p.Name, p.Version, t.version)
	}
	for _, v := range t.projVersions {
		if v == p.Version {
			return nil
		}
	}
	expr.Warn(expr.WarnVSProjectVersionMismatch, p.Pos,
		"project %q is for an older Visual Studio version (%d), consider upgrading it",
		p.Name, p.Version)

	return nil
}

// archVSPlatform maps the input-language architecture names onto the
// platform names Visual Studio uses.
var archVSPlatform = map[string]string{
	"x86":    "Win32",
	"x86_64": "x64",
}

// configPlatform is one cell of the configuration x architecture matrix
// a project builds in.
type configPlatform struct {
	config   *model.Configuration
	arch     string
	platform string
}

// vsName is the "Configuration|Platform" pair identifying the cell in
// project and solution files.
func (cp configPlatform) vsName() string {
	return cp.config.Name() + "|" + cp.platform
}

func (cp configPlatform) condition() string {
	return fmt.Sprintf("'$(Configuration)|$(Platform)'=='%s'", cp.vsName())
}

// proxyFor reads the given part's values as specific to this cell.
func (cp configPlatform) proxyFor(p model.Part) *model.ConfigProxy {
	return model.NewConfigProxy(p, cp.config).WithArch(cp.arch)
}

// targetArchs returns the architectures the target builds for, 32-bit
// x86 when not specified.
func targetArchs(target *model.Target) ([]string, error) {
	if target.IsVariableNull("archs") {
		return []string{"x86"}, nil
	}
	value, err := target.VariableValue("archs")
	if err != nil {
		return nil, err
	}

	return stringList(value)
}

// configsAndPlatforms expands the target's configurations and
// architectures into the full matrix, configurations varying slowest.
func configsAndPlatforms(target *model.Target) ([]configPlatform, []string, error) {
	proxies, err := model.Configurations(target)
	if err != nil {
		return nil, nil, err
	}
	archs, err := targetArchs(target)
	if err != nil {
		return nil, nil, err
	}

	platforms := make([]string, len(archs))
	for i, arch := range archs {
		plat, ok := archVSPlatform[arch]
		if !ok {
			return nil, nil, expr.Errorf(target.Position(),
				"unsupported architecture %q", arch)
		}
		platforms[i] = plat
	}

	var cells []configPlatform
	for _, proxy := range proxies {
		for i, arch := range archs {
			cells = append(cells, configPlatform{
				config:   proxy.Config(),
				arch:     arch,
				platform: platforms[i],
			})
		}
	}

	return cells, platforms, nil
}

// stringList evaluates an expression to a list of strings.
func stringList(e expr.Expr) ([]string, error) {
	v, err := expr.AsConst(e)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	if v.Type() == cty.String {
		return []string{v.AsString()}, nil
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, item := it.Element()
		if item.IsNull() {
			continue
		}
		out = append(out, item.AsString())
	}

	return out, nil
}
