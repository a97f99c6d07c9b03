package vs

import (
	"fmt"
	"strings"

	"github.com/vslavik/bakefile/expr"
	"github.com/vslavik/bakefile/gen"
	"github.com/vslavik/bakefile/model"
)

const msbuildXMLNS = "http://schemas.microsoft.com/developer/msbuild/2003"

var warningLevels = map[string]string{
	"no":      "TurnOffAllWarnings",
	"minimal": "Level1",
	"default": "Level3",
	"all":     "Level4",
	"max":     "EnableAllWarnings",
}

// sourceGroups is the target's source files split by how MSBuild
// compiles them.
type sourceGroups struct {
	cl            []*model.SourceFile
	rc            []*model.SourceFile
	idl           []*model.SourceFile
	custom        []*model.SourceFile
	headers       []*model.SourceFile
	customHeaders []*model.SourceFile
}

func splitSources(t *Toolset, target *model.Target) (*sourceGroups, error) {
	groups := &sourceGroups{}
	for _, file := range target.Sources() {
		custom, err := hasCustomCommands(file)
		if err != nil {
			return nil, err
		}
		if custom {
			groups.custom = append(groups.custom, file)

			continue
		}
		src, ok := file.Filename().(*expr.Path)
		if !ok {
			return nil, expr.Errorf(file.Position(),
				"source file name %q is not a path", file.Filename())
		}
		ext, err := src.Extension()
		if err != nil {
			return nil, err
		}
		switch ext {
		case "c", "cpp", "cxx", "cc":
			groups.cl = append(groups.cl, file)
		case "rc":
			groups.rc = append(groups.rc, file)
		case "idl":
			groups.idl = append(groups.idl, file)
		case "h", "hpp", "hxx":
			groups.headers = append(groups.headers, file)
		default:
			ft, err := model.FileTypeForExtension(ext)
			if err != nil {
				return nil, expr.WithPos(err, file.Position())
			}

			return nil, expr.Errorf(file.Position(),
				"don't know how to compile %q files with toolset %q", ft.Name, t.name)
		}
	}
	for _, file := range target.Headers() {
		custom, err := hasCustomCommands(file)
		if err != nil {
			return nil, err
		}
		if custom {
			groups.customHeaders = append(groups.customHeaders, file)
		} else {
			groups.headers = append(groups.headers, file)
		}
	}

	return groups, nil
}

func hasCustomCommands(f *model.SourceFile) (bool, error) {
	value, err := f.VariableValue("compile-commands")
	if err != nil {
		return false, err
	}

	return expr.Truthy(value)
}

// genNativeProject writes the target's .vcxproj and .vcxproj.filters
// files and describes the project for the module's solution.
func (t *Toolset) genNativeProject(prj *model.Project, target *model.Target, nt *model.NativeType) (*SolutionProject, error) {
	projfileValue, err := target.VariableValue(t.projectFileProperty())
	if err != nil {
		return nil, err
	}
	projfile, ok := projfileValue.(*expr.Path)
	if !ok {
		return nil, expr.Errorf(projfileValue.Position(),
			"%s must be a constant path (%s)", t.projectFileProperty(), projfileValue)
	}
	base, err := projfile.Basename()
	if err != nil {
		return nil, err
	}
	if base != target.Name() {
		return nil, expr.Errorf(target.Position(),
			"project name (%q) differs from target name (%q), they must be the same",
			base, target.Name())
	}

	guid, err := t.targetGUID(target)
	if err != nil {
		return nil, err
	}

	rel, err := projfile.NativePathForOutput("")
	if err != nil {
		return nil, err
	}
	out := gen.Current()
	output := out.Path(rel)
	paths, err := expr.NewPathAnchors("\\", output, "", prj.TopModule().Srcdir())
	if err != nil {
		return nil, expr.WithPos(err, target.Position())
	}
	fmtr := vsExprFormatter(paths)

	cells, platforms, err := configsAndPlatforms(target)
	if err != nil {
		return nil, err
	}
	groups, err := splitSources(t, target)
	if err != nil {
		return nil, err
	}
	disambig := model.DisambiguateIntermediateFileNames(target.Sources())

	root := newNode("Project").
		setAttr("DefaultTargets", "Build").
		setAttr("ToolsVersion", t.toolsVersion).
		setAttr("xmlns", msbuildXMLNS)

	pc := root.add(newNode("ItemGroup").setAttr("Label", "ProjectConfigurations"))
	for _, cell := range cells {
		pc.add(newNode("ProjectConfiguration").setAttr("Include", cell.vsName())).
			addText("Configuration", cell.config.Name()).
			addText("Platform", cell.platform)
	}

	root.add(newNode("PropertyGroup").setAttr("Label", "Globals")).
		addText("ProjectGuid", braced(guid)).
		addText("Keyword", "Win32Proj").
		addText("RootNamespace", target.Name()).
		addText("ProjectName", target.Name())

	root.add(newNode("Import").setAttr("Project", `$(VCTargetsPath)\Microsoft.Cpp.Default.props`))

	for _, cell := range cells {
		proxy := cell.proxyFor(target)
		cfg := root.add(newNode("PropertyGroup").
			setAttr("Condition", cell.condition()).
			setAttr("Label", "Configuration"))
		cfg.addText("ConfigurationType", configurationType(nt))
		cfg.addText("UseDebugLibraries", cell.config.IsDebug())
		if t.platformToolset != "" {
			cfg.addText("PlatformToolset", t.platformToolset)
		}
		unicode, err := boolValue(proxy, "win32-unicode")
		if err != nil {
			return nil, err
		}
		if unicode {
			cfg.addText("CharacterSet", "Unicode")
		} else {
			cfg.addText("CharacterSet", "MultiByte")
		}
	}

	root.add(newNode("Import").setAttr("Project", `$(VCTargetsPath)\Microsoft.Cpp.props`))
	root.add(newNode("ImportGroup").setAttr("Label", "ExtensionSettings"))
	for _, cell := range cells {
		ig := root.add(newNode("ImportGroup").
			setAttr("Label", "PropertySheets").
			setAttr("Condition", cell.condition()))
		ig.add(newNode("Import").
			setAttr("Project", `$(UserRootDir)\Microsoft.Cpp.$(Platform).user.props`).
			setAttr("Condition", `exists('$(UserRootDir)\Microsoft.Cpp.$(Platform).user.props')`).
			setAttr("Label", "LocalAppDataPlatform"))
	}
	root.add(newNode("PropertyGroup").setAttr("Label", "UserMacros"))

	if err := t.addOutputDirGroups(root, prj, target, nt, cells, platforms, fmtr); err != nil {
		return nil, err
	}
	if err := t.addItemDefinitionGroups(root, target, nt, cells, groups); err != nil {
		return nil, err
	}
	if err := addSourceItems(root, cells, groups, disambig, fmtr); err != nil {
		return nil, err
	}
	if err := t.addProjectReferences(root, target, fmtr); err != nil {
		return nil, err
	}

	root.add(newNode("Import").setAttr("Project", `$(VCTargetsPath)\Microsoft.Cpp.targets`))
	root.add(newNode("ImportGroup").setAttr("Label", "ExtensionTargets"))

	by := fmt.Sprintf("%s (%s)", t.name, target)
	f, err := out.NewFile(output, gen.EOLWindows, by)
	if err != nil {
		return nil, err
	}
	f.AddBOM = true
	if err := renderXML(f, fmtr, root); err != nil {
		return nil, err
	}
	if err := f.Commit(); err != nil {
		return nil, err
	}

	if err := t.writeFilters(output+".filters", by, fmtr, groups); err != nil {
		return nil, err
	}

	disabled := make(map[string]bool)
	for _, cell := range cells {
		build, err := cell.proxyFor(target).ShouldBuild()
		if err != nil {
			return nil, err
		}
		if !build {
			disabled[cell.vsName()] = true
		}
	}

	depsValue, err := target.VariableValue("deps")
	if err != nil {
		return nil, err
	}
	deps, err := stringList(depsValue)
	if err != nil {
		return nil, err
	}

	return &SolutionProject{
		Version:         t.version,
		Name:            target.Name(),
		GUID:            guid,
		Kind:            kindProjectC,
		File:            projfile,
		Deps:            deps,
		Configurations:  configsOf(cells),
		DisabledConfigs: disabled,
		Platforms:       platforms,
		Pos:             target.Position(),
	}, nil
}

// addOutputDirGroups writes the per-configuration property groups
// controlling output naming and directories. Groups that end up with no
// content are left out.
func (t *Toolset) addOutputDirGroups(root *node, prj *model.Project, target *model.Target, nt *model.NativeType, cells []configPlatform, platforms []string, fmtr *expr.Formatter) error {
	multiPlatform := len(platforms) > 1 || platforms[0] != "Win32"
	customIntDir := false
	if !multiPlatform {
		var err error
		customIntDir, err = t.needsCustomIntDir(prj, target)
		if err != nil {
			return err
		}
	}

	for _, cell := range cells {
		proxy := cell.proxyFor(target)
		pg := newNode("PropertyGroup").setAttr("Condition", cell.condition())

		if nt.IsLinked() {
			pg.addText("LinkIncremental", cell.config.IsDebug())
		}
		basename, err := stringValue(proxy, "basename")
		if err != nil {
			return err
		}
		if basename != "" && basename != target.Name() {
			pg.addText("TargetName", basename)
		}
		if nt == model.TypeLoadableModule {
			pg.addText("IgnoreImportLibrary", true)
			if !target.IsVariableNull("extension") {
				ext, err := proxy.Value("extension")
				if err != nil {
					return err
				}
				pg.addText("TargetExt", ext)
			}
		}
		if target.IsVariableExplicitlySet("outputdir") {
			outdir, err := proxy.Value("outputdir")
			if err != nil {
				return err
			}
			s, err := fmtr.Format(outdir)
			if err != nil {
				return err
			}
			pg.addText("OutDir", s+"\\")
		}
		switch {
		case multiPlatform:
			pg.addText("IntDir", `$(Platform)\$(Configuration)\$(ProjectName)\`)
		case customIntDir:
			pg.addText("IntDir", `$(Configuration)\$(ProjectName)\`)
		}

		if pg.hasChildren() {
			root.add(pg)
		}
	}

	return nil
}

// needsCustomIntDir reports whether another project writes its
// intermediate files into the same directory, in which case the default
// $(Configuration)\ would mix the two projects' objects.
func (t *Toolset) needsCustomIntDir(prj *model.Project, target *model.Target) (bool, error) {
	dirOf := func(tg *model.Target) (string, error) {
		value, err := tg.VariableValue(t.projectFileProperty())
		if err != nil {
			return "", err
		}
		path, ok := value.(*expr.Path)
		if !ok {
			return "", expr.Errorf(value.Position(),
				"%s must be a constant path (%s)", t.projectFileProperty(), value)
		}

		return path.Directory().NativePathForOutput("")
	}

	mine, err := dirOf(target)
	if err != nil {
		return false, err
	}
	count := 0
	for _, other := range prj.AllTargets() {
		if _, ok := other.Type().(*model.NativeType); !ok {
			continue
		}
		dir, err := dirOf(other)
		if err != nil {
			continue
		}
		if dir == mine {
			count++
		}
	}

	return count > 1, nil
}

func (t *Toolset) addItemDefinitionGroups(root *node, target *model.Target, nt *model.NativeType, cells []configPlatform, groups *sourceGroups) error {
	for _, cell := range cells {
		proxy := cell.proxyFor(target)
		debug := cell.config.IsDebug()
		idg := root.add(newNode("ItemDefinitionGroup").setAttr("Condition", cell.condition()))

		userDefs, err := proxy.Value("defines")
		if err != nil {
			return err
		}
		incdirs, err := proxy.Value("includedirs")
		if err != nil {
			return err
		}

		cl := idg.add(newNode("ClCompile"))
		warnings, err := stringValue(proxy, "warnings")
		if err != nil {
			return err
		}
		cl.addText("WarningLevel", warningLevels[warnings])
		if debug {
			cl.addText("Optimization", "Disabled")
		} else {
			cl.addText("Optimization", "MaxSpeed")
			cl.addText("FunctionLevelLinking", true)
			cl.addText("IntrinsicFunctions", true)
		}
		std, err := stdDefines(target, nt, proxy, debug)
		if err != nil {
			return err
		}
		cl.addText("PreprocessorDefinitions",
			join(";", std...).append(userDefs, "%(PreprocessorDefinitions)"))
		cl.addText("MultiProcessorCompilation", true)
		cl.addText("MinimalRebuild", false)
		cl.addText("AdditionalIncludeDirectories", incdirs)
		crt, err := stringValue(proxy, "win32-crt-linkage")
		if err != nil {
			return err
		}
		runtime := "MultiThreaded"
		if debug {
			runtime += "Debug"
		}
		if crt == "dll" {
			runtime += "DLL"
		}
		cl.addText("RuntimeLibrary", runtime)
		copts, err := compilerOptions(proxy)
		if err != nil {
			return err
		}
		if len(copts) > 0 {
			cl.addText("AdditionalOptions", join(" ", copts...).append("%(AdditionalOptions)"))
		}

		if len(groups.rc) > 0 {
			rc := idg.add(newNode("ResourceCompile"))
			rcDefs := join(";")
			unicode, err := boolValue(proxy, "win32-unicode")
			if err != nil {
				return err
			}
			if unicode {
				rcDefs.append("_UNICODE", "UNICODE")
			}
			if debug {
				rcDefs.append("_DEBUG")
			} else {
				rcDefs.append("NDEBUG")
			}
			rcDefs.append(userDefs, "%(PreprocessorDefinitions)")
			rc.addText("PreprocessorDefinitions", rcDefs)
			rc.addText("AdditionalIncludeDirectories", incdirs)
		}
		if len(groups.idl) > 0 {
			idg.add(newNode("Midl")).addText("AdditionalIncludeDirectories", incdirs)
		}

		libdirs, err := nt.LibDirs(target, proxy)
		if err != nil {
			return err
		}
		libs, err := nt.LDLibs(target, proxy)
		if err != nil {
			return err
		}

		if nt.IsLinked() {
			link := idg.add(newNode("Link"))
			subsystem := "Windows"
			if nt == model.TypeProgram {
				value, err := stringValue(proxy, "win32-subsystem")
				if err != nil {
					return err
				}
				if value == "console" {
					subsystem = "Console"
				}
			}
			link.addText("SubSystem", subsystem)
			link.addText("GenerateDebugInformation", true)
			if !debug {
				link.addText("EnableCOMDATFolding", true)
				link.addText("OptimizeReferences", true)
			}
			if len(libdirs) > 0 {
				link.addText("AdditionalLibraryDirectories",
					join(";", anyItems(libdirs)...).append("%(AdditionalLibraryDirectories)"))
			}
			linkopts, err := nt.LinkOptions(target, proxy)
			if err != nil {
				return err
			}
			if len(linkopts) > 0 {
				link.addText("AdditionalOptions",
					join(" ", anyItems(linkopts)...).append("%(AdditionalOptions)"))
			}
			if len(libs) > 0 {
				link.addText("AdditionalDependencies",
					join(";", libFileNames(libs)...).append("%(AdditionalDependencies)"))
			}
		} else if len(libdirs) > 0 || len(libs) > 0 {
			lib := idg.add(newNode("Lib"))
			if len(libdirs) > 0 {
				lib.addText("AdditionalLibraryDirectories",
					join(";", anyItems(libdirs)...).append("%(AdditionalLibraryDirectories)"))
			}
			if len(libs) > 0 {
				lib.addText("AdditionalDependencies",
					join(";", libFileNames(libs)...).append("%(AdditionalDependencies)"))
			}
		}

		if err := addBuildEvent(idg, proxy, "PreBuildEvent", "pre-build-commands"); err != nil {
			return err
		}
		if err := addBuildEvent(idg, proxy, "PostBuildEvent", "post-build-commands"); err != nil {
			return err
		}
	}

	return nil
}

func addBuildEvent(idg *node, proxy *model.ConfigProxy, element, property string) error {
	value, err := proxy.Value(property)
	if err != nil {
		return err
	}
	commands := listItems(value)
	if len(commands) == 0 {
		return nil
	}
	idg.add(newNode(element)).addText("Command", join("\n", anyItems(commands)...))

	return nil
}

func stdDefines(target *model.Target, nt *model.NativeType, proxy *model.ConfigProxy, debug bool) ([]any, error) {
	defs := []any{"WIN32"}
	if debug {
		defs = append(defs, "_DEBUG")
	} else {
		defs = append(defs, "NDEBUG")
	}
	switch nt {
	case model.TypeProgram:
		subsystem, err := stringValue(proxy, "win32-subsystem")
		if err != nil {
			return nil, err
		}
		if subsystem == "windows" {
			defs = append(defs, "_WINDOWS")
		} else {
			defs = append(defs, "_CONSOLE")
		}
	case model.TypeLibrary:
		defs = append(defs, "_LIB")
	case model.TypeSharedLibrary, model.TypeLoadableModule:
		defs = append(defs, strings.ToUpper(target.Name())+"_EXPORTS")
	}

	return defs, nil
}

func compilerOptions(proxy *model.ConfigProxy) ([]any, error) {
	var out []any
	for _, prop := range []string{"compiler-options", "c-compiler-options", "cxx-compiler-options"} {
		value, err := proxy.Value(prop)
		if err != nil {
			return nil, err
		}
		out = append(out, anyItems(listItems(value))...)
	}

	return out, nil
}

// libFileNames turns the bare library names of the libs property into
// the foo.lib file names the linker wants.
func libFileNames(libs []expr.Expr) []any {
	out := make([]any, len(libs))
	for i, lib := range libs {
		out[i] = expr.NewConcat(
			[]expr.Expr{lib, expr.NewLiteral(".lib", lib.Position())}, lib.Position())
	}

	return out
}

func addSourceItems(root *node, cells []configPlatform, groups *sourceGroups, disambig map[*model.SourceFile]string, fmtr *expr.Formatter) error {
	sources := newNode("ItemGroup")
	for _, file := range groups.custom {
		item, err := customBuildItem(file, cells, fmtr)
		if err != nil {
			return err
		}
		sources.add(item)
	}
	for _, file := range groups.cl {
		item, err := fileItem("ClCompile", file, cells, fmtr)
		if err != nil {
			return err
		}
		if base, ok := disambig[file]; ok {
			item.addText("ObjectFileName", `$(IntDir)\`+base+".obj")
		}
		sources.add(item)
	}
	if sources.hasChildren() {
		root.add(sources)
	}

	headers := newNode("ItemGroup")
	for _, file := range groups.customHeaders {
		item, err := customBuildItem(file, cells, fmtr)
		if err != nil {
			return err
		}
		headers.add(item)
	}
	for _, file := range groups.headers {
		item, err := fileItem("ClInclude", file, cells, fmtr)
		if err != nil {
			return err
		}
		headers.add(item)
	}
	if headers.hasChildren() {
		root.add(headers)
	}

	if len(groups.rc) > 0 {
		rc := root.add(newNode("ItemGroup"))
		for _, file := range groups.rc {
			item, err := fileItem("ResourceCompile", file, cells, fmtr)
			if err != nil {
				return err
			}
			if base, ok := disambig[file]; ok {
				item.addText("ResourceOutputFileName", `$(IntDir)\`+base+".res")
			}
			rc.add(item)
		}
	}
	if len(groups.idl) > 0 {
		idl := root.add(newNode("ItemGroup"))
		for _, file := range groups.idl {
			item, err := fileItem("Midl", file, cells, fmtr)
			if err != nil {
				return err
			}
			idl.add(item)
		}
	}

	return nil
}

// fileItem makes one source list entry, with per-configuration
// exclusions when the file's condition rules some configurations out.
func fileItem(element string, file *model.SourceFile, cells []configPlatform, fmtr *expr.Formatter) (*node, error) {
	path, err := fmtr.Format(file.Filename())
	if err != nil {
		return nil, err
	}
	item := newNode(element).setAttr("Include", path)
	if err := addExclusions(item, file, cells); err != nil {
		return nil, err
	}

	return item, nil
}

func addExclusions(item *node, file *model.SourceFile, cells []configPlatform) error {
	for _, cell := range cells {
		build, err := cell.proxyFor(file).ShouldBuild()
		if err != nil {
			return err
		}
		if !build {
			excl := &node{name: "ExcludedFromBuild", value: true}
			excl.setAttr("Condition", cell.condition())
			item.add(excl)
		}
	}

	return nil
}

// customBuildItem renders a file with custom compilation commands. The
// %(in) and %(out) references of the commands are substituted with the
// MSBuild-side names first, then everything is resolved per
// configuration.
func customBuildItem(file *model.SourceFile, cells []configPlatform, fmtr *expr.Formatter) (*node, error) {
	path, err := fmtr.Format(file.Filename())
	if err != nil {
		return nil, err
	}
	item := newNode("CustomBuild").setAttr("Include", path)

	commandsVal, err := file.VariableValue("compile-commands")
	if err != nil {
		return nil, err
	}
	outputsVal, err := file.VariableValue("outputs")
	if err != nil {
		return nil, err
	}
	outputs := listItems(outputsVal)
	depsVal, err := file.VariableValue("dependencies")
	if err != nil {
		return nil, err
	}
	message, err := file.VariableValue("compile-message")
	if err != nil {
		return nil, err
	}

	values := map[string]expr.Expr{
		"in":  file.Filename(),
		"out": outputsVal,
	}
	for i, o := range outputs {
		values[fmt.Sprintf("out%d", i)] = o
	}
	commands, err := expr.FormatString(commandsVal, values)
	if err != nil {
		return nil, err
	}

	for _, cell := range cells {
		proxy := cell.proxyFor(file)
		build, err := proxy.ShouldBuild()
		if err != nil {
			return nil, err
		}
		addValue := func(name string, value any) {
			n := &node{name: name, value: value}
			n.setAttr("Condition", cell.condition())
			item.add(n)
		}
		if !build {
			addValue("ExcludedFromBuild", true)

			continue
		}
		cfgCommands, err := proxy.Apply(commands)
		if err != nil {
			return nil, err
		}
		addValue("Command", join("\n", anyItems(listItems(cfgCommands))...))
		cfgOutputs, err := proxy.Apply(outputsVal)
		if err != nil {
			return nil, err
		}
		addValue("Outputs", cfgOutputs)
		cfgDeps, err := proxy.Apply(depsVal)
		if err != nil {
			return nil, err
		}
		if len(listItems(cfgDeps)) > 0 {
			addValue("AdditionalInputs", cfgDeps)
		}
		cfgMessage, err := proxy.Apply(message)
		if err != nil {
			return nil, err
		}
		addValue("Message", cfgMessage)
	}

	return item, nil
}

// addProjectReferences links the project to the ones it depends on,
// both the explicitly named deps and the transitively linked libraries.
func (t *Toolset) addProjectReferences(root *node, target *model.Target, fmtr *expr.Formatter) error {
	depsValue, err := target.VariableValue("deps")
	if err != nil {
		return err
	}
	deps, err := stringList(depsValue)
	if err != nil {
		return err
	}
	var refs []*model.Target
	seen := make(map[*model.Target]bool)
	prj := target.Project()
	for _, id := range deps {
		dep, err := prj.Target(id)
		if err != nil {
			return expr.WithPos(err, target.Position())
		}
		if !seen[dep] {
			seen[dep] = true
			refs = append(refs, dep)
		}
	}
	linkable, err := model.LinkableDeps(target)
	if err != nil {
		return err
	}
	for _, dep := range linkable {
		if !seen[dep] {
			seen[dep] = true
			refs = append(refs, dep)
		}
	}
	if len(refs) == 0 {
		return nil
	}

	group := root.add(newNode("ItemGroup"))
	for _, dep := range refs {
		value, err := dep.VariableValue(t.projectFileProperty())
		if err != nil {
			return err
		}
		depFile, ok := value.(*expr.Path)
		if !ok {
			return expr.Errorf(value.Position(),
				"%s must be a constant path (%s)", t.projectFileProperty(), value)
		}
		path, err := fmtr.Format(depFile)
		if err != nil {
			return err
		}
		guid, err := t.targetGUID(dep)
		if err != nil {
			return err
		}
		group.add(newNode("ProjectReference").setAttr("Include", path)).
			addText("Project", braced(strings.ToLower(guid)))
	}

	return nil
}

// Fixed identifiers of the three standard filter groups, the same in
// every project Visual Studio creates.
const (
	filterSourcesGUID   = "4FC737F1-C7A5-4376-A066-2A32D752A2FF"
	filterHeadersGUID   = "93995380-89BD-4b04-88EB-625FBE52EBFB"
	filterResourcesGUID = "67DA6AB6-F800-4c08-8B7A-83BB121AAD01"
)

// writeFilters writes the .vcxproj.filters companion grouping the files
// in the IDE's solution explorer.
func (t *Toolset) writeFilters(output, by string, fmtr *expr.Formatter, groups *sourceGroups) error {
	root := newNode("Project").
		setAttr("ToolsVersion", "4.0").
		setAttr("xmlns", msbuildXMLNS)

	defs := root.add(newNode("ItemGroup"))
	addFilter := func(name, guid, extensions string) {
		defs.add(newNode("Filter").setAttr("Include", name)).
			addText("UniqueIdentifier", braced(guid)).
			addText("Extensions", extensions)
	}
	addFilter("Source Files", filterSourcesGUID,
		"cpp;c;cc;cxx;def;odl;idl;hpj;bat;asm;asmx")
	addFilter("Header Files", filterHeadersGUID,
		"h;hpp;hxx;hm;inl;inc;xsd")
	addFilter("Resource Files", filterResourcesGUID,
		"rc;ico;cur;bmp;dlg;rc2;rct;bin;rgs;gif;jpg;jpeg;jpe;resx;tiff;tif;png;wav;mfcribbon-ms")

	addGroup := func(element, filter string, files []*model.SourceFile) error {
		if len(files) == 0 {
			return nil
		}
		group := root.add(newNode("ItemGroup"))
		for _, file := range files {
			path, err := fmtr.Format(file.Filename())
			if err != nil {
				return err
			}
			group.add(newNode(element).setAttr("Include", path)).
				addText("Filter", filter)
		}

		return nil
	}
	if err := addGroup("CustomBuild", "Source Files", groups.custom); err != nil {
		return err
	}
	if err := addGroup("ClCompile", "Source Files", groups.cl); err != nil {
		return err
	}
	if err := addGroup("Midl", "Source Files", groups.idl); err != nil {
		return err
	}
	if err := addGroup("CustomBuild", "Header Files", groups.customHeaders); err != nil {
		return err
	}
	if err := addGroup("ClInclude", "Header Files", groups.headers); err != nil {
		return err
	}
	if err := addGroup("ResourceCompile", "Resource Files", groups.rc); err != nil {
		return err
	}

	out := gen.Current()
	f, err := out.NewFile(output, gen.EOLWindows, by)
	if err != nil {
		return err
	}
	f.AddBOM = true
	if err := renderXML(f, fmtr, root); err != nil {
		return err
	}

	return f.Commit()
}

func (t *Toolset) targetGUID(target *model.Target) (string, error) {
	value, err := target.VariableValue(t.guidProperty())
	if err != nil {
		return "", err
	}
	guid, err := constString(value)
	if err != nil {
		return "", err
	}

	return strings.Trim(guid, "{}"), nil
}

func configurationType(nt *model.NativeType) string {
	switch nt {
	case model.TypeProgram:
		return "Application"
	case model.TypeLibrary:
		return "StaticLibrary"
	}

	return "DynamicLibrary"
}

func configsOf(cells []configPlatform) []*model.Configuration {
	var out []*model.Configuration
	seen := make(map[*model.Configuration]bool)
	for _, cell := range cells {
		if seen[cell.config] {
			continue
		}
		seen[cell.config] = true
		out = append(out, cell.config)
	}

	return out
}

// listItems returns the items of a list expression, nothing for null
// and the expression itself otherwise.
func listItems(e expr.Expr) []expr.Expr {
	switch t := e.(type) {
	case nil, *expr.Null:
		return nil
	case *expr.List:
		return t.Items
	}

	return []expr.Expr{e}
}

func anyItems(exprs []expr.Expr) []any {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		out[i] = e
	}

	return out
}

func constString(e expr.Expr) (string, error) {
	v, err := expr.AsConst(e)
	if err != nil {
		return "", err
	}
	if v.IsNull() {
		return "", nil
	}

	return v.AsString(), nil
}

func stringValue(proxy *model.ConfigProxy, name string) (string, error) {
	value, err := proxy.Value(name)
	if err != nil {
		return "", err
	}

	return constString(value)
}

func boolValue(proxy *model.ConfigProxy, name string) (bool, error) {
	value, err := proxy.Value(name)
	if err != nil {
		return false, err
	}

	return expr.Truthy(value)
}
