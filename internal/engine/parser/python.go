package parser

import (
	"regexp"
	"strings"
)

var (
	pyFromParenRE = regexp.MustCompile(`(?m)^[ \t]*from\s+([.\w]+)\s+import\s*\(([^)]*)\)`)
	pyFromRE      = regexp.MustCompile(`(?m)^[ \t]*from\s+([.\w]+)\s+import[ \t]+([^(\s][^\n]*)$`)
	pyImportRE    = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+([\w.]+(?:[ \t]+as[ \t]+\w+)?(?:[ \t]*,[ \t]*[\w.]+(?:[ \t]+as[ \t]+\w+)?)*)`)
	pyClassRE     = regexp.MustCompile(`(?m)^class\s+([A-Za-z_]\w*)\s*(?:\(([^)]*)\))?\s*:`)
	pyDefRE       = regexp.MustCompile(`(?m)^(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`)
	pyWhitespace  = regexp.MustCompile(`\s+`)
)

// PythonExtractor handles .py sources. Only module-level classes and
// functions are declared.
type PythonExtractor struct{}

func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{}
}

func (e *PythonExtractor) Extract(src Source) ParseResult {
	ctx := NewExtractionContext(src.Path, LangPython, src.Content)
	rel := src.classifyPath()

	ctx.Run("imports", extractPyImports)
	ctx.Run("classes", func(c *ExtractionContext) { extractPyClasses(c, rel) })
	ctx.Run("functions", func(c *ExtractionContext) { extractPyFunctions(c, rel) })
	return *ctx.Result
}

func extractPyImports(ctx *ExtractionContext) {
	src := ctx.Source
	for _, m := range pyFromParenRE.FindAllStringSubmatchIndex(src, -1) {
		addPyFromImport(ctx, src[m[2]:m[3]], src[m[4]:m[5]], m[0])
	}
	for _, m := range pyFromRE.FindAllStringSubmatchIndex(src, -1) {
		addPyFromImport(ctx, src[m[2]:m[3]], src[m[4]:m[5]], m[0])
	}
	for _, m := range pyImportRE.FindAllStringSubmatchIndex(src, -1) {
		for _, spec := range splitAndTrim(src[m[2]:m[3]], ",") {
			module, alias := splitPyAlias(spec)
			binding := alias
			if binding == "" {
				binding = module
			}
			ctx.AddImport(ImportStatement{
				Source:      module,
				Names:       []string{binding},
				IsNamespace: true,
				Line:        ctx.Line(m[0]),
			})
		}
	}
}

func addPyFromImport(ctx *ExtractionContext, module, list string, offset int) {
	seen := make(map[string]bool)
	var names []string
	for _, line := range strings.Split(list, "\n") {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSuffix(strings.TrimSpace(line), "\\")
		for _, spec := range splitAndTrim(line, ",") {
			name, _ := splitPyAlias(spec)
			names = appendUnique(names, seen, name)
		}
	}
	ctx.AddImport(ImportStatement{
		Source: NormalizePythonModule(module),
		Names:  names,
		Line:   ctx.Line(offset),
	})
}

func splitPyAlias(spec string) (name, alias string) {
	fields := strings.Fields(spec)
	switch {
	case len(fields) == 0:
		return "", ""
	case len(fields) >= 3 && fields[1] == "as":
		return fields[0], fields[2]
	}
	return fields[0], ""
}

// NormalizePythonModule rewrites a relative module reference into a path
// fragment: `.models` -> `./models`, `..pkg.mod` -> `../pkg/mod`. Absolute
// module names are returned unchanged.
func NormalizePythonModule(module string) string {
	if !strings.HasPrefix(module, ".") {
		return module
	}
	dots := len(module) - len(strings.TrimLeft(module, "."))
	rest := strings.ReplaceAll(module[dots:], ".", "/")

	prefix := "."
	if dots > 1 {
		prefix = strings.TrimSuffix(strings.Repeat("../", dots-1), "/")
	}
	if rest == "" {
		return prefix
	}
	return prefix + "/" + rest
}

func extractPyClasses(ctx *ExtractionContext, rel string) {
	src := ctx.Source
	for _, m := range pyClassRE.FindAllStringSubmatchIndex(src, -1) {
		name := src[m[2]:m[3]]
		var desc string
		if m[4] >= 0 {
			bases := strings.TrimSpace(pyWhitespace.ReplaceAllString(src[m[4]:m[5]], " "))
			if bases != "" {
				desc = extendsMarker + " " + bases
			}
		}
		decl := Declaration{
			Name:        name,
			Type:        ClassifyPython(name, rel),
			Description: desc,
		}
		if !strings.HasPrefix(name, "_") {
			decl.ExportedNames = []string{name}
		}
		ctx.Declare(m[2], decl)
	}
}

func extractPyFunctions(ctx *ExtractionContext, rel string) {
	src := ctx.Source
	for _, m := range pyDefRE.FindAllStringSubmatchIndex(src, -1) {
		name := src[m[2]:m[3]]
		if strings.HasPrefix(name, "_") {
			continue
		}
		ctx.Declare(m[2], Declaration{
			Name:          name,
			Type:          ClassifyPython(name, rel),
			ExportedNames: []string{name},
		})
	}
}
