package parser

import (
	"regexp"
	"strings"
)

var (
	tsImportRE          = regexp.MustCompile(`(?m)^[ \t]*import\s+(?:type\s+)?([^;'"]+?)\s+from\s+['"]([^'"]+)['"]`)
	tsReexportNamedRE   = regexp.MustCompile(`(?m)^[ \t]*export\s+(?:type\s+)?\{([^}]*)\}\s*from\s+['"]([^'"]+)['"]`)
	tsReexportStarRE    = regexp.MustCompile(`(?m)^[ \t]*export\s+\*\s+(?:as\s+([\w$]+)\s+)?from\s+['"]([^'"]+)['"]`)
	tsRequireRE         = regexp.MustCompile(`(?m)(?:const|let|var)\s+(?:([\w$]+)|\{([^}]*)\})\s*=\s*require\(\s*['"]([^'"]+)['"]\s*\)`)
	tsFunctionRE        = regexp.MustCompile(`(?m)^[ \t]*(export\s+)?(default\s+)?(?:async\s+)?function\s*\*?\s*([\w$]+)\s*(?:<[^>\n]*>)?\s*\(`)
	tsConstRE           = regexp.MustCompile(`(?m)^[ \t]*(export\s+)?(?:default\s+)?(?:const|let|var)\s+([\w$]+)\s*(?::[^=\n]+)?=\s*((?:React\.)?(?:memo|forwardRef)\s*(?:<[^>\n]*>)?\s*\(\s*)?`)
	tsFunctionLikeRE    = regexp.MustCompile(`^\s*(?:async\s+)?(?:function\b|\(|[\w$]+\s*=>|<)`)
	tsClassRE           = regexp.MustCompile(`(?m)^[ \t]*(export\s+)?(default\s+)?(?:declare\s+)?(?:abstract\s+)?class\s+([\w$]+)(?:\s*<[^>{\n]*>)?(?:\s+extends\s+([\w$.]+)(?:\s*<[^>{\n]*>)?)?(?:\s+implements\s+([^{]+?))?\s*\{`)
	tsTypeDeclRE        = regexp.MustCompile(`(?m)^[ \t]*export\s+(?:declare\s+)?(?:interface|type|enum|const\s+enum)\s+([\w$]+)(?:\s*<[^>{=\n]*>)?(?:\s+extends\s+([^{=\n]+?))?\s*[{=]`)
	tsLocalExportListRE = regexp.MustCompile(`(?m)^[ \t]*export\s+\{([^}]*)\}\s*;?[ \t]*$`)
	tsDefaultExportRE   = regexp.MustCompile(`(?m)^[ \t]*export\s+default\s+([\w$]+)\s*;?[ \t]*$`)
)

var uiBaseClasses = map[string]bool{
	"Component":           true,
	"PureComponent":       true,
	"React.Component":     true,
	"React.PureComponent": true,
}

// TypeScriptExtractor handles .ts, .tsx, .js and .jsx sources.
type TypeScriptExtractor struct {
	Language Language
}

func NewTypeScriptExtractor(lang Language) *TypeScriptExtractor {
	return &TypeScriptExtractor{Language: lang}
}

func (e *TypeScriptExtractor) Extract(src Source) ParseResult {
	ctx := NewExtractionContext(src.Path, e.Language, src.Content)
	rel := src.classifyPath()

	ctx.Run("imports", extractTSImports)
	ctx.Run("components", func(c *ExtractionContext) { extractTSComponents(c, rel) })
	ctx.Run("classes", func(c *ExtractionContext) { extractTSClasses(c, rel) })
	ctx.Run("functions", func(c *ExtractionContext) { extractTSFunctions(c, rel) })
	ctx.Run("types", func(c *ExtractionContext) { extractTSTypes(c, rel) })
	ctx.Run("exports", extractTSExportLists)
	return *ctx.Result
}

func extractTSImports(ctx *ExtractionContext) {
	src := ctx.Source
	for _, m := range tsImportRE.FindAllStringSubmatchIndex(src, -1) {
		clause := src[m[2]:m[3]]
		source := src[m[4]:m[5]]
		line := ctx.Line(m[0])
		for _, stmt := range parseTSImportClause(clause) {
			stmt.Source = source
			stmt.Line = line
			ctx.AddImport(stmt)
		}
	}

	for _, m := range tsReexportNamedRE.FindAllStringSubmatchIndex(src, -1) {
		names := importSpecifierNames(src[m[2]:m[3]])
		ctx.AddImport(ImportStatement{
			Source:     src[m[4]:m[5]],
			Names:      names,
			IsReexport: true,
			Line:       ctx.Line(m[0]),
		})
	}

	for _, m := range tsReexportStarRE.FindAllStringSubmatchIndex(src, -1) {
		ctx.AddImport(ImportStatement{
			Source:      src[m[4]:m[5]],
			Names:       []string{WildcardName},
			IsNamespace: true,
			IsReexport:  true,
			Line:        ctx.Line(m[0]),
		})
	}

	for _, m := range tsRequireRE.FindAllStringSubmatchIndex(src, -1) {
		stmt := ImportStatement{Source: src[m[6]:m[7]], Line: ctx.Line(m[0])}
		if m[2] >= 0 {
			stmt.Names = []string{src[m[2]:m[3]]}
			stmt.IsDefault = true
		} else {
			stmt.Names = destructuredNames(src[m[4]:m[5]])
		}
		ctx.AddImport(stmt)
	}
}

// parseTSImportClause splits `Default, { a, b as c }` or `* as NS` into one
// statement per binding form.
func parseTSImportClause(clause string) []ImportStatement {
	clause = strings.TrimSpace(clause)
	var out []ImportStatement

	if open := strings.Index(clause, "{"); open >= 0 {
		close := strings.LastIndex(clause, "}")
		if close > open {
			if names := importSpecifierNames(clause[open+1 : close]); len(names) > 0 {
				out = append(out, ImportStatement{Names: names})
			}
			clause = clause[:open] + clause[close+1:]
		}
	}

	for _, part := range splitAndTrim(clause, ",") {
		if strings.HasPrefix(part, "*") {
			fields := strings.Fields(part)
			if len(fields) == 3 && fields[1] == "as" {
				out = append(out, ImportStatement{Names: []string{fields[2]}, IsNamespace: true})
			}
			continue
		}
		if isIdentifier(part) {
			out = append([]ImportStatement{{Names: []string{part}, IsDefault: true}}, out...)
		}
	}
	return out
}

// importSpecifierNames returns the source-side names of `a, b as c, type d`.
func importSpecifierNames(list string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, spec := range splitAndTrim(list, ",") {
		spec = strings.TrimPrefix(spec, "type ")
		fields := strings.Fields(spec)
		if len(fields) == 0 {
			continue
		}
		out = appendUnique(out, seen, fields[0])
	}
	return out
}

func destructuredNames(list string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, spec := range splitAndTrim(list, ",") {
		if idx := strings.Index(spec, ":"); idx >= 0 {
			spec = spec[:idx]
		}
		out = appendUnique(out, seen, spec)
	}
	return out
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func tsExportNames(name string, exported, isDefault bool) []string {
	var names []string
	if exported || isDefault {
		names = append(names, name)
	}
	if isDefault {
		names = append(names, DefaultExportName)
	}
	return names
}

func extractTSComponents(ctx *ExtractionContext, rel string) {
	src := ctx.Source

	for _, m := range tsFunctionRE.FindAllStringSubmatchIndex(src, -1) {
		name := src[m[6]:m[7]]
		if !isUpperInitial(name) || ctx.Declared(name) {
			continue
		}
		body := ExtractBody(src, m[1]-1)
		if !ContainsUIMarkup(body) {
			continue
		}
		ctx.Declare(m[6], Declaration{
			Name:          name,
			Type:          ClassifyTypeScript(name, rel, true, TypeComponent),
			ExportedNames: tsExportNames(name, m[2] >= 0, m[4] >= 0),
		})
	}

	for _, m := range tsConstRE.FindAllStringSubmatchIndex(src, -1) {
		name := src[m[4]:m[5]]
		if !isUpperInitial(name) || ctx.Declared(name) {
			continue
		}
		wrapped := m[6] >= 0
		if !wrapped && !tsFunctionLikeRE.MatchString(src[m[1]:]) {
			continue
		}
		body := ExtractBody(src, m[1])
		if !ContainsUIMarkup(body) {
			continue
		}
		exported := m[2] >= 0
		ctx.Declare(m[4], Declaration{
			Name:          name,
			Type:          ClassifyTypeScript(name, rel, true, TypeComponent),
			ExportedNames: tsExportNames(name, exported, false),
		})
	}

	for _, m := range tsClassRE.FindAllStringSubmatchIndex(src, -1) {
		if m[8] < 0 || !uiBaseClasses[src[m[8]:m[9]]] {
			continue
		}
		name := src[m[6]:m[7]]
		if ctx.Declared(name) {
			continue
		}
		ctx.Declare(m[6], Declaration{
			Name:          name,
			Type:          ClassifyTypeScript(name, rel, true, TypeComponent),
			Description:   tsClassInheritance(src, m),
			ExportedNames: tsExportNames(name, m[2] >= 0, m[4] >= 0),
		})
	}
}

func extractTSClasses(ctx *ExtractionContext, rel string) {
	src := ctx.Source
	for _, m := range tsClassRE.FindAllStringSubmatchIndex(src, -1) {
		name := src[m[6]:m[7]]
		if ctx.Declared(name) {
			continue
		}
		ctx.Declare(m[6], Declaration{
			Name:          name,
			Type:          ClassifyTypeScript(name, rel, false, TypeClass),
			Description:   tsClassInheritance(src, m),
			ExportedNames: tsExportNames(name, m[2] >= 0, m[4] >= 0),
		})
	}
}

func tsClassInheritance(src string, m []int) string {
	var extends, implements []string
	if m[8] >= 0 {
		extends = []string{src[m[8]:m[9]]}
	}
	if m[10] >= 0 {
		for _, iface := range splitTopLevel(src[m[10]:m[11]], ',') {
			implements = append(implements, stripGenerics(iface))
		}
	}
	return FormatInheritance(extends, implements)
}

func extractTSFunctions(ctx *ExtractionContext, rel string) {
	src := ctx.Source
	for _, m := range tsFunctionRE.FindAllStringSubmatchIndex(src, -1) {
		if m[2] < 0 {
			continue
		}
		name := src[m[6]:m[7]]
		if ctx.Declared(name) {
			continue
		}
		ctx.Declare(m[6], Declaration{
			Name:          name,
			Type:          ClassifyTypeScript(name, rel, false, TypeFunction),
			ExportedNames: tsExportNames(name, true, m[4] >= 0),
		})
	}

	for _, m := range tsConstRE.FindAllStringSubmatchIndex(src, -1) {
		if m[2] < 0 {
			continue
		}
		name := src[m[4]:m[5]]
		if ctx.Declared(name) {
			continue
		}
		if m[6] < 0 && !tsFunctionLikeRE.MatchString(src[m[1]:]) {
			continue
		}
		if ExtractBody(src, m[1]) == "" {
			continue
		}
		ctx.Declare(m[4], Declaration{
			Name:          name,
			Type:          ClassifyTypeScript(name, rel, false, TypeFunction),
			ExportedNames: []string{name},
		})
	}
}

func extractTSTypes(ctx *ExtractionContext, rel string) {
	src := ctx.Source
	for _, m := range tsTypeDeclRE.FindAllStringSubmatchIndex(src, -1) {
		name := src[m[2]:m[3]]
		if ctx.Declared(name) {
			continue
		}
		var extends []string
		if m[4] >= 0 {
			for _, base := range splitTopLevel(src[m[4]:m[5]], ',') {
				extends = append(extends, stripGenerics(base))
			}
		}
		ctx.Declare(m[2], Declaration{
			Name:          name,
			Type:          ClassifyTypeScript(name, rel, false, TypeType),
			Description:   FormatInheritance(extends, nil),
			ExportedNames: []string{name},
		})
	}
}

// extractTSExportLists applies `export { a, b as c }` and `export default X`
// to declarations found by the earlier passes.
func extractTSExportLists(ctx *ExtractionContext) {
	src := ctx.Source
	for _, m := range tsLocalExportListRE.FindAllStringSubmatchIndex(src, -1) {
		for _, spec := range splitAndTrim(src[m[2]:m[3]], ",") {
			fields := strings.Fields(strings.TrimPrefix(spec, "type "))
			switch {
			case len(fields) == 1:
				ctx.AddExport(fields[0], fields[0])
			case len(fields) == 3 && fields[1] == "as":
				ctx.AddExport(fields[0], fields[2])
			}
		}
	}
	for _, m := range tsDefaultExportRE.FindAllStringSubmatchIndex(src, -1) {
		ctx.AddExport(src[m[2]:m[3]], DefaultExportName)
	}
}
