package parser

import (
	"regexp"
	"sort"
	"strings"
)

var (
	csUsingRE     = regexp.MustCompile(`(?m)^[ \t]*(?:global\s+)?using\s+(static\s+)?(?:([A-Za-z_]\w*)\s*=\s*)?([A-Za-z_][\w.]*(?:<[^>;\n]*>)?)\s*;`)
	csNamespaceRE = regexp.MustCompile(`(?m)^[ \t]*namespace\s+([A-Za-z_][\w.]*)`)
	csTypeRE      = regexp.MustCompile(`(?m)^[ \t]*(?:\[[^\]\n]*\]\s*)*(?:(?:public|internal|private|protected|static|abstract|sealed|partial|readonly|unsafe|new|file|ref)\s+)*(class|interface|enum|struct|record(?:\s+class|\s+struct)?)\s+([A-Za-z_]\w*)(?:\s*<[^>{\n]*>)?(?:\s*\([^)]*\))?(?:\s*:\s*([^{;\n]+))?`)
	csWhereRE     = regexp.MustCompile(`\bwhere\b`)
)

// CSharpExtractor handles .cs sources.
type CSharpExtractor struct{}

func NewCSharpExtractor() *CSharpExtractor {
	return &CSharpExtractor{}
}

func (e *CSharpExtractor) Extract(src Source) ParseResult {
	ctx := NewExtractionContext(src.Path, LangCSharp, src.Content)
	rel := src.classifyPath()

	ctx.Run("usings", extractCSUsings)
	ctx.Run("types", func(c *ExtractionContext) { extractCSTypes(c, rel) })
	return *ctx.Result
}

func extractCSUsings(ctx *ExtractionContext) {
	src := ctx.Source
	for _, m := range csUsingRE.FindAllStringSubmatchIndex(src, -1) {
		target := src[m[6]:m[7]]
		stmt := ImportStatement{Source: stripGenerics(target), Line: ctx.Line(m[0])}
		switch {
		case m[4] >= 0:
			// using Alias = A.B.Type; binds the fully qualified target.
			stmt.Names = []string{stmt.Source}
		case m[2] >= 0:
			stmt.Names = []string{lastSegment(stmt.Source)}
		default:
			stmt.Names = []string{stmt.Source}
			stmt.IsNamespace = true
		}
		ctx.AddImport(stmt)
	}
}

type csNamespace struct {
	offset int
	name   string
}

func csNamespaces(src string) []csNamespace {
	var out []csNamespace
	for _, m := range csNamespaceRE.FindAllStringSubmatchIndex(src, -1) {
		out = append(out, csNamespace{offset: m[0], name: src[m[2]:m[3]]})
	}
	return out
}

// namespaceAt returns the innermost namespace declared before offset.
func namespaceAt(spaces []csNamespace, offset int) string {
	idx := sort.Search(len(spaces), func(i int) bool { return spaces[i].offset > offset }) - 1
	if idx < 0 {
		return ""
	}
	return spaces[idx].name
}

func extractCSTypes(ctx *ExtractionContext, rel string) {
	src := ctx.Source
	spaces := csNamespaces(src)

	for _, m := range csTypeRE.FindAllStringSubmatchIndex(src, -1) {
		kind := csKind(src[m[2]:m[3]])
		name := src[m[4]:m[5]]

		var bases []string
		if m[6] >= 0 && kind != CSharpEnum {
			list := src[m[6]:m[7]]
			if loc := csWhereRE.FindStringIndex(list); loc != nil {
				list = list[:loc[0]]
			}
			for _, base := range splitTopLevel(list, ',') {
				if base = stripGenerics(base); base != "" {
					bases = append(bases, base)
				}
			}
		}

		ns := namespaceAt(spaces, m[0])
		exported := []string{name}
		if ns != "" {
			exported = append(exported, ns+"."+name)
		}

		ctx.Declare(m[4], Declaration{
			Name:          name,
			Type:          ClassifyCSharp(name, rel, kind, bases),
			Description:   csInheritance(kind, bases),
			ExportedNames: exported,
		})
	}
}

func csKind(keyword string) CSharpKind {
	switch {
	case strings.HasPrefix(keyword, "record"):
		return CSharpRecord
	case keyword == "interface":
		return CSharpInterface
	case keyword == "enum":
		return CSharpEnum
	case keyword == "struct":
		return CSharpStruct
	}
	return CSharpClass
}

// csInheritance splits a base list into a base class and interfaces. Only a
// class or record may name a base class, and only in first position; an
// `I`-prefixed name there is taken to be an interface.
func csInheritance(kind CSharpKind, bases []string) string {
	if len(bases) == 0 {
		return ""
	}
	if kind == CSharpInterface {
		return FormatInheritance(bases, nil)
	}
	if kind == CSharpStruct {
		return FormatInheritance(nil, bases)
	}
	first := lastSegment(bases[0])
	if csInterfaceRE.MatchString(first) {
		return FormatInheritance(nil, bases)
	}
	return FormatInheritance(bases[:1], bases[1:])
}
