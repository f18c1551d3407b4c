// # internal/engine/parser/parser.go
package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"compgraph/internal/shared/observability"
)

// Source is one file handed to an extractor. RelPath, when set, is used for
// naming and directory heuristics so that directories above the scan root
// never influence classification.
type Source struct {
	Path    string
	RelPath string
	Content string
}

func (s Source) classifyPath() string {
	if s.RelPath != "" {
		return s.RelPath
	}
	return s.Path
}

// Extractor turns file content into declarations and imports. Implementations
// never fail; problems are reported through ParseResult.Errors.
type Extractor interface {
	Extract(src Source) ParseResult
}

type Parser struct {
	extensions map[string]Language
	extractors map[Language]Extractor
}

// NewParser returns a parser with the built-in extension table registered.
func NewParser() *Parser {
	p := &Parser{
		extensions: make(map[string]Language),
		extractors: make(map[Language]Extractor),
	}
	p.RegisterExtension(".ts", LangTypeScript)
	p.RegisterExtension(".tsx", LangReact)
	p.RegisterExtension(".js", LangJavaScript)
	p.RegisterExtension(".jsx", LangReact)
	p.RegisterExtension(".py", LangPython)
	p.RegisterExtension(".cs", LangCSharp)

	for _, lang := range []Language{LangTypeScript, LangJavaScript, LangReact} {
		p.RegisterExtractor(lang, NewTypeScriptExtractor(lang))
	}
	p.RegisterExtractor(LangPython, NewPythonExtractor())
	p.RegisterExtractor(LangCSharp, NewCSharpExtractor())
	return p
}

func (p *Parser) RegisterExtension(ext string, lang Language) {
	p.extensions[strings.ToLower(ext)] = lang
}

func (p *Parser) RegisterExtractor(lang Language, e Extractor) {
	p.extractors[lang] = e
}

// GetLanguage returns the language registered for path's extension.
func (p *Parser) GetLanguage(path string) (Language, bool) {
	lang, ok := p.extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

func (p *Parser) IsSupportedPath(path string) bool {
	_, ok := p.GetLanguage(path)
	return ok
}

// SupportedExtensions returns the registered extensions, sorted.
func (p *Parser) SupportedExtensions() []string {
	out := make([]string, 0, len(p.extensions))
	for ext := range p.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// ParseFile dispatches on the extension of path. Unknown extensions yield a
// result carrying a single "unsupported file type" error.
func (p *Parser) ParseFile(path, content string) ParseResult {
	return p.Parse(Source{Path: path, Content: content})
}

func (p *Parser) Parse(src Source) ParseResult {
	ext := strings.ToLower(filepath.Ext(src.Path))
	lang, ok := p.extensions[ext]
	if !ok {
		return ErrorResult(src.Path, fmt.Sprintf("unsupported file type: %s", ext))
	}
	extractor := p.extractors[lang]
	if extractor == nil {
		return ErrorResult(src.Path, fmt.Sprintf("no extractor for language: %s", lang))
	}

	start := time.Now()
	res := extractor.Extract(src)
	observability.ParsingDuration.WithLabelValues(string(lang)).Observe(time.Since(start).Seconds())

	if res.FilePath == "" {
		res.FilePath = src.Path
	}
	if res.Language == "" {
		res.Language = lang
	}
	return res
}
