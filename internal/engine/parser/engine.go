package parser

import (
	"fmt"
	"sort"
	"strings"
)

// ExtractionContext carries shared state and helpers used by all extractors
// while they run their pattern passes over one file.
type ExtractionContext struct {
	Source     string
	Result     *ParseResult
	lineStarts []int
	seen       map[string]bool // declared names, first classification wins
}

func NewExtractionContext(filePath string, lang Language, source string) *ExtractionContext {
	return &ExtractionContext{
		Source:     source,
		Result:     &ParseResult{FilePath: filePath, Language: lang},
		lineStarts: computeLineStarts(source),
		seen:       make(map[string]bool),
	}
}

func computeLineStarts(source string) []int {
	starts := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Position converts a byte offset into a 1-based line and 0-based column.
func (c *ExtractionContext) Position(offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	idx := sort.Search(len(c.lineStarts), func(i int) bool {
		return c.lineStarts[i] > offset
	}) - 1
	if idx < 0 {
		idx = 0
	}
	return idx + 1, offset - c.lineStarts[idx]
}

// Line returns the 1-based line of offset.
func (c *ExtractionContext) Line(offset int) int {
	line, _ := c.Position(offset)
	return line
}

// Declared reports whether name was already recorded for this file.
func (c *ExtractionContext) Declared(name string) bool {
	return c.seen[name]
}

// Declare records a declaration at offset unless the name was already taken
// by an earlier pass. It returns the stored declaration index or -1.
func (c *ExtractionContext) Declare(offset int, decl Declaration) int {
	decl.Name = strings.TrimSpace(decl.Name)
	if decl.Name == "" || c.seen[decl.Name] {
		return -1
	}
	c.seen[decl.Name] = true
	decl.FilePath = c.Result.FilePath
	decl.Language = c.Result.Language
	decl.Line, decl.Column = c.Position(offset)
	c.Result.Declarations = append(c.Result.Declarations, decl)
	return len(c.Result.Declarations) - 1
}

// AddExport appends exported names to an already declared name.
func (c *ExtractionContext) AddExport(name string, exported ...string) bool {
	for i := range c.Result.Declarations {
		d := &c.Result.Declarations[i]
		if d.Name != name {
			continue
		}
		for _, e := range exported {
			if e != "" && !d.IsExported(e) {
				d.ExportedNames = append(d.ExportedNames, e)
			}
		}
		return true
	}
	return false
}

func (c *ExtractionContext) AddImport(stmt ImportStatement) {
	if len(stmt.Names) == 0 {
		return
	}
	c.Result.Imports = append(c.Result.Imports, stmt)
}

func (c *ExtractionContext) Fail(phase string, err any) {
	c.Result.Errors = append(c.Result.Errors, fmt.Sprintf("%s: %v", phase, err))
}

// Run executes one extraction pass. A panic inside the pass is recorded in
// the result errors; everything collected before it is kept.
func (c *ExtractionContext) Run(phase string, pass func(*ExtractionContext)) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.Fail(phase, r)
			ok = false
		}
	}()
	pass(c)
	return true
}
