// # internal/engine/graph/builder.go
package graph

import (
	"path/filepath"
	"strings"
	"time"

	"compgraph/internal/engine/parser"
	"compgraph/internal/shared/util"
)

type BuildOption func(*buildConfig)

type buildConfig struct {
	globalFallback bool
	now            func() time.Time
	extensions     []string
}

// WithGlobalFallback toggles the workspace-wide name match used when an
// import cannot be resolved by path. It is on by default.
func WithGlobalFallback(enabled bool) BuildOption {
	return func(c *buildConfig) { c.globalFallback = enabled }
}

func WithClock(now func() time.Time) BuildOption {
	return func(c *buildConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithExtensions overrides the extensions tried when resolving an import path.
func WithExtensions(exts ...string) BuildOption {
	return func(c *buildConfig) {
		if len(exts) > 0 {
			c.extensions = exts
		}
	}
}

type exportKey struct {
	path string
	name string
}

type edgeKey struct {
	source string
	target string
	rel    Relationship
}

type builder struct {
	cfg  buildConfig
	root string

	nodes []ComponentNode
	edges []ComponentEdge

	ids      map[string]int
	byFile   map[string][]int    // absolute path -> node indexes
	exports  map[exportKey][]int // path key + exported name -> node indexes
	fileKeys map[string][]int    // path key -> exporting node indexes
	byName   map[string][]int    // exported name -> node indexes
	edgeIdx  map[edgeKey]int
}

// Build merges parse results into a graph in three passes: node collection
// with an export index, import edges, then inheritance edges. The result
// depends only on the input order, which callers keep sorted by path.
func Build(results []parser.ParseResult, rootPath string, opts ...BuildOption) *ComponentGraph {
	cfg := buildConfig{
		globalFallback: true,
		now:            time.Now,
		extensions:     parser.SourceExtensions,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	root := rootPath
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}

	b := &builder{
		cfg:      cfg,
		root:     root,
		ids:      make(map[string]int),
		byFile:   make(map[string][]int),
		exports:  make(map[exportKey][]int),
		fileKeys: make(map[string][]int),
		byName:   make(map[string][]int),
		edgeIdx:  make(map[edgeKey]int),
	}
	b.collectNodes(results)
	b.linkImports(results)
	b.linkInheritance()

	g := &ComponentGraph{
		Nodes:       b.nodes,
		Edges:       b.edges,
		RootPath:    root,
		GeneratedAt: cfg.now(),
		Languages:   collectLanguages(b.nodes),
	}
	g.reindex()
	return g
}

func (b *builder) absPath(p string) string {
	if p == "" {
		return p
	}
	if !filepath.IsAbs(p) && b.root != "" {
		p = filepath.Join(b.root, p)
	}
	return filepath.Clean(p)
}

func (b *builder) isSourceExt(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range b.cfg.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// pathKeys returns the index keys of an absolute path: the path itself, the
// root-relative path, and the root-relative path without a source extension.
func (b *builder) pathKeys(abs string) []string {
	keys := []string{filepath.ToSlash(abs)}
	if b.root == "" {
		return keys
	}
	rel := util.RelSlash(b.root, abs)
	if rel != keys[0] {
		keys = append(keys, rel)
	}
	if b.isSourceExt(filepath.Ext(rel)) {
		keys = append(keys, util.TrimExt(rel))
	}
	return keys
}

func appendIndex(list []int, idx int) []int {
	for _, v := range list {
		if v == idx {
			return list
		}
	}
	return append(list, idx)
}

func (b *builder) collectNodes(results []parser.ParseResult) {
	for _, res := range results {
		filePath := b.absPath(res.FilePath)
		for _, decl := range res.Declarations {
			if strings.TrimSpace(decl.Name) == "" {
				continue
			}
			path := filePath
			if decl.FilePath != "" {
				path = b.absPath(decl.FilePath)
			}
			id := NodeID(path, decl.Name)
			if _, dup := b.ids[id]; dup {
				continue
			}
			decl.FilePath = path
			if decl.Language == "" {
				decl.Language = res.Language
			}

			idx := len(b.nodes)
			b.nodes = append(b.nodes, ComponentNode{ID: id, Declaration: decl})
			b.ids[id] = idx
			b.byFile[path] = append(b.byFile[path], idx)

			for _, name := range decl.ExportedNames {
				b.byName[name] = appendIndex(b.byName[name], idx)
			}
			if len(decl.ExportedNames) == 0 {
				continue
			}
			for _, key := range b.pathKeys(path) {
				b.fileKeys[key] = appendIndex(b.fileKeys[key], idx)
				for _, name := range decl.ExportedNames {
					k := exportKey{path: key, name: name}
					b.exports[k] = appendIndex(b.exports[k], idx)
				}
			}
		}
	}
}

// matchSet collects resolved targets in first-seen order together with the
// imported names that reached each of them.
type matchSet struct {
	order []int
	names map[int][]string
}

func newMatchSet() *matchSet {
	return &matchSet{names: make(map[int][]string)}
}

func (s *matchSet) add(idx int, name string) {
	if _, ok := s.names[idx]; !ok {
		s.order = append(s.order, idx)
	}
	s.names[idx] = mergeNames(s.names[idx], []string{name})
}

func (s *matchSet) empty() bool { return len(s.order) == 0 }

func mergeNames(existing, incoming []string) []string {
	out := existing
	for _, n := range incoming {
		if n == "" {
			continue
		}
		found := false
		for _, e := range out {
			if e == n {
				found = true
				break
			}
		}
		if !found {
			out = append(out, n)
		}
	}
	return out
}

func (b *builder) linkImports(results []parser.ParseResult) {
	for _, res := range results {
		importer := b.absPath(res.FilePath)
		sources := b.byFile[importer]
		if len(sources) == 0 {
			continue
		}
		for _, stmt := range res.Imports {
			matches := b.resolve(stmt, importer)
			if matches.empty() {
				continue
			}
			rel := RelImports
			if stmt.IsReexport {
				rel = RelExports
			}
			for _, src := range sources {
				for _, tgt := range matches.order {
					b.addEdge(src, tgt, rel, matches.names[tgt])
				}
			}
		}
	}
}

func (b *builder) resolve(stmt parser.ImportStatement, importer string) *matchSet {
	matches := newMatchSet()

	var candidates []string
	switch {
	case stmt.IsRelative():
		base := filepath.Join(filepath.Dir(importer), filepath.FromSlash(stmt.Source))
		candidates = b.candidatePaths(base)
	case b.root != "" && stmt.Source != "":
		candidates = b.rootCandidates(stmt.Source)
	}
	for _, c := range candidates {
		b.lookupPath(c, stmt, matches)
		if !matches.empty() {
			break
		}
	}

	if matches.empty() && b.cfg.globalFallback {
		b.fallback(stmt, matches)
	}
	return matches
}

// candidatePaths lists the files an import of base may refer to: base itself,
// base with each source extension, and a directory index.
func (b *builder) candidatePaths(base string) []string {
	out := []string{base}
	for _, ext := range b.cfg.extensions {
		out = append(out, base+ext)
	}
	for _, ext := range b.cfg.extensions {
		out = append(out, filepath.Join(base, "index"+ext))
	}
	return append(out, filepath.Join(base, "__init__.py"))
}

// rootCandidates treats a bare specifier as root-relative, in both its
// literal and dotted-module (`app.models` -> `app/models`) spellings.
func (b *builder) rootCandidates(spec string) []string {
	variants := []string{spec}
	if !strings.Contains(spec, "/") && strings.Contains(spec, ".") {
		variants = append(variants, strings.ReplaceAll(spec, ".", "/"))
	}
	var out []string
	for _, v := range variants {
		out = append(out, b.candidatePaths(filepath.Join(b.root, filepath.FromSlash(v)))...)
	}
	return out
}

func (b *builder) lookupPath(candidate string, stmt parser.ImportStatement, matches *matchSet) {
	for _, key := range b.pathKeys(filepath.Clean(candidate)) {
		if stmt.HasWildcard() {
			for _, idx := range b.fileKeys[key] {
				matches.add(idx, primaryExport(b.nodes[idx]))
			}
			continue
		}
		for _, name := range stmt.Names {
			lookups := []string{name}
			if stmt.IsDefault {
				lookups = []string{parser.DefaultExportName, name}
			}
			for _, ln := range lookups {
				idxs := b.exports[exportKey{path: key, name: ln}]
				for _, idx := range idxs {
					matches.add(idx, name)
				}
				if len(idxs) > 0 {
					break
				}
			}
		}
	}
}

func primaryExport(n ComponentNode) string {
	for _, e := range n.ExportedNames {
		if e != parser.DefaultExportName {
			return e
		}
	}
	return n.Name
}

// fallback matches imported names against every export in the workspace,
// ignoring the specifier. Wildcards are never expanded here. A namespace
// binding matches direct members of a qualified name (`using A.B;` reaches
// `A.B.Type`).
func (b *builder) fallback(stmt parser.ImportStatement, matches *matchSet) {
	for _, name := range stmt.Names {
		if name == parser.WildcardName || name == parser.DefaultExportName {
			continue
		}
		if stmt.IsNamespace {
			prefix := stmt.Source + "."
			if stmt.Source == "" {
				continue
			}
			for idx, n := range b.nodes {
				for _, e := range n.ExportedNames {
					if strings.HasPrefix(e, prefix) && !strings.Contains(e[len(prefix):], ".") {
						matches.add(idx, n.Name)
						break
					}
				}
			}
			continue
		}
		for _, idx := range b.byName[name] {
			matches.add(idx, name)
		}
	}
}

func (b *builder) addEdge(src, tgt int, rel Relationship, names []string) {
	if src == tgt {
		return
	}
	key := edgeKey{source: b.nodes[src].ID, target: b.nodes[tgt].ID, rel: rel}
	if i, ok := b.edgeIdx[key]; ok {
		b.edges[i].Names = mergeNames(b.edges[i].Names, names)
		return
	}
	b.edgeIdx[key] = len(b.edges)
	b.edges = append(b.edges, ComponentEdge{
		Source:       key.source,
		Target:       key.target,
		Relationship: rel,
		Names:        mergeNames(nil, names),
	})
}

func (b *builder) linkInheritance() {
	for i := range b.nodes {
		desc := b.nodes[i].Description
		if desc == "" {
			continue
		}
		extends, implements := parser.ParseInheritance(desc)
		for _, base := range extends {
			if t := b.findByName(base, i); t >= 0 {
				b.addEdge(i, t, RelExtends, nil)
			}
		}
		for _, iface := range implements {
			if t := b.findByName(iface, i); t >= 0 {
				b.addEdge(i, t, RelImplements, nil)
			}
		}
	}
}

// findByName returns the first node in collection order named name, other
// than self. A qualified name (`models.Model`) falls back to its last segment.
func (b *builder) findByName(name string, self int) int {
	name = strings.TrimSpace(name)
	if idx := strings.IndexAny(name, "[<("); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	if name == "" || strings.Contains(name, "=") {
		return -1
	}
	for j, n := range b.nodes {
		if j != self && n.Name == name {
			return j
		}
	}
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		return b.findByName(name[dot+1:], self)
	}
	return -1
}
