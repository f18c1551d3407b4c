// # internal/engine/graph/types.go
package graph

import (
	"sort"
	"time"

	"compgraph/internal/engine/parser"
)

// Relationship is the kind of a directed edge between two components.
type Relationship string

const (
	RelImports    Relationship = "imports"
	RelExports    Relationship = "exports"
	RelExtends    Relationship = "extends"
	RelImplements Relationship = "implements"
	RelUses       Relationship = "uses"
	RelProvides   Relationship = "provides"
	RelConsumes   Relationship = "consumes"
)

// ComponentNode is one declaration placed in the graph. Structural fields are
// never changed after Build; live edit status lives in a StatusOverlay.
type ComponentNode struct {
	ID string
	parser.Declaration
}

// ComponentEdge is unique per (Source, Target, Relationship). Names keeps the
// imported names in first-seen order.
type ComponentEdge struct {
	Source       string
	Target       string
	Relationship Relationship
	Names        []string
}

type ComponentGraph struct {
	Nodes       []ComponentNode
	Edges       []ComponentEdge
	RootPath    string
	GeneratedAt time.Time
	Languages   []parser.Language // sorted, unique

	index map[string]int
}

func (g *ComponentGraph) reindex() {
	g.index = make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		g.index[n.ID] = i
	}
}

// Node returns the node with id.
func (g *ComponentGraph) Node(id string) (ComponentNode, bool) {
	if g == nil {
		return ComponentNode{}, false
	}
	if g.index == nil {
		g.reindex()
	}
	i, ok := g.index[id]
	if !ok {
		return ComponentNode{}, false
	}
	return g.Nodes[i], true
}

func (g *ComponentGraph) HasNode(id string) bool {
	_, ok := g.Node(id)
	return ok
}

// Degrees counts, per node id, the edges touching it in either direction.
func (g *ComponentGraph) Degrees() map[string]int {
	deg := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		deg[n.ID] = 0
	}
	for _, e := range g.Edges {
		deg[e.Source]++
		deg[e.Target]++
	}
	return deg
}

// EdgesOf returns the edges leaving id and the edges arriving at id.
func (g *ComponentGraph) EdgesOf(id string) (out, in []ComponentEdge) {
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
		if e.Target == id {
			in = append(in, e)
		}
	}
	return out, in
}

func collectLanguages(nodes []ComponentNode) []parser.Language {
	seen := make(map[parser.Language]bool)
	var out []parser.Language
	for _, n := range nodes {
		if n.Language == "" || seen[n.Language] {
			continue
		}
		seen[n.Language] = true
		out = append(out, n.Language)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
