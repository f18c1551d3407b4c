package graph

import (
	"math"

	"compgraph/internal/engine/parser"
)

// Subgraph returns the nodes within maxHops undirected hops of focus and the
// edges between them. An unknown focus yields an empty graph; a negative hop
// limit is treated as zero.
func Subgraph(g *ComponentGraph, focus string, maxHops int) *ComponentGraph {
	out := &ComponentGraph{}
	if g == nil {
		out.reindex()
		return out
	}
	out.RootPath = g.RootPath
	out.GeneratedAt = g.GeneratedAt
	if !g.HasNode(focus) {
		out.reindex()
		return out
	}
	if maxHops < 0 {
		maxHops = 0
	}

	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}

	hops := map[string]int{focus: 0}
	queue := []string{focus}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if hops[curr] >= maxHops {
			continue
		}
		for _, next := range adj[curr] {
			if _, seen := hops[next]; seen {
				continue
			}
			hops[next] = hops[curr] + 1
			queue = append(queue, next)
		}
	}

	for _, n := range g.Nodes {
		if _, ok := hops[n.ID]; ok {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		_, src := hops[e.Source]
		_, dst := hops[e.Target]
		if src && dst {
			out.Edges = append(out.Edges, e)
		}
	}
	out.Languages = collectLanguages(out.Nodes)
	out.reindex()
	return out
}

type GraphStats struct {
	TotalNodes       int                          `json:"totalNodes"`
	TotalEdges       int                          `json:"totalEdges"`
	CountsByType     map[parser.ComponentType]int `json:"countsByType"`
	CountsByLanguage map[parser.Language]int      `json:"countsByLanguage"`
	AvgConnections   float64                      `json:"avgConnections"`
}

// Stats aggregates node and edge counts. AvgConnections is the mean number of
// edges touching a node, rounded to two decimals.
func Stats(g *ComponentGraph) GraphStats {
	st := GraphStats{
		CountsByType:     make(map[parser.ComponentType]int),
		CountsByLanguage: make(map[parser.Language]int),
	}
	if g == nil {
		return st
	}
	st.TotalNodes = len(g.Nodes)
	st.TotalEdges = len(g.Edges)
	for _, n := range g.Nodes {
		st.CountsByType[n.Type]++
		st.CountsByLanguage[n.Language]++
	}
	if st.TotalNodes == 0 {
		return st
	}

	touching := 0
	for _, d := range g.Degrees() {
		touching += d
	}
	st.AvgConnections = math.Round(float64(touching)/float64(st.TotalNodes)*100) / 100
	return st
}
