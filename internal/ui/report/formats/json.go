package formats

import (
	"encoding/json"
	"time"

	"compgraph/internal/engine/graph"
	"compgraph/internal/engine/parser"
)

type jsonGraph struct {
	RootPath    string            `json:"rootPath"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Languages   []parser.Language `json:"languages"`
	Stats       graph.GraphStats  `json:"stats"`
	Nodes       []jsonNode        `json:"nodes"`
	Edges       []jsonEdge        `json:"edges"`
	Cycles      [][]string        `json:"cycles,omitempty"`
}

type jsonNode struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Type          parser.ComponentType `json:"type"`
	FilePath      string               `json:"filePath"`
	Line          int                  `json:"line"`
	Column        int                  `json:"column"`
	Language      parser.Language      `json:"language"`
	Description   string               `json:"description,omitempty"`
	ExportedNames []string             `json:"exportedNames,omitempty"`
	Status        graph.EditStatus     `json:"editStatus"`
	ErrorMessage  string               `json:"errorMessage,omitempty"`
}

type jsonEdge struct {
	Source       string             `json:"sourceId"`
	Target       string             `json:"targetId"`
	Relationship graph.Relationship `json:"relationship"`
	Names        []string           `json:"names,omitempty"`
}

// JSONGenerator exports the graph with live statuses merged in.
type JSONGenerator struct {
	Indent bool
}

func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{Indent: true}
}

func (j *JSONGenerator) Generate(g *graph.ComponentGraph, overlay *graph.StatusOverlay) ([]byte, error) {
	out := jsonGraph{
		Nodes: []jsonNode{},
		Edges: []jsonEdge{},
		Stats: graph.Stats(g),
	}
	if g != nil {
		out.RootPath = g.RootPath
		out.GeneratedAt = g.GeneratedAt
		out.Languages = g.Languages
		out.Cycles = graph.DetectCycles(g)
		for _, n := range g.Nodes {
			st := overlay.Get(n.ID)
			out.Nodes = append(out.Nodes, jsonNode{
				ID:            n.ID,
				Name:          n.Name,
				Type:          n.Type,
				FilePath:      n.FilePath,
				Line:          n.Line,
				Column:        n.Column,
				Language:      n.Language,
				Description:   n.Description,
				ExportedNames: n.ExportedNames,
				Status:        st.Status,
				ErrorMessage:  st.ErrorMessage,
			})
		}
		for _, e := range g.Edges {
			out.Edges = append(out.Edges, jsonEdge{
				Source:       e.Source,
				Target:       e.Target,
				Relationship: e.Relationship,
				Names:        e.Names,
			})
		}
	}
	if j.Indent {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}
