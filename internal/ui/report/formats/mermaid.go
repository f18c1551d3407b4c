// # internal/ui/report/formats/mermaid.go
package formats

import (
	"fmt"
	"sort"
	"strings"

	"compgraph/internal/engine/graph"
	"compgraph/internal/engine/parser"
)

const DefaultMaxNodes = 50

var Directions = []string{"TD", "TB", "BT", "LR", "RL"}

type MermaidGenerator struct {
	Direction  string
	Theme      string
	ShowLabels bool
	MaxNodes   int
}

func NewMermaidGenerator() *MermaidGenerator {
	return &MermaidGenerator{
		Direction:  "TD",
		Theme:      "default",
		ShowLabels: true,
		MaxNodes:   DefaultMaxNodes,
	}
}

// Navigation locates the declaration behind one diagram node.
type Navigation struct {
	NodeID    string `json:"nodeId"`
	DiagramID string `json:"diagramId"`
	FilePath  string `json:"filePath"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
}

type Diagram struct {
	Source string
	// IDs maps graph node ids to diagram identifiers.
	IDs        map[string]string
	Navigation []Navigation
	Omitted    int
}

// Fenced wraps the diagram in a ```mermaid block for markdown embedding.
func (d Diagram) Fenced() string {
	return "```mermaid\n" + strings.TrimRight(d.Source, "\n") + "\n```\n"
}

type cluster struct {
	id    string
	label string
}

var clusters = map[parser.ComponentType]cluster{
	parser.TypeComponent: {"cluster_components", "UI Components"},
	parser.TypeHook:      {"cluster_hooks", "Hooks"},
	parser.TypeFunction:  {"cluster_functions", "Functions"},
	parser.TypeService:   {"cluster_services", "Services"},
	parser.TypeAPI:       {"cluster_api", "API"},
	parser.TypeContext:   {"cluster_context", "Context"},
	parser.TypeStore:     {"cluster_stores", "State"},
	parser.TypeClass:     {"cluster_classes", "Classes"},
	parser.TypeType:      {"cluster_types", "Types"},
	parser.TypeConfig:    {"cluster_config", "Configuration"},
	parser.TypeUtil:      {"cluster_utils", "Utilities"},
	parser.TypeModule:    {"cluster_modules", "Modules"},
	parser.TypeUnknown:   {"cluster_other", "Other"},
}

var typeStyles = map[parser.ComponentType]string{
	parser.TypeComponent: "fill:#e3f2fd,stroke:#1565c0,color:#000000",
	parser.TypeHook:      "fill:#f3e5f5,stroke:#6a1b9a,color:#000000",
	parser.TypeFunction:  "fill:#e8f5e9,stroke:#2e7d32,color:#000000",
	parser.TypeService:   "fill:#fff3e0,stroke:#e65100,color:#000000",
	parser.TypeAPI:       "fill:#fff8e1,stroke:#ff8f00,color:#000000",
	parser.TypeContext:   "fill:#e0f7fa,stroke:#00838f,color:#000000",
	parser.TypeStore:     "fill:#e0f2f1,stroke:#00695c,color:#000000",
	parser.TypeClass:     "fill:#ede7f6,stroke:#4527a0,color:#000000",
	parser.TypeType:      "fill:#fce4ec,stroke:#ad1457,color:#000000",
	parser.TypeConfig:    "fill:#f1f8e9,stroke:#558b2f,color:#000000",
	parser.TypeUtil:      "fill:#eceff1,stroke:#455a64,color:#000000",
	parser.TypeModule:    "fill:#f5f5f5,stroke:#616161,color:#000000",
	parser.TypeUnknown:   "fill:#fafafa,stroke:#9e9e9e,color:#000000",
}

// Status classes are emitted after type classes so they win when both apply.
var statusStyles = []struct {
	status graph.EditStatus
	style  string
}{
	{graph.StatusQueued, "fill:#fff9c4,stroke:#f9a825,stroke-width:2px,color:#000000"},
	{graph.StatusEditing, "fill:#ffe0b2,stroke:#ef6c00,stroke-width:3px,color:#000000"},
	{graph.StatusCompleted, "fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px,color:#000000"},
	{graph.StatusError, "fill:#ffcdd2,stroke:#c62828,stroke-width:3px,color:#000000"},
}

var statusGlyphs = map[graph.EditStatus]string{
	graph.StatusQueued:    "⏳",
	graph.StatusEditing:   "✏️",
	graph.StatusCompleted: "✅",
	graph.StatusError:     "❌",
	graph.StatusSkipped:   "⏭️",
	graph.StatusManual:    "👤",
}

func shape(t parser.ComponentType, id, label string) string {
	label = "\"" + escapeLabel(label) + "\""
	switch t {
	case parser.TypeComponent:
		return id + "[" + label + "]"
	case parser.TypeHook:
		return id + "([" + label + "])"
	case parser.TypeFunction:
		return id + "(" + label + ")"
	case parser.TypeService, parser.TypeAPI:
		return id + "[[" + label + "]]"
	case parser.TypeContext, parser.TypeStore:
		return id + "[(" + label + ")]"
	case parser.TypeClass:
		return id + "[/" + label + "/]"
	case parser.TypeType, parser.TypeConfig:
		return id + "{{" + label + "}}"
	case parser.TypeUtil:
		return id + "((" + label + "))"
	case parser.TypeModule:
		return id + "[\\" + label + "\\]"
	}
	return id + ">" + label + "]"
}

func arrow(rel graph.Relationship) string {
	switch rel {
	case graph.RelExports, graph.RelImplements:
		return "-.->"
	case graph.RelExtends:
		return "==>"
	case graph.RelProvides:
		return "--o"
	case graph.RelConsumes:
		return "o--o"
	}
	return "-->"
}

// Generate renders g as a flowchart. Graphs larger than MaxNodes keep only the
// best-connected nodes; ties keep graph order.
func (m *MermaidGenerator) Generate(g *graph.ComponentGraph, overlay *graph.StatusOverlay) Diagram {
	dir := strings.ToUpper(strings.TrimSpace(m.Direction))
	if dir == "" {
		dir = "TD"
	}
	theme := strings.TrimSpace(m.Theme)
	if theme == "" {
		theme = "default"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%%%%{init: {'theme': '%s', 'flowchart': {'curve': 'basis'}}}%%%%\n", theme))
	b.WriteString("flowchart " + dir + "\n")

	d := Diagram{IDs: map[string]string{}}
	if g == nil || len(g.Nodes) == 0 {
		d.Source = b.String()
		return d
	}

	nodes := m.selectNodes(g)
	d.Omitted = len(g.Nodes) - len(nodes)
	names := make([]string, len(nodes))
	kept := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		names[i] = n.ID
		kept[n.ID] = true
	}
	ids := makeIDs(names)
	d.IDs = ids

	byType := make(map[parser.ComponentType][]graph.ComponentNode)
	for _, n := range nodes {
		byType[clusterType(n.Type)] = append(byType[clusterType(n.Type)], n)
	}
	for _, t := range parser.ComponentTypes {
		members := byType[t]
		if len(members) == 0 {
			continue
		}
		c := clusters[t]
		b.WriteString(fmt.Sprintf("  subgraph %s[\"%s\"]\n", c.id, c.label))
		for _, n := range members {
			label := n.Name
			if glyph := statusGlyphs[overlay.Get(n.ID).Status]; glyph != "" {
				label = glyph + " " + label
			}
			b.WriteString("    " + shape(n.Type, ids[n.ID], label) + "\n")
		}
		b.WriteString("  end\n")
	}

	b.WriteString("\n")
	for _, e := range g.Edges {
		if !kept[e.Source] || !kept[e.Target] {
			continue
		}
		label := ""
		if m.ShowLabels && len(e.Names) > 0 {
			label = "|" + escapeLabel(strings.Join(e.Names, ", ")) + "|"
		}
		b.WriteString(fmt.Sprintf("  %s %s%s %s\n", ids[e.Source], arrow(e.Relationship), label, ids[e.Target]))
	}

	b.WriteString("\n")
	for _, t := range parser.ComponentTypes {
		members := byType[t]
		if len(members) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  classDef type_%s %s;\n", t, typeStyles[t]))
		b.WriteString(fmt.Sprintf("  class %s type_%s;\n", strings.Join(nodeIDs(members, ids), ","), t))
	}
	for _, st := range statusStyles {
		var members []graph.ComponentNode
		for _, n := range nodes {
			if overlay.Get(n.ID).Status == st.status {
				members = append(members, n)
			}
		}
		if len(members) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  classDef status_%s %s;\n", st.status, st.style))
		b.WriteString(fmt.Sprintf("  class %s status_%s;\n", strings.Join(nodeIDs(members, ids), ","), st.status))
	}

	b.WriteString("\n")
	for _, n := range nodes {
		d.Navigation = append(d.Navigation, Navigation{
			NodeID:    n.ID,
			DiagramID: ids[n.ID],
			FilePath:  n.FilePath,
			Line:      n.Line,
			Column:    n.Column,
		})
		b.WriteString(fmt.Sprintf("  click %s call compgraphNavigate(\"%s\")\n", ids[n.ID], ids[n.ID]))
	}

	d.Source = b.String()
	return d
}

func clusterType(t parser.ComponentType) parser.ComponentType {
	if _, ok := clusters[t]; ok {
		return t
	}
	return parser.TypeUnknown
}

func nodeIDs(nodes []graph.ComponentNode, ids map[string]string) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.ID
	}
	return toIDs(names, ids)
}

func (m *MermaidGenerator) selectNodes(g *graph.ComponentGraph) []graph.ComponentNode {
	limit := m.MaxNodes
	if limit <= 0 {
		limit = DefaultMaxNodes
	}
	if len(g.Nodes) <= limit {
		return g.Nodes
	}

	degrees := g.Degrees()
	order := make([]int, len(g.Nodes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return degrees[g.Nodes[order[a]].ID] > degrees[g.Nodes[order[b]].ID]
	})
	keep := make(map[int]bool, limit)
	for _, idx := range order[:limit] {
		keep[idx] = true
	}

	out := make([]graph.ComponentNode, 0, limit)
	for i, n := range g.Nodes {
		if keep[i] {
			out = append(out, n)
		}
	}
	return out
}
