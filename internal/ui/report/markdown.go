// # internal/ui/report/markdown.go
package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"compgraph/internal/engine/graph"
	"compgraph/internal/engine/parser"
	"compgraph/internal/shared/util"
)

const markerPrefix = "compgraph"

// InjectDiagram replaces the content between the marker comments in filePath
// with diagram and writes the file back atomically.
func InjectDiagram(filePath, marker, diagram string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read markdown file %q: %w", filePath, err)
	}

	next, err := ReplaceBetweenMarkers(string(content), marker, diagram)
	if err != nil {
		return err
	}
	if err := util.ReplaceFileAtomic(filePath, next); err != nil {
		return fmt.Errorf("replace markdown file %q: %w", filePath, err)
	}
	return nil
}

func ReplaceBetweenMarkers(content, marker, replacement string) (string, error) {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return "", fmt.Errorf("markdown marker must not be empty")
	}

	newline := "\n"
	if strings.Contains(content, "\r\n") {
		newline = "\r\n"
	}

	start, end := MarkerComments(marker)
	if strings.Count(content, start) != 1 || strings.Count(content, end) != 1 {
		return "", fmt.Errorf("markdown marker %q must appear exactly once for start and end", marker)
	}

	startIdx := strings.Index(content, start)
	endIdx := strings.Index(content, end)
	if endIdx < startIdx {
		return "", fmt.Errorf("invalid marker order for %q", marker)
	}

	prefix := content[:startIdx+len(start)]
	suffix := content[endIdx:]
	clean := strings.TrimRight(replacement, "\r\n")
	if newline != "\n" {
		clean = strings.ReplaceAll(clean, "\n", newline)
	}
	return prefix + newline + clean + newline + suffix, nil
}

// MarkerComments returns the start and end comments delimiting marker.
func MarkerComments(marker string) (string, string) {
	return fmt.Sprintf("<!-- %s:%s:start -->", markerPrefix, marker),
		fmt.Sprintf("<!-- %s:%s:end -->", markerPrefix, marker)
}

type ReportData struct {
	Graph    *graph.ComponentGraph
	Stats    graph.GraphStats
	Cycles   [][]string
	Failures []parser.ParseResult
	// Diagram is a fenced mermaid block, omitted when empty.
	Diagram string
}

type ReportOptions struct {
	ProjectName string
	Version     string
	GeneratedAt time.Time
}

// RenderMarkdown builds the analysis report: summary tables, dependency
// cycles, files that failed to parse and the diagram.
func RenderMarkdown(data ReportData, opts ReportOptions) string {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Component Graph Report\n")
	b.WriteString("project: " + nonEmpty(opts.ProjectName, "unknown") + "\n")
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(opts.Version, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Component Graph\n\n")
	b.WriteString("## Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Components | %d |\n", data.Stats.TotalNodes))
	b.WriteString(fmt.Sprintf("| Relationships | %d |\n", data.Stats.TotalEdges))
	b.WriteString(fmt.Sprintf("| Avg Connections | %.2f |\n", data.Stats.AvgConnections))
	b.WriteString(fmt.Sprintf("| Dependency Cycles | %d |\n", len(data.Cycles)))
	b.WriteString(fmt.Sprintf("| Failed Files | %d |\n\n", len(data.Failures)))

	b.WriteString("## Components by Type\n")
	b.WriteString("| Type | Count |\n")
	b.WriteString("| --- | --- |\n")
	for _, t := range parser.ComponentTypes {
		if n := data.Stats.CountsByType[t]; n > 0 {
			b.WriteString(fmt.Sprintf("| %s | %d |\n", t, n))
		}
	}
	b.WriteString("\n")

	b.WriteString("## Components by Language\n")
	b.WriteString("| Language | Count |\n")
	b.WriteString("| --- | --- |\n")
	langs := make(map[string]int, len(data.Stats.CountsByLanguage))
	for lang, n := range data.Stats.CountsByLanguage {
		langs[string(lang)] = n
	}
	for _, lang := range util.SortedStringKeys(langs) {
		b.WriteString(fmt.Sprintf("| %s | %d |\n", lang, langs[lang]))
	}
	b.WriteString("\n")

	writeCycles(&b, data.Graph, data.Cycles)
	writeFailures(&b, data.Graph, data.Failures)

	if strings.TrimSpace(data.Diagram) != "" {
		b.WriteString("## Diagram\n")
		b.WriteString(strings.TrimRight(data.Diagram, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func writeCycles(b *strings.Builder, g *graph.ComponentGraph, cycles [][]string) {
	b.WriteString("## Dependency Cycles\n")
	if len(cycles) == 0 {
		b.WriteString("No dependency cycles detected.\n\n")
		return
	}
	b.WriteString("| # | Cycle | Length |\n")
	b.WriteString("| --- | --- | --- |\n")
	for i, cycle := range cycles {
		names := make([]string, len(cycle))
		for j, id := range cycle {
			names[j] = nodeName(g, id)
		}
		b.WriteString(fmt.Sprintf("| %d | `%s` | %d |\n", i+1, strings.Join(names, " -> "), len(cycle)))
	}
	b.WriteString("\n")
}

func writeFailures(b *strings.Builder, g *graph.ComponentGraph, failures []parser.ParseResult) {
	if len(failures) == 0 {
		return
	}
	root := ""
	if g != nil {
		root = g.RootPath
	}
	b.WriteString("## Failed Files\n")
	b.WriteString("| File | Error |\n")
	b.WriteString("| --- | --- |\n")
	for _, f := range failures {
		path := f.FilePath
		if root != "" {
			path = util.RelSlash(root, path)
		}
		b.WriteString(fmt.Sprintf("| `%s` | %s |\n", path, strings.ReplaceAll(strings.Join(f.Errors, "; "), "|", "\\|")))
	}
	b.WriteString("\n")
}

func nodeName(g *graph.ComponentGraph, id string) string {
	if n, ok := g.Node(id); ok {
		return n.Name
	}
	return id
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
