package app

import (
	"fmt"
	"log/slog"
	"time"

	coreerrors "compgraph/internal/core/errors"
	"compgraph/internal/engine/graph"
	"compgraph/internal/shared/util"
	"compgraph/internal/ui/report"
	"compgraph/internal/ui/report/formats"
)

// OutputResult lists the files written by GenerateOutputs.
type OutputResult struct {
	Written []string
	Diagram formats.Diagram
}

// MermaidGenerator returns a generator configured from the diagram section.
func (a *App) MermaidGenerator() *formats.MermaidGenerator {
	gen := formats.NewMermaidGenerator()
	d := a.config().Diagram
	if d.Direction != "" {
		gen.Direction = d.Direction
	}
	if d.Theme != "" {
		gen.Theme = d.Theme
	}
	gen.ShowLabels = d.LabelsEnabled()
	gen.MaxNodes = d.MaxNodes
	return gen
}

// Diagram renders g, or the current graph when g is nil, with live statuses.
func (a *App) Diagram(g *graph.ComponentGraph) formats.Diagram {
	if g == nil {
		g = a.Graph()
	}
	return a.MermaidGenerator().Generate(g, a.overlay)
}

func (a *App) JSON(g *graph.ComponentGraph) ([]byte, error) {
	if g == nil {
		g = a.Graph()
	}
	return formats.NewJSONGenerator().Generate(g, a.overlay)
}

// Markdown renders the analysis report for the latest rebuild.
func (a *App) Markdown(diagram formats.Diagram) string {
	u := a.LastUpdate()
	g := a.Graph()
	return report.RenderMarkdown(report.ReportData{
		Graph:    g,
		Stats:    graph.Stats(g),
		Cycles:   u.Cycles,
		Failures: u.Failures,
		Diagram:  diagram.Fenced(),
	}, report.ReportOptions{
		ProjectName: a.ProjectName(),
		Version:     a.Version,
		GeneratedAt: time.Now().UTC(),
	})
}

// GenerateOutputs writes every configured output for the current graph.
// Each target is attempted; the first failure is returned after the rest have
// been written.
func (a *App) GenerateOutputs() (OutputResult, error) {
	paths := a.paths()
	diagram := a.Diagram(nil)
	res := OutputResult{Diagram: diagram}
	var firstErr error
	fail := func(target, path string, err error) {
		slog.Warn("failed to write output", "target", target, "path", path, "error", err)
		if firstErr == nil {
			firstErr = coreerrors.AddContext(
				coreerrors.Wrap(err, coreerrors.CodeIO, fmt.Sprintf("write %s output", target)),
				coreerrors.CtxPath, path,
			)
		}
	}

	if p := paths.Mermaid; p != "" {
		if err := util.WriteStringWithDirs(p, diagram.Source, 0o644); err != nil {
			fail("mermaid", p, err)
		} else {
			res.Written = append(res.Written, p)
		}
	}

	if p := paths.JSON; p != "" {
		data, err := a.JSON(nil)
		if err == nil {
			err = util.WriteFileWithDirs(p, data, 0o644)
		}
		if err != nil {
			fail("json", p, err)
		} else {
			res.Written = append(res.Written, p)
		}
	}

	if p := paths.Markdown; p != "" {
		if err := util.WriteStringWithDirs(p, a.Markdown(diagram), 0o644); err != nil {
			fail("markdown", p, err)
		} else {
			res.Written = append(res.Written, p)
		}
	}

	for _, inj := range paths.UpdateMarkdown {
		if err := report.InjectDiagram(inj.File, inj.Marker, diagram.Fenced()); err != nil {
			fail("markdown injection", inj.File, err)
			continue
		}
		res.Written = append(res.Written, inj.File)
	}

	if diagram.Omitted > 0 {
		slog.Info("diagram truncated", "shown", len(diagram.IDs), "omitted", diagram.Omitted)
	}
	return res, firstErr
}
