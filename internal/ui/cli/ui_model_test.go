package cli

import (
	"strings"
	"testing"

	coreapp "compgraph/internal/core/app"
	"compgraph/internal/engine/graph"
	"compgraph/internal/engine/parser"

	tea "github.com/charmbracelet/bubbletea"
)

type stubSession struct {
	g       *graph.ComponentGraph
	overlay *graph.StatusOverlay
}

func (s *stubSession) Graph() *graph.ComponentGraph { return s.g }

func (s *stubSession) Focus(id string, hops int) (*graph.ComponentGraph, error) {
	return graph.Subgraph(s.g, id, hops), nil
}

func (s *stubSession) SetStatus(id, status, msg string) error {
	st, err := graph.ParseEditStatus(status)
	if err != nil {
		return err
	}
	s.overlay.Set(id, st, msg)
	return nil
}

func (s *stubSession) Overlay() *graph.StatusOverlay { return s.overlay }

func newStubSession() *stubSession {
	g := graph.Build([]parser.ParseResult{
		{
			FilePath: "/p/A.ts",
			Language: parser.LangTypeScript,
			Declarations: []parser.Declaration{
				{Name: "Foo", Type: parser.TypeFunction, Line: 1, ExportedNames: []string{"Foo"}},
			},
		},
		{
			FilePath: "/p/B.ts",
			Language: parser.LangTypeScript,
			Declarations: []parser.Declaration{
				{Name: "useBar", Type: parser.TypeHook, Line: 2, ExportedNames: []string{"useBar"}},
			},
			Imports: []parser.ImportStatement{{Source: "./A", Names: []string{"Foo"}}},
		},
	}, "/p")
	return &stubSession{g: g, overlay: graph.NewStatusOverlay()}
}

func TestModel_UpdateAndFocus(t *testing.T) {
	src := newStubSession()
	m := initialModel(src, 1)

	updated, _ := m.Update(updateMsg{update: coreapp.Update{Graph: src.g, Stats: graph.Stats(src.g)}})
	state, ok := updated.(model)
	if !ok {
		t.Fatalf("expected model type, got %T", updated)
	}
	if len(state.nodeList.Items()) != 2 {
		t.Fatalf("expected 2 node items, got %d", len(state.nodeList.Items()))
	}
	if state.stats.TotalEdges != 1 {
		t.Fatalf("expected stats from update, got %+v", state.stats)
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyEnter})
	state = updated.(model)
	if state.focusID == "" || state.focusGraph == nil {
		t.Fatal("expected enter to focus the selected node")
	}
	if len(state.focusGraph.Nodes) != 2 {
		t.Fatalf("expected neighbour within one hop, got %d nodes", len(state.focusGraph.Nodes))
	}

	if view := state.View(); !strings.Contains(view, "1 outgoing, 0 incoming") && !strings.Contains(view, "0 outgoing, 1 incoming") {
		t.Fatalf("expected edge counts for the focus node in view:\n%s", view)
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'-'}})
	state = updated.(model)
	if state.hops != 0 || len(state.focusGraph.Nodes) != 1 {
		t.Fatalf("expected hops 0 and only the focus node, got %d hops %d nodes", state.hops, len(state.focusGraph.Nodes))
	}

	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyEsc})
	state = updated.(model)
	if state.focusID != "" {
		t.Fatal("expected esc to leave focus")
	}
}

func TestModel_CycleStatus(t *testing.T) {
	src := newStubSession()
	m := initialModel(src, 2)
	updated, _ := m.Update(updateMsg{update: coreapp.Update{Graph: src.g}})
	state := updated.(model)

	it, ok := state.selected()
	if !ok {
		t.Fatal("expected a selected item")
	}
	updated, _ = state.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	state = updated.(model)
	if got := src.overlay.Get(it.id).Status; got != graph.StatusQueued {
		t.Fatalf("expected queued after one press, got %q", got)
	}
	if state.statusLine == "" {
		t.Fatal("expected a status line message")
	}
}

func TestNextStatusWraps(t *testing.T) {
	last := graph.EditStatuses[len(graph.EditStatuses)-1]
	if got := nextStatus(last); got != graph.EditStatuses[0] {
		t.Fatalf("expected wrap to %q, got %q", graph.EditStatuses[0], got)
	}
	if got := nextStatus("bogus"); got != graph.StatusQueued {
		t.Fatalf("expected queued for unknown status, got %q", got)
	}
}
