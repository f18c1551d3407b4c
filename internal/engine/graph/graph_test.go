// # internal/engine/graph/graph_test.go
package graph

import (
	"reflect"
	"testing"
	"time"

	"compgraph/internal/engine/parser"
)

const root = "/proj"

var fixedClock = WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) })

func parseAll(files map[string]string, order ...string) []parser.ParseResult {
	p := parser.NewParser()
	out := make([]parser.ParseResult, 0, len(order))
	for _, path := range order {
		out = append(out, p.ParseFile(path, files[path]))
	}
	return out
}

func nodeByName(t *testing.T, g *ComponentGraph, name string) ComponentNode {
	t.Helper()
	for _, n := range g.Nodes {
		if n.Name == name {
			return n
		}
	}
	t.Fatalf("node %q not found", name)
	return ComponentNode{}
}

func findEdge(g *ComponentGraph, src, dst string, rel Relationship) (ComponentEdge, bool) {
	for _, e := range g.Edges {
		if e.Source == src && e.Target == dst && e.Relationship == rel {
			return e, true
		}
	}
	return ComponentEdge{}, false
}

func assertNoSelfEdges(t *testing.T, g *ComponentGraph) {
	t.Helper()
	for _, e := range g.Edges {
		if e.Source == e.Target {
			t.Fatalf("self edge found: %+v", e)
		}
	}
}

func TestBuild_BasicImport(t *testing.T) {
	files := map[string]string{
		"/proj/A.ts":  "export function Foo() { return 1; }\n",
		"/proj/B.tsx": "import { Foo } from './A';\nexport function Bar() { return <div>{Foo()}</div>; }\n",
	}
	g := Build(parseAll(files, "/proj/A.ts", "/proj/B.tsx"), root, fixedClock)

	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(g.Nodes))
	}
	foo := nodeByName(t, g, "Foo")
	bar := nodeByName(t, g, "Bar")
	if foo.Type != parser.TypeFunction || bar.Type != parser.TypeComponent {
		t.Fatalf("unexpected types: Foo=%q Bar=%q", foo.Type, bar.Type)
	}
	if len(g.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %+v", g.Edges)
	}
	e := g.Edges[0]
	if e.Source != bar.ID || e.Target != foo.ID || e.Relationship != RelImports {
		t.Fatalf("unexpected edge %+v", e)
	}
	if !reflect.DeepEqual(e.Names, []string{"Foo"}) {
		t.Fatalf("unexpected names %v", e.Names)
	}
	if !reflect.DeepEqual(g.Languages, []parser.Language{parser.LangReact, parser.LangTypeScript}) {
		t.Fatalf("unexpected languages %v", g.Languages)
	}
	if g.RootPath != root {
		t.Fatalf("unexpected root %q", g.RootPath)
	}
}

func TestBuild_UnresolvedImportCreatesNoEdges(t *testing.T) {
	files := map[string]string{
		"/proj/B.tsx": "import { Ghost } from './nowhere';\nexport function Bar() { return <div />; }\n",
	}
	g := Build(parseAll(files, "/proj/B.tsx"), root)
	if len(g.Nodes) != 1 || len(g.Edges) != 0 {
		t.Fatalf("expected 1 node and no edges, got %d nodes %+v", len(g.Nodes), g.Edges)
	}
}

func TestBuild_EdgeNamesMerge(t *testing.T) {
	files := map[string]string{
		"/proj/A.ts": "export function Foo() { return 1; }\nexport { Foo as Alias };\n",
		"/proj/B.ts": "import { Foo } from './A';\nimport { Alias } from './A.js';\nexport function useBar() { return Foo(); }\n",
	}
	g := Build(parseAll(files, "/proj/A.ts", "/proj/B.ts"), root)

	if len(g.Edges) != 1 {
		t.Fatalf("expected a single merged edge, got %+v", g.Edges)
	}
	if !reflect.DeepEqual(g.Edges[0].Names, []string{"Foo", "Alias"}) {
		t.Fatalf("unexpected merged names %v", g.Edges[0].Names)
	}
}

func TestBuild_FirstMatchingCandidateWins(t *testing.T) {
	files := map[string]string{
		"/proj/A.ts":       "export function Foo() { return 1; }\n",
		"/proj/A/index.ts": "export function Foo() { return 2; }\n",
		"/proj/B.ts":       "import { Foo } from './A';\nexport function useBar() { return Foo(); }\n",
	}
	g := Build(parseAll(files, "/proj/A.ts", "/proj/A/index.ts", "/proj/B.ts"), root)

	if len(g.Edges) != 1 {
		t.Fatalf("expected one edge, got %+v", g.Edges)
	}
	if want := NodeID("/proj/A.ts", "Foo"); g.Edges[0].Target != want {
		t.Fatalf("expected edge to A.ts, got target %s", g.Edges[0].Target)
	}
}

func TestBuild_SelfImportIsSkipped(t *testing.T) {
	files := map[string]string{
		"/proj/A.ts": "import { Foo } from './A';\nexport function Foo() { return 1; }\nexport function other() { return Foo(); }\n",
	}
	g := Build(parseAll(files, "/proj/A.ts"), root)
	assertNoSelfEdges(t, g)

	foo := nodeByName(t, g, "Foo")
	other := nodeByName(t, g, "other")
	if _, ok := findEdge(g, other.ID, foo.ID, RelImports); !ok {
		t.Fatalf("expected other -> Foo edge, got %+v", g.Edges)
	}
	if len(g.Edges) != 1 {
		t.Fatalf("expected exactly one edge, got %+v", g.Edges)
	}
}

func TestBuild_PythonInheritance(t *testing.T) {
	files := map[string]string{
		"/proj/shapes.py": "class Base:\n    pass\n\nclass Derived(Base):\n    pass\n",
	}
	g := Build(parseAll(files, "/proj/shapes.py"), root)
	base := nodeByName(t, g, "Base")
	derived := nodeByName(t, g, "Derived")
	if _, ok := findEdge(g, derived.ID, base.ID, RelExtends); !ok {
		t.Fatalf("expected Derived extends Base, got %+v", g.Edges)
	}
}

func TestBuild_ImplementsEdges(t *testing.T) {
	files := map[string]string{
		"/proj/repo.ts": "export interface IRepo { get(): void }\nexport class BaseRepo {}\nexport class UserRepo extends BaseRepo implements IRepo {}\n",
	}
	g := Build(parseAll(files, "/proj/repo.ts"), root)
	user := nodeByName(t, g, "UserRepo")
	if _, ok := findEdge(g, user.ID, nodeByName(t, g, "BaseRepo").ID, RelExtends); !ok {
		t.Fatalf("missing extends edge: %+v", g.Edges)
	}
	if _, ok := findEdge(g, user.ID, nodeByName(t, g, "IRepo").ID, RelImplements); !ok {
		t.Fatalf("missing implements edge: %+v", g.Edges)
	}
}

func TestBuild_GlobalFallbackToggle(t *testing.T) {
	files := map[string]string{
		"/proj/lib/Foo.ts": "export function Foo() { return 1; }\n",
		"/proj/B.ts":       "import { Foo } from 'some-lib';\nexport function useBar() { return Foo(); }\n",
	}
	results := parseAll(files, "/proj/lib/Foo.ts", "/proj/B.ts")

	if g := Build(results, root); len(g.Edges) != 1 {
		t.Fatalf("expected fallback edge, got %+v", g.Edges)
	}
	if g := Build(results, root, WithGlobalFallback(false)); len(g.Edges) != 0 {
		t.Fatalf("expected no edges without fallback, got %+v", g.Edges)
	}
}

func TestBuild_WildcardAndDefaultImports(t *testing.T) {
	files := map[string]string{
		"/proj/util/index.ts": "export function alpha() { return 1; }\nexport function beta() { return 2; }\n",
		"/proj/Main.ts":       "export default function Main() { return 0; }\n",
		"/proj/app.ts":        "import * as u from './util';\nimport Entry from './Main';\nexport function run() { return u.alpha(); }\n",
	}
	g := Build(parseAll(files, "/proj/util/index.ts", "/proj/Main.ts", "/proj/app.ts"), root)
	run := nodeByName(t, g, "run")

	for _, name := range []string{"alpha", "beta"} {
		e, ok := findEdge(g, run.ID, nodeByName(t, g, name).ID, RelImports)
		if !ok || !reflect.DeepEqual(e.Names, []string{name}) {
			t.Fatalf("expected wildcard edge run -> %s, got %+v", name, g.Edges)
		}
	}
	e, ok := findEdge(g, run.ID, nodeByName(t, g, "Main").ID, RelImports)
	if !ok || !reflect.DeepEqual(e.Names, []string{"Entry"}) {
		t.Fatalf("expected default import edge, got %+v", g.Edges)
	}
}

func TestBuild_ReexportCreatesExportsEdge(t *testing.T) {
	files := map[string]string{
		"/proj/A.ts":     "export function Foo() { return 1; }\n",
		"/proj/index.ts": "export { Foo } from './A';\nexport function version() { return 1; }\n",
	}
	g := Build(parseAll(files, "/proj/A.ts", "/proj/index.ts"), root)
	if _, ok := findEdge(g, nodeByName(t, g, "version").ID, nodeByName(t, g, "Foo").ID, RelExports); !ok {
		t.Fatalf("expected exports edge, got %+v", g.Edges)
	}
}

func TestBuild_PythonRelativeAndDottedImports(t *testing.T) {
	files := map[string]string{
		"/proj/app/models.py": "class User:\n    pass\n",
		"/proj/app/views.py":  "from .models import User\n\ndef show():\n    pass\n",
		"/proj/cli.py":        "from app.models import User\n\ndef main():\n    pass\n",
	}
	g := Build(parseAll(files, "/proj/app/models.py", "/proj/app/views.py", "/proj/cli.py"), root, WithGlobalFallback(false))
	user := nodeByName(t, g, "User")
	for _, from := range []string{"show", "main"} {
		if _, ok := findEdge(g, nodeByName(t, g, from).ID, user.ID, RelImports); !ok {
			t.Fatalf("expected %s -> User edge, got %+v", from, g.Edges)
		}
	}
}

func TestBuild_CSharpNamespaceUsing(t *testing.T) {
	files := map[string]string{
		"/proj/Player.cs": "namespace Game.Players\n{\n    public class Player\n    {\n    }\n}\n",
		"/proj/Game.cs":   "using Game.Players;\n\nnamespace Game\n{\n    public class GameManager\n    {\n    }\n}\n",
	}
	g := Build(parseAll(files, "/proj/Player.cs", "/proj/Game.cs"), root)
	e, ok := findEdge(g, nodeByName(t, g, "GameManager").ID, nodeByName(t, g, "Player").ID, RelImports)
	if !ok || !reflect.DeepEqual(e.Names, []string{"Player"}) {
		t.Fatalf("expected namespace edge, got %+v", g.Edges)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	files := map[string]string{
		"/proj/A.ts":  "export function Foo() { return 1; }\n",
		"/proj/B.tsx": "import { Foo } from './A';\nexport function Bar() { return <div />; }\n",
	}
	order := []string{"/proj/A.ts", "/proj/B.tsx"}
	g1 := Build(parseAll(files, order...), root, fixedClock)
	g2 := Build(parseAll(files, order...), root, fixedClock)

	if !reflect.DeepEqual(g1.Nodes, g2.Nodes) || !reflect.DeepEqual(g1.Edges, g2.Edges) {
		t.Fatal("rebuilding an unchanged input changed the graph")
	}
	if !g1.GeneratedAt.Equal(g2.GeneratedAt) {
		t.Fatal("expected the injected clock to be used")
	}
}

func TestNodeID(t *testing.T) {
	a := NodeID("/proj/A.ts", "Foo")
	if a != NodeID("/proj/A.ts", "Foo") {
		t.Fatal("NodeID must be deterministic")
	}
	if a == NodeID("/proj/B.ts", "Foo") {
		t.Fatal("same name in different files must not collide")
	}
	if len(a) != len("Foo_")+8 {
		t.Fatalf("unexpected id shape %q", a)
	}
}

func chainGraph() *ComponentGraph {
	g := &ComponentGraph{RootPath: root}
	for _, id := range []string{"a", "b", "c", "d", "x"} {
		g.Nodes = append(g.Nodes, ComponentNode{ID: id, Declaration: parser.Declaration{
			Name: id, Type: parser.TypeFunction, Language: parser.LangTypeScript,
		}})
	}
	g.Edges = []ComponentEdge{
		{Source: "a", Target: "b", Relationship: RelImports},
		{Source: "c", Target: "b", Relationship: RelImports},
		{Source: "c", Target: "d", Relationship: RelExtends},
	}
	return g
}

func nodeIDs(g *ComponentGraph) []string {
	var out []string
	for _, n := range g.Nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestSubgraph(t *testing.T) {
	g := chainGraph()

	cases := []struct {
		name  string
		focus string
		hops  int
		nodes []string
		edges int
	}{
		{name: "OneHopUndirected", focus: "b", hops: 1, nodes: []string{"a", "b", "c"}, edges: 2},
		{name: "TwoHops", focus: "a", hops: 2, nodes: []string{"a", "b", "c"}, edges: 2},
		{name: "ThreeHops", focus: "a", hops: 3, nodes: []string{"a", "b", "c", "d"}, edges: 3},
		{name: "ZeroHops", focus: "c", hops: 0, nodes: []string{"c"}, edges: 0},
		{name: "NegativeHops", focus: "c", hops: -4, nodes: []string{"c"}, edges: 0},
		{name: "Isolated", focus: "x", hops: 5, nodes: []string{"x"}, edges: 0},
		{name: "MissingFocus", focus: "nope", hops: 2, nodes: nil, edges: 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			sub := Subgraph(g, tc.focus, tc.hops)
			if got := nodeIDs(sub); !reflect.DeepEqual(got, tc.nodes) {
				t.Fatalf("nodes = %v, want %v", got, tc.nodes)
			}
			if len(sub.Edges) != tc.edges {
				t.Fatalf("edges = %+v, want %d", sub.Edges, tc.edges)
			}
			for _, e := range sub.Edges {
				if !sub.HasNode(e.Source) || !sub.HasNode(e.Target) {
					t.Fatalf("edge %+v escapes the subgraph", e)
				}
			}
		})
	}
}

func TestEdgesOf(t *testing.T) {
	g := chainGraph()
	out, in := g.EdgesOf("c")
	if len(out) != 2 || len(in) != 0 {
		t.Fatalf("expected two outgoing edges from c, got out=%v in=%v", out, in)
	}
	out, in = g.EdgesOf("b")
	if len(out) != 0 || len(in) != 2 {
		t.Fatalf("expected two incoming edges to b, got out=%v in=%v", out, in)
	}
}

func TestStats(t *testing.T) {
	g := chainGraph()
	st := Stats(g)
	if st.TotalNodes != 5 || st.TotalEdges != 3 {
		t.Fatalf("unexpected totals %+v", st)
	}
	// degrees 1,2,2,1,0 over 5 nodes
	if st.AvgConnections != 1.2 {
		t.Fatalf("unexpected avg %v", st.AvgConnections)
	}
	if st.CountsByType[parser.TypeFunction] != 5 || st.CountsByLanguage[parser.LangTypeScript] != 5 {
		t.Fatalf("unexpected counts %+v", st)
	}

	three := &ComponentGraph{Nodes: g.Nodes[:3], Edges: g.Edges[:2]}
	if got := Stats(three).AvgConnections; got != 1.33 {
		t.Fatalf("expected rounding to 1.33, got %v", got)
	}
	if got := Stats(&ComponentGraph{}).AvgConnections; got != 0 {
		t.Fatalf("expected 0 for empty graph, got %v", got)
	}
}

func TestDetectCyclesAndFindPath(t *testing.T) {
	g := chainGraph()
	if cycles := DetectCycles(g); len(cycles) != 0 {
		t.Fatalf("expected no cycles, got %v", cycles)
	}
	g.Edges = append(g.Edges, ComponentEdge{Source: "b", Target: "a", Relationship: RelImports})
	cycles := DetectCycles(g)
	if len(cycles) != 1 || !reflect.DeepEqual(cycles[0], []string{"a", "b"}) {
		t.Fatalf("unexpected cycles %v", cycles)
	}

	path, ok := FindPath(g, "c", "a")
	if !ok || !reflect.DeepEqual(path, []string{"c", "b", "a"}) {
		t.Fatalf("unexpected path %v %v", path, ok)
	}
	if _, ok := FindPath(g, "d", "a"); ok {
		t.Fatal("d has no outgoing edges")
	}
}

func TestStatusOverlay(t *testing.T) {
	g := chainGraph()
	o := NewStatusOverlay()

	if got := o.Get("a").Status; got != StatusIdle {
		t.Fatalf("expected idle default, got %q", got)
	}
	o.Set("a", StatusEditing, "")
	o.Set("gone", StatusError, "boom")
	if st := o.Get("gone"); st.Status != StatusError || st.ErrorMessage != "boom" || st.LastModified.IsZero() {
		t.Fatalf("unexpected status %+v", st)
	}

	if dropped := o.Retain(g); dropped != 1 {
		t.Fatalf("expected 1 dropped entry, got %d", dropped)
	}
	snap := o.Snapshot()
	if len(snap) != 1 || snap["a"].Status != StatusEditing {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	o.Set("a", StatusIdle, "")
	if len(o.Snapshot()) != 0 {
		t.Fatal("setting idle should clear the entry")
	}

	if _, err := ParseEditStatus("Completed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseEditStatus("paused"); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}
