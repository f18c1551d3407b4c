package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"compgraph/internal/core/app"
	"compgraph/internal/core/config"
	coreerrors "compgraph/internal/core/errors"
	"compgraph/internal/engine/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFiles(t *testing.T, tmpDir string) {
	t.Helper()
	files := map[string]string{
		"web/A.ts":          "export function Foo() { return 1; }\n",
		"web/B.tsx":         "import { Foo } from './A';\nexport function Bar() { return <div>{Foo()}</div>; }\n",
		"web/index.ts":      "export { Foo } from './A';\nexport function version() { return 1; }\n",
		"web/repo.ts":       "export interface IRepo { get(): void }\nexport class BaseRepo {}\nexport class UserRepo extends BaseRepo implements IRepo {}\n",
		"app/models.py":     "class User:\n    pass\n\nclass Admin(User):\n    pass\n",
		"app/views.py":      "from .models import User\n\ndef show():\n    pass\n",
		"game/Player.cs":    "namespace Game.Players\n{\n    public class Player\n    {\n    }\n}\n",
		"game/Game.cs":      "using Game.Players;\n\nnamespace Game\n{\n    public class GameManager\n    {\n    }\n}\n",
		"node_modules/x.js": "export function leaked() {}\n",
		"README.md":         "# Fixture\n\n<!-- compgraph:graph:start -->\n<!-- compgraph:graph:end -->\n",
	}
	for rel, content := range files {
		path := filepath.Join(tmpDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func nodeID(t *testing.T, g *graph.ComponentGraph, name string) string {
	t.Helper()
	for _, n := range g.Nodes {
		if n.Name == name {
			return n.ID
		}
	}
	require.Failf(t, "node not found", "%s", name)
	return ""
}

func hasEdge(g *graph.ComponentGraph, src, dst string, rel graph.Relationship) bool {
	for _, e := range g.Edges {
		if e.Source == src && e.Target == dst && e.Relationship == rel {
			return true
		}
	}
	return false
}

func TestFullPipelineIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFiles(t, tmpDir)

	cfg := config.DefaultConfig()
	cfg.Root = tmpDir
	cfg.Output.Mermaid = "out/graph.mmd"
	cfg.Output.JSON = "out/graph.json"
	cfg.Output.Markdown = "out/report.md"
	cfg.Output.UpdateMarkdown = []config.MarkdownInjection{{File: "README.md", Marker: "graph"}}
	cfg.History.Enabled = true

	appInstance, err := app.NewWithCwd(cfg, tmpDir)
	require.NoError(t, err)
	defer appInstance.Close()

	ctx := context.Background()
	update, err := appInstance.Rebuild(ctx)
	require.NoError(t, err)

	g := update.Graph
	require.NotNil(t, g)
	assert.Equal(t, tmpDir, g.RootPath)

	names := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		names = append(names, n.Name)
	}
	for _, want := range []string{"Foo", "Bar", "version", "IRepo", "BaseRepo", "UserRepo", "User", "Admin", "show", "Player", "GameManager"} {
		assert.Contains(t, names, want)
	}
	assert.NotContains(t, names, "leaked", "node_modules must be excluded")

	assert.True(t, hasEdge(g, nodeID(t, g, "Bar"), nodeID(t, g, "Foo"), graph.RelImports))
	assert.True(t, hasEdge(g, nodeID(t, g, "version"), nodeID(t, g, "Foo"), graph.RelExports))
	assert.True(t, hasEdge(g, nodeID(t, g, "UserRepo"), nodeID(t, g, "BaseRepo"), graph.RelExtends))
	assert.True(t, hasEdge(g, nodeID(t, g, "UserRepo"), nodeID(t, g, "IRepo"), graph.RelImplements))
	assert.True(t, hasEdge(g, nodeID(t, g, "Admin"), nodeID(t, g, "User"), graph.RelExtends))
	assert.True(t, hasEdge(g, nodeID(t, g, "show"), nodeID(t, g, "User"), graph.RelImports))
	assert.True(t, hasEdge(g, nodeID(t, g, "GameManager"), nodeID(t, g, "Player"), graph.RelImports))

	for _, e := range g.Edges {
		assert.NotEqual(t, e.Source, e.Target, "self edge %+v", e)
	}

	stats := appInstance.Stats()
	assert.Equal(t, len(g.Nodes), stats.TotalNodes)
	assert.Equal(t, len(g.Edges), stats.TotalEdges)
	assert.Empty(t, update.Cycles)

	// Focus and status annotations.
	barID := nodeID(t, g, "Bar")
	sub, err := appInstance.Focus(barID, 1)
	require.NoError(t, err)
	assert.Len(t, sub.Nodes, 2)
	require.NoError(t, appInstance.SetStatus(barID, "editing", ""))
	err = appInstance.SetStatus("missing", "editing", "")
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNotFound))

	res, err := appInstance.GenerateOutputs()
	require.NoError(t, err)
	assert.Len(t, res.Written, 4)

	mmd, err := os.ReadFile(filepath.Join(tmpDir, "out", "graph.mmd"))
	require.NoError(t, err)
	assert.Contains(t, string(mmd), "flowchart TD")
	assert.Contains(t, string(mmd), "✏️ Bar")
	assert.Contains(t, string(mmd), "status_editing")

	raw, err := os.ReadFile(filepath.Join(tmpDir, "out", "graph.json"))
	require.NoError(t, err)
	var exported map[string]any
	require.NoError(t, json.Unmarshal(raw, &exported))
	assert.Len(t, exported["nodes"], len(g.Nodes))

	readme, err := os.ReadFile(filepath.Join(tmpDir, "README.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(readme), "# Fixture\n"))
	assert.Contains(t, string(readme), "```mermaid")

	// History snapshot of this scan.
	snap, err := appInstance.SaveHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.TotalNodes, snap.NodeCount)
	rows, err := appInstance.RecentHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, snap.ScanID, rows[0].ScanID)

	// Rebuild after an edit keeps annotations on surviving nodes.
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "web", "C.ts"), []byte("export function Baz() { return 2; }\n"), 0o644))
	require.NoError(t, appInstance.HandleChanges(ctx, []string{filepath.Join(tmpDir, "web", "C.ts")}))
	assert.Equal(t, stats.TotalNodes+1, appInstance.Stats().TotalNodes)
	assert.Equal(t, graph.StatusEditing, appInstance.Overlay().Get(barID).Status)

	rows, err = appInstance.RecentHistory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "HandleChanges records history when enabled")
}

func TestIntegration_IdsStableAcrossSessions(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFiles(t, tmpDir)

	build := func() *graph.ComponentGraph {
		cfg := config.DefaultConfig()
		cfg.Root = tmpDir
		a, err := app.NewWithCwd(cfg, tmpDir)
		require.NoError(t, err)
		defer a.Close()
		u, err := a.Rebuild(context.Background())
		require.NoError(t, err)
		return u.Graph
	}

	first, second := build(), build()
	require.Equal(t, len(first.Nodes), len(second.Nodes))
	for i := range first.Nodes {
		assert.Equal(t, first.Nodes[i].ID, second.Nodes[i].ID)
	}
	assert.Equal(t, first.Edges, second.Edges)
}
