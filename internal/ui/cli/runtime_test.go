package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	coreapp "compgraph/internal/core/app"
	"compgraph/internal/core/config"
	"compgraph/internal/engine/graph"
	"compgraph/internal/engine/parser"
)

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"A.ts":  "export function Foo() { return 1; }\n",
		"B.tsx": "import { Foo } from './A';\nexport function Bar() { return <div>{Foo()}</div>; }\n",
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestApplyModeOptions(t *testing.T) {
	cases := []struct {
		name string
		opts cliOptions
		want string
	}{
		{"too many roots", cliOptions{args: []string{"a", "b"}}, "at most one root path"},
		{"bad format", cliOptions{format: "dot"}, "-format must be one of"},
		{"out without format", cliOptions{out: "x.json"}, "-out requires -format"},
		{"focus without format", cliOptions{focus: "Card"}, "-focus requires -format or -ui"},
		{"once and watch", cliOptions{once: true, watch: true}, "cannot be combined"},
		{"once and ui", cliOptions{once: true, ui: true}, "cannot be combined"},
		{"stats and watch", cliOptions{stats: true, watch: true}, "cannot be combined"},
		{"negative history", cliOptions{historyList: -1}, "must be positive"},
		{"path without target", cliOptions{path: "Bar"}, "-path expects FROM,TO"},
		{"path and watch", cliOptions{path: "Bar,Foo", watch: true}, "cannot be combined"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := tc.opts
			err := applyModeOptions(&opts, config.DefaultConfig(), "/work")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestApplyModeOptions_Overrides(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := cliOptions{
		args:        []string{"src"},
		format:      "JSON",
		out:         "out/graph.json",
		noFallback:  true,
		history:     true,
		metricsAddr: ":9100",
		ui:          false,
	}
	if err := applyModeOptions(&opts, cfg, "/work"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Root != filepath.Clean("/work/src") {
		t.Fatalf("expected root override, got %q", cfg.Root)
	}
	if opts.format != "json" || opts.out != filepath.Clean("/work/out/graph.json") {
		t.Fatalf("unexpected normalized options: %+v", opts)
	}
	if cfg.Graph.FallbackEnabled() || !cfg.History.Enabled || cfg.Observability.MetricsAddr != ":9100" {
		t.Fatalf("flags not applied: %+v", cfg)
	}

	uiOpts := cliOptions{ui: true}
	if err := applyModeOptions(&uiOpts, config.DefaultConfig(), "/work"); err != nil {
		t.Fatal(err)
	}
	if !uiOpts.watch {
		t.Fatal("expected -ui to imply -watch")
	}
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "-version")
	if code != 0 || !strings.Contains(out, "compgraph v"+versionString) {
		t.Fatalf("unexpected version output %d %q", code, out)
	}
}

func TestRun_BadFlag(t *testing.T) {
	if code, _, _ := runCLI(t, "-no-such-flag"); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestRun_Stats(t *testing.T) {
	root := writeProject(t)
	code, out, errOut := runCLI(t, "-stats", root)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	for _, want := range []string{"components", "relationships", "no dependency cycles"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRun_Path(t *testing.T) {
	root := writeProject(t)
	code, out, errOut := runCLI(t, "-path", "Bar,Foo", root)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	if out != "Bar\n  -> Foo\n" {
		t.Fatalf("unexpected path output %q", out)
	}

	code, _, errOut = runCLI(t, "-path", "Foo,Bar", root)
	if code != 1 || !strings.Contains(errOut, "no path") {
		t.Fatalf("expected missing path failure, got %d %q", code, errOut)
	}
}

func TestRun_FormatJSONToFile(t *testing.T) {
	root := writeProject(t)
	out := filepath.Join(t.TempDir(), "graph.json")
	code, _, errOut := runCLI(t, "-format", "json", "-out", out, root)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Nodes []map[string]any `json:"nodes"`
		Edges []map[string]any `json:"edges"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(decoded.Nodes) != 2 || len(decoded.Edges) != 1 {
		t.Fatalf("unexpected graph: %s", raw)
	}
}

func TestRun_FormatMermaidWithFocus(t *testing.T) {
	root := writeProject(t)
	code, out, errOut := runCLI(t, "-format", "mermaid", "-focus", "Bar", "-hops", "0", root)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	if !strings.Contains(out, "flowchart TD") || !strings.Contains(out, "Bar") || strings.Contains(out, "Foo") {
		t.Fatalf("expected only the focus node:\n%s", out)
	}

	code, _, errOut = runCLI(t, "-format", "mermaid", "-focus", "Missing", root)
	if code != 1 || !strings.Contains(errOut, "no node matches") {
		t.Fatalf("expected unknown focus failure, got %d %q", code, errOut)
	}
}

func TestRun_OnceWritesConfiguredOutputs(t *testing.T) {
	root := writeProject(t)
	cfgPath := filepath.Join(root, "compgraph.toml")
	content := "[output]\nmermaid = \"docs/graph.mmd\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := runCLI(t, "-config", cfgPath, "-once")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	if _, err := os.Stat(filepath.Join(root, "docs", "graph.mmd")); err != nil {
		t.Fatalf("expected mermaid output next to the config: %v", err)
	}
	if !strings.Contains(out, "compgraph: ") {
		t.Fatalf("expected summary on stdout, got %q", out)
	}
}

func TestRun_HistoryRoundTrip(t *testing.T) {
	root := writeProject(t)
	if code, _, errOut := runCLI(t, "-history", "-once", root); code != 0 {
		t.Fatalf("scan with history failed: %s", errOut)
	}
	code, out, errOut := runCLI(t, "-history-list", "5", root)
	if code != 0 {
		t.Fatalf("history list failed: %s", errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one snapshot, got:\n%s", out)
	}
}

func TestResolveFocus(t *testing.T) {
	g := graph.Build([]parser.ParseResult{
		{FilePath: "/p/a.ts", Language: parser.LangTypeScript, Declarations: []parser.Declaration{{Name: "Dup", Type: parser.TypeFunction}}},
		{FilePath: "/p/b.ts", Language: parser.LangTypeScript, Declarations: []parser.Declaration{{Name: "Dup", Type: parser.TypeFunction}, {Name: "One", Type: parser.TypeFunction}}},
	}, "/p")

	id := graph.NodeID("/p/b.ts", "One")
	if got, err := resolveFocus(g, id); err != nil || got != id {
		t.Fatalf("expected id passthrough, got %q %v", got, err)
	}
	if got, err := resolveFocus(g, "One"); err != nil || got != id {
		t.Fatalf("expected unique name match, got %q %v", got, err)
	}
	if _, err := resolveFocus(g, "Dup"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
}

func TestObservabilityServer(t *testing.T) {
	root := writeProject(t)
	cfg := config.DefaultConfig()
	cfg.Root = root
	app, err := coreapp.NewWithCwd(cfg, root)
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	srv := NewObservabilityServer("127.0.0.1:0", app)
	if err := srv.Start(t.Context()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Stop(t.Context())

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the first rebuild, got %d", resp.StatusCode)
	}

	if _, err := app.Rebuild(t.Context()); err != nil {
		t.Fatal(err)
	}
	resp, err = http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var health coreapp.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || health.Status != "up" {
		t.Fatalf("expected healthy status, got %d %+v", resp.StatusCode, health)
	}

	resp, err = http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "compgraph_graph_nodes_total") {
		t.Fatalf("expected compgraph metrics in /metrics output")
	}
}
