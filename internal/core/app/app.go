package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"compgraph/internal/core/config"
	coreerrors "compgraph/internal/core/errors"
	"compgraph/internal/core/watcher"
	"compgraph/internal/data/history"
	"compgraph/internal/engine/graph"
	"compgraph/internal/engine/parser"
	"compgraph/internal/engine/scanner"
	"compgraph/internal/shared/observability"
	"compgraph/internal/shared/util"
)

// Update summarizes one finished rebuild.
type Update struct {
	Graph        *graph.ComponentGraph
	Stats        graph.GraphStats
	Cycles       [][]string
	Failures     []parser.ParseResult
	FilesVisited int
	Duration     time.Duration
}

// App is one analysis session. It owns the parser, scanner and parse cache,
// the status overlay, and the current graph, which is replaced wholesale on
// every rebuild.
type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	// Version is stamped into generated reports.
	Version string

	parser  *parser.Parser
	scanner *scanner.Scanner
	cache   *scanner.ParseCache
	overlay *graph.StatusOverlay
	limiter *util.Limiter

	rebuildMu sync.Mutex
	mu        sync.RWMutex
	graph     *graph.ComponentGraph
	last      Update

	globalFallback bool
	cwd            string

	historyMu sync.Mutex
	history   *history.Store

	updateMu sync.RWMutex
	onUpdate func(Update)

	watchMu       sync.Mutex
	activeWatcher *watcher.Watcher
	configWatcher *config.FileWatcher
}

// New builds a session for cfg, resolving relative paths against the
// current working directory.
func New(cfg *config.Config) (*App, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeIO, "resolve working directory")
	}
	return NewWithCwd(cfg, cwd)
}

func NewWithCwd(cfg *config.Config, cwd string) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return nil, err
	}

	cache, err := scanner.NewParseCache(cfg.Cache.ParseResults)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "create parse cache")
	}

	p := parser.NewParser()
	a := &App{
		Config:         cfg,
		Paths:          paths,
		parser:         p,
		cache:          cache,
		overlay:        graph.NewStatusOverlay(),
		limiter:        util.NewLimiter(cfg.Watch.RebuildRate, cfg.Watch.RebuildBurst),
		globalFallback: cfg.Graph.FallbackEnabled(),
		cwd:            cwd,
	}
	a.scanner = scanner.New(p,
		scanner.WithCache(cache),
		scanner.WithMaxFileBytes(cfg.MaxFileBytes),
		scanner.WithGitignore(cfg.RespectGitignore),
	)
	a.graph = graph.Build(nil, paths.Root)
	return a, nil
}

// SetGlobalFallback overrides graph.global_fallback for later rebuilds.
func (a *App) SetGlobalFallback(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.globalFallback = enabled
}

// config returns the active configuration, which a config file reload may
// replace.
func (a *App) config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Config
}

// applyConfig swaps in a reloaded configuration. The scan root is fixed for
// the lifetime of the session.
func (a *App) applyConfig(cfg *config.Config) {
	paths, err := config.ResolvePaths(cfg, a.cwd)
	if err != nil {
		slog.Warn("ignoring reloaded config", "error", err)
		return
	}
	a.mu.Lock()
	if paths.Root != a.Paths.Root {
		slog.Warn("scan root change requires a restart", "current", a.Paths.Root, "configured", paths.Root)
		paths.Root = a.Paths.Root
	}
	a.Config = cfg
	a.Paths = paths
	a.globalFallback = cfg.Graph.FallbackEnabled()
	a.limiter = util.NewLimiter(cfg.Watch.RebuildRate, cfg.Watch.RebuildBurst)
	a.mu.Unlock()
}

func (a *App) paths() config.ResolvedPaths {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Paths
}

func (a *App) SetUpdateHandler(fn func(Update)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = fn
}

func (a *App) emitUpdate(u Update) {
	a.updateMu.RLock()
	fn := a.onUpdate
	a.updateMu.RUnlock()
	if fn != nil {
		fn(u)
	}
}

func (a *App) Parser() *parser.Parser { return a.parser }

func (a *App) Overlay() *graph.StatusOverlay { return a.overlay }

// Rebuild scans the root and replaces the current graph. A cancelled scan
// leaves the previous graph in place and returns a CANCELLED error.
func (a *App) Rebuild(ctx context.Context) (Update, error) {
	a.rebuildMu.Lock()
	defer a.rebuildMu.Unlock()

	root := a.paths().Root
	ctx, span := observability.StartSpan(ctx, "app.Rebuild", "root", root)
	defer span.End()
	started := time.Now()

	cfg := a.config()
	report, err := a.scanner.Scan(ctx, root, cfg.Exclude)
	if err != nil {
		span.RecordError(err)
		return Update{}, err
	}
	if report.Cancelled {
		return Update{}, coreerrors.AddContext(
			coreerrors.Wrap(ctx.Err(), coreerrors.CodeCancelled, "rebuild cancelled"),
			coreerrors.CtxPath, root,
		)
	}

	a.mu.RLock()
	fallback := a.globalFallback
	a.mu.RUnlock()

	_, buildSpan := observability.StartSpan(ctx, "graph.Build")
	g := graph.Build(report.Results, report.Root,
		graph.WithGlobalFallback(fallback),
		graph.WithExtensions(a.parser.SupportedExtensions()...),
	)
	buildSpan.End()

	u := Update{
		Graph:        g,
		Stats:        graph.Stats(g),
		Cycles:       graph.DetectCycles(g),
		Failures:     report.Failures,
		FilesVisited: report.FilesVisited,
		Duration:     time.Since(started),
	}

	a.mu.Lock()
	a.graph = g
	a.last = u
	a.mu.Unlock()

	dropped := a.overlay.Retain(g)
	observability.GraphNodes.Set(float64(u.Stats.TotalNodes))
	observability.GraphEdges.Set(float64(u.Stats.TotalEdges))
	observability.RebuildDuration.Observe(u.Duration.Seconds())

	slog.Info("graph rebuilt",
		"root", report.Root,
		"files", report.FilesVisited,
		"nodes", u.Stats.TotalNodes,
		"edges", u.Stats.TotalEdges,
		"cycles", len(u.Cycles),
		"failures", len(u.Failures),
		"statuses_dropped", dropped,
		"duration", u.Duration,
	)
	a.emitUpdate(u)
	return u, nil
}

// Graph returns the current graph. It is never nil and must not be mutated.
func (a *App) Graph() *graph.ComponentGraph {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.graph
}

// LastUpdate returns the result of the latest successful rebuild.
func (a *App) LastUpdate() Update {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

func (a *App) Stats() graph.GraphStats {
	return graph.Stats(a.Graph())
}

// Focus returns the neighbourhood of id. A negative hops uses graph.max_hops.
func (a *App) Focus(id string, hops int) (*graph.ComponentGraph, error) {
	g := a.Graph()
	if !g.HasNode(id) {
		return nil, coreerrors.AddContext(
			coreerrors.Newf(coreerrors.CodeNotFound, "unknown node %q", id),
			coreerrors.CtxNode, id,
		)
	}
	if hops < 0 {
		hops = a.config().Graph.MaxHops
	}
	return graph.Subgraph(g, id, hops), nil
}

// PathBetween returns the shortest directed chain of node ids from one node
// to another in the current graph.
func (a *App) PathBetween(from, to string) ([]string, error) {
	g := a.Graph()
	for _, id := range []string{from, to} {
		if !g.HasNode(id) {
			return nil, coreerrors.AddContext(
				coreerrors.Newf(coreerrors.CodeNotFound, "unknown node %q", id),
				coreerrors.CtxNode, id,
			)
		}
	}
	path, ok := graph.FindPath(g, from, to)
	if !ok {
		return nil, coreerrors.Newf(coreerrors.CodeNotFound, "no path from %q to %q", from, to)
	}
	return path, nil
}

// SetStatus records the edit status of a node in the current graph.
func (a *App) SetStatus(id, status, errorMessage string) error {
	st, err := graph.ParseEditStatus(status)
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeValidationError, "invalid edit status")
	}
	if !a.Graph().HasNode(id) {
		return coreerrors.AddContext(
			coreerrors.Newf(coreerrors.CodeNotFound, "unknown node %q", id),
			coreerrors.CtxNode, id,
		)
	}
	a.overlay.Set(id, st, errorMessage)
	return nil
}

// ProjectName is the base name of the scan root.
func (a *App) ProjectName() string {
	return filepath.Base(a.paths().Root)
}

// Close stops watchers and releases the history store.
func (a *App) Close() error {
	a.StopWatcher()
	a.historyMu.Lock()
	defer a.historyMu.Unlock()
	if a.history == nil {
		return nil
	}
	err := a.history.Close()
	a.history = nil
	return err
}
