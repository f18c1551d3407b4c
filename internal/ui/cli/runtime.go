package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "compgraph/internal/core/app"
	"compgraph/internal/core/config"
	coreerrors "compgraph/internal/core/errors"
	"compgraph/internal/engine/graph"
	"compgraph/internal/shared/observability"
	"compgraph/internal/shared/util"
)

// Run is the compgraph entry point. It returns the process exit code.
func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "compgraph v%s\n", versionString)
		return 0
	}

	cleanupLogs := configureLogging(stderr, opts.ui, opts.verbose)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	config.LoadDotEnv()
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if err := applyModeOptions(&opts, cfg, cwd); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: versionString,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		SampleRate:     cfg.Observability.SampleRate,
	})
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	app, err := coreapp.NewWithCwd(cfg, cwd)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	app.Version = versionString
	defer app.Close()

	if addr := strings.TrimSpace(cfg.Observability.MetricsAddr); addr != "" {
		srv := NewObservabilityServer(addr, app)
		if err := srv.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	if opts.historyList > 0 {
		return runHistoryList(ctx, app, opts.historyList, stdout, stderr)
	}

	update, err := app.Rebuild(ctx)
	if err != nil {
		if coreerrors.IsCode(err, coreerrors.CodeCancelled) {
			return 130
		}
		slog.Error("initial scan failed", "error", err)
		return 1
	}
	if cfg.History.Enabled {
		if _, err := app.SaveHistory(ctx); err != nil {
			slog.Warn("failed to save history snapshot", "error", err)
		}
	}

	if stopNow, code := runSingleCommand(app, opts, stdout, stderr); stopNow {
		return code
	}

	if _, err := app.GenerateOutputs(); err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}

	if !opts.watch {
		fmt.Fprint(stdout, renderSummary(app.ProjectName(), update))
		return 0
	}

	if err := app.StartWatcher(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}

	if opts.ui {
		if err := runUI(ctx, app, opts.focus, opts.hops); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	}

	fmt.Fprint(stdout, renderSummary(app.ProjectName(), update))
	<-ctx.Done()
	return 0
}

// loadConfig reads path, or ./compgraph.toml when path is empty. A missing
// default file yields the defaults.
func loadConfig(path string) (*config.Config, error) {
	if strings.TrimSpace(path) == "" {
		path = config.DefaultConfigFile
	}
	return config.Load(path)
}

// runSingleCommand handles the modes that print something and exit.
func runSingleCommand(app *coreapp.App, opts cliOptions, stdout, stderr io.Writer) (bool, int) {
	if opts.stats {
		fmt.Fprint(stdout, renderSummary(app.ProjectName(), app.LastUpdate()))
		return true, 0
	}
	if opts.path != "" {
		return true, runPath(app, opts.path, stdout, stderr)
	}
	if opts.format == "" {
		return false, 0
	}

	g := app.Graph()
	if opts.focus != "" {
		id, err := resolveFocus(g, opts.focus)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return true, 1
		}
		if g, err = app.Focus(id, opts.hops); err != nil {
			fmt.Fprintln(stderr, err.Error())
			return true, 1
		}
	}

	var out string
	switch opts.format {
	case "mermaid":
		out = app.Diagram(g).Source
	case "json":
		data, err := app.JSON(g)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return true, 1
		}
		out = string(data) + "\n"
	case "markdown":
		out = app.Markdown(app.Diagram(g))
	}

	if opts.out == "" {
		fmt.Fprint(stdout, out)
		return true, 0
	}
	if err := util.WriteStringWithDirs(opts.out, out, 0o644); err != nil {
		fmt.Fprintf(stderr, "write %s: %v\n", opts.out, err)
		return true, 1
	}
	slog.Info("graph written", "format", opts.format, "path", opts.out)
	return true, 0
}

// resolveFocus accepts a node id or a declaration name that is unique in g.
func resolveFocus(g *graph.ComponentGraph, value string) (string, error) {
	value = strings.TrimSpace(value)
	if g.HasNode(value) {
		return value, nil
	}
	var matches []string
	for _, n := range g.Nodes {
		if n.Name == value {
			matches = append(matches, n.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", coreerrors.Newf(coreerrors.CodeNotFound, "no node matches %q", value)
	case 1:
		return matches[0], nil
	default:
		return "", coreerrors.Newf(coreerrors.CodeValidationError, "%q is ambiguous, use one of: %s", value, strings.Join(matches, ", "))
	}
}

// runPath prints the chain of declaration names from FROM to TO, one edge per
// line.
func runPath(app *coreapp.App, spec string, stdout, stderr io.Writer) int {
	g := app.Graph()
	fromSpec, toSpec, _ := strings.Cut(spec, ",")
	from, err := resolveFocus(g, fromSpec)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	to, err := resolveFocus(g, toSpec)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	path, err := app.PathBetween(from, to)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	for i, id := range path {
		n, _ := g.Node(id)
		if i == 0 {
			fmt.Fprintln(stdout, n.Name)
			continue
		}
		fmt.Fprintf(stdout, "  -> %s\n", n.Name)
	}
	return 0
}

func runHistoryList(ctx context.Context, app *coreapp.App, limit int, stdout, stderr io.Writer) int {
	rows, err := app.RecentHistory(ctx, limit)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	fmt.Fprint(stdout, renderHistory(rows))
	return 0
}

func configureLogging(stderr io.Writer, uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	dir, err := config.StateDir()
	if err != nil {
		return "compgraph.log"
	}
	return filepath.Join(dir, "compgraph.log")
}
