package cli

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"compgraph/internal/core/config"
)

const versionString = "1.0.0"

var outputFormats = []string{"mermaid", "json", "markdown"}

type cliOptions struct {
	configPath  string
	once        bool
	watch       bool
	ui          bool
	focus       string
	hops        int
	stats       bool
	path        string
	format      string
	out         string
	noFallback  bool
	history     bool
	historyList int
	metricsAddr string
	verbose     bool
	version     bool
	args        []string
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("compgraph", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "Path to config file (default ./"+config.DefaultConfigFile+")")
	fs.BoolVar(&opts.once, "once", false, "Scan once, write outputs and exit")
	fs.BoolVar(&opts.watch, "watch", false, "Keep running and rebuild when files change")
	fs.BoolVar(&opts.ui, "ui", false, "Browse the graph in a terminal UI (implies -watch)")
	fs.StringVar(&opts.focus, "focus", "", "Restrict -format output to the neighbourhood of a node id or unique name")
	fs.IntVar(&opts.hops, "hops", -1, "Hop limit for -focus (default graph.max_hops)")
	fs.BoolVar(&opts.stats, "stats", false, "Print graph statistics and exit")
	fs.StringVar(&opts.path, "path", "", "Print the shortest dependency path between two nodes (FROM,TO) and exit")
	fs.StringVar(&opts.format, "format", "", "Print the graph as mermaid, json or markdown and exit")
	fs.StringVar(&opts.out, "out", "", "Write -format output to this file instead of stdout")
	fs.BoolVar(&opts.noFallback, "no-fallback", false, "Disable workspace-wide name matching for unresolved imports")
	fs.BoolVar(&opts.history, "history", false, "Record a statistics snapshot after each scan")
	fs.IntVar(&opts.historyList, "history-list", 0, "Print the N most recent history snapshots and exit")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	opts.args = fs.Args()
	return opts, nil
}

// applyModeOptions checks flag combinations and folds flag overrides into cfg.
// A positional argument replaces the configured root; it is taken relative to
// cwd.
func applyModeOptions(opts *cliOptions, cfg *config.Config, cwd string) error {
	if len(opts.args) > 1 {
		return fmt.Errorf("expected at most one root path, got %d", len(opts.args))
	}
	if len(opts.args) == 1 {
		cfg.Root = config.ResolveRelative(cwd, opts.args[0])
	}

	opts.format = strings.ToLower(strings.TrimSpace(opts.format))
	if opts.format != "" && !slices.Contains(outputFormats, opts.format) {
		return fmt.Errorf("-format must be one of %s, got %q", strings.Join(outputFormats, ", "), opts.format)
	}
	if opts.out != "" && opts.format == "" {
		return fmt.Errorf("-out requires -format")
	}
	if opts.focus != "" && opts.format == "" && !opts.ui {
		return fmt.Errorf("-focus requires -format or -ui")
	}
	if opts.path != "" {
		from, to, ok := strings.Cut(opts.path, ",")
		if !ok || strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
			return fmt.Errorf("-path expects FROM,TO")
		}
	}
	if opts.historyList < 0 {
		return fmt.Errorf("-history-list must be positive")
	}

	if opts.ui {
		opts.watch = true
	}
	oneShot := opts.stats || opts.path != "" || opts.format != "" || opts.historyList > 0
	if opts.once && opts.watch {
		return fmt.Errorf("-once cannot be combined with -watch or -ui")
	}
	if oneShot && opts.watch {
		return fmt.Errorf("-stats, -path, -format and -history-list cannot be combined with -watch or -ui")
	}

	if opts.noFallback {
		f := false
		cfg.Graph.GlobalFallback = &f
	}
	if opts.history {
		cfg.History.Enabled = true
	}
	if opts.metricsAddr != "" {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}
	if opts.out != "" {
		opts.out = filepath.Clean(config.ResolveRelative(cwd, opts.out))
	}
	return nil
}
