package config

import (
	"os"
	"path/filepath"
	"strings"

	coreerrors "compgraph/internal/core/errors"
)

type ResolvedPaths struct {
	Root           string
	HistoryPath    string
	Mermaid        string
	JSON           string
	Markdown       string
	UpdateMarkdown []MarkdownInjection
}

// ResolvePaths makes every configured path absolute. The scan root is taken
// relative to the config file's directory (cwd for defaults); outputs and the
// history database are taken relative to the scan root.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, coreerrors.New(coreerrors.CodeValidationError, "cwd must not be empty")
	}
	base := cwd
	if cfg.path != "" {
		base = filepath.Dir(ResolveRelative(cwd, cfg.path))
	}

	root := ResolveRelative(base, cfg.Root)
	resolved := ResolvedPaths{
		Root:        root,
		HistoryPath: ResolveRelative(root, cfg.History.Path),
	}
	if cfg.Output.Mermaid != "" {
		resolved.Mermaid = ResolveRelative(root, cfg.Output.Mermaid)
	}
	if cfg.Output.JSON != "" {
		resolved.JSON = ResolveRelative(root, cfg.Output.JSON)
	}
	if cfg.Output.Markdown != "" {
		resolved.Markdown = ResolveRelative(root, cfg.Output.Markdown)
	}
	for _, inj := range cfg.Output.UpdateMarkdown {
		resolved.UpdateMarkdown = append(resolved.UpdateMarkdown, MarkdownInjection{
			File:   ResolveRelative(root, inj.File),
			Marker: strings.TrimSpace(inj.Marker),
		})
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// StateDir is where runtime state such as the TUI log file lives:
// $XDG_STATE_HOME/compgraph, falling back to ~/.local/state/compgraph.
func StateDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); dir != "" {
		return filepath.Join(dir, "compgraph"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "compgraph"), nil
}
