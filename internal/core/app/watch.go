package app

import (
	"context"
	"log/slog"

	"compgraph/internal/core/config"
	coreerrors "compgraph/internal/core/errors"
	"compgraph/internal/core/watcher"
	"compgraph/internal/engine/scanner"
)

// StartWatcher rebuilds on source changes under the root until ctx is done or
// StopWatcher is called. When the session was loaded from a file, edits to
// that file are applied and trigger a rebuild too.
func (a *App) StartWatcher(ctx context.Context) error {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.activeWatcher != nil {
		return nil
	}

	cfg := a.config()
	matcher, err := scanner.CompileExcludes(cfg.Exclude)
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeValidationError, "compile exclude patterns")
	}
	root := a.paths().Root
	if cfg.RespectGitignore {
		if err := matcher.LoadGitignore(root); err != nil {
			slog.Warn("ignoring unreadable .gitignore", "root", root, "error", err)
		}
	}

	w, err := watcher.NewWatcher(root, cfg.Watch.Debounce, matcher, func(paths []string) {
		if err := a.HandleChanges(ctx, paths); err != nil && !coreerrors.IsCode(err, coreerrors.CodeCancelled) {
			slog.Warn("rebuild after change failed", "error", err)
		}
	})
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeInternal, "create file watcher")
	}
	w.SetExtensions(a.parser.SupportedExtensions())
	if err := w.Start(); err != nil {
		_ = w.Close()
		return coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeIO, "watch root"), coreerrors.CtxPath, root)
	}
	a.activeWatcher = w

	if path := cfg.Path(); path != "" {
		fw := config.NewFileWatcher(config.ResolveRelative(a.cwd, path), func(next *config.Config) {
			a.applyConfig(next)
			a.watchMu.Lock()
			if a.activeWatcher != nil {
				a.activeWatcher.SetDebounce(next.Watch.Debounce)
			}
			a.watchMu.Unlock()
			if err := a.HandleChanges(ctx, nil); err != nil {
				slog.Warn("rebuild after config reload failed", "error", err)
			}
		})
		if err := fw.Start(ctx); err != nil {
			slog.Warn("config file will not be reloaded", "path", path, "error", err)
		} else {
			a.configWatcher = fw
		}
	}

	go func() {
		<-ctx.Done()
		a.StopWatcher()
	}()
	slog.Info("watching for changes", "root", root, "debounce", cfg.Watch.Debounce)
	return nil
}

func (a *App) StopWatcher() {
	a.watchMu.Lock()
	w, fw := a.activeWatcher, a.configWatcher
	a.activeWatcher, a.configWatcher = nil, nil
	a.watchMu.Unlock()

	if w != nil {
		if err := w.Close(); err != nil {
			slog.Debug("closing watcher", "error", err)
		}
	}
	if fw != nil {
		fw.Stop()
	}
}

// HandleChanges drops cached parses of paths, waits for the rebuild limiter,
// rebuilds, and rewrites the outputs. An empty list forces a rebuild.
func (a *App) HandleChanges(ctx context.Context, paths []string) error {
	a.cache.Invalidate(paths...)
	slog.Debug("changes detected", "count", len(paths))

	a.mu.RLock()
	limiter := a.limiter
	a.mu.RUnlock()
	if err := limiter.Wait(ctx, 1); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeCancelled, "rebuild throttled")
	}

	if _, err := a.Rebuild(ctx); err != nil {
		return err
	}
	if _, err := a.GenerateOutputs(); err != nil {
		return err
	}
	if a.config().History.Enabled {
		if _, err := a.SaveHistory(ctx); err != nil {
			slog.Warn("failed to save history snapshot", "error", err)
		}
	}
	return nil
}
