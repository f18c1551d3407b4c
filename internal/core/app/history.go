package app

import (
	"context"

	coreerrors "compgraph/internal/core/errors"
	"compgraph/internal/data/history"
)

// historyStore opens the store lazily on first use.
func (a *App) historyStore() (*history.Store, error) {
	a.historyMu.Lock()
	defer a.historyMu.Unlock()
	if a.history != nil {
		return a.history, nil
	}
	path := a.paths().HistoryPath
	store, err := history.Open(path)
	if err != nil {
		return nil, coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeIO, "open history store"), coreerrors.CtxPath, path)
	}
	a.history = store
	return store, nil
}

// SaveHistory records the statistics of the latest rebuild.
func (a *App) SaveHistory(ctx context.Context) (history.Snapshot, error) {
	store, err := a.historyStore()
	if err != nil {
		return history.Snapshot{}, err
	}
	u := a.LastUpdate()
	if u.Graph == nil {
		return history.Snapshot{}, coreerrors.New(coreerrors.CodeValidationError, "no graph has been built yet")
	}
	g, st := u.Graph, u.Stats

	byType := make(map[string]int, len(st.CountsByType))
	for t, n := range st.CountsByType {
		byType[string(t)] = n
	}
	byLang := make(map[string]int, len(st.CountsByLanguage))
	for l, n := range st.CountsByLanguage {
		byLang[string(l)] = n
	}

	return store.SaveSnapshot(ctx, history.Snapshot{
		ProjectKey:       a.ProjectName(),
		Timestamp:        g.GeneratedAt.UTC(),
		RootPath:         g.RootPath,
		NodeCount:        st.TotalNodes,
		EdgeCount:        st.TotalEdges,
		FileCount:        u.FilesVisited,
		FailureCount:     len(u.Failures),
		CycleCount:       len(u.Cycles),
		AvgConnections:   st.AvgConnections,
		CountsByType:     byType,
		CountsByLanguage: byLang,
		Duration:         u.Duration,
	})
}

// RecentHistory returns up to limit snapshots for this project, newest first.
func (a *App) RecentHistory(ctx context.Context, limit int) ([]history.Snapshot, error) {
	store, err := a.historyStore()
	if err != nil {
		return nil, err
	}
	return store.ListSnapshots(ctx, a.ProjectName(), limit)
}
