package app

import (
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Health reports the state of the session for the /health endpoint.
func (a *App) Health() HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if u := a.LastUpdate(); u.Graph == nil {
		status.Status = "degraded"
		status.Components["graph"] = "not built"
	} else {
		status.Components["graph"] = fmt.Sprintf("ok (%d nodes, %d edges)", u.Stats.TotalNodes, u.Stats.TotalEdges)
	}

	if a.cache != nil {
		status.Components["parse_cache"] = fmt.Sprintf("ok (%d entries)", a.cache.Len())
	} else {
		status.Components["parse_cache"] = "disabled"
	}

	a.watchMu.Lock()
	watching := a.activeWatcher != nil
	a.watchMu.Unlock()
	if watching {
		status.Components["watcher"] = "ok"
	} else {
		status.Components["watcher"] = "stopped"
	}

	a.historyMu.Lock()
	if a.history != nil {
		status.Components["history"] = "ok"
	}
	a.historyMu.Unlock()
	return status
}
