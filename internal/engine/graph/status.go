package graph

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type EditStatus string

const (
	StatusIdle      EditStatus = "idle"
	StatusQueued    EditStatus = "queued"
	StatusEditing   EditStatus = "editing"
	StatusCompleted EditStatus = "completed"
	StatusError     EditStatus = "error"
	StatusSkipped   EditStatus = "skipped"
	StatusManual    EditStatus = "manual"
)

var EditStatuses = []EditStatus{
	StatusIdle,
	StatusQueued,
	StatusEditing,
	StatusCompleted,
	StatusError,
	StatusSkipped,
	StatusManual,
}

func ParseEditStatus(value string) (EditStatus, error) {
	s := EditStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range EditStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown edit status %q", value)
}

type NodeStatus struct {
	Status       EditStatus `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	LastModified time.Time  `json:"lastModified,omitempty"`
}

// StatusOverlay holds live edit status keyed by node id, separate from the
// immutable graph. Ids are stable across rebuilds, so entries survive them.
type StatusOverlay struct {
	mu      sync.RWMutex
	entries map[string]NodeStatus
	now     func() time.Time
}

func NewStatusOverlay() *StatusOverlay {
	return &StatusOverlay{
		entries: make(map[string]NodeStatus),
		now:     time.Now,
	}
}

// Set records status for id. Setting idle clears the entry.
func (o *StatusOverlay) Set(id string, status EditStatus, errorMessage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if status == StatusIdle || status == "" {
		delete(o.entries, id)
		return
	}
	o.entries[id] = NodeStatus{
		Status:       status,
		ErrorMessage: errorMessage,
		LastModified: o.now(),
	}
}

// Get returns the status for id, idle when nothing was recorded.
func (o *StatusOverlay) Get(id string) NodeStatus {
	if o == nil {
		return NodeStatus{Status: StatusIdle}
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if st, ok := o.entries[id]; ok {
		return st
	}
	return NodeStatus{Status: StatusIdle}
}

// Retain drops entries whose ids are no longer in g and reports how many
// were removed.
func (o *StatusOverlay) Retain(g *ComponentGraph) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	dropped := 0
	for id := range o.entries {
		if !g.HasNode(id) {
			delete(o.entries, id)
			dropped++
		}
	}
	return dropped
}

// Snapshot copies the non-idle entries.
func (o *StatusOverlay) Snapshot() map[string]NodeStatus {
	out := make(map[string]NodeStatus)
	if o == nil {
		return out
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	for id, st := range o.entries {
		out[id] = st
	}
	return out
}
