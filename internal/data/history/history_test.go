package history

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStore_SaveAndList(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	first, err := store.SaveSnapshot(ctx, Snapshot{
		Timestamp:    base,
		NodeCount:    5,
		EdgeCount:    4,
		CountsByType: map[string]int{"component": 3, "hook": 2},
	})
	if err != nil {
		t.Fatalf("save first snapshot: %v", err)
	}
	if first.ScanID == "" || first.ProjectKey != "default" || first.SchemaVersion != SchemaVersion {
		t.Fatalf("expected defaults to be filled, got %+v", first)
	}
	if _, err := store.SaveSnapshot(ctx, Snapshot{
		Timestamp:        base.Add(time.Hour),
		NodeCount:        7,
		EdgeCount:        9,
		CycleCount:       1,
		AvgConnections:   2.57,
		CountsByLanguage: map[string]int{"python": 7},
		Duration:         1500 * time.Millisecond,
	}); err != nil {
		t.Fatalf("save second snapshot: %v", err)
	}

	all, err := store.ListSnapshots(ctx, "", 0)
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(all))
	}
	if all[0].NodeCount != 7 || all[1].NodeCount != 5 {
		t.Fatalf("expected newest first, got %d then %d", all[0].NodeCount, all[1].NodeCount)
	}
	if all[0].AvgConnections != 2.57 || all[0].Duration != 1500*time.Millisecond || all[0].CountsByLanguage["python"] != 7 {
		t.Fatalf("fields did not roundtrip: %+v", all[0])
	}
	if all[1].CountsByType["hook"] != 2 || all[1].ScanID != first.ScanID {
		t.Fatalf("fields did not roundtrip: %+v", all[1])
	}

	latest, err := store.ListSnapshots(ctx, "default", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 1 || latest[0].NodeCount != 7 {
		t.Fatalf("expected only the newest snapshot, got %+v", latest)
	}
}

func TestStore_ProjectIsolation(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.SaveSnapshot(ctx, Snapshot{ProjectKey: "a", NodeCount: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveSnapshot(ctx, Snapshot{ProjectKey: "b", NodeCount: 2}); err != nil {
		t.Fatal(err)
	}
	rows, err := store.ListSnapshots(ctx, "b", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].NodeCount != 2 {
		t.Fatalf("unexpected rows for project b: %+v", rows)
	}
}

func TestStore_RejectsUnknownSchemaVersion(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, err := store.SaveSnapshot(context.Background(), Snapshot{SchemaVersion: 99}); err == nil {
		t.Fatal("expected schema version error")
	}
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveSnapshot(context.Background(), Snapshot{NodeCount: 3}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	rows, err := store.ListSnapshots(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].NodeCount != 3 {
		t.Fatalf("expected persisted snapshot, got %+v", rows)
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(errors.New("database disk image is malformed")) {
		t.Fatal("expected malformed sqlite message to be treated as corrupt")
	}
	if IsCorruptError(nil) || IsCorruptError(errors.New("database is locked")) {
		t.Fatal("expected other errors not to be treated as corrupt")
	}
}
