package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
	defaultKey  = "default"
)

// Snapshot records the statistics of one scan. The graph itself is never
// persisted.
type Snapshot struct {
	ScanID           string
	ProjectKey       string
	SchemaVersion    int
	Timestamp        time.Time
	RootPath         string
	NodeCount        int
	EdgeCount        int
	FileCount        int
	FailureCount     int
	CycleCount       int
	AvgConnections   float64
	CountsByType     map[string]int
	CountsByLanguage map[string]int
	Duration         time.Duration
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts while watch mode keeps saving.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveSnapshot stores snap and returns it with its scan id, timestamp and
// schema version filled in.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(snap.ProjectKey) == "" {
		snap.ProjectKey = defaultKey
	}
	if snap.ScanID == "" {
		snap.ScanID = uuid.NewString()
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}
	if snap.SchemaVersion == 0 {
		snap.SchemaVersion = SchemaVersion
	}
	if snap.SchemaVersion != SchemaVersion {
		return snap, fmt.Errorf("unsupported snapshot schema version %d", snap.SchemaVersion)
	}

	byType, err := encodeCounts(snap.CountsByType)
	if err != nil {
		return snap, err
	}
	byLang, err := encodeCounts(snap.CountsByLanguage)
	if err != nil {
		return snap, err
	}

	const query = `
INSERT INTO snapshots (
  scan_id, project_key, schema_version, ts_utc, root_path, node_count, edge_count,
  file_count, failure_count, cycle_count, avg_connections, counts_by_type,
  counts_by_language, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	err = s.withRetry("save snapshot", func() error {
		_, err := s.db.ExecContext(ctx, query,
			snap.ScanID,
			snap.ProjectKey,
			snap.SchemaVersion,
			snap.Timestamp.UTC().Format(time.RFC3339Nano),
			snap.RootPath,
			snap.NodeCount,
			snap.EdgeCount,
			snap.FileCount,
			snap.FailureCount,
			snap.CycleCount,
			snap.AvgConnections,
			byType,
			byLang,
			snap.Duration.Milliseconds(),
		)
		return err
	})
	return snap, err
}

// ListSnapshots returns up to limit snapshots for projectKey, newest first.
// A limit <= 0 returns all of them.
func (s *Store) ListSnapshots(ctx context.Context, projectKey string, limit int) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(projectKey) == "" {
		projectKey = defaultKey
	}
	query := `
SELECT
  scan_id, project_key, schema_version, ts_utc, root_path, node_count, edge_count,
  file_count, failure_count, cycle_count, avg_connections, counts_by_type,
  counts_by_language, duration_ms
FROM snapshots
WHERE project_key = ?
ORDER BY ts_utc DESC, created_at_utc DESC`
	args := []any{projectKey}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("list snapshots", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		var (
			snap       Snapshot
			tsRaw      string
			byType     string
			byLang     string
			durationMS int64
		)
		if err := rows.Scan(
			&snap.ScanID,
			&snap.ProjectKey,
			&snap.SchemaVersion,
			&tsRaw,
			&snap.RootPath,
			&snap.NodeCount,
			&snap.EdgeCount,
			&snap.FileCount,
			&snap.FailureCount,
			&snap.CycleCount,
			&snap.AvgConnections,
			&byType,
			&byLang,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot timestamp %q: %w", tsRaw, err)
		}
		snap.Timestamp = ts.UTC()
		snap.Duration = time.Duration(durationMS) * time.Millisecond
		if snap.CountsByType, err = decodeCounts(byType); err != nil {
			return nil, err
		}
		if snap.CountsByLanguage, err = decodeCounts(byLang); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snapshots, nil
}

func encodeCounts(counts map[string]int) (string, error) {
	if len(counts) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return "", fmt.Errorf("encode counts: %w", err)
	}
	return string(data), nil
}

func decodeCounts(raw string) (map[string]int, error) {
	out := make(map[string]int)
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode counts %q: %w", raw, err)
	}
	return out, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// IsCorruptError reports whether err looks like an unreadable database file.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
