// Package sqlite persists container snapshots in a local SQLite database
// and exposes the derived views downstream dashboards query.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout zero-pads nanoseconds so the TEXT columns compare in
// chronological order. RFC3339Nano trims trailing zeros and breaks that.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store owns the snapshot database connection and its schema.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path and
// ensures the schema, indexes and views exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create snapshot db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set snapshot db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set snapshot db busy timeout: %w", err)
	}
	if err := ensureSnapshotSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing snapshot database for queries. Unlike
// Open it refuses to create a missing file, so a mistyped path surfaces as
// an error instead of an empty database.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("snapshot db %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set snapshot db busy timeout: %w", err)
	}
	if _, err := db.Exec(`PRAGMA query_only = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set snapshot db query mode: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ensureSnapshotSchema creates the append-only snapshot table, the query
// indexes, and the dashboard views. The restart threshold in
// container_high_restarts mirrors dockmon.HighRestartThreshold.
func ensureSnapshotSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS container_snapshots (
	hostname TEXT NOT NULL,
	container_id TEXT NOT NULL,
	container_name TEXT NOT NULL DEFAULT '',
	image_name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	running_for TEXT NOT NULL DEFAULT '',
	restart_count INTEGER NOT NULL DEFAULT 0,
	disk_usage_bytes INTEGER NOT NULL DEFAULT 0,
	size_rw_bytes INTEGER NOT NULL DEFAULT 0,
	size_rootfs_bytes INTEGER NOT NULL DEFAULT 0,
	snapshot_time TEXT NOT NULL,
	PRIMARY KEY(hostname, container_id, snapshot_time)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_time ON container_snapshots(snapshot_time);
CREATE INDEX IF NOT EXISTS idx_snapshots_hostname ON container_snapshots(hostname);
CREATE INDEX IF NOT EXISTS idx_snapshots_container_name ON container_snapshots(container_name);
CREATE INDEX IF NOT EXISTS idx_snapshots_image_name ON container_snapshots(image_name);
CREATE INDEX IF NOT EXISTS idx_snapshots_status ON container_snapshots(status);
CREATE INDEX IF NOT EXISTS idx_snapshots_host_time ON container_snapshots(hostname, snapshot_time);
CREATE INDEX IF NOT EXISTS idx_snapshots_container_time ON container_snapshots(container_id, snapshot_time);
CREATE VIEW IF NOT EXISTS container_latest AS
SELECT s.*
FROM container_snapshots s
JOIN (
	SELECT hostname, container_id, MAX(snapshot_time) AS snapshot_time
	FROM container_snapshots
	GROUP BY hostname, container_id
) latest USING (hostname, container_id, snapshot_time);
CREATE VIEW IF NOT EXISTS container_status_changes AS
SELECT * FROM (
	SELECT hostname,
		container_id,
		container_name,
		image_name,
		LAG(status) OVER w AS prev_status,
		status,
		LAG(restart_count) OVER w AS prev_restart_count,
		restart_count,
		snapshot_time
	FROM container_snapshots
	WINDOW w AS (PARTITION BY hostname, container_id ORDER BY snapshot_time)
)
WHERE prev_status IS NOT NULL
  AND (prev_status <> status OR prev_restart_count <> restart_count);
CREATE VIEW IF NOT EXISTS host_disk_usage AS
SELECT hostname,
	snapshot_time,
	COUNT(*) AS containers,
	SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END) AS running,
	SUM(disk_usage_bytes) AS disk_usage_bytes
FROM container_snapshots
GROUP BY hostname, snapshot_time;
CREATE VIEW IF NOT EXISTS container_high_restarts AS
SELECT hostname, container_id, container_name, image_name, status, restart_count, snapshot_time
FROM container_latest
WHERE restart_count > 5;`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("initialize snapshot schema: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode stored timestamp %q: %w", raw, err)
	}
	return t, nil
}
