package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dockmon"
	"dockmon/internal/persist"
)

// SnapshotStore writes cycle snapshots into container_snapshots and reads
// the derived views back out for the CLI and the admin endpoint.
type SnapshotStore struct {
	store *Store
}

var _ persist.Store = (*SnapshotStore)(nil)

func NewSnapshotStore(store *Store) *SnapshotStore {
	return &SnapshotStore{store: store}
}

// SaveSnapshots persists one cycle's rows in a single transaction. Rows
// are keyed on (hostname, container_id, snapshot_time); replaying a cycle
// updates the existing rows instead of duplicating them.
func (s *SnapshotStore) SaveSnapshots(ctx context.Context, rows []dockmon.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO container_snapshots (
	hostname,
	container_id,
	container_name,
	image_name,
	status,
	created_at,
	running_for,
	restart_count,
	disk_usage_bytes,
	size_rw_bytes,
	size_rootfs_bytes,
	snapshot_time
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(hostname, container_id, snapshot_time) DO UPDATE SET
	container_name = excluded.container_name,
	image_name = excluded.image_name,
	status = excluded.status,
	created_at = excluded.created_at,
	running_for = excluded.running_for,
	restart_count = excluded.restart_count,
	disk_usage_bytes = excluded.disk_usage_bytes,
	size_rw_bytes = excluded.size_rw_bytes,
	size_rootfs_bytes = excluded.size_rootfs_bytes`)
	if err != nil {
		return fmt.Errorf("prepare snapshot upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(
			ctx,
			row.Hostname,
			row.ContainerID,
			row.ContainerName,
			row.ImageName,
			string(row.Status),
			formatTime(row.CreatedAt),
			row.RunningFor,
			row.RestartCount,
			row.DiskUsageBytes,
			row.SizeRwBytes,
			row.SizeRootFSBytes,
			formatTime(row.SnapshotTime),
		); err != nil {
			return fmt.Errorf("upsert snapshot row %s: %w", row.ContainerName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot transaction: %w", err)
	}
	return nil
}

// LatestStatuses returns the most recent snapshot of every container,
// optionally restricted to one host.
func (s *SnapshotStore) LatestStatuses(ctx context.Context, hostname string) ([]dockmon.LatestStatus, error) {
	query := `
SELECT hostname, container_id, container_name, image_name, status, running_for, restart_count, disk_usage_bytes, snapshot_time
FROM container_latest`
	var args []any
	if hostname != "" {
		query += ` WHERE hostname = ?`
		args = append(args, hostname)
	}
	query += ` ORDER BY hostname, container_name`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query latest statuses: %w", err)
	}
	defer rows.Close()

	out := make([]dockmon.LatestStatus, 0)
	for rows.Next() {
		var row dockmon.LatestStatus
		var status, snapshotTime string
		if err := rows.Scan(
			&row.Hostname,
			&row.ContainerID,
			&row.ContainerName,
			&row.ImageName,
			&status,
			&row.RunningFor,
			&row.RestartCount,
			&row.DiskUsage,
			&snapshotTime,
		); err != nil {
			return nil, fmt.Errorf("scan latest status row: %w", err)
		}
		row.Status = dockmon.ContainerStatus(status)
		if row.SnapshotTime, err = parseTime(snapshotTime); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest statuses: %w", err)
	}
	return out, nil
}

// StatusChanges returns snapshots whose status or restart count differ
// from the container's previous snapshot, newest first. A zero since means
// no lower bound; a non-positive limit means no limit.
func (s *SnapshotStore) StatusChanges(ctx context.Context, hostname string, since time.Time, limit int) ([]dockmon.StatusChange, error) {
	query := `
SELECT hostname, container_id, container_name, prev_status, status, prev_restart_count, restart_count, snapshot_time
FROM container_status_changes`
	var conds []string
	var args []any
	if hostname != "" {
		conds = append(conds, `hostname = ?`)
		args = append(args, hostname)
	}
	if !since.IsZero() {
		conds = append(conds, `snapshot_time >= ?`)
		args = append(args, formatTime(since))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY snapshot_time DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query status changes: %w", err)
	}
	defer rows.Close()

	out := make([]dockmon.StatusChange, 0)
	for rows.Next() {
		var row dockmon.StatusChange
		var prevStatus, status, snapshotTime string
		if err := rows.Scan(
			&row.Hostname,
			&row.ContainerID,
			&row.ContainerName,
			&prevStatus,
			&status,
			&row.PrevRestarts,
			&row.Restarts,
			&snapshotTime,
		); err != nil {
			return nil, fmt.Errorf("scan status change row: %w", err)
		}
		row.PrevStatus = dockmon.ContainerStatus(prevStatus)
		row.Status = dockmon.ContainerStatus(status)
		if row.SnapshotTime, err = parseTime(snapshotTime); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status changes: %w", err)
	}
	return out, nil
}

// HostUsage returns each host's container count and total disk usage at
// that host's most recent snapshot.
func (s *SnapshotStore) HostUsage(ctx context.Context) ([]dockmon.HostUsage, error) {
	rows, err := s.store.db.QueryContext(ctx, `
SELECT h.hostname, h.containers, h.running, h.disk_usage_bytes, h.snapshot_time
FROM host_disk_usage h
JOIN (
	SELECT hostname, MAX(snapshot_time) AS snapshot_time
	FROM host_disk_usage
	GROUP BY hostname
) latest USING (hostname, snapshot_time)
ORDER BY h.hostname`)
	if err != nil {
		return nil, fmt.Errorf("query host usage: %w", err)
	}
	defer rows.Close()

	out := make([]dockmon.HostUsage, 0)
	for rows.Next() {
		var row dockmon.HostUsage
		var snapshotTime string
		if err := rows.Scan(&row.Hostname, &row.Containers, &row.Running, &row.DiskUsage, &snapshotTime); err != nil {
			return nil, fmt.Errorf("scan host usage row: %w", err)
		}
		if row.SnapshotTime, err = parseTime(snapshotTime); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate host usage: %w", err)
	}
	return out, nil
}

// HighRestarts returns containers whose latest restart count exceeds
// dockmon.HighRestartThreshold, worst first.
func (s *SnapshotStore) HighRestarts(ctx context.Context) ([]dockmon.HighRestart, error) {
	rows, err := s.store.db.QueryContext(ctx, `
SELECT hostname, container_id, container_name, image_name, status, restart_count, snapshot_time
FROM container_high_restarts
ORDER BY restart_count DESC, hostname, container_name`)
	if err != nil {
		return nil, fmt.Errorf("query high restarts: %w", err)
	}
	defer rows.Close()

	out := make([]dockmon.HighRestart, 0)
	for rows.Next() {
		var row dockmon.HighRestart
		var status, snapshotTime string
		if err := rows.Scan(
			&row.Hostname,
			&row.ContainerID,
			&row.ContainerName,
			&row.ImageName,
			&status,
			&row.RestartCount,
			&snapshotTime,
		); err != nil {
			return nil, fmt.Errorf("scan high restart row: %w", err)
		}
		row.Status = dockmon.ContainerStatus(status)
		if row.SnapshotTime, err = parseTime(snapshotTime); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate high restarts: %w", err)
	}
	return out, nil
}
