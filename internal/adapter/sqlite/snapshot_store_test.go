package sqlite

import (
	"context"
	"testing"
	"time"

	"dockmon"
)

func testRow(hostname, id, name string, status dockmon.ContainerStatus, restarts int, disk int64, at time.Time) dockmon.Row {
	return dockmon.Row{
		ContainerIdentity: dockmon.ContainerIdentity{
			Hostname:      hostname,
			ContainerID:   id,
			ContainerName: name,
			ImageName:     "nginx:1.27",
		},
		MetricsSnapshot: dockmon.MetricsSnapshot{
			SnapshotTime:    at,
			CreatedAt:       at.Add(-time.Hour),
			RunningFor:      "About an hour ago",
			Status:          status,
			RestartCount:    restarts,
			DiskUsageBytes:  disk,
			SizeRwBytes:     disk,
			SizeRootFSBytes: disk * 10,
		},
	}
}

func rowCount(t *testing.T, store *Store) int {
	t.Helper()
	var n int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM container_snapshots`).Scan(&n); err != nil {
		t.Fatalf("count snapshot rows: %v", err)
	}
	return n
}

func TestSnapshotStore_SaveAndLatest(t *testing.T) {
	store := openTestStore(t)
	snaps := NewSnapshotStore(store)
	ctx := context.Background()
	at := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

	err := snaps.SaveSnapshots(ctx, []dockmon.Row{
		testRow("host-a", "a1", "web", dockmon.StatusRunning, 2, 1024, at),
		testRow("host-a", "a2", "db", dockmon.StatusExited, 0, 2048, at),
	})
	if err != nil {
		t.Fatalf("SaveSnapshots: %v", err)
	}

	got, err := snaps.LatestStatuses(ctx, "")
	if err != nil {
		t.Fatalf("LatestStatuses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LatestStatuses returned %d rows, want 2", len(got))
	}

	// Ordered by hostname then container name.
	if got[0].ContainerName != "db" || got[1].ContainerName != "web" {
		t.Errorf("unexpected order: %q, %q", got[0].ContainerName, got[1].ContainerName)
	}

	web := got[1]
	if web.ContainerID != "a1" {
		t.Errorf("ContainerID = %q, want %q", web.ContainerID, "a1")
	}
	if web.ImageName != "nginx:1.27" {
		t.Errorf("ImageName = %q, want %q", web.ImageName, "nginx:1.27")
	}
	if web.Status != dockmon.StatusRunning {
		t.Errorf("Status = %q, want running", web.Status)
	}
	if web.RestartCount != 2 {
		t.Errorf("RestartCount = %d, want 2", web.RestartCount)
	}
	if web.DiskUsage != 1024 {
		t.Errorf("DiskUsage = %d, want 1024", web.DiskUsage)
	}
	if !web.SnapshotTime.Equal(at) {
		t.Errorf("SnapshotTime = %v, want %v", web.SnapshotTime, at)
	}
}

func TestSnapshotStore_AppendsHistoryAcrossCycles(t *testing.T) {
	store := openTestStore(t)
	snaps := NewSnapshotStore(store)
	ctx := context.Background()
	first := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	row := testRow("host-a", "a1", "web", dockmon.StatusRunning, 0, 1024, first)
	if err := snaps.SaveSnapshots(ctx, []dockmon.Row{row}); err != nil {
		t.Fatalf("SaveSnapshots (first cycle): %v", err)
	}

	// Same container, next cycle: a new row, not an update.
	row.SnapshotTime = second
	row.RestartCount = 1
	if err := snaps.SaveSnapshots(ctx, []dockmon.Row{row}); err != nil {
		t.Fatalf("SaveSnapshots (second cycle): %v", err)
	}

	if n := rowCount(t, store); n != 2 {
		t.Fatalf("snapshot rows = %d, want 2 (append-only history)", n)
	}

	got, err := snaps.LatestStatuses(ctx, "")
	if err != nil {
		t.Fatalf("LatestStatuses: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("LatestStatuses returned %d rows, want 1", len(got))
	}
	if !got[0].SnapshotTime.Equal(second) {
		t.Errorf("latest SnapshotTime = %v, want %v", got[0].SnapshotTime, second)
	}
	if got[0].RestartCount != 1 {
		t.Errorf("latest RestartCount = %d, want 1", got[0].RestartCount)
	}
}

func TestSnapshotStore_ReplaySameCycleUpserts(t *testing.T) {
	store := openTestStore(t)
	snaps := NewSnapshotStore(store)
	ctx := context.Background()
	at := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

	row := testRow("host-a", "a1", "web", dockmon.StatusRunning, 0, 1024, at)
	if err := snaps.SaveSnapshots(ctx, []dockmon.Row{row}); err != nil {
		t.Fatalf("SaveSnapshots: %v", err)
	}

	// Identical key, fresher values: the retry path after a partial
	// failure replays the whole cycle.
	row.Status = dockmon.StatusExited
	row.DiskUsageBytes = 4096
	if err := snaps.SaveSnapshots(ctx, []dockmon.Row{row}); err != nil {
		t.Fatalf("SaveSnapshots (replay): %v", err)
	}

	if n := rowCount(t, store); n != 1 {
		t.Fatalf("snapshot rows = %d, want 1 (upsert on replay)", n)
	}
	got, err := snaps.LatestStatuses(ctx, "")
	if err != nil {
		t.Fatalf("LatestStatuses: %v", err)
	}
	if got[0].Status != dockmon.StatusExited {
		t.Errorf("Status = %q, want exited after replay", got[0].Status)
	}
	if got[0].DiskUsage != 4096 {
		t.Errorf("DiskUsage = %d, want 4096 after replay", got[0].DiskUsage)
	}
}

func TestSnapshotStore_SaveNothingCommittedOnError(t *testing.T) {
	store := openTestStore(t)
	snaps := NewSnapshotStore(store)
	ctx := context.Background()
	at := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

	// Make the second row of the batch fail mid-transaction.
	_, err := store.db.Exec(`
CREATE TRIGGER reject_poison BEFORE INSERT ON container_snapshots
WHEN NEW.container_name = 'poison'
BEGIN
	SELECT RAISE(ABORT, 'poison row');
END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	err = snaps.SaveSnapshots(ctx, []dockmon.Row{
		testRow("host-a", "a1", "web", dockmon.StatusRunning, 0, 1024, at),
		testRow("host-a", "a2", "poison", dockmon.StatusRunning, 0, 2048, at),
	})
	if err == nil {
		t.Fatal("SaveSnapshots succeeded despite failing row")
	}
	if n := rowCount(t, store); n != 0 {
		t.Errorf("snapshot rows = %d, want 0 after mid-transaction failure", n)
	}
}

func TestSnapshotStore_StatusChanges(t *testing.T) {
	store := openTestStore(t)
	snaps := NewSnapshotStore(store)
	ctx := context.Background()
	base := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

	cycles := []struct {
		at       time.Time
		status   dockmon.ContainerStatus
		restarts int
	}{
		{base, dockmon.StatusRunning, 0},
		{base.Add(1 * time.Minute), dockmon.StatusRunning, 0}, // no change
		{base.Add(2 * time.Minute), dockmon.StatusExited, 0},  // status change
		{base.Add(3 * time.Minute), dockmon.StatusExited, 0},  // no change
		{base.Add(4 * time.Minute), dockmon.StatusRunning, 1}, // status and restart change
	}
	for _, c := range cycles {
		row := testRow("host-a", "a1", "web", c.status, c.restarts, 1024, c.at)
		if err := snaps.SaveSnapshots(ctx, []dockmon.Row{row}); err != nil {
			t.Fatalf("SaveSnapshots at %v: %v", c.at, err)
		}
	}

	got, err := snaps.StatusChanges(ctx, "", time.Time{}, 0)
	if err != nil {
		t.Fatalf("StatusChanges: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("StatusChanges returned %d rows, want 2", len(got))
	}

	// Newest first.
	if got[0].PrevStatus != dockmon.StatusExited || got[0].Status != dockmon.StatusRunning {
		t.Errorf("newest change = %q -> %q, want exited -> running", got[0].PrevStatus, got[0].Status)
	}
	if got[0].PrevRestarts != 0 || got[0].Restarts != 1 {
		t.Errorf("newest change restarts = %d -> %d, want 0 -> 1", got[0].PrevRestarts, got[0].Restarts)
	}
	if got[1].PrevStatus != dockmon.StatusRunning || got[1].Status != dockmon.StatusExited {
		t.Errorf("older change = %q -> %q, want running -> exited", got[1].PrevStatus, got[1].Status)
	}

	// since bound and limit both constrain the feed.
	bounded, err := snaps.StatusChanges(ctx, "host-a", base.Add(3*time.Minute), 1)
	if err != nil {
		t.Fatalf("StatusChanges (bounded): %v", err)
	}
	if len(bounded) != 1 {
		t.Fatalf("bounded StatusChanges returned %d rows, want 1", len(bounded))
	}
	if !bounded[0].SnapshotTime.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("bounded change at %v, want %v", bounded[0].SnapshotTime, base.Add(4*time.Minute))
	}

	none, err := snaps.StatusChanges(ctx, "host-z", time.Time{}, 0)
	if err != nil {
		t.Fatalf("StatusChanges (other host): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("StatusChanges for unknown host returned %d rows, want 0", len(none))
	}
}

func TestSnapshotStore_HostUsage(t *testing.T) {
	store := openTestStore(t)
	snaps := NewSnapshotStore(store)
	ctx := context.Background()
	first := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	if err := snaps.SaveSnapshots(ctx, []dockmon.Row{
		testRow("host-a", "a1", "web", dockmon.StatusRunning, 0, 1000, first),
		testRow("host-a", "a2", "db", dockmon.StatusExited, 0, 2000, first),
		testRow("host-b", "b1", "cache", dockmon.StatusRunning, 0, 500, first),
	}); err != nil {
		t.Fatalf("SaveSnapshots (first cycle): %v", err)
	}
	// host-a reports again; host-b stays on its first cycle.
	if err := snaps.SaveSnapshots(ctx, []dockmon.Row{
		testRow("host-a", "a1", "web", dockmon.StatusRunning, 0, 1500, second),
		testRow("host-a", "a2", "db", dockmon.StatusRunning, 0, 2000, second),
	}); err != nil {
		t.Fatalf("SaveSnapshots (second cycle): %v", err)
	}

	got, err := snaps.HostUsage(ctx)
	if err != nil {
		t.Fatalf("HostUsage: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("HostUsage returned %d rows, want 2", len(got))
	}

	a := got[0]
	if a.Hostname != "host-a" {
		t.Fatalf("first row hostname = %q, want host-a", a.Hostname)
	}
	if a.Containers != 2 || a.Running != 2 {
		t.Errorf("host-a containers/running = %d/%d, want 2/2", a.Containers, a.Running)
	}
	if a.DiskUsage != 3500 {
		t.Errorf("host-a disk usage = %d, want 3500", a.DiskUsage)
	}
	if !a.SnapshotTime.Equal(second) {
		t.Errorf("host-a snapshot time = %v, want %v", a.SnapshotTime, second)
	}

	b := got[1]
	if b.Containers != 1 || b.Running != 1 {
		t.Errorf("host-b containers/running = %d/%d, want 1/1", b.Containers, b.Running)
	}
	if b.DiskUsage != 500 {
		t.Errorf("host-b disk usage = %d, want 500", b.DiskUsage)
	}
}

func TestSnapshotStore_HighRestarts(t *testing.T) {
	store := openTestStore(t)
	snaps := NewSnapshotStore(store)
	ctx := context.Background()
	at := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

	if err := snaps.SaveSnapshots(ctx, []dockmon.Row{
		testRow("host-a", "a1", "flappy", dockmon.StatusRunning, dockmon.HighRestartThreshold+3, 0, at),
		testRow("host-a", "a2", "steady", dockmon.StatusRunning, dockmon.HighRestartThreshold, 0, at),
		testRow("host-b", "b1", "crashy", dockmon.StatusRestarting, dockmon.HighRestartThreshold+1, 0, at),
	}); err != nil {
		t.Fatalf("SaveSnapshots: %v", err)
	}

	got, err := snaps.HighRestarts(ctx)
	if err != nil {
		t.Fatalf("HighRestarts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("HighRestarts returned %d rows, want 2 (threshold is exclusive)", len(got))
	}
	if got[0].ContainerName != "flappy" || got[1].ContainerName != "crashy" {
		t.Errorf("order = %q, %q, want flappy, crashy", got[0].ContainerName, got[1].ContainerName)
	}

	// A calmer latest snapshot clears the container from the view.
	if err := snaps.SaveSnapshots(ctx, []dockmon.Row{
		testRow("host-a", "a1", "flappy", dockmon.StatusRunning, 0, 0, at.Add(time.Minute)),
	}); err != nil {
		t.Fatalf("SaveSnapshots (recovered): %v", err)
	}
	got, err = snaps.HighRestarts(ctx)
	if err != nil {
		t.Fatalf("HighRestarts (after recovery): %v", err)
	}
	if len(got) != 1 || got[0].ContainerName != "crashy" {
		t.Errorf("after recovery got %d rows, want only crashy", len(got))
	}
}
