package monitor

import (
	"context"

	"dockmon"
)

// SnapshotWriter persists one assembled cycle.
// Production: *persist.Writer
// Testing: stub in monitor tests, or a *persist.Writer over
// adapter/fake.SnapshotStore
type SnapshotWriter interface {
	Write(ctx context.Context, rows []dockmon.Row) error
}

// CycleRunner executes one collection cycle.
// Production: *Monitor
// Testing: stub in scheduler tests
type CycleRunner interface {
	RunCycle(ctx context.Context) (CycleStats, error)
}
