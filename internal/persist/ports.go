package persist

import (
	"context"

	"dockmon"
)

// Store persists one cycle's batch.
// Production: adapter/sqlite.SnapshotStore
// Testing: adapter/fake.SnapshotStore
type Store interface {
	// SaveSnapshots writes all rows inside a single transaction: either
	// every row of the cycle is durably stored or none is. Rows with a
	// duplicate (hostname, container_id, snapshot_time) key overwrite the
	// stored values, so repeating a failed cycle's write is safe.
	SaveSnapshots(ctx context.Context, rows []dockmon.Row) error
}
