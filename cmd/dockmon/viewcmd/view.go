// Package viewcmd implements the read commands that render the snapshot
// database's views: status, changes, usage, and restarts.
package viewcmd

import (
	"time"

	"dockmon/config"
	"dockmon/internal/adapter/sqlite"

	"github.com/docker/go-units"
)

// openSnapshots opens the configured snapshot database for reading. The
// returned close function releases the handle.
func openSnapshots(configPath string) (*sqlite.SnapshotStore, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	store, err := sqlite.OpenReadOnly(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return sqlite.NewSnapshotStore(store), func() { _ = store.Close() }, nil
}

func humanBytes(n int64) string {
	return units.HumanSize(float64(n))
}

func humanAge(ts time.Time) string {
	return units.HumanDuration(time.Since(ts)) + " ago"
}
