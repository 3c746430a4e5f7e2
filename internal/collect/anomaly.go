package collect

import (
	"log/slog"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"

	"dockmon"
)

// restartMemory is how long a container id is remembered after its last
// observation. Departed containers age out instead of growing the map.
const restartMemory = 24 * time.Hour

// RestartTracker remembers the last restart count observed per container
// id across cycles. Restart counts only grow while a container exists, so
// a decrease for the same id is anomalous: it is logged and nothing else.
// No recreation event is inferred, and persisted data is untouched.
type RestartTracker struct {
	log  *slog.Logger
	seen *cache.Cache[string, int]
}

// NewRestartTracker returns an empty tracker.
func NewRestartTracker(log *slog.Logger) *RestartTracker {
	return &RestartTracker{log: log, seen: cache.New[string, int]()}
}

// Observe records the container's current restart count and warns when it
// dropped below the previous observation.
func (t *RestartTracker) Observe(id dockmon.ContainerIdentity, count int) {
	prev, known := t.seen.Get(id.ContainerID)
	t.seen.Set(id.ContainerID, count, cache.WithExpiration(restartMemory))
	if known && count < prev {
		t.log.Warn("restart count decreased for same container id",
			"container", id.ContainerName,
			"id", dockmon.ShortID(id.ContainerID),
			"previous", prev,
			"current", count)
	}
}
