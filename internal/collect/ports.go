package collect

import (
	"context"
	"time"

	"dockmon"
)

// Clock abstracts time.Now() for deterministic testing.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// ContainerRuntime abstracts the container engine's read surface. The
// monitor never mutates container state.
// Production: adapter/docker.Runtime (wrapping Docker *client.Client)
// Testing: adapter/fake.ContainerRuntime
type ContainerRuntime interface {
	// ListContainers enumerates containers, including stopped ones when
	// includeStopped is set.
	ListContainers(ctx context.Context, includeStopped bool) ([]dockmon.ContainerSummary, error)

	// InspectContainer fetches one container's detail with size reporting
	// enabled. Implementations return a not-found error classifiable by
	// errdefs.IsNotFound when the container disappeared.
	InspectContainer(ctx context.Context, id string) (dockmon.ContainerDetail, error)

	// SystemDiskUsage runs the bulk disk-usage query (system df equivalent)
	// keyed by full container id. Expensive; called at most once per cycle.
	SystemDiskUsage(ctx context.Context) (map[string]dockmon.SizeInfo, error)
}
