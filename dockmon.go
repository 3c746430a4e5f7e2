// Package dockmon defines the domain types shared across the monitor:
// container identity, per-cycle metrics snapshots, and the rows persisted
// for downstream dashboards.
package dockmon

import "time"

// ContainerStatus is a container lifecycle state as reported by the runtime.
type ContainerStatus string

const (
	StatusCreated    ContainerStatus = "created"
	StatusRunning    ContainerStatus = "running"
	StatusPaused     ContainerStatus = "paused"
	StatusRestarting ContainerStatus = "restarting"
	StatusRemoving   ContainerStatus = "removing"
	StatusExited     ContainerStatus = "exited"
	StatusDead       ContainerStatus = "dead"
)

// Known reports whether s is one of the documented runtime states.
// Unknown states are stored as-is; runtimes grow new states over time.
func (s ContainerStatus) Known() bool {
	switch s {
	case StatusCreated, StatusRunning, StatusPaused, StatusRestarting,
		StatusRemoving, StatusExited, StatusDead:
		return true
	}
	return false
}

// ShortID returns the 12-character form of a full container id, matching
// how runtimes abbreviate ids in their own output.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}

// ContainerIdentity names one container on one host. ContainerID is the
// runtime-assigned full id, immutable for the container's lifetime.
// Hostname identifies the collecting host and is constant per process.
type ContainerIdentity struct {
	Hostname      string
	ContainerID   string
	ContainerName string
	ImageName     string
}

// ContainerSummary is one entry of a runtime enumeration.
type ContainerSummary struct {
	ID        string
	Name      string // first runtime name, leading slash stripped
	Image     string
	CreatedAt time.Time
	Status    ContainerStatus
}

// ContainerDetail is the result of inspecting a single container with size
// reporting enabled. HasSizes is false when the runtime omitted size data,
// which is distinct from sizes that are genuinely zero.
type ContainerDetail struct {
	ID           string
	RestartCount int
	CreatedAt    time.Time
	Status       ContainerStatus
	RunningFor   string // human uptime, e.g. "3 hours ago"
	SizeRw       int64
	SizeRootFs   int64
	HasSizes     bool
}

// SizeInfo is one container's entry in a bulk disk-usage report.
type SizeInfo struct {
	SizeRw     int64
	SizeRootFs int64
}

// MetricsSnapshot is the point-in-time measurement of one container taken
// during one collection cycle. SnapshotTime is shared by every snapshot of
// the cycle so rows of a cycle compare as a consistent view.
//
// Size fields are zero when the runtime could not report them; zero is
// indistinguishable from an actual zero size.
type MetricsSnapshot struct {
	SnapshotTime    time.Time
	CreatedAt       time.Time
	RunningFor      string
	Status          ContainerStatus
	RestartCount    int
	DiskUsageBytes  int64
	SizeRwBytes     int64
	SizeRootFSBytes int64
}

// Row is what one cycle persists per monitored container. Rows are
// append-only history: the storage key is
// (hostname, container_id, snapshot_time), so later cycles add rows
// rather than replacing earlier ones.
type Row struct {
	ContainerIdentity
	MetricsSnapshot
}
