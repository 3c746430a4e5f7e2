package dockmon

import "time"

// HighRestartThreshold is the restart count above which a container shows
// up in the high-restart view.
const HighRestartThreshold = 5

// LatestStatus is one row of the latest-status-per-container view: the most
// recent snapshot for each (hostname, container_id).
type LatestStatus struct {
	Hostname      string
	ContainerID   string
	ContainerName string
	ImageName     string
	Status        ContainerStatus
	RunningFor    string
	RestartCount  int
	DiskUsage     int64
	SnapshotTime  time.Time
}

// StatusChange is one row of the status-change feed: a snapshot whose
// status or restart count differs from the previous snapshot of the same
// container.
type StatusChange struct {
	Hostname      string
	ContainerID   string
	ContainerName string
	PrevStatus    ContainerStatus
	Status        ContainerStatus
	PrevRestarts  int
	Restarts      int
	SnapshotTime  time.Time
}

// HostUsage aggregates disk usage across a host's containers at that
// host's latest snapshot.
type HostUsage struct {
	Hostname     string
	Containers   int
	Running      int
	DiskUsage    int64
	SnapshotTime time.Time
}

// HighRestart is one row of the high-restart view: containers whose latest
// restart count exceeds HighRestartThreshold.
type HighRestart struct {
	Hostname      string
	ContainerID   string
	ContainerName string
	ImageName     string
	Status        ContainerStatus
	RestartCount  int
	SnapshotTime  time.Time
}
