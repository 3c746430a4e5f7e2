// Package fake provides in-memory implementations of the monitor's ports
// for deterministic tests.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/containerd/errdefs"

	"dockmon"
	"dockmon/internal/adapter/fake/fault"
	"dockmon/internal/collect"
)

var _ collect.ContainerRuntime = (*ContainerRuntime)(nil)

// Fault injection points for ContainerRuntime methods.
const (
	FaultRuntimeList      = "container_runtime.list"
	FaultRuntimeInspect   = "container_runtime.inspect"
	FaultRuntimeDiskUsage = "container_runtime.disk_usage"
)

type containerEntry struct {
	summary dockmon.ContainerSummary
	detail  dockmon.ContainerDetail
}

// ContainerRuntime is an in-memory implementation of
// collect.ContainerRuntime. Containers enumerate in the order they were
// added.
type ContainerRuntime struct {
	CallRecorder
	mu         sync.Mutex
	order      []string
	containers map[string]*containerEntry
	diskUsage  map[string]dockmon.SizeInfo
	faults     *fault.Injector

	ListContainersErr   func(ctx context.Context) error
	InspectContainerErr func(ctx context.Context, id string) error
	SystemDiskUsageErr  func(ctx context.Context) error
}

// NewContainerRuntime creates an empty ContainerRuntime.
func NewContainerRuntime() *ContainerRuntime {
	return &ContainerRuntime{
		containers: make(map[string]*containerEntry),
		diskUsage:  make(map[string]dockmon.SizeInfo),
		faults:     fault.NewInjector(),
	}
}

// FailOnce injects err for the next evaluation of point.
func (r *ContainerRuntime) FailOnce(point string, err error) {
	r.faults.FailOnce(point, err)
}

// FailAlways injects err on every evaluation of point.
func (r *ContainerRuntime) FailAlways(point string, err error) {
	r.faults.FailAlways(point, err)
}

// SetFaultHook sets an argument-aware hook for point.
func (r *ContainerRuntime) SetFaultHook(point string, hook fault.Hook) {
	r.faults.SetHook(point, hook)
}

// ResetFaults removes all configured faults.
func (r *ContainerRuntime) ResetFaults() {
	r.faults.Reset()
}

// AddContainer registers a container with its inspect detail.
func (r *ContainerRuntime) AddContainer(summary dockmon.ContainerSummary, detail dockmon.ContainerDetail) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.containers[summary.ID]; !exists {
		r.order = append(r.order, summary.ID)
	}
	r.containers[summary.ID] = &containerEntry{summary: summary, detail: detail}
}

// RemoveContainer drops a container. Later inspects return a not-found
// error while the container may still appear in an earlier enumeration,
// mimicking removal mid-cycle.
func (r *ContainerRuntime) RemoveContainer(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.containers, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// SetDiskUsage sets the bulk disk-usage report returned by SystemDiskUsage.
func (r *ContainerRuntime) SetDiskUsage(usage map[string]dockmon.SizeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.diskUsage = make(map[string]dockmon.SizeInfo, len(usage))
	for id, info := range usage {
		r.diskUsage[id] = info
	}
}

func (r *ContainerRuntime) ListContainers(ctx context.Context, includeStopped bool) ([]dockmon.ContainerSummary, error) {
	r.record("ListContainers", includeStopped)
	if err := r.faults.Eval(FaultRuntimeList, ctx, includeStopped); err != nil {
		return nil, err
	}
	if r.ListContainersErr != nil {
		if err := r.ListContainersErr(ctx); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []dockmon.ContainerSummary
	for _, id := range r.order {
		entry := r.containers[id]
		if !includeStopped && entry.summary.Status != dockmon.StatusRunning {
			continue
		}
		out = append(out, entry.summary)
	}
	return out, nil
}

func (r *ContainerRuntime) InspectContainer(ctx context.Context, id string) (dockmon.ContainerDetail, error) {
	r.record("InspectContainer", id)
	if err := r.faults.Eval(FaultRuntimeInspect, ctx, id); err != nil {
		return dockmon.ContainerDetail{}, err
	}
	if r.InspectContainerErr != nil {
		if err := r.InspectContainerErr(ctx, id); err != nil {
			return dockmon.ContainerDetail{}, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.containers[id]
	if !ok {
		return dockmon.ContainerDetail{}, fmt.Errorf("container %s: %w", id, errdefs.ErrNotFound)
	}
	return entry.detail, nil
}

func (r *ContainerRuntime) SystemDiskUsage(ctx context.Context) (map[string]dockmon.SizeInfo, error) {
	r.record("SystemDiskUsage")
	if err := r.faults.Eval(FaultRuntimeDiskUsage, ctx); err != nil {
		return nil, err
	}
	if r.SystemDiskUsageErr != nil {
		if err := r.SystemDiskUsageErr(ctx); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]dockmon.SizeInfo, len(r.diskUsage))
	for id, info := range r.diskUsage {
		out[id] = info
	}
	return out, nil
}
