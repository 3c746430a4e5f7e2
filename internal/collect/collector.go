// Package collect turns one cycle's container enumeration into snapshot
// rows: filtering, per-container metrics extraction with the disk-usage
// fallback chain, and bounded-concurrency assembly.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dockmon"
)

// Options tune a Collector.
type Options struct {
	// RuntimeTimeout bounds each runtime call. Zero means no extra bound
	// beyond the caller's context.
	RuntimeTimeout time.Duration
	// UseSystemDF enables the bulk disk-usage fallback. The query walks
	// every container and layer on the host, so it is opt-out.
	UseSystemDF bool
}

// Collector extracts one container's metrics from the runtime. It is
// cycle-scoped: the first container that needs the bulk disk-usage
// fallback triggers the query once and later containers reuse the result.
// Collect is safe to call from concurrent workers within the cycle.
type Collector struct {
	runtime ContainerRuntime
	log     *slog.Logger
	opts    Options

	dfOnce sync.Once
	df     map[string]dockmon.SizeInfo
	dfErr  error
}

// NewCollector returns a Collector for one collection cycle.
func NewCollector(runtime ContainerRuntime, log *slog.Logger, opts Options) *Collector {
	return &Collector{runtime: runtime, log: log, opts: opts}
}

// Collect inspects the container and resolves its disk usage through the
// fallback chain. The returned snapshot carries no SnapshotTime; the
// assembler stamps every row of a cycle with the shared cycle timestamp.
//
// Any inspect failure (container removed mid-cycle, timeout) is returned
// as an error; the caller skips the container for this cycle only.
func (c *Collector) Collect(ctx context.Context, id dockmon.ContainerIdentity) (dockmon.MetricsSnapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	detail, err := c.runtime.InspectContainer(callCtx, id.ContainerID)
	cancel()
	if err != nil {
		return dockmon.MetricsSnapshot{}, fmt.Errorf("inspect container %s: %w", id.ContainerName, err)
	}

	snap := dockmon.MetricsSnapshot{
		CreatedAt:    detail.CreatedAt,
		RunningFor:   detail.RunningFor,
		Status:       detail.Status,
		RestartCount: detail.RestartCount,
	}
	if !snap.Status.Known() {
		c.log.Debug("unrecognized container status",
			"container", id.ContainerName, "status", snap.Status)
	}

	sizes := c.resolveSizes(ctx, id, detail)
	snap.SizeRwBytes = sizes.SizeRw
	snap.SizeRootFSBytes = sizes.SizeRootFs
	snap.DiskUsageBytes = sizes.SizeRw
	if snap.DiskUsageBytes == 0 {
		snap.DiskUsageBytes = sizes.SizeRootFs
	}
	return snap, nil
}

// sizeSource is one strategy in the disk-usage fallback chain. ok reports
// whether the source had data for the container; an error counts as no
// data. New sources append to the chain without touching existing ones.
type sizeSource struct {
	name string
	load func(ctx context.Context, id dockmon.ContainerIdentity) (dockmon.SizeInfo, bool, error)
}

// resolveSizes walks the chain in order and returns the first hit. When
// every source comes up empty the zero SizeInfo is the degraded result.
func (c *Collector) resolveSizes(ctx context.Context, id dockmon.ContainerIdentity, detail dockmon.ContainerDetail) dockmon.SizeInfo {
	for _, src := range c.sizeSources(detail) {
		info, ok, err := src.load(ctx, id)
		if err != nil {
			c.log.Warn("disk usage source failed",
				"source", src.name, "container", id.ContainerName, "error", err)
			continue
		}
		if ok {
			return info
		}
	}
	c.log.Debug("disk usage unavailable, recording zero",
		"container", id.ContainerName)
	return dockmon.SizeInfo{}
}

func (c *Collector) sizeSources(detail dockmon.ContainerDetail) []sizeSource {
	sources := []sizeSource{{
		name: "inspect",
		load: func(context.Context, dockmon.ContainerIdentity) (dockmon.SizeInfo, bool, error) {
			if !detail.HasSizes {
				return dockmon.SizeInfo{}, false, nil
			}
			return dockmon.SizeInfo{SizeRw: detail.SizeRw, SizeRootFs: detail.SizeRootFs}, true, nil
		},
	}}
	if c.opts.UseSystemDF {
		sources = append(sources, sizeSource{name: "system_df", load: c.systemDF})
	}
	return sources
}

// systemDF serves every container of the cycle from one bulk query.
func (c *Collector) systemDF(ctx context.Context, id dockmon.ContainerIdentity) (dockmon.SizeInfo, bool, error) {
	c.dfOnce.Do(func() {
		callCtx, cancel := c.callContext(ctx)
		defer cancel()
		c.df, c.dfErr = c.runtime.SystemDiskUsage(callCtx)
	})
	if c.dfErr != nil {
		return dockmon.SizeInfo{}, false, fmt.Errorf("system disk usage: %w", c.dfErr)
	}
	info, ok := c.df[id.ContainerID]
	return info, ok, nil
}

func (c *Collector) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.RuntimeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opts.RuntimeTimeout)
}
