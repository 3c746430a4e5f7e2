package collect

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"dockmon"
	"dockmon/internal/check"
	"dockmon/internal/filter"
)

// Assembler composes the filter and per-cycle collectors into one cycle's
// batch of rows. It lives for the process; per-cycle state (the bulk
// disk-usage memo) lives in the Collector it creates each cycle.
type Assembler struct {
	runtime  ContainerRuntime
	filter   *filter.Filter
	tracker  *RestartTracker
	log      *slog.Logger
	hostname string
	workers  int
	opts     Options
}

// Batch is one cycle's assembled output. len(Rows) == Matched - Failed.
type Batch struct {
	Rows    []dockmon.Row
	Matched int // containers that passed the filter
	Failed  int // matched containers whose collection failed
}

// NewAssembler wires an Assembler. workers bounds concurrent collection
// within a cycle and must be at least 1.
func NewAssembler(runtime ContainerRuntime, flt *filter.Filter, hostname string, workers int, log *slog.Logger, opts Options) *Assembler {
	check.Assertf(workers >= 1, "assembler workers %d", workers)
	return &Assembler{
		runtime:  runtime,
		filter:   flt,
		tracker:  NewRestartTracker(log),
		log:      log,
		hostname: hostname,
		workers:  workers,
		opts:     opts,
	}
}

// Assemble filters the enumeration and collects metrics for the matched
// containers concurrently. Each worker writes into its own slot; after all
// slots resolve the batch is compacted in enumeration order, stamped with
// the shared cycleTime. A container whose collection failed leaves its
// slot empty and the batch short by one row; the cycle itself never fails
// here.
func (a *Assembler) Assemble(ctx context.Context, cycleTime time.Time, summaries []dockmon.ContainerSummary) Batch {
	identities := make([]dockmon.ContainerIdentity, len(summaries))
	monitored := make([]int, 0, len(summaries))
	for i, s := range summaries {
		identities[i] = dockmon.ContainerIdentity{
			Hostname:      a.hostname,
			ContainerID:   s.ID,
			ContainerName: s.Name,
			ImageName:     s.Image,
		}
		if a.filter.Decide(identities[i]) {
			monitored = append(monitored, i)
		} else {
			a.log.Debug("container filtered out",
				"container", s.Name, "image", s.Image)
		}
	}

	collector := NewCollector(a.runtime, a.log, a.opts)
	slots := make([]*dockmon.MetricsSnapshot, len(summaries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for _, i := range monitored {
		g.Go(func() error {
			snap, err := collector.Collect(gctx, identities[i])
			if err != nil {
				// Per-container isolation: log and leave the slot empty.
				a.log.Warn("container collection failed",
					"container", identities[i].ContainerName,
					"id", dockmon.ShortID(identities[i].ContainerID),
					"error", err)
				return nil
			}
			slots[i] = &snap
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	batch := Batch{
		Rows:    make([]dockmon.Row, 0, len(monitored)),
		Matched: len(monitored),
	}
	for _, i := range monitored {
		if slots[i] == nil {
			batch.Failed++
			continue
		}
		snap := *slots[i]
		snap.SnapshotTime = cycleTime
		a.tracker.Observe(identities[i], snap.RestartCount)
		batch.Rows = append(batch.Rows, dockmon.Row{
			ContainerIdentity: identities[i],
			MetricsSnapshot:   snap,
		})
	}
	check.Assertf(len(batch.Rows) == batch.Matched-batch.Failed,
		"batch rows %d, matched %d, failed %d", len(batch.Rows), batch.Matched, batch.Failed)
	return batch
}
