// Package monitor drives collection cycles. A Monitor runs one cycle end
// to end; a Scheduler repeats cycles on a fixed start-to-start period.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dockmon"
	"dockmon/internal/collect"
	"dockmon/internal/filter"
)

// Config tunes a Monitor.
type Config struct {
	// Hostname stamps every row this process writes.
	Hostname string
	// IncludeStopped extends enumeration beyond running containers.
	IncludeStopped bool
	// Workers bounds concurrent collection within a cycle. At least 1.
	Workers int
	// RuntimeTimeout bounds each container runtime call.
	RuntimeTimeout time.Duration
	// UseSystemDF enables the bulk disk-usage fallback.
	UseSystemDF bool
}

// CycleStats summarizes one cycle attempt.
type CycleStats struct {
	CycleTime  time.Time
	Enumerated int // containers the runtime reported
	Matched    int // containers that passed the filter
	Failed     int // matched containers whose collection failed
	Written    int // rows persisted
	Duration   time.Duration
}

// CycleResult pairs a cycle's stats with its outcome.
type CycleResult struct {
	Stats CycleStats
	Err   error
}

// Monitor turns one cycle trigger into persisted snapshot rows:
// enumerate, filter and collect, write. Safe for one cycle at a time;
// the scheduler never overlaps cycles.
type Monitor struct {
	runtime   collect.ContainerRuntime
	assembler *collect.Assembler
	writer    SnapshotWriter
	clock     collect.Clock
	log       *slog.Logger
	cfg       Config

	mu     sync.Mutex
	cycles uint64
	last   CycleResult
}

func New(runtime collect.ContainerRuntime, flt *filter.Filter, writer SnapshotWriter, clock collect.Clock, log *slog.Logger, cfg Config) *Monitor {
	opts := collect.Options{
		RuntimeTimeout: cfg.RuntimeTimeout,
		UseSystemDF:    cfg.UseSystemDF,
	}
	return &Monitor{
		runtime:   runtime,
		assembler: collect.NewAssembler(runtime, flt, cfg.Hostname, cfg.Workers, log, opts),
		writer:    writer,
		clock:     clock,
		log:       log,
		cfg:       cfg,
	}
}

// RunCycle performs one collection cycle. Every row shares the snapshot
// time taken at cycle start. Enumeration failure or an abandoned write
// fails the whole cycle; a single container's failure only shrinks the
// batch.
func (m *Monitor) RunCycle(ctx context.Context) (CycleStats, error) {
	stats, err := m.runCycle(ctx)

	m.mu.Lock()
	m.cycles++
	m.last = CycleResult{Stats: stats, Err: err}
	m.mu.Unlock()
	return stats, err
}

func (m *Monitor) runCycle(ctx context.Context) (CycleStats, error) {
	start := m.clock.Now()
	stats := CycleStats{CycleTime: start.UTC()}

	listCtx, cancel := m.listContext(ctx)
	summaries, err := m.runtime.ListContainers(listCtx, m.cfg.IncludeStopped)
	cancel()
	if err != nil {
		cyclesTotal.WithLabelValues("error").Inc()
		return stats, fmt.Errorf("enumerate containers: %w", err)
	}
	stats.Enumerated = len(summaries)

	batch := m.assembler.Assemble(ctx, stats.CycleTime, summaries)
	stats.Matched = batch.Matched
	stats.Failed = batch.Failed
	if batch.Failed > 0 {
		collectFailuresTotal.Add(float64(batch.Failed))
	}

	if err := m.writer.Write(ctx, batch.Rows); err != nil {
		cyclesTotal.WithLabelValues("error").Inc()
		return stats, fmt.Errorf("persist cycle: %w", err)
	}
	stats.Written = len(batch.Rows)
	stats.Duration = m.clock.Now().Sub(start)

	m.observe(stats, batch.Rows)
	m.log.Info("cycle complete",
		"enumerated", stats.Enumerated,
		"matched", stats.Matched,
		"failed", stats.Failed,
		"written", stats.Written,
		"duration", stats.Duration)
	return stats, nil
}

func (m *Monitor) observe(stats CycleStats, rows []dockmon.Row) {
	cyclesTotal.WithLabelValues("ok").Inc()
	cycleDuration.Observe(stats.Duration.Seconds())
	containersEnumerated.Set(float64(stats.Enumerated))
	containersWritten.Set(float64(stats.Written))

	// Reset drops statuses that disappeared since the previous cycle.
	containersByStatus.Reset()
	for _, row := range rows {
		containersByStatus.WithLabelValues(string(row.Status)).Inc()
	}
}

// LastCycle reports the most recent cycle attempt. ok is false until the
// first cycle runs.
func (m *Monitor) LastCycle() (CycleResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.cycles > 0
}

// Cycles returns the number of cycle attempts so far.
func (m *Monitor) Cycles() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cycles
}

func (m *Monitor) listContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.RuntimeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.cfg.RuntimeTimeout)
}
