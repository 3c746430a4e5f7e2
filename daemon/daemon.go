// Package daemon assembles the monitor from configuration and runs it:
// docker runtime, sqlite store, cycle scheduler, admin endpoint, and the
// optional clock-skew probe under one task group.
package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"dockmon/config"
	"dockmon/internal/admin"
	"dockmon/internal/adapter/docker"
	"dockmon/internal/adapter/sqlite"
	"dockmon/internal/collect"
	"dockmon/internal/filter"
	"dockmon/internal/monitor"
	"dockmon/internal/ntpcheck"
	"dockmon/internal/persist"
	"dockmon/internal/support/buildinfo"

	systemd "github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"
)

// Daemon is an assembled monitor process.
type Daemon struct {
	cfg      config.Config
	log      *slog.Logger
	hostname string

	runtime *docker.Runtime
	store   *sqlite.Store
	mon     *monitor.Monitor
	sched   *monitor.Scheduler
	ntp     *ntpcheck.Checker // nil when disabled
}

// New wires a Daemon from cfg. Configuration problems, bad filter regexes
// included, fail here so nothing ever starts from a broken config.
func New(cfg config.Config, log *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	hostname, err := cfg.Monitor.ResolveHostname()
	if err != nil {
		return nil, err
	}

	flt, err := filter.Compile(filter.Spec{
		IncludeNames:  cfg.Monitor.Filters.IncludeContainerNames,
		ExcludeNames:  cfg.Monitor.Filters.ExcludeContainerNames,
		IncludeImages: cfg.Monitor.Filters.IncludeImageNames,
		ExcludeImages: cfg.Monitor.Filters.ExcludeImageNames,
	})
	if err != nil {
		return nil, fmt.Errorf("compile filters: %w", err)
	}

	runtime, err := docker.NewRuntime()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	clock := collect.RealClock{}
	writer := persist.NewWriter(sqlite.NewSnapshotStore(store), log)
	mon := monitor.New(runtime, flt, writer, clock, log, monitor.Config{
		Hostname:       hostname,
		IncludeStopped: cfg.Monitor.IncludeStopped,
		Workers:        cfg.Monitor.CollectWorkers,
		RuntimeTimeout: cfg.Monitor.RuntimeTimeout(),
		UseSystemDF:    cfg.Monitor.UseSystemDFFallback,
	})

	d := &Daemon{
		cfg:      cfg,
		log:      log,
		hostname: hostname,
		runtime:  runtime,
		store:    store,
		mon:      mon,
		sched:    monitor.NewScheduler(mon, cfg.Monitor.Period(), clock, log),
	}
	if cfg.NTP.Enabled {
		d.ntp = ntpcheck.NewChecker(cfg.NTP.Server, clock, log)
	}
	return d, nil
}

// WaitReady blocks until the container runtime answers a ping.
func (d *Daemon) WaitReady(ctx context.Context) error {
	return d.runtime.WaitReady(ctx)
}

// RunOnce executes exactly one collection cycle.
func (d *Daemon) RunOnce(ctx context.Context) (monitor.CycleStats, error) {
	return d.mon.RunCycle(ctx)
}

// Run starts the periodic scheduler plus the admin endpoint and NTP probe,
// and blocks until ctx is cancelled. An in-flight cycle finishes before Run
// returns.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.runtime.WaitReady(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if d.cfg.Admin.Addr != "" {
		srv := admin.NewServer(d, d.log)
		g.Go(func() error { return srv.ListenAndServe(ctx, d.cfg.Admin.Addr) })
	}

	if d.ntp != nil {
		g.Go(func() error {
			d.ntp.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		if _, err := systemd.SdNotify(false, systemd.SdNotifyReady); err != nil {
			d.log.Warn("notify systemd ready", "err", err)
		}
		defer func() {
			if _, err := systemd.SdNotify(false, systemd.SdNotifyStopping); err != nil {
				d.log.Warn("notify systemd stopping", "err", err)
			}
		}()
		return d.sched.Run(ctx)
	})

	return g.Wait()
}

// Status reports the daemon's current state for the admin endpoint.
func (d *Daemon) Status() admin.Status {
	st := admin.Status{
		Hostname: d.hostname,
		Version:  buildinfo.Version,
		Phase:    d.sched.Phase().String(),
		Cycles:   d.mon.Cycles(),
	}

	if last, ok := d.mon.LastCycle(); ok {
		report := admin.CycleReport{
			Time:       last.Stats.CycleTime,
			Enumerated: last.Stats.Enumerated,
			Matched:    last.Stats.Matched,
			Failed:     last.Stats.Failed,
			Written:    last.Stats.Written,
			DurationMS: last.Stats.Duration.Milliseconds(),
		}
		if last.Err != nil {
			report.Error = last.Err.Error()
		}
		st.LastCycle = &report
	}

	if d.ntp != nil {
		ntpStatus := d.ntp.Status()
		st.Clock = &admin.ClockReport{
			Phase:         ntpStatus.Phase.String(),
			OffsetSeconds: d.ntp.Offset(),
			CheckedAt:     ntpStatus.CheckedAt,
			Error:         ntpStatus.Error,
		}
	}
	return st
}

// Close releases the runtime and store handles.
func (d *Daemon) Close() error {
	var firstErr error
	if err := d.runtime.Close(); err != nil {
		firstErr = err
	}
	if err := d.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
