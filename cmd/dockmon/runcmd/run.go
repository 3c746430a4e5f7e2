// Package runcmd implements "dockmon run", the foreground collection
// command.
package runcmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dockmon/cmd/dockmon/ui"
	"dockmon/config"
	"dockmon/daemon"
	"dockmon/internal/logging"
	"dockmon/internal/monitor"
	"dockmon/internal/telemetry"

	"github.com/spf13/cobra"
)

// Cmd returns the "dockmon run" command. configPath is a pointer to the
// root persistent flag value.
func Cmd(configPath *string) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect container snapshots",
		Long:  "Collects snapshots from the local docker daemon. Without run_periodically in the config this runs one cycle and exits; --once forces a single cycle either way.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			if once || !cfg.Monitor.RunPeriodically {
				return runOnce(cmd, cfg)
			}
			return runPeriodic(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single cycle even when the config enables periodic mode")
	return cmd
}

// runOnce drives a single collection cycle with step progress.
func runOnce(cmd *cobra.Command, cfg config.Config) error {
	telemetryOut := ui.NewTelemetryOutput()
	defer telemetryOut.Close()
	tracer := telemetryOut.Tracer("dockmon/cmd/run")

	op, err := telemetry.EmitPlan(cmd.Context(), tracer, "monitor.cycle", telemetry.Plan{Steps: []telemetry.PlannedStep{
		{ID: "prepare", Title: "preparing monitor"},
		{ID: "connect", Title: "connecting to docker"},
		{ID: "collect", Title: "collecting snapshots"},
	}})
	if err != nil {
		return err
	}
	var opErr error
	defer func() {
		op.End(opErr)
	}()

	var d *daemon.Daemon
	opErr = op.RunStep(op.Context(), "prepare", func(context.Context) error {
		built, buildErr := daemon.New(cfg, slog.Default())
		if buildErr != nil {
			return buildErr
		}
		d = built
		return nil
	})
	if opErr != nil {
		return opErr
	}
	defer func() { _ = d.Close() }()

	opErr = op.RunStep(op.Context(), "connect", func(stepCtx context.Context) error {
		return d.WaitReady(stepCtx)
	})
	if opErr != nil {
		return opErr
	}

	var stats monitor.CycleStats
	opErr = op.RunStep(op.Context(), "collect", func(stepCtx context.Context) error {
		collected, cycleErr := d.RunOnce(stepCtx)
		if cycleErr != nil {
			return cycleErr
		}
		stats = collected
		return nil
	})
	if opErr != nil {
		return opErr
	}

	fmt.Println(ui.SuccessMsg("cycle complete"))
	fmt.Print(ui.KeyValues("  ",
		ui.KV("enumerated", fmt.Sprintf("%d", stats.Enumerated)),
		ui.KV("matched", fmt.Sprintf("%d", stats.Matched)),
		ui.KV("written", fmt.Sprintf("%d", stats.Written)),
		ui.KV("took", stats.Duration.Round(time.Millisecond).String()),
	))
	if stats.Failed > 0 {
		fmt.Println(ui.WarnMsg("%d containers failed inspection", stats.Failed))
	}
	return nil
}

// runPeriodic runs the daemon loop in the foreground until interrupted.
// Logging follows the config here; the cycle details land in the log, not
// the terminal.
func runPeriodic(cmd *cobra.Command, cfg config.Config) error {
	level := cfg.Log.Level
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = logging.LevelDebug
	}
	if err := logging.Configure(level, cfg.Log.File); err != nil {
		return err
	}

	d, err := daemon.New(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(ui.InfoMsg("collecting every %s, interrupt to stop", cfg.Monitor.Period()))
	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println(ui.Muted("stopped"))
	return nil
}
