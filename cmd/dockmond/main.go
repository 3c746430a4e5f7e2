package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"dockmon/config"
	"dockmon/daemon"
	"dockmon/internal/logging"
	"dockmon/internal/support/buildinfo"

	"github.com/spf13/cobra"
)

func main() {
	if err := logging.Configure(logging.LevelInfo, ""); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := rootCmd().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:     "dockmond",
		Short:   "Container snapshot monitoring daemon",
		Version: buildinfo.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			level := cfg.Log.Level
			if debug {
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

			slog.Info("dockmond starting", "version", buildinfo.Version, "config", configPath)
			if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			slog.Info("dockmond stopped")
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "Configuration file path")
	return cmd
}
