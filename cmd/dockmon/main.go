package main

import (
	"fmt"
	"os"

	"dockmon/cmd/dockmon/runcmd"
	"dockmon/cmd/dockmon/ui"
	"dockmon/cmd/dockmon/viewcmd"
	"dockmon/config"
	"dockmon/internal/logging"
	"dockmon/internal/support/buildinfo"

	"github.com/spf13/cobra"
)

func main() {
	var (
		debug         bool
		noInteraction bool
		configPath    string
	)
	if err := logging.Configure(logging.LevelWarn, ""); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "dockmon",
		Short:         "Container status and disk usage monitoring",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			if err := logging.Configure(level, ""); err != nil {
				return err
			}
			ui.ConfigureInteraction(noInteraction)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Configuration file path")
	root.PersistentFlags().BoolVar(&noInteraction, "no-interaction", false, "Disable spinners and interactive tables")

	root.AddCommand(runcmd.Cmd(&configPath))
	root.AddCommand(viewcmd.StatusCmd(&configPath))
	root.AddCommand(viewcmd.ChangesCmd(&configPath))
	root.AddCommand(viewcmd.UsageCmd(&configPath))
	root.AddCommand(viewcmd.RestartsCmd(&configPath))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the dockmon version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Println(buildinfo.Version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
