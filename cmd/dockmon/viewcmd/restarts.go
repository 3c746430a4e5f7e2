package viewcmd

import (
	"context"
	"fmt"

	"dockmon"
	"dockmon/cmd/dockmon/ui"

	"github.com/spf13/cobra"
)

// RestartsCmd returns the "dockmon restarts" command.
func RestartsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "restarts",
		Short: "Show containers restarting more than usual",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := openSnapshots(*configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			var restarts []dockmon.HighRestart
			err = ui.RunWithSpinner(cmd.Context(), "Loading restarts", func(ctx context.Context) error {
				var err error
				restarts, err = store.HighRestarts(ctx)
				return err
			})
			if err != nil {
				return err
			}

			if len(restarts) == 0 {
				fmt.Println(ui.Muted(fmt.Sprintf("no containers above %d restarts", dockmon.HighRestartThreshold)))
				return nil
			}

			rows := make([][]string, 0, len(restarts))
			for _, r := range restarts {
				rows = append(rows, []string{
					r.Hostname,
					r.ContainerName,
					r.ImageName,
					ui.StatusText(string(r.Status)),
					fmt.Sprintf("%d", r.RestartCount),
					humanAge(r.SnapshotTime),
				})
			}

			fmt.Println(ui.Table([]string{"Host", "Container", "Image", "Status", "Restarts", "Seen"}, rows))
			return nil
		},
	}
}
