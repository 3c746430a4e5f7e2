package viewcmd

import (
	"context"
	"fmt"

	"dockmon"
	"dockmon/cmd/dockmon/ui"

	"github.com/spf13/cobra"
)

// UsageCmd returns the "dockmon usage" command.
func UsageCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show per-host container disk usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := openSnapshots(*configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			var usage []dockmon.HostUsage
			err = ui.RunWithSpinner(cmd.Context(), "Loading usage", func(ctx context.Context) error {
				var err error
				usage, err = store.HostUsage(ctx)
				return err
			})
			if err != nil {
				return err
			}

			if len(usage) == 0 {
				fmt.Println(ui.Muted("no snapshots recorded"))
				return nil
			}

			rows := make([][]string, 0, len(usage))
			for _, u := range usage {
				rows = append(rows, []string{
					u.Hostname,
					fmt.Sprintf("%d", u.Containers),
					fmt.Sprintf("%d", u.Running),
					humanBytes(u.DiskUsage),
					humanAge(u.SnapshotTime),
				})
			}

			fmt.Println(ui.Table([]string{"Host", "Containers", "Running", "Disk", "Seen"}, rows))
			return nil
		},
	}
}
