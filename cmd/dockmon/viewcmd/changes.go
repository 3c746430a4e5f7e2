package viewcmd

import (
	"context"
	"fmt"
	"time"

	"dockmon"
	"dockmon/cmd/dockmon/ui"

	"github.com/spf13/cobra"
)

// ChangesCmd returns the "dockmon changes" command.
func ChangesCmd(configPath *string) *cobra.Command {
	var (
		host  string
		since time.Duration
		limit int
	)

	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Show recent container status changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := openSnapshots(*configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			var cutoff time.Time
			if since > 0 {
				cutoff = time.Now().Add(-since)
			}

			var changes []dockmon.StatusChange
			err = ui.RunWithSpinner(cmd.Context(), "Loading changes", func(ctx context.Context) error {
				var err error
				changes, err = store.StatusChanges(ctx, host, cutoff, limit)
				return err
			})
			if err != nil {
				return err
			}

			if len(changes) == 0 {
				fmt.Println(ui.Muted("no status changes recorded"))
				return nil
			}

			rows := make([][]string, 0, len(changes))
			for _, ch := range changes {
				rows = append(rows, []string{
					humanAge(ch.SnapshotTime),
					ch.Hostname,
					ch.ContainerName,
					fmt.Sprintf("%s -> %s", ch.PrevStatus, ui.StatusText(string(ch.Status))),
					fmt.Sprintf("%d -> %d", ch.PrevRestarts, ch.Restarts),
				})
			}

			fmt.Println(ui.Table([]string{"When", "Host", "Container", "Status", "Restarts"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "only show changes from this host")
	cmd.Flags().DurationVar(&since, "since", 0, "only show changes newer than this, e.g. 24h")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to show, 0 for all")
	return cmd
}
