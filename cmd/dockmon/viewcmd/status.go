package viewcmd

import (
	"context"
	"fmt"
	"time"

	"dockmon"
	"dockmon/cmd/dockmon/ui"
	"dockmon/internal/adapter/sqlite"

	"github.com/spf13/cobra"
)

// historyLimit caps the drill-down view of one container's changes.
const historyLimit = 20

// StatusCmd returns the "dockmon status" command. configPath is a pointer
// to the root persistent flag value.
func StatusCmd(configPath *string) *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest status of each container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := openSnapshots(*configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			var statuses []dockmon.LatestStatus
			err = ui.RunWithSpinner(cmd.Context(), "Loading snapshots", func(ctx context.Context) error {
				var err error
				statuses, err = store.LatestStatuses(ctx, host)
				return err
			})
			if err != nil {
				return err
			}

			if len(statuses) == 0 {
				fmt.Println(ui.Muted("no snapshots recorded"))
				return nil
			}

			rows := make([][]string, 0, len(statuses))
			for _, st := range statuses {
				rows = append(rows, []string{
					st.Hostname,
					st.ContainerName,
					st.ImageName,
					ui.StatusText(string(st.Status)),
					fmt.Sprintf("%d", st.RestartCount),
					humanBytes(st.DiskUsage),
					humanAge(st.SnapshotTime),
				})
			}

			headers := []string{"Host", "Container", "Image", "Status", "Restarts", "Disk", "Seen"}
			selected, err := ui.InteractiveTable(headers, rows)
			if err != nil {
				return err
			}
			if selected < 0 {
				return nil
			}
			return printContainerHistory(cmd.Context(), store, statuses[selected])
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "only show containers from this host")
	return cmd
}

// printContainerHistory shows one container's detail block and its recent
// status changes, newest first.
func printContainerHistory(ctx context.Context, store *sqlite.SnapshotStore, st dockmon.LatestStatus) error {
	fmt.Println()
	fmt.Println(ui.InfoMsg("%s on %s", ui.Accent(st.ContainerName), st.Hostname))
	fmt.Print(ui.KeyValues("  ",
		ui.KV("ID", st.ContainerID),
		ui.KV("Image", st.ImageName),
		ui.KV("Status", ui.StatusText(string(st.Status))),
		ui.KV("Uptime", st.RunningFor),
		ui.KV("Restarts", fmt.Sprintf("%d", st.RestartCount)),
		ui.KV("Disk", humanBytes(st.DiskUsage)),
	))

	// The change feed has no per-container query; filter the host's feed.
	changes, err := store.StatusChanges(ctx, st.Hostname, time.Time{}, 0)
	if err != nil {
		return err
	}

	history := make([][]string, 0, historyLimit)
	for _, ch := range changes {
		if ch.ContainerID != st.ContainerID {
			continue
		}
		history = append(history, []string{
			humanAge(ch.SnapshotTime),
			fmt.Sprintf("%s -> %s", ch.PrevStatus, ui.StatusText(string(ch.Status))),
			fmt.Sprintf("%d -> %d", ch.PrevRestarts, ch.Restarts),
		})
		if len(history) == historyLimit {
			break
		}
	}

	fmt.Println()
	if len(history) == 0 {
		fmt.Println(ui.Muted("no status changes recorded"))
		return nil
	}
	fmt.Println(ui.Table([]string{"When", "Status", "Restarts"}, history))
	return nil
}
