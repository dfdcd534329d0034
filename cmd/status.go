package main

import (
	"context"

	"github.com/desertthunder/statx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Status probes the remote server and summarizes the local cache: server
// identity and activity when reachable, watermarks and row counts always.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	client, err := r.statsClient(config)
	if err != nil {
		r.writePlain("Server: not configured (%v)\n", err)
	} else {
		if info := client.ServerInfo(ctx); info != nil {
			r.writePlain("Server: %s (%s, %s)\n", info.Name, info.Version, info.Platform)
		} else {
			r.writePlain("Server: unreachable\n")
		}
		if activity := client.Activity(ctx); activity != nil {
			r.writePlain("Active streams: %d\n", activity.StreamCount.Int64())
		}
	}

	st, closeStore, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()

	status, err := st.SyncStatus()
	if err != nil {
		return err
	}
	counts, err := st.Counts()
	if err != nil {
		return err
	}

	r.writePlain("\nCache: %s\n", config.Database.Path)
	r.writePlain("Last library sync: %s\n", shared.FormatDate(status.LastLibrarySync))
	r.writePlain("Last history sync: %s\n", shared.FormatDate(status.LastHistorySync))
	r.writePlain("Items synced to date: %d\n", status.TotalItemsSynced)
	r.writePlain("Media items: %d  Play history: %d  Users: %d\n",
		counts.MediaItems, counts.PlayHistory, counts.Users)
	return nil
}
