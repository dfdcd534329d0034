package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/statx/internal/formatter"
	"github.com/desertthunder/statx/internal/store"
	"github.com/desertthunder/statx/internal/tasks"
	"github.com/desertthunder/statx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Sync mirrors the remote server into the local cache, printing progress as
// it goes (or rendering it live with --ui).
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	client, err := r.statsClient(config)
	if err != nil {
		return err
	}

	st, closeStore, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()

	engine := tasks.NewEngine(client, st, r.logger, config.Sync.PageSize)
	opts := tasks.SyncOptions{
		Full:  cmd.Bool("full"),
		Clear: cmd.Bool("clear"),
	}

	if cmd.Bool("ui") {
		model := ui.NewModel(ctx, engine, opts)
		_, err := tea.NewProgram(model).Run()
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchLibraries, tasks.Cleanup, tasks.Finalize:
				r.writePlain("%s\n", update.Message)
			case tasks.FetchMedia, tasks.FetchHistory:
				r.writePlain("  %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Sync(ctx, progressCh, opts)

	// Drain fully before anything else writes to output.
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	counts, err := st.Counts()
	if err != nil {
		r.logger.Warn("failed to read cache counts", "error", err)
	}

	summary := r.summarize(result, counts)
	r.writePlain("\n%s", summary)
	return nil
}

func (r *Runner) summarize(result *tasks.SyncResult, counts *store.CacheCounts) string {
	return string(formatter.SyncSummary(
		result.RunID,
		result.FullSync,
		result.LibrariesSynced,
		result.ItemsSynced,
		result.NewHistoryRows,
		result.StaleRemoved,
		counts,
	))
}
