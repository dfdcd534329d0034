package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/statx/internal/formatter"
	"github.com/urfave/cli/v3"
)

// ExportHistory writes cached play history to a CSV file, optionally
// limited to one user.
func (r *Runner) ExportHistory(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	username := cmd.String("user")
	days := int(cmd.Int("days"))
	outputPath := cmd.String("output")

	st, closeStore, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()

	rows, err := st.HistoryByUser(username, days)
	if err != nil {
		return err
	}

	data, err := formatter.HistoryCSV(rows)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	r.logger.Info("history exported", "rows", len(rows), "path", outputPath)
	r.writePlain("Exported %d plays to %s\n", len(rows), outputPath)
	return nil
}
