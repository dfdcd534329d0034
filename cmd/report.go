package main

import (
	"context"
	"time"

	"github.com/desertthunder/statx/internal/formatter"
	"github.com/desertthunder/statx/internal/models"
	"github.com/urfave/cli/v3"
)

// ReportRecent shows recently added media, preferring the live server feed
// and falling back to the cache when the server is unreachable.
func (r *Runner) ReportRecent(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	days := int(cmd.Int("days"))
	limit := int(cmd.Int("limit"))
	types := cmd.StringSlice("type")

	var items []models.MediaItem

	if client, err := r.statsClient(config); err == nil {
		now := time.Now().Unix()
		cutoff := time.Now().AddDate(0, 0, -days).Unix()
		for _, info := range client.RecentlyAdded(ctx, limit) {
			item := info.ToMediaItem(now)
			if item.AddedAt == nil || *item.AddedAt < cutoff {
				continue
			}
			if !typeAllowed(item.Type, types) {
				continue
			}
			items = append(items, item)
		}
	}

	if items == nil {
		r.logger.Debug("server unavailable, reading recent additions from cache")
		st, closeStore, err := r.openStore(config)
		if err != nil {
			return err
		}
		defer closeStore()

		if items, err = st.RecentlyAdded(days, limit, types); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, true)
	}
	return r.writePlain("%s", formatter.RecentTable(items))
}

// ReportWatched shows the most watched media, preferring the server's
// pre-aggregated stats and falling back to cached history.
func (r *Runner) ReportWatched(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	days := int(cmd.Int("days"))
	limit := int(cmd.Int("limit"))
	types := cmd.StringSlice("type")

	if client, err := r.statsClient(config); err == nil {
		if stats := client.HomeStats(ctx, days); stats != nil {
			if cmd.Bool("json") {
				return r.writeJSON(stats, true)
			}
			return r.writePlain("%s", formatter.HomeStatsTable(stats))
		}
	}

	r.logger.Debug("server unavailable, computing most watched from cache")
	st, closeStore, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()

	items, err := st.MostWatched(days, limit, types)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, true)
	}
	return r.writePlain("%s", formatter.WatchedTable(items))
}

// ReportUsers shows per-user watch activity from cached history.
func (r *Runner) ReportUsers(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	st, closeStore, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := st.UserStats(int(cmd.Int("days")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	return r.writePlain("%s", formatter.UserStatsTable(result))
}

// ReportGrowth shows library growth bucketed by day and media type.
func (r *Runner) ReportGrowth(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	st, closeStore, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()

	points, err := st.LibraryGrowth(cmd.StringSlice("type"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(points, true)
	}
	return r.writePlain("%s", formatter.GrowthTable(points))
}

func typeAllowed(t models.MediaType, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if string(t) == want {
			return true
		}
	}
	return false
}
