// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for the cache database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the cache database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// syncCommand runs the sync pipeline against the remote server.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror libraries and play history into the local cache",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "full",
				Usage: "Walk all libraries and re-ingest all history, ignoring the watermark",
			},
			&cli.BoolFlag{
				Name:  "clear",
				Usage: "Wipe the cache before syncing",
			},
			&cli.BoolFlag{
				Name:  "ui",
				Usage: "Show live progress in an interactive view",
			},
		},
		Action: r.Sync,
	}
}

// reportCommand renders reports from the cache (with remote data when available).
func reportCommand(r *Runner) *cli.Command {
	days := &cli.IntFlag{
		Name:    "days",
		Aliases: []string{"d"},
		Usage:   "Window size in days",
		Value:   30,
	}
	limit := &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"n"},
		Usage:   "Maximum rows to show",
		Value:   20,
	}
	mediaTypes := &cli.StringSliceFlag{
		Name:    "type",
		Aliases: []string{"t"},
		Usage:   "Filter by media type (movie, show, episode, ...)",
	}
	asJSON := &cli.BoolFlag{
		Name:  "json",
		Usage: "Output JSON instead of a table",
	}

	return &cli.Command{
		Name:  "report",
		Usage: "Reports over cached watch stats",
		Commands: []*cli.Command{
			{
				Name:   "recent",
				Usage:  "Recently added media",
				Flags:  []cli.Flag{configFlag(), days, limit, mediaTypes, asJSON},
				Action: r.ReportRecent,
			},
			{
				Name:   "watched",
				Usage:  "Most watched media (server stats, cache fallback)",
				Flags:  []cli.Flag{configFlag(), days, limit, mediaTypes, asJSON},
				Action: r.ReportWatched,
			},
			{
				Name:   "users",
				Usage:  "Per-user watch activity",
				Flags:  []cli.Flag{configFlag(), days, asJSON},
				Action: r.ReportUsers,
			},
			{
				Name:   "growth",
				Usage:  "Library growth by day and media type",
				Flags:  []cli.Flag{configFlag(), mediaTypes, asJSON},
				Action: r.ReportGrowth,
			},
		},
	}
}

// exportCommand writes cached data to files.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export cached data",
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "Export play history to CSV",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "Limit to one username (default: all users)",
					},
					&cli.IntFlag{
						Name:    "days",
						Aliases: []string{"d"},
						Usage:   "Window size in days",
						Value:   365,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: history_export.csv)",
						Value:   "history_export.csv",
					},
				},
				Action: r.ExportHistory,
			},
		},
	}
}

// statusCommand probes the server and summarizes the cache.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show server reachability, watermarks and cache counts",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Status,
	}
}

// apiCommand handles raw API calls for debugging.
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct Tautulli API calls",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Issue a raw command and print the data payload",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "cmd",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringSliceFlag{
						Name:    "param",
						Aliases: []string{"p"},
						Usage:   "Query parameter as key=value (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "metadata",
				Usage: "Show full detail for one item (server first, cache fallback)",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "rating_key",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIMetadata,
			},
		},
	}
}
