package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/statx/internal/models"
	"github.com/desertthunder/statx/internal/services"
	"github.com/desertthunder/statx/internal/shared"
	"github.com/desertthunder/statx/internal/store"
	th "github.com/desertthunder/statx/internal/testing"
	"github.com/urfave/cli/v3"
)

// stubStats is an injectable StatsService returning whatever the test
// scripted, so actions can be driven without a server. Sync-path reads
// serve everything in one page.
type stubStats struct {
	libraries []services.Library
	media     map[string][]services.MediaInfo
	history   []services.HistoryRecord
	recent    []services.MediaInfo
	stats     []services.HomeStat
	metadata  *services.MediaInfo
	activity  *services.Activity
	info      *services.ServerInfo
}

func (s *stubStats) Libraries(ctx context.Context) ([]services.Library, error) {
	return s.libraries, nil
}

func (s *stubStats) LibraryMedia(ctx context.Context, sectionID string, start, length int) (*services.MediaPage, error) {
	items := s.media[sectionID]
	page := &services.MediaPage{RecordsTotal: services.FlexInt(len(items))}
	if start == 0 {
		page.Data = items
	}
	return page, nil
}

func (s *stubStats) Children(ctx context.Context, ratingKey string) ([]services.MediaInfo, error) {
	return nil, nil
}

func (s *stubStats) History(ctx context.Context, startDate int64, start, length int) (*services.HistoryPage, error) {
	page := &services.HistoryPage{RecordsTotal: services.FlexInt(len(s.history))}
	if start == 0 {
		page.Data = s.history
	}
	return page, nil
}

func (s *stubStats) Metadata(ctx context.Context, ratingKey string) (*services.MediaInfo, error) {
	return s.metadata, nil
}

func (s *stubStats) RecentlyAdded(ctx context.Context, count int) []services.MediaInfo {
	return s.recent
}

func (s *stubStats) HomeStats(ctx context.Context, days int) []services.HomeStat {
	return s.stats
}

func (s *stubStats) Activity(ctx context.Context) *services.Activity { return s.activity }

func (s *stubStats) ServerInfo(ctx context.Context) *services.ServerInfo { return s.info }

func (s *stubStats) Name() string { return "stub" }

// testConfig points the cache at a throwaway file so each test gets a
// fresh database.
func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "cache.db")
	return config
}

// seedCache writes two movies and two plays of the first one, giving the
// cache-backed reports something to chew on.
func seedCache(t *testing.T, config *shared.Config) {
	t.Helper()

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		t.Fatalf("failed to open seed database: %v", err)
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	st := store.NewStore(db, shared.NewLogger(io.Discard))
	if err := st.Begin(); err != nil {
		t.Fatalf("failed to begin: %v", err)
	}

	now := time.Now().Unix()
	added := now - 3600
	earlier := now - 7200

	items := []models.MediaItem{
		{RatingKey: "m1", Title: "Heat", Year: 1995, Type: models.TypeMovie, AddedAt: &added, UpdatedAt: now},
		{RatingKey: "m2", Title: "Alien", Year: 1979, Type: models.TypeMovie, AddedAt: &earlier, UpdatedAt: now},
	}
	for _, item := range items {
		if err := st.UpsertMediaItem(item); err != nil {
			t.Fatalf("failed to seed item %s: %v", item.RatingKey, err)
		}
	}

	plays := []struct {
		user  models.User
		entry models.PlayHistoryEntry
	}{
		{
			models.User{UserID: "u1", Username: "alice", LastSeen: now},
			models.PlayHistoryEntry{RatingKey: "m1", UserID: "u1", WatchedAt: now - 1800, Duration: 6600},
		},
		{
			models.User{UserID: "u2", Username: "bob", LastSeen: now},
			models.PlayHistoryEntry{RatingKey: "m1", UserID: "u2", WatchedAt: now - 900, Duration: 5400},
		},
	}
	for _, play := range plays {
		if _, err := st.UpsertPlayHistory(play.user, play.entry); err != nil {
			t.Fatalf("failed to seed play: %v", err)
		}
	}

	if err := st.Commit(); err != nil {
		t.Fatalf("failed to commit seed data: %v", err)
	}
}

// runCLI drives a runner through the full command tree, the same way main
// does, so flag parsing and argument wiring are exercised too.
func runCLI(r *Runner, args ...string) error {
	app := &cli.Command{Name: "statx", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"statx"}, args...))
}

func quietRunner(config *shared.Config, client services.StatsService, output io.Writer) *Runner {
	return NewRunner(RunnerOpts{
		Config: config,
		Client: client,
		Logger: shared.NewLogger(io.Discard),
		Output: output,
	})
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			client := &stubStats{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Client:     client,
				HTTPClient: httpClient,
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.client != services.StatsService(client) {
				t.Error("expected client to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("statsClient", func(t *testing.T) {
		t.Run("returns injected client", func(t *testing.T) {
			client := &stubStats{}
			runner := quietRunner(shared.DefaultConfig(), client, &bytes.Buffer{})

			got, err := runner.statsClient(runner.config)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != services.StatsService(client) {
				t.Error("expected the injected client back")
			}
		})

		t.Run("fails without credentials", func(t *testing.T) {
			runner := quietRunner(shared.DefaultConfig(), nil, &bytes.Buffer{})

			if _, err := runner.statsClient(runner.config); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &th.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes formatted text", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &th.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) != 6 {
			t.Errorf("expected 6 commands, got %d", len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}

func TestActions(t *testing.T) {
	t.Run("Status", func(t *testing.T) {
		t.Run("with reachable server", func(t *testing.T) {
			config := testConfig(t)
			output := &bytes.Buffer{}
			client := &stubStats{
				info:     &services.ServerInfo{Name: "plex-main", Version: "1.41.0", Platform: "Linux"},
				activity: &services.Activity{StreamCount: 2},
			}
			runner := quietRunner(config, client, output)

			if err := runCLI(runner, "status"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, "Server: plex-main (1.41.0, Linux)") {
				t.Errorf("expected server line, got %s", result)
			}
			if !strings.Contains(result, "Active streams: 2") {
				t.Errorf("expected stream count, got %s", result)
			}
			if !strings.Contains(result, "Last library sync: -") {
				t.Errorf("expected empty watermark placeholder, got %s", result)
			}
			if !strings.Contains(result, "Media items: 0") {
				t.Errorf("expected zero cache counts, got %s", result)
			}
		})

		t.Run("without credentials reports unconfigured server", func(t *testing.T) {
			config := testConfig(t)
			output := &bytes.Buffer{}
			runner := quietRunner(config, nil, output)

			if err := runCLI(runner, "status"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "Server: not configured") {
				t.Errorf("expected unconfigured server line, got %s", output.String())
			}
		})

		t.Run("loads database path from --config file", func(t *testing.T) {
			tmpDir := t.TempDir()
			dbPath := filepath.Join(tmpDir, "alt.db")
			configPath := filepath.Join(tmpDir, "config.toml")
			contents := "[database]\npath = \"" + dbPath + "\"\n"
			if err := os.WriteFile(configPath, []byte(contents), 0644); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}

			output := &bytes.Buffer{}
			runner := quietRunner(shared.DefaultConfig(), nil, output)

			if err := runCLI(runner, "status", "-c", configPath); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "Cache: "+dbPath) {
				t.Errorf("expected cache path from config file, got %s", output.String())
			}
			th.AssertFileExists(t, dbPath)
		})
	})

	t.Run("Sync", func(t *testing.T) {
		t.Run("full sync fills the cache and prints a summary", func(t *testing.T) {
			config := testConfig(t)
			output := &bytes.Buffer{}
			now := time.Now().Unix()
			client := &stubStats{
				libraries: []services.Library{
					{SectionID: 1, SectionName: "Movies", SectionType: "movie", Count: 1},
				},
				media: map[string][]services.MediaInfo{
					"1": {{
						RatingKey: "m1",
						Title:     "Heat",
						Year:      1995,
						MediaType: "movie",
						AddedAt:   services.FlexInt(now - 3600),
					}},
				},
				history: []services.HistoryRecord{{
					RatingKey: "m1",
					Title:     "Heat",
					MediaType: "movie",
					UserID:    10,
					User:      "alice",
					Date:      services.FlexInt(now - 1800),
					Duration:  3600,
				}},
			}
			runner := quietRunner(config, client, output)

			if err := runCLI(runner, "sync", "--full"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, "Found 1 library sections") {
				t.Errorf("expected progress output, got %s", result)
			}
			if !strings.Contains(result, "Libraries synced") || !strings.Contains(result, "New history rows") {
				t.Errorf("expected summary lines, got %s", result)
			}
			// Progress lines must be fully drained before the summary prints.
			if strings.Index(result, "Found 1 library sections") > strings.Index(result, "Sync ") {
				t.Errorf("summary printed before progress finished, got %s", result)
			}

			db, err := shared.NewDatabase(config.Database.Path)
			if err != nil {
				t.Fatalf("failed to reopen cache: %v", err)
			}
			defer db.Close()

			st := store.NewStore(db, shared.NewLogger(io.Discard))
			counts, err := st.Counts()
			if err != nil {
				t.Fatalf("failed to count rows: %v", err)
			}
			if counts.MediaItems != 1 || counts.PlayHistory != 1 || counts.Users != 1 {
				t.Errorf("unexpected cache counts %+v", counts)
			}
		})

		t.Run("incremental sync reports history only", func(t *testing.T) {
			config := testConfig(t)
			output := &bytes.Buffer{}
			client := &stubStats{
				history: []services.HistoryRecord{{
					RatingKey: "m1",
					Title:     "Heat",
					MediaType: "movie",
					UserID:    10,
					User:      "alice",
					Date:      services.FlexInt(time.Now().Unix() - 600),
					Duration:  1200,
				}},
			}
			runner := quietRunner(config, client, output)

			if err := runCLI(runner, "sync"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if strings.Contains(result, "Libraries synced") {
				t.Errorf("library lines should be absent, got %s", result)
			}
			if !strings.Contains(result, "New history rows") {
				t.Errorf("expected history summary, got %s", result)
			}
		})

		t.Run("fails without credentials", func(t *testing.T) {
			runner := quietRunner(testConfig(t), nil, &bytes.Buffer{})

			err := runCLI(runner, "sync")
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("ReportRecent", func(t *testing.T) {
		t.Run("falls back to cache without a server", func(t *testing.T) {
			config := testConfig(t)
			seedCache(t, config)
			output := &bytes.Buffer{}
			runner := quietRunner(config, nil, output)

			if err := runCLI(runner, "report", "recent"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, "TITLE") {
				t.Errorf("expected table header, got %s", result)
			}
			if !strings.Contains(result, "Heat") || !strings.Contains(result, "Alien") {
				t.Errorf("expected seeded titles, got %s", result)
			}
		})

		t.Run("prefers the live server feed", func(t *testing.T) {
			config := testConfig(t)
			output := &bytes.Buffer{}
			client := &stubStats{
				recent: []services.MediaInfo{
					{
						RatingKey: "m9",
						Title:     "Blade Runner",
						Year:      1982,
						MediaType: "movie",
						AddedAt:   services.FlexInt(time.Now().Add(-2 * time.Hour).Unix()),
					},
				},
			}
			runner := quietRunner(config, client, output)

			if err := runCLI(runner, "report", "recent"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "Blade Runner") {
				t.Errorf("expected server-fed title, got %s", output.String())
			}
		})

		t.Run("writes JSON with --json", func(t *testing.T) {
			config := testConfig(t)
			seedCache(t, config)
			output := &bytes.Buffer{}
			runner := quietRunner(config, nil, output)

			if err := runCLI(runner, "report", "recent", "--json"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), `"Title": "Heat"`) {
				t.Errorf("expected JSON payload, got %s", output.String())
			}
		})
	})

	t.Run("ReportWatched", func(t *testing.T) {
		t.Run("uses server home stats when available", func(t *testing.T) {
			config := testConfig(t)
			output := &bytes.Buffer{}
			client := &stubStats{
				stats: []services.HomeStat{
					{
						StatID: "top_movies",
						Rows: []services.HomeStatRow{
							{Title: "Heat", MediaType: "movie", TotalPlays: 12, UsersWatched: 4},
						},
					},
				},
			}
			runner := quietRunner(config, client, output)

			if err := runCLI(runner, "report", "watched"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, "top_movies") {
				t.Errorf("expected stat block header, got %s", result)
			}
			if !strings.Contains(result, "Heat") {
				t.Errorf("expected stat row, got %s", result)
			}
		})

		t.Run("falls back to cached history", func(t *testing.T) {
			config := testConfig(t)
			seedCache(t, config)
			output := &bytes.Buffer{}
			runner := quietRunner(config, &stubStats{}, output)

			if err := runCLI(runner, "report", "watched"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			// Heat has two distinct viewers, so it clears the shared-interest bar.
			result := output.String()
			if !strings.Contains(result, "VIEWERS") {
				t.Errorf("expected table header, got %s", result)
			}
			if !strings.Contains(result, "Heat") {
				t.Errorf("expected most-watched title, got %s", result)
			}
			if strings.Contains(result, "Alien") {
				t.Errorf("unwatched title should not appear, got %s", result)
			}
		})
	})

	t.Run("ReportUsers", func(t *testing.T) {
		config := testConfig(t)
		seedCache(t, config)
		output := &bytes.Buffer{}
		runner := quietRunner(config, nil, output)

		if err := runCLI(runner, "report", "users"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "alice") || !strings.Contains(result, "bob") {
			t.Errorf("expected both usernames, got %s", result)
		}
		if !strings.Contains(result, "Total plays: 2") {
			t.Errorf("expected totals line, got %s", result)
		}
	})

	t.Run("ReportGrowth", func(t *testing.T) {
		config := testConfig(t)
		seedCache(t, config)
		output := &bytes.Buffer{}
		runner := quietRunner(config, nil, output)

		if err := runCLI(runner, "report", "growth"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "DATE") {
			t.Errorf("expected table header, got %s", result)
		}
		if !strings.Contains(result, "movie") {
			t.Errorf("expected movie bucket, got %s", result)
		}
	})

	t.Run("ExportHistory", func(t *testing.T) {
		config := testConfig(t)
		seedCache(t, config)
		output := &bytes.Buffer{}
		runner := quietRunner(config, nil, output)

		exportPath := filepath.Join(t.TempDir(), "plays.csv")
		if err := runCLI(runner, "export", "history", "-o", exportPath); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		th.AssertFileExists(t, exportPath)

		data, err := os.ReadFile(exportPath)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		csv := string(data)
		if !strings.HasPrefix(csv, "Date,Username,Title,Type,Duration") {
			t.Errorf("expected CSV header, got %s", csv)
		}
		if !strings.Contains(csv, "alice") || !strings.Contains(csv, "Heat") {
			t.Errorf("expected seeded rows, got %s", csv)
		}
		if !strings.Contains(output.String(), "Exported 2 plays") {
			t.Errorf("expected export summary, got %s", output.String())
		}
	})

	t.Run("APIGet", func(t *testing.T) {
		t.Run("requires a command argument", func(t *testing.T) {
			runner := quietRunner(testConfig(t), &stubStats{}, &bytes.Buffer{})

			err := runCLI(runner, "api", "get")
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("requires a Tautulli client", func(t *testing.T) {
			runner := quietRunner(testConfig(t), &stubStats{}, &bytes.Buffer{})

			err := runCLI(runner, "api", "get", "get_libraries")
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("metadata prefers the server record", func(t *testing.T) {
			output := &bytes.Buffer{}
			client := &stubStats{
				metadata: &services.MediaInfo{RatingKey: "m9", Title: "Blade Runner", MediaType: "movie"},
			}
			runner := quietRunner(testConfig(t), client, output)

			if err := runCLI(runner, "api", "metadata", "m9"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "Blade Runner") {
				t.Errorf("expected server metadata, got %s", output.String())
			}
		})

		t.Run("metadata falls back to the cache", func(t *testing.T) {
			config := testConfig(t)
			seedCache(t, config)
			output := &bytes.Buffer{}
			runner := quietRunner(config, &stubStats{}, output)

			if err := runCLI(runner, "api", "metadata", "m1"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "Heat") {
				t.Errorf("expected cached row, got %s", output.String())
			}
		})

		t.Run("metadata errors on unknown key", func(t *testing.T) {
			config := testConfig(t)
			runner := quietRunner(config, &stubStats{}, &bytes.Buffer{})

			err := runCLI(runner, "api", "metadata", "nope")
			if !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("metadata requires a rating key", func(t *testing.T) {
			runner := quietRunner(testConfig(t), &stubStats{}, &bytes.Buffer{})

			err := runCLI(runner, "api", "metadata")
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("rejects malformed params", func(t *testing.T) {
			config := testConfig(t)
			config.Tautulli.URL = "http://tautulli.local"
			config.Tautulli.APIKey = "abc123"
			runner := quietRunner(config, nil, &bytes.Buffer{})

			err := runCLI(runner, "api", "get", "get_libraries", "-p", "not-a-pair")
			if !errors.Is(err, shared.ErrInvalidFlag) {
				t.Errorf("expected ErrInvalidFlag, got %v", err)
			}
		})
	})
}
