// package formatter renders report data as aligned text tables and exports
// play history to CSV.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/desertthunder/statx/internal/models"
	"github.com/desertthunder/statx/internal/services"
	"github.com/desertthunder/statx/internal/shared"
	"github.com/desertthunder/statx/internal/store"
)

// NoDataMessage is printed in place of an empty table.
const NoDataMessage = "No data available"

func newTable(buf *bytes.Buffer) *tabwriter.Writer {
	return tabwriter.NewWriter(buf, 0, 4, 2, ' ', 0)
}

// RecentTable renders recently added items, newest first.
func RecentTable(items []models.MediaItem) []byte {
	if len(items) == 0 {
		return []byte(NoDataMessage + "\n")
	}

	var buf bytes.Buffer
	w := newTable(&buf)
	fmt.Fprintln(w, "ADDED\tTYPE\tYEAR\tTITLE")
	for _, item := range items {
		added := "-"
		if item.AddedAt != nil {
			added = shared.FormatDate(*item.AddedAt)
		}
		year := "-"
		if item.Year > 0 {
			year = strconv.Itoa(item.Year)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", added, item.Type, year, item.Title)
	}
	w.Flush()
	return buf.Bytes()
}

// WatchedTable renders the most-watched report from cached history.
func WatchedTable(items []store.WatchedItem) []byte {
	if len(items) == 0 {
		return []byte(NoDataMessage + "\n")
	}

	var buf bytes.Buffer
	w := newTable(&buf)
	fmt.Fprintln(w, "VIEWERS\tPLAYS\tTYPE\tTITLE")
	for _, item := range items {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", item.UniqueViewers, item.PlayCount, item.Type, item.Title)
	}
	w.Flush()
	return buf.Bytes()
}

// HomeStatsTable renders the server's pre-aggregated popularity stats.
func HomeStatsTable(stats []services.HomeStat) []byte {
	rows := 0
	for _, stat := range stats {
		rows += len(stat.Rows)
	}
	if rows == 0 {
		return []byte(NoDataMessage + "\n")
	}

	var buf bytes.Buffer
	w := newTable(&buf)
	for _, stat := range stats {
		if len(stat.Rows) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t\t\n", stat.StatID)
		fmt.Fprintln(w, "  PLAYS\tUSERS\tTITLE")
		for _, row := range stat.Rows {
			fmt.Fprintf(w, "  %d\t%d\t%s\n", row.TotalPlays.Int64(), row.UsersWatched.Int64(), row.Title)
		}
	}
	w.Flush()
	return buf.Bytes()
}

// UserStatsTable renders per-user activity with overall totals.
func UserStatsTable(result *store.UserStatsResult) []byte {
	if result == nil || len(result.Users) == 0 {
		return []byte(NoDataMessage + "\n")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Total plays: %d  Watch time: %s  Active users: %d\n\n",
		result.TotalPlays, shared.FormatDuration(result.TotalDuration), result.ActiveUsers)

	w := newTable(&buf)
	fmt.Fprintln(w, "PLAYS\tWATCH TIME\tUSER")
	for _, u := range result.Users {
		name := u.FriendlyName
		if name == "" {
			name = u.Username
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", u.Plays, shared.FormatDuration(u.Duration), name)
	}
	w.Flush()
	return buf.Bytes()
}

// GrowthTable renders library additions bucketed by day and type.
func GrowthTable(points []store.GrowthPoint) []byte {
	if len(points) == 0 {
		return []byte(NoDataMessage + "\n")
	}

	var buf bytes.Buffer
	w := newTable(&buf)
	fmt.Fprintln(w, "DATE\tTYPE\tADDED")
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%s\t%d\n", p.Date, p.MediaType, p.Count)
	}
	w.Flush()
	return buf.Bytes()
}

// HistoryCSV converts exported play events to CSV with columns:
// Date, Username, Title, Type, Duration.
func HistoryCSV(rows []store.ExportRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Date", "Username", "Title", "Type", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		record := []string{
			shared.FormatDate(row.WatchedAt),
			row.Username,
			row.Title,
			row.MediaType,
			strconv.FormatInt(row.Duration, 10),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// SyncSummary renders the post-run summary for plain (non-UI) output.
func SyncSummary(runID string, fullSync bool, libraries, items, newHistory int, staleRemoved int64, counts *store.CacheCounts) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Sync %s complete\n", runID)

	w := newTable(&buf)
	if fullSync {
		fmt.Fprintf(w, "Libraries synced\t%d\n", libraries)
		fmt.Fprintf(w, "Items written\t%d\n", items)
		fmt.Fprintf(w, "Stale items removed\t%d\n", staleRemoved)
	}
	fmt.Fprintf(w, "New history rows\t%d\n", newHistory)
	if counts != nil {
		fmt.Fprintf(w, "Cached media items\t%d\n", counts.MediaItems)
		fmt.Fprintf(w, "Cached history rows\t%d\n", counts.PlayHistory)
		fmt.Fprintf(w, "Cached users\t%d\n", counts.Users)
	}
	w.Flush()
	return buf.Bytes()
}
