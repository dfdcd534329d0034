package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/statx/internal/models"
)

// WatchedItem is a media item decorated with viewer aggregates.
type WatchedItem struct {
	models.MediaItem
	UniqueViewers int
	PlayCount     int
}

// UserStatRow is one user's aggregate within a window.
type UserStatRow struct {
	UserID       string
	Username     string
	FriendlyName string
	Plays        int
	Duration     int64 // Seconds watched
}

// UserStatsResult bundles overall totals with the per-user breakdown.
type UserStatsResult struct {
	TotalPlays    int
	TotalDuration int64 // Seconds watched
	ActiveUsers   int
	Users         []UserStatRow
}

// GrowthPoint is one (day, type) bucket of library additions.
type GrowthPoint struct {
	Date      string // YYYY-MM-DD
	MediaType string
	Count     int
}

// ExportRow is one flattened play event for CSV export.
type ExportRow struct {
	Title     string
	MediaType string
	Username  string
	WatchedAt int64
	Duration  int64
}

// CacheCounts reports row totals for the post-sync summary.
type CacheCounts struct {
	MediaItems  int64
	PlayHistory int64
	Users       int64
}

// typeFilter renders an optional media-type allow-list as a SQL fragment.
func typeFilter(column string, types []string, args *[]any) string {
	if len(types) == 0 {
		return ""
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
	for _, t := range types {
		*args = append(*args, t)
	}
	return fmt.Sprintf(" AND %s IN (%s)", column, placeholders)
}

// windowStart converts a day count to the epoch-seconds lower bound.
func windowStart(days int) int64 {
	return time.Now().Add(-time.Duration(days) * 24 * time.Hour).Unix()
}

// RecentlyAdded returns items added within the window, newest first,
// honoring an optional media-type allow-list. Items with unknown added_at
// are excluded.
func (s *Store) RecentlyAdded(days, limit int, types []string) ([]models.MediaItem, error) {
	query := `
		SELECT rating_key, title, year, media_type, thumb, art, banner, summary,
			duration, file_size, parent_key, grandparent_key, added_at, updated_at
		FROM media_items
		WHERE added_at IS NOT NULL AND added_at >= ?
	`
	args := []any{windowStart(days)}
	query += typeFilter("media_type", types, &args)
	query += " ORDER BY added_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recently added: %w", err)
	}
	defer rows.Close()

	var items []models.MediaItem
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// MostWatched returns items watched by more than one distinct user within
// the window, ranked by unique viewers then play count.
func (s *Store) MostWatched(days, limit int, types []string) ([]WatchedItem, error) {
	query := `
		SELECT m.rating_key, m.title, m.year, m.media_type, m.thumb, m.art, m.banner,
			m.summary, m.duration, m.file_size, m.parent_key, m.grandparent_key,
			m.added_at, m.updated_at,
			COUNT(DISTINCT p.user_id) AS unique_viewers,
			COUNT(*) AS play_count
		FROM media_items m
		JOIN play_history p ON m.rating_key = p.rating_key
		WHERE p.watched_at >= ?
	`
	args := []any{windowStart(days)}
	query += typeFilter("m.media_type", types, &args)
	query += `
		GROUP BY m.rating_key
		HAVING unique_viewers > 1
		ORDER BY unique_viewers DESC, play_count DESC
		LIMIT ?
	`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query most watched: %w", err)
	}
	defer rows.Close()

	var items []WatchedItem
	for rows.Next() {
		var (
			item      WatchedItem
			mediaType string
			addedAt   *int64
		)
		err := rows.Scan(
			&item.RatingKey, &item.Title, &item.Year, &mediaType, &item.Thumb,
			&item.Art, &item.Banner, &item.Summary, &item.Duration, &item.FileSize,
			&item.ParentKey, &item.GrandparentKey, &addedAt, &item.UpdatedAt,
			&item.UniqueViewers, &item.PlayCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watched item: %w", err)
		}
		item.Type = models.MediaType(mediaType)
		item.AddedAt = addedAt
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// UserStats returns overall play totals and the per-user breakdown for the
// window, most active users first.
func (s *Store) UserStats(days int) (*UserStatsResult, error) {
	start := windowStart(days)
	result := &UserStatsResult{}

	row := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(duration), 0), COUNT(DISTINCT user_id)
		FROM play_history
		WHERE watched_at >= ?
	`, start)
	if err := row.Scan(&result.TotalPlays, &result.TotalDuration, &result.ActiveUsers); err != nil {
		return nil, fmt.Errorf("failed to query overall stats: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT p.user_id, u.username, COALESCE(u.friendly_name, ''), COUNT(*) AS plays,
			COALESCE(SUM(p.duration), 0) AS duration
		FROM play_history p
		JOIN users u ON p.user_id = u.user_id
		WHERE p.watched_at >= ?
		GROUP BY p.user_id
		ORDER BY plays DESC
	`, start)
	if err != nil {
		return nil, fmt.Errorf("failed to query user stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u UserStatRow
		if err := rows.Scan(&u.UserID, &u.Username, &u.FriendlyName, &u.Plays, &u.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan user stats: %w", err)
		}
		result.Users = append(result.Users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// LibraryGrowth buckets media additions by day and type. Items whose
// added_at is unknown are excluded rather than counted at a fabricated
// date.
func (s *Store) LibraryGrowth(types []string) ([]GrowthPoint, error) {
	query := `
		SELECT DATE(added_at, 'unixepoch') AS date_added, media_type, COUNT(*) AS count
		FROM media_items
		WHERE added_at IS NOT NULL AND added_at > 0
	`
	args := []any{}
	query += typeFilter("media_type", types, &args)
	query += " GROUP BY date_added, media_type ORDER BY date_added"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query library growth: %w", err)
	}
	defer rows.Close()

	var points []GrowthPoint
	for rows.Next() {
		var p GrowthPoint
		if err := rows.Scan(&p.Date, &p.MediaType, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan growth point: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return points, nil
}

// HistoryByUser flattens a user's play events within the window for export.
// An empty username exports every user's plays.
func (s *Store) HistoryByUser(username string, days int) ([]ExportRow, error) {
	query := `
		SELECT m.title, m.media_type, u.username, p.watched_at, COALESCE(p.duration, 0)
		FROM play_history p
		JOIN users u ON p.user_id = u.user_id
		LEFT JOIN media_items m ON p.rating_key = m.rating_key
		WHERE p.watched_at >= ?
	`
	args := []any{windowStart(days)}
	if username != "" {
		query += " AND u.username = ?"
		args = append(args, username)
	}
	query += " ORDER BY p.watched_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history export: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var (
			r         ExportRow
			title     *string
			mediaType *string
		)
		if err := rows.Scan(&title, &mediaType, &r.Username, &r.WatchedAt, &r.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}
		if title != nil {
			r.Title = *title
		}
		if mediaType != nil {
			r.MediaType = *mediaType
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return out, nil
}

// Counts reports cached row totals.
func (s *Store) Counts() (*CacheCounts, error) {
	counts := &CacheCounts{}

	for _, q := range []struct {
		table  string
		target *int64
	}{
		{"media_items", &counts.MediaItems},
		{"play_history", &counts.PlayHistory},
		{"users", &counts.Users},
	} {
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + q.table).Scan(q.target); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", q.table, err)
		}
	}

	return counts, nil
}
