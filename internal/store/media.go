package store

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/statx/internal/models"
	"github.com/desertthunder/statx/internal/shared"
)

// UpsertMediaItem inserts or replaces a media item keyed by its rating key.
//
// Refreshes are non-destructive: an incoming empty/zero/NULL field keeps the
// stored value, so a sparse source (history-embedded metadata) never erases
// what a richer one (the library walk) already wrote. Clearing added_at
// explicitly goes through SetAddedAt instead.
//
// For hierarchical leaves (episode, track) it additionally derives ancestor
// placeholder rows (show from the grandparent fields; artist and album from
// the track's grandparent/parent fields) so joins to ancestors succeed even
// when the ancestor was never independently fetched. Placeholders never
// overwrite an existing row.
func (s *Store) UpsertMediaItem(item models.MediaItem) error {
	if item.RatingKey == "" {
		return fmt.Errorf("%w: media item missing rating key", shared.ErrInvalidInput)
	}

	switch item.Type {
	case models.TypeEpisode:
		if item.GrandparentKey != "" {
			if err := s.upsertPlaceholder(item.GrandparentKey, item.GrandparentTitle, models.TypeShow, "", item.UpdatedAt); err != nil {
				return err
			}
		}
	case models.TypeTrack:
		if item.GrandparentKey != "" {
			if err := s.upsertPlaceholder(item.GrandparentKey, item.GrandparentTitle, models.TypeArtist, "", item.UpdatedAt); err != nil {
				return err
			}
		}
		if item.ParentKey != "" {
			if err := s.upsertPlaceholder(item.ParentKey, item.ParentTitle, models.TypeAlbum, item.GrandparentKey, item.UpdatedAt); err != nil {
				return err
			}
		}
	}

	query := `
		INSERT INTO media_items (
			rating_key, title, year, media_type, thumb, art, banner, summary,
			duration, file_size, parent_key, grandparent_key, added_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (rating_key) DO UPDATE SET
			title = COALESCE(NULLIF(excluded.title, ''), media_items.title),
			year = COALESCE(NULLIF(excluded.year, 0), media_items.year),
			media_type = excluded.media_type,
			thumb = COALESCE(NULLIF(excluded.thumb, ''), media_items.thumb),
			art = COALESCE(NULLIF(excluded.art, ''), media_items.art),
			banner = COALESCE(NULLIF(excluded.banner, ''), media_items.banner),
			summary = COALESCE(NULLIF(excluded.summary, ''), media_items.summary),
			duration = COALESCE(NULLIF(excluded.duration, 0), media_items.duration),
			file_size = COALESCE(NULLIF(excluded.file_size, 0), media_items.file_size),
			parent_key = COALESCE(NULLIF(excluded.parent_key, ''), media_items.parent_key),
			grandparent_key = COALESCE(NULLIF(excluded.grandparent_key, ''), media_items.grandparent_key),
			added_at = COALESCE(excluded.added_at, media_items.added_at),
			updated_at = excluded.updated_at
	`

	var addedAt sql.NullInt64
	if item.AddedAt != nil {
		addedAt = sql.NullInt64{Int64: *item.AddedAt, Valid: true}
	}

	_, err := s.exec(query,
		item.RatingKey,
		item.Title,
		item.Year,
		string(item.Type),
		item.Thumb,
		item.Art,
		item.Banner,
		item.Summary,
		item.Duration,
		item.FileSize,
		item.ParentKey,
		item.GrandparentKey,
		addedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert media item %s: %w", item.RatingKey, err)
	}

	return nil
}

// upsertPlaceholder inserts a minimal ancestor row if none exists yet.
// added_at stays NULL until the ancestor is fetched or derived properly.
func (s *Store) upsertPlaceholder(ratingKey, title string, mediaType models.MediaType, parentKey string, now int64) error {
	if title == "" {
		title = "Unknown " + string(mediaType)
	}

	query := `
		INSERT INTO media_items (rating_key, title, media_type, parent_key, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (rating_key) DO NOTHING
	`

	if _, err := s.exec(query, ratingKey, title, string(mediaType), parentKey, now); err != nil {
		return fmt.Errorf("failed to upsert %s placeholder %s: %w", mediaType, ratingKey, err)
	}

	return nil
}

// SetAddedAt updates a single item's added_at. A nil value stores NULL.
// Used by the library walk to backfill season/album timestamps derived from
// their children.
func (s *Store) SetAddedAt(ratingKey string, addedAt *int64) error {
	var value sql.NullInt64
	if addedAt != nil {
		value = sql.NullInt64{Int64: *addedAt, Valid: true}
	}

	if _, err := s.exec("UPDATE media_items SET added_at = ? WHERE rating_key = ?", value, ratingKey); err != nil {
		return fmt.Errorf("failed to set added_at for %s: %w", ratingKey, err)
	}

	return nil
}

// RemoveStaleItems deletes every media item whose rating key is absent from
// the authoritative set of currently-valid upstream keys. Play history and
// users are never touched.
func (s *Store) RemoveStaleItems(validKeys map[string]struct{}) (int64, error) {
	if _, err := s.exec("CREATE TEMP TABLE IF NOT EXISTS valid_keys (rating_key TEXT PRIMARY KEY)"); err != nil {
		return 0, fmt.Errorf("failed to create staging table: %w", err)
	}
	defer s.exec("DROP TABLE IF EXISTS valid_keys")

	if _, err := s.exec("DELETE FROM valid_keys"); err != nil {
		return 0, fmt.Errorf("failed to reset staging table: %w", err)
	}

	for key := range validKeys {
		if _, err := s.exec("INSERT OR IGNORE INTO valid_keys (rating_key) VALUES (?)", key); err != nil {
			return 0, fmt.Errorf("failed to stage valid key: %w", err)
		}
	}

	result, err := s.exec("DELETE FROM media_items WHERE rating_key NOT IN (SELECT rating_key FROM valid_keys)")
	if err != nil {
		return 0, fmt.Errorf("failed to remove stale items: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed rows: %w", err)
	}

	return removed, nil
}

// GetMediaItem retrieves one media item by rating key.
func (s *Store) GetMediaItem(ratingKey string) (*models.MediaItem, error) {
	query := `
		SELECT rating_key, title, year, media_type, thumb, art, banner, summary,
			duration, file_size, parent_key, grandparent_key, added_at, updated_at
		FROM media_items
		WHERE rating_key = ?
	`

	item, err := scanMediaItem(s.queryRowWrite(query, ratingKey))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: media item %s", shared.ErrNotFound, ratingKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan media item: %w", err)
	}

	return item, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMediaItem(row rowScanner) (*models.MediaItem, error) {
	var (
		item      models.MediaItem
		mediaType string
		addedAt   sql.NullInt64
	)

	err := row.Scan(
		&item.RatingKey,
		&item.Title,
		&item.Year,
		&mediaType,
		&item.Thumb,
		&item.Art,
		&item.Banner,
		&item.Summary,
		&item.Duration,
		&item.FileSize,
		&item.ParentKey,
		&item.GrandparentKey,
		&addedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Type = models.MediaType(mediaType)
	if addedAt.Valid {
		item.AddedAt = &addedAt.Int64
	}

	return &item, nil
}
