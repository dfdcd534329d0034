package store

import (
	"fmt"

	"github.com/desertthunder/statx/internal/models"
	"github.com/desertthunder/statx/internal/shared"
)

// UpsertUser inserts or updates a user row. Users are upserted
// opportunistically whenever a history record references them.
func (s *Store) UpsertUser(user models.User) error {
	if user.UserID == "" {
		return fmt.Errorf("%w: user missing id", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO users (user_id, username, friendly_name, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			friendly_name = excluded.friendly_name,
			last_seen = MAX(users.last_seen, excluded.last_seen)
	`

	if _, err := s.exec(query, user.UserID, user.Username, user.FriendlyName, user.LastSeen); err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.UserID, err)
	}

	return nil
}

// InsertPlayHistory appends one playback event, deduplicating on the
// natural key (rating_key, user_id, watched_at). Returns whether a new row
// was created; re-ingesting the same remote record is a no-op.
func (s *Store) InsertPlayHistory(entry models.PlayHistoryEntry) (bool, error) {
	if entry.RatingKey == "" || entry.UserID == "" {
		return false, fmt.Errorf("%w: history entry missing keys", shared.ErrInvalidInput)
	}

	query := `
		INSERT OR IGNORE INTO play_history (rating_key, user_id, watched_at, duration)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.exec(query, entry.RatingKey, entry.UserID, entry.WatchedAt, entry.Duration)
	if err != nil {
		return false, fmt.Errorf("failed to insert play history: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// UpsertPlayHistory upserts the referencing user first, so joins never
// dangle, then inserts the playback event with dedup. Returns whether a new
// history row was created.
func (s *Store) UpsertPlayHistory(user models.User, entry models.PlayHistoryEntry) (bool, error) {
	if err := s.UpsertUser(user); err != nil {
		return false, err
	}
	return s.InsertPlayHistory(entry)
}
