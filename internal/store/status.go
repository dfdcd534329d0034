package store

import (
	"fmt"

	"github.com/desertthunder/statx/internal/models"
)

// SyncStatus reads the singleton watermark row, creating it on first use.
func (s *Store) SyncStatus() (*models.SyncStatus, error) {
	if _, err := s.exec("INSERT OR IGNORE INTO sync_status (id) VALUES (1)"); err != nil {
		return nil, fmt.Errorf("failed to ensure sync status row: %w", err)
	}

	var status models.SyncStatus
	row := s.queryRowWrite("SELECT last_history_sync, last_library_sync, total_items_synced FROM sync_status WHERE id = 1")
	if err := row.Scan(&status.LastHistorySync, &status.LastLibrarySync, &status.TotalItemsSynced); err != nil {
		return nil, fmt.Errorf("failed to read sync status: %w", err)
	}

	return &status, nil
}

// AdvanceHistoryWatermark records a successful history sync. Only called
// inside the sync transaction, so a rollback leaves the watermark untouched.
func (s *Store) AdvanceHistoryWatermark(ts int64) error {
	if _, err := s.exec("INSERT OR IGNORE INTO sync_status (id) VALUES (1)"); err != nil {
		return fmt.Errorf("failed to ensure sync status row: %w", err)
	}
	if _, err := s.exec("UPDATE sync_status SET last_history_sync = ? WHERE id = 1", ts); err != nil {
		return fmt.Errorf("failed to advance history watermark: %w", err)
	}
	return nil
}

// AdvanceLibraryWatermark records a successful full library sync.
func (s *Store) AdvanceLibraryWatermark(ts int64) error {
	if _, err := s.exec("INSERT OR IGNORE INTO sync_status (id) VALUES (1)"); err != nil {
		return fmt.Errorf("failed to ensure sync status row: %w", err)
	}
	if _, err := s.exec("UPDATE sync_status SET last_library_sync = ? WHERE id = 1", ts); err != nil {
		return fmt.Errorf("failed to advance library watermark: %w", err)
	}
	return nil
}

// AddItemsSynced bumps the running count of media items written by syncs.
func (s *Store) AddItemsSynced(n int64) error {
	if _, err := s.exec("INSERT OR IGNORE INTO sync_status (id) VALUES (1)"); err != nil {
		return fmt.Errorf("failed to ensure sync status row: %w", err)
	}
	if _, err := s.exec("UPDATE sync_status SET total_items_synced = total_items_synced + ? WHERE id = 1", n); err != nil {
		return fmt.Errorf("failed to update items synced: %w", err)
	}
	return nil
}
