package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/statx/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// Store is the durable, queryable cache with transactional write discipline.
//
// Only one transaction may be open at a time per Store instance.
type Store struct {
	db        *sql.DB
	tx        *sql.Tx
	logger    *log.Logger
	retryBase time.Duration
}

// NewStore creates a Store over an open database connection.
func NewStore(db *sql.DB, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{
		db:        db,
		logger:    logger,
		retryBase: time.Second,
	}
}

// SetRetryBase overrides the base delay of the lock-retry backoff.
// The default is one second; tests use milliseconds.
func (s *Store) SetRetryBase(d time.Duration) {
	s.retryBase = d
}

// Begin opens the write transaction. Fails if one is already open.
func (s *Store) Begin() error {
	if s.tx != nil {
		return shared.ErrTransactionOpen
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	s.tx = tx
	return nil
}

// Commit commits the open transaction.
func (s *Store) Commit() error {
	if s.tx == nil {
		return shared.ErrNoTransaction
	}

	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the open transaction. Safe to call when none is open,
// so callers can defer it alongside an explicit Commit.
func (s *Store) Rollback() error {
	if s.tx == nil {
		return nil
	}

	err := s.tx.Rollback()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// InTransaction reports whether a write transaction is open.
func (s *Store) InTransaction() bool {
	return s.tx != nil
}

// exec routes a write through the open transaction when one exists.
func (s *Store) exec(query string, args ...any) (sql.Result, error) {
	if s.tx != nil {
		return s.tx.Exec(query, args...)
	}
	return s.db.Exec(query, args...)
}

// queryRowWrite runs a single-row lookup on the writer side, so dedup checks
// observe rows written earlier in the same transaction.
func (s *Store) queryRowWrite(query string, args ...any) *sql.Row {
	if s.tx != nil {
		return s.tx.QueryRow(query, args...)
	}
	return s.db.QueryRow(query, args...)
}

// WithRetry wraps a write against transient lock contention: one initial
// attempt plus up to 3 retries with delays of 1, 2 and 4 base units. Errors
// other than lock contention are not retried; exhaustion propagates the
// last error.
func (s *Store) WithRetry(op func() error) error {
	return retry.Do(op,
		retry.Attempts(4),
		retry.Delay(s.retryBase),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsLockContention),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warnf("database locked, retry %d: %v", n+1, err)
		}),
	)
}

// IsLockContention reports whether err signals another writer holding the
// database lock.
func IsLockContention(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return errors.Is(err, shared.ErrDatabaseLocked)
}

// ClearAll deletes every cached row and resets the sync watermark. Used by
// the sync command's --clear flag before a full resync.
func (s *Store) ClearAll() error {
	for _, table := range []string{"play_history", "media_items", "users"} {
		if _, err := s.exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if _, err := s.exec("DELETE FROM sync_status"); err != nil {
		return fmt.Errorf("failed to reset sync status: %w", err)
	}

	return nil
}
