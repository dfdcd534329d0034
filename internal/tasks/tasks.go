// package tasks implements the sync pipeline between a remote stats server
// and the local cache.
//
// The core abstraction is SyncEngine, which mirrors libraries and play
// history into the store inside a single transaction. Operations emit
// progress updates via channels for non-blocking status reporting to CLI/UI
// layers.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/statx/internal/services"
	"github.com/desertthunder/statx/internal/shared"
	"github.com/desertthunder/statx/internal/store"
)

// SyncOptions controls a sync run.
type SyncOptions struct {
	Full  bool // Walk all libraries and ignore the history watermark
	Clear bool // Wipe the cache before syncing (implies Full)
}

// SyncResult contains all data from a completed sync run.
type SyncResult struct {
	RunID           string        // Unique id for log correlation
	FullSync        bool          // Whether the library walk ran this run
	LibrariesSynced int           // Library sections walked
	ItemsSynced     int           // Media items written (including refreshes)
	NewHistoryRows  int           // Play events actually inserted
	UsersSeen       int           // Distinct users referenced by history
	StaleRemoved    int64         // Media items deleted by cleanup
	Duration        time.Duration // Wall time of the run
}

// SyncEngine defines the sync operation against the remote stats server.
type SyncEngine interface {
	// Sync mirrors the remote server into the local cache. All writes
	// happen in one transaction; any failure rolls the cache back to its
	// pre-run state.
	Sync(ctx context.Context, progress chan<- ProgressUpdate, opts SyncOptions) (*SyncResult, error)
}

// Engine implements SyncEngine over a StatsService and a Store.
type Engine struct {
	client   services.StatsService
	store    *store.Store
	logger   *log.Logger
	pageSize int
}

// NewEngine creates an Engine. A pageSize of zero falls back to 1000, the
// server's own default page length.
func NewEngine(client services.StatsService, st *store.Store, logger *log.Logger, pageSize int) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Engine{
		client:   client,
		store:    st,
		logger:   logger,
		pageSize: pageSize,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Sync runs the pipeline: library walk and stale cleanup (full syncs only),
// history ingest, watermark advance. The transactional body retries on
// database lock contention; any other failure aborts the run and rolls back.
func (e *Engine) Sync(ctx context.Context, progress chan<- ProgressUpdate, opts SyncOptions) (*SyncResult, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: stats service not initialized", shared.ErrServiceUnavailable)
	}

	runID := shared.GenerateRunID()
	started := time.Now()
	logger := e.logger.With("run_id", runID)
	logger.Info("starting sync", "service", e.client.Name(), "full", opts.Full, "clear", opts.Clear)

	var result *SyncResult
	err := e.store.WithRetry(func() error {
		r, err := e.syncOnce(ctx, progress, opts, started)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		logger.Error("sync aborted, cache unchanged", "error", err)
		return nil, fmt.Errorf("%w: run %s: %v", shared.ErrSyncAborted, runID, err)
	}

	result.RunID = runID
	result.Duration = time.Since(started)
	logger.Info("sync complete",
		"libraries", result.LibrariesSynced,
		"items", result.ItemsSynced,
		"new_history", result.NewHistoryRows,
		"stale_removed", result.StaleRemoved,
		"duration", result.Duration,
	)
	return result, nil
}

// syncOnce is one transactional attempt. Each retry starts from a clean
// transaction, so a lock-aborted attempt leaves no partial state behind.
func (e *Engine) syncOnce(ctx context.Context, progress chan<- ProgressUpdate, opts SyncOptions, started time.Time) (*SyncResult, error) {
	if err := e.store.Begin(); err != nil {
		return nil, err
	}
	defer e.store.Rollback()

	if opts.Clear {
		if err := e.store.ClearAll(); err != nil {
			return nil, err
		}
	}

	status, err := e.store.SyncStatus()
	if err != nil {
		return nil, err
	}

	full := opts.Full || opts.Clear
	since := status.LastHistorySync
	if full {
		since = 0
	}

	result := &SyncResult{FullSync: full}

	// The library walk only runs on full syncs: an incremental run has no
	// authoritative key set, so it must not touch existing library rows.
	if full {
		validKeys, err := e.syncLibraries(ctx, progress, result)
		if err != nil {
			return nil, err
		}

		removed, err := e.store.RemoveStaleItems(validKeys)
		if err != nil {
			return nil, err
		}
		result.StaleRemoved = removed
		e.sendProgress(progress, cleanupUpdate(removed))
	}

	if err := e.syncHistory(ctx, progress, since, result); err != nil {
		return nil, err
	}

	if err := e.store.AddItemsSynced(int64(result.ItemsSynced)); err != nil {
		return nil, err
	}
	if full {
		if err := e.store.AdvanceLibraryWatermark(started.Unix()); err != nil {
			return nil, err
		}
	}
	if err := e.store.AdvanceHistoryWatermark(started.Unix()); err != nil {
		return nil, err
	}

	e.sendProgress(progress, finalizeUpdate())
	if err := e.store.Commit(); err != nil {
		return nil, err
	}

	return result, nil
}
