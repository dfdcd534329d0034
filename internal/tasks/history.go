package tasks

import (
	"context"
	"time"
)

// syncHistory pages through play history since the watermark and ingests
// each record: the referencing user, the embedded media metadata (so rows
// resolve even for content deleted from the library), then the play event
// itself with natural-key dedup.
//
// Runs after stale cleanup on purpose: items resurrected here for deleted
// content must survive the current run.
func (e *Engine) syncHistory(ctx context.Context, progress chan<- ProgressUpdate, since int64, result *SyncResult) error {
	now := time.Now().Unix()
	usersSeen := make(map[string]struct{})

	start := 0
	for {
		page, err := e.client.History(ctx, since, start, e.pageSize)
		if err != nil {
			return err
		}
		if len(page.Data) == 0 {
			break
		}

		for _, record := range page.Data {
			entry := record.ToEntry()
			if entry.RatingKey == "" || entry.WatchedAt == 0 {
				e.logger.Warn("skipping malformed history record", "title", record.FullTitle)
				continue
			}

			item := record.ToMediaItem(now)
			if err := e.store.UpsertMediaItem(item); err != nil {
				return err
			}

			created, err := e.store.UpsertPlayHistory(record.ToUser(), entry)
			if err != nil {
				return err
			}
			if created {
				result.NewHistoryRows++
			}
			usersSeen[entry.UserID] = struct{}{}
		}

		start += len(page.Data)
		e.sendProgress(progress, historyPageUpdate(start, int(page.RecordsTotal)))
		if start >= int(page.RecordsTotal) {
			break
		}
	}

	result.UsersSeen = len(usersSeen)
	return nil
}
