package tasks

import (
	"context"
	"strconv"
	"time"

	"github.com/desertthunder/statx/internal/models"
	"github.com/desertthunder/statx/internal/services"
)

// syncLibraries walks every library section and mirrors its full content
// tree into the store. Returns the set of rating keys seen this run, which
// becomes the authoritative set for stale cleanup.
func (e *Engine) syncLibraries(ctx context.Context, progress chan<- ProgressUpdate, result *SyncResult) (map[string]struct{}, error) {
	now := time.Now().Unix()

	libs, err := e.client.Libraries(ctx)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, librariesUpdate(len(libs)))

	validKeys := make(map[string]struct{})
	containers := make(map[string]*int64) // season/album key -> min child added_at

	for i, lib := range libs {
		e.sendProgress(progress, sectionUpdate(i+1, len(libs), lib.SectionName))
		if err := e.walkSection(ctx, progress, lib, now, validKeys, containers, result); err != nil {
			return nil, err
		}
		result.LibrariesSynced++
	}

	// Backfill container timestamps from their children. A childless
	// season or album keeps a NULL added_at rather than a fabricated one.
	for key, min := range containers {
		if err := e.store.SetAddedAt(key, min); err != nil {
			return nil, err
		}
	}

	return validKeys, nil
}

// walkSection pages through a section's top-level items, then expands
// containers breadth-first via an explicit worklist: show -> seasons ->
// episodes, artist -> albums -> tracks.
func (e *Engine) walkSection(ctx context.Context, progress chan<- ProgressUpdate, lib services.Library, now int64, validKeys map[string]struct{}, containers map[string]*int64, result *SyncResult) error {
	sectionID := strconv.FormatInt(lib.SectionID.Int64(), 10)

	var queue []services.MediaInfo
	start := 0
	for {
		page, err := e.client.LibraryMedia(ctx, sectionID, start, e.pageSize)
		if err != nil {
			return err
		}
		if len(page.Data) == 0 {
			break
		}

		for _, info := range page.Data {
			if err := e.ingestItem(info, now, validKeys, containers, result); err != nil {
				return err
			}
			if models.MediaType(info.MediaType).ChildType() != "" {
				queue = append(queue, info)
			}
		}

		start += len(page.Data)
		e.sendProgress(progress, mediaPageUpdate(start, int(page.RecordsTotal), lib.SectionName))
		if start >= int(page.RecordsTotal) {
			break
		}
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		e.sendProgress(progress, childrenUpdate(node.RatingKey.String(), node.Title))
		children, err := e.client.Children(ctx, node.RatingKey.String())
		if err != nil {
			return err
		}

		for _, child := range children {
			if err := e.ingestItem(child, now, validKeys, containers, result); err != nil {
				return err
			}
			if models.MediaType(child.MediaType).ChildType() != "" {
				queue = append(queue, child)
			}
		}
	}

	return nil
}

// ingestItem writes one fetched item and records bookkeeping for cleanup
// and container timestamp derivation. Records without a rating key are
// skipped rather than failing the run.
func (e *Engine) ingestItem(info services.MediaInfo, now int64, validKeys map[string]struct{}, containers map[string]*int64, result *SyncResult) error {
	item := info.ToMediaItem(now)
	if item.RatingKey == "" {
		e.logger.Warn("skipping item without rating key", "title", item.Title)
		return nil
	}

	switch item.Type {
	case models.TypeSeason, models.TypeAlbum:
		// Derived from children after the walk.
		item.AddedAt = nil
		if _, seen := containers[item.RatingKey]; !seen {
			containers[item.RatingKey] = nil
		}
	case models.TypeEpisode, models.TypeTrack:
		if item.ParentKey != "" && item.AddedAt != nil {
			if min := containers[item.ParentKey]; min == nil || *item.AddedAt < *min {
				v := *item.AddedAt
				containers[item.ParentKey] = &v
			}
		}
	}

	if err := e.store.UpsertMediaItem(item); err != nil {
		return err
	}

	validKeys[item.RatingKey] = struct{}{}
	result.ItemsSynced++
	return nil
}
