package services

import (
	"context"
)

// StatsService defines the operations the sync engine and CLI need from the
// remote stats server.
//
// Sync-path methods (Libraries, LibraryMedia, Children, History) return an
// error on any remote failure so a running sync aborts and rolls back.
// Aggregate reads (RecentlyAdded, HomeStats, Activity, ServerInfo) log and
// return no data instead, so callers degrade to the local cache.
type StatsService interface {
	// Libraries lists the configured library sections.
	Libraries(ctx context.Context) ([]Library, error)

	// LibraryMedia fetches one page of a section's top-level items.
	LibraryMedia(ctx context.Context, sectionID string, start, length int) (*MediaPage, error)

	// Children fetches the immediate children of a hierarchical item
	// (seasons of a show, episodes of a season, albums, tracks).
	Children(ctx context.Context, ratingKey string) ([]MediaInfo, error)

	// History fetches one page of play history. A startDate of zero means
	// no lower bound.
	History(ctx context.Context, startDate int64, start, length int) (*HistoryPage, error)

	// Metadata fetches full detail for a single item.
	Metadata(ctx context.Context, ratingKey string) (*MediaInfo, error)

	// RecentlyAdded returns the newest library additions, or nil if the
	// server could not be reached.
	RecentlyAdded(ctx context.Context, count int) []MediaInfo

	// HomeStats returns the server's pre-aggregated popularity stats, or
	// nil if the server could not be reached.
	HomeStats(ctx context.Context, days int) []HomeStat

	// Activity probes the server for current playback activity. Returns
	// nil if the server could not be reached.
	Activity(ctx context.Context) *Activity

	// ServerInfo returns the media server's identity, or nil if the
	// server could not be reached.
	ServerInfo(ctx context.Context) *ServerInfo

	// Name returns the service name for display (e.g. "Tautulli").
	Name() string
}
