package models

// MediaType tags a MediaItem with its position in the content hierarchy.
type MediaType string

const (
	TypeMovie   MediaType = "movie"
	TypeShow    MediaType = "show"
	TypeSeason  MediaType = "season"
	TypeEpisode MediaType = "episode"
	TypeArtist  MediaType = "artist"
	TypeAlbum   MediaType = "album"
	TypeTrack   MediaType = "track"
)

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	switch t {
	case TypeMovie, TypeShow, TypeSeason, TypeEpisode, TypeArtist, TypeAlbum, TypeTrack:
		return true
	}
	return false
}

// ChildType returns the media type one level down the hierarchy, or "" for
// leaf types.
func (t MediaType) ChildType() MediaType {
	switch t {
	case TypeShow:
		return TypeSeason
	case TypeSeason:
		return TypeEpisode
	case TypeArtist:
		return TypeAlbum
	case TypeAlbum:
		return TypeTrack
	}
	return ""
}

// MediaItem represents one content node: a movie, show, season, episode,
// artist, album or track. The RatingKey is the remote server's stable
// identifier; re-syncing the same key overwrites the row.
type MediaItem struct {
	RatingKey      string
	Title          string
	Year           int
	Type           MediaType
	Thumb          string
	Art            string
	Banner         string
	Summary        string
	Duration       int64  // Milliseconds, as reported by the server
	FileSize       int64  // Bytes
	ParentKey      string // Season for episodes, album for tracks
	GrandparentKey string // Show for episodes, artist for tracks

	// Ancestor titles carried along for placeholder derivation; not
	// persisted on this row.
	ParentTitle      string
	GrandparentTitle string

	AddedAt   *int64 // Epoch seconds; nil means unknown
	UpdatedAt int64  // Epoch seconds of the last local write
}

// PlayHistoryEntry represents one playback event. The tuple
// (RatingKey, UserID, WatchedAt) is the natural deduplication key.
type PlayHistoryEntry struct {
	RatingKey string
	UserID    string
	WatchedAt int64 // Epoch seconds
	Duration  int64 // Seconds watched
}

// User is upserted opportunistically whenever a history record references it.
type User struct {
	UserID       string
	Username     string
	FriendlyName string
	LastSeen     int64 // Epoch seconds
}

// SyncStatus is the singleton watermark row driving incremental syncs.
type SyncStatus struct {
	LastHistorySync  int64 // Epoch seconds of the last committed history sync
	LastLibrarySync  int64 // Epoch seconds of the last committed full library sync
	TotalItemsSynced int64 // Running count of media items written by syncs
}
