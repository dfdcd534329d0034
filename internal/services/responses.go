// Tautulli API response types based on https://github.com/Tautulli/Tautulli/wiki/Tautulli-API-Reference
package services

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/desertthunder/statx/internal/models"
)

// FlexInt decodes JSON numbers that Tautulli serializes inconsistently as
// either a number, a numeric string, an empty string, or null.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// Truncate floats like "1234.0"
			fl, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return err
			}
			n = int64(fl)
		}
		*f = FlexInt(n)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexInt(int64(n))
	return nil
}

// Int64 returns the underlying value.
func (f FlexInt) Int64() int64 { return int64(f) }

// FlexString decodes JSON values that Tautulli serializes as either a
// string or a bare number (rating keys in particular vary by endpoint).
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the underlying value.
func (f FlexString) String() string { return string(f) }

// envelope is the outer {"response": {...}} wrapper on every command.
type envelope struct {
	Response struct {
		Result  string          `json:"result"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"response"`
}

// Library describes one library section from get_libraries.
type Library struct {
	SectionID   FlexInt `json:"section_id"`
	SectionName string  `json:"section_name"`
	SectionType string  `json:"section_type"` // movie, show, artist
	Count       FlexInt `json:"count"`
}

// MediaInfo is the common item record returned by get_library_media_info,
// get_children_metadata, get_metadata and get_recently_added.
type MediaInfo struct {
	RatingKey            FlexString `json:"rating_key"`
	ParentRatingKey      FlexString `json:"parent_rating_key"`
	GrandparentRatingKey FlexString `json:"grandparent_rating_key"`
	Title                string     `json:"title"`
	ParentTitle          string     `json:"parent_title"`
	GrandparentTitle     string     `json:"grandparent_title"`
	FullTitle            string     `json:"full_title"`
	MediaType            string     `json:"media_type"`
	Year                 FlexInt    `json:"year"`
	Thumb                string     `json:"thumb"`
	Art                  string     `json:"art"`
	Banner               string     `json:"banner"`
	Summary              string     `json:"summary"`
	Duration             FlexInt    `json:"duration"`
	FileSize             FlexInt    `json:"file_size"`
	AddedAt              FlexInt    `json:"added_at"`
	UpdatedAt            FlexInt    `json:"updated_at"`
}

// ToMediaItem maps the raw record to a typed [models.MediaItem], defaulting
// missing fields explicitly. A zero added_at becomes nil (unknown), never a
// fabricated timestamp.
func (m *MediaInfo) ToMediaItem(now int64) models.MediaItem {
	item := models.MediaItem{
		RatingKey:        m.RatingKey.String(),
		Title:            m.Title,
		Year:             int(m.Year),
		Type:             models.MediaType(m.MediaType),
		Thumb:            m.Thumb,
		Art:              m.Art,
		Banner:           m.Banner,
		Summary:          m.Summary,
		Duration:         m.Duration.Int64(),
		FileSize:         m.FileSize.Int64(),
		ParentKey:        m.ParentRatingKey.String(),
		GrandparentKey:   m.GrandparentRatingKey.String(),
		ParentTitle:      m.ParentTitle,
		GrandparentTitle: m.GrandparentTitle,
		UpdatedAt:        now,
	}
	if m.AddedAt > 0 {
		added := m.AddedAt.Int64()
		item.AddedAt = &added
	}
	return item
}

// MediaPage is one page of get_library_media_info results.
type MediaPage struct {
	RecordsTotal FlexInt     `json:"recordsTotal"`
	Data         []MediaInfo `json:"data"`
}

// childrenData is the get_children_metadata payload.
type childrenData struct {
	ChildrenCount FlexInt     `json:"children_count"`
	ChildrenList  []MediaInfo `json:"children_list"`
}

// recentlyAddedData is the get_recently_added payload.
type recentlyAddedData struct {
	RecentlyAdded []MediaInfo `json:"recently_added"`
}

// HistoryRecord is one playback event from get_history, with enough
// embedded metadata to reconstruct the media item it references.
type HistoryRecord struct {
	RatingKey            FlexString `json:"rating_key"`
	ParentRatingKey      FlexString `json:"parent_rating_key"`
	GrandparentRatingKey FlexString `json:"grandparent_rating_key"`
	Title                string     `json:"title"`
	ParentTitle          string     `json:"parent_title"`
	GrandparentTitle     string     `json:"grandparent_title"`
	FullTitle            string     `json:"full_title"`
	MediaType            string     `json:"media_type"`
	Year                 FlexInt    `json:"year"`
	Thumb                string     `json:"thumb"`
	UserID               FlexInt    `json:"user_id"`
	User                 string     `json:"user"`
	FriendlyName         string     `json:"friendly_name"`
	Date                 FlexInt    `json:"date"`     // Epoch seconds of the play
	Duration             FlexInt    `json:"duration"` // Seconds watched
}

// ToEntry maps the record to a typed [models.PlayHistoryEntry].
func (h *HistoryRecord) ToEntry() models.PlayHistoryEntry {
	return models.PlayHistoryEntry{
		RatingKey: h.RatingKey.String(),
		UserID:    strconv.FormatInt(h.UserID.Int64(), 10),
		WatchedAt: h.Date.Int64(),
		Duration:  h.Duration.Int64(),
	}
}

// ToUser maps the record's user fields to a typed [models.User].
func (h *HistoryRecord) ToUser() models.User {
	username := h.User
	if username == "" {
		username = "unknown"
	}
	return models.User{
		UserID:       strconv.FormatInt(h.UserID.Int64(), 10),
		Username:     username,
		FriendlyName: h.FriendlyName,
		LastSeen:     h.Date.Int64(),
	}
}

// ToMediaItem maps the embedded metadata to a [models.MediaItem] so history
// rows resolve even for content no longer in the active library.
func (h *HistoryRecord) ToMediaItem(now int64) models.MediaItem {
	title := h.Title
	if title == "" {
		title = h.FullTitle
	}
	return models.MediaItem{
		RatingKey:        h.RatingKey.String(),
		Title:            title,
		Year:             int(h.Year),
		Type:             models.MediaType(h.MediaType),
		Thumb:            h.Thumb,
		ParentKey:        h.ParentRatingKey.String(),
		GrandparentKey:   h.GrandparentRatingKey.String(),
		ParentTitle:      h.ParentTitle,
		GrandparentTitle: h.GrandparentTitle,
		UpdatedAt:        now,
	}
}

// HistoryPage is one page of get_history results.
type HistoryPage struct {
	RecordsTotal FlexInt         `json:"recordsTotal"`
	Data         []HistoryRecord `json:"data"`
}

// HomeStat is one pre-aggregated stat block from get_home_stats.
type HomeStat struct {
	StatID string        `json:"stat_id"` // e.g. top_movies, most_concurrent
	Rows   []HomeStatRow `json:"rows"`
}

// HomeStatRow is one entry within a home stat block.
type HomeStatRow struct {
	RatingKey    FlexInt `json:"rating_key"`
	Title        string  `json:"title"`
	MediaType    string  `json:"media_type"`
	Year         FlexInt `json:"year"`
	TotalPlays   FlexInt `json:"total_plays"`
	UsersWatched FlexInt `json:"users_watched"`
}

// Activity is the get_activity liveness payload.
type Activity struct {
	StreamCount FlexInt `json:"stream_count"`
}

// ServerInfo is the get_server_info payload.
type ServerInfo struct {
	Name     string `json:"pms_name"`
	Version  string `json:"pms_version"`
	Platform string `json:"pms_platform"`
}
