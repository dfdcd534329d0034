package store

import (
	"errors"
	"testing"

	"github.com/desertthunder/statx/internal/models"
	"github.com/desertthunder/statx/internal/shared"
)

func TestUpsertMediaItem(t *testing.T) {
	t.Run("rejects missing rating key", func(t *testing.T) {
		s := setupTestStore(t)

		err := s.UpsertMediaItem(models.MediaItem{Title: "orphan"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("repeated upsert leaves one row", func(t *testing.T) {
		s := setupTestStore(t)

		item := sampleMovie("m1")
		for i := 0; i < 3; i++ {
			if err := s.UpsertMediaItem(item); err != nil {
				t.Fatalf("upsert %d failed: %v", i, err)
			}
		}

		counts, err := s.Counts()
		if err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		if counts.MediaItems != 1 {
			t.Errorf("expected 1 media item, got %d", counts.MediaItems)
		}
	})

	t.Run("upsert refreshes fields", func(t *testing.T) {
		s := setupTestStore(t)

		item := sampleMovie("m1")
		if err := s.UpsertMediaItem(item); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		item.Title = "Renamed"
		item.Year = 2021
		if err := s.UpsertMediaItem(item); err != nil {
			t.Fatalf("failed to re-upsert: %v", err)
		}

		got, err := s.GetMediaItem("m1")
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}
		if got.Title != "Renamed" || got.Year != 2021 {
			t.Errorf("expected refreshed fields, got %+v", got)
		}
	})

	t.Run("nil added_at stored as NULL", func(t *testing.T) {
		s := setupTestStore(t)

		item := sampleMovie("m1")
		item.AddedAt = nil
		if err := s.UpsertMediaItem(item); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		got, err := s.GetMediaItem("m1")
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}
		if got.AddedAt != nil {
			t.Errorf("expected nil added_at, got %d", *got.AddedAt)
		}
	})

	t.Run("sparse refresh keeps richer fields", func(t *testing.T) {
		s := setupTestStore(t)

		full := sampleMovie("m1")
		full.Summary = "A heist goes wrong"
		full.Art = "/art/m1"
		full.FileSize = 4096
		if err := s.UpsertMediaItem(full); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		// The shape a history record implies: key, title, type and nothing else.
		sparse := models.MediaItem{
			RatingKey: "m1",
			Title:     full.Title,
			Type:      models.TypeMovie,
			UpdatedAt: full.UpdatedAt + 100,
		}
		if err := s.UpsertMediaItem(sparse); err != nil {
			t.Fatalf("failed to re-upsert: %v", err)
		}

		got, err := s.GetMediaItem("m1")
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}
		if got.AddedAt == nil || *got.AddedAt != *full.AddedAt {
			t.Errorf("added_at erased by sparse refresh: %v", got.AddedAt)
		}
		if got.Duration != full.Duration || got.FileSize != full.FileSize {
			t.Errorf("sizes erased by sparse refresh: %+v", got)
		}
		if got.Summary != full.Summary || got.Art != full.Art || got.Year != full.Year {
			t.Errorf("detail fields erased by sparse refresh: %+v", got)
		}
		if got.UpdatedAt != sparse.UpdatedAt {
			t.Errorf("expected refreshed updated_at, got %d", got.UpdatedAt)
		}
	})

	t.Run("episode derives show placeholder", func(t *testing.T) {
		s := setupTestStore(t)

		episode := models.MediaItem{
			RatingKey:        "ep1",
			Title:            "Pilot",
			Type:             models.TypeEpisode,
			ParentKey:        "season1",
			GrandparentKey:   "show1",
			GrandparentTitle: "Some Show",
			AddedAt:          i64(1000),
			UpdatedAt:        2000,
		}
		if err := s.UpsertMediaItem(episode); err != nil {
			t.Fatalf("failed to upsert episode: %v", err)
		}

		show, err := s.GetMediaItem("show1")
		if err != nil {
			t.Fatalf("expected show placeholder: %v", err)
		}
		if show.Type != models.TypeShow || show.Title != "Some Show" {
			t.Errorf("unexpected placeholder %+v", show)
		}
		if show.AddedAt != nil {
			t.Error("placeholder added_at should stay NULL")
		}
	})

	t.Run("track derives artist and album placeholders", func(t *testing.T) {
		s := setupTestStore(t)

		track := models.MediaItem{
			RatingKey:        "t1",
			Title:            "Opener",
			Type:             models.TypeTrack,
			ParentKey:        "album1",
			ParentTitle:      "First Album",
			GrandparentKey:   "artist1",
			GrandparentTitle: "The Band",
			UpdatedAt:        2000,
		}
		if err := s.UpsertMediaItem(track); err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}

		artist, err := s.GetMediaItem("artist1")
		if err != nil {
			t.Fatalf("expected artist placeholder: %v", err)
		}
		if artist.Type != models.TypeArtist || artist.Title != "The Band" {
			t.Errorf("unexpected artist placeholder %+v", artist)
		}

		album, err := s.GetMediaItem("album1")
		if err != nil {
			t.Fatalf("expected album placeholder: %v", err)
		}
		if album.Type != models.TypeAlbum || album.ParentKey != "artist1" {
			t.Errorf("unexpected album placeholder %+v", album)
		}
	})

	t.Run("placeholder never overwrites an existing row", func(t *testing.T) {
		s := setupTestStore(t)

		show := models.MediaItem{
			RatingKey: "show1",
			Title:     "Properly Fetched Show",
			Type:      models.TypeShow,
			Year:      2018,
			AddedAt:   i64(500),
			UpdatedAt: 1000,
		}
		if err := s.UpsertMediaItem(show); err != nil {
			t.Fatalf("failed to upsert show: %v", err)
		}

		episode := models.MediaItem{
			RatingKey:        "ep1",
			Title:            "Pilot",
			Type:             models.TypeEpisode,
			GrandparentKey:   "show1",
			GrandparentTitle: "Stale Title",
			UpdatedAt:        2000,
		}
		if err := s.UpsertMediaItem(episode); err != nil {
			t.Fatalf("failed to upsert episode: %v", err)
		}

		got, err := s.GetMediaItem("show1")
		if err != nil {
			t.Fatalf("failed to get show: %v", err)
		}
		if got.Title != "Properly Fetched Show" || got.Year != 2018 {
			t.Errorf("placeholder overwrote fetched row: %+v", got)
		}
	})

	t.Run("placeholder without title gets a fallback", func(t *testing.T) {
		s := setupTestStore(t)

		episode := models.MediaItem{
			RatingKey:      "ep1",
			Title:          "Pilot",
			Type:           models.TypeEpisode,
			GrandparentKey: "show1",
			UpdatedAt:      2000,
		}
		if err := s.UpsertMediaItem(episode); err != nil {
			t.Fatalf("failed to upsert episode: %v", err)
		}

		show, err := s.GetMediaItem("show1")
		if err != nil {
			t.Fatalf("expected show placeholder: %v", err)
		}
		if show.Title != "Unknown show" {
			t.Errorf("expected fallback title, got %q", show.Title)
		}
	})
}

func TestSetAddedAt(t *testing.T) {
	s := setupTestStore(t)

	item := sampleMovie("m1")
	item.AddedAt = nil
	if err := s.UpsertMediaItem(item); err != nil {
		t.Fatalf("failed to upsert: %v", err)
	}

	if err := s.SetAddedAt("m1", i64(1234)); err != nil {
		t.Fatalf("failed to set added_at: %v", err)
	}

	got, err := s.GetMediaItem("m1")
	if err != nil {
		t.Fatalf("failed to get item: %v", err)
	}
	if got.AddedAt == nil || *got.AddedAt != 1234 {
		t.Errorf("expected added_at 1234, got %v", got.AddedAt)
	}

	if err := s.SetAddedAt("m1", nil); err != nil {
		t.Fatalf("failed to clear added_at: %v", err)
	}

	got, err = s.GetMediaItem("m1")
	if err != nil {
		t.Fatalf("failed to get item: %v", err)
	}
	if got.AddedAt != nil {
		t.Errorf("expected NULL added_at, got %d", *got.AddedAt)
	}
}

func TestRemoveStaleItems(t *testing.T) {
	s := setupTestStore(t)

	for _, key := range []string{"m1", "m2", "m3"} {
		if err := s.UpsertMediaItem(sampleMovie(key)); err != nil {
			t.Fatalf("failed to upsert %s: %v", key, err)
		}
	}
	if _, err := s.UpsertPlayHistory(
		models.User{UserID: "u1", Username: "alice"},
		models.PlayHistoryEntry{RatingKey: "m3", UserID: "u1", WatchedAt: 100},
	); err != nil {
		t.Fatalf("failed to upsert history: %v", err)
	}

	removed, err := s.RemoveStaleItems(map[string]struct{}{
		"m1": {},
		"m2": {},
	})
	if err != nil {
		t.Fatalf("failed to remove stale items: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}

	if _, err := s.GetMediaItem("m3"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected m3 gone, got %v", err)
	}
	if _, err := s.GetMediaItem("m1"); err != nil {
		t.Errorf("m1 should survive: %v", err)
	}

	// Play history for the removed item is retained.
	counts, err := s.Counts()
	if err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	if counts.PlayHistory != 1 {
		t.Errorf("expected history untouched, got %d rows", counts.PlayHistory)
	}
	if counts.Users != 1 {
		t.Errorf("expected users untouched, got %d rows", counts.Users)
	}
}

func TestGetMediaItemNotFound(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.GetMediaItem("missing"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
