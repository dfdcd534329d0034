// Tautulli implementation of [StatsService]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/statx/internal/shared"
	"golang.org/x/time/rate"
)

// Command names consumed from the Tautulli API.
const (
	cmdGetLibraries     = "get_libraries"
	cmdGetLibraryMedia  = "get_library_media_info"
	cmdGetChildren      = "get_children_metadata"
	cmdGetHistory       = "get_history"
	cmdGetRecentlyAdded = "get_recently_added"
	cmdGetMetadata      = "get_metadata"
	cmdGetHomeStats     = "get_home_stats"
	cmdGetActivity      = "get_activity"
	cmdGetServerInfo    = "get_server_info"
)

// TautulliService implements [StatsService] against a live Tautulli server.
type TautulliService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewTautulliService creates a Tautulli client. Missing connection settings
// are a fatal configuration error, raised here before any network call.
func NewTautulliService(cfg shared.TautulliConfig, requestsPerSec float64, client *http.Client, logger *log.Logger) (*TautulliService, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: TAUTULLI_URL and TAUTULLI_API_KEY must be set", shared.ErrMissingCredentials)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if requestsPerSec <= 0 {
		requestsPerSec = 5.0
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &TautulliService{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		logger:     logger,
	}, nil
}

// Name returns the service name for display.
func (t *TautulliService) Name() string { return "Tautulli" }

// Request issues a raw command and returns the unwrapped data payload.
// Exposed for the `statx api get` debugging command.
func (t *TautulliService) Request(ctx context.Context, cmd string, params url.Values) (json.RawMessage, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", shared.ErrAPIRequest, err)
	}

	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("apikey", t.apiKey)
	query.Set("cmd", cmd)

	fullURL := fmt.Sprintf("%s/api/v2?%s", t.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrAPIRequest, err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, cmd, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrAPIRequest, cmd, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s response: %v", shared.ErrAPIRequest, cmd, err)
	}

	if env.Response.Result != "success" {
		return nil, fmt.Errorf("%w: %s result %q: %s", shared.ErrAPIRequest, cmd, env.Response.Result, env.Response.Message)
	}

	return env.Response.Data, nil
}

// requestInto issues a command and decodes the data payload into out.
func (t *TautulliService) requestInto(ctx context.Context, cmd string, params url.Values, out any) error {
	data, err := t.Request(ctx, cmd, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode %s data: %v", shared.ErrAPIRequest, cmd, err)
	}
	return nil
}

// Libraries lists the configured library sections.
func (t *TautulliService) Libraries(ctx context.Context) ([]Library, error) {
	var libraries []Library
	if err := t.requestInto(ctx, cmdGetLibraries, nil, &libraries); err != nil {
		return nil, err
	}
	return libraries, nil
}

// LibraryMedia fetches one page of a section's top-level items.
func (t *TautulliService) LibraryMedia(ctx context.Context, sectionID string, start, length int) (*MediaPage, error) {
	params := url.Values{}
	params.Set("section_id", sectionID)
	params.Set("start", strconv.Itoa(start))
	params.Set("length", strconv.Itoa(length))

	var page MediaPage
	if err := t.requestInto(ctx, cmdGetLibraryMedia, params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Children fetches the immediate children of a hierarchical item.
func (t *TautulliService) Children(ctx context.Context, ratingKey string) ([]MediaInfo, error) {
	params := url.Values{}
	params.Set("rating_key", ratingKey)

	var data childrenData
	if err := t.requestInto(ctx, cmdGetChildren, params, &data); err != nil {
		return nil, err
	}
	return data.ChildrenList, nil
}

// History fetches one page of play history.
func (t *TautulliService) History(ctx context.Context, startDate int64, start, length int) (*HistoryPage, error) {
	params := url.Values{}
	params.Set("start", strconv.Itoa(start))
	params.Set("length", strconv.Itoa(length))
	if startDate > 0 {
		params.Set("start_date", strconv.FormatInt(startDate, 10))
	}

	var page HistoryPage
	if err := t.requestInto(ctx, cmdGetHistory, params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Metadata fetches full detail for a single item.
func (t *TautulliService) Metadata(ctx context.Context, ratingKey string) (*MediaInfo, error) {
	params := url.Values{}
	params.Set("rating_key", ratingKey)

	var info MediaInfo
	if err := t.requestInto(ctx, cmdGetMetadata, params, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// RecentlyAdded returns the newest library additions. Remote failures are
// logged and surface as no data so callers fall back to the cache.
func (t *TautulliService) RecentlyAdded(ctx context.Context, count int) []MediaInfo {
	params := url.Values{}
	params.Set("count", strconv.Itoa(count))

	var data recentlyAddedData
	if err := t.requestInto(ctx, cmdGetRecentlyAdded, params, &data); err != nil {
		t.logger.Warnf("recently added unavailable: %v", err)
		return nil
	}
	return data.RecentlyAdded
}

// HomeStats returns pre-aggregated popularity stats. Remote failures are
// logged and surface as no data so callers fall back to the cache.
func (t *TautulliService) HomeStats(ctx context.Context, days int) []HomeStat {
	params := url.Values{}
	params.Set("time_range", strconv.Itoa(days))

	var stats []HomeStat
	if err := t.requestInto(ctx, cmdGetHomeStats, params, &stats); err != nil {
		t.logger.Warnf("home stats unavailable: %v", err)
		return nil
	}
	return stats
}

// Activity probes the server. Returns nil if unreachable.
func (t *TautulliService) Activity(ctx context.Context) *Activity {
	var activity Activity
	if err := t.requestInto(ctx, cmdGetActivity, nil, &activity); err != nil {
		t.logger.Warnf("activity probe failed: %v", err)
		return nil
	}
	return &activity
}

// ServerInfo returns the media server's identity. Returns nil if unreachable.
func (t *TautulliService) ServerInfo(ctx context.Context) *ServerInfo {
	var info ServerInfo
	if err := t.requestInto(ctx, cmdGetServerInfo, nil, &info); err != nil {
		t.logger.Warnf("server info unavailable: %v", err)
		return nil
	}
	return &info
}
