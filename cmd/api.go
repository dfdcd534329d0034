package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/statx/internal/services"
	"github.com/desertthunder/statx/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet issues a raw Tautulli command and prints the unwrapped data
// payload. Useful for exploring endpoints the reports don't cover.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	apiCmd := cmd.StringArg("cmd")
	if apiCmd == "" {
		return fmt.Errorf("%w: command name (e.g. get_libraries)", shared.ErrMissingArgument)
	}

	config := r.loadConfig(cmd)
	client, err := r.statsClient(config)
	if err != nil {
		return err
	}

	tautulli, ok := client.(*services.TautulliService)
	if !ok {
		return fmt.Errorf("%w: raw API access requires a Tautulli client", shared.ErrServiceUnavailable)
	}

	params := url.Values{}
	for _, pair := range cmd.StringSlice("param") {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return fmt.Errorf("%w: --param must be key=value, got %q", shared.ErrInvalidFlag, pair)
		}
		params.Add(key, value)
	}

	data, err := tautulli.Request(ctx, apiCmd, params)
	if err != nil {
		return err
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return r.writeJSON(payload, cmd.Bool("pretty"))
}

// APIMetadata prints full detail for one item, preferring the live server
// record and falling back to the cached row.
func (r *Runner) APIMetadata(ctx context.Context, cmd *cli.Command) error {
	ratingKey := cmd.StringArg("rating_key")
	if ratingKey == "" {
		return fmt.Errorf("%w: rating key", shared.ErrMissingArgument)
	}

	config := r.loadConfig(cmd)

	if client, err := r.statsClient(config); err == nil {
		if info, err := client.Metadata(ctx, ratingKey); err == nil && info != nil {
			return r.writeJSON(info, cmd.Bool("pretty"))
		}
		r.logger.Debug("metadata unavailable from server, reading cache", "rating_key", ratingKey)
	}

	st, closeStore, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()

	item, err := st.GetMediaItem(ratingKey)
	if err != nil {
		return err
	}
	return r.writeJSON(item, cmd.Bool("pretty"))
}
