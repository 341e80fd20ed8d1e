package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/watchlist/internal/services"
	"github.com/desertthunder/watchlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request through the gateway.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, http.MethodGet, cmd.StringArg("path"), nil, cmd.Bool("pretty"))
}

// APIPost makes a direct POST request with a JSON body.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	body, err := jsonData(cmd)
	if err != nil {
		return err
	}
	return r.apiCall(ctx, http.MethodPost, cmd.StringArg("path"), body, true)
}

// APIPatch makes a direct PATCH request with a JSON body.
func (r *Runner) APIPatch(ctx context.Context, cmd *cli.Command) error {
	body, err := jsonData(cmd)
	if err != nil {
		return err
	}
	return r.apiCall(ctx, http.MethodPatch, cmd.StringArg("path"), body, true)
}

// APIDelete makes a direct DELETE request.
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, http.MethodDelete, cmd.StringArg("path"), nil, true)
}

// apiCall prints the response body even for non-2xx statuses, then returns the gateway error.
func (r *Runner) apiCall(ctx context.Context, method, path string, body []byte, pretty bool) error {
	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}
	if err := r.connect(sessionOpts{}); err != nil {
		return err
	}

	r.logger.Info(method+" request", "path", path)

	var payload any
	if body != nil {
		payload = body
	}

	resp, err := r.gateway.Request(ctx, method, path, payload, nil)
	if resp != nil {
		if writeErr := r.writeResponse(resp, pretty); writeErr != nil {
			return writeErr
		}
	}
	return err
}

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	if len(resp.Body) == 0 {
		return r.writePlain("%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return r.writePlain("%s\n", resp.Body)
}

func jsonData(cmd *cli.Command) ([]byte, error) {
	data := cmd.String("data")
	if data == "" {
		return nil, fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	if err := shared.ValidateJSON([]byte(data)); err != nil {
		return nil, err
	}
	return []byte(data), nil
}
