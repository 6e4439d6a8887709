package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/oracle/internal/api"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the API
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path, params, err := splitPath(cmd.StringArg("path"))
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.client.Get(ctx, path, params)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, !cmd.Bool("json"))
}

// APIPost makes a direct POST request to the API
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	return r.apiSend(ctx, cmd, "POST")
}

// APIPut makes a direct PUT request to the API
func (r *Runner) APIPut(ctx context.Context, cmd *cli.Command) error {
	return r.apiSend(ctx, cmd, "PUT")
}

// APIDelete makes a direct DELETE request to the API
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	path, _, err := splitPath(cmd.StringArg("path"))
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Info("DELETE request", "path", path)

	resp, err := r.client.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, true)
}

func (r *Runner) apiSend(ctx context.Context, cmd *cli.Command, method string) error {
	path, _, err := splitPath(cmd.StringArg("path"))
	if err != nil {
		return err
	}

	data := cmd.String("data")
	var body any
	if data != "" {
		if !json.Valid([]byte(data)) {
			return fmt.Errorf("%w: data is not valid JSON", shared.ErrInvalidInput)
		}
		body = []byte(data)
	}
	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Info(method+" request", "path", path)

	var resp *api.Response
	switch method {
	case "PUT":
		resp, err = r.client.Put(ctx, path, body)
	default:
		resp, err = r.client.Post(ctx, path, body)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, true)
}

// Health calls the API health endpoint.
func (r *Runner) Health(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Info("checking API health", "base_url", r.client.BaseURL())
	health, err := r.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	r.writePlain("✓ Service is healthy\n")
	r.writePlain("Status: %s\n", health.Status)
	if health.Version != "" {
		r.writePlain("Version: %s\n", health.Version)
	}
	r.writePlain("API: %s\n", r.client.BaseURL())
	return nil
}

func (r *Runner) writeResponse(resp *api.Response, pretty bool) error {
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	if len(resp.Body) == 0 {
		return r.writePlain("✓ %d\n", resp.StatusCode)
	}
	return r.writePlain("%s\n", resp.Text())
}

// splitPath separates a query string from an API path.
func splitPath(raw string) (string, url.Values, error) {
	if raw == "" {
		return "", nil, fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return u.Path, u.Query(), nil
}
