package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/me/workmaster/pkg/model"
)

// Client is an HTTP client for the workmaster inspection API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a workmaster API client.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
		Logger:     logger,
	}
}

// envelope is the server's response wrapper with Data decoded as T.
type envelope[T any] struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Data       T                 `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

// Snapshot fetches the published scheduler snapshot.
func (c *Client) Snapshot(ctx context.Context) (model.ControllerSnapshot, error) {
	env, err := get[model.ControllerSnapshot](ctx, c, "/api/v1/snapshot")
	if err != nil {
		return model.ControllerSnapshot{}, err
	}
	return env.Data, nil
}

// Journal fetches one page of journal events and the unpaginated total.
func (c *Client) Journal(ctx context.Context, opts model.ListOptions) ([]model.Event, int, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Kind != "" {
		q.Set("kind", opts.Kind)
	}
	if opts.Agent != "" {
		q.Set("agent", opts.Agent)
	}
	path := "/api/v1/journal"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	env, err := get[[]model.Event](ctx, c, path)
	if err != nil {
		return nil, 0, err
	}
	total := len(env.Data)
	if env.Pagination != nil {
		total = env.Pagination.Total
	}
	return env.Data, total, nil
}

// get performs a GET request and decodes the envelope. An error envelope is
// returned as its *model.APIError.
func get[T any](ctx context.Context, c *Client, path string) (*envelope[T], error) {
	u := c.BaseURL + path
	c.Logger.Debug("HTTP request", "method", "GET", "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.Logger.Debug("HTTP response", "status", resp.StatusCode, "bytes", len(body))

	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	if env.Error != nil {
		return &env, env.Error
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &env, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return &env, nil
}
