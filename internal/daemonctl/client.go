package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"automerge/internal/api"
	"automerge/internal/config"
	"automerge/internal/tasks"
)

// ErrDaemonNotRunning reports that nothing answered on the API address.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Client calls the daemon HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for a daemon listening on bind.
func NewClient(bind, token string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// FromConfig builds a client from the [paths] api settings.
func FromConfig(cfg *config.Config) *Client {
	return NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var resp api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Trigger starts a task in the daemon. A run already in flight yields
// tasks.ErrAlreadyRunning.
func (c *Client) Trigger(ctx context.Context, key string) (*api.TriggerResponse, error) {
	var resp api.TriggerResponse
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(key), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Split runs a targeted split in the daemon.
func (c *Client) Split(ctx context.Context, providerType, providerValue string) (bool, error) {
	var resp api.SplitResponse
	req := api.SplitRequest{ProviderType: providerType, ProviderValue: providerValue}
	if err := c.do(ctx, http.MethodPost, "/api/split", req, &resp); err != nil {
		return false, err
	}
	return resp.Split, nil
}

// Providers lists provider types known to the daemon's catalog.
func (c *Client) Providers(ctx context.Context) ([]string, error) {
	var resp api.ProvidersResponse
	if err := c.do(ctx, http.MethodGet, "/api/providers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Providers, nil
}

// Groups lists the classes the daemon would merge.
func (c *Client) Groups(ctx context.Context) ([]api.Group, error) {
	var resp api.GroupsResponse
	if err := c.do(ctx, http.MethodGet, "/api/groups", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr api.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)
		message := strings.TrimSpace(apiErr.Error)
		if message == "" {
			message = resp.Status
		}
		switch resp.StatusCode {
		case http.StatusConflict:
			return tasks.ErrAlreadyRunning
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", tasks.ErrInvalidInput, message)
		default:
			return fmt.Errorf("daemon %s %s: %s", method, path, message)
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
