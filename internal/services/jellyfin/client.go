package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"automerge/internal/catalog"
	"automerge/internal/config"
	"automerge/internal/services"
)

const (
	defaultPageSize = 500
	itemFields      = "ProviderIds,Path,MediaSources,LockData,ParentId"
)

// HTTPDoer describes the HTTP client used by the Jellyfin client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to a Jellyfin or Emby server.
type Client struct {
	baseURL  string
	apiKey   string
	userID   string
	client   HTTPDoer
	pageSize int
}

var _ catalog.Store = (*Client)(nil)

// NewClient constructs a client. userID is optional; when set, item queries
// run in that user's view of the library.
func NewClient(baseURL, apiKey, userID string, client HTTPDoer) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:   strings.TrimSpace(apiKey),
		userID:   strings.TrimSpace(userID),
		client:   client,
		pageSize: defaultPageSize,
	}
}

// NewFromConfig builds a client from the [jellyfin] section.
func NewFromConfig(cfg *config.Config) *Client {
	return NewClient(cfg.Jellyfin.URL, cfg.Jellyfin.APIKey, cfg.Jellyfin.UserID,
		&http.Client{Timeout: cfg.JellyfinTimeout()})
}

func (c *Client) itemsPath() string {
	if c.userID != "" {
		return "/Users/" + url.PathEscape(c.userID) + "/Items"
	}
	return "/Items"
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Emby-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "jellyfin", method+" "+path, "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.Wrap(services.StatusMarker(resp.StatusCode), "jellyfin", method+" "+path,
			fmt.Sprintf("status %d %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrValidation, "jellyfin", method+" "+path, "decode response", err)
	}
	return nil
}

// ListLibraries returns the server's media folders.
func (c *Client) ListLibraries(ctx context.Context) ([]catalog.Library, error) {
	var resp itemsResponse
	if err := c.do(ctx, http.MethodGet, "/Library/MediaFolders", nil, &resp); err != nil {
		return nil, catalog.WrapError("list libraries", "", err)
	}
	libraries := make([]catalog.Library, 0, len(resp.Items))
	for _, it := range resp.Items {
		libraries = append(libraries, catalog.Library{ID: normalizeID(it.ID), Name: it.Name})
	}
	return libraries, nil
}

// ListRecords returns the movies matching q, read library by library.
func (c *Client) ListRecords(ctx context.Context, q catalog.Query) ([]catalog.MovieRecord, error) {
	libraryIDs := q.LibraryIDs
	if len(libraryIDs) == 0 {
		libraries, err := c.ListLibraries(ctx)
		if err != nil {
			return nil, err
		}
		for _, lib := range libraries {
			libraryIDs = append(libraryIDs, lib.ID)
		}
	}
	boxSets, err := c.boxSetIDs(ctx)
	if err != nil {
		return nil, catalog.WrapError("list records", "", err)
	}

	var records []catalog.MovieRecord
	for _, libraryID := range libraryIDs {
		query := url.Values{}
		query.Set("ParentId", libraryID)
		if q.HasProviderFilter() {
			query.Set("AnyProviderIdEquals", strings.TrimSpace(q.ProviderType)+"."+strings.TrimSpace(q.ProviderValue))
		}
		items, err := c.movies(ctx, query)
		if err != nil {
			return nil, catalog.WrapError("list records", libraryID, err)
		}
		for _, it := range items {
			r := it.record(libraryID, boxSets)
			if q.Matches(r) {
				records = append(records, r)
			}
		}
	}
	return records, nil
}

// GetRecord looks the id up in each library and returns the first hit.
func (c *Client) GetRecord(ctx context.Context, id string) (*catalog.MovieRecord, error) {
	libraries, err := c.ListLibraries(ctx)
	if err != nil {
		return nil, err
	}
	boxSets, err := c.boxSetIDs(ctx)
	if err != nil {
		return nil, catalog.WrapError("get record", id, err)
	}
	for _, lib := range libraries {
		query := url.Values{}
		query.Set("ParentId", lib.ID)
		query.Set("Ids", id)
		items, err := c.movies(ctx, query)
		if err != nil {
			return nil, catalog.WrapError("get record", id, err)
		}
		for _, it := range items {
			if normalizeID(it.ID) == normalizeID(id) {
				r := it.record(lib.ID, boxSets)
				return &r, nil
			}
		}
	}
	return nil, nil
}

// RecordIDsByVersionKey lists every movie and returns those whose group key
// matches.
func (c *Client) RecordIDsByVersionKey(ctx context.Context, key, excludeID string) ([]string, error) {
	records, err := c.ListRecords(ctx, catalog.Query{})
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, r := range records {
		if r.VersionGroupKey == key && r.ID != normalizeID(excludeID) {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

// MergeRecords asks the server to merge the records into one movie.
func (c *Client) MergeRecords(ctx context.Context, records []catalog.MovieRecord) error {
	ids := catalog.RecordIDs(records)
	if len(ids) < 2 {
		return nil
	}
	query := url.Values{}
	query.Set("Ids", strings.Join(ids, ","))
	if err := c.do(ctx, http.MethodPost, "/Videos/MergeVersions", query, nil); err != nil {
		return catalog.WrapError("merge", strings.Join(ids, ","), err)
	}
	return nil
}

// SplitRecord removes the record's alternate sources.
func (c *Client) SplitRecord(ctx context.Context, record catalog.MovieRecord) error {
	path := "/Videos/" + url.PathEscape(record.ID) + "/AlternateSources"
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return catalog.WrapError("split", record.ID, err)
	}
	return nil
}

func (c *Client) movies(ctx context.Context, base url.Values) ([]item, error) {
	var all []item
	for start := 0; ; {
		query := url.Values{}
		for k, v := range base {
			query[k] = v
		}
		query.Set("Recursive", "true")
		query.Set("IncludeItemTypes", "Movie")
		query.Set("IsVirtualItem", "false")
		query.Set("Fields", itemFields)
		query.Set("StartIndex", strconv.Itoa(start))
		query.Set("Limit", strconv.Itoa(c.pageSize))

		var resp itemsResponse
		if err := c.do(ctx, http.MethodGet, c.itemsPath(), query, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Items...)
		start += len(resp.Items)
		if len(resp.Items) == 0 || start >= resp.TotalRecordCount {
			return all, nil
		}
	}
}

// boxSetIDs returns the ids of manual collections.
func (c *Client) boxSetIDs(ctx context.Context) (map[string]struct{}, error) {
	query := url.Values{}
	query.Set("Recursive", "true")
	query.Set("IncludeItemTypes", "BoxSet")
	var resp itemsResponse
	if err := c.do(ctx, http.MethodGet, c.itemsPath(), query, &resp); err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(resp.Items))
	for _, it := range resp.Items {
		ids[normalizeID(it.ID)] = struct{}{}
	}
	return ids, nil
}
