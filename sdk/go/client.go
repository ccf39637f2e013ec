package wikiroutesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Wikiroute HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Destination represents one classification outcome.
type Destination struct {
	Kind       string `json:"kind"`
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	FromRevID  *int64 `json:"from_rev_id,omitempty"`
	ToRevID    *int64 `json:"to_rev_id,omitempty"`
	SearchTerm string `json:"search_term,omitempty"`
	Day        *int   `json:"day,omitempty"`
}

// ClassifyResult is the classify response body.
type ClassifyResult struct {
	Destination    Destination `json:"destination"`
	OpensInBrowser bool        `json:"opens_in_browser"`
}

// Site represents a site registry entry.
type Site struct {
	Host                string `json:"host"`
	Language            string `json:"language"`
	SupportsUserTalk    bool   `json:"supports_user_talk"`
	SupportsNativeDiff  bool   `json:"supports_native_diff"`
	MainNamespaceNative bool   `json:"main_namespace_native"`
	RoutesMetaPaths     bool   `json:"routes_meta_paths"`
	CreatedAt           string `json:"created_at,omitempty"`
	UpdatedAt           string `json:"updated_at,omitempty"`
}

// Classification represents a log entry.
type Classification struct {
	ID          string `json:"id"`
	TS          string `json:"ts"`
	URL         string `json:"url"`
	Host        string `json:"host,omitempty"`
	Kind        string `json:"kind"`
	PayloadJSON string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Classify resolves a URL to its destination. Set record to append the
// outcome to the server's classification log.
func (c *Client) Classify(ctx context.Context, rawURL string, record bool) (ClassifyResult, error) {
	endpoint := "v0/classify"
	if record {
		endpoint += "?record=true"
	}
	var resp ClassifyResult
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"url": rawURL}, &resp)
	return resp, err
}

// Sites lists registered sites.
func (c *Client) Sites(ctx context.Context) ([]Site, error) {
	var resp struct {
		Items []Site `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v0/sites", nil, &resp)
	return resp.Items, err
}

// UpsertSite creates or updates a site registry entry.
func (c *Client) UpsertSite(ctx context.Context, s Site) (Site, error) {
	body := map[string]any{
		"language":              s.Language,
		"supports_user_talk":    s.SupportsUserTalk,
		"supports_native_diff":  s.SupportsNativeDiff,
		"main_namespace_native": s.MainNamespaceNative,
		"routes_meta_paths":     s.RoutesMetaPaths,
	}
	var resp Site
	endpoint := fmt.Sprintf("v0/sites/%s", url.PathEscape(s.Host))
	err := c.do(ctx, http.MethodPut, endpoint, body, &resp)
	return resp, err
}

// DeleteSite removes a site registry entry.
func (c *Client) DeleteSite(ctx context.Context, host string) error {
	endpoint := fmt.Sprintf("v0/sites/%s", url.PathEscape(host))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// Log returns the latest classification log entries.
func (c *Client) Log(ctx context.Context, limit int, kind, host string) ([]Classification, error) {
	endpoint := "v0/log"
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if kind != "" {
		q.Set("kind", kind)
	}
	if host != "" {
		q.Set("host", host)
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items []Classification `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// Status returns classification counts by kind.
func (c *Client) Status(ctx context.Context) (map[string]int, error) {
	var resp struct {
		Counts map[string]int `json:"counts"`
	}
	err := c.do(ctx, http.MethodGet, "v0/status", nil, &resp)
	return resp.Counts, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
