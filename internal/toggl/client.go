package toggl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.track.toggl.com/api/v9"

type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient returns a Toggl Track client limited to one request per second.
func NewClient(apiToken, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiToken:   apiToken,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// SetRateLimit replaces the request rate limit.
func (c *Client) SetRateLimit(limit rate.Limit, burst int) {
	c.limiter = rate.NewLimiter(limit, burst)
}

type TimeEntry struct {
	ID          int64     `json:"id,omitempty"`
	WorkspaceID int64     `json:"workspace_id"`
	ProjectID   int64     `json:"project_id,omitempty"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	Duration    int       `json:"duration"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedWith string    `json:"created_with"`
}

type Me struct {
	ID                 int64  `json:"id"`
	Email              string `json:"email"`
	DefaultWorkspaceID int64  `json:"default_workspace_id"`
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.do(ctx, http.MethodGet, "/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// CreateTimeEntry stores a finished time entry in the workspace.
func (c *Client) CreateTimeEntry(ctx context.Context, entry TimeEntry) (*TimeEntry, error) {
	var created TimeEntry
	path := fmt.Sprintf("/workspaces/%d/time_entries", entry.WorkspaceID)
	if err := c.do(ctx, http.MethodPost, path, entry, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.apiToken, "api_token")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
