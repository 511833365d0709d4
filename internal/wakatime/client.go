package wakatime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://wakatime.com/api/v1"

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient returns a Wakatime API client. An empty baseURL selects the public API.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
	}
}

type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ProjectsResponse struct {
	Data []Project `json:"data"`
}

// Commit is a commit as annotated by Wakatime with the coding time spent on it.
type Commit struct {
	Hash         string  `json:"hash"`
	Ref          string  `json:"ref"`
	Message      *string `json:"message"`
	AuthorName   *string `json:"author_name"`
	AuthorDate   string  `json:"author_date"`
	TotalSeconds float64 `json:"total_seconds"`
}

type CommitsResponse struct {
	Commits    []Commit `json:"commits"`
	Page       int      `json:"page"`
	TotalPages int      `json:"total_pages"`
}

type SummaryItem struct {
	Name         string  `json:"name"`
	TotalSeconds float64 `json:"total_seconds"`
}

type Summary struct {
	GrandTotal struct {
		TotalSeconds float64 `json:"total_seconds"`
	} `json:"grand_total"`
	Projects []SummaryItem `json:"projects"`
	Range    struct {
		Date string `json:"date"`
	} `json:"range"`
}

type SummariesResponse struct {
	Data []Summary `json:"data"`
}

// DailyTotal is the coding time Wakatime tracked on one day.
type DailyTotal struct {
	Date         string
	TotalSeconds int
	Projects     map[string]int
}

// Projects lists the projects of the current user.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var result ProjectsResponse
	if err := c.get(ctx, "/users/current/projects", nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// Commits fetches one page of a project's commits, newest first. An empty
// author returns commits of every author.
func (c *Client) Commits(ctx context.Context, project, author string, page int) (*CommitsResponse, error) {
	query := url.Values{}
	if author != "" {
		query.Set("author", author)
	}
	if page < 1 {
		page = 1
	}
	query.Set("page", strconv.Itoa(page))

	var result CommitsResponse
	path := fmt.Sprintf("/users/current/projects/%s/commits", url.PathEscape(project))
	if err := c.get(ctx, path, query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Daily returns the tracked time on day, optionally limited to one project.
func (c *Client) Daily(ctx context.Context, day time.Time, project string) (*DailyTotal, error) {
	date := day.Format("2006-01-02")
	query := url.Values{}
	query.Set("start", date)
	query.Set("end", date)
	if project != "" {
		query.Set("project", project)
	}

	var result SummariesResponse
	if err := c.get(ctx, "/users/current/summaries", query, &result); err != nil {
		return nil, err
	}

	total := &DailyTotal{Date: date, Projects: make(map[string]int)}
	for _, s := range result.Data {
		total.TotalSeconds += int(math.Round(s.GrandTotal.TotalSeconds))
		for _, p := range s.Projects {
			total.Projects[p.Name] += int(math.Round(p.TotalSeconds))
		}
	}
	return total, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.get(ctx, "/users/current", nil, nil)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.apiKey)))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
