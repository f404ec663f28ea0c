package drone

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultRepo is the repository both Drone generations build.
	DefaultRepo = "BitGo/bitgo-microservices"
)

// Client is a Drone API client bound to one server and one repository.
type Client struct {
	name       string
	baseURL    string
	repo       string
	token      string
	pageSize   int
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPageSize sets the per_page query parameter on list requests.
// Zero leaves the server default in place.
func WithPageSize(n int) Option {
	return func(c *Client) {
		c.pageSize = n
	}
}

// NewClient creates a client for the Drone server at baseURL.
// name identifies the backend in errors and logs (e.g. "drone1").
func NewClient(name, baseURL, repo, token string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		repo:       strings.Trim(repo, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the backend name given at construction.
func (c *Client) Name() string {
	return c.name
}

// ListBuilds fetches one page (1-based) of the repository's build list,
// newest build first.
func (c *Client) ListBuilds(ctx context.Context, page int) ([]BuildSummary, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	if c.pageSize > 0 {
		query.Set("per_page", strconv.Itoa(c.pageSize))
	}

	var builds []BuildSummary
	if err := c.get(ctx, c.buildsPath(), query, &builds); err != nil {
		return nil, fmt.Errorf("%s: list builds page %d: %w", c.name, page, err)
	}
	return builds, nil
}

// RecentBuilds fetches the first page of the build list.
func (c *Client) RecentBuilds(ctx context.Context) ([]BuildSummary, error) {
	return c.ListBuilds(ctx, 1)
}

// GetBuild fetches a build with its stages and steps.
func (c *Client) GetBuild(ctx context.Context, number int) (*BuildDetail, error) {
	var build BuildDetail
	path := c.buildsPath() + "/" + strconv.Itoa(number)
	if err := c.get(ctx, path, nil, &build); err != nil {
		return nil, fmt.Errorf("%s: get build %d: %w", c.name, number, err)
	}
	return &build, nil
}

// Paginate returns a fresh cursor over the build list starting at page 1.
func (c *Client) Paginate() *Paginator {
	return NewPaginator(c)
}

func (c *Client) buildsPath() string {
	return fmt.Sprintf("/api/repos/%s/builds", c.repo)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return statusError(resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(code int, body []byte) error {
	err := fmt.Errorf("API request failed with status %d: %s", code, strings.TrimSpace(string(body)))
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrAuthFailed, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrBuildNotFound, err)
	}
	return err
}
