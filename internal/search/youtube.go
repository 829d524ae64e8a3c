// Package search queries the YouTube Data API v3 for video candidates.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/AnMaster15/mashupp/internal/model"
)

const (
	DefaultBaseURL  = "https://www.googleapis.com/youtube/v3"
	DefaultTimeout  = 15 * time.Second
	watchURLPrefix  = "https://www.youtube.com/watch?v="
	maxAPIResults   = 50
	errorBodyLimit  = 512
	searchBodyLimit = 2 * 1024 * 1024
)

// Source returns candidates for a query, best match first
type Source interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.Candidate, error)
}

// --- YouTube Data API v3 types ---

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ID      searchItemID      `json:"id"`
	Snippet searchItemSnippet `json:"snippet"`
}

type searchItemID struct {
	VideoID string `json:"videoId"`
}

type searchItemSnippet struct {
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
}

// Client calls search.list once per Search
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. a test server
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Data API client for the given key
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search runs one search.list request restricted to videos. On failure it
// returns an empty slice and an error wrapping model.ErrSearch.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]model.Candidate, error) {
	if maxResults <= 0 {
		return []model.Candidate{}, nil
	}
	if maxResults > maxAPIResults {
		maxResults = maxAPIResults
	}
	if c.apiKey == "" {
		return []model.Candidate{}, fmt.Errorf("%w: API key is not configured", model.ErrSearch)
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return []model.Candidate{}, fmt.Errorf("%w: build request: %v", model.ErrSearch, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return []model.Candidate{}, fmt.Errorf("%w: youtube data API: %v", model.ErrSearch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return []model.Candidate{}, fmt.Errorf("%w: youtube data API %d: %s", model.ErrSearch, resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, searchBodyLimit)).Decode(&result); err != nil {
		return []model.Candidate{}, fmt.Errorf("%w: decode youtube data API: %v", model.ErrSearch, err)
	}

	candidates := make([]model.Candidate, 0, len(result.Items))
	for _, item := range result.Items {
		if len(candidates) == maxResults {
			break
		}
		if item.ID.VideoID == "" {
			continue
		}
		candidates = append(candidates, model.Candidate{
			Title: item.Snippet.Title,
			URL:   watchURLPrefix + item.ID.VideoID,
		})
	}

	c.logger.Debug("youtube search done",
		slog.String("query", query),
		slog.Int("results", len(candidates)),
		slog.Duration("took", time.Since(start)),
	)
	return candidates, nil
}
