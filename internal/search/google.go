package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/oyilmaz/priceradar/internal/classify"
)

var (
	// ErrNoResults means the backend answered but had nothing for the query.
	ErrNoResults = errors.New("no search results")
	// ErrUpstream wraps non-200 answers and undecodable payloads.
	ErrUpstream = errors.New("search backend error")
)

const (
	firstPageSize  = 10
	secondPageSize = 5
)

// Client queries the Google Custom Search JSON API. The API caps a
// request at ten results, so a full candidate set takes two requests.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	engineID   string
	logger     *slog.Logger
}

func NewClient(endpoint, apiKey, engineID string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		apiKey:     apiKey,
		engineID:   engineID,
		logger:     slog.Default().With("component", "search"),
	}
}

type searchResponse struct {
	Items []classify.Item `json:"items"`
}

// Search returns up to fifteen raw items for the query: a full first
// page, plus a five-item second page requested only when the first
// page came back full. A second-page failure is not an error; running
// off the end of the index is routine.
func (c *Client) Search(ctx context.Context, query string) ([]classify.Item, error) {
	items, err := c.page(ctx, query, firstPageSize, 1)
	if err != nil {
		return nil, err
	}

	if len(items) == firstPageSize {
		second, err := c.page(ctx, query, secondPageSize, firstPageSize+1)
		if err != nil {
			c.logger.Debug("second result page unavailable", "query", query, "error", err)
		} else {
			items = append(items, second...)
		}
	}

	if len(items) == 0 {
		return nil, ErrNoResults
	}
	c.logger.Debug("search completed", "query", query, "results", len(items))
	return items, nil
}

func (c *Client) page(ctx context.Context, query string, num, start int) ([]classify.Item, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	params.Set("start", strconv.Itoa(start))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query search backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return payload.Items, nil
}
