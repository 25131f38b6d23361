package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"stockdash/internal/metrics"
	"stockdash/internal/provider"
)

const baseURL = "https://query1.finance.yahoo.com"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the public Yahoo Finance JSON endpoints.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
}

// ClientOption is a configuration option for the Yahoo client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new Yahoo Finance client.
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{"Accept": []string{"application/json"}},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Name() string { return "Yahoo Finance" }

// StatusError is returned for non-200 upstream responses.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("yahoo %s: unexpected status code: %d", e.Endpoint, e.Code)
}

// Unwrap maps well-known status codes onto provider sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return provider.ErrNotFound
	case http.StatusTooManyRequests:
		return provider.ErrRateLimited
	}
	return nil
}

// getJSON performs a GET against path and decodes the body into out.
// endpoint labels the call in metrics and errors.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(endpoint, start, 0, err)
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()
	metrics.ObserveUpstream(endpoint, start, res.StatusCode, nil)

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
		return &StatusError{Endpoint: endpoint, Code: res.StatusCode}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("decoding %s response: empty body", endpoint)
		}
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
