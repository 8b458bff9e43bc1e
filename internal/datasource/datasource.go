// Package datasource fetches chat messages and ticker lists from external
// services. It defines a common MessageSource interface and implements
// concrete sources for Discord channels and RSS/Atom feeds.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seenimoa/tickerpulse/pkg/models"
)

// MessageSource defines the interface every message source implements.
type MessageSource interface {
	// Name returns a short unique name, used for logging and caching.
	Name() string

	// FetchMessages returns the current batch of messages, oldest first.
	FetchMessages(ctx context.Context) ([]models.Message, error)
}

// --- Sentinel errors ---

// ErrUnauthorized is returned when the source rejects the credentials.
var ErrUnauthorized = errors.New("unauthorized: check the API token")

// ErrChannelNotFound is returned when a channel does not exist or is not visible.
var ErrChannelNotFound = errors.New("channel not found")

// ErrMissingToken is returned when a source needs a token and none is configured.
var ErrMissingToken = errors.New("API token not configured")

// ErrNoSources is returned when nothing is configured to fetch from.
var ErrNoSources = errors.New("no message sources configured")

// DefaultRetryAfter is used when a 429 response carries no usable Retry-After.
const DefaultRetryAfter = 60 * time.Second

// RateLimitError is returned when the source rate-limits the request.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
	Header     http.Header
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "tickerpulse/1.0 (+https://github.com/seenimoa/tickerpulse)"

// HTTPClient is a pre-configured HTTP client with reasonable timeouts.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// doGet performs a GET request with the given URL and headers, returning the response body.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = HTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
			Header:     resp.Header,
		}
	}

	return resp.Body, nil
}
