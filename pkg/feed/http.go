// Package feed provides the sources the dashboard fetches its samples from.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raykavin/perfscope/pkg/core"
)

// DefaultTimeout bounds a single request of the HTTP feed
const DefaultTimeout = 30 * time.Second

// HTTPFeed fetches snapshots from the metrics API of a build service
type HTTPFeed struct {
	baseURL *url.URL
	client  *http.Client
	headers map[string]string
	legacy  bool
	timeout time.Duration
}

// HTTPOption configures an HTTPFeed
type HTTPOption func(*HTTPFeed)

// WithHTTPClient replaces the client used for requests. The client is
// never modified; a nil client keeps the default one.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(f *HTTPFeed) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout sets the request timeout. With WithHTTPClient the feed uses a
// copy of that client carrying the timeout.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(f *HTTPFeed) {
		f.timeout = timeout
	}
}

// WithHeader adds a header to every request, such as an API token
func WithHeader(key, value string) HTTPOption {
	return func(f *HTTPFeed) {
		f.headers[key] = value
	}
}

// WithLegacyFormat decodes responses as LegacySamples, the payload of the
// older build service
func WithLegacyFormat() HTTPOption {
	return func(f *HTTPFeed) {
		f.legacy = true
	}
}

// NewHTTPFeed creates a feed for the API rooted at baseURL
func NewHTTPFeed(baseURL string, options ...HTTPOption) (*HTTPFeed, error) {
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid feed url %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid feed url %q: unsupported scheme", baseURL)
	}

	feed := &HTTPFeed{
		baseURL: parsed,
		client:  &http.Client{Timeout: DefaultTimeout},
		headers: make(map[string]string),
	}
	for _, option := range options {
		option(feed)
	}

	if feed.timeout > 0 && feed.client.Timeout != feed.timeout {
		client := *feed.client
		client.Timeout = feed.timeout
		feed.client = &client
	}
	return feed, nil
}

// MetricsURL returns the endpoint holding the samples of a test
func (f *HTTPFeed) MetricsURL(runID, testID string) string {
	return f.baseURL.JoinPath("api", "builds", runID, "steps", testID, "metrics").String()
}

// Fetch implements core.Fetcher
func (f *HTTPFeed) Fetch(ctx context.Context, runID, testID string) (core.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.MetricsURL(runID, testID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range f.headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s/%s", core.ErrSnapshotNotFound, runID, testID)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from metrics api", resp.StatusCode)
	}

	if f.legacy {
		var legacy LegacySamples
		if err := json.NewDecoder(resp.Body).Decode(&legacy); err != nil {
			return nil, fmt.Errorf("failed to decode legacy metrics: %w", err)
		}
		return FromLegacy(legacy)
	}

	var snapshot core.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}
	return snapshot, nil
}
