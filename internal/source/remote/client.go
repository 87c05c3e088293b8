package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/infiniscroll/internal/domain"
)

const (
	// DefaultEndpoint serves 5000 photo records as one JSON array
	DefaultEndpoint = "https://jsonplaceholder.typicode.com/photos"

	defaultTimeout = 30 * time.Second
	userAgent      = "Infiniscroll/1.0"
)

// Client implements domain.ItemSource over a single JSON endpoint.
// The whole array is read once; batches are slices of it.
type Client struct {
	endpoint   string
	httpClient *http.Client
	store      domain.SnapshotStore
	logger     *slog.Logger

	mu      sync.Mutex
	dataset []domain.Photo
	loaded  bool
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithStore persists the dataset snapshot between runs
func WithStore(s domain.SnapshotStore) Option {
	return func(c *Client) { c.store = s }
}

// NewClient creates a new remote item source
func NewClient(endpoint string, logger *slog.Logger, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchBatch returns photos [offset, offset+count) of the dataset.
// Offsets past the end yield an empty batch.
func (c *Client) FetchBatch(ctx context.Context, offset, count int) ([]domain.Item, error) {
	if err := domain.ValidateRange(offset, count); err != nil {
		return nil, err
	}

	photos, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	if offset >= len(photos) {
		return []domain.Item{}, nil
	}
	end := offset + count
	if end > len(photos) {
		end = len(photos)
	}

	items := make([]domain.Item, 0, end-offset)
	for _, p := range photos[offset:end] {
		items = append(items, p)
	}
	return items, nil
}

// load returns the dataset, reading it on first use.
// The mutex is held across the read so concurrent callers share one request.
func (c *Client) load(ctx context.Context) ([]domain.Photo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.dataset, nil
	}

	if c.store != nil {
		photos, ok, err := c.store.GetPhotos(c.endpoint)
		switch {
		case err != nil:
			// An unreadable snapshot is dropped and replaced by the fetch below
			c.logger.Warn("failed to read dataset snapshot, fetching", "endpoint", c.endpoint, "error", err)
			if err := c.store.Invalidate(c.endpoint); err != nil {
				c.logger.Warn("failed to invalidate dataset snapshot", "endpoint", c.endpoint, "error", err)
			}
		case ok:
			c.logger.Debug("dataset loaded from snapshot", "endpoint", c.endpoint, "count", len(photos))
			c.dataset = photos
			c.loaded = true
			return photos, nil
		}
	}

	photos, err := c.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	c.dataset = photos
	c.loaded = true

	if c.store != nil {
		if err := c.store.SavePhotos(c.endpoint, photos); err != nil {
			c.logger.Warn("failed to save dataset snapshot", "error", err)
		}
	}
	return photos, nil
}

// fetchAll performs the single GET of the endpoint
func (c *Client) fetchAll(ctx context.Context) ([]domain.Photo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("remote request", "url", c.endpoint)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("remote request failed", "error", err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("remote request error", "status", resp.StatusCode, "bodyLen", len(body))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var photos []domain.Photo
	if err := json.Unmarshal(body, &photos); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	c.logger.Info("dataset fetched", "count", len(photos), "duration", time.Since(start))
	return photos, nil
}
