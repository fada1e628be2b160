// Package feed fetches raw crossing-times readings from the upstream
// Port Authority endpoint.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/crossing-times-etl/internal/domain"
)

// DefaultURL is the public crossing-times endpoint.
const DefaultURL = "https://panynj.gov/bin/portauthority/crossingtimesapi.json"

var (
	// ErrUnavailable wraps network failures and non-2xx responses.
	ErrUnavailable = errors.New("feed unavailable")
	// ErrMalformed wraps responses that are not a valid readings array.
	ErrMalformed = errors.New("feed malformed")
)

// Client fetches the upstream readings snapshot over HTTP.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feed client with a bounded request timeout.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchReadings performs a single GET of the feed and decodes the readings
// array. The snapshot is returned as-is; normalization is the caller's job.
func (c *Client) FetchReadings(ctx context.Context) ([]domain.RawReading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, body)
	}

	var readings []domain.RawReading
	if err := json.NewDecoder(resp.Body).Decode(&readings); err != nil {
		return nil, fmt.Errorf("%w: decode readings: %w", ErrMalformed, err)
	}

	c.logger.Debug("fetched feed snapshot", "readings", len(readings))
	return readings, nil
}
