// Package ratefeed integrates external hotel rate feeds behind pricing.RateSource.
package ratefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

// Client quotes per-room-night rates from a JSON rate feed.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	backoff    time.Duration
}

// ClientConfig tunes the feed client.
type ClientConfig struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// NewClient constructs a new client.
func NewClient(baseURL string, cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retries: cfg.Retries,
		backoff: cfg.Backoff,
	}
}

type rateResponse struct {
	Rate     int64  `json:"rate"`
	Currency string `json:"currency"`
}

var errBadPayload = errors.New("bad rate payload")

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("rate feed returned status %d", e.code)
}

// QuoteExternalRate fetches the rate, retrying transport failures and 5xx
// responses with linear backoff.
func (c *Client) QuoteExternalRate(ctx context.Context, location pricing.Location, stars int) (int64, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
		rate, err := c.fetch(ctx, location, stars)
		if err == nil {
			return rate, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return 0, fmt.Errorf("ratefeed: quote %s %d-star: %w", location, stars, lastErr)
}

func (c *Client) fetch(ctx context.Context, location pricing.Location, stars int) (int64, error) {
	query := url.Values{}
	query.Set("location", string(location))
	query.Set("stars", strconv.Itoa(stars))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rates?"+query.Encode(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return 0, &statusError{code: resp.StatusCode}
	}

	var payload rateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: decode: %v", errBadPayload, err)
	}
	if payload.Currency != "" && !strings.EqualFold(payload.Currency, "JPY") {
		return 0, fmt.Errorf("%w: unsupported currency %q", errBadPayload, payload.Currency)
	}
	if payload.Rate <= 0 {
		return 0, fmt.Errorf("%w: rate %d", errBadPayload, payload.Rate)
	}
	return payload.Rate, nil
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return !errors.Is(err, errBadPayload) && !errors.Is(err, context.Canceled)
}

// Ping checks that the feed answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}
