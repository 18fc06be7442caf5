package gameapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/taptrack/internal/domain/model"
	"github.com/okian/taptrack/pkg/logger"
)

// Default client configuration constants.
const (
	defaultAttempts  = 3
	defaultRetryWait = 3 * time.Second
	defaultTimeout   = 20 * time.Second
)

// ClientOption applies a configuration option to the Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetry sets the retry budget: total attempts and the fixed wait between
// them.
func WithRetry(attempts int, wait time.Duration) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if wait >= 0 {
			c.retryWait = wait
		}
	}
}

// WithClientLogger sets a custom logger for the client.
func WithClientLogger(log logger.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}

// Client fetches event leaderboards from the game API. It is shared across
// region loops; the underlying http.Client provides its own synchronization
// for connection pooling.
type Client struct {
	httpClient *http.Client
	urls       map[model.Region]string
	token      string
	attempts   int
	retryWait  time.Duration
	logger     logger.Logger
}

// NewClient creates a client for the given per-region URL templates. Each
// template must contain an {event_id} placeholder.
func NewClient(urls map[model.Region]string, token string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		urls:       urls,
		token:      token,
		attempts:   defaultAttempts,
		retryWait:  defaultRetryWait,
		logger:     logger.Get().Named("gameapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs one leaderboard fetch for an event. Transport errors and
// non-2xx responses are retried with a fixed wait; a well-formed response
// missing either payload section fails immediately with ErrParse.
func (c *Client) Fetch(ctx context.Context, region model.Region, eventID int) (*Payload, error) {
	template, ok := c.urls[region]
	if !ok {
		return nil, fmt.Errorf("%w: no ranking url configured for region %q", ErrFetch, region)
	}
	url := strings.ReplaceAll(template, "{event_id}", strconv.Itoa(eventID))

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrFetch, ctx.Err())
			case <-time.After(c.retryWait):
			}
		}

		payload, err := c.fetchOnce(ctx, url)
		if err == nil {
			return payload, nil
		}
		if errors.Is(err, ErrParse) {
			return nil, err
		}
		lastErr = err
		c.logger.Warn(ctx, "leaderboard fetch attempt failed",
			logger.String("region", string(region)),
			logger.Int("event_id", eventID),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
	}
	return nil, fmt.Errorf("%w: %v", ErrFetch, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrParse, err)
	}
	if payload.Top100 == nil || payload.Border == nil {
		return nil, fmt.Errorf("%w: payload missing top100 or border section", ErrParse)
	}
	return &payload, nil
}

// Close releases pooled connections. Called on supervisor shutdown.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
