package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"gamelog/ingestion/internal/metrics"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when the upstream has no resource for the request.
// For play-level feeds this is the normal "no data for this game" state.
var ErrNotFound = errors.New("resource not found")

// APIError describes a failed upstream call
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Temporary  bool
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a network or retryable HTTP failure
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Client is a small HTTP JSON client shared by the upstream providers
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
	userAgent  string
}

// Option configures a Client
type Option func(*Client)

// WithRetryDelay sets the base delay for exponential backoff between attempts
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for one upstream host with a fixed request timeout
func NewClient(name, baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		retryDelay: 2 * time.Second,
		userAgent:  "gamelog-ingestion/1.0",
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs a GET request. attempts bounds the total number of tries; only
// transient failures are retried, with exponential backoff.
func (c *Client) get(ctx context.Context, endpoint, path string, params map[string]string, attempts int) ([]byte, error) {
	if attempts < 1 {
		attempts = 1
	}
	url := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, err := c.do(ctx, endpoint, url, params)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !IsTransient(err) || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, endpoint, url string, params map[string]string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if len(params) > 0 {
		q := req.URL.Query()
		for key, value := range params {
			q.Add(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}

	log.Debug().
		Str("source", c.name).
		Str("url", req.URL.String()).
		Msg("Making API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(endpoint, "network_error", time.Since(start).Seconds())
		return nil, &APIError{Endpoint: endpoint, Temporary: ctx.Err() == nil, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordAPICall(endpoint, "read_error", time.Since(start).Seconds())
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Temporary: true, Err: err}
	}

	metrics.RecordAPICall(endpoint, fmt.Sprintf("%d", resp.StatusCode), time.Since(start).Seconds())

	switch {
	case resp.StatusCode == http.StatusOK:
		log.Debug().
			Str("url", url).
			Int("size", len(body)).
			Msg("API request successful")
		return body, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", endpoint, ErrNotFound)

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: truncate(body), Temporary: true}

	default:
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: truncate(body)}
	}
}

func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
