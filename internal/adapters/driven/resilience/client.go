// Package resilience wraps outbound HTTP calls to third-party providers with
// a rate limiter, a circuit breaker and bounded retries.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/custodia-labs/sercha-music/internal/logger"
)

// Defaults for Config fields left zero.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultRetries      = 2
	DefaultTripAfter    = 5
	DefaultOpenDuration = 30 * time.Second
	defaultBackoffBase  = 1500 * time.Millisecond
	defaultRetryAfter   = 30 * time.Second
	maxErrorBody        = 512
)

// ErrCircuitOpen is returned without contacting the provider while the breaker is open.
var ErrCircuitOpen = errors.New("circuit open")

// StatusError is a provider response that counts as a failed attempt.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Config configures a Client.
type Config struct {
	// Name identifies the provider in logs and the breaker.
	Name string

	// Timeout bounds each attempt (default: 10s).
	Timeout time.Duration

	// RequestsPerSecond and Burst size the token bucket. Zero disables it.
	RequestsPerSecond float64
	Burst             int

	// Retries is the number of extra attempts after the first (default: 2).
	// Negative disables retries.
	Retries int

	// TripAfter opens the breaker after this many consecutive failures (default: 5).
	TripAfter uint32

	// OpenDuration is how long the breaker stays open (default: 30s).
	OpenDuration time.Duration

	// Backoff returns the wait before retry attempt n (1-based).
	// Defaults to 1.5s*n plus up to 1s of jitter.
	Backoff func(attempt int) time.Duration

	// HTTPClient overrides the transport; its Timeout is replaced by Timeout.
	HTTPClient *http.Client
}

// Client sends requests through the limiter and breaker, retrying 429s, 5xx
// responses and network errors.
type Client struct {
	name    string
	http    *http.Client
	limiter *RateLimiter
	breaker *gobreaker.CircuitBreaker[*http.Response]
	retries int
	backoff func(attempt int) time.Duration
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries == 0 {
		cfg.Retries = DefaultRetries
	} else if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.TripAfter == 0 {
		cfg.TripAfter = DefaultTripAfter
	}
	if cfg.OpenDuration == 0 {
		cfg.OpenDuration = DefaultOpenDuration
	}
	if cfg.Backoff == nil {
		cfg.Backoff = jitteredBackoff
	}

	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		httpClient = &c
	}
	httpClient.Timeout = cfg.Timeout

	tripAfter := cfg.TripAfter
	name := cfg.Name
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    name,
		Timeout: cfg.OpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("%s: circuit %s -> %s", name, from, to)
		},
	})

	return &Client{
		name:    name,
		http:    httpClient,
		limiter: NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		breaker: breaker,
		retries: cfg.Retries,
		backoff: cfg.Backoff,
	}
}

// Do sends the request built by newRequest, rebuilding it for each attempt.
// Responses other than 429 and 5xx are returned to the caller, who must close
// the body. After the last failed attempt the final error is returned.
func (c *Client) Do(ctx context.Context, newRequest func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := newRequest(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			return c.send(req)
		})
		if err == nil {
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w", c.name, ErrCircuitOpen)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		logger.Debug("%s: attempt %d/%d failed: %v", c.name, attempt+1, c.retries+1, err)
	}
	return nil, lastErr
}

// send performs one attempt, turning retryable statuses into errors.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < http.StatusInternalServerError {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.Pause(retryAfter(resp.Header.Get("Retry-After")))
	}
	return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}

// State reports the breaker state, for diagnostics.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// retryAfter parses a Retry-After header given in seconds. A missing or
// unparseable header means the default pause.
func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

func jitteredBackoff(attempt int) time.Duration {
	return defaultBackoffBase*time.Duration(attempt) + rand.N(time.Second)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
