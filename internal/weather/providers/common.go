package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is used by every upstream unless a test overrides it.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// delay returns the wait before retry number attempt (0-based).
func (b BackoffConfig) delay(attempt int) time.Duration {
	d := b.InitialInterval << attempt
	if b.MaxInterval > 0 && (d > b.MaxInterval || d <= 0) {
		d = b.MaxInterval
	}
	return d
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// upstream is one third-party HTTP API. All calls to it share a client, a
// retry policy and a circuit breaker named after it.
type upstream struct {
	name    string
	client  *http.Client
	backoff BackoffConfig
	breaker *gobreaker.CircuitBreaker
}

func newUpstream(name string, client *http.Client) *upstream {
	return &upstream{
		name:    name,
		client:  client,
		backoff: DefaultBackoff,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
			// 4xx answers are caller mistakes, not upstream failures.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errUnexpected)
			},
		}),
	}
}

// getJSON performs a GET of endpoint with query q and decodes the 2xx
// answer into out.
func (u *upstream) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	resp, err := u.get(ctx, endpoint+"?"+q.Encode())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", u.name, err)
	}
	return nil
}

// get retries rate limiting, 5xx answers and transport errors with
// exponential backoff. Other non-2xx answers fail at once. The caller must
// close the body of the returned response.
func (u *upstream) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if u.client == nil {
		return nil, errNoHTTPClient
	}
	if u.backoff.MaxRetries < 0 || u.backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}

		result, err := u.breaker.Execute(func() (interface{}, error) {
			return u.do(req)
		})
		if err == nil {
			return result.(*http.Response), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w: %v", u.name, errCircuitOpen, err)
		}
		if errors.Is(err, errUnexpected) || attempt >= u.backoff.MaxRetries {
			return nil, fmt.Errorf("%s: %w", u.name, err)
		}

		timer := time.NewTimer(u.backoff.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (u *upstream) do(req *http.Request) (*http.Response, error) {
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
