// Package transport builds the HTTP clients used to talk to remote services.
// Every client performs exactly one attempt per request.
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// NeverRetry is a retryablehttp.CheckRetry that stops after the first attempt
// and leaves error classification to the caller.
func NeverRetry(_ context.Context, _ *http.Response, _ error) (bool, error) {
	return false, nil
}

// NewSingleShotClient returns a retryablehttp client that never retries and
// hands non-2xx responses back to the caller. A zero timeout keeps the
// transport defaults. A nil logger disables request logging.
func NewSingleShotClient(logger *slog.Logger, timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 0
	c.CheckRetry = NeverRetry
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = nil
	if logger != nil {
		c.Logger = logger
	}
	if timeout > 0 {
		c.HTTPClient.Timeout = timeout
	}
	return c
}

// Get issues a single GET with the given user agent.
func Get(ctx context.Context, c *retryablehttp.Client, url, userAgent string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return c.Do(req)
}
