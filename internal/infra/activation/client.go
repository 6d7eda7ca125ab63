package activation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/magicaleks/magickey/internal/config"
	"github.com/magicaleks/magickey/internal/domain"
	"github.com/magicaleks/magickey/internal/infra/transport"
)

const (
	// MessageParam carries the encrypted fingerprint.
	MessageParam = "message"

	maxReplySize = 1 << 20
)

// Client submits encrypted fingerprints to the activation endpoint. Each
// call to Activate is exactly one GET request.
type Client struct {
	endpoint   string
	userAgent  string
	http       *retryablehttp.Client
	logger     *slog.Logger
	logReplies bool
}

func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	// retryablehttp logs the full request URL, which contains the ciphertext.
	var httpLogger *slog.Logger
	if cfg.Debug.Enabled && cfg.Debug.LogEncryptedData {
		httpLogger = logger
	}

	return &Client{
		endpoint:   cfg.ActivationURL,
		userAgent:  cfg.UserAgent,
		http:       transport.NewSingleShotClient(httpLogger, 0),
		logger:     logger,
		logReplies: cfg.Debug.Enabled && cfg.Debug.LogServerResponses,
	}
}

// RequestURL returns the endpoint with the payload attached as the message
// query parameter. Existing query parameters of the endpoint are kept.
func (c *Client) RequestURL(payload domain.EncryptedPayload) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(MessageParam, string(payload))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Activate sends payload and classifies the reply. Failures are reported as
// outcomes, never as errors.
func (c *Client) Activate(ctx context.Context, payload domain.EncryptedPayload) domain.ActivationOutcome {
	target, err := c.RequestURL(payload)
	if err != nil {
		return domain.TransportFailure(fmt.Errorf("build request: %w", err))
	}

	resp, err := transport.Get(ctx, c.http, target, c.userAgent)
	if err != nil {
		return domain.TransportFailure(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return domain.TransportFailure(fmt.Errorf("read reply: %w", err))
	}

	if c.logReplies {
		c.logger.Debug("activation reply", "status", resp.StatusCode, "body", string(body))
	}

	return Classify(body)
}
