package ipinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/magicaleks/magickey/internal/config"
	"github.com/magicaleks/magickey/internal/domain"
	"github.com/magicaleks/magickey/internal/infra/transport"
)

const (
	lookupTimeout = 10 * time.Second
	maxReplySize  = 1 << 20
)

// Client resolves the public address of the host and its proxy/risk record.
type Client struct {
	ipcheckURL    string
	proxycheckURL string
	userAgent     string
	http          *retryablehttp.Client
	logger        *slog.Logger
}

func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		ipcheckURL:    cfg.IPCheckURL,
		proxycheckURL: cfg.ProxyCheckURL,
		userAgent:     cfg.UserAgent,
		http:          transport.NewSingleShotClient(logger, lookupTimeout),
		logger:        logger,
	}
}

// Lookup returns both records. Any failure is logged at debug level and
// leaves the affected record nil.
func (c *Client) Lookup(ctx context.Context) (*domain.IPRecord, *domain.ProxyRecord) {
	if c.ipcheckURL == "" {
		return nil, nil
	}

	ip, err := c.PublicIP(ctx)
	if err != nil {
		c.logger.Debug("ip check failed", "err", err)
		return nil, nil
	}
	if ip.IP == "" || c.proxycheckURL == "" {
		return ip, nil
	}

	proxy, err := c.Proxy(ctx, ip.IP)
	if err != nil {
		c.logger.Debug("proxy check failed", "err", err)
		return ip, nil
	}
	return ip, proxy
}

// PublicIP queries the IP check service.
func (c *Client) PublicIP(ctx context.Context) (*domain.IPRecord, error) {
	body, err := c.get(ctx, c.ipcheckURL)
	if err != nil {
		return nil, domain.ErrLookup{Op: "ipcheck", URL: c.ipcheckURL, Err: err}
	}

	var rec domain.IPRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, domain.ErrLookup{Op: "ipcheck", URL: c.ipcheckURL, Err: fmt.Errorf("decode reply: %w", err)}
	}
	rec.IP = strings.TrimSpace(rec.IP)
	return &rec, nil
}

// Proxy queries the proxy/risk service for ip. The service answers with an
// object keyed by the queried address.
func (c *Client) Proxy(ctx context.Context, ip string) (*domain.ProxyRecord, error) {
	target := c.proxycheckURL + url.PathEscape(ip) + "?vpn=1&asn=1"

	body, err := c.get(ctx, target)
	if err != nil {
		return nil, domain.ErrLookup{Op: "proxycheck", URL: target, Err: err}
	}

	var reply map[string]json.RawMessage
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, domain.ErrLookup{Op: "proxycheck", URL: target, Err: fmt.Errorf("decode reply: %w", err)}
	}

	raw, ok := reply[ip]
	if !ok {
		return nil, domain.ErrLookup{Op: "proxycheck", URL: target, Err: errors.New("address missing from reply")}
	}

	var rec domain.ProxyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, domain.ErrLookup{Op: "proxycheck", URL: target, Err: fmt.Errorf("decode record: %w", err)}
	}
	return &rec, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	resp, err := transport.Get(ctx, c.http, target, c.userAgent)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
}
