// Package cloudflare is a narrow client for the Cloudflare v4 API covering
// zone lookup, DNS records and SSL-for-SaaS custom hostnames.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production Cloudflare API root.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// Config holds the connection settings for a Client.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
	// RateLimit is the steady-state request rate in requests per second.
	// Zero disables client-side limiting.
	RateLimit float64
	Burst     int
}

// Client talks to the Cloudflare API with a bearer token. It is safe for
// concurrent use and should be constructed once per process.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a Client. A zero Timeout defaults to 30 seconds.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.APIToken,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger,
	}
}

// Configured reports whether the client has an API token.
func (c *Client) Configured() bool {
	return c.token != ""
}

// envelope is the common Cloudflare response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Errors  []ErrorDetail   `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

// do performs a single API call and decodes envelope.result into out.
// Any non-2xx status or success=false is returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("cloudflare rate limiter: %w", err)
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cloudflare %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read cloudflare response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("decode cloudflare response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Errors: env.Errors}
	}

	if out != nil && len(env.Result) > 0 && string(env.Result) != "null" {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode cloudflare result: %w", err)
		}
	}
	return nil
}

func zonePath(zoneID string, rest ...string) string {
	p := "/zones/" + url.PathEscape(zoneID)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}
