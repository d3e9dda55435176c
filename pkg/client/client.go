package client

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
)

// Client calls the custom-domain service HTTP API.
type Client struct {
	base        string
	httpClient  *http.Client
	bearerToken string
	userAgent   string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient = &http.Client{Timeout: d}
		return nil
	}
}

// WithBearerToken attaches an operator token to every tenant call.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.userAgent = ua
		return nil
	}
}

// New creates a Client for the service at base, e.g. "http://localhost:8080".
// Provider calls made by the service can take a while, so the default
// timeout is generous.
func New(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid service URL %q", base)
	}
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 90 * time.Second},
		userAgent:  "realtyhost-domains-go",
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(base string, opts ...Option) *Client {
	c, err := New(base, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Provision attaches domain to tenantID. It returns (nil, nil) when the
// service accepted the request but the DNS provider returned no hostname,
// in which case nothing was stored and the call can be retried.
func (c *Client) Provision(ctx context.Context, tenantID, domain string) (*DomainRecord, error) {
	body := struct {
		Domain string `json:"domain"`
	}{Domain: domain}

	var rec DomainRecord
	status, err := c.do(ctx, http.MethodPost, tenantPath(tenantID), nil, body, &rec)
	if err != nil {
		return nil, err
	}
	if status == http.StatusAccepted {
		return nil, nil
	}
	return &rec, nil
}

// Status polls the DNS provider through the service and returns the
// recomputed domain status.
func (c *Client) Status(ctx context.Context, tenantID string) (*StatusResult, error) {
	var res StatusResult
	if _, err := c.do(ctx, http.MethodGet, tenantPath(tenantID)+"/status", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Deprovision removes the tenant's custom domain.
func (c *Client) Deprovision(ctx context.Context, tenantID string) error {
	_, err := c.do(ctx, http.MethodDelete, tenantPath(tenantID), nil, nil, nil)
	return err
}

// Resolve returns the tenant serving host.
func (c *Client) Resolve(ctx context.Context, host string) (*Resolution, error) {
	var res Resolution
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/resolve", url.Values{"host": {host}}, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func tenantPath(tenantID string) string {
	return "/api/v1/tenants/" + url.PathEscape(tenantID) + "/domain"
}

// do sends one request and decodes a 2xx JSON body into out. Non-2xx
// responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) (int, error) {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, parseAPIError(resp.StatusCode, raw)
	}

	if out != nil && resp.StatusCode != http.StatusAccepted && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
