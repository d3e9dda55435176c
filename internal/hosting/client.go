// Package hosting registers custom domains with Firebase Hosting so the
// platform site can serve them once DNS and TLS are in place.
package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// DefaultBaseURL is the Firebase Hosting REST root.
	DefaultBaseURL = "https://firebasehosting.googleapis.com/v1beta1"

	// Scope is the OAuth2 scope requested for the service account.
	Scope = "https://www.googleapis.com/auth/cloud-platform"
)

// Config identifies the Hosting site custom domains are attached to.
type Config struct {
	BaseURL   string
	ProjectID string
	SiteID    string
	Timeout   time.Duration
}

// Client calls the Firebase Hosting custom domain API.
type Client struct {
	baseURL string
	project string
	site    string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Client that authenticates every request with tokens
// from ts. A nil ts sends unauthenticated requests. A zero Timeout defaults
// to 60 seconds.
func NewClient(ctx context.Context, cfg Config, ts oauth2.TokenSource, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	var hc *http.Client
	if ts != nil {
		hc = oauth2.NewClient(ctx, ts)
	} else if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil {
		copied := *c
		hc = &copied
	} else {
		hc = &http.Client{}
	}
	hc.Timeout = cfg.Timeout

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		project: cfg.ProjectID,
		site:    cfg.SiteID,
		http:    hc,
		logger:  logger,
	}
}

// NewClientFromCredentialsFile builds a Client from a service-account JSON key.
// An empty path falls back to Application Default Credentials. When the
// project or site is not configured no credentials are loaded and the
// returned client skips every call.
func NewClientFromCredentialsFile(ctx context.Context, cfg Config, path string, logger *zap.Logger) (*Client, error) {
	if cfg.ProjectID == "" || cfg.SiteID == "" {
		return NewClient(ctx, cfg, nil, logger), nil
	}

	var (
		creds *google.Credentials
		err   error
	)
	if path != "" {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read hosting credentials: %w", readErr)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, Scope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, Scope)
	}
	if err != nil {
		return nil, fmt.Errorf("load hosting credentials: %w", err)
	}
	return NewClient(ctx, cfg, creds.TokenSource, logger), nil
}

// Configured reports whether a project and site are set.
func (c *Client) Configured() bool {
	return c.project != "" && c.site != ""
}

func (c *Client) sitePath(rest ...string) string {
	p := "/projects/" + url.PathEscape(c.project) + "/sites/" + url.PathEscape(c.site)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

// do sends one request and returns the raw response body on 2xx.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hosting %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read hosting response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Status = eb.Error.Status
			apiErr.Message = eb.Error.Message
		}
		return nil, apiErr
	}
	return raw, nil
}
