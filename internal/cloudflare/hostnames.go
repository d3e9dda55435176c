package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// CustomHostname is a Cloudflare for SaaS custom hostname.
type CustomHostname struct {
	ID                    string                 `json:"id"`
	Hostname              string                 `json:"hostname"`
	Status                string                 `json:"status"`
	SSL                   HostnameSSL            `json:"ssl"`
	OwnershipVerification *OwnershipVerification `json:"ownership_verification,omitempty"`
	VerificationErrors    []string               `json:"verification_errors,omitempty"`
}

// HostnameSSL is the certificate state of a custom hostname.
type HostnameSSL struct {
	ID                string             `json:"id,omitempty"`
	Status            string             `json:"status"`
	Method            string             `json:"method,omitempty"`
	Type              string             `json:"type,omitempty"`
	TXTName           string             `json:"txt_name,omitempty"`
	TXTValue          string             `json:"txt_value,omitempty"`
	ValidationRecords []ValidationRecord `json:"validation_records,omitempty"`
	ValidationErrors  []ValidationError  `json:"validation_errors,omitempty"`
}

// ValidationRecord is one DCV record. Only the fields for the chosen
// validation method are populated.
type ValidationRecord struct {
	TXTName     string `json:"txt_name,omitempty"`
	TXTValue    string `json:"txt_value,omitempty"`
	CNAME       string `json:"cname,omitempty"`
	CNAMETarget string `json:"cname_target,omitempty"`
	HTTPURL     string `json:"http_url,omitempty"`
	HTTPBody    string `json:"http_body,omitempty"`
}

// ValidationError is a message Cloudflare attaches to a failing validation.
type ValidationError struct {
	Message string `json:"message"`
}

// OwnershipVerification is the TXT record proving hostname ownership.
type OwnershipVerification struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type customHostnameRequest struct {
	Hostname string            `json:"hostname"`
	SSL      customHostnameSSL `json:"ssl"`
}

type customHostnameSSL struct {
	Method   string            `json:"method"`
	Type     string            `json:"type"`
	Settings map[string]string `json:"settings"`
}

// CreateCustomHostname registers hostname on zoneID for DV certificate
// issuance validated over TXT, with HTTP/2 on and a TLS 1.2 floor.
// A duplicate hostname is recovered by fetching the existing object; if
// that fails the error wraps ErrConflictUnresolved. Any other error is
// returned as-is.
func (c *Client) CreateCustomHostname(ctx context.Context, zoneID, hostname string) (*CustomHostname, error) {
	body := customHostnameRequest{
		Hostname: hostname,
		SSL: customHostnameSSL{
			Method: "txt",
			Type:   "dv",
			Settings: map[string]string{
				"http2":           "on",
				"min_tls_version": "1.2",
			},
		},
	}

	var ch CustomHostname
	err := c.do(ctx, http.MethodPost, zonePath(zoneID, "custom_hostnames"), nil, body, &ch)
	if err == nil {
		c.logger.Info("custom hostname created",
			zap.String("hostname", hostname),
			zap.String("hostname_id", ch.ID),
			zap.String("ssl_status", ch.SSL.Status),
		)
		return &ch, nil
	}

	if !errors.Is(err, ErrConflict) {
		return nil, fmt.Errorf("create custom hostname %s: %w", hostname, err)
	}

	existing, lookupErr := c.findCustomHostname(ctx, zoneID, hostname)
	if lookupErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConflictUnresolved, hostname, lookupErr)
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %s not listed on zone", ErrConflictUnresolved, hostname)
	}
	c.logger.Info("custom hostname already exists, reusing",
		zap.String("hostname", hostname),
		zap.String("hostname_id", existing.ID),
	)
	return existing, nil
}

func (c *Client) findCustomHostname(ctx context.Context, zoneID, hostname string) (*CustomHostname, error) {
	var list []CustomHostname
	q := url.Values{"hostname": {hostname}}
	if err := c.do(ctx, http.MethodGet, zonePath(zoneID, "custom_hostnames"), q, nil, &list); err != nil {
		return nil, fmt.Errorf("list custom hostnames: %w", err)
	}
	for i := range list {
		if strings.EqualFold(list[i].Hostname, hostname) {
			return &list[i], nil
		}
	}
	return nil, nil
}

// GetCustomHostname fetches the current hostname and SSL status.
func (c *Client) GetCustomHostname(ctx context.Context, zoneID, hostnameID string) (*CustomHostname, error) {
	var ch CustomHostname
	if err := c.do(ctx, http.MethodGet, zonePath(zoneID, "custom_hostnames", hostnameID), nil, nil, &ch); err != nil {
		return nil, fmt.Errorf("get custom hostname %s: %w", hostnameID, err)
	}
	return &ch, nil
}

// DeleteCustomHostname removes a custom hostname. Failures, including a
// hostname that is already gone, are logged and otherwise ignored.
func (c *Client) DeleteCustomHostname(ctx context.Context, zoneID, hostnameID string) {
	err := c.do(ctx, http.MethodDelete, zonePath(zoneID, "custom_hostnames", hostnameID), nil, nil, nil)
	switch {
	case err == nil:
		c.logger.Info("custom hostname deleted", zap.String("hostname_id", hostnameID))
	case errors.Is(err, ErrNotFound):
		c.logger.Info("custom hostname already absent", zap.String("hostname_id", hostnameID))
	default:
		c.logger.Warn("custom hostname delete failed",
			zap.String("hostname_id", hostnameID),
			zap.Error(err),
		)
	}
}
