package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jmerrifield20/realtyhost/internal/outcome"
	"go.uber.org/zap"
)

// DNSRecord is a Cloudflare DNS record.
type DNSRecord struct {
	ID      string `json:"id"`
	ZoneID  string `json:"zone_id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

type dnsRecordRequest struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// ttlAuto tells Cloudflare to manage the TTL.
const ttlAuto = 1

// CreateCNAME creates a proxied CNAME name → target with automatic TTL.
// An existing record for name is fetched and returned instead. Every other
// failure is logged and reported as a skip: the record is an enhancement,
// not a requirement for TLS setup.
func (c *Client) CreateCNAME(ctx context.Context, zoneID, name, target string) outcome.Outcome[DNSRecord] {
	body := dnsRecordRequest{
		Type:    "CNAME",
		Name:    name,
		Content: target,
		TTL:     ttlAuto,
		Proxied: true,
	}

	var rec DNSRecord
	err := c.do(ctx, http.MethodPost, zonePath(zoneID, "dns_records"), nil, body, &rec)
	if err == nil {
		c.logger.Info("CNAME created",
			zap.String("zone_id", zoneID),
			zap.String("name", name),
			zap.String("target", target),
			zap.String("record_id", rec.ID),
		)
		return outcome.OK(rec)
	}

	if errors.Is(err, ErrConflict) {
		existing, lookupErr := c.findDNSRecord(ctx, zoneID, name)
		if lookupErr == nil && existing != nil {
			c.logger.Info("CNAME already exists, reusing",
				zap.String("zone_id", zoneID),
				zap.String("name", name),
				zap.String("record_id", existing.ID),
				zap.String("content", existing.Content),
			)
			return outcome.OK(*existing)
		}
		c.logger.Warn("CNAME exists but could not be fetched",
			zap.String("zone_id", zoneID),
			zap.String("name", name),
			zap.Error(lookupErr),
		)
		return outcome.Skipped[DNSRecord]("record exists for " + name + " but could not be fetched")
	}

	c.logger.Warn("CNAME creation failed",
		zap.String("zone_id", zoneID),
		zap.String("name", name),
		zap.Error(err),
	)
	return outcome.Skipped[DNSRecord](err.Error())
}

// findDNSRecord returns the first record named name, or nil.
func (c *Client) findDNSRecord(ctx context.Context, zoneID, name string) (*DNSRecord, error) {
	var recs []DNSRecord
	q := url.Values{"name": {name}}
	if err := c.do(ctx, http.MethodGet, zonePath(zoneID, "dns_records"), q, nil, &recs); err != nil {
		return nil, fmt.Errorf("list dns records for %s: %w", name, err)
	}
	for i := range recs {
		if recs[i].Type == "CNAME" {
			return &recs[i], nil
		}
	}
	if len(recs) > 0 {
		return &recs[0], nil
	}
	return nil, nil
}
