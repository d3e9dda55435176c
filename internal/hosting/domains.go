package hosting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jmerrifield20/realtyhost/internal/outcome"
	"go.uber.org/zap"
)

// Record is a DNS record Hosting asks the domain owner to publish.
type Record struct {
	Type  string
	Name  string
	Value string
}

// Registration is the registrar's view of a custom domain.
type Registration struct {
	// Name is the resource name, projects/{p}/sites/{s}/customDomains/{d}.
	Name           string
	Domain         string
	HostState      string
	OwnershipState string
	// Operation is set when the response was a long-running operation.
	Operation string
	// Ownership is the TXT proof of domain ownership, when Hosting issued one.
	Ownership *Record
	// Required lists every record Hosting wants published.
	Required []Record
}

type customDomain struct {
	Name                  string                 `json:"name"`
	HostState             string                 `json:"hostState"`
	OwnershipState        string                 `json:"ownershipState"`
	RequiredDNSUpdates    *dnsUpdates            `json:"requiredDnsUpdates"`
	OwnershipVerification *ownershipVerification `json:"ownershipVerification"`
}

type dnsUpdates struct {
	Desired []dnsRecordSet `json:"desired"`
}

type dnsRecordSet struct {
	DomainName string      `json:"domainName"`
	Records    []dnsRecord `json:"records"`
}

type dnsRecord struct {
	DomainName     string `json:"domainName"`
	Type           string `json:"type"`
	RData          string `json:"rdata"`
	RequiredAction string `json:"requiredAction"`
}

type ownershipVerification struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Response json.RawMessage `json:"response"`
}

// AddDomain creates domain under the configured site. An existing domain
// is fetched instead so its verification data is not lost. Every failure
// is logged and reported as a skip.
func (c *Client) AddDomain(ctx context.Context, domain string) outcome.Outcome[Registration] {
	if !c.Configured() {
		return outcome.Skipped[Registration]("hosting registrar not configured")
	}

	q := url.Values{"customDomainId": {domain}}
	raw, err := c.do(ctx, http.MethodPost, c.sitePath("customDomains"), q, struct{}{})
	if err == nil {
		reg, parseErr := parseRegistration(raw, domain)
		if parseErr != nil {
			c.logger.Warn("hosting response not understood",
				zap.String("domain", domain),
				zap.Error(parseErr),
			)
			return outcome.Skipped[Registration](parseErr.Error())
		}
		c.logger.Info("hosting custom domain added",
			zap.String("domain", domain),
			zap.Bool("ownership_record", reg.Ownership != nil),
		)
		return outcome.OK(reg)
	}

	if errors.Is(err, ErrConflict) {
		reg, getErr := c.GetDomain(ctx, domain)
		if getErr != nil {
			c.logger.Warn("hosting custom domain exists but could not be fetched",
				zap.String("domain", domain),
				zap.Error(getErr),
			)
			return outcome.Skipped[Registration]("domain exists but could not be fetched: " + getErr.Error())
		}
		c.logger.Info("hosting custom domain already exists, reusing", zap.String("domain", domain))
		return outcome.OK(*reg)
	}

	c.logger.Warn("hosting custom domain add failed",
		zap.String("domain", domain),
		zap.Error(err),
	)
	return outcome.Skipped[Registration](err.Error())
}

// GetDomain fetches the current state of domain.
func (c *Client) GetDomain(ctx context.Context, domain string) (*Registration, error) {
	if !c.Configured() {
		return nil, errors.New("hosting registrar not configured")
	}
	raw, err := c.do(ctx, http.MethodGet, c.sitePath("customDomains", domain), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get custom domain %s: %w", domain, err)
	}
	reg, err := parseRegistration(raw, domain)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// parseRegistration accepts either a CustomDomain or an Operation wrapping one.
func parseRegistration(raw []byte, domain string) (Registration, error) {
	var op operation
	if err := json.Unmarshal(raw, &op); err != nil {
		return Registration{}, fmt.Errorf("decode hosting response: %w", err)
	}

	body := raw
	reg := Registration{Domain: domain}
	if strings.Contains(op.Name, "/operations/") {
		reg.Operation = op.Name
		body = op.Response
	}
	if len(body) == 0 || string(body) == "null" {
		return reg, nil
	}

	var cd customDomain
	if err := json.Unmarshal(body, &cd); err != nil {
		return Registration{}, fmt.Errorf("decode custom domain: %w", err)
	}
	reg.Name = cd.Name
	reg.HostState = cd.HostState
	reg.OwnershipState = cd.OwnershipState

	if cd.RequiredDNSUpdates != nil {
		for _, set := range cd.RequiredDNSUpdates.Desired {
			for _, r := range set.Records {
				name := r.DomainName
				if name == "" {
					name = set.DomainName
				}
				rec := Record{Type: strings.ToUpper(r.Type), Name: strings.TrimSuffix(name, "."), Value: r.RData}
				reg.Required = append(reg.Required, rec)
				if reg.Ownership == nil && rec.Type == "TXT" {
					own := rec
					reg.Ownership = &own
				}
			}
		}
	}
	if reg.Ownership == nil && cd.OwnershipVerification != nil && cd.OwnershipVerification.Value != "" {
		typ := strings.ToUpper(cd.OwnershipVerification.Type)
		if typ == "" {
			typ = "TXT"
		}
		reg.Ownership = &Record{Type: typ, Name: cd.OwnershipVerification.Name, Value: cd.OwnershipVerification.Value}
	}
	return reg, nil
}
