package cloudflare

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Zone is the subset of a Cloudflare zone object used here.
type Zone struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// RootDomain returns the last two labels of domain ("www.example.com" →
// "example.com"). Domains with two or fewer labels are returned unchanged.
func RootDomain(domain string) string {
	labels := strings.Split(strings.TrimSuffix(domain, "."), ".")
	if len(labels) <= 2 {
		return strings.Join(labels, ".")
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// FindZoneForDomain returns the id of the zone named exactly domain or, for
// subdomains, its two-label root. It returns ("", nil) when the account holds
// no such zone, which is expected for domains managed elsewhere.
func (c *Client) FindZoneForDomain(ctx context.Context, domain string) (string, error) {
	candidates := []string{domain}
	if root := RootDomain(domain); root != domain {
		candidates = append(candidates, root)
	}

	for _, name := range candidates {
		var zones []Zone
		if err := c.do(ctx, http.MethodGet, "/zones", url.Values{"name": {name}}, nil, &zones); err != nil {
			return "", fmt.Errorf("look up zone %s: %w", name, err)
		}
		for _, z := range zones {
			if strings.EqualFold(z.Name, name) {
				return z.ID, nil
			}
		}
	}
	return "", nil
}
