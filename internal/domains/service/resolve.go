package service

import (
	"context"
	"net"
	"strings"

	"github.com/jmerrifield20/realtyhost/internal/domains/model"
	"google.golang.org/grpc/codes"
)

// Resolution maps a request host to the tenant that owns it.
type Resolution struct {
	TenantID string             `json:"tenant_id"`
	Domain   string             `json:"domain"`
	Status   model.DomainStatus `json:"status"`
}

// ResolveHost returns the tenant whose custom domain is host. host may carry
// a port. Results are cached for Config.HostCacheTTL.
func (p *Provisioner) ResolveHost(ctx context.Context, host string) (*Resolution, error) {
	const op = "resolve host"

	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = NormalizeDomain(host)
	if host == "" {
		return nil, newError(codes.InvalidArgument, op, "host is required")
	}
	if ascii, err := ToASCII(host); err == nil {
		host = ascii
	}

	if res, ok := p.hosts.get(host); ok {
		return &res, nil
	}
	gen := p.hosts.generation(host)

	tenant, err := p.store.FindByDomain(ctx, host)
	if err != nil {
		return nil, storeError(op, err)
	}
	if tenant.CustomDomain == nil {
		return nil, newError(codes.NotFound, op, "no tenant for host")
	}

	res := Resolution{
		TenantID: tenant.ID,
		Domain:   tenant.CustomDomain.Domain,
		Status:   tenant.CustomDomain.Status,
	}
	p.hosts.setIfCurrent(host, gen, res)
	return &res, nil
}

// PruneHostCache drops expired host lookups and returns how many were removed.
func (p *Provisioner) PruneHostCache() int {
	return p.hosts.evict()
}
