package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
)

// Deprovision removes the tenant's custom domain. The remote custom hostname
// is deleted on a best-effort basis; the stored record is cleared whether or
// not that succeeds.
func (p *Provisioner) Deprovision(ctx context.Context, tenantID string) error {
	const op = "deprovision"

	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return newError(codes.InvalidArgument, op, "tenantId is required")
	}

	tenant, err := p.store.Get(ctx, tenantID)
	if err != nil {
		return storeError(op, err)
	}

	rec := tenant.CustomDomain
	log := p.logger.With(zap.String("tenant_id", tenantID))
	switch {
	case !rec.Reconcilable():
		log.Debug("no custom hostname to delete")
	case !p.cfg.APIConfigured || p.cfg.SystemZoneID == "":
		log.Warn("DNS provider not configured, custom hostname left in place",
			zap.String("hostname_id", rec.ProviderHostnameID),
		)
	default:
		p.dns.DeleteCustomHostname(ctx, p.cfg.SystemZoneID, rec.ProviderHostnameID)
	}

	if err := p.store.ClearCustomDomain(ctx, tenantID); err != nil {
		return storeError(op, err)
	}
	if rec != nil {
		p.hosts.invalidate(rec.Domain)
		log.Info("custom domain removed", zap.String("domain", rec.Domain))
	}
	return nil
}
