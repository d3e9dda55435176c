package service

import (
	"context"
	"slices"
	"strings"

	"github.com/jmerrifield20/realtyhost/internal/cloudflare"
	"github.com/jmerrifield20/realtyhost/internal/domains/model"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
)

// StatusDetails is the provider-side detail returned with a status check.
type StatusDetails struct {
	Domain             string                   `json:"domain"`
	HostnameStatus     string                   `json:"hostnameStatus"`
	SSLStatus          string                   `json:"sslStatus"`
	ValidationRecords  []model.ValidationRecord `json:"validationRecords"`
	ValidationErrors   []string                 `json:"validationErrors,omitempty"`
	VerificationErrors []string                 `json:"verificationErrors,omitempty"`
	VerificationRecord *model.ValidationRecord  `json:"verificationRecord,omitempty"`
}

// StatusResult is the outcome of CheckStatus.
type StatusResult struct {
	Status  model.DomainStatus `json:"status"`
	Details StatusDetails      `json:"details"`
	// Changed reports whether the stored record was updated.
	Changed bool `json:"-"`
}

// CheckStatus polls the DNS provider for the tenant's custom hostname and
// recomputes the domain status. The stored record is only written when the
// fetched state differs, and is never touched when the provider call fails.
func (p *Provisioner) CheckStatus(ctx context.Context, tenantID string) (*StatusResult, error) {
	const op = "check status"

	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, newError(codes.InvalidArgument, op, "tenantId is required")
	}

	tenant, err := p.store.Get(ctx, tenantID)
	if err != nil {
		return nil, storeError(op, err)
	}
	stored := tenant.CustomDomain
	if !stored.Reconcilable() {
		return nil, newError(codes.NotFound, op, "tenant has no pending custom domain")
	}
	if !p.cfg.APIConfigured || p.cfg.SystemZoneID == "" {
		return nil, newError(codes.FailedPrecondition, op, "DNS provider credentials are not configured")
	}

	ch, err := p.dns.GetCustomHostname(ctx, p.cfg.SystemZoneID, stored.ProviderHostnameID)
	if err != nil {
		return nil, upstreamError(codes.Internal, op, "custom hostname status lookup failed: "+providerMessage(err), err)
	}

	next := applyHostname(*stored, ch)
	changed := recordChanged(stored, &next)
	if changed {
		if err := p.store.SetCustomDomain(ctx, tenantID, &next); err != nil {
			return nil, storeError(op, err)
		}
		if next.Status != stored.Status {
			p.hosts.invalidate(next.Domain)
			p.logger.Info("custom domain status changed",
				zap.String("tenant_id", tenantID),
				zap.String("domain", next.Domain),
				zap.String("from", string(stored.Status)),
				zap.String("to", string(next.Status)),
			)
		}
	}

	return &StatusResult{
		Status: next.Status,
		Details: StatusDetails{
			Domain:             next.Domain,
			HostnameStatus:     next.HostnameStatus,
			SSLStatus:          next.SSLStatus,
			ValidationRecords:  next.SSLValidationRecords,
			ValidationErrors:   validationMessages(ch.SSL.ValidationErrors),
			VerificationErrors: ch.VerificationErrors,
			VerificationRecord: next.VerificationRecord,
		},
		Changed: changed,
	}, nil
}

// applyHostname folds freshly fetched provider state into rec. Validation
// records are kept when the provider no longer reports any, which happens
// once the certificate is issued.
func applyHostname(rec model.DomainRecord, ch *cloudflare.CustomHostname) model.DomainRecord {
	rec.HostnameStatus = ch.Status
	rec.SSLStatus = ch.SSL.Status
	rec.Status = model.DeriveStatus(ch.SSL.Status, ch.Status)
	if fresh := sslValidationRecords(ch.SSL); len(fresh) > 0 {
		rec.SSLValidationRecords = fresh
	}
	if v := pickVerificationRecord(ch, rec.FirebaseVerification, rec.SSLValidationRecords); v != nil {
		rec.VerificationRecord = v
	}
	return rec
}

func recordChanged(a, b *model.DomainRecord) bool {
	if a.Status != b.Status || a.HostnameStatus != b.HostnameStatus || a.SSLStatus != b.SSLStatus {
		return true
	}
	if !slices.Equal(a.SSLValidationRecords, b.SSLValidationRecords) {
		return true
	}
	switch {
	case a.VerificationRecord == nil && b.VerificationRecord == nil:
		return false
	case a.VerificationRecord == nil || b.VerificationRecord == nil:
		return true
	}
	return *a.VerificationRecord != *b.VerificationRecord
}

func validationMessages(errs []cloudflare.ValidationError) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Message)
	}
	return out
}
