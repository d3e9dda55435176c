// Package service orchestrates custom-domain provisioning across the DNS
// provider and the hosting registrar and keeps the tenant's record current.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmerrifield20/realtyhost/internal/cloudflare"
	"github.com/jmerrifield20/realtyhost/internal/domains/model"
	"github.com/jmerrifield20/realtyhost/internal/domains/repository"
	"github.com/jmerrifield20/realtyhost/internal/hosting"
	"github.com/jmerrifield20/realtyhost/internal/outcome"
	"go.uber.org/zap"
	"golang.org/x/net/idna"
	"google.golang.org/grpc/codes"
)

// tenantStore is the storage interface required by Provisioner.
// *repository.TenantRepository satisfies this interface.
type tenantStore interface {
	Get(ctx context.Context, tenantID string) (*model.Tenant, error)
	SetCustomDomain(ctx context.Context, tenantID string, rec *model.DomainRecord) error
	ClearCustomDomain(ctx context.Context, tenantID string) error
	FindByDomain(ctx context.Context, domain string) (*model.Tenant, error)
}

// dnsProvider is the DNS/edge API. *cloudflare.Client satisfies it.
type dnsProvider interface {
	FindZoneForDomain(ctx context.Context, domain string) (string, error)
	CreateCNAME(ctx context.Context, zoneID, name, target string) outcome.Outcome[cloudflare.DNSRecord]
	CreateCustomHostname(ctx context.Context, zoneID, hostname string) (*cloudflare.CustomHostname, error)
	GetCustomHostname(ctx context.Context, zoneID, hostnameID string) (*cloudflare.CustomHostname, error)
	DeleteCustomHostname(ctx context.Context, zoneID, hostnameID string)
}

// registrar is the hosting domain API. *hosting.Client satisfies it.
type registrar interface {
	AddDomain(ctx context.Context, domain string) outcome.Outcome[hosting.Registration]
}

// Config carries the provider settings the operations depend on.
type Config struct {
	// SystemZoneID is the platform's own zone that custom hostnames live on.
	SystemZoneID string
	// PlatformBaseDomain is the suffix of the per-tenant fallback origin
	// that tenant CNAMEs point at. Empty disables CNAME creation.
	PlatformBaseDomain string
	// APIConfigured reports whether a DNS provider token is present.
	APIConfigured bool
	// HostCacheTTL bounds how long ResolveHost results are reused.
	HostCacheTTL time.Duration
}

// Provisioner drives provisioning, status reconciliation and teardown of
// tenant custom domains.
type Provisioner struct {
	store     tenantStore
	dns       dnsProvider
	registrar registrar
	cfg       Config
	hosts     *hostCache
	now       func() time.Time
	logger    *zap.Logger
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(store tenantStore, dns dnsProvider, reg registrar, cfg Config, logger *zap.Logger) *Provisioner {
	return &Provisioner{
		store:     store,
		dns:       dns,
		registrar: reg,
		cfg:       cfg,
		hosts:     newHostCache(cfg.HostCacheTTL),
		now:       time.Now,
		logger:    logger,
	}
}

// NormalizeDomain trims, lower-cases and strips a trailing dot.
func NormalizeDomain(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// ToASCII converts an internationalized domain to its punycode form.
// ASCII input passes through unchanged.
func ToASCII(domain string) (string, error) {
	return idna.Lookup.ToASCII(domain)
}

// FallbackOrigin is the CNAME target for a tenant's custom domain. The
// tenant id becomes the leftmost label, lower-cased.
func FallbackOrigin(tenantID, baseDomain string) string {
	return strings.ToLower(tenantID) + "." + strings.TrimPrefix(baseDomain, ".")
}

// Provision attaches domain to the tenant. The custom hostname on the
// system zone is the only required step; CNAME creation and hosting
// registration degrade to log entries. A nil record with a nil error means
// the provider returned nothing to persist.
func (p *Provisioner) Provision(ctx context.Context, tenantID, domain string) (*model.DomainRecord, error) {
	const op = "provision"

	tenantID = strings.TrimSpace(tenantID)
	domain = NormalizeDomain(domain)
	if tenantID == "" {
		return nil, newError(codes.InvalidArgument, op, "tenantId is required")
	}
	if domain == "" {
		return nil, newError(codes.InvalidArgument, op, "domain is required")
	}
	ascii, err := ToASCII(domain)
	if err != nil {
		return nil, wrapError(codes.InvalidArgument, op, "domain is not a valid hostname; internationalized names must convert to punycode", err)
	}
	domain = ascii
	if err := validateDomain(domain); err != nil {
		return nil, wrapError(codes.InvalidArgument, op, "domain is not a valid hostname", err)
	}
	if !p.cfg.APIConfigured || p.cfg.SystemZoneID == "" {
		return nil, newError(codes.FailedPrecondition, op, "DNS provider credentials are not configured")
	}

	tenant, err := p.store.Get(ctx, tenantID)
	if err != nil {
		return nil, storeError(op, err)
	}

	log := p.logger.With(zap.String("tenant_id", tenantID), zap.String("domain", domain))

	// 1. CNAME in the tenant's own zone, when this account holds it.
	if cname := p.linkZone(ctx, tenantID, domain); cname.Skipped() {
		log.Info("CNAME step skipped", zap.String("reason", cname.Reason()))
	}

	// 2. Hosting registration.
	reg := p.registrar.AddDomain(ctx, domain)
	registration, registered := reg.Value()
	if !registered {
		log.Warn("hosting registration skipped", zap.String("reason", reg.Reason()))
	}

	// 3. Custom hostname on the system zone.
	ch, err := p.dns.CreateCustomHostname(ctx, p.cfg.SystemZoneID, domain)
	if err != nil {
		if errors.Is(err, cloudflare.ErrConflictUnresolved) {
			return nil, upstreamError(codes.Aborted, op, "custom hostname already exists but could not be retrieved", err)
		}
		return nil, upstreamError(codes.Internal, op, "custom hostname registration failed: "+providerMessage(err), err)
	}
	if ch == nil {
		log.Warn("custom hostname step returned no result, nothing persisted")
		return nil, nil
	}

	// 4. Merge.
	rec := &model.DomainRecord{
		Domain:               domain,
		Status:               model.DomainStatusPending,
		ProviderHostnameID:   ch.ID,
		HostnameStatus:       ch.Status,
		SSLStatus:            ch.SSL.Status,
		SSLValidationRecords: sslValidationRecords(ch.SSL),
		VerificationStart:    p.now().UTC(),
	}
	if registered && registration.Ownership != nil {
		rec.FirebaseVerification = &model.ValidationRecord{
			Type:  registration.Ownership.Type,
			Name:  registration.Ownership.Name,
			Value: registration.Ownership.Value,
		}
	}
	rec.VerificationRecord = pickVerificationRecord(ch, rec.FirebaseVerification, rec.SSLValidationRecords)

	// 5. Persist, replacing any previous record.
	if err := p.store.SetCustomDomain(ctx, tenantID, rec); err != nil {
		return nil, storeError(op, err)
	}

	stale := []string{domain}
	if tenant.CustomDomain != nil && tenant.CustomDomain.Domain != domain {
		stale = append(stale, tenant.CustomDomain.Domain)
	}
	p.hosts.invalidate(stale...)

	// The previous hostname is no longer referenced by any record.
	if old := tenant.CustomDomain; old.Reconcilable() && old.ProviderHostnameID != rec.ProviderHostnameID {
		p.dns.DeleteCustomHostname(ctx, p.cfg.SystemZoneID, old.ProviderHostnameID)
		log.Info("released previous custom hostname",
			zap.String("previous_domain", old.Domain),
			zap.String("previous_hostname_id", old.ProviderHostnameID),
		)
	}

	log.Info("custom domain provisioned",
		zap.String("hostname_id", rec.ProviderHostnameID),
		zap.String("ssl_status", rec.SSLStatus),
		zap.Bool("hosting_verification", rec.FirebaseVerification != nil),
	)
	return rec, nil
}

// linkZone looks up the tenant domain's zone and points it at the tenant's
// fallback origin.
func (p *Provisioner) linkZone(ctx context.Context, tenantID, domain string) outcome.Outcome[cloudflare.DNSRecord] {
	if p.cfg.PlatformBaseDomain == "" {
		return outcome.Skipped[cloudflare.DNSRecord]("platform base domain not configured")
	}
	zoneID, err := p.dns.FindZoneForDomain(ctx, domain)
	if err != nil {
		p.logger.Warn("zone lookup failed",
			zap.String("tenant_id", tenantID),
			zap.String("domain", domain),
			zap.Error(err),
		)
		return outcome.Skipped[cloudflare.DNSRecord]("zone lookup failed: " + err.Error())
	}
	if zoneID == "" {
		return outcome.Skipped[cloudflare.DNSRecord]("no zone for " + domain + " in this account")
	}
	if err := validateLabel(strings.ToLower(tenantID)); err != nil {
		p.logger.Warn("tenant id is not a DNS label, CNAME target would not match the fallback origin",
			zap.String("tenant_id", tenantID),
			zap.String("domain", domain),
			zap.Error(err),
		)
		return outcome.Skipped[cloudflare.DNSRecord]("tenant id is not a valid DNS label")
	}
	return p.dns.CreateCNAME(ctx, zoneID, domain, FallbackOrigin(tenantID, p.cfg.PlatformBaseDomain))
}

// sslValidationRecords flattens the provider's DCV records.
func sslValidationRecords(ssl cloudflare.HostnameSSL) []model.ValidationRecord {
	out := []model.ValidationRecord{}
	for _, r := range ssl.ValidationRecords {
		switch {
		case r.TXTName != "":
			out = append(out, model.ValidationRecord{Type: "TXT", Name: r.TXTName, Value: r.TXTValue})
		case r.CNAME != "":
			out = append(out, model.ValidationRecord{Type: "CNAME", Name: r.CNAME, Value: r.CNAMETarget})
		case r.HTTPURL != "":
			out = append(out, model.ValidationRecord{Type: "HTTP", Name: r.HTTPURL, Value: r.HTTPBody})
		}
	}
	if len(out) == 0 && ssl.TXTName != "" {
		out = append(out, model.ValidationRecord{Type: "TXT", Name: ssl.TXTName, Value: ssl.TXTValue})
	}
	return out
}

// pickVerificationRecord chooses the record the tenant should publish first:
// the DNS provider's ownership TXT, then the hosting ownership record, then
// the first certificate validation record.
func pickVerificationRecord(ch *cloudflare.CustomHostname, hostingOwnership *model.ValidationRecord, ssl []model.ValidationRecord) *model.ValidationRecord {
	if ov := ch.OwnershipVerification; ov != nil && ov.Name != "" {
		return &model.ValidationRecord{Type: strings.ToUpper(ov.Type), Name: ov.Name, Value: ov.Value}
	}
	if hostingOwnership != nil {
		cp := *hostingOwnership
		return &cp
	}
	if len(ssl) > 0 {
		cp := ssl[0]
		return &cp
	}
	return nil
}

func validateDomain(domain string) error {
	if len(domain) > 253 {
		return fmt.Errorf("longer than 253 characters")
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return fmt.Errorf("%q has no parent domain", domain)
	}
	for _, l := range labels {
		if err := validateLabel(l); err != nil {
			return err
		}
	}
	return nil
}

func validateLabel(l string) error {
	if l == "" || len(l) > 63 {
		return fmt.Errorf("label %q has invalid length", l)
	}
	if l[0] == '-' || l[len(l)-1] == '-' {
		return fmt.Errorf("label %q starts or ends with a hyphen", l)
	}
	for _, r := range l {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return fmt.Errorf("label %q contains %q", l, r)
		}
	}
	return nil
}

// providerMessage extracts the human-readable provider message.
func providerMessage(err error) string {
	var apiErr *cloudflare.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	return err.Error()
}

func storeError(op string, err error) *Error {
	if errors.Is(err, repository.ErrTenantNotFound) {
		return wrapError(codes.NotFound, op, "tenant not found", err)
	}
	return wrapError(codes.Internal, op, "tenant store failure", err)
}
