package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmerrifield20/realtyhost/internal/cloudflare"
	"github.com/jmerrifield20/realtyhost/internal/domains/model"
	"github.com/jmerrifield20/realtyhost/internal/domains/repository"
	"github.com/jmerrifield20/realtyhost/internal/hosting"
	"github.com/jmerrifield20/realtyhost/internal/outcome"
)

// ── In-memory tenant store ────────────────────────────────────────────────

type stubTenantStore struct {
	mu      sync.RWMutex
	tenants map[string]*model.Tenant
	writes  int
	setErr  error
	findHit int

	// afterFind runs once FindByDomain has read its result and released
	// the lock, before the result is returned.
	afterFind func()
}

func newStubStore(ids ...string) *stubTenantStore {
	s := &stubTenantStore{tenants: make(map[string]*model.Tenant)}
	for _, id := range ids {
		s.tenants[id] = &model.Tenant{ID: id, Name: id}
	}
	return s
}

func cloneRecord(rec *model.DomainRecord) *model.DomainRecord {
	if rec == nil {
		return nil
	}
	cp := *rec
	cp.SSLValidationRecords = append([]model.ValidationRecord(nil), rec.SSLValidationRecords...)
	if rec.VerificationRecord != nil {
		v := *rec.VerificationRecord
		cp.VerificationRecord = &v
	}
	if rec.FirebaseVerification != nil {
		v := *rec.FirebaseVerification
		cp.FirebaseVerification = &v
	}
	return &cp
}

func (s *stubTenantStore) Get(_ context.Context, id string) (*model.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, repository.ErrTenantNotFound
	}
	cp := *t
	cp.CustomDomain = cloneRecord(t.CustomDomain)
	return &cp, nil
}

func (s *stubTenantStore) SetCustomDomain(_ context.Context, id string, rec *model.DomainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	t, ok := s.tenants[id]
	if !ok {
		return repository.ErrTenantNotFound
	}
	t.CustomDomain = cloneRecord(rec)
	s.writes++
	return nil
}

func (s *stubTenantStore) ClearCustomDomain(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return repository.ErrTenantNotFound
	}
	t.CustomDomain = nil
	s.writes++
	return nil
}

func (s *stubTenantStore) FindByDomain(_ context.Context, domain string) (*model.Tenant, error) {
	found, hook := s.findLocked(domain)
	if hook != nil {
		hook()
	}
	if found == nil {
		return nil, repository.ErrTenantNotFound
	}
	return found, nil
}

func (s *stubTenantStore) findLocked(domain string) (*model.Tenant, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findHit++
	for _, t := range s.tenants {
		if t.CustomDomain != nil && t.CustomDomain.Domain == domain {
			cp := *t
			cp.CustomDomain = cloneRecord(t.CustomDomain)
			return &cp, s.afterFind
		}
	}
	return nil, s.afterFind
}

func (s *stubTenantStore) record(id string) *model.DomainRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[id]; ok {
		return cloneRecord(t.CustomDomain)
	}
	return nil
}

func (s *stubTenantStore) put(id string, rec *model.DomainRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[id] = &model.Tenant{ID: id, Name: id, CustomDomain: cloneRecord(rec)}
}

func (s *stubTenantStore) writeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// ── Fake DNS provider ─────────────────────────────────────────────────────

type fakeDNS struct {
	mu sync.Mutex

	zones   map[string]string
	zoneErr error
	cnames  map[string]cloudflare.DNSRecord

	hostnames map[string]*cloudflare.CustomHostname // by hostname
	nextID    int
	createErr error

	getResult *cloudflare.CustomHostname
	getErr    error

	deleteCalls []string
	createCalls int
	cnameCalls  int
	nilResult   bool
}

func newFakeDNS() *fakeDNS {
	return &fakeDNS{
		zones:     make(map[string]string),
		cnames:    make(map[string]cloudflare.DNSRecord),
		hostnames: make(map[string]*cloudflare.CustomHostname),
	}
}

func (f *fakeDNS) FindZoneForDomain(_ context.Context, domain string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.zoneErr != nil {
		return "", f.zoneErr
	}
	if id, ok := f.zones[domain]; ok {
		return id, nil
	}
	return f.zones[cloudflare.RootDomain(domain)], nil
}

func (f *fakeDNS) CreateCNAME(_ context.Context, zoneID, name, target string) outcome.Outcome[cloudflare.DNSRecord] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cnameCalls++
	if rec, ok := f.cnames[name]; ok {
		return outcome.OK(rec)
	}
	rec := cloudflare.DNSRecord{ID: fmt.Sprintf("R%d", len(f.cnames)+1), ZoneID: zoneID, Type: "CNAME", Name: name, Content: target, Proxied: true}
	f.cnames[name] = rec
	return outcome.OK(rec)
}

func (f *fakeDNS) CreateCustomHostname(_ context.Context, _, hostname string) (*cloudflare.CustomHostname, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.nilResult {
		return nil, nil
	}
	if ch, ok := f.hostnames[hostname]; ok {
		cp := *ch
		return &cp, nil
	}
	f.nextID++
	ch := &cloudflare.CustomHostname{
		ID:       fmt.Sprintf("H%d", f.nextID),
		Hostname: hostname,
		Status:   "pending",
		SSL: cloudflare.HostnameSSL{
			Status: "pending_validation",
			ValidationRecords: []cloudflare.ValidationRecord{
				{TXTName: "_acme-challenge." + hostname, TXTValue: "dcv-token"},
			},
		},
	}
	f.hostnames[hostname] = ch
	cp := *ch
	return &cp, nil
}

func (f *fakeDNS) GetCustomHostname(_ context.Context, _, id string) (*cloudflare.CustomHostname, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getResult != nil {
		cp := *f.getResult
		return &cp, nil
	}
	for _, ch := range f.hostnames {
		if ch.ID == id {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, &cloudflare.APIError{StatusCode: 404, Errors: []cloudflare.ErrorDetail{{Code: 1436, Message: "Custom hostname not found"}}}
}

func (f *fakeDNS) DeleteCustomHostname(_ context.Context, _, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, id)
}

func (f *fakeDNS) deletes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleteCalls...)
}

// ── Fake registrar ────────────────────────────────────────────────────────

type fakeRegistrar struct {
	mu     sync.Mutex
	result outcome.Outcome[hosting.Registration]
	calls  int
}

func (f *fakeRegistrar) AddDomain(_ context.Context, domain string) outcome.Outcome[hosting.Registration] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if reg, ok := f.result.Value(); ok {
		reg.Domain = domain
		return outcome.OK(reg)
	}
	return f.result
}

var errNetwork = errors.New("dial tcp: connection refused")
