package model

import (
	"time"
)

// DomainStatus is the overall servability state of a tenant's custom domain.
type DomainStatus string

const (
	DomainStatusPending DomainStatus = "pending"
	DomainStatusActive  DomainStatus = "active"
	DomainStatusError   DomainStatus = "error"
)

// Raw status strings reported by the DNS provider that drive DomainStatus.
const (
	ProviderStatusActive             = "active"
	ProviderStatusValidationTimedOut = "validation_timed_out"
)

// ValidationRecord is a DNS record the domain owner must publish.
// It is passed through to the UI unchanged.
type ValidationRecord struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DomainRecord is the custom-domain state embedded in a tenant document.
// A tenant holds at most one; provisioning overwrites it wholesale.
type DomainRecord struct {
	Domain               string             `json:"domain"`
	Status               DomainStatus       `json:"status"`
	ProviderHostnameID   string             `json:"providerHostnameId"`
	HostnameStatus       string             `json:"hostnameStatus"`
	SSLStatus            string             `json:"sslStatus"`
	SSLValidationRecords []ValidationRecord `json:"sslValidationRecords"`
	VerificationRecord   *ValidationRecord  `json:"verificationRecord"`
	FirebaseVerification *ValidationRecord  `json:"firebaseVerification"`
	// VerificationStart is set once at provisioning time.
	VerificationStart time.Time `json:"verificationStart"`
}

// Reconcilable reports whether the record carries a provider hostname id,
// which is required for status polling and teardown.
func (d *DomainRecord) Reconcilable() bool {
	return d != nil && d.ProviderHostnameID != ""
}

// Tenant is the slice of the tenant document this service reads and writes.
type Tenant struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CustomDomain *DomainRecord `json:"customDomain,omitempty"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// PendingDomain pairs a tenant id with the domain record awaiting activation.
type PendingDomain struct {
	TenantID string
	Record   DomainRecord
}
