package client

import "time"

// Domain status values.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusError   = "error"
)

// ValidationRecord is a DNS record the domain owner must publish.
type ValidationRecord struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DomainRecord is the stored custom-domain state of a tenant.
type DomainRecord struct {
	Domain               string             `json:"domain"`
	Status               string             `json:"status"`
	ProviderHostnameID   string             `json:"providerHostnameId,omitempty"`
	HostnameStatus       string             `json:"hostnameStatus,omitempty"`
	SSLStatus            string             `json:"sslStatus,omitempty"`
	SSLValidationRecords []ValidationRecord `json:"sslValidationRecords,omitempty"`
	VerificationRecord   *ValidationRecord  `json:"verificationRecord,omitempty"`
	FirebaseVerification *ValidationRecord  `json:"firebaseVerification,omitempty"`
	VerificationStart    time.Time          `json:"verificationStart"`
}

// StatusDetails is the provider-side detail of a status check.
type StatusDetails struct {
	Domain             string             `json:"domain"`
	HostnameStatus     string             `json:"hostnameStatus"`
	SSLStatus          string             `json:"sslStatus"`
	ValidationRecords  []ValidationRecord `json:"validationRecords"`
	ValidationErrors   []string           `json:"validationErrors,omitempty"`
	VerificationErrors []string           `json:"verificationErrors,omitempty"`
	VerificationRecord *ValidationRecord  `json:"verificationRecord,omitempty"`
}

// StatusResult is returned by Status.
type StatusResult struct {
	Status  string        `json:"status"`
	Details StatusDetails `json:"details"`
}

// Resolution maps a serving host to its tenant.
type Resolution struct {
	TenantID string `json:"tenant_id"`
	Domain   string `json:"domain"`
	Status   string `json:"status"`
}
