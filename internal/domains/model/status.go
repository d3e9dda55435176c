package model

// DeriveStatus maps the DNS provider's raw SSL and hostname statuses onto
// DomainStatus. It is recomputed on every reconciliation pass.
func DeriveStatus(sslStatus, hostnameStatus string) DomainStatus {
	switch {
	case sslStatus == ProviderStatusActive && hostnameStatus == ProviderStatusActive:
		return DomainStatusActive
	case sslStatus == ProviderStatusValidationTimedOut:
		return DomainStatusError
	default:
		return DomainStatusPending
	}
}
