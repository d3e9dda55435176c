package main

import (
	"testing"
	"time"

	"github.com/jmerrifield20/realtyhost/internal/domains/model"
)

func TestSeedTenants_DomainsAreConsistent(t *testing.T) {
	seen := map[string]bool{}
	for _, st := range seedTenants(time.Now()) {
		if seen[st.ID] {
			t.Errorf("duplicate tenant id %s", st.ID)
		}
		seen[st.ID] = true

		rec := st.Domain
		if rec == nil {
			continue
		}
		if got := model.DeriveStatus(rec.SSLStatus, rec.HostnameStatus); got != rec.Status {
			t.Errorf("%s: status %s does not match derived %s", st.ID, rec.Status, got)
		}
		if !rec.Reconcilable() && rec.Status == model.DomainStatusPending {
			t.Errorf("%s: pending seed domain must be reconcilable", st.ID)
		}
	}
}
