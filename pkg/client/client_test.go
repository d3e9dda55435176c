package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmerrifield20/realtyhost/pkg/client"
)

// ── Stub server ─────────────────────────────────────────────────────────

func stubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	requireToken := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer op-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "operator token required", "code": "Unauthenticated"})
			return false
		}
		return true
	}

	mux.HandleFunc("POST /api/v1/tenants/{tenant}/domain", func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		var req struct {
			Domain string `json:"domain"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		switch r.PathValue("tenant") {
		case "tenant-accepted":
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
			return
		case "tenant-upstream":
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]string{"error": "custom hostname registration failed: quota", "code": "Internal"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"domain":             req.Domain,
			"status":             "pending",
			"providerHostnameId": "H1",
			"verificationRecord": map[string]string{"type": "TXT", "name": "_acme." + req.Domain, "value": "abc"},
		})
	})

	mux.HandleFunc("GET /api/v1/tenants/{tenant}/domain/status", func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		if r.PathValue("tenant") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "tenant not found", "code": "NotFound"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "active",
			"details": map[string]any{
				"domain":         "www.example.com",
				"hostnameStatus": "active",
				"sslStatus":      "active",
			},
		})
	})

	mux.HandleFunc("DELETE /api/v1/tenants/{tenant}/domain", func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/v1/resolve", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("resolve should not require a token")
		}
		host := r.URL.Query().Get("host")
		if host != "www.example.com" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "no tenant for host", "code": "NotFound"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"tenant_id": "tenant-42", "domain": host, "status": "active"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestNew_InvalidURL(t *testing.T) {
	for _, base := range []string{"", "not a url", "localhost:8080"} {
		if _, err := client.New(base); err == nil {
			t.Errorf("New(%q) expected error", base)
		}
	}
}

func TestProvision(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL, client.WithBearerToken("op-token"))

	rec, err := c.Provision(context.Background(), "tenant-42", "www.example.com")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if rec.Domain != "www.example.com" || rec.ProviderHostnameID != "H1" || rec.Status != client.StatusPending {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.VerificationRecord == nil || rec.VerificationRecord.Name != "_acme.www.example.com" {
		t.Errorf("verification record = %+v", rec.VerificationRecord)
	}
}

func TestProvision_Accepted(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL, client.WithBearerToken("op-token"))

	rec, err := c.Provision(context.Background(), "tenant-accepted", "www.example.com")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record for 202, got %+v", rec)
	}
}

func TestProvision_UpstreamError(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL, client.WithBearerToken("op-token"))

	_, err := c.Provision(context.Background(), "tenant-upstream", "www.example.com")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Code != client.CodeInternal || !apiErr.Upstream() {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestStatus(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL, client.WithBearerToken("op-token"))

	st, err := c.Status(context.Background(), "tenant-42")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Status != client.StatusActive || st.Details.SSLStatus != "active" {
		t.Errorf("unexpected status: %+v", st)
	}

	_, err = c.Status(context.Background(), "missing")
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if got := client.CodeOf(err); got != client.CodeNotFound {
		t.Errorf("CodeOf = %q", got)
	}
}

func TestMissingToken(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL)

	err := c.Deprovision(context.Background(), "tenant-42")
	if got := client.CodeOf(err); got != client.CodeUnauthenticated {
		t.Errorf("CodeOf = %q, want Unauthenticated (err=%v)", got, err)
	}
}

func TestDeprovision(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL, client.WithBearerToken("op-token"))

	if err := c.Deprovision(context.Background(), "tenant-42"); err != nil {
		t.Fatalf("Deprovision: %v", err)
	}
}

func TestResolve(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL)

	res, err := c.Resolve(context.Background(), "www.example.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.TenantID != "tenant-42" {
		t.Errorf("tenant = %q", res.TenantID)
	}

	if _, err := c.Resolve(context.Background(), "unknown.example.com"); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
