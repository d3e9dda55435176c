package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jmerrifield20/realtyhost/internal/cloudflare"
	"github.com/jmerrifield20/realtyhost/internal/domains/model"
	"github.com/jmerrifield20/realtyhost/internal/domains/service"
	"github.com/jmerrifield20/realtyhost/internal/hosting"
	"go.uber.org/zap"
)

type cfFake struct {
	mu         sync.Mutex
	cnameBody  map[string]any
	deleteCode int
}

func (f *cfFake) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := func(code int, success bool, result any, errs ...map[string]any) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			if errs == nil {
				errs = []map[string]any{}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"success": success, "errors": errs, "result": result})
		}

		switch key := r.Method + " " + r.URL.Path; key {
		case "GET /zones":
			if r.URL.Query().Get("name") == "example.com" {
				reply(200, true, []map[string]string{{"id": "Z1", "name": "example.com"}})
				return
			}
			reply(200, true, []any{})
		case "POST /zones/Z1/dns_records":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			f.cnameBody = body
			f.mu.Unlock()
			reply(200, true, map[string]any{"id": "R1", "type": "CNAME", "name": body["name"], "content": body["content"], "proxied": true})
		case "POST /zones/SYS/custom_hostnames":
			reply(200, true, map[string]any{
				"id": "H1", "hostname": "www.example.com", "status": "pending",
				"ssl": map[string]any{"status": "pending_validation", "method": "txt", "type": "dv",
					"txt_name": "_acme-challenge.www.example.com", "txt_value": "dcv"},
			})
		case "DELETE /zones/SYS/custom_hostnames/H1":
			f.mu.Lock()
			code := f.deleteCode
			f.mu.Unlock()
			reply(code, false, nil, map[string]any{"code": 1000, "message": "internal error"})
		default:
			t.Errorf("unexpected cloudflare call %s", key)
			reply(404, false, nil)
		}
	}
}

func hostingConflictThenRecover(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/projects/proj/sites/site/customDomains":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":{"code":409,"message":"already exists","status":"ALREADY_EXISTS"}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/projects/proj/sites/site/customDomains/www.example.com":
			_, _ = w.Write([]byte(`{"name":"projects/proj/sites/site/customDomains/www.example.com",
				"requiredDnsUpdates":{"desired":[{"domainName":"_acme.example.com",
					"records":[{"domainName":"_acme.example.com","type":"TXT","rdata":"abc"}]}]}}`))
		default:
			t.Errorf("unexpected hosting call %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newScenario(t *testing.T, cf *cfFake) (*service.Provisioner, *stubTenantStore) {
	t.Helper()
	cfSrv := httptest.NewServer(cf.handler(t))
	t.Cleanup(cfSrv.Close)
	hostSrv := httptest.NewServer(hostingConflictThenRecover(t))
	t.Cleanup(hostSrv.Close)

	logger := zap.NewNop()
	dns := cloudflare.NewClient(cloudflare.Config{BaseURL: cfSrv.URL, APIToken: "tok"}, logger)
	reg := hosting.NewClient(context.Background(), hosting.Config{BaseURL: hostSrv.URL, ProjectID: "proj", SiteID: "site"}, nil, logger)

	store := newStubStore("tenant-42")
	svc := service.NewProvisioner(store, dns, reg, service.Config{
		SystemZoneID:       "SYS",
		PlatformBaseDomain: "platform.example",
		APIConfigured:      dns.Configured(),
	}, logger)
	return svc, store
}

func TestProvision_ExampleScenario(t *testing.T) {
	cf := &cfFake{}
	svc, store := newScenario(t, cf)

	if _, err := svc.Provision(context.Background(), "tenant-42", "www.example.com"); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	cf.mu.Lock()
	if cf.cnameBody["content"] != "tenant-42.platform.example" || cf.cnameBody["name"] != "www.example.com" {
		t.Errorf("CNAME body = %v", cf.cnameBody)
	}
	cf.mu.Unlock()

	got := store.record("tenant-42")
	if got == nil {
		t.Fatal("expected persisted record")
	}
	if got.ProviderHostnameID != "H1" {
		t.Errorf("providerHostnameId = %q, want H1", got.ProviderHostnameID)
	}
	if got.Status != model.DomainStatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	want := model.ValidationRecord{Type: "TXT", Name: "_acme.example.com", Value: "abc"}
	if got.FirebaseVerification == nil || *got.FirebaseVerification != want {
		t.Errorf("firebaseVerification = %+v, want %+v", got.FirebaseVerification, want)
	}
	if len(got.SSLValidationRecords) != 1 || got.SSLValidationRecords[0].Name != "_acme-challenge.www.example.com" {
		t.Errorf("sslValidationRecords = %+v", got.SSLValidationRecords)
	}
}

func TestDeprovision_RemoteFailureStillClearsLocalState(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			cf := &cfFake{deleteCode: code}
			svc, store := newScenario(t, cf)
			store.put("tenant-42", pendingRecord())

			if err := svc.Deprovision(context.Background(), "tenant-42"); err != nil {
				t.Fatalf("Deprovision: %v", err)
			}
			if store.record("tenant-42") != nil {
				t.Error("customDomain should be absent")
			}
		})
	}
}

func TestDeprovision_UnreachableProviderStillClearsLocalState(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	dns := cloudflare.NewClient(cloudflare.Config{BaseURL: url, APIToken: "tok"}, zap.NewNop())
	store := newStubStore()
	store.put("t1", pendingRecord())
	svc := service.NewProvisioner(store, dns, &fakeRegistrar{}, service.Config{SystemZoneID: "SYS", APIConfigured: true}, zap.NewNop())

	if err := svc.Deprovision(context.Background(), "t1"); err != nil {
		t.Fatalf("Deprovision: %v", err)
	}
	if store.record("t1") != nil {
		t.Error("customDomain should be absent")
	}
}
