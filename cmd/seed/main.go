// cmd/seed populates the tenants table with development tenants so the
// domain endpoints have something to attach domains to.
//
// Running twice is safe: existing tenants are renamed to match the seed
// definitions and their custom domains are kept. Pass -domains to also
// store sample domain records in each state.
//
// Usage:
//
//	go run ./cmd/seed
//	go run ./cmd/seed -domains
//	DATABASE_URL=postgres://... go run ./cmd/seed
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/realtyhost/internal/config"
	"github.com/jmerrifield20/realtyhost/internal/domains/model"
	"github.com/jmerrifield20/realtyhost/internal/domains/repository"
)

type seedTenant struct {
	ID     string
	Name   string
	Domain *model.DomainRecord
}

func seedTenants(now time.Time) []seedTenant {
	return []seedTenant{
		{ID: "tenant-42", Name: "Harbor View Realty"},
		{
			ID:   "tenant-43",
			Name: "Maple & Main Homes",
			Domain: &model.DomainRecord{
				Domain:             "www.maplemain.example",
				Status:             model.DomainStatusPending,
				ProviderHostnameID: "seed-hostname-43",
				HostnameStatus:     "pending",
				SSLStatus:          "pending_validation",
				SSLValidationRecords: []model.ValidationRecord{
					{Type: "TXT", Name: "_acme-challenge.www.maplemain.example", Value: "seed-token-43"},
				},
				VerificationRecord: &model.ValidationRecord{Type: "TXT", Name: "_cf-custom-hostname.www.maplemain.example", Value: "seed-owner-43"},
				VerificationStart:  now,
			},
		},
		{
			ID:   "tenant-44",
			Name: "Summit Ridge Properties",
			Domain: &model.DomainRecord{
				Domain:             "homes.summitridge.example",
				Status:             model.DomainStatusActive,
				ProviderHostnameID: "seed-hostname-44",
				HostnameStatus:     "active",
				SSLStatus:          "active",
				VerificationStart:  now.Add(-48 * time.Hour),
			},
		},
	}
}

func main() {
	withDomains := flag.Bool("domains", false, "also store sample custom domain records")
	flag.Parse()

	if err := run(*withDomains); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(withDomains bool) error {
	cfg, err := config.Load("domainsvc")
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	fmt.Println("connected to database")

	repo := repository.NewTenantRepository(db)
	for _, t := range seedTenants(time.Now().UTC()) {
		if err := repo.Upsert(ctx, t.ID, t.Name); err != nil {
			return fmt.Errorf("seed %s: %w", t.ID, err)
		}
		fmt.Printf("  tenant %-10s %s\n", t.ID, t.Name)

		if withDomains && t.Domain != nil {
			if err := repo.SetCustomDomain(ctx, t.ID, t.Domain); err != nil {
				return fmt.Errorf("seed domain for %s: %w", t.ID, err)
			}
			fmt.Printf("    domain %s (%s)\n", t.Domain.Domain, t.Domain.Status)
		}
	}

	fmt.Println("\nseed complete")
	return nil
}
