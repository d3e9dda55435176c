package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/realtyhost/internal/domains/model"
)

// ErrTenantNotFound is returned when no tenant row matches.
var ErrTenantNotFound = errors.New("tenant not found")

// TenantRepository persists the custom_domain field of tenant rows.
// Apart from Upsert, used by development seeding, it never writes any
// other column except updated_at.
type TenantRepository struct {
	db *pgxpool.Pool
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: db}
}

// Get returns the tenant with the given id.
func (r *TenantRepository) Get(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var (
		t   model.Tenant
		raw []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, name, custom_domain, updated_at FROM tenants WHERE id = $1`, tenantID,
	).Scan(&t.ID, &t.Name, &raw, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	if t.CustomDomain, err = decodeDomain(raw); err != nil {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, err)
	}
	return &t, nil
}

// Upsert creates the tenant or renames an existing one. The custom domain
// of an existing tenant is left untouched.
func (r *TenantRepository) Upsert(ctx context.Context, tenantID, name string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tenants (id, name) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()`,
		tenantID, name,
	)
	if err != nil {
		return fmt.Errorf("upsert tenant: %w", err)
	}
	return nil
}

// SetCustomDomain overwrites the tenant's custom domain record.
func (r *TenantRepository) SetCustomDomain(ctx context.Context, tenantID string, rec *model.DomainRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode custom domain: %w", err)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE tenants SET custom_domain = $2::jsonb, updated_at = $3 WHERE id = $1`,
		tenantID, raw, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set custom domain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// ClearCustomDomain removes the tenant's custom domain record.
func (r *TenantRepository) ClearCustomDomain(ctx context.Context, tenantID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tenants SET custom_domain = NULL, updated_at = $2 WHERE id = $1`,
		tenantID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("clear custom domain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// ListPendingDomains returns up to limit pending records that carry a
// provider hostname id, ordered by tenant id. Pass the last tenant id of
// the previous page as after to continue; "" starts from the beginning.
func (r *TenantRepository) ListPendingDomains(ctx context.Context, after string, limit int) ([]model.PendingDomain, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, custom_domain FROM tenants
		 WHERE custom_domain->>'status' = $1
		   AND coalesce(custom_domain->>'providerHostnameId', '') <> ''
		   AND id > $2
		 ORDER BY id ASC
		 LIMIT $3`,
		string(model.DomainStatusPending), after, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending domains: %w", err)
	}
	defer rows.Close()

	var out []model.PendingDomain
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan pending domain: %w", err)
		}
		rec, err := decodeDomain(raw)
		if err != nil {
			return nil, fmt.Errorf("tenant %s: %w", id, err)
		}
		if rec == nil {
			continue
		}
		out = append(out, model.PendingDomain{TenantID: id, Record: *rec})
	}
	return out, rows.Err()
}

// FindByDomain returns the tenant whose custom domain is domain.
func (r *TenantRepository) FindByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	var (
		t   model.Tenant
		raw []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, name, custom_domain, updated_at FROM tenants
		 WHERE lower(custom_domain->>'domain') = lower($1)
		 ORDER BY updated_at DESC
		 LIMIT 1`, domain,
	).Scan(&t.ID, &t.Name, &raw, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("find tenant by domain: %w", err)
	}
	if t.CustomDomain, err = decodeDomain(raw); err != nil {
		return nil, fmt.Errorf("tenant %s: %w", t.ID, err)
	}
	return &t, nil
}

func decodeDomain(raw []byte) (*model.DomainRecord, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var rec model.DomainRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode custom domain: %w", err)
	}
	return &rec, nil
}
