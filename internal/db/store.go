package db

import (
	"context"

	"github.com/fabriziosalmi/newsportal/internal/models"
)

// The methods below expose the repositories through the flat store contract
// used by the retention cleanup, the workers and the API.

func (db *DB) ListTenants(ctx context.Context) ([]string, error) {
	return db.Tenants.List(ctx)
}

func (db *DB) EnsureTenant(ctx context.Context, tenantID string) error {
	return db.Tenants.Ensure(ctx, tenantID)
}

func (db *DB) StreamStale(ctx context.Context, tenantID, cutoff string, fn func(models.Summary) error) error {
	return db.Summaries.StreamStale(ctx, tenantID, cutoff, fn)
}

func (db *DB) DeleteBatch(ctx context.Context, tenantID string, ids []string) error {
	return db.Summaries.DeleteBatch(ctx, tenantID, ids)
}

func (db *DB) StreamSummaries(ctx context.Context, tenantID string, fn func(models.Summary) error) error {
	return db.Summaries.StreamAll(ctx, tenantID, fn)
}

func (db *DB) SetCreatedAt(ctx context.Context, tenantID, id, createdAt string) error {
	return db.Summaries.SetCreatedAt(ctx, tenantID, id, createdAt)
}

// CreateKeyword makes sure the tenant exists before inserting.
func (db *DB) CreateKeyword(ctx context.Context, k *models.Keyword) error {
	if err := db.Tenants.Ensure(ctx, k.TenantID); err != nil {
		return err
	}
	return db.Keywords.Create(ctx, k)
}

func (db *DB) ListKeywords(ctx context.Context, tenantID string) ([]models.Keyword, error) {
	return db.Keywords.ListByTenant(ctx, tenantID)
}

func (db *DB) DeleteKeyword(ctx context.Context, tenantID, id string) error {
	return db.Keywords.Delete(ctx, tenantID, id)
}

func (db *DB) ListTenantKeywords(ctx context.Context) ([]models.TenantKeywords, error) {
	return db.Keywords.ListAll(ctx)
}

// CreateSummary makes sure the tenant exists before inserting.
func (db *DB) CreateSummary(ctx context.Context, s *models.Summary) error {
	if err := db.Tenants.Ensure(ctx, s.TenantID); err != nil {
		return err
	}
	return db.Summaries.Create(ctx, s)
}

func (db *DB) ListSummaries(ctx context.Context, tenantID string, limit int) ([]models.Summary, error) {
	return db.Summaries.ListByTenant(ctx, tenantID, limit)
}

func (db *DB) URLExists(ctx context.Context, tenantID, url string) (bool, error) {
	return db.Summaries.URLExists(ctx, tenantID, url)
}
