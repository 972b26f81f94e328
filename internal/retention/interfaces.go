package retention

import (
	"context"

	"github.com/fabriziosalmi/newsportal/internal/models"
)

// TenantStore is the slice of the document store the cleanup needs.
// Implementations must return tenants in a stable order and must stop
// streaming as soon as fn returns an error, handing that error back.
type TenantStore interface {
	ListTenants(ctx context.Context) ([]string, error)
	// StreamStale calls fn for every summary of tenantID whose created_at
	// sorts strictly before cutoff.
	StreamStale(ctx context.Context, tenantID, cutoff string, fn func(models.Summary) error) error
	// DeleteBatch removes ids atomically. len(ids) never exceeds MaxBatchSize.
	DeleteBatch(ctx context.Context, tenantID string, ids []string) error
}

// TimestampStore is used by the Normalizer to rewrite legacy creation timestamps.
type TimestampStore interface {
	ListTenants(ctx context.Context) ([]string, error)
	// StreamSummaries yields every summary of the tenant. CreatedAt carries the
	// stored value verbatim, falling back to the legacy createdAt field.
	StreamSummaries(ctx context.Context, tenantID string, fn func(models.Summary) error) error
	SetCreatedAt(ctx context.Context, tenantID, id, createdAt string) error
}

// Archiver persists a batch of summaries before it is deleted.
type Archiver interface {
	Archive(ctx context.Context, tenantID, cutoff string, batch []models.Summary) error
}
