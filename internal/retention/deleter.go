package retention

import (
	"context"
	"errors"

	"github.com/fabriziosalmi/newsportal/internal/models"
	"go.uber.org/zap"
)

// MaxBatchSize is the largest number of deletes committed atomically.
const MaxBatchSize = 500

// Deleter removes one tenant's stale summaries in bounded batches.
type Deleter struct {
	store     TenantStore
	archiver  Archiver
	batchSize int
	log       *zap.Logger
}

type DeleterOption func(*Deleter)

// WithBatchSize sets the commit size. Values outside 1..MaxBatchSize are clamped.
func WithBatchSize(n int) DeleterOption {
	return func(d *Deleter) {
		if n < 1 || n > MaxBatchSize {
			n = MaxBatchSize
		}
		d.batchSize = n
	}
}

// WithArchiver archives every batch before it is committed.
func WithArchiver(a Archiver) DeleterOption {
	return func(d *Deleter) { d.archiver = a }
}

func NewDeleter(store TenantStore, log *zap.Logger, opts ...DeleterOption) *Deleter {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Deleter{store: store, batchSize: MaxBatchSize, log: log}
	for _, o := range opts {
		o(d)
	}
	return d
}

// BatchSize returns the effective commit size.
func (d *Deleter) BatchSize() int { return d.batchSize }

// DeleteOlderThan deletes every summary of tenantID created before cutoff and
// returns how many were committed. On failure the count covers the batches
// committed before the error; the error is always a *BackendError.
func (d *Deleter) DeleteOlderThan(ctx context.Context, tenantID, cutoff string) (int, error) {
	deleted := 0
	batch := make([]models.Summary, 0, d.batchSize)

	commit := func(final bool) error {
		if len(batch) == 0 {
			return nil
		}
		if d.archiver != nil {
			if err := d.archiver.Archive(ctx, tenantID, cutoff, batch); err != nil {
				return &BackendError{Op: OpArchive, Tenant: tenantID, Err: err}
			}
		}
		ids := make([]string, len(batch))
		for i, s := range batch {
			ids[i] = s.ID
		}
		if err := d.store.DeleteBatch(ctx, tenantID, ids); err != nil {
			return &BackendError{Op: OpCommit, Tenant: tenantID, Err: err}
		}
		deleted += len(ids)
		d.log.Debug("committed delete batch",
			zap.String("tenant_id", tenantID),
			zap.Int("batch", len(ids)),
			zap.Int("total", deleted),
			zap.Bool("final", final),
		)
		batch = make([]models.Summary, 0, d.batchSize)
		return nil
	}

	err := d.store.StreamStale(ctx, tenantID, cutoff, func(s models.Summary) error {
		batch = append(batch, s)
		if len(batch) >= d.batchSize {
			return commit(false)
		}
		return nil
	})
	if err != nil {
		var be *BackendError
		if errors.As(err, &be) {
			return deleted, be
		}
		return deleted, &BackendError{Op: OpQuery, Tenant: tenantID, Err: err}
	}

	if err := commit(true); err != nil {
		return deleted, err
	}

	if deleted > 0 {
		d.log.Info("deleted old summaries", zap.String("tenant_id", tenantID), zap.Int("deleted", deleted))
	} else {
		d.log.Debug("no old summaries to delete", zap.String("tenant_id", tenantID))
	}
	return deleted, nil
}
