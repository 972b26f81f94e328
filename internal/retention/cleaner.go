package retention

import (
	"context"
	"time"

	"github.com/fabriziosalmi/newsportal/internal/metrics"
	"github.com/fabriziosalmi/newsportal/internal/models"
	"go.uber.org/zap"
)

// Cleaner runs retention cleanup across every tenant. Tenants are processed
// sequentially against a single cutoff; one tenant's failure never stops the run.
type Cleaner struct {
	store   TenantStore
	deleter *Deleter
	log     *zap.Logger
	now     func() time.Time
}

type CleanerOption func(*Cleaner)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) CleanerOption {
	return func(c *Cleaner) { c.now = now }
}

// NewCleaner builds a Cleaner. A nil deleter gets a default one on store.
func NewCleaner(store TenantStore, deleter *Deleter, log *zap.Logger, opts ...CleanerOption) *Cleaner {
	if log == nil {
		log = zap.NewNop()
	}
	if deleter == nil && store != nil {
		deleter = NewDeleter(store, log)
	}
	c := &Cleaner{store: store, deleter: deleter, log: log, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run resolves the retention period from the trigger payload and cleans up.
// It never panics and never returns an error: failures are reported in the
// returned summary.
func (c *Cleaner) Run(ctx context.Context, payload []byte) RunSummary {
	return c.RunWithResolution(ctx, Resolve(payload, c.log))
}

// RunWithResolution cleans up with an already resolved retention period.
func (c *Cleaner) RunWithResolution(ctx context.Context, res Resolution) RunSummary {
	start := c.now()
	c.log.Info("cleanup job started",
		zap.String("started_at", models.FormatTimestamp(start)),
		zap.Int("retention_days", res.Days),
		zap.Stringer("retention_source", res.Source),
	)

	sum := c.run(ctx, res, start)

	c.observe(sum)
	c.report(sum)
	return sum
}

func (c *Cleaner) run(ctx context.Context, res Resolution, start time.Time) (sum RunSummary) {
	defer func() {
		if r := recover(); r != nil {
			sum = c.failure(&PanicError{Value: r})
		}
	}()

	if c.store == nil || c.deleter == nil {
		return c.failure(&BackendError{Op: OpConnect, Err: ErrNoStore})
	}

	cutoff := FormatCutoff(Cutoff(res.Days, start))
	c.log.Info("calculated cutoff date",
		zap.String("cutoff_date", cutoff),
		zap.Int("retention_days", res.Days),
	)

	tenants, err := c.store.ListTenants(ctx)
	if err != nil {
		return c.failure(&BackendError{Op: OpEnumerate, Err: err})
	}

	var t tally
	for i, id := range tenants {
		c.log.Debug("processing tenant", zap.Int("n", i+1), zap.String("tenant_id", id))
		t = t.add(c.cleanTenant(ctx, id, cutoff))
	}

	end := c.now()
	return RunSummary{
		Status:               StatusSuccess,
		TenantsProcessed:     t.processed,
		TenantsWithDeletions: t.withDeletions,
		TotalDeleted:         t.deleted,
		FailedTenants:        t.failedTenants(),
		Cutoff:               cutoff,
		RetentionDays:        res.Days,
		Duration:             end.Sub(start),
		Timestamp:            models.FormatTimestamp(end),
	}
}

// cleanTenant isolates one tenant: errors and panics become a failed outcome.
// Deletions committed before a failure are logged but not counted in the run.
func (c *Cleaner) cleanTenant(ctx context.Context, tenantID, cutoff string) (o outcome) {
	o.tenant = tenantID
	defer func() {
		if r := recover(); r != nil {
			o.err = &PanicError{Value: r}
		}
		if o.err != nil {
			c.log.Warn("failed to process tenant, continuing with others",
				zap.String("tenant_id", tenantID),
				zap.Int("deleted_before_failure", o.deleted),
				zap.Error(o.err),
			)
		}
	}()
	o.deleted, o.err = c.deleter.DeleteOlderThan(ctx, tenantID, cutoff)
	return o
}

func (c *Cleaner) failure(err error) RunSummary {
	return RunSummary{
		Status:    StatusError,
		Err:       err,
		ErrorType: errorType(err),
		Timestamp: models.FormatTimestamp(c.now()),
	}
}

func (c *Cleaner) observe(sum RunSummary) {
	metrics.CleanupRunsTotal.WithLabelValues(string(sum.Status)).Inc()
	if sum.Status != StatusSuccess {
		return
	}
	metrics.CleanupDeletedTotal.Add(float64(sum.TotalDeleted))
	metrics.CleanupTenantFailuresTotal.Add(float64(len(sum.FailedTenants)))
	metrics.CleanupDuration.Observe(sum.Duration.Seconds())
	metrics.CleanupRetentionDays.Set(float64(sum.RetentionDays))
}

func (c *Cleaner) report(sum RunSummary) {
	if sum.Status == StatusError {
		c.log.Error("cleanup job failed with critical error",
			zap.String("error_type", sum.ErrorType),
			zap.Error(sum.Err),
		)
		return
	}
	if n := len(sum.FailedTenants); n > 0 {
		c.log.Warn("completed with partial failures",
			zap.Int("failed_users_count", n),
			zap.Strings("failed_users", sum.ReportedFailures()),
		)
	}
	c.log.Info("cleanup job completed",
		zap.Int("users_processed", sum.TenantsProcessed),
		zap.Int("users_with_deletions", sum.TenantsWithDeletions),
		zap.Int("total_deleted", sum.TotalDeleted),
		zap.String("cutoff_date", sum.Cutoff),
		zap.Int("retention_days", sum.RetentionDays),
		zap.Float64("execution_time_seconds", sum.ExecutionSeconds()),
	)
}
