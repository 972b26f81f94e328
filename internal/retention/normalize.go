package retention

import (
	"context"

	"github.com/fabriziosalmi/newsportal/internal/models"
	"go.uber.org/zap"
)

// NormalizeReport is the result of a Normalizer run.
type NormalizeReport struct {
	TenantsProcessed int
	Scanned          int
	Rewritten        int
	Invalid          int
	FailedTenants    []string
	// Err is set when tenants could not be enumerated.
	Err error
}

// Normalizer rewrites created_at values that are not in the canonical
// encoding so that cutoff comparisons stay correct.
type Normalizer struct {
	store  TimestampStore
	dryRun bool
	log    *zap.Logger
}

func NewNormalizer(store TimestampStore, dryRun bool, log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{store: store, dryRun: dryRun, log: log}
}

type tenantScan struct {
	scanned, rewritten, invalid int
}

// Run walks every tenant. Unparseable timestamps are counted and left as is;
// a tenant whose store calls fail is recorded and skipped.
func (n *Normalizer) Run(ctx context.Context) NormalizeReport {
	var rep NormalizeReport
	if n.store == nil {
		rep.Err = &BackendError{Op: OpConnect, Err: ErrNoStore}
		return rep
	}

	tenants, err := n.store.ListTenants(ctx)
	if err != nil {
		rep.Err = &BackendError{Op: OpEnumerate, Err: err}
		n.log.Error("normalize: list tenants", zap.Error(rep.Err))
		return rep
	}

	for _, id := range tenants {
		rep.TenantsProcessed++
		scan, err := n.normalizeTenant(ctx, id)
		rep.Scanned += scan.scanned
		rep.Rewritten += scan.rewritten
		rep.Invalid += scan.invalid
		if err != nil {
			rep.FailedTenants = append(rep.FailedTenants, id)
			n.log.Warn("normalize: tenant failed, continuing with others",
				zap.String("tenant_id", id),
				zap.Error(err),
			)
		}
	}

	n.log.Info("timestamp normalization finished",
		zap.Int("tenants", rep.TenantsProcessed),
		zap.Int("scanned", rep.Scanned),
		zap.Int("rewritten", rep.Rewritten),
		zap.Int("invalid", rep.Invalid),
		zap.Int("failed_tenants", len(rep.FailedTenants)),
		zap.Bool("dry_run", n.dryRun),
	)
	return rep
}

func (n *Normalizer) normalizeTenant(ctx context.Context, tenantID string) (scan tenantScan, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()

	err = n.store.StreamSummaries(ctx, tenantID, func(s models.Summary) error {
		scan.scanned++
		canonical, perr := models.CanonicalTimestamp(s.CreatedAt)
		if perr != nil {
			scan.invalid++
			n.log.Warn("unparseable created_at left untouched",
				zap.String("tenant_id", tenantID),
				zap.String("summary_id", s.ID),
				zap.String("created_at", s.CreatedAt),
			)
			return nil
		}
		if canonical == s.CreatedAt {
			return nil
		}
		if !n.dryRun {
			if uerr := n.store.SetCreatedAt(ctx, tenantID, s.ID, canonical); uerr != nil {
				return &BackendError{Op: OpUpdate, Tenant: tenantID, Err: uerr}
			}
		}
		scan.rewritten++
		return nil
	})
	return scan, err
}
