package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/fabriziosalmi/newsportal/internal/metrics"
	"github.com/fabriziosalmi/newsportal/internal/queue"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// KeywordDispatcher periodically enqueues one summarize task per
// (tenant, keyword). Task ids are stable within an interval window, so a
// second dispatch in the same window is a no-op.
type KeywordDispatcher struct {
	keywords KeywordLister
	queue    Enqueuer
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
}

func NewKeywordDispatcher(keywords KeywordLister, q Enqueuer, log *zap.Logger, interval time.Duration) *KeywordDispatcher {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &KeywordDispatcher{
		keywords: keywords,
		queue:    q,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Run dispatches once immediately and then on every tick until ctx is done.
func (d *KeywordDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *KeywordDispatcher) tick(ctx context.Context) {
	users, err := d.Dispatch(ctx)
	if err != nil {
		d.log.Error("dispatch keywords", zap.Error(err))
		return
	}
	d.log.Info("keyword dispatch complete", zap.Int("users", users))
}

// Dispatch enqueues the current window's tasks and returns the number of
// tenants that had at least one keyword.
func (d *KeywordDispatcher) Dispatch(ctx context.Context) (int, error) {
	all, err := d.keywords.ListTenantKeywords(ctx)
	if err != nil {
		return 0, fmt.Errorf("list keywords: %w", err)
	}

	window := d.now().UTC().Truncate(d.interval).Unix()
	users := 0
	for _, tk := range all {
		if len(tk.Keywords) == 0 {
			continue
		}
		users++
		for _, kw := range tk.Keywords {
			d.enqueue(ctx, tk.TenantID, kw, window)
		}
	}
	return users, nil
}

func (d *KeywordDispatcher) enqueue(ctx context.Context, tenantID, keyword string, window int64) {
	task, err := queue.NewSummarizeTask(queue.SummarizePayload{UserID: tenantID, Keyword: keyword})
	if err != nil {
		d.log.Error("create summarize task", zap.Error(err))
		return
	}

	taskID := summarizeTaskID(tenantID, keyword, window)
	if _, err := d.queue.EnqueueContext(ctx, task, asynq.TaskID(taskID)); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			d.log.Debug("summarize task already queued", zap.String("task_id", taskID))
			return
		}
		d.log.Error("enqueue summarize", zap.String("tenant_id", tenantID), zap.Error(err))
		return
	}
	metrics.SummarizeTasksEnqueuedTotal.Inc()
}

// Keywords are free text; hashing keeps the id short and Redis-safe.
func summarizeTaskID(tenantID, keyword string, window int64) string {
	h := sha256.Sum256([]byte(keyword))
	return fmt.Sprintf("summarize-%s-%s-%d", tenantID, hex.EncodeToString(h[:4]), window)
}
