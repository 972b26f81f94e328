package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fabriziosalmi/newsportal/internal/retention"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// CleanupProcessor handles TypeSummaryCleanup. The task payload is the
// push-style trigger envelope and is handed to the cleaner as is.
type CleanupProcessor struct {
	cleaner  CleanupRunner
	notifier Notifier
	log      *zap.Logger
}

func NewCleanupProcessor(cleaner CleanupRunner, notifier Notifier, log *zap.Logger) *CleanupProcessor {
	return &CleanupProcessor{cleaner: cleaner, notifier: notifier, log: log}
}

func (p *CleanupProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	sum := p.cleaner.Run(ctx, t.Payload())

	body, err := json.Marshal(sum)
	if err != nil {
		p.log.Error("marshal run summary", zap.Error(err))
	} else {
		p.log.Info("cleanup run summary", zap.ByteString("summary", body))
	}

	if sum.Status == retention.StatusError {
		p.alert(ctx, "critical", fmt.Sprintf("retention cleanup failed: %s (%s)", sum.Err, sum.ErrorType))
		// The next scheduled run covers the same records.
		return fmt.Errorf("cleanup: %s: %w", sum.Err, asynq.SkipRetry)
	}

	if n := len(sum.FailedTenants); n > 0 {
		p.alert(ctx, "warning", fmt.Sprintf(
			"retention cleanup finished with %d failed users (deleted %d): %s",
			n, sum.TotalDeleted, strings.Join(sum.ReportedFailures(), ", "),
		))
	}
	return nil
}

func (p *CleanupProcessor) alert(ctx context.Context, severity, msg string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.SendAlert(ctx, "retention-cleanup", severity, msg); err != nil {
		p.log.Warn("failed to send cleanup alert", zap.Error(err))
	}
}
