package worker

import (
	"context"

	"github.com/fabriziosalmi/newsportal/internal/models"
	"github.com/fabriziosalmi/newsportal/internal/retention"
	"github.com/hibiken/asynq"
)

// Interfaces for dependency injection to allow testing.

// CleanupRunner runs one retention cleanup for a trigger payload.
type CleanupRunner interface {
	Run(ctx context.Context, payload []byte) retention.RunSummary
}

// SummaryWriter is the store access needed to ingest summaries.
type SummaryWriter interface {
	EnsureTenant(ctx context.Context, tenantID string) error
	URLExists(ctx context.Context, tenantID, url string) (bool, error)
	CreateSummary(ctx context.Context, s *models.Summary) error
}

// KeywordLister lists every tenant's keywords.
type KeywordLister interface {
	ListTenantKeywords(ctx context.Context) ([]models.TenantKeywords, error)
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier delivers operator alerts.
type Notifier interface {
	SendAlert(ctx context.Context, subject, severity, message string) error
}
