// Package backend opens the configured document store.
package backend

import (
	"context"
	"fmt"

	"github.com/fabriziosalmi/newsportal/internal/config"
	"github.com/fabriziosalmi/newsportal/internal/db"
	"github.com/fabriziosalmi/newsportal/internal/docstore"
	"github.com/fabriziosalmi/newsportal/internal/models"
	"github.com/fabriziosalmi/newsportal/internal/retention"
	"go.uber.org/zap"
)

// Store is everything the binaries need from a document store.
type Store interface {
	retention.TenantStore
	retention.TimestampStore

	EnsureTenant(ctx context.Context, tenantID string) error

	CreateKeyword(ctx context.Context, k *models.Keyword) error
	ListKeywords(ctx context.Context, tenantID string) ([]models.Keyword, error)
	DeleteKeyword(ctx context.Context, tenantID, id string) error
	ListTenantKeywords(ctx context.Context) ([]models.TenantKeywords, error)

	CreateSummary(ctx context.Context, s *models.Summary) error
	ListSummaries(ctx context.Context, tenantID string, limit int) ([]models.Summary, error)
	URLExists(ctx context.Context, tenantID, url string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*db.DB)(nil)
	_ Store = (*docstore.Store)(nil)
)

// Open connects to cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (Store, error) {
	switch cfg.Store.Backend {
	case "postgres":
		d, err := db.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		log.Info("store ready", zap.String("backend", "postgres"))
		return d, nil
	case "firestore":
		s, err := docstore.Open(ctx, cfg.Firestore)
		if err != nil {
			return nil, err
		}
		log.Info("store ready",
			zap.String("backend", "firestore"),
			zap.String("project_id", cfg.Firestore.ProjectID),
		)
		return s, nil
	default:
		return nil, fmt.Errorf("backend: unknown store backend %q", cfg.Store.Backend)
	}
}
