package backend

import (
	"context"
	"fmt"

	"github.com/fabriziosalmi/newsportal/internal/archive"
	"github.com/fabriziosalmi/newsportal/internal/config"
	"github.com/fabriziosalmi/newsportal/internal/kms"
	"github.com/fabriziosalmi/newsportal/internal/retention"
	"go.uber.org/zap"
)

// OpenArchiver returns nil when archiving is disabled. With the s3 backend a
// local filesystem store is added as fallback when fs_root is set.
func OpenArchiver(ctx context.Context, cfg *config.Config, log *zap.Logger) (*archive.Archiver, error) {
	var backends []archive.Backend
	switch cfg.Archive.Backend {
	case "":
		return nil, nil
	case "s3":
		s3, err := archive.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		backends = append(backends, s3)
		if cfg.Archive.FSRoot != "" {
			fs, err := archive.NewFSStore(cfg.Archive.FSRoot)
			if err != nil {
				return nil, err
			}
			backends = append(backends, fs)
		}
	case "fs":
		fs, err := archive.NewFSStore(cfg.Archive.FSRoot)
		if err != nil {
			return nil, err
		}
		backends = append(backends, fs)
	default:
		return nil, fmt.Errorf("backend: unknown archive backend %q", cfg.Archive.Backend)
	}
	a := archive.NewArchiver(log.Named("archive"), backends...)
	if cfg.Archive.EncryptionKey != "" {
		sealer, err := kms.New(cfg.Archive.EncryptionKey)
		if err != nil {
			return nil, err
		}
		a.UseSealer(sealer)
	}
	log.Info("archive enabled",
		zap.String("backend", cfg.Archive.Backend),
		zap.Bool("sealed", cfg.Archive.EncryptionKey != ""),
	)
	return a, nil
}

// NewCleaner wires the store, optional archiver and batch size into a Cleaner.
func NewCleaner(ctx context.Context, cfg *config.Config, store retention.TenantStore, log *zap.Logger) (*retention.Cleaner, error) {
	opts := []retention.DeleterOption{retention.WithBatchSize(cfg.Retention.BatchSize)}
	arch, err := OpenArchiver(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if arch != nil {
		opts = append(opts, retention.WithArchiver(arch))
	}
	clog := log.Named("retention")
	return retention.NewCleaner(store, retention.NewDeleter(store, clog, opts...), clog), nil
}
