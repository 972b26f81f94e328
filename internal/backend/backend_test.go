package backend

import (
	"context"
	"testing"

	"github.com/fabriziosalmi/newsportal/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenArchiver_Disabled(t *testing.T) {
	arch, err := OpenArchiver(context.Background(), &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, arch)
}

func TestOpenArchiver_FS(t *testing.T) {
	cfg := &config.Config{Archive: config.ArchiveConfig{Backend: "fs", FSRoot: t.TempDir()}}
	arch, err := OpenArchiver(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, arch)
}

func TestOpenArchiver_Unknown(t *testing.T) {
	cfg := &config.Config{Archive: config.ArchiveConfig{Backend: "tape"}}
	_, err := OpenArchiver(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: "sqlite"}}
	_, err := Open(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestOpenArchiver_BadEncryptionKey(t *testing.T) {
	cfg := &config.Config{Archive: config.ArchiveConfig{Backend: "fs", FSRoot: t.TempDir(), EncryptionKey: "short"}}
	_, err := OpenArchiver(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "kms")
}

func TestNewCleaner_WithArchive(t *testing.T) {
	cfg := &config.Config{
		Archive:   config.ArchiveConfig{Backend: "fs", FSRoot: t.TempDir()},
		Retention: config.RetentionConfig{BatchSize: 100},
	}
	c, err := NewCleaner(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, c)
}
