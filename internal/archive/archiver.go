package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fabriziosalmi/newsportal/internal/models"
	"go.uber.org/zap"
)

// ── Multi-provider failover ───────────────────────────────────────────────────

// MultiStore tries providers in order and returns on first success.
type MultiStore struct {
	providers []Backend
}

// NewMultiStore creates a MultiStore from a list of backends (primary first).
func NewMultiStore(providers ...Backend) *MultiStore {
	return &MultiStore{providers: providers}
}

// Put uploads to the first provider that accepts the blob and returns its label.
func (m *MultiStore) Put(ctx context.Context, key string, blob []byte, meta BlobMetadata) (string, error) {
	var err error
	for _, p := range m.providers {
		if err = p.Put(ctx, key, blob, meta); err == nil {
			return p.Provider(), nil
		}
	}
	if err == nil {
		return "", fmt.Errorf("archive: no providers configured")
	}
	return "", fmt.Errorf("archive: all providers failed, last error: %w", err)
}

// Get fetches from the first provider that has the object.
func (m *MultiStore) Get(ctx context.Context, key string) ([]byte, error) {
	var lastErr error
	for _, p := range m.providers {
		data, err := p.Get(ctx, key)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("archive: all providers failed: %w", lastErr)
}

// Delete removes key from every provider, since failover may have left a
// copy on any of them.
func (m *MultiStore) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, p := range m.providers {
		if err := p.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Provider(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("archive: delete %s: %w", key, errors.Join(errs...))
	}
	return nil
}

// ── Archiver ──────────────────────────────────────────────────────────────────

// Sealer encrypts blobs at rest. aad is the object key.
type Sealer interface {
	Seal(plaintext, aad []byte) ([]byte, error)
	Open(sealed, aad []byte) ([]byte, error)
}

// Archiver stores each delete batch before the retention cleanup commits it.
type Archiver struct {
	store  *MultiStore
	sealer Sealer
	log    *zap.Logger
	now    func() time.Time
}

func NewArchiver(log *zap.Logger, backends ...Backend) *Archiver {
	return &Archiver{store: NewMultiStore(backends...), log: log, now: time.Now}
}

// UseSealer encrypts every blob written from now on. Fetch expects every
// blob it reads to be sealed with the same key.
func (a *Archiver) UseSealer(s Sealer) {
	a.sealer = s
}

// Archive writes batch and returns only once the blob is durable.
func (a *Archiver) Archive(ctx context.Context, tenantID, cutoff string, batch []models.Summary) error {
	blob, meta, err := PrepareBlob(tenantID, cutoff, batch, a.now())
	if err != nil {
		return err
	}
	if a.sealer != nil {
		if blob, err = a.sealer.Seal(blob, []byte(meta.Key)); err != nil {
			return fmt.Errorf("archive: seal %s: %w", meta.Key, err)
		}
		meta.Size = int64(len(blob))
	}
	provider, err := a.store.Put(ctx, meta.Key, blob, meta)
	if err != nil {
		return err
	}
	a.log.Info("archived summaries",
		zap.String("tenant_id", tenantID),
		zap.String("key", meta.Key),
		zap.String("provider", provider),
		zap.Int64("lines", meta.Lines),
		zap.Int64("bytes", meta.Size),
		zap.Bool("sealed", a.sealer != nil),
	)
	return nil
}

// Fetch reads an archived batch back and checks it against its key.
func (a *Archiver) Fetch(ctx context.Context, key string) ([]models.Summary, error) {
	blob, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if a.sealer != nil {
		if blob, err = a.sealer.Open(blob, []byte(key)); err != nil {
			return nil, fmt.Errorf("archive: open %s: %w", key, err)
		}
	}
	if err := VerifyKey(key, blob); err != nil {
		return nil, err
	}
	raw, err := DecompressBlob(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	return DecodeSummaries(raw)
}

// Purge removes an archived batch once it is no longer needed.
func (a *Archiver) Purge(ctx context.Context, key string) error {
	if err := a.store.Delete(ctx, key); err != nil {
		return err
	}
	a.log.Info("purged archive object", zap.String("key", key))
	return nil
}
