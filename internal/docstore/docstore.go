// Package docstore implements the tenant store on Cloud Firestore using the
// users/{tenant}/{keywords,summaries} document hierarchy.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/fabriziosalmi/newsportal/internal/config"
	"github.com/fabriziosalmi/newsportal/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection     = "users"
	keywordsCollection  = "keywords"
	summariesCollection = "summaries"

	fieldCreatedAt       = "created_at"
	fieldLegacyCreatedAt = "createdAt"
)

type Store struct {
	client *firestore.Client
}

// Open connects to the configured Firestore database. With
// FIRESTORE_EMULATOR_HOST set the client talks to the emulator.
func Open(ctx context.Context, cfg config.FirestoreConfig) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("docstore: firestore.project_id is not configured")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	dbID := cfg.DatabaseID
	if dbID == "" {
		dbID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, dbID, opts...)
	if err != nil {
		return nil, fmt.Errorf("docstore: connect: %w", err)
	}
	return &Store{client: client}, nil
}

// New wraps an existing client.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Ping issues a cheap read to check connectivity.
func (s *Store) Ping(ctx context.Context) error {
	it := s.client.Collection(usersCollection).Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("docstore: ping: %w", err)
	}
	return nil
}

func (s *Store) user(tenantID string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(tenantID)
}

func (s *Store) summaries(tenantID string) *firestore.CollectionRef {
	return s.user(tenantID).Collection(summariesCollection)
}

func (s *Store) keywords(tenantID string) *firestore.CollectionRef {
	return s.user(tenantID).Collection(keywordsCollection)
}

// ── Tenants ───────────────────────────────────────────────────────────────────

// ListTenants returns every user document id, including ids that only exist
// as parents of sub-collections.
func (s *Store) ListTenants(ctx context.Context) ([]string, error) {
	refs, err := s.client.Collection(usersCollection).DocumentRefs(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("docstore: list tenants: %w", err)
	}
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids, nil
}

// EnsureTenant creates an empty user document if none exists.
func (s *Store) EnsureTenant(ctx context.Context, tenantID string) error {
	if _, err := s.user(tenantID).Set(ctx, map[string]any{}, firestore.MergeAll); err != nil {
		return fmt.Errorf("docstore: ensure tenant: %w", err)
	}
	return nil
}

// ── Summaries ─────────────────────────────────────────────────────────────────

func timestampString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

func intField(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

// summaryFromData decodes a summary document field by field. Producers have
// written strings and native timestamps under both created_at names, and a
// field of the wrong type decodes as its zero value so the document can
// still be deleted or normalized by id.
func summaryFromData(id, tenantID string, data map[string]any) models.Summary {
	created := timestampString(data[fieldCreatedAt])
	if created == "" {
		created = timestampString(data[fieldLegacyCreatedAt])
	}
	meta, _ := data["metadata"].(map[string]any)
	return models.Summary{
		ID:          id,
		TenantID:    tenantID,
		Title:       stringField(data["title"]),
		URL:         stringField(data["url"]),
		Summary:     stringField(data["summary"]),
		Keyword:     stringField(data["keyword"]),
		SourceName:  stringField(data["source_name"]),
		PublishedAt: timestampString(data["published_at"]),
		TokenCount:  intField(data["summaryTokens"]),
		Type:        stringField(data["type"]),
		Metadata:    meta,
		CreatedAt:   created,
	}
}

func (s *Store) iterate(tenantID string, it *firestore.DocumentIterator, fn func(models.Summary) error) error {
	defer it.Stop()
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("docstore: iterate summaries: %w", err)
		}
		if err := fn(summaryFromData(snap.Ref.ID, tenantID, snap.Data())); err != nil {
			return err
		}
	}
}

// StreamStale yields summaries whose created_at string sorts before cutoff.
// Documents holding a native timestamp are not matched by a string range
// and must be normalized first.
func (s *Store) StreamStale(ctx context.Context, tenantID, cutoff string, fn func(models.Summary) error) error {
	it := s.summaries(tenantID).Where(fieldCreatedAt, "<", cutoff).Documents(ctx)
	return s.iterate(tenantID, it, fn)
}

func (s *Store) StreamSummaries(ctx context.Context, tenantID string, fn func(models.Summary) error) error {
	return s.iterate(tenantID, s.summaries(tenantID).Documents(ctx), fn)
}

// DeleteBatch deletes ids in one atomic write batch.
func (s *Store) DeleteBatch(ctx context.Context, tenantID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	batch := s.client.Batch()
	coll := s.summaries(tenantID)
	for _, id := range ids {
		batch.Delete(coll.Doc(id))
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("docstore: commit delete batch: %w", err)
	}
	return nil
}

func (s *Store) SetCreatedAt(ctx context.Context, tenantID, id, createdAt string) error {
	_, err := s.summaries(tenantID).Doc(id).Update(ctx, []firestore.Update{
		{Path: fieldCreatedAt, Value: createdAt},
		{Path: fieldLegacyCreatedAt, Value: firestore.Delete},
	})
	if status.Code(err) == codes.NotFound {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("docstore: set created_at: %w", err)
	}
	return nil
}

func (s *Store) CreateSummary(ctx context.Context, sum *models.Summary) error {
	if err := s.EnsureTenant(ctx, sum.TenantID); err != nil {
		return err
	}
	coll := s.summaries(sum.TenantID)
	ref := coll.NewDoc()
	if sum.ID != "" {
		ref = coll.Doc(sum.ID)
	}
	if sum.CreatedAt == "" {
		sum.CreatedAt = models.Now()
	}
	if _, err := ref.Create(ctx, sum); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return models.ErrDuplicate
		}
		return fmt.Errorf("docstore: create summary: %w", err)
	}
	sum.ID = ref.ID
	return nil
}

func (s *Store) ListSummaries(ctx context.Context, tenantID string, limit int) ([]models.Summary, error) {
	q := s.summaries(tenantID).OrderBy(fieldCreatedAt, firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Summary
	err := s.iterate(tenantID, q.Documents(ctx), func(sum models.Summary) error {
		out = append(out, sum)
		return nil
	})
	return out, err
}

func (s *Store) URLExists(ctx context.Context, tenantID, url string) (bool, error) {
	it := s.summaries(tenantID).Where("url", "==", url).Limit(1).Documents(ctx)
	defer it.Stop()
	_, err := it.Next()
	if errors.Is(err, iterator.Done) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("docstore: url exists: %w", err)
	}
	return true, nil
}

// ── Keywords ──────────────────────────────────────────────────────────────────

// CreateKeyword rejects a keyword the tenant already has. The check and the
// insert run in one transaction.
func (s *Store) CreateKeyword(ctx context.Context, k *models.Keyword) error {
	if err := s.EnsureTenant(ctx, k.TenantID); err != nil {
		return err
	}
	if k.CreatedAt == "" {
		k.CreatedAt = models.Now()
	}
	coll := s.keywords(k.TenantID)
	ref := coll.NewDoc()
	if k.ID != "" {
		ref = coll.Doc(k.ID)
	}
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(coll.Where("keyword", "==", k.Keyword).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return models.ErrDuplicate
		}
		return tx.Create(ref, k)
	})
	if errors.Is(err, models.ErrDuplicate) {
		return models.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("docstore: create keyword: %w", err)
	}
	k.ID = ref.ID
	return nil
}

func (s *Store) ListKeywords(ctx context.Context, tenantID string) ([]models.Keyword, error) {
	snaps, err := s.keywords(tenantID).OrderBy(fieldCreatedAt, firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("docstore: list keywords: %w", err)
	}
	out := make([]models.Keyword, 0, len(snaps))
	for _, snap := range snaps {
		var k models.Keyword
		if err := snap.DataTo(&k); err != nil {
			return nil, fmt.Errorf("docstore: decode keyword %s: %w", snap.Ref.ID, err)
		}
		k.ID = snap.Ref.ID
		k.TenantID = tenantID
		out = append(out, k)
	}
	return out, nil
}

func (s *Store) DeleteKeyword(ctx context.Context, tenantID, id string) error {
	ref := s.keywords(tenantID).Doc(id)
	// Delete with an Exists precondition fails with NotFound on a missing doc.
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrNotFound
		}
		return fmt.Errorf("docstore: delete keyword: %w", err)
	}
	return nil
}

// ListTenantKeywords returns tenants that have at least one keyword.
func (s *Store) ListTenantKeywords(ctx context.Context) ([]models.TenantKeywords, error) {
	tenants, err := s.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.TenantKeywords
	for _, id := range tenants {
		kws, err := s.ListKeywords(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(kws) == 0 {
			continue
		}
		tk := models.TenantKeywords{TenantID: id}
		for _, k := range kws {
			tk.Keywords = append(tk.Keywords, k.Keyword)
		}
		out = append(out, tk)
	}
	return out, nil
}
