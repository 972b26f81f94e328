package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/fabriziosalmi/newsportal/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pageSize bounds rows held in memory while streaming.
const pageSize = 500

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ── TenantRepository ──────────────────────────────────────────────────────────

type TenantRepository struct{ db *pgxpool.Pool }

func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: db}
}

// Ensure creates the tenant row if it does not exist yet.
func (r *TenantRepository) Ensure(ctx context.Context, id string) error {
	const q = `INSERT INTO tenants(id,created_at) VALUES($1,$2) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.Exec(ctx, q, id, models.Now()); err != nil {
		return fmt.Errorf("tenant ensure: %w", err)
	}
	return nil
}

func (r *TenantRepository) List(ctx context.Context) ([]string, error) {
	const q = `SELECT id FROM tenants ORDER BY id`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("tenant list: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("tenant list: %w", err)
	}
	return ids, nil
}

// ── KeywordRepository ─────────────────────────────────────────────────────────

type KeywordRepository struct{ db *pgxpool.Pool }

func NewKeywordRepository(db *pgxpool.Pool) *KeywordRepository {
	return &KeywordRepository{db: db}
}

// Create inserts k, filling ID and CreatedAt when empty. A keyword the tenant
// already has yields models.ErrDuplicate.
func (r *KeywordRepository) Create(ctx context.Context, k *models.Keyword) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	if k.CreatedAt == "" {
		k.CreatedAt = models.Now()
	}
	const q = `INSERT INTO keywords(id,tenant_id,keyword,created_at) VALUES($1,$2,$3,$4)`
	if _, err := r.db.Exec(ctx, q, k.ID, k.TenantID, k.Keyword, k.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicate
		}
		return fmt.Errorf("keyword create: %w", err)
	}
	return nil
}

func (r *KeywordRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.Keyword, error) {
	const q = `SELECT id,tenant_id,keyword,created_at FROM keywords
		WHERE tenant_id=$1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("keyword list: %w", err)
	}
	defer rows.Close()
	var out []models.Keyword
	for rows.Next() {
		var k models.Keyword
		if err := rows.Scan(&k.ID, &k.TenantID, &k.Keyword, &k.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *KeywordRepository) Delete(ctx context.Context, tenantID, id string) error {
	const q = `DELETE FROM keywords WHERE tenant_id=$1 AND id=$2`
	tag, err := r.db.Exec(ctx, q, tenantID, id)
	if err != nil {
		return fmt.Errorf("keyword delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListAll groups every keyword by tenant, tenants in id order.
func (r *KeywordRepository) ListAll(ctx context.Context) ([]models.TenantKeywords, error) {
	const q = `SELECT tenant_id,keyword FROM keywords ORDER BY tenant_id, created_at`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("keyword list all: %w", err)
	}
	defer rows.Close()
	var out []models.TenantKeywords
	for rows.Next() {
		var tenantID, keyword string
		if err := rows.Scan(&tenantID, &keyword); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].TenantID != tenantID {
			out = append(out, models.TenantKeywords{TenantID: tenantID})
		}
		last := &out[len(out)-1]
		last.Keywords = append(last.Keywords, keyword)
	}
	return out, rows.Err()
}

// ── SummaryRepository ─────────────────────────────────────────────────────────

type SummaryRepository struct{ db *pgxpool.Pool }

func NewSummaryRepository(db *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{db: db}
}

const summaryColumns = `id,tenant_id,title,url,summary,keyword,source_name,published_at,
	summary_tokens,type,metadata,created_at`

func scanSummary(row pgx.Row) (models.Summary, error) {
	var s models.Summary
	err := row.Scan(&s.ID, &s.TenantID, &s.Title, &s.URL, &s.Summary, &s.Keyword,
		&s.SourceName, &s.PublishedAt, &s.TokenCount, &s.Type, &s.Metadata, &s.CreatedAt)
	return s, err
}

// Create inserts s, filling ID and CreatedAt when empty.
func (r *SummaryRepository) Create(ctx context.Context, s *models.Summary) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt == "" {
		s.CreatedAt = models.Now()
	}
	const q = `INSERT INTO summaries(` + summaryColumns + `)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.db.Exec(ctx, q, s.ID, s.TenantID, s.Title, s.URL, s.Summary, s.Keyword,
		s.SourceName, s.PublishedAt, s.TokenCount, s.Type, s.Metadata, s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicate
		}
		return fmt.Errorf("summary create: %w", err)
	}
	return nil
}

// ListByTenant returns the newest summaries first.
func (r *SummaryRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.Summary, error) {
	const q = `SELECT ` + summaryColumns + ` FROM summaries
		WHERE tenant_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.db.Query(ctx, q, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("summary list: %w", err)
	}
	defer rows.Close()
	var out []models.Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SummaryRepository) URLExists(ctx context.Context, tenantID, url string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM summaries WHERE tenant_id=$1 AND url=$2)`
	var ok bool
	if err := r.db.QueryRow(ctx, q, tenantID, url).Scan(&ok); err != nil {
		return false, fmt.Errorf("summary url exists: %w", err)
	}
	return ok, nil
}

// StreamStale pages through summaries with created_at < cutoff using a
// (created_at, id) cursor. Each page is read fully before fn runs, so fn may
// delete rows without disturbing the cursor.
func (r *SummaryRepository) StreamStale(ctx context.Context, tenantID, cutoff string, fn func(models.Summary) error) error {
	const q = `SELECT ` + summaryColumns + ` FROM summaries
		WHERE tenant_id=$1 AND created_at < $2 AND (created_at, id) > ($3, $4)
		ORDER BY created_at, id LIMIT $5`
	var lastCreated, lastID string
	for {
		page, err := r.page(ctx, q, tenantID, cutoff, lastCreated, lastID, pageSize)
		if err != nil {
			return fmt.Errorf("summary stream stale: %w", err)
		}
		for _, s := range page {
			if err := fn(s); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
		last := page[len(page)-1]
		lastCreated, lastID = last.CreatedAt, last.ID
	}
}

// StreamAll pages through every summary of the tenant in id order.
func (r *SummaryRepository) StreamAll(ctx context.Context, tenantID string, fn func(models.Summary) error) error {
	const q = `SELECT ` + summaryColumns + ` FROM summaries
		WHERE tenant_id=$1 AND id > $2 ORDER BY id LIMIT $3`
	var lastID string
	for {
		page, err := r.page(ctx, q, tenantID, lastID, pageSize)
		if err != nil {
			return fmt.Errorf("summary stream: %w", err)
		}
		for _, s := range page {
			if err := fn(s); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
		lastID = page[len(page)-1].ID
	}
}

func (r *SummaryRepository) page(ctx context.Context, q string, args ...any) ([]models.Summary, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Summary, 0, pageSize)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteBatch removes ids of one tenant in a single statement.
func (r *SummaryRepository) DeleteBatch(ctx context.Context, tenantID string, ids []string) error {
	const q = `DELETE FROM summaries WHERE tenant_id=$1 AND id = ANY($2)`
	if _, err := r.db.Exec(ctx, q, tenantID, ids); err != nil {
		return fmt.Errorf("summary delete batch: %w", err)
	}
	return nil
}

func (r *SummaryRepository) SetCreatedAt(ctx context.Context, tenantID, id, createdAt string) error {
	const q = `UPDATE summaries SET created_at=$3 WHERE tenant_id=$1 AND id=$2`
	tag, err := r.db.Exec(ctx, q, tenantID, id, createdAt)
	if err != nil {
		return fmt.Errorf("summary set created_at: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
