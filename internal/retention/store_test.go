package retention

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fabriziosalmi/newsportal/internal/models"
	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory TenantStore and TimestampStore.
type memStore struct {
	mu      sync.Mutex
	tenants []string
	docs    map[string]map[string]models.Summary

	listErr     error
	queryErr    map[string]error
	commitErr   map[string]error
	updateErr   map[string]error
	panicTenant string

	commits map[string][]int
	cutoffs []string
	updates int
}

func newMemStore() *memStore {
	return &memStore{
		docs:      map[string]map[string]models.Summary{},
		queryErr:  map[string]error{},
		commitErr: map[string]error{},
		updateErr: map[string]error{},
		commits:   map[string][]int{},
	}
}

func (m *memStore) addTenant(id string) {
	m.tenants = append(m.tenants, id)
	if m.docs[id] == nil {
		m.docs[id] = map[string]models.Summary{}
	}
}

func (m *memStore) put(tenantID, id, createdAt string) {
	if m.docs[tenantID] == nil {
		m.addTenant(tenantID)
	}
	m.docs[tenantID][id] = models.Summary{ID: id, TenantID: tenantID, Title: id, CreatedAt: createdAt}
}

// seed adds n summaries created at ts, ids prefixed with prefix.
func (m *memStore) seed(tenantID, prefix string, n int, ts time.Time) {
	for i := 0; i < n; i++ {
		m.put(tenantID, fmt.Sprintf("%s-%04d", prefix, i), models.FormatTimestamp(ts))
	}
}

func (m *memStore) count(tenantID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[tenantID])
}

func (m *memStore) has(tenantID, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[tenantID][id]
	return ok
}

func (m *memStore) snapshot(tenantID string, keep func(models.Summary) bool) []models.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Summary
	for _, s := range m.docs[tenantID] {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ListTenants(_ context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.tenants...), nil
}

func (m *memStore) StreamStale(_ context.Context, tenantID, cutoff string, fn func(models.Summary) error) error {
	if tenantID == m.panicTenant {
		panic("store exploded")
	}
	if err := m.queryErr[tenantID]; err != nil {
		return err
	}
	m.mu.Lock()
	m.cutoffs = append(m.cutoffs, cutoff)
	m.mu.Unlock()
	for _, s := range m.snapshot(tenantID, func(s models.Summary) bool { return s.CreatedAt < cutoff }) {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) DeleteBatch(_ context.Context, tenantID string, ids []string) error {
	if err := m.commitErr[tenantID]; err != nil {
		return err
	}
	if len(ids) > MaxBatchSize {
		return fmt.Errorf("batch of %d exceeds limit", len(ids))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs[tenantID], id)
	}
	m.commits[tenantID] = append(m.commits[tenantID], len(ids))
	return nil
}

func (m *memStore) StreamSummaries(_ context.Context, tenantID string, fn func(models.Summary) error) error {
	if err := m.queryErr[tenantID]; err != nil {
		return err
	}
	for _, s := range m.snapshot(tenantID, func(models.Summary) bool { return true }) {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) SetCreatedAt(_ context.Context, tenantID, id, createdAt string) error {
	if err := m.updateErr[tenantID]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.docs[tenantID][id]
	if !ok {
		return models.ErrNotFound
	}
	s.CreatedAt = createdAt
	m.docs[tenantID][id] = s
	m.updates++
	return nil
}

// MockArchiver records archive calls by batch length.
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, tenantID, cutoff string, batch []models.Summary) error {
	args := m.Called(ctx, tenantID, cutoff, len(batch))
	return args.Error(0)
}
