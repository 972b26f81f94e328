package routes_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fabriziosalmi/newsportal/internal/api/handlers"
	"github.com/fabriziosalmi/newsportal/internal/api/middleware"
	"github.com/fabriziosalmi/newsportal/internal/api/routes"
	"github.com/fabriziosalmi/newsportal/internal/auth"
	"github.com/fabriziosalmi/newsportal/internal/models"
	"github.com/fabriziosalmi/newsportal/internal/queue"
)

const (
	jwtSecret  = "route-test-secret-that-is-long-enough"
	adminToken = "admin-test-token"
)

// memStore is a tenant-scoped in-memory store.
type memStore struct {
	mu        sync.Mutex
	seq       int
	keywords  map[string][]models.Keyword
	summaries map[string][]models.Summary
	pingErr   error
}

func newMemStore() *memStore {
	return &memStore{
		keywords:  make(map[string][]models.Keyword),
		summaries: make(map[string][]models.Summary),
	}
}

func (s *memStore) EnsureTenant(context.Context, string) error { return nil }

func (s *memStore) CreateKeyword(_ context.Context, k *models.Keyword) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.keywords[k.TenantID] {
		if existing.Keyword == k.Keyword {
			return models.ErrDuplicate
		}
	}
	s.seq++
	k.ID = fmt.Sprintf("kw-%d", s.seq)
	s.keywords[k.TenantID] = append(s.keywords[k.TenantID], *k)
	return nil
}

func (s *memStore) ListKeywords(_ context.Context, tenantID string) ([]models.Keyword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Keyword(nil), s.keywords[tenantID]...), nil
}

func (s *memStore) DeleteKeyword(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.keywords[tenantID]
	for i, k := range list {
		if k.ID == id {
			s.keywords[tenantID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *memStore) CreateSummary(_ context.Context, sum *models.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	sum.ID = fmt.Sprintf("sum-%d", s.seq)
	s.summaries[sum.TenantID] = append(s.summaries[sum.TenantID], *sum)
	return nil
}

func (s *memStore) ListSummaries(_ context.Context, tenantID string, limit int) ([]models.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.Summary(nil), s.summaries[tenantID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) Ping(context.Context) error { return s.pingErr }

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type testServer struct {
	e          *echo.Echo
	store      *memStore
	queue      *MockEnqueuer
	dispatcher *MockDispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		e:          echo.New(),
		store:      newMemStore(),
		queue:      new(MockEnqueuer),
		dispatcher: new(MockDispatcher),
	}
	ts.e.Use(middleware.RequestID(), middleware.Metrics())
	h := handlers.NewHandlers(ts.store, ts.queue, ts.dispatcher, handlers.Options{Version: "test"})
	routes.Register(ts.e, h, routes.Config{JWTSecret: jwtSecret, AdminToken: adminToken})
	return ts
}

func tokenFor(t *testing.T, tenantID string) string {
	t.Helper()
	tok, err := auth.IssueJWT(jwtSecret, tenantID, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func bearer(tok string) map[string]string {
	return map[string]string{echo.HeaderAuthorization: "Bearer " + tok}
}

// ── public ────────────────────────────────────────────────────────────────────

func TestRoot(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"API is running"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	ts.store.pingErr = errors.New("connection refused")
	rec = ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ── auth ──────────────────────────────────────────────────────────────────────

func TestAPI_RequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/keywords", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/keywords", "", map[string]string{echo.HeaderAuthorization: "Basic abc"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/keywords", "", bearer("not-a-jwt"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdmin_RequiresAdminToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/admin/summaries/trigger", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A tenant JWT is not an admin credential.
	rec = ts.do(http.MethodPost, "/admin/summaries/trigger", "", bearer(tokenFor(t, "user-1")))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ts.dispatcher.On("Dispatch", mock.Anything).Return(0, nil)
	rec = ts.do(http.MethodPost, "/admin/summaries/trigger", "", map[string]string{middleware.HeaderAdminToken: adminToken})
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ── keywords ──────────────────────────────────────────────────────────────────

func TestKeywords_CRUD(t *testing.T) {
	ts := newTestServer(t)
	h := bearer(tokenFor(t, "user-1"))

	rec := ts.do(http.MethodPost, "/api/v1/keywords", `{"keyword":"golang"}`, h)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"]
	require.NotEmpty(t, id)

	rec = ts.do(http.MethodPost, "/api/v1/keywords", `{"keyword":"golang"}`, h)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/keywords", "", h)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Keyword
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "golang", list[0].Keyword)
	assert.True(t, models.IsCanonical(list[0].CreatedAt))

	// Another tenant cannot delete it.
	rec = ts.do(http.MethodDelete, "/api/v1/keywords/"+id, "", bearer(tokenFor(t, "user-2")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/v1/keywords/"+id, "", h)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/v1/keywords/"+id, "", h)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKeywords_Validation(t *testing.T) {
	ts := newTestServer(t)
	h := bearer(tokenFor(t, "user-1"))

	tests := []struct {
		name string
		body string
	}{
		{"missing", `{}`},
		{"blank", `{"keyword":"   "}`},
		{"control chars", `{"keyword":"go\u0000lang"}`},
		{"too long", fmt.Sprintf(`{"keyword":%q}`, strings.Repeat("k", 101))},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/v1/keywords", tt.body, h)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// ── summaries ─────────────────────────────────────────────────────────────────

func TestSummaries_CreateAndList(t *testing.T) {
	ts := newTestServer(t)
	h := bearer(tokenFor(t, "user-1"))

	rec := ts.do(http.MethodPost, "/api/v1/summaries",
		`{"title":"First","url":"https://example.com/1","summary":"one two three"}`, h)
	require.Equal(t, http.StatusCreated, rec.Code)
	var first models.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, 3, first.TokenCount)
	assert.True(t, models.IsCanonical(first.CreatedAt))

	// Canonical timestamps have microsecond resolution.
	time.Sleep(2 * time.Millisecond)
	rec = ts.do(http.MethodPost, "/api/v1/summaries", `{"title":"Second","url":"https://example.com/2"}`, h)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/summaries", "", h)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].Title)
	assert.Equal(t, "First", list[1].Title)

	rec = ts.do(http.MethodGet, "/api/v1/summaries?limit=1", "", h)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = ts.do(http.MethodGet, "/api/v1/summaries?limit=zero", "", h)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Other tenants see nothing.
	rec = ts.do(http.MethodGet, "/api/v1/summaries", "", bearer(tokenFor(t, "user-2")))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSummaries_Validation(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/v1/summaries", `{"title":"x","url":"not a url"}`, bearer(tokenFor(t, "user-1")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid URL", resp.Fields["url"])
}

// ── admin ─────────────────────────────────────────────────────────────────────

func TestAdmin_TriggerCleanup(t *testing.T) {
	ts := newTestServer(t)
	admin := map[string]string{middleware.HeaderAdminToken: adminToken}

	var enqueued *asynq.Task
	ts.queue.On("EnqueueContext", mock.Anything, mock.AnythingOfType("*asynq.Task")).
		Run(func(args mock.Arguments) { enqueued = args.Get(1).(*asynq.Task) }).
		Return(&asynq.TaskInfo{ID: "task-1", State: asynq.TaskStatePending}, nil)

	rec := ts.do(http.MethodPost, "/admin/cleanup", `{"retention_days":90}`, admin)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"task_id":"task-1"`)

	require.NotNil(t, enqueued)
	assert.Equal(t, queue.TypeSummaryCleanup, enqueued.Type())
	var trig queue.CleanupTrigger
	require.NoError(t, json.Unmarshal(enqueued.Payload(), &trig))
	assert.JSONEq(t, `{"retention_days":90}`, string(trig.Message.Data))

	// No body: the worker applies the default.
	rec = ts.do(http.MethodPost, "/admin/cleanup", "", admin)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = ts.do(http.MethodPost, "/admin/cleanup", `{"retention_days":3}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_TriggerSummaries(t *testing.T) {
	ts := newTestServer(t)
	admin := map[string]string{middleware.HeaderAdminToken: adminToken}

	ts.dispatcher.On("Dispatch", mock.Anything).Return(3, nil).Once()
	rec := ts.do(http.MethodPost, "/admin/summaries/trigger", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"triggered","users":3}`, rec.Body.String())

	ts.dispatcher.On("Dispatch", mock.Anything).Return(0, errors.New("db down")).Once()
	rec = ts.do(http.MethodPost, "/admin/summaries/trigger", "", admin)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdmin_ArchiveDisabled(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/admin/archive?key=summaries/u/x.ndjson.gz", "", map[string]string{middleware.HeaderAdminToken: adminToken})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
