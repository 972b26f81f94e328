package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fabriziosalmi/newsportal/internal/api/middleware"
	"github.com/fabriziosalmi/newsportal/internal/models"
	"github.com/fabriziosalmi/newsportal/internal/queue"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Store is the tenant-scoped data access used by the handlers.
type Store interface {
	EnsureTenant(ctx context.Context, tenantID string) error
	CreateKeyword(ctx context.Context, k *models.Keyword) error
	ListKeywords(ctx context.Context, tenantID string) ([]models.Keyword, error)
	DeleteKeyword(ctx context.Context, tenantID, id string) error
	CreateSummary(ctx context.Context, s *models.Summary) error
	ListSummaries(ctx context.Context, tenantID string, limit int) ([]models.Summary, error)
	Ping(ctx context.Context) error
}

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher fans keyword searches out to the worker.
type Dispatcher interface {
	Dispatch(ctx context.Context) (int, error)
}

// ArchiveReader reads back archived summaries. Nil when archiving is off.
type ArchiveReader interface {
	Fetch(ctx context.Context, key string) ([]models.Summary, error)
}

type Handlers struct {
	store      Store
	queue      Enqueuer
	dispatcher Dispatcher
	archive    ArchiveReader
	version    string
	redisAddr  string
}

type Options struct {
	Version   string
	RedisAddr string
	Archive   ArchiveReader
}

func NewHandlers(store Store, queue Enqueuer, dispatcher Dispatcher, opts Options) *Handlers {
	return &Handlers{
		store:      store,
		queue:      queue,
		dispatcher: dispatcher,
		archive:    opts.Archive,
		version:    opts.Version,
		redisAddr:  opts.RedisAddr,
	}
}

// ── Error helpers ─────────────────────────────────────────────────────────────

type errResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	ReqID   string            `json:"request_id,omitempty"`
}

func apiErr(c echo.Context, code int, msg string) error {
	reqID, _ := c.Get(middleware.ContextKeyRequestID).(string)
	return c.JSON(code, errResponse{Code: code, Message: msg, ReqID: reqID})
}

// bind decodes and validates a request body. It writes the 400 response
// itself and reports false when the handler should stop.
func bind(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, apiErr(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		reqID, _ := c.Get(middleware.ContextKeyRequestID).(string)
		return false, c.JSON(http.StatusBadRequest, errResponse{
			Code:    http.StatusBadRequest,
			Message: "validation failed",
			Fields:  FormatValidationError(err),
			ReqID:   reqID,
		})
	}
	return true, nil
}

// mustTenantID extracts the authenticated tenant from the Echo context.
func mustTenantID(c echo.Context) (string, error) {
	v, ok := c.Get(middleware.ContextKeyTenantID).(string)
	if !ok || v == "" {
		return "", apiErr(c, http.StatusInternalServerError, "auth context missing")
	}
	return v, nil
}

// ── Service ───────────────────────────────────────────────────────────────────

func (h *Handlers) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "API is running"})
}

type depStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status  string               `json:"status"`
	Version string               `json:"version"`
	Deps    map[string]depStatus `json:"deps"`
}

// Health pings the store and Redis.
func (h *Handlers) Health(c echo.Context) error {
	deps := make(map[string]depStatus)
	overall := "ok"

	pingCtx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(pingCtx); err != nil {
		deps["store"] = depStatus{Status: "error", Error: err.Error()}
		overall = "degraded"
	} else {
		deps["store"] = depStatus{Status: "ok"}
	}

	if h.redisAddr != "" {
		conn, dialErr := (&net.Dialer{}).DialContext(pingCtx, "tcp", h.redisAddr)
		if dialErr != nil {
			deps["redis"] = depStatus{Status: "error", Error: dialErr.Error()}
			overall = "degraded"
		} else {
			conn.Close()
			deps["redis"] = depStatus{Status: "ok"}
		}
	}

	status := http.StatusOK
	if overall != "ok" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, healthResponse{Status: overall, Version: h.version, Deps: deps})
}

// ── Keyword Handlers ──────────────────────────────────────────────────────────

type CreateKeywordRequest struct {
	Keyword string `json:"keyword" validate:"required,keyword,max=100"`
}

func (h *Handlers) CreateKeyword(c echo.Context) error {
	tenantID, err := mustTenantID(c)
	if err != nil {
		return err
	}

	var req CreateKeywordRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	k := &models.Keyword{
		TenantID:  tenantID,
		Keyword:   strings.TrimSpace(req.Keyword),
		CreatedAt: models.Now(),
	}
	if err := h.store.CreateKeyword(c.Request().Context(), k); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return apiErr(c, http.StatusConflict, "keyword already exists")
		}
		c.Logger().Errorf("create keyword: %v", err)
		return apiErr(c, http.StatusInternalServerError, "failed to create keyword")
	}

	return c.JSON(http.StatusCreated, map[string]string{"id": k.ID})
}

func (h *Handlers) ListKeywords(c echo.Context) error {
	tenantID, err := mustTenantID(c)
	if err != nil {
		return err
	}

	keywords, err := h.store.ListKeywords(c.Request().Context(), tenantID)
	if err != nil {
		c.Logger().Errorf("list keywords: %v", err)
		return apiErr(c, http.StatusInternalServerError, "failed to list keywords")
	}
	if keywords == nil {
		keywords = []models.Keyword{}
	}
	return c.JSON(http.StatusOK, keywords)
}

func (h *Handlers) DeleteKeyword(c echo.Context) error {
	tenantID, err := mustTenantID(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	if id == "" {
		return apiErr(c, http.StatusBadRequest, "invalid id")
	}

	if err := h.store.DeleteKeyword(c.Request().Context(), tenantID, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return apiErr(c, http.StatusNotFound, "keyword not found")
		}
		c.Logger().Errorf("delete keyword %s: %v", id, err)
		return apiErr(c, http.StatusInternalServerError, "failed to delete keyword")
	}
	return c.NoContent(http.StatusNoContent)
}

// ── Summary Handlers ──────────────────────────────────────────────────────────

type CreateSummaryRequest struct {
	Title       string         `json:"title"        validate:"required,max=500"`
	URL         string         `json:"url"          validate:"required,url"`
	Summary     string         `json:"summary"      validate:"max=20000"`
	Keyword     string         `json:"keyword"      validate:"max=100"`
	SourceName  string         `json:"source_name"  validate:"max=200"`
	PublishedAt string         `json:"published_at"`
	Type        string         `json:"type"         validate:"max=50"`
	Metadata    map[string]any `json:"metadata"`
}

func (h *Handlers) CreateSummary(c echo.Context) error {
	tenantID, err := mustTenantID(c)
	if err != nil {
		return err
	}

	var req CreateSummaryRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx := c.Request().Context()
	if err := h.store.EnsureTenant(ctx, tenantID); err != nil {
		c.Logger().Errorf("ensure tenant %s: %v", tenantID, err)
		return apiErr(c, http.StatusInternalServerError, "failed to save summary")
	}

	s := &models.Summary{
		TenantID:    tenantID,
		Title:       req.Title,
		URL:         req.URL,
		Summary:     req.Summary,
		Keyword:     req.Keyword,
		SourceName:  req.SourceName,
		PublishedAt: req.PublishedAt,
		TokenCount:  len(strings.Fields(req.Summary)),
		Type:        req.Type,
		Metadata:    req.Metadata,
		CreatedAt:   models.Now(),
	}
	if err := h.store.CreateSummary(ctx, s); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return apiErr(c, http.StatusConflict, "summary already exists")
		}
		c.Logger().Errorf("create summary: %v", err)
		return apiErr(c, http.StatusInternalServerError, "failed to save summary")
	}
	return c.JSON(http.StatusCreated, s)
}

// ListSummaries returns the tenant's summaries, newest first.
func (h *Handlers) ListSummaries(c echo.Context) error {
	tenantID, err := mustTenantID(c)
	if err != nil {
		return err
	}

	limit := defaultListLimit
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			return apiErr(c, http.StatusBadRequest, "invalid limit")
		}
		limit = min(n, maxListLimit)
	}

	summaries, err := h.store.ListSummaries(c.Request().Context(), tenantID, limit)
	if err != nil {
		c.Logger().Errorf("list summaries: %v", err)
		return apiErr(c, http.StatusInternalServerError, "failed to list summaries")
	}
	if summaries == nil {
		summaries = []models.Summary{}
	}
	return c.JSON(http.StatusOK, summaries)
}

// ── Admin Handlers ────────────────────────────────────────────────────────────

type TriggerCleanupRequest struct {
	RetentionDays *int `json:"retention_days" validate:"omitempty,min=7,max=365"`
}

// TriggerCleanup enqueues an immediate retention cleanup.
func (h *Handlers) TriggerCleanup(c echo.Context) error {
	var req TriggerCleanupRequest
	if c.Request().ContentLength != 0 {
		if ok, err := bind(c, &req); !ok {
			return err
		}
	}

	task, err := queue.NewCleanupTask(req.RetentionDays)
	if err != nil {
		return apiErr(c, http.StatusInternalServerError, "failed to create cleanup task")
	}

	info, err := h.queue.EnqueueContext(c.Request().Context(), task)
	if err != nil {
		c.Logger().Errorf("enqueue cleanup: %v", err)
		return apiErr(c, http.StatusInternalServerError, "failed to enqueue cleanup task")
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"task_id": info.ID,
		"status":  info.State.String(),
	})
}

// TriggerSummaries dispatches keyword searches for every tenant now.
func (h *Handlers) TriggerSummaries(c echo.Context) error {
	users, err := h.dispatcher.Dispatch(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("dispatch keywords: %v", err)
		return apiErr(c, http.StatusInternalServerError, "failed to trigger summaries")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "triggered",
		"users":  users,
	})
}

// GetArchive returns the summaries stored under one archive key.
func (h *Handlers) GetArchive(c echo.Context) error {
	if h.archive == nil {
		return apiErr(c, http.StatusNotFound, "archiving is disabled")
	}
	key := c.QueryParam("key")
	if key == "" || strings.Contains(key, "..") {
		return apiErr(c, http.StatusBadRequest, "invalid key")
	}

	summaries, err := h.archive.Fetch(c.Request().Context(), key)
	if err != nil {
		c.Logger().Errorf("fetch archive %s: %v", key, err)
		return apiErr(c, http.StatusNotFound, "archive not found")
	}
	return c.JSON(http.StatusOK, summaries)
}
