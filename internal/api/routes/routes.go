package routes

import (
	"github.com/fabriziosalmi/newsportal/internal/api/handlers"
	"github.com/fabriziosalmi/newsportal/internal/api/middleware"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	JWTSecret  string
	AdminToken string
}

func Register(e *echo.Echo, h *handlers.Handlers, cfg Config) {
	e.Validator = handlers.NewRequestValidator()

	e.GET("/", h.Root)
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// JWT protected, scoped to the token's tenant
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))

	api.POST("/keywords", h.CreateKeyword)
	api.GET("/keywords", h.ListKeywords)
	api.DELETE("/keywords/:id", h.DeleteKeyword)

	api.POST("/summaries", h.CreateSummary)
	api.GET("/summaries", h.ListSummaries)

	// Operator routes
	admin := e.Group("/admin")
	admin.Use(middleware.AdminAuth(cfg.AdminToken))

	admin.POST("/cleanup", h.TriggerCleanup)
	admin.POST("/summaries/trigger", h.TriggerSummaries)
	admin.GET("/archive", h.GetArchive)
}
