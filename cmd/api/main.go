package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fabriziosalmi/newsportal/internal/api/handlers"
	apimw "github.com/fabriziosalmi/newsportal/internal/api/middleware"
	"github.com/fabriziosalmi/newsportal/internal/api/routes"
	"github.com/fabriziosalmi/newsportal/internal/backend"
	"github.com/fabriziosalmi/newsportal/internal/config"
	"github.com/fabriziosalmi/newsportal/internal/queue"
	"github.com/fabriziosalmi/newsportal/internal/worker"
	"github.com/fabriziosalmi/newsportal/pkg/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Must("production", "").Fatal("failed to load config", zap.Error(err))
	}

	log := logger.Must(cfg.App.Env, cfg.App.LogLevel).With(zap.String("component", "api"))
	defer func() { _ = log.Sync() }()

	if cfg.JWT.Secret == "" {
		log.Fatal("jwt secret is required (NEWSPORTAL_JWT_SECRET)")
	}
	if cfg.API.AdminToken == "" {
		log.Warn("admin token not set, /admin routes are locked")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Init store
	store, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	// 2. Init archive reader (optional)
	arch, err := backend.OpenArchiver(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to init archive", zap.Error(err))
	}
	opts := handlers.Options{Version: cfg.App.Version, RedisAddr: cfg.Redis.Addr}
	if arch != nil {
		opts.Archive = arch
	}

	// 3. Init Queue client (admin triggers)
	queueClient := asynq.NewClient(queue.RedisOpt(cfg.Redis))
	defer queueClient.Close()
	dispatcher := worker.NewKeywordDispatcher(store, queueClient, log.Named("dispatcher"), cfg.Worker.DispatchInterval)

	// 4. Init Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(apimw.RequestID())
	e.Use(apimw.RequestLogger(log.Named("http")))
	e.Use(apimw.Metrics())
	e.Use(apimw.SecurityHeaders())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAccept, apimw.HeaderAdminToken},
		MaxAge:       3600,
	}))
	e.Use(echomw.GzipWithConfig(echomw.GzipConfig{Level: 5}))
	e.Use(apimw.RateLimit(ctx, cfg.API.RateLimit, cfg.API.RateBurst))

	// 5. Register Routes
	h := handlers.NewHandlers(store, queueClient, dispatcher, opts)
	routes.Register(e, h, routes.Config{JWTSecret: cfg.JWT.Secret, AdminToken: cfg.API.AdminToken})

	// 6. Start Server
	go func() {
		addr := ":" + strconv.Itoa(cfg.App.Port)
		log.Info("api listening", zap.String("addr", addr), zap.String("store", cfg.Store.Backend))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	// 7. Graceful Shutdown
	<-ctx.Done()
	log.Info("shutting down server...")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := e.Shutdown(ctxShutdown); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
}
