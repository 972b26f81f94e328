package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fabriziosalmi/newsportal/internal/backend"
	"github.com/fabriziosalmi/newsportal/internal/config"
	"github.com/fabriziosalmi/newsportal/internal/llm"
	"github.com/fabriziosalmi/newsportal/internal/notifications"
	"github.com/fabriziosalmi/newsportal/internal/queue"
	"github.com/fabriziosalmi/newsportal/internal/worker"
	"github.com/fabriziosalmi/newsportal/pkg/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Must("production", "").Fatal("failed to load config", zap.Error(err))
	}

	log := logger.Must(cfg.App.Env, cfg.App.LogLevel).With(zap.String("component", "worker"))
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Init store
	store, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	// 2. Init cleanup (store + optional archive)
	cleaner, err := backend.NewCleaner(ctx, cfg, store, log)
	if err != nil {
		log.Fatal("failed to init cleanup", zap.Error(err))
	}
	notifier := notifications.New(cfg.Notifications.SlackWebhookURL, log.Named("alerts"))

	// 3. Init Queue
	redisOpt := queue.RedisOpt(cfg.Redis)
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	// 4. Init Processors
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeSummaryCleanup,
		worker.NewCleanupProcessor(cleaner, notifier, log.Named("cleanup")).ProcessTask)

	news, err := llm.New(cfg.LLM)
	if err != nil {
		log.Warn("news summarization disabled", zap.Error(err))
	} else {
		summarize := worker.NewSummarizeProcessor(store, news, cfg.LLM.MaxResults, cfg.LLM.RateLimit, log.Named("summarize"))
		mux.HandleFunc(queue.TypeNewsSummarize, summarize.ProcessTask)

		dispatcher := worker.NewKeywordDispatcher(store, queueClient, log.Named("dispatcher"), cfg.Worker.DispatchInterval)
		go dispatcher.Run(ctx)
	}

	// 5. Register the cleanup cron
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   log.Named("scheduler").Sugar(),
	})
	var retentionDays *int
	if cfg.Retention.RetentionDays != 0 {
		d := cfg.Retention.RetentionDays
		retentionDays = &d
	}
	// Unique keeps a slow run from overlapping the next tick.
	cleanupTask, err := queue.NewCleanupTask(retentionDays, asynq.Unique(time.Hour))
	if err != nil {
		log.Fatal("failed to build cleanup task", zap.Error(err))
	}
	entryID, err := scheduler.Register(cfg.Retention.Schedule, cleanupTask)
	if err != nil {
		log.Fatal("failed to register cleanup schedule", zap.String("schedule", cfg.Retention.Schedule), zap.Error(err))
	}
	log.Info("cleanup scheduled", zap.String("schedule", cfg.Retention.Schedule), zap.String("entry_id", entryID))
	if err := scheduler.Start(); err != nil {
		log.Fatal("could not start scheduler", zap.Error(err))
	}

	// 6. Metrics listener
	var metricsSrv *http.Server
	if cfg.Worker.MetricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: metricsMux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	// 7. Start Worker Server
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				queue.QueueCritical: 6,
				queue.QueueDefault:  3,
				queue.QueueLow:      1,
			},
			Logger: log.Named("asynq").Sugar(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("task failed", zap.String("type", task.Type()), zap.Error(err))
			}),
		},
	)
	if err := srv.Start(mux); err != nil {
		log.Fatal("could not run server", zap.Error(err))
	}
	log.Info("worker started", zap.String("store", cfg.Store.Backend), zap.String("redis", cfg.Redis.Addr))

	// 8. Graceful Shutdown
	<-ctx.Done()
	log.Info("shutting down worker...")
	srv.Shutdown()
	scheduler.Shutdown()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}
