// Package main provides the worker application entry point.
// The worker processes story sync tasks from the Redpanda queue.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/bubblescafe/storyapi/internal/adapter/cache"
	"github.com/bubblescafe/storyapi/internal/adapter/observability"
	"github.com/bubblescafe/storyapi/internal/adapter/queue/redpanda"
	"github.com/bubblescafe/storyapi/internal/adapter/repo/postgres"
	"github.com/bubblescafe/storyapi/internal/adapter/wordpress"
	"github.com/bubblescafe/storyapi/internal/config"
	"github.com/bubblescafe/storyapi/internal/domain"
	"github.com/bubblescafe/storyapi/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Worker exposes its own /metrics endpoint for scraping.
	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	pool, err := postgres.NewPool(context.Background(), cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	storyRepo := postgres.NewStoryRepo(pool)
	runRepo := postgres.NewSyncRunRepo(pool)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()
	contentCache := cache.New(rdb, cfg.ContentCacheTTL)

	// Producer with a transactional ID distinct from the HTTP server's to
	// avoid conflicts across processes.
	producer, err := redpanda.NewProducerWithTransactionalID(cfg.KafkaBrokers, "storyapi-worker-producer")
	if err != nil {
		slog.Error("queue producer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue producer", slog.Any("error", err))
		}
	}()

	source := wordpress.New(cfg)
	syncSvc := usecase.NewSyncService(storyRepo, runRepo, source, contentCache, producer, cfg.SyncPages, cfg.SyncPerPage)

	handler := func(ctx context.Context, payload domain.SyncTaskPayload) error {
		start := time.Now()
		report, err := syncSvc.Apply(ctx, payload)
		observability.SyncDuration.Observe(time.Since(start).Seconds())
		observability.SyncStoriesUpsertedTotal.Add(float64(report.Written))
		for reason, n := range report.SkippedByReason {
			observability.SyncStoriesSkippedTotal.WithLabelValues(reason).Add(float64(n))
		}
		return err
	}

	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.ConsumerMaxConcurrency, handler)
	if err != nil {
		slog.Error("consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			slog.Error("failed to close consumer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		slog.Error("consumer stopped", slog.Any("error", err))
		os.Exit(1)
	}

	// Give in-flight tasks a moment to finish after the signal.
	time.Sleep(time.Second)
	slog.Info("worker stopped")
}
