// Command server starts the story platform HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/bubblescafe/storyapi/internal/adapter/cache"
	httpserver "github.com/bubblescafe/storyapi/internal/adapter/httpserver"
	"github.com/bubblescafe/storyapi/internal/adapter/observability"
	"github.com/bubblescafe/storyapi/internal/adapter/queue/redpanda"
	"github.com/bubblescafe/storyapi/internal/adapter/repo/postgres"
	"github.com/bubblescafe/storyapi/internal/adapter/wordpress"
	"github.com/bubblescafe/storyapi/internal/app"
	"github.com/bubblescafe/storyapi/internal/config"
	"github.com/bubblescafe/storyapi/internal/usecase"
)

func main() {
	seedPath := flag.String("seed", "", "path to a YAML file of stories to seed on startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	storyRepo := postgres.NewStoryRepo(pool)
	runRepo := postgres.NewSyncRunRepo(pool)

	cleanupSvc := postgres.NewCleanupService(pool, 90)
	go cleanupSvc.RunPeriodic(ctx, 24*time.Hour)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()
	contentCache := cache.New(rdb, cfg.ContentCacheTTL)

	producer, err := redpanda.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			slog.Error("failed to close queue client", slog.Any("error", err))
		}
	}()

	source := wordpress.New(cfg)

	storySvc := usecase.NewStoryService(storyRepo)
	syncSvc := usecase.NewSyncService(storyRepo, runRepo, source, contentCache, producer, cfg.SyncPages, cfg.SyncPerPage)

	if *seedPath != "" {
		if err := seedStories(ctx, storySvc, *seedPath); err != nil {
			slog.Error("seeding failed", slog.String("path", *seedPath), slog.Any("error", err))
			os.Exit(1)
		}
	}

	kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.KafkaBrokers...))
	if err != nil {
		slog.Error("kafka readiness client failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer kafkaClient.Close()

	dbCheck, redisCheck, kafkaCheck, wpCheck := app.BuildReadinessChecks(cfg, pool, app.RedisAdapter{C: rdb}, kafkaClient)

	srv := httpserver.NewServer(cfg, storySvc, syncSvc)
	srv.DBCheck = dbCheck
	srv.RedisCheck = redisCheck
	srv.KafkaCheck = kafkaCheck
	srv.WordPressCheck = wpCheck

	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
