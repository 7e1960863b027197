package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bubblescafe/storyapi/internal/config"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// RedisPingResult is the minimal return type of a Redis client's Ping.
type RedisPingResult interface{ Err() error }

// RedisClient is the minimal interface for a Redis client needed for readiness.
type RedisClient interface {
	Ping(ctx context.Context) RedisPingResult
}

// KafkaPinger is the minimal interface for a Kafka client capable of Ping.
type KafkaPinger interface{ Ping(ctx context.Context) error }

// RedisAdapter adapts *redis.Client to the RedisClient interface.
type RedisAdapter struct{ C *redis.Client }

func (a RedisAdapter) Ping(ctx context.Context) RedisPingResult { return a.C.Ping(ctx) }

// BuildReadinessChecks returns readiness probes for db, redis, kafka, and the
// upstream WordPress site.
func BuildReadinessChecks(cfg config.Config, pool Pinger, rdb RedisClient, kafka KafkaPinger) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	dbCheck := func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	redisCheck := func(ctx context.Context) error {
		if rdb == nil {
			return fmt.Errorf("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
	kafkaCheck := func(ctx context.Context) error {
		if kafka == nil {
			return fmt.Errorf("kafka not configured")
		}
		return kafka.Ping(ctx)
	}
	wordpressCheck := func(ctx context.Context) error {
		if cfg.WordPressBaseURL == "" {
			return fmt.Errorf("wordpress base url not configured")
		}
		client := &http.Client{Timeout: 2 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}
		url := strings.TrimRight(cfg.WordPressBaseURL, "/") + "/wp-json/wp/v2/types/post"
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode >= 200 && resp.StatusCode < 500 {
			// 401/403 still proves the site is reachable.
			return nil
		}
		return fmt.Errorf("wordpress status %d", resp.StatusCode)
	}
	return dbCheck, redisCheck, kafkaCheck, wordpressCheck
}
