package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubblescafe/storyapi/internal/app"
	"github.com/bubblescafe/storyapi/internal/config"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestBuildReadinessChecks_NilDependencies(t *testing.T) {
	t.Parallel()

	dbCheck, redisCheck, kafkaCheck, _ := app.BuildReadinessChecks(config.Config{}, nil, nil, nil)
	assert.Error(t, dbCheck(context.Background()))
	assert.Error(t, redisCheck(context.Background()))
	assert.Error(t, kafkaCheck(context.Background()))
}

func TestBuildReadinessChecks_DBAndKafka(t *testing.T) {
	t.Parallel()

	dbCheck, _, kafkaCheck, _ := app.BuildReadinessChecks(config.Config{},
		pingerFunc(func(context.Context) error { return nil }),
		nil,
		pingerFunc(func(context.Context) error { return nil }))
	assert.NoError(t, dbCheck(context.Background()))
	assert.NoError(t, kafkaCheck(context.Background()))
}

func TestBuildReadinessChecks_Redis(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	_, redisCheck, _, _ := app.BuildReadinessChecks(config.Config{}, nil, app.RedisAdapter{C: rdb}, nil)
	require.NoError(t, redisCheck(context.Background()))

	mr.Close()
	assert.Error(t, redisCheck(context.Background()))
}

func TestBuildReadinessChecks_WordPress(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wp/v2/types/post", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, _, _, wpCheck := app.BuildReadinessChecks(config.Config{WordPressBaseURL: srv.URL}, nil, nil, nil)
	require.NoError(t, wpCheck(context.Background()))

	_, _, _, wpCheck = app.BuildReadinessChecks(config.Config{}, nil, nil, nil)
	assert.Error(t, wpCheck(context.Background()))
}
