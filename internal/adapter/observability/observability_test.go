package observability_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubblescafe/storyapi/internal/adapter/observability"
	"github.com/bubblescafe/storyapi/internal/config"
)

func TestSetupLogger(t *testing.T) {
	lg := observability.SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "story-platform"})
	require.NotNil(t, lg)
	assert.True(t, lg.Enabled(t.Context(), slog.LevelDebug))

	lg = observability.SetupLogger(config.Config{AppEnv: "prod", OTELServiceName: "story-platform"})
	assert.False(t, lg.Enabled(t.Context(), slog.LevelDebug))
	assert.True(t, lg.Enabled(t.Context(), slog.LevelInfo))
}

func TestSetupTracing_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := observability.SetupTracing(config.Config{})
	require.NoError(t, err)
	assert.Nil(t, shutdown)
}

func TestHTTPMetricsMiddleware_PassesThrough(t *testing.T) {
	h := observability.HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stories", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
