package observability_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bubblescafe/storyapi/internal/observability"
)

func TestLoggerRoundTrip(t *testing.T) {
	t.Parallel()
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := observability.ContextWithLogger(context.Background(), lg)
	assert.Same(t, lg, observability.LoggerFromContext(ctx))
}

func TestLoggerFromContext_Fallbacks(t *testing.T) {
	t.Parallel()
	assert.NotNil(t, observability.LoggerFromContext(nil)) //nolint:staticcheck // nil context is the case under test
	assert.NotNil(t, observability.LoggerFromContext(context.Background()))
}

func TestContextWithLogger_NilLoggerIgnored(t *testing.T) {
	t.Parallel()
	ctx := observability.ContextWithLogger(context.Background(), nil)
	assert.NotNil(t, observability.LoggerFromContext(ctx))
}

func TestRequestIDRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := observability.ContextWithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", observability.RequestIDFromContext(ctx))
}

func TestRequestID_EmptyIgnored(t *testing.T) {
	t.Parallel()
	ctx := observability.ContextWithRequestID(context.Background(), "")
	assert.Equal(t, "", observability.RequestIDFromContext(ctx))
}
