package wordpress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bubblescafe/storyapi/internal/config"
)

func TestNew_OutboundRequestsAreTraced(t *testing.T) {
	t.Parallel()

	c := New(config.Config{WordPressBaseURL: "https://example.com", WordPressTimeout: 5 * time.Second})
	require.NotNil(t, c.hc)
	assert.IsType(t, &otelhttp.Transport{}, c.hc.Transport)
	assert.Equal(t, 5*time.Second, c.hc.Timeout)
}
