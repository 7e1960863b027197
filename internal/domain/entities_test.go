package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bubblescafe/storyapi/internal/domain"
)

func TestSentinelErrors_Distinct(t *testing.T) {
	t.Parallel()
	sentinels := []error{
		domain.ErrInvalidArgument,
		domain.ErrNotFound,
		domain.ErrConflict,
		domain.ErrRateLimited,
		domain.ErrUpstreamTimeout,
		domain.ErrUpstreamRateLimit,
		domain.ErrInternal,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b)
		}
	}
}

func TestSentinelErrors_WrapAndMatch(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("op=story.get: %w", domain.ErrNotFound)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.False(t, errors.Is(err, domain.ErrConflict))
}

func TestStorySourceConstants(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "wordpress", domain.StorySourceWordPress)
	assert.Equal(t, "import", domain.StorySourceImport)
	assert.NotEqual(t, domain.StorySourceWordPress, domain.StorySourceImport)
}
