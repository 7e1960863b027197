package postgres_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubblescafe/storyapi/internal/adapter/repo/postgres"
)

func TestNewCleanupService_DefaultRetention(t *testing.T) {
	t.Parallel()
	svc := postgres.NewCleanupService(&poolStub{}, 0)
	assert.Equal(t, 90, svc.RetentionDays)

	svc = postgres.NewCleanupService(&poolStub{}, 30)
	assert.Equal(t, 30, svc.RetentionDays)
}

func TestCleanupService_CleanupOldData(t *testing.T) {
	t.Parallel()

	t.Run("deletes old runs", func(t *testing.T) {
		t.Parallel()
		svc := postgres.NewCleanupService(&poolStub{execTag: pgconn.NewCommandTag("DELETE 3")}, 30)
		require.NoError(t, svc.CleanupOldData(context.Background()))
	})

	t.Run("wraps exec errors", func(t *testing.T) {
		t.Parallel()
		svc := postgres.NewCleanupService(&poolStub{execErr: assert.AnError}, 30)
		err := svc.CleanupOldData(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "op=cleanup.sync_runs")
	})
}
