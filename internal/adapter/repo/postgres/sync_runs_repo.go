package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bubblescafe/storyapi/internal/domain"
)

// SyncRunRepo records sync job executions for auditing.
type SyncRunRepo struct{ pool PgxPool }

func NewSyncRunRepo(pool PgxPool) *SyncRunRepo { return &SyncRunRepo{pool: pool} }

func (r *SyncRunRepo) Create(ctx domain.Context, run domain.SyncRun) (string, error) {
	tracer := otel.Tracer("repo.sync_runs")
	ctx, span := tracer.Start(ctx, "repo.sync_runs.create")
	defer span.End()
	span.SetAttributes(attribute.String("sync.request_id", run.RequestID))

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sync_runs (id, request_id, started_at)
		VALUES ($1, $2, $3)`,
		run.ID, run.RequestID, run.StartedAt)
	if err != nil {
		return "", fmt.Errorf("op=syncrun.create: %w", err)
	}
	return run.ID, nil
}

func (r *SyncRunRepo) Finish(ctx domain.Context, id string, written, skipped int, errMsg string) error {
	tracer := otel.Tracer("repo.sync_runs")
	ctx, span := tracer.Start(ctx, "repo.sync_runs.finish")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `
		UPDATE sync_runs SET finished_at = $2, written = $3, skipped = $4, error = $5
		WHERE id = $1`,
		id, time.Now().UTC(), written, skipped, errMsg)
	if err != nil {
		return fmt.Errorf("op=syncrun.finish: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=syncrun.finish id=%s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *SyncRunRepo) ListRecent(ctx domain.Context, limit int) ([]domain.SyncRun, error) {
	tracer := otel.Tracer("repo.sync_runs")
	ctx, span := tracer.Start(ctx, "repo.sync_runs.list_recent")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
		SELECT id, request_id, started_at, finished_at, written, skipped, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("op=syncrun.list: %w", err)
	}
	defer rows.Close()

	var out []domain.SyncRun
	for rows.Next() {
		var run domain.SyncRun
		if err := rows.Scan(&run.ID, &run.RequestID, &run.StartedAt, &run.FinishedAt,
			&run.Written, &run.Skipped, &run.Error); err != nil {
			return nil, fmt.Errorf("op=syncrun.scan: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=syncrun.rows: %w", err)
	}
	return out, nil
}
