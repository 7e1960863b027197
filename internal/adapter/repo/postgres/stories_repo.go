package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bubblescafe/storyapi/internal/domain"
)

// StoryRepo persists stories in PostgreSQL.
type StoryRepo struct{ pool PgxPool }

func NewStoryRepo(pool PgxPool) *StoryRepo { return &StoryRepo{pool: pool} }

const storyColumns = `id, source, source_id, slug, title, author, content_html, excerpt, created_at, updated_at`

// Upsert inserts a story or updates the existing row with the same source and
// source_id (slug for local imports). Returns the story id.
func (r *StoryRepo) Upsert(ctx domain.Context, s domain.Story) (string, error) {
	tracer := otel.Tracer("repo.stories")
	ctx, span := tracer.Start(ctx, "repo.stories.upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("story.source", s.Source),
		attribute.String("story.slug", s.Slug),
	)

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO stories (id, source, source_id, slug, title, author, content_html, excerpt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (source, source_id, slug) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			content_html = EXCLUDED.content_html,
			excerpt = EXCLUDED.excerpt,
			updated_at = EXCLUDED.updated_at
		RETURNING id`,
		s.ID, s.Source, s.SourceID, s.Slug, s.Title, s.Author, s.ContentHTML, s.Excerpt, now,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("op=story.upsert: %w", err)
	}
	return id, nil
}

func (r *StoryRepo) Get(ctx domain.Context, id string) (domain.Story, error) {
	tracer := otel.Tracer("repo.stories")
	ctx, span := tracer.Start(ctx, "repo.stories.get")
	defer span.End()
	span.SetAttributes(attribute.String("story.id", id))

	row := r.pool.QueryRow(ctx, `SELECT `+storyColumns+` FROM stories WHERE id = $1`, id)
	s, err := scanStory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Story{}, fmt.Errorf("op=story.get id=%s: %w", id, domain.ErrNotFound)
		}
		return domain.Story{}, fmt.Errorf("op=story.get: %w", err)
	}
	return s, nil
}

func (r *StoryRepo) GetBySlug(ctx domain.Context, slug string) (domain.Story, error) {
	tracer := otel.Tracer("repo.stories")
	ctx, span := tracer.Start(ctx, "repo.stories.get_by_slug")
	defer span.End()
	span.SetAttributes(attribute.String("story.slug", slug))

	row := r.pool.QueryRow(ctx, `SELECT `+storyColumns+` FROM stories WHERE slug = $1`, slug)
	s, err := scanStory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Story{}, fmt.Errorf("op=story.get_by_slug slug=%s: %w", slug, domain.ErrNotFound)
		}
		return domain.Story{}, fmt.Errorf("op=story.get_by_slug: %w", err)
	}
	return s, nil
}

// List returns stories newest-first.
func (r *StoryRepo) List(ctx domain.Context, limit, offset int) ([]domain.Story, error) {
	tracer := otel.Tracer("repo.stories")
	ctx, span := tracer.Start(ctx, "repo.stories.list")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit), attribute.Int("offset", offset))

	rows, err := r.pool.Query(ctx, `
		SELECT `+storyColumns+` FROM stories
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("op=story.list: %w", err)
	}
	defer rows.Close()
	return collectStories(rows)
}

// Search matches query against title and plain-text excerpt, newest-first.
func (r *StoryRepo) Search(ctx domain.Context, query string, limit int) ([]domain.Story, error) {
	tracer := otel.Tracer("repo.stories")
	ctx, span := tracer.Start(ctx, "repo.stories.search")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit))

	rows, err := r.pool.Query(ctx, `
		SELECT `+storyColumns+` FROM stories
		WHERE title ILIKE '%' || $1 || '%' OR excerpt ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("op=story.search: %w", err)
	}
	defer rows.Close()
	return collectStories(rows)
}

func (r *StoryRepo) Count(ctx domain.Context) (int64, error) {
	tracer := otel.Tracer("repo.stories")
	ctx, span := tracer.Start(ctx, "repo.stories.count")
	defer span.End()

	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("op=story.count: %w", err)
	}
	return n, nil
}

func scanStory(row pgx.Row) (domain.Story, error) {
	var s domain.Story
	err := row.Scan(&s.ID, &s.Source, &s.SourceID, &s.Slug, &s.Title, &s.Author,
		&s.ContentHTML, &s.Excerpt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func collectStories(rows pgx.Rows) ([]domain.Story, error) {
	var out []domain.Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("op=story.scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=story.rows: %w", err)
	}
	return out, nil
}
