package usecase_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubblescafe/storyapi/internal/domain"
	"github.com/bubblescafe/storyapi/internal/usecase"
)

// stubStoryRepo is an in-memory domain.StoryRepository.
type stubStoryRepo struct {
	stories   map[string]domain.Story
	upsertErr error
	lastLimit int
	lastQuery string
}

func newStubStoryRepo() *stubStoryRepo {
	return &stubStoryRepo{stories: map[string]domain.Story{}}
}

func (r *stubStoryRepo) Upsert(_ domain.Context, s domain.Story) (string, error) {
	if r.upsertErr != nil {
		return "", r.upsertErr
	}
	if s.ID == "" {
		s.ID = fmt.Sprintf("id-%d", len(r.stories)+1)
	}
	r.stories[s.ID] = s
	return s.ID, nil
}

func (r *stubStoryRepo) Get(_ domain.Context, id string) (domain.Story, error) {
	s, ok := r.stories[id]
	if !ok {
		return domain.Story{}, fmt.Errorf("op=story.get: %w", domain.ErrNotFound)
	}
	return s, nil
}

func (r *stubStoryRepo) GetBySlug(_ domain.Context, slug string) (domain.Story, error) {
	for _, s := range r.stories {
		if s.Slug == slug {
			return s, nil
		}
	}
	return domain.Story{}, fmt.Errorf("op=story.get_by_slug: %w", domain.ErrNotFound)
}

func (r *stubStoryRepo) List(_ domain.Context, limit, _ int) ([]domain.Story, error) {
	r.lastLimit = limit
	out := make([]domain.Story, 0, len(r.stories))
	for _, s := range r.stories {
		out = append(out, s)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubStoryRepo) Search(_ domain.Context, query string, limit int) ([]domain.Story, error) {
	r.lastQuery = query
	r.lastLimit = limit
	var out []domain.Story
	for _, s := range r.stories {
		if strings.Contains(strings.ToLower(s.Title), strings.ToLower(query)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *stubStoryRepo) Count(_ domain.Context) (int64, error) {
	return int64(len(r.stories)), nil
}

func TestStoryService_Get(t *testing.T) {
	t.Parallel()

	repo := newStubStoryRepo()
	repo.stories["s1"] = domain.Story{ID: "s1", Title: "The Attic"}
	svc := usecase.NewStoryService(repo)

	got, err := svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "The Attic", got.Title)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestStoryService_List_ClampsPaging(t *testing.T) {
	t.Parallel()

	repo := newStubStoryRepo()
	svc := usecase.NewStoryService(repo)

	_, err := svc.List(context.Background(), 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.lastLimit)

	_, err = svc.List(context.Background(), 9999, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, repo.lastLimit)
}

func TestStoryService_Search(t *testing.T) {
	t.Parallel()

	repo := newStubStoryRepo()
	repo.stories["s1"] = domain.Story{ID: "s1", Title: "The Hollow House"}
	repo.stories["s2"] = domain.Story{ID: "s2", Title: "Night Shift"}
	svc := usecase.NewStoryService(repo)

	got, err := svc.Search(context.Background(), "hollow", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)

	_, err = svc.Search(context.Background(), "   ", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Search(context.Background(), strings.Repeat("x", 201), 10)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Search(context.Background(), "ok", 0)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastLimit)
}

func TestStoryService_Import(t *testing.T) {
	t.Parallel()

	t.Run("normalizes content and derives slug and excerpt", func(t *testing.T) {
		t.Parallel()
		repo := newStubStoryRepo()
		svc := usecase.NewStoryService(repo)

		story, err := svc.Import(context.Background(), "The Hollow House", "Bubbles", "<p>It <em>waited</em> in the dark.</p>")
		require.NoError(t, err)
		assert.Equal(t, "the-hollow-house", story.Slug)
		assert.Equal(t, domain.StorySourceImport, story.Source)
		assert.Contains(t, story.ContentHTML, `class="story-paragraph"`)
		assert.Equal(t, "It waited in the dark.", story.Excerpt)
		assert.NotEmpty(t, story.ID)
	})

	t.Run("rejects empty title", func(t *testing.T) {
		t.Parallel()
		svc := usecase.NewStoryService(newStubStoryRepo())
		_, err := svc.Import(context.Background(), "  ", "", "<p>body</p>")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("rejects content that normalizes to empty", func(t *testing.T) {
		t.Parallel()
		svc := usecase.NewStoryService(newStubStoryRepo())
		_, err := svc.Import(context.Background(), "Title", "", "<script>alert(1)</script>")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"The Hollow House", "the-hollow-house"},
		{"  Night -- Shift!  ", "night-shift"},
		{"Bubble's Café 13", "bubble-s-café-13"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, usecase.Slugify(tt.in), tt.in)
	}
}

func TestExcerpt_Truncation(t *testing.T) {
	t.Parallel()

	short := usecase.Excerpt(`<p class="story-paragraph">A short one.</p>`)
	assert.Equal(t, "A short one.", short)

	long := usecase.Excerpt(`<p class="story-paragraph">` + strings.Repeat("word ", 100) + `</p>`)
	assert.LessOrEqual(t, len(long), 290)
	assert.True(t, strings.HasSuffix(long, "…"))
}

func TestExcerpt_MultibyteCutStaysValidUTF8(t *testing.T) {
	t.Parallel()

	// Space-less multibyte prose must never be cut mid-rune.
	long := usecase.Excerpt(`<p class="story-paragraph">` + strings.Repeat("泡沫咖啡館的燈又閃了", 40) + `</p>`)
	assert.True(t, utf8.ValidString(long))
	assert.True(t, strings.HasSuffix(long, "…"))
}
