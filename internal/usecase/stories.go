// Package usecase contains the application services that sit between the
// HTTP/queue adapters and the domain ports.
package usecase

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bubblescafe/storyapi/internal/domain"
	"github.com/bubblescafe/storyapi/pkg/htmlnorm"
)

const (
	maxListLimit   = 100
	maxSearchLimit = 50
	maxExcerptLen  = 280
)

// StoryService serves stories to readers.
type StoryService struct {
	Repo domain.StoryRepository
}

// NewStoryService constructs a StoryService with the given repo.
func NewStoryService(r domain.StoryRepository) StoryService { return StoryService{Repo: r} }

// Get returns a single story by id.
func (s StoryService) Get(ctx domain.Context, id string) (domain.Story, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Story{}, fmt.Errorf("%w: empty story id", domain.ErrInvalidArgument)
	}
	return s.Repo.Get(ctx, id)
}

// GetBySlug returns a single story by slug.
func (s StoryService) GetBySlug(ctx domain.Context, slug string) (domain.Story, error) {
	if strings.TrimSpace(slug) == "" {
		return domain.Story{}, fmt.Errorf("%w: empty slug", domain.ErrInvalidArgument)
	}
	return s.Repo.GetBySlug(ctx, slug)
}

// List returns stories newest-first with clamped paging.
func (s StoryService) List(ctx domain.Context, limit, offset int) ([]domain.Story, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.List(ctx, limit, offset)
}

// Search matches the query against titles and excerpts.
func (s StoryService) Search(ctx domain.Context, query string, limit int) ([]domain.Story, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", domain.ErrInvalidArgument)
	}
	if len(query) > 200 {
		return nil, fmt.Errorf("%w: search query too long", domain.ErrInvalidArgument)
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return s.Repo.Search(ctx, query, limit)
}

// Count returns the total number of stories.
func (s StoryService) Count(ctx domain.Context) (int64, error) {
	return s.Repo.Count(ctx)
}

// Import stores a locally submitted story. Content goes through the same
// normalization pipeline as synced posts.
func (s StoryService) Import(ctx domain.Context, title, author, rawHTML string) (domain.Story, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Story{}, fmt.Errorf("%w: empty title", domain.ErrInvalidArgument)
	}
	normalized := htmlnorm.Normalize(rawHTML)
	if normalized == "" {
		return domain.Story{}, fmt.Errorf("%w: content empty after normalization", domain.ErrInvalidArgument)
	}
	story := domain.Story{
		Source:      domain.StorySourceImport,
		Slug:        Slugify(title),
		Title:       title,
		Author:      strings.TrimSpace(author),
		ContentHTML: normalized,
		Excerpt:     Excerpt(normalized),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	id, err := s.Repo.Upsert(ctx, story)
	if err != nil {
		return domain.Story{}, err
	}
	story.ID = id
	return story, nil
}

// Excerpt derives a short plain-text teaser from normalized HTML.
func Excerpt(normalizedHTML string) string {
	text := htmlnorm.PlainText(normalizedHTML)
	if len(text) <= maxExcerptLen {
		return text
	}
	// Never cut mid-rune; space-less prose would otherwise yield invalid UTF-8.
	end := maxExcerptLen
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	cut := text[:end]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

// Slugify lowercases the title and keeps letters and digits, joining runs of
// anything else with single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}
