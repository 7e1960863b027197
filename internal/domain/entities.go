package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrInternal          = errors.New("internal error")
)

// StorySource enumerates where a story entered the platform.
const (
	StorySourceWordPress = "wordpress"
	StorySourceImport    = "import"
)

// Story is a published piece of fiction.
// Invariants: ContentHTML is normalized (canonical paragraphs, scripts and
// event handlers stripped) and non-empty; Excerpt is plain text.
type Story struct {
	ID          string
	Source      string
	SourceID    int64 // WordPress post id; zero for local imports
	Slug        string
	Title       string
	Author      string
	ContentHTML string
	Excerpt     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SourcePost is a post as fetched from the upstream content source, before
// normalization. Title and ContentHTML carry whatever the upstream rendered.
type SourcePost struct {
	SourceID    int64
	Slug        string
	Title       string
	ContentHTML string
	Excerpt     string
	Author      string
	ModifiedAt  time.Time
}

// SyncTaskPayload is the message enqueued for the sync worker.
type SyncTaskPayload struct {
	RequestID string `json:"request_id"`
	Pages     int    `json:"pages"`
	PerPage   int    `json:"per_page"`
}

// SyncReport summarizes what one sync job execution did.
type SyncReport struct {
	Written         int
	SkippedByReason map[string]int
}

// Skipped returns the total number of skipped posts across all reasons.
func (r SyncReport) Skipped() int {
	n := 0
	for _, c := range r.SkippedByReason {
		n += c
	}
	return n
}

// SyncRun is the audit record of a single sync job execution.
type SyncRun struct {
	ID         string
	RequestID  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Written    int
	Skipped    int
	Error      string
}

// Repositories (ports)

type StoryRepository interface {
	Upsert(ctx Context, s Story) (string, error)
	Get(ctx Context, id string) (Story, error)
	GetBySlug(ctx Context, slug string) (Story, error)
	List(ctx Context, limit, offset int) ([]Story, error)
	Search(ctx Context, query string, limit int) ([]Story, error)
	Count(ctx Context) (int64, error)
}

type SyncRunRepository interface {
	Create(ctx Context, run SyncRun) (string, error)
	Finish(ctx Context, id string, written, skipped int, errMsg string) error
	ListRecent(ctx Context, limit int) ([]SyncRun, error)
}

// Queue (port)

type Queue interface {
	EnqueueSync(ctx Context, payload SyncTaskPayload) (string, error)
}

// ContentSource (port)
// FetchPosts returns one page of upstream posts. Implementations call the
// WordPress REST API and own retry/backoff behavior.
type ContentSource interface {
	FetchPosts(ctx Context, page, perPage int) ([]SourcePost, error)
}

// ContentCache (port)
// Caches normalized HTML keyed by the raw upstream content; implementations
// own the key derivation. A miss returns ok=false with a nil error.
type ContentCache interface {
	Get(ctx Context, raw string) (string, bool, error)
	Set(ctx Context, raw, normalized string) error
}

// Context is an alias to context.Context so the domain package stays free of
// adapter imports while usecases pass standard contexts through.
type Context = context.Context
