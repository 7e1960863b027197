package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bubblescafe/storyapi/internal/domain"
	"github.com/bubblescafe/storyapi/pkg/htmlnorm"
)

// Skip reasons recorded in sync reports.
const (
	SkipReasonEmptyContent = "empty_content"
	SkipReasonUpsertError  = "upsert_error"
)

// SyncService pulls posts from the upstream content source, normalizes them,
// and writes them into the story repository.
type SyncService struct {
	Stories  domain.StoryRepository
	Runs     domain.SyncRunRepository
	Source   domain.ContentSource
	Cache    domain.ContentCache
	Queue    domain.Queue
	MaxPages int
	PerPage  int
}

// NewSyncService constructs a SyncService.
func NewSyncService(stories domain.StoryRepository, runs domain.SyncRunRepository, source domain.ContentSource, contentCache domain.ContentCache, queue domain.Queue, maxPages, perPage int) SyncService {
	if maxPages <= 0 {
		maxPages = 5
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	return SyncService{Stories: stories, Runs: runs, Source: source, Cache: contentCache, Queue: queue, MaxPages: maxPages, PerPage: perPage}
}

// Enqueue schedules a sync job and returns the queue message id.
func (s SyncService) Enqueue(ctx domain.Context, requestID string, pages, perPage int) (string, error) {
	if pages <= 0 || pages > s.MaxPages {
		pages = s.MaxPages
	}
	if perPage <= 0 || perPage > 100 {
		perPage = s.PerPage
	}
	id, err := s.Queue.EnqueueSync(ctx, domain.SyncTaskPayload{
		RequestID: requestID,
		Pages:     pages,
		PerPage:   perPage,
	})
	if err != nil {
		return "", fmt.Errorf("op=sync.enqueue: %w", err)
	}
	return id, nil
}

// Apply executes one sync job: fetch pages until exhausted, normalize each
// post, upsert changed stories, and record the run in the audit table.
// Posts whose content normalizes to empty are skipped, never stored.
func (s SyncService) Apply(ctx domain.Context, payload domain.SyncTaskPayload) (domain.SyncReport, error) {
	runID, err := s.Runs.Create(ctx, domain.SyncRun{RequestID: payload.RequestID, StartedAt: time.Now().UTC()})
	if err != nil {
		return domain.SyncReport{}, err
	}

	report, syncErr := s.applyPages(ctx, payload)

	errMsg := ""
	if syncErr != nil {
		errMsg = syncErr.Error()
	}
	if finErr := s.Runs.Finish(ctx, runID, report.Written, report.Skipped(), errMsg); finErr != nil {
		slog.Error("failed to finish sync run", slog.String("run_id", runID), slog.Any("error", finErr))
	}
	slog.Info("sync run completed",
		slog.String("run_id", runID),
		slog.String("request_id", payload.RequestID),
		slog.Int("written", report.Written),
		slog.Int("skipped", report.Skipped()),
		slog.Any("error", syncErr))
	return report, syncErr
}

func (s SyncService) applyPages(ctx domain.Context, payload domain.SyncTaskPayload) (domain.SyncReport, error) {
	report := domain.SyncReport{SkippedByReason: map[string]int{}}
	pages := payload.Pages
	if pages <= 0 {
		pages = s.MaxPages
	}
	perPage := payload.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = s.PerPage
	}

	for page := 1; page <= pages; page++ {
		posts, err := s.Source.FetchPosts(ctx, page, perPage)
		if err != nil {
			return report, fmt.Errorf("op=sync.fetch page=%d: %w", page, err)
		}
		if len(posts) == 0 {
			break
		}
		for _, post := range posts {
			if reason := s.applyPost(ctx, post); reason == "" {
				report.Written++
			} else {
				report.SkippedByReason[reason]++
			}
		}
	}
	return report, nil
}

// applyPost returns the skip reason, or "" when the post was written.
func (s SyncService) applyPost(ctx domain.Context, post domain.SourcePost) string {
	normalized := s.normalize(ctx, post.ContentHTML)
	if normalized == "" {
		slog.Warn("skipping post with empty normalized content",
			slog.Int64("source_id", post.SourceID), slog.String("slug", post.Slug))
		return SkipReasonEmptyContent
	}

	title := strings.TrimSpace(htmlnorm.PlainText(post.Title))
	if title == "" {
		title = post.Slug
	}
	story := domain.Story{
		Source:      domain.StorySourceWordPress,
		SourceID:    post.SourceID,
		Slug:        post.Slug,
		Title:       title,
		Author:      post.Author,
		ContentHTML: normalized,
		Excerpt:     Excerpt(normalized),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if _, err := s.Stories.Upsert(ctx, story); err != nil {
		slog.Error("failed to upsert story",
			slog.Int64("source_id", post.SourceID), slog.String("slug", post.Slug), slog.Any("error", err))
		return SkipReasonUpsertError
	}
	return ""
}

// normalize runs content through the normalization pipeline, consulting the
// cache first. Cache failures degrade to recomputing, never to failing.
func (s SyncService) normalize(ctx domain.Context, raw string) string {
	if s.Cache == nil {
		return htmlnorm.Normalize(raw)
	}
	if val, ok, err := s.Cache.Get(ctx, raw); err == nil && ok {
		return val
	} else if err != nil {
		slog.Warn("content cache get failed", slog.Any("error", err))
	}
	normalized := htmlnorm.Normalize(raw)
	if normalized != "" {
		if err := s.Cache.Set(ctx, raw, normalized); err != nil {
			slog.Warn("content cache set failed", slog.Any("error", err))
		}
	}
	return normalized
}
