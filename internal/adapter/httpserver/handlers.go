package httpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bubblescafe/storyapi/internal/config"
	"github.com/bubblescafe/storyapi/internal/domain"
	"github.com/bubblescafe/storyapi/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg            config.Config
	Stories        usecase.StoryService
	Sync           usecase.SyncService
	DBCheck        func(ctx context.Context) error
	RedisCheck     func(ctx context.Context) error
	KafkaCheck     func(ctx context.Context) error
	WordPressCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers wired.
func NewServer(cfg config.Config, stories usecase.StoryService, sync usecase.SyncService) *Server {
	return &Server{Cfg: cfg, Stories: stories, Sync: sync}
}

// ReadyzHandler probes the DB, Redis, Kafka, and the upstream WordPress site.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	probe := func(ctx context.Context, name string, fn func(context.Context) error, checks []check) []check {
		if fn == nil {
			return checks
		}
		if err := fn(ctx); err != nil {
			return append(checks, check{Name: name, OK: false, Details: err.Error()})
		}
		return append(checks, check{Name: name, OK: true})
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 4)
		checks = probe(ctx, "db", s.DBCheck, checks)
		checks = probe(ctx, "redis", s.RedisCheck, checks)
		checks = probe(ctx, "kafka", s.KafkaCheck, checks)
		checks = probe(ctx, "wordpress", s.WordPressCheck, checks)
		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type storyDTO struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	ContentHTML string    `json:"content_html,omitempty"`
	Excerpt     string    `json:"excerpt"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toDTO(s domain.Story, includeContent bool) storyDTO {
	d := storyDTO{
		ID:        s.ID,
		Source:    s.Source,
		Slug:      s.Slug,
		Title:     s.Title,
		Author:    s.Author,
		Excerpt:   s.Excerpt,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if includeContent {
		d.ContentHTML = s.ContentHTML
	}
	return d
}

// ListStoriesHandler handles GET /v1/stories.
func (s *Server) ListStoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		stories, err := s.Stories.List(r.Context(), limit, offset)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		total, err := s.Stories.Count(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		items := make([]storyDTO, 0, len(stories))
		for _, st := range stories {
			items = append(items, toDTO(st, false))
		}
		writeJSON(w, http.StatusOK, map[string]any{"stories": items, "total": total})
	}
}

// GetStoryHandler handles GET /v1/stories/{id}. The full normalized content
// is included, guarded by a weak ETag derived from the last update.
func (s *Server) GetStoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		story, err := s.Stories.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		etag := storyETag(story)
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		writeJSON(w, http.StatusOK, toDTO(story, true))
	}
}

// GetStoryBySlugHandler handles GET /v1/stories/slug/{slug}.
func (s *Server) GetStoryBySlugHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		story, err := s.Stories.GetBySlug(r.Context(), slug)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		etag := storyETag(story)
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		writeJSON(w, http.StatusOK, toDTO(story, true))
	}
}

func storyETag(s domain.Story) string {
	return fmt.Sprintf(`W/"%s-%d"`, s.ID, s.UpdatedAt.UnixNano())
}

// SearchStoriesHandler handles GET /v1/stories/search?q=.
func (s *Server) SearchStoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		stories, err := s.Stories.Search(r.Context(), q, limit)
		if err != nil {
			writeError(w, r, err, map[string]any{"q": q})
			return
		}
		items := make([]storyDTO, 0, len(stories))
		for _, st := range stories {
			items = append(items, toDTO(st, false))
		}
		writeJSON(w, http.StatusOK, map[string]any{"stories": items, "q": q})
	}
}

// EnqueueSyncHandler handles POST /v1/sync. The job runs on the worker; the
// response only acknowledges the enqueue.
func (s *Server) EnqueueSyncHandler() http.HandlerFunc {
	type syncRequest struct {
		Pages   int `json:"pages" validate:"gte=0,lte=50"`
		PerPage int `json:"per_page" validate:"gte=0,lte=100"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req syncRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := decodeJSONBody(r, &req); err != nil {
				writeError(w, r, fmt.Errorf("%w: invalid json body", domain.ErrInvalidArgument), nil)
				return
			}
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		requestID := r.Header.Get("X-Request-Id")
		id, err := s.Sync.Enqueue(r.Context(), requestID, req.Pages, req.PerPage)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "status": "queued"})
	}
}

// ImportStoryHandler handles POST /v1/stories/import: a multipart form with
// title, author, and a content file holding the raw HTML or text.
func (s *Server) ImportStoryHandler() http.HandlerFunc {
	type importForm struct {
		Title  string `validate:"required,min=1,max=200"`
		Author string `validate:"max=100"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		if maxBytes <= 0 {
			maxBytes = 5 * 1024 * 1024
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "request body too large"}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: malformed multipart form", domain.ErrInvalidArgument), nil)
			return
		}

		form := importForm{
			Title:  strings.TrimSpace(r.FormValue("title")),
			Author: strings.TrimSpace(r.FormValue("author")),
		}
		if err := getValidator().Struct(form); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		file, _, err := r.FormFile("content")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: missing content file", domain.ErrInvalidArgument), nil)
			return
		}
		defer func() { _ = file.Close() }()

		data, err := io.ReadAll(io.LimitReader(file, maxBytes))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: reading content", domain.ErrInternal), nil)
			return
		}
		if mt := mimetype.Detect(data); !allowedContentMIME(mt.String()) {
			writeError(w, r, fmt.Errorf("%w: unsupported content type %s", domain.ErrInvalidArgument, mt.String()), nil)
			return
		}

		story, err := s.Stories.Import(r.Context(), form.Title, form.Author, string(data))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toDTO(story, true))
	}
}

// allowedContentMIME accepts HTML and plain text imports.
func allowedContentMIME(m string) bool {
	m = strings.ToLower(m)
	return strings.HasPrefix(m, "text/html") || strings.HasPrefix(m, "text/plain")
}
