// Package wordpress implements domain.ContentSource against the WordPress
// REST API (wp-json/wp/v2).
package wordpress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bubblescafe/storyapi/internal/adapter/observability"
	"github.com/bubblescafe/storyapi/internal/config"
	"github.com/bubblescafe/storyapi/internal/domain"
)

// Client fetches posts from a WordPress site.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a WordPress client with the configured timeout. Outbound
// requests are traced via otelhttp.
func New(cfg config.Config) *Client {
	timeout := cfg.WordPressTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("WordPress %s %s", r.Method, r.URL.Host)
		}),
	)
	return &Client{cfg: cfg, hc: &http.Client{Timeout: timeout, Transport: transport}}
}

// rendered is the WordPress content envelope {"rendered": "..."}.
type rendered struct {
	Rendered string `json:"rendered"`
}

type wpPost struct {
	ID       int64    `json:"id"`
	Slug     string   `json:"slug"`
	Modified string   `json:"modified_gmt"`
	Title    rendered `json:"title"`
	Content  rendered `json:"content"`
	Excerpt  rendered `json:"excerpt"`
}

func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetSyncBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// FetchPosts retrieves one page of published posts. 429 and 5xx responses are
// retried with exponential backoff; other 4xx responses fail immediately.
// Requesting a page past the end returns an empty slice, not an error.
func (c *Client) FetchPosts(ctx domain.Context, page, perPage int) ([]domain.SourcePost, error) {
	if page < 1 || perPage < 1 || perPage > 100 {
		return nil, fmt.Errorf("%w: page=%d per_page=%d", domain.ErrInvalidArgument, page, perPage)
	}

	endpoint := fmt.Sprintf("%s/wp-json/wp/v2/posts?%s",
		strings.TrimRight(c.cfg.WordPressBaseURL, "/"),
		url.Values{
			"page":     {fmt.Sprint(page)},
			"per_page": {fmt.Sprint(perPage)},
			"status":   {"publish"},
		}.Encode())

	var posts []wpPost
	op := func() error {
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.hc.Do(req)
		observability.WordPressRequestDuration.WithLabelValues("fetch_posts").Observe(time.Since(start).Seconds())
		if err != nil {
			observability.WordPressRequestsTotal.WithLabelValues("fetch_posts", "transport_error").Inc()
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			observability.WordPressRequestsTotal.WithLabelValues("fetch_posts", "rate_limited").Inc()
			slog.Warn("wordpress rate limited", slog.Int("status", resp.StatusCode), slog.Int("page", page))
			return fmt.Errorf("posts status %d: %w", resp.StatusCode, domain.ErrUpstreamRateLimit)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// WordPress signals past-the-end pages with 400 rest_post_invalid_page_number.
			if isInvalidPageNumber(resp.Body) {
				observability.WordPressRequestsTotal.WithLabelValues("fetch_posts", "ok").Inc()
				posts = nil
				return nil
			}
			observability.WordPressRequestsTotal.WithLabelValues("fetch_posts", "client_error").Inc()
			slog.Warn("wordpress 4xx", slog.Int("status", resp.StatusCode), slog.String("endpoint", endpoint))
			return backoff.Permanent(fmt.Errorf("posts status %d", resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			observability.WordPressRequestsTotal.WithLabelValues("fetch_posts", "server_error").Inc()
			slog.Error("wordpress non-2xx", slog.Int("status", resp.StatusCode), slog.String("endpoint", endpoint))
			return fmt.Errorf("posts status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
			observability.WordPressRequestsTotal.WithLabelValues("fetch_posts", "decode_error").Inc()
			return backoff.Permanent(fmt.Errorf("decode posts: %w", err))
		}
		observability.WordPressRequestsTotal.WithLabelValues("fetch_posts", "ok").Inc()
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.getBackoffConfig(), ctx)); err != nil {
		if errors.Is(err, domain.ErrUpstreamRateLimit) {
			return nil, err
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("op=wordpress.fetch_posts: %w", domain.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("op=wordpress.fetch_posts: %w", err)
	}

	out := make([]domain.SourcePost, 0, len(posts))
	for _, p := range posts {
		modified, _ := time.Parse("2006-01-02T15:04:05", p.Modified)
		out = append(out, domain.SourcePost{
			SourceID:    p.ID,
			Slug:        p.Slug,
			Title:       p.Title.Rendered,
			ContentHTML: p.Content.Rendered,
			Excerpt:     p.Excerpt.Rendered,
			ModifiedAt:  modified,
		})
	}
	return out, nil
}

func isInvalidPageNumber(body io.Reader) bool {
	var e struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&e); err != nil {
		return false
	}
	return e.Code == "rest_post_invalid_page_number"
}
