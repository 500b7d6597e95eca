package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"RelatedPosts/internal/ports"
)

// WarmReport summarizes a single warm-up run.
type WarmReport struct {
	Posts  int
	Warmed int
	Failed int
}

// Warmer precomputes cached recommendations for every published post.
type Warmer struct {
	finder  ports.PostFinder
	related *RelatedPosts
	limit   int
	logger  *slog.Logger
}

// NewWarmer builds a warmer refreshing lists of the given length.
func NewWarmer(finder ports.PostFinder, related *RelatedPosts, limit int, log *slog.Logger) *Warmer {
	return &Warmer{finder: finder, related: related, limit: limit, logger: log}
}

// Warm refreshes the cache entry of each published post. Failures for a
// single post are logged and counted; listing failures abort the run.
func (w *Warmer) Warm(ctx context.Context) (WarmReport, error) {
	var report WarmReport
	if w.finder == nil || w.related == nil {
		return report, nil
	}

	posts, err := w.finder.ListPublished(ctx)
	if err != nil {
		return report, fmt.Errorf("list published: %w", err)
	}
	report.Posts = len(posts)

	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, err := w.related.Refresh(ctx, post, w.limit); err != nil {
			report.Failed++
			w.log(slog.LevelWarn, "warm post failed", "post", post.ID, "slug", post.Slug, "error", err)
			continue
		}
		report.Warmed++
	}

	w.log(slog.LevelInfo, "cache warmed", "posts", report.Posts, "warmed", report.Warmed, "failed", report.Failed)
	return report, nil
}

func (w *Warmer) log(level slog.Level, msg string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Log(context.Background(), level, msg, args...)
	}
}
