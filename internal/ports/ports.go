package ports

import (
	"context"
	"time"

	"RelatedPosts/internal/domain"
)

// PostCatalog is the read side the ranker depends on.
type PostCatalog interface {
	// FindPublishedExcluding returns every published post except seedID,
	// with category and tags populated.
	FindPublishedExcluding(ctx context.Context, seedID int64) ([]domain.Post, error)
}

// PostFinder resolves posts for callers of the ranker.
type PostFinder interface {
	FindBySlug(ctx context.Context, slug string) (domain.Post, error)
	ListPublished(ctx context.Context) ([]domain.Post, error)
}

// PostRepository persists catalog content (used for seeding sample data).
type PostRepository interface {
	SaveCategory(ctx context.Context, category *domain.Category) error
	SavePost(ctx context.Context, post *domain.Post) error
}

// Cache is an external key-value store with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
