package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"RelatedPosts/internal/domain"
	"RelatedPosts/internal/ports"
)

const defaultCacheTTL = 15 * time.Minute

// RelatedPostsDeps wires the collaborators of the related-posts service.
type RelatedPostsDeps struct {
	Finder      ports.PostFinder
	Recommender *Recommender
	Cache       ports.Cache
	CacheTTL    time.Duration
	Logger      *slog.Logger
}

// RelatedPosts resolves posts and serves their recommendations through the cache.
type RelatedPosts struct {
	finder      ports.PostFinder
	recommender *Recommender
	cache       ports.Cache
	ttl         time.Duration
	logger      *slog.Logger
}

// NewRelatedPosts constructs the service; a nil cache disables caching.
func NewRelatedPosts(deps RelatedPostsDeps) *RelatedPosts {
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RelatedPosts{
		finder:      deps.Finder,
		recommender: deps.Recommender,
		cache:       deps.Cache,
		ttl:         ttl,
		logger:      deps.Logger,
	}
}

// ForSlug returns the post identified by slug and its related posts.
func (s *RelatedPosts) ForSlug(ctx context.Context, slug string, limit int) (domain.Post, []domain.Post, error) {
	if s.finder == nil {
		return domain.Post{}, nil, fmt.Errorf("post finder is not configured")
	}

	seed, err := s.finder.FindBySlug(ctx, slug)
	if err != nil {
		return domain.Post{}, nil, fmt.Errorf("find post %q: %w", slug, err)
	}

	// Checked before the cache so entries of unpublished posts are never served.
	if limit <= 0 {
		return seed, nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}
	if !seed.IsPublished() {
		return seed, nil, fmt.Errorf("%w: post %d is %s", ErrPreconditionFailed, seed.ID, seed.Status)
	}

	if cached, ok := s.lookup(ctx, seed.ID, limit); ok {
		s.debug("cache hit", "post", seed.ID, "limit", limit)
		return seed, cached, nil
	}

	related, err := s.Refresh(ctx, seed, limit)
	if err != nil {
		return seed, nil, err
	}
	return seed, related, nil
}

// Refresh recomputes the recommendations for seed and overwrites the cache entry.
func (s *RelatedPosts) Refresh(ctx context.Context, seed domain.Post, limit int) ([]domain.Post, error) {
	if s.recommender == nil {
		return nil, fmt.Errorf("recommender is not configured")
	}

	related, err := s.recommender.Recommend(ctx, seed, limit)
	if err != nil {
		return nil, err
	}

	s.store(ctx, seed.ID, limit, related)
	return related, nil
}

func (s *RelatedPosts) lookup(ctx context.Context, postID int64, limit int) ([]domain.Post, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, ok, err := s.cache.Get(ctx, cacheKey(postID, limit))
	if err != nil {
		s.warn("cache get failed", "post", postID, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var related []domain.Post
	if err := json.Unmarshal(raw, &related); err != nil {
		s.warn("cache entry is corrupt", "post", postID, "error", err)
		return nil, false
	}
	return related, true
}

func (s *RelatedPosts) store(ctx context.Context, postID int64, limit int, related []domain.Post) {
	if s.cache == nil {
		return
	}

	if related == nil {
		related = []domain.Post{}
	}
	payload, err := json.Marshal(related)
	if err != nil {
		s.warn("encode cache entry", "post", postID, "error", err)
		return
	}
	if err := s.cache.Set(ctx, cacheKey(postID, limit), payload, s.ttl); err != nil {
		s.warn("cache set failed", "post", postID, "error", err)
	}
}

func cacheKey(postID int64, limit int) string {
	return fmt.Sprintf("related:%d:%d", postID, limit)
}

func (s *RelatedPosts) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *RelatedPosts) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
