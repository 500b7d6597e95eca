package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"RelatedPosts/internal/domain"
	"RelatedPosts/internal/ports"
)

var (
	// ErrInvalidArgument rejects a non-positive limit.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPreconditionFailed rejects a seed post that is not published.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrUpstreamFailure wraps catalog read errors.
	ErrUpstreamFailure = errors.New("upstream failure")
)

// Tier names the fallback stage that produced a recommendation list.
type Tier string

const (
	TierTags     Tier = "tags"
	TierCategory Tier = "category"
	TierRecent   Tier = "recent"
)

// Recommender ranks related posts for a published seed post.
type Recommender struct {
	catalog ports.PostCatalog
	logger  *slog.Logger
}

// NewRecommender wires the catalog the candidates are read from.
func NewRecommender(catalog ports.PostCatalog, log *slog.Logger) *Recommender {
	return &Recommender{catalog: catalog, logger: log}
}

// Recommend returns up to limit published posts related to seed.
func (r *Recommender) Recommend(ctx context.Context, seed domain.Post, limit int) ([]domain.Post, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}
	if !seed.IsPublished() {
		return nil, fmt.Errorf("%w: post %d is %s", ErrPreconditionFailed, seed.ID, seed.Status)
	}
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: post catalog is not configured", ErrUpstreamFailure)
	}

	candidates, err := r.catalog.FindPublishedExcluding(ctx, seed.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: find published posts: %w", ErrUpstreamFailure, err)
	}

	tier, related := Rank(seed, candidates, limit)
	r.debug("recommend", "post", seed.ID, "tier", tier, "candidates", len(candidates), "count", len(related))
	return related, nil
}

// Rank applies the tag → category → recency fallback to candidates.
// Repeated IDs are skipped, as are the seed and unpublished posts.
func Rank(seed domain.Post, candidates []domain.Post, limit int) (Tier, []domain.Post) {
	if limit <= 0 {
		return TierRecent, []domain.Post{}
	}

	eligible := eligibleCandidates(seed, candidates)

	if len(seed.Tags) > 0 {
		if related := byTagOverlap(seed, eligible, limit); len(related) > 0 {
			return TierTags, related
		}
	}

	if related := byCategory(seed, eligible, limit); len(related) > 0 {
		return TierCategory, related
	}

	return TierRecent, newestFirst(eligible, limit)
}

func eligibleCandidates(seed domain.Post, candidates []domain.Post) []domain.Post {
	seen := make(map[int64]struct{}, len(candidates))
	eligible := make([]domain.Post, 0, len(candidates))
	for _, post := range candidates {
		if post.ID == seed.ID || !post.IsPublished() {
			continue
		}
		if _, dup := seen[post.ID]; dup {
			continue
		}
		seen[post.ID] = struct{}{}
		eligible = append(eligible, post)
	}
	return eligible
}

func byTagOverlap(seed domain.Post, candidates []domain.Post, limit int) []domain.Post {
	type scored struct {
		post   domain.Post
		shared int
	}

	seedTags := seed.TagSet()
	matches := make([]scored, 0, len(candidates))
	for _, post := range candidates {
		if shared := post.SharedTags(seedTags); shared > 0 {
			matches = append(matches, scored{post: post, shared: shared})
		}
	}

	slices.SortStableFunc(matches, func(a, b scored) int {
		if c := cmp.Compare(b.shared, a.shared); c != 0 {
			return c
		}
		return b.post.CreatedAt.Compare(a.post.CreatedAt)
	})

	related := make([]domain.Post, 0, min(limit, len(matches)))
	for _, m := range matches[:min(limit, len(matches))] {
		related = append(related, m.post)
	}
	return related
}

func byCategory(seed domain.Post, candidates []domain.Post, limit int) []domain.Post {
	siblings := make([]domain.Post, 0, len(candidates))
	for _, post := range candidates {
		if post.Category.ID == seed.Category.ID {
			siblings = append(siblings, post)
		}
	}
	return newestFirst(siblings, limit)
}

func newestFirst(posts []domain.Post, limit int) []domain.Post {
	sorted := append(make([]domain.Post, 0, len(posts)), posts...)
	slices.SortStableFunc(sorted, func(a, b domain.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func (r *Recommender) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
