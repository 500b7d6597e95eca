package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"RelatedPosts/internal/domain"
)

type stubFinder struct {
	posts   []domain.Post
	listErr error
}

func (s *stubFinder) FindBySlug(_ context.Context, slug string) (domain.Post, error) {
	for _, p := range s.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return domain.Post{}, fmt.Errorf("post %q: %w", slug, domain.ErrNotFound)
}

func (s *stubFinder) ListPublished(_ context.Context) ([]domain.Post, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Post
	for _, p := range s.posts {
		if p.IsPublished() {
			out = append(out, p)
		}
	}
	return out, nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = value
	m.ttls[key] = ttl
	return nil
}

func withSlug(p domain.Post, slug string) domain.Post {
	p.Slug = slug
	return p
}

func newRelatedFixture() ([]domain.Post, *stubCatalog, *stubFinder) {
	posts := []domain.Post{
		withSlug(post(1, programming, 0, tagGo), "seed"),
		withSlug(post(2, technology, 1, tagGo), "go-one"),
		withSlug(post(3, technology, 2, tagGo), "go-two"),
		withSlug(post(4, science, 3), "other"),
	}
	return posts, &stubCatalog{posts: posts}, &stubFinder{posts: posts}
}

func TestRelatedPostsCachesResults(t *testing.T) {
	t.Parallel()

	_, catalog, finder := newRelatedFixture()
	cache := newMemoryCache()
	svc := NewRelatedPosts(RelatedPostsDeps{
		Finder:      finder,
		Recommender: NewRecommender(catalog, nil),
		Cache:       cache,
		CacheTTL:    time.Minute,
	})

	seed, first, err := svc.ForSlug(context.Background(), "seed", 2)
	if err != nil {
		t.Fatalf("ForSlug error: %v", err)
	}
	if seed.ID != 1 {
		t.Fatalf("unexpected seed: %+v", seed)
	}
	assertIDs(t, first, 3, 2)

	if ttl := cache.ttls["related:1:2"]; ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	_, second, err := svc.ForSlug(context.Background(), "seed", 2)
	if err != nil {
		t.Fatalf("ForSlug error: %v", err)
	}
	assertIDs(t, second, 3, 2)
	if catalog.calls != 1 {
		t.Fatalf("expected cached second call, catalog called %d times", catalog.calls)
	}
	if second[0].Category.Slug != "technology" || second[0].Tags[0].Name != "go" {
		t.Fatalf("cached post lost fields: %+v", second[0])
	}
}

func TestRelatedPostsCachesEmptyLists(t *testing.T) {
	t.Parallel()

	seed := withSlug(post(1, programming, 0), "alone")
	catalog := &stubCatalog{posts: []domain.Post{seed}}
	cache := newMemoryCache()
	svc := NewRelatedPosts(RelatedPostsDeps{
		Finder:      &stubFinder{posts: []domain.Post{seed}},
		Recommender: NewRecommender(catalog, nil),
		Cache:       cache,
	})

	for i := 0; i < 2; i++ {
		_, related, err := svc.ForSlug(context.Background(), "alone", 3)
		if err != nil {
			t.Fatalf("ForSlug error: %v", err)
		}
		if len(related) != 0 {
			t.Fatalf("expected empty list, got %v", ids(related))
		}
	}
	if catalog.calls != 1 {
		t.Fatalf("empty list should be cached, catalog called %d times", catalog.calls)
	}
	if ttl := cache.ttls["related:1:3"]; ttl != defaultCacheTTL {
		t.Fatalf("expected default ttl, got %v", ttl)
	}
}

func TestRelatedPostsRejectsUnpublishedSeedWithCachedList(t *testing.T) {
	t.Parallel()

	_, catalog, finder := newRelatedFixture()
	cache := newMemoryCache()
	svc := NewRelatedPosts(RelatedPostsDeps{Finder: finder, Recommender: NewRecommender(catalog, nil), Cache: cache})

	if _, related, err := svc.ForSlug(context.Background(), "seed", 3); err != nil || len(related) != 2 {
		t.Fatalf("ForSlug = %v, %v", ids(related), err)
	}
	if _, ok := cache.entries["related:1:3"]; !ok {
		t.Fatal("expected cached list")
	}

	finder.posts[0].Status = domain.StatusDraft

	_, related, err := svc.ForSlug(context.Background(), "seed", 3)
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got related=%v err=%v", ids(related), err)
	}
	if len(related) != 0 {
		t.Fatalf("draft seed served %d cached posts", len(related))
	}
}

func TestRelatedPostsRejectsInvalidLimitBeforeCache(t *testing.T) {
	t.Parallel()

	_, catalog, finder := newRelatedFixture()
	cache := newMemoryCache()
	cache.entries["related:1:-1"] = []byte(`[{"id":2}]`)
	svc := NewRelatedPosts(RelatedPostsDeps{Finder: finder, Recommender: NewRecommender(catalog, nil), Cache: cache})

	for _, limit := range []int{0, -1} {
		if _, _, err := svc.ForSlug(context.Background(), "seed", limit); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("limit %d: expected ErrInvalidArgument, got %v", limit, err)
		}
	}
	if catalog.calls != 0 {
		t.Fatalf("catalog called %d times for invalid limits", catalog.calls)
	}
}

func TestRelatedPostsIgnoresCacheFailures(t *testing.T) {
	t.Parallel()

	_, catalog, finder := newRelatedFixture()
	cache := newMemoryCache()
	cache.getErr = errors.New("get down")
	cache.setErr = errors.New("set down")
	svc := NewRelatedPosts(RelatedPostsDeps{Finder: finder, Recommender: NewRecommender(catalog, nil), Cache: cache})

	_, related, err := svc.ForSlug(context.Background(), "seed", 3)
	if err != nil {
		t.Fatalf("cache failure should not surface: %v", err)
	}
	assertIDs(t, related, 3, 2)
}

func TestRelatedPostsIgnoresCorruptEntries(t *testing.T) {
	t.Parallel()

	_, catalog, finder := newRelatedFixture()
	cache := newMemoryCache()
	cache.entries["related:1:3"] = []byte("{not json")
	svc := NewRelatedPosts(RelatedPostsDeps{Finder: finder, Recommender: NewRecommender(catalog, nil), Cache: cache})

	_, related, err := svc.ForSlug(context.Background(), "seed", 3)
	if err != nil {
		t.Fatalf("ForSlug error: %v", err)
	}
	assertIDs(t, related, 3, 2)
	if catalog.calls != 1 {
		t.Fatalf("expected recompute, got %d catalog calls", catalog.calls)
	}
}

func TestRelatedPostsWithoutCache(t *testing.T) {
	t.Parallel()

	_, catalog, finder := newRelatedFixture()
	svc := NewRelatedPosts(RelatedPostsDeps{Finder: finder, Recommender: NewRecommender(catalog, nil)})

	for i := 0; i < 2; i++ {
		if _, _, err := svc.ForSlug(context.Background(), "seed", 3); err != nil {
			t.Fatalf("ForSlug error: %v", err)
		}
	}
	if catalog.calls != 2 {
		t.Fatalf("expected 2 catalog calls without cache, got %d", catalog.calls)
	}
}

func TestRelatedPostsErrors(t *testing.T) {
	t.Parallel()

	posts, catalog, finder := newRelatedFixture()
	draft := withSlug(post(9, programming, 0), "draft")
	draft.Status = domain.StatusDraft
	finder.posts = append(posts, draft)
	svc := NewRelatedPosts(RelatedPostsDeps{Finder: finder, Recommender: NewRecommender(catalog, nil), Cache: newMemoryCache()})

	if _, _, err := svc.ForSlug(context.Background(), "missing", 3); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := svc.ForSlug(context.Background(), "draft", 3); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
	if _, _, err := svc.ForSlug(context.Background(), "seed", 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	catalog.err = errors.New("db gone")
	if _, _, err := svc.ForSlug(context.Background(), "seed", 3); !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("expected ErrUpstreamFailure, got %v", err)
	}
}
