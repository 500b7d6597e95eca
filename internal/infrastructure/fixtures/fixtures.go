package fixtures

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"RelatedPosts/internal/domain"
	"RelatedPosts/internal/ports"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Catalog is the YAML shape of a sample blog catalog.
type Catalog struct {
	Categories []CategoryFixture `yaml:"categories"`
	Posts      []PostFixture     `yaml:"posts"`
}

// CategoryFixture describes one category.
type CategoryFixture struct {
	Title string `yaml:"title"`
	Slug  string `yaml:"slug"`
}

// PostFixture describes one post; Category refers to a category slug.
type PostFixture struct {
	Title     string    `yaml:"title"`
	Slug      string    `yaml:"slug"`
	Category  string    `yaml:"category"`
	Status    string    `yaml:"status"`
	Tags      []string  `yaml:"tags"`
	Intro     string    `yaml:"intro"`
	Content   string    `yaml:"content"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Load parses a catalog file and fills in derived slugs and default status.
func Load(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes catalog YAML.
func Parse(raw []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("parse fixtures: %w", err)
	}

	for i := range catalog.Categories {
		c := &catalog.Categories[i]
		if c.Slug == "" {
			c.Slug = Slugify(c.Title)
		}
	}
	for i := range catalog.Posts {
		p := &catalog.Posts[i]
		if p.Slug == "" {
			p.Slug = Slugify(p.Title)
		}
		if p.Status == "" {
			p.Status = string(domain.StatusDraft)
		}
		if !domain.Status(p.Status).Valid() {
			return Catalog{}, fmt.Errorf("post %s: unknown status %q", p.Slug, p.Status)
		}
	}

	return catalog, nil
}

// Apply upserts categories then posts, returning the number of posts written.
func Apply(ctx context.Context, repo ports.PostRepository, catalog Catalog) (int, error) {
	categories := make(map[string]domain.Category, len(catalog.Categories))
	for _, fixture := range catalog.Categories {
		category := domain.Category{Title: fixture.Title, Slug: fixture.Slug}
		if err := repo.SaveCategory(ctx, &category); err != nil {
			return 0, fmt.Errorf("save category %s: %w", fixture.Slug, err)
		}
		categories[category.Slug] = category
	}

	for i, fixture := range catalog.Posts {
		category, ok := categories[fixture.Category]
		if !ok {
			return i, fmt.Errorf("post %s: unknown category %q", fixture.Slug, fixture.Category)
		}

		post := domain.Post{
			Title:     fixture.Title,
			Slug:      fixture.Slug,
			Status:    domain.Status(fixture.Status),
			Category:  category,
			Intro:     fixture.Intro,
			Content:   fixture.Content,
			CreatedAt: fixture.CreatedAt,
		}
		for _, name := range fixture.Tags {
			post.Tags = append(post.Tags, domain.Tag{Name: name})
		}

		if err := repo.SavePost(ctx, &post); err != nil {
			return i, fmt.Errorf("save post %s: %w", fixture.Slug, err)
		}
	}

	return len(catalog.Posts), nil
}

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "'", "")
	return strings.Trim(nonSlug.ReplaceAllString(s, "-"), "-")
}
