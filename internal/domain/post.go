package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Status enumerates the publication lifecycle of a post.
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPublished, StatusDraft, StatusScheduled:
		return true
	default:
		return false
	}
}

// Category groups posts; the ranker only uses it as a fallback key.
type Category struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// Tag is a free-form label attached to posts.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Post is a blog entry as supplied by the catalog.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Status    Status    `json:"status"`
	Category  Category  `json:"category"`
	Tags      []Tag     `json:"tags,omitempty"`
	Intro     string    `json:"intro,omitempty"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsPublished reports whether visitors can see the post.
func (p Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// TagSet returns the post's tag IDs as a set.
func (p Post) TagSet() map[int64]struct{} {
	set := make(map[int64]struct{}, len(p.Tags))
	for _, tag := range p.Tags {
		set[tag.ID] = struct{}{}
	}
	return set
}

// SharedTags counts the tags of p that are present in set.
func (p Post) SharedTags(set map[int64]struct{}) int {
	shared := 0
	seen := make(map[int64]struct{}, len(p.Tags))
	for _, tag := range p.Tags {
		if _, dup := seen[tag.ID]; dup {
			continue
		}
		seen[tag.ID] = struct{}{}
		if _, ok := set[tag.ID]; ok {
			shared++
		}
	}
	return shared
}
