package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"RelatedPosts/internal/domain"
	"RelatedPosts/internal/ports"
)

// SQLRepository stores the blog catalog in Postgres or SQLite.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
}

var (
	_ ports.PostCatalog    = (*SQLRepository)(nil)
	_ ports.PostFinder     = (*SQLRepository)(nil)
	_ ports.PostRepository = (*SQLRepository)(nil)
)

// NewSQLRepository wires a sql.DB opened for the given dialect.
func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(dialect.placeholder),
	}
}

// Migrate creates the catalog tables if they do not exist yet.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema(r.dialect)); err != nil {
		return fmt.Errorf("migrate %s schema: %w", r.dialect.Name, err)
	}
	return nil
}

// FindPublishedExcluding returns every published post except seedID, newest first.
func (r *SQLRepository) FindPublishedExcluding(ctx context.Context, seedID int64) ([]domain.Post, error) {
	query := r.selectPosts().
		Where(sq.Eq{"p.status": string(domain.StatusPublished)}).
		Where(sq.NotEq{"p.id": seedID})

	return r.queryPosts(ctx, query)
}

// ListPublished returns all published posts, newest first.
func (r *SQLRepository) ListPublished(ctx context.Context) ([]domain.Post, error) {
	return r.queryPosts(ctx, r.selectPosts().Where(sq.Eq{"p.status": string(domain.StatusPublished)}))
}

// FindBySlug returns a post regardless of its status.
func (r *SQLRepository) FindBySlug(ctx context.Context, slug string) (domain.Post, error) {
	posts, err := r.queryPosts(ctx, r.selectPosts().Where(sq.Eq{"p.slug": slug}).Limit(1))
	if err != nil {
		return domain.Post{}, err
	}
	if len(posts) == 0 {
		return domain.Post{}, fmt.Errorf("post %q: %w", slug, domain.ErrNotFound)
	}
	return posts[0], nil
}

// SaveCategory upserts a category by slug and stores the resulting ID.
func (r *SQLRepository) SaveCategory(ctx context.Context, category *domain.Category) error {
	if category == nil || strings.TrimSpace(category.Slug) == "" {
		return fmt.Errorf("category slug is required")
	}

	query, args, err := r.builder.
		Insert("categories").
		Columns("title", "slug").
		Values(category.Title, category.Slug).
		Suffix("ON CONFLICT (slug) DO UPDATE SET title = EXCLUDED.title RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build category upsert: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&category.ID); err != nil {
		return fmt.Errorf("upsert category %s: %w", category.Slug, err)
	}
	return nil
}

// SavePost upserts a post by slug and replaces its tag links.
func (r *SQLRepository) SavePost(ctx context.Context, post *domain.Post) error {
	if post == nil || strings.TrimSpace(post.Slug) == "" {
		return fmt.Errorf("post slug is required")
	}
	if post.Category.ID == 0 {
		return fmt.Errorf("post %s: category is required", post.Slug)
	}
	if !post.Status.Valid() {
		return fmt.Errorf("post %s: unknown status %q", post.Slug, post.Status)
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := r.builder.
		Insert("posts").
		Columns("title", "slug", "category_id", "intro", "content", "status", "created_at").
		Values(post.Title, post.Slug, post.Category.ID, post.Intro, post.Content, string(post.Status), post.CreatedAt.UnixMicro()).
		Suffix(`ON CONFLICT (slug) DO UPDATE
		        SET title = EXCLUDED.title,
		            category_id = EXCLUDED.category_id,
		            intro = EXCLUDED.intro,
		            content = EXCLUDED.content,
		            status = EXCLUDED.status
		        RETURNING id, created_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build post upsert: %w", err)
	}

	var createdAt int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&post.ID, &createdAt); err != nil {
		return fmt.Errorf("upsert post %s: %w", post.Slug, err)
	}
	post.CreatedAt = time.UnixMicro(createdAt).UTC()

	if err := r.replaceTags(ctx, tx, post); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit post %s: %w", post.Slug, err)
	}
	return nil
}

func (r *SQLRepository) replaceTags(ctx context.Context, tx *sql.Tx, post *domain.Post) error {
	query, args, err := r.builder.Delete("post_tags").Where(sq.Eq{"post_id": post.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build tag unlink: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("unlink tags of %s: %w", post.Slug, err)
	}

	for i := range post.Tags {
		tag := &post.Tags[i]
		tag.Name = strings.TrimSpace(tag.Name)
		if tag.Name == "" {
			return fmt.Errorf("post %s: empty tag name", post.Slug)
		}

		query, args, err = r.builder.
			Insert("tags").
			Columns("name").
			Values(tag.Name).
			Suffix("ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("build tag upsert: %w", err)
		}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&tag.ID); err != nil {
			return fmt.Errorf("upsert tag %s: %w", tag.Name, err)
		}

		query, args, err = r.builder.
			Insert("post_tags").
			Columns("post_id", "tag_id").
			Values(post.ID, tag.ID).
			Suffix("ON CONFLICT DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("build tag link: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("link tag %s to %s: %w", tag.Name, post.Slug, err)
		}
	}

	return nil
}

func (r *SQLRepository) selectPosts() sq.SelectBuilder {
	return r.builder.
		Select("p.id", "p.title", "p.slug", "p.status", "p.intro", "p.content", "p.created_at",
			"c.id", "c.title", "c.slug").
		From("posts p").
		Join("categories c ON c.id = p.category_id").
		OrderBy("p.created_at DESC", "p.id DESC")
}

func (r *SQLRepository) queryPosts(ctx context.Context, builder sq.SelectBuilder) ([]domain.Post, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build posts query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	posts := make([]domain.Post, 0)
	for rows.Next() {
		var (
			post      domain.Post
			status    string
			createdAt int64
		)
		if err := rows.Scan(&post.ID, &post.Title, &post.Slug, &status, &post.Intro, &post.Content, &createdAt,
			&post.Category.ID, &post.Category.Title, &post.Category.Slug); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan post: %w", err)
		}
		post.Status = domain.Status(status)
		post.CreatedAt = time.UnixMicro(createdAt).UTC()
		posts = append(posts, post)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	if err := r.attachTags(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachTags loads tags for posts in one query; rows of the posts query
// must already be closed since SQLite runs on a single connection.
func (r *SQLRepository) attachTags(ctx context.Context, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]int64, len(posts))
	index := make(map[int64]int, len(posts))
	for i, post := range posts {
		ids[i] = post.ID
		index[post.ID] = i
	}

	query, args, err := r.builder.
		Select("pt.post_id", "t.id", "t.name").
		From("post_tags pt").
		Join("tags t ON t.id = pt.tag_id").
		Where(sq.Eq{"pt.post_id": ids}).
		OrderBy("pt.post_id", "t.name").
		ToSql()
	if err != nil {
		return fmt.Errorf("build tags query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			postID int64
			tag    domain.Tag
		)
		if err := rows.Scan(&postID, &tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		if i, ok := index[postID]; ok {
			posts[i].Tags = append(posts[i].Tags, tag)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("tags iteration: %w", err)
	}
	return nil
}
