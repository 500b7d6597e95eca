package storage

import "fmt"

func schema(d Dialect) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS categories (
	id %[1]s,
	title TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS posts (
	id %[1]s,
	title TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	intro TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'draft',
	created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_created_status ON posts(created_at, status);
CREATE INDEX IF NOT EXISTS idx_posts_category_status ON posts(category_id, status);

CREATE TABLE IF NOT EXISTS tags (
	id %[1]s,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS post_tags (
	post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (post_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_post_tags_tag ON post_tags(tag_id);
`, d.primaryKey)
}
