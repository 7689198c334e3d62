package folio

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = sql.ErrNoRows

// ErrTagInUse is returned when deleting a tag that posts still reference.
var ErrTagInUse = errors.New("folio: tag is referenced by posts")

// ErrSlugConflict is returned when a post insert loses a slug race even
// after recomputing candidates. Callers should surface it as a conflict,
// not a server error.
var ErrSlugConflict = errors.New("folio: slug conflict")

// Store wraps a SQLite database and provides CRUD operations for posts,
// tags, API keys, and contact messages.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent read/write access, busy_timeout so writers wait
	// instead of failing with SQLITE_BUSY, synchronous=NORMAL is safe with
	// WAL and avoids an fsync per transaction. Foreign keys are off by
	// default in SQLite and the join table relies on them.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
		PRAGMA cache_size=-8000;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    excerpt TEXT,
    featured_image TEXT,
    published INTEGER NOT NULL DEFAULT 0,
    scheduled_at DATETIME,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS post_tags (
    post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
    tag_id INTEGER NOT NULL REFERENCES tags(id),
    PRIMARY KEY (post_id, tag_id)
);

CREATE TABLE IF NOT EXISTS api_keys (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    prefix TEXT NOT NULL,
    key_hash TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL,
    last_used_at DATETIME
);

CREATE TABLE IF NOT EXISTS contact_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    message TEXT NOT NULL,
    read INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_published ON posts(published);
CREATE INDEX IF NOT EXISTS idx_posts_scheduled ON posts(scheduled_at) WHERE scheduled_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_post_tags_tag ON post_tags(tag_id);
`)
	return err
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure on the given column (e.g. "posts.slug").
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}

const postColumns = `id, title, slug, description, content, excerpt, featured_image, published, scheduled_at, created_at, updated_at`

func scanPost(sc interface{ Scan(...any) error }) (Post, error) {
	var p Post
	var excerpt, image sql.NullString
	var scheduled sql.NullTime
	var published int
	err := sc.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Content,
		&excerpt, &image, &published, &scheduled, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Post{}, err
	}
	p.Excerpt = excerpt.String
	p.FeaturedImage = image.String
	p.Published = published == 1
	if scheduled.Valid {
		t := scheduled.Time
		p.ScheduledAt = &t
	}
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SlugTaken reports whether any post other than excludeID already uses slug.
func (s *Store) SlugTaken(slug string, excludeID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM posts WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreatePost inserts p using p.Slug as the base slug and fills in p.ID,
// p.Slug, and timestamps. It resolves slug uniqueness optimistically: the
// candidate is checked, inserted, and on a UNIQUE violation (a concurrent
// creator won the race) the next candidate is computed and the insert
// retried, so the check-then-act window is closed by the constraint itself.
func (s *Store) CreatePost(p *Post) error {
	base := p.Slug
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		slug, err := s.UniqueSlug(base, 0)
		if err != nil {
			return err
		}
		res, err := s.db.Exec(`
			INSERT INTO posts (title, slug, description, content, excerpt, featured_image, published, scheduled_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Title, slug, p.Description, p.Content, nullString(p.Excerpt), nullString(p.FeaturedImage),
			boolInt(p.Published), nullTime(p.ScheduledAt), p.CreatedAt.UTC(), p.UpdatedAt)
		if isUniqueViolation(err, "posts.slug") {
			continue
		}
		if err != nil {
			return err
		}
		p.Slug = slug
		p.ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
		return s.setPostTags(p.ID, p.Tags)
	}
	return ErrSlugConflict
}

// UpdatePost rewrites all editable fields of the post with p.ID and
// replaces its tag associations.
func (s *Store) UpdatePost(p *Post) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE posts SET title = ?, slug = ?, description = ?, content = ?, excerpt = ?,
			featured_image = ?, published = ?, scheduled_at = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Slug, p.Description, p.Content, nullString(p.Excerpt), nullString(p.FeaturedImage),
		boolInt(p.Published), nullTime(p.ScheduledAt), p.UpdatedAt, p.ID)
	if isUniqueViolation(err, "posts.slug") {
		return ErrSlugConflict
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return s.setPostTags(p.ID, p.Tags)
}

func (s *Store) setPostTags(postID int64, tags []Tag) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM post_tags WHERE post_id = ?`, postID); err != nil {
		return err
	}
	for _, t := range tags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`, postID, t.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetPost returns a single published post by slug, tags included.
func (s *Store) GetPost(slug string) (Post, error) {
	return s.getPost(slug, true)
}

// GetPostAny returns a post by slug regardless of published status (for admin).
func (s *Store) GetPostAny(slug string) (Post, error) {
	return s.getPost(slug, false)
}

func (s *Store) getPost(slug string, publishedOnly bool) (Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts WHERE slug = ?`
	if publishedOnly {
		q += ` AND published = 1`
	}
	p, err := scanPost(s.db.QueryRow(q, slug))
	if err != nil {
		return Post{}, err
	}
	p.Tags, err = s.postTags(p.ID)
	return p, err
}

func (s *Store) postTags(postID int64) ([]Tag, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.slug FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = ? ORDER BY t.name`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ListPosts returns published posts ordered by creation date descending.
// If tagSlug is non-empty, results are filtered to posts carrying that tag.
func (s *Store) ListPosts(tagSlug string) ([]Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts WHERE published = 1 ORDER BY created_at DESC`
	args := []any{}
	if tagSlug != "" {
		q = `SELECT ` + postColumns + ` FROM posts
			WHERE published = 1 AND id IN (
				SELECT pt.post_id FROM post_tags pt JOIN tags t ON t.id = pt.tag_id WHERE t.slug = ?
			) ORDER BY created_at DESC`
		args = append(args, tagSlug)
	}
	return s.listPosts(q, args...)
}

// ListAllPosts returns every post (published, drafts, scheduled) for admin.
func (s *Store) ListAllPosts() ([]Post, error) {
	return s.listPosts(`SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC`)
}

func (s *Store) listPosts(q string, args ...any) ([]Post, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Tags, err = s.postTags(posts[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// DeletePost removes a post by slug. Join rows go with it via the cascade.
func (s *Store) DeletePost(slug string) error {
	_, err := s.db.Exec(`DELETE FROM posts WHERE slug = ?`, slug)
	return err
}

// FindOrCreateTag returns the tag whose slug matches Slugify(name),
// creating it when absent. Matching by slug makes the lookup effectively
// case-insensitive ("Go" and "go" share a tag). A concurrent creator losing
// the insert race falls back to re-reading the winner's row.
func (s *Store) FindOrCreateTag(name string) (Tag, error) {
	name = strings.TrimSpace(name)
	slug := Slugify(name)
	if slug == "" {
		return Tag{}, fmt.Errorf("folio: tag name %q produces an empty slug", name)
	}
	var t Tag
	err := s.db.QueryRow(`SELECT id, name, slug FROM tags WHERE slug = ?`, slug).Scan(&t.ID, &t.Name, &t.Slug)
	if err == nil {
		return t, nil
	}
	if err != sql.ErrNoRows {
		return Tag{}, err
	}
	res, err := s.db.Exec(`INSERT INTO tags (name, slug) VALUES (?, ?)`, name, slug)
	if isUniqueViolation(err, "tags.slug") {
		err = s.db.QueryRow(`SELECT id, name, slug FROM tags WHERE slug = ?`, slug).Scan(&t.ID, &t.Name, &t.Slug)
		return t, err
	}
	if err != nil {
		return Tag{}, err
	}
	t = Tag{Name: name, Slug: slug}
	t.ID, err = res.LastInsertId()
	return t, err
}

// ResolveTags find-or-creates each name sequentially. If resolution fails
// partway, tags already created stay created; the error reports which name
// failed. Tags are global reusable entities, so the partial state is
// indistinguishable from deliberately pre-created tags.
func (s *Store) ResolveTags(names []string) ([]Tag, error) {
	var tags []Tag
	seen := make(map[string]struct{})
	for _, name := range names {
		slug := Slugify(name)
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		t, err := s.FindOrCreateTag(name)
		if err != nil {
			return tags, fmt.Errorf("folio: resolve tag %q: %w", name, err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// ListTags returns tags that appear on at least one published post, with
// post counts, ordered by name.
func (s *Store) ListTags() ([]Tag, error) {
	return s.queryTags(`
		SELECT t.id, t.name, t.slug, COUNT(p.id) FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		JOIN posts p ON p.id = pt.post_id AND p.published = 1
		GROUP BY t.id ORDER BY t.name`)
}

// ListAllTags returns every tag with its total post count (admin view).
func (s *Store) ListAllTags() ([]Tag, error) {
	return s.queryTags(`
		SELECT t.id, t.name, t.slug, COUNT(pt.post_id) FROM tags t
		LEFT JOIN post_tags pt ON pt.tag_id = t.id
		GROUP BY t.id ORDER BY t.name`)
}

func (s *Store) queryTags(q string) ([]Tag, error) {
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.PostCount); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// GetTags returns the tags with the given ids, skipping ids that no longer
// exist (a concurrent admin may have deleted one).
func (s *Store) GetTags(ids []int64) ([]Tag, error) {
	var tags []Tag
	for _, id := range ids {
		var t Tag
		err := s.db.QueryRow(`SELECT id, name, slug FROM tags WHERE id = ?`, id).Scan(&t.ID, &t.Name, &t.Slug)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// DeleteTag removes a tag. Deletion is blocked with ErrTagInUse while any
// post still references it.
func (s *Store) DeleteTag(id int64) error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM post_tags WHERE tag_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrTagInUse
	}
	res, err := s.db.Exec(`DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PublishedRef identifies a post flipped by the scheduled publisher.
type PublishedRef struct {
	ID    int64  `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// PublishDue flips published on every post whose scheduled time has elapsed,
// in a single transaction: either all due posts publish or none do. Already
// published posts no longer match the query, so re-running (or running
// concurrently) is a no-op.
func (s *Store) PublishDue(now time.Time) ([]PublishedRef, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT id, slug, title FROM posts
		WHERE published = 0 AND scheduled_at IS NOT NULL AND scheduled_at <= ?
		ORDER BY scheduled_at`, now.UTC())
	if err != nil {
		return nil, err
	}
	var due []PublishedRef
	for rows.Next() {
		var r PublishedRef
		if err := rows.Scan(&r.ID, &r.Slug, &r.Title); err != nil {
			rows.Close()
			return nil, err
		}
		due = append(due, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(due) == 0 {
		return nil, nil
	}

	for _, r := range due {
		if _, err := tx.Exec(`UPDATE posts SET published = 1, updated_at = ? WHERE id = ?`, now.UTC(), r.ID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return due, nil
}

// --- Contact messages ---

// SaveContactMessage stores a contact form submission and fills in m.ID.
func (s *Store) SaveContactMessage(m *ContactMessage) error {
	m.CreatedAt = time.Now().UTC()
	res, err := s.db.Exec(`INSERT INTO contact_messages (name, email, message, read, created_at) VALUES (?, ?, ?, 0, ?)`,
		m.Name, m.Email, m.Message, m.CreatedAt)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

// ListContactMessages returns all contact messages, newest first.
func (s *Store) ListContactMessages() ([]ContactMessage, error) {
	rows, err := s.db.Query(`SELECT id, name, email, message, read, created_at FROM contact_messages ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []ContactMessage
	for rows.Next() {
		var m ContactMessage
		var read int
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &read, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Read = read == 1
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkContactRead marks a contact message as read.
func (s *Store) MarkContactRead(id int64) error {
	_, err := s.db.Exec(`UPDATE contact_messages SET read = 1 WHERE id = ?`, id)
	return err
}

// DeleteContactMessage removes a contact message.
func (s *Store) DeleteContactMessage(id int64) error {
	_, err := s.db.Exec(`DELETE FROM contact_messages WHERE id = ?`, id)
	return err
}
