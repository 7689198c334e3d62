package folio

import (
	"sync"
	"time"
)

// PostCache is an in-memory cache of published posts and their tags with a
// TTL. Handlers read through it; writers (admin saves, the scheduled
// publisher) call Invalidate after committing.
type PostCache struct {
	mu      sync.RWMutex
	posts   []Post
	tags    []Tag
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration) *PostCache {
	return &PostCache{store: s, ttl: ttl}
}

// valid tracks freshness by fetch time rather than the posts slice, which
// is nil when no posts are published yet.
func (c *PostCache) valid() bool {
	return !c.fetched.IsZero() && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.tags = nil
	c.fetched = time.Time{}
	c.mu.Unlock()
}

// ensureLoaded returns cached posts and tags after ensuring freshness.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ensureLoaded() ([]Post, []Tag, error) {
	c.mu.RLock()
	if c.valid() {
		posts, tags := c.posts, c.tags
		c.mu.RUnlock()
		return posts, tags, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.posts, c.tags, nil
	}
	posts, err := c.store.ListPosts("")
	if err != nil {
		return nil, nil, err
	}
	tags, err := c.store.ListTags()
	if err != nil {
		return nil, nil, err
	}
	c.posts = posts
	c.tags = tags
	c.fetched = time.Now()
	return posts, tags, nil
}

// ListPosts returns published posts, optionally filtered by tag slug.
func (c *PostCache) ListPosts(tagSlug string) ([]Post, error) {
	posts, _, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	if tagSlug == "" {
		return posts, nil
	}
	var filtered []Post
	for _, p := range posts {
		for _, t := range p.Tags {
			if t.Slug == tagSlug {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered, nil
}

// ListTags returns the tags of published posts.
func (c *PostCache) ListTags() ([]Tag, error) {
	_, tags, err := c.ensureLoaded()
	return tags, err
}

// GetPost returns a single published post by slug from the cache.
func (c *PostCache) GetPost(slug string) (Post, error) {
	posts, _, err := c.ensureLoaded()
	if err != nil {
		return Post{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}
