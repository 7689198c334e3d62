// Package folio is a personal portfolio site with an integrated blog.
// It provides public pages, a Markdown blog with tags and scheduled
// publishing, a contact form, a session-gated admin dashboard, page-view
// analytics, and an API-key-guarded ingestion API.
package folio

import "time"

// Post is the core content type stored in SQLite and rendered by templates.
type Post struct {
	ID            int64
	Title         string
	Slug          string
	Description   string
	Content       string
	Excerpt       string
	FeaturedImage string
	Published     bool
	ScheduledAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Tags          []Tag
}

// Link returns the public path of the post.
func (p Post) Link() string {
	return "/blog/" + p.Slug + "/"
}

// TagNames returns the display names of the post's tags.
func (p Post) TagNames() []string {
	names := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		names[i] = t.Name
	}
	return names
}

// Tag is a reusable label attached to posts. Tags are created lazily the
// first time a name is referenced and are never auto-deleted.
type Tag struct {
	ID        int64
	Name      string
	Slug      string
	PostCount int
}

// ContactMessage is a submission from the public contact form.
type ContactMessage struct {
	ID        int64
	Name      string
	Email     string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// APIKey is the stored metadata of an ingestion API key. Only a one-way
// digest of the key is persisted; the plaintext is shown once at mint time.
type APIKey struct {
	ID         int64
	Name       string
	Prefix     string
	KeyHash    string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}
