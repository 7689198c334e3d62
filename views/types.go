// Package views renders the site's HTML as templ components built in code.
// It depends only on its own view models so handlers decide what to expose.
package views

// Site holds site-wide settings rendered into every page.
type Site struct {
	Name        string
	URL         string
	Description string
	Author      string
}

// Post is the view model of a blog post.
type Post struct {
	ID          int64
	Title       string
	Slug        string
	Link        string
	Description string
	Excerpt     string
	Image       string
	HTML        string // rendered, sanitized post body
	Content     string // raw markdown, for the editor
	Date        string
	Scheduled   string // non-empty when a publish is scheduled
	Published   bool
	Tags        []Tag
}

// Tag is the view model of a tag.
type Tag struct {
	ID    int64
	Name  string
	Slug  string
	Count int
}

// APIKey is the view model of an API key row (digest only, never plaintext).
type APIKey struct {
	ID       int64
	Name     string
	Prefix   string
	Created  string
	LastUsed string
}

// Message is the view model of a contact inbox entry.
type Message struct {
	ID    int64
	Name  string
	Email string
	Body  string
	Date  string
	Read  bool
}
