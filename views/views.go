package views

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// page wraps a body-writing function in the shared layout.
func page(site Site, title, jsonLD string, body func(w io.Writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		fmt.Fprintf(w, `<meta name="viewport" content="width=device-width, initial-scale=1">`)
		fmt.Fprintf(w, `<title>%s</title>`, esc(title))
		if site.Description != "" {
			fmt.Fprintf(w, `<meta name="description" content="%s">`, esc(site.Description))
		}
		fmt.Fprintf(w, `<link rel="stylesheet" href="/public/style.css">`)
		if jsonLD != "" {
			fmt.Fprintf(w, `<script type="application/ld+json">%s</script>`, jsonLD)
		}
		fmt.Fprintf(w, `</head><body><header><nav>`)
		fmt.Fprintf(w, `<a href="/">%s</a> <a href="/blog/">Blog</a> <a href="/contact/">Contact</a>`, esc(site.Name))
		fmt.Fprintf(w, `</nav></header><main>`)
		body(w)
		fmt.Fprintf(w, `</main><footer><p>&copy; %s</p></footer></body></html>`, esc(site.Author))
		return nil
	})
}

func esc(s string) string {
	return html.EscapeString(s)
}

func writePostCard(w io.Writer, p Post) {
	fmt.Fprintf(w, `<article class="post-card"><h2><a href="%s">%s</a></h2>`, esc(p.Link), esc(p.Title))
	fmt.Fprintf(w, `<time>%s</time>`, esc(p.Date))
	if p.Excerpt != "" {
		fmt.Fprintf(w, `<p>%s</p>`, esc(p.Excerpt))
	}
	writeTagLinks(w, p.Tags)
	fmt.Fprintf(w, `</article>`)
}

func writeTagLinks(w io.Writer, tags []Tag) {
	if len(tags) == 0 {
		return
	}
	fmt.Fprintf(w, `<ul class="tags">`)
	for _, t := range tags {
		fmt.Fprintf(w, `<li><a href="/blog/?tag=%s">%s</a></li>`, esc(t.Slug), esc(t.Name))
	}
	fmt.Fprintf(w, `</ul>`)
}

// Home is the landing page: intro plus recent posts.
func Home(site Site, recent []Post, jsonLD string) templ.Component {
	return page(site, site.Name, jsonLD, func(w io.Writer) {
		fmt.Fprintf(w, `<section class="intro"><h1>%s</h1><p>%s</p></section>`, esc(site.Name), esc(site.Description))
		fmt.Fprintf(w, `<section class="recent"><h2>Recent posts</h2>`)
		for _, p := range recent {
			writePostCard(w, p)
		}
		fmt.Fprintf(w, `</section>`)
	})
}

// BlogIndex lists published posts, optionally filtered by tag.
func BlogIndex(site Site, posts []Post, activeTag string, tags []Tag) templ.Component {
	title := "Blog — " + site.Name
	return page(site, title, "", func(w io.Writer) {
		fmt.Fprintf(w, `<h1>Blog</h1>`)
		fmt.Fprintf(w, `<nav class="tag-filter"><a href="/blog/"%s>All</a>`, activeClass(activeTag == ""))
		for _, t := range tags {
			fmt.Fprintf(w, ` <a href="/blog/?tag=%s"%s>%s (%d)</a>`, esc(t.Slug), activeClass(t.Slug == activeTag), esc(t.Name), t.Count)
		}
		fmt.Fprintf(w, `</nav>`)
		if len(posts) == 0 {
			fmt.Fprintf(w, `<p>No posts yet.</p>`)
		}
		for _, p := range posts {
			writePostCard(w, p)
		}
	})
}

func activeClass(active bool) string {
	if active {
		return ` class="active"`
	}
	return ""
}

// PostPage renders a single post with its related posts.
func PostPage(site Site, post Post, related []Post, jsonLD string) templ.Component {
	title := post.Title + " — " + site.Name
	return page(site, title, jsonLD, func(w io.Writer) {
		fmt.Fprintf(w, `<article class="post"><h1>%s</h1><time>%s</time>`, esc(post.Title), esc(post.Date))
		if post.Image != "" {
			fmt.Fprintf(w, `<img src="%s" alt="">`, esc(post.Image))
		}
		writeTagLinks(w, post.Tags)
		// Post.HTML is already sanitized by the markdown pipeline.
		fmt.Fprintf(w, `<div class="content">%s</div></article>`, post.HTML)
		if len(related) > 0 {
			fmt.Fprintf(w, `<aside class="related"><h2>Related</h2><ul>`)
			for _, p := range related {
				fmt.Fprintf(w, `<li><a href="%s">%s</a></li>`, esc(p.Link), esc(p.Title))
			}
			fmt.Fprintf(w, `</ul></aside>`)
		}
	})
}

// Contact renders the contact form, an error, or the thank-you state.
func Contact(site Site, csrf, problem string, sent bool) templ.Component {
	return page(site, "Contact — "+site.Name, "", func(w io.Writer) {
		fmt.Fprintf(w, `<h1>Contact</h1>`)
		if sent {
			fmt.Fprintf(w, `<p class="ok">Thanks, your message is on its way.</p>`)
			return
		}
		if problem != "" {
			fmt.Fprintf(w, `<p class="error">%s</p>`, esc(problem))
		}
		fmt.Fprintf(w, `<form method="post" action="/contact/">`)
		fmt.Fprintf(w, `<input type="hidden" name="_csrf" value="%s">`, esc(csrf))
		fmt.Fprintf(w, `<label>Name <input name="name" required></label>`)
		fmt.Fprintf(w, `<label>Email <input type="email" name="email" required></label>`)
		fmt.Fprintf(w, `<label>Message <textarea name="message" required></textarea></label>`)
		fmt.Fprintf(w, `<button type="submit">Send</button></form>`)
	})
}

// NotFound is the 404 page.
func NotFound(site Site) templ.Component {
	return page(site, "Not found — "+site.Name, "", func(w io.Writer) {
		fmt.Fprintf(w, `<h1>404</h1><p>That page doesn't exist. <a href="/">Back home</a>.</p>`)
	})
}

// ServerError is the 500 page.
func ServerError(site Site) templ.Component {
	return page(site, "Error — "+site.Name, "", func(w io.Writer) {
		fmt.Fprintf(w, `<h1>Something broke</h1><p>Try again in a moment.</p>`)
	})
}
