package views

import (
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// AdminLogin is the password prompt for the dashboard.
func AdminLogin(site Site, showError bool, csrf string) templ.Component {
	return page(site, "Admin — "+site.Name, "", func(w io.Writer) {
		fmt.Fprintf(w, `<h1>Admin</h1>`)
		if showError {
			fmt.Fprintf(w, `<p class="error">Wrong password.</p>`)
		}
		fmt.Fprintf(w, `<form method="post" action="/admin/login/">`)
		fmt.Fprintf(w, `<input type="hidden" name="_csrf" value="%s">`, esc(csrf))
		fmt.Fprintf(w, `<label>Password <input type="password" name="password" autofocus></label>`)
		fmt.Fprintf(w, `<button type="submit">Log in</button></form>`)
	})
}

func adminNav(w io.Writer, csrf string) {
	fmt.Fprintf(w, `<nav class="admin-nav"><a href="/admin/">Posts</a> <a href="/admin/tags/">Tags</a> `)
	fmt.Fprintf(w, `<a href="/admin/keys/">API keys</a> <a href="/admin/messages/">Messages</a> `)
	fmt.Fprintf(w, `<a href="/admin/analytics/">Analytics</a>`)
	fmt.Fprintf(w, `<form method="post" action="/admin/logout/" class="inline">`)
	fmt.Fprintf(w, `<input type="hidden" name="_csrf" value="%s"><button type="submit">Log out</button></form></nav>`, esc(csrf))
}

// AdminDashboard lists every post with its state.
func AdminDashboard(site Site, posts []Post, message, csrf string) templ.Component {
	return page(site, "Admin — "+site.Name, "", func(w io.Writer) {
		adminNav(w, csrf)
		if message != "" {
			fmt.Fprintf(w, `<p class="msg">%s</p>`, esc(message))
		}
		fmt.Fprintf(w, `<p><a href="/admin/post/new/" class="button">New post</a></p>`)
		fmt.Fprintf(w, `<table><tr><th>Title</th><th>Date</th><th>State</th><th></th></tr>`)
		for _, p := range posts {
			fmt.Fprintf(w, `<tr><td><a href="/admin/post/%s/">%s</a></td><td>%s</td><td>%s</td>`,
				esc(p.Slug), esc(p.Title), esc(p.Date), esc(postState(p)))
			fmt.Fprintf(w, `<td><button hx-delete="/admin/post/%s/" hx-confirm="Delete %s?" hx-headers='{"X-CSRF-Token":"%s"}'>Delete</button></td></tr>`,
				esc(p.Slug), esc(p.Title), esc(csrf))
		}
		fmt.Fprintf(w, `</table>`)
	})
}

func postState(p Post) string {
	switch {
	case p.Published:
		return "published"
	case p.Scheduled != "":
		return "scheduled " + p.Scheduled
	default:
		return "draft"
	}
}

// AdminPostForm is the post editor. Tags are typed as comma-separated
// names; existing names reconcile to their tags on save.
func AdminPostForm(site Site, post Post, allTags []Tag, csrf string) templ.Component {
	return page(site, "Edit — "+site.Name, "", func(w io.Writer) {
		adminNav(w, csrf)
		fmt.Fprintf(w, `<form method="post" action="/admin/save/">`)
		fmt.Fprintf(w, `<input type="hidden" name="_csrf" value="%s">`, esc(csrf))
		fmt.Fprintf(w, `<input type="hidden" name="id" value="%d">`, post.ID)
		fmt.Fprintf(w, `<input type="hidden" name="original_slug" value="%s">`, esc(post.Slug))
		fmt.Fprintf(w, `<label>Title <input name="title" value="%s" required></label>`, esc(post.Title))
		fmt.Fprintf(w, `<label>Slug <input name="slug" value="%s" placeholder="auto from title"></label>`, esc(post.Slug))
		fmt.Fprintf(w, `<label>Description <input name="description" value="%s"></label>`, esc(post.Description))
		fmt.Fprintf(w, `<label>Featured image URL <input name="featured_image" value="%s"></label>`, esc(post.Image))
		fmt.Fprintf(w, `<label>Tags <input name="tags" value="%s" placeholder="go, sqlite, new-tag"></label>`, esc(tagNameList(post.Tags)))
		fmt.Fprintf(w, `<datalist id="known-tags">`)
		for _, t := range allTags {
			fmt.Fprintf(w, `<option value="%s">`, esc(t.Name))
		}
		fmt.Fprintf(w, `</datalist>`)
		fmt.Fprintf(w, `<label>Content <textarea name="content" rows="20">%s</textarea></label>`, esc(post.Content))
		checked := ""
		if post.Published {
			checked = " checked"
		}
		fmt.Fprintf(w, `<label><input type="checkbox" name="published"%s> Published</label>`, checked)
		fmt.Fprintf(w, `<label>Schedule for <input type="datetime-local" name="scheduled_at" value="%s"></label>`, esc(post.Scheduled))
		fmt.Fprintf(w, `<button type="submit">Save</button></form>`)
	})
}

func tagNameList(tags []Tag) string {
	s := ""
	for i, t := range tags {
		if i > 0 {
			s += ", "
		}
		s += t.Name
	}
	return s
}

// AdminTags lists all tags with usage counts. Delete is blocked server-side
// while a tag is still referenced.
func AdminTags(site Site, tags []Tag, message, csrf string) templ.Component {
	return page(site, "Tags — "+site.Name, "", func(w io.Writer) {
		adminNav(w, csrf)
		if message != "" {
			fmt.Fprintf(w, `<p class="msg">%s</p>`, esc(message))
		}
		fmt.Fprintf(w, `<table><tr><th>Tag</th><th>Slug</th><th>Posts</th><th></th></tr>`)
		for _, t := range tags {
			fmt.Fprintf(w, `<tr><td>%s</td><td>%s</td><td>%d</td>`, esc(t.Name), esc(t.Slug), t.Count)
			fmt.Fprintf(w, `<td><button hx-delete="/admin/tags/%d/" hx-headers='{"X-CSRF-Token":"%s"}'>Delete</button></td></tr>`, t.ID, esc(csrf))
		}
		fmt.Fprintf(w, `</table>`)
	})
}

// AdminKeys lists API keys and shows a freshly minted plaintext exactly once.
func AdminKeys(site Site, keys []APIKey, minted, csrf string) templ.Component {
	return page(site, "API keys — "+site.Name, "", func(w io.Writer) {
		adminNav(w, csrf)
		if minted != "" {
			fmt.Fprintf(w, `<p class="msg">New key (copy it now, it will not be shown again): <code>%s</code></p>`, esc(minted))
		}
		fmt.Fprintf(w, `<form method="post" action="/admin/keys/">`)
		fmt.Fprintf(w, `<input type="hidden" name="_csrf" value="%s">`, esc(csrf))
		fmt.Fprintf(w, `<label>Name <input name="name" placeholder="ci-pipeline"></label>`)
		fmt.Fprintf(w, `<button type="submit">Mint key</button></form>`)
		fmt.Fprintf(w, `<table><tr><th>Name</th><th>Prefix</th><th>Created</th><th>Last used</th><th></th></tr>`)
		for _, k := range keys {
			lastUsed := k.LastUsed
			if lastUsed == "" {
				lastUsed = "never"
			}
			fmt.Fprintf(w, `<tr><td>%s</td><td><code>%s&hellip;</code></td><td>%s</td><td>%s</td>`,
				esc(k.Name), esc(k.Prefix), esc(k.Created), esc(lastUsed))
			fmt.Fprintf(w, `<td><button hx-delete="/admin/keys/%d/" hx-headers='{"X-CSRF-Token":"%s"}'>Revoke</button></td></tr>`, k.ID, esc(csrf))
		}
		fmt.Fprintf(w, `</table>`)
	})
}

// AdminMessages is the contact form inbox.
func AdminMessages(site Site, msgs []Message, csrf string) templ.Component {
	return page(site, "Messages — "+site.Name, "", func(w io.Writer) {
		adminNav(w, csrf)
		if len(msgs) == 0 {
			fmt.Fprintf(w, `<p>No messages.</p>`)
			return
		}
		for _, m := range msgs {
			cls := "message"
			if !m.Read {
				cls += " unread"
			}
			fmt.Fprintf(w, `<article class="%s"><header><strong>%s</strong> &lt;%s&gt; <time>%s</time></header>`,
				cls, esc(m.Name), esc(m.Email), esc(m.Date))
			fmt.Fprintf(w, `<p>%s</p>`, esc(m.Body))
			if !m.Read {
				fmt.Fprintf(w, `<form method="post" action="/admin/messages/%d/read/" class="inline">`, m.ID)
				fmt.Fprintf(w, `<input type="hidden" name="_csrf" value="%s"><button type="submit">Mark read</button></form>`, esc(csrf))
			}
			fmt.Fprintf(w, `<button hx-delete="/admin/messages/%d/" hx-headers='{"X-CSRF-Token":"%s"}'>Delete</button></article>`, m.ID, esc(csrf))
		}
	})
}
