package folio

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/calehr/folio/views"
)

func (a *App) site() views.Site {
	return views.Site{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
	}
}

func viewTag(t Tag) views.Tag {
	return views.Tag{ID: t.ID, Name: t.Name, Slug: t.Slug, Count: t.PostCount}
}

func viewTags(tags []Tag) []views.Tag {
	out := make([]views.Tag, len(tags))
	for i, t := range tags {
		out[i] = viewTag(t)
	}
	return out
}

func viewPost(p Post) views.Post {
	vp := views.Post{
		Title:       p.Title,
		Slug:        p.Slug,
		Link:        p.Link(),
		Description: p.Description,
		Excerpt:     p.Excerpt,
		Image:       p.FeaturedImage,
		Date:        p.CreatedAt.Format("2006-01-02"),
		Published:   p.Published,
		Tags:        viewTags(p.Tags),
	}
	if p.ScheduledAt != nil {
		vp.Scheduled = p.ScheduledAt.Format("2006-01-02 15:04")
	}
	return vp
}

func viewPosts(posts []Post) []views.Post {
	out := make([]views.Post, len(posts))
	for i, p := range posts {
		out[i] = viewPost(p)
	}
	return out
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin/\n\nSitemap: %s/sitemap.xml\n", a.Config.URL)
	return c.String(http.StatusOK, body)
}

// handleHome serves the landing page: intro plus the most recent posts.
func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	if len(posts) > 5 {
		posts = posts[:5]
	}
	return Render(c, views.Home(a.site(), viewPosts(posts), WebsiteJsonLD(a.Config)))
}

// handleBlogIndex serves the blog listing, optionally filtered by ?tag=.
func (a *App) handleBlogIndex(c echo.Context) error {
	tag := c.QueryParam("tag")
	posts, err := a.Cache.ListPosts(tag)
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags()
	if err != nil {
		return err
	}
	return Render(c, views.BlogIndex(a.site(), viewPosts(posts), tag, viewTags(tags)))
}

// handlePost serves a single published blog post.
func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")
	post, err := a.Cache.GetPost(slug)
	if err != nil {
		if err == ErrNotFound {
			return RenderStatus(c, http.StatusNotFound, views.NotFound(a.site()))
		}
		return err
	}
	body, err := RenderMarkdown(post.Content)
	if err != nil {
		return err
	}
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	vp := viewPost(post)
	vp.HTML = body
	return Render(c, views.PostPage(a.site(), vp, viewPosts(RelatedPosts(post, posts)), BlogPostingJsonLD(post, a.Config)))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound(a.site()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, views.ServerError(a.site()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
