package folio

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/calehr/folio/views"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, views.AdminLogin(a.site(), false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Check(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	if a.checkAdminPassword(c.FormValue("password")) {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(c.RealIP())
	return Render(c, views.AdminLogin(a.site(), true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminNewPost(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	tags, err := a.Store.ListAllTags()
	if err != nil {
		return err
	}
	return Render(c, views.AdminPostForm(a.site(), views.Post{}, viewTags(tags), CsrfToken(c)))
}

func (a *App) handleAdminPost(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	post, err := a.Store.GetPostAny(c.Param("slug"))
	if err != nil {
		if err == ErrNotFound {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	tags, err := a.Store.ListAllTags()
	if err != nil {
		return err
	}
	vp := viewPost(post)
	vp.ID = post.ID
	vp.Content = post.Content
	return Render(c, views.AdminPostForm(a.site(), vp, viewTags(tags), CsrfToken(c)))
}

// handleAdminSave creates or updates a post from the editor form. Typed tag
// names are reconciled through a TagPicker: names matching persisted tags
// select them, repeated new names collapse to one pending entry, and only
// the pending remainder is find-or-created.
func (a *App) handleAdminSave(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	title := strings.TrimSpace(c.FormValue("title"))
	slug := strings.TrimSpace(c.FormValue("slug"))
	if slug != "" {
		slug = Slugify(slug)
	} else {
		slug = Slugify(title)
	}
	if slug == "" {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=Slug+is+required.+Add+a+title+or+slug.")
	}

	var scheduledAt *time.Time
	if raw := strings.TrimSpace(c.FormValue("scheduled_at")); raw != "" {
		t, err := time.ParseInLocation("2006-01-02T15:04", raw, time.UTC)
		if err != nil {
			return c.Redirect(http.StatusSeeOther, "/admin/?msg=Invalid+schedule+time.")
		}
		scheduledAt = &t
	}
	draft := c.FormValue("published") == ""
	published, scheduledAt := resolvePublishState(draft, scheduledAt, a.now())

	tags, err := a.reconcileTags(c.FormValue("tags"))
	if err != nil {
		return err
	}

	description := strings.TrimSpace(c.FormValue("description"))
	if description == "" {
		description = title
	}
	content := c.FormValue("content")
	post := Post{
		Title:         title,
		Slug:          slug,
		Description:   description,
		Content:       content,
		Excerpt:       Excerpt(content, DefaultExcerptLength),
		FeaturedImage: strings.TrimSpace(c.FormValue("featured_image")),
		Published:     published,
		ScheduledAt:   scheduledAt,
		Tags:          tags,
	}

	id, _ := strconv.ParseInt(c.FormValue("id"), 10, 64)
	if id == 0 {
		err = a.Store.CreatePost(&post)
	} else {
		post.ID = id
		existing, gerr := a.Store.GetPostAny(c.FormValue("original_slug"))
		if gerr == nil {
			post.CreatedAt = existing.CreatedAt
			if post.Slug != existing.Slug {
				post.Slug, gerr = a.Store.UniqueSlug(post.Slug, id)
				if gerr != nil {
					return gerr
				}
			}
		}
		err = a.Store.UpdatePost(&post)
	}
	if err == ErrSlugConflict {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=Slug+already+in+use.")
	}
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, "saved")
}

// reconcileTags runs the typed comma-separated tag names through a
// TagPicker against the persisted tag set, then resolves the partitioned
// result: existing ids are loaded, pending names are find-or-created.
func (a *App) reconcileTags(typed string) ([]Tag, error) {
	persisted, err := a.Store.ListAllTags()
	if err != nil {
		return nil, err
	}
	picker := NewTagPicker(persisted, nil)
	for _, name := range FilterEmpty(strings.Split(typed, ",")) {
		picker.Add(name)
	}
	existingIDs, newNames := picker.Partition()

	tags, err := a.Store.GetTags(existingIDs)
	if err != nil {
		return nil, err
	}
	created, err := a.Store.ResolveTags(newNames)
	if err != nil {
		return nil, err
	}
	return append(tags, created...), nil
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := a.Store.DeletePost(c.Param("slug")); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, "deleted")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	posts, err := a.Store.ListAllPosts()
	if err != nil {
		return err
	}
	return Render(c, views.AdminDashboard(a.site(), viewPosts(posts), msg, CsrfToken(c)))
}

// --- Tag management ---

func (a *App) handleAdminTags(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	tags, err := a.Store.ListAllTags()
	if err != nil {
		return err
	}
	return Render(c, views.AdminTags(a.site(), viewTags(tags), c.QueryParam("msg"), CsrfToken(c)))
}

func (a *App) handleAdminTagDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	switch err := a.Store.DeleteTag(id); err {
	case nil:
		a.Cache.Invalidate()
		return c.Redirect(http.StatusSeeOther, "/admin/tags/?msg=deleted")
	case ErrTagInUse:
		return c.Redirect(http.StatusSeeOther, "/admin/tags/?msg=Tag+is+still+in+use.")
	case ErrNotFound:
		return c.NoContent(http.StatusNotFound)
	default:
		return err
	}
}

// --- API key management ---

func viewKeys(keys []APIKey) []views.APIKey {
	out := make([]views.APIKey, len(keys))
	for i, k := range keys {
		out[i] = views.APIKey{
			ID:      k.ID,
			Name:    k.Name,
			Prefix:  k.Prefix,
			Created: k.CreatedAt.Format("2006-01-02"),
		}
		if k.LastUsedAt != nil {
			out[i].LastUsed = k.LastUsedAt.Format("2006-01-02 15:04")
		}
	}
	return out
}

func (a *App) handleAdminKeys(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	keys, err := a.Store.ListAPIKeys()
	if err != nil {
		return err
	}
	return Render(c, views.AdminKeys(a.site(), viewKeys(keys), "", CsrfToken(c)))
}

// handleAdminKeyMint creates a key and shows the plaintext exactly once.
func (a *App) handleAdminKeyMint(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		name = "unnamed"
	}
	plaintext, _, err := a.Store.MintAPIKey(name)
	if err != nil {
		return err
	}
	keys, err := a.Store.ListAPIKeys()
	if err != nil {
		return err
	}
	return Render(c, views.AdminKeys(a.site(), viewKeys(keys), plaintext, CsrfToken(c)))
}

func (a *App) handleAdminKeyRevoke(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if err := a.Store.RevokeAPIKey(id); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/keys/")
}

// --- Contact inbox ---

func (a *App) handleAdminMessages(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	msgs, err := a.Store.ListContactMessages()
	if err != nil {
		return err
	}
	out := make([]views.Message, len(msgs))
	for i, m := range msgs {
		out[i] = views.Message{
			ID:    m.ID,
			Name:  m.Name,
			Email: m.Email,
			Body:  m.Message,
			Date:  m.CreatedAt.Format("2006-01-02 15:04"),
			Read:  m.Read,
		}
	}
	return Render(c, views.AdminMessages(a.site(), out, CsrfToken(c)))
}

func (a *App) handleAdminMessageRead(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if err := a.Store.MarkContactRead(id); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/messages/")
}

func (a *App) handleAdminMessageDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if err := a.Store.DeleteContactMessage(id); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/messages/")
}
