package folio

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// apiKeyContextKey is where requireAPIKey stashes the authenticated key.
const apiKeyContextKey = "folio_api_key"

// PostSubmission is the JSON body accepted by the ingestion endpoint.
type PostSubmission struct {
	Title         string     `json:"title" validate:"required,max=200"`
	Content       string     `json:"content" validate:"required"`
	Description   string     `json:"description" validate:"max=500"`
	Tags          []string   `json:"tags" validate:"max=20,dive,max=64"`
	FeaturedImage string     `json:"featuredImage" validate:"omitempty,url"`
	Draft         bool       `json:"draft"`
	Date          *time.Time `json:"date"`
	ScheduledAt   *time.Time `json:"scheduledAt"`
}

// postJSON is the public representation of a created post.
type postJSON struct {
	ID          int64    `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Published   bool     `json:"published"`
	ScheduledAt *string  `json:"scheduledAt"`
	CreatedAt   string   `json:"createdAt"`
	Tags        []string `json:"tags"`
}

func toPostJSON(p Post) postJSON {
	out := postJSON{
		ID:        p.ID,
		Slug:      p.Slug,
		Title:     p.Title,
		Published: p.Published,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		Tags:      p.TagNames(),
	}
	if p.ScheduledAt != nil {
		s := p.ScheduledAt.UTC().Format(time.RFC3339)
		out.ScheduledAt = &s
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

func apiError(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]any{"success": false, "error": msg})
}

// requireAPIKey authenticates the Authorization bearer token against the
// stored key digests before any side effect happens.
func (a *App) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		if token == "" {
			return apiError(c, http.StatusUnauthorized, "missing API key")
		}
		key, err := a.Store.LookupAPIKey(token)
		if err == ErrNotFound {
			return apiError(c, http.StatusUnauthorized, "invalid API key")
		}
		if err != nil {
			c.Logger().Errorf("api key lookup: %v", err)
			return apiError(c, http.StatusInternalServerError, "internal error")
		}
		c.Set(apiKeyContextKey, key)
		return next(c)
	}
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// resolvePublishState applies the scheduling rule: a strictly future
// scheduledAt forces an unpublished post holding its timestamp; otherwise
// the draft flag decides and scheduledAt is cleared. A post is never both
// published and scheduled for the future.
func resolvePublishState(draft bool, scheduledAt *time.Time, now time.Time) (published bool, effective *time.Time) {
	if scheduledAt != nil && scheduledAt.After(now) {
		return false, scheduledAt
	}
	return !draft, nil
}

// handleCreatePost is the bearer-key ingestion endpoint. It computes slug
// and excerpt, determines publish state from the scheduling fields,
// find-or-creates tags sequentially, and persists the post. Tags created
// before a later failure stay created.
func (a *App) handleCreatePost(c echo.Context) error {
	var sub PostSubmission
	if err := c.Bind(&sub); err != nil {
		return apiError(c, http.StatusBadRequest, "malformed JSON body")
	}
	if err := validate.Struct(&sub); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fieldName(fe)] = fieldMessage(fe)
			}
			return c.JSON(http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "validation failed",
				"fields":  fields,
			})
		}
		return apiError(c, http.StatusBadRequest, "invalid request")
	}

	now := a.now()
	published, scheduledAt := resolvePublishState(sub.Draft, sub.ScheduledAt, now)

	description := strings.TrimSpace(sub.Description)
	if description == "" {
		description = sub.Title
	}

	tags, err := a.Store.ResolveTags(sub.Tags)
	if err != nil {
		c.Logger().Errorf("resolve tags: %v", err)
		return apiError(c, http.StatusInternalServerError, "internal error")
	}

	post := Post{
		Title:         strings.TrimSpace(sub.Title),
		Slug:          Slugify(sub.Title),
		Description:   description,
		Content:       sub.Content,
		Excerpt:       Excerpt(sub.Content, DefaultExcerptLength),
		FeaturedImage: sub.FeaturedImage,
		Published:     published,
		ScheduledAt:   scheduledAt,
		Tags:          tags,
	}
	if sub.Date != nil {
		post.CreatedAt = sub.Date.UTC()
	}

	if err := a.Store.CreatePost(&post); err != nil {
		if errors.Is(err, ErrSlugConflict) {
			return apiError(c, http.StatusConflict, "slug conflict, retry the request")
		}
		c.Logger().Errorf("create post: %v", err)
		return apiError(c, http.StatusInternalServerError, "internal error")
	}
	if post.Published {
		a.Cache.Invalidate()
	}
	a.touchRequestKey(c)

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"post":    toPostJSON(post),
	})
}

// handlePublishScheduled is the publisher trigger endpoint, invoked by an
// external timer (or manually). Normal completion is always 200, including
// the zero-due no-op case.
func (a *App) handlePublishScheduled(c echo.Context) error {
	now := a.now()
	res, err := a.PublishDue(now)
	if err != nil {
		c.Logger().Errorf("publish scheduled: %v", err)
		return apiError(c, http.StatusInternalServerError, "internal error")
	}
	a.touchRequestKey(c)

	msg := "no posts due"
	if res.Count() > 0 {
		msg = "scheduled posts published"
	}
	posts := res.Published
	if posts == nil {
		posts = []PublishedRef{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":        true,
		"message":        msg,
		"publishedCount": res.Count(),
		"posts":          posts,
		"timestamp":      now.UTC().Format(time.RFC3339),
	})
}

// handleVerifyKey confirms a bearer key is valid and returns its metadata.
// Verification does not count as use, so last_used_at is left alone.
func (a *App) handleVerifyKey(c echo.Context) error {
	key, _ := c.Get(apiKeyContextKey).(APIKey)
	info := map[string]any{
		"name":       key.Name,
		"prefix":     key.Prefix,
		"createdAt":  key.CreatedAt.UTC().Format(time.RFC3339),
		"lastUsedAt": nil,
	}
	if key.LastUsedAt != nil {
		info["lastUsedAt"] = key.LastUsedAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, map[string]any{"valid": true, "key": info})
}

// touchRequestKey bumps last_used_at for the key that authenticated this
// request. Best effort; a failure only logs.
func (a *App) touchRequestKey(c echo.Context) {
	if key, ok := c.Get(apiKeyContextKey).(APIKey); ok {
		if err := a.Store.TouchAPIKey(key.ID); err != nil {
			c.Logger().Errorf("touch api key: %v", err)
		}
	}
}

func fieldName(fe validator.FieldError) string {
	// Field() yields the Go name; the JSON names here only differ by case.
	name := fe.Field()
	return strings.ToLower(name[:1]) + name[1:]
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "exceeds maximum length " + fe.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}
