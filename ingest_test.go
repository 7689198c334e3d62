package folio

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setupTestApp(t *testing.T) (*App, func()) {
	t.Helper()
	s, cleanup := setupTestStore(t)
	a := &App{
		Echo:           echo.New(),
		Store:          s,
		Cache:          NewPostCache(s, time.Minute),
		loginLimiter:   NewRateLimiter(5, time.Minute),
		contactLimiter: NewRateLimiter(3, time.Minute),
		now:            func() time.Time { return testNow },
	}
	return a, cleanup
}

func apiRequest(t *testing.T, a *App, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := a.Echo.NewContext(req, rec)

	var h echo.HandlerFunc
	switch {
	case method == http.MethodPost && path == "/api/posts":
		h = a.handleCreatePost
	case method == http.MethodPost && path == "/api/publish-scheduled":
		h = a.handlePublishScheduled
	case method == http.MethodGet && path == "/api/keys/verify":
		h = a.handleVerifyKey
	default:
		t.Fatalf("no handler mapped for %s %s", method, path)
	}
	if err := a.requireAPIKey(h)(c); err != nil {
		t.Fatalf("%s %s returned error: %v", method, path, err)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return rec, payload
}

func mintTestKey(t *testing.T, a *App) string {
	t.Helper()
	plaintext, _, err := a.Store.MintAPIKey("test")
	if err != nil {
		t.Fatalf("MintAPIKey failed: %v", err)
	}
	return plaintext
}

func TestResolvePublishState(t *testing.T) {
	now := testNow
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name      string
		draft     bool
		scheduled *time.Time
		wantPub   bool
		wantSched *time.Time
	}{
		{"immediate publish", false, nil, true, nil},
		{"draft", true, nil, false, nil},
		{"future schedule wins over publish", false, &future, false, &future},
		{"future schedule with draft", true, &future, false, &future},
		{"past schedule publishes now", false, &past, true, nil},
		{"past schedule with draft stays draft", true, &past, false, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pub, sched := resolvePublishState(tc.draft, tc.scheduled, now)
			if pub != tc.wantPub {
				t.Errorf("published = %v, want %v", pub, tc.wantPub)
			}
			if (sched == nil) != (tc.wantSched == nil) {
				t.Fatalf("scheduledAt = %v, want %v", sched, tc.wantSched)
			}
			if sched != nil && !sched.Equal(*tc.wantSched) {
				t.Errorf("scheduledAt = %v, want %v", sched, tc.wantSched)
			}
			if pub && sched != nil {
				t.Error("post is both published and scheduled")
			}
		})
	}
}

func TestCreatePostRequiresKey(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	rec, payload := apiRequest(t, a, http.MethodPost, "/api/posts", "", `{"title":"x","content":"y"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}
	if payload["success"] != false {
		t.Errorf("success = %v, want false", payload["success"])
	}

	rec, _ = apiRequest(t, a, http.MethodPost, "/api/posts", "fk_bogus", `{"title":"x","content":"y"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status with bogus key = %d, want 401", rec.Code)
	}
}

func TestCreatePostValidation(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()
	key := mintTestKey(t, a)

	rec, payload := apiRequest(t, a, http.MethodPost, "/api/posts", key, `{"content":"body only"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	fields, ok := payload["fields"].(map[string]any)
	if !ok {
		t.Fatalf("missing fields map in %v", payload)
	}
	if _, ok := fields["title"]; !ok {
		t.Errorf("fields = %v, want a title entry", fields)
	}
}

func TestCreatePostPublishesImmediately(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()
	key := mintTestKey(t, a)

	body := `{"title":"Getting Started with TypeScript in 2025!","content":"# Intro\n\nSome **content** here.","tags":["TypeScript","Web"]}`
	rec, payload := apiRequest(t, a, http.MethodPost, "/api/posts", key, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	post, ok := payload["post"].(map[string]any)
	if !ok {
		t.Fatalf("missing post in %v", payload)
	}
	if post["slug"] != "getting-started-with-typescript-in-2025" {
		t.Errorf("slug = %v, want generated from title", post["slug"])
	}
	if post["published"] != true {
		t.Errorf("published = %v, want true", post["published"])
	}
	if post["scheduledAt"] != nil {
		t.Errorf("scheduledAt = %v, want null", post["scheduledAt"])
	}

	stored, err := a.Store.GetPost("getting-started-with-typescript-in-2025")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if len(stored.Tags) != 2 {
		t.Errorf("stored post has %d tags, want 2", len(stored.Tags))
	}
	if stored.Excerpt == "" || strings.Contains(stored.Excerpt, "**") {
		t.Errorf("excerpt = %q, want plain text", stored.Excerpt)
	}

	lookedUp, err := a.Store.LookupAPIKey(key)
	if err != nil {
		t.Fatalf("LookupAPIKey failed: %v", err)
	}
	if lookedUp.LastUsedAt == nil {
		t.Error("key use was not recorded")
	}
}

func TestCreatePostFutureSchedule(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()
	key := mintTestKey(t, a)

	future := testNow.Add(2 * time.Hour).Format(time.RFC3339)
	body := `{"title":"Later Post","content":"body","scheduledAt":"` + future + `"}`
	rec, payload := apiRequest(t, a, http.MethodPost, "/api/posts", key, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	post := payload["post"].(map[string]any)
	if post["published"] != false {
		t.Errorf("published = %v, want false for a future schedule", post["published"])
	}
	if post["scheduledAt"] == nil {
		t.Error("scheduledAt missing from response")
	}

	if _, err := a.Store.GetPost("later-post"); err == nil {
		t.Error("scheduled post visible on the public side before its time")
	}
}

func TestCreatePostDuplicateTitleGetsSuffix(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()
	key := mintTestKey(t, a)

	body := `{"title":"Same Title","content":"one"}`
	_, first := apiRequest(t, a, http.MethodPost, "/api/posts", key, body)
	_, second := apiRequest(t, a, http.MethodPost, "/api/posts", key, `{"title":"Same Title","content":"two"}`)

	if slug := first["post"].(map[string]any)["slug"]; slug != "same-title" {
		t.Errorf("first slug = %v, want same-title", slug)
	}
	if slug := second["post"].(map[string]any)["slug"]; slug != "same-title-2" {
		t.Errorf("second slug = %v, want same-title-2", slug)
	}
}

func TestPublishScheduledEndpoint(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()
	key := mintTestKey(t, a)

	due := testNow.Add(-time.Minute)
	mustCreatePost(t, a.Store, Post{Title: "Overdue", Slug: "overdue", Content: "x", ScheduledAt: &due})

	rec, payload := apiRequest(t, a, http.MethodPost, "/api/publish-scheduled", key, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	if payload["publishedCount"] != float64(1) {
		t.Errorf("publishedCount = %v, want 1", payload["publishedCount"])
	}
	if _, err := a.Store.GetPost("overdue"); err != nil {
		t.Errorf("post not published: %v", err)
	}

	// No-op run still succeeds.
	rec, payload = apiRequest(t, a, http.MethodPost, "/api/publish-scheduled", key, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("no-op status = %d, want 200", rec.Code)
	}
	if payload["publishedCount"] != float64(0) {
		t.Errorf("no-op publishedCount = %v, want 0", payload["publishedCount"])
	}
	if payload["message"] != "no posts due" {
		t.Errorf("no-op message = %v", payload["message"])
	}
}

func TestVerifyKeyEndpoint(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()
	key := mintTestKey(t, a)

	rec, payload := apiRequest(t, a, http.MethodGet, "/api/keys/verify", key, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if payload["valid"] != true {
		t.Errorf("valid = %v, want true", payload["valid"])
	}
	info := payload["key"].(map[string]any)
	if info["name"] != "test" {
		t.Errorf("key name = %v, want test", info["name"])
	}

	// Verification is not use.
	stored, err := a.Store.LookupAPIKey(key)
	if err != nil {
		t.Fatalf("LookupAPIKey failed: %v", err)
	}
	if stored.LastUsedAt != nil {
		t.Error("verify bumped last_used_at")
	}
}
