package analytics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func collectRequest(t *testing.T, h *Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/collect", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	if err := h.Collect(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	return rec
}

func TestCollectStoresVisit(t *testing.T) {
	initTestSalt(t)
	s, cleanup := setupTestStore(t)
	defer cleanup()
	h := NewHandler(s, nil)

	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	rec := collectRequest(t, h, `{"path":"/blog/hello/","referrer":"https://www.google.com/","user_agent":"`+ua+`"}`, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	now := time.Now().UTC()
	stats, err := s.GetStats(now.AddDate(0, 0, -1), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalViews != 1 {
		t.Fatalf("TotalViews = %d, want 1", stats.TotalViews)
	}
	if len(stats.BrowserStats) != 1 || stats.BrowserStats[0].Name != "Chrome" {
		t.Errorf("BrowserStats = %+v, want Chrome", stats.BrowserStats)
	}
	if len(stats.ReferrerStats) != 1 || stats.ReferrerStats[0].Name != "Google" {
		t.Errorf("ReferrerStats = %+v, want Google", stats.ReferrerStats)
	}
}

func TestCollectHonorsDoNotTrack(t *testing.T) {
	initTestSalt(t)
	s, cleanup := setupTestStore(t)
	defer cleanup()
	h := NewHandler(s, nil)

	rec := collectRequest(t, h, `{"path":"/","user_agent":"Chrome"}`, map[string]string{"DNT": "1"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	now := time.Now().UTC()
	stats, _ := s.GetStats(now.AddDate(0, 0, -1), now.Add(time.Hour))
	if stats.TotalViews != 0 {
		t.Errorf("DNT visit was stored, TotalViews = %d", stats.TotalViews)
	}
}

func TestCollectSeparatesBots(t *testing.T) {
	initTestSalt(t)
	s, cleanup := setupTestStore(t)
	defer cleanup()
	h := NewHandler(s, nil)

	rec := collectRequest(t, h, `{"path":"/blog/","user_agent":"Mozilla/5.0 (compatible; Googlebot/2.1)"}`, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	now := time.Now().UTC()
	stats, _ := s.GetStats(now.AddDate(0, 0, -1), now.Add(time.Hour))
	if stats.TotalViews != 0 {
		t.Errorf("bot counted as human, TotalViews = %d", stats.TotalViews)
	}
	botStats, _ := s.GetBotStats(now.AddDate(0, 0, -1), now.Add(time.Hour))
	if botStats.TotalVisits != 1 {
		t.Errorf("TotalVisits = %d, want 1", botStats.TotalVisits)
	}
}

func TestCollectRejectsInvalidRequests(t *testing.T) {
	initTestSalt(t)
	s, cleanup := setupTestStore(t)
	defer cleanup()
	h := NewHandler(s, nil)

	rec := collectRequest(t, h, `{"referrer":"x"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing path: status = %d, want 400", rec.Code)
	}

	long := strings.Repeat("a", maxPathLen+1)
	rec = collectRequest(t, h, `{"path":"`+long+`"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("oversized path: status = %d, want 400", rec.Code)
	}
}
