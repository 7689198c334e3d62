package analytics

import (
	"testing"
	"time"
)

func saveTestVisit(t *testing.T, s *Store, v Visit) Visit {
	t.Helper()
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}
	if err := s.SaveVisit(&v); err != nil {
		t.Fatalf("SaveVisit failed: %v", err)
	}
	return v
}

func TestSettingsRoundTrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	got, err := s.GetSetting("missing")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if got != "" {
		t.Errorf("GetSetting(missing) = %q, want empty", got)
	}

	if err := s.SetSetting("hash_salt", "abc"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := s.SetSetting("hash_salt", "def"); err != nil {
		t.Fatalf("SetSetting upsert failed: %v", err)
	}
	got, err = s.GetSetting("hash_salt")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if got != "def" {
		t.Errorf("GetSetting = %q, want the upserted value", got)
	}
}

func TestGetStatsAggregates(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now().UTC()
	saveTestVisit(t, s, Visit{VisitorID: "v1", IPHash: "h1", Browser: "Chrome", OS: "Windows", Device: "Desktop", Path: "/blog/a/", Referrer: "Google", Timestamp: now})
	saveTestVisit(t, s, Visit{VisitorID: "v1", IPHash: "h1", Browser: "Chrome", OS: "Windows", Device: "Desktop", Path: "/blog/b/", Referrer: "Direct", Timestamp: now})
	saveTestVisit(t, s, Visit{VisitorID: "v2", IPHash: "h2", Browser: "Firefox", OS: "Linux", Device: "Desktop", Path: "/blog/a/", Referrer: "Direct", Country: "Germany", Timestamp: now})

	stats, err := s.GetStats(now.AddDate(0, 0, -1), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalViews != 3 {
		t.Errorf("TotalViews = %d, want 3", stats.TotalViews)
	}
	if stats.UniqueVisitors != 2 {
		t.Errorf("UniqueVisitors = %d, want 2", stats.UniqueVisitors)
	}
	if len(stats.TopPages) != 2 || stats.TopPages[0].Path != "/blog/a/" || stats.TopPages[0].Views != 2 {
		t.Errorf("TopPages = %+v, want /blog/a/ first with 2 views", stats.TopPages)
	}
	if len(stats.BrowserStats) != 2 || stats.BrowserStats[0].Name != "Chrome" {
		t.Errorf("BrowserStats = %+v, want Chrome first", stats.BrowserStats)
	}
	// Only the one visit with geo data counts; empty countries are excluded.
	if len(stats.CountryStats) != 1 || stats.CountryStats[0].Name != "Germany" {
		t.Errorf("CountryStats = %+v, want only Germany", stats.CountryStats)
	}
	if len(stats.DailyViews) != 1 || stats.DailyViews[0].Views != 3 {
		t.Errorf("DailyViews = %+v, want a single day with 3 views", stats.DailyViews)
	}
}

func TestGetStatsWindowExcludesOutside(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now().UTC()
	saveTestVisit(t, s, Visit{VisitorID: "old", IPHash: "h", Browser: "Chrome", OS: "Linux", Device: "Desktop", Path: "/", Timestamp: now.AddDate(0, 0, -40)})
	saveTestVisit(t, s, Visit{VisitorID: "new", IPHash: "h", Browser: "Chrome", OS: "Linux", Device: "Desktop", Path: "/", Timestamp: now})

	stats, err := s.GetStats(now.AddDate(0, 0, -30), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalViews != 1 {
		t.Errorf("TotalViews = %d, want only the in-window visit", stats.TotalViews)
	}
}

func TestSetVisitLocation(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now().UTC()
	v := saveTestVisit(t, s, Visit{VisitorID: "v", IPHash: "h", Browser: "Chrome", OS: "Linux", Device: "Desktop", Path: "/", Timestamp: now})
	if v.ID == 0 {
		t.Fatal("SaveVisit did not set ID")
	}

	loc := Location{Country: "Norway", Region: "Oslo", City: "Oslo"}
	if err := s.SetVisitLocation(v.ID, loc); err != nil {
		t.Fatalf("SetVisitLocation failed: %v", err)
	}

	stats, err := s.GetStats(now.AddDate(0, 0, -1), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if len(stats.CountryStats) != 1 || stats.CountryStats[0].Name != "Norway" {
		t.Errorf("CountryStats = %+v, want Norway after enrichment", stats.CountryStats)
	}
}

func TestBotStatsSeparateFromVisits(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now().UTC()
	saveTestVisit(t, s, Visit{VisitorID: "v", IPHash: "h", Browser: "Chrome", OS: "Linux", Device: "Desktop", Path: "/", Timestamp: now})
	bv := BotVisit{BotName: "Googlebot", IPHash: "h", UserAgent: "Googlebot/2.1", Path: "/blog/", Timestamp: now}
	if err := s.SaveBotVisit(&bv); err != nil {
		t.Fatalf("SaveBotVisit failed: %v", err)
	}

	stats, err := s.GetStats(now.AddDate(0, 0, -1), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalViews != 1 {
		t.Errorf("bot visit leaked into human stats, TotalViews = %d", stats.TotalViews)
	}

	botStats, err := s.GetBotStats(now.AddDate(0, 0, -1), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetBotStats failed: %v", err)
	}
	if botStats.TotalVisits != 1 {
		t.Errorf("TotalVisits = %d, want 1", botStats.TotalVisits)
	}
	if len(botStats.TopBots) != 1 || botStats.TopBots[0].Name != "Googlebot" {
		t.Errorf("TopBots = %+v, want Googlebot", botStats.TopBots)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	now := time.Now().UTC()
	saveTestVisit(t, s, Visit{VisitorID: "old", IPHash: "h", Browser: "Chrome", OS: "Linux", Device: "Desktop", Path: "/", Timestamp: now.AddDate(0, 0, -400)})
	saveTestVisit(t, s, Visit{VisitorID: "new", IPHash: "h", Browser: "Chrome", OS: "Linux", Device: "Desktop", Path: "/", Timestamp: now})
	old := BotVisit{BotName: "Googlebot", IPHash: "h", UserAgent: "x", Path: "/", Timestamp: now.AddDate(0, 0, -400)}
	if err := s.SaveBotVisit(&old); err != nil {
		t.Fatalf("SaveBotVisit failed: %v", err)
	}

	n, err := s.DeleteOlderThan(now.AddDate(0, 0, -365))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d rows, want 2", n)
	}

	stats, err := s.GetStats(now.AddDate(0, 0, -500), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalViews != 1 {
		t.Errorf("TotalViews after cleanup = %d, want 1", stats.TotalViews)
	}
}
