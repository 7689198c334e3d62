package analytics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides database operations for the analytics pipeline.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the analytics database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			visitor_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			path TEXT NOT NULL,
			referrer TEXT,
			country TEXT NOT NULL DEFAULT '',
			region TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bot_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			path TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
		CREATE INDEX IF NOT EXISTS idx_visits_visitor_id ON visits(visitor_id);
		CREATE INDEX IF NOT EXISTS idx_visits_path ON visits(path);
		CREATE INDEX IF NOT EXISTS idx_visits_country ON visits(country);
		CREATE INDEX IF NOT EXISTS idx_bot_visits_timestamp ON bot_visits(timestamp);
	`)
	return err
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// SaveVisit stores a new visit and fills in v.ID.
func (s *Store) SaveVisit(v *Visit) error {
	res, err := s.db.Exec(`
		INSERT INTO visits (visitor_id, ip_hash, browser, os, device, path, referrer, country, region, city, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.IPHash, v.Browser, v.OS, v.Device, v.Path, v.Referrer,
		v.Country, v.Region, v.City, v.Timestamp.UTC())
	if err != nil {
		return err
	}
	v.ID, err = res.LastInsertId()
	return err
}

// SetVisitLocation fills in the geolocation columns of an existing visit.
// Called after the best-effort lookup completes.
func (s *Store) SetVisitLocation(id int64, loc Location) error {
	_, err := s.db.Exec(`UPDATE visits SET country = ?, region = ?, city = ? WHERE id = ?`,
		loc.Country, loc.Region, loc.City, id)
	return err
}

// SaveBotVisit stores a new bot visit.
func (s *Store) SaveBotVisit(bv *BotVisit) error {
	_, err := s.db.Exec(`
		INSERT INTO bot_visits (bot_name, ip_hash, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		bv.BotName, bv.IPHash, bv.UserAgent, bv.Path, bv.Timestamp.UTC())
	return err
}

// GetStats returns aggregated statistics for [from, to).
func (s *Store) GetStats(from, to time.Time) (*Stats, error) {
	stats := &Stats{
		Period:        from.Format("2006-01-02") + " to " + to.Format("2006-01-02"),
		TopPages:      []PageStat{},
		BrowserStats:  []DimensionStat{},
		OSStats:       []DimensionStat{},
		DeviceStats:   []DimensionStat{},
		ReferrerStats: []DimensionStat{},
		CountryStats:  []DimensionStat{},
		DailyViews:    []DailyView{},
	}

	err := s.db.QueryRow(`SELECT COUNT(*) FROM visits WHERE timestamp >= ? AND timestamp < ?`, from, to).
		Scan(&stats.TotalViews)
	if err != nil {
		return nil, fmt.Errorf("count views: %w", err)
	}
	err = s.db.QueryRow(`SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp >= ? AND timestamp < ?`, from, to).
		Scan(&stats.UniqueVisitors)
	if err != nil {
		return nil, fmt.Errorf("count unique visitors: %w", err)
	}

	stats.TopPages, err = s.pageStats(`
		SELECT path, COUNT(*) AS views FROM visits
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY path ORDER BY views DESC LIMIT 10`, from, to)
	if err != nil {
		return nil, fmt.Errorf("top pages: %w", err)
	}

	for _, dim := range []struct {
		column string
		out    *[]DimensionStat
	}{
		{"browser", &stats.BrowserStats},
		{"os", &stats.OSStats},
		{"device", &stats.DeviceStats},
		{"referrer", &stats.ReferrerStats},
		{"country", &stats.CountryStats},
	} {
		q := fmt.Sprintf(`SELECT %s, COUNT(*) AS n FROM visits
			WHERE timestamp >= ? AND timestamp < ? AND %s != ''
			GROUP BY %s ORDER BY n DESC LIMIT 10`, dim.column, dim.column, dim.column)
		*dim.out, err = s.dimensionStats(q, from, to)
		if err != nil {
			return nil, fmt.Errorf("%s stats: %w", dim.column, err)
		}
	}

	stats.DailyViews, err = s.dailyViews(`
		SELECT date(timestamp), COUNT(*) FROM visits
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY date(timestamp) ORDER BY date(timestamp)`, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily views: %w", err)
	}
	return stats, nil
}

// GetBotStats returns aggregated crawler statistics for [from, to).
func (s *Store) GetBotStats(from, to time.Time) (*BotStats, error) {
	stats := &BotStats{
		Period:   from.Format("2006-01-02") + " to " + to.Format("2006-01-02"),
		TopBots:  []DimensionStat{},
		TopPages: []PageStat{},
	}
	err := s.db.QueryRow(`SELECT COUNT(*) FROM bot_visits WHERE timestamp >= ? AND timestamp < ?`, from, to).
		Scan(&stats.TotalVisits)
	if err != nil {
		return nil, fmt.Errorf("count bot visits: %w", err)
	}
	stats.TopBots, err = s.dimensionStats(`
		SELECT bot_name, COUNT(*) AS n FROM bot_visits
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY bot_name ORDER BY n DESC LIMIT 10`, from, to)
	if err != nil {
		return nil, fmt.Errorf("top bots: %w", err)
	}
	stats.TopPages, err = s.pageStats(`
		SELECT path, COUNT(*) AS views FROM bot_visits
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY path ORDER BY views DESC LIMIT 10`, from, to)
	if err != nil {
		return nil, fmt.Errorf("top bot pages: %w", err)
	}
	return stats, nil
}

func (s *Store) pageStats(q string, from, to time.Time) ([]PageStat, error) {
	rows, err := s.db.Query(q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PageStat{}
	for rows.Next() {
		var p PageStat
		if err := rows.Scan(&p.Path, &p.Views); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) dimensionStats(q string, from, to time.Time) ([]DimensionStat, error) {
	rows, err := s.db.Query(q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) dailyViews(q string, from, to time.Time) ([]DailyView, error) {
	rows, err := s.db.Query(q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DailyView{}
	for rows.Next() {
		var d DailyView
		if err := rows.Scan(&d.Date, &d.Views); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes visits and bot visits older than cutoff, returning
// how many rows went away.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"visits", "bot_visits"} {
		res, err := s.db.Exec(`DELETE FROM `+table+` WHERE timestamp < ?`, cutoff)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// StartCleanupScheduler deletes data older than retentionDays on the given
// interval. The returned function stops the scheduler.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retentionDays)
				if _, err := s.DeleteOlderThan(cutoff); err != nil {
					fmt.Fprintf(os.Stderr, "analytics cleanup: %v\n", err)
				}
			case <-stop:
				return
			}
		}
	}()
	return func() { close(stop) }
}
