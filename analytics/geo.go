package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// Location is the result of an IP geolocation lookup.
type Location struct {
	Country string `json:"country"`
	Region  string `json:"regionName"`
	City    string `json:"city"`
}

// Locator resolves IP addresses to coarse locations via the free ip-api.com
// JSON endpoint. Lookups are best effort: callers run them after the visit
// row is committed and swallow failures. Results are cached in memory since
// repeat visitors hit from the same address.
type Locator struct {
	client  *http.Client
	baseURL string

	mu    sync.Mutex
	cache map[string]Location
}

// geoCacheLimit caps the in-memory result cache. When full the cache is
// dropped wholesale; a steady-state personal site never gets near it.
const geoCacheLimit = 4096

// NewLocator creates a Locator with a short request timeout so a slow
// upstream can never stall the collect path.
func NewLocator() *Locator {
	return &Locator{
		client:  &http.Client{Timeout: 3 * time.Second},
		baseURL: "http://ip-api.com/json",
		cache:   make(map[string]Location),
	}
}

// Lookup resolves ip to a Location. Private, loopback, and unparseable
// addresses resolve to an empty Location without a network call.
func (l *Locator) Lookup(ctx context.Context, ip string) (Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return Location{}, nil
	}

	l.mu.Lock()
	if loc, ok := l.cache[ip]; ok {
		l.mu.Unlock()
		return loc, nil
	}
	l.mu.Unlock()

	url := fmt.Sprintf("%s/%s?fields=status,country,regionName,city", l.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geo lookup: status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Location
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("geo lookup: decode: %w", err)
	}
	if body.Status != "success" {
		return Location{}, fmt.Errorf("geo lookup: status %q", body.Status)
	}

	l.mu.Lock()
	if len(l.cache) >= geoCacheLimit {
		l.cache = make(map[string]Location)
	}
	l.cache[ip] = body.Location
	l.mu.Unlock()
	return body.Location, nil
}
