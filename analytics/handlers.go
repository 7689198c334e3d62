package analytics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler handles analytics HTTP requests.
type Handler struct {
	store          *Store
	locator        *Locator
	collectLimiter *rateLimiter
}

// NewHandler creates an analytics handler. locator may be nil to disable
// geolocation enrichment. The collect endpoint is rate-limited to 60
// requests per IP per minute.
func NewHandler(store *Store, locator *Locator) *Handler {
	return &Handler{
		store:          store,
		locator:        locator,
		collectLimiter: newRateLimiter(60, time.Minute),
	}
}

// CollectRequest is the request body for the collect endpoint.
type CollectRequest struct {
	Path      string `json:"path"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`
}

const (
	maxPathLen      = 2048
	maxReferrerLen  = 2048
	maxUserAgentLen = 512
)

func validCollectRequest(req *CollectRequest) bool {
	return req.Path != "" &&
		len(req.Path) <= maxPathLen &&
		len(req.Referrer) <= maxReferrerLen &&
		len(req.UserAgent) <= maxUserAgentLen
}

// Collect records one page view. Bot traffic is stored separately, Do Not
// Track is honored, and the geolocation lookup runs after the visit row is
// committed so the response never waits on (or fails because of) the
// upstream geo service.
func (h *Handler) Collect(c echo.Context) error {
	if !h.collectLimiter.allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}
	if c.Request().Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}
	if !validCollectRequest(&req) {
		return c.String(http.StatusBadRequest, "Invalid request")
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.Request().UserAgent()
	}
	ip := c.RealIP()

	if IsBot(userAgent) {
		bv := &BotVisit{
			BotName:   ExtractBotName(userAgent),
			IPHash:    HashIP(ip),
			UserAgent: userAgent,
			Path:      req.Path,
			Timestamp: time.Now().UTC(),
		}
		if err := h.store.SaveBotVisit(bv); err != nil {
			c.Logger().Errorf("save bot visit: %v", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	browser, osName, device := ParseUserAgent(userAgent)
	visit := &Visit{
		VisitorID: GenerateVisitorID(ip, userAgent),
		IPHash:    HashIP(ip),
		Browser:   browser,
		OS:        osName,
		Device:    device,
		Path:      req.Path,
		Referrer:  CleanReferrer(req.Referrer),
		Timestamp: time.Now().UTC(),
	}
	if err := h.store.SaveVisit(visit); err != nil {
		c.Logger().Errorf("save visit: %v", err)
		return c.NoContent(http.StatusNoContent)
	}

	if h.locator != nil {
		logger := c.Logger()
		go func(id int64, ip string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			loc, err := h.locator.Lookup(ctx, ip)
			if err != nil {
				logger.Warnf("geo lookup for visit %d: %v", id, err)
				return
			}
			if loc.Country == "" {
				return
			}
			if err := h.store.SetVisitLocation(id, loc); err != nil {
				logger.Errorf("set visit location: %v", err)
			}
		}(visit.ID, ip)
	}

	return c.NoContent(http.StatusNoContent)
}

// StatsResponse is the JSON response of the stats endpoint.
type StatsResponse struct {
	Stats      *Stats `json:"stats"`
	PeriodDays int    `json:"period_days"`
}

// Stats returns aggregated visitor statistics as JSON. ?days= selects the
// window (default 30, max 365).
func (h *Handler) Stats(c echo.Context) error {
	days := parseDays(c.QueryParam("days"))
	from, to := timeRange(days)
	stats, err := h.store.GetStats(from, to)
	if err != nil {
		c.Logger().Errorf("get stats: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, StatsResponse{Stats: stats, PeriodDays: days})
}

// BotStatsResponse is the JSON response of the bot stats endpoint.
type BotStatsResponse struct {
	Stats      *BotStats `json:"stats"`
	PeriodDays int       `json:"period_days"`
}

// BotStats returns aggregated crawler statistics as JSON.
func (h *Handler) BotStats(c echo.Context) error {
	days := parseDays(c.QueryParam("days"))
	from, to := timeRange(days)
	stats, err := h.store.GetBotStats(from, to)
	if err != nil {
		c.Logger().Errorf("get bot stats: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, BotStatsResponse{Stats: stats, PeriodDays: days})
}

func parseDays(raw string) int {
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		return 30
	}
	if days > 365 {
		return 365
	}
	return days
}

func timeRange(days int) (from, to time.Time) {
	to = time.Now().UTC()
	return to.AddDate(0, 0, -days), to
}
