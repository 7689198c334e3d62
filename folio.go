package folio

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"

	"github.com/calehr/folio/analytics"
)

// App is the central folio application. It wires together the store, cache,
// limiters, analytics, scheduler, and routes.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *PostCache

	loginLimiter   *RateLimiter
	contactLimiter *RateLimiter
	analyticsStore *analytics.Store
	scheduler      *cron.Cron
	customRoutes   []func(*App)
	staticDir      string
	now            func() time.Time
}

// New creates a folio App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		staticDir: "public",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start initializes the database, cache, middleware, routes, and the
// optional publish scheduler, then starts the server.
func (a *App) Start() error {
	if a.Config.AdminPasswordHash == "" {
		return fmt.Errorf("folio: AdminPasswordHash is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("folio: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("folio: init store: %w", err)
	}
	a.Store = store

	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.loginLimiter = NewRateLimiter(5, time.Minute)
	a.contactLimiter = NewRateLimiter(3, time.Minute)

	if a.Config.AnalyticsEnabled {
		analyticsStore, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("folio: init analytics: %w", err)
		}
		a.analyticsStore = analyticsStore
		if err := analytics.InitSalt(analyticsStore); err != nil {
			return fmt.Errorf("folio: init analytics salt: %w", err)
		}
		stopCleanup := analyticsStore.StartCleanupScheduler(365, 24*time.Hour)
		defer stopCleanup()
	}

	if a.Config.PublishSchedule != "" {
		a.scheduler, err = a.startPublishScheduler(a.Config.PublishSchedule)
		if err != nil {
			return err
		}
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Public pages
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/blog/", a.handleBlogIndex)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/contact/", a.handleContactForm)
	e.POST("/contact/", a.handleContactSubmit)

	// Admin dashboard
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.GET("/admin/post/new/", a.handleAdminNewPost)
	e.GET("/admin/post/:slug/", a.handleAdminPost)
	e.POST("/admin/save/", a.handleAdminSave)
	e.DELETE("/admin/post/:slug/", a.handleAdminDelete)
	e.GET("/admin/tags/", a.handleAdminTags)
	e.DELETE("/admin/tags/:id/", a.handleAdminTagDelete)
	e.GET("/admin/keys/", a.handleAdminKeys)
	e.POST("/admin/keys/", a.handleAdminKeyMint)
	e.DELETE("/admin/keys/:id/", a.handleAdminKeyRevoke)
	e.GET("/admin/messages/", a.handleAdminMessages)
	e.POST("/admin/messages/:id/read/", a.handleAdminMessageRead)
	e.DELETE("/admin/messages/:id/", a.handleAdminMessageDelete)

	// Programmatic API, bearer-key authenticated
	api := e.Group("/api", a.requireAPIKey)
	api.POST("/posts", a.handleCreatePost)
	api.POST("/publish-scheduled", a.handlePublishScheduled)
	api.GET("/keys/verify", a.handleVerifyKey)

	// Page-view pipeline
	if a.Config.AnalyticsEnabled && a.analyticsStore != nil {
		var locator *analytics.Locator
		if a.Config.GeoLookupEnabled {
			locator = analytics.NewLocator()
		}
		h := analytics.NewHandler(a.analyticsStore, locator)
		e.POST("/api/analytics/collect", h.Collect)
		e.GET("/admin/analytics/", a.requireAdmin(h.Stats))
		e.GET("/admin/analytics/bots/", a.requireAdmin(h.BotStats))
	}
}

// requireAdmin guards a handler behind the admin session.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAdmin(c) {
			return c.Redirect(http.StatusSeeOther, "/admin/")
		}
		return next(c)
	}
}

// Close cleans up resources. Call when the app is shutting down.
func (a *App) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.analyticsStore != nil {
		a.analyticsStore.Close()
	}
	return nil
}
