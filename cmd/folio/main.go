// Command folio runs the portfolio site server. All configuration comes
// from environment variables; a .env file is loaded when present.
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/calehr/folio"
)

func main() {
	_ = godotenv.Load()

	cfg := folio.SiteConfig{
		Name:        folio.EnvOr("SITE_NAME", "Portfolio"),
		URL:         folio.EnvOr("SITE_URL", "http://localhost:3000"),
		Description: folio.EnvOr("SITE_DESCRIPTION", ""),
		Author:      folio.EnvOr("SITE_AUTHOR", ""),

		Addr:         folio.EnvOr("ADDR", ":3000"),
		DatabasePath: folio.EnvOr("DATABASE_PATH", "data/site.db"),

		AnalyticsEnabled:      folio.EnvOr("ANALYTICS_ENABLED", "true") == "true",
		AnalyticsDatabasePath: folio.EnvOr("ANALYTICS_DATABASE_PATH", "data/analytics.db"),
		GeoLookupEnabled:      folio.EnvBool("GEO_LOOKUP_ENABLED"),

		AdminPasswordHash: folio.MustEnv("ADMIN_PASSWORD_HASH"),
		SessionSecret:     folio.MustEnv("ADMIN_SESSION_SECRET"),
		CookieSecure:      folio.EnvBool("COOKIE_SECURE"),

		// e.g. "*/15 * * * *" to publish due posts every 15 minutes without
		// an external timer.
		PublishSchedule: folio.EnvOr("PUBLISH_SCHEDULE", ""),
	}

	app := folio.New(cfg)
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
