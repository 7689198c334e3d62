package folio

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/calehr/folio/views"
)

const maxContactMessageLen = 4000

func (a *App) handleContactForm(c echo.Context) error {
	return Render(c, views.Contact(a.site(), CsrfToken(c), "", false))
}

// handleContactSubmit validates and stores a contact form submission.
// Submissions are rate limited per IP to keep the inbox usable.
func (a *App) handleContactSubmit(c echo.Context) error {
	if !a.contactLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many messages. Try again later.")
	}
	name := strings.TrimSpace(c.FormValue("name"))
	email := strings.TrimSpace(c.FormValue("email"))
	message := strings.TrimSpace(c.FormValue("message"))

	var problem string
	switch {
	case name == "" || email == "" || message == "":
		problem = "All fields are required."
	case len(message) > maxContactMessageLen:
		problem = "Message is too long."
	default:
		if _, err := mail.ParseAddress(email); err != nil {
			problem = "That email address doesn't look right."
		}
	}
	if problem != "" {
		return Render(c, views.Contact(a.site(), CsrfToken(c), problem, false))
	}

	msg := ContactMessage{Name: name, Email: email, Message: message}
	if err := a.Store.SaveContactMessage(&msg); err != nil {
		return err
	}
	return Render(c, views.Contact(a.site(), CsrfToken(c), "", true))
}
