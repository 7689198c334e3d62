package folio

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func submitContact(t *testing.T, a *App, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/contact/", strings.NewReader(form.Encode()))
	req.Header.Set(echoHeaderContentType, "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	c := a.Echo.NewContext(req, rec)
	if err := a.handleContactSubmit(c); err != nil {
		t.Fatalf("handleContactSubmit failed: %v", err)
	}
	return rec
}

const echoHeaderContentType = "Content-Type"

func TestContactSubmitStoresMessage(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	rec := submitContact(t, a, url.Values{
		"name":    {"Ada"},
		"email":   {"ada@example.com"},
		"message": {"Hello there"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	msgs, err := a.Store.ListContactMessages()
	if err != nil {
		t.Fatalf("ListContactMessages failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Email != "ada@example.com" {
		t.Errorf("stored messages = %+v, want one from ada@example.com", msgs)
	}
}

func TestContactSubmitRejectsBadInput(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	forms := []url.Values{
		{"name": {""}, "email": {"a@b.com"}, "message": {"hi"}},
		{"name": {"Ada"}, "email": {"not-an-email"}, "message": {"hi"}},
		{"name": {"Ada"}, "email": {"a@b.com"}, "message": {strings.Repeat("x", maxContactMessageLen+1)}},
	}
	for i, form := range forms {
		submitContact(t, a, form)
		msgs, err := a.Store.ListContactMessages()
		if err != nil {
			t.Fatalf("ListContactMessages failed: %v", err)
		}
		if len(msgs) != 0 {
			t.Errorf("form %d: invalid submission was stored", i)
		}
	}
}

func TestContactSubmitRateLimited(t *testing.T) {
	a, cleanup := setupTestApp(t)
	defer cleanup()

	form := url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "message": {"hi"}}
	for i := 0; i < 3; i++ {
		if rec := submitContact(t, a, form); rec.Code != http.StatusOK {
			t.Fatalf("submission %d: status = %d, want 200", i, rec.Code)
		}
	}
	if rec := submitContact(t, a, form); rec.Code != http.StatusTooManyRequests {
		t.Errorf("fourth submission: status = %d, want 429", rec.Code)
	}
}
