package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"passportphoto/internal/controller"
)

func newTestStore(idle time.Duration) (*Store, *time.Time) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(func() *controller.Controller { return controller.New(nil, nil) }, idle)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestResolveCreatesAndReusesSession(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	first := s.Resolve(rr, req)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value == "" {
		t.Fatalf("cookies = %#v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	second := s.Resolve(rr, req)
	if first != second {
		t.Fatal("same cookie resolved to a different controller")
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("existing session should not reissue the cookie")
	}

	looked, ok := s.Lookup(req)
	if !ok || looked != first {
		t.Fatal("Lookup did not find the session")
	}
}

func TestResolveUnknownCookieStartsNewSession(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "stale"})
	rr := httptest.NewRecorder()
	s.Resolve(rr, req)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == "stale" {
		t.Fatalf("expected fresh cookie, got %#v", cookies)
	}
	if _, ok := s.Lookup(httptest.NewRequest(http.MethodGet, "/", nil)); ok {
		t.Fatal("Lookup without cookie must fail")
	}
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	s, now := newTestStore(time.Minute)
	oldID, _ := s.Create()
	*now = now.Add(30 * time.Second)
	freshID, _ := s.Create()

	*now = now.Add(45 * time.Second)
	if _, ok := s.Get(oldID); ok {
		t.Fatal("idle session survived")
	}
	if _, ok := s.Get(freshID); !ok {
		t.Fatal("active session evicted")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}
