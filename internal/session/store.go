// Package session maps browser sessions to their controllers.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"passportphoto/internal/controller"
)

// CookieName identifies the session cookie.
const CookieName = "passport_session"

// Factory builds the controller for a new session.
type Factory func() *controller.Controller

type entry struct {
	ctrl     *controller.Controller
	lastSeen time.Time
}

// Store keeps one controller per session and evicts idle ones. Sessions with
// a run in flight are never evicted.
type Store struct {
	factory Factory
	idle    time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewStore(factory Factory, idle time.Duration) *Store {
	return &Store{
		factory:  factory,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Get returns the controller for id, if the session exists.
func (s *Store) Get(id string) (*controller.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.ctrl, true
}

// Create starts a new session and returns its id.
func (s *Store) Create() (string, *controller.Controller) {
	id := uuid.NewString()
	ctrl := s.factory()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.sessions[id] = &entry{ctrl: ctrl, lastSeen: s.now()}
	return id, ctrl
}

// Resolve returns the controller bound to the request's cookie, creating a
// session and setting the cookie when there is none.
func (s *Store) Resolve(w http.ResponseWriter, r *http.Request) *controller.Controller {
	if c, err := r.Cookie(CookieName); err == nil {
		if ctrl, ok := s.Get(c.Value); ok {
			return ctrl
		}
	}
	id, ctrl := s.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return ctrl
}

// Lookup returns the controller bound to the request's cookie without
// creating one.
func (s *Store) Lookup(r *http.Request) (*controller.Controller, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	return s.Get(c.Value)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) sweepLocked() {
	if s.idle <= 0 {
		return
	}
	cutoff := s.now().Add(-s.idle)
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) && !e.ctrl.Snapshot().Busy {
			delete(s.sessions, id)
		}
	}
}
