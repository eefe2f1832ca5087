package app

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xymaxim/vdl/internal/render"
	"github.com/xymaxim/vdl/internal/session"
)

// tab is the state of one browser tab.
type tab struct {
	id      string
	session *session.Session

	mu       sync.Mutex
	input    string
	notice   *render.Notice
	lastSeen time.Time
}

func (t *tab) setInput(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.input = s
}

func (t *tab) flash(n render.Notice) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notice = &n
}

// popNotice returns the pending notice once.
func (t *tab) popNotice() (*render.Notice, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.notice
	t.notice = nil
	return n, t.input
}

// SessionStore keeps the sessions of all open tabs, keyed by uuid. A tab is
// stored on its first state-changing request; plain page views do not
// create one.
type SessionStore struct {
	options session.Options
	ttl     time.Duration
	limit   int
	now     func() time.Time

	mu   sync.Mutex
	tabs map[string]*tab
}

// NewSessionStore creates a store whose tabs expire after ttl of inactivity.
// At most limit tabs are kept; zero means no limit.
func NewSessionStore(opts session.Options, ttl time.Duration, limit int) *SessionStore {
	return &SessionStore{
		options: opts,
		ttl:     ttl,
		limit:   limit,
		now:     time.Now,
		tabs:    make(map[string]*tab),
	}
}

// Lookup returns the stored tab for id without creating one.
func (s *SessionStore) Lookup(id string) (*tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	return s.lookup(id, now)
}

// Get returns the tab for id, storing a fresh one when id is unknown or not
// a uuid. Idle tabs past their TTL are dropped.
func (s *SessionStore) Get(b session.Backend, id string) (*tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	if t, ok := s.lookup(id, now); ok {
		return t, true
	}

	if s.limit > 0 && len(s.tabs) >= s.limit {
		s.evictOldest()
	}
	t := s.blank(b)
	t.lastSeen = now
	s.tabs[t.id] = t
	return t, false
}

// blank returns a new tab that is not stored.
func (s *SessionStore) blank(b session.Backend) *tab {
	return &tab{
		id:      uuid.NewString(),
		session: session.New(b, s.options),
	}
}

func (s *SessionStore) lookup(id string, now time.Time) (*tab, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	t, ok := s.tabs[id]
	if ok {
		t.lastSeen = now
	}
	return t, ok
}

// evictOldest drops the least recently seen tab that is not busy.
func (s *SessionStore) evictOldest() {
	var oldest *tab
	for _, t := range s.tabs {
		if t.session.Snapshot().Busy {
			continue
		}
		if oldest == nil || t.lastSeen.Before(oldest.lastSeen) {
			oldest = t
		}
	}
	if oldest != nil {
		delete(s.tabs, oldest.id)
	}
}

// Len returns the number of live tabs.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tabs)
}

func (s *SessionStore) sweep(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, t := range s.tabs {
		if now.Sub(t.lastSeen) > s.ttl && !t.session.Snapshot().Busy {
			delete(s.tabs, id)
		}
	}
}
