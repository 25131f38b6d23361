package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockdash/internal/metrics"
	"stockdash/internal/provider"
	"stockdash/internal/watchlist"
)

const (
	DefaultSymbol     = "RELIANCE.NS"
	DefaultChartKind  = "line"
	DefaultCookieName = "stockdash_session"
)

// State is one viewer's dashboard state.
type State struct {
	ID        string
	Watchlist *watchlist.Store

	mu             sync.Mutex
	selectedSymbol string
	period         provider.Period
	chartKind      string
	lastSearch     string
	lastSeen       time.Time
}

// View is a point-in-time copy of a State.
type View struct {
	ID             string          `json:"id"`
	SelectedSymbol string          `json:"selected_symbol"`
	Period         provider.Period `json:"period"`
	ChartKind      string          `json:"chart_kind"`
	LastSearch     string          `json:"last_search,omitempty"`
	Watchlist      []string        `json:"watchlist"`
}

func newState(id string, now time.Time) *State {
	return &State{
		ID:             id,
		Watchlist:      watchlist.New(),
		selectedSymbol: DefaultSymbol,
		period:         provider.Period1Y,
		chartKind:      DefaultChartKind,
		lastSeen:       now,
	}
}

// Select records the stock being viewed. Empty arguments keep the current value.
func (s *State) Select(symbol string, period provider.Period, chartKind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if symbol != "" {
		s.selectedSymbol = symbol
	}
	if period != "" {
		s.period = period
	}
	if chartKind != "" {
		s.chartKind = chartKind
	}
}

func (s *State) SetLastSearch(q string) {
	s.mu.Lock()
	s.lastSearch = q
	s.mu.Unlock()
}

func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:             s.ID,
		SelectedSymbol: s.selectedSymbol,
		Period:         s.period,
		ChartKind:      s.chartKind,
		LastSearch:     s.lastSearch,
		Watchlist:      s.Watchlist.List(),
	}
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *State) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Manager owns all live sessions, keyed by a random id carried in a cookie.
type Manager struct {
	CookieName  string
	IdleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*State
}

func NewManager(cookieName string, idle time.Duration) *Manager {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Manager{
		CookieName:  cookieName,
		IdleTimeout: idle,
		now:         time.Now,
		sessions:    make(map[string]*State),
	}
}

// SetClock replaces time.Now; used by tests.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Create starts a new session.
func (m *Manager) Create() *State {
	s := newState(uuid.NewString(), m.now())
	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return s
}

// Get returns the live session with id and marks it as seen.
func (m *Manager) Get(id string) (*State, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	s.touch(m.now())
	return s, true
}

// FromRequest returns the caller's session, creating one and setting the
// cookie when the request carries no known id.
func (m *Manager) FromRequest(w http.ResponseWriter, r *http.Request) *State {
	if c, err := r.Cookie(m.CookieName); err == nil {
		if s, ok := m.Get(c.Value); ok {
			return s
		}
	}
	s := m.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// Sweep drops sessions idle for longer than IdleTimeout and returns how many
// were removed.
func (m *Manager) Sweep() int {
	if m.IdleTimeout <= 0 {
		return 0
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.idleSince(now) > m.IdleTimeout {
			delete(m.sessions, id)
			n++
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return n
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
