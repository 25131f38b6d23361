package watchlist

import (
	"slices"
	"strings"
	"sync"
)

// Defaults seed every new watchlist.
var Defaults = []string{"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "INFY.NS"}

// Store is an ordered set of symbols. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	symbols []string
}

// New returns a store seeded with Defaults.
func New() *Store {
	return NewWith(Defaults...)
}

// NewWith returns a store holding symbols, deduplicated in order.
func NewWith(symbols ...string) *Store {
	s := &Store{}
	for _, sym := range symbols {
		s.Add(sym)
	}
	return s
}

// Add appends symbol unless it is blank or already present.
func (s *Store) Add(symbol string) bool {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.symbols, symbol) {
		return false
	}
	s.symbols = append(s.symbols, symbol)
	return true
}

// Remove deletes symbol and reports whether it was present.
func (s *Store) Remove(symbol string) bool {
	symbol = strings.TrimSpace(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.symbols, symbol)
	if i < 0 {
		return false
	}
	s.symbols = slices.Delete(s.symbols, i, i+1)
	return true
}

// List returns a copy of the symbols in insertion order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.symbols)
}

func (s *Store) Contains(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.symbols, strings.TrimSpace(symbol))
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symbols)
}
