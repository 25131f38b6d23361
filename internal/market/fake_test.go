package market_test

import (
	"context"
	"sync"
	"time"

	"stockdash/internal/provider"
)

// fakeProvider serves canned data and counts calls per method.
type fakeProvider struct {
	mu        sync.Mutex
	profiles  map[string]provider.Profile
	histories map[string][]float64 // closes, oldest first
	news      map[string][]provider.NewsItem
	failing   map[string]error
	calls     map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		profiles:  map[string]provider.Profile{},
		histories: map[string][]float64{},
		news:      map[string][]provider.NewsItem{},
		failing:   map[string]error{},
		calls:     map[string]int{},
	}
}

func (f *fakeProvider) count(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

func (f *fakeProvider) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Profile(_ context.Context, symbol string) (provider.Profile, error) {
	f.count("profile")
	if err := f.failing[symbol]; err != nil {
		return provider.Profile{}, err
	}
	p, ok := f.profiles[symbol]
	if !ok {
		return provider.Profile{}, provider.ErrNotFound
	}
	return p, nil
}

func (f *fakeProvider) History(_ context.Context, symbol string, period provider.Period) (provider.History, error) {
	f.count("history")
	if err := f.failing[symbol]; err != nil {
		return provider.History{}, err
	}
	h := provider.History{Symbol: symbol, Period: period}
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range f.histories[symbol] {
		h.Bars = append(h.Bars, provider.Bar{Date: day.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000})
	}
	return h, nil
}

func (f *fakeProvider) Search(context.Context, string) ([]provider.SearchResult, error) {
	f.count("search")
	return nil, nil
}

func (f *fakeProvider) News(_ context.Context, symbol string, limit int) ([]provider.NewsItem, error) {
	f.count("news")
	if err := f.failing["news:"+symbol]; err != nil {
		return nil, err
	}
	items := f.news[symbol]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// staticNews is a NewsSource returning fixed items.
type staticNews struct {
	items []provider.NewsItem
	err   error
	calls int
}

func (s *staticNews) Name() string { return "static" }

func (s *staticNews) News(context.Context, string, int) ([]provider.NewsItem, error) {
	s.calls++
	return s.items, s.err
}

// fakeClock is a manually advanced clock for cache expiry.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
