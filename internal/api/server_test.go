package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockdash/internal/cache"
	"stockdash/internal/market"
	"stockdash/internal/provider"
	"stockdash/internal/search"
	"stockdash/internal/session"
)

// stubProvider serves canned quotes keyed by symbol.
type stubProvider struct {
	mu        sync.Mutex
	profiles  map[string]provider.Profile
	closes    map[string][]float64
	news      map[string][]provider.NewsItem
	failing   map[string]error
	searchHit []provider.SearchResult
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		profiles: map[string]provider.Profile{},
		closes:   map[string][]float64{},
		news:     map[string][]provider.NewsItem{},
		failing:  map[string]error{},
	}
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Profile(_ context.Context, symbol string) (provider.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing[symbol]; err != nil {
		return provider.Profile{}, err
	}
	pr, ok := p.profiles[symbol]
	if !ok {
		return provider.Profile{}, provider.ErrNotFound
	}
	return pr, nil
}

func (p *stubProvider) History(_ context.Context, symbol string, period provider.Period) (provider.History, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing[symbol]; err != nil {
		return provider.History{}, err
	}
	h := provider.History{Symbol: symbol, Period: period}
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range p.closes[symbol] {
		h.Bars = append(h.Bars, provider.Bar{Date: day.AddDate(0, 0, i), Open: c - 1, High: c + 1, Low: c - 2, Close: c, Volume: 5000})
	}
	return h, nil
}

func (p *stubProvider) Search(context.Context, string) ([]provider.SearchResult, error) {
	return p.searchHit, nil
}

func (p *stubProvider) News(_ context.Context, symbol string, limit int) ([]provider.NewsItem, error) {
	items := p.news[symbol]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func testServer(t *testing.T, sp *stubProvider, opts ...market.Option) *Server {
	t.Helper()
	c := cache.New()
	svc := market.New(sp, c, opts...)
	res := search.NewResolver(sp, c, cache.TTLSearch, nil)
	return NewServer(Config{RequestTimeout: 5 * time.Second}, svc, res, session.NewManager("", time.Hour), nil)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, s *Server, method, target string, body io.Reader, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func tcsProvider() *stubProvider {
	sp := newStubProvider()
	sp.profiles["TCS.NS"] = provider.Profile{Symbol: "TCS.NS", Name: "Tata Consultancy Services", Price: 110, PreviousClose: 100, Currency: "INR", Sector: "Technology"}
	sp.closes["TCS.NS"] = []float64{100, 101, 102, 103, 104, 105}
	return sp
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := do(t, testServer(t, newStubProvider()), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestStock_UpdatesSession(t *testing.T) {
	t.Parallel()

	// Arrange
	s := testServer(t, tcsProvider())

	// Act: lower-case symbol, explicit period and chart kind
	rec := do(t, s, http.MethodGet, "/api/v1/stocks/tcs.ns?period=1mo&chart=candlestick", nil)

	// Assert: payload
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view struct {
		Symbol        string  `json:"symbol"`
		Period        string  `json:"period"`
		PeriodLabel   string  `json:"period_label"`
		PercentChange float64 `json:"percent_change"`
		ChangeText    string  `json:"change_text"`
		InWatchlist   bool    `json:"in_watchlist"`
		Metrics       struct {
			Rows [][]any `json:"rows"`
		} `json:"metrics"`
		History struct {
			Rows [][]any `json:"rows"`
		} `json:"history"`
		Chart struct {
			Kind  string `json:"kind"`
			Title string `json:"title"`
		} `json:"chart"`
		Company struct {
			Details struct {
				Rows [][]any `json:"rows"`
			} `json:"details"`
			About string `json:"about"`
		} `json:"company"`
	}
	env := decode(t, rec, &view)
	require.True(t, env.Success)
	require.Equal(t, "TCS.NS", view.Symbol)
	require.Equal(t, "1mo", view.Period)
	require.Equal(t, "1 Month", view.PeriodLabel)
	require.InDelta(t, 10.0, view.PercentChange, 1e-9)
	require.Equal(t, "+10.00 (10.00%)", view.ChangeText)
	require.True(t, view.InWatchlist, "TCS.NS is a default watchlist member")
	require.Len(t, view.Metrics.Rows, 13)
	require.Len(t, view.History.Rows, 6)
	require.Equal(t, "candlestick", view.Chart.Kind)
	require.Equal(t, []any{"Sector", "Technology"}, view.Company.Details.Rows[0])
	require.Equal(t, "No business summary available.", view.Company.About)

	// Assert: the session remembers the selection
	rec = do(t, s, http.MethodGet, "/api/v1/session", nil, sessionCookie(t, rec))
	var sv session.View
	decode(t, rec, &sv)
	require.Equal(t, "TCS.NS", sv.SelectedSymbol)
	require.Equal(t, provider.Period1M, sv.Period)
	require.Equal(t, "candlestick", sv.ChartKind)
}

func TestStock_BadInput(t *testing.T) {
	t.Parallel()

	s := testServer(t, tcsProvider())
	tests := []struct {
		name   string
		target string
	}{
		{name: "period", target: "/api/v1/stocks/TCS.NS?period=10y"},
		{name: "chart", target: "/api/v1/stocks/TCS.NS?chart=pie"},
		{name: "symbol", target: "/api/v1/stocks/bad%20symbol!"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tc.target, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			env := decode(t, rec, nil)
			require.False(t, env.Success)
			require.NotEmpty(t, env.Error)
		})
	}
}

func TestStock_EmptyAndFailed(t *testing.T) {
	t.Parallel()

	sp := newStubProvider()
	sp.profiles["NEW.NS"] = provider.Profile{Symbol: "NEW.NS", Name: "New Listing"}
	sp.failing["DOWN.NS"] = errors.New("connection refused")
	s := testServer(t, sp)

	rec := do(t, s, http.MethodGet, "/api/v1/stocks/NEW.NS", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "No historical data available for NEW.NS", decode(t, rec, nil).Error)

	rec = do(t, s, http.MethodGet, "/api/v1/stocks/DOWN.NS", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, decode(t, rec, nil).Error, "Error fetching data for DOWN.NS")
}

func TestHistoryExport(t *testing.T) {
	t.Parallel()

	s := testServer(t, tcsProvider())

	rec := do(t, s, http.MethodGet, "/api/v1/stocks/TCS.NS/history.csv?period=6mo", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="TCS.NS_6mo_history.csv"`, rec.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 7)
	require.Equal(t, "Date,Open,High,Low,Close,Volume,Change,Change %", lines[0])
	require.Equal(t, "2024-03-01,99.00,101.00,98.00,100.00,5000,1.00,1.01", lines[1])

	rec = do(t, s, http.MethodGet, "/api/v1/stocks/TCS.NS/history.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip container")
	require.Contains(t, rec.Header().Get("Content-Disposition"), "TCS.NS_1y_history.xlsx")
}

func TestMetricsExport(t *testing.T) {
	t.Parallel()

	s := testServer(t, tcsProvider())

	rec := do(t, s, http.MethodGet, "/api/v1/stocks/TCS.NS/metrics.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Equal(t, "Metric,Value", lines[0])
	require.Equal(t, "Current Price,₹110.00", lines[1])
	require.Len(t, lines, 14)
}

func TestWatchlistFlow(t *testing.T) {
	t.Parallel()

	// Arrange: two of the default members can be priced
	sp := tcsProvider()
	sp.profiles["INFY.NS"] = provider.Profile{Symbol: "INFY.NS", Name: "Infosys", Price: 1500, PreviousClose: 1500}
	sp.closes["INFY.NS"] = []float64{1490, 1510}
	s := testServer(t, sp)

	// Act: initial read creates the session
	rec := do(t, s, http.MethodGet, "/api/v1/watchlist", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)
	var wl struct {
		Symbols []string           `json:"symbols"`
		Rows    []provider.Profile `json:"rows"`
	}
	decode(t, rec, &wl)
	require.Equal(t, []string{"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "INFY.NS"}, wl.Symbols)
	require.Len(t, wl.Rows, 2, "unpriceable members are dropped")
	require.Equal(t, "TCS.NS", wl.Rows[0].Symbol)
	require.InDelta(t, 1510.0, wl.Rows[1].Price, 1e-9)

	// Add, then add again
	rec = do(t, s, http.MethodPost, "/api/v1/watchlist", strings.NewReader(`{"symbol":" irfc.ns "}`), cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var change struct {
		Symbol    string   `json:"symbol"`
		Changed   bool     `json:"changed"`
		Watchlist []string `json:"watchlist"`
	}
	decode(t, rec, &change)
	require.Equal(t, "IRFC.NS", change.Symbol)
	require.True(t, change.Changed)
	require.Len(t, change.Watchlist, 5)

	rec = do(t, s, http.MethodPost, "/api/v1/watchlist", strings.NewReader(`{"symbol":"IRFC.NS"}`), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &change)
	require.False(t, change.Changed)
	require.Len(t, change.Watchlist, 5)

	// Remove, then remove again
	rec = do(t, s, http.MethodDelete, "/api/v1/watchlist/irfc.ns", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodDelete, "/api/v1/watchlist/IRFC.NS", nil, cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "IRFC.NS is not in the watchlist", decode(t, rec, nil).Error)
}

func TestAddToWatchlist_BadBody(t *testing.T) {
	t.Parallel()

	s := testServer(t, newStubProvider())
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "not json", body: `symbol=TCS`, want: "invalid JSON body"},
		{name: "unknown field", body: `{"ticker":"TCS.NS"}`, want: "invalid JSON body"},
		{name: "blank", body: `{"symbol":"  "}`, want: "symbol is required"},
		{name: "malformed", body: `{"symbol":"TCS NS"}`, want: `invalid symbol "TCS NS"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/watchlist", strings.NewReader(tc.body))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tc.want, decode(t, rec, nil).Error)
		})
	}
}

func TestAddToWatchlist_BodyTooLarge(t *testing.T) {
	t.Parallel()

	c := cache.New()
	sp := newStubProvider()
	s := NewServer(Config{MaxBodyBytes: 16}, market.New(sp, c), search.NewResolver(sp, c, time.Hour, nil), session.NewManager("", time.Hour), nil)

	rec := do(t, s, http.MethodPost, "/api/v1/watchlist", strings.NewReader(`{"symbol":"RELIANCE.NS"}`))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSearch_LocalFirstAndRemembered(t *testing.T) {
	t.Parallel()

	sp := newStubProvider()
	sp.searchHit = []provider.SearchResult{
		{Symbol: "RELIGARE.NS", Name: "Religare Enterprises", Kind: "EQUITY", Exchange: "NSI"},
	}
	s := testServer(t, sp)

	rec := do(t, s, http.MethodGet, "/api/v1/search?q=rel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Query   string                  `json:"query"`
		Results []provider.SearchResult `json:"results"`
	}
	decode(t, rec, &view)
	require.Equal(t, "rel", view.Query)
	require.Len(t, view.Results, 2)
	require.Equal(t, "RELIANCE.NS", view.Results[0].Symbol)
	require.Equal(t, "NSE", view.Results[1].Exchange)

	rec = do(t, s, http.MethodGet, "/api/v1/session", nil, sessionCookie(t, rec))
	var sv session.View
	decode(t, rec, &sv)
	require.Equal(t, "rel", sv.LastSearch)

	// a blank query is not an error
	rec = do(t, s, http.MethodGet, "/api/v1/search?q=", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	require.Empty(t, view.Results)
}

func TestIndices(t *testing.T) {
	t.Parallel()

	sp := newStubProvider()
	sp.profiles["^NSEI"] = provider.Profile{Symbol: "^NSEI", Price: 22000, PreviousClose: 22100}
	s := testServer(t, sp)

	rec := do(t, s, http.MethodGet, "/api/v1/indices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out []struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
		Color struct {
			Name string `json:"name"`
		} `json:"color"`
	}
	decode(t, rec, &out)
	require.Len(t, out, len(market.DefaultIndices))
	require.Equal(t, "NIFTY 50", out[0].Name)
	require.InDelta(t, 22000.0, out[0].Price, 1e-9)
	require.Equal(t, "red", out[0].Color.Name)
	require.Zero(t, out[1].Price, "unavailable index reports zeros")
}

func TestNews(t *testing.T) {
	t.Parallel()

	sp := newStubProvider()
	sp.news["INFY.NS"] = []provider.NewsItem{
		{Title: "Infosys wins deal", Publisher: "Mint", Link: "https://example.com/a"},
		{Title: "Infosys results", Publisher: "ET"},
		{Title: "Infosys buyback", Publisher: "BS"},
	}
	s := testServer(t, sp)

	rec := do(t, s, http.MethodGet, "/api/v1/stocks/infy.ns/news?n=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Symbol  string           `json:"symbol"`
		Company []map[string]any `json:"company"`
		Market  []map[string]any `json:"market"`
	}
	decode(t, rec, &view)
	require.Equal(t, "INFY.NS", view.Symbol)
	require.Len(t, view.Company, 2)
	require.Equal(t, "No summary available", view.Company[0]["summary"])
	require.Equal(t, "#", view.Company[1]["link"])
	require.Empty(t, view.Market)

	rec = do(t, s, http.MethodGet, "/api/v1/stocks/INFY.NS/news?n=abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPennyStocks(t *testing.T) {
	t.Parallel()

	sp := newStubProvider()
	sp.closes["A.NS"] = []float64{10, 12}
	sp.closes["B.NS"] = []float64{20, 18}
	sp.closes["C.NS"] = []float64{5, 5}
	picks := []market.PennyPick{
		{Symbol: "A.NS", Name: "Alpha", Sector: "Banking"},
		{Symbol: "B.NS", Name: "Beta", Sector: "Power"},
		{Symbol: "C.NS", Name: "Gamma", Sector: "Banking"},
	}
	s := testServer(t, sp, market.WithPennyPicks(picks, nil))

	rec := do(t, s, http.MethodGet, "/api/v1/penny-stocks", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view struct {
		Stocks   []market.PennyStock `json:"stocks"`
		BySector []struct {
			Sector string              `json:"sector"`
			Stocks []market.PennyStock `json:"stocks"`
		} `json:"by_sector"`
		Gainers []market.PennyStock `json:"gainers"`
		Losers  []market.PennyStock `json:"losers"`
	}
	decode(t, rec, &view)
	require.Equal(t, "C.NS", view.Stocks[0].Symbol, "cheapest first")
	require.Equal(t, "Banking", view.BySector[0].Sector)
	require.Len(t, view.BySector[0].Stocks, 2)
	require.Len(t, view.Gainers, 1)
	require.Equal(t, "A.NS", view.Gainers[0].Symbol)
	require.Equal(t, "B.NS", view.Losers[0].Symbol)

	rec = do(t, s, http.MethodGet, "/api/v1/penny-stocks?sort=name", nil)
	decode(t, rec, &view)
	require.Equal(t, "Alpha", view.Stocks[0].Name)

	rec = do(t, s, http.MethodGet, "/api/v1/penny-stocks?sort=volume", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGzip(t *testing.T) {
	t.Parallel()

	s := testServer(t, newStubProvider())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"success":true`)
}

func TestCORS_CredentialsOnlyForExplicitOrigins(t *testing.T) {
	t.Parallel()

	newServer := func(origins ...string) *Server {
		sp := newStubProvider()
		c := cache.New()
		return NewServer(Config{CORSOrigins: origins}, market.New(sp, c), search.NewResolver(sp, c, cache.TTLSearch, nil),
			session.NewManager("", time.Hour), nil)
	}
	get := func(s *Server, origin string) http.Header {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Header()
	}

	// Assert: wildcard origins never carry credentials
	h := get(newServer(), "https://evil.example")
	require.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
	require.Empty(t, h.Get("Access-Control-Allow-Credentials"))

	// Assert: a listed origin may send the session cookie
	h = get(newServer("https://dash.example"), "https://dash.example")
	require.Equal(t, "https://dash.example", h.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", h.Get("Access-Control-Allow-Credentials"))
}

func TestCheckSymbol(t *testing.T) {
	t.Parallel()

	for _, sym := range []string{"TCS.NS", "M&M.NS", "^NSEI", "GC=F", "BRK-B", "0P0000XVKR.BO", "NIFTY_MIDCAP_100.NS"} {
		require.NoError(t, checkSymbol(sym), sym)
	}
	for _, sym := range []string{"", "TCS NS", "BAD!", "A/B", strings.Repeat("X", 33)} {
		require.Error(t, checkSymbol(sym), sym)
	}
}

func TestRecoverPanic(t *testing.T) {
	t.Parallel()

	s := testServer(t, newStubProvider())
	h := s.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()

	require.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal server error", decode(t, rec, nil).Error)
}
