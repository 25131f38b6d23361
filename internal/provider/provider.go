package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("symbol not found")
	ErrEmptyHistory  = errors.New("no price history returned")
	ErrRateLimited   = errors.New("rate limited by data provider")
	ErrInvalidPeriod = errors.New("invalid history period")
)

// Period is a history range accepted by the chart endpoint.
type Period string

const (
	Period1D Period = "1d"
	Period1M Period = "1mo"
	Period3M Period = "3mo"
	Period6M Period = "6mo"
	Period1Y Period = "1y"
	Period2Y Period = "2y"
	Period5Y Period = "5y"
)

// Periods lists the user-selectable history ranges in display order.
func Periods() []Period {
	return []Period{Period1M, Period3M, Period6M, Period1Y, Period2Y, Period5Y}
}

var periodLabels = map[Period]string{
	Period1D: "1 Day",
	Period1M: "1 Month",
	Period3M: "3 Months",
	Period6M: "6 Months",
	Period1Y: "1 Year",
	Period2Y: "2 Years",
	Period5Y: "5 Years",
}

func (p Period) Label() string {
	if l, ok := periodLabels[p]; ok {
		return l
	}
	return string(p)
}

// ParsePeriod accepts one of the user-selectable ranges. Empty input yields 1y.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Period1Y, nil
	}
	for _, p := range Periods() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// Profile is the company profile plus the latest quote snapshot.
// Optional numeric attributes are nil when the provider omitted them.
type Profile struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Exchange      string  `json:"exchange,omitempty"`
	QuoteType     string  `json:"quote_type,omitempty"`
	Currency      string  `json:"currency"`
	Country       string  `json:"country"`
	Sector        string  `json:"sector,omitempty"`
	Industry      string  `json:"industry,omitempty"`
	Summary       string  `json:"summary,omitempty"`
	Website       string  `json:"website,omitempty"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previous_close"`

	Open             *float64 `json:"open,omitempty"`
	DayHigh          *float64 `json:"day_high,omitempty"`
	DayLow           *float64 `json:"day_low,omitempty"`
	Volume           *float64 `json:"volume,omitempty"`
	MarketCap        *float64 `json:"market_cap,omitempty"`
	TrailingPE       *float64 `json:"trailing_pe,omitempty"`
	DividendYield    *float64 `json:"dividend_yield,omitempty"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  *float64 `json:"fifty_two_week_low,omitempty"`
	EPS              *float64 `json:"eps,omitempty"`
	Beta             *float64 `json:"beta,omitempty"`
	Employees        *float64 `json:"employees,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

func (p Profile) Change() float64 { return p.Price - p.PreviousClose }

func (p Profile) PercentChange() float64 { return PercentChange(p.Price, p.PreviousClose) }

// PercentChange returns the change of current over previous in percent.
// A zero previous value yields 0.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// Bar is one daily OHLCV record.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// History is an ordered, oldest-first series of bars.
type History struct {
	Symbol string `json:"symbol"`
	Period Period `json:"period"`
	Bars   []Bar  `json:"bars"`
}

func (h History) Empty() bool { return len(h.Bars) == 0 }

// Last returns the most recent bar. Callers must check Empty first.
func (h History) Last() Bar { return h.Bars[len(h.Bars)-1] }

func (h History) Closes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Close
	}
	return out
}

type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Kind     string `json:"kind"`
}

type NewsItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Link        string    `json:"link"`
	Publisher   string    `json:"publisher"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsSource returns recent headlines for a symbol (or the market when the
// source ignores the symbol).
type NewsSource interface {
	Name() string
	News(ctx context.Context, symbol string, limit int) ([]NewsItem, error)
}

// Provider is the market-data upstream used by the dashboard.
type Provider interface {
	NewsSource
	Profile(ctx context.Context, symbol string) (Profile, error)
	History(ctx context.Context, symbol string, period Period) (History, error)
	Search(ctx context.Context, query string) ([]SearchResult, error)
}
