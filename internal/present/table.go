package present

import (
	"fmt"
	"unicode/utf8"

	"stockdash/internal/market"
	"stockdash/internal/provider"
)

// Table is a rectangular view with named columns. Cells hold strings,
// float64 or int64. Columns listed in Signed are colored with CellColor.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Signed  []string `json:"signed_columns,omitempty"`
}

// CellColors returns a color per cell of the Signed columns, empty elsewhere.
func (t Table) CellColors() [][]string {
	signed := make(map[int]bool, len(t.Signed))
	for i, c := range t.Columns {
		for _, s := range t.Signed {
			if c == s {
				signed[i] = true
			}
		}
	}
	out := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = make([]string, len(row))
		for i, cell := range row {
			if v, ok := cell.(float64); ok && signed[i] {
				out[r][i] = CellColor(v)
			}
		}
	}
	return out
}

// HistoryTable lists bars with intraday change, rounded to two decimals.
func HistoryTable(h provider.History) Table {
	t := Table{
		Columns: []string{"Date", "Open", "High", "Low", "Close", "Volume", "Change", "Change %"},
		Rows:    make([][]any, 0, len(h.Bars)),
		Signed:  []string{"Change", "Change %"},
	}
	for _, b := range h.Bars {
		change := b.Close - b.Open
		pct := 0.0
		if b.Open != 0 {
			pct = change / b.Open * 100
		}
		t.Rows = append(t.Rows, []any{
			b.Date.Format("2006-01-02"),
			Round2(b.Open), Round2(b.High), Round2(b.Low), Round2(b.Close),
			b.Volume,
			Round2(change), Round2(pct),
		})
	}
	return t
}

// KeyMetrics lists the valuation metrics of a profile as Metric/Value rows.
func KeyMetrics(p provider.Profile) Table {
	price, prev := p.Price, p.PreviousClose
	div := NA
	if p.DividendYield != nil && *p.DividendYield != 0 {
		div = FormatPercent(*p.DividendYield * 100)
	}
	rows := [][2]string{
		{"Current Price", FormatRupee(&price)},
		{"Previous Close", FormatRupee(&prev)},
		{"Open", FormatRupee(p.Open)},
		{"Day High", FormatRupee(p.DayHigh)},
		{"Day Low", FormatRupee(p.DayLow)},
		{"Volume", FormatNumber(p.Volume)},
		{"Market Cap", FormatNumber(p.MarketCap)},
		{"PE Ratio", FormatPlain(p.TrailingPE)},
		{"Dividend Yield", div},
		{"52 Week High", FormatRupee(p.FiftyTwoWeekHigh)},
		{"52 Week Low", FormatRupee(p.FiftyTwoWeekLow)},
		{"EPS", FormatRupee(p.EPS)},
		{"Beta", FormatPlain(p.Beta)},
	}
	return pairs("Metric", rows)
}

// Company is the company panel of a stock view.
type Company struct {
	Name    string `json:"name"`
	Details Table  `json:"details"`
	About   string `json:"about"`
}

// CompanyInfo describes the company behind p with "N/A" for unknown fields.
func CompanyInfo(p provider.Profile) Company {
	about := p.Summary
	if about == "" {
		about = "No business summary available."
	}
	return Company{
		Name: p.Name,
		Details: pairs("Field", [][2]string{
			{"Sector", orNA(p.Sector)},
			{"Industry", orNA(p.Industry)},
			{"Exchange", orNA(p.Exchange)},
			{"Country", orNA(p.Country)},
			{"Currency", orNA(p.Currency)},
			{"Employees", FormatNumber(p.Employees)},
			{"Website", orNA(p.Website)},
		}),
		About: about,
	}
}

func pairs(key string, rows [][2]string) Table {
	t := Table{Columns: []string{key, "Value"}, Rows: make([][]any, len(rows))}
	for i, r := range rows {
		t.Rows[i] = []any{r[0], r[1]}
	}
	return t
}

func orNA(s string) string {
	if s == "" {
		return NA
	}
	return s
}

// WatchlistTable renders batch rows.
func WatchlistTable(rows []provider.Profile) Table {
	t := Table{
		Columns: []string{"Symbol", "Name", "Price (₹)", "Change", "Change %", "Volume", "Market Cap"},
		Rows:    make([][]any, 0, len(rows)),
		Signed:  []string{"Change", "Change %"},
	}
	for _, p := range rows {
		t.Rows = append(t.Rows, []any{
			p.Symbol, p.Name, Round2(p.Price), Round2(p.Change()), Round2(p.PercentChange()),
			FormatNumber(p.Volume), FormatNumber(p.MarketCap),
		})
	}
	return t
}

// PennyTable renders the penny stock list.
func PennyTable(stocks []market.PennyStock) Table {
	t := Table{
		Columns: []string{"Symbol", "Name", "Sector", "Price (₹)", "30D Change %"},
		Rows:    make([][]any, 0, len(stocks)),
		Signed:  []string{"30D Change %"},
	}
	for _, s := range stocks {
		t.Rows = append(t.Rows, []any{s.Symbol, s.Name, s.Sector, Round2(s.Price), Round2(s.Change30D)})
	}
	return t
}

// NewsCard is a news item ready for display.
type NewsCard struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Link      string `json:"link"`
	Source    string `json:"source"`
	Published string `json:"published"`
}

// NewsCards truncates summaries to 200 characters.
func NewsCards(items []provider.NewsItem) []NewsCard {
	out := make([]NewsCard, len(items))
	for i, it := range items {
		c := NewsCard{
			Title:   it.Title,
			Summary: TruncateSummary(it.Summary, 200),
			Link:    it.Link,
			Source:  it.Publisher,
		}
		if c.Summary == "" {
			c.Summary = "No summary available"
		}
		if c.Link == "" {
			c.Link = "#"
		}
		if !it.PublishedAt.IsZero() {
			c.Published = it.PublishedAt.Format("2006-01-02 15:04")
		}
		out[i] = c
	}
	return out
}

// TruncateSummary cuts s to n characters and appends "..." when it was longer.
func TruncateSummary(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// cellString renders a cell for export.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.2f", x)
	case int64:
		return fmt.Sprintf("%d", x)
	}
	return fmt.Sprint(v)
}
