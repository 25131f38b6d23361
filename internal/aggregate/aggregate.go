package aggregate

import (
	"sort"
	"strings"

	"stockdash/internal/market"
)

// exchangeAliases maps upstream exchange codes to display names.
var exchangeAliases = map[string]string{
	"nsi":    "NSE",
	"nse":    "NSE",
	"bse":    "BSE",
	"bom":    "BSE",
	"nms":    "NASDAQ",
	"ngm":    "NASDAQ",
	"ncm":    "NASDAQ",
	"nasdaq": "NASDAQ",
	"nyq":    "NYSE",
	"nyse":   "NYSE",
}

// NormalizeExchange returns the display name for an exchange code. Unknown
// codes are returned trimmed.
func NormalizeExchange(code string) string {
	c := strings.TrimSpace(code)
	if norm, ok := exchangeAliases[strings.ToLower(c)]; ok {
		return norm
	}
	return c
}

// ExchangeFromSymbol infers the exchange from a Yahoo suffix.
func ExchangeFromSymbol(symbol string) string {
	switch {
	case strings.HasSuffix(strings.ToUpper(symbol), ".NS"):
		return "NSE"
	case strings.HasSuffix(strings.ToUpper(symbol), ".BO"):
		return "BSE"
	}
	return ""
}

// SectorGroup is the stocks of one sector.
type SectorGroup struct {
	Sector string              `json:"sector"`
	Stocks []market.PennyStock `json:"stocks"`
}

// BySector groups stocks by sector in first-seen order, keeping input order
// within each group.
func BySector(stocks []market.PennyStock) []SectorGroup {
	idx := make(map[string]int)
	var out []SectorGroup
	for _, s := range stocks {
		i, ok := idx[s.Sector]
		if !ok {
			i = len(out)
			idx[s.Sector] = i
			out = append(out, SectorGroup{Sector: s.Sector})
		}
		out[i].Stocks = append(out[i].Stocks, s)
	}
	return out
}

// Movers splits stocks into gainers (positive 30-day change, largest first)
// and losers (zero or negative, largest drop first).
func Movers(stocks []market.PennyStock) (gainers, losers []market.PennyStock) {
	for _, s := range stocks {
		if s.Change30D > 0 {
			gainers = append(gainers, s)
		} else {
			losers = append(losers, s)
		}
	}
	sort.SliceStable(gainers, func(i, j int) bool { return gainers[i].Change30D > gainers[j].Change30D })
	sort.SliceStable(losers, func(i, j int) bool { return losers[i].Change30D < losers[j].Change30D })
	return gainers, losers
}

// SortByPrice returns a copy ordered by ascending price.
func SortByPrice(stocks []market.PennyStock) []market.PennyStock {
	out := append([]market.PennyStock(nil), stocks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// SortByName returns a copy ordered by name.
func SortByName(stocks []market.PennyStock) []market.PennyStock {
	out := append([]market.PennyStock(nil), stocks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
