package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"stockdash/internal/aggregate"
	"stockdash/internal/market"
	"stockdash/internal/present"
	"stockdash/internal/provider"
)

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	maxNews = 20
)

type indexView struct {
	market.IndexQuote
	ChangeText string        `json:"change_text"`
	Color      present.Color `json:"color"`
}

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	quotes := s.market.Indices(r.Context())
	out := make([]indexView, len(quotes))
	for i, q := range quotes {
		out[i] = indexView{
			IndexQuote: q,
			ChangeText: present.FormatSignedChange(q.Change, q.PercentChange),
			Color:      present.ChangeColor(q.Change),
		}
	}
	writeData(w, http.StatusOK, out)
}

type searchView struct {
	Query   string                  `json:"query"`
	Results []provider.SearchResult `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	st := s.sessions.FromRequest(w, r)
	st.SetLastSearch(q)

	results := s.search.Resolve(r.Context(), q)
	if results == nil {
		results = []provider.SearchResult{}
	}
	writeData(w, http.StatusOK, searchView{Query: q, Results: results})
}

type stockView struct {
	Symbol        string           `json:"symbol"`
	Period        provider.Period  `json:"period"`
	PeriodLabel   string           `json:"period_label"`
	Profile       provider.Profile `json:"profile"`
	Change        float64          `json:"change"`
	PercentChange float64          `json:"percent_change"`
	ChangeText    string           `json:"change_text"`
	Color         present.Color    `json:"color"`
	InWatchlist   bool             `json:"in_watchlist"`
	Metrics       present.Table    `json:"metrics"`
	Company       present.Company  `json:"company"`
	Chart         present.Chart    `json:"chart"`
	History       present.Table    `json:"history"`
	HistoryColors [][]string       `json:"history_colors"`
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	symbol, period, ok := s.stockParams(w, r)
	if !ok {
		return
	}
	kind, err := present.ParseChartKind(r.URL.Query().Get("chart"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st := s.sessions.FromRequest(w, r)
	st.Select(symbol, period, string(kind))

	res := s.market.FetchProfileAndHistory(r.Context(), symbol, period)
	if !res.Ok() {
		writeError(w, resultStatus(res), res.Reason)
		return
	}

	p, h := res.Value.Profile, res.Value.History
	hist := present.HistoryTable(h)
	writeData(w, http.StatusOK, stockView{
		Symbol:        symbol,
		Period:        period,
		PeriodLabel:   period.Label(),
		Profile:       p,
		Change:        present.Round2(p.Change()),
		PercentChange: present.Round2(p.PercentChange()),
		ChangeText:    present.FormatSignedChange(p.Change(), p.PercentChange()),
		Color:         present.ChangeColor(p.Change()),
		InWatchlist:   st.Watchlist.Contains(symbol),
		Metrics:       present.KeyMetrics(p),
		Company:       present.CompanyInfo(p),
		Chart:         present.BuildChart(p.Name, h, kind),
		History:       hist,
		HistoryColors: hist.CellColors(),
	})
}

func (s *Server) handleHistoryExport(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol, period, ok := s.stockParams(w, r)
		if !ok {
			return
		}
		res := s.market.FetchProfileAndHistory(r.Context(), symbol, period)
		if !res.Ok() {
			writeError(w, resultStatus(res), res.Reason)
			return
		}

		t := present.HistoryTable(res.Value.History)
		var buf bytes.Buffer
		var contentType string
		switch format {
		case formatXLSX:
			contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
			if err := present.WriteXLSX(&buf, t, symbol); err != nil {
				s.exportFailed(w, symbol, err)
				return
			}
		default:
			contentType = "text/csv; charset=utf-8"
			if err := present.WriteCSV(&buf, t, false); err != nil {
				s.exportFailed(w, symbol, err)
				return
			}
		}
		sendFile(w, contentType, fmt.Sprintf("%s_%s_history.%s", symbol, period, format), buf.Bytes())
	}
}

func (s *Server) handleMetricsExport(w http.ResponseWriter, r *http.Request) {
	symbol, period, ok := s.stockParams(w, r)
	if !ok {
		return
	}
	res := s.market.FetchProfileAndHistory(r.Context(), symbol, period)
	if !res.Ok() {
		writeError(w, resultStatus(res), res.Reason)
		return
	}
	var buf bytes.Buffer
	if err := present.WriteCSV(&buf, present.KeyMetrics(res.Value.Profile), false); err != nil {
		s.exportFailed(w, symbol, err)
		return
	}
	sendFile(w, "text/csv; charset=utf-8", symbol+"_metrics.csv", buf.Bytes())
}

type newsView struct {
	Symbol  string             `json:"symbol"`
	Company []present.NewsCard `json:"company"`
	Market  []present.NewsCard `json:"market"`
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	symbol := normalizeSymbol(chi.URLParam(r, "symbol"))
	if err := checkSymbol(symbol); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n := s.cfg.NewsCount
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxNews {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("n must be between 1 and %d", maxNews))
			return
		}
		n = v
	}
	feed := s.market.News(r.Context(), symbol, n)
	writeData(w, http.StatusOK, newsView{
		Symbol:  symbol,
		Company: present.NewsCards(feed.Company),
		Market:  present.NewsCards(feed.Market),
	})
}

type watchlistView struct {
	Symbols []string           `json:"symbols"`
	Rows    []provider.Profile `json:"rows"`
	Table   present.Table      `json:"table"`
	Colors  [][]string         `json:"colors"`
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.FromRequest(w, r)
	symbols := st.Watchlist.List()
	rows := s.market.FetchBatch(r.Context(), symbols)
	if rows == nil {
		rows = []provider.Profile{}
	}
	t := present.WatchlistTable(rows)
	writeData(w, http.StatusOK, watchlistView{Symbols: symbols, Rows: rows, Table: t, Colors: t.CellColors()})
}

type watchlistChange struct {
	Symbol    string   `json:"symbol"`
	Changed   bool     `json:"changed"`
	Watchlist []string `json:"watchlist"`
}

func (s *Server) handleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	req, err := decodeWatchlistRequest(r.Body)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, err.Error())
		return
	}
	st := s.sessions.FromRequest(w, r)
	added := st.Watchlist.Add(req.Symbol)
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeData(w, status, watchlistChange{Symbol: req.Symbol, Changed: added, Watchlist: st.Watchlist.List()})
}

func (s *Server) handleRemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := normalizeSymbol(chi.URLParam(r, "symbol"))
	if err := checkSymbol(symbol); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st := s.sessions.FromRequest(w, r)
	if !st.Watchlist.Remove(symbol) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s is not in the watchlist", symbol))
		return
	}
	writeData(w, http.StatusOK, watchlistChange{Symbol: symbol, Changed: true, Watchlist: st.Watchlist.List()})
}

type pennyView struct {
	Stocks   []market.PennyStock     `json:"stocks"`
	Table    present.Table           `json:"table"`
	BySector []aggregate.SectorGroup `json:"by_sector"`
	Gainers  []market.PennyStock     `json:"gainers"`
	Losers   []market.PennyStock     `json:"losers"`
}

func (s *Server) handlePennyStocks(w http.ResponseWriter, r *http.Request) {
	stocks := s.market.PennyStocks(r.Context())
	switch r.URL.Query().Get("sort") {
	case "", "price":
		stocks = aggregate.SortByPrice(stocks)
	case "name":
		stocks = aggregate.SortByName(stocks)
	default:
		writeError(w, http.StatusBadRequest, "sort must be price or name")
		return
	}
	gainers, losers := aggregate.Movers(stocks)
	writeData(w, http.StatusOK, pennyView{
		Stocks:   stocks,
		Table:    present.PennyTable(stocks),
		BySector: aggregate.BySector(stocks),
		Gainers:  gainers,
		Losers:   losers,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.FromRequest(w, r)
	writeData(w, http.StatusOK, st.View())
}

// stockParams reads the symbol path parameter and the period query
// parameter, writing a 400 on bad input.
func (s *Server) stockParams(w http.ResponseWriter, r *http.Request) (string, provider.Period, bool) {
	symbol := normalizeSymbol(chi.URLParam(r, "symbol"))
	if err := checkSymbol(symbol); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", "", false
	}
	period, err := provider.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", "", false
	}
	return symbol, period, true
}

func (s *Server) exportFailed(w http.ResponseWriter, symbol string, err error) {
	s.log.Error("export failed", zap.String("symbol", symbol), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "export failed")
}

func sendFile(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
