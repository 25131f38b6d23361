package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"stockdash/internal/provider"
)

// ist is the exchange timezone used for bar dates.
var ist = time.FixedZone("IST", 5*3600+30*60)

// History returns daily bars for symbol over period. A successful response
// without usable bars yields an empty History and no error.
func (c *Client) History(ctx context.Context, symbol string, period provider.Period) (provider.History, error) {
	res, err := c.chart(ctx, symbol, period)
	if err != nil {
		return provider.History{}, err
	}
	return provider.History{Symbol: symbol, Period: period, Bars: parseBars(res)}, nil
}

func (c *Client) chart(ctx context.Context, symbol string, period provider.Period) (chartResult, error) {
	if strings.TrimSpace(symbol) == "" {
		return chartResult{}, fmt.Errorf("yahoo chart: %w: empty symbol", provider.ErrNotFound)
	}
	query := url.Values{}
	query.Set("interval", "1d")
	query.Set("range", string(period))

	var body chartResponse
	if err := c.getJSON(ctx, "chart", "/v8/finance/chart/"+url.PathEscape(symbol), query, &body); err != nil {
		return chartResult{}, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if e := body.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return chartResult{}, fmt.Errorf("yahoo chart %s: %w: %s", symbol, provider.ErrNotFound, e.Description)
		}
		return chartResult{}, fmt.Errorf("yahoo chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(body.Chart.Result) == 0 {
		return chartResult{}, fmt.Errorf("yahoo chart %s: %w", symbol, provider.ErrNotFound)
	}
	return body.Chart.Result[0], nil
}

// parseBars converts chart arrays into bars, skipping rows with a null close.
func parseBars(res chartResult) []provider.Bar {
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	q := res.Indicators.Quote[0]
	bars := make([]provider.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		b := provider.Bar{Date: time.Unix(ts, 0).In(ist), Close: *q.Close[i]}
		b.Open = valueAt(q.Open, i, b.Close)
		b.High = valueAt(q.High, i, b.Close)
		b.Low = valueAt(q.Low, i, b.Close)
		if i < len(q.Volume) && q.Volume[i] != nil {
			b.Volume = *q.Volume[i]
		}
		bars = append(bars, b)
	}
	return bars
}

func valueAt(xs []*float64, i int, fallback float64) float64 {
	if i < len(xs) && xs[i] != nil {
		return *xs[i]
	}
	return fallback
}

// profileFromMeta builds a reduced profile from chart metadata. It is used
// when the quote endpoint refuses the request.
func profileFromMeta(symbol string, m chartMeta, bars []provider.Bar) provider.Profile {
	p := provider.Profile{
		Symbol:           symbol,
		Name:             coalesce(m.LongName, m.ShortName, symbol),
		Exchange:         coalesce(m.FullExchangeName, m.ExchangeName),
		QuoteType:        m.InstrumentType,
		Currency:         coalesce(m.Currency, "INR"),
		Country:          "India",
		DayHigh:          m.RegularMarketDayHigh,
		DayLow:           m.RegularMarketDayLow,
		Volume:           m.RegularMarketVolume,
		FiftyTwoWeekHigh: m.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  m.FiftyTwoWeekLow,
		FetchedAt:        time.Now(),
	}
	if m.RegularMarketPrice != nil {
		p.Price = *m.RegularMarketPrice
	} else if len(bars) > 0 {
		p.Price = bars[len(bars)-1].Close
	}
	switch {
	case m.PreviousClose != nil:
		p.PreviousClose = *m.PreviousClose
	case m.ChartPreviousClose != nil:
		p.PreviousClose = *m.ChartPreviousClose
	default:
		p.PreviousClose = p.Price
	}
	if len(bars) > 0 {
		open := bars[len(bars)-1].Open
		p.Open = &open
	}
	return p
}
