package present

import (
	"fmt"
	"strings"
	"time"

	"stockdash/internal/provider"
)

// ChartKind selects the price trace.
type ChartKind string

const (
	ChartLine        ChartKind = "line"
	ChartCandlestick ChartKind = "candlestick"
)

func ParseChartKind(s string) (ChartKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "line":
		return ChartLine, nil
	case "candle", "candlestick":
		return ChartCandlestick, nil
	}
	return "", fmt.Errorf("unknown chart kind %q", s)
}

// SMA is the rolling simple moving average of values. Entries before the
// window is full are nil.
func SMA(values []float64, window int) []*float64 {
	out := make([]*float64, len(values))
	if window <= 0 {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			avg := sum / float64(window)
			out[i] = &avg
		}
	}
	return out
}

// OHLC is one candlestick.
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Series is one chart trace. Line and bar traces use Values; candlestick
// traces use Candles.
type Series struct {
	Name    string     `json:"name"`
	Type    string     `json:"type"`
	Axis    string     `json:"axis"`
	Color   string     `json:"color,omitempty"`
	Dash    string     `json:"dash,omitempty"`
	Values  []*float64 `json:"values,omitempty"`
	Candles []OHLC     `json:"candles,omitempty"`
	Colors  []string   `json:"colors,omitempty"`
}

// Chart is a render-ready price chart with a secondary volume axis.
type Chart struct {
	Title       string      `json:"title"`
	Kind        ChartKind   `json:"kind"`
	Dates       []time.Time `json:"dates"`
	YAxisTitle  string      `json:"y_axis_title"`
	Y2AxisTitle string      `json:"y2_axis_title"`
	Series      []Series    `json:"series"`
}

// BuildChart lays out close plus 5- and 20-day averages (line) or OHLC
// candles, and always a volume bar series colored by close >= open.
func BuildChart(name string, h provider.History, kind ChartKind) Chart {
	c := Chart{
		Title:       fmt.Sprintf("%s (%s) • %s", name, h.Symbol, h.Period.Label()),
		Kind:        kind,
		Dates:       make([]time.Time, len(h.Bars)),
		YAxisTitle:  "Price (₹ INR)",
		Y2AxisTitle: "Volume",
	}
	for i, b := range h.Bars {
		c.Dates[i] = b.Date
	}

	if kind == ChartCandlestick {
		candles := make([]OHLC, len(h.Bars))
		for i, b := range h.Bars {
			candles[i] = OHLC{Open: b.Open, High: b.High, Low: b.Low, Close: b.Close}
		}
		c.Series = append(c.Series, Series{Name: "Price", Type: "candlestick", Axis: "y", Candles: candles})
	} else {
		closes := h.Closes()
		c.Series = append(c.Series,
			Series{Name: "Close Price", Type: "line", Axis: "y", Color: "#FF6B6B", Values: ptrs(closes)},
			Series{Name: "5-Day MA", Type: "line", Axis: "y", Color: "#4ECDC4", Dash: "dot", Values: SMA(closes, 5)},
			Series{Name: "20-Day MA", Type: "line", Axis: "y", Color: "#FFE66D", Dash: "dash", Values: SMA(closes, 20)},
		)
	}

	vols := make([]*float64, len(h.Bars))
	colors := make([]string, len(h.Bars))
	for i, b := range h.Bars {
		v := float64(b.Volume)
		vols[i] = &v
		colors[i] = ColorNegative
		if b.Close >= b.Open {
			colors[i] = ColorPositive
		}
	}
	c.Series = append(c.Series, Series{Name: "Volume", Type: "bar", Axis: "y2", Values: vols, Colors: colors})
	return c
}

func ptrs(xs []float64) []*float64 {
	out := make([]*float64, len(xs))
	for i := range xs {
		out[i] = &xs[i]
	}
	return out
}
