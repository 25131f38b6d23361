package market

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stockdash/internal/cache"
	"stockdash/internal/provider"
)

// IndexQuote is the headline figure for a market index.
type IndexQuote struct {
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percent_change"`
}

// DefaultIndices are shown on the dashboard header.
var DefaultIndices = []IndexQuote{
	{Name: "NIFTY 50", Symbol: "^NSEI"},
	{Name: "SENSEX", Symbol: "^BSESN"},
	{Name: "NIFTY BANK", Symbol: "^NSEBANK"},
	{Name: "NIFTY IT", Symbol: "NIFTYIT.NS"},
}

// Indices returns the header indices in display order. An index that cannot
// be fetched is reported with zero values.
func (s *Service) Indices(ctx context.Context) []IndexQuote {
	out := make([]IndexQuote, len(DefaultIndices))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, idx := range DefaultIndices {
		g.Go(func() error {
			q, err := cache.Fetch(ctx, s.cache, cache.Key("index", idx.Symbol), s.ttl.Index,
				func(ctx context.Context) (IndexQuote, error) {
					p, err := s.p.Profile(ctx, idx.Symbol)
					if err != nil {
						return IndexQuote{}, err
					}
					return IndexQuote{
						Name:          idx.Name,
						Symbol:        idx.Symbol,
						Price:         p.Price,
						Change:        p.Price - p.PreviousClose,
						PercentChange: provider.PercentChange(p.Price, p.PreviousClose),
					}, nil
				})
			if err != nil {
				s.log.Warn("index unavailable", zap.String("symbol", idx.Symbol), zap.Error(err))
				q = IndexQuote{Name: idx.Name, Symbol: idx.Symbol}
			}
			out[i] = q
			return nil
		})
	}
	_ = g.Wait()
	return out
}
