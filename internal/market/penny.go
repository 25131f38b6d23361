package market

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"stockdash/internal/cache"
	"stockdash/internal/provider"
)

// PennyPick is a curated low-priced stock.
type PennyPick struct {
	Symbol      string `yaml:"symbol" json:"symbol"`
	Name        string `yaml:"name" json:"name"`
	Sector      string `yaml:"sector" json:"sector"`
	Description string `yaml:"description" json:"description"`
}

// PennyStock is a pick with its latest price and 30-day change.
type PennyStock struct {
	PennyPick
	Price     float64 `json:"price"`
	Change30D float64 `json:"pct_change_30d"`
}

//go:embed pennies.yaml
var penniesYAML []byte

func defaultPennyPicks() (picks, fallback []PennyPick) {
	var doc struct {
		Picks    []PennyPick `yaml:"picks"`
		Fallback []PennyPick `yaml:"fallback"`
	}
	if err := yaml.Unmarshal(penniesYAML, &doc); err != nil {
		panic(fmt.Sprintf("market: bad embedded pennies.yaml: %v", err))
	}
	return doc.Picks, doc.Fallback
}

// PennyStocks prices the curated picks from their one-month history, sorted
// by price. When no pick can be priced the fallback list is used instead.
func (s *Service) PennyStocks(ctx context.Context) []PennyStock {
	out, err := cache.Fetch(ctx, s.cache, cache.Key("penny"), s.ttl.Penny, func(ctx context.Context) ([]PennyStock, error) {
		stocks := s.pricePicks(ctx, s.pennies)
		if len(stocks) == 0 {
			s.log.Warn("no penny stock could be priced, using fallback")
			stocks = s.pricePicks(ctx, s.fallback)
		}
		if len(stocks) == 0 {
			return nil, provider.ErrEmptyHistory
		}
		sort.SliceStable(stocks, func(i, j int) bool { return stocks[i].Price < stocks[j].Price })
		return stocks, nil
	})
	if err != nil {
		return nil
	}
	return out
}

func (s *Service) pricePicks(ctx context.Context, picks []PennyPick) []PennyStock {
	rows := make([]*PennyStock, len(picks))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, pick := range picks {
		g.Go(func() error {
			h, err := s.p.History(ctx, pick.Symbol, provider.Period1M)
			if err != nil || h.Empty() {
				s.log.Debug("penny pick skipped", zap.String("symbol", pick.Symbol), zap.Error(err))
				return nil
			}
			last := h.Last().Close
			if last <= 0 {
				return nil
			}
			first := h.Bars[0].Close
			change := 0.0
			if first > 0 {
				change = (last - first) / first * 100
			}
			rows[i] = &PennyStock{PennyPick: pick, Price: last, Change30D: change}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]PennyStock, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
