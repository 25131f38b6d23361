package market

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stockdash/internal/cache"
	"stockdash/internal/metrics"
	"stockdash/internal/provider"
)

// Service is the quote fetcher: every read goes through the shared cache.
type Service struct {
	p           provider.Provider
	feeds       provider.NewsSource
	cache       *cache.Cache
	ttl         cache.TTLs
	concurrency int
	pennies     []PennyPick
	fallback    []PennyPick
	log         *zap.Logger
}

type Option func(*Service)

// WithTTLs overrides the per-class TTLs.
func WithTTLs(t cache.TTLs) Option { return func(s *Service) { s.ttl = t } }

// WithConcurrency bounds per-symbol fan-out in batch operations.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMarketFeeds sets the last-resort market news source.
func WithMarketFeeds(src provider.NewsSource) Option { return func(s *Service) { s.feeds = src } }

// WithPennyPicks replaces the curated penny list and its fallback.
func WithPennyPicks(picks, fallback []PennyPick) Option {
	return func(s *Service) {
		s.pennies = picks
		s.fallback = fallback
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func New(p provider.Provider, c *cache.Cache, opts ...Option) *Service {
	s := &Service{
		p:           p,
		cache:       c,
		ttl:         cache.DefaultTTLs(),
		concurrency: 4,
		log:         zap.NewNop(),
	}
	s.pennies, s.fallback = defaultPennyPicks()
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snapshot is a profile with its price history.
type Snapshot struct {
	Profile provider.Profile `json:"profile"`
	History provider.History `json:"history"`
}

// FetchProfileAndHistory loads the profile and period history of symbol.
// An empty history yields StatusEmpty; any other error yields StatusFailed.
// Neither outcome is cached.
func (s *Service) FetchProfileAndHistory(ctx context.Context, symbol string, period provider.Period) Result[Snapshot] {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !slices.Contains(provider.Periods(), period) {
		err := fmt.Errorf("%w: %q", provider.ErrInvalidPeriod, period)
		return s.record("profile_history", Failed[Snapshot](err.Error(), err))
	}

	snap, err := cache.Fetch(ctx, s.cache, cache.Key("profile_history", symbol, period), s.ttl.Profile,
		func(ctx context.Context) (Snapshot, error) {
			var snap Snapshot
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				p, err := s.p.Profile(gctx, symbol)
				snap.Profile = p
				return err
			})
			g.Go(func() error {
				h, err := s.p.History(gctx, symbol, period)
				snap.History = h
				return err
			})
			if err := g.Wait(); err != nil {
				return Snapshot{}, err
			}
			if snap.History.Empty() {
				return Snapshot{}, provider.ErrEmptyHistory
			}
			return snap, nil
		})

	switch {
	case err == nil:
		return s.record("profile_history", OK(snap))
	case errors.Is(err, provider.ErrEmptyHistory):
		s.log.Info("empty history", zap.String("symbol", symbol), zap.String("period", string(period)))
		return s.record("profile_history", Empty[Snapshot](fmt.Sprintf("No historical data available for %s", symbol)))
	default:
		s.log.Warn("fetch failed", zap.String("symbol", symbol), zap.String("period", string(period)), zap.Error(err))
		return s.record("profile_history", Failed[Snapshot](fmt.Sprintf("Error fetching data for %s: %v", symbol, err), err))
	}
}

// FetchBatch returns one profile per symbol that could be fetched, in input
// order. The price is the last close of the 1-day history; a missing previous
// close falls back to that price. When every member fails nothing is cached.
func (s *Service) FetchBatch(ctx context.Context, symbols []string) []provider.Profile {
	if len(symbols) == 0 {
		return nil
	}
	key := cache.Key("batch", strings.Join(symbols, ","))
	out, err := cache.Fetch(ctx, s.cache, key, s.ttl.Batch, func(ctx context.Context) ([]provider.Profile, error) {
		rows := make([]*provider.Profile, len(symbols))
		errs := make([]error, len(symbols))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for i, sym := range symbols {
			g.Go(func() error {
				p, err := s.batchRow(gctx, sym)
				if err != nil {
					s.log.Warn("batch member dropped", zap.String("symbol", sym), zap.Error(err))
					errs[i] = fmt.Errorf("%s: %w", sym, err)
					return nil
				}
				rows[i] = &p
				return nil
			})
		}
		_ = g.Wait()

		out := make([]provider.Profile, 0, len(rows))
		for _, r := range rows {
			if r != nil {
				out = append(out, *r)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("batch: every symbol failed: %w", errors.Join(errs...))
		}
		return out, nil
	})
	if err != nil {
		s.log.Warn("batch unavailable", zap.Int("symbols", len(symbols)), zap.Error(err))
		return nil
	}
	return out
}

func (s *Service) batchRow(ctx context.Context, symbol string) (provider.Profile, error) {
	h, err := s.p.History(ctx, symbol, provider.Period1D)
	if err != nil {
		return provider.Profile{}, err
	}
	if h.Empty() {
		return provider.Profile{}, provider.ErrEmptyHistory
	}
	p, err := s.p.Profile(ctx, symbol)
	if err != nil {
		return provider.Profile{}, err
	}
	p.Price = h.Last().Close
	if p.PreviousClose == 0 {
		p.PreviousClose = p.Price
	}
	return p, nil
}

func (s *Service) record(op string, r Result[Snapshot]) Result[Snapshot] {
	metrics.FetchResults.WithLabelValues(op, r.Status.String()).Inc()
	return r
}
