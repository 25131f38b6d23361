package ratelimit

import (
	"context"

	"stockdash/internal/provider"
)

// Provider wraps a provider.Provider and gates every upstream call through L.
type Provider struct {
	P provider.Provider
	L Limiter
}

// Wrap returns p gated by l. A nil limiter returns p unchanged.
func Wrap(p provider.Provider, l Limiter) provider.Provider {
	if l == nil {
		return p
	}
	return &Provider{P: p, L: l}
}

func (r *Provider) Name() string { return r.P.Name() }

func (r *Provider) Profile(ctx context.Context, symbol string) (provider.Profile, error) {
	if err := r.L.Wait(ctx); err != nil {
		return provider.Profile{}, err
	}
	return r.P.Profile(ctx, symbol)
}

func (r *Provider) History(ctx context.Context, symbol string, period provider.Period) (provider.History, error) {
	if err := r.L.Wait(ctx); err != nil {
		return provider.History{}, err
	}
	return r.P.History(ctx, symbol, period)
}

func (r *Provider) Search(ctx context.Context, query string) ([]provider.SearchResult, error) {
	if err := r.L.Wait(ctx); err != nil {
		return nil, err
	}
	return r.P.Search(ctx, query)
}

func (r *Provider) News(ctx context.Context, symbol string, limit int) ([]provider.NewsItem, error) {
	if err := r.L.Wait(ctx); err != nil {
		return nil, err
	}
	return r.P.News(ctx, symbol, limit)
}
