package market

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"stockdash/internal/cache"
	"stockdash/internal/provider"
)

// MarketNewsSymbol is queried for general market headlines.
const MarketNewsSymbol = "^NSEI"

// NewsFeed is the news panel for one symbol. Market is filled only when the
// company has fewer than two headlines.
type NewsFeed struct {
	Symbol  string              `json:"symbol"`
	Company []provider.NewsItem `json:"company"`
	Market  []provider.NewsItem `json:"market"`
}

// News returns up to n company headlines and, when there are fewer than two,
// up to n market headlines from the provider or, failing that, the RSS feeds.
// Errors degrade to empty lists.
func (s *Service) News(ctx context.Context, symbol string, n int) NewsFeed {
	if n <= 0 {
		n = 3
	}
	feed, err := cache.Fetch(ctx, s.cache, cache.Key("news", symbol, n), s.ttl.News, func(ctx context.Context) (NewsFeed, error) {
		return s.loadNews(ctx, symbol, n)
	})
	if err != nil {
		s.log.Warn("news unavailable", zap.String("symbol", symbol), zap.Error(err))
		return NewsFeed{Symbol: symbol}
	}
	return feed
}

// loadNews errors only when every source failed, so a total outage is not
// cached as an empty feed.
func (s *Service) loadNews(ctx context.Context, symbol string, n int) (NewsFeed, error) {
	feed := NewsFeed{Symbol: symbol}
	company, cerr := s.p.News(ctx, symbol, n)
	if cerr != nil {
		s.log.Debug("company news failed", zap.String("symbol", symbol), zap.Error(cerr))
	}
	feed.Company = company
	if len(company) >= 2 {
		return feed, nil
	}

	market, merr := s.p.News(ctx, MarketNewsSymbol, n)
	if merr != nil {
		s.log.Debug("market news failed", zap.Error(merr))
	}
	if len(market) == 0 && s.feeds != nil {
		var ferr error
		market, ferr = s.feeds.News(ctx, symbol, n)
		if ferr != nil {
			merr = errors.Join(merr, ferr)
		}
	}
	feed.Market = market
	if cerr != nil && merr != nil && len(company) == 0 && len(market) == 0 {
		return NewsFeed{}, errors.Join(cerr, merr)
	}
	return feed, nil
}
