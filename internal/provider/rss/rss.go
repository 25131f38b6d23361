package rss

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stockdash/internal/provider"
)

// Feed is one RSS endpoint.
type Feed struct {
	Name string `mapstructure:"name" json:"name" validate:"required"`
	URL  string `mapstructure:"url" json:"url" validate:"required,url"`
}

// DefaultFeeds are the Indian market news feeds.
var DefaultFeeds = []Feed{
	{Name: "Moneycontrol", URL: "https://www.moneycontrol.com/rss/marketreports.xml"},
	{Name: "Economic Times", URL: "https://economictimes.indiatimes.com/markets/rssfeeds/1977021501.cms"},
	{Name: "LiveMint", URL: "https://www.livemint.com/rss/markets"},
	{Name: "Business Standard", URL: "https://www.business-standard.com/rss/markets-106.rss"},
}

// Source reads market headlines from a fixed set of RSS feeds. The symbol
// argument of News is ignored: the feeds are market-wide.
type Source struct {
	feeds     []Feed
	client    *http.Client
	userAgent string
	log       *zap.Logger
}

// New returns a Source over feeds. A nil client uses http.DefaultClient.
func New(feeds []Feed, client *http.Client, userAgent string, log *zap.Logger) *Source {
	if log == nil {
		log = zap.NewNop()
	}
	return &Source{feeds: feeds, client: client, userAgent: userAgent, log: log}
}

func (s *Source) Name() string { return "Indian market RSS" }

// News fetches all feeds concurrently, merges them newest first and returns
// at most limit items. Failing feeds are skipped; an error is returned only
// when every feed fails.
func (s *Source) News(ctx context.Context, _ string, limit int) ([]provider.NewsItem, error) {
	results := make([][]provider.NewsItem, len(s.feeds))
	errs := make([]error, len(s.feeds))
	var g errgroup.Group
	for i, f := range s.feeds {
		g.Go(func() error {
			got, err := s.fetch(ctx, f)
			if err != nil {
				s.log.Warn("rss feed failed", zap.String("feed", f.Name), zap.Error(err))
				errs[i] = err
				return nil
			}
			results[i] = got
			return nil
		})
	}
	_ = g.Wait()

	var (
		items  []provider.NewsItem
		failed int
	)
	for i := range s.feeds {
		if errs[i] != nil {
			failed++
			continue
		}
		items = append(items, results[i]...)
	}
	if failed > 0 && failed == len(s.feeds) {
		return nil, errors.Join(errs...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Source) fetch(ctx context.Context, f Feed) ([]provider.NewsItem, error) {
	// gofeed parsers keep per-parse state, so each feed gets its own.
	p := gofeed.NewParser()
	p.Client = s.client
	if s.userAgent != "" {
		p.UserAgent = s.userAgent
	}
	feed, err := p.ParseURLWithContext(f.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", f.Name, err)
	}
	out := make([]provider.NewsItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil || strings.TrimSpace(it.Title) == "" {
			continue
		}
		n := provider.NewsItem{
			Title:     strings.TrimSpace(it.Title),
			Summary:   cleanHTML(it.Description),
			Link:      it.Link,
			Publisher: f.Name,
		}
		if it.PublishedParsed != nil {
			n.PublishedAt = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			n.PublishedAt = *it.UpdatedParsed
		}
		out = append(out, n)
	}
	return out, nil
}

// cleanHTML strips markup from an item description.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
