package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockdash/internal/provider"
)

const searchQuotesCount = 20

// Search returns the raw symbol suggestions for query in upstream order.
// Kind filtering is left to the caller.
func (c *Client) Search(ctx context.Context, query string) ([]provider.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("quotesCount", strconv.Itoa(searchQuotesCount))
	q.Set("newsCount", "0")

	var body searchResponse
	if err := c.getJSON(ctx, "search", "/v1/finance/search", q, &body); err != nil {
		return nil, fmt.Errorf("yahoo search %q: %w", query, err)
	}

	out := make([]provider.SearchResult, 0, len(body.Quotes))
	for _, r := range body.Quotes {
		if r.Symbol == "" {
			continue
		}
		out = append(out, provider.SearchResult{
			Symbol:   r.Symbol,
			Name:     r.ShortName,
			Exchange: r.Exchange,
			Kind:     r.QuoteType,
		})
	}
	return out, nil
}

// News returns up to limit headlines mentioning symbol.
func (c *Client) News(ctx context.Context, symbol string, limit int) ([]provider.NewsItem, error) {
	if limit <= 0 {
		limit = 5
	}
	q := url.Values{}
	q.Set("q", symbol)
	q.Set("quotesCount", "0")
	q.Set("newsCount", strconv.Itoa(limit))

	var body searchResponse
	if err := c.getJSON(ctx, "news", "/v1/finance/search", q, &body); err != nil {
		return nil, fmt.Errorf("yahoo news %s: %w", symbol, err)
	}

	out := make([]provider.NewsItem, 0, len(body.News))
	for _, n := range body.News {
		item := provider.NewsItem{
			Title:     coalesce(n.Title, "No title available"),
			Summary:   n.Summary,
			Link:      n.Link,
			Publisher: coalesce(n.Publisher, "Unknown Source"),
		}
		if n.ProviderPublishTime > 0 {
			item.PublishedAt = time.Unix(n.ProviderPublishTime, 0).In(ist)
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
