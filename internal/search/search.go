package search

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"stockdash/internal/aggregate"
	"stockdash/internal/cache"
	"stockdash/internal/provider"
)

// MaxResults caps every resolution.
const MaxResults = 6

// Kinds kept from remote results.
const (
	KindEquity = "EQUITY"
	KindETF    = "ETF"
)

// Searcher is the remote symbol lookup.
type Searcher interface {
	Search(ctx context.Context, query string) ([]provider.SearchResult, error)
}

//go:embed popular.yaml
var popularYAML []byte

// Popular returns the curated symbol table.
func Popular() []provider.SearchResult {
	var rows []struct {
		Symbol string `yaml:"symbol"`
		Name   string `yaml:"name"`
	}
	if err := yaml.Unmarshal(popularYAML, &rows); err != nil {
		panic(fmt.Sprintf("search: bad embedded popular.yaml: %v", err))
	}
	out := make([]provider.SearchResult, len(rows))
	for i, r := range rows {
		out[i] = provider.SearchResult{Symbol: r.Symbol, Name: r.Name, Exchange: "NSE", Kind: KindEquity}
	}
	return out
}

// Resolver turns free text into symbol suggestions: curated matches first,
// then remote ones.
type Resolver struct {
	remote  Searcher
	cache   *cache.Cache
	ttl     time.Duration
	curated []provider.SearchResult
	log     *zap.Logger
}

func NewResolver(remote Searcher, c *cache.Cache, ttl time.Duration, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{remote: remote, cache: c, ttl: ttl, curated: Popular(), log: log}
}

// Resolve returns at most MaxResults equity or ETF suggestions for query.
// Remote failures are logged and leave only the curated matches.
func (r *Resolver) Resolve(ctx context.Context, query string) []provider.SearchResult {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	local := MatchCurated(r.curated, q)

	var remote []provider.SearchResult
	if r.remote != nil {
		var err error
		remote, err = cache.Fetch(ctx, r.cache, cache.Key("search", strings.ToLower(q)), r.ttl,
			func(ctx context.Context) ([]provider.SearchResult, error) {
				return r.remote.Search(ctx, q)
			})
		if err != nil {
			r.log.Warn("remote search failed", zap.String("query", q), zap.Error(err))
			remote = nil
		}
	}
	return Merge(local, keepListed(remote), MaxResults)
}

// MatchCurated filters table by case-insensitive symbol prefix, name
// substring, or exact symbol.
func MatchCurated(table []provider.SearchResult, query string) []provider.SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []provider.SearchResult
	for _, s := range table {
		sym := strings.ToLower(s.Symbol)
		if strings.HasPrefix(sym, q) || strings.Contains(strings.ToLower(s.Name), q) || sym == q {
			out = append(out, s)
		}
	}
	return out
}

// keepListed drops incomplete remote entries and kinds other than equity/ETF,
// and normalizes exchange codes.
func keepListed(in []provider.SearchResult) []provider.SearchResult {
	out := in[:0:0]
	for _, s := range in {
		if s.Symbol == "" || s.Name == "" {
			continue
		}
		if s.Kind != KindEquity && s.Kind != KindETF {
			continue
		}
		s.Exchange = aggregate.NormalizeExchange(s.Exchange)
		if s.Exchange == "" {
			s.Exchange = aggregate.ExchangeFromSymbol(s.Symbol)
		}
		out = append(out, s)
	}
	return out
}

// Merge concatenates local and remote, dropping remote duplicates of local
// symbols, and truncates to limit.
func Merge(local, remote []provider.SearchResult, limit int) []provider.SearchResult {
	seen := make(map[string]struct{}, len(local)+len(remote))
	out := make([]provider.SearchResult, 0, min(limit, len(local)+len(remote)))
	for _, list := range [][]provider.SearchResult{local, remote} {
		for _, s := range list {
			if len(out) == limit {
				return out
			}
			key := strings.ToUpper(s.Symbol)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
