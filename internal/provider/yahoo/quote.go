package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockdash/internal/provider"
)

// Profile returns the company profile and latest quote for symbol. When the
// quote endpoint rejects the request as unauthorized the profile is rebuilt
// from chart metadata. Sector, industry, summary and headcount come from the
// assetProfile module and are left empty when it cannot be loaded.
func (c *Client) Profile(ctx context.Context, symbol string) (provider.Profile, error) {
	if strings.TrimSpace(symbol) == "" {
		return provider.Profile{}, fmt.Errorf("yahoo quote: %w: empty symbol", provider.ErrNotFound)
	}
	p, err := c.quote(ctx, symbol)
	if err != nil {
		return provider.Profile{}, err
	}
	if ap, err := c.companyProfile(ctx, symbol); err == nil {
		ap.applyTo(&p)
	}
	return p, nil
}

func (c *Client) quote(ctx context.Context, symbol string) (provider.Profile, error) {
	query := url.Values{}
	query.Set("symbols", symbol)

	var body quoteResponse
	err := c.getJSON(ctx, "quote", "/v7/finance/quote", query, &body)
	var se *StatusError
	if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
		return c.profileFromChart(ctx, symbol)
	}
	if err != nil {
		return provider.Profile{}, fmt.Errorf("yahoo quote %s: %w", symbol, err)
	}
	if e := body.QuoteResponse.Error; e != nil {
		return provider.Profile{}, fmt.Errorf("yahoo quote %s: %s: %s", symbol, e.Code, e.Description)
	}
	for _, r := range body.QuoteResponse.Result {
		if strings.EqualFold(r.Symbol, symbol) {
			return buildProfile(symbol, r), nil
		}
	}
	return provider.Profile{}, fmt.Errorf("yahoo quote %s: %w", symbol, provider.ErrNotFound)
}

// companyProfile loads the assetProfile module of symbol.
func (c *Client) companyProfile(ctx context.Context, symbol string) (assetProfile, error) {
	query := url.Values{}
	query.Set("modules", "assetProfile")

	var body quoteSummaryResponse
	if err := c.getJSON(ctx, "quote_summary", "/v10/finance/quoteSummary/"+url.PathEscape(symbol), query, &body); err != nil {
		return assetProfile{}, fmt.Errorf("yahoo quoteSummary %s: %w", symbol, err)
	}
	if e := body.QuoteSummary.Error; e != nil {
		return assetProfile{}, fmt.Errorf("yahoo quoteSummary %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(body.QuoteSummary.Result) == 0 || body.QuoteSummary.Result[0].AssetProfile == nil {
		return assetProfile{}, fmt.Errorf("yahoo quoteSummary %s: %w", symbol, provider.ErrNotFound)
	}
	return *body.QuoteSummary.Result[0].AssetProfile, nil
}

func (a assetProfile) applyTo(p *provider.Profile) {
	p.Sector = a.Sector
	p.Industry = a.Industry
	p.Summary = a.LongBusinessSummary
	p.Employees = a.FullTimeEmployees
	p.Website = a.Website
	if a.Country != "" {
		p.Country = a.Country
	}
}

func (c *Client) profileFromChart(ctx context.Context, symbol string) (provider.Profile, error) {
	res, err := c.chart(ctx, symbol, "5d")
	if err != nil {
		return provider.Profile{}, err
	}
	return profileFromMeta(symbol, res.Meta, parseBars(res)), nil
}

func buildProfile(symbol string, r quoteResult) provider.Profile {
	p := provider.Profile{
		Symbol:           symbol,
		Name:             coalesce(r.LongName, r.ShortName, symbol),
		Exchange:         coalesce(r.FullExchangeName, r.Exchange),
		QuoteType:        r.QuoteType,
		Currency:         coalesce(r.Currency, "INR"),
		Country:          "India",
		Open:             r.RegularMarketOpen,
		DayHigh:          r.RegularMarketDayHigh,
		DayLow:           r.RegularMarketDayLow,
		Volume:           r.RegularMarketVolume,
		MarketCap:        r.MarketCap,
		TrailingPE:       r.TrailingPE,
		DividendYield:    r.TrailingAnnualDividendYield,
		FiftyTwoWeekHigh: r.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  r.FiftyTwoWeekLow,
		EPS:              r.EpsTrailingTwelveMonths,
		Beta:             r.Beta,
		FetchedAt:        time.Now(),
	}
	if r.RegularMarketPrice != nil {
		p.Price = *r.RegularMarketPrice
	}
	if r.RegularMarketPreviousClose != nil {
		p.PreviousClose = *r.RegularMarketPreviousClose
	}
	return p
}
