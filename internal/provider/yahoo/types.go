package yahoo

// Response models for the Yahoo Finance endpoints. Every numeric field is a
// pointer: Yahoo omits or nulls fields freely.

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// chartResponse wraps the v8 chart API response.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Symbol               string   `json:"symbol"`
	Currency             string   `json:"currency"`
	ExchangeName         string   `json:"exchangeName"`
	FullExchangeName     string   `json:"fullExchangeName"`
	InstrumentType       string   `json:"instrumentType"`
	LongName             string   `json:"longName"`
	ShortName            string   `json:"shortName"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose"`
	PreviousClose        *float64 `json:"previousClose"`
	RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
	RegularMarketVolume  *float64 `json:"regularMarketVolume"`
	FiftyTwoWeekHigh     *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      *float64 `json:"fiftyTwoWeekLow"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// quoteResponse wraps the v7 quote API response.
type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"quoteResponse"`
}

type quoteResult struct {
	Symbol                      string   `json:"symbol"`
	ShortName                   string   `json:"shortName"`
	LongName                    string   `json:"longName"`
	QuoteType                   string   `json:"quoteType"`
	Exchange                    string   `json:"exchange"`
	FullExchangeName            string   `json:"fullExchangeName"`
	Currency                    string   `json:"currency"`
	RegularMarketPrice          *float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose  *float64 `json:"regularMarketPreviousClose"`
	RegularMarketOpen           *float64 `json:"regularMarketOpen"`
	RegularMarketDayHigh        *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow         *float64 `json:"regularMarketDayLow"`
	RegularMarketVolume         *float64 `json:"regularMarketVolume"`
	MarketCap                   *float64 `json:"marketCap"`
	TrailingPE                  *float64 `json:"trailingPE"`
	TrailingAnnualDividendYield *float64 `json:"trailingAnnualDividendYield"`
	FiftyTwoWeekHigh            *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow             *float64 `json:"fiftyTwoWeekLow"`
	EpsTrailingTwelveMonths     *float64 `json:"epsTrailingTwelveMonths"`
	Beta                        *float64 `json:"beta"`
}

// quoteSummaryResponse wraps the v10 quoteSummary API response.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *apiError            `json:"error"`
	} `json:"quoteSummary"`
}

type quoteSummaryResult struct {
	AssetProfile *assetProfile `json:"assetProfile"`
}

type assetProfile struct {
	Sector              string   `json:"sector"`
	Industry            string   `json:"industry"`
	LongBusinessSummary string   `json:"longBusinessSummary"`
	FullTimeEmployees   *float64 `json:"fullTimeEmployees"`
	Country             string   `json:"country"`
	Website             string   `json:"website"`
}

// searchResponse wraps the v1 search API response (quotes and news).
type searchResponse struct {
	Quotes []searchQuote `json:"quotes"`
	News   []searchNews  `json:"news"`
}

type searchQuote struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortname"`
	LongName  string `json:"longname"`
	QuoteType string `json:"quoteType"`
	Exchange  string `json:"exchange"`
}

type searchNews struct {
	UUID                string `json:"uuid"`
	Title               string `json:"title"`
	Summary             string `json:"summary"`
	Publisher           string `json:"publisher"`
	Link                string `json:"link"`
	ProviderPublishTime int64  `json:"providerPublishTime"`
}
