package yahoo_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stockdash/internal/provider"
	"stockdash/internal/provider/yahoo"
)

const assetProfileBody = `{"quoteSummary":{"result":[{"assetProfile":{
	"sector":"Energy","industry":"Oil & Gas Refining & Marketing","country":"India",
	"website":"https://www.ril.com","fullTimeEmployees":347362,
	"longBusinessSummary":"Reliance Industries Limited engages in hydrocarbon exploration."
}}],"error":null}}`

func TestProfile(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method for the quote and quoteSummary endpoints
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			if req.URL.Path == "/v10/finance/quoteSummary/RELIANCE.NS" {
				require.Equal(t, "assetProfile", req.URL.Query().Get("modules"))
				return jsonResponse(http.StatusOK, assetProfileBody), nil
			}
			require.Equal(t, "/v7/finance/quote", req.URL.Path)
			require.Equal(t, "RELIANCE.NS", req.URL.Query().Get("symbols"))
			return jsonResponse(http.StatusOK, `{"quoteResponse":{"result":[{
				"symbol":"RELIANCE.NS","shortName":"RELIANCE INDS","longName":"Reliance Industries Limited",
				"quoteType":"EQUITY","exchange":"NSI","fullExchangeName":"NSE","currency":"INR",
				"regularMarketPrice":2900.5,"regularMarketPreviousClose":2850,
				"marketCap":19600000000000,"trailingPE":28.4,"trailingAnnualDividendYield":0.0034
			}],"error":null}}`), nil
		}).
		Times(2)

	// Arrange: setup a new client
	client := yahoo.NewClient(yahoo.WithHTTPClient(httpClient))

	// Act: call Profile
	p, err := client.Profile(t.Context(), "RELIANCE.NS")
	require.NoError(t, err)

	// Assert: fields are mapped and absent ones stay nil.
	require.Equal(t, "Reliance Industries Limited", p.Name)
	require.Equal(t, "NSE", p.Exchange)
	require.Equal(t, "EQUITY", p.QuoteType)
	require.InDelta(t, 2900.5, p.Price, 1e-9)
	require.InDelta(t, 2850.0, p.PreviousClose, 1e-9)
	require.NotNil(t, p.MarketCap)
	require.InDelta(t, 19.6e12, *p.MarketCap, 1)
	require.NotNil(t, p.DividendYield)
	require.Nil(t, p.Beta)
	require.Nil(t, p.EPS)
	require.Equal(t, "India", p.Country)

	// Assert: company details come from the asset profile.
	require.Equal(t, "Energy", p.Sector)
	require.Equal(t, "Oil & Gas Refining & Marketing", p.Industry)
	require.Equal(t, "https://www.ril.com", p.Website)
	require.Contains(t, p.Summary, "hydrocarbon exploration")
	require.NotNil(t, p.Employees)
	require.InDelta(t, 347362.0, *p.Employees, 1e-9)
}

func TestProfile_DefaultsMissingFields(t *testing.T) {
	t.Parallel()

	// Arrange: the asset profile is unavailable
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	gomock.InOrder(
		httpClient.EXPECT().
			Do(gomock.Any()).
			Return(jsonResponse(http.StatusOK, `{"quoteResponse":{"result":[{"symbol":"ABC.NS"}],"error":null}}`), nil),
		httpClient.EXPECT().
			Do(gomock.Any()).
			Return(jsonResponse(http.StatusNotFound, `{"quoteSummary":{"result":null,"error":{"code":"Not Found"}}}`), nil),
	)

	client := yahoo.NewClient(yahoo.WithHTTPClient(httpClient))

	// Act
	p, err := client.Profile(t.Context(), "ABC.NS")
	require.NoError(t, err)

	// Assert: name falls back to the symbol, price to zero, currency to INR,
	// and company details stay empty.
	require.Equal(t, "ABC.NS", p.Name)
	require.Zero(t, p.Price)
	require.Equal(t, "INR", p.Currency)
	require.Empty(t, p.Sector)
	require.Empty(t, p.Summary)
	require.Nil(t, p.Employees)
}

func TestProfile_NotFound(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, `{"quoteResponse":{"result":[],"error":null}}`), nil).
		Times(1)

	client := yahoo.NewClient(yahoo.WithHTTPClient(httpClient))

	_, err := client.Profile(t.Context(), "NOPE.NS")
	require.ErrorIs(t, err, provider.ErrNotFound)
}

func TestProfile_FallsBackToChartWhenUnauthorized(t *testing.T) {
	t.Parallel()

	// Arrange: the quote endpoint answers 401, the chart endpoint succeeds.
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			switch req.URL.Path {
			case "/v7/finance/quote":
				return jsonResponse(http.StatusUnauthorized, `{"finance":{"error":{"code":"Unauthorized"}}}`), nil
			case "/v10/finance/quoteSummary/TCS.NS":
				return jsonResponse(http.StatusOK, `{"quoteSummary":{"result":[{"assetProfile":{"sector":"Technology"}}],"error":null}}`), nil
			}
			require.Equal(t, "/v8/finance/chart/TCS.NS", req.URL.Path)
			require.Equal(t, "5d", req.URL.Query().Get("range"))
			return jsonResponse(http.StatusOK, chartBody), nil
		}).
		Times(3)

	client := yahoo.NewClient(yahoo.WithHTTPClient(httpClient))

	// Act
	p, err := client.Profile(t.Context(), "TCS.NS")
	require.NoError(t, err)

	// Assert: profile comes from chart metadata.
	require.Equal(t, "Tata Consultancy Services Limited", p.Name)
	require.InDelta(t, 3550.5, p.Price, 1e-9)
	require.InDelta(t, 3500.0, p.PreviousClose, 1e-9)
	require.NotNil(t, p.Open)
	require.InDelta(t, 3520.0, *p.Open, 1e-9)
	require.Equal(t, "Technology", p.Sector)
}
