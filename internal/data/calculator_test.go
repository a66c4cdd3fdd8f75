package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calculatorBody = `{
	"options": {
		"2025-02-21": {
			"c": {"520.00": {"l": 14.2, "b": 14.0, "a": 14.4}, "530.00": {"l": 8.35}},
			"p": {"510.00": {"l": 6.1}, "oops": {"l": 1}}
		},
		"2025-01-17": {
			"c": {"525.50": {"l": 4.05}},
			"p": {}
		},
		"not-a-date": {"c": {"500": {"l": 1}}}
	}
}`

func TestCalculatorProvider_GetChain(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/ajax/getOptions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(calculatorBody))
	}))
	defer srv.Close()

	prov := NewCalculatorDataProvider(srv.URL, Market{Spot: 520.84, DividendYield: 0.0129, RiskFreeRate: 0.0525}, nil)
	chain, err := prov.GetChain(context.Background(), "spy")
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "stock=SPY")
	assert.Equal(t, 520.84, chain.Spot)
	require.Len(t, chain.Expiries, 2)

	assert.Equal(t, "2025-01-17", chain.Expiries[0].Expiration.Format("2006-01-02"))
	assert.Equal(t, []StrikePrice{{Strike: 525.5, Price: 4.05}}, chain.Expiries[0].Calls)

	feb := chain.Expiries[1]
	assert.Len(t, feb.Calls, 2)
	assert.Equal(t, []StrikePrice{{Strike: 510, Price: 6.1}}, feb.Puts)
	assert.Equal(t, 4, chain.Len())
}

func TestCalculatorProvider_HTTPError(t *testing.T) {
	// fake server returning 500
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"internal error"}`))
	}))
	defer srv.Close()

	prov := NewCalculatorDataProvider(srv.URL, Market{Spot: 100}, nil)
	prov.client.SetRetryCount(0)

	_, err := prov.GetChain(context.Background(), "AAPL")
	assert.ErrorContains(t, err, "status 500")
}

func TestCalculatorProvider_NeedsSpot(t *testing.T) {
	prov := NewCalculatorDataProvider("http://127.0.0.1:0", Market{}, nil)
	_, err := prov.GetChain(context.Background(), "AAPL")
	assert.ErrorContains(t, err, "spot")
}
