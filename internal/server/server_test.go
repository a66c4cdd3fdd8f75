package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/vol-surface/internal/data"
	"github.com/contactkeval/vol-surface/internal/pricing"
	"github.com/contactkeval/vol-surface/internal/surface"
)

type failingProvider struct{}

func (failingProvider) Secondary() data.Provider { return nil }
func (failingProvider) GetChain(context.Context, string) (*data.Chain, error) {
	return nil, errors.New("feed down")
}

func newTestServer(t *testing.T, prov data.Provider) *httptest.Server {
	t.Helper()
	cfg := surface.DefaultConfig()
	cfg.Steps = 20
	ts := httptest.NewServer(New(prov, cfg, data.Overrides{}).Router())
	t.Cleanup(ts.Close)
	return ts
}

func syntheticProvider() data.Provider {
	cfg := data.DefaultSyntheticConfig()
	cfg.ExpiryDays = []int{30}
	return data.NewSyntheticProvider(cfg, nil)
}

func post(t *testing.T, ts *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, syntheticProvider())
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSurface(t *testing.T) {
	ts := newTestServer(t, syntheticProvider())
	resp := post(t, ts, "/surface", `{"ticker": "spy"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var s surface.Surface
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, "SPY", s.Ticker)
	assert.Equal(t, 32, s.Summary.Quotes)
	assert.Equal(t, 8, s.Summary.Filtered)
	assert.NotZero(t, s.Summary.Converged)
	assert.NotEmpty(t, s.RunID)
	for _, p := range s.Points() {
		assert.True(t, surface.InBand(p.Strike, s.Spot, surface.DefaultBand))
	}
}

func TestSurfaceBandOverride(t *testing.T) {
	ts := newTestServer(t, syntheticProvider())
	resp := post(t, ts, "/surface", `{"ticker": "SPY", "band": -1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var s surface.Surface
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Zero(t, s.Summary.Filtered)
}

func TestSurfaceErrors(t *testing.T) {
	ts := newTestServer(t, failingProvider{})

	assert.Equal(t, http.StatusBadRequest, post(t, ts, "/surface", `{}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts, "/surface", `{"ticker": "SPY", "extra": 1}`).StatusCode)
	assert.Equal(t, http.StatusBadGateway, post(t, ts, "/surface", `{"ticker": "SPY"}`).StatusCode)

	resp, err := http.Get(ts.URL + "/surface")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPrice(t *testing.T) {
	ts := newTestServer(t, syntheticProvider())
	resp := post(t, ts, "/price",
		`{"spot": 100, "strike": 100, "rate": 0.01, "expiry": 0.5, "kind": "call", "steps": 50, "vol": 0.2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got priceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.InDelta(t, got.BlackScholes, got.Lattice, 0.05)
	assert.InDelta(t, 28.0, got.Vega, 1.0)

	bad := post(t, ts, "/price", `{"spot": 100, "strike": 0, "expiry": 0.5, "kind": "call", "vol": 0.2}`)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestImpliedVol(t *testing.T) {
	ts := newTestServer(t, syntheticProvider())

	resp := post(t, ts, "/iv",
		`{"spot": 100, "strike": 100, "rate": 0.01, "expiry": 0.5, "kind": "call", "steps": 50, "price": 5.88}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res pricing.SolveResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, pricing.StatusConverged, res.Status)
	assert.InDelta(t, 0.2006, res.Vol, 1e-3)

	resp = post(t, ts, "/iv",
		`{"spot": 100, "strike": 80, "rate": 0.01, "expiry": 0.5, "kind": "call", "price": 0.000001}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	res = pricing.SolveResult{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, pricing.StatusDiverged, res.Status)
	assert.NotEmpty(t, res.Reason)

	resp = post(t, ts, "/iv", `{"spot": 100, "strike": 100, "expiry": 0.5, "kind": "straddle", "price": 5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
