package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartJSON = `{"chart": {"result": [{
  "meta": {"currency": "INR", "symbol": "INFY.NS", "longName": "Infosys Limited", "shortName": "INFOSYS", "regularMarketPrice": 1502.5},
  "timestamp": [1704153600, 1704240000, 1704326400],
  "indicators": {"quote": [{"close": [1490.0, null, 1500.0]}]}
}], "error": null}}`

func TestHistory(t *testing.T) {
	var gotPath, gotRange, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	c := New(WithChartURL(srv.URL), WithRange("6mo"))
	h, err := c.History(context.Background(), "NSE:INFY")
	require.NoError(t, err)

	assert.Equal(t, "/INFY.NS", gotPath)
	assert.Equal(t, "6mo", gotRange)
	assert.NotEmpty(t, gotUA)

	require.Len(t, h.Points, 2)
	assert.Equal(t, 1490.0, h.Points[0].Close)
	assert.Equal(t, 1500.0, h.Points[1].Close)
	assert.True(t, h.Points[0].Time.Before(h.Points[1].Time))
	assert.Equal(t, 1502.5, h.Info["currentPrice"])
	assert.Equal(t, "Infosys Limited", h.Info["longName"])
	assert.Equal(t, "INFOSYS", h.Info["shortName"])
}

func TestHistoryChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	_, err := New(WithChartURL(srv.URL)).History(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "INFY.NS", Symbol("nse:infy"))
	assert.Equal(t, "AAPL", Symbol(" aapl "))
}
