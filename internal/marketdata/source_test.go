package marketdata

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/types"
)

type fundFunc func(ctx context.Context, symbol string) (types.Fundamentals, error)

func (f fundFunc) Fundamentals(ctx context.Context, symbol string) (types.Fundamentals, error) {
	return f(ctx, symbol)
}

type histFunc func(ctx context.Context, symbol string) (types.PriceHistory, error)

func (f histFunc) History(ctx context.Context, symbol string) (types.PriceHistory, error) {
	return f(ctx, symbol)
}

type newsFunc func(ctx context.Context, symbol, company string, limit int) ([]types.NewsItem, error)

func (f newsFunc) Headlines(ctx context.Context, symbol, company string, limit int) ([]types.NewsItem, error) {
	return f(ctx, symbol, company, limit)
}

func okFundamentals() fundFunc {
	return func(context.Context, string) (types.Fundamentals, error) {
		return types.Fundamentals{
			Company:    "Acme Corp",
			Info:       map[string]any{"trailingPE": 12.0, "currentPrice": 10.0},
			Financials: types.Table{"Total Revenue": {types.Float(5)}},
		}, nil
	}
}

func okHistory(name string) histFunc {
	return func(context.Context, string) (types.PriceHistory, error) {
		return types.PriceHistory{
			Points: []types.PricePoint{{Time: time.Unix(0, 0), Close: 11}},
			Info:   map[string]any{"currentPrice": 11.0, "longName": name},
		}, nil
	}
}

func TestFetchMergesProviders(t *testing.T) {
	var gotCompany string
	var gotLimit int
	s := NewSource(
		WithFundamentals(okFundamentals()),
		WithHistory(okHistory("History Name")),
		WithNews(newsFunc(func(_ context.Context, _, company string, limit int) ([]types.NewsItem, error) {
			gotCompany, gotLimit = company, limit
			return []types.NewsItem{{Title: "a"}, {Title: "b"}, {Title: "c"}}, nil
		}), 2),
	)

	data, err := s.Fetch(context.Background(), "ACME")
	require.NoError(t, err)

	assert.Equal(t, "ACME", data.Symbol)
	assert.Equal(t, "Acme Corp", data.Company)
	assert.Equal(t, 10.0, data.Info["currentPrice"], "fundamentals win over quote fields")
	assert.Equal(t, "History Name", data.Info["longName"])
	assert.Len(t, data.History, 1)
	assert.Len(t, data.Financials["Total Revenue"], 1)
	assert.Equal(t, []string{"a", "b"}, data.Headlines())
	assert.Equal(t, "Acme Corp", gotCompany)
	assert.Equal(t, 2, gotLimit)
}

func TestFetchCompanyFromQuoteName(t *testing.T) {
	s := NewSource(WithHistory(okHistory("Quote Name")))

	data, err := s.Fetch(context.Background(), "Q")
	require.NoError(t, err)
	assert.Equal(t, "Quote Name", data.Company)
}

func TestFetchDegradesPerProvider(t *testing.T) {
	s := NewSource(
		WithFundamentals(fundFunc(func(context.Context, string) (types.Fundamentals, error) {
			return types.Fundamentals{}, errors.New("quota exceeded")
		})),
		WithHistory(okHistory("")),
		WithNews(newsFunc(func(context.Context, string, string, int) ([]types.NewsItem, error) {
			return nil, errors.New("feed down")
		}), 5),
	)

	data, err := s.Fetch(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Nil(t, data.Financials)
	assert.Empty(t, data.News)
	assert.Len(t, data.History, 1)
}

func TestFetchFailsWhenEverythingFails(t *testing.T) {
	boom := errors.New("boom")
	s := NewSource(
		WithFundamentals(fundFunc(func(context.Context, string) (types.Fundamentals, error) {
			return types.Fundamentals{}, boom
		})),
		WithHistory(histFunc(func(context.Context, string) (types.PriceHistory, error) {
			return types.PriceHistory{}, boom
		})),
	)

	_, err := s.Fetch(context.Background(), "ACME")
	assert.ErrorIs(t, err, ErrNoData)
	assert.ErrorIs(t, err, boom)
}

func TestFetchWithoutProvidersReturnsEmptyData(t *testing.T) {
	data, err := NewSource().Fetch(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "ACME", data.Symbol)
	assert.Empty(t, data.Company)
}

func TestNSERouting(t *testing.T) {
	var nseCalls, defaultCalls int32
	s := NewSource(
		WithHistory(histFunc(func(context.Context, string) (types.PriceHistory, error) {
			atomic.AddInt32(&defaultCalls, 1)
			return types.PriceHistory{}, nil
		})),
		WithNSEHistory(histFunc(func(context.Context, string) (types.PriceHistory, error) {
			atomic.AddInt32(&nseCalls, 1)
			return types.PriceHistory{}, nil
		})),
	)

	for _, sym := range []string{"INFY.NS", "NSE:TCS", "AAPL"} {
		_, err := s.Fetch(context.Background(), sym)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), nseCalls)
	assert.Equal(t, int32(1), defaultCalls)

	assert.True(t, IsNSE("infy.ns"))
	assert.False(t, IsNSE("NSEI"))
}

func TestFetchUsesCache(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Hour)
	require.NoError(t, err)

	var calls int32
	s := NewSource(
		WithCache(cache),
		WithFundamentals(fundFunc(func(context.Context, string) (types.Fundamentals, error) {
			atomic.AddInt32(&calls, 1)
			return types.Fundamentals{Company: "Cached", Financials: types.Table{"Net Income": {types.Float(3), nil}}}, nil
		})),
	)

	first, err := s.Fetch(context.Background(), "ACME")
	require.NoError(t, err)
	second, err := s.Fetch(context.Background(), "ACME")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, first.Financials, second.Financials)
	assert.Equal(t, "Cached", second.Company)
}

func TestCacheExpiry(t *testing.T) {
	cache, err := NewCache(t.TempDir(), time.Minute)
	require.NoError(t, err)

	require.NoError(t, cache.Set("k", []byte(`{"a":1}`)))
	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(got))

	old := time.Now().Add(-2 * time.Minute)
	require.NoError(t, os.Chtimes(cache.path("k"), old, old))
	_, ok = cache.Get("k")
	assert.False(t, ok)
	_, err = os.Stat(cache.path("k"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, cache.Set("k2", []byte(`1`)))
	require.NoError(t, os.Chtimes(cache.path("k2"), old, old))
	n, err := cache.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
