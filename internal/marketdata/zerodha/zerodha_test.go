package zerodha

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"
)

type fakeKite struct {
	instruments   kiteconnect.Instruments
	ltp           kiteconnect.QuoteLTP
	ltpErr        error
	candles       []kiteconnect.HistoricalData
	instrumentHit int
	gotToken      int
	gotInterval   string
}

func (f *fakeKite) GetInstrumentsByExchange(string) (kiteconnect.Instruments, error) {
	f.instrumentHit++
	return f.instruments, nil
}

func (f *fakeKite) GetLTP(...string) (kiteconnect.QuoteLTP, error) {
	return f.ltp, f.ltpErr
}

func (f *fakeKite) GetHistoricalData(token int, interval string, _, _ time.Time, _, _ bool) ([]kiteconnect.HistoricalData, error) {
	f.gotToken = token
	f.gotInterval = interval
	return f.candles, nil
}

func day(d int) models.Time {
	return models.Time{Time: time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)}
}

func newFake() *fakeKite {
	return &fakeKite{
		instruments: kiteconnect.Instruments{
			{InstrumentToken: 408065, Tradingsymbol: "INFY", Name: "INFOSYS", InstrumentType: "EQ"},
			{InstrumentToken: 999, Tradingsymbol: "INFY24JANFUT", Name: "INFY", InstrumentType: "FUT"},
		},
		ltp: kiteconnect.QuoteLTP{"NSE:INFY": {InstrumentToken: 408065, LastPrice: 1510}},
		candles: []kiteconnect.HistoricalData{
			{Date: day(3), Close: 1500},
			{Date: day(2), Close: 1490},
		},
	}
}

func TestTradingSymbol(t *testing.T) {
	assert.Equal(t, "INFY", TradingSymbol("infy.ns"))
	assert.Equal(t, "INFY", TradingSymbol("NSE:INFY"))
	assert.Equal(t, "TCS", TradingSymbol("TCS"))
}

func TestHistory(t *testing.T) {
	kite := newFake()
	p := newProvider(kite)

	h, err := p.History(context.Background(), "INFY.NS")
	require.NoError(t, err)

	assert.Equal(t, 408065, kite.gotToken)
	assert.Equal(t, "day", kite.gotInterval)
	require.Len(t, h.Points, 2)
	assert.Equal(t, 1490.0, h.Points[0].Close)
	assert.Equal(t, 1500.0, h.Points[1].Close)
	assert.Equal(t, 1510.0, h.Info["currentPrice"])
	assert.Equal(t, "INFOSYS", h.Info["longName"])

	_, err = p.History(context.Background(), "NSE:INFY")
	require.NoError(t, err)
	assert.Equal(t, 1, kite.instrumentHit)
}

func TestHistoryFallsBackToLastCloseWithoutLTP(t *testing.T) {
	kite := newFake()
	kite.ltpErr = errors.New("token expired")

	h, err := newProvider(kite).History(context.Background(), "INFY")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, h.Info["currentPrice"])
}

func TestHistoryUnknownSymbol(t *testing.T) {
	_, err := newProvider(newFake()).History(context.Background(), "INFY24JANFUT")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New("key", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
