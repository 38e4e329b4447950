package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/results"
	"stock-analyst/internal/store"
	"stock-analyst/internal/types"
)

type fakeRunner struct {
	summary string
	err     error
	events  []types.AgentEvent
	tickers []string
}

func (f *fakeRunner) Summarize(_ context.Context, ticker string, sink interfaces.EventSink) (string, error) {
	f.tickers = append(f.tickers, ticker)
	for _, e := range f.events {
		if sink != nil {
			sink(e)
		}
	}
	return f.summary, f.err
}

type analyzerFunc func(ctx context.Context, symbol string) (*types.AnalysisResult, error)

func (f analyzerFunc) Analyze(ctx context.Context, symbol string) (*types.AnalysisResult, error) {
	return f(ctx, symbol)
}

func newTestServer(t *testing.T, runner interfaces.Runner, rs interfaces.ResultStore) http.Handler {
	t.Helper()
	analyzer := analyzerFunc(func(_ context.Context, symbol string) (*types.AnalysisResult, error) {
		if symbol == "FAIL" {
			return nil, errors.New("provider down")
		}
		return &types.AnalysisResult{Symbol: symbol, Verdict: types.VerdictHold}, nil
	})
	return New(testConfig(), Deps{Runner: runner, Analyzer: analyzer, Results: rs}).Handler()
}

func testConfig() store.ServerConfig {
	return store.Default().Server
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e.Detail
}

func TestAnalyzeStock(t *testing.T) {
	runner := &fakeRunner{summary: "AAPL looks fine."}
	h := newTestServer(t, runner, nil)

	rec := do(h, http.MethodPost, "/v1/analyze-stock/", `{"ticker":" AAPL "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out AgentOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "AAPL looks fine.", out.FinalSummary)
	assert.Equal(t, []string{"AAPL"}, runner.tickers)
}

func TestAnalyzeStockStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		runner *fakeRunner
		status int
		detail string
	}{
		{"malformed body", http.MethodPost, `{"ticker":`, &fakeRunner{}, http.StatusBadRequest, "Invalid JSON"},
		{"missing body", http.MethodPost, "", &fakeRunner{}, http.StatusBadRequest, "Request body is required"},
		{"empty ticker", http.MethodPost, `{"ticker":"  "}`, &fakeRunner{}, http.StatusBadRequest, "ticker is required"},
		{"runner error", http.MethodPost, `{"ticker":"AAPL"}`, &fakeRunner{err: errors.New("quota exceeded")}, http.StatusInternalServerError, "quota exceeded"},
		{"wrong method", http.MethodGet, "", &fakeRunner{}, http.StatusMethodNotAllowed, "Method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestServer(t, tt.runner, nil), tt.method, "/v1/analyze-stock/", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, detail(t, rec), tt.detail)
		})
	}
}

func TestAnalyseTicker(t *testing.T) {
	h := newTestServer(t, &fakeRunner{}, nil)

	rec := do(h, http.MethodPost, "/v1/analyse-ticker/", `{"ticker":"MSFT"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res types.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "MSFT", res.Symbol)
	assert.Equal(t, types.VerdictHold, res.Verdict)

	rec = do(h, http.MethodPost, "/v1/analyse-ticker/", `{"ticker":"FAIL"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "provider down", detail(t, rec))
}

func TestAnalyseTickerEmptySymbol(t *testing.T) {
	analyzer := analyzerFunc(func(context.Context, string) (*types.AnalysisResult, error) {
		return nil, analysis.ErrEmptySymbol
	})
	h := New(testConfig(), Deps{Runner: &fakeRunner{}, Analyzer: analyzer}).Handler()
	rec := do(h, http.MethodPost, "/v1/analyse-ticker/", `{"ticker":"$"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResultsEndpoints(t *testing.T) {
	ctx := context.Background()
	mem := results.NewMemory()
	old, err := mem.Save(ctx, &types.AnalysisResult{Symbol: "AAPL", GeneratedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	_, err = mem.Save(ctx, &types.AnalysisResult{Symbol: "MSFT", GeneratedAt: time.Now()})
	require.NoError(t, err)

	h := newTestServer(t, &fakeRunner{}, mem)

	rec := do(h, http.MethodGet, "/v1/results", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []types.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "MSFT", list[0].Symbol)

	rec = do(h, http.MethodGet, "/v1/results?symbol=aapl&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, old, list[0].ID)

	rec = do(h, http.MethodGet, "/v1/results?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodGet, "/v1/results/"+old, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodDelete, "/v1/results/"+old, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(h, http.MethodGet, "/v1/results/"+old, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(h, http.MethodDelete, "/v1/results/"+old, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResultsWithoutStore(t *testing.T) {
	rec := do(newTestServer(t, &fakeRunner{}, nil), http.MethodGet, "/v1/results", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthAndCORS(t *testing.T) {
	h := newTestServer(t, &fakeRunner{}, nil)

	rec := do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(h, http.MethodOptions, "/v1/analyze-stock/", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := applyMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := do(h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", detail(t, rec))
}

func TestAnalyzeStream(t *testing.T) {
	runner := &fakeRunner{
		summary: "final words",
		events: []types.AgentEvent{
			{Type: types.EventToolCall, Agent: "ResearchCoordinator", Tool: "analyse_ticker"},
			{Type: types.EventToolResult, Agent: "ResearchCoordinator", Tool: "analyse_ticker"},
		},
	}
	srv := httptest.NewServer(newTestServer(t, runner, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/analyze-stock/stream?ticker=AAPL"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var got []StreamMessage
	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		got = append(got, msg)
	}

	require.Len(t, got, 3)
	assert.Equal(t, StreamEvent, got[0].Type)
	assert.Equal(t, types.EventToolCall, got[0].Event.Type)
	assert.Equal(t, types.EventToolResult, got[1].Event.Type)
	assert.Equal(t, StreamSummary, got[2].Type)
	assert.Equal(t, "final words", got[2].FinalSummary)
}

func TestAnalyzeStreamReportsErrors(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, &fakeRunner{err: errors.New("model unavailable")}, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/analyze-stock/stream?ticker=AAPL"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, StreamError, msg.Type)
	assert.Equal(t, "model unavailable", msg.Detail)
}

func TestAnalyzeStreamRequiresTicker(t *testing.T) {
	rec := do(newTestServer(t, &fakeRunner{}, nil), http.MethodGet, "/v1/analyze-stock/stream", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
