package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/results"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/analyze-stock/", s.handleAnalyzeStock)
	mux.HandleFunc("/v1/analyze-stock/stream", s.handleAnalyzeStream)
	mux.HandleFunc("/v1/analyse-ticker/", s.handleAnalyseTicker)
	mux.HandleFunc("/v1/results", s.handleResultList)
	mux.HandleFunc("/v1/results/", s.handleResult)
}

// UserInput is the request body of the analysis endpoints
type UserInput struct {
	Ticker string `json:"ticker"`
}

// AgentOutput is the response body of POST /v1/analyze-stock/
type AgentOutput struct {
	FinalSummary string `json:"final_summary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeTicker reads a UserInput and rejects an empty ticker
func decodeTicker(w http.ResponseWriter, r *http.Request) (string, bool) {
	var in UserInput
	if !DecodeJSON(w, r, &in) {
		return "", false
	}
	ticker := strings.TrimSpace(in.Ticker)
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required")
		return "", false
	}
	return ticker, true
}

func (s *Server) handleAnalyzeStock(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/analyze-stock/" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	ticker, ok := decodeTicker(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.agentContext(r.Context())
	defer cancel()

	summary, err := s.runner.Summarize(ctx, ticker, nil)
	if err != nil {
		logger.ErrorWithErr(ctx, "Agent run failed", err, "ticker", ticker)
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, AgentOutput{FinalSummary: summary})
}

func (s *Server) handleAnalyseTicker(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	ticker, ok := decodeTicker(w, r)
	if !ok {
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), ticker)
	switch {
	case errors.Is(err, analysis.ErrEmptySymbol):
		WriteError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		WriteError(w, http.StatusInternalServerError, err.Error())
	default:
		WriteJSON(w, http.StatusOK, result)
	}
}

func (s *Server) requireResults(w http.ResponseWriter) bool {
	if s.results == nil {
		WriteError(w, http.StatusServiceUnavailable, "result store is not configured")
		return false
	}
	return true
}

func (s *Server) handleResultList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) || !s.requireResults(w) {
		return
	}

	q := r.URL.Query()
	opts := interfaces.ListOptions{Symbol: q.Get("symbol")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		opts.Limit = n
	}

	list, err := s.results.List(r.Context(), opts)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodDelete) || !s.requireResults(w) {
		return
	}
	id := PathParam(r, "/v1/results/")
	if id == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	if r.Method == http.MethodDelete {
		err := s.results.Delete(r.Context(), id)
		switch {
		case errors.Is(err, results.ErrNotFound):
			WriteError(w, http.StatusNotFound, "result "+id+" not found")
		case err != nil:
			WriteError(w, http.StatusInternalServerError, err.Error())
		default:
			w.WriteHeader(http.StatusNoContent)
		}
		return
	}

	result, err := s.results.Get(r.Context(), id)
	switch {
	case errors.Is(err, results.ErrNotFound):
		WriteError(w, http.StatusNotFound, "result "+id+" not found")
	case err != nil:
		WriteError(w, http.StatusInternalServerError, err.Error())
	default:
		WriteJSON(w, http.StatusOK, result)
	}
}
