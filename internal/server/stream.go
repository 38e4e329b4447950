package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// Stream message types
const (
	StreamEvent   = "event"
	StreamSummary = "summary"
	StreamError   = "error"
)

// StreamMessage is one websocket frame of GET /v1/analyze-stock/stream
type StreamMessage struct {
	Type         string            `json:"type"`
	Event        *types.AgentEvent `json:"event,omitempty"`
	FinalSummary string            `json:"final_summary,omitempty"`
	Detail       string            `json:"detail,omitempty"`
}

type summaryResult struct {
	summary string
	err     error
}

// handleAnalyzeStream upgrades to a websocket, forwards every agent event
// and ends with a summary or error frame followed by a normal close.
func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ticker := strings.TrimSpace(r.URL.Query().Get("ticker"))
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(r.Context(), "Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := s.agentContext(r.Context())
	defer cancel()

	events := make(chan types.AgentEvent, 64)
	done := make(chan summaryResult, 1)
	go func() {
		summary, err := s.runner.Summarize(ctx, ticker, func(e types.AgentEvent) {
			select {
			case events <- e:
			case <-ctx.Done():
			}
		})
		done <- summaryResult{summary: summary, err: err}
	}()

	for {
		select {
		case e := <-events:
			if err := writeFrame(conn, StreamMessage{Type: StreamEvent, Event: &e}); err != nil {
				logger.Warn(ctx, "Websocket client went away", "ticker", ticker, "error", err)
				cancel()
				<-done
				return
			}
		case res := <-done:
			for pending := true; pending; {
				select {
				case e := <-events:
					_ = writeFrame(conn, StreamMessage{Type: StreamEvent, Event: &e})
				default:
					pending = false
				}
			}
			final := StreamMessage{Type: StreamSummary, FinalSummary: res.summary}
			if res.err != nil {
				logger.ErrorWithErr(ctx, "Agent run failed", res.err, "ticker", ticker)
				final = StreamMessage{Type: StreamError, Detail: res.err.Error()}
			}
			_ = writeFrame(conn, final)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
