package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/pipeline"
)

const (
	writeWait   = 10 * time.Second
	eventBuffer = 64
)

// handleGenerateStream upgrades to a websocket, reads one GenerateRequest and
// streams every pipeline event until the run ends.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	var req GenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.sendError(conn, "invalid request")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.sendError(conn, "prompt is required")
		return
	}
	if !s.acquire() {
		s.sendError(conn, ErrBusy.Error())
		return
	}
	defer s.release()

	events := make(chan pipeline.Event, eventBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeEvents(conn, events)
	}()

	_, err = s.gen.Run(r.Context(), req.Prompt, req.RecursionLimit, func(e pipeline.Event) {
		events <- e
	})
	close(events)
	<-done
	if err != nil {
		s.logger.Warn("streamed generation aborted", zap.Error(err))
	}

	closeNormal(conn)
}

// writeEvents is the only writer on conn while a run streams. After a write
// fails it keeps draining so the pipeline never blocks on a dead client.
func (s *Server) writeEvents(conn *websocket.Conn, events <-chan pipeline.Event) {
	healthy := true
	for e := range events {
		if !healthy {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(e); err != nil {
			s.logger.Debug("websocket write failed", zap.Error(err))
			healthy = false
		}
	}
}

// sendError reports a rejected request and closes the stream.
func (s *Server) sendError(conn *websocket.Conn, msg string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(pipeline.Event{Type: pipeline.EventError, Message: msg, Time: time.Now()})
	closeNormal(conn)
}

func closeNormal(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
