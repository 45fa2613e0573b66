package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-planner/internal/decision"
	"github.com/p-n-ai/pai-planner/internal/study"
)

const (
	defaultDecisionLimit = 50
	streamWriteTimeout   = 5 * time.Second
)

func (s *Server) handleRecentDecisions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultDecisionLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.log.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDecisionsByType(w http.ResponseWriter, r *http.Request) {
	t := decision.Type(r.PathValue("type"))
	if !t.Valid() {
		writeError(w, r, study.Invalid("type", "unknown decision type %q", t))
		return
	}
	limit, err := queryLimit(r, defaultDecisionLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.log.ByType(r.Context(), t, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDecisionsByTopic(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryLimit(r, defaultDecisionLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.log.ByTopic(r.Context(), id, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleDecisionStream upgrades to a websocket and pushes every decision
// appended after the connection opened. Client messages are ignored.
func (s *Server) handleDecisionStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: "decision stream is not enabled"})
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "request_id", RequestID(r.Context()), "error", err)
		return
	}
	defer conn.CloseNow()

	entries, cancel := s.hub.Subscribe()
	defer cancel()

	ctx := conn.CloseRead(r.Context())
	slog.Info("decision stream opened", "request_id", RequestID(r.Context()), "subscribers", s.hub.Subscribers())
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-entries:
			if !ok {
				return
			}
			if err := writeEntry(ctx, conn, e); err != nil {
				slog.Debug("decision stream closed", "request_id", RequestID(r.Context()), "error", err)
				return
			}
		}
	}
}

func writeEntry(ctx context.Context, conn *websocket.Conn, e decision.Entry) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, e)
}
