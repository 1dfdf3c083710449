package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nyashahama/counselling-portal-backend/internal/db"
	"github.com/nyashahama/counselling-portal-backend/internal/realtime"
	"github.com/nyashahama/counselling-portal-backend/internal/store"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200

	// heartbeatInterval keeps idle streams alive through proxies.
	heartbeatInterval = 25 * time.Second
)

// ─── GET /api/sessions/:sessionID/messages ────────────────────────────────────

// handleListMessages returns the most recent messages, oldest first.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(w, r, "sessionID")
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r, defaultMessageLimit, maxMessageLimit)
	if !ok {
		return
	}

	if _, err := s.store.ParticipantSession(r.Context(), sessionID, identityFrom(r).UserID); err != nil {
		s.respondSessionErr(w, r, err)
		return
	}

	rows, err := s.q.ListMessages(r.Context(), db.ListMessagesParams{SessionID: sessionID, Limit: limit})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list messages: %w", err))
		return
	}
	out := make([]realtime.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, realtime.FromRow(row))
	}
	respond(w, http.StatusOK, map[string]any{"messages": out})
}

// ─── POST /api/sessions/:sessionID/messages ───────────────────────────────────

type sendMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// handleSendMessage stores a message and publishes it to live streams.
// Publishing is best effort: the message is already readable via the list
// endpoint if it fails.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(w, r, "sessionID")
	if !ok {
		return
	}
	var req sendMessageRequest
	if !decodeValid(w, r, &req) {
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		respondFieldErrs(w, map[string]string{"body": "is required"})
		return
	}

	row, err := s.store.SendMessage(r.Context(), store.SendMessageParams{
		SessionID: sessionID,
		SenderID:  identityFrom(r).UserID,
		Body:      body,
	})
	if err != nil {
		s.respondSessionErr(w, r, err)
		return
	}

	msg := realtime.FromRow(row)
	if err := s.broker.Publish(r.Context(), msg); err != nil {
		s.logger.Warn("message stored but not published",
			"message_id", msg.ID,
			"session_id", sessionID,
			"error", err,
			logField(r),
		)
	}

	respond(w, http.StatusCreated, msg)
}

// ─── GET /api/sessions/:sessionID/stream ──────────────────────────────────────

// handleStreamMessages streams new messages as Server-Sent Events. Each
// message is one "message" event whose data is the JSON message; a comment
// line is written every heartbeatInterval.
func (s *Server) handleStreamMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(w, r, "sessionID")
	if !ok {
		return
	}
	if _, err := s.store.ParticipantSession(r.Context(), sessionID, identityFrom(r).UserID); err != nil {
		s.respondSessionErr(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	// Lift the server's write timeout for this connection; unsupported
	// writers simply keep it.
	_ = rc.SetWriteDeadline(time.Time{})

	msgs, unsubscribe := s.broker.Subscribe(sessionID)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, "retry: 3000\n\n")
	if err := rc.Flush(); err != nil {
		s.logger.Error("stream: flush unsupported", "error", err, logField(r))
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case m, open := <-msgs:
			if !open {
				return
			}
			data, err := json.Marshal(m)
			if err != nil {
				s.logger.Error("stream: marshal message", "error", err, logField(r))
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: message\ndata: %s\n\n", m.ID, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
