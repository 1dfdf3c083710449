package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
	"github.com/nyashahama/counselling-portal-backend/internal/store"
)

type sessionResponse struct {
	ID             string     `json:"id"`
	StudentID      string     `json:"student_id"`
	CounsellorID   string     `json:"counsellor_id"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	RoomURL        string     `json:"room_url,omitempty"`
	StudentName    string     `json:"student_name,omitempty"`
	CounsellorName string     `json:"counsellor_name,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

func toSessionResponse(cs db.CounsellingSession) sessionResponse {
	resp := sessionResponse{
		ID:           cs.ID.String(),
		StudentID:    cs.StudentID.String(),
		CounsellorID: cs.CounsellorID.String(),
		Kind:         string(cs.Kind),
		Status:       string(cs.Status),
		RoomURL:      cs.RoomUrl.String,
		CreatedAt:    cs.CreatedAt,
	}
	if cs.EndedAt.Valid {
		t := cs.EndedAt.Time
		resp.EndedAt = &t
	}
	return resp
}

// ─── POST /api/sessions ───────────────────────────────────────────────────────

type startSessionRequest struct {
	CounsellorID string `json:"counsellor_id" validate:"required,uuid"`
	Kind         string `json:"kind" validate:"required,oneof=chat video"`
}

// handleStartSession opens a chat or video session with a counsellor. If the
// pair already has an active session of that kind it is returned instead.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeValid(w, r, &req) {
		return
	}
	counsellorID := uuid.MustParse(req.CounsellorID)

	cs, created, err := s.store.StartSession(r.Context(), store.StartSessionParams{
		StudentID:    identityFrom(r).UserID,
		CounsellorID: counsellorID,
		Kind:         db.SessionKind(req.Kind),
		VideoBaseURL: s.cfg.VideoBaseURL,
	})
	if errors.Is(err, store.ErrNotCounsellor) {
		respondErr(w, http.StatusNotFound, "counsellor not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("start session: %w", err))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		s.logger.Info("session started", "session_id", cs.ID, "kind", cs.Kind, logField(r))
	}
	respond(w, status, toSessionResponse(cs))
}

// ─── GET /api/sessions ────────────────────────────────────────────────────────

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	rows, err := s.q.ListSessionsForUser(r.Context(), identityFrom(r).UserID)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list sessions: %w", err))
		return
	}
	out := make([]sessionResponse, 0, len(rows))
	for _, row := range rows {
		resp := toSessionResponse(row.CounsellingSession)
		resp.StudentName = row.StudentName
		resp.CounsellorName = row.CounsellorName
		out = append(out, resp)
	}
	respond(w, http.StatusOK, map[string]any{"sessions": out})
}

// ─── POST /api/sessions/:sessionID/end ────────────────────────────────────────

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(w, r, "sessionID")
	if !ok {
		return
	}

	cs, err := s.store.EndSession(r.Context(), sessionID, identityFrom(r).UserID)
	if err != nil {
		s.respondSessionErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, toSessionResponse(cs))
}

// ─── GET /api/sessions/:sessionID/assessment ──────────────────────────────────

type sessionAssessmentResponse struct {
	assessmentResponse
	Answers  json.RawMessage `json:"answers"`
	Briefing string          `json:"briefing,omitempty"`
}

// handleSessionAssessment shows the counsellor of a session the student's
// most recent assessment and the briefing written for it.
func (s *Server) handleSessionAssessment(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlUUID(w, r, "sessionID")
	if !ok {
		return
	}

	cs, err := s.store.ParticipantSession(r.Context(), sessionID, identityFrom(r).UserID)
	if err != nil {
		s.respondSessionErr(w, r, err)
		return
	}

	row, err := s.q.GetLatestAssessmentByUser(r.Context(), cs.StudentID)
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "student has not completed an assessment")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("session assessment: %w", err))
		return
	}

	base, err := s.toAssessmentResponse(row)
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, sessionAssessmentResponse{
		assessmentResponse: base,
		Answers:            row.Answers,
		Briefing:           row.Briefing.String,
	})
}

// respondSessionErr maps the store's session errors onto status codes.
func (s *Server) respondSessionErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		respondErr(w, http.StatusNotFound, "session not found")
	case errors.Is(err, store.ErrNotParticipant):
		respondErr(w, http.StatusForbidden, "you are not part of this session")
	case errors.Is(err, store.ErrSessionEnded):
		respondErr(w, http.StatusConflict, "session has ended")
	default:
		s.respondInternalErr(w, r, err)
	}
}
