package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nyashahama/counselling-portal-backend/internal/content"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
	"github.com/nyashahama/counselling-portal-backend/internal/email"
)

// ─── GET /api/content/:kind ───────────────────────────────────────────────────

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	kind, ok := content.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		respondErr(w, http.StatusNotFound, "unknown section")
		return
	}
	respond(w, http.StatusOK, map[string]any{"pages": s.content.List(kind)})
}

// ─── GET /api/content/:kind/:slug ─────────────────────────────────────────────

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	kind, ok := content.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		respondErr(w, http.StatusNotFound, "unknown section")
		return
	}
	page, err := s.content.Get(kind, chi.URLParam(r, "slug"))
	if errors.Is(err, content.ErrNotFound) {
		respondErr(w, http.StatusNotFound, "page not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, page)
}

// ─── POST /api/contact ────────────────────────────────────────────────────────

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// handleContact stores a contact form submission and forwards it to the
// support inbox. The stored row is the record; forwarding is best effort.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeValid(w, r, &req) {
		return
	}

	row, err := s.q.InsertContactMessage(r.Context(), db.InsertContactMessageParams{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("contact: %w", err))
		return
	}

	s.logAndIgnoreEmailErr(r, s.mailer.SendContactForward(r.Context(), email.ContactForwardParams{
		To:        s.cfg.SupportEmail,
		FromName:  row.Name,
		FromEmail: row.Email,
		Subject:   row.Subject,
		Message:   row.Message,
	}), "contact_forward")

	respond(w, http.StatusCreated, map[string]string{"id": row.ID.String()})
}
