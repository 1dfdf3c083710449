package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nyashahama/counselling-portal-backend/internal/auth"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
)

type profileResponse struct {
	UserID          string    `json:"user_id"`
	FullName        string    `json:"full_name"`
	University      string    `json:"university,omitempty"`
	YearOfStudy     *int      `json:"year_of_study,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	Specialisations []string  `json:"specialisations"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toProfileResponse(p db.Profile) profileResponse {
	resp := profileResponse{
		UserID:          p.UserID.String(),
		FullName:        p.FullName,
		University:      p.University.String,
		Bio:             p.Bio.String,
		AvatarURL:       p.AvatarUrl.String,
		Specialisations: p.Specialisations,
		UpdatedAt:       p.UpdatedAt,
	}
	if resp.Specialisations == nil {
		resp.Specialisations = []string{}
	}
	if p.YearOfStudy.Valid {
		y := int(p.YearOfStudy.Int16)
		resp.YearOfStudy = &y
	}
	return resp
}

// ─── GET /api/profile ─────────────────────────────────────────────────────────

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.q.GetProfile(r.Context(), identityFrom(r).UserID)
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get profile: %w", err))
		return
	}
	respond(w, http.StatusOK, toProfileResponse(p))
}

// ─── PATCH /api/profile ───────────────────────────────────────────────────────

// updateProfileRequest is a partial update: absent fields are left alone and
// an empty string clears an optional field.
type updateProfileRequest struct {
	FullName        *string  `json:"full_name" validate:"omitempty,max=120"`
	University      *string  `json:"university" validate:"omitempty,max=200"`
	YearOfStudy     *int     `json:"year_of_study" validate:"omitempty,min=1,max=10"`
	Bio             *string  `json:"bio" validate:"omitempty,max=2000"`
	AvatarURL       *string  `json:"avatar_url"`
	Specialisations []string `json:"specialisations" validate:"omitempty,max=10,dive,required,max=60"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	var req updateProfileRequest
	if !decodeValid(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		fields["full_name"] = "is required"
	}
	if req.AvatarURL != nil && *req.AvatarURL != "" {
		if err := validate.Var(*req.AvatarURL, "url"); err != nil {
			fields["avatar_url"] = "must be a valid URL"
		}
	}
	if req.Specialisations != nil && id.Role != auth.RoleCounsellor {
		fields["specialisations"] = "only counsellors have specialisations"
	}
	if len(fields) > 0 {
		respondFieldErrs(w, fields)
		return
	}

	current, err := s.q.GetProfile(r.Context(), id.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("update profile: get: %w", err))
		return
	}

	params := db.UpdateProfileParams{
		UserID:          id.UserID,
		FullName:        current.FullName,
		University:      current.University,
		YearOfStudy:     current.YearOfStudy,
		Bio:             current.Bio,
		AvatarUrl:       current.AvatarUrl,
		Specialisations: current.Specialisations,
	}
	if req.FullName != nil {
		params.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.University != nil {
		params.University = nullString(*req.University)
	}
	if req.YearOfStudy != nil {
		params.YearOfStudy = sql.NullInt16{Int16: int16(*req.YearOfStudy), Valid: true}
	}
	if req.Bio != nil {
		params.Bio = nullString(*req.Bio)
	}
	if req.AvatarURL != nil {
		params.AvatarUrl = nullString(*req.AvatarURL)
	}
	if req.Specialisations != nil {
		params.Specialisations = trimAll(req.Specialisations)
	}

	updated, err := s.q.UpdateProfile(r.Context(), params)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("update profile: %w", err))
		return
	}
	respond(w, http.StatusOK, toProfileResponse(updated))
}

// ─── GET /api/counsellors ─────────────────────────────────────────────────────

func (s *Server) handleListCounsellors(w http.ResponseWriter, r *http.Request) {
	rows, err := s.q.ListCounsellors(r.Context())
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list counsellors: %w", err))
		return
	}
	out := make([]profileResponse, 0, len(rows))
	for _, p := range rows {
		out = append(out, toProfileResponse(p))
	}
	respond(w, http.StatusOK, map[string]any{"counsellors": out})
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

// nullString converts a Go string to sql.NullString. Empty string → NULL.
func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
