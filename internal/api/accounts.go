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
	"github.com/nyashahama/counselling-portal-backend/internal/email"
	"github.com/nyashahama/counselling-portal-backend/internal/store"
)

type authResponse struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ─── POST /api/auth/signup ────────────────────────────────────────────────────

type signupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=student counsellor"`
	FullName string `json:"full_name" validate:"required,max=120"`
}

// handleSignup creates a user and its profile, then signs the caller in.
// bcrypt ignores bytes past 72, hence the password cap.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeValid(w, r, &req) {
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		respondFieldErrs(w, map[string]string{"full_name": "is required"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	user, profile, err := s.store.CreateAccount(r.Context(), store.CreateAccountParams{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         db.UserRole(req.Role),
		FullName:     req.FullName,
	})
	if errors.Is(err, store.ErrEmailTaken) {
		respondErr(w, http.StatusConflict, "an account with this email already exists")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("signup: %w", err))
		return
	}

	token, exp, err := s.issuer.Issue(user.ID, auth.Role(user.Role))
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	s.logAndIgnoreEmailErr(r, s.mailer.SendWelcome(r.Context(), email.WelcomeParams{
		To:       user.Email,
		FullName: profile.FullName,
		Role:     string(user.Role),
	}), "welcome")

	s.logger.Info("account created", "user_id", user.ID, "role", user.Role, logField(r))

	respond(w, http.StatusCreated, authResponse{
		UserID:    user.ID.String(),
		Role:      string(user.Role),
		Token:     token,
		ExpiresAt: exp,
	})
}

// ─── POST /api/auth/login ─────────────────────────────────────────────────────

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeValid(w, r, &req) {
		return
	}

	user, err := s.q.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("login: %w", err))
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondErr(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, exp, err := s.issuer.Issue(user.ID, auth.Role(user.Role))
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, authResponse{
		UserID:    user.ID.String(),
		Role:      string(user.Role),
		Token:     token,
		ExpiresAt: exp,
	})
}

// ─── GET /api/auth/me ─────────────────────────────────────────────────────────

type meResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)

	user, err := s.q.GetUserByID(r.Context(), id.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		// Token outlived the account.
		respondErr(w, http.StatusUnauthorized, "account no longer exists")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("me: get user: %w", err))
		return
	}

	resp := meResponse{UserID: user.ID.String(), Email: user.Email, Role: string(user.Role)}
	if p, err := s.q.GetProfile(r.Context(), user.ID); err == nil {
		resp.FullName = p.FullName
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.respondInternalErr(w, r, fmt.Errorf("me: get profile: %w", err))
		return
	}

	respond(w, http.StatusOK, resp)
}
