// Package api implements the HTTP layer for the counselling portal.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/nyashahama/counselling-portal-backend/internal/assessment"
	"github.com/nyashahama/counselling-portal-backend/internal/auth"
	"github.com/nyashahama/counselling-portal-backend/internal/content"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
	"github.com/nyashahama/counselling-portal-backend/internal/email"
	"github.com/nyashahama/counselling-portal-backend/internal/realtime"
	"github.com/nyashahama/counselling-portal-backend/internal/store"
	"github.com/nyashahama/counselling-portal-backend/internal/worker"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// AllowedOrigin is the frontend origin allowed by CORS in production.
	AllowedOrigin string

	// VideoBaseURL prefixes the room link of video sessions.
	VideoBaseURL string

	// SupportEmail receives contact form submissions.
	SupportEmail string
}

// Store is the subset of *store.Store the handlers use for multi-step writes.
type Store interface {
	Ping(ctx context.Context) error
	CreateAccount(ctx context.Context, p store.CreateAccountParams) (db.User, db.Profile, error)
	SaveAssessment(ctx context.Context, sub assessment.Submission) (db.Assessment, error)
	StartSession(ctx context.Context, p store.StartSessionParams) (db.CounsellingSession, bool, error)
	ParticipantSession(ctx context.Context, sessionID, userID uuid.UUID) (db.CounsellingSession, error)
	EndSession(ctx context.Context, sessionID, userID uuid.UUID) (db.CounsellingSession, error)
	SendMessage(ctx context.Context, p store.SendMessageParams) (db.Message, error)
}

var _ Store = (*store.Store)(nil)

// Deps are the collaborators the Server is built from.
type Deps struct {
	// Querier handles all single-query reads. Injected directly, no repo wrapper.
	Querier db.Querier

	// Store handles multi-step atomic writes.
	Store Store

	// Broker fans chat messages out to live streams.
	Broker realtime.Broker

	// Worker enqueues the follow-up job after an assessment is saved.
	Worker worker.Enqueuer

	// Mailer sends transactional emails (welcome, contact forward).
	Mailer email.Sender

	Issuer  *auth.Issuer
	Bank    *assessment.Bank
	Content *content.Library
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	q       db.Querier
	store   Store
	broker  realtime.Broker
	worker  worker.Enqueuer
	mailer  email.Sender
	issuer  *auth.Issuer
	bank    *assessment.Bank
	content *content.Library

	// results saves completed assessments and enqueues their follow-up.
	results *resultSink
	wizards *wizardRegistry

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.Server.
func NewServer(deps Deps, cfg Config, logger *slog.Logger) http.Handler {
	s := &Server{
		q:       deps.Querier,
		store:   deps.Store,
		broker:  deps.Broker,
		worker:  deps.Worker,
		mailer:  deps.Mailer,
		issuer:  deps.Issuer,
		bank:    deps.Bank,
		content: deps.Content,
		wizards: newWizardRegistry(),
		cfg:     cfg,
		logger:  logger,
	}
	s.results = &resultSink{store: deps.Store, worker: deps.Worker, logger: logger}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	timeout := middleware.Timeout(30 * time.Second)

	// ── Health ────────────────────────────────────────────────────────────────
	r.With(timeout).Get("/healthz", s.handleHealthz)

	// ── API v1 ────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {

		// Live chat stream. Outside the request timeout: the connection stays
		// open until the client goes away.
		r.With(s.requireAuth).Get("/sessions/{sessionID}/stream", s.handleStreamMessages)

		r.Group(func(r chi.Router) {
			r.Use(timeout)

			// Public.
			r.Post("/auth/signup", s.handleSignup)
			r.Post("/auth/login", s.handleLogin)
			r.Get("/assessment/questions", s.handleListQuestions)
			r.Get("/content/{kind}", s.handleListContent)
			r.Get("/content/{kind}/{slug}", s.handleGetContent)
			r.Post("/contact", s.handleContact)

			// Any signed-in user.
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)

				r.Get("/auth/me", s.handleMe)
				r.Get("/profile", s.handleGetProfile)
				r.Patch("/profile", s.handleUpdateProfile)
				r.Get("/counsellors", s.handleListCounsellors)

				r.Get("/sessions", s.handleListSessions)
				r.Post("/sessions/{sessionID}/end", s.handleEndSession)
				r.Get("/sessions/{sessionID}/messages", s.handleListMessages)
				r.Post("/sessions/{sessionID}/messages", s.handleSendMessage)

				// Students only.
				r.Group(func(r chi.Router) {
					r.Use(requireRole(auth.RoleStudent))

					r.Post("/assessments", s.handleSubmitAssessment)
					r.Get("/assessments", s.handleListAssessments)

					r.Post("/assessment/wizard", s.handleStartWizard)
					r.Get("/assessment/wizard", s.handleGetWizard)
					r.Delete("/assessment/wizard", s.handleResetWizard)
					r.Put("/assessment/wizard/answer", s.handleWizardAnswer)
					r.Post("/assessment/wizard/next", s.handleWizardNext)
					r.Post("/assessment/wizard/previous", s.handleWizardPrevious)

					r.Post("/sessions", s.handleStartSession)
				})

				// Counsellors only.
				r.With(requireRole(auth.RoleCounsellor)).
					Get("/sessions/{sessionID}/assessment", s.handleSessionAssessment)
			})
		})
	})

	return r
}

// ─── GET /healthz ─────────────────────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("healthz: database unreachable", "error", err, logField(r))
		respondErr(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
}
