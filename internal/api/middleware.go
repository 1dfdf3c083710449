package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nyashahama/counselling-portal-backend/internal/auth"
)

// ─── CONTEXT KEYS ─────────────────────────────────────────────────────────────

type contextKey string

const ctxKeyIdentity contextKey = "identity"

// ─── BEARER AUTH ──────────────────────────────────────────────────────────────

// requireAuth is chi middleware that validates the Authorization bearer token.
// On success the caller's auth.Identity is stored in the request context; the
// stream endpoint also accepts the token as ?access_token= because browsers
// cannot set headers on an EventSource.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondErr(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		id, err := s.issuer.Parse(token)
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			respondErr(w, http.StatusUnauthorized, "token expired")
			return
		case err != nil:
			respondErr(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyIdentity, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(tok)
	}
	if strings.HasSuffix(r.URL.Path, "/stream") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// requireRole rejects callers whose token carries a different role. It must
// run after requireAuth.
func requireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identityFrom(r).Role != role {
				respondErr(w, http.StatusForbidden, "only "+string(role)+"s can do this")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// identityFrom returns the caller set by requireAuth. It is the zero Identity
// on public routes.
func identityFrom(r *http.Request) auth.Identity {
	id, _ := r.Context().Value(ctxKeyIdentity).(auth.Identity)
	return id
}

// ─── CORS ─────────────────────────────────────────────────────────────────────

// corsMiddleware handles preflight OPTIONS requests and sets CORS headers.
// Outside production any origin is echoed back.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed := s.cfg.AllowedOrigin
		if s.cfg.Env != "production" || allowed == "" {
			allowed = origin
		}

		w.Header().Set("Access-Control-Allow-Origin", allowed)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Add("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ─── LOGGER MIDDLEWARE ────────────────────────────────────────────────────────

// loggerMiddleware logs each request with method, path, status, and duration.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// ─── RESPONSE HELPERS ─────────────────────────────────────────────────────────

// respond writes a JSON body with the given status code.
func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondErr writes a standard JSON error envelope.
func respondErr(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}

type validationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// respondFieldErrs writes a 400 listing the offending fields.
func respondFieldErrs(w http.ResponseWriter, fields map[string]string) {
	respond(w, http.StatusBadRequest, validationErrorResponse{Error: "validation failed", Fields: fields})
}

// respondInternalErr logs an unexpected error and returns a 500 to the client
// without leaking internal details.
func (s *Server) respondInternalErr(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("internal error",
		"error", err,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	)
	respondErr(w, http.StatusInternalServerError, "internal server error")
}

// logAndIgnoreEmailErr logs an email send error without surfacing it to the
// caller. Used where email failure must not fail the HTTP response.
func (s *Server) logAndIgnoreEmailErr(r *http.Request, err error, context string) {
	if err == nil {
		return
	}
	s.logger.Error("email send failed",
		"context", context,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
}

// ─── REQUEST PARSING HELPERS ─────────────────────────────────────────────────

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode JSON-decodes r.Body into dst. Returns false and writes 400 if the
// body is missing, malformed, or too large. Callers should return immediately
// on false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB max
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// decodeValid is decode followed by struct-tag validation.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decode(w, r, dst) {
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			respondErr(w, http.StatusBadRequest, "invalid request body")
			return false
		}
		respondFieldErrs(w, fieldErrors(verrs))
		return false
	}
	return true
}

func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return fields
}

// describe turns a validator tag into a short message for the client.
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid4", "uuid":
		return "must be a valid id"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

// urlUUID parses a UUID path parameter. Returns false and writes 400 on a
// malformed id.
func urlUUID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid "+key)
		return uuid.Nil, false
	}
	return id, true
}

// logField returns a slog.Attr using the request ID for correlation.
func logField(r *http.Request) slog.Attr {
	return slog.String("request_id", middleware.GetReqID(r.Context()))
}
