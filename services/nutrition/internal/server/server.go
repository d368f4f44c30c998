package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"nutrilog/internal/ratelimit"
	"nutrilog/internal/util"
	"nutrilog/pkg/metrics"
	"nutrilog/services/nutrition/internal/app"
)

const (
	defaultMaxUploadBytes = 10 * 1024 * 1024
	maxJSONBodyBytes      = 1 << 20
)

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	VerifySubject(ctx context.Context, token string) (string, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App      *app.App
	Verifier TokenVerifier
	// ExtractLimiter caps /api/extract per user; nil disables the cap.
	ExtractLimiter ratelimit.Limiter
	Metrics        *metrics.Metrics
	TrustedProxies *util.TrustedProxies
	MaxUploadBytes int64
	InternalToken  string
}

// Server exposes HTTP endpoints for the nutrition service.
type Server struct {
	app            *app.App
	verifier       TokenVerifier
	extractLimiter ratelimit.Limiter
	metrics        *metrics.Metrics
	trustedProxies *util.TrustedProxies
	maxUploadBytes int64
	internalToken  string
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	if cfg.Verifier == nil {
		return nil, errors.New("token verifier required")
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	s := &Server{
		app:            cfg.App,
		verifier:       cfg.Verifier,
		extractLimiter: cfg.ExtractLimiter,
		metrics:        cfg.Metrics,
		trustedProxies: cfg.TrustedProxies,
		maxUploadBytes: maxUpload,
		internalToken:  strings.TrimSpace(cfg.InternalToken),
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(s.trustedProxies, util.WithRequestLog("nutrition", util.WithSecurityHeaders(s.trustedProxies, util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", s.metrics.Handler())
	s.mux.Handle("/internal/users/", s.withInternal(s.handleInternalUser))

	s.mux.Handle("/api/extract", s.withUser(s.handleExtract))

	// meals
	s.mux.Handle("/api/meals", s.withUser(s.handleMeals))
	s.mux.Handle("/api/meals/", s.withUser(s.handleMealByID))

	// summaries
	s.mux.Handle("/api/summary/daily", s.withUser(s.handleDailySummary))
	s.mux.Handle("/api/summary/range", s.withUser(s.handleRangeSummary))
	s.mux.Handle("/api/summary/monthly", s.withUser(s.handleMonthlySummary))
	s.mux.Handle("/api/water", s.withUser(s.handleWater))

	// goals
	s.mux.Handle("/api/goals", s.withUser(s.handleGoals))
	s.mux.Handle("/api/goals/", s.withUser(s.handleGoalSubpath))

	// health profile
	s.mux.Handle("/api/allergies", s.withUser(s.handleAllergies))
	s.mux.Handle("/api/allergies/", s.withUser(s.handleAllergyByID))
	s.mux.Handle("/api/conditions", s.withUser(s.handleConditions))
	s.mux.Handle("/api/weight", s.withUser(s.handleWeight))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, err := s.verifier.VerifySubject(r.Context(), token)
		if err != nil {
			util.LoggerFromContext(r.Context()).Warn("token rejected", "path", r.URL.Path, "err", err)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r.WithContext(util.WithUserID(r.Context(), userID)), userID)
	})
}

func (s *Server) withInternal(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.internalToken == "" {
			writeError(w, http.StatusInternalServerError, "internal auth not configured")
			return
		}
		got := strings.TrimSpace(r.Header.Get("X-Internal-Token"))
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.internalToken)) != 1 {
			util.LoggerFromContext(r.Context()).Warn("internal token rejected", "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	})
}

// /internal/users/{id}
func (s *Server) handleInternalUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/internal/users/")
	if id == "" || strings.Contains(id, "/") {
		notFound(w, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.PurgeUser(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) allowExtract(w http.ResponseWriter, r *http.Request, userID string) bool {
	if s.extractLimiter == nil {
		return true
	}
	if s.extractLimiter.Allow(r.Context(), "extract|"+userID) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "too many extraction requests")
	return false
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCode(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

// writeAppError maps core errors onto HTTP statuses. Unexpected errors are
// logged and reported without their internal text.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     verr.Error(),
			Code:      "NUTRITION_INVALID_REQUEST",
			Field:     verr.Field,
			RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
		})
	case errors.Is(err, app.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNotFound):
		notFound(w, "not found")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func errorCode(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "internal auth not configured":
		return "SYSTEM_INTERNAL_ERROR"
	case message == "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case message == "file too large":
		return "NUTRITION_FILE_TOO_LARGE"
	case message == "invalid form data":
		return "NUTRITION_INVALID_UPLOAD_FORM"
	case message == "too many extraction requests":
		return "NUTRITION_RATE_LIMITED"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	}

	switch status {
	case http.StatusBadRequest:
		return "NUTRITION_INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusNotFound:
		return "NUTRITION_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "NUTRITION_FILE_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "NUTRITION_RATE_LIMITED"
	default:
		return "SYSTEM_INTERNAL_ERROR"
	}
}
