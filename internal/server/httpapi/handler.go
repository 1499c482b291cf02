// Package httpapi is the public HTTP surface of the authentication server.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/dmitrijs2005/honeykeeper/internal/netx"
	"github.com/dmitrijs2005/honeykeeper/internal/server/auth"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Authenticator interface {
	Authenticate(ctx context.Context, at auth.Attempt) (*models.User, error)
}

type TokenService interface {
	IssueToken(userID string) (string, error)
	UserIDFromToken(token string) (string, error)
}

type loginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}

type ctxKey string

const userIDKey ctxKey = "userID"

type Handler struct {
	auth    Authenticator
	tokens  TokenService
	metrics http.Handler
	logger  logging.Logger
}

// NewHandler builds the API. metrics may be nil, which drops /metrics.
func NewHandler(a Authenticator, tokens TokenService, metrics http.Handler, logger logging.Logger) *Handler {
	return &Handler{auth: a, tokens: tokens, metrics: metrics, logger: logger.With("module", "httpapi")}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.With(h.requireToken).Get("/me", h.handleMe)
	})
	return r
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<14))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil || req.UserName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request"})
		return
	}

	user, err := h.auth.Authenticate(r.Context(), auth.Attempt{
		UserName:  req.UserName,
		Password:  req.Password,
		IPAddress: netx.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		return
	}

	token, err := h.tokens.IssueToken(user.ID)
	if err != nil {
		h.logger.Error(r.Context(), "token issue failed", "user_id", user.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{UserID: user.ID, AccessToken: token})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(userIDKey).(string)
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID})
}

func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "missing token"})
			return
		}
		userID, err := h.tokens.UserIDFromToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
