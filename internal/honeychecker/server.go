package honeychecker

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
	"github.com/dmitrijs2005/honeykeeper/internal/logging"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// Server exposes a Store over the honeychecker wire protocol.
type Server struct {
	store   Store
	limiter *rate.Limiter
	logger  logging.Logger
}

// NewServer builds a server. A nil limiter disables throttling.
func NewServer(store Store, limiter *rate.Limiter, logger logging.Logger) *Server {
	return &Server{store: store, limiter: limiter, logger: logger.With("module", "honeychecker")}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.throttle)
		r.Post("/set", s.handleSet)
		r.Post("/verify", s.handleVerify)
	})
	return r
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"detail": "rate limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if err := decode(r, &req); err != nil || req.UserID == "" || req.RealIndex < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request"})
		return
	}

	if err := s.store.Upsert(r.Context(), req.UserID, req.RealIndex); err != nil {
		s.logger.Error(r.Context(), "set failed", "user_id", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(r, &req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request"})
		return
	}

	idx, err := s.store.RealIndex(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User not found"})
			return
		}
		s.logger.Error(r.Context(), "verify failed", "user_id", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{IsReal: idx == req.CandidateIndex})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<12))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
