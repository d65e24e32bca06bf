// File: internal/service/server.go
// Description: The HTTP shell over the session service. It exposes session
// start / status / cancel plus a liveness endpoint, speaks JSON with a
// uniform error envelope, and drains in-flight requests on shutdown.

package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
	"github.com/xkilldash9x/pilot-cli/internal/config"
	"github.com/xkilldash9x/pilot-cli/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server serves the session API. All state lives in the injected
// SessionService; the server itself only translates HTTP to service calls.
type Server struct {
	cfg      config.ServerConfig
	sessions schemas.SessionService
	logger   *zap.Logger
	httpSrv  *http.Server
}

// NewServer builds the HTTP shell around a session service.
func NewServer(cfg config.ServerConfig, sessions schemas.SessionService, logger *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger.Named("http"),
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Routes builds the router. Exposed so tests can drive handlers through
// httptest without binding a socket.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", s.handleStartSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.handleSessionStatus).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/cancel", s.handleCancelSession).Methods(http.MethodPost)
	return r
}

// ListenAndServe runs the server until ctx is canceled, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("HTTP shell listening.", zap.String("address", s.cfg.Address))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx := context.Background()
		if s.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.cfg.ShutdownTimeout)
			defer cancel()
		}
		s.logger.Info("Draining HTTP shell.")
		return s.httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleStartSession accepts a session request and replies as soon as the
// loop is provisioned; the caller polls for progress.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req schemas.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", map[string]string{"error": err.Error()})
		return
	}

	id, err := s.sessions.Start(r.Context(), req)
	if err != nil {
		s.writeStartError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, schemas.StartSessionResponse{
		SessionID: id,
		Status:    schemas.StatusActive,
	})
}

// writeStartError maps session-start failures onto status codes: invalid
// input 400, capacity and provisioning failures 503.
func (s *Server) writeStartError(w http.ResponseWriter, err error) {
	var pe *schemas.ProvisioningError
	switch {
	case errors.Is(err, session.ErrEmptyCommand):
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, session.ErrTooManySessions):
		s.writeError(w, http.StatusServiceUnavailable, err.Error(), nil)
	case errors.As(err, &pe):
		s.writeError(w, http.StatusServiceUnavailable, "session provisioning failed", map[string]string{"error": pe.Cause.Error()})
	default:
		s.logger.Error("Unexpected error starting session.", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to start session", nil)
	}
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	status, err := s.sessions.Status(id)
	if err != nil {
		if errors.Is(err, schemas.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, "session not found", map[string]string{"session_id": id})
			return
		}
		s.logger.Error("Unexpected error reading session status.", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to read session status", nil)
		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

// handleCancelSession requests a cooperative stop. The session keeps running
// until its in-flight step completes, so the reply carries whatever status
// the session holds at the time of the call.
func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.sessions.Cancel(id); err != nil {
		if errors.Is(err, schemas.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, "session not found", map[string]string{"session_id": id})
			return
		}
		s.logger.Error("Unexpected error canceling session.", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to cancel session", nil)
		return
	}

	resp := schemas.StartSessionResponse{SessionID: id, Status: schemas.StatusActive}
	if status, err := s.sessions.Status(id); err == nil {
		resp.Status = status.Status
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to encode response body.", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string, data map[string]string) {
	s.writeJSON(w, statusCode, schemas.ErrorEnvelope{Message: message, Data: data})
}

// logRequests logs one line per handled request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Handled request.",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}
