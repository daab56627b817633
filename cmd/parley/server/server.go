package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/TFMV/parley/cmd/parley/middleware"
	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
)

// Server exposes the conversation pipeline over HTTP.
type Server struct {
	app      *App
	sessions *Registry
	logger   zerolog.Logger
	http     *http.Server
}

// askRequest is the body of POST /v1/ask.
type askRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Utterance string `json:"utterance"`
}

// askResponse carries the payload plus the session id so callers without one
// can continue the conversation.
type askResponse struct {
	SessionID string                `json:"session_id"`
	Payload   *models.OutputPayload `json:"payload"`
}

// sessionRequest is the body of the approve, deny, and clear endpoints.
type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type payloadResponse struct {
	Payload *models.OutputPayload `json:"payload"`
}

type pendingResponse struct {
	Pending *models.PendingAction `json:"pending"`
}

type clearResponse struct {
	Cleared bool `json:"cleared"`
}

// New creates the HTTP server around a wired application.
func New(app *App, sessions *Registry) *Server {
	s := &Server{
		app:      app,
		sessions: sessions,
		logger:   app.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/ask", s.handleAsk)
	mux.HandleFunc("GET /v1/pending", s.handlePending)
	mux.HandleFunc("POST /v1/approve", s.handleApprove)
	mux.HandleFunc("POST /v1/deny", s.handleDeny)
	mux.HandleFunc("POST /v1/clear", s.handleClear)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	metricsPath := app.Config.Server.Metrics.Path
	if app.Config.Server.Metrics.Enabled {
		mux.Handle("GET "+metricsPath, promhttp.Handler())
	}

	logger := app.Logger
	recoverMW := middleware.NewRecoveryMiddleware(logger.With().Str("component", "recovery_middleware").Logger())
	authMW := middleware.NewAuthMiddleware(
		app.Config.Server.Auth,
		logger.With().Str("component", "auth_middleware").Logger(),
		"/healthz", metricsPath,
	)
	logMW := middleware.NewLoggingMiddleware(logger.With().Str("component", "logging_middleware").Logger())
	metricsMW := middleware.NewMetricsMiddleware(&middlewareMetricsAdapter{collector: app.Collector})

	handler := recoverMW.Handler(authMW.Handler(logMW.Handler(metricsMW.Handler(mux))))

	s.http = &http.Server{
		Addr:    app.Config.Server.Address,
		Handler: handler,
	}
	return s
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.http.Addr).
		Bool("auth", s.app.Config.Server.Auth.Enabled).
		Bool("metrics", s.app.Config.Server.Metrics.Enabled).
		Msg("Server listening")

	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the session sweep.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.Close()
	return s.http.Shutdown(ctx)
}

// Handler returns the full middleware-wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Utterance) == "" {
		writeJSONError(w, http.StatusBadRequest, "utterance is required")
		return
	}

	state, release := s.sessions.GetOrCreate(req.SessionID)
	defer release()

	payload, err := s.app.Conversation.ProcessUtterance(r.Context(), state, req.Utterance)
	if err != nil {
		writeJSONError(w, statusForError(err), errors.GetMessage(err))
		return
	}

	s.app.Collector.RecordGauge("active_sessions", float64(s.sessions.Len()))
	writeJSON(w, http.StatusOK, askResponse{SessionID: state.ID, Payload: payload})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	state, release, ok := s.sessions.Lookup(sessionID)
	if !ok {
		writeJSON(w, http.StatusOK, pendingResponse{})
		return
	}
	defer release()

	writeJSON(w, http.StatusOK, pendingResponse{Pending: s.app.Approval.Pending(state)})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.handleResolution(w, r, s.app.Approval.Approve)
}

func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	s.handleResolution(w, r, s.app.Approval.Deny)
}

// handleResolution runs approve or deny against the named session.
func (s *Server) handleResolution(w http.ResponseWriter, r *http.Request, resolve func(ctx context.Context, state *models.SessionState) *models.OutputPayload) {
	req, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}

	state, release := s.sessions.GetOrCreate(req.SessionID)
	defer release()

	writeJSON(w, http.StatusOK, payloadResponse{Payload: resolve(r.Context(), state)})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}

	state, release := s.sessions.GetOrCreate(req.SessionID)
	defer release()

	s.app.Approval.Clear(r.Context(), state)
	writeJSON(w, http.StatusOK, clearResponse{Cleared: true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Pool.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeSessionRequest parses and validates a session-scoped request body.
func decodeSessionRequest(w http.ResponseWriter, r *http.Request) (sessionRequest, bool) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.SessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id is required")
		return req, false
	}
	return req, true
}

// statusForError maps pipeline error codes to HTTP statuses.
func statusForError(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeClassifierUnavailable:
		return http.StatusServiceUnavailable
	case errors.CodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
