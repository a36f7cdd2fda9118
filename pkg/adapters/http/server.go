// Package http exposes a convo.Bot as a JSON webhook API.
//
// Routes:
//
//	POST   /v1/sessions/{id}/turns    {"script": "...", "text": "..."}
//	POST   /v1/sessions/{id}/cancel
//	GET    /v1/sessions/{id}
//	DELETE /v1/sessions/{id}
//	GET    /v1/sessions/{id}/events   (SSE, when a StreamManager is set)
//	GET    /v1/scripts
//	GET    /health
//	GET    /metrics                   (when a Prometheus gatherer is set)
//	GET    /openapi.yaml
//
// Requests to /v1 are validated against the embedded OpenAPI document before
// they reach the Bot. Error bodies are generic; the underlying error is only
// logged.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/convo"
	"github.com/aretw0/convo/pkg/adapters/file"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/runner"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodySize bounds request bodies; replies are limited further by the sanitizer.
const maxBodySize = 64 << 10

// Bot is the part of convo.Bot served over HTTP.
type Bot interface {
	HandleTurn(ctx context.Context, sessionID, scriptID, text string) (*convo.TurnResult, error)
	Cancel(ctx context.Context, sessionID string) (*convo.TurnResult, error)
	Session(ctx context.Context, sessionID string) (*domain.State, error)
	Delete(ctx context.Context, sessionID string) error
	Scripts() []string
}

var _ Bot = (*convo.Bot)(nil)

// Server holds the handlers' dependencies.
type Server struct {
	bot           Bot
	logger        *slog.Logger
	streams       *StreamManager
	gatherer      prometheus.Gatherer
	defaultScript string
	cors          bool
	spec          *openapi3.T
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger receiving request errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStreams enables the SSE endpoint. The same StreamManager must be the
// Bot's transport for messages to reach subscribers.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.streams = sm
	}
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithDefaultScript is started for turns that name no script.
func WithDefaultScript(id string) Option {
	return func(s *Server) {
		s.defaultScript = id
	}
}

// WithCORS allows cross-origin browser clients.
func WithCORS(enabled bool) Option {
	return func(s *Server) {
		s.cors = enabled
	}
}

// NewHandler creates the HTTP handler for bot. It panics if the embedded
// OpenAPI document does not load.
func NewHandler(bot Bot, opts ...Option) http.Handler {
	doc, err := GetSpec()
	if err != nil {
		panic(err)
	}
	s := &Server{bot: bot, logger: slog.Default(), spec: doc}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.cors {
		r.Use(enableCORS)
	}

	r.Get("/health", s.health)
	r.Get("/openapi.yaml", s.serveSpec)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		v := r.With(s.validate)
		v.Get("/scripts", s.listScripts)
		r.Route("/sessions/{id}", func(r chi.Router) {
			v := r.With(s.validate)
			v.Get("/", s.getSession)
			v.Delete("/", s.deleteSession)
			v.Post("/turns", s.handleTurn)
			v.Post("/cancel", s.cancel)
			if s.streams != nil {
				v.Get("/events", s.subscribeEvents)
			}
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TurnRequest is the body of POST /v1/sessions/{id}/turns.
type TurnRequest struct {
	Script string `json:"script,omitempty"`
	Text   string `json:"text"`
}

// TurnResponse reports the messages of one turn.
type TurnResponse struct {
	SessionID string           `json:"session_id"`
	ScriptID  string           `json:"script_id"`
	Messages  []domain.Message `json:"messages"`
	Completed bool             `json:"completed"`
	Outcome   string           `json:"outcome,omitempty"`
	Result    string           `json:"result,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listScripts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"scripts": s.bot.Scripts()})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid session id", err)
		return
	}
	var body TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	text, err := runner.SanitizeInput(body.Text)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid text", err)
		return
	}
	scriptID := body.Script
	if scriptID == "" {
		scriptID = s.defaultScript
	}

	res, err := s.bot.HandleTurn(r.Context(), id, scriptID, text)
	if err != nil {
		s.failTurn(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid session id", err)
		return
	}
	res, err := s.bot.Cancel(r.Context(), id)
	if err != nil {
		s.failTurn(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid session id", err)
		return
	}
	state, err := s.bot.Session(r.Context(), id)
	if err != nil {
		s.failTurn(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid session id", err)
		return
	}
	if err := s.bot.Delete(r.Context(), id); err != nil {
		s.failTurn(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toResponse(res *convo.TurnResult) TurnResponse {
	resp := TurnResponse{Messages: res.Messages, Completed: res.Completed()}
	if resp.Messages == nil {
		resp.Messages = []domain.Message{}
	}
	if res.State != nil {
		resp.SessionID = res.State.SessionID
		resp.ScriptID = res.State.Active().ScriptID
		resp.Outcome = res.State.Active().Outcome()
		resp.Result = res.Result()
	}
	return resp
}

// failTurn maps domain errors to status codes with fixed messages.
func (s *Server) failTurn(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, convo.ErrInvalidSessionID), errors.Is(err, file.ErrInvalidSessionID):
		s.fail(w, r, http.StatusBadRequest, "invalid session id", err)
	case errors.Is(err, domain.ErrSessionNotFound):
		s.fail(w, r, http.StatusNotFound, "session not found", err)
	case errors.Is(err, domain.ErrScriptNotFound):
		s.fail(w, r, http.StatusNotFound, "script not found", err)
	case errors.Is(err, domain.ErrDialogCompleted):
		s.fail(w, r, http.StatusConflict, "dialog already completed", err)
	case errors.Is(err, context.Canceled):
		s.fail(w, r, 499, "request canceled", err)
	default:
		s.fail(w, r, http.StatusInternalServerError, "internal error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	reqID := middleware.GetReqID(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"request_id", reqID,
		"error", err,
	)
	writeJSON(w, status, ErrorResponse{Error: msg, RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
