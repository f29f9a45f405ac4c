package ops

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/austindbirch/taskpulse/internal/auth"
	"github.com/austindbirch/taskpulse/internal/health"
	"github.com/austindbirch/taskpulse/internal/listener"
	"github.com/austindbirch/taskpulse/internal/logging"
	"github.com/austindbirch/taskpulse/internal/pipeline"
	"github.com/austindbirch/taskpulse/internal/queue"
	"github.com/austindbirch/taskpulse/internal/template"
)

// Server exposes the pipeline's operational surface: status, ad-hoc
// enqueueing, job inspection, log queries, and manual transitions.
type Server struct {
	manager  *pipeline.Manager
	queue    *queue.Queue
	listener *listener.Listener
	log      *logging.Logger
	pool     *pgxpool.Pool
	registry *prometheus.Registry
	auth     *auth.JWTValidator // nil disables auth
}

func NewServer(m *pipeline.Manager, q *queue.Queue, l *listener.Listener, log *logging.Logger, pool *pgxpool.Pool, reg *prometheus.Registry, validator *auth.JWTValidator) *Server {
	return &Server{
		manager:  m,
		queue:    q,
		listener: l,
		log:      log,
		pool:     pool,
		registry: reg,
		auth:     validator,
	}
}

// Router builds the ops HTTP handler
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	if s.auth != nil {
		r.Use(s.auth.HTTPMiddleware)
	}

	r.Get("/healthz", health.HTTPHandler(s.pool, s.manager.Status))
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/pipeline/status", s.handlePipelineStatus)
		r.Post("/pipeline/errors/clear", s.handleClearErrors)
		r.Post("/jobs", s.handleEnqueue)
		r.Get("/jobs/stats", s.handleJobStats)
		r.Get("/jobs/{id}", s.handleJobStatus)
		r.Post("/jobs/{id}/cancel", s.handleJobCancel)
		r.Get("/logs", s.handleLogs)
		r.Post("/transitions", s.handleTransition)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Status())
}

func (s *Server) handleClearErrors(w http.ResponseWriter, r *http.Request) {
	s.manager.ClearErrors()
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

type enqueueRequest struct {
	Kind       string         `json:"kind"`
	Input      template.Input `json:"input"`
	Recipients []string       `json:"recipients"`
	Priority   string         `json:"priority,omitempty"`
	MaxRetries int            `json:"max_retries,omitempty"`
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if bad := template.ValidateInput(req.Input); len(bad) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid input fields: " + strings.Join(bad, ", ")})
		return
	}

	jobID := s.queue.Enqueue(template.Kind(req.Kind), req.Input, req.Recipients, queue.Options{
		Priority:   queue.Priority(req.Priority),
		MaxRetries: req.MaxRetries,
	})
	if jobID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no recipients"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.Stats())
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.queue.Job(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.queue.Job(id); !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "job not found"})
		return
	}
	if !s.queue.Cancel(id) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "job is no longer pending"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	level := logging.Level(r.URL.Query().Get("level"))
	jobID := r.URL.Query().Get("job_id")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": s.log.Query(level, limit, jobID),
		"stats":   s.log.Stats(),
	})
}

type transitionRequest struct {
	TaskID    string `json:"task_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Actor     string `json:"actor"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.TaskID == "" || req.OldStatus == "" || req.NewStatus == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "task_id, old_status, and new_status are required"})
		return
	}

	jobID, err := s.listener.RunManualTransition(r.Context(), req.TaskID, req.OldStatus, req.NewStatus, req.Actor)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}
