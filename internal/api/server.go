package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/pubmed-pdf-resolver/internal/jobs"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/metrics"
)

// Submitter hands a stored job to the background runners.
type Submitter interface {
	Submit(ctx context.Context, jobID string) error
}

// Options tunes server behavior.
type Options struct {
	// RequestTimeout bounds each request; zero disables the limit.
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the job store, dispatcher, and resolver.
type Server struct {
	router    chi.Router
	store     jobs.Store
	submitter Submitter
	resolver  jobs.Resolver
	logger    *zap.Logger
	ready     atomic.Bool
}

// NewServer constructs a Server with middleware and routes. The server
// starts ready.
func NewServer(
	store jobs.Store,
	submitter Submitter,
	res jobs.Resolver,
	opts Options,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:     store,
		submitter: submitter,
		resolver:  res,
		logger:    logger.Named("api"),
	}
	s.ready.Store(true)

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	if opts.RequestTimeout > 0 {
		r.Use(timeoutMiddleware(opts.RequestTimeout))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.createJob)
		r.Get("/", s.listJobs)
		r.Get("/{job_id}", s.getJob)
	})
	r.Post("/resolve", s.resolveOne)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetReady toggles the readiness probe, e.g. while draining on shutdown.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

type createJobRequest struct {
	URLs []string `json:"urls"`
}

type createJobResponse struct {
	ID string `json:"id"`
}

type jobResponse struct {
	jobs.Job
	Summary jobs.Summary `json:"summary"`
}

type jobListEntry struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	State     jobs.State   `json:"state"`
	Summary   jobs.Summary `json:"summary"`
}

type resolveRequest struct {
	URL string `json:"url"`
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validateURLs(req.URLs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.store.Create(r.Context(), req.URLs)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrNoURLs) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	log := s.logger.With(zap.String("job_id", job.ID))

	if err := s.submitter.Submit(r.Context(), job.ID); err != nil {
		log.Error("job submission failed", zap.Error(err))
		s.abandonJob(r.Context(), job, fmt.Sprintf("job could not be scheduled: %v", err))
		writeError(w, http.StatusServiceUnavailable, "job could not be scheduled")
		return
	}
	log.Info("job submitted", zap.Int("items", len(job.Items)))
	writeJSON(w, http.StatusCreated, createJobResponse{ID: job.ID})
}

// abandonJob fails every item of a job that never reached a runner, so the
// stored job still ends in a terminal state.
func (s *Server) abandonJob(ctx context.Context, job jobs.Job, reason string) {
	for _, item := range job.Items {
		s.store.UpdateItem(ctx, job.ID, item.URL, jobs.ItemFailed, "", reason)
	}
	s.store.SetState(ctx, job.ID, jobs.StateFailed)
	metrics.ObserveJob(string(jobs.StateFailed))
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	all := s.store.List(r.Context())
	out := make([]jobListEntry, 0, len(all))
	for _, job := range all {
		out = append(out, jobListEntry{
			ID:        job.ID,
			CreatedAt: job.CreatedAt,
			State:     job.State,
			Summary:   job.Summary(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.store.Get(r.Context(), chi.URLParam(r, "job_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{Job: job, Summary: job.Summary()})
}

func (s *Server) resolveOne(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	writeJSON(w, http.StatusOK, s.resolver.Resolve(r.Context(), req.URL))
}

// validateURLs only checks URL shape. Foreign hosts are accepted here and
// fail per item during resolution.
func validateURLs(raw []string) error {
	if len(raw) == 0 {
		return errors.New("urls required")
	}
	for i, candidate := range raw {
		parsed, err := url.Parse(candidate)
		if err != nil || !parsed.IsAbs() || parsed.Host == "" {
			return fmt.Errorf("urls[%d]: not an absolute URL", i)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("urls[%d]: scheme must be http or https", i)
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
