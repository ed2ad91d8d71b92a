package simd

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoSim-25-26J-441/sbi-core/internal/metrics"
	"github.com/GoSim-25-26J-441/sbi-core/pkg/logger"
)

const maxRequestBytes = 8 << 20

type HTTPServer struct {
	router   chi.Router
	service  *Service
	jobs     *JobStore
	Executor *JobExecutor
}

func NewHTTPServer(service *Service, jobs *JobStore, executor *JobExecutor) *HTTPServer {
	s := &HTTPServer{
		router:   chi.NewRouter(),
		service:  service,
		jobs:     jobs,
		Executor: executor,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler(service.Metrics()))

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/task", s.handleTask)
		r.Post("/prior:sample", s.handleSamplePrior)
		r.Post("/simulator:run", s.handleSimulate)
		r.Post("/reference-posterior:sample", s.handleSampleReference)

		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		// chi params end at '/', so "{id}" also captures an ":action" suffix.
		r.Post("/jobs/{id}", s.handleJobAction)

		r.Get("/observations/{num}", s.handleGetObservation)
	})

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleTask handles GET /v1/task
func (s *HTTPServer) handleTask(w http.ResponseWriter, _ *http.Request) {
	t := s.service.Task()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"metadata":              t.Metadata(),
		"config":                t.Config(),
		"remaining_simulations": s.service.Simulator().Remaining(),
	})
}

// handleSamplePrior handles POST /v1/prior:sample
func (s *HTTPServer) handleSamplePrior(w http.ResponseWriter, r *http.Request) {
	var req PriorRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.service.SamplePrior(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleSimulate handles POST /v1/simulator:run
func (s *HTTPServer) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.service.Simulate(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleSampleReference handles POST /v1/reference-posterior:sample
func (s *HTTPServer) handleSampleReference(w http.ResponseWriter, r *http.Request) {
	var req ReferenceRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.service.SampleReference(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCreateJob handles POST /v1/jobs: the job is created and started.
func (s *HTTPServer) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID          string            `json:"job_id,omitempty"`
		Request        *ReferenceRequest `json:"request"`
		CallbackURL    string            `json:"callback_url,omitempty"`
		CallbackSecret string            `json:"callback_secret,omitempty"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Request == nil {
		s.writeError(w, http.StatusBadRequest, "request is required")
		return
	}
	if req.CallbackURL != "" {
		if err := validateCallbackURL(req.CallbackURL); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	rec, err := s.jobs.Create(req.JobID, *req.Request, Callback{URL: req.CallbackURL, Secret: req.CallbackSecret})
	if err != nil {
		if errors.Is(err, ErrJobExists) {
			s.writeError(w, http.StatusConflict, err.Error())
		} else {
			s.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	started, err := s.Executor.Start(rec.Job.ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	logger.Info("job created (HTTP)", "job_id", rec.Job.ID)
	s.writeJSON(w, http.StatusCreated, map[string]any{"job": started.Job})
}

// handleListJobs handles GET /v1/jobs with pagination and filtering
func (s *HTTPServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = min(parsed, 1000)
		}
	}
	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	var statusFilter JobStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		st, ok := ParseJobStatus(statusStr)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status: "+statusStr)
			return
		}
		statusFilter = st
	}

	recs := s.jobs.List(limit, offset, statusFilter)
	jobs := make([]Job, 0, len(recs))
	for _, rec := range recs {
		jobs = append(jobs, rec.Job)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"jobs": jobs,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(jobs),
		},
	})
}

// handleGetJob handles GET /v1/jobs/{id}
func (s *HTTPServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.jobs.Get(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleJobAction handles POST /v1/jobs/{id}:stop
func (s *HTTPServer) handleJobAction(w http.ResponseWriter, r *http.Request) {
	id, action, ok := strings.Cut(chi.URLParam(r, "id"), ":")
	if !ok || action != "stop" {
		s.writeError(w, http.StatusNotFound, "unknown job action")
		return
	}

	updated, err := s.Executor.Stop(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	logger.Info("job cancelled (HTTP)", "job_id", id)
	s.writeJSON(w, http.StatusOK, map[string]any{"job": updated.Job})
}

// handleGetObservation handles GET /v1/observations/{num}
func (s *HTTPServer) handleGetObservation(w http.ResponseWriter, r *http.Request) {
	num, err := strconv.Atoi(chi.URLParam(r, "num"))
	if err != nil || num < 1 {
		s.writeError(w, http.StatusBadRequest, "observation number must be a positive integer")
		return
	}
	resp, err := s.service.Observation(r.Context(), num)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// Helper functions

func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "status", code, "error", err)
	}
	s.writeError(w, code, err.Error())
}
