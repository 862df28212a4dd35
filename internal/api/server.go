// Package api exposes the queue, schema, and statistics surface over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"jobswipe-core/internal/classifier"
	"jobswipe-core/internal/config"
	"jobswipe-core/internal/models"
	"jobswipe-core/internal/queue"
	"jobswipe-core/internal/ratelimit"
	"jobswipe-core/internal/stats"
	"jobswipe-core/internal/store"
	"jobswipe-core/internal/telemetry"
)

// Server wires HTTP handlers for the swipe-to-apply API.
type Server struct {
	cfg     config.Config
	store   *store.Store
	manager *queue.Manager
	stats   *stats.Aggregator
	schemas *classifier.Builder
	limiter *ratelimit.SwipeLimiter
}

// New constructs the API server. Limiter may be nil in tests.
func New(cfg config.Config, st *store.Store, m *queue.Manager, ag *stats.Aggregator, sb *classifier.Builder, limiter *ratelimit.SwipeLimiter) *Server {
	return &Server{
		cfg:     cfg,
		store:   st,
		manager: m,
		stats:   ag,
		schemas: sb,
		limiter: limiter,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Post("/applications", s.handleEnqueue)
	r.Get("/applications", s.handleList)
	r.Get("/applications/{id}", s.handleGet)
	r.Post("/applications/{id}/actions", s.handleAction)

	r.Get("/stats", s.handleStats)

	r.Post("/jobs/{id}/schema", s.handleBuildSchema)
	r.Get("/schemas/{id}", s.handleGetSchema)

	// Automation workers report lifecycle transitions back here and read the
	// profile attributes they substitute into deterministic fields.
	r.Post("/worker/applications/{id}/started", s.handleWorkerStarted)
	r.Post("/worker/applications/{id}/outcome", s.handleWorkerOutcome)
	r.Get("/worker/users/{id}/profile", s.handleWorkerProfile)

	return r
}

type enqueueRequest struct {
	JobID            string            `json:"job_id"`
	PriorityHint     int               `json:"priority_hint"`
	ResumeOverride   *string           `json:"resume_override"`
	CoverLetter      *string           `json:"cover_letter"`
	AutomationConfig map[string]string `json:"automation_config"`
	Surface          string            `json:"surface"`
	Device           string            `json:"device"`
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	userID := userFromRequest(r)
	if userID == "" {
		writeError(w, models.NewError(models.CodeValidation, "X-User-ID header is required"))
		return
	}

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewError(models.CodeValidation, "invalid json"))
		return
	}

	if s.limiter != nil {
		d, err := s.limiter.Allow(r.Context(), userID)
		if err != nil {
			writeError(w, fmt.Errorf("rate limit: %w", err))
			return
		}
		if !d.Allowed {
			telemetry.RateLimitRejects.Inc()
			if d.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())+1))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
	}

	res, err := s.manager.Enqueue(r.Context(), queue.EnqueueParams{
		UserID:           userID,
		JobID:            req.JobID,
		PriorityHint:     req.PriorityHint,
		ResumeOverride:   req.ResumeOverride,
		CoverLetter:      req.CoverLetter,
		AutomationConfig: req.AutomationConfig,
		Source: models.EnqueueSource{
			Surface:   req.Surface,
			Device:    req.Device,
			UserAgent: r.UserAgent(),
			IP:        r.RemoteAddr,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	userID := userFromRequest(r)
	if userID == "" {
		writeError(w, models.NewError(models.CodeValidation, "X-User-ID header is required"))
		return
	}

	f := store.ListFilter{Status: models.Status(r.URL.Query().Get("status"))}
	if v := r.URL.Query().Get("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		f.Offset, _ = strconv.Atoi(v)
	}

	apps, err := s.manager.List(r.Context(), userID, f)
	if err != nil {
		writeError(w, err)
		return
	}
	if apps == nil {
		apps = []models.Application{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	userID := userFromRequest(r)
	detail, err := s.manager.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type actionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	userID := userFromRequest(r)
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewError(models.CodeValidation, "invalid json"))
		return
	}

	app, err := s.manager.Apply(r.Context(), userID, chi.URLParam(r, "id"), req.Action, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, err := s.stats.Summarize(r.Context(), userFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type buildSchemaRequest struct {
	Fields []models.FormField `json:"fields"`
}

// handleBuildSchema classifies freshly scraped form fields into a new schema
// version for the job.
func (s *Server) handleBuildSchema(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	var req buildSchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewError(models.CodeValidation, "invalid json"))
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, models.NewError(models.CodeValidation, "fields must not be empty"))
		return
	}

	job, company, err := s.store.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewError(models.CodeJobNotFound, "job %s does not exist", jobID))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	version, err := s.store.NextSchemaVersion(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}

	schema, err := s.schemas.Build(r.Context(), job, company, version, req.Fields)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.SaveSchema(r.Context(), schema); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, schema)
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.store.GetSchema(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewError(models.CodeAppNotFound, "schema %s not found", chi.URLParam(r, "id")))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (s *Server) handleWorkerStarted(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ReportStarted(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWorkerOutcome(w http.ResponseWriter, r *http.Request) {
	var report queue.OutcomeReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, models.NewError(models.CodeValidation, "invalid json"))
		return
	}
	report.ApplicationID = chi.URLParam(r, "id")
	if err := s.manager.ReportOutcome(r.Context(), report); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWorkerProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	profile, err := s.store.GetProfile(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, models.NewError(models.CodeAppNotFound, "profile for user %s not found", userID))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func userFromRequest(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// httpStatus maps the error taxonomy onto HTTP status codes.
func httpStatus(code models.ErrorCode) int {
	switch code {
	case models.CodeValidation:
		return http.StatusBadRequest
	case models.CodeDuplicate, models.CodeInvalidAction, models.CodeMaxAttemptsReached:
		return http.StatusConflict
	case models.CodeJobNotFound, models.CodeAppNotFound:
		return http.StatusNotFound
	case models.CodeJobInactive:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Code    models.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := models.CodeOf(err)
	body := errorBody{Code: code, Message: "internal error"}
	var ce *models.CodedError
	if errors.As(err, &ce) {
		body.Message = ce.Message
	} else {
		// Internal detail stays in the logs.
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, httpStatus(code), map[string]errorBody{"error": body})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
