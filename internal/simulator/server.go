// Package simulator is an in-memory stand-in for the inventory analysis
// service. It speaks the same envelope and error codes as production, injects
// outages and review conflicts on demand, and is what the engine's
// integration tests and local development run against.
package simulator

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/stockpod/stockpodgo/internal/buildinfo"
	"github.com/stockpod/stockpodgo/internal/models"
)

// Server holds the simulated service state
type Server struct {
	router *mux.Router
	hub    *Hub
	log    *logrus.Entry

	mu               sync.Mutex
	runs             map[string]*models.InventoryAnalysisRun
	containerRuns    map[string][]string // container id -> run ids, oldest first
	sessionRuns      map[string]string   // session id -> run id
	unavailableUntil time.Time
	retryAfter       int
}

// NewServer creates an empty simulator
func NewServer(logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		router:        mux.NewRouter(),
		hub:           NewHub(logger),
		log:           logger.WithField("component", "simulator"),
		runs:          make(map[string]*models.InventoryAnalysisRun),
		containerRuns: make(map[string][]string),
		sessionRuns:   make(map[string]string),
	}

	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")
	s.router.HandleFunc("/v1/containers/{containerId}/inventory/latest", s.getLatest).Methods("GET")
	s.router.HandleFunc("/v1/containers/{containerId}/inventory/runs", s.listRuns).Methods("GET")
	s.router.HandleFunc("/v1/sessions/{sessionId}/inventory-delta", s.getBySession).Methods("GET")
	s.router.HandleFunc("/v1/inventory/{runId}/review", s.postReview).Methods("POST")
	s.router.HandleFunc("/ws/runs", s.hub.ServeWS).Methods("GET")

	return s
}

// Handler returns the HTTP handler for the simulated service
func (s *Server) Handler() http.Handler {
	return s.router
}

// SeedRun registers a run. Missing fields get defaults so tests stay short.
func (s *Server) SeedRun(run *models.InventoryAnalysisRun) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.Metadata.CreatedAt.IsZero() {
		run.Metadata.CreatedAt = time.Now().UTC()
	}
	s.runs[run.RunID] = run
	if run.ContainerID != "" {
		s.containerRuns[run.ContainerID] = append(s.containerRuns[run.ContainerID], run.RunID)
	}
	if run.SessionID != "" {
		s.sessionRuns[run.SessionID] = run.RunID
	}
	return run.RunID
}

// SetUnavailable makes every endpoint return 503 for the given window
func (s *Server) SetUnavailable(d time.Duration, retryAfterSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailableUntil = time.Now().Add(d)
	s.retryAfter = retryAfterSeconds
}

// AdvanceRun moves a run to a new status, optionally attaching a delta, the
// way the analysis pipeline would as it progresses
func (s *Server) AdvanceRun(runID string, status models.AnalysisStatus, d *models.RawDelta) bool {
	s.mu.Lock()
	run, ok := s.runs[runID]
	if ok {
		run.Status = status
		if d != nil {
			run.Delta = d
		}
		if status.Terminal() {
			now := time.Now().UTC()
			run.Metadata.CompletedAt = &now
		}
	}
	s.mu.Unlock()
	if ok {
		s.broadcast(run)
	}
	return ok
}

func (s *Server) healthCheck(w http.ResponseWriter, req *http.Request) {
	s.respondData(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"version":    buildinfo.Summary(),
		"started_at": buildinfo.StartTime,
	})
}

func (s *Server) getLatest(w http.ResponseWriter, req *http.Request) {
	if s.maybeUnavailable(w) {
		return
	}
	containerID := mux.Vars(req)["containerId"]

	s.mu.Lock()
	ids := s.containerRuns[containerID]
	var run *models.InventoryAnalysisRun
	if len(ids) > 0 {
		cp := *s.runs[ids[len(ids)-1]]
		run = &cp
	}
	s.mu.Unlock()

	if run == nil {
		s.respondError(w, http.StatusNotFound, models.CodeInventoryNotFound, "no analysis for container "+containerID, 0)
		return
	}
	s.respondData(w, http.StatusOK, run)
}

func (s *Server) getBySession(w http.ResponseWriter, req *http.Request) {
	if s.maybeUnavailable(w) {
		return
	}
	sessionID := mux.Vars(req)["sessionId"]

	s.mu.Lock()
	var run *models.InventoryAnalysisRun
	if r, ok := s.runs[s.sessionRuns[sessionID]]; ok {
		cp := *r
		run = &cp
	}
	s.mu.Unlock()

	if run == nil {
		s.respondError(w, http.StatusNotFound, models.CodeInventoryNotFound, "no analysis for session "+sessionID, 0)
		return
	}
	s.respondData(w, http.StatusOK, run)
}

func (s *Server) listRuns(w http.ResponseWriter, req *http.Request) {
	if s.maybeUnavailable(w) {
		return
	}
	containerID := mux.Vars(req)["containerId"]
	limit := queryInt(req, "limit", 20)
	offset := queryInt(req, "offset", 0)
	statusFilter := models.AnalysisStatus(req.URL.Query().Get("status"))

	s.mu.Lock()
	ids, known := s.containerRuns[containerID]
	var all []models.RunSummary
	// Newest first
	for i := len(ids) - 1; i >= 0; i-- {
		run := s.runs[ids[i]]
		if statusFilter != "" && run.Status != statusFilter {
			continue
		}
		all = append(all, models.RunSummary{
			RunID:       run.RunID,
			SessionID:   run.SessionID,
			ContainerID: run.ContainerID,
			Status:      run.Status,
			Reviewed:    run.Reviewed(),
			CreatedAt:   run.Metadata.CreatedAt,
			CompletedAt: run.Metadata.CompletedAt,
		})
	}
	s.mu.Unlock()

	if !known {
		s.respondError(w, http.StatusNotFound, models.CodeContainerNotFound, "unknown container "+containerID, 0)
		return
	}

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := models.RunPage{
		Runs: all[offset:end],
		Pagination: models.Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
		},
	}
	if page.Runs == nil {
		page.Runs = []models.RunSummary{}
	}
	s.respondData(w, http.StatusOK, page)
}

func (s *Server) postReview(w http.ResponseWriter, req *http.Request) {
	if s.maybeUnavailable(w) {
		return
	}
	runID := mux.Vars(req)["runId"]

	var body models.ReviewRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, models.CodeReviewInvalid, "malformed request body", 0)
		return
	}

	s.mu.Lock()
	run, ok := s.runs[runID]
	if !ok {
		s.mu.Unlock()
		s.respondError(w, http.StatusNotFound, models.CodeInventoryNotFound, "unknown run "+runID, 0)
		return
	}
	if run.Reviewed() {
		s.mu.Unlock()
		s.respondError(w, http.StatusConflict, models.CodeReviewConflict, "run already reviewed", 0)
		return
	}

	reviewer := body.Reviewer
	if reviewer == "" {
		reviewer = "operator"
	}
	rev := &models.Review{
		Reviewer:    reviewer,
		Action:      body.Action,
		Corrections: body.Corrections,
		Notes:       body.Notes,
		ReviewedAt:  time.Now().UTC(),
	}
	if err := rev.Validate(); err != nil {
		s.mu.Unlock()
		s.respondError(w, http.StatusBadRequest, models.CodeReviewInvalid, err.Error(), 0)
		return
	}

	run.Review = rev
	run.Status = models.StatusDone
	result := models.ReviewResult{RunID: run.RunID, Status: run.Status, Review: rev}
	s.mu.Unlock()

	s.broadcast(run)
	s.respondData(w, http.StatusOK, result)
}

func (s *Server) broadcast(run *models.InventoryAnalysisRun) {
	s.hub.Broadcast(RunEvent{
		Type:        "run_status",
		RunID:       run.RunID,
		ContainerID: run.ContainerID,
		Status:      run.Status,
		Reviewed:    run.Reviewed(),
		Timestamp:   time.Now().UTC(),
	})
}

// maybeUnavailable serves the injected outage window; reports true if it did
func (s *Server) maybeUnavailable(w http.ResponseWriter) bool {
	s.mu.Lock()
	down := time.Now().Before(s.unavailableUntil)
	retryAfter := s.retryAfter
	s.mu.Unlock()
	if !down {
		return false
	}
	if retryAfter <= 0 {
		retryAfter = 30
	}
	s.respondError(w, http.StatusServiceUnavailable, models.CodeServiceUnavailable, "service temporarily unavailable", retryAfter)
	return true
}

// respondData sends a success envelope
func (s *Server) respondData(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "INTERNAL", "failed to encode response", 0)
		return
	}
	writeJSON(w, status, models.Envelope{
		Success:   true,
		Data:      payload,
		Timestamp: time.Now().UTC(),
		RequestID: uuid.NewString(),
	})
}

// respondError sends an error envelope
func (s *Server) respondError(w http.ResponseWriter, status int, code, message string, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	writeJSON(w, status, models.Envelope{
		Success: false,
		Error: &models.ErrorBody{
			Code:              code,
			Message:           message,
			RetryAfterSeconds: retryAfterSeconds,
		},
		Timestamp: time.Now().UTC(),
		RequestID: uuid.NewString(),
	})
}

func writeJSON(w http.ResponseWriter, status int, env models.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

func queryInt(req *http.Request, key string, fallback int) int {
	if v := req.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
