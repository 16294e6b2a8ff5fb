/*
handlers.go - HTTP handlers for the stage-runner API

PURPOSE:
  Exposes the pipeline runner over REST. Handles HTTP request/response,
  JSON serialization, and delegates to the pipeline package.

ARCHITECTURE:
  Handler holds the runner and a mutex: the pipeline stages share
  checkpoint files on disk, so only one stage may execute at a time.
  Concurrent run requests get 409 instead of racing each other's
  artifacts.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Unknown stage name
  - 409: A stage is already running, or the upstream checkpoint is
         missing (the caller must run the earlier stage first)
  - 500: Stage execution failures

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/voucher-engine/pipeline"
	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	runner *pipeline.Runner
	log    *zap.Logger

	mu       sync.Mutex
	running  bool
	statuses []pipeline.StageStatus
}

// NewHandler creates a new handler around the given runner.
func NewHandler(runner *pipeline.Runner, log *zap.Logger) *Handler {
	return &Handler{runner: runner, log: log}
}

// =============================================================================
// STAGE ENDPOINTS
// =============================================================================

// ListStages reports the pipeline order and which checkpoints exist.
func (h *Handler) ListStages(w http.ResponseWriter, r *http.Request) {
	present := h.runner.ArtifactStatus()
	stages := make([]StageDTO, 0, len(pipeline.Stages()))
	for _, s := range pipeline.Stages() {
		stages = append(stages, StageDTO{
			Name:     string(s),
			Artifact: present[s],
		})
	}
	writeJSON(w, http.StatusOK, stages)
}

// RunStage executes a single named stage.
func (h *Handler) RunStage(w http.ResponseWriter, r *http.Request) {
	stage := pipeline.Stage(chi.URLParam(r, "stage"))
	if !knownStage(stage) {
		writeError(w, http.StatusBadRequest, "Unknown stage", nil)
		return
	}
	if !h.acquire() {
		writeError(w, http.StatusConflict, "A stage is already running", nil)
		return
	}
	defer h.release()

	status, err := h.runner.RunStage(r.Context(), stage)
	h.record(status)
	if err != nil {
		if errors.Is(err, voucher.ErrArtifactMissing) {
			writeError(w, http.StatusConflict, "Upstream checkpoint missing, run the earlier stage first", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Stage failed", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// RunAll executes the whole pipeline in order.
func (h *Handler) RunAll(w http.ResponseWriter, r *http.Request) {
	if !h.acquire() {
		writeError(w, http.StatusConflict, "A stage is already running", nil)
		return
	}
	defer h.release()

	statuses, err := h.runner.RunAll(r.Context())
	for _, s := range statuses {
		h.record(s)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, RunResponse{
			Statuses: statuses,
			Error:    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Statuses: statuses})
}

// ListStatuses returns the stage statuses recorded by this process.
func (h *Handler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	out := make([]pipeline.StageStatus, len(h.statuses))
	copy(out, h.statuses)
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return false
	}
	h.running = true
	return true
}

func (h *Handler) release() {
	h.mu.Lock()
	h.running = false
	h.mu.Unlock()
}

func (h *Handler) record(s pipeline.StageStatus) {
	h.mu.Lock()
	h.statuses = append(h.statuses, s)
	h.mu.Unlock()
}

func knownStage(s pipeline.Stage) bool {
	for _, known := range pipeline.Stages() {
		if s == known {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
