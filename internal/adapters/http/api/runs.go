package api

import (
	"net/http"

	"github.com/okian/gridelo/internal/domain/model"
)

// RunsDependencies exposes the most recent pipeline run.
type RunsDependencies interface {
	LastRun() (model.RunReport, bool)
}

// RunsHandler handles run report requests.
type RunsHandler struct {
	deps RunsDependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps RunsDependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

// HandleLastRun handles GET /runs/last requests; 404 until a run finished.
func (h *RunsHandler) HandleLastRun(w http.ResponseWriter, _ *http.Request) {
	const op = "api.last_run"
	report, ok := h.deps.LastRun()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
