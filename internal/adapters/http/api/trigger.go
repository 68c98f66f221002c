package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/gridelo/internal/adapters/mq/queue"
)

const minSeason = 1950

// TriggerDependencies defines the interface for requesting pipeline runs.
type TriggerDependencies interface {
	Trigger(ctx context.Context, source string, rebuild bool, startSeason int) (queue.Trigger, error)
}

// TriggerHandler handles manual run requests.
type TriggerHandler struct {
	deps TriggerDependencies
}

// NewTriggerHandler creates a new trigger handler.
func NewTriggerHandler(deps TriggerDependencies) *TriggerHandler {
	return &TriggerHandler{deps: deps}
}

// HandleForceUpdate handles POST /force-update[?rebuild=true&start_season=Y] requests.
func (h *TriggerHandler) HandleForceUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.force_update"
	q := r.URL.Query()

	rebuild := false
	if v := q.Get("rebuild"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		rebuild = b
	}

	startSeason := 0
	if v := q.Get("start_season"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minSeason {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, fmt.Errorf("start_season must be a year from %d", minSeason)))
			return
		}
		startSeason = n
	}

	t, err := h.deps.Trigger(r.Context(), queue.SourceManual, rebuild, startSeason)
	if err != nil {
		if isBackpressure(err) {
			writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
			return
		}
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusAccepted, triggerResponse{Status: "accepted", TriggerID: t.ID, Rebuild: rebuild})
}
