package api

import (
	"context"
	"net/http"

	"github.com/okian/gridelo/internal/domain/identity"
)

// SuspectsDependencies lists possible identity splits.
type SuspectsDependencies interface {
	Suspects(ctx context.Context) ([]identity.Suspect, error)
}

// SuspectsHandler handles identity suspect requests.
type SuspectsHandler struct {
	deps SuspectsDependencies
}

// NewSuspectsHandler creates a new suspects handler.
func NewSuspectsHandler(deps SuspectsDependencies) *SuspectsHandler {
	return &SuspectsHandler{deps: deps}
}

// HandleSuspects handles GET /identities/suspects requests.
func (h *SuspectsHandler) HandleSuspects(w http.ResponseWriter, r *http.Request) {
	const op = "api.suspects"
	suspects, err := h.deps.Suspects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if suspects == nil {
		suspects = []identity.Suspect{}
	}
	writeJSON(w, http.StatusOK, suspects)
}
