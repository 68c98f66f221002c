package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/gridelo/internal/domain/model"
)

// RatingsDependencies defines the interface for rating reads.
type RatingsDependencies interface {
	Ranking(ctx context.Context) (model.Ranking, error)
	Rating(ctx context.Context, id string) (model.Standing, error)
}

// RatingsHandler handles ranking requests.
type RatingsHandler struct {
	deps     RatingsDependencies
	maxLimit int
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps RatingsDependencies, maxLimit int) *RatingsHandler {
	return &RatingsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleList handles GET /ratings?limit=N requests. Without limit the first
// maxLimit entries are returned.
func (h *RatingsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_ratings"
	n := h.maxLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
	}

	ranking, err := h.deps.Ranking(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	standings := ranking.Standings
	if len(standings) > n {
		standings = standings[:n]
	}
	if standings == nil {
		standings = []model.Standing{}
	}

	resp := ratingsResponse{
		Updated: ranking.Updated,
		Count:   len(ranking.Standings),
		Ratings: standings,
	}
	if ranking.Updated {
		t := ranking.LastUpdated.UTC()
		resp.LastUpdated = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /ratings/{id} requests.
func (h *RatingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rating"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	standing, err := h.deps.Rating(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, standing)
}
