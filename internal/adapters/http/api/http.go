// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/gridelo/internal/adapters/mq/queue"
	"github.com/okian/gridelo/internal/adapters/repository"
	"github.com/okian/gridelo/internal/domain/model"
)

const defaultMaxLimit = 500

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RatingsDependencies
	TriggerDependencies
	RunsDependencies
	SuspectsDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	opsHandler      *OpsHandler
	ratingsHandler  *RatingsHandler
	triggerHandler  *TriggerHandler
	runsHandler     *RunsHandler
	suspectsHandler *SuspectsHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps
// GET /ratings?limit; values below 1 select the default.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	return &Server{
		opsHandler:      NewOpsHandler(statsProvider, nil),
		ratingsHandler:  NewRatingsHandler(deps, maxLimit),
		triggerHandler:  NewTriggerHandler(deps),
		runsHandler:     NewRunsHandler(deps),
		suspectsHandler: NewSuspectsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.opsHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.opsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /ratings", MetricsMiddleware(s.ratingsHandler.HandleList, "ratings"))
	mux.HandleFunc("GET /ratings/{id}", MetricsMiddleware(s.ratingsHandler.HandleGet, "rating"))
	mux.HandleFunc("POST /force-update", MetricsMiddleware(s.triggerHandler.HandleForceUpdate, "force_update"))
	mux.HandleFunc("GET /runs/last", MetricsMiddleware(s.runsHandler.HandleLastRun, "runs_last"))
	mux.HandleFunc("GET /identities/suspects", MetricsMiddleware(s.suspectsHandler.HandleSuspects, "suspects"))
}

type ratingsResponse struct {
	Updated     bool             `json:"updated"`
	LastUpdated *time.Time       `json:"last_updated"`
	Count       int              `json:"count"`
	Ratings     []model.Standing `json:"ratings"`
}

type triggerResponse struct {
	Status    string `json:"status"`
	TriggerID string `json:"trigger_id"`
	Rebuild   bool   `json:"rebuild"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound reports whether err means an unknown competitor.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, ErrNotFound)
}

// isBackpressure reports whether a trigger was refused because one is already pending.
func isBackpressure(err error) bool {
	return errors.Is(err, queue.ErrQueueFull)
}
