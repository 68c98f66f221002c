// Package site serves the HTML ranking page.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/gridelo/internal/domain/model"
	"github.com/okian/gridelo/pkg/logger"
)

// Error constants
var (
	ErrRender = errors.New("ranking page render failed")
)

// RankingProvider supplies the data shown on the page.
type RankingProvider interface {
	Ranking(ctx context.Context) (model.Ranking, error)
}

// Register attaches the ranking page to the root of mux.
func Register(_ context.Context, mux *http.ServeMux, provider RankingProvider, opts ...Option) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /{$}", NewRootHandler(provider, opts...).HandleRoot)
}

// Option applies a configuration option to the RootHandler.
type Option func(*RootHandler)

// WithLogger sets the logger used for render failures.
func WithLogger(l logger.Logger) Option {
	return func(h *RootHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithTitle sets the page heading.
func WithTitle(title string) Option {
	return func(h *RootHandler) {
		if title != "" {
			h.title = title
		}
	}
}

// RootHandler handles root path requests
type RootHandler struct {
	provider RankingProvider
	title    string
	logger   logger.Logger
}

// NewRootHandler creates a new root handler
func NewRootHandler(provider RankingProvider, opts ...Option) *RootHandler {
	h := &RootHandler{
		provider: provider,
		title:    "Driver Elo Ratings",
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type pageData struct {
	Title       string
	LastUpdated string
	Standings   []model.Standing
	Error       string
}

// HandleRoot handles GET / requests. A failed read still renders the page with
// an error notice so the process never serves a blank response.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := pageData{Title: h.title, LastUpdated: "Never"}
	status := http.StatusOK

	ranking, err := h.provider.Ranking(ctx)
	if err != nil {
		h.logger.Error(ctx, "loading ranking for page", logger.Error(err))
		data.Error = "Ratings are temporarily unavailable."
		status = http.StatusInternalServerError
	} else {
		data.Standings = ranking.Standings
		if ranking.Updated {
			data.LastUpdated = ranking.LastUpdated.UTC().Format(time.DateTime + " MST")
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error(ctx, "rendering ranking page", logger.Error(err))
		http.Error(w, fmt.Errorf("%w: %w", ErrRender, err).Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
