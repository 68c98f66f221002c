package api

import (
	"maps"
	"net/http"
	"time"

	"github.com/okian/gridelo/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsProvider exposes a point-in-time view of the rating service.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// OpsHandler serves the operational endpoints.
type OpsHandler struct {
	stats    StatsProvider
	exporter http.Handler
	started  time.Time
}

// NewOpsHandler builds the handler. A nil gatherer selects the process registry.
func NewOpsHandler(stats StatsProvider, gatherer prometheus.Gatherer) *OpsHandler {
	if gatherer == nil {
		gatherer = metrics.GetRegistry()
	}
	return &OpsHandler{
		stats: stats,
		exporter: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		}),
		started: time.Now(),
	}
}

// HandleHealth serves GET /healthz as Prometheus exposition text.
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.exporter.ServeHTTP(w, r)
}

// HandleStats serves GET /stats: the service counters plus process uptime.
func (h *OpsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	out := map[string]interface{}{}
	if h.stats != nil {
		maps.Copy(out, h.stats.GetStats())
	}
	out["uptime_seconds"] = int64(time.Since(h.started).Seconds())
	writeJSON(w, http.StatusOK, out)
}
