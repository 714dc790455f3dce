// Package metrics holds the prometheus collectors for the plugin lifecycle
// and the data-source refresh loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	PluginLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calkit",
		Subsystem: "plugin",
		Name:      "loads_total",
		Help:      "Loader invocations by result.",
	}, []string{"result"})

	PluginTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calkit",
		Subsystem: "plugin",
		Name:      "transitions_total",
		Help:      "Activate/deactivate calls by direction and result.",
	}, []string{"direction", "result"})

	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calkit",
		Subsystem: "export",
		Name:      "invocations_total",
		Help:      "Export invocations by format and result.",
	}, []string{"format", "result"})

	RefreshRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calkit",
		Subsystem: "refresh",
		Name:      "runs_total",
		Help:      "Data-source fetches by source and result.",
	}, []string{"source", "result"})

	CachedEvents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "calkit",
		Subsystem: "refresh",
		Name:      "events",
		Help:      "Events held in the refresh cache per source.",
	}, []string{"source"})
)

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
