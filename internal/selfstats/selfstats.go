// Package selfstats exposes the daemon's own operational counters via
// Prometheus, filling in for the teacher's internal telegraf/selfstat
// package (not part of the retrieved slice) with
// github.com/prometheus/client_golang, also a direct teacher dependency.
package selfstats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stats holds the process-level counters and histograms this daemon exposes about
// itself, separate from the aggregated metrics it ingests on clients'
// behalf.
type Stats struct {
	DatagramsDropped prometheus.Counter
	PeerPublishDrops prometheus.Counter
	BackendFlushErrors *prometheus.CounterVec
	BackendFlushSeconds *prometheus.HistogramVec
}

// New registers every self-stat against its own registry, so that
// /metrics output never mixes with the default global registry's
// process/Go-runtime collectors unless the caller chooses to add those
// too.
func New(reg *prometheus.Registry) *Stats {
	factory := promauto.With(reg)
	return &Stats{
		DatagramsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "statsaggd_datagrams_dropped_total",
			Help: "UDP datagrams dropped because the event channel was full.",
		}),
		PeerPublishDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "statsaggd_peer_publish_drops_total",
			Help: "Snapshot publishes dropped because a peer connection could not keep up.",
		}),
		BackendFlushErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statsaggd_backend_flush_errors_total",
			Help: "Backend flush calls that returned an error, by backend name.",
		}, []string{"backend"}),
		BackendFlushSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "statsaggd_backend_flush_seconds",
			Help: "Backend flush call latency, by backend name.",
		}, []string{"backend"}),
	}
}

// Serve starts an HTTP server exposing /metrics on addr. It runs until the
// listener fails (normally on process shutdown) and reports that error to
// the caller, matching the other long-running components' Run contract.
func Serve(addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
