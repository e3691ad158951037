// Package metrics holds the Prometheus collectors for session activity.
// Collectors live on Registry rather than the default registerer so a CLI run
// can export exactly this set with WriteTextfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry carries every session collector.
var Registry = prometheus.NewRegistry()

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lmsession",
			Subsystem: "session",
			Name:      "loads_total",
			Help:      "Total model loads by result",
		},
		[]string{"result"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lmsession",
			Subsystem: "session",
			Name:      "generations_total",
			Help:      "Total generation runs by stop reason",
		},
		[]string{"stop_reason"},
	)

	tokensGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lmsession",
			Subsystem: "session",
			Name:      "tokens_generated_total",
			Help:      "Total tokens delivered to sinks",
		},
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lmsession",
			Subsystem: "session",
			Name:      "generation_duration_seconds",
			Help:      "Duration of generation runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	sessionsByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lmsession",
			Subsystem: "session",
			Name:      "sessions",
			Help:      "Number of sessions in each state",
		},
		[]string{"state"},
	)

	releasesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lmsession",
			Subsystem: "session",
			Name:      "releases_total",
			Help:      "Total handle releases",
		},
	)
)

func init() {
	Registry.MustRegister(loadsTotal, generationsTotal, tokensGenerated, generationDuration, sessionsByState, releasesTotal)
}

// ObserveLoad counts a load attempt. result is "ok" or "error".
func ObserveLoad(result string) {
	if result == "" {
		result = "unspecified"
	}
	loadsTotal.WithLabelValues(result).Inc()
}

// ObserveGeneration records a finished run.
func ObserveGeneration(stopReason string, tokens int, dur time.Duration) {
	generationsTotal.WithLabelValues(stopReason).Inc()
	if tokens > 0 {
		tokensGenerated.Add(float64(tokens))
	}
	generationDuration.Observe(dur.Seconds())
}

// SessionCreated counts a new session in its initial state.
func SessionCreated(state string) { sessionsByState.WithLabelValues(state).Inc() }

// StateChanged moves one session from one state to another. Every session
// reports through the same vector, so the gauges sum over all sessions in the
// process.
func StateChanged(from, to string) {
	if from == to {
		return
	}
	sessionsByState.WithLabelValues(from).Dec()
	sessionsByState.WithLabelValues(to).Inc()
}

// ObserveRelease counts a handle release.
func ObserveRelease() { releasesTotal.Inc() }

// WriteTextfile writes the registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
