package session

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for streamsTotal.
const (
	outcomeDone        = "done"
	outcomeEngineError = "engine_error"
	outcomeCanceled    = "canceled"
	outcomeWriteError  = "write_error"
	outcomeRejected    = "rejected"
	outcomeNotLoaded   = "not_loaded"
	outcomeInvalid     = "invalid"
)

var (
	streamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmgate",
			Subsystem: "stream",
			Name:      "sessions_total",
			Help:      "Chat stream sessions by outcome",
		},
		[]string{"outcome"},
	)

	fragmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmgate",
			Subsystem: "stream",
			Name:      "fragments_total",
			Help:      "Fragments written to clients",
		},
	)

	firstFragmentSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "llmgate",
			Subsystem: "stream",
			Name:      "first_fragment_seconds",
			Help:      "Time from submission to the first fragment",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	activeStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "llmgate",
			Subsystem: "stream",
			Name:      "active",
			Help:      "Streams currently writing to a client",
		},
	)
)

func init() {
	prometheus.MustRegister(streamsTotal, fragmentsTotal, firstFragmentSeconds, activeStreams)
}
