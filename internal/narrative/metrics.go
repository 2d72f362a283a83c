package narrative

import "github.com/prometheus/client_golang/prometheus"

var (
	// narrativeTotal counts narratives by the path that produced them.
	narrativeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_generations_total",
			Help: "Monthly narratives produced, by source (generated, freeform, fallback).",
		},
		[]string{"source"},
	)

	// narrativeFailures counts external generation failures by kind.
	narrativeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_generation_failures_total",
			Help: "External narrative generation failures that fell back, by kind.",
		},
		[]string{"kind"},
	)

	narrativeLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "narrative_generation_duration_seconds",
			Help:    "Latency of external narrative generation calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 12, 20},
		},
	)
)

func init() {
	prometheus.MustRegister(narrativeTotal, narrativeFailures, narrativeLatency)
}
