package scheduler

import "github.com/prometheus/client_golang/prometheus"

var (
	// jobRuns counts job triggers by outcome: completed, failed, skipped.
	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_job_runs_total",
			Help: "Report job triggers, by job and outcome.",
		},
		[]string{"job", "outcome"},
	)

	// jobSubjects counts per-subject results inside runs.
	jobSubjects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_job_subjects_total",
			Help: "Subjects processed by report jobs, by job and outcome (succeeded, skipped, failed).",
		},
		[]string{"job", "outcome"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_job_duration_seconds",
			Help:    "Wall time of report job runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"job"},
	)
)

func init() {
	prometheus.MustRegister(jobRuns, jobSubjects, jobDuration)
}
