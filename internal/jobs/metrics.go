package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_job_runs_total",
			Help: "Completed batch job runs",
		},
		[]string{"job"},
	)
	jobAccountsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_job_accounts_processed_total",
			Help: "Accounts successfully processed by batch jobs",
		},
		[]string{"job"},
	)
	jobAccountsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_job_accounts_skipped_total",
			Help: "Accounts skipped due to per-account errors",
		},
		[]string{"job"},
	)
	jobCredited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_job_coin_credited_total",
			Help: "Approximate coin credited by batch jobs",
		},
		[]string{"job"},
	)
	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batch_job_duration_seconds",
			Help:    "Batch job run duration",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"job"},
	)
)

func init() {
	prometheus.MustRegister(jobRuns, jobAccountsProcessed, jobAccountsSkipped, jobCredited, jobDuration)
}
