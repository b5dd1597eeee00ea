package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	SourceText = "text"
	SourceFile = "file"

	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeInvalid = "invalid"
)

var (
	// RequestsTotal counts proofreading runs by input surface and outcome.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proofreader_requests_total",
		Help: "Total proofreading requests processed.",
	}, []string{"source", "outcome"})

	// TaskDuration tracks the latency of each remote model call.
	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proofreader_task_duration_seconds",
		Help:    "Time spent on a single pipeline task.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"task"})

	// InputChars tracks the distribution of submitted text lengths.
	InputChars = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "proofreader_input_chars",
		Help:    "Number of characters in proofread input text.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 50000},
	})

	// UploadsTotal counts accepted and rejected text file uploads.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proofreader_uploads_total",
		Help: "Total text file uploads received.",
	}, []string{"outcome"})
)

// ObserveSessions exports the number of live sessions reported by count.
// It must be called once per process.
func ObserveSessions(count func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "proofreader_active_sessions",
		Help: "Number of users with a live input session.",
	}, func() float64 {
		return float64(count())
	})
}
