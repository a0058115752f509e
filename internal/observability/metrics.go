package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLM call modes.
const (
	ModeChat      = "chat"
	ModeSynthesis = "synthesis"
)

// LLM call outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeQuota       = "quota_exceeded"
	OutcomeError       = "error"
)

var (
	llmCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_calls_total",
			Help: "Language-model calls by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "Wall time of language-model calls, until the stream drains for chat mode.",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 15, 30, 60, 120},
		},
		[]string{"mode"},
	)

	proposalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proposals_generated_total",
			Help: "Synthesized proposals by storage form (structured or raw).",
		},
		[]string{"form"},
	)

	exportImagesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "export_images_skipped_total",
			Help: "Photos left out of rendered documents because they could not be fetched or decoded.",
		},
	)

	backgroundFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_task_failures_total",
			Help: "Background tasks that returned an error or panicked.",
		},
		[]string{"task"},
	)
)

func init() {
	prometheus.MustRegister(llmCalls, llmLatency, proposalsGenerated, exportImagesSkipped, backgroundFailures)
}

// ObserveLLM records one model call.
func ObserveLLM(mode, outcome string, d time.Duration) {
	llmCalls.WithLabelValues(mode, outcome).Inc()
	llmLatency.WithLabelValues(mode).Observe(d.Seconds())
}

// IncProposal counts a synthesized proposal; structured reports whether it
// parsed as JSON.
func IncProposal(structured bool) {
	form := "raw"
	if structured {
		form = "structured"
	}
	proposalsGenerated.WithLabelValues(form).Inc()
}

// IncImageSkipped counts a photo omitted from an export.
func IncImageSkipped() { exportImagesSkipped.Inc() }

// IncBackgroundFailure counts a failed background task.
func IncBackgroundFailure(task string) { backgroundFailures.WithLabelValues(task).Inc() }
