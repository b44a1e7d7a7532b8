// Package metrics records Prometheus metrics for tool calls, model calls and
// orchestration rounds.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is safe for concurrent use. A nil *Recorder records nothing.
type Recorder struct {
	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	modelCalls    *prometheus.CounterVec
	modelTokens   *prometheus.CounterVec
	modelDuration *prometheus.HistogramVec
	rounds        *prometheus.CounterVec
	iterations    prometheus.Histogram
}

// NewRecorder registers the engine's collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "troubador_tool_calls_total",
				Help: "Tool invocations by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "troubador_tool_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		modelCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "troubador_model_calls_total",
				Help: "Model completion calls by model and status",
			},
			[]string{"model", "status"},
		),
		modelTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "troubador_model_tokens_total",
				Help: "Tokens consumed by model completions",
			},
			[]string{"model", "type"},
		),
		modelDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "troubador_model_duration_seconds",
				Help:    "Duration of model completion calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		rounds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "troubador_rounds_total",
				Help: "Orchestration rounds by status",
			},
			[]string{"status"},
		),
		iterations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "troubador_round_iterations",
				Help:    "Model calls used per round",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 25},
			},
		),
	}
}

// ObserveTool records one tool call.
func (r *Recorder) ObserveTool(tool, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(tool, outcome).Inc()
	r.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveModel records one completion call. Tokens are counted on success only.
func (r *Recorder) ObserveModel(model string, promptTokens, completionTokens int64, err error, d time.Duration) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.modelCalls.WithLabelValues(model, status).Inc()
	r.modelDuration.WithLabelValues(model).Observe(d.Seconds())
	if err == nil {
		r.modelTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
		r.modelTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// ObserveRound records a finished round. status is "ok", "iteration_limit"
// or "error".
func (r *Recorder) ObserveRound(status string, iterations int) {
	if r == nil {
		return
	}
	r.rounds.WithLabelValues(status).Inc()
	if iterations > 0 {
		r.iterations.Observe(float64(iterations))
	}
}
