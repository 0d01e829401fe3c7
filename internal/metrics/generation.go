package metrics

import "github.com/prometheus/client_golang/prometheus"

// Text generation Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyflow",
			Name:      "generation_requests_total",
			Help:      "Total number of text generation requests",
		},
		[]string{"provider", "model", "operation", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studyflow",
			Name:      "generation_request_duration_seconds",
			Help:      "Text generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model", "operation"},
	)

	AnswerSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyflow",
			Name:      "answer_source_total",
			Help:      "Answers by source type (knowledge_base vs ai_knowledge)",
		},
		[]string{"source_type"},
	)
)

var genMetricsRegistered bool

// RegisterGenerationMetrics registers Prometheus generation metrics. Must be called once from main.
func RegisterGenerationMetrics() {
	if genMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(AnswerSourceTotal)
	genMetricsRegistered = true
}
