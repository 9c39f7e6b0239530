// Package metrics provides Prometheus collectors for ranking and suggestion activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricRankRequestsTotal  = "resumerank_rank_requests_total"
	MetricRankDuration       = "resumerank_rank_duration_seconds"
	MetricResumesRankedTotal = "resumerank_resumes_ranked_total"
	MetricSuggestionsTotal   = "resumerank_suggestions_total"
)

// Ranking sources.
const (
	SourceAPI    = "api"
	SourceUpload = "upload"
	SourceJob    = "job"
	SourceCLI    = "cli"
)

// Request outcomes.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	rankRequests  *prometheus.CounterVec
	rankDuration  *prometheus.HistogramVec
	resumesRanked prometheus.Counter
	suggestions   *prometheus.CounterVec
}

// NewMetrics creates unregistered collectors; call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		rankRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankRequestsTotal,
				Help: "Total number of ranking calls by source and status",
			},
			[]string{"source", "status"},
		),
		rankDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRankDuration,
				Help:    "Histogram of ranking call duration in seconds by source",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"source"},
		),
		resumesRanked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricResumesRankedTotal,
				Help: "Total number of resumes scored",
			},
		),
		suggestions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSuggestionsTotal,
				Help: "Total number of improvement suggestions by outcome",
			},
			[]string{"status"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rankRequests,
		m.rankDuration,
		m.resumesRanked,
		m.suggestions,
	}
}

// ObserveRank records one ranking call. ranked is only counted on success.
func (m *Metrics) ObserveRank(source string, elapsed time.Duration, ranked int, err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	m.rankRequests.WithLabelValues(source, status).Inc()
	m.rankDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if err == nil && ranked > 0 {
		m.resumesRanked.Add(float64(ranked))
	}
}

// ObserveSuggestion counts a suggestion outcome (generated, matched or degraded).
func (m *Metrics) ObserveSuggestion(status string) {
	if m == nil {
		return
	}
	m.suggestions.WithLabelValues(status).Inc()
}
