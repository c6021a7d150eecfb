package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the verification pipeline.
type Metrics struct {
	Submissions    *prometheus.CounterVec
	Deletions      *prometheus.CounterVec
	Similarity     prometheus.Histogram
	OracleDuration prometheus.Histogram
}

// New creates and registers all verification metrics. Call once at startup;
// promauto registers against the default registry.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idproof_verifications_total",
			Help: "Verification submissions by outcome",
		}, []string{"outcome"}),
		Deletions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idproof_deletions_total",
			Help: "Verification deletions by result",
		}, []string{"result"}),
		Similarity: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idproof_similarity_score",
			Help:    "Similarity scores returned by the oracle",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		OracleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idproof_oracle_duration_seconds",
			Help:    "Latency of similarity oracle calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordSubmission counts one submission outcome.
func (m *Metrics) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

// RecordDeletion counts one deletion result.
func (m *Metrics) RecordDeletion(result string) {
	if m == nil {
		return
	}
	m.Deletions.WithLabelValues(result).Inc()
}

// ObserveSimilarity records a successful oracle score.
func (m *Metrics) ObserveSimilarity(score float64) {
	if m == nil {
		return
	}
	m.Similarity.Observe(score)
}

// ObserveOracleDuration records oracle call latency in seconds.
func (m *Metrics) ObserveOracleDuration(seconds float64) {
	if m == nil {
		return
	}
	m.OracleDuration.Observe(seconds)
}
