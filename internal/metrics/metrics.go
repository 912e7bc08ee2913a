package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// QA matching metrics
	QuestionsTotal         *prometheus.CounterVec
	MatchConfidence        prometheus.Histogram
	MatchDurationSeconds   prometheus.Histogram
	IndexRebuildsTotal     prometheus.Counter
	IndexDocuments         prometheus.Gauge
	AnswerSourceTotal      *prometheus.CounterVec

	// Recommendation metrics
	RecommendationsTotal   *prometheus.CounterVec
	RecommendationDuration prometheus.Histogram

	// LLM provider metrics
	ProviderRequestsTotal  *prometheus.CounterVec
	ProviderFallbacksTotal *prometheus.CounterVec

	// Scraper metrics
	ScraperRequestsTotal   *prometheus.CounterVec
	ScraperDurationSeconds *prometheus.HistogramVec

	// Snapshot metrics
	SnapshotUploadsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// QA matching metrics
		QuestionsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_questions_total",
				Help: "Total number of answered questions by match state",
			},
			[]string{"state"}, // state: no_match, weak_match, confident_match, exact_match
		),

		MatchConfidence: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "advisor_match_confidence",
				Help:    "Best-candidate cosine similarity per answered question",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
			},
		),

		MatchDurationSeconds: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "advisor_match_duration_seconds",
				Help:    "QA matching duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),

		IndexRebuildsTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "advisor_index_rebuilds_total",
				Help: "Total number of similarity index rebuilds",
			},
		),

		IndexDocuments: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "advisor_index_documents",
				Help: "Number of reference questions in the similarity index",
			},
		),

		AnswerSourceTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_answer_source_total",
				Help: "Total answers by originating provider",
			},
			[]string{"source"}, // source: qa, smart, llm, baseline
		),

		// Recommendation metrics
		RecommendationsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_recommendations_total",
				Help: "Total recommendation requests by kind",
			},
			[]string{"kind"}, // kind: interest, general
		),

		RecommendationDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "advisor_recommendation_duration_seconds",
				Help:    "Course ranking duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),

		// LLM provider metrics
		ProviderRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_provider_requests_total",
				Help: "Total LLM provider requests by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error, unavailable
		),

		ProviderFallbacksTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_provider_fallbacks_total",
				Help: "Total fallbacks from primary to secondary LLM provider",
			},
			[]string{"from", "to"},
		),

		// Scraper metrics
		ScraperRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_scraper_requests_total",
				Help: "Total number of scraper requests by program and status",
			},
			[]string{"program", "status"}, // status: success, error, timeout
		),

		ScraperDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "advisor_scraper_duration_seconds",
				Help:    "Scraper request duration in seconds by program",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"program"},
		),

		// Snapshot metrics
		SnapshotUploadsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_snapshot_uploads_total",
				Help: "Total knowledge base snapshot uploads by status",
			},
			[]string{"status"}, // status: success, error
		),

		// HTTP metrics
		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_http_errors_total",
				Help: "Total HTTP errors by type and route",
			},
			[]string{"error_type", "route"},
		),
	}

	return m
}

// RecordQuestion records an answered question with its match state and timing.
func (m *Metrics) RecordQuestion(state string, confidence, duration float64) {
	m.QuestionsTotal.WithLabelValues(state).Inc()
	m.MatchConfidence.Observe(confidence)
	m.MatchDurationSeconds.Observe(duration)
}

// RecordIndexRebuild records a similarity index rebuild and its new size.
func (m *Metrics) RecordIndexRebuild(documents int) {
	m.IndexRebuildsTotal.Inc()
	m.IndexDocuments.Set(float64(documents))
}

// RecordAnswerSource records which provider produced the final answer.
func (m *Metrics) RecordAnswerSource(source string) {
	m.AnswerSourceTotal.WithLabelValues(source).Inc()
}

// RecordRecommendation records a recommendation request.
func (m *Metrics) RecordRecommendation(kind string, duration float64) {
	m.RecommendationsTotal.WithLabelValues(kind).Inc()
	m.RecommendationDuration.Observe(duration)
}

// RecordProviderRequest records an LLM provider request outcome.
func (m *Metrics) RecordProviderRequest(provider, status string) {
	m.ProviderRequestsTotal.WithLabelValues(provider, status).Inc()
}

// RecordProviderFallback records a fallback between LLM providers.
func (m *Metrics) RecordProviderFallback(from, to string) {
	m.ProviderFallbacksTotal.WithLabelValues(from, to).Inc()
}

// RecordScraperRequest records a scraper request with status
func (m *Metrics) RecordScraperRequest(program, status string, duration float64) {
	m.ScraperRequestsTotal.WithLabelValues(program, status).Inc()
	m.ScraperDurationSeconds.WithLabelValues(program).Observe(duration)
}

// RecordSnapshotUpload records a snapshot upload outcome.
func (m *Metrics) RecordSnapshotUpload(status string) {
	m.SnapshotUploadsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, route string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, route).Inc()
}
