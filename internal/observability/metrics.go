package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marine_alert"

// Metrics holds the Prometheus collectors for the assessment service.
type Metrics struct {
	Assessments      *prometheus.CounterVec // labels: level
	AssessmentErrors *prometheus.CounterVec // labels: kind={data_unavailable,insufficient_data,invalid_request,geocode}

	// Upstream source metrics.
	SourceFetches       *prometheus.CounterVec   // labels: source, outcome={success,retry,error}
	SourceFetchDuration *prometheus.HistogramVec // labels: source

	AuditWrites *prometheus.CounterVec // labels: sink, outcome={success,error,skipped}

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: method={forward,reverse}, result={hit,miss}

	Paraphrases   *prometheus.CounterVec // labels: outcome={success,error,timeout}
	Notifications *prometheus.CounterVec // labels: outcome={success,error}
	MonitorRuns   *prometheus.CounterVec // labels: outcome={alerted,quiet,error}

	MonitorRunning prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.Assessments,
		m.AssessmentErrors,
		m.SourceFetches,
		m.SourceFetchDuration,
		m.AuditWrites,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.Paraphrases,
		m.Notifications,
		m.MonitorRuns,
		m.MonitorRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      help("Completed risk assessments by alert level."),
		}, []string{"level"}),
		AssessmentErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessment_errors_total",
			Help:      help("Assessment failures and degradations by kind."),
		}, []string{"kind"}),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      help("Upstream source fetch attempts by source and outcome."),
		}, []string{"source", "outcome"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      help("Upstream source fetch duration in seconds, retries included."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		AuditWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_writes_total",
			Help:      help("Audit trail writes by sink and outcome."),
		}, []string{"sink", "outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      help("Geocoding API requests by method and outcome."),
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      help("Geocoding cache lookups by method and result."),
		}, []string{"method", "result"}),
		Paraphrases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paraphrases_total",
			Help:      help("Natural-language alert summaries by outcome."),
		}, []string{"outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      help("Alert notifications sent by outcome."),
		}, []string{"outcome"}),
		MonitorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_checks_total",
			Help:      help("Watchlist location checks by outcome."),
		}, []string{"outcome"}),
		MonitorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_running",
			Help:      help("1 when the watchlist monitor is active, 0 otherwise."),
		}),
	}
}
