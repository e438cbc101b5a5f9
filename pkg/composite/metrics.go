package composite

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes used as metric label values and log attributes.
const (
	OutcomeSuccess            = "success"
	OutcomeUnsupportedVersion = "unsupported_version"
	OutcomeNoModel            = "no_model"
	OutcomeBuildFailed        = "build_failed"
	OutcomeConnectionError    = "connection_error"
)

// Metrics records fetch outcomes. A nil *Metrics records nothing.
type Metrics struct {
	fetches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	sessions prometheus.Gauge
}

// NewMetrics creates the fetch metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tooling_model_fetches_total",
				Help: "Model fetches by category and outcome.",
			},
			[]string{"category", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tooling_model_fetch_duration_seconds",
				Help:    "Time spent fetching one participant's model.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tooling_engine_sessions_open",
			Help: "Engine sessions currently open.",
		}),
	}
	for _, c := range []prometheus.Collector{m.fetches, m.duration, m.sessions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeFetch(category, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(category, outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) sessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) sessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}
