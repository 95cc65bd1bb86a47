package materialize

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds driver metrics on a private registry.
type Metrics struct {
	Rounds         prometheus.Counter
	RulesEmitted   *prometheus.CounterVec
	Witnesses      prometheus.Counter
	Conjunctions   prometheus.Counter
	StoreFacts     prometheus.Gauge
	ReasonDuration prometheus.Histogram
	registry       *prometheus.Registry
}

// NewMetrics creates and registers the driver metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		Rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hornmat",
			Subsystem: "materialize",
			Name:      "rounds_total",
			Help:      "Total FIRE rounds executed",
		}),
		RulesEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hornmat",
				Subsystem: "materialize",
				Name:      "rules_emitted_total",
				Help:      "Rules emitted by FIRE, by restriction kind",
			},
			[]string{"kind"},
		),
		Witnesses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hornmat",
			Subsystem: "materialize",
			Name:      "witnesses_created_total",
			Help:      "Synthetic individuals created",
		}),
		Conjunctions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hornmat",
			Subsystem: "materialize",
			Name:      "role_conjunctions_created_total",
			Help:      "Role conjunctions registered after seeding",
		}),
		StoreFacts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hornmat",
			Subsystem: "store",
			Name:      "facts",
			Help:      "Facts in the deductive store after the last reason step",
		}),
		ReasonDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hornmat",
			Subsystem: "store",
			Name:      "reason_duration_seconds",
			Help:      "Duration of reason steps in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.Rounds, m.RulesEmitted, m.Witnesses, m.Conjunctions, m.StoreFacts, m.ReasonDuration)
	return m
}

// Registry returns the registry holding the driver metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteFile writes the metrics in the Prometheus text format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observeReason(d time.Duration, facts int64) {
	if m == nil {
		return
	}
	m.ReasonDuration.Observe(d.Seconds())
	m.StoreFacts.Set(float64(facts))
}

func (m *Metrics) round() {
	if m != nil {
		m.Rounds.Inc()
	}
}

func (m *Metrics) emitted(kind string, n int) {
	if m != nil && n > 0 {
		m.RulesEmitted.WithLabelValues(kind).Add(float64(n))
	}
}

func (m *Metrics) created(witnesses, conjunctions int) {
	if m == nil {
		return
	}
	m.Witnesses.Add(float64(witnesses))
	m.Conjunctions.Add(float64(conjunctions))
}
