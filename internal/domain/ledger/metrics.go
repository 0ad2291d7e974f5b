package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records ledger activity. A nil *Metrics records nothing.
type Metrics struct {
	Scans         *prometheus.CounterVec
	Resets        prometheus.Counter
	FlushFailures prometheus.Counter
	Participants  prometheus.Gauge
	CheckedIn     prometheus.Gauge
}

// NewMetrics registers ledger metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Scans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_scans_total",
			Help: "Total number of observed tokens by outcome",
		}, []string{"outcome"}),
		Resets: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_resets_total",
			Help: "Total number of registry-wide check-in resets",
		}),
		FlushFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_flush_failures_total",
			Help: "Total number of failed roster flushes",
		}),
		Participants: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeeper_participants",
			Help: "Participants in the loaded roster",
		}),
		CheckedIn: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeeper_checked_in",
			Help: "Participants currently checked in",
		}),
	}
}

func (m *Metrics) observeOutcome(outcome Outcome) {
	if m == nil {
		return
	}
	m.Scans.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) incrementResets() {
	if m == nil {
		return
	}
	m.Resets.Inc()
}

func (m *Metrics) incrementFlushFailures() {
	if m == nil {
		return
	}
	m.FlushFailures.Inc()
}

func (m *Metrics) setCount(c Count) {
	if m == nil {
		return
	}
	m.Participants.Set(float64(c.Total))
	m.CheckedIn.Set(float64(c.Consumed))
}
