// Package metrics exposes Prometheus collectors for the rounds processed by the
// nodes of a simulation.
//
// Every simulation owns its registry so that several simulations, and tests,
// can run in the same process. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trustflood"

// Verdict outcomes used as the "outcome" label of the verdicts counter.
const (
	OutcomePositive = "positive"
	OutcomeNegative = "negative"
	OutcomeDefault  = "default"
)

// Metrics groups the collectors updated by nodes and consumers.
type Metrics struct {
	rounds        *prometheus.CounterVec
	verdicts      *prometheus.CounterVec
	forwards      prometheus.Counter
	notifications prometheus.Counter
	ignored       prometheus.Counter
	peerScore     *prometheus.GaugeVec
	roundDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg. If reg is nil, the
// collectors are created but not registered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Total rounds processed per node.",
		}, []string{"node"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Peer scores assigned at the end of a round, by outcome.",
		}, []string{"outcome"}),
		forwards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwards_total",
			Help:      "Events forwarded to peers.",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications received by consumers.",
		}),
		ignored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ignored_reports_total",
			Help:      "Peer reports ignored because their origin is not a peer.",
		}),
		peerScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peer_score",
			Help:      "Current score a node assigns to a peer.",
		}, []string{"node", "peer"}),
		roundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Time taken by a node to process one event.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.rounds,
			m.verdicts,
			m.forwards,
			m.notifications,
			m.ignored,
			m.peerScore,
			m.roundDuration,
		)
	}

	return m
}

// ObserveRound records a completed round of node.
func (m *Metrics) ObserveRound(node uint32, d time.Duration) {
	if m == nil {
		return
	}
	m.rounds.WithLabelValues(fmt.Sprint(node)).Inc()
	m.roundDuration.Observe(d.Seconds())
}

// ObserveVerdict records the score node assigned to peer.
func (m *Metrics) ObserveVerdict(node, peer uint32, score float64, outcome string) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(outcome).Inc()
	m.peerScore.WithLabelValues(fmt.Sprint(node), fmt.Sprint(peer)).Set(score)
}

// IncForwards ...
func (m *Metrics) IncForwards(n int) {
	if m == nil {
		return
	}
	m.forwards.Add(float64(n))
}

// IncNotifications ...
func (m *Metrics) IncNotifications() {
	if m == nil {
		return
	}
	m.notifications.Inc()
}

// IncIgnored ...
func (m *Metrics) IncIgnored(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ignored.Add(float64(n))
}
