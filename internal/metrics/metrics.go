// Package metrics holds the prometheus collectors of the reaction, rating and live-event pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "forum"

type Metrics struct {
	ReactionsTotal        *prometheus.CounterVec
	RatingRecomputesTotal *prometheus.CounterVec
	RatingPending         prometheus.Gauge
	Subscribers           prometheus.Gauge
	BroadcastsTotal       *prometheus.CounterVec
	DroppedFramesTotal    prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg creates a private registry,
// which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		ReactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaction",
			Name:      "mutations_total",
			Help:      "Total number of reaction mutations by target kind and outcome",
		}, []string{"target", "change"}),
		RatingRecomputesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rating",
			Name:      "recomputes_total",
			Help:      "Total number of user rating recomputations by result",
		}, []string{"result"}),
		RatingPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rating",
			Name:      "pending_users",
			Help:      "Number of users whose rating is stale and waiting for reconciliation",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Number of live post event subscriptions",
		}),
		BroadcastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "broadcasts_total",
			Help:      "Total number of events broadcast to at least one subscriber, by event type",
		}, []string{"type"}),
		DroppedFramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_frames_total",
			Help:      "Total number of event frames a subscriber failed to accept",
		}),
	}

	reg.MustRegister(
		m.ReactionsTotal,
		m.RatingRecomputesTotal,
		m.RatingPending,
		m.Subscribers,
		m.BroadcastsTotal,
		m.DroppedFramesTotal,
	)

	return m
}
