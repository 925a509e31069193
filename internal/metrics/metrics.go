// Package metrics holds the Prometheus collectors for the engine.
//
// A nil *Collector is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups every engine metric.
type Collector struct {
	OptimisticApplies       *prometheus.CounterVec
	Rollbacks               *prometheus.CounterVec
	Refreshes               *prometheus.CounterVec
	NotificationsDeferred   prometheus.Counter
	RefreshesSuperseded     prometheus.Counter
	AggregationInconsistent prometheus.Counter
	ViewGeneration          prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which tests use for isolation.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		OptimisticApplies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shortlist_optimistic_applies_total",
				Help: "Optimistic views published, by verb.",
			},
			[]string{"verb"},
		),
		Rollbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shortlist_rollbacks_total",
				Help: "Optimistic views rolled back after a failed submit, by verb.",
			},
			[]string{"verb"},
		),
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shortlist_refreshes_total",
				Help: "Authoritative views published, by trigger.",
			},
			[]string{"trigger"},
		),
		NotificationsDeferred: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shortlist_notifications_deferred_total",
				Help: "Change notifications deferred because a mutation was in flight.",
			},
		),
		RefreshesSuperseded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shortlist_refreshes_superseded_total",
				Help: "Refreshes discarded because a newer view was published while they ran.",
			},
		),
		AggregationInconsistent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shortlist_aggregation_inconsistencies_total",
				Help: "Refreshes whose authoritative data broke a consistency rule.",
			},
		),
		ViewGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "shortlist_view_generation",
				Help: "Generation of the currently published view.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			c.OptimisticApplies,
			c.Rollbacks,
			c.Refreshes,
			c.NotificationsDeferred,
			c.RefreshesSuperseded,
			c.AggregationInconsistent,
			c.ViewGeneration,
		)
	}
	return c
}

func (c *Collector) OptimisticApply(verb string) {
	if c != nil {
		c.OptimisticApplies.WithLabelValues(verb).Inc()
	}
}

func (c *Collector) Rollback(verb string) {
	if c != nil {
		c.Rollbacks.WithLabelValues(verb).Inc()
	}
}

func (c *Collector) Refresh(trigger string) {
	if c != nil {
		c.Refreshes.WithLabelValues(trigger).Inc()
	}
}

func (c *Collector) Deferred() {
	if c != nil {
		c.NotificationsDeferred.Inc()
	}
}

func (c *Collector) Superseded() {
	if c != nil {
		c.RefreshesSuperseded.Inc()
	}
}

func (c *Collector) Inconsistent() {
	if c != nil {
		c.AggregationInconsistent.Inc()
	}
}

func (c *Collector) Generation(gen int64) {
	if c != nil {
		c.ViewGeneration.Set(float64(gen))
	}
}

// Handler serves the metrics registered with g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
