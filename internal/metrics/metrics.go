// Package metrics exposes Prometheus instruments for runs, turns and battles.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freeeve/warfront/pkg/warfront"
)

const namespace = "warfront"

// Metrics holds every instrument on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	RunsCreated      prometheus.Counter
	TurnsResolved    prometheus.Counter
	TurnDuration     prometheus.Histogram
	Battles          *prometheus.CounterVec
	Flips            *prometheus.CounterVec
	Casualties       *prometheus.CounterVec
	SnapEvents       *prometheus.CounterVec
	DroppedOrders    *prometheus.CounterVec
	OGRequests       prometheus.Counter
	ActiveRuns       prometheus.Gauge
	HTTPDuration     *prometheus.HistogramVec
	WebSocketClients prometheus.Gauge
}

// New registers every instrument on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_created_total",
			Help: "Simulation runs created.",
		}),
		TurnsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "turns_resolved_total",
			Help: "Turns resolved across all runs.",
		}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "turn_duration_seconds",
			Help:    "Wall time of one turn pipeline.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		Battles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "battles_total",
			Help: "Battles resolved by outcome.",
		}, []string{"outcome"}),
		Flips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "settlement_flips_total",
			Help: "Settlements taken, by new controller.",
		}, []string{"faction"}),
		Casualties: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "casualties_total",
			Help: "Casualties by faction and kind.",
		}, []string{"faction", "kind"}),
		SnapEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "snap_events_total",
			Help: "Snap events fired in battle.",
		}, []string{"event"}),
		DroppedOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "dropped_orders_total",
			Help: "Attack orders dropped during validation.",
		}, []string{"reason"}),
		OGRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "og_requests_total",
			Help: "Operational group activation requests queued.",
		}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_runs",
			Help: "Runs with state loaded in this process.",
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		WebSocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "websocket_clients",
			Help: "Connected report feed clients.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RunsCreated, m.TurnsResolved, m.TurnDuration, m.Battles, m.Flips, m.Casualties,
		m.SnapEvents, m.DroppedOrders, m.OGRequests, m.ActiveRuns, m.HTTPDuration, m.WebSocketClients,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTurn records the outcome of one resolved turn.
func (m *Metrics) ObserveTurn(report *warfront.TurnReport, ogRequests int, elapsed time.Duration) {
	m.TurnsResolved.Inc()
	m.TurnDuration.Observe(elapsed.Seconds())
	m.OGRequests.Add(float64(ogRequests))
	for _, b := range report.Battles {
		m.Battles.WithLabelValues(string(b.Outcome)).Inc()
		if b.Flipped {
			m.Flips.WithLabelValues(string(b.AttackerFaction)).Inc()
		}
		for _, e := range b.SnapEvents {
			m.SnapEvents.WithLabelValues(string(e)).Inc()
		}
	}
	for f, c := range report.Totals {
		m.Casualties.WithLabelValues(string(f), "killed").Add(float64(c.Killed))
		m.Casualties.WithLabelValues(string(f), "wounded").Add(float64(c.Wounded))
		m.Casualties.WithLabelValues(string(f), "missing").Add(float64(c.Missing))
	}
	for _, d := range report.Dropped {
		m.DroppedOrders.WithLabelValues(d.Reason).Inc()
	}
}
