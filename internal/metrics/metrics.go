package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the game server's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ActiveConnections prometheus.Gauge
	Broadcasts        prometheus.Counter
	PushDrops         prometheus.Counter
	GraceEvictions    prometheus.Counter
	RoundsStarted     prometheus.Counter
	GamesFinished     prometheus.Counter
	Guesses           *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "guessthesong",
			Name:      "active_connections",
			Help:      "Live push connections registered in the hub.",
		}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guessthesong",
			Name:      "broadcasts_total",
			Help:      "Game state broadcasts computed.",
		}),
		PushDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guessthesong",
			Name:      "push_drops_total",
			Help:      "Registrations dropped because a push could not be delivered.",
		}),
		GraceEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guessthesong",
			Name:      "grace_evictions_total",
			Help:      "Players removed after the disconnect grace period expired.",
		}),
		RoundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guessthesong",
			Name:      "rounds_started_total",
			Help:      "Rounds promoted to playing.",
		}),
		GamesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guessthesong",
			Name:      "games_finished_total",
			Help:      "Games that reached the finished state.",
		}),
		Guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guessthesong",
			Name:      "guesses_total",
			Help:      "Guesses submitted, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ActiveConnections,
		m.Broadcasts,
		m.PushDrops,
		m.GraceEvictions,
		m.RoundsStarted,
		m.GamesFinished,
		m.Guesses,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
