/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package metrics exposes server activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "imposterbox"

// Collector records dispatcher activity. Its methods are safe for concurrent
// use, though the hub calls them from a single goroutine.
type Collector struct {
	messages      *prometheus.CounterVec
	errors        *prometheus.CounterVec
	gamesStarted  *prometheus.CounterVec
	gamesFinished *prometheus.CounterVec
	rooms         prometheus.Gauge
	sessions      prometheus.Gauge
	connections   prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound messages handled, by message type.",
		}, []string{"type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Error envelopes sent to clients, by error code.",
		}, []string{"code"}),
		gamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games started, by game type.",
		}, []string{"game_type"}),
		gamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that reached their finished stage, by game type.",
		}, []string{"game_type"}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms currently open.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Guest sessions currently known.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Live client connections.",
		}),
	}

	reg.MustRegister(
		c.messages,
		c.errors,
		c.gamesStarted,
		c.gamesFinished,
		c.rooms,
		c.sessions,
		c.connections,
	)

	return c
}

func (c *Collector) RecordMessage(msgType string) {
	c.messages.WithLabelValues(msgType).Inc()
}

func (c *Collector) RecordError(code string) {
	c.errors.WithLabelValues(code).Inc()
}

func (c *Collector) RecordGameStarted(gameType string) {
	c.gamesStarted.WithLabelValues(gameType).Inc()
}

func (c *Collector) RecordGameFinished(gameType string) {
	c.gamesFinished.WithLabelValues(gameType).Inc()
}

// SetPopulation reports the current number of rooms and sessions.
func (c *Collector) SetPopulation(rooms, sessions int) {
	c.rooms.Set(float64(rooms))
	c.sessions.Set(float64(sessions))
}

func (c *Collector) SetConnections(n int) {
	c.connections.Set(float64(n))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
