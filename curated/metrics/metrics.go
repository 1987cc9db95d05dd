// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics provides the prometheus collectors of the curated daemon.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/decred/curate/curated/backend"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "curated"

// NewRegistry returns a registry with the go runtime and process collectors
// registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Metrics contains the daemon collectors.
type Metrics struct {
	requests      *prometheus.CounterVec
	posts         prometheus.Counter
	votes         prometheus.Counter
	voteWeight    prometheus.Counter
	daysSettled   prometheus.Counter
	distributed   prometheus.Counter
	dust          prometheus.Counter
	claims        prometheus.Counter
	claimed       prometheus.Counter
	currentDay    prometheus.Gauge
	eventsRelayed *prometheus.CounterVec
	relayErrors   *prometheus.CounterVec
	wsClients     prometheus.Gauge
}

// New registers the daemon collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		posts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_created_total",
			Help:      "Posts created",
		}),
		votes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Votes cast",
		}),
		voteWeight: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_weight_total",
			Help:      "Vote weight cast",
		}),
		daysSettled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_settled_total",
			Help:      "Days settled",
		}),
		distributed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_distributed_total",
			Help:      "Tokens minted by settlements",
		}),
		dust: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_dust_total",
			Help:      "Pool tokens left undistributed by settlements",
		}),
		claims: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Reward claims",
		}),
		claimed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_claimed_total",
			Help:      "Tokens withdrawn by claims",
		}),
		currentDay: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_day",
			Help:      "Current day index",
		}),
		eventsRelayed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_relayed_total",
			Help:      "Events accepted by a relay sink by sink and event type",
		}, []string{"sink", "type"}),
		relayErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_errors_total",
			Help:      "Failed relay deliveries by sink",
		}, []string{"sink"}),
		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients",
		}),
	}
}

// float converts a token amount for a counter. Precision is lost above 2^53.
func float(a *uint256.Int) float64 {
	return a.Float64()
}

// Request records a served HTTP request.
func (m *Metrics) Request(route string, code int) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// PostCreated records a new post.
func (m *Metrics) PostCreated() {
	m.posts.Inc()
}

// Voted records a vote and its weight.
func (m *Metrics) Voted(amount uint64) {
	m.votes.Inc()
	m.voteWeight.Add(float64(amount))
}

// Settled records a settled day.
func (m *Metrics) Settled(distributed, dust *uint256.Int) {
	m.daysSettled.Inc()
	m.distributed.Add(float(distributed))
	m.dust.Add(float(dust))
}

// SettledDay records a settlement reported by the backend.
func (m *Metrics) SettledDay(s *backend.Settlement) {
	m.Settled(s.Distributed, s.Dust())
}

// Claimed records a reward claim.
func (m *Metrics) Claimed(amount *uint256.Int) {
	m.claims.Inc()
	m.claimed.Add(float(amount))
}

// SetCurrentDay records the current day index.
func (m *Metrics) SetCurrentDay(day uint64) {
	m.currentDay.Set(float64(day))
}

// Relayed records an event accepted by a relay sink.
func (m *Metrics) Relayed(sink, eventType string) {
	m.eventsRelayed.WithLabelValues(sink, eventType).Inc()
}

// RelayFailed records a failed delivery to a relay sink.
func (m *Metrics) RelayFailed(sink string) {
	m.relayErrors.WithLabelValues(sink).Inc()
}

// WSClients records the number of connected websocket clients.
func (m *Metrics) WSClients(n int) {
	m.wsClients.Set(float64(n))
}
