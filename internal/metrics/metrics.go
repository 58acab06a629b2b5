// Package metrics exposes the engine's operational counters on the
// default Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks currently registered sessions.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_connections",
		Help: "Number of currently registered sessions.",
	})

	// MessagesTotal counts messages accepted and broadcast.
	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Messages persisted and broadcast.",
	})

	// RateLimitedTotal counts sends rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_rate_limited_total",
		Help: "Message attempts rejected by the per-connection rate limit.",
	})

	// SessionsReplacedTotal counts duplicate logins that evicted a prior
	// session.
	SessionsReplacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_sessions_replaced_total",
		Help: "Sessions evicted by a newer connection for the same identity.",
	})

	// IdleEvictionsTotal counts sessions evicted by the idle sweeper.
	IdleEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_idle_evictions_total",
		Help: "Sessions evicted after exceeding the idle threshold.",
	})

	// TypingEventsTotal counts typing state transitions broadcast.
	TypingEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_typing_events_total",
		Help: "Typing state transitions broadcast to thread audiences.",
	})
)
