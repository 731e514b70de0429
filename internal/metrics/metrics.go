// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "duelnet").
	Namespace string

	// Registry is where collectors are registered.
	// Default: a fresh registry, so several servers can coexist in one process.
	Registry *prometheus.Registry
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics holds the server collectors
type Metrics struct {
	Registry *prometheus.Registry

	ActiveConnections   prometheus.Gauge
	ConnectionsAccepted *prometheus.CounterVec // by transport
	ConnectionsRejected prometheus.Counter
	InputsApplied       *prometheus.CounterVec // by player
	FramesDropped       *prometheus.CounterVec // by player
	FramesBroadcast     *prometheus.CounterVec // by message type
	SlowConsumers       prometheus.Counter
}

// New registers the collectors
func New(opts ...Option) *Metrics {
	cfg := Config{Namespace: "duelnet"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(cfg.Registry)
	ns := cfg.Namespace

	return &Metrics{
		Registry: cfg.Registry,

		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "active_connections",
			Help:      "Connections currently holding a player slot",
		}),
		ConnectionsAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "connections_accepted_total",
			Help:      "Connections admitted into a slot",
		}, []string{"transport"}),
		ConnectionsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "connections_rejected_total",
			Help:      "Connections turned away because both slots were taken",
		}),
		InputsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "inputs_applied_total",
			Help:      "Player inputs merged into the game state",
		}, []string{"player"}),
		FramesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "frames_dropped_total",
			Help:      "Inbound frames that failed to decode",
		}, []string{"player"}),
		FramesBroadcast: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "frames_broadcast_total",
			Help:      "Frames queued for delivery, counted once per recipient",
		}, []string{"type"}),
		SlowConsumers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "slow_consumers_total",
			Help:      "Connections torn down because their send queue was full",
		}),
	}
}
