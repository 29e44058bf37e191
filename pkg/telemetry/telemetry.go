// Package telemetry exposes the Prometheus collectors served on /metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// EventsTotal counts inbound client events by wire event name.
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relaychat_events_total",
		Help: "Inbound client events by event name.",
	}, []string{"event"})

	// BroadcastDeliveries counts payloads handed to session send buffers.
	BroadcastDeliveries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relaychat_broadcast_deliveries_total",
		Help: "Payloads delivered to session send buffers.",
	})

	// PersistFailures counts mutations that failed at the persistence boundary.
	PersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relaychat_persist_failures_total",
		Help: "Mutating operations that failed to persist.",
	})

	// DroppedOps counts operations rejected by a full relay queue.
	DroppedOps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relaychat_dropped_ops_total",
		Help: "Operations dropped because the relay queue was full.",
	})

	// DroppedSessions counts sessions disconnected for slow consumption.
	DroppedSessions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relaychat_dropped_sessions_total",
		Help: "Sessions dropped due to a full send buffer.",
	})

	// ConnectedSessions tracks currently registered sessions.
	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relaychat_connected_sessions",
		Help: "Currently connected websocket sessions.",
	})

	// MirrorDivergence reports how many account mirrors diverged from the
	// reconciled conversation at the last audit run.
	MirrorDivergence = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relaychat_mirror_divergence",
		Help: "Account mirrors out of sync with the conversation at last audit.",
	})
)

// Register installs all collectors on the default registry. Call once at
// startup.
func Register() {
	prometheus.MustRegister(
		EventsTotal,
		BroadcastDeliveries,
		PersistFailures,
		DroppedOps,
		DroppedSessions,
		ConnectedSessions,
		MirrorDivergence,
	)
}
