// Package metrics declares the Prometheus instruments exported at /metrics.
//
// Naming convention: namespace_subsystem_name
// - namespace: khun_phaen (application-level grouping)
// - subsystem: room, websocket, digest (feature-level grouping)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveRooms tracks the current number of live rooms in the registry.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "khun_phaen",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of live rooms in the registry",
	})

	// ConnectedPeers tracks the current number of connected websocket peers.
	ConnectedPeers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "khun_phaen",
		Subsystem: "websocket",
		Name:      "peers_active",
		Help:      "Current number of connected websocket peers",
	})

	// RoomEvictions counts rooms removed by the idle-eviction sweeper.
	RoomEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "khun_phaen",
		Subsystem: "room",
		Name:      "evictions_total",
		Help:      "Total rooms evicted after exceeding the idle timeout",
	})

	// SnapshotPersists counts asynchronous snapshot write-backs by outcome.
	SnapshotPersists = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "khun_phaen",
		Subsystem: "room",
		Name:      "snapshot_persists_total",
		Help:      "Total asynchronous snapshot persistence attempts",
	}, []string{"status"})

	// DigestSends counts digest webhook deliveries by outcome.
	DigestSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "khun_phaen",
		Subsystem: "digest",
		Name:      "sends_total",
		Help:      "Total digest webhook POST attempts",
	}, []string{"status"})
)
