// Package metrics defines Prometheus metrics for the connection pool.
// It registers all collectors upfront so every package that touches the
// pool can record against them without an init-order dependency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive tracks the number of checked-out connections per address.
	ConnectionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "docpool_connections_active",
		Help: "Number of checked-out connections per address",
	}, []string{"address"})

	// ConnectionsIdle tracks the number of idle connections per address.
	ConnectionsIdle = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "docpool_connections_idle",
		Help: "Number of idle connections in the pool per address",
	}, []string{"address"})

	// ConnectionsMax tracks the configured max connections per address.
	ConnectionsMax = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "docpool_connections_max",
		Help: "Configured maximum connections per address",
	}, []string{"address"})

	// PoolGeneration tracks the current generation counter per address.
	PoolGeneration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "docpool_generation",
		Help: "Current pool generation per address",
	}, []string{"address"})

	// ConnectionsTotal counts total checkout/check-in operations by outcome.
	ConnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docpool_connections_total",
		Help: "Total connection operations",
	}, []string{"address", "status"})

	// QueueLength tracks the current wait-queue length per address.
	QueueLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "docpool_queue_length",
		Help: "Number of requesters waiting in the wait queue per address",
	}, []string{"address"})

	// QueueWaitDuration tracks the time checkout() spends waiting.
	QueueWaitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docpool_queue_wait_seconds",
		Help:    "Time spent waiting in the wait queue for a connection",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"address"})

	// ConnectionsClosedTotal counts ConnectionClosed events by reason.
	ConnectionsClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docpool_connections_closed_total",
		Help: "Total connections closed by the pool, by reason",
	}, []string{"address", "reason"})

	// ConnectionErrors counts connection errors by type.
	ConnectionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docpool_connection_errors_total",
		Help: "Total connection errors",
	}, []string{"address", "error_type"})

	// RedisOperations counts Redis operations performed by the distributed
	// event publisher (internal/events.RedisPublisher).
	RedisOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docpool_redis_operations_total",
		Help: "Total Redis operations performed by the event publisher",
	}, []string{"operation", "status"})

	// InstanceHeartbeat tracks instance heartbeat status.
	InstanceHeartbeat = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "docpool_instance_heartbeat",
		Help: "Instance heartbeat (1 = alive, 0 = dead)",
	}, []string{"instance_id"})
)
