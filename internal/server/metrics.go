// Package server exposes Prometheus collectors for connection and message
// traffic counters.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatrelay_connections_active",
			Help: "Number of live WebSocket connections",
		},
	)

	messagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_messages_received_total",
			Help: "Inbound frames by decoded message type",
		},
		[]string{"type"},
	)

	messagesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_messages_delivered_total",
			Help: "Outbound messages enqueued for delivery",
		},
	)

	deliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_delivery_failures_total",
			Help: "Failed deliveries that caused the target connection to be pruned",
		},
	)

	rateLimitedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_rate_limited_frames_total",
			Help: "Inbound frames dropped by the per-connection rate limiter",
		},
	)
)
