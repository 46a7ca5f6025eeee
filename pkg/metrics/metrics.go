// Package metrics exposes Prometheus instrumentation for the messaging core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesSent counts message inserts by outcome.
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Messages submitted for insert",
		},
		[]string{"status"},
	)

	// SubscriptionsActive tracks live realtime subscriptions by scope kind.
	SubscriptionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_subscriptions_active",
			Help: "Active realtime change-feed subscriptions",
		},
		[]string{"scope"},
	)

	// EventsDelivered counts change-feed events delivered to callbacks.
	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_delivered_total",
			Help: "Change-feed events delivered to subscription callbacks",
		},
		[]string{"scope"},
	)

	// EventsDropped counts events filtered out or deduplicated.
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Change-feed events filtered or deduplicated",
		},
		[]string{"reason"},
	)

	// NotificationsCreated counts notification rows written.
	NotificationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notification rows created",
		},
	)

	// WSConnectionsActive tracks connected websocket clients.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Connected websocket clients",
		},
	)
)
