package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatter_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatter_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	ConversationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatter_conversations_created_total",
			Help: "Total conversations created",
		},
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatter_messages_sent_total",
			Help: "Total messages sent",
		},
	)

	MessagesMarkedRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatter_messages_marked_read_total",
			Help: "Total messages flipped to read",
		},
	)

	ConversationsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatter_conversations_deleted_total",
			Help: "Total conversations deleted",
		},
		[]string{"mode"}, // "soft" or "hard"
	)

	// Live connection metrics
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatter_live_connections",
			Help: "Currently connected WebSocket clients",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatter_events_published_total",
			Help: "Total fan-out events published",
		},
		[]string{"event"},
	)
)
