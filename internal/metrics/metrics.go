package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Ticket service metrics
	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_replies_total",
			Help: "Total replies appended to tickets",
		},
		[]string{"sender"},
	)

	StatusUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_status_updates_total",
			Help: "Total ticket status changes",
		},
		[]string{"status"},
	)

	// Conversation cache metrics
	ConversationFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_conversation_fetches_total",
			Help: "Conversation fetches by outcome",
		},
		[]string{"outcome"}, // "ok", "error" or "discarded"
	)

	ConversationCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_conversation_cache_total",
			Help: "Conversation cache lookups",
		},
		[]string{"result"}, // "hit", "miss" or "joined"
	)
)
