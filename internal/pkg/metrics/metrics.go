/*
Package metrics defines the Prometheus collectors exported on /metrics.
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ryachat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ryachat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Chat metrics
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ryachat_users_registered_total",
			Help: "Total new users registered",
		},
	)

	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ryachat_messages_appended_total",
			Help: "Total messages appended to the log",
		},
		[]string{"kind"}, // "text", "image" or "system"
	)

	SendsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ryachat_sends_rejected_total",
			Help: "Total rejected send attempts",
		},
		[]string{"reason"},
	)

	PresenceResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ryachat_presence_resets_total",
			Help: "Total periodic presence resets",
		},
	)

	// Live channel metrics
	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ryachat_live_subscribers",
			Help: "Currently connected live subscribers",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ryachat_events_published_total",
			Help: "Total events published to the broadcast hub",
		},
		[]string{"type"},
	)

	DeliveriesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ryachat_deliveries_dropped_total",
			Help: "Total event deliveries dropped because a queue was full",
		},
		[]string{"queue"}, // "hub" or "subscriber"
	)

	// Abuse protection metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ryachat_ip_rate_limit_hits_total",
			Help: "Total requests rejected by per-IP throttles",
		},
		[]string{"limiter"},
	)

	UploadsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ryachat_uploads_stored_total",
			Help: "Total images stored in the blob store",
		},
	)
)
