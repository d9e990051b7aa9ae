package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_http_requests_total",
			Help: "Total number of HTTP requests processed by the realtime gateway.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realtime_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"channel"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"channel", "event"},
	)
	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_published_total",
			Help: "Total number of domain events dispatched to broadcast groups.",
		},
		[]string{"event"},
	)
	eventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Total number of per-connection pushes dropped because the send buffer was full or the peer was gone.",
		},
	)
	notificationsFannedOutTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_notifications_fanned_out_total",
			Help: "Total number of notifications created by the fan-out trigger.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		eventsPublishedTotal,
		eventsDroppedTotal,
		notificationsFannedOutTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies per route.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(channel string) {
	wsActiveConnections.WithLabelValues(channel).Inc()
}

func DecWSActive(channel string) {
	wsActiveConnections.WithLabelValues(channel).Dec()
}

func IncWSEvent(channel, event string) {
	wsEventsTotal.WithLabelValues(channel, event).Inc()
}

func IncEventPublished(event string) {
	eventsPublishedTotal.WithLabelValues(event).Inc()
}

func IncEventDropped() {
	eventsDroppedTotal.Inc()
}

func AddNotificationsFannedOut(n int) {
	notificationsFannedOutTotal.Add(float64(n))
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
