package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the service collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "library",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "library",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	lendingOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "library",
			Subsystem: "lending",
			Name:      "operations_total",
			Help:      "Borrow, return and extend attempts by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	chatReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "library",
			Subsystem: "assistant",
			Name:      "replies_total",
			Help:      "Chat replies by responder.",
		},
		[]string{"responder"},
	)

	publishedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "library",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Loan events handed to the broker.",
		},
		[]string{"type", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		lendingOperations,
		chatReplies,
		publishedEvents,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func ObserveHTTP(method, path string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// LendingOperation counts one engine call; outcome is "ok", "rejected" or "error".
func LendingOperation(operation, outcome string) {
	lendingOperations.WithLabelValues(operation, outcome).Inc()
}

func ChatReply(responder string) {
	chatReplies.WithLabelValues(responder).Inc()
}

func EventPublished(eventType string, success bool) {
	publishedEvents.WithLabelValues(eventType, strconv.FormatBool(success)).Inc()
}
