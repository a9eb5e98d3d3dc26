package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"social-publisher/domain/model"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	providerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "social_publisher",
			Subsystem: "publishing",
			Name:      "operations_total",
			Help:      "Publishing operations by platform, operation and outcome.",
		},
		[]string{"platform", "operation", "outcome"},
	)

	providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "social_publisher",
			Subsystem: "publishing",
			Name:      "operation_duration_seconds",
			Help:      "Duration of publishing operations.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 11), // 50ms to ~51s
		},
		[]string{"platform", "operation"},
	)

	oauthCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "social_publisher",
			Subsystem: "oauth",
			Name:      "operations_total",
			Help:      "OAuth exchanges and refreshes by platform and outcome.",
		},
		[]string{"platform", "operation", "outcome"},
	)

	sweepPosts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "social_publisher",
			Subsystem: "scheduler",
			Name:      "posts_total",
			Help:      "Scheduled posts processed by sweeps, by outcome.",
		},
		[]string{"outcome"},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "social_publisher",
			Subsystem: "scheduler",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of scheduler sweeps.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)

	activityFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "social_publisher",
			Subsystem: "activity",
			Name:      "sink_failures_total",
			Help:      "Activity events a sink failed to accept.",
		},
		[]string{"sink"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "social_publisher",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "social_publisher",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		providerCalls,
		providerDuration,
		oauthCalls,
		sweepPosts,
		sweepDuration,
		activityFailures,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordOperation records one publisher call.
func RecordOperation(platform model.Platform, operation string, success bool, duration time.Duration) {
	providerCalls.WithLabelValues(string(platform), operation, outcome(success)).Inc()
	providerDuration.WithLabelValues(string(platform), operation).Observe(duration.Seconds())
}

// RecordOAuth records a token exchange or refresh.
func RecordOAuth(platform model.Platform, operation string, success bool) {
	oauthCalls.WithLabelValues(string(platform), operation, outcome(success)).Inc()
}

// RecordSweep records the outcome of one scheduler sweep.
func RecordSweep(report *model.SweepReport, duration time.Duration) {
	sweepPosts.WithLabelValues("success").Add(float64(report.Successful))
	sweepPosts.WithLabelValues("failure").Add(float64(report.Failed))
	sweepDuration.Observe(duration.Seconds())
}

// RecordActivityFailure counts an event a sink rejected.
func RecordActivityFailure(sink string) {
	activityFailures.WithLabelValues(sink).Inc()
}

// GinMiddleware records request counts and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := strings.ToUpper(c.Request.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
