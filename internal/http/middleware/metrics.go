package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests that hit no route, so scanners probing random
// URLs cannot inflate label cardinality.
const unmatchedRoute = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intake",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status class.",
	}, []string{"method", "route", "class"})

	httpLat = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "intake",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency. Push requests include the whole pipeline run.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "route"})

	httpRespBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "intake",
		Subsystem: "http",
		Name:      "response_bytes",
		Help:      "HTTP response body size.",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
	}, []string{"route"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "intake",
		Subsystem: "http",
		Name:      "requests_inflight",
		Help:      "HTTP requests currently being served.",
	})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpRespBytes, httpInflight)
}

// statusClass folds a status code into "2xx", "4xx" and so on.
func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// Metrics records request count, latency, response size and in-flight
// requests, labeled by method and registered route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInflight.Inc()
		defer httpInflight.Dec()
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m := c.Request.Method
		httpReqs.WithLabelValues(m, route, statusClass(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(m, route).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			httpRespBytes.WithLabelValues(route).Observe(float64(size))
		}
	}
}
