// Package metrics exposes Prometheus collectors for the portfolio server.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_http_requests_total",
		Help: "HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"})

	httpRequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_http_request_duration_seconds",
		Help:    "HTTP request latencies, labeled by method and route.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}, []string{"method", "route"})

	scrollSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "portfolio_scroll_subscriptions",
		Help: "Live scroll subscriptions (open progress streams).",
	})

	scrollSamplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_scroll_samples_total",
		Help: "Scroll samples received, labeled by outcome (processed or coalesced).",
	}, []string{"outcome"})

	once sync.Once
)

// Init registers the collectors with the default registry. It is safe to
// call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDurationSeconds,
			scrollSubscriptions,
			scrollSamplesTotal,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latencies per gin route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// ObserveHTTPRequest records one request.
func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

// SubscriptionOpened increments the live subscription gauge.
func SubscriptionOpened() {
	scrollSubscriptions.Inc()
}

// SubscriptionClosed decrements the gauge and adds the subscription's sample
// counts.
func SubscriptionClosed(processed, coalesced int64) {
	scrollSubscriptions.Dec()
	scrollSamplesTotal.WithLabelValues("processed").Add(float64(processed))
	scrollSamplesTotal.WithLabelValues("coalesced").Add(float64(coalesced))
}
