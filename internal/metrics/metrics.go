// Package metrics exposes Prometheus instrumentation for the API and the
// marketplace domain.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketplace_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	listingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_listings_created_total",
		Help: "Listings accepted by the marketplace.",
	})

	listingsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_listings_rejected_total",
		Help: "Listing submissions rejected, by reason.",
	}, []string{"reason"})

	purchases = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_purchases_total",
		Help: "Completed credit purchases.",
	})

	creditsSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_credits_sold_total",
		Help: "Credits transferred through completed purchases.",
	})
)

// ListingCreated records an accepted listing.
func ListingCreated() { listingsCreated.Inc() }

// ListingRejected records a rejected listing submission.
func ListingRejected(reason string) { listingsRejected.WithLabelValues(reason).Inc() }

// PurchaseCompleted records a completed purchase and its credit volume.
func PurchaseCompleted(quantity float64) {
	purchases.Inc()
	creditsSold.Add(quantity)
}

// Middleware instruments every request. Routes are labelled by their gin
// template path so path parameters do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
