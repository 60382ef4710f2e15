// Package metrics holds the process-wide Prometheus collectors. They register
// on the default registry at init and are scraped from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts requests by method, chi route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillshare_http_requests_total",
		Help: "Total HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skillshare_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// LikesToggled counts like toggles by resulting state ("liked" or "unliked").
	LikesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillshare_likes_toggled_total",
		Help: "Like toggles by outcome",
	}, []string{"outcome"})

	CommentsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skillshare_comments_added_total",
		Help: "Comments appended to posts",
	})

	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skillshare_posts_created_total",
		Help: "Posts created",
	})

	PostsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skillshare_posts_deleted_total",
		Help: "Posts deleted by their author",
	})

	// StaleWriteRetries counts compare-and-swap losses by document kind
	// ("post" or "user"). A steady climb means hot documents.
	StaleWriteRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillshare_stale_write_retries_total",
		Help: "Optimistic concurrency retries by document kind",
	}, []string{"kind"})

	// RateLimited counts requests rejected by the auth rate limiter.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillshare_rate_limited_total",
		Help: "Requests rejected by the rate limiter by route",
	}, []string{"route"})

	// RateLimitErrors counts limiter store failures. The limiter fails open,
	// so these requests were let through.
	RateLimitErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skillshare_rate_limit_store_errors_total",
		Help: "Rate limiter store failures (request allowed)",
	})

	CodeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillshare_code_runs_total",
		Help: "Sandboxed code executions by language and result",
	}, []string{"language", "result"})
)
