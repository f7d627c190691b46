package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by route template and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "menfess",
		Name:      "http_requests_total",
		Help:      "HTTP requests handled, by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency per route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "menfess",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ModerationActions counts approvals, rejections, deletions and suspensions.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "menfess",
		Name:      "moderation_actions_total",
		Help:      "Moderation actions taken, by action.",
	}, []string{"action"})

	// Submissions counts accepted menfess submissions.
	Submissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "menfess",
		Name:      "submissions_total",
		Help:      "Menfess submissions accepted into the moderation queue.",
	})
)
