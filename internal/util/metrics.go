package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seckill_attempts_total",
		Help: "Total number of purchase attempts triggered",
	})

	AttemptsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seckill_attempts_rejected_total",
		Help: "Total number of rejected purchase attempts",
	}, []string{"reason"})

	AdmissionDeniedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seckill_admission_denied_total",
		Help: "Total number of attempts denied by the local rate limiter",
	})

	SubmissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seckill_submissions_total",
		Help: "Total number of purchase submissions sent to the backend",
	})

	DuplicateConvergedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seckill_duplicate_converged_total",
		Help: "Total number of duplicate-attempt responses converged to local success",
	})

	PollResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seckill_poll_resolutions_total",
		Help: "Total number of confirmation poll loops resolved",
	}, []string{"outcome"})

	PollQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seckill_poll_queries_total",
		Help: "Total number of order confirmation queries issued",
	})

	SubmitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "seckill_submit_latency_seconds",
		Help:    "Latency of purchase submissions",
		Buckets: prometheus.DefBuckets,
	})

	RemindersFiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seckill_reminders_fired_total",
		Help: "Total number of start-time reminders delivered",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
