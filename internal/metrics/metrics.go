package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApplicationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_applications_submitted_total",
			Help: "Total number of applications submitted through the portal",
		},
		[]string{"backend"},
	)

	SubmissionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_submissions_failed_total",
			Help: "Total number of rejected or failed submissions",
		},
		[]string{"reason"},
	)

	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_decisions_total",
			Help: "Total number of admin decisions by resulting status",
		},
		[]string{"status"},
	)

	Registrations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admissions_registrations_total",
			Help: "Total number of applicant accounts created",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admissions_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
