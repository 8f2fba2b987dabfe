// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyroom_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// outcome is OutcomeCreated or the error kind name (SlotTaken, QuotaExceeded, ...).
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_bookings_total",
			Help: "Booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// reason is one of the Reason constants.
	ReservationsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_reservations_deleted_total",
			Help: "Reservations removed, by reason.",
		},
		[]string{"reason"},
	)

	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_job_runs_total",
			Help: "Scheduled job executions by job and status.",
		},
		[]string{"job", "status"},
	)

	JobLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "studyroom_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of each job.",
		},
		[]string{"job"},
	)

	JobNextRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "studyroom_job_next_run_timestamp_seconds",
			Help: "Unix time each job is next due.",
		},
		[]string{"job"},
	)
)

// Label values of BookingsTotal and ReservationsDeleted.
const (
	OutcomeCreated = "created"

	ReasonManual  = "manual"  // DELETE /v1/reservations/:id
	ReasonCleanup = "cleanup" // POST /v1/reservations/cleanup
	ReasonJanitor = "janitor" // scheduled retention purge
	ReasonReset   = "reset"   // weekly reset
)

// RecordBooking counts one booking attempt.
func RecordBooking(outcome string) {
	BookingsTotal.WithLabelValues(outcome).Inc()
}

// RecordDeleted adds n removed reservations under reason.
func RecordDeleted(reason string, n int64) {
	if n > 0 {
		ReservationsDeleted.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordJobRun counts a job execution; a successful one also moves the
// last-success gauge.
func RecordJobRun(job string, err error, at time.Time) {
	if err != nil {
		JobRunsTotal.WithLabelValues(job, "error").Inc()
		return
	}
	JobRunsTotal.WithLabelValues(job, "ok").Inc()
	JobLastSuccess.WithLabelValues(job).Set(float64(at.Unix()))
}

// SetJobNextRun records when job is next due.
func SetJobNextRun(job string, at time.Time) {
	JobNextRun.WithLabelValues(job).Set(float64(at.Unix()))
}

// Middleware records count and latency of every request, labelled by the
// route pattern rather than the raw path to keep cardinality bounded.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)
			HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
			HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
