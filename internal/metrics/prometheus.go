package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	startTime = time.Now()

	UptimeSeconds = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "mandadito",
		Subsystem: "api",
		Name:      "uptime_seconds",
		Help:      "Time passed since the service started in seconds",
	}, func() float64 { return time.Since(startTime).Seconds() })

	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mandadito",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Served HTTP requests by method, route pattern and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mandadito",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Task lifecycle
	TaskTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mandadito",
		Subsystem: "tasks",
		Name:      "transitions_total",
		Help:      "Task state transitions by target state",
	}, []string{"to"})

	TaskRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mandadito",
		Subsystem: "tasks",
		Name:      "requests_total",
		Help:      "Applications and invitations by kind and resulting status",
	}, []string{"kind", "status"})

	// Auto-confirmation sweep
	SweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mandadito",
		Subsystem: "sweep",
		Name:      "runs_total",
		Help:      "Auto-confirmation sweeps by trigger (schedule/admin/cli/inline)",
	}, []string{"trigger"})

	SweepTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mandadito",
		Subsystem: "sweep",
		Name:      "tasks_total",
		Help:      "Tasks handled by the sweep by outcome (confirmed/completed/failed)",
	}, []string{"outcome"})

	SweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mandadito",
		Subsystem: "sweep",
		Name:      "duration_seconds",
		Help:      "Duration of one auto-confirmation sweep",
		Buckets:   prometheus.DefBuckets,
	})

	// Ratings
	RatingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mandadito",
		Subsystem: "ratings",
		Name:      "saved_total",
		Help:      "Ratings saved by action (created/updated) and rater role",
	}, []string{"action", "rater_role"})
)

// Recorder adapts the package metrics to the observer interfaces of the
// middleware, task and rating packages.
type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

func (Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (Recorder) TaskTransition(to string) {
	TaskTransitionsTotal.WithLabelValues(to).Inc()
}

func (Recorder) TaskRequest(kind, status string) {
	TaskRequestsTotal.WithLabelValues(kind, status).Inc()
}

func (Recorder) SweepFinished(trigger string, confirmed, completed, failed int, elapsed time.Duration) {
	SweepRunsTotal.WithLabelValues(trigger).Inc()
	SweepTasksTotal.WithLabelValues("confirmed").Add(float64(confirmed))
	SweepTasksTotal.WithLabelValues("completed").Add(float64(completed))
	SweepTasksTotal.WithLabelValues("failed").Add(float64(failed))
	SweepDurationSeconds.Observe(elapsed.Seconds())
}

func (Recorder) RatingSaved(created bool, raterRole string) {
	action := "updated"
	if created {
		action = "created"
	}
	RatingsTotal.WithLabelValues(action, raterRole).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
