package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "expedition"

var (
	BotUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace, Name: "bot_updates_total", Help: "Processed telegram updates",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace, Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	TripTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace, Name: "trip_transitions_total", Help: "Trip state machine calls by outcome",
	}, []string{"op", "outcome"})
	CalendarSync = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace, Name: "calendar_sync_total", Help: "Calendar outbox entries handled",
	}, []string{"action", "outcome"})
	OutboxBacklog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace, Name: "calendar_outbox_backlog", Help: "Pending calendar outbox entries",
	})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace, Name: "http_requests_total", Help: "Admin API requests",
	}, []string{"method", "route", "code"})

	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace, Subsystem: "job", Name: "runs_total", Help: "Background job runs",
	}, []string{"job"})
	JobErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace, Subsystem: "job", Name: "errors_total", Help: "Background job errors",
	}, []string{"job"})
	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace, Subsystem: "job", Name: "duration_seconds", Help: "Background job duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(BotUpdates, HandlerErrors, DBPing,
		TripTransitions, CalendarSync, OutboxBacklog, HTTPRequests,
		JobRuns, JobErrors, JobDuration)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveTransition(op, outcome string) { TripTransitions.WithLabelValues(op, outcome).Inc() }

func ObserveCalendar(action, outcome string) { CalendarSync.WithLabelValues(action, outcome).Inc() }

// ObserveJob — один запуск фоновой задачи.
func ObserveJob(name string, took time.Duration, err error) {
	if err != nil {
		JobErrors.WithLabelValues(name).Inc()
	}
	JobRuns.WithLabelValues(name).Inc()
	JobDuration.WithLabelValues(name).Observe(took.Seconds())
}
