package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PollRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soundreel_poll_runs_total",
		Help: "Total poll cycles per stream",
	}, []string{"stream"})
	PollErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soundreel_poll_errors_total",
		Help: "Total failed poll cycles per stream",
	}, []string{"stream"})
	PollDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "soundreel_poll_duration_seconds",
		Help:    "Poll cycle duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	StatusesMerged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "soundreel_statuses_merged_total",
		Help: "Total timeline items merged into the store",
	})
	NotificationsAdded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "soundreel_notifications_added_total",
		Help: "Total notifications merged into the store",
	})
	Actions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soundreel_actions_total",
		Help: "Total optimistic actions by kind and outcome",
	}, []string{"kind", "outcome"})
)

func init() {
	prometheus.MustRegister(PollRuns, PollErrors, PollDuration, StatusesMerged, NotificationsAdded, Actions)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObservePollDuration records one poll cycle duration.
func ObservePollDuration(start time.Time) {
	PollDuration.Observe(time.Since(start).Seconds())
}

// IncAction increments the action counter.
func IncAction(kind, outcome string) { Actions.WithLabelValues(kind, outcome).Inc() }
