package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Swarm metrics
	PeersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "balthazar_peers_total",
			Help: "Total number of known swarm peers by discovered role",
		},
		[]string{"role"},
	)

	PairedWorkersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "balthazar_paired_workers_total",
			Help: "Total number of known swarm peers whose discovered role is worker",
		},
	)

	// Orchestrator metrics
	PendingTasksTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "balthazar_pending_tasks_total",
			Help: "Total number of tasks waiting in the Manager's pending deque",
		},
	)

	InFlightTasksTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "balthazar_in_flight_tasks_total",
			Help: "Total number of tasks currently dispatched to a Worker and awaiting status",
		},
	)

	TasksDispatchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "balthazar_tasks_dispatched_total",
			Help: "Total number of tasks dispatched to Workers",
		},
	)

	TasksCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balthazar_tasks_completed_total",
			Help: "Total number of tasks that reached a terminal status",
		},
		[]string{"status"},
	)

	TaskDispatchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "balthazar_task_dispatch_latency_seconds",
			Help:    "Time between a task entering the pending deque and being dispatched",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Chain metrics
	ChainEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balthazar_chain_events_total",
			Help: "Total number of chain events observed by kind",
		},
		[]string{"kind"},
	)

	ChainLastBlockObserved = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "balthazar_chain_last_block_observed",
			Help: "Block number of the last chain event observed",
		},
	)

	// WASM execution metrics
	TaskRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "balthazar_task_run_duration_seconds",
			Help:    "Time to execute a task's WASM program to completion",
			Buckets: prometheus.DefBuckets,
		},
	)

	TaskRunFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balthazar_task_run_failures_total",
			Help: "Total number of task executions that failed, by failure kind",
		},
		[]string{"kind"},
	)

	// Storage metrics
	StorageFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "balthazar_storage_fetch_duration_seconds",
			Help:    "Time to fetch a program or input from content-addressed storage",
			Buckets: prometheus.DefBuckets,
		},
	)

	StorageBytesFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "balthazar_storage_bytes_fetched_total",
			Help: "Total number of bytes fetched from content-addressed storage",
		},
	)
)

func init() {
	// Register swarm metrics
	prometheus.MustRegister(PeersTotal)
	prometheus.MustRegister(PairedWorkersTotal)

	// Register orchestrator metrics
	prometheus.MustRegister(PendingTasksTotal)
	prometheus.MustRegister(InFlightTasksTotal)
	prometheus.MustRegister(TasksDispatchedTotal)
	prometheus.MustRegister(TasksCompletedTotal)
	prometheus.MustRegister(TaskDispatchLatency)

	// Register chain metrics
	prometheus.MustRegister(ChainEventsTotal)
	prometheus.MustRegister(ChainLastBlockObserved)

	// Register WASM execution metrics
	prometheus.MustRegister(TaskRunDuration)
	prometheus.MustRegister(TaskRunFailuresTotal)

	// Register storage metrics
	prometheus.MustRegister(StorageFetchDuration)
	prometheus.MustRegister(StorageBytesFetched)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
