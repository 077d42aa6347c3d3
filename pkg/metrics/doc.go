/*
Package metrics provides Prometheus metrics collection and exposition for a
Balthazar node.

The metrics package defines and registers every Balthazar metric using the
Prometheus client library, giving observability into swarm membership,
orchestrator queue depth, chain observation, WASM execution, and storage
fetches. Metrics are exposed via an HTTP endpoint for scraping by Prometheus
servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Swarm: peer counts, paired workers         │          │
	│  │  Orchestrator: pending/in-flight tasks      │          │
	│  │  Chain: events observed, last block         │          │
	│  │  WASM: run duration, failure kind           │          │
	│  │  Storage: fetch duration, bytes fetched     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Handler: metrics.Handler()                │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────┘

# Metrics Catalog

Swarm Metrics:

balthazar_peers_total{role}:
  - Type: Gauge
  - Description: Known swarm peers by discovered role (manager/worker/unknown)
  - Example: balthazar_peers_total{role="worker"} 5

balthazar_paired_workers_total:
  - Type: Gauge
  - Description: Known swarm peers whose discovered role is worker (set
    by the Collector from the Registry's role counts; pairing state is
    not consulted)
  - Example: balthazar_paired_workers_total 3

Orchestrator Metrics:

balthazar_pending_tasks_total:
  - Type: Gauge
  - Description: Tasks waiting in the Manager's pending deque

balthazar_in_flight_tasks_total:
  - Type: Gauge
  - Description: Tasks dispatched to a Worker and awaiting status

balthazar_tasks_dispatched_total:
  - Type: Counter
  - Description: Tasks dispatched to Workers

balthazar_tasks_completed_total{status}:
  - Type: Counter
  - Description: Tasks reaching a terminal status, by status value

balthazar_task_dispatch_latency_seconds:
  - Type: Histogram
  - Description: Time between a task entering the pending deque and dispatch
  - Registered and exported, but no code in this module observes it, so it
    stays empty

Chain Metrics:

balthazar_chain_events_total{kind}:
  - Type: Counter
  - Description: Chain events observed, by kind (JobNew, JobLocked,
    TaskCompleted, TaskFailed, JobCompleted)

balthazar_chain_last_block_observed:
  - Type: Gauge
  - Description: Block number of the last chain event observed

WASM Execution Metrics:

balthazar_task_run_duration_seconds:
  - Type: Histogram
  - Description: Time to execute a task's WASM program to completion

balthazar_task_run_failures_total{kind}:
  - Type: Counter
  - Description: Task executions that failed, by failure kind (Timeout,
    Aborted, Running, Unknown)

Storage Metrics:

balthazar_storage_fetch_duration_seconds:
  - Type: Histogram
  - Description: Time to fetch a program or input from content-addressed storage

balthazar_storage_bytes_fetched_total:
  - Type: Counter
  - Description: Bytes fetched from content-addressed storage

# Usage

Updating Gauge Metrics:

	import "github.com/cuemby/balthazar/pkg/metrics"

	metrics.PeersTotal.WithLabelValues("worker").Set(5)
	metrics.PendingTasksTotal.Set(12)

Updating Counter Metrics:

	metrics.TasksDispatchedTotal.Inc()
	metrics.ChainEventsTotal.WithLabelValues("JobLocked").Inc()

Recording Histogram Observations:

	metrics.TaskDispatchLatency.Observe(0.125) // 125ms

	timer := metrics.NewTimer()
	// ... run the task ...
	timer.ObserveDuration(metrics.TaskRunDuration)

Complete Example:

	package main

	import (
		"net/http"
		"github.com/cuemby/balthazar/pkg/metrics"
	)

	func main() {
		metrics.PeersTotal.WithLabelValues("manager").Set(1)
		metrics.PeersTotal.WithLabelValues("worker").Set(5)

		http.Handle("/metrics", metrics.Handler())
		http.ListenAndServe(":9090", nil)
	}

# Integration Points

This package integrates with:

  - pkg/swarmnet: Collector polls the peer Registry for
    balthazar_peers_total and balthazar_paired_workers_total
  - pkg/node: records queue depth, in-flight, dispatch and completion
    counts; chain events observed and the last block seen; task run
    duration and failure kind around wasmrun.Runner.Run; and fetch
    duration and bytes fetched around storage.Store.Fetch
  - Prometheus: scrapes /metrics

# Design Patterns

Package Init Registration:
  - All metrics registered in init(); MustRegister panics on duplicate
    registration, so metrics are available before main() runs.

Label Discipline:
  - Labels are bounded (role, status, kind) — never a job/task/peer id.

Timer Pattern:
  - Create a Timer at operation start, call ObserveDuration (or
    ObserveDurationVec for a labeled histogram) when it finishes.

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
*/
package metrics
