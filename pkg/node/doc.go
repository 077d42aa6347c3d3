/*
Package node implements the central orchestrator (C7): a single
cooperative event loop that ingests swarm, chain, and internal events and
drives either the Manager or the Worker state machine (spec.md §4.7).

All mutable orchestrator state — the pending-task deque, the in-flight
map, and the per-job failure counters — is owned exclusively by the
goroutine running Orchestrator.Run. Every other component communicates
with it only by sending on its bounded inbound channel
(CHANNEL_SIZE = 1024, spec.md §5), never by reaching into its state
directly.

The one exception is a Worker's runningTasks map: it is guarded by its
own mutex, written by the background goroutines that execute dispatched
batches, and read by the event loop when a Manager disconnects.
*/
package node
