package node

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/balthazar/pkg/chain"
	"github.com/cuemby/balthazar/pkg/events"
	"github.com/cuemby/balthazar/pkg/log"
	"github.com/cuemby/balthazar/pkg/metrics"
	"github.com/cuemby/balthazar/pkg/swarmnet"
	"github.com/cuemby/balthazar/pkg/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

func (o *Orchestrator) handleChainEvent(ctx context.Context, ev chain.JobsEvent) error {
	metrics.ChainEventsTotal.WithLabelValues(ev.Kind.String()).Inc()
	metrics.ChainLastBlockObserved.Set(float64(ev.BlockNumber))

	switch ev.Kind {
	case chain.EventJobLocked:
		return o.onJobLocked(ctx, ev.JobID)
	default:
		return nil // JobNew/TaskCompleted/TaskFailed/JobCompleted need no orchestrator action beyond what onTaskStatus already drives
	}
}

// onJobLocked resolves the job's arguments and pushes one PendingTask per
// task onto the front of the deque (spec.md §4.7: "front insertion
// preserves a LIFO-per-job, FIFO-across-jobs dispatch order").
func (o *Orchestrator) onJobLocked(ctx context.Context, jobID types.JobID) error {
	args, err := o.chainAdapter.JobArguments(ctx, jobID)
	if err != nil {
		return fmt.Errorf("resolve arguments for job %s: %w", jobID, err)
	}

	o.jobs[jobID.String()] = &jobRecord{}

	for i, arg := range args {
		taskID, err := types.NewTaskID(jobID, uint16(i), arg)
		if err != nil {
			return fmt.Errorf("derive task id for job %s arg %d: %w", jobID, i, err)
		}
		o.pendingTasks.PushFront(types.PendingTask{JobID: jobID, TaskID: taskID})
	}
	log.WithSubsystem(log.SubsystemManager).Info(fmt.Sprintf("node: job %s locked, %d tasks pending", jobID, len(args)))
	o.publish(events.EventJobLocked, fmt.Sprintf("job %s locked, %d tasks pending", jobID, len(args)))
	return o.dispatchToIdleWorkers(ctx)
}

// dispatchToIdleWorkers hands pending tasks to Workers already parked in
// idleWorkers from a prior onWorkerNew call that found the deque empty
// (spec.md §4.7: a Worker that paired before a job locked must still get
// dispatched once work arrives).
func (o *Orchestrator) dispatchToIdleWorkers(ctx context.Context) error {
	for worker := range o.idleWorkers {
		if o.pendingTasks.Back() == nil {
			break
		}
		if err := o.dispatchOne(ctx, worker); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) handleSwarmEvent(ctx context.Context, ev swarmnet.Event) error {
	switch ev.Kind {
	case swarmnet.EventWorkerNew:
		return o.onWorkerNew(ctx, ev.PeerID)
	case swarmnet.EventTaskStatus:
		return o.onTaskStatus(ctx, ev.PeerID, ev.TaskID, ev.Status)
	case swarmnet.EventPeerDisconnected:
		delete(o.idleWorkers, ev.PeerID)
		o.requeueInFlightFor(ev.PeerID)
		o.OnManagerDisconnect(ctx, ev.PeerID)
		o.publish(events.EventPeerDisconnected, fmt.Sprintf("peer %s disconnected", ev.PeerID))
		return nil
	case swarmnet.EventTasksExecute:
		return o.onTasksExecute(ctx, ev.PeerID, ev.Tasks)
	default:
		return nil
	}
}

// onWorkerNew dispatches one pending task to a newly paired Worker,
// provided it has no outstanding assignment (spec.md §4.7). A Worker whose
// task reaches a terminal status is not marked idle again; it is offered
// work only on its next EventWorkerNew.
func (o *Orchestrator) onWorkerNew(ctx context.Context, worker peer.ID) error {
	o.publish(events.EventWorkerPaired, fmt.Sprintf("worker %s available", worker))
	if o.hasAssignment(worker) {
		return nil
	}
	if o.pendingTasks.Back() == nil {
		o.idleWorkers[worker] = struct{}{}
		return nil
	}
	return o.dispatchOne(ctx, worker)
}

// dispatchOne pops the task at the back of the deque (FIFO across jobs)
// and dispatches it to worker, reserving its in_flight entry before the
// send and releasing the reservation if the send fails (spec.md §5
// reserve/await/commit-or-release). Caller must have already confirmed
// the deque is non-empty and worker has no outstanding assignment.
func (o *Orchestrator) dispatchOne(ctx context.Context, worker peer.ID) error {
	elem := o.pendingTasks.Back()
	if elem == nil {
		return nil
	}
	pending := o.pendingTasks.Remove(elem).(types.PendingTask)
	delete(o.idleWorkers, worker)

	task := types.TaskExecute{
		JobID:    pending.JobID,
		TaskID:   pending.TaskID,
		TimeoutS: uint32(o.taskTimeout.Seconds()),
	}
	deadline := time.Now().Add(o.taskTimeout)
	o.inFlight[pending.TaskID.String()] = &inFlightEntry{PeerID: worker, Task: task, StartedAt: time.Now(), Deadline: deadline}

	tasks := map[string]types.TaskExecute{pending.TaskID.String(): task}
	if err := o.swarm.SendTasksExecute(ctx, worker, tasks); err != nil {
		delete(o.inFlight, pending.TaskID.String())
		o.pendingTasks.PushBack(pending)
		return fmt.Errorf("dispatch task %s to %s: %w", pending.TaskID, worker, err)
	}
	metrics.TasksDispatchedTotal.Inc()
	o.publish(events.EventTaskDispatched, fmt.Sprintf("task %s dispatched to %s", pending.TaskID, worker))
	return nil
}

// onTaskStatus updates in_flight on a terminal status, submits a
// Completed result to the chain, and re-enqueues on Error while
// max_failures isn't exhausted (spec.md §4.7, §9 Open Question: per-job scope).
func (o *Orchestrator) onTaskStatus(ctx context.Context, from peer.ID, taskID types.TaskID, status types.TaskStatus) error {
	entry, ok := o.inFlight[taskID.String()]
	if !ok || entry.PeerID != from || !status.IsTerminal() {
		return nil // stale, spoofed, or non-terminal status; ignore
	}
	delete(o.inFlight, taskID.String())

	switch status.Kind {
	case types.TaskStatusCompleted:
		if err := o.chainAdapter.SubmitTaskResult(ctx, entry.Task.JobID, taskID, status.Result); err != nil {
			return fmt.Errorf("submit result for task %s: %w", taskID, err)
		}
		metrics.TasksCompletedTotal.WithLabelValues("completed").Inc()
		o.publish(events.EventTaskCompleted, fmt.Sprintf("task %s completed by %s", taskID, from))
	case types.TaskStatusError:
		metrics.TasksCompletedTotal.WithLabelValues("error").Inc()
		o.publish(events.EventTaskFailed, fmt.Sprintf("task %s failed on %s: %s", taskID, from, status.ErrorKind))
		o.recordFailureAndMaybeRequeue(entry.Task.JobID, taskID)
	}
	return nil
}

// recordFailureAndMaybeRequeue bumps the job's failure counter and, while
// below o.maxFailures, re-enqueues the task at the back of the deque for
// retry on the next WorkerNew (spec.md §9: max_failures is enforced
// per-job, shared across every task the job dispatches).
func (o *Orchestrator) recordFailureAndMaybeRequeue(jobID types.JobID, taskID types.TaskID) {
	rec, ok := o.jobs[jobID.String()]
	if !ok {
		return
	}
	rec.Failures++
	if rec.Failures < o.maxFailures {
		o.pendingTasks.PushBack(types.PendingTask{JobID: jobID, TaskID: taskID})
	}
}

func (o *Orchestrator) requeueInFlightFor(worker peer.ID) {
	for key, entry := range o.inFlight {
		if entry.PeerID == worker {
			delete(o.inFlight, key)
			o.recordFailureAndMaybeRequeue(entry.Task.JobID, entry.Task.TaskID)
		}
	}
}

func (o *Orchestrator) hasAssignment(worker peer.ID) bool {
	for _, entry := range o.inFlight {
		if entry.PeerID == worker {
			return true
		}
	}
	return false
}

// enforceDeadlines scans in_flight for entries past their deadline and
// drops them, counting each as a failure of its job and re-enqueuing it
// while the job's failure budget allows (spec.md §4.7 "Deadline
// enforcement"). No TaskStatus or event is emitted for an expired entry.
func (o *Orchestrator) enforceDeadlines(ctx context.Context) {
	now := time.Now()
	for key, entry := range o.inFlight {
		if now.After(entry.Deadline) {
			delete(o.inFlight, key)
			o.recordFailureAndMaybeRequeue(entry.Task.JobID, entry.Task.TaskID)
		}
	}
}
