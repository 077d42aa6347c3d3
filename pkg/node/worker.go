package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/balthazar/pkg/events"
	"github.com/cuemby/balthazar/pkg/log"
	"github.com/cuemby/balthazar/pkg/metrics"
	"github.com/cuemby/balthazar/pkg/types"
	"github.com/cuemby/balthazar/pkg/wasmrun"
	"github.com/libp2p/go-libp2p/core/peer"
)

// SetCurrentManager records the Worker's current pairing, established by
// pkg/swarmnet's pairing loop once a ManagerRequest is accepted.
func (o *Orchestrator) SetCurrentManager(id peer.ID) {
	p := id
	o.currentMgr = &p
	o.publish(events.EventManagerPaired, fmt.Sprintf("paired with manager %s", id))
}

// onTasksExecute handles a dispatched batch. Tasks arriving from any peer
// other than the current Manager are dropped — invariant 4 of spec.md
// §8. Execution runs in a background goroutine, sequentially within the
// batch (spec.md §4.7 Worker behaviour), so the event loop stays free to
// process an EventPeerDisconnected for the same Manager while a task is
// still running — see OnManagerDisconnect.
func (o *Orchestrator) onTasksExecute(ctx context.Context, from peer.ID, tasks map[string]types.TaskExecute) error {
	if o.currentMgr == nil || *o.currentMgr != from {
		log.WithSubsystem(log.SubsystemWorker).Warn(fmt.Sprintf("node: dropping TasksExecute from non-manager peer %s", from))
		return nil
	}

	o.runningMu.Lock()
	for key, task := range tasks {
		o.runningTasks[key] = runningTask{TaskID: task.TaskID, Manager: from}
	}
	o.runningMu.Unlock()

	o.runningWG.Add(1)
	go o.runBatch(ctx, from, tasks)
	return nil
}

// runBatch executes one dispatched batch off the event-loop goroutine.
func (o *Orchestrator) runBatch(ctx context.Context, from peer.ID, tasks map[string]types.TaskExecute) {
	defer o.runningWG.Done()
	logger := log.WithSubsystem(log.SubsystemWorker)
	stillRunning := func(taskID types.TaskID) bool {
		o.runningMu.Lock()
		defer o.runningMu.Unlock()
		_, ok := o.runningTasks[taskID.String()]
		return ok
	}
	for _, task := range tasks {
		if !stillRunning(task.TaskID) {
			continue // aborted by OnManagerDisconnect before it started
		}
		o.reportStatus(ctx, from, task.TaskID, types.StatusPending())

		program, err := o.fetchProgram(ctx, task)
		if !stillRunning(task.TaskID) {
			continue // aborted during the fetch; Aborted already reported
		}
		if err != nil {
			logger.Warn(fmt.Sprintf("node: fetch program for task %s: %v", task.TaskID, err))
			o.reportStatus(ctx, from, task.TaskID, types.StatusError(types.TaskErrorDownload))
			o.clearRunningTask(task.TaskID)
			continue
		}

		o.reportStatus(ctx, from, task.TaskID, types.StatusStarted(time.Now()))

		timer := metrics.NewTimer()
		result, err := o.runner.Run(ctx, program, task.Arguments, time.Duration(task.TimeoutS)*time.Second)
		timer.ObserveDuration(metrics.TaskRunDuration)
		if !stillRunning(task.TaskID) {
			continue // aborted during the run; Aborted already reported
		}
		if err != nil {
			errKind := classifyRunError(err)
			metrics.TaskRunFailuresTotal.WithLabelValues(errKind.String()).Inc()
			o.reportStatus(ctx, from, task.TaskID, types.StatusError(errKind))
			o.clearRunningTask(task.TaskID)
			continue
		}
		o.reportStatus(ctx, from, task.TaskID, types.StatusCompleted(result))
		o.clearRunningTask(task.TaskID)
	}
}

// clearRunningTask removes a task from runningTasks once it has reached a
// terminal status, whether reported by runBatch or by OnManagerDisconnect.
func (o *Orchestrator) clearRunningTask(taskID types.TaskID) {
	o.runningMu.Lock()
	delete(o.runningTasks, taskID.String())
	o.runningMu.Unlock()
}

func (o *Orchestrator) fetchProgram(ctx context.Context, task types.TaskExecute) ([]byte, error) {
	if len(task.JobAddr) == 0 {
		return nil, fmt.Errorf("task %s has no program address", task.TaskID)
	}
	var lastErr error
	for _, addr := range task.JobAddr {
		timer := metrics.NewTimer()
		data, err := o.store.Fetch(ctx, string(addr), maxProgramSize)
		timer.ObserveDuration(metrics.StorageFetchDuration)
		if err == nil {
			metrics.StorageBytesFetched.Add(float64(len(data)))
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

const maxProgramSize = 64 << 20

func classifyRunError(err error) types.TaskErrorKind {
	var runErr *wasmrun.RunError
	if !errors.As(err, &runErr) {
		return types.TaskErrorUnknown
	}
	switch runErr.Kind {
	case wasmrun.FailureTimeout:
		return types.TaskErrorTimeout
	case wasmrun.FailureAborted:
		return types.TaskErrorAborted
	default:
		return types.TaskErrorRunning
	}
}

func (o *Orchestrator) reportStatus(ctx context.Context, to peer.ID, taskID types.TaskID, status types.TaskStatus) {
	if err := o.swarm.SendTaskStatus(ctx, to, taskID, status); err != nil {
		log.WithSubsystem(log.SubsystemWorker).Warn(fmt.Sprintf("node: report status for task %s: %v", taskID, err))
	}
}

// OnManagerDisconnect clears the Worker's pairing when the peer that
// disconnected was its current Manager, and reports every task still
// running for that Manager as Error(Aborted) (spec.md §4.7 "On Manager
// disconnect"). The report is sent to a peer that's already gone — it
// exists so local bookkeeping and tests observe the abort even though
// delivery can't succeed. runBatch checks runningTasks before each task
// and after each fetch and run, so it sends no further status for an
// aborted task and skips the rest of the batch; a WASM run already in
// progress is not interrupted, and its outcome is discarded.
// Re-pairing is left to pkg/swarmnet's pairing loop, which keeps ticking
// regardless.
func (o *Orchestrator) OnManagerDisconnect(ctx context.Context, manager peer.ID) {
	if o.currentMgr == nil || *o.currentMgr != manager {
		return
	}
	o.currentMgr = nil

	o.runningMu.Lock()
	var aborted []types.TaskID
	for key, rt := range o.runningTasks {
		if rt.Manager != manager {
			continue
		}
		aborted = append(aborted, rt.TaskID)
		delete(o.runningTasks, key)
	}
	o.runningMu.Unlock()

	for _, taskID := range aborted {
		o.reportStatus(ctx, manager, taskID, types.StatusError(types.TaskErrorAborted))
		o.publish(events.EventTaskAborted, fmt.Sprintf("task %s aborted: manager %s disconnected", taskID, manager))
	}
}
