package node

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/balthazar/pkg/chain"
	"github.com/cuemby/balthazar/pkg/config"
	"github.com/cuemby/balthazar/pkg/events"
	"github.com/cuemby/balthazar/pkg/log"
	"github.com/cuemby/balthazar/pkg/metrics"
	"github.com/cuemby/balthazar/pkg/storage"
	"github.com/cuemby/balthazar/pkg/swarmnet"
	"github.com/cuemby/balthazar/pkg/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

// swarmSender is the subset of *swarmnet.Host the orchestrator drives;
// narrowing to an interface lets tests exercise dispatch and status
// logic against a fake without standing up real libp2p networking.
type swarmSender interface {
	SendTasksExecute(ctx context.Context, to peer.ID, tasks map[string]types.TaskExecute) error
	SendTaskStatus(ctx context.Context, to peer.ID, taskID types.TaskID, status types.TaskStatus) error
}

// wasmRunner is the subset of *wasmrun.Runner the orchestrator drives;
// narrowing to an interface lets Worker-side tests substitute a fake
// executor instead of compiling real WASM modules.
type wasmRunner interface {
	Run(ctx context.Context, program, argument []byte, timeout time.Duration) ([]byte, error)
}

// jobRecord is the Manager's in-memory view of a locked job: enough to
// dispatch its tasks and enforce max_failures (scoped per-job per
// SPEC_FULL.md's Open Question decision).
type jobRecord struct {
	Job      types.Job
	Failures int // count of failed task attempts across the whole job
}

// inFlightEntry is one entry of C7's in_flight map (spec.md §4.7).
type inFlightEntry struct {
	PeerID    peer.ID
	Task      types.TaskExecute
	StartedAt time.Time
	Deadline  time.Time
}

// runningTask is one task a Worker has handed off to a background
// goroutine for execution (see onTasksExecute); tracked so
// OnManagerDisconnect can report it aborted even though the event loop
// itself isn't blocked waiting on it.
type runningTask struct {
	TaskID  types.TaskID
	Manager peer.ID
}

// Orchestrator is the single cooperative event loop of spec.md §4.7.
// Exactly one goroutine — the one running Run — ever touches pendingTasks,
// inFlight, or jobs; every other actor communicates through inbound.
type Orchestrator struct {
	role  config.NodeType
	swarm swarmSender

	// Manager-only state.
	chainAdapter chain.Adapter
	pendingTasks *list.List // of types.PendingTask, front-insertion (spec.md §3, §9)
	inFlight     map[string]*inFlightEntry
	jobs         map[string]*jobRecord
	idleWorkers  map[peer.ID]struct{}
	maxFailures  int
	taskTimeout  time.Duration

	// Worker-only state.
	store      storage.Store
	runner     wasmRunner
	currentMgr *peer.ID

	// runningTasks is written by the event loop (on dispatch) and by the
	// background goroutines onTasksExecute spawns (on completion), and
	// read by OnManagerDisconnect (also running on the event loop) — the
	// one piece of Orchestrator state touched from more than one
	// goroutine, hence the dedicated mutex.
	runningMu    sync.Mutex
	runningTasks map[string]runningTask
	runningWG    sync.WaitGroup

	broker *events.Broker

	inbound chan inboundEvent
}

// SetEventBroker attaches a broker the orchestrator publishes local
// occurrences to (job locked, task dispatched/completed/failed/aborted,
// peer paired/disconnected) for introspection and log fan-out — none of
// this is part of the wire protocol. A nil broker (the default) makes
// publish a no-op.
func (o *Orchestrator) SetEventBroker(b *events.Broker) {
	o.broker = b
}

// publish is a nil-safe helper so call sites don't need to guard on
// whether a broker was attached.
func (o *Orchestrator) publish(kind events.EventType, message string) {
	if o.broker == nil {
		return
	}
	o.broker.Publish(&events.Event{Type: kind, Message: message})
}

// New constructs an Orchestrator for the given role. chainAdapter, store,
// and runner are only exercised by the role that needs them: a Worker
// never touches chainAdapter, a Manager never touches store/runner.
// maxFailures and taskTimeout are the Manager's per-job retry budget and
// per-task dispatch timeout (spec.md §4.7, §9).
func New(role config.NodeType, swarm swarmSender, chainAdapter chain.Adapter, store storage.Store, runner wasmRunner, maxFailures int, taskTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		role:         role,
		swarm:        swarm,
		chainAdapter: chainAdapter,
		pendingTasks: list.New(),
		inFlight:     make(map[string]*inFlightEntry),
		jobs:         make(map[string]*jobRecord),
		maxFailures:  maxFailures,
		taskTimeout:  taskTimeout,
		idleWorkers:  make(map[peer.ID]struct{}),
		store:        store,
		runner:       runner,
		runningTasks: make(map[string]runningTask),
		inbound:      make(chan inboundEvent, channelSize),
	}
}

// Run drives the event loop until ctx is cancelled. Chain and swarm
// events are pumped onto the shared inbound channel by separate
// goroutines; deadline enforcement runs off a ticker. This function
// itself never blocks on I/O — every suspension point lives in the
// pump goroutines or in the per-task dispatch helpers it calls.
func (o *Orchestrator) Run(ctx context.Context, swarmEvents <-chan swarmnet.Event, chainEvents <-chan chain.JobsEvent, chainErrs <-chan error, tickEvery time.Duration) error {
	go o.pumpSwarm(ctx, swarmEvents)
	if chainEvents != nil {
		go o.pumpChain(ctx, chainEvents, chainErrs)
	}

	ticker := time.NewTicker(tickEvery)
	defer ticker.Stop()

	logger := log.WithSubsystem(log.SubsystemManager)
	if o.role == config.NodeTypeWorker {
		logger = log.WithSubsystem(log.SubsystemWorker)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if o.role == config.NodeTypeManager {
				o.enforceDeadlines(ctx)
				metrics.PendingTasksTotal.Set(float64(o.pendingTasks.Len()))
				metrics.InFlightTasksTotal.Set(float64(len(o.inFlight)))
			}
		case ev := <-o.inbound:
			if err := o.handle(ctx, ev); err != nil {
				logger.Error(fmt.Sprintf("node: handling event: %v", err))
			}
		}
	}
}

func (o *Orchestrator) pumpSwarm(ctx context.Context, events <-chan swarmnet.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			select {
			case o.inbound <- inboundEvent{Kind: inboundSwarm, Swarm: ev}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (o *Orchestrator) pumpChain(ctx context.Context, events <-chan chain.JobsEvent, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			select {
			case o.inbound <- inboundEvent{Kind: inboundChain, Chain: ev}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-errs:
			if !ok {
				continue
			}
			select {
			case o.inbound <- inboundEvent{Kind: inboundError, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, ev inboundEvent) error {
	switch ev.Kind {
	case inboundSwarm:
		return o.handleSwarmEvent(ctx, ev.Swarm)
	case inboundChain:
		return o.handleChainEvent(ctx, ev.Chain)
	case inboundError:
		return fmt.Errorf("node: chain adapter error: %w", ev.Err)
	default:
		return nil
	}
}
