package node

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/balthazar/pkg/chain"
	"github.com/cuemby/balthazar/pkg/config"
	"github.com/cuemby/balthazar/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSwarm struct {
	tasksExecute []struct {
		to    peer.ID
		tasks map[string]types.TaskExecute
	}
	taskStatus []struct {
		to     peer.ID
		taskID types.TaskID
		status types.TaskStatus
	}
	sendErr error
}

func (f *fakeSwarm) SendTasksExecute(ctx context.Context, to peer.ID, tasks map[string]types.TaskExecute) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.tasksExecute = append(f.tasksExecute, struct {
		to    peer.ID
		tasks map[string]types.TaskExecute
	}{to, tasks})
	return nil
}

func (f *fakeSwarm) SendTaskStatus(ctx context.Context, to peer.ID, taskID types.TaskID, status types.TaskStatus) error {
	f.taskStatus = append(f.taskStatus, struct {
		to     peer.ID
		taskID types.TaskID
		status types.TaskStatus
	}{to, taskID, status})
	return nil
}

type fakeChainAdapter struct {
	arguments      [][]byte
	argumentsErr   error
	submitted      []struct {
		job    types.JobID
		task   types.TaskID
		result []byte
	}
	submitErr error
}

func (f *fakeChainAdapter) Subscribe(ctx context.Context, fromBlock uint64) (<-chan chain.JobsEvent, <-chan error) {
	return nil, nil
}

func (f *fakeChainAdapter) JobArguments(ctx context.Context, job types.JobID) ([][]byte, error) {
	return f.arguments, f.argumentsErr
}

func (f *fakeChainAdapter) TaskResult(ctx context.Context, job types.JobID, task types.TaskID) ([]byte, bool, error) {
	return nil, false, nil
}

func (f *fakeChainAdapter) SubmitTaskResult(ctx context.Context, job types.JobID, task types.TaskID, result []byte) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, struct {
		job    types.JobID
		task   types.TaskID
		result []byte
	}{job, task, result})
	return nil
}

func testJobID(t *testing.T, nonce uint16) types.JobID {
	t.Helper()
	id, err := types.NewJobID(common.HexToAddress("0x1111111111111111111111111111111111111111"), nonce)
	require.NoError(t, err)
	return id
}

func newManagerOrchestrator(swarm swarmSender, adapter chain.Adapter) *Orchestrator {
	o := New(config.NodeTypeManager, swarm, adapter, nil, nil, 3, 10*time.Second)
	return o
}

func TestOnJobLockedEnqueuesOnePendingTaskPerArgument(t *testing.T) {
	adapter := &fakeChainAdapter{arguments: [][]byte{[]byte("a"), []byte("b"), []byte("c")}}
	o := newManagerOrchestrator(&fakeSwarm{}, adapter)
	jobID := testJobID(t, 1)

	require.NoError(t, o.onJobLocked(context.Background(), jobID))

	assert.Equal(t, 3, o.pendingTasks.Len())
	rec, ok := o.jobs[jobID.String()]
	require.True(t, ok)
	assert.Empty(t, rec.Failures)
}

func TestOnWorkerNewDispatchesFromBackOfDeque(t *testing.T) {
	adapter := &fakeChainAdapter{arguments: [][]byte{[]byte("first"), []byte("second")}}
	swarm := &fakeSwarm{}
	o := newManagerOrchestrator(swarm, adapter)
	jobID := testJobID(t, 1)
	require.NoError(t, o.onJobLocked(context.Background(), jobID))

	worker := peer.ID("worker-1")
	require.NoError(t, o.onWorkerNew(context.Background(), worker))

	require.Len(t, swarm.tasksExecute, 1)
	assert.Equal(t, worker, swarm.tasksExecute[0].to)
	assert.Equal(t, 1, o.pendingTasks.Len())
	assert.Len(t, o.inFlight, 1)
}

func TestOnWorkerNewMarksIdleWhenDequeEmpty(t *testing.T) {
	adapter := &fakeChainAdapter{}
	o := newManagerOrchestrator(&fakeSwarm{}, adapter)
	worker := peer.ID("worker-1")

	require.NoError(t, o.onWorkerNew(context.Background(), worker))

	_, idle := o.idleWorkers[worker]
	assert.True(t, idle)
	assert.Empty(t, o.inFlight)
}

func TestOnJobLockedDispatchesToAlreadyIdleWorker(t *testing.T) {
	adapter := &fakeChainAdapter{}
	swarm := &fakeSwarm{}
	o := newManagerOrchestrator(swarm, adapter)
	worker := peer.ID("worker-1")
	require.NoError(t, o.onWorkerNew(context.Background(), worker))
	_, idle := o.idleWorkers[worker]
	require.True(t, idle)

	adapter.arguments = [][]byte{[]byte("a")}
	jobID := testJobID(t, 1)
	require.NoError(t, o.onJobLocked(context.Background(), jobID))

	require.Len(t, swarm.tasksExecute, 1)
	assert.Equal(t, worker, swarm.tasksExecute[0].to)
	assert.Len(t, o.inFlight, 1)
	assert.Empty(t, o.pendingTasks.Len())
	_, stillIdle := o.idleWorkers[worker]
	assert.False(t, stillIdle)
}

func TestOnWorkerNewSkipsWorkerWithExistingAssignment(t *testing.T) {
	adapter := &fakeChainAdapter{arguments: [][]byte{[]byte("a"), []byte("b")}}
	swarm := &fakeSwarm{}
	o := newManagerOrchestrator(swarm, adapter)
	jobID := testJobID(t, 1)
	require.NoError(t, o.onJobLocked(context.Background(), jobID))

	worker := peer.ID("worker-1")
	require.NoError(t, o.onWorkerNew(context.Background(), worker))
	require.NoError(t, o.onWorkerNew(context.Background(), worker))

	assert.Len(t, swarm.tasksExecute, 1)
}

func TestOnWorkerNewReleasesReservationOnSendFailure(t *testing.T) {
	adapter := &fakeChainAdapter{arguments: [][]byte{[]byte("a")}}
	swarm := &fakeSwarm{sendErr: assert.AnError}
	o := newManagerOrchestrator(swarm, adapter)
	jobID := testJobID(t, 1)
	require.NoError(t, o.onJobLocked(context.Background(), jobID))

	err := o.onWorkerNew(context.Background(), peer.ID("worker-1"))

	require.Error(t, err)
	assert.Empty(t, o.inFlight)
	assert.Equal(t, 1, o.pendingTasks.Len())
}

func TestOnTaskStatusCompletedSubmitsResultAndClearsInFlight(t *testing.T) {
	adapter := &fakeChainAdapter{arguments: [][]byte{[]byte("a")}}
	swarm := &fakeSwarm{}
	o := newManagerOrchestrator(swarm, adapter)
	jobID := testJobID(t, 1)
	require.NoError(t, o.onJobLocked(context.Background(), jobID))
	worker := peer.ID("worker-1")
	require.NoError(t, o.onWorkerNew(context.Background(), worker))

	var taskID types.TaskID
	for _, task := range swarm.tasksExecute[0].tasks {
		taskID = task.TaskID
	}

	err := o.onTaskStatus(context.Background(), worker, taskID, types.StatusCompleted([]byte("result")))

	require.NoError(t, err)
	assert.Empty(t, o.inFlight)
	require.Len(t, adapter.submitted, 1)
	assert.Equal(t, []byte("result"), adapter.submitted[0].result)
}

func TestOnTaskStatusIgnoresStatusFromWrongPeer(t *testing.T) {
	adapter := &fakeChainAdapter{arguments: [][]byte{[]byte("a")}}
	swarm := &fakeSwarm{}
	o := newManagerOrchestrator(swarm, adapter)
	jobID := testJobID(t, 1)
	require.NoError(t, o.onJobLocked(context.Background(), jobID))
	worker := peer.ID("worker-1")
	require.NoError(t, o.onWorkerNew(context.Background(), worker))

	var taskID types.TaskID
	for _, task := range swarm.tasksExecute[0].tasks {
		taskID = task.TaskID
	}

	err := o.onTaskStatus(context.Background(), peer.ID("impostor"), taskID, types.StatusCompleted(nil))

	require.NoError(t, err)
	assert.Len(t, o.inFlight, 1)
	assert.Empty(t, adapter.submitted)
}

func TestOnTaskStatusErrorRequeuesUnderMaxFailures(t *testing.T) {
	adapter := &fakeChainAdapter{arguments: [][]byte{[]byte("a")}}
	swarm := &fakeSwarm{}
	o := newManagerOrchestrator(swarm, adapter)
	jobID := testJobID(t, 1)
	require.NoError(t, o.onJobLocked(context.Background(), jobID))
	worker := peer.ID("worker-1")
	require.NoError(t, o.onWorkerNew(context.Background(), worker))

	var taskID types.TaskID
	for _, task := range swarm.tasksExecute[0].tasks {
		taskID = task.TaskID
	}

	require.NoError(t, o.onTaskStatus(context.Background(), worker, taskID, types.StatusError(types.TaskErrorRunning)))

	assert.Equal(t, 1, o.pendingTasks.Len())
	assert.Equal(t, 1, o.jobs[jobID.String()].Failures)
}

func TestOnTaskStatusErrorDropsTaskAtMaxFailures(t *testing.T) {
	adapter := &fakeChainAdapter{arguments: [][]byte{[]byte("a")}}
	o := New(config.NodeTypeManager, &fakeSwarm{}, adapter, nil, nil, 1, 10*time.Second)
	jobID := testJobID(t, 1)
	require.NoError(t, o.onJobLocked(context.Background(), jobID))
	// Dispatch the job's only task first, so the deque is empty when its
	// failure is recorded and a re-enqueue would show up in its length.
	require.NoError(t, o.onWorkerNew(context.Background(), peer.ID("worker-1")))

	taskID, err := types.NewTaskID(jobID, 0, []byte("a"))
	require.NoError(t, err)

	o.recordFailureAndMaybeRequeue(jobID, taskID)

	assert.Equal(t, 0, o.pendingTasks.Len())
}

func TestRequeueInFlightForRequeuesAllOfDisconnectedWorkersTasks(t *testing.T) {
	adapter := &fakeChainAdapter{arguments: [][]byte{[]byte("a"), []byte("b")}}
	swarm := &fakeSwarm{}
	o := newManagerOrchestrator(swarm, adapter)
	jobID := testJobID(t, 1)
	require.NoError(t, o.onJobLocked(context.Background(), jobID))
	worker := peer.ID("worker-1")
	require.NoError(t, o.onWorkerNew(context.Background(), worker))
	require.Len(t, o.inFlight, 1)

	o.requeueInFlightFor(worker)

	assert.Empty(t, o.inFlight)
	assert.Equal(t, 2, o.pendingTasks.Len())
}

func TestEnforceDeadlinesRequeuesExpiredTasks(t *testing.T) {
	adapter := &fakeChainAdapter{arguments: [][]byte{[]byte("a")}}
	swarm := &fakeSwarm{}
	o := newManagerOrchestrator(swarm, adapter)
	jobID := testJobID(t, 1)
	require.NoError(t, o.onJobLocked(context.Background(), jobID))
	worker := peer.ID("worker-1")
	require.NoError(t, o.onWorkerNew(context.Background(), worker))

	for _, entry := range o.inFlight {
		entry.Deadline = time.Now().Add(-time.Second)
	}

	o.enforceDeadlines(context.Background())

	assert.Empty(t, o.inFlight)
	assert.Equal(t, 1, o.pendingTasks.Len())
}
