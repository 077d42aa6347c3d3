package node

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/cuemby/balthazar/pkg/config"
	"github.com/cuemby/balthazar/pkg/storage"
	"github.com/cuemby/balthazar/pkg/types"
	"github.com/cuemby/balthazar/pkg/wasmrun"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	blobs map[string][]byte
}

func (f *fakeStore) Fetch(ctx context.Context, addr string, maxSize uint64) ([]byte, error) {
	data, ok := f.blobs[addr]
	if !ok {
		return nil, &storage.Error{Kind: storage.ErrorNotFound, Err: context.Canceled}
	}
	return data, nil
}

func (f *fakeStore) FetchStream(ctx context.Context, addr string) (io.ReadCloser, error) {
	return nil, nil
}

func (f *fakeStore) Size(ctx context.Context, addr string) (uint64, error) {
	return uint64(len(f.blobs[addr])), nil
}

func (f *fakeStore) Store(ctx context.Context, data []byte) (string, error) { return "", nil }

func (f *fakeStore) StoreStream(ctx context.Context, r io.Reader) (string, error) {
	return "", nil
}

func (f *fakeStore) Close() error { return nil }

type fakeRunner struct {
	result []byte
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, program, argument []byte, timeout time.Duration) ([]byte, error) {
	return f.result, f.err
}

func newWorkerOrchestrator(swarm swarmSender, store storage.Store, runner wasmRunner) *Orchestrator {
	return New(config.NodeTypeWorker, swarm, nil, store, runner, 3, 10*time.Second)
}

func TestOnTasksExecuteDropsBatchFromNonManagerPeer(t *testing.T) {
	swarm := &fakeSwarm{}
	o := newWorkerOrchestrator(swarm, nil, nil)
	o.SetCurrentManager(peer.ID("manager-1"))

	err := o.onTasksExecute(context.Background(), peer.ID("impostor"), map[string]types.TaskExecute{})

	require.NoError(t, err)
	assert.Empty(t, swarm.taskStatus)
}

func TestOnTasksExecuteRunsAndReportsCompleted(t *testing.T) {
	jobID := testJobID(t, 1)
	taskID, err := types.NewTaskID(jobID, 0, []byte("arg"))
	require.NoError(t, err)

	swarm := &fakeSwarm{}
	store := &fakeStore{blobs: map[string][]byte{"addr-1": []byte("program")}}
	runner := &fakeRunner{result: []byte("42")}
	o := newWorkerOrchestrator(swarm, store, runner)
	manager := peer.ID("manager-1")
	o.SetCurrentManager(manager)

	task := types.TaskExecute{
		JobID:     jobID,
		TaskID:    taskID,
		JobAddr:   [][]byte{[]byte("addr-1")},
		Arguments: []byte("arg"),
		TimeoutS:  5,
	}

	require.NoError(t, o.onTasksExecute(context.Background(), manager, map[string]types.TaskExecute{taskID.String(): task}))
	o.runningWG.Wait()

	require.Len(t, swarm.taskStatus, 3)
	assert.Equal(t, types.TaskStatusPending, swarm.taskStatus[0].status.Kind)
	assert.Equal(t, types.TaskStatusStarted, swarm.taskStatus[1].status.Kind)
	assert.Equal(t, types.TaskStatusCompleted, swarm.taskStatus[2].status.Kind)
	assert.Equal(t, []byte("42"), swarm.taskStatus[2].status.Result)
}

func TestOnTasksExecuteReportsDownloadErrorWhenFetchFails(t *testing.T) {
	jobID := testJobID(t, 1)
	taskID, err := types.NewTaskID(jobID, 0, []byte("arg"))
	require.NoError(t, err)

	swarm := &fakeSwarm{}
	store := &fakeStore{blobs: map[string][]byte{}}
	o := newWorkerOrchestrator(swarm, store, &fakeRunner{})
	manager := peer.ID("manager-1")
	o.SetCurrentManager(manager)

	task := types.TaskExecute{JobID: jobID, TaskID: taskID, JobAddr: [][]byte{[]byte("missing")}, TimeoutS: 5}

	require.NoError(t, o.onTasksExecute(context.Background(), manager, map[string]types.TaskExecute{taskID.String(): task}))
	o.runningWG.Wait()

	require.Len(t, swarm.taskStatus, 2)
	assert.Equal(t, types.TaskStatusError, swarm.taskStatus[1].status.Kind)
	assert.Equal(t, types.TaskErrorDownload, swarm.taskStatus[1].status.ErrorKind)
}

func TestOnTasksExecuteClassifiesRunFailureKind(t *testing.T) {
	jobID := testJobID(t, 1)
	taskID, err := types.NewTaskID(jobID, 0, []byte("arg"))
	require.NoError(t, err)

	swarm := &fakeSwarm{}
	store := &fakeStore{blobs: map[string][]byte{"addr-1": []byte("program")}}
	runner := &fakeRunner{err: &wasmrun.RunError{Kind: wasmrun.FailureTimeout, Err: context.DeadlineExceeded}}
	o := newWorkerOrchestrator(swarm, store, runner)
	manager := peer.ID("manager-1")
	o.SetCurrentManager(manager)

	task := types.TaskExecute{JobID: jobID, TaskID: taskID, JobAddr: [][]byte{[]byte("addr-1")}, TimeoutS: 5}

	require.NoError(t, o.onTasksExecute(context.Background(), manager, map[string]types.TaskExecute{taskID.String(): task}))
	o.runningWG.Wait()

	require.Len(t, swarm.taskStatus, 3)
	assert.Equal(t, types.TaskErrorTimeout, swarm.taskStatus[2].status.ErrorKind)
}

func TestOnManagerDisconnectClearsOnlyMatchingPeer(t *testing.T) {
	o := newWorkerOrchestrator(&fakeSwarm{}, nil, nil)
	manager := peer.ID("manager-1")
	o.SetCurrentManager(manager)

	o.OnManagerDisconnect(context.Background(), peer.ID("some-other-peer"))
	assert.NotNil(t, o.currentMgr)

	o.OnManagerDisconnect(context.Background(), manager)
	assert.Nil(t, o.currentMgr)
}

func TestOnManagerDisconnectReportsAbortedForRunningTask(t *testing.T) {
	jobID := testJobID(t, 1)
	taskID, err := types.NewTaskID(jobID, 0, []byte("arg"))
	require.NoError(t, err)

	swarm := &fakeSwarm{}
	// blocker never completes on its own; the test only cares that the
	// task is still registered as running when the disconnect arrives.
	runner := &blockingRunner{started: make(chan struct{}), unblock: make(chan struct{})}
	store := &fakeStore{blobs: map[string][]byte{"addr-1": []byte("program")}}
	o := newWorkerOrchestrator(swarm, store, runner)
	manager := peer.ID("manager-1")
	o.SetCurrentManager(manager)

	task := types.TaskExecute{JobID: jobID, TaskID: taskID, JobAddr: [][]byte{[]byte("addr-1")}, TimeoutS: 5}
	require.NoError(t, o.onTasksExecute(context.Background(), manager, map[string]types.TaskExecute{taskID.String(): task}))

	<-runner.started
	o.OnManagerDisconnect(context.Background(), manager)
	close(runner.unblock)
	o.runningWG.Wait()

	var sawAborted bool
	for _, call := range swarm.taskStatus {
		if call.status.Kind == types.TaskStatusError && call.status.ErrorKind == types.TaskErrorAborted {
			sawAborted = true
		}
	}
	assert.True(t, sawAborted)
	assert.Nil(t, o.currentMgr)
}

// blockingRunner blocks Run until unblock is closed, giving a test a
// window to observe a task as still "running" in runningTasks.
type blockingRunner struct {
	started chan struct{}
	unblock chan struct{}
}

func (f *blockingRunner) Run(ctx context.Context, program, argument []byte, timeout time.Duration) ([]byte, error) {
	close(f.started)
	<-f.unblock
	return nil, nil
}
