package chain

import (
	"context"

	"github.com/cuemby/balthazar/pkg/types"
)

// Adapter is the chain-facing contract C7 depends on. It is implemented by
// *EthAdapter (production) and by a fake in tests.
type Adapter interface {
	// Subscribe streams JobsEvent values starting from the given
	// checkpoint block (0 meaning "from genesis" / "from the contract's
	// deployment block"). The returned channel is closed when ctx is
	// cancelled or the subscription fails unrecoverably.
	Subscribe(ctx context.Context, fromBlock uint64) (<-chan JobsEvent, <-chan error)

	// JobArguments resolves the full argument vector of a locked job.
	JobArguments(ctx context.Context, job types.JobID) ([][]byte, error)

	// TaskResult resolves a previously submitted task's result, if any.
	TaskResult(ctx context.Context, job types.JobID, task types.TaskID) ([]byte, bool, error)

	// SubmitTaskResult writes a task's outcome back to the chain.
	SubmitTaskResult(ctx context.Context, job types.JobID, task types.TaskID, result []byte) error
}
