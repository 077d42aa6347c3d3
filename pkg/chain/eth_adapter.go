package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/cuemby/balthazar/pkg/types"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// jobsContractABI describes the subset of the jobs contract this adapter
// speaks: the two event topics and two methods named in spec.md §6.
const jobsContractABI = `[
	{"type":"event","name":"JobLocked","inputs":[{"name":"jobId","type":"bytes32","indexed":true}]},
	{"type":"event","name":"TaskCompleted","inputs":[{"name":"jobId","type":"bytes32","indexed":true},{"name":"taskId","type":"bytes32","indexed":true},{"name":"result","type":"bytes"}]},
	{"type":"function","name":"jobsGetArguments","stateMutability":"view","inputs":[{"name":"jobId","type":"bytes32"},{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"bytes"}]},
	{"type":"function","name":"submitTaskResult","stateMutability":"nonpayable","inputs":[{"name":"jobId","type":"bytes32"},{"name":"taskId","type":"bytes32"},{"name":"result","type":"bytes"}],"outputs":[]}
]`

// EthAdapter implements Adapter against an Ethereum-compatible JSON-RPC
// endpoint via ethclient and accounts/abi/bind.
type EthAdapter struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	abi      abi.ABI
	address  common.Address
	auth     *bind.TransactOpts
	cp       *Checkpoint
}

// DialEthAdapter connects to rpcEndpoint and binds the jobs contract at
// contractAddr. signer authorizes SubmitTaskResult transactions.
func DialEthAdapter(ctx context.Context, rpcEndpoint, contractAddr string, signer *bind.TransactOpts, cp *Checkpoint) (*EthAdapter, error) {
	client, err := ethclient.DialContext(ctx, rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcEndpoint, err)
	}

	parsed, err := abi.JSON(strings.NewReader(jobsContractABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: parse jobs contract ABI: %w", err)
	}

	addr := common.HexToAddress(contractAddr)
	bound := bind.NewBoundContract(addr, parsed, client, client, client)

	return &EthAdapter{client: client, contract: bound, abi: parsed, address: addr, auth: signer, cp: cp}, nil
}

func (a *EthAdapter) Close() { a.client.Close() }

// Subscribe watches JobLocked and TaskCompleted logs starting from
// fromBlock (or the saved checkpoint, whichever is higher), translating
// each into a JobsEvent. Chain events are observed in the order the chain
// emits them, per spec.md §4.6.
func (a *EthAdapter) Subscribe(ctx context.Context, fromBlock uint64) (<-chan JobsEvent, <-chan error) {
	events := make(chan JobsEvent, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		if saved, err := a.cp.Load(); err == nil && saved > fromBlock {
			fromBlock = saved
		}

		query := ethereum.FilterQuery{
			Addresses: []common.Address{a.address},
			FromBlock: new(big.Int).SetUint64(fromBlock),
		}
		logs := make(chan gethtypes.Log, 64)
		sub, err := a.client.SubscribeFilterLogs(ctx, query, logs)
		if err != nil {
			errs <- fmt.Errorf("chain: subscribe: %w", err)
			return
		}
		defer sub.Unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				errs <- fmt.Errorf("chain: subscription: %w", err)
				return
			case log := <-logs:
				ev, ok, err := a.decodeLog(log)
				if err != nil {
					errs <- fmt.Errorf("chain: decode log: %w", err)
					continue
				}
				if !ok {
					continue
				}
				events <- ev
				if err := a.cp.Save(log.BlockNumber); err != nil {
					errs <- fmt.Errorf("chain: save checkpoint: %w", err)
				}
			}
		}
	}()

	return events, errs
}

func (a *EthAdapter) decodeLog(log gethtypes.Log) (JobsEvent, bool, error) {
	if len(log.Topics) == 0 {
		return JobsEvent{}, false, nil
	}
	eventABI, err := a.abi.EventByID(log.Topics[0])
	if err != nil {
		return JobsEvent{}, false, nil // unknown topic, not our event
	}

	switch eventABI.Name {
	case "JobLocked":
		jobID, err := types.JobIDFromBytes(log.Topics[1].Bytes())
		if err != nil {
			return JobsEvent{}, false, err
		}
		return JobsEvent{Kind: EventJobLocked, JobID: jobID, BlockNumber: log.BlockNumber}, true, nil
	case "TaskCompleted":
		jobID, err := types.JobIDFromBytes(log.Topics[1].Bytes())
		if err != nil {
			return JobsEvent{}, false, err
		}
		taskID, err := types.TaskIDFromBytes(log.Topics[2].Bytes())
		if err != nil {
			return JobsEvent{}, false, err
		}
		var decoded struct{ Result []byte }
		if err := a.abi.UnpackIntoInterface(&decoded, "TaskCompleted", log.Data); err != nil {
			return JobsEvent{}, false, err
		}
		return JobsEvent{Kind: EventTaskCompleted, JobID: jobID, TaskID: taskID, Result: decoded.Result, BlockNumber: log.BlockNumber}, true, nil
	default:
		return JobsEvent{}, false, nil
	}
}

// JobArguments calls jobsGetArguments for each index until the contract
// reverts, building the job's full argument vector.
func (a *EthAdapter) JobArguments(ctx context.Context, job types.JobID) ([][]byte, error) {
	digest, err := job.Digest()
	if err != nil {
		return nil, fmt.Errorf("chain: decode job id: %w", err)
	}
	var jobID [32]byte
	copy(jobID[:], digest)

	var args [][]byte
	for index := uint64(0); ; index++ {
		var out []interface{}
		opts := &bind.CallOpts{Context: ctx}
		if err := a.contract.Call(opts, &out, "jobsGetArguments", jobID, new(big.Int).SetUint64(index)); err != nil {
			break // reverts once index is out of range
		}
		if len(out) != 1 {
			break
		}
		arg, ok := out[0].([]byte)
		if !ok {
			break
		}
		args = append(args, arg)
	}
	return args, nil
}

// TaskResult always reports that no result is available (nil, false,
// nil): the minimal contract surface bound here has no result getter.
func (a *EthAdapter) TaskResult(ctx context.Context, job types.JobID, task types.TaskID) ([]byte, bool, error) {
	return nil, false, nil
}

// SubmitTaskResult writes a task's outcome back to the chain.
func (a *EthAdapter) SubmitTaskResult(ctx context.Context, job types.JobID, task types.TaskID, result []byte) error {
	jobDigest, err := job.Digest()
	if err != nil {
		return fmt.Errorf("chain: decode job id: %w", err)
	}
	taskDigest, err := task.Digest()
	if err != nil {
		return fmt.Errorf("chain: decode task id: %w", err)
	}
	var jobID, taskID [32]byte
	copy(jobID[:], jobDigest)
	copy(taskID[:], taskDigest)

	auth := *a.auth
	auth.Context = ctx
	_, err = a.contract.Transact(&auth, "submitTaskResult", jobID, taskID, result)
	if err != nil {
		return fmt.Errorf("chain: submit task result: %w", err)
	}
	return nil
}

// LoadSigner builds a *bind.TransactOpts from a raw private key, matching
// the account-key-file configuration key (spec.md §6 "chain.*").
func LoadSigner(hexKey string, chainID *big.Int) (*bind.TransactOpts, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: parse account key: %w", err)
	}
	return bind.NewKeyedTransactorWithChainID(key, chainID)
}
