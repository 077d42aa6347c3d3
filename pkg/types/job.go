package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/multiformats/go-multiaddr"
)

// ProgramKind is the kind of program a Job asks the swarm to execute.
// Currently only WebAssembly is supported (spec.md §3).
type ProgramKind int

const (
	ProgramKindWasm ProgramKind = iota
)

func (k ProgramKind) String() string {
	switch k {
	case ProgramKindWasm:
		return "wasm"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// BestMethod names how a job prefers its Workers to be chosen (spec.md
// §3). It is carried on Job and printed by Job.String; pkg/node's dispatch
// does not consult it and hands tasks to idle Workers in map order.
type BestMethod int

const (
	// BestMethodCost prefers the cheapest offer (lowest declared price).
	BestMethodCost BestMethod = iota
	// BestMethodPerformance prefers the most performant worker (highest
	// declared CPU/memory/bandwidth).
	BestMethodPerformance
)

func (m BestMethod) String() string {
	switch m {
	case BestMethodCost:
		return "cost"
	case BestMethodPerformance:
		return "performance"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Job is the immutable, on-chain description of a computation to run over a
// vector of arguments. It is never mutated locally; its lifecycle
// (New -> Locked -> Completed) is observed from the chain via pkg/chain.
type Job struct {
	ProgramKind  ProgramKind
	Addresses    []multiaddr.Multiaddr
	ProgramHash  []byte // multihash of the program bytes
	Arguments    [][]byte

	Timeout        uint64 // seconds, per task
	MaxFailures    uint64
	BestMethod     BestMethod
	MaxWorkerPrice uint64
	MinCPUCount    uint64
	MinMemory      uint64
	MaxNetworkUsage uint64
	MaxNetworkPrice uint64
	MinNetworkSpeed uint64

	Redundancy    uint64
	IsProgramPure bool

	Sender common.Address
	// Nonce is unset (HasNonce == false) until the job has been submitted
	// to the chain. JobID is only defined once a nonce exists.
	Nonce    uint16
	HasNonce bool
}

// JobID returns the job's identifier if its nonce is known, matching the
// invariant "job_id is defined iff nonce is set" (spec.md §3).
func (j *Job) JobID() (JobID, bool, error) {
	if !j.HasNonce {
		return JobID{}, false, nil
	}
	id, err := NewJobID(j.Sender, j.Nonce)
	if err != nil {
		return JobID{}, false, err
	}
	return id, true, nil
}

// MaxPrice computes the maximum payable amount for the job:
//
//	redundancy × |addresses| × (timeout × max_worker_price + max_network_usage × max_network_price)
func (j *Job) MaxPrice() uint64 {
	return j.Redundancy * uint64(len(j.Addresses)) *
		(j.Timeout*j.MaxWorkerPrice + j.MaxNetworkUsage*j.MaxNetworkPrice)
}

// Tasks enumerates the tasks this job produces: one per argument, in
// argument order. A job with zero arguments produces zero tasks and is
// never dispatched (spec.md §8 boundary case).
func (j *Job) Tasks() ([]Task, error) {
	id, ok, err := j.JobID()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("job has no nonce yet, cannot derive task ids")
	}

	tasks := make([]Task, 0, len(j.Arguments))
	for i, arg := range j.Arguments {
		taskID, err := NewTaskID(id, uint16(i), arg)
		if err != nil {
			return nil, fmt.Errorf("task id for argument %d: %w", i, err)
		}
		tasks = append(tasks, Task{
			JobID:    id,
			TaskID:   taskID,
			Index:    uint16(i),
			Argument: arg,
		})
	}
	return tasks, nil
}

// String renders a human-readable description of the job (SPEC_FULL.md,
// supplemented from original_source/balthamisc/src/job.rs's Display impl).
func (j *Job) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, "---------")
	if id, ok, _ := j.JobID(); ok {
		fmt.Fprintf(&b, "Job id: %s\n", id)
	} else {
		fmt.Fprintln(&b, "Job id: unknown")
	}
	fmt.Fprintf(&b, "Program kind: %s\n", j.ProgramKind)
	fmt.Fprintf(&b, "Addresses: %v\n", j.Addresses)
	fmt.Fprintf(&b, "Arguments: %d\n", len(j.Arguments))
	fmt.Fprintf(&b, "Timeout: %ds\n", j.Timeout)
	fmt.Fprintf(&b, "Max failures: %d\n", j.MaxFailures)
	fmt.Fprintf(&b, "Best method: %s\n", j.BestMethod)
	fmt.Fprintf(&b, "Redundancy: %d\n", j.Redundancy)
	fmt.Fprintf(&b, "Is program pure? %t\n", j.IsProgramPure)
	fmt.Fprintf(&b, "Sender: %s\n", j.Sender.Hex())
	fmt.Fprintf(&b, "Max price: %d\n", j.MaxPrice())
	fmt.Fprintln(&b, "---------")
	return b.String()
}
