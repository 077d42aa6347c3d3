/*
Package chain adapts Balthazar's Manager/Worker nodes to the on-chain
jobs contract (C6): an append-only stream of job-lifecycle events, plus
read/write methods for arguments, results, and task submission. Built on
github.com/ethereum/go-ethereum's ethclient and accounts/abi/bind, since
spec.md §6 names Ethereum-style 20-byte addresses for the chain interface.
*/
package chain

import (
	"github.com/cuemby/balthazar/pkg/types"
)

// EventKind tags a JobsEvent's variant.
type EventKind int

const (
	EventJobNew EventKind = iota
	EventJobLocked
	EventTaskCompleted
	EventTaskFailed
	EventJobCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventJobNew:
		return "JobNew"
	case EventJobLocked:
		return "JobLocked"
	case EventTaskCompleted:
		return "TaskCompleted"
	case EventTaskFailed:
		return "TaskFailed"
	case EventJobCompleted:
		return "JobCompleted"
	default:
		return "Unknown"
	}
}

// JobsEvent is one entry in the chain's append-only job-lifecycle stream
// (spec.md §4.6). Only the fields relevant to Kind are populated.
type JobsEvent struct {
	Kind   EventKind
	JobID  types.JobID
	TaskID types.TaskID
	Result []byte // EventTaskCompleted
	Reason string // EventTaskFailed

	// BlockNumber lets the node checkpoint its position in the stream so
	// Subscribe can resume from it after a restart.
	BlockNumber uint64
}
