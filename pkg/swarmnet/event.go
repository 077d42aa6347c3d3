package swarmnet

import (
	"github.com/cuemby/balthazar/pkg/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

// EventKind tags the variants C3 surfaces to the orchestrator (spec.md
// §4.3 "Event plumbing").
type EventKind int

const (
	EventWorkerNew EventKind = iota
	EventManagerNew
	EventTasksExecute
	EventTaskStatus
	EventPeerDisconnected
)

// Event is a single occurrence surfaced to pkg/node. Ordering: events
// from a single peer preserve that peer's causal order; cross-peer order
// is unspecified (spec.md §4.3, §5).
type Event struct {
	Kind   EventKind
	PeerID peer.ID

	Tasks  map[string]types.TaskExecute // EventTasksExecute
	TaskID types.TaskID                 // EventTaskStatus
	Status types.TaskStatus             // EventTaskStatus
}
