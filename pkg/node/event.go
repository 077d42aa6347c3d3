package node

import (
	"github.com/cuemby/balthazar/pkg/chain"
	"github.com/cuemby/balthazar/pkg/swarmnet"
)

// channelSize is CHANNEL_SIZE from spec.md §5: the bounded inbound event
// channel every suspension point ultimately feeds. Producers block
// (backpressure), they never drop events.
const channelSize = 1024

type inboundKind int

const (
	inboundSwarm inboundKind = iota
	inboundChain
	inboundTick
	inboundError
)

// inboundEvent wraps whichever source produced it; exactly one of the
// payload fields is populated, selected by Kind.
type inboundEvent struct {
	Kind  inboundKind
	Swarm swarmnet.Event
	Chain chain.JobsEvent
	Err   error
}
