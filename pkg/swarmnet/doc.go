/*
Package swarmnet implements the connection handler (C2) and swarm
behaviour (C3) on top of github.com/libp2p/go-libp2p: peer discovery via
dialed bootstrap addresses, role negotiation (NodeTypeRequest/Answer),
Manager/Worker pairing, and the event pump that feeds pkg/node.

One Host per process owns a single libp2p host.Host and registers a
stream handler for the balthazar protocol ID. Each remote peer gets a
*PeerRecord in the Registry; each outbound request reads its answer from
the substream it was sent on (the answer echoes the correlation id of
pkg/wire's Envelope, which the Host does not inspect), mirroring
the substream-per-request pattern of the original handler's
InWaitingUser/OutWaitingAnswer state machine (spec.md §4.2) without
reimplementing its state machine explicitly — libp2p's stream-per-request
model already gives each request its own substream, so "substream state"
collapses into "this goroutine is reading/writing this network.Stream".
*/
package swarmnet
